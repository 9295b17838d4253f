package ragdag

import "errors"

// Sentinel errors matching the taxonomy documented for the engine. Component
// packages return their own local errors. The facade wraps store discovery,
// provider construction, parse and provider failures against ErrNotAStore,
// ErrBadConfig, ErrParseUnavailable, ErrProviderUnavailable or
// ErrProviderFailure so callers can branch with errors.Is; other errors are
// returned without a sentinel. No facade method returns
// ErrUnsupportedFileType, ErrCorruptEmbeddings or ErrTimeout.
var (
	// ErrNotAStore is returned when store discovery fails to find a
	// .ragdag directory. User-recoverable via Init.
	ErrNotAStore = errors.New("ragdag: not a store")

	// ErrBadConfig is returned for a malformed section.key or a config
	// write failure.
	ErrBadConfig = errors.New("ragdag: bad config")

	// ErrUnsupportedFileType is returned when a file's detected kind has
	// no parser. Ingest skips the file and continues the batch.
	ErrUnsupportedFileType = errors.New("ragdag: unsupported file type")

	// ErrParseUnavailable is returned when a required external decoder
	// (pdftotext, pandoc) is missing. Ingest skips the file and continues.
	ErrParseUnavailable = errors.New("ragdag: parser unavailable")

	// ErrProviderUnavailable is returned when an embedding or LLM
	// provider is configured as none, or required credentials are
	// absent from the environment. Callers degrade: hybrid search falls
	// back to keyword, ask falls back to context-only.
	ErrProviderUnavailable = errors.New("ragdag: capability provider unavailable")

	// ErrProviderFailure is returned when a configured provider errors at
	// runtime. Ingest surfaces it per-file and continues; search falls
	// back to keyword; ask surfaces it to the caller.
	ErrProviderFailure = errors.New("ragdag: capability provider failure")

	// ErrCorruptEmbeddings is returned when an embeddings.bin fails its
	// magic/version/count checks. The similarity engine treats the
	// domain as empty; verify flags it; reindex is the remedy.
	ErrCorruptEmbeddings = errors.New("ragdag: corrupt embeddings")

	// ErrTimeout is returned when an external capability call (embedding,
	// LLM, external decoder) exceeds its caller-supplied deadline.
	ErrTimeout = errors.New("ragdag: capability call timed out")
)
