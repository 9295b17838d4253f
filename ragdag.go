// Package ragdag is the library facade over the flat-file knowledge-graph
// engine: store discovery, ingest, search, ask, graph operations and
// maintenance, all driven from a single opened Store handle.
package ragdag

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/brunobiangulo/ragdag/ask"
	"github.com/brunobiangulo/ragdag/chunker"
	"github.com/brunobiangulo/ragdag/compat"
	"github.com/brunobiangulo/ragdag/embed"
	"github.com/brunobiangulo/ragdag/graph"
	"github.com/brunobiangulo/ragdag/llm"
	"github.com/brunobiangulo/ragdag/maintain"
	"github.com/brunobiangulo/ragdag/parser"
	"github.com/brunobiangulo/ragdag/search"
	"github.com/brunobiangulo/ragdag/store"
)

// ingestConcurrency bounds the number of files staged in parallel during a
// single Add call, matching the bounded-fan-out discipline the concurrency
// model documents for ingest batches.
const ingestConcurrency = 8

// Store is a handle to one opened .ragdag store plus the capability
// providers resolved from its configuration. All its write-path methods
// (Add, Link, Relate, Repair, Gc, Reindex) serialize through the underlying
// store's mutex; read paths (Search, Graph, Neighbors, Trace, Verify) never
// take it, and Ask takes it only to record query edges when
// edges.record_queries is set.
type Store struct {
	store    *store.Store
	embedder embed.Provider
	llmConn  llm.Provider
	tokens   compat.TokenEstimator
	log      *slog.Logger
}

// Init creates a new store rooted at dir (or binds to it if already
// initialized) and returns a ready-to-use facade.
func Init(dir string) (*Store, error) {
	s, err := store.Init(dir)
	if err != nil {
		return nil, fmt.Errorf("ragdag: initializing store: %w", err)
	}
	return newFacade(s)
}

// Open discovers the nearest .ragdag ancestor of dir and binds to it. It
// returns ErrNotAStore if none is found.
func Open(dir string) (*Store, error) {
	root, err := compat.FindStore(dir)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotAStore, err)
	}
	return newFacade(store.Open(root))
}

func newFacade(s *store.Store) (*Store, error) {
	embedder, err := embed.NewProvider(embed.Config{
		Provider: s.Config.Get("embedding.provider", "none"),
		Model:    s.Config.Get("embedding.model", "text-embedding-3-small"),
		Dims:     s.Config.GetInt("embedding.dimensions", 1536),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadConfig, err)
	}

	var llmConn llm.Provider
	if provider := s.Config.Get("llm.provider", "none"); provider != "none" {
		llmConn, err = llm.NewProvider(llm.Config{
			Provider: provider,
			Model:    s.Config.Get("llm.model", "gpt-4o-mini"),
			BaseURL:  s.Config.Get("llm.base_url", ""),
			APIKey:   resolveAPIKey(provider, "RAGDAG_LLM_API_KEY"),
		})
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrBadConfig, err)
		}
	}

	tokens := compat.NewEstimator(s.Config.Get("general.token_estimator", "approx"), s.Config.Get("llm.model", ""))

	return &Store{
		store:    s,
		embedder: embedder,
		llmConn:  llmConn,
		tokens:   tokens,
		log:      slog.Default(),
	}, nil
}

// resolveAPIKey checks a ragdag-specific env var first, then falls back to
// the provider's own well-known variable. Credentials are never read from
// the store's .config file.
func resolveAPIKey(provider, ragdagVar string) string {
	if v := os.Getenv(ragdagVar); v != "" {
		return v
	}
	switch provider {
	case "openai":
		return os.Getenv("OPENAI_API_KEY")
	case "groq":
		return os.Getenv("GROQ_API_KEY")
	case "gemini":
		return os.Getenv("GEMINI_API_KEY")
	case "xai":
		return os.Getenv("XAI_API_KEY")
	case "openrouter":
		return os.Getenv("OPENROUTER_API_KEY")
	default:
		return ""
	}
}

// Root returns the store's .ragdag directory path.
func (s *Store) Root() string { return s.store.Root }

// embeddingAvailable reports whether a real (non-none) embedding provider
// is configured.
func (s *Store) embeddingAvailable() bool {
	return s.store.Config.Get("embedding.provider", "none") != "none"
}

// AddOptions configures a single Add call.
type AddOptions struct {
	Domain string // explicit domain; ignored when Flat is set
	Flat   bool   // ingest directly under the store root, bypassing domain rules
	Embed  bool   // embed newly ingested chunks; no-op when no embedding provider is configured
}

// AddResult summarizes the outcome of an Add call.
type AddResult struct {
	Files   int
	Chunks  int
	Skipped int
}

// Add ingests every file under paths (directories are walked recursively).
// Per-file parsing and chunk staging runs concurrently up to
// ingestConcurrency; each file's processed/edge log commit is serialized
// through the store's write lock. A single file's failure is recorded as a
// skip and never aborts the batch.
func (s *Store) Add(ctx context.Context, paths []string, opts AddOptions) (AddResult, error) {
	files, err := expandPaths(paths)
	if err != nil {
		return AddResult{}, fmt.Errorf("ragdag: resolving paths: %w", err)
	}

	var result AddResult
	var filesN, chunksN, skippedN int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(ingestConcurrency)
	for _, abs := range files {
		abs := abs
		g.Go(func() error {
			n, err := s.addOne(gctx, abs, opts)
			if err != nil {
				s.log.Warn("ragdag: skipping file", "path", abs, "error", err)
				atomic.AddInt64(&skippedN, 1)
				return nil
			}
			if n == 0 {
				atomic.AddInt64(&skippedN, 1)
				return nil
			}
			atomic.AddInt64(&filesN, 1)
			atomic.AddInt64(&chunksN, int64(n))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return AddResult{}, err
	}

	result.Files = int(filesN)
	result.Chunks = int(chunksN)
	result.Skipped = int(skippedN)
	return result, nil
}

// addOne parses, chunks, and ingests a single absolute path, returning the
// chunk count (0 means the file was a no-op dedup skip).
func (s *Store) addOne(ctx context.Context, abs string, opts AddOptions) (int, error) {
	kind := parser.Detect(abs)
	text, err := parser.Parse(ctx, abs, kind)
	if err != nil {
		fallback, rerr := os.ReadFile(abs)
		if rerr != nil {
			return 0, fmt.Errorf("%w: %v", ErrParseUnavailable, err)
		}
		text = string(fallback)
	}

	hash, err := compat.HashFile(abs)
	if err != nil {
		return 0, fmt.Errorf("ragdag: hashing %s: %w", abs, err)
	}

	domain := opts.Domain
	if opts.Flat {
		domain = ""
	} else if domain == "" {
		domain, err = s.store.DomainForPath(abs)
		if err != nil {
			return 0, fmt.Errorf("ragdag: resolving domain for %s: %w", abs, err)
		}
		if domain == "" {
			domain = store.UnsortedDomain
		}
	}

	docName := compat.Sanitize(trimExt(filepath.Base(abs)))
	strategy := chunker.AutoSelect(kind, chunker.Strategy(s.store.Config.Get("general.chunk_strategy", "heading")))
	chunkSize := s.store.Config.GetInt("general.chunk_size", 1000)
	overlap := s.store.Config.GetInt("general.chunk_overlap", 100)

	s.store.Lock()
	processed, err := s.store.IsProcessed(abs, hash)
	if err != nil {
		s.store.Unlock()
		return 0, fmt.Errorf("ragdag: checking dedup for %s: %w", abs, err)
	}
	if processed {
		s.store.Unlock()
		return 0, nil
	}

	ingested, err := store.IngestFile(s.store, abs, domain, docName, hash, text, strategy, chunkSize, overlap)
	s.store.Unlock()
	if err != nil {
		return 0, fmt.Errorf("ragdag: ingesting %s: %w", abs, err)
	}

	if opts.Embed && s.embeddingAvailable() {
		if err := s.embedDocument(ctx, domain, ingested.DocRelPath); err != nil {
			s.log.Warn("ragdag: embedding failed, chunks stored without vectors", "path", abs, "error", err)
		}
	}

	return ingested.ChunkCount, nil
}

// embedDocument embeds every chunk currently in docRelPath's directory and
// appends/replaces them into the domain's embeddings.bin in append mode.
func (s *Store) embedDocument(ctx context.Context, domain, docRelPath string) error {
	docDir := filepath.Join(s.store.Root, filepath.FromSlash(docRelPath))
	entries, err := os.ReadDir(docDir)
	if err != nil {
		return fmt.Errorf("ragdag: listing %s: %w", docDir, err)
	}

	var relPaths []string
	var texts []string
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".txt" {
			continue
		}
		data, err := os.ReadFile(filepath.Join(docDir, e.Name()))
		if err != nil {
			continue
		}
		relPaths = append(relPaths, filepath.ToSlash(filepath.Join(docRelPath, e.Name())))
		texts = append(texts, string(data))
	}
	if len(texts) == 0 {
		return nil
	}

	vectors, err := s.embedder.Embed(ctx, texts)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrProviderFailure, err)
	}

	s.store.Lock()
	defer s.store.Unlock()
	domDir := s.store.DomainDir(domain)
	return embed.Write(domDir, vectors, relPaths, s.embedder.ModelName(), s.embedder.Dimensions(), true)
}

func expandPaths(paths []string) ([]string, error) {
	var files []string
	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			return nil, err
		}
		info, err := os.Stat(abs)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			files = append(files, abs)
			continue
		}
		err = filepath.WalkDir(abs, func(path string, d os.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				if path != abs && (d.Name()[0] == '.' || d.Name() == compat.StoreDirName) {
					return filepath.SkipDir
				}
				return nil
			}
			if d.Name()[0] == '.' {
				return nil
			}
			files = append(files, path)
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	return files, nil
}

func trimExt(name string) string {
	ext := filepath.Ext(name)
	return name[:len(name)-len(ext)]
}

// SearchOptions configures a single Search call.
type SearchOptions struct {
	Mode   search.Mode
	Domain string
	TopK   int
}

// SearchResultItem is one scored, content-loaded search hit.
type SearchResultItem struct {
	Path    string
	Domain  string
	Score   float64
	Content string
}

// Search runs keyword, vector, or hybrid search (defaulting to the store's
// configured search.default_mode) and eagerly loads each hit's content.
func (s *Store) Search(ctx context.Context, query string, opts SearchOptions) ([]SearchResultItem, error) {
	mode := opts.Mode
	if mode == "" {
		mode = search.Mode(s.store.Config.Get("search.default_mode", "hybrid"))
	}
	topK := opts.TopK
	if topK <= 0 {
		topK = s.store.Config.GetInt("search.top_k", 10)
	}

	var results []search.Result
	var err error
	switch mode {
	case search.Keyword:
		results, err = search.Keyword(s.store.Root, opts.Domain, query, topK)
	case search.Vector:
		results, err = search.Vector(ctx, s.store.Root, opts.Domain, query, topK, s.embedQuery)
	default:
		weights := search.FusionWeights{
			Keyword: s.store.Config.GetFloat("search.keyword_weight", 0.3),
			Vector:  s.store.Config.GetFloat("search.vector_weight", 0.7),
		}
		results, err = search.Hybrid(ctx, s.store.Root, opts.Domain, query, topK, weights, s.embeddingAvailable(), s.embedQuery)
	}
	if err != nil {
		return nil, fmt.Errorf("ragdag: search: %w", err)
	}

	items := make([]SearchResultItem, len(results))
	for i, r := range results {
		content, _ := r.Content()
		items[i] = SearchResultItem{Path: r.ChunkRelPath, Domain: r.Domain, Score: r.Score, Content: content}
	}
	return items, nil
}

func (s *Store) embedQuery(ctx context.Context, text string) ([]float32, error) {
	vecs, err := s.embedder.Embed(ctx, []string{text})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProviderFailure, err)
	}
	if len(vecs) == 0 {
		return nil, fmt.Errorf("%w: empty embedding response", ErrProviderFailure)
	}
	return vecs[0], nil
}

// Ask runs the retrieve/expand/assemble/answer/record pipeline against
// question.
func (s *Store) Ask(ctx context.Context, question string, opts ask.Options) (ask.Result, error) {
	p := &ask.Pipeline{
		Store:              s.store,
		EmbeddingAvailable: s.embeddingAvailable(),
		EmbedFn:            s.embedQuery,
		LLM:                s.llmConn,
		Tokens:             s.tokens,
	}
	result, err := p.Ask(ctx, question, opts)
	if err != nil {
		return ask.Result{}, fmt.Errorf("ragdag: ask: %w", err)
	}
	return result, nil
}

// Graph returns summary counts for the store, optionally filtered to domain
// (edges are always counted store-wide; see the open question recorded in
// DESIGN.md).
func (s *Store) Graph(domain string) (graph.Summary, error) {
	return graph.BuildSummary(s.store, domain)
}

// Neighbors lists the outgoing and incoming edges incident to node.
func (s *Store) Neighbors(node string) (outgoing, incoming []graph.NeighborEdge, err error) {
	return graph.Neighbors(s.store, node)
}

// Trace walks node's provenance chain back to its origin.
func (s *Store) Trace(node string) ([]graph.TraceHop, error) {
	return graph.Trace(s.store, node)
}

// Relate computes pairwise cosine similarity within domain (or the whole
// store) and appends related_to edges above threshold.
func (s *Store) Relate(domain string, threshold float64) (int, error) {
	s.store.Lock()
	defer s.store.Unlock()
	return graph.Relate(s.store, domain, threshold)
}

// Link appends a manual edge between source and target.
func (s *Store) Link(source, target, edgeType string) error {
	s.store.Lock()
	defer s.store.Unlock()
	return graph.Link(s.store, source, target, edgeType)
}

// Verify scans the store's persisted invariants and reports anomalies.
func (s *Store) Verify() (maintain.Report, error) {
	return maintain.Verify(s.store)
}

// Repair rewrites the edge log dropping orphans.
func (s *Store) Repair() (int, error) {
	s.store.Lock()
	defer s.store.Unlock()
	return maintain.Repair(s.store)
}

// Gc repairs edges and drops stale processed records.
func (s *Store) Gc() (maintain.GcReport, error) {
	s.store.Lock()
	defer s.store.Unlock()
	return maintain.Gc(s.store)
}

// Reindex rebuilds domain's embeddings from scratch (or every domain's when
// domain is ""), requiring a configured, non-none embedding provider.
func (s *Store) Reindex(ctx context.Context, domain string) (int, error) {
	if !s.embeddingAvailable() {
		return 0, fmt.Errorf("%w: embedding.provider is none", ErrProviderUnavailable)
	}
	s.store.Lock()
	defer s.store.Unlock()
	return maintain.Reindex(ctx, s.store, domain, s.embedder)
}

// BuildIndex mirrors the store's logs and embeddings into a disposable
// SQLite database at dbPath for ad hoc SQL exploration. It is a read-only
// operation over the store and is never consulted by any other facade
// method.
func (s *Store) BuildIndex(dbPath string) error {
	return maintain.BuildIndex(s.store, dbPath)
}
