package store

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/brunobiangulo/ragdag/chunker"
	"github.com/brunobiangulo/ragdag/compat"
)

// IngestResult describes the outcome of IngestFile.
type IngestResult struct {
	DocRelPath string
	ChunkCount int
}

// IngestFile writes text as chunks under domain/docName (domain may be "")
// and updates the processed and edge logs to reflect it. absSource is the
// absolute path of the originating file, used as the edge source and the
// processed-log key. Callers must hold the store lock.
func IngestFile(s *Store, absSource, domain, docName, hash, text string, strategy chunker.Strategy, chunkSize, overlap int) (IngestResult, error) {
	docDir := s.DocDir(domain, docName)

	staging := docDir + ".new." + uuid.NewString()
	if err := os.MkdirAll(staging, 0o755); err != nil {
		return IngestResult{}, fmt.Errorf("store: creating staging dir: %w", err)
	}
	defer os.RemoveAll(staging)

	n, err := chunker.Chunk(text, staging, strategy, chunkSize, overlap)
	if err != nil {
		return IngestResult{}, fmt.Errorf("store: chunking %s: %w", absSource, err)
	}

	if err := replaceChunks(docDir, staging); err != nil {
		return IngestResult{}, fmt.Errorf("store: placing chunks for %s: %w", absSource, err)
	}

	docRel, err := s.RelPath(docDir)
	if err != nil {
		return IngestResult{}, err
	}

	if err := s.UpsertProcessed(ProcessedRecord{
		Path:      absSource,
		Hash:      hash,
		Domain:    domain,
		Timestamp: compat.NowISO(),
	}); err != nil {
		return IngestResult{}, err
	}

	entries, err := os.ReadDir(docDir)
	if err != nil {
		return IngestResult{}, fmt.Errorf("store: listing %s: %w", docDir, err)
	}
	var chunkEdges []Edge
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".txt") {
			continue
		}
		chunkRel := filepath.ToSlash(filepath.Join(docRel, e.Name()))
		chunkEdges = append(chunkEdges, Edge{Source: chunkRel, Target: absSource, Type: "chunked_from"})
	}
	if err := s.ReplaceChunkedFromEdges(absSource, chunkEdges); err != nil {
		return IngestResult{}, err
	}

	return IngestResult{DocRelPath: docRel, ChunkCount: n}, nil
}

// replaceChunks performs the §4.5 "replace" step: if target exists, its
// *.txt files are deleted and the staged ones moved in; otherwise staging
// is renamed directly to target. Either path leaves target with exactly
// the new chunk set, or, on failure, the previous set intact.
func replaceChunks(target, staging string) error {
	if _, err := os.Stat(target); os.IsNotExist(err) {
		return os.Rename(staging, target)
	} else if err != nil {
		return err
	}

	existing, err := os.ReadDir(target)
	if err != nil {
		return fmt.Errorf("reading existing doc dir: %w", err)
	}
	for _, e := range existing {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".txt") {
			if err := os.Remove(filepath.Join(target, e.Name())); err != nil {
				return fmt.Errorf("removing stale chunk %s: %w", e.Name(), err)
			}
		}
	}

	staged, err := os.ReadDir(staging)
	if err != nil {
		return fmt.Errorf("reading staging dir: %w", err)
	}
	for _, e := range staged {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".txt") {
			continue
		}
		src := filepath.Join(staging, e.Name())
		dst := filepath.Join(target, e.Name())
		if err := os.Rename(src, dst); err != nil {
			return fmt.Errorf("moving chunk %s into place: %w", e.Name(), err)
		}
	}
	return nil
}
