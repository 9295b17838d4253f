package store

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/brunobiangulo/ragdag/chunker"
)

func TestInitCreatesExpectedFiles(t *testing.T) {
	dir := t.TempDir()
	s, err := Init(dir)
	if err != nil {
		t.Fatal(err)
	}
	for _, p := range []string{s.ProcessedPath(), s.EdgesPath(), s.DomainRulesPath(), s.MetaPath(), s.configPath()} {
		if _, err := os.Stat(p); err != nil {
			t.Errorf("expected %s to exist: %v", p, err)
		}
	}
}

func TestInitIsIdempotent(t *testing.T) {
	dir := t.TempDir()
	if _, err := Init(dir); err != nil {
		t.Fatal(err)
	}
	s2, err := Init(dir)
	if err != nil {
		t.Fatal(err)
	}
	if err := s2.Config.Set("general.domain_default", "custom"); err != nil {
		t.Fatal(err)
	}
	if _, err := Init(dir); err != nil {
		t.Fatal(err)
	}
	if got := s2.Config.Get("general.domain_default", ""); got != "custom" {
		t.Errorf("re-Init clobbered config, got %q", got)
	}
}

func TestProcessedUpsertAndDedup(t *testing.T) {
	dir := t.TempDir()
	s, err := Init(dir)
	if err != nil {
		t.Fatal(err)
	}

	if err := s.UpsertProcessed(ProcessedRecord{Path: "/a.txt", Hash: "h1", Domain: "eng", Timestamp: "t1"}); err != nil {
		t.Fatal(err)
	}
	processed, err := s.IsProcessed("/a.txt", "h1")
	if err != nil || !processed {
		t.Fatalf("expected processed, got %v %v", processed, err)
	}
	if processed, _ := s.IsProcessed("/a.txt", "h2"); processed {
		t.Errorf("different hash should not be a dedup hit")
	}
	if processed, _ := s.IsProcessed("/a", "h1"); processed {
		t.Errorf("substring path should not match")
	}

	if err := s.UpsertProcessed(ProcessedRecord{Path: "/a.txt", Hash: "h2", Domain: "eng", Timestamp: "t2"}); err != nil {
		t.Fatal(err)
	}
	records, err := s.ReadProcessed()
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 1 {
		t.Fatalf("expected prior record replaced, got %d records", len(records))
	}
	if records[0].Hash != "h2" {
		t.Errorf("got hash %q, want h2", records[0].Hash)
	}
}

func TestReplaceChunkedFromEdgesPreservesOtherTypes(t *testing.T) {
	dir := t.TempDir()
	s, err := Init(dir)
	if err != nil {
		t.Fatal(err)
	}
	if err := s.AppendEdges([]Edge{
		{Source: "eng/doc/01.txt", Target: "/a.txt", Type: "chunked_from"},
		{Source: "eng/doc/01.txt", Target: "eng/doc2/01.txt", Type: "related_to"},
	}); err != nil {
		t.Fatal(err)
	}

	if err := s.ReplaceChunkedFromEdges("/a.txt", []Edge{
		{Source: "eng/doc/01.txt", Target: "/a.txt", Type: "chunked_from"},
		{Source: "eng/doc/02.txt", Target: "/a.txt", Type: "chunked_from"},
	}); err != nil {
		t.Fatal(err)
	}

	edges, err := s.ReadEdges()
	if err != nil {
		t.Fatal(err)
	}
	var chunkedFrom, relatedTo int
	for _, e := range edges {
		switch e.Type {
		case "chunked_from":
			chunkedFrom++
		case "related_to":
			relatedTo++
		}
	}
	if chunkedFrom != 2 {
		t.Errorf("got %d chunked_from edges, want 2", chunkedFrom)
	}
	if relatedTo != 1 {
		t.Errorf("related_to edge should survive, got %d", relatedTo)
	}
}

func TestDomainRulesFirstMatchWins(t *testing.T) {
	dir := t.TempDir()
	s, err := Init(dir)
	if err != nil {
		t.Fatal(err)
	}
	content := "# comment\nlegal contract -> legal\ninvoice billing -> finance\n"
	if err := os.WriteFile(s.DomainRulesPath(), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	domain, err := s.DomainForPath("/docs/2024/contract-final.txt")
	if err != nil {
		t.Fatal(err)
	}
	if domain != "legal" {
		t.Errorf("got domain %q, want legal", domain)
	}

	domain, err = s.DomainForPath("/docs/misc.txt")
	if err != nil {
		t.Fatal(err)
	}
	if domain != "" {
		t.Errorf("got domain %q, want empty for no match", domain)
	}
}

func TestIngestFileWritesChunksAndLogs(t *testing.T) {
	dir := t.TempDir()
	s, err := Init(dir)
	if err != nil {
		t.Fatal(err)
	}

	text := "# Intro\n" + repeat("word ", 400) + "\n# Next\n" + repeat("word ", 400)
	res, err := IngestFile(s, "/src/doc.md", "eng", "doc", "hash1", text, chunker.Heading, 1000, 0)
	if err != nil {
		t.Fatal(err)
	}
	if res.ChunkCount == 0 {
		t.Fatalf("expected chunks written")
	}

	docDir := filepath.Join(s.Root, "eng", "doc")
	entries, err := os.ReadDir(docDir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != res.ChunkCount {
		t.Errorf("got %d files on disk, want %d", len(entries), res.ChunkCount)
	}

	edges, err := s.ReadEdges()
	if err != nil {
		t.Fatal(err)
	}
	if len(edges) != res.ChunkCount {
		t.Errorf("expected one chunked_from edge per chunk, got %d edges for %d chunks", len(edges), res.ChunkCount)
	}

	processed, err := s.IsProcessed("/src/doc.md", "hash1")
	if err != nil || !processed {
		t.Fatalf("expected dedup hit after ingest, got %v %v", processed, err)
	}

	// Re-ingest with fewer chunks; stale chunk files must be gone and
	// chunked_from edges must reflect only the new set.
	res2, err := IngestFile(s, "/src/doc.md", "eng", "doc", "hash2", "short text", chunker.Fixed, 1000, 0)
	if err != nil {
		t.Fatal(err)
	}
	entries2, err := os.ReadDir(docDir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries2) != res2.ChunkCount {
		t.Errorf("stale chunks not cleaned up: got %d files, want %d", len(entries2), res2.ChunkCount)
	}
	edges2, err := s.ReadEdges()
	if err != nil {
		t.Fatal(err)
	}
	if len(edges2) != res2.ChunkCount {
		t.Errorf("got %d edges after re-ingest, want %d", len(edges2), res2.ChunkCount)
	}
}

func repeat(s string, n int) string {
	out := make([]byte, 0, len(s)*n)
	for i := 0; i < n; i++ {
		out = append(out, s...)
	}
	return string(out)
}
