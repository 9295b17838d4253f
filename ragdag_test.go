package ragdag

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/brunobiangulo/ragdag/ask"
)

func writeDoc(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestInitOpenRoundTrip(t *testing.T) {
	root := t.TempDir()
	s, err := Init(root)
	if err != nil {
		t.Fatal(err)
	}
	if s.Root() == "" {
		t.Fatal("expected non-empty root")
	}

	reopened, err := Open(root)
	if err != nil {
		t.Fatal(err)
	}
	if reopened.Root() != s.Root() {
		t.Fatalf("expected same root, got %q vs %q", reopened.Root(), s.Root())
	}
}

func TestOpenFailsOutsideAStore(t *testing.T) {
	if _, err := Open(t.TempDir()); err == nil {
		t.Fatal("expected ErrNotAStore outside a store")
	}
}

func TestAddSearchAskGraphRoundTrip(t *testing.T) {
	work := t.TempDir()
	s, err := Init(filepath.Join(work, "store"))
	if err != nil {
		t.Fatal(err)
	}

	srcDir := t.TempDir()
	docPath := writeDoc(t, srcDir, "steel.txt",
		"The minimum tensile strength for Grade A structural steel is 500 MPa.\n\n"+
			"All materials must comply with ISO 9001 quality management standards.\n")

	ctx := context.Background()
	result, err := s.Add(ctx, []string{docPath}, AddOptions{Domain: "eng"})
	if err != nil {
		t.Fatal(err)
	}
	if result.Files != 1 {
		t.Fatalf("expected 1 file ingested, got %+v", result)
	}
	if result.Chunks == 0 {
		t.Fatalf("expected at least one chunk, got %+v", result)
	}

	// Re-adding the same file should be a dedup skip, not a second ingest.
	result2, err := s.Add(ctx, []string{docPath}, AddOptions{Domain: "eng"})
	if err != nil {
		t.Fatal(err)
	}
	if result2.Files != 0 || result2.Skipped != 1 {
		t.Fatalf("expected dedup skip on re-add, got %+v", result2)
	}

	searchResults, err := s.Search(ctx, "tensile strength", SearchOptions{Domain: "eng", Mode: "keyword"})
	if err != nil {
		t.Fatal(err)
	}
	if len(searchResults) == 0 {
		t.Fatal("expected at least one search result")
	}

	askResult, err := s.Ask(ctx, "What is the minimum tensile strength?", ask.Options{Domain: "eng", UseLLM: false})
	if err != nil {
		t.Fatal(err)
	}
	if askResult.Context == "" {
		t.Fatal("expected non-empty assembled context")
	}
	if askResult.HasAnswer {
		t.Fatal("expected no answer since UseLLM is false")
	}

	summary, err := s.Graph("eng")
	if err != nil {
		t.Fatal(err)
	}
	if summary.Documents != 1 || summary.Chunks == 0 {
		t.Fatalf("unexpected graph summary: %+v", summary)
	}

	chunkNode := searchResults[0].Path
	outgoing, _, err := s.Neighbors(chunkNode)
	if err != nil {
		t.Fatal(err)
	}
	foundChunkedFrom := false
	for _, e := range outgoing {
		if e.Type == "chunked_from" {
			foundChunkedFrom = true
		}
	}
	if !foundChunkedFrom {
		t.Fatalf("expected a chunked_from edge from %s, got %+v", chunkNode, outgoing)
	}

	hops, err := s.Trace(chunkNode)
	if err != nil {
		t.Fatal(err)
	}
	if len(hops) == 0 {
		t.Fatal("expected at least one trace hop")
	}
}

func TestVerifyRepairGcReindexRoundTrip(t *testing.T) {
	s, err := Init(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	srcDir := t.TempDir()
	docPath := writeDoc(t, srcDir, "notes.txt", "Quarterly audits are conducted by an independent auditor.\n")

	ctx := context.Background()
	if _, err := s.Add(ctx, []string{docPath}, AddOptions{Domain: "ops"}); err != nil {
		t.Fatal(err)
	}

	report, err := s.Verify()
	if err != nil {
		t.Fatal(err)
	}
	if report.Issues() {
		t.Fatalf("expected a clean store, got %+v", report)
	}

	if _, err := s.Repair(); err != nil {
		t.Fatal(err)
	}

	gcReport, err := s.Gc()
	if err != nil {
		t.Fatal(err)
	}
	if gcReport.RecordsRemoved != 0 {
		t.Fatalf("expected no stale records on a fresh store, got %+v", gcReport)
	}

	if _, err := s.Reindex(ctx, "ops"); err == nil {
		t.Fatal("expected Reindex to fail without a configured embedding provider")
	}
}

func TestRelateAndLink(t *testing.T) {
	s, err := Init(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	srcDir := t.TempDir()
	ctx := context.Background()
	a := writeDoc(t, srcDir, "a.txt", "Payment terms require monthly installments over 36 months.\n")
	b := writeDoc(t, srcDir, "b.txt", "The contract value is 2,500,000 dollars payable monthly.\n")

	if _, err := s.Add(ctx, []string{a, b}, AddOptions{Domain: "legal"}); err != nil {
		t.Fatal(err)
	}

	results, err := s.Search(ctx, "payment", SearchOptions{Domain: "legal", Mode: "keyword"})
	if err != nil {
		t.Fatal(err)
	}
	if len(results) < 2 {
		t.Skip("need at least two chunks to test manual linking")
	}

	if err := s.Link(results[0].Path, results[1].Path, "references"); err != nil {
		t.Fatal(err)
	}

	outgoing, _, err := s.Neighbors(results[0].Path)
	if err != nil {
		t.Fatal(err)
	}
	found := false
	for _, e := range outgoing {
		if e.Peer == results[1].Path && e.Type == "references" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected manual references edge, got %+v", outgoing)
	}
}

func TestBuildIndexFromFacade(t *testing.T) {
	s, err := Init(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	srcDir := t.TempDir()
	docPath := writeDoc(t, srcDir, "doc.txt", "Force majeure covers events beyond reasonable control.\n")

	ctx := context.Background()
	if _, err := s.Add(ctx, []string{docPath}, AddOptions{Domain: "legal"}); err != nil {
		t.Fatal(err)
	}

	dbPath := filepath.Join(t.TempDir(), "index.db")
	if err := s.BuildIndex(dbPath); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(dbPath); err != nil {
		t.Fatalf("expected index db to be created: %v", err)
	}
}
