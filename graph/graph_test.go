package graph

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/brunobiangulo/ragdag/embed"
	"github.com/brunobiangulo/ragdag/store"
)

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Init(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func writeChunkFile(t *testing.T, root, rel string) {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("content"), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestBuildSummaryEmptyStoreAllZero(t *testing.T) {
	s := newTestStore(t)
	sum, err := BuildSummary(s, "")
	if err != nil {
		t.Fatal(err)
	}
	if sum.Domains != 0 || sum.Documents != 0 || sum.Chunks != 0 || sum.Edges != 0 {
		t.Fatalf("expected all zero, got %+v", sum)
	}
}

func TestBuildSummaryCountsDomainsDocsChunksEdges(t *testing.T) {
	s := newTestStore(t)
	writeChunkFile(t, s.Root, "eng/doc1/01.txt")
	writeChunkFile(t, s.Root, "eng/doc1/02.txt")
	writeChunkFile(t, s.Root, "legal/doc2/01.txt")
	if err := s.AppendEdges([]store.Edge{
		{Source: "eng/doc1/01.txt", Target: "/a.txt", Type: "chunked_from"},
		{Source: "eng/doc1/02.txt", Target: "/a.txt", Type: "chunked_from"},
		{Source: "eng/doc1/01.txt", Target: "legal/doc2/01.txt", Type: "related_to"},
	}); err != nil {
		t.Fatal(err)
	}

	sum, err := BuildSummary(s, "")
	if err != nil {
		t.Fatal(err)
	}
	if sum.Domains != 2 {
		t.Errorf("domains = %d, want 2", sum.Domains)
	}
	if sum.Documents != 2 {
		t.Errorf("documents = %d, want 2", sum.Documents)
	}
	if sum.Chunks != 3 {
		t.Errorf("chunks = %d, want 3", sum.Chunks)
	}
	if sum.Edges != 3 {
		t.Errorf("edges = %d, want 3", sum.Edges)
	}
	if sum.EdgesByType["chunked_from"] != 2 || sum.EdgesByType["related_to"] != 1 {
		t.Errorf("edge type counts wrong: %+v", sum.EdgesByType)
	}
}

func TestNeighborsSplitsDirection(t *testing.T) {
	s := newTestStore(t)
	if err := s.AppendEdges([]store.Edge{
		{Source: "eng/doc/01.txt", Target: "/a.txt", Type: "chunked_from"},
		{Source: "query_x", Target: "eng/doc/01.txt", Type: "retrieved"},
	}); err != nil {
		t.Fatal(err)
	}

	out, in, err := Neighbors(s, "eng/doc/01.txt")
	if err != nil {
		t.Fatal(err)
	}
	if len(out) != 1 || out[0].Peer != "/a.txt" {
		t.Errorf("got outgoing %v", out)
	}
	if len(in) != 1 || in[0].Peer != "query_x" {
		t.Errorf("got incoming %v", in)
	}
}

func TestTraceWalksToOrigin(t *testing.T) {
	s := newTestStore(t)
	if err := s.AppendEdges([]store.Edge{
		{Source: "eng/doc/01.txt", Target: "/raw.txt", Type: "chunked_from"},
		{Source: "/raw.txt", Target: "/original.pdf", Type: "derived_via"},
	}); err != nil {
		t.Fatal(err)
	}

	hops, err := Trace(s, "eng/doc/01.txt")
	if err != nil {
		t.Fatal(err)
	}
	if len(hops) != 3 {
		t.Fatalf("got %d hops, want 3", len(hops))
	}
	if !hops[2].IsOrigin || hops[2].Node != "/original.pdf" {
		t.Errorf("last hop should be origin, got %+v", hops[2])
	}
}

func TestTraceStopsOnCycle(t *testing.T) {
	s := newTestStore(t)
	if err := s.AppendEdges([]store.Edge{
		{Source: "a", Target: "b", Type: "derived_via"},
		{Source: "b", Target: "a", Type: "derived_via"},
	}); err != nil {
		t.Fatal(err)
	}

	hops, err := Trace(s, "a")
	if err != nil {
		t.Fatal(err)
	}
	if len(hops) != 3 {
		t.Fatalf("got %d hops, want 3 (a, b, a-marked-origin)", len(hops))
	}
	if !hops[2].IsOrigin {
		t.Errorf("revisit should be marked origin to stop the walk")
	}
}

func TestTraceCapsDepthAt20(t *testing.T) {
	s := newTestStore(t)
	var edges []store.Edge
	for i := 0; i < 30; i++ {
		edges = append(edges, store.Edge{Source: nodeName(i), Target: nodeName(i + 1), Type: "derived_via"})
	}
	if err := s.AppendEdges(edges); err != nil {
		t.Fatal(err)
	}

	hops, err := Trace(s, nodeName(0))
	if err != nil {
		t.Fatal(err)
	}
	if len(hops) != 20 {
		t.Fatalf("got %d hops, want capped at 20", len(hops))
	}
}

func nodeName(i int) string {
	return "n" + string(rune('a'+i))
}

func TestRelateAddsEdgesAboveThresholdAndDedups(t *testing.T) {
	s := newTestStore(t)
	domDir := filepath.Join(s.Root, "eng")
	os.MkdirAll(domDir, 0o755)
	if err := embed.Write(domDir, [][]float32{{1, 0}, {1, 0.01}, {0, 1}}, []string{"eng/a/01.txt", "eng/b/01.txt", "eng/c/01.txt"}, "m", 2, false); err != nil {
		t.Fatal(err)
	}

	added, err := Relate(s, "eng", 0.9)
	if err != nil {
		t.Fatal(err)
	}
	if added != 1 {
		t.Fatalf("got %d edges added, want 1", added)
	}

	// Running again must not duplicate the edge.
	added2, err := Relate(s, "eng", 0.9)
	if err != nil {
		t.Fatal(err)
	}
	if added2 != 0 {
		t.Errorf("expected dedup on second run, got %d new edges", added2)
	}
}

func TestRelateNoEmbeddingsIsNoOp(t *testing.T) {
	s := newTestStore(t)
	added, err := Relate(s, "", 0.8)
	if err != nil {
		t.Fatal(err)
	}
	if added != 0 {
		t.Errorf("expected no-op, got %d", added)
	}
}

func TestLinkDefaultsToReferences(t *testing.T) {
	s := newTestStore(t)
	if err := Link(s, "a", "b", ""); err != nil {
		t.Fatal(err)
	}
	edges, err := s.ReadEdges()
	if err != nil {
		t.Fatal(err)
	}
	if len(edges) != 1 || edges[0].Type != "references" {
		t.Fatalf("got %+v", edges)
	}
}
