package ask

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/brunobiangulo/ragdag/llm"
	"github.com/brunobiangulo/ragdag/store"
)

type fakeLLM struct {
	content string
	err     error
	lastReq llm.ChatRequest
}

func (f *fakeLLM) Chat(ctx context.Context, req llm.ChatRequest) (*llm.ChatResponse, error) {
	f.lastReq = req
	if f.err != nil {
		return nil, f.err
	}
	return &llm.ChatResponse{Content: f.content}, nil
}
func (f *fakeLLM) Embed(ctx context.Context, texts []string) ([][]float32, error) { return nil, nil }

func newTestStoreWithChunk(t *testing.T, rel, content string) *store.Store {
	t.Helper()
	s, err := store.Init(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(s.Root, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return s
}

func TestAskWithoutLLMReturnsContextOnly(t *testing.T) {
	s := newTestStoreWithChunk(t, "eng/doc/01.txt", "widgets are assembled in three steps")

	p := &Pipeline{Store: s}
	result, err := p.Ask(context.Background(), "how are widgets assembled", Options{TopK: 5, UseLLM: false})
	if err != nil {
		t.Fatal(err)
	}
	if result.HasAnswer {
		t.Errorf("expected no answer when UseLLM is false")
	}
	if len(result.Sources) != 1 {
		t.Fatalf("got %d sources, want 1", len(result.Sources))
	}
}

func TestAskWithNoneLLMProviderSkipsAnswer(t *testing.T) {
	s := newTestStoreWithChunk(t, "eng/doc/01.txt", "widgets are assembled in three steps")
	if err := s.Config.Set("llm.provider", "none"); err != nil {
		t.Fatal(err)
	}

	p := &Pipeline{Store: s, LLM: &fakeLLM{content: "should not be called"}}
	result, err := p.Ask(context.Background(), "widgets", Options{TopK: 5, UseLLM: true})
	if err != nil {
		t.Fatal(err)
	}
	if result.HasAnswer {
		t.Errorf("llm.provider=none must skip the answer step")
	}
}

func TestAskInvokesLLMAndReturnsVerbatimAnswer(t *testing.T) {
	s := newTestStoreWithChunk(t, "eng/doc/01.txt", "widgets are assembled in three steps")
	if err := s.Config.Set("llm.provider", "custom"); err != nil {
		t.Fatal(err)
	}

	fake := &fakeLLM{content: "Widgets need three steps [Source: eng/doc/01.txt]."}
	p := &Pipeline{Store: s, LLM: fake}
	result, err := p.Ask(context.Background(), "how are widgets assembled", Options{TopK: 5, UseLLM: true})
	if err != nil {
		t.Fatal(err)
	}
	if !result.HasAnswer || result.Answer != fake.content {
		t.Fatalf("expected verbatim answer, got %+v", result)
	}
	if len(result.Citations) != 1 || result.Citations[0].RelPath != "eng/doc/01.txt" {
		t.Errorf("expected resolved citation, got %+v", result.Citations)
	}
}

func TestAskBudgetedAssemblyStopsAtMaxContext(t *testing.T) {
	s, err := store.Init(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 5; i++ {
		rel := "eng/doc/0" + string(rune('1'+i)) + ".txt"
		path := filepath.Join(s.Root, filepath.FromSlash(rel))
		os.MkdirAll(filepath.Dir(path), 0o755)
		os.WriteFile(path, []byte(repeatWord("widget ", 2000)), 0o644)
	}
	if err := s.Config.Set("llm.max_context", "50"); err != nil {
		t.Fatal(err)
	}

	p := &Pipeline{Store: s}
	result, err := p.Ask(context.Background(), "widget", Options{TopK: 5, UseLLM: false})
	if err != nil {
		t.Fatal(err)
	}
	if len(result.Sources) == 0 || len(result.Sources) == 5 {
		t.Fatalf("expected budget to stop before all chunks included, got %d", len(result.Sources))
	}
}

func TestAskRecordsQueryEdgesWhenEnabled(t *testing.T) {
	s := newTestStoreWithChunk(t, "eng/doc/01.txt", "widgets are assembled in three steps")
	if err := s.Config.Set("edges.record_queries", "true"); err != nil {
		t.Fatal(err)
	}

	p := &Pipeline{Store: s, Now: func() string { return "2026-08-01T00:00:00Z" }}
	if _, err := p.Ask(context.Background(), "widgets", Options{TopK: 5, UseLLM: false}); err != nil {
		t.Fatal(err)
	}

	edges, err := s.ReadEdges()
	if err != nil {
		t.Fatal(err)
	}
	found := false
	for _, e := range edges {
		if e.Type == "retrieved" && e.Source == "query_2026-08-01T00:00:00Z" {
			found = true
		}
	}
	if !found {
		t.Errorf("expected a retrieved edge from the synthesized query node, got %+v", edges)
	}
}

func TestAskExpandsViaRelatedEdges(t *testing.T) {
	s := newTestStoreWithChunk(t, "eng/doc/01.txt", "widget assembly steps")
	otherPath := filepath.Join(s.Root, "eng", "doc2", "01.txt")
	os.MkdirAll(filepath.Dir(otherPath), 0o755)
	os.WriteFile(otherPath, []byte("related safety notes"), 0o644)

	if err := s.AppendEdges([]store.Edge{
		{Source: "eng/doc/01.txt", Target: "eng/doc2/01.txt", Type: "related_to"},
	}); err != nil {
		t.Fatal(err)
	}

	p := &Pipeline{Store: s}
	result, err := p.Ask(context.Background(), "widget", Options{TopK: 5, UseLLM: false})
	if err != nil {
		t.Fatal(err)
	}
	var sawExpanded bool
	for _, src := range result.Sources {
		if src.RelPath == "eng/doc2/01.txt" {
			sawExpanded = true
		}
	}
	if !sawExpanded {
		t.Errorf("expected expanded chunk in sources, got %+v", result.Sources)
	}
}

func repeatWord(s string, n int) string {
	out := make([]byte, 0, len(s)*n)
	for i := 0; i < n; i++ {
		out = append(out, s...)
	}
	return string(out)
}
