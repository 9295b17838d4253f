// Package ask implements the retrieval-augmented question answering
// pipeline: primary retrieval, one-hop graph expansion, token-budgeted
// context assembly, optional LLM invocation, and optional query recording.
package ask

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/brunobiangulo/ragdag/compat"
	"github.com/brunobiangulo/ragdag/llm"
	"github.com/brunobiangulo/ragdag/search"
	"github.com/brunobiangulo/ragdag/store"
)

// Source is one chunk that made it into the assembled context, or that
// was surfaced as a bare retrieval candidate.
type Source struct {
	RelPath   string
	Score     float64
	Content   string
	Expanded  bool // true if this source arrived via graph expansion, not primary retrieval
}

// Result is the outcome of a single Ask call.
type Result struct {
	Context    string
	Sources    []Source
	Answer     string
	HasAnswer  bool
	Confidence float64
	Citations  []Citation
}

// Pipeline bundles everything Ask needs to run against one store.
type Pipeline struct {
	Store              *store.Store
	EmbeddingAvailable bool
	EmbedFn            search.EmbedFunc
	LLM                llm.Provider
	Tokens             compat.TokenEstimator
	Now                func() string
}

// Options configures a single Ask invocation.
type Options struct {
	Domain string
	TopK   int
	UseLLM bool
}

// Ask runs the full retrieve -> expand -> assemble -> answer -> record
// pipeline for question.
func (p *Pipeline) Ask(ctx context.Context, question string, opts Options) (Result, error) {
	mode := search.Mode(p.Store.Config.Get("search.default_mode", "hybrid"))
	topK := opts.TopK
	if topK <= 0 {
		topK = p.Store.Config.GetInt("search.top_k", 10)
	}

	primary, err := p.retrieve(ctx, mode, question, opts.Domain, topK)
	if err != nil {
		return Result{}, fmt.Errorf("ask: retrieval failed: %w", err)
	}

	primaryPaths := make(map[string]bool, len(primary))
	for _, s := range primary {
		primaryPaths[s.RelPath] = true
	}

	expanded, err := p.expand(primary)
	if err != nil {
		return Result{}, fmt.Errorf("ask: expansion failed: %w", err)
	}

	working := append(append([]Source{}, primary...), expanded...)
	sort.SliceStable(working, func(i, j int) bool { return working[i].Score > working[j].Score })

	maxContext := p.Store.Config.GetInt("llm.max_context", 8000)
	context, sources, err := p.assemble(working, maxContext)
	if err != nil {
		return Result{}, fmt.Errorf("ask: assembling context: %w", err)
	}

	result := Result{Context: context, Sources: sources}

	llmProvider := p.Store.Config.Get("llm.provider", "none")
	if opts.UseLLM && llmProvider != "none" && p.LLM != nil {
		answer, err := p.answer(ctx, question, context)
		if err != nil {
			return Result{}, fmt.Errorf("ask: LLM call failed: %w", err)
		}
		result.Answer = answer
		result.HasAnswer = true
		result.Citations = ExtractCitations(answer, sources)
		result.Confidence = ComputeConfidence(answer, sources, DefaultConfidenceWeights())
	}

	if p.Store.Config.GetBool("edges.record_queries", false) {
		if err := p.record(primaryPaths); err != nil {
			return Result{}, fmt.Errorf("ask: recording query: %w", err)
		}
	}

	return result, nil
}

func (p *Pipeline) retrieve(ctx context.Context, mode search.Mode, question, domain string, topK int) ([]Source, error) {
	var results []search.Result
	var err error
	switch mode {
	case search.Keyword:
		results, err = search.Keyword(p.Store.Root, domain, question, topK)
	case search.Vector:
		results, err = search.Vector(ctx, p.Store.Root, domain, question, topK, p.EmbedFn)
	default:
		weights := search.FusionWeights{
			Keyword: p.Store.Config.GetFloat("search.keyword_weight", 0.3),
			Vector:  p.Store.Config.GetFloat("search.vector_weight", 0.7),
		}
		results, err = search.Hybrid(ctx, p.Store.Root, domain, question, topK, weights, p.EmbeddingAvailable, p.EmbedFn)
	}
	if err != nil {
		return nil, err
	}

	sources := make([]Source, len(results))
	for i, r := range results {
		content, cerr := r.Content()
		if cerr != nil {
			content = ""
		}
		sources[i] = Source{RelPath: r.ChunkRelPath, Score: r.Score, Content: content}
	}
	return sources, nil
}

// expand scans outgoing related_to/references edges from every primary
// candidate, adding unseen targets at half the originating score.
func (p *Pipeline) expand(primary []Source) ([]Source, error) {
	edges, err := p.Store.ReadEdges()
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool, len(primary))
	for _, s := range primary {
		seen[s.RelPath] = true
	}

	var expanded []Source
	for _, src := range primary {
		for _, e := range edges {
			if e.Source != src.RelPath {
				continue
			}
			if e.Type != "related_to" && e.Type != "references" {
				continue
			}
			if seen[e.Target] {
				continue
			}
			seen[e.Target] = true

			content, err := readChunk(p.Store.Root, e.Target)
			if err != nil {
				continue
			}
			expanded = append(expanded, Source{RelPath: e.Target, Score: src.Score / 2, Content: content, Expanded: true})
		}
	}
	return expanded, nil
}

func readChunk(storeRoot, relPath string) (string, error) {
	data, err := os.ReadFile(filepath.Join(storeRoot, filepath.FromSlash(relPath)))
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// assemble walks working in order, stopping once adding the next chunk
// would exceed maxContextTokens, deduplicating by relative path. The first
// chunk is always kept, even when it alone exceeds maxContextTokens.
func (p *Pipeline) assemble(working []Source, maxContextTokens int) (string, []Source, error) {
	var b strings.Builder
	used := 0
	seen := map[string]bool{}
	var kept []Source

	for _, src := range working {
		if seen[src.RelPath] {
			continue
		}
		tokens := p.estimateTokens(src.Content)
		if used+tokens > maxContextTokens && used > 0 {
			break
		}
		seen[src.RelPath] = true
		used += tokens
		kept = append(kept, src)

		fmt.Fprintf(&b, "--- Source: %s (score: %.4f) ---\n", src.RelPath, src.Score)
		b.WriteString(src.Content)
		b.WriteString("\n\n")
	}
	return b.String(), kept, nil
}

func (p *Pipeline) estimateTokens(text string) int {
	if p.Tokens != nil {
		return p.Tokens.Estimate(text)
	}
	return compat.EstimateTokens(text)
}

func (p *Pipeline) answer(ctx context.Context, question, context string) (string, error) {
	template := p.loadPromptTemplate()
	prompt := strings.NewReplacer("{context}", context, "{question}", question).Replace(template)

	model := p.Store.Config.Get("llm.model", "")
	resp, err := p.LLM.Chat(ctx, llm.ChatRequest{
		Model:    model,
		Messages: []llm.Message{{Role: "user", Content: prompt}},
	})
	if err != nil {
		return "", err
	}
	return resp.Content, nil
}

func (p *Pipeline) record(primaryPaths map[string]bool) error {
	now := compat.NowISO()
	if p.Now != nil {
		now = p.Now()
	}
	queryNode := "query_" + now

	edges := make([]store.Edge, 0, len(primaryPaths))
	for path := range primaryPaths {
		edges = append(edges, store.Edge{Source: queryNode, Target: path, Type: "retrieved", Metadata: now})
	}
	p.Store.Lock()
	defer p.Store.Unlock()
	return p.Store.AppendEdges(edges)
}
