// Package search implements the three ragdag query modes: keyword
// scoring, vector search over the embedding codec, and hybrid fusion with
// graceful degradation to keyword.
package search

import (
	"context"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/brunobiangulo/ragdag/similarity"
)

// Mode selects a search strategy.
type Mode string

const (
	Keyword Mode = "keyword"
	Vector  Mode = "vector"
	Hybrid  Mode = "hybrid"
)

// Result is one scored chunk, with content loaded lazily by the caller via
// Content() to avoid paying I/O for results that are discarded.
type Result struct {
	ChunkRelPath string
	Domain       string
	Score        float64
	storeRoot    string
}

// Content reads the chunk's text from disk on demand.
func (r Result) Content() (string, error) {
	data, err := os.ReadFile(filepath.Join(r.storeRoot, filepath.FromSlash(r.ChunkRelPath)))
	if err != nil {
		return "", fmt.Errorf("search: reading chunk %s: %w", r.ChunkRelPath, err)
	}
	return string(data), nil
}

func newResult(storeRoot, chunkRelPath string, score float64) Result {
	return Result{
		ChunkRelPath: chunkRelPath,
		Domain:       firstSegment(chunkRelPath),
		Score:        score,
		storeRoot:    storeRoot,
	}
}

func firstSegment(relPath string) string {
	idx := strings.Index(relPath, "/")
	if idx < 0 {
		return ""
	}
	return relPath[:idx]
}

// Keyword scores every *.txt chunk under domain (or the whole store) whose
// name does not begin with "_" by substring occurrence count of the
// lowercased, whitespace-tokenized query (tokens shorter than 2 runes are
// discarded).
func Keyword(storeRoot, domain, query string, topK int) ([]Result, error) {
	tokens := keywordTokens(query)
	if len(tokens) == 0 {
		return nil, nil
	}

	scanRoot := storeRoot
	if domain != "" {
		scanRoot = filepath.Join(storeRoot, domain)
	}

	var results []Result
	err := filepath.WalkDir(scanRoot, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return err
		}
		if d.IsDir() {
			if path != scanRoot && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.HasPrefix(d.Name(), "_") || !strings.HasSuffix(d.Name(), ".txt") {
			return nil
		}
		data, rerr := os.ReadFile(path)
		if rerr != nil {
			return nil
		}
		content := string(data)
		lower := strings.ToLower(content)
		total := 0
		for _, tok := range tokens {
			total += strings.Count(lower, tok)
		}
		if total == 0 {
			return nil
		}
		score := math.Floor(float64(total) * 10000 / float64(len(content)))

		rel, rerr := filepath.Rel(storeRoot, path)
		if rerr != nil {
			return nil
		}
		results = append(results, newResult(storeRoot, filepath.ToSlash(rel), score))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("search: scanning chunks: %w", err)
	}

	sort.SliceStable(results, func(i, j int) bool { return results[i].Score > results[j].Score })
	if topK > 0 && len(results) > topK {
		results = results[:topK]
	}
	return results, nil
}

func keywordTokens(query string) []string {
	fields := strings.Fields(strings.ToLower(query))
	tokens := fields[:0]
	for _, f := range fields {
		if len([]rune(f)) >= 2 {
			tokens = append(tokens, f)
		}
	}
	return tokens
}

// EmbedFunc computes the embedding vector for a single query string.
type EmbedFunc func(ctx context.Context, text string) ([]float32, error)

// Vector embeds query via embedFn and scores it against the store's
// embeddings using the similarity engine.
func Vector(ctx context.Context, storeRoot, domain, query string, topK int, embedFn EmbedFunc) ([]Result, error) {
	vec, err := embedFn(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("search: embedding query: %w", err)
	}
	scored, err := similarity.SearchVectors(storeRoot, domain, vec, nil, topK)
	if err != nil {
		return nil, err
	}
	results := make([]Result, len(scored))
	for i, s := range scored {
		results[i] = newResult(storeRoot, s.ChunkRelPath, s.Score)
	}
	return results, nil
}

// FusionWeights controls hybrid score blending.
type FusionWeights struct {
	Keyword float64
	Vector  float64
}

// Hybrid pre-filters with keyword, embeds the query, scores the candidate
// set with the similarity engine, and fuses the two scores. It degrades to
// plain keyword results when embeddingAvailable is false, or when the
// vector path errors at runtime for any reason.
func Hybrid(ctx context.Context, storeRoot, domain, query string, topK int, weights FusionWeights, embeddingAvailable bool, embedFn EmbedFunc) ([]Result, error) {
	if !embeddingAvailable {
		return Keyword(storeRoot, domain, query, topK)
	}

	kwResults, err := Keyword(storeRoot, domain, query, topK*3)
	if err != nil {
		return nil, err
	}
	if len(kwResults) == 0 {
		return kwResults, nil
	}

	fused, err := fuseWithVector(ctx, storeRoot, domain, query, topK, weights, embedFn, kwResults)
	if err != nil {
		// any runtime error on the vector path falls back to keyword.
		return capResults(kwResults, topK), nil
	}
	return fused, nil
}

func fuseWithVector(ctx context.Context, storeRoot, domain, query string, topK int, weights FusionWeights, embedFn EmbedFunc, kwResults []Result) ([]Result, error) {
	vec, err := embedFn(ctx, query)
	if err != nil {
		return nil, err
	}

	candidates := make([]string, len(kwResults))
	kwScore := make(map[string]float64, len(kwResults))
	for i, r := range kwResults {
		candidates[i] = r.ChunkRelPath
		kwScore[r.ChunkRelPath] = r.Score
	}

	vecResults, err := similarity.SearchVectors(storeRoot, domain, vec, candidates, len(candidates))
	if err != nil {
		return nil, err
	}
	vecScore := make(map[string]float64, len(vecResults))
	for _, r := range vecResults {
		vecScore[r.ChunkRelPath] = r.Score
	}

	maxKw := maxScore(kwScore)
	fused := make([]Result, 0, len(candidates))
	for _, path := range candidates {
		normKw := 0.0
		if maxKw > 0 {
			normKw = kwScore[path] / maxKw
		}
		score := weights.Keyword*normKw + weights.Vector*vecScore[path]
		fused = append(fused, newResult(storeRoot, path, score))
	}
	sort.SliceStable(fused, func(i, j int) bool { return fused[i].Score > fused[j].Score })
	return capResults(fused, topK), nil
}

func maxScore(m map[string]float64) float64 {
	max := 0.0
	for _, v := range m {
		if v > max {
			max = v
		}
	}
	return max
}

func capResults(results []Result, topK int) []Result {
	if topK > 0 && len(results) > topK {
		return results[:topK]
	}
	return results
}
