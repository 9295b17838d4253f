// Package similarity implements cosine scoring over embedding vectors and
// the per-store top-K vector search used by the vector and hybrid search
// modes.
package similarity

import (
	"math"
	"os"
	"path/filepath"
	"sort"

	"github.com/brunobiangulo/ragdag/embed"
)

// epsilon guards against division by a zero vector magnitude.
const epsilon = 1e-9

// Result is one scored chunk.
type Result struct {
	ChunkRelPath string
	Score        float64
}

// Cosine returns the cosine similarity between q and each row of m. Zero
// magnitude operands never produce NaN: the denominator is floored at
// epsilon.
func Cosine(q []float32, m [][]float32) []float64 {
	qNorm := magnitude(q)
	scores := make([]float64, len(m))
	for i, row := range m {
		scores[i] = cosineOne(q, row, qNorm)
	}
	return scores
}

func cosineOne(q, v []float32, qNorm float64) float64 {
	var dot float64
	n := len(q)
	if len(v) < n {
		n = len(v)
	}
	for i := 0; i < n; i++ {
		dot += float64(q[i]) * float64(v[i])
	}
	vNorm := magnitude(v)
	denom := math.Max(qNorm, epsilon) * math.Max(vNorm, epsilon)
	return dot / denom
}

func magnitude(v []float32) float64 {
	var sum float64
	for _, f := range v {
		sum += float64(f) * float64(f)
	}
	return math.Sqrt(sum)
}

// SearchVectors scores queryVector against the embeddings of domain (or
// every domain under storeRoot when domain is ""), optionally restricted
// to candidatePaths, and returns the top K results sorted by score
// descending. A store or domain with no embeddings.bin yields an empty
// result, not an error.
func SearchVectors(storeRoot, domain string, queryVector []float32, candidatePaths []string, topK int) ([]Result, error) {
	var candidateSet map[string]bool
	if len(candidatePaths) > 0 {
		candidateSet = make(map[string]bool, len(candidatePaths))
		for _, p := range candidatePaths {
			candidateSet[p] = true
		}
	}

	domains, err := domainDirs(storeRoot, domain)
	if err != nil {
		return nil, err
	}

	// Manifest rows store store-relative chunk paths (e.g. "eng/doc/01.txt"),
	// matching the node identifiers used in the edge log, so no path
	// rewriting is needed across domain boundaries.
	var results []Result
	for _, domDir := range domains {
		hdr, vectors, err := embed.Read(domDir)
		if err != nil {
			continue // missing/corrupt embeddings for this domain: skip, not an error
		}
		manifest, err := embed.LoadManifest(domDir)
		if err != nil || len(manifest) != int(hdr.Count) {
			continue
		}

		for i, chunkPath := range manifest {
			if candidateSet != nil && !candidateSet[chunkPath] {
				continue
			}
			score := cosineOne(queryVector, vectors[i], magnitude(queryVector))
			results = append(results, Result{ChunkRelPath: chunkPath, Score: score})
		}
	}

	sort.SliceStable(results, func(i, j int) bool { return results[i].Score > results[j].Score })
	if topK > 0 && len(results) > topK {
		results = results[:topK]
	}
	return results, nil
}

// domainDirs returns the directories whose embeddings.bin should be
// scanned: a single domain directory, or every top-level, non-dot
// directory under storeRoot (including the store root itself, for flat
// mode ingests) when domain is "".
func domainDirs(storeRoot, domain string) ([]string, error) {
	if domain != "" {
		return []string{filepath.Join(storeRoot, domain)}, nil
	}

	dirs := []string{storeRoot}
	entries, err := os.ReadDir(storeRoot)
	if err != nil {
		return nil, err
	}
	for _, e := range entries {
		if !e.IsDir() || e.Name()[0] == '.' {
			continue
		}
		dirs = append(dirs, filepath.Join(storeRoot, e.Name()))
	}
	return dirs, nil
}
