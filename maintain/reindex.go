package maintain

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/brunobiangulo/ragdag/embed"
	"github.com/brunobiangulo/ragdag/store"
)

// Reindex deletes domain's embeddings.bin and manifest.tsv (or, when domain
// is "", those of every domain that has a record in the processed log; other
// domains are left as they are) and re-embeds every chunk belonging to a
// currently processed source document via provider. Chunk membership is
// derived from the processed log crossed with chunked_from edges, the same
// ground truth ingest itself relies on, rather than a directory walk: a
// flat-mode store root and a domain subdirectory are structurally
// indistinguishable by walking alone. It fails clearly when provider is the
// none sentinel. Callers must hold the store lock.
func Reindex(ctx context.Context, s *store.Store, domain string, provider embed.Provider) (int, error) {
	if provider == nil || provider.ModelName() == "none" {
		return 0, fmt.Errorf("maintain: reindex requires a configured embedding provider, got none")
	}

	records, err := s.ReadProcessed()
	if err != nil {
		return 0, fmt.Errorf("maintain: reading processed log: %w", err)
	}
	edges, err := s.ReadEdges()
	if err != nil {
		return 0, fmt.Errorf("maintain: reading edges: %w", err)
	}

	chunksBySource := make(map[string][]string, len(records))
	for _, e := range edges {
		if e.Type != "chunked_from" {
			continue
		}
		chunksBySource[e.Target] = append(chunksBySource[e.Target], e.Source)
	}

	byDomain := make(map[string][]string)
	for _, r := range records {
		if domain != "" && r.Domain != domain {
			continue
		}
		byDomain[r.Domain] = append(byDomain[r.Domain], chunksBySource[r.Path]...)
	}

	if domain != "" && len(byDomain) == 0 {
		byDomain[domain] = nil
	}
	if len(byDomain) == 0 {
		return 0, nil
	}

	total := 0
	for dom, relPaths := range byDomain {
		n, err := reindexDomain(ctx, s.Root, dom, relPaths, provider)
		if err != nil {
			return total, err
		}
		total += n
	}
	return total, nil
}

func reindexDomain(ctx context.Context, storeRoot, domain string, relPaths []string, provider embed.Provider) (int, error) {
	dir := filepath.Join(storeRoot, domain)

	os.Remove(filepath.Join(dir, embed.BinName))
	os.Remove(filepath.Join(dir, embed.ManifestName))

	if len(relPaths) == 0 {
		return 0, nil
	}

	texts := make([]string, 0, len(relPaths))
	kept := make([]string, 0, len(relPaths))
	for _, rel := range relPaths {
		data, err := os.ReadFile(filepath.Join(storeRoot, filepath.FromSlash(rel)))
		if err != nil {
			continue // chunk file has since been removed; skip it
		}
		texts = append(texts, string(data))
		kept = append(kept, rel)
	}
	if len(texts) == 0 {
		return 0, nil
	}

	vectors, err := provider.Embed(ctx, texts)
	if err != nil {
		return 0, fmt.Errorf("maintain: embedding chunks for domain %q: %w", domain, err)
	}

	if err := embed.Write(dir, vectors, kept, provider.ModelName(), provider.Dimensions(), false); err != nil {
		return 0, fmt.Errorf("maintain: writing embeddings for domain %q: %w", domain, err)
	}
	return len(kept), nil
}
