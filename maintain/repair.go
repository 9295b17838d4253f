package maintain

import (
	"fmt"

	"github.com/brunobiangulo/ragdag/store"
)

// Repair rewrites the edge log omitting rows whose chunk-shaped source no
// longer exists. Non-chunk-shaped sources (absolute source paths,
// synthetic query nodes) are never verifiable this way and are always
// preserved. It returns the number of rows removed. Callers must hold the
// store lock.
func Repair(s *store.Store) (int, error) {
	edges, err := s.ReadEdges()
	if err != nil {
		return 0, fmt.Errorf("maintain: reading edges: %w", err)
	}

	kept := make([]store.Edge, 0, len(edges))
	removed := 0
	for _, e := range edges {
		if isChunkNode(e.Source) && !chunkExists(s.Root, e.Source) {
			removed++
			continue
		}
		kept = append(kept, e)
	}

	if removed == 0 {
		return 0, nil
	}
	if err := s.RewriteEdges(kept); err != nil {
		return 0, fmt.Errorf("maintain: rewriting edges: %w", err)
	}
	return removed, nil
}
