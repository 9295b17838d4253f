package maintain

import (
	"fmt"

	"github.com/brunobiangulo/ragdag/store"
)

// GcReport reports how many rows Gc removed from each log.
type GcReport struct {
	EdgesRemoved     int
	RecordsRemoved   int
}

// Gc rewrites the edge log dropping orphans (as Repair does) and rewrites
// the processed log dropping records whose source file no longer exists.
// Callers must hold the store lock.
func Gc(s *store.Store) (GcReport, error) {
	edgesRemoved, err := Repair(s)
	if err != nil {
		return GcReport{}, err
	}

	records, err := s.ReadProcessed()
	if err != nil {
		return GcReport{}, fmt.Errorf("maintain: reading processed log: %w", err)
	}

	kept := make([]store.ProcessedRecord, 0, len(records))
	removed := 0
	for _, r := range records {
		if !sourceFileExists(r.Path) {
			removed++
			continue
		}
		kept = append(kept, r)
	}

	if removed > 0 {
		if err := s.RewriteProcessed(kept); err != nil {
			return GcReport{}, fmt.Errorf("maintain: rewriting processed log: %w", err)
		}
	}

	return GcReport{EdgesRemoved: edgesRemoved, RecordsRemoved: removed}, nil
}
