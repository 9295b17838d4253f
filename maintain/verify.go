package maintain

import (
	"fmt"
	"os"

	"github.com/brunobiangulo/ragdag/embed"
	"github.com/brunobiangulo/ragdag/store"
)

// Report summarizes a Verify pass.
type Report struct {
	ManifestMismatches []string // domain dirs whose header count != manifest rows, or corrupt magic
	OrphanEdges        int      // edge rows whose chunk-shaped source no longer exists
	StaleRecords       int      // processed records whose source file no longer exists
	MetaMissing        bool     // .meta absent; a warning, not fatal, for stores predating it
}

// Issues reports whether Verify found anything worth surfacing.
func (r Report) Issues() bool {
	return len(r.ManifestMismatches) > 0 || r.OrphanEdges > 0 || r.StaleRecords > 0 || r.MetaMissing
}

// Verify scans the store for the invariants documented for the on-disk
// format: every embeddings.bin must match its manifest, every edge's
// chunk-shaped source must exist as a file, and every processed record's
// source file must still be present.
func Verify(s *store.Store) (Report, error) {
	var report Report

	if _, err := os.Stat(s.MetaPath()); os.IsNotExist(err) {
		report.MetaMissing = true
	}

	dirs, err := domainDirs(s.Root)
	if err != nil {
		return Report{}, fmt.Errorf("maintain: listing domains: %w", err)
	}
	for _, dir := range dirs {
		if !hasEmbeddings(dir) {
			continue
		}
		hdr, _, err := embed.Read(dir)
		if err != nil {
			report.ManifestMismatches = append(report.ManifestMismatches, dir)
			continue
		}
		manifest, err := embed.LoadManifest(dir)
		if err != nil || len(manifest) != int(hdr.Count) {
			report.ManifestMismatches = append(report.ManifestMismatches, dir)
		}
	}

	edges, err := s.ReadEdges()
	if err != nil {
		return Report{}, fmt.Errorf("maintain: reading edges: %w", err)
	}
	for _, e := range edges {
		if isChunkNode(e.Source) && !chunkExists(s.Root, e.Source) {
			report.OrphanEdges++
		}
	}

	records, err := s.ReadProcessed()
	if err != nil {
		return Report{}, fmt.Errorf("maintain: reading processed log: %w", err)
	}
	for _, r := range records {
		if !sourceFileExists(r.Path) {
			report.StaleRecords++
		}
	}

	return report, nil
}
