package store

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ProcessedRecord is one row of the .processed log: the absolute source
// path that was ingested, the content hash it was ingested at, the domain
// it landed in, and when.
type ProcessedRecord struct {
	Path      string
	Hash      string
	Domain    string
	Timestamp string
}

// Edge is one row of the .edges log.
type Edge struct {
	Source   string
	Target   string
	Type     string
	Metadata string
}

// ReadProcessed reads every record currently in the .processed log,
// skipping comment and blank lines.
func (s *Store) ReadProcessed() ([]ProcessedRecord, error) {
	lines, err := readNonCommentLines(s.ProcessedPath())
	if err != nil {
		return nil, err
	}
	records := make([]ProcessedRecord, 0, len(lines))
	for _, line := range lines {
		fields := strings.Split(line, "\t")
		if len(fields) < 4 {
			continue
		}
		records = append(records, ProcessedRecord{
			Path:      fields[0],
			Hash:      fields[1],
			Domain:    fields[2],
			Timestamp: fields[3],
		})
	}
	return records, nil
}

// IsProcessed reports whether path was already ingested at exactly hash.
func (s *Store) IsProcessed(path, hash string) (bool, error) {
	records, err := s.ReadProcessed()
	if err != nil {
		return false, err
	}
	for _, r := range records {
		if r.Path == path && r.Hash == hash {
			return true, nil
		}
	}
	return false, nil
}

// UpsertProcessed removes any prior record for rec.Path and appends rec,
// rewriting the log atomically. Callers must hold the store lock.
func (s *Store) UpsertProcessed(rec ProcessedRecord) error {
	records, err := s.ReadProcessed()
	if err != nil {
		return err
	}
	filtered := records[:0]
	for _, r := range records {
		if r.Path != rec.Path {
			filtered = append(filtered, r)
		}
	}
	filtered = append(filtered, rec)
	return s.RewriteProcessed(filtered)
}

// RewriteProcessed replaces the entire .processed log with records.
func (s *Store) RewriteProcessed(records []ProcessedRecord) error {
	var b strings.Builder
	b.WriteString(processedHeader)
	for _, r := range records {
		fmt.Fprintf(&b, "%s\t%s\t%s\t%s\n", r.Path, r.Hash, r.Domain, r.Timestamp)
	}
	return writeAtomic(s.ProcessedPath(), []byte(b.String()))
}

// ReadEdges reads every edge currently in the .edges log.
func (s *Store) ReadEdges() ([]Edge, error) {
	lines, err := readNonCommentLines(s.EdgesPath())
	if err != nil {
		return nil, err
	}
	edges := make([]Edge, 0, len(lines))
	for _, line := range lines {
		fields := strings.SplitN(line, "\t", 4)
		if len(fields) < 3 {
			continue
		}
		e := Edge{Source: fields[0], Target: fields[1], Type: fields[2]}
		if len(fields) == 4 {
			e.Metadata = fields[3]
		}
		edges = append(edges, e)
	}
	return edges, nil
}

// AppendEdges appends edges to the end of the log without touching
// existing rows. Callers must hold the store lock.
func (s *Store) AppendEdges(edges []Edge) error {
	if len(edges) == 0 {
		return nil
	}
	f, err := os.OpenFile(s.EdgesPath(), os.O_APPEND|os.O_WRONLY|os.O_CREATE, 0o644)
	if err != nil {
		return fmt.Errorf("store: opening edge log: %w", err)
	}
	defer f.Close()
	w := bufio.NewWriter(f)
	for _, e := range edges {
		if _, err := fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", e.Source, e.Target, e.Type, e.Metadata); err != nil {
			return fmt.Errorf("store: writing edge: %w", err)
		}
	}
	return w.Flush()
}

// ReplaceChunkedFromEdges removes every existing chunked_from edge whose
// Target equals sourceNode and appends replacements, rewriting the log
// atomically. Used by ingest when a document is re-chunked. Callers must
// hold the store lock.
func (s *Store) ReplaceChunkedFromEdges(sourceNode string, replacements []Edge) error {
	edges, err := s.ReadEdges()
	if err != nil {
		return err
	}
	filtered := edges[:0]
	for _, e := range edges {
		if e.Target == sourceNode && e.Type == "chunked_from" {
			continue
		}
		filtered = append(filtered, e)
	}
	filtered = append(filtered, replacements...)
	return s.RewriteEdges(filtered)
}

// RewriteEdges replaces the entire .edges log with edges.
func (s *Store) RewriteEdges(edges []Edge) error {
	var b strings.Builder
	b.WriteString(edgesHeader)
	for _, e := range edges {
		fmt.Fprintf(&b, "%s\t%s\t%s\t%s\n", e.Source, e.Target, e.Type, e.Metadata)
	}
	return writeAtomic(s.EdgesPath(), []byte(b.String()))
}

func readNonCommentLines(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("store: reading %s: %w", path, err)
	}
	var out []string
	for _, line := range strings.Split(string(data), "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}
		out = append(out, line)
	}
	return out, nil
}

func writeAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return fmt.Errorf("store: creating temp file: %w", err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("store: writing temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("store: closing temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("store: renaming temp file into place: %w", err)
	}
	return nil
}
