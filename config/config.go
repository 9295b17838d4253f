// Package config implements the sectioned INI store persisted as the
// .config file at a ragdag store root.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Store reads and writes a sectioned INI file. It does not cache parsed
// state between calls: every Get and Set re-reads the file from disk, so
// external edits are always picked up and concurrent readers never see a
// stale in-memory copy.
type Store struct {
	path string
}

// Open returns a Store bound to the .config file at path. The file need
// not exist yet; Get will behave as if it is empty until Set or WriteDefaults
// creates it.
func Open(path string) *Store {
	return &Store{path: path}
}

// Default describes one recognized section.key and its default value.
type Default struct {
	Section string
	Key     string
	Value   string
}

// Defaults is the recognized set of section.key defaults created by init.
var Defaults = []Default{
	{"general", "chunk_strategy", "heading"},
	{"general", "chunk_size", "1000"},
	{"general", "chunk_overlap", "100"},
	{"embedding", "provider", "none"},
	{"embedding", "model", "text-embedding-3-small"},
	{"embedding", "dimensions", "1536"},
	{"llm", "provider", "none"},
	{"llm", "model", "gpt-4o-mini"},
	{"llm", "max_context", "8000"},
	{"search", "default_mode", "hybrid"},
	{"search", "top_k", "10"},
	{"search", "keyword_weight", "0.3"},
	{"search", "vector_weight", "0.7"},
	{"edges", "auto_relate", "false"},
	{"edges", "relate_threshold", "0.8"},
	{"edges", "record_queries", "false"},
}

// WriteDefaults writes every recognized default to the store's file,
// grouped by section in the order declared in Defaults. It is called once
// by init; calling it on an existing file overwrites it.
func (s *Store) WriteDefaults() error {
	order := make([]string, 0, 8)
	seen := make(map[string]bool)
	bySection := make(map[string][]Default)
	for _, d := range Defaults {
		if !seen[d.Section] {
			seen[d.Section] = true
			order = append(order, d.Section)
		}
		bySection[d.Section] = append(bySection[d.Section], d)
	}

	var b strings.Builder
	b.WriteString("# ragdag store configuration\n")
	for _, sec := range order {
		b.WriteString("[" + sec + "]\n")
		for _, d := range bySection[sec] {
			fmt.Fprintf(&b, "%s = %s\n", d.Key, d.Value)
		}
		b.WriteString("\n")
	}
	return writeAtomic(s.path, b.String())
}

// Get returns the value of the last occurrence of key within [section];
// it returns def if the section or key is missing.
//
// section and key are passed as a single "section.key" string, split on
// the first dot.
func (s *Store) Get(sectionKey, def string) string {
	section, key, ok := splitSectionKey(sectionKey)
	if !ok {
		return def
	}

	lines, err := readLines(s.path)
	if err != nil {
		return def
	}

	found := def
	current := ""
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if sec, ok := parseSectionHeader(trimmed); ok {
			current = sec
			continue
		}
		if !strings.EqualFold(current, section) {
			continue
		}
		k, v, ok := parseKeyValue(trimmed)
		if !ok {
			continue
		}
		if strings.EqualFold(k, key) {
			found = v
		}
	}
	return found
}

// GetInt is a convenience wrapper around Get that parses the result as an
// integer, returning def on any parse failure.
func (s *Store) GetInt(sectionKey string, def int) int {
	v := s.Get(sectionKey, strconv.Itoa(def))
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return def
	}
	return n
}

// GetFloat is a convenience wrapper around Get that parses the result as a
// float64, returning def on any parse failure.
func (s *Store) GetFloat(sectionKey string, def float64) float64 {
	v := s.Get(sectionKey, strconv.FormatFloat(def, 'g', -1, 64))
	f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil {
		return def
	}
	return f
}

// GetBool is a convenience wrapper around Get that parses "true"/"false"
// (case-insensitive), returning def on any other value.
func (s *Store) GetBool(sectionKey string, def bool) bool {
	v := strings.ToLower(strings.TrimSpace(s.Get(sectionKey, strconv.FormatBool(def))))
	switch v {
	case "true":
		return true
	case "false":
		return false
	default:
		return def
	}
}

// Set replaces the first matching key within [section] with value. If the
// key is absent from an existing section, it is inserted immediately before
// the next section header (or EOF). If the section itself is absent, it is
// appended at EOF along with the key. The file is rewritten atomically.
func (s *Store) Set(sectionKey, value string) error {
	section, key, ok := splitSectionKey(sectionKey)
	if !ok {
		return fmt.Errorf("config: invalid key %q, want \"section.key\"", sectionKey)
	}

	lines, err := readLines(s.path)
	if err != nil {
		lines = nil
	}

	out, wrote := setInLines(lines, section, key, value)
	if !wrote {
		out = appendSection(out, section, key, value)
	}

	return writeAtomic(s.path, strings.Join(out, "\n")+"\n")
}

// setInLines attempts to set key=value within an existing [section] block
// in lines. It returns the modified lines and whether the section was
// found (the key is always written/inserted when the section exists).
func setInLines(lines []string, section, key, value string) ([]string, bool) {
	out := make([]string, 0, len(lines)+1)
	sectionFound := false
	inTarget := false
	replaced := false
	sectionEndIdx := -1

	flushInsert := func(dst []string, atIdx int) []string {
		if atIdx < 0 {
			return dst
		}
		line := fmt.Sprintf("%s = %s", key, value)
		result := make([]string, 0, len(dst)+1)
		result = append(result, dst[:atIdx]...)
		result = append(result, line)
		result = append(result, dst[atIdx:]...)
		return result
	}

	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if sec, ok := parseSectionHeader(trimmed); ok {
			if inTarget && !replaced {
				sectionEndIdx = len(out)
			}
			inTarget = strings.EqualFold(sec, section)
			if inTarget {
				sectionFound = true
			}
			out = append(out, line)
			continue
		}
		if inTarget && !replaced {
			if k, _, ok := parseKeyValue(trimmed); ok && strings.EqualFold(k, key) {
				out = append(out, fmt.Sprintf("%s = %s", key, value))
				replaced = true
				continue
			}
		}
		out = append(out, line)
	}

	if !sectionFound {
		return out, false
	}
	if replaced {
		return out, true
	}
	if inTarget {
		// target section ran to EOF without finding the key.
		out = append(out, fmt.Sprintf("%s = %s", key, value))
		return out, true
	}
	// target section closed before EOF; insert right before the next
	// section header that followed it.
	out = flushInsert(out, sectionEndIdx)
	return out, true
}

// appendSection appends a brand new [section] block with key=value at EOF.
func appendSection(lines []string, section, key, value string) []string {
	out := lines
	if len(out) > 0 && strings.TrimSpace(out[len(out)-1]) != "" {
		out = append(out, "")
	}
	out = append(out, "["+section+"]")
	out = append(out, fmt.Sprintf("%s = %s", key, value))
	return out
}

func splitSectionKey(sectionKey string) (section, key string, ok bool) {
	idx := strings.Index(sectionKey, ".")
	if idx <= 0 || idx == len(sectionKey)-1 {
		return "", "", false
	}
	return sectionKey[:idx], sectionKey[idx+1:], true
}

// parseSectionHeader parses a trimmed line of the form "[name]". Malformed
// headers (missing closing bracket, empty name) are rejected.
func parseSectionHeader(trimmed string) (string, bool) {
	if len(trimmed) < 3 || trimmed[0] != '[' || trimmed[len(trimmed)-1] != ']' {
		return "", false
	}
	name := strings.TrimSpace(trimmed[1 : len(trimmed)-1])
	if name == "" {
		return "", false
	}
	return name, true
}

// parseKeyValue parses a trimmed "key = value" line, ignoring comments and
// malformed lines.
func parseKeyValue(trimmed string) (key, value string, ok bool) {
	if trimmed == "" || strings.HasPrefix(trimmed, "#") || strings.HasPrefix(trimmed, ";") {
		return "", "", false
	}
	idx := strings.Index(trimmed, "=")
	if idx <= 0 {
		return "", "", false
	}
	key = strings.TrimSpace(trimmed[:idx])
	value = strings.TrimSpace(trimmed[idx+1:])
	if key == "" {
		return "", "", false
	}
	return key, value, true
}

func readLines(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	text := strings.ReplaceAll(string(data), "\r\n", "\n")
	text = strings.TrimSuffix(text, "\n")
	if text == "" {
		return nil, nil
	}
	return strings.Split(text, "\n"), nil
}

// writeAtomic writes content to path via a sibling temp file and rename,
// so readers never observe a partially written config file.
func writeAtomic(path, content string) error {
	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("config: creating %s: %w", dir, err)
		}
	}
	tmp, err := os.CreateTemp(dir, ".config.tmp-*")
	if err != nil {
		return fmt.Errorf("config: creating temp file: %w", err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.WriteString(content); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("config: writing temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("config: closing temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("config: renaming into place: %w", err)
	}
	return nil
}
