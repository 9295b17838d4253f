package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestWriteDefaultsAndGet(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".config")
	s := Open(path)
	if err := s.WriteDefaults(); err != nil {
		t.Fatal(err)
	}

	for _, d := range Defaults {
		got := s.Get(d.Section+"."+d.Key, "__missing__")
		if got != d.Value {
			t.Errorf("Get(%s.%s) = %q, want %q", d.Section, d.Key, got, d.Value)
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "[general]") || !strings.Contains(string(data), "chunk_strategy = heading") {
		t.Errorf("config file missing expected contents:\n%s", data)
	}
}

func TestGetMissingSectionOrKey(t *testing.T) {
	dir := t.TempDir()
	s := Open(filepath.Join(dir, ".config"))
	if got := s.Get("nope.nope", "fallback"); got != "fallback" {
		t.Errorf("Get on nonexistent file = %q, want fallback", got)
	}
}

func TestGetLastOccurrenceWins(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".config")
	content := "[general]\nchunk_size = 100\nchunk_size = 200\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	s := Open(path)
	if got := s.Get("general.chunk_size", ""); got != "200" {
		t.Errorf("Get = %q, want 200 (last occurrence)", got)
	}
}

func TestSetReplacesFirstOccurrenceLeavingLaterDuplicate(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".config")
	content := "[general]\nchunk_size = 100\nchunk_size = 200\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	s := Open(path)
	if err := s.Set("general.chunk_size", "999"); err != nil {
		t.Fatal(err)
	}
	// The last line (200) is still the last occurrence, so Get still
	// returns 200 even though Set rewrote the first occurrence.
	if got := s.Get("general.chunk_size", ""); got != "200" {
		t.Errorf("Get after Set = %q, want 200", got)
	}
	data, _ := os.ReadFile(path)
	if !strings.Contains(string(data), "chunk_size = 999") {
		t.Errorf("expected first occurrence rewritten to 999:\n%s", data)
	}
}

func TestSetInsertsKeyIntoExistingSection(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".config")
	content := "[general]\nchunk_strategy = heading\n\n[embedding]\nprovider = none\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	s := Open(path)
	if err := s.Set("general.chunk_size", "500"); err != nil {
		t.Fatal(err)
	}
	if got := s.Get("general.chunk_size", ""); got != "500" {
		t.Errorf("Get = %q, want 500", got)
	}
	// the embedding section and its key must be untouched.
	if got := s.Get("embedding.provider", ""); got != "none" {
		t.Errorf("embedding.provider clobbered: %q", got)
	}
	data, _ := os.ReadFile(path)
	text := string(data)
	generalIdx := strings.Index(text, "[general]")
	embeddingIdx := strings.Index(text, "[embedding]")
	insertedIdx := strings.Index(text, "chunk_size = 500")
	if !(generalIdx < insertedIdx && insertedIdx < embeddingIdx) {
		t.Errorf("chunk_size was not inserted inside [general] before [embedding]:\n%s", text)
	}
}

func TestSetAppendsNewSection(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".config")
	content := "[general]\nchunk_strategy = heading\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	s := Open(path)
	if err := s.Set("search.top_k", "5"); err != nil {
		t.Fatal(err)
	}
	if got := s.Get("search.top_k", ""); got != "5" {
		t.Errorf("Get = %q, want 5", got)
	}
}

func TestCommentsAndMalformedLinesIgnored(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".config")
	content := "# comment\n; another comment\n[general]\n# chunk_size = 1\nchunk_size=42\nnotakeyvalueline\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	s := Open(path)
	if got := s.Get("general.chunk_size", ""); got != "42" {
		t.Errorf("Get = %q, want 42", got)
	}
}

func TestGetIntFloatBool(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".config")
	content := "[search]\ntop_k = 7\nkeyword_weight = 0.3\n[edges]\nauto_relate = true\n"
	os.WriteFile(path, []byte(content), 0o644)
	s := Open(path)
	if got := s.GetInt("search.top_k", 0); got != 7 {
		t.Errorf("GetInt = %d, want 7", got)
	}
	if got := s.GetFloat("search.keyword_weight", 0); got != 0.3 {
		t.Errorf("GetFloat = %v, want 0.3", got)
	}
	if got := s.GetBool("edges.auto_relate", false); got != true {
		t.Errorf("GetBool = %v, want true", got)
	}
}
