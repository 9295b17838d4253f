package compat

import (
	"os"
	"path/filepath"
	"testing"
)

func TestSanitize(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"lowercases", "Hello World", "helloworld"},
		{"preserves dots dashes underscores", "my-file_name.v2.txt", "my-file_name.v2.txt"},
		{"drops special chars", "foo/bar\\baz:qux", "foobarbazqux"},
		{"empty input", "", ""},
		{"all special", "!@#$%^&*()", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Sanitize(tt.input); got != tt.want {
				t.Errorf("Sanitize(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestSanitizeIdempotent(t *testing.T) {
	inputs := []string{"Hello World!", "a.b.c", "", "ALL CAPS 123", "中文Test"}
	for _, in := range inputs {
		once := Sanitize(in)
		twice := Sanitize(once)
		if once != twice {
			t.Errorf("Sanitize not idempotent for %q: %q != %q", in, once, twice)
		}
	}
}

func TestHashFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.txt")
	if err := os.WriteFile(path, []byte("hello"), 0o644); err != nil {
		t.Fatal(err)
	}
	got, err := HashFile(path)
	if err != nil {
		t.Fatal(err)
	}
	want := HashBytes([]byte("hello"))
	if got != want {
		t.Errorf("HashFile = %s, want %s", got, want)
	}
	if len(got) != 64 {
		t.Errorf("expected 64-char hex digest, got %d chars", len(got))
	}
}

func TestEstimateTokens(t *testing.T) {
	tests := []struct {
		text string
		want int
	}{
		{"", 0},
		{"one", 1},
		{"one two three four five six seven eight nine ten", 13},
	}
	for _, tt := range tests {
		if got := EstimateTokens(tt.text); got != tt.want {
			t.Errorf("EstimateTokens(%q) = %d, want %d", tt.text, got, tt.want)
		}
	}
}

func TestFindStore(t *testing.T) {
	root := t.TempDir()
	storeDir := filepath.Join(root, StoreDirName)
	if err := os.Mkdir(storeDir, 0o755); err != nil {
		t.Fatal(err)
	}
	nested := filepath.Join(root, "a", "b", "c")
	if err := os.MkdirAll(nested, 0o755); err != nil {
		t.Fatal(err)
	}

	got, err := FindStore(nested)
	if err != nil {
		t.Fatal(err)
	}
	want, _ := filepath.Abs(storeDir)
	if got != want {
		t.Errorf("FindStore = %s, want %s", got, want)
	}
}

func TestFindStoreNotFound(t *testing.T) {
	root := t.TempDir()
	if _, err := FindStore(root); err != ErrStoreNotFound {
		t.Errorf("expected ErrStoreNotFound, got %v", err)
	}
}

func TestNowISOFormat(t *testing.T) {
	ts := NowISO()
	if len(ts) != len("2006-01-02T15:04:05Z") {
		t.Errorf("unexpected ISO timestamp length: %q", ts)
	}
	if ts[len(ts)-1] != 'Z' {
		t.Errorf("expected UTC Z suffix, got %q", ts)
	}
}
