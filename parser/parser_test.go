package parser

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDetect(t *testing.T) {
	tests := []struct {
		path string
		want Kind
	}{
		{"doc.md", KindMarkdown},
		{"doc.txt", KindText},
		{"doc.pdf", KindPDF},
		{"doc.html", KindHTML},
		{"doc.docx", KindDOCX},
		{"doc.csv", KindCSV},
		{"doc.json", KindJSON},
		{"doc.xlsx", KindXLSX},
		{"doc.go", KindCode},
		{"doc.yaml", KindConfig},
		{"doc.bin", KindUnknown},
	}
	for _, tt := range tests {
		if got := Detect(tt.path); got != tt.want {
			t.Errorf("Detect(%s) = %s, want %s", tt.path, got, tt.want)
		}
	}
}

func TestParsePassthrough(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.txt")
	os.WriteFile(path, []byte("hello world"), 0o644)
	got, err := Parse(context.Background(), path, KindText)
	if err != nil {
		t.Fatal(err)
	}
	if got != "hello world" {
		t.Errorf("got %q", got)
	}
}

func TestParseMarkdownStripsFrontmatter(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.md")
	content := "---\ntitle: Hello\n---\n# Heading\n\nBody text.\n"
	os.WriteFile(path, []byte(content), 0o644)
	got, err := Parse(context.Background(), path, KindMarkdown)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(got, "title: Hello") {
		t.Errorf("frontmatter not stripped: %q", got)
	}
	if !strings.Contains(got, "# Heading") {
		t.Errorf("body missing: %q", got)
	}
}

func TestParseMarkdownNoFrontmatter(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.md")
	content := "# Heading\n\nBody.\n"
	os.WriteFile(path, []byte(content), 0o644)
	got, err := Parse(context.Background(), path, KindMarkdown)
	if err != nil {
		t.Fatal(err)
	}
	if got != content {
		t.Errorf("got %q, want unchanged %q", got, content)
	}
}

func TestParseCSV(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.csv")
	content := "name,age\n\"Ann\",30\nBob,25\n"
	os.WriteFile(path, []byte(content), 0o644)
	got, err := Parse(context.Background(), path, KindCSV)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(got, "--- Record 1 ---") || !strings.Contains(got, "name: Ann") {
		t.Errorf("unexpected CSV rendering: %q", got)
	}
}

func TestParseJSON(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.json")
	content := `{"a": {"b": 1}, "c": [1,2]}`
	os.WriteFile(path, []byte(content), 0o644)
	got, err := Parse(context.Background(), path, KindJSON)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(got, "a.b: 1") || !strings.Contains(got, "c[0]: 1") {
		t.Errorf("unexpected JSON flattening: %q", got)
	}
}

func TestParseJSONFallsBackToRawOnFailure(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.json")
	content := "not json at all"
	os.WriteFile(path, []byte(content), 0o644)
	got, err := Parse(context.Background(), path, KindJSON)
	if err != nil {
		t.Fatal(err)
	}
	if got != content {
		t.Errorf("got %q, want raw %q", got, content)
	}
}

func TestStripHTMLTags(t *testing.T) {
	html := "<html><head><style>.x{}</style></head><body><p>Hello</p><script>bad()</script><p>World</p></body></html>"
	got := stripHTMLTags(html)
	if strings.Contains(got, "bad()") || strings.Contains(got, ".x{}") {
		t.Errorf("script/style leaked into text: %q", got)
	}
	if !strings.Contains(got, "Hello") || !strings.Contains(got, "World") {
		t.Errorf("missing text content: %q", got)
	}
}
