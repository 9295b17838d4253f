package parser

import (
	"context"
	"os"
	"strings"

	"golang.org/x/net/html"
)

// parseHTML tries pandoc first; on a missing tool it falls back to native
// tag-stripping using golang.org/x/net/html's tokenizer, which walks the
// DOM and concatenates text nodes while skipping <script>/<style> content.
func parseHTML(ctx context.Context, path string) (string, error) {
	if out, err := runExternal(ctx, "pandoc", path, "-t", "plain"); err == nil {
		return out, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return stripHTMLTags(string(data)), nil
}

// stripHTMLTags extracts visible text from HTML, dropping script and style
// element bodies entirely.
func stripHTMLTags(doc string) string {
	tokenizer := html.NewTokenizer(strings.NewReader(doc))
	var b strings.Builder
	skipDepth := 0

	for {
		tt := tokenizer.Next()
		switch tt {
		case html.ErrorToken:
			return strings.TrimSpace(collapseBlankLines(b.String()))
		case html.StartTagToken, html.SelfClosingTagToken:
			name, _ := tokenizer.TagName()
			tag := string(name)
			if tag == "script" || tag == "style" {
				if tt == html.StartTagToken {
					skipDepth++
				}
				continue
			}
			if isBlockTag(tag) {
				b.WriteString("\n")
			}
		case html.EndTagToken:
			name, _ := tokenizer.TagName()
			tag := string(name)
			if tag == "script" || tag == "style" {
				if skipDepth > 0 {
					skipDepth--
				}
				continue
			}
			if isBlockTag(tag) {
				b.WriteString("\n")
			}
		case html.TextToken:
			if skipDepth > 0 {
				continue
			}
			b.Write(tokenizer.Text())
		}
	}
}

func isBlockTag(tag string) bool {
	switch tag {
	case "p", "div", "br", "li", "h1", "h2", "h3", "h4", "h5", "h6", "tr", "table":
		return true
	}
	return false
}

func collapseBlankLines(s string) string {
	lines := strings.Split(s, "\n")
	var out []string
	blank := false
	for _, l := range lines {
		trimmed := strings.TrimSpace(l)
		if trimmed == "" {
			if !blank {
				out = append(out, "")
			}
			blank = true
			continue
		}
		blank = false
		out = append(out, trimmed)
	}
	return strings.Join(out, "\n")
}
