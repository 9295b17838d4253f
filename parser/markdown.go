package parser

import (
	"log/slog"
	"strings"

	"gopkg.in/yaml.v3"
)

// parseMarkdown strips a leading YAML frontmatter block (delimited by a
// first-line "---" and the next "---") and passes the remainder through
// unchanged.
func parseMarkdown(path string) (string, error) {
	text, err := parsePassthrough(path)
	if err != nil {
		return "", err
	}

	lines := strings.Split(text, "\n")
	if len(lines) == 0 || strings.TrimSpace(lines[0]) != "---" {
		return text, nil
	}

	end := -1
	for i := 1; i < len(lines); i++ {
		if strings.TrimSpace(lines[i]) == "---" {
			end = i
			break
		}
	}
	if end < 0 {
		// no closing delimiter: not a frontmatter block after all.
		return text, nil
	}

	frontmatter := strings.Join(lines[1:end], "\n")
	var probe map[string]any
	if err := yaml.Unmarshal([]byte(frontmatter), &probe); err != nil {
		slog.Debug("parser: markdown frontmatter is not valid YAML, stripping anyway", "error", err)
	}

	rest := lines[end+1:]
	return strings.TrimPrefix(strings.Join(rest, "\n"), "\n"), nil
}
