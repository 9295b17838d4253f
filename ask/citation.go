package ask

import (
	"fmt"
	"regexp"
	"strings"
)

// Citation is an extracted reference from an LLM answer, matched back to
// one of the sources that fed the context.
type Citation struct {
	Text      string
	SourceRef string
	RelPath   string
	Verified  bool
}

var citationPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\[Source:\s*([^\]]+)\]`),
	regexp.MustCompile(`\[Source\s*(\d+)\]`),
	regexp.MustCompile(`(?:Section|Sec\.|§)\s*(\d+(?:\.\d+)*)`),
	regexp.MustCompile(`(?:Page|p\.)\s*(\d+)`),
}

// ExtractCitations finds citation references in an answer and tries to
// resolve each to one of sources.
func ExtractCitations(answer string, sources []Source) []Citation {
	var citations []Citation
	seen := make(map[string]bool)

	for _, pattern := range citationPatterns {
		matches := pattern.FindAllStringSubmatch(answer, -1)
		for _, match := range matches {
			if len(match) < 2 {
				continue
			}
			ref := strings.TrimSpace(match[0])
			if seen[ref] {
				continue
			}
			seen[ref] = true

			c := Citation{Text: ref, SourceRef: match[1]}
			c.RelPath, c.Verified = matchCitationToSource(match[1], sources)
			citations = append(citations, c)
		}
	}
	return citations
}

func matchCitationToSource(ref string, sources []Source) (string, bool) {
	lowerRef := strings.ToLower(ref)

	for _, s := range sources {
		if strings.Contains(strings.ToLower(s.RelPath), lowerRef) {
			return s.RelPath, true
		}
	}

	var srcNum int
	if _, err := fmt.Sscanf(ref, "%d", &srcNum); err == nil && srcNum > 0 && srcNum <= len(sources) {
		return sources[srcNum-1].RelPath, true
	}

	return "", false
}
