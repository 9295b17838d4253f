// Package chunker splits parsed document text into sequential NN.txt chunk
// files using one of four selectable strategies.
package chunker

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/brunobiangulo/ragdag/parser"
)

// Strategy selects how text is cut into chunks.
type Strategy string

const (
	Heading   Strategy = "heading"
	Paragraph Strategy = "paragraph"
	Fixed     Strategy = "fixed"
	Function  Strategy = "function"
)

// AutoSelect returns the strategy ingest should use for a detected file
// kind when the caller has not overridden it: markdown favors heading
// boundaries, code favors function/class boundaries, everything else uses
// the store's configured default.
func AutoSelect(kind parser.Kind, configuredDefault Strategy) Strategy {
	switch kind {
	case parser.KindMarkdown:
		return Heading
	case parser.KindCode:
		return Function
	default:
		return configuredDefault
	}
}

var functionBoundary = regexp.MustCompile(`^\s*(def |class |function |func |fn |pub fn |export )`)
var bashHeaderBoundary = regexp.MustCompile(`^\s*[A-Za-z_][A-Za-z0-9_]*\s*\(\)\s*\{?\s*$`)

// Chunk splits text into chunks per strategy and writes them as sequential
// NN.txt files in outDir, returning the number of files written. Empty
// (after-trim) chunks are never written and do not advance the sequence.
// An unknown strategy logs a warning and falls back to Fixed.
func Chunk(text string, outDir string, strategy Strategy, chunkSize, overlap int) (int, error) {
	var pieces []string
	switch strategy {
	case Heading:
		pieces = chunkByLines(text, chunkSize, overlap, isHeadingBoundary)
	case Paragraph:
		pieces = chunkByParagraph(text, chunkSize, overlap)
	case Fixed:
		pieces = chunkFixed(text, chunkSize, overlap)
	case Function:
		pieces = chunkByLines(text, 2*chunkSize, overlap, isFunctionBoundary)
	default:
		slog.Warn("chunker: unknown strategy, falling back to fixed", "strategy", strategy)
		pieces = chunkFixed(text, chunkSize, overlap)
	}

	var kept []string
	for _, p := range pieces {
		if strings.TrimSpace(p) != "" {
			kept = append(kept, p)
		}
	}

	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return 0, fmt.Errorf("chunker: creating %s: %w", outDir, err)
	}

	width := len(strconv.Itoa(len(kept)))
	if width < 2 {
		width = 2
	}
	format := "%0" + strconv.Itoa(width) + "d.txt"

	for i, p := range kept {
		name := fmt.Sprintf(format, i+1)
		if err := os.WriteFile(filepath.Join(outDir, name), []byte(p), 0o644); err != nil {
			return i, fmt.Errorf("chunker: writing %s: %w", name, err)
		}
	}
	return len(kept), nil
}

func isHeadingBoundary(line string) bool {
	return strings.HasPrefix(strings.TrimLeft(line, " \t"), "#")
}

func isFunctionBoundary(line string) bool {
	return functionBoundary.MatchString(line) || bashHeaderBoundary.MatchString(line)
}

// chunkByLines implements the shared "flush on boundary line or when
// buffer length reaches chunkSize" rule used by the heading and function
// strategies (the latter passing 2*chunkSize as its flush threshold).
func chunkByLines(text string, flushSize, overlap int, isBoundary func(string) bool) []string {
	lines := strings.Split(text, "\n")
	var chunks []string
	var buf strings.Builder

	flush := func() {
		chunks = append(chunks, buf.String())
		buf.Reset()
		buf.WriteString(extractOverlap(chunks[len(chunks)-1], overlap))
	}

	for _, line := range lines {
		if isBoundary(line) && buf.Len() > 0 {
			flush()
		}
		if buf.Len() > 0 {
			buf.WriteString("\n")
		}
		buf.WriteString(line)
		if buf.Len() >= flushSize {
			flush()
		}
	}
	if strings.TrimSpace(buf.String()) != "" {
		chunks = append(chunks, buf.String())
	}
	return chunks
}

// chunkFixed flushes whenever the buffer length reaches chunkSize.
func chunkFixed(text string, chunkSize, overlap int) []string {
	var chunks []string
	var buf strings.Builder

	runes := []rune(text)
	for _, r := range runes {
		buf.WriteRune(r)
		if buf.Len() >= chunkSize {
			chunks = append(chunks, buf.String())
			tail := extractOverlap(buf.String(), overlap)
			buf.Reset()
			buf.WriteString(tail)
		}
	}
	if strings.TrimSpace(buf.String()) != "" {
		chunks = append(chunks, buf.String())
	}
	return chunks
}

// chunkByParagraph accumulates blank-line-delimited paragraphs, flushing
// the buffer when adding the next paragraph would exceed chunkSize and the
// buffer is non-empty. Paragraphs within a chunk are joined by a blank
// line.
func chunkByParagraph(text string, chunkSize, overlap int) []string {
	paragraphs := splitParagraphs(text)
	var chunks []string
	var current []string
	currentLen := 0

	flush := func() {
		joined := strings.Join(current, "\n\n")
		chunks = append(chunks, joined)
		tail := extractOverlap(joined, overlap)
		current = nil
		currentLen = 0
		if tail != "" {
			current = append(current, tail)
			currentLen = len(tail)
		}
	}

	for _, para := range paragraphs {
		addLen := len(para)
		if len(current) > 0 {
			addLen += 2 // the blank-line separator
		}
		if currentLen+addLen > chunkSize && len(current) > 0 {
			flush()
			if len(current) > 0 {
				addLen = len(para) + 2
			}
		}
		current = append(current, para)
		currentLen += addLen
	}
	if len(current) > 0 {
		chunks = append(chunks, strings.Join(current, "\n\n"))
	}
	return chunks
}

func splitParagraphs(text string) []string {
	raw := strings.Split(text, "\n\n")
	out := make([]string, 0, len(raw))
	for _, p := range raw {
		if strings.TrimSpace(p) != "" {
			out = append(out, p)
		}
	}
	return out
}

// extractOverlap returns the trailing overlap characters of flushed
// content, or "" when overlap <= 0.
func extractOverlap(content string, overlap int) string {
	if overlap <= 0 {
		return ""
	}
	runes := []rune(content)
	if overlap >= len(runes) {
		return content
	}
	return string(runes[len(runes)-overlap:])
}
