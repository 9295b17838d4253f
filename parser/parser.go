// Package parser detects file types and extracts their plain text content
// for chunking.
package parser

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"path/filepath"
	"strings"
)

// Kind identifies a detected file type.
type Kind string

const (
	KindMarkdown Kind = "markdown"
	KindText     Kind = "text"
	KindPDF      Kind = "pdf"
	KindHTML     Kind = "html"
	KindDOCX     Kind = "docx"
	KindCSV      Kind = "csv"
	KindJSON     Kind = "json"
	KindCode     Kind = "code"
	KindConfig   Kind = "config"
	KindXLSX     Kind = "xlsx"
	KindUnknown  Kind = "unknown"
)

// ErrParseUnavailable is returned when a document requires an external
// decoder (pdftotext, pandoc) that is not installed, and no native fallback
// succeeded.
var ErrParseUnavailable = errors.New("parser: required external decoder not available")

var codeExtensions = map[string]bool{
	".go": true, ".py": true, ".js": true, ".ts": true, ".jsx": true, ".tsx": true,
	".java": true, ".c": true, ".h": true, ".cpp": true, ".hpp": true, ".cc": true,
	".rs": true, ".rb": true, ".php": true, ".sh": true, ".bash": true, ".sql": true,
	".cs": true, ".swift": true, ".kt": true, ".scala": true, ".lua": true, ".pl": true,
}

var configExtensions = map[string]bool{
	".ini": true, ".toml": true, ".cfg": true, ".conf": true,
	".yaml": true, ".yml": true, ".env": true,
}

// Detect classifies path by its extension, falling back to a best-effort
// MIME probe when the extension is unrecognized. The MIME fallback's
// absence of a match is tolerated and yields KindUnknown.
func Detect(path string) Kind {
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".md", ".markdown":
		return KindMarkdown
	case ".txt":
		return KindText
	case ".pdf":
		return KindPDF
	case ".html", ".htm":
		return KindHTML
	case ".docx":
		return KindDOCX
	case ".csv":
		return KindCSV
	case ".json":
		return KindJSON
	case ".xlsx":
		return KindXLSX
	}
	if codeExtensions[ext] {
		return KindCode
	}
	if configExtensions[ext] {
		return KindConfig
	}

	if t := mime.TypeByExtension(ext); t != "" {
		switch {
		case strings.HasPrefix(t, "text/html"):
			return KindHTML
		case strings.HasPrefix(t, "text/"):
			return KindText
		case t == "application/json":
			return KindJSON
		case t == "application/pdf":
			return KindPDF
		}
	}
	return KindUnknown
}

// Parse extracts path's text content according to kind.
func Parse(ctx context.Context, path string, kind Kind) (string, error) {
	switch kind {
	case KindText, KindCode, KindConfig:
		return parsePassthrough(path)
	case KindMarkdown:
		return parseMarkdown(path)
	case KindCSV:
		return parseCSV(path)
	case KindJSON:
		return parseJSON(path)
	case KindXLSX:
		return parseXLSX(path)
	case KindPDF:
		return parsePDF(ctx, path)
	case KindHTML:
		return parseHTML(ctx, path)
	case KindDOCX:
		return parseDOCX(ctx, path)
	default:
		return "", fmt.Errorf("parser: unsupported file type %q", kind)
	}
}
