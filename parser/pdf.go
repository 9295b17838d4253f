package parser

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/ledongthuc/pdf"
)

// parsePDF tries native in-process extraction first, then falls back to
// invoking pdftotext by name if it's on PATH.
func parsePDF(ctx context.Context, path string) (string, error) {
	text, err := nativePDFText(path)
	if err == nil && text != "" {
		return text, nil
	}

	out, extErr := runExternal(ctx, "pdftotext", path, "-")
	if extErr != nil {
		if err != nil {
			return "", fmt.Errorf("parser: native PDF extraction failed (%v), and %w", err, extErr)
		}
		return "", extErr
	}
	return out, nil
}

// nativePDFText extracts the plain text of a PDF using ledongthuc/pdf. It
// guards against panics the library is known to raise on certain malformed
// streams, converting them into an error so callers can fall back cleanly.
func nativePDFText(path string) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("parser: pdf library panic: %v", r)
		}
	}()

	f, r, openErr := pdf.Open(path)
	if openErr != nil {
		return "", fmt.Errorf("parser: opening PDF: %w", openErr)
	}
	defer f.Close()

	reader, getErr := r.GetPlainText()
	if getErr != nil {
		return "", fmt.Errorf("parser: extracting PDF text: %w", getErr)
	}

	data, readErr := io.ReadAll(reader)
	if readErr != nil && !errors.Is(readErr, io.EOF) {
		return "", fmt.Errorf("parser: reading PDF text stream: %w", readErr)
	}
	return string(data), nil
}
