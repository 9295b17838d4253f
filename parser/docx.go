package parser

import (
	"archive/zip"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"strings"
)

// parseDOCX tries the native archive/zip + encoding/xml extraction of
// word/document.xml first; on failure it falls back to invoking pandoc by
// name if it's on PATH.
func parseDOCX(ctx context.Context, path string) (string, error) {
	text, err := nativeDOCXText(path)
	if err == nil {
		return text, nil
	}

	out, extErr := runExternal(ctx, "pandoc", path, "-t", "plain")
	if extErr != nil {
		return "", fmt.Errorf("parser: native DOCX extraction failed (%v), and %w", err, extErr)
	}
	return out, nil
}

func nativeDOCXText(path string) (string, error) {
	r, err := zip.OpenReader(path)
	if err != nil {
		return "", fmt.Errorf("parser: opening DOCX: %w", err)
	}
	defer r.Close()

	var docFile *zip.File
	for _, f := range r.File {
		if f.Name == "word/document.xml" {
			docFile = f
			break
		}
	}
	if docFile == nil {
		return "", fmt.Errorf("parser: word/document.xml not found in DOCX")
	}

	rc, err := docFile.Open()
	if err != nil {
		return "", fmt.Errorf("parser: opening document.xml: %w", err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return "", fmt.Errorf("parser: reading document.xml: %w", err)
	}

	return flattenDocxXML(data)
}

type docxBody struct {
	Paras  []docxPara  `xml:"p"`
	Tables []docxTable `xml:"tbl"`
}

type docxDocument struct {
	Body docxBody `xml:"body"`
}

type docxPara struct {
	Runs []docxRun `xml:"r"`
}

type docxRun struct {
	Text []docxText `xml:"t"`
}

type docxText struct {
	Content string `xml:",chardata"`
}

type docxTable struct {
	Rows []docxRow `xml:"tr"`
}

type docxRow struct {
	Cells []docxCell `xml:"tc"`
}

type docxCell struct {
	Paras []docxPara `xml:"p"`
}

// flattenDocxXML renders a document.xml body as plain text: one line per
// paragraph, tables rendered as pipe-delimited rows.
func flattenDocxXML(data []byte) (string, error) {
	var doc docxDocument
	if err := xml.Unmarshal(data, &doc); err != nil {
		return "", fmt.Errorf("parser: parsing DOCX XML: %w", err)
	}

	var b strings.Builder
	for _, para := range doc.Body.Paras {
		text := extractParaText(para)
		if text == "" {
			continue
		}
		b.WriteString(text)
		b.WriteString("\n")
	}
	for _, tbl := range doc.Body.Tables {
		for _, row := range tbl.Rows {
			cells := make([]string, 0, len(row.Cells))
			for _, cell := range row.Cells {
				var cellText strings.Builder
				for _, p := range cell.Paras {
					if cellText.Len() > 0 {
						cellText.WriteString(" ")
					}
					cellText.WriteString(extractParaText(p))
				}
				cells = append(cells, cellText.String())
			}
			b.WriteString("| " + strings.Join(cells, " | ") + " |\n")
		}
	}
	return b.String(), nil
}

func extractParaText(para docxPara) string {
	var b strings.Builder
	for _, run := range para.Runs {
		for _, t := range run.Text {
			b.WriteString(t.Content)
		}
	}
	return b.String()
}
