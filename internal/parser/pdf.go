package parser

import (
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	"github.com/dgallion1/coursealign/internal/document"
	pdflib "github.com/ledongthuc/pdf"
)

// PDFExtractor returns one page per PDF page, keeping page numbers even for
// pages with no text. It tries the Go library first, then optionally falls
// back to pdftotext.
type PDFExtractor struct {
	FallbackPdftotext bool
}

func (p *PDFExtractor) Extract(r io.Reader, filename string) ([]document.Page, error) {
	// ledongthuc/pdf requires a ReadSeeker+size, so we write to a temp file.
	tmp, err := os.CreateTemp("", "coursealign-pdf-*.pdf")
	if err != nil {
		return nil, fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		return nil, fmt.Errorf("write temp file: %w", err)
	}
	tmp.Close()

	pages, err := extractPDFPages(tmpPath)
	if err != nil && p.FallbackPdftotext {
		pages, err = extractPdftotext(tmpPath)
	}
	if err != nil {
		return nil, extractionErr(filename, fmt.Errorf("extract pdf text: %w", err))
	}
	return pages, nil
}

func extractPDFPages(path string) (pages []document.Page, err error) {
	// The library panics on some malformed cross-reference tables.
	defer func() {
		if r := recover(); r != nil {
			pages, err = nil, fmt.Errorf("pdf reader panic: %v", r)
		}
	}()

	f, reader, err := pdflib.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	numPages := reader.NumPage()
	pages = make([]document.Page, 0, numPages)
	for i := 1; i <= numPages; i++ {
		page := reader.Page(i)
		var text string
		if !page.V.IsNull() {
			if t, err := page.GetPlainText(nil); err == nil {
				text = strings.TrimSpace(t)
			}
		}
		pages = append(pages, document.Page{PageNumber: i, Text: text})
	}
	return pages, nil
}

func extractPdftotext(path string) ([]document.Page, error) {
	cmd := exec.Command("pdftotext", "-layout", path, "-")
	out, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("pdftotext: %w", err)
	}
	return splitFormFeeds(string(out)), nil
}

// splitFormFeeds turns form-feed separated text into pages. A trailing form
// feed does not start an extra page.
func splitFormFeeds(text string) []document.Page {
	text = strings.TrimSuffix(text, "\f")
	parts := strings.Split(text, "\f")
	pages := make([]document.Page, len(parts))
	for i, part := range parts {
		pages[i] = document.Page{PageNumber: i + 1, Text: strings.TrimSpace(part)}
	}
	return pages
}
