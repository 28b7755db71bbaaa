// Package parser extracts page-numbered text from textbook and slide files.
package parser

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/dgallion1/coursealign/internal/document"
)

// Extractor converts raw document bytes into pages in reading order. Page
// numbers are 1-based and increasing; page text may be empty.
type Extractor interface {
	Extract(r io.Reader, filename string) ([]document.Page, error)
}

// ErrUnsupportedFormat is wrapped when no extractor handles a file extension.
var ErrUnsupportedFormat = errors.New("unsupported file format")

// ExtractionError reports a document that could not be read.
type ExtractionError struct {
	Filename string
	Err      error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extract %s: %v", e.Filename, e.Err)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

func extractionErr(filename string, err error) error {
	var ee *ExtractionError
	if errors.As(err, &ee) {
		return err
	}
	return &ExtractionError{Filename: filename, Err: err}
}

// Options tunes extractor behavior.
type Options struct {
	// FallbackPdftotext retries unreadable PDFs with the pdftotext binary.
	FallbackPdftotext bool
}

// TextbookExtensions lists extensions accepted for textbook indexing.
var TextbookExtensions = map[string]bool{
	".pdf":      true,
	".docx":     true,
	".md":       true,
	".markdown": true,
	".html":     true,
	".htm":      true,
	".txt":      true,
}

// SlideExtensions lists extensions accepted for lecture slides.
var SlideExtensions = map[string]bool{
	".pptx": true,
	".pdf":  true,
}

// ForTextbook returns the extractor for a textbook file.
func ForTextbook(filename string, opts Options) (Extractor, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".pdf":
		return &PDFExtractor{FallbackPdftotext: opts.FallbackPdftotext}, nil
	case ".docx":
		return &DOCXExtractor{}, nil
	case ".md", ".markdown":
		return &MarkdownExtractor{}, nil
	case ".html", ".htm":
		return &HTMLExtractor{}, nil
	case ".txt":
		return &TextExtractor{}, nil
	default:
		return nil, &ExtractionError{Filename: filename, Err: fmt.Errorf("%w for textbooks: %q", ErrUnsupportedFormat, ext)}
	}
}

// ForSlides returns the extractor for a slide deck. PDF decks yield one page
// per slide.
func ForSlides(filename string, opts Options) (Extractor, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".pptx":
		return &PPTXExtractor{}, nil
	case ".pdf":
		return &PDFExtractor{FallbackPdftotext: opts.FallbackPdftotext}, nil
	default:
		return nil, &ExtractionError{Filename: filename, Err: fmt.Errorf("%w for slides: %q", ErrUnsupportedFormat, ext)}
	}
}

// IsTextbookExtension checks whether a textbook file can be extracted.
func IsTextbookExtension(filename string) bool {
	return TextbookExtensions[strings.ToLower(filepath.Ext(filename))]
}

// IsSlideExtension checks whether a slide file can be extracted.
func IsSlideExtension(filename string) bool {
	return SlideExtensions[strings.ToLower(filepath.Ext(filename))]
}

// pageBuilder accumulates text and cuts it into numbered pages.
type pageBuilder struct {
	pages []document.Page
	cur   strings.Builder
}

func (b *pageBuilder) addBlock(text string) {
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}
	if b.cur.Len() > 0 {
		b.cur.WriteString("\n\n")
	}
	b.cur.WriteString(text)
}

func (b *pageBuilder) breakPage() {
	b.pages = append(b.pages, document.Page{PageNumber: len(b.pages) + 1, Text: b.cur.String()})
	b.cur.Reset()
}

// finish closes the last page. A document with no page breaks is one page.
func (b *pageBuilder) finish() []document.Page {
	if b.cur.Len() > 0 || len(b.pages) == 0 {
		b.breakPage()
	}
	return b.pages
}
