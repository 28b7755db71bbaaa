package parser

import (
	"fmt"
	"io"
	"unicode/utf8"

	"github.com/dgallion1/coursealign/internal/document"
)

// TextExtractor handles plain text files. Form feeds separate pages.
type TextExtractor struct{}

func (p *TextExtractor) Extract(r io.Reader, filename string) ([]document.Page, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, extractionErr(filename, err)
	}
	if !utf8.Valid(data) {
		return nil, extractionErr(filename, fmt.Errorf("text is not valid UTF-8"))
	}
	return splitFormFeeds(string(data)), nil
}
