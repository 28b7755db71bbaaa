package parser

import (
	"fmt"
	"io"
	"strings"

	"github.com/dgallion1/coursealign/internal/document"
)

// NewDeck assembles extracted slide pages into a deck with the combined text
// used for prompts and concept extraction.
func NewDeck(slides []document.Page) document.Deck {
	blocks := make([]string, len(slides))
	for i, s := range slides {
		blocks[i] = fmt.Sprintf("Slide %d:\n%s", s.PageNumber, s.Text)
	}
	return document.Deck{
		Slides:   slides,
		FullText: strings.Join(blocks, "\n\n"+document.SlideBreak+"\n\n"),
	}
}

// ExtractDeck picks a slide extractor by filename and builds the deck.
func ExtractDeck(r io.Reader, filename string, opts Options) (document.Deck, error) {
	ex, err := ForSlides(filename, opts)
	if err != nil {
		return document.Deck{}, err
	}
	pages, err := ex.Extract(r, filename)
	if err != nil {
		return document.Deck{}, err
	}
	return NewDeck(pages), nil
}
