package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/dgallion1/coursealign/internal/docwriter"
	"github.com/dgallion1/coursealign/internal/document"
	"github.com/dgallion1/coursealign/internal/generate"
)

// maxQueryWords keeps the retrieval query inside embedding model input limits.
const maxQueryWords = 6000

// Retriever finds the textbook chunks closest to a query.
type Retriever interface {
	Retrieve(ctx context.Context, course, query string, topK int) ([]document.RetrievedChunk, error)
}

// StudyGuide turns a slide deck into a DOCX study guide grounded in the
// course's indexed textbook.
type StudyGuide struct {
	retriever Retriever
	completer generate.Completer
	log       *slog.Logger
}

func NewStudyGuide(retriever Retriever, completer generate.Completer, log *slog.Logger) *StudyGuide {
	return &StudyGuide{retriever: retriever, completer: completer, log: log}
}

// Generate retrieves chunks for the whole deck text, asks the completer for a
// guide and renders it as DOCX. name titles the document.
func (g *StudyGuide) Generate(ctx context.Context, course, name string, deck document.Deck, topK int) ([]byte, error) {
	log := g.log.With("course_code", course, "slides", name)
	start := time.Now()

	concepts := generate.KeyConcepts(deck.FullText)
	log.Info("extracted key concepts", "slides", len(deck.Slides), "concepts", len(concepts))

	chunks, err := g.retriever.Retrieve(ctx, course, retrievalQuery(deck.FullText), topK)
	if err != nil {
		return nil, err
	}
	log.Info("retrieved textbook chunks", "chunks", len(chunks))

	prompt := generate.BuildUserPrompt(course, deck.FullText, concepts, chunks)
	guide, err := g.completer.Complete(ctx, generate.SystemPrompt, prompt)
	if err != nil {
		return nil, fmt.Errorf("generate study guide: %w", err)
	}

	var buf bytes.Buffer
	if err := docwriter.Write(&buf, docwriter.Guide{Title: name, CourseCode: course, Markdown: guide}); err != nil {
		return nil, err
	}
	log.Info("study guide ready", "bytes", buf.Len(), "duration_ms", time.Since(start).Milliseconds())
	return buf.Bytes(), nil
}

// retrievalQuery is the deck text, cut to maxQueryWords words when longer.
func retrievalQuery(text string) string {
	words := strings.Fields(text)
	if len(words) <= maxQueryWords {
		return text
	}
	return strings.Join(words[:maxQueryWords], " ")
}
