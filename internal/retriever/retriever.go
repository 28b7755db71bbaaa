// Package retriever answers "which textbook passages match this text" for an
// indexed course.
package retriever

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dgallion1/coursealign/internal/document"
	"github.com/dgallion1/coursealign/internal/indexstore"
)

// DefaultTopK is the number of chunks returned when the caller has no
// preference.
const DefaultTopK = 12

// ErrInvalidTopK is returned for top_k < 1.
var ErrInvalidTopK = errors.New("top_k must be at least 1")

// Loader returns a course's current index. Both *indexstore.Store and
// *indexstore.Cache satisfy it.
type Loader interface {
	Load(ctx context.Context, course string) (*indexstore.CourseIndex, error)
}

// QueryEmbedder embeds a single query string.
type QueryEmbedder interface {
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

type Retriever struct {
	loader   Loader
	embedder QueryEmbedder
	log      *slog.Logger
}

func New(loader Loader, embedder QueryEmbedder, log *slog.Logger) *Retriever {
	return &Retriever{loader: loader, embedder: embedder, log: log}
}

// Retrieve returns up to topK chunks closest to query, nearest first. Rank is
// the 1-based position in the result and RelevanceScore the squared L2
// distance, so lower scores are better.
func (r *Retriever) Retrieve(ctx context.Context, course, query string, topK int) ([]document.RetrievedChunk, error) {
	if topK < 1 {
		return nil, ErrInvalidTopK
	}

	ci, err := r.loader.Load(ctx, course)
	if err != nil {
		return nil, err
	}

	vec, err := r.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	hits, err := ci.Index.Search(vec, min(topK, len(ci.Chunks)))
	if err != nil {
		return nil, fmt.Errorf("search course %s: %w", course, err)
	}

	out := make([]document.RetrievedChunk, 0, len(hits))
	for _, h := range hits {
		if h.Ordinal < 0 || h.Ordinal >= len(ci.Chunks) {
			r.log.Warn("dropping search hit outside chunk list",
				"course_code", course, "version", ci.Version, "ordinal", h.Ordinal, "chunks", len(ci.Chunks))
			continue
		}
		out = append(out, document.RetrievedChunk{
			Chunk:          ci.Chunks[h.Ordinal],
			RelevanceScore: h.Distance,
			Rank:           len(out) + 1,
		})
	}

	r.log.Debug("retrieved chunks", "course_code", course, "version", ci.Version, "requested", topK, "returned", len(out))
	return out, nil
}
