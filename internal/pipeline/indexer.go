package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dgallion1/coursealign/internal/chunker"
	"github.com/dgallion1/coursealign/internal/document"
	"github.com/dgallion1/coursealign/internal/vectorindex"
)

// ErrNoChunks means the extracted pages held no words to index.
var ErrNoChunks = errors.New("no extractable text to index")

// Embedder embeds chunk texts, one vector per text in input order.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// IndexSaver persists a course index and returns the new version.
type IndexSaver interface {
	Save(ctx context.Context, course string, idx vectorindex.Index, chunks []document.Chunk) (string, error)
}

// Result summarizes a completed index_textbook run.
type Result struct {
	CourseCode      string `json:"course_code"`
	PagesIndexed    int    `json:"pages_indexed"`
	ChunksIndexed   int    `json:"chunks_indexed"`
	Version         string `json:"version"`
	EstimatedTokens int    `json:"estimated_tokens"`
}

// Indexer runs chunk, embed, build and save for one textbook.
type Indexer struct {
	chunkCfg chunker.Config
	kind     string
	embedder Embedder
	store    IndexSaver
	log      *slog.Logger
}

func NewIndexer(chunkCfg chunker.Config, embedder Embedder, store IndexSaver, log *slog.Logger) *Indexer {
	return &Indexer{
		chunkCfg: chunkCfg,
		kind:     vectorindex.KindFlat,
		embedder: embedder,
		store:    store,
		log:      log,
	}
}

// PhaseFunc receives phase changes from IndexTextbookFunc.
type PhaseFunc func(status JobStatus, chunks int)

// IndexTextbook replaces the course's index with one built from pages. The
// previous index stays live until the new one is fully saved.
func (ix *Indexer) IndexTextbook(ctx context.Context, course string, pages []document.Page) (Result, error) {
	return ix.IndexTextbookFunc(ctx, course, pages, nil)
}

// IndexTextbookFunc is IndexTextbook reporting each phase to progress.
func (ix *Indexer) IndexTextbookFunc(ctx context.Context, course string, pages []document.Page, progress PhaseFunc) (Result, error) {
	if progress == nil {
		progress = func(JobStatus, int) {}
	}
	log := ix.log.With("course_code", course)
	start := time.Now()

	progress(StatusChunking, 0)
	chunks, err := chunker.Chunk(pages, ix.chunkCfg, course)
	if err != nil {
		return Result{}, err
	}
	if len(chunks) == 0 {
		return Result{}, fmt.Errorf("course %s: %w", course, ErrNoChunks)
	}
	tokens := chunker.EstimateChunkTokens(chunks)
	log.Info("chunked textbook", "pages", len(pages), "chunks", len(chunks), "estimated_tokens", tokens)

	progress(StatusEmbedding, len(chunks))
	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}
	vectors, err := ix.embedder.Embed(ctx, texts)
	if err != nil {
		return Result{}, err
	}

	progress(StatusStoring, len(chunks))
	idx, err := vectorindex.Build(ix.kind, vectors)
	if err != nil {
		return Result{}, fmt.Errorf("build index: %w", err)
	}
	version, err := ix.store.Save(ctx, course, idx, chunks)
	if err != nil {
		return Result{}, err
	}

	log.Info("indexed textbook",
		"version", version,
		"dim", idx.Dim(),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return Result{
		CourseCode:      course,
		PagesIndexed:    len(pages),
		ChunksIndexed:   len(chunks),
		Version:         version,
		EstimatedTokens: tokens,
	}, nil
}
