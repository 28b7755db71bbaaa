package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dgallion1/coursealign/internal/catalog"
	"github.com/dgallion1/coursealign/internal/document"
	"github.com/dgallion1/coursealign/internal/parser"
)

// RunRecorder keeps the history of index runs.
type RunRecorder interface {
	RecordRun(ctx context.Context, r catalog.Run) error
}

// Worker processes a single textbook index job.
type Worker struct {
	indexer    *Indexer
	runs       RunRecorder
	log        *slog.Logger
	parserOpts parser.Options
	retry      RetryPolicy
}

func NewWorker(indexer *Indexer, runs RunRecorder, log *slog.Logger, parserOpts parser.Options, policy RetryPolicy) *Worker {
	return &Worker{
		indexer:    indexer,
		runs:       runs,
		log:        log,
		parserOpts: parserOpts,
		retry:      policy,
	}
}

// Process runs extract, index and record for a job.
func (w *Worker) Process(ctx context.Context, job *Job) {
	log := w.log.With("job_id", job.ID, "course_code", job.CourseCode)
	defer job.releaseFile()

	w.record(ctx, log, job, nil)

	// Phase 1: Extract
	job.SetStatus(StatusExtracting, "extracting")
	pages, err := ExtractTextbook(job.FileData(), job.Filename, w.parserOpts)
	if err != nil {
		w.fail(ctx, log, job, "extracting", err)
		return
	}
	job.SetPages(len(pages))
	log.Info("extracted textbook", "pages", len(pages))

	// Phase 2: chunk, embed, store. Transient embedding failures rerun the
	// whole call; the previous index stays live meanwhile.
	result, err := doWithRetry(ctx, w.retry, func(ctx context.Context) (Result, error) {
		job.IncrAttempts()
		return w.indexer.IndexTextbookFunc(ctx, job.CourseCode, pages, func(status JobStatus, chunks int) {
			if chunks > 0 {
				job.SetTotalChunks(chunks)
			}
			job.SetStatus(status, string(status))
		})
	}, func(attempt int, err error) {
		log.Warn("retryable index error", "attempt", attempt, "error", err)
		job.AddError(fmt.Sprintf("attempt %d: %s", attempt, err))
	})
	if err != nil {
		w.fail(ctx, log, job, string(job.Snapshot().Status), err)
		return
	}

	job.Complete(result)
	w.record(ctx, log, job, nil)
	log.Info("index job complete", "chunks", result.ChunksIndexed, "version", result.Version)
}

func (w *Worker) fail(ctx context.Context, log *slog.Logger, job *Job, phase string, err error) {
	log.Error("index job failed", "phase", phase, "error", err)
	job.AddError(fmt.Sprintf("%s: %s", phase, err))
	job.SetStatus(StatusFailed, phase)
	w.record(ctx, log, job, err)
}

// record writes the job's current state to the run catalog. Catalog errors
// are logged and never fail the job.
func (w *Worker) record(ctx context.Context, log *slog.Logger, job *Job, jobErr error) {
	if w.runs == nil {
		return
	}
	snap := job.Snapshot()
	run := catalog.Run{
		ID:         snap.ID,
		CourseCode: snap.CourseCode,
		Filename:   snap.Filename,
		Status:     string(snap.Status),
		Pages:      snap.Progress.PagesExtracted,
		Chunks:     snap.Progress.TotalChunks,
		StartedAt:  snap.CreatedAt,
	}
	if snap.Result != nil {
		run.Version = snap.Result.Version
		run.Chunks = snap.Result.ChunksIndexed
	}
	if jobErr != nil {
		run.Error = jobErr.Error()
	}
	if snap.Status.Terminal() {
		finished := snap.UpdatedAt
		run.FinishedAt = &finished
	}

	// The job context may already be cancelled; the record still matters.
	rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := w.runs.RecordRun(rctx, run); err != nil {
		log.Warn("record index run failed", "error", err)
	}
}

// ExtractTextbook is the extraction step alone, for callers that index
// synchronously.
func ExtractTextbook(data []byte, filename string, opts parser.Options) ([]document.Page, error) {
	ex, err := parser.ForTextbook(filename, opts)
	if err != nil {
		return nil, err
	}
	pages, err := ex.Extract(bytes.NewReader(data), filename)
	if err != nil {
		return nil, err
	}
	if len(pages) == 0 {
		return nil, &parser.ExtractionError{Filename: filename, Err: errors.New("no pages extracted")}
	}
	return pages, nil
}
