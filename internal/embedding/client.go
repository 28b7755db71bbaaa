package embedding

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"
)

const (
	DefaultBatchSize   = 100
	DefaultConcurrency = 4
)

// LatencyRecorder receives the wall time of each provider call.
type LatencyRecorder interface {
	Record(durationMs int64)
}

type Options struct {
	BatchSize   int // Texts per provider call.
	Concurrency int // Provider calls in flight.
	Latency     LatencyRecorder
}

// Client splits embedding work into batches and fans them out to a Service.
// It never retries; ServiceError.Retryable tells callers whether to.
type Client struct {
	svc  Service
	opts Options
}

func NewClient(svc Service, opts Options) *Client {
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultBatchSize
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = DefaultConcurrency
	}
	return &Client{svc: svc, opts: opts}
}

// Model returns the provider's model name.
func (c *Client) Model() string { return c.svc.Model() }

// Embed returns one vector per text with out[i] belonging to texts[i]. Any
// batch failure fails the whole call; no partial result is returned.
func (c *Client) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	out := make([][]float32, len(texts))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.opts.Concurrency)

	for start := 0; start < len(texts); start += c.opts.BatchSize {
		end := min(start+c.opts.BatchSize, len(texts))
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return &ServiceError{Start: start, End: end, Err: err}
			}
			vecs, err := c.embedBatch(gctx, texts[start:end])
			if err != nil {
				return &ServiceError{Start: start, End: end, Err: err}
			}
			copy(out[start:end], vecs)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	dim := len(out[0])
	for i, v := range out {
		if len(v) != dim {
			return nil, &ServiceError{
				Start: i,
				End:   i + 1,
				Err:   fmt.Errorf("%w: vector %d has dimension %d, expected %d", ErrMalformedResponse, i, len(v), dim),
			}
		}
	}
	return out, nil
}

// EmbedQuery embeds a single text.
func (c *Client) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vecs, err := c.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

func (c *Client) embedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	began := time.Now()
	vecs, err := c.svc.EmbedBatch(ctx, texts)
	if c.opts.Latency != nil {
		c.opts.Latency.Record(time.Since(began).Milliseconds())
	}
	if err != nil {
		return nil, err
	}

	if len(vecs) != len(texts) {
		return nil, fmt.Errorf("%w: got %d vectors for %d texts", ErrMalformedResponse, len(vecs), len(texts))
	}
	for i, v := range vecs {
		if len(v) == 0 {
			return nil, fmt.Errorf("%w: empty vector at batch position %d", ErrMalformedResponse, i)
		}
	}
	return vecs, nil
}
