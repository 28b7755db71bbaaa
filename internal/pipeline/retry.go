package pipeline

import (
	"context"
	"errors"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/dgallion1/coursealign/internal/embedding"
)

// IsRetryable checks if an error is worth rerunning the whole index call for.
// Only transient embedding service failures qualify.
func IsRetryable(err error) bool {
	var svcErr *embedding.ServiceError
	return errors.As(err, &svcErr) && svcErr.Retryable()
}

// RetryPolicy bounds reruns of a failed index call.
type RetryPolicy struct {
	MaxRetries int
	Base       time.Duration
	Cap        time.Duration
}

func DefaultRetryPolicy(maxRetries int) RetryPolicy {
	return RetryPolicy{MaxRetries: maxRetries, Base: time.Second, Cap: 30 * time.Second}
}

func (p RetryPolicy) backoff() retry.Backoff {
	base := p.Base
	if base <= 0 {
		base = time.Second
	}
	b := retry.NewExponential(base)
	if p.Cap > 0 {
		b = retry.WithCappedDuration(p.Cap, b)
	}
	b = retry.WithJitterPercent(25, b)
	return retry.WithMaxRetries(uint64(max(p.MaxRetries, 0)), b)
}

// doWithRetry runs fn, rerunning it with exponential backoff and jitter while
// it fails with a retryable error. onRetry sees every retryable failure.
func doWithRetry[T any](ctx context.Context, p RetryPolicy, fn func(context.Context) (T, error), onRetry func(attempt int, err error)) (T, error) {
	attempt := 0
	return retry.DoValue(ctx, p.backoff(), func(ctx context.Context) (T, error) {
		attempt++
		v, err := fn(ctx)
		if err != nil && IsRetryable(err) {
			if onRetry != nil {
				onRetry(attempt, err)
			}
			return v, retry.RetryableError(err)
		}
		return v, err
	})
}
