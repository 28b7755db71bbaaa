package embedding

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"syscall"

	"github.com/ollama/ollama/api"
	openai "github.com/sashabaranov/go-openai"
)

// ErrMalformedResponse marks a provider reply whose shape does not match the
// request: wrong vector count or inconsistent dimensions.
var ErrMalformedResponse = errors.New("malformed embedding response")

// ServiceError reports a failed embedding call for texts[Start:End].
type ServiceError struct {
	Start int
	End   int
	Err   error
}

func (e *ServiceError) Error() string {
	return fmt.Sprintf("embedding service error for texts [%d:%d]: %v", e.Start, e.End, e.Err)
}

func (e *ServiceError) Unwrap() error { return e.Err }

// Retryable reports whether the failure looks transient: rate limiting,
// provider 5xx, timeouts or dropped connections.
func (e *ServiceError) Retryable() bool {
	return IsTransient(e.Err)
}

// IsTransient classifies provider and network errors.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return retryableStatus(apiErr.HTTPStatusCode)
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return retryableStatus(reqErr.HTTPStatusCode)
	}
	var statusErr api.StatusError
	if errors.As(err, &statusErr) {
		return retryableStatus(statusErr.StatusCode)
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	return errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, io.ErrUnexpectedEOF)
}

func retryableStatus(code int) bool {
	return code == http.StatusTooManyRequests || code >= 500
}
