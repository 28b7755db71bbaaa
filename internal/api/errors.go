package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/dgallion1/coursealign/internal/chunker"
	"github.com/dgallion1/coursealign/internal/config"
	"github.com/dgallion1/coursealign/internal/embedding"
	"github.com/dgallion1/coursealign/internal/generate"
	"github.com/dgallion1/coursealign/internal/indexstore"
	"github.com/dgallion1/coursealign/internal/parser"
	"github.com/dgallion1/coursealign/internal/pipeline"
	"github.com/dgallion1/coursealign/internal/retriever"
)

// statusFor maps a domain error to its HTTP status.
func statusFor(err error) int {
	var (
		extractErr *parser.ExtractionError
		cfgErr     *chunker.ConfigError
		svcErr     *embedding.ServiceError
	)
	switch {
	case errors.As(err, &extractErr),
		errors.As(err, &cfgErr),
		errors.Is(err, config.ErrUnknownCourse),
		errors.Is(err, retriever.ErrInvalidTopK),
		errors.Is(err, pipeline.ErrNoChunks):
		return http.StatusBadRequest
	case errors.Is(err, indexstore.ErrIndexNotFound):
		return http.StatusNotFound
	case errors.As(err, &svcErr), errors.Is(err, generate.ErrEmptyCompletion):
		return http.StatusBadGateway
	case errors.Is(err, pipeline.ErrQueueFull):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// writeError logs err and answers with its mapped status.
func writeError(w http.ResponseWriter, log *slog.Logger, err error) {
	code := statusFor(err)
	if code >= http.StatusInternalServerError {
		log.Error("request failed", "status", code, "error", err)
	} else {
		log.Warn("request rejected", "status", code, "error", err)
	}
	jsonError(w, err.Error(), code)
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func sanitizeFilename(name string) string {
	// Strip path components, keep only the base name.
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	name = strings.ReplaceAll(name, "/", "_")
	name = strings.ReplaceAll(name, "..", "_")
	if name == "" || name == "." {
		name = "unnamed"
	}
	return name
}
