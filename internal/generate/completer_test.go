package generate

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func chatServer(t *testing.T, content string, gotReq *map[string]any) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			http.NotFound(w, r)
			return
		}
		if gotReq != nil {
			if err := json.NewDecoder(r.Body).Decode(gotReq); err != nil {
				t.Errorf("decode request: %v", err)
			}
		}
		w.Header().Set("Content-Type", "application/json")
		choices := []map[string]any{}
		if content != "" {
			choices = append(choices, map[string]any{
				"index":         0,
				"finish_reason": "stop",
				"message":       map[string]any{"role": "assistant", "content": content},
			})
		}
		json.NewEncoder(w).Encode(map[string]any{
			"id":      "chatcmpl-1",
			"object":  "chat.completion",
			"model":   "gpt-4o-mini",
			"choices": choices,
		})
	}))
}

func TestOpenAICompleterComplete(t *testing.T) {
	var req map[string]any
	srv := chatServer(t, "# Study guide", &req)
	defer srv.Close()

	latency := NewLatencyStats(time.Hour)
	c := NewOpenAICompleter(CompleterConfig{APIKey: "k", BaseURL: srv.URL + "/v1"}, latency)

	out, err := c.Complete(context.Background(), "system text", "user text")
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if out != "# Study guide" {
		t.Errorf("expected guide text, got %q", out)
	}
	if req["model"] != DefaultCompletionModel {
		t.Errorf("expected model %q, got %v", DefaultCompletionModel, req["model"])
	}
	if req["max_tokens"] != float64(DefaultMaxTokens) {
		t.Errorf("expected max_tokens %d, got %v", DefaultMaxTokens, req["max_tokens"])
	}
	msgs, _ := req["messages"].([]any)
	if len(msgs) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(msgs))
	}
	if first, _ := msgs[0].(map[string]any); first["role"] != "system" || first["content"] != "system text" {
		t.Errorf("unexpected system message %v", first)
	}
	if snap := latency.Snapshot(); snap.Count != 1 {
		t.Errorf("expected one latency sample, got %d", snap.Count)
	}
}

func TestOpenAICompleterEmptyChoices(t *testing.T) {
	srv := chatServer(t, "", nil)
	defer srv.Close()

	c := NewOpenAICompleter(CompleterConfig{APIKey: "k", BaseURL: srv.URL + "/v1"}, nil)
	_, err := c.Complete(context.Background(), "s", "u")
	if !errors.Is(err, ErrEmptyCompletion) {
		t.Fatalf("expected ErrEmptyCompletion, got %v", err)
	}
}
