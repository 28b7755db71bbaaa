// Package embedding turns chunk and query text into vectors through a remote
// embedding provider.
package embedding

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/ollama/ollama/api"
	openai "github.com/sashabaranov/go-openai"
)

// DefaultOpenAIModel is used when no model is configured for OpenAI.
const DefaultOpenAIModel = string(openai.SmallEmbedding3)

// Service is a remote embedding provider. EmbedBatch returns one vector per
// input text, in input order.
type Service interface {
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Model() string
}

// ServiceConfig selects a provider. Provider is "openai" or "ollama".
type ServiceConfig struct {
	Provider      string
	Model         string
	OpenAIAPIKey  string
	OpenAIBaseURL string
	OllamaHost    string
}

// NewService builds the configured provider.
func NewService(cfg ServiceConfig) (Service, error) {
	switch cfg.Provider {
	case "", "openai":
		return NewOpenAIService(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, cfg.Model), nil
	case "ollama":
		return NewOllamaService(cfg.OllamaHost, cfg.Model)
	default:
		return nil, fmt.Errorf("unknown embedding provider %q", cfg.Provider)
	}
}

// OpenAIService calls the OpenAI embeddings endpoint, or any server that
// speaks the same API at BaseURL.
type OpenAIService struct {
	client *openai.Client
	model  string
}

func NewOpenAIService(apiKey, baseURL, model string) *OpenAIService {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	if model == "" {
		model = DefaultOpenAIModel
	}
	return &OpenAIService{
		client: openai.NewClientWithConfig(cfg),
		model:  model,
	}
}

func (s *OpenAIService) Model() string { return s.model }

func (s *OpenAIService) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	resp, err := s.client.CreateEmbeddings(ctx, openai.EmbeddingRequestStrings{
		Input: texts,
		Model: openai.EmbeddingModel(s.model),
	})
	if err != nil {
		return nil, fmt.Errorf("openai embeddings: %w", err)
	}

	// The API tags each vector with its input index; place them accordingly.
	out := make([][]float32, len(texts))
	for _, d := range resp.Data {
		if d.Index < 0 || d.Index >= len(out) || out[d.Index] != nil {
			return nil, fmt.Errorf("%w: unexpected embedding index %d", ErrMalformedResponse, d.Index)
		}
		out[d.Index] = d.Embedding
	}
	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("%w: got %d embeddings for %d inputs", ErrMalformedResponse, len(resp.Data), len(texts))
	}
	return out, nil
}

// OllamaService calls a local Ollama server's /api/embed endpoint.
type OllamaService struct {
	client *api.Client
	model  string
}

func NewOllamaService(host, model string) (*OllamaService, error) {
	if host == "" {
		host = "http://localhost:11434"
	}
	u, err := url.Parse(host)
	if err != nil {
		return nil, fmt.Errorf("invalid ollama host %q: %w", host, err)
	}
	if model == "" {
		return nil, fmt.Errorf("ollama embedding model is required")
	}
	httpClient := &http.Client{Timeout: 120 * time.Second}
	return &OllamaService{
		client: api.NewClient(u, httpClient),
		model:  model,
	}, nil
}

func (s *OllamaService) Model() string { return s.model }

func (s *OllamaService) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	resp, err := s.client.Embed(ctx, &api.EmbedRequest{
		Model: s.model,
		Input: texts,
	})
	if err != nil {
		return nil, fmt.Errorf("ollama embed: %w", err)
	}
	return resp.Embeddings, nil
}
