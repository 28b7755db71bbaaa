package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

const (
	ProviderOpenAI = "openai"
	ProviderOllama = "ollama"
)

type Config struct {
	Port string

	// Auth
	APISecret string

	// OpenAI
	OpenAIAPIKey  string
	OpenAIBaseURL string

	// Embeddings
	EmbeddingProvider    string
	EmbeddingModel       string
	EmbeddingBatchSize   int
	EmbeddingConcurrency int
	OllamaHost           string

	// Study guide completion
	CompletionModel       string
	CompletionMaxTokens   int
	CompletionTemperature float64

	// Chunking
	ChunkTargetWords  int
	ChunkOverlapWords int

	// Retrieval
	DefaultTopK    int
	IndexCacheSize int

	// Files
	CoursesFile string
	CatalogPath string

	// Worker pool
	WorkerCount     int
	MaxQueueSize    int
	IndexMaxRetries int

	// Upload limits
	MaxUploadBytes int64

	// Job state
	JobTTL time.Duration

	// PDF
	PDFFallbackPdftotext bool

	LogLevel string
}

func Load() Config {
	cfg := Config{
		Port: envOr("PORT", "8000"),

		APISecret: os.Getenv("COURSEALIGN_API_SECRET"),

		OpenAIAPIKey:  os.Getenv("OPENAI_API_KEY"),
		OpenAIBaseURL: os.Getenv("OPENAI_BASE_URL"),

		EmbeddingProvider:    envOr("EMBEDDING_PROVIDER", ProviderOpenAI),
		EmbeddingModel:       envOr("EMBEDDING_MODEL", "text-embedding-3-small"),
		EmbeddingBatchSize:   envInt("EMBEDDING_BATCH_SIZE", 100),
		EmbeddingConcurrency: envInt("EMBEDDING_CONCURRENCY", 4),
		OllamaHost:           os.Getenv("OLLAMA_HOST"),

		CompletionModel:       envOr("COMPLETION_MODEL", "gpt-4o-mini"),
		CompletionMaxTokens:   envInt("COMPLETION_MAX_TOKENS", 4000),
		CompletionTemperature: envFloat("COMPLETION_TEMPERATURE", 0.3),

		ChunkTargetWords:  envInt("CHUNK_TARGET_WORDS", 750),
		ChunkOverlapWords: envInt("CHUNK_OVERLAP_WORDS", 150),

		DefaultTopK:    envInt("DEFAULT_TOP_K", 12),
		IndexCacheSize: envInt("INDEX_CACHE_SIZE", 8),

		CoursesFile: envOr("COURSES_FILE", "courses.json"),
		CatalogPath: envOr("CATALOG_PATH", "data/catalog.db"),

		WorkerCount:     envInt("WORKER_COUNT", 2),
		MaxQueueSize:    envInt("MAX_QUEUE_SIZE", 50),
		IndexMaxRetries: envInt("INDEX_MAX_RETRIES", 3),

		MaxUploadBytes: envInt64("MAX_UPLOAD_BYTES", 104857600), // 100MB

		JobTTL: envDuration("JOB_TTL", 1*time.Hour),

		PDFFallbackPdftotext: envBool("PDF_FALLBACK_PDFTOTEXT", true),

		LogLevel: envOr("LOG_LEVEL", "info"),
	}

	if cfg.EmbeddingBatchSize <= 0 {
		cfg.EmbeddingBatchSize = 100
	}
	if cfg.EmbeddingConcurrency <= 0 {
		cfg.EmbeddingConcurrency = 4
	}
	if cfg.CompletionMaxTokens <= 0 {
		cfg.CompletionMaxTokens = 4000
	}
	if cfg.DefaultTopK <= 0 {
		cfg.DefaultTopK = 12
	}
	if cfg.IndexCacheSize <= 0 {
		cfg.IndexCacheSize = 8
	}
	if cfg.WorkerCount <= 0 {
		cfg.WorkerCount = 2
	}
	if cfg.MaxQueueSize <= 0 {
		cfg.MaxQueueSize = 50
	}
	if cfg.IndexMaxRetries < 0 {
		cfg.IndexMaxRetries = 0
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = 104857600
	}
	if cfg.JobTTL <= 0 {
		cfg.JobTTL = 1 * time.Hour
	}

	return cfg
}

// Validate checks settings the service cannot start without.
func (c Config) Validate() error {
	if c.APISecret == "" {
		return fmt.Errorf("COURSEALIGN_API_SECRET is required")
	}
	if err := c.ValidateEmbedding(); err != nil {
		return err
	}
	if c.OpenAIAPIKey == "" {
		return fmt.Errorf("OPENAI_API_KEY is required for study guide generation")
	}
	return nil
}

// ValidateEmbedding checks only what indexing and retrieval need, for
// commands that never call the completion API.
func (c Config) ValidateEmbedding() error {
	if c.ChunkTargetWords <= c.ChunkOverlapWords || c.ChunkOverlapWords < 0 {
		return fmt.Errorf("CHUNK_TARGET_WORDS (%d) must exceed CHUNK_OVERLAP_WORDS (%d) >= 0",
			c.ChunkTargetWords, c.ChunkOverlapWords)
	}
	if _, err := os.Stat(c.CoursesFile); err != nil {
		return fmt.Errorf("COURSES_FILE: %w", err)
	}
	switch c.EmbeddingProvider {
	case ProviderOpenAI:
		if c.OpenAIAPIKey == "" {
			return fmt.Errorf("OPENAI_API_KEY is required when EMBEDDING_PROVIDER=openai")
		}
	case ProviderOllama:
		if c.EmbeddingModel == "" {
			return fmt.Errorf("EMBEDDING_MODEL is required when EMBEDDING_PROVIDER=ollama")
		}
	default:
		return fmt.Errorf("unknown EMBEDDING_PROVIDER %q", c.EmbeddingProvider)
	}
	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envInt64(key string, fallback int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
