package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dgallion1/coursealign/internal/api"
	"github.com/dgallion1/coursealign/internal/catalog"
	"github.com/dgallion1/coursealign/internal/chunker"
	"github.com/dgallion1/coursealign/internal/config"
	"github.com/dgallion1/coursealign/internal/embedding"
	"github.com/dgallion1/coursealign/internal/generate"
	"github.com/dgallion1/coursealign/internal/indexstore"
	"github.com/dgallion1/coursealign/internal/parser"
	"github.com/dgallion1/coursealign/internal/pipeline"
	"github.com/dgallion1/coursealign/internal/retriever"
	"github.com/joho/godotenv"
)

func main() {
	// Load .env file if it exists.
	_ = godotenv.Load()

	cfg := config.Load()

	var level slog.LevelVar
	if err := level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		level.Set(slog.LevelInfo)
	}
	log := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: &level}))

	if err := cfg.Validate(); err != nil {
		log.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	courses, err := config.LoadCourses(cfg.CoursesFile)
	if err != nil {
		log.Error("failed to load courses", "path", cfg.CoursesFile, "error", err)
		os.Exit(1)
	}

	runs, err := catalog.Open(cfg.CatalogPath)
	if err != nil {
		log.Error("failed to open catalog", "path", cfg.CatalogPath, "error", err)
		os.Exit(1)
	}
	defer runs.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize clients.
	stats := generate.NewStats(time.Hour)
	svc, err := embedding.NewService(embedding.ServiceConfig{
		Provider:      cfg.EmbeddingProvider,
		Model:         cfg.EmbeddingModel,
		OpenAIAPIKey:  cfg.OpenAIAPIKey,
		OpenAIBaseURL: cfg.OpenAIBaseURL,
		OllamaHost:    cfg.OllamaHost,
	})
	if err != nil {
		log.Error("failed to create embedding service", "error", err)
		os.Exit(1)
	}
	embedder := embedding.NewClient(svc, embedding.Options{
		BatchSize:   cfg.EmbeddingBatchSize,
		Concurrency: cfg.EmbeddingConcurrency,
		Latency:     stats.Embedding,
	})
	completer := generate.NewOpenAICompleter(generate.CompleterConfig{
		APIKey:      cfg.OpenAIAPIKey,
		BaseURL:     cfg.OpenAIBaseURL,
		Model:       cfg.CompletionModel,
		MaxTokens:   cfg.CompletionMaxTokens,
		Temperature: float32(cfg.CompletionTemperature),
	}, stats.Completion)

	// Initialize storage and retrieval.
	store := indexstore.New(courses, log)
	cache, err := indexstore.NewCache(store, cfg.IndexCacheSize)
	if err != nil {
		log.Error("failed to create index cache", "error", err)
		os.Exit(1)
	}
	rtr := retriever.New(cache, embedder, log)

	// Initialize pipeline.
	indexer := pipeline.NewIndexer(chunker.Config{
		TargetWords:  cfg.ChunkTargetWords,
		OverlapWords: cfg.ChunkOverlapWords,
	}, embedder, store, log)
	worker := pipeline.NewWorker(indexer, runs, log,
		parser.Options{FallbackPdftotext: cfg.PDFFallbackPdftotext},
		pipeline.DefaultRetryPolicy(cfg.IndexMaxRetries))
	orch := pipeline.NewOrchestrator(pipeline.OrchestratorConfig{
		Workers:   cfg.WorkerCount,
		QueueSize: cfg.MaxQueueSize,
		JobTTL:    cfg.JobTTL,
	}, worker, log)
	orch.Start(ctx)

	// Initialize HTTP server.
	srv := api.NewServer(api.Services{
		Jobs:      orch,
		Retriever: rtr,
		Guides:    pipeline.NewStudyGuide(rtr, completer, log),
		Indexes:   store,
		Courses:   courses,
		Runs:      runs,
		Stats:     stats,
		Model:     completer.Model(),
	}, log, cfg)

	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      srv,
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 300 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown. HTTP stops first so no request submits to a closed
	// queue; running index jobs are cancelled by orch.Stop.
	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Info("shutting down...")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		httpServer.Shutdown(shutdownCtx)

		orch.Stop()
	}()

	log.Info("starting coursealign",
		"port", cfg.Port,
		"courses", courses.Len(),
		"embedding_provider", cfg.EmbeddingProvider,
		"embedding_model", embedder.Model(),
		"completion_model", completer.Model(),
	)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Error("server error", "error", err)
		os.Exit(1)
	}
	<-stopped
}
