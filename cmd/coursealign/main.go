// Command coursealign indexes textbooks and queries course indexes from the
// command line, without the HTTP server.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/dgallion1/coursealign/internal/catalog"
	"github.com/dgallion1/coursealign/internal/chunker"
	"github.com/dgallion1/coursealign/internal/config"
	"github.com/dgallion1/coursealign/internal/embedding"
	"github.com/dgallion1/coursealign/internal/indexstore"
	"github.com/dgallion1/coursealign/internal/parser"
	"github.com/dgallion1/coursealign/internal/pipeline"
	"github.com/dgallion1/coursealign/internal/retriever"
	"github.com/fatih/color"
	"github.com/joho/godotenv"
)

var (
	boldGreen = color.New(color.FgGreen, color.Bold).SprintFunc()
	boldCyan  = color.New(color.FgCyan, color.Bold).SprintFunc()
	yellow    = color.New(color.FgYellow).SprintFunc()
	red       = color.New(color.FgRed, color.Bold).SprintFunc()
)

func usage() {
	fmt.Fprintf(os.Stderr, `Usage:
  coursealign index -course CODE -file TEXTBOOK
  coursealign query -course CODE [-k N] TEXT...
  coursealign courses
`)
}

func main() {
	// Load .env file if it exists.
	_ = godotenv.Load()

	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := config.Load()
	var level slog.LevelVar
	if err := level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		level.Set(slog.LevelInfo)
	}
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: &level}))

	var err error
	switch os.Args[1] {
	case "index":
		err = runIndex(ctx, cfg, log, os.Args[2:])
	case "query":
		err = runQuery(ctx, cfg, log, os.Args[2:])
	case "courses":
		err = runCourses(ctx, cfg, log)
	case "-h", "--help", "help":
		usage()
		return
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n", os.Args[1])
		usage()
		os.Exit(2)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s %v\n", red("Error:"), err)
		os.Exit(1)
	}
}

func newEmbedder(cfg config.Config) (*embedding.Client, error) {
	svc, err := embedding.NewService(embedding.ServiceConfig{
		Provider:      cfg.EmbeddingProvider,
		Model:         cfg.EmbeddingModel,
		OpenAIAPIKey:  cfg.OpenAIAPIKey,
		OpenAIBaseURL: cfg.OpenAIBaseURL,
		OllamaHost:    cfg.OllamaHost,
	})
	if err != nil {
		return nil, err
	}
	return embedding.NewClient(svc, embedding.Options{
		BatchSize:   cfg.EmbeddingBatchSize,
		Concurrency: cfg.EmbeddingConcurrency,
	}), nil
}

func runIndex(ctx context.Context, cfg config.Config, log *slog.Logger, args []string) error {
	fs := flag.NewFlagSet("index", flag.ExitOnError)
	course := fs.String("course", "", "Course code from the courses file")
	file := fs.String("file", "", "Textbook file (pdf, docx, md, html, txt)")
	fs.Parse(args)
	if *course == "" || *file == "" {
		fs.Usage()
		return errors.New("-course and -file are required")
	}

	if err := cfg.ValidateEmbedding(); err != nil {
		return err
	}
	courses, err := config.LoadCourses(cfg.CoursesFile)
	if err != nil {
		return err
	}
	if _, err := courses.Get(*course); err != nil {
		return err
	}
	data, err := os.ReadFile(*file)
	if err != nil {
		return fmt.Errorf("read textbook: %w", err)
	}

	runs, err := catalog.Open(cfg.CatalogPath)
	if err != nil {
		return err
	}
	defer runs.Close()

	embedder, err := newEmbedder(cfg)
	if err != nil {
		return err
	}
	indexer := pipeline.NewIndexer(chunker.Config{
		TargetWords:  cfg.ChunkTargetWords,
		OverlapWords: cfg.ChunkOverlapWords,
	}, embedder, indexstore.New(courses, log), log)
	worker := pipeline.NewWorker(indexer, runs, log,
		parser.Options{FallbackPdftotext: cfg.PDFFallbackPdftotext},
		pipeline.DefaultRetryPolicy(cfg.IndexMaxRetries))

	fmt.Printf("Indexing %s for %s using %s\n", boldCyan(filepath.Base(*file)), boldCyan(*course), embedder.Model())
	start := time.Now()
	job := pipeline.NewJob(*course, filepath.Base(*file), data)
	worker.Process(ctx, job)

	snap := job.Snapshot()
	for _, e := range snap.Progress.Errors {
		fmt.Printf("  %s %s\n", yellow("retry:"), e)
	}
	if snap.Status != pipeline.StatusCompleted || snap.Result == nil {
		return fmt.Errorf("indexing failed in phase %s", snap.Phase)
	}
	res := snap.Result
	fmt.Printf("%s %d pages, %d chunks, ~%d tokens, version %s (%s)\n",
		boldGreen("✓ Indexed"), res.PagesIndexed, res.ChunksIndexed, res.EstimatedTokens, res.Version,
		time.Since(start).Round(time.Millisecond))
	return nil
}

func runQuery(ctx context.Context, cfg config.Config, log *slog.Logger, args []string) error {
	fs := flag.NewFlagSet("query", flag.ExitOnError)
	course := fs.String("course", "", "Course code from the courses file")
	k := fs.Int("k", cfg.DefaultTopK, "Number of chunks to return")
	fs.Parse(args)
	query := strings.Join(fs.Args(), " ")
	if *course == "" || strings.TrimSpace(query) == "" {
		fs.Usage()
		return errors.New("-course and query text are required")
	}

	if err := cfg.ValidateEmbedding(); err != nil {
		return err
	}
	courses, err := config.LoadCourses(cfg.CoursesFile)
	if err != nil {
		return err
	}
	if _, err := courses.Get(*course); err != nil {
		return err
	}
	embedder, err := newEmbedder(cfg)
	if err != nil {
		return err
	}

	r := retriever.New(indexstore.New(courses, log), embedder, log)
	chunks, err := r.Retrieve(ctx, *course, query, *k)
	if err != nil {
		return err
	}
	if len(chunks) == 0 {
		fmt.Println(yellow("No chunks found."))
		return nil
	}
	for _, c := range chunks {
		fmt.Printf("%s pages %s  distance %.4f\n", boldGreen(fmt.Sprintf("[%d]", c.Rank)), c.PageLabel(), c.RelevanceScore)
		fmt.Println(preview(c.Text, 60))
		fmt.Println()
	}
	return nil
}

func runCourses(ctx context.Context, cfg config.Config, log *slog.Logger) error {
	courses, err := config.LoadCourses(cfg.CoursesFile)
	if err != nil {
		return err
	}
	store := indexstore.New(courses, log)

	runs, err := catalog.Open(cfg.CatalogPath)
	if err != nil {
		return err
	}
	defer runs.Close()

	for _, c := range courses.List() {
		status := yellow("not indexed")
		if store.Exists(c.Code) {
			status = boldGreen("indexed")
		}
		fmt.Printf("%s  %s  [%s]\n", boldCyan(c.Code), c.Name, status)

		run, err := runs.LatestRun(ctx, c.Code)
		switch {
		case errors.Is(err, catalog.ErrNoRuns):
		case err != nil:
			log.Warn("failed to read last index run", "course_code", c.Code, "error", err)
		default:
			fmt.Printf("    last run: %s %s, %d pages, %d chunks, %s\n",
				run.Status, run.Filename, run.Pages, run.Chunks, run.StartedAt.Local().Format(time.DateTime))
			if run.Error != "" {
				fmt.Printf("    %s %s\n", red("error:"), run.Error)
			}
		}
	}
	fmt.Printf("%d courses\n", courses.Len())
	return nil
}

// preview returns the first n words of text.
func preview(text string, n int) string {
	words := strings.Fields(text)
	if len(words) <= n {
		return strings.Join(words, " ")
	}
	return strings.Join(words[:n], " ") + " ..."
}
