// Package api exposes course indexing, retrieval and study guide generation
// over HTTP.
package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/dgallion1/coursealign/internal/catalog"
	"github.com/dgallion1/coursealign/internal/config"
	"github.com/dgallion1/coursealign/internal/document"
	"github.com/dgallion1/coursealign/internal/generate"
	"github.com/dgallion1/coursealign/internal/pipeline"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// JobQueue accepts index jobs and reports on them. *pipeline.Orchestrator
// satisfies it.
type JobQueue interface {
	Submit(job *pipeline.Job) error
	GetJob(id string) *pipeline.Job
}

// Retriever searches a course's textbook index.
type Retriever interface {
	Retrieve(ctx context.Context, course, query string, topK int) ([]document.RetrievedChunk, error)
}

// GuideGenerator renders a study guide for a slide deck.
type GuideGenerator interface {
	Generate(ctx context.Context, course, name string, deck document.Deck, topK int) ([]byte, error)
}

// IndexChecker reports whether a course has a current index.
type IndexChecker interface {
	Exists(course string) bool
}

// RunLister returns the latest index run of a course.
type RunLister interface {
	LatestRun(ctx context.Context, course string) (catalog.Run, error)
}

// Services bundles what the handlers call into. Runs and Stats may be nil.
type Services struct {
	Jobs      JobQueue
	Retriever Retriever
	Guides    GuideGenerator
	Indexes   IndexChecker
	Courses   *config.Courses
	Runs      RunLister
	Stats     *generate.Stats
	Model     string
}

// Server is the HTTP API server for CourseAlign.
type Server struct {
	router chi.Router
	svc    Services
	log    *slog.Logger
	cfg    config.Config
}

// NewServer creates and configures the HTTP server.
func NewServer(svc Services, log *slog.Logger, cfg config.Config) *Server {
	s := &Server{
		svc: svc,
		log: log,
		cfg: cfg,
	}
	s.setupRoutes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(RequestLogger(s.log))

	// Public endpoints.
	r.Get("/health", s.handleHealth)
	r.Get("/courses", s.handleCourses)

	// Authenticated endpoints.
	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(s.cfg.APISecret, s.log))

		r.Post("/index-textbook", s.handleIndexTextbook)
		r.Get("/index-textbook/{jobID}/status", s.handleIndexStatus)
		r.Post("/retrieve", s.handleRetrieve)
		r.Post("/process", s.handleProcess)
		r.Get("/api/stats/llm", s.handleLLMStats)
	})

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}
