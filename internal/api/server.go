package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/JakeFAU/webextract/internal/config"
	"github.com/JakeFAU/webextract/internal/crawler"
	"github.com/JakeFAU/webextract/internal/metrics"
)

// Enqueuer hands accepted jobs to the workers.
type Enqueuer interface {
	Enqueue(ctx context.Context, item crawler.QueueItem) error
}

// Answerer answers questions about a completed job.
type Answerer interface {
	Answer(ctx context.Context, job crawler.Job, question string) (string, error)
}

// Deps are the collaborators behind the handlers. Answerer may be nil.
type Deps struct {
	JobStore   crawler.JobStore
	Enqueuer   Enqueuer
	IDGen      crawler.IDGenerator
	Clock      crawler.Clock
	Answerer   Answerer
	Logger     *zap.Logger
	Version    string
	Components map[string]string
}

// Server wires HTTP handlers to the dispatcher and stores.
type Server struct {
	router chi.Router
	deps   Deps
	cfg    config.Config
	logger *zap.Logger
}

// NewServer constructs a Server with middleware and routes.
func NewServer(deps Deps, cfg config.Config) *Server {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	s := &Server{deps: deps, cfg: cfg, logger: deps.Logger}

	timeout := time.Duration(cfg.Server.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(loggingMiddleware(s.logger))
	r.Use(recoverMiddleware(s.logger))
	r.Use(metrics.Middleware)

	r.Get("/healthz", s.healthz)
	r.Get("/readyz", s.readyz)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Use(timeoutMiddleware(timeout))
		if cfg.Auth.Enabled {
			r.Use(apiKeyMiddleware(cfg.Auth.APIKey))
		}
		r.Post("/scrape", s.submitScrape)
		r.Post("/test-scrape", s.submitTestScrape)
		r.Route("/jobs", func(r chi.Router) {
			r.Get("/", s.listJobs)
			r.Route("/{job_id}", func(r chi.Router) {
				r.Get("/", s.getJob)
				r.Delete("/", s.deleteJob)
				r.Get("/export/json", s.exportJSON)
				r.Get("/export/csv", s.exportCSV)
				r.Post("/chat", s.chat)
			})
		})
	})

	s.router = r
	return s
}

// Handler returns the Router for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

type healthResponse struct {
	Status     string            `json:"status"`
	Version    string            `json:"version"`
	ActiveJobs int               `json:"active_jobs"`
	Components map[string]string `json:"components"`
}

func (s *Server) healthz(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{
		Status:     "ok",
		Version:    s.deps.Version,
		Components: s.deps.Components,
	}
	if resp.Components == nil {
		resp.Components = map[string]string{}
	}
	jobs, err := s.deps.JobStore.ListJobs(r.Context())
	if err != nil {
		s.logger.Warn("list jobs for health failed", zap.Error(err))
		resp.Status = "degraded"
	}
	for _, job := range jobs {
		if job.Status == crawler.JobStatusRunning || job.Status == crawler.JobStatusPending {
			resp.ActiveJobs++
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) readyz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		zap.L().Error("write JSON failed", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
