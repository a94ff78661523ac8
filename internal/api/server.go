// Package api exposes the crawl and retrieval service over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/JakeFAU/ragsearch-crawler/internal/metrics"
	"github.com/JakeFAU/ragsearch-crawler/internal/query"
	"github.com/JakeFAU/ragsearch-crawler/internal/rag"
)

// CrawlManager is the subset of the crawl manager the API depends on.
type CrawlManager interface {
	Start(ctx context.Context, rawURL string, reschedule time.Duration) (rag.JobStatus, error)
	Stop(domain string) error
	Status(domain string) (rag.JobStatus, error)
	StatusAll() []rag.JobStatus
}

// Server routes HTTP requests to the crawl manager and query pipeline.
type Server struct {
	manager  CrawlManager
	pipeline *query.Pipeline // nil when no embedder is configured
	store    rag.VectorStore
	logger   *zap.Logger
	router   chi.Router
}

// New builds the HTTP server surface.
func New(manager CrawlManager, pipeline *query.Pipeline, store rag.VectorStore, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		manager:  manager,
		pipeline: pipeline,
		store:    store,
		logger:   logger,
	}
	s.router = s.routes()
	return s
}

// Handler returns the root http.Handler.
func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.logRequests)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Get("/healthz", s.handleHealthz)
	r.Get("/readyz", s.handleReadyz)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Post("/crawl", s.handleStartCrawl)
		r.Get("/crawl/status", s.handleAllStatus)
		r.Route("/crawl/{domain}", func(r chi.Router) {
			r.Delete("/", s.handleStopCrawl)
			r.Get("/status", s.handleCrawlStatus)
		})
		r.Get("/search", s.handleSearch)
	})
	return r
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Info("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("duration", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}

type startCrawlRequest struct {
	URL                     string  `json:"url"`
	RescheduleIntervalHours float64 `json:"reschedule_interval_hours,omitempty"`
}

func (s *Server) handleStartCrawl(w http.ResponseWriter, r *http.Request) {
	var req startCrawlRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.URL) == "" {
		s.writeError(w, http.StatusBadRequest, "url is required")
		return
	}
	if req.RescheduleIntervalHours < 0 {
		s.writeError(w, http.StatusBadRequest, "reschedule_interval_hours must be >= 0")
		return
	}
	reschedule := time.Duration(req.RescheduleIntervalHours * float64(time.Hour))

	status, err := s.manager.Start(r.Context(), req.URL, reschedule)
	if err != nil {
		switch {
		case errors.Is(err, rag.ErrAlreadyRunning):
			s.writeError(w, http.StatusConflict, err.Error())
		default:
			s.writeError(w, http.StatusBadRequest, err.Error())
		}
		return
	}
	s.writeJSON(w, http.StatusAccepted, status)
}

func (s *Server) handleStopCrawl(w http.ResponseWriter, r *http.Request) {
	domain := chi.URLParam(r, "domain")
	if err := s.manager.Stop(domain); err != nil {
		if errors.Is(err, rag.ErrNotFound) {
			s.writeError(w, http.StatusNotFound, err.Error())
			return
		}
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	status, err := s.manager.Status(domain)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, status)
}

func (s *Server) handleCrawlStatus(w http.ResponseWriter, r *http.Request) {
	domain := chi.URLParam(r, "domain")
	status, err := s.manager.Status(domain)
	if err != nil {
		if errors.Is(err, rag.ErrNotFound) {
			s.writeError(w, http.StatusNotFound, err.Error())
			return
		}
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, status)
}

func (s *Server) handleAllStatus(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]any{
		"jobs": s.manager.StatusAll(),
	})
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	if s.pipeline == nil {
		s.writeError(w, http.StatusServiceUnavailable, "retrieval is not configured")
		return
	}
	domain := strings.TrimSpace(r.URL.Query().Get("domain"))
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	if domain == "" || q == "" {
		s.writeError(w, http.StatusBadRequest, "domain and q are required")
		return
	}

	result, err := s.pipeline.Query(r.Context(), domain, q)
	if err != nil {
		s.logger.Error("query failed", zap.String("domain", domain), zap.Error(err))
		s.writeError(w, http.StatusBadGateway, "query failed")
		return
	}
	s.writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleReadyz(w http.ResponseWriter, r *http.Request) {
	if s.store != nil {
		if err := s.store.Ping(r.Context()); err != nil {
			s.writeError(w, http.StatusServiceUnavailable, "vector store unavailable")
			return
		}
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("encode response", zap.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, map[string]string{"error": msg})
}
