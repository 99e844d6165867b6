package api

import (
	"log/slog"
	"net/http"

	"github.com/dgallion1/stepdeck/internal/config"
	"github.com/dgallion1/stepdeck/internal/hub"
	"github.com/dgallion1/stepdeck/internal/pipeline"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Server is the HTTP server for a deck: built files, the sync socket and the
// rebuild API.
type Server struct {
	router       chi.Router
	orchestrator *pipeline.Orchestrator
	hub          *hub.Hub
	log          *slog.Logger
	cfg          config.Config
}

// NewServer creates and configures the HTTP server.
func NewServer(orch *pipeline.Orchestrator, h *hub.Hub, log *slog.Logger, cfg config.Config) *Server {
	s := &Server{
		orchestrator: orch,
		hub:          h,
		log:          log,
		cfg:          cfg,
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
	r.Get(s.cfg.SyncPath, s.hub.ServeHTTP)
	r.Get("/api/stats/sync", s.handleSyncStats)
	r.Get("/api/stats/builds", s.handleBuildStats)

	// Authenticated endpoints.
	if s.cfg.APIKey != "" {
		r.Group(func(r chi.Router) {
			r.Use(AuthMiddleware(s.cfg.APIKey, s.log))

			r.Post("/api/rebuild", s.handleRebuild)
			r.Get("/api/rebuild/{jobID}", s.handleRebuildStatus)
		})
	}

	// Everything else is the built deck.
	r.Handle("/*", noCache(http.FileServer(http.Dir(s.cfg.OutputDir))))

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}
