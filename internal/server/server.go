package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/mkealey/salience/internal/graph"
	"github.com/mkealey/salience/internal/store"
)

// Server is the salience HTTP API server. Results come from the database;
// derivation graphs come from the in-memory graph store of the latest run.
type Server struct {
	db      *store.DB
	graphs  *graph.Store
	router  chi.Router
	version string
	started time.Time
}

// New creates a new Server with the given database, graph store, and
// version string.
func New(db *store.DB, graphs *graph.Store, version string) *Server {
	s := &Server{
		db:      db,
		graphs:  graphs,
		version: version,
		started: time.Now(),
	}
	s.routes()
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Get("/loads/latest", s.handleLatestLoad)
		r.Get("/events", s.handleEvents)
		r.Get("/results", s.handleResults)
		r.Get("/results/{eventID}", s.handleResult)
		r.Get("/evaluation", s.handleEvaluation)
		r.Get("/graphs/{eventID}", s.handleGraph)
	})

	// Everything else serves the embedded UI
	r.NotFound(spaHandler())

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	dbOK := true
	if err := s.db.Ping(); err != nil {
		dbOK = false
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"status":  "ok",
		"version": s.version,
		"uptime":  time.Since(s.started).Seconds(),
		"db":      dbOK,
		"db_path": s.db.Path,
	})
}
