// Package httpapi exposes the session lifecycle and personalization
// capture endpoints over HTTP.
package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/mindsphere/mindsphere/internal/config"
	"github.com/mindsphere/mindsphere/internal/lifecycle"
	"github.com/mindsphere/mindsphere/internal/observability"
	"github.com/mindsphere/mindsphere/internal/personalization"
	"github.com/mindsphere/mindsphere/internal/store"
)

type Server struct {
	cfg      config.Config
	sessions *lifecycle.Service
	store    store.Store
	embedder personalization.Embedder
	metrics  *observability.Metrics
}

func New(cfg config.Config, sessions *lifecycle.Service, st store.Store, embedder personalization.Embedder, metrics *observability.Metrics) *Server {
	return &Server{
		cfg:      cfg,
		sessions: sessions,
		store:    st,
		embedder: embedder,
		metrics:  metrics,
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		observability.MetricsHandler().ServeHTTP(w, r)
	})

	r.Post("/v1/session/create", s.handleCreateSession)
	r.Post("/v1/session/start", s.handleStartSession)
	r.Post("/v1/session/{id}/generate-script", s.handleGenerateScript)
	r.Post("/v1/session/{id}/generate-audio", s.handleGenerateAudio)
	r.Get("/v1/session/{id}", s.handleGetSession)
	r.Get("/v1/sessions", s.handleListSessions)

	r.Post("/v1/memories", s.handleSaveMemory)
	r.Post("/v1/snippets", s.handleSaveSnippet)

	r.Handle("/v1/audio/*", http.StripPrefix("/v1/audio/",
		http.FileServer(http.Dir(s.cfg.BlobDir))))

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}

func (s *Server) handleReady(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{"status": "ready"})
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// userID extracts the externally authenticated identity. Authentication
// itself happens upstream; an absent header is a client error here.
func userID(r *http.Request) string {
	return strings.TrimSpace(r.Header.Get("X-User-ID"))
}

var errEmptyBody = errors.New("empty body")

func decodeJSON(r *http.Request, out any) error {
	if r.Body == nil {
		return errEmptyBody
	}
	defer r.Body.Close()
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(out); err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "eof") {
			return errEmptyBody
		}
		return err
	}
	return nil
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, errorResponse{Error: message, Code: code})
}

// respondLifecycleError maps lifecycle error categories to status codes.
func respondLifecycleError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, lifecycle.ErrValidation):
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
	case errors.Is(err, lifecycle.ErrNotFound):
		respondError(w, http.StatusNotFound, "session_not_found", err.Error())
	case errors.Is(err, lifecycle.ErrPrecondition):
		respondError(w, http.StatusConflict, "precondition_failed", err.Error())
	case errors.Is(err, lifecycle.ErrTimeout):
		respondError(w, http.StatusGatewayTimeout, "synthesis_timeout", err.Error())
	case errors.Is(err, lifecycle.ErrSynthesis):
		respondError(w, http.StatusServiceUnavailable, "synthesis_failed", err.Error())
	case errors.Is(err, lifecycle.ErrGeneration):
		respondError(w, http.StatusBadGateway, "generation_failed", err.Error())
	case errors.Is(err, lifecycle.ErrStorage):
		respondError(w, http.StatusBadGateway, "storage_failed", err.Error())
	default:
		respondError(w, http.StatusInternalServerError, "internal_error", err.Error())
	}
}
