package httpapi

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/mindsphere/mindsphere/internal/lifecycle"
	"github.com/mindsphere/mindsphere/internal/store"
)

type createSessionRequest struct {
	Kind            string `json:"type"`
	Mood            string `json:"mood"`
	DurationMinutes int    `json:"duration"`
	Notes           string `json:"notes"`
}

type sessionResponse struct {
	ID              string    `json:"id"`
	UserID          string    `json:"user_id"`
	Kind            string    `json:"type"`
	Mood            string    `json:"mood"`
	DurationMinutes int       `json:"duration"`
	SessionName     string    `json:"session_name"`
	Status          string    `json:"status"`
	Script          string    `json:"script,omitempty"`
	AudioURL        string    `json:"audio_url,omitempty"`
	DurationSec     int       `json:"duration_sec,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
}

func sessionDTO(sess store.Session, includeScript bool) sessionResponse {
	out := sessionResponse{
		ID:              sess.ID,
		UserID:          sess.UserID,
		Kind:            string(sess.Kind),
		Mood:            sess.Mood,
		DurationMinutes: sess.DurationMinutes,
		SessionName:     sess.SessionName,
		Status:          sess.Status(),
		AudioURL:        sess.AudioURL,
		DurationSec:     sess.DurationSec,
		CreatedAt:       sess.CreatedAt,
	}
	if includeScript {
		out.Script = sess.Script
	}
	return out
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	uid := userID(r)
	if uid == "" {
		respondError(w, http.StatusUnauthorized, "missing_user", "X-User-ID header is required")
		return
	}

	var req createSessionRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	sess, err := s.sessions.Create(r.Context(), lifecycle.CreateRequest{
		UserID:          uid,
		Kind:            strings.TrimSpace(req.Kind),
		Mood:            strings.TrimSpace(req.Mood),
		DurationMinutes: req.DurationMinutes,
		Notes:           strings.TrimSpace(req.Notes),
	})
	if err != nil {
		respondLifecycleError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, sessionDTO(sess, false))
}

// handleStartSession is the legacy single-call path: create, script and
// audio in one request, guarded by an optional idempotency key.
func (s *Server) handleStartSession(w http.ResponseWriter, r *http.Request) {
	uid := userID(r)
	if uid == "" {
		respondError(w, http.StatusUnauthorized, "missing_user", "X-User-ID header is required")
		return
	}

	var req createSessionRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	key := strings.TrimSpace(r.Header.Get("X-Idempotency-Key"))
	sess, err := s.sessions.Start(r.Context(), lifecycle.CreateRequest{
		UserID:          uid,
		Kind:            strings.TrimSpace(req.Kind),
		Mood:            strings.TrimSpace(req.Mood),
		DurationMinutes: req.DurationMinutes,
		Notes:           strings.TrimSpace(req.Notes),
	}, key)
	if err != nil {
		respondLifecycleError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, sessionDTO(sess, true))
}

func (s *Server) handleGenerateScript(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if strings.TrimSpace(id) == "" {
		respondError(w, http.StatusBadRequest, "invalid_session_id", "missing session id")
		return
	}

	sess, err := s.sessions.GenerateScript(r.Context(), id)
	if err != nil {
		respondLifecycleError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, sessionDTO(sess, true))
}

func (s *Server) handleGenerateAudio(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if strings.TrimSpace(id) == "" {
		respondError(w, http.StatusBadRequest, "invalid_session_id", "missing session id")
		return
	}

	sess, err := s.sessions.GenerateAudio(r.Context(), id)
	if err != nil {
		respondLifecycleError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, sessionDTO(sess, true))
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if strings.TrimSpace(id) == "" {
		respondError(w, http.StatusBadRequest, "invalid_session_id", "missing session id")
		return
	}

	sess, err := s.sessions.Session(r.Context(), id)
	if err != nil {
		respondLifecycleError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, sessionDTO(sess, true))
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	uid := userID(r)
	if uid == "" {
		respondError(w, http.StatusUnauthorized, "missing_user", "X-User-ID header is required")
		return
	}

	sessions, err := s.sessions.Sessions(r.Context(), uid)
	if err != nil {
		respondLifecycleError(w, err)
		return
	}

	out := make([]sessionResponse, 0, len(sessions))
	for _, sess := range sessions {
		out = append(out, sessionDTO(sess, false))
	}
	respondJSON(w, http.StatusOK, map[string]any{"sessions": out})
}
