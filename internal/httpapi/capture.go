package httpapi

import (
	"log"
	"net/http"
	"strings"

	"github.com/mindsphere/mindsphere/internal/store"
)

type saveMemoryRequest struct {
	Content    string `json:"content"`
	Category   string `json:"category"`
	Importance int    `json:"importance"`
}

type saveSnippetRequest struct {
	Content string `json:"content"`
}

func (s *Server) handleSaveMemory(w http.ResponseWriter, r *http.Request) {
	uid := userID(r)
	if uid == "" {
		respondError(w, http.StatusUnauthorized, "missing_user", "X-User-ID header is required")
		return
	}

	var req saveMemoryRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	req.Content = strings.TrimSpace(req.Content)
	if req.Content == "" {
		respondError(w, http.StatusBadRequest, "invalid_request", "content is required")
		return
	}

	if err := s.store.SaveMemory(r.Context(), store.MemoryRecord{
		UserID:     uid,
		Content:    req.Content,
		Category:   strings.TrimSpace(req.Category),
		Importance: req.Importance,
		Embedding:  s.embed(r, req.Content),
	}); err != nil {
		respondError(w, http.StatusBadGateway, "storage_failed", err.Error())
		return
	}
	respondJSON(w, http.StatusCreated, map[string]any{"status": "saved"})
}

func (s *Server) handleSaveSnippet(w http.ResponseWriter, r *http.Request) {
	uid := userID(r)
	if uid == "" {
		respondError(w, http.StatusUnauthorized, "missing_user", "X-User-ID header is required")
		return
	}

	var req saveSnippetRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	req.Content = strings.TrimSpace(req.Content)
	if req.Content == "" {
		respondError(w, http.StatusBadRequest, "invalid_request", "content is required")
		return
	}

	if err := s.store.SaveSnippet(r.Context(), store.SnippetRecord{
		UserID:    uid,
		Content:   req.Content,
		Embedding: s.embed(r, req.Content),
	}); err != nil {
		respondError(w, http.StatusBadGateway, "storage_failed", err.Error())
		return
	}
	respondJSON(w, http.StatusCreated, map[string]any{"status": "saved"})
}

// embed computes the content embedding. Embedding failure is tolerated:
// the row is stored without a vector and simply never surfaces in
// similarity search.
func (s *Server) embed(r *http.Request, content string) []float32 {
	if s.embedder == nil {
		return nil
	}
	vec, err := s.embedder.Embed(r.Context(), content)
	if err != nil {
		log.Printf("httpapi: embedding failed, storing without vector: %v", err)
		return nil
	}
	return vec
}
