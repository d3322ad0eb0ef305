package store

import (
	"context"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/mindsphere/mindsphere/internal/personalization"
)

// InMemoryStore is a simple in-process store for local/dev use and
// tests. Similarity search runs cosine similarity over stored
// embeddings, matching the Postgres query semantics.
type InMemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]Session
	memories map[string][]MemoryRecord
	snippets map[string][]SnippetRecord
	prefs    map[string]personalization.Preferences
	names    map[string]string
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		sessions: make(map[string]Session),
		memories: make(map[string][]MemoryRecord),
		snippets: make(map[string][]SnippetRecord),
		prefs:    make(map[string]personalization.Preferences),
		names:    make(map[string]string),
	}
}

func (s *InMemoryStore) CreateSession(_ context.Context, sess Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sess.CreatedAt.IsZero() {
		sess.CreatedAt = time.Now().UTC()
	}
	s.sessions[sess.ID] = sess
	return nil
}

func (s *InMemoryStore) GetSession(_ context.Context, id string) (Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[id]
	if !ok {
		return Session{}, ErrNotFound
	}
	return sess, nil
}

func (s *InMemoryStore) SetScript(_ context.Context, id, script string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok {
		return ErrNotFound
	}
	sess.Script = script
	s.sessions[id] = sess
	return nil
}

func (s *InMemoryStore) SetAudio(_ context.Context, id, audioURL string, durationSec int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok {
		return ErrNotFound
	}
	if sess.Script == "" {
		return ErrScriptNotSet
	}
	sess.AudioURL = audioURL
	sess.DurationSec = durationSec
	s.sessions[id] = sess
	return nil
}

func (s *InMemoryStore) ListSessions(_ context.Context, userID string) ([]Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Session
	for _, sess := range s.sessions {
		if sess.UserID == userID {
			out = append(out, sess)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *InMemoryStore) SaveMemory(_ context.Context, rec MemoryRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if rec.Importance <= 0 {
		rec.Importance = 1
	}
	s.memories[rec.UserID] = append(s.memories[rec.UserID], rec)
	return nil
}

func (s *InMemoryStore) SaveSnippet(_ context.Context, rec SnippetRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec.Content = clipSnippet(rec.Content)
	s.snippets[rec.UserID] = append(s.snippets[rec.UserID], rec)
	return nil
}

func (s *InMemoryStore) SearchMemories(_ context.Context, userID string, query []float32, limit int, threshold float64) ([]personalization.Memory, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []personalization.Memory
	for _, rec := range s.memories[userID] {
		sim := cosineSimilarity(query, rec.Embedding)
		if sim > threshold {
			out = append(out, personalization.Memory{
				Content:    rec.Content,
				Category:   rec.Category,
				Importance: rec.Importance,
				Similarity: sim,
			})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Similarity > out[j].Similarity })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *InMemoryStore) SearchSnippets(_ context.Context, userID string, query []float32, limit int, threshold float64) ([]personalization.Snippet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []personalization.Snippet
	for _, rec := range s.snippets[userID] {
		sim := cosineSimilarity(query, rec.Embedding)
		if sim > threshold {
			out = append(out, personalization.Snippet{Content: rec.Content, Similarity: sim})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Similarity > out[j].Similarity })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *InMemoryStore) Preferences(_ context.Context, userID string) (personalization.Preferences, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.prefs[userID]
	return p, ok, nil
}

func (s *InMemoryStore) UserName(_ context.Context, userID string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.names[userID], nil
}

// SetPreferences seeds preference rows; used by local runs and tests.
func (s *InMemoryStore) SetPreferences(userID string, p personalization.Preferences) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prefs[userID] = p
}

// SetUserName seeds the profile name; used by local runs and tests.
func (s *InMemoryStore) SetUserName(userID, name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.names[userID] = name
}

func (s *InMemoryStore) Close() error { return nil }

func cosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
