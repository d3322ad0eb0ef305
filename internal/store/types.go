// Package store persists sessions, long-term memories, snippets and
// user preferences, with vector similarity search over the embedded
// content. A Postgres implementation backs production and an in-memory
// implementation backs local runs and tests.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/mindsphere/mindsphere/internal/personalization"
	"github.com/mindsphere/mindsphere/internal/plan"
)

var (
	// ErrNotFound is returned when a session id does not exist.
	ErrNotFound = errors.New("session not found")
	// ErrScriptNotSet guards the lifecycle ordering: audio can only be
	// attached to a session that already has a script.
	ErrScriptNotSet = errors.New("session has no script")
)

// Session lifecycle states, derived from which fields are populated.
const (
	StatusCreated         = "created"
	StatusScriptGenerated = "script_generated"
	StatusAudioGenerated  = "audio_generated"
)

// maxSnippetLen bounds stored snippet content.
const maxSnippetLen = 500

// Session is one generation session row.
type Session struct {
	ID              string    `json:"id"`
	UserID          string    `json:"user_id"`
	Kind            plan.Kind `json:"type"`
	Mood            string    `json:"mood"`
	DurationMinutes int       `json:"duration"`
	UserNotes       string    `json:"user_notes,omitempty"`
	SessionName     string    `json:"session_name"`
	Script          string    `json:"-"`
	AudioURL        string    `json:"audio_url,omitempty"`
	DurationSec     int       `json:"duration_sec,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
}

// Status derives the lifecycle state. The state is never stored; the
// populated fields are the single source of truth.
func (s Session) Status() string {
	switch {
	case s.AudioURL != "":
		return StatusAudioGenerated
	case s.Script != "":
		return StatusScriptGenerated
	default:
		return StatusCreated
	}
}

// HasScript reports whether the script phase has completed.
func (s Session) HasScript() bool { return s.Script != "" }

// HasAudio reports whether the audio phase has completed.
func (s Session) HasAudio() bool { return s.AudioURL != "" }

// MemoryRecord is a long-term memory to persist with its embedding.
type MemoryRecord struct {
	UserID     string
	Content    string
	Category   string
	Importance int
	Embedding  []float32
}

// SnippetRecord is a short free-form thought to persist with its
// embedding.
type SnippetRecord struct {
	UserID    string
	Content   string
	Embedding []float32
}

// Store is the persistence contract for the session service. It also
// satisfies the personalization retrieval interface.
type Store interface {
	CreateSession(ctx context.Context, s Session) error
	GetSession(ctx context.Context, id string) (Session, error)
	SetScript(ctx context.Context, id, script string) error
	SetAudio(ctx context.Context, id, audioURL string, durationSec int) error
	ListSessions(ctx context.Context, userID string) ([]Session, error)

	SaveMemory(ctx context.Context, rec MemoryRecord) error
	SaveSnippet(ctx context.Context, rec SnippetRecord) error
	SearchMemories(ctx context.Context, userID string, query []float32, limit int, threshold float64) ([]personalization.Memory, error)
	SearchSnippets(ctx context.Context, userID string, query []float32, limit int, threshold float64) ([]personalization.Snippet, error)
	Preferences(ctx context.Context, userID string) (personalization.Preferences, bool, error)
	UserName(ctx context.Context, userID string) (string, error)

	Close() error
}

func clipSnippet(content string) string {
	if len(content) > maxSnippetLen {
		return content[:maxSnippetLen]
	}
	return content
}
