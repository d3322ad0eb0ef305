package store

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mindsphere/mindsphere/internal/personalization"
	"github.com/mindsphere/mindsphere/internal/plan"
)

// PostgresStore persists sessions and personalization data in
// PostgreSQL with pgvector similarity search.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}

	if err := initSchema(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}

	return &PostgresStore{pool: pool}, nil
}

func initSchema(ctx context.Context, pool *pgxpool.Pool) error {
	stmts := []string{
		`CREATE EXTENSION IF NOT EXISTS vector;`,
		`CREATE TABLE IF NOT EXISTS sessions (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			kind TEXT NOT NULL,
			mood TEXT NOT NULL,
			duration_minutes INT NOT NULL,
			user_notes TEXT NOT NULL DEFAULT '',
			session_name TEXT NOT NULL DEFAULT '',
			script TEXT NOT NULL DEFAULT '',
			audio_url TEXT NOT NULL DEFAULT '',
			duration_sec INT NOT NULL DEFAULT 0,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);`,
		`CREATE INDEX IF NOT EXISTS idx_sessions_user_created ON sessions (user_id, created_at DESC);`,
		`CREATE TABLE IF NOT EXISTS memories (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			content TEXT NOT NULL,
			category TEXT NOT NULL DEFAULT '',
			importance INT NOT NULL DEFAULT 1,
			embedding vector(1536),
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);`,
		`CREATE INDEX IF NOT EXISTS idx_memories_user ON memories (user_id);`,
		`CREATE TABLE IF NOT EXISTS snippets (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			content TEXT NOT NULL,
			embedding vector(1536),
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);`,
		`CREATE INDEX IF NOT EXISTS idx_snippets_user ON snippets (user_id);`,
		`CREATE TABLE IF NOT EXISTS user_preferences (
			user_id TEXT PRIMARY KEY,
			preferred_voice_style TEXT NOT NULL DEFAULT 'calm',
			preferred_content_themes TEXT[] NOT NULL DEFAULT '{}',
			personal_goals TEXT[] NOT NULL DEFAULT '{}',
			meditation_goals TEXT[] NOT NULL DEFAULT '{}',
			sleep_preferences TEXT[] NOT NULL DEFAULT '{}'
		);`,
		`CREATE TABLE IF NOT EXISTS users (
			user_id TEXT PRIMARY KEY,
			first_name TEXT NOT NULL DEFAULT ''
		);`,
	}

	for _, stmt := range stmts {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("init schema failed on %q: %w", stmt, err)
		}
	}
	return nil
}

func (s *PostgresStore) CreateSession(ctx context.Context, sess Session) error {
	if sess.CreatedAt.IsZero() {
		sess.CreatedAt = time.Now().UTC()
	}

	_, err := s.pool.Exec(ctx,
		`INSERT INTO sessions (id, user_id, kind, mood, duration_minutes, user_notes, session_name, script, audio_url, duration_sec, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		sess.ID,
		sess.UserID,
		string(sess.Kind),
		sess.Mood,
		sess.DurationMinutes,
		sess.UserNotes,
		sess.SessionName,
		sess.Script,
		sess.AudioURL,
		sess.DurationSec,
		sess.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetSession(ctx context.Context, id string) (Session, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, user_id, kind, mood, duration_minutes, user_notes, session_name, script, audio_url, duration_sec, created_at
		 FROM sessions WHERE id=$1`, id)

	var sess Session
	var kind string
	err := row.Scan(&sess.ID, &sess.UserID, &kind, &sess.Mood, &sess.DurationMinutes,
		&sess.UserNotes, &sess.SessionName, &sess.Script, &sess.AudioURL, &sess.DurationSec, &sess.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Session{}, ErrNotFound
	}
	if err != nil {
		return Session{}, fmt.Errorf("get session: %w", err)
	}
	sess.Kind = plan.Kind(kind)
	return sess, nil
}

func (s *PostgresStore) SetScript(ctx context.Context, id, script string) error {
	tag, err := s.pool.Exec(ctx, `UPDATE sessions SET script=$2 WHERE id=$1`, id, script)
	if err != nil {
		return fmt.Errorf("set script: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) SetAudio(ctx context.Context, id, audioURL string, durationSec int) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE sessions SET audio_url=$2, duration_sec=$3 WHERE id=$1 AND script <> ''`,
		id, audioURL, durationSec)
	if err != nil {
		return fmt.Errorf("set audio: %w", err)
	}
	if tag.RowsAffected() == 0 {
		// Distinguish a missing row from the ordering guard.
		if _, err := s.GetSession(ctx, id); err != nil {
			return err
		}
		return ErrScriptNotSet
	}
	return nil
}

func (s *PostgresStore) ListSessions(ctx context.Context, userID string) ([]Session, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, user_id, kind, mood, duration_minutes, user_notes, session_name, script, audio_url, duration_sec, created_at
		 FROM sessions WHERE user_id=$1 ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var out []Session
	for rows.Next() {
		var sess Session
		var kind string
		if err := rows.Scan(&sess.ID, &sess.UserID, &kind, &sess.Mood, &sess.DurationMinutes,
			&sess.UserNotes, &sess.SessionName, &sess.Script, &sess.AudioURL, &sess.DurationSec, &sess.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan session row: %w", err)
		}
		sess.Kind = plan.Kind(kind)
		out = append(out, sess)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate session rows: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) SaveMemory(ctx context.Context, rec MemoryRecord) error {
	if rec.Importance <= 0 {
		rec.Importance = 1
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO memories (id, user_id, content, category, importance, embedding)
		 VALUES ($1, $2, $3, $4, $5, $6::vector)`,
		uuid.NewString(), rec.UserID, rec.Content, rec.Category, rec.Importance, vectorArg(rec.Embedding))
	if err != nil {
		return fmt.Errorf("save memory: %w", err)
	}
	return nil
}

func (s *PostgresStore) SaveSnippet(ctx context.Context, rec SnippetRecord) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO snippets (id, user_id, content, embedding)
		 VALUES ($1, $2, $3, $4::vector)`,
		uuid.NewString(), rec.UserID, clipSnippet(rec.Content), vectorArg(rec.Embedding))
	if err != nil {
		return fmt.Errorf("save snippet: %w", err)
	}
	return nil
}

func (s *PostgresStore) SearchMemories(ctx context.Context, userID string, query []float32, limit int, threshold float64) ([]personalization.Memory, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT content, category, importance, 1 - (embedding <=> $2::vector) AS similarity
		 FROM memories
		 WHERE user_id=$1 AND embedding IS NOT NULL AND 1 - (embedding <=> $2::vector) > $3
		 ORDER BY similarity DESC LIMIT $4`,
		userID, vectorLiteral(query), threshold, limit)
	if err != nil {
		return nil, fmt.Errorf("search memories: %w", err)
	}
	defer rows.Close()

	var out []personalization.Memory
	for rows.Next() {
		var m personalization.Memory
		if err := rows.Scan(&m.Content, &m.Category, &m.Importance, &m.Similarity); err != nil {
			return nil, fmt.Errorf("scan memory row: %w", err)
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate memory rows: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) SearchSnippets(ctx context.Context, userID string, query []float32, limit int, threshold float64) ([]personalization.Snippet, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT content, 1 - (embedding <=> $2::vector) AS similarity
		 FROM snippets
		 WHERE user_id=$1 AND embedding IS NOT NULL AND 1 - (embedding <=> $2::vector) > $3
		 ORDER BY similarity DESC LIMIT $4`,
		userID, vectorLiteral(query), threshold, limit)
	if err != nil {
		return nil, fmt.Errorf("search snippets: %w", err)
	}
	defer rows.Close()

	var out []personalization.Snippet
	for rows.Next() {
		var sn personalization.Snippet
		if err := rows.Scan(&sn.Content, &sn.Similarity); err != nil {
			return nil, fmt.Errorf("scan snippet row: %w", err)
		}
		out = append(out, sn)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate snippet rows: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) Preferences(ctx context.Context, userID string) (personalization.Preferences, bool, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT preferred_voice_style, preferred_content_themes, personal_goals, meditation_goals, sleep_preferences
		 FROM user_preferences WHERE user_id=$1`, userID)

	var p personalization.Preferences
	err := row.Scan(&p.VoiceStyle, &p.ContentThemes, &p.PersonalGoals, &p.MeditationGoals, &p.SleepPreferences)
	if errors.Is(err, pgx.ErrNoRows) {
		return personalization.Preferences{}, false, nil
	}
	if err != nil {
		return personalization.Preferences{}, false, fmt.Errorf("get preferences: %w", err)
	}
	return p, true, nil
}

func (s *PostgresStore) UserName(ctx context.Context, userID string) (string, error) {
	row := s.pool.QueryRow(ctx, `SELECT first_name FROM users WHERE user_id=$1`, userID)

	var name string
	err := row.Scan(&name)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("get user name: %w", err)
	}
	return name, nil
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

// vectorArg renders an embedding for insertion; rows without an
// embedding store NULL and never match similarity search.
func vectorArg(v []float32) any {
	if len(v) == 0 {
		return nil
	}
	return vectorLiteral(v)
}

// vectorLiteral renders an embedding as a pgvector input literal.
func vectorLiteral(v []float32) string {
	parts := make([]string, len(v))
	for i, f := range v {
		parts[i] = strconv.FormatFloat(float64(f), 'f', -1, 32)
	}
	return "[" + strings.Join(parts, ",") + "]"
}
