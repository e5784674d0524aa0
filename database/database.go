package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	log "github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"

	"decibel/models"
)

const memoryPath = ":memory:"

// Flash is a one-shot message shown on the next page render.
type Flash struct {
	Level   string `json:"level"`
	Message string `json:"message"`
}

// SessionState is everything the shell remembers about one browser session.
type SessionState struct {
	CurrentLyrics *models.LyricsResult   `json:"current_lyrics,omitempty"`
	SearchResults []models.SongCandidate `json:"search_results,omitempty"`
	Transcript    string                 `json:"transcript,omitempty"`
	Suggestions   []string               `json:"suggestions,omitempty"`
	APIKey        string                 `json:"api_key,omitempty"`
	Flash         []Flash                `json:"flash,omitempty"`
}

func (s *SessionState) AddFlash(level, message string) {
	s.Flash = append(s.Flash, Flash{Level: level, Message: message})
}

// TakeFlash returns the pending flashes and clears them.
func (s *SessionState) TakeFlash() []Flash {
	flash := s.Flash
	s.Flash = nil
	return flash
}

// SessionStore keeps SessionState rows in sqlite. Rows idle for longer than
// the TTL are treated as absent and removed by PurgeExpired.
type SessionStore struct {
	db     *sql.DB
	ttl    time.Duration
	now    func() time.Time
	logger *log.Entry
}

// New opens the store. dbPath ":memory:" keeps sessions for the life of the process.
func New(dbPath string, ttl time.Duration) (*SessionStore, error) {
	if dbPath == "" {
		dbPath = memoryPath
	}

	if dbPath != memoryPath {
		dir := filepath.Dir(dbPath)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory %s: %w", dir, err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if dbPath == memoryPath {
		// every new connection would get its own empty in-memory database
		db.SetMaxOpenConns(1)
	} else if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set WAL mode: %w", err)
	}

	s := &SessionStore{
		db:     db,
		ttl:    ttl,
		now:    time.Now,
		logger: log.WithFields(log.Fields{"module": "database"}),
	}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	s.logger.Infof("Session store initialized at %s", dbPath)
	return s, nil
}

func (s *SessionStore) Close() error {
	return s.db.Close()
}

func (s *SessionStore) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS sessions (
			id TEXT PRIMARY KEY,
			state TEXT NOT NULL,
			updated_at INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_sessions_updated_at ON sessions(updated_at)`,
	}

	for _, m := range migrations {
		if _, err := s.db.Exec(m); err != nil {
			return fmt.Errorf("migration failed: %w\nSQL: %s", err, m)
		}
	}

	return nil
}

func (s *SessionStore) cutoff() int64 {
	return s.now().Add(-s.ttl).UnixNano()
}

// Load returns the stored state, or a zero state for unknown and expired sessions.
func (s *SessionStore) Load(ctx context.Context, id string) (SessionState, error) {
	var state SessionState
	var raw string
	var updatedAt int64

	err := s.db.QueryRowContext(ctx,
		`SELECT state, updated_at FROM sessions WHERE id = ?`, id,
	).Scan(&raw, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return state, nil
	}
	if err != nil {
		return state, fmt.Errorf("failed to load session: %w", err)
	}

	if s.ttl > 0 && updatedAt < s.cutoff() {
		return state, nil
	}

	if err := json.Unmarshal([]byte(raw), &state); err != nil {
		// a row we cannot read is as good as no row
		s.logger.Warnf("discarding unreadable session %s: %v", id, err)
		return SessionState{}, nil
	}
	return state, nil
}

func (s *SessionStore) Save(ctx context.Context, id string, state SessionState) error {
	raw, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO sessions (id, state, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET state = excluded.state, updated_at = excluded.updated_at`,
		id, string(raw), s.now().UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

// PurgeExpired removes idle sessions and reports how many were dropped.
func (s *SessionStore) PurgeExpired(ctx context.Context) (int64, error) {
	if s.ttl <= 0 {
		return 0, nil
	}
	res, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE updated_at < ?`, s.cutoff())
	if err != nil {
		return 0, fmt.Errorf("failed to purge sessions: %w", err)
	}
	return res.RowsAffected()
}

// RunJanitor purges expired sessions every interval until ctx is done.
func (s *SessionStore) RunJanitor(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := s.PurgeExpired(ctx)
			if err != nil {
				s.logger.Warnf("session purge failed: %v", err)
				continue
			}
			if n > 0 {
				s.logger.Debugf("purged %d expired sessions", n)
			}
		}
	}
}
