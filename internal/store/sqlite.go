package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/desertthunder/mixtape/internal/models"
	"github.com/desertthunder/mixtape/internal/shared"
)

const schema = `
CREATE TABLE IF NOT EXISTS sessions (
	session_id    TEXT PRIMARY KEY,
	access_token  TEXT NOT NULL,
	refresh_token TEXT NOT NULL DEFAULT '',
	expires_at    TIMESTAMP,
	user_id       TEXT NOT NULL DEFAULT '',
	profile       TEXT NOT NULL DEFAULT '{}',
	created_at    TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS threads (
	key         TEXT PRIMARY KEY,
	response_id TEXT NOT NULL,
	updated_at  TIMESTAMP NOT NULL
);
`

// Migrate creates the session and thread tables if they do not exist.
func Migrate(db *sql.DB) error {
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("failed to run store migrations: %w", err)
	}
	return nil
}

// SQLiteSessionStore persists sessions in sqlite so logins survive restarts.
type SQLiteSessionStore struct {
	db *sql.DB
}

// NewSQLiteSessionStore creates a sqlite-backed SessionStore.
func NewSQLiteSessionStore(db *sql.DB) *SQLiteSessionStore {
	return &SQLiteSessionStore{db: db}
}

func (s *SQLiteSessionStore) Get(sessionID string) (*models.Session, error) {
	query := `
		SELECT session_id, access_token, refresh_token, expires_at, user_id, profile, created_at
		FROM sessions WHERE session_id = ?
	`

	var (
		session   models.Session
		expiresAt sql.NullTime
		profile   string
	)

	err := s.db.QueryRow(query, sessionID).Scan(
		&session.SessionID, &session.AccessToken, &session.RefreshToken,
		&expiresAt, &session.UserID, &profile, &session.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %s", shared.ErrSessionNotFound, sessionID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query session: %w", err)
	}

	if expiresAt.Valid {
		session.ExpiresAt = expiresAt.Time
	}
	if err := json.Unmarshal([]byte(profile), &session.Profile); err != nil {
		return nil, fmt.Errorf("failed to decode session profile: %w", err)
	}

	return &session, nil
}

func (s *SQLiteSessionStore) Set(session *models.Session) error {
	if session == nil || session.SessionID == "" {
		return fmt.Errorf("%w: session requires an id", shared.ErrInvalidArgument)
	}
	if session.CreatedAt.IsZero() {
		session.CreatedAt = time.Now()
	}

	profile, err := json.Marshal(session.Profile)
	if err != nil {
		return fmt.Errorf("failed to encode session profile: %w", err)
	}

	query := `
		INSERT INTO sessions (session_id, access_token, refresh_token, expires_at, user_id, profile, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(session_id) DO UPDATE SET
			access_token = excluded.access_token,
			refresh_token = excluded.refresh_token,
			expires_at = excluded.expires_at,
			user_id = excluded.user_id,
			profile = excluded.profile
	`

	_, err = s.db.Exec(query, session.SessionID, session.AccessToken, session.RefreshToken,
		session.ExpiresAt, session.UserID, string(profile), session.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert session: %w", err)
	}

	return nil
}

func (s *SQLiteSessionStore) Delete(sessionID string) error {
	if _, err := s.db.Exec(`DELETE FROM sessions WHERE session_id = ?`, sessionID); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// SQLiteThreadStore persists conversation continuation references in sqlite.
type SQLiteThreadStore struct {
	db *sql.DB
}

// NewSQLiteThreadStore creates a sqlite-backed ThreadStore.
func NewSQLiteThreadStore(db *sql.DB) *SQLiteThreadStore {
	return &SQLiteThreadStore{db: db}
}

func (s *SQLiteThreadStore) Get(key string) (string, error) {
	var responseID string
	err := s.db.QueryRow(`SELECT response_id FROM threads WHERE key = ?`, key).Scan(&responseID)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to query thread: %w", err)
	}
	return responseID, nil
}

func (s *SQLiteThreadStore) Set(key, responseID string) error {
	if key == "" {
		key = DefaultThreadKey
	}

	query := `
		INSERT INTO threads (key, response_id, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET response_id = excluded.response_id, updated_at = excluded.updated_at
	`

	if _, err := s.db.Exec(query, key, responseID, time.Now()); err != nil {
		return fmt.Errorf("failed to upsert thread: %w", err)
	}
	return nil
}

func (s *SQLiteThreadStore) Delete(key string) error {
	if _, err := s.db.Exec(`DELETE FROM threads WHERE key = ?`, key); err != nil {
		return fmt.Errorf("failed to delete thread: %w", err)
	}
	return nil
}
