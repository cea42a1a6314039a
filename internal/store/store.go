// package store provides persistence for sessions and conversation threads.
//
// The interfaces are deliberately small key-value contracts so orchestration
// logic never depends on a concrete backend. The in-process map is the
// default; the sqlite implementation survives restarts.
package store

import (
	"fmt"
	"sync"
	"time"

	"github.com/desertthunder/mixtape/internal/models"
	"github.com/desertthunder/mixtape/internal/shared"
)

// DefaultThreadKey is the conversation key used when no session id is
// supplied (a single global conversation).
const DefaultThreadKey = "global"

// SessionStore persists user sessions keyed by opaque session id.
type SessionStore interface {
	Get(sessionID string) (*models.Session, error)
	Set(session *models.Session) error
	Delete(sessionID string) error
}

// ThreadStore persists the last model response id per conversation key,
// last-write-wins.
type ThreadStore interface {
	Get(key string) (string, error)
	Set(key, responseID string) error
	Delete(key string) error
}

// MemorySessionStore is a mutex-guarded in-process SessionStore.
type MemorySessionStore struct {
	mu       sync.RWMutex
	sessions map[string]*models.Session
}

// NewMemorySessionStore creates an empty in-memory session store.
func NewMemorySessionStore() *MemorySessionStore {
	return &MemorySessionStore{sessions: map[string]*models.Session{}}
}

func (s *MemorySessionStore) Get(sessionID string) (*models.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	session, ok := s.sessions[sessionID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", shared.ErrSessionNotFound, sessionID)
	}
	return session, nil
}

func (s *MemorySessionStore) Set(session *models.Session) error {
	if session == nil || session.SessionID == "" {
		return fmt.Errorf("%w: session requires an id", shared.ErrInvalidArgument)
	}
	if session.CreatedAt.IsZero() {
		session.CreatedAt = time.Now()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[session.SessionID] = session
	return nil
}

func (s *MemorySessionStore) Delete(sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, sessionID)
	return nil
}

// MemoryThreadStore is a mutex-guarded in-process ThreadStore.
type MemoryThreadStore struct {
	mu      sync.RWMutex
	threads map[string]string
}

// NewMemoryThreadStore creates an empty in-memory thread store.
func NewMemoryThreadStore() *MemoryThreadStore {
	return &MemoryThreadStore{threads: map[string]string{}}
}

func (s *MemoryThreadStore) Get(key string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.threads[key], nil
}

func (s *MemoryThreadStore) Set(key, responseID string) error {
	if key == "" {
		key = DefaultThreadKey
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.threads[key] = responseID
	return nil
}

func (s *MemoryThreadStore) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.threads, key)
	return nil
}
