package store

import (
	"errors"
	"testing"
	"time"

	"github.com/desertthunder/mixtape/internal/models"
	"github.com/desertthunder/mixtape/internal/shared"
)

func sessionStores(t *testing.T) map[string]SessionStore {
	t.Helper()

	db, err := shared.NewDatabase(":memory:")
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := Migrate(db); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}

	return map[string]SessionStore{
		"memory": NewMemorySessionStore(),
		"sqlite": NewSQLiteSessionStore(db),
	}
}

func threadStores(t *testing.T) map[string]ThreadStore {
	t.Helper()

	db, err := shared.NewDatabase(":memory:")
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := Migrate(db); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}

	return map[string]ThreadStore{
		"memory": NewMemoryThreadStore(),
		"sqlite": NewSQLiteThreadStore(db),
	}
}

func TestSessionStore(t *testing.T) {
	for name, store := range sessionStores(t) {
		t.Run(name, func(t *testing.T) {
			t.Run("missing session returns ErrSessionNotFound", func(t *testing.T) {
				_, err := store.Get("nope")
				if !errors.Is(err, shared.ErrSessionNotFound) {
					t.Errorf("expected ErrSessionNotFound, got %v", err)
				}
			})

			t.Run("round trips a session", func(t *testing.T) {
				session := &models.Session{
					SessionID:    "sess-1",
					AccessToken:  "token-a",
					RefreshToken: "refresh-a",
					ExpiresAt:    time.Now().Add(time.Hour).UTC().Truncate(time.Second),
					UserID:       "user-1",
					Profile:      models.UserProfile{ID: "user-1", DisplayName: "Test User", Country: "SE"},
				}

				if err := store.Set(session); err != nil {
					t.Fatalf("failed to set session: %v", err)
				}

				got, err := store.Get("sess-1")
				if err != nil {
					t.Fatalf("failed to get session: %v", err)
				}
				if got.AccessToken != "token-a" {
					t.Errorf("expected access token token-a, got %s", got.AccessToken)
				}
				if got.Profile.Country != "SE" {
					t.Errorf("expected profile country SE, got %s", got.Profile.Country)
				}
				if got.CreatedAt.IsZero() {
					t.Error("expected created_at to be populated")
				}
			})

			t.Run("set overwrites existing session", func(t *testing.T) {
				first := &models.Session{SessionID: "sess-2", AccessToken: "old"}
				second := &models.Session{SessionID: "sess-2", AccessToken: "new"}

				if err := store.Set(first); err != nil {
					t.Fatalf("failed to set session: %v", err)
				}
				if err := store.Set(second); err != nil {
					t.Fatalf("failed to overwrite session: %v", err)
				}

				got, err := store.Get("sess-2")
				if err != nil {
					t.Fatalf("failed to get session: %v", err)
				}
				if got.AccessToken != "new" {
					t.Errorf("expected access token new, got %s", got.AccessToken)
				}
			})

			t.Run("delete removes a session", func(t *testing.T) {
				session := &models.Session{SessionID: "sess-3", AccessToken: "tok"}
				if err := store.Set(session); err != nil {
					t.Fatalf("failed to set session: %v", err)
				}
				if err := store.Delete("sess-3"); err != nil {
					t.Fatalf("failed to delete session: %v", err)
				}

				_, err := store.Get("sess-3")
				if !errors.Is(err, shared.ErrSessionNotFound) {
					t.Errorf("expected ErrSessionNotFound after delete, got %v", err)
				}
			})

			t.Run("rejects session without an id", func(t *testing.T) {
				if err := store.Set(&models.Session{}); err == nil {
					t.Error("expected error for session without id")
				}
			})
		})
	}
}

func TestThreadStore(t *testing.T) {
	for name, store := range threadStores(t) {
		t.Run(name, func(t *testing.T) {
			t.Run("missing thread returns empty without error", func(t *testing.T) {
				got, err := store.Get("absent")
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				if got != "" {
					t.Errorf("expected empty response id, got %s", got)
				}
			})

			t.Run("round trips a continuation reference", func(t *testing.T) {
				if err := store.Set("sess-1", "resp_abc"); err != nil {
					t.Fatalf("failed to set thread: %v", err)
				}

				got, err := store.Get("sess-1")
				if err != nil {
					t.Fatalf("failed to get thread: %v", err)
				}
				if got != "resp_abc" {
					t.Errorf("expected resp_abc, got %s", got)
				}
			})

			t.Run("set replaces the stored reference", func(t *testing.T) {
				if err := store.Set("sess-2", "resp_old"); err != nil {
					t.Fatalf("failed to set thread: %v", err)
				}
				if err := store.Set("sess-2", "resp_new"); err != nil {
					t.Fatalf("failed to replace thread: %v", err)
				}

				got, err := store.Get("sess-2")
				if err != nil {
					t.Fatalf("failed to get thread: %v", err)
				}
				if got != "resp_new" {
					t.Errorf("expected resp_new, got %s", got)
				}
			})

			t.Run("empty key falls back to the default thread", func(t *testing.T) {
				if err := store.Set("", "resp_global"); err != nil {
					t.Fatalf("failed to set thread: %v", err)
				}

				got, err := store.Get(DefaultThreadKey)
				if err != nil {
					t.Fatalf("failed to get thread: %v", err)
				}
				if got != "resp_global" {
					t.Errorf("expected resp_global under default key, got %s", got)
				}
			})

			t.Run("delete removes the reference", func(t *testing.T) {
				if err := store.Set("sess-3", "resp_gone"); err != nil {
					t.Fatalf("failed to set thread: %v", err)
				}
				if err := store.Delete("sess-3"); err != nil {
					t.Fatalf("failed to delete thread: %v", err)
				}

				got, err := store.Get("sess-3")
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				if got != "" {
					t.Errorf("expected empty after delete, got %s", got)
				}
			})
		})
	}
}
