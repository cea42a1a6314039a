package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func tokenHandler(counter *int64) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if counter != nil {
			atomic.AddInt64(counter, 1)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"access_token": "test_token",
			"token_type":   "Bearer",
			"expires_in":   3600,
		})
	}
}

func newTestClient(t *testing.T, apiHandler http.Handler, tokenRequests *int64) (*Client, *httptest.Server) {
	t.Helper()

	mux := http.NewServeMux()
	mux.Handle("/token", tokenHandler(tokenRequests))
	if apiHandler != nil {
		mux.Handle("/", apiHandler)
	}

	ts := httptest.NewServer(mux)
	t.Cleanup(ts.Close)

	client := NewClient(Opts{
		ClientID:     "test_client_id",
		ClientSecret: "test_client_secret",
		BaseURL:      ts.URL,
		AccountsURL:  ts.URL + "/token",
	})

	return client, ts
}

func TestAccessToken(t *testing.T) {
	t.Run("Missing Credentials", func(t *testing.T) {
		client := NewClient(Opts{})
		if client.Available() {
			t.Error("client without credentials should be unavailable")
		}
		if _, err := client.AccessToken(context.Background()); err == nil {
			t.Error("expected error acquiring token without credentials")
		}
	})

	t.Run("Caches Token", func(t *testing.T) {
		var tokenRequests int64
		client, _ := newTestClient(t, nil, &tokenRequests)

		for i := 0; i < 3; i++ {
			token, err := client.AccessToken(context.Background())
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if token != "test_token" {
				t.Errorf("expected test_token, got %s", token)
			}
		}

		if got := atomic.LoadInt64(&tokenRequests); got != 1 {
			t.Errorf("expected 1 token request, got %d", got)
		}
	})

	t.Run("Concurrent Callers Share One Acquisition", func(t *testing.T) {
		var tokenRequests int64
		client, _ := newTestClient(t, nil, &tokenRequests)

		var wg sync.WaitGroup
		for i := 0; i < 10; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if _, err := client.AccessToken(context.Background()); err != nil {
					t.Errorf("expected no error, got %v", err)
				}
			}()
		}
		wg.Wait()

		if got := atomic.LoadInt64(&tokenRequests); got != 1 {
			t.Errorf("expected exactly 1 upstream token request, got %d", got)
		}
	})

	t.Run("Refreshes Near Expiry", func(t *testing.T) {
		var tokenRequests int64
		client, _ := newTestClient(t, nil, &tokenRequests)

		if _, err := client.AccessToken(context.Background()); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		client.mu.Lock()
		client.tokenExpiry = time.Now().Add(10 * time.Second) // inside safety margin
		client.mu.Unlock()

		if _, err := client.AccessToken(context.Background()); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		if got := atomic.LoadInt64(&tokenRequests); got != 2 {
			t.Errorf("expected a second token request near expiry, got %d", got)
		}
	})
}

func TestSearchTracks(t *testing.T) {
	t.Run("Returns Candidates", func(t *testing.T) {
		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/search" {
				http.NotFound(w, r)
				return
			}
			json.NewEncoder(w).Encode(map[string]any{
				"tracks": map[string]any{
					"items": []map[string]any{
						{"id": "t1", "name": "One", "artists": []map[string]any{{"id": "a1", "name": "Metallica"}}},
					},
				},
			})
		})
		client, _ := newTestClient(t, handler, nil)

		tracks := client.SearchTracks(context.Background(), "One Metallica", 10, "US")
		if len(tracks) != 1 {
			t.Fatalf("expected 1 track, got %d", len(tracks))
		}
		if tracks[0].Name != "One" {
			t.Errorf("expected track One, got %s", tracks[0].Name)
		}
	})

	t.Run("Degrades To Empty On Upstream Error", func(t *testing.T) {
		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "not found", http.StatusNotFound)
		})
		client, _ := newTestClient(t, handler, nil)

		if tracks := client.SearchTracks(context.Background(), "anything", 10, ""); len(tracks) != 0 {
			t.Errorf("expected empty result, got %d tracks", len(tracks))
		}
	})

	t.Run("Unavailable Client Returns Empty", func(t *testing.T) {
		client := NewClient(Opts{})
		if tracks := client.SearchTracks(context.Background(), "anything", 10, ""); tracks != nil {
			t.Errorf("expected nil, got %v", tracks)
		}
	})
}

func TestPlaylistTracks(t *testing.T) {
	t.Run("Pages Until Limit", func(t *testing.T) {
		var pages int64
		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			page := atomic.AddInt64(&pages, 1)
			items := []map[string]any{}
			for i := 0; i < 50; i++ {
				items = append(items, map[string]any{
					"track": map[string]any{"id": fmt.Sprintf("t%d-%d", page, i), "name": "Track"},
				})
			}
			next := "more"
			json.NewEncoder(w).Encode(map[string]any{"items": items, "next": next})
		})
		client, _ := newTestClient(t, handler, nil)

		tracks := client.PlaylistTracks(context.Background(), "pl1", 75, "US")
		if len(tracks) != 75 {
			t.Errorf("expected 75 tracks, got %d", len(tracks))
		}
		if got := atomic.LoadInt64(&pages); got != 2 {
			t.Errorf("expected 2 pages fetched, got %d", got)
		}
	})

	t.Run("Stops When Upstream Has No More", func(t *testing.T) {
		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode(map[string]any{
				"items": []map[string]any{{"track": map[string]any{"id": "t1", "name": "Only"}}},
				"next":  nil,
			})
		})
		client, _ := newTestClient(t, handler, nil)

		tracks := client.PlaylistTracks(context.Background(), "pl1", 100, "")
		if len(tracks) != 1 {
			t.Errorf("expected 1 track, got %d", len(tracks))
		}
	})

	t.Run("Skips Unplayable Entries", func(t *testing.T) {
		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode(map[string]any{
				"items": []map[string]any{
					{"track": map[string]any{"id": "", "name": "gone"}},
					{"track": map[string]any{"id": "t2", "name": "here"}},
				},
				"next": nil,
			})
		})
		client, _ := newTestClient(t, handler, nil)

		tracks := client.PlaylistTracks(context.Background(), "pl1", 10, "")
		if len(tracks) != 1 || tracks[0].ID != "t2" {
			t.Errorf("expected only the playable track, got %v", tracks)
		}
	})
}

func TestRetry(t *testing.T) {
	t.Run("Retries Server Errors", func(t *testing.T) {
		var calls int64
		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if atomic.AddInt64(&calls, 1) == 1 {
				http.Error(w, "boom", http.StatusInternalServerError)
				return
			}
			json.NewEncoder(w).Encode(map[string]any{
				"tracks": map[string]any{"items": []map[string]any{{"id": "t1", "name": "One"}}},
			})
		})
		client, _ := newTestClient(t, handler, nil)

		tracks := client.SearchTracks(context.Background(), "One", 5, "")
		if len(tracks) != 1 {
			t.Fatalf("expected retry to succeed, got %d tracks", len(tracks))
		}
		if got := atomic.LoadInt64(&calls); got != 2 {
			t.Errorf("expected 2 attempts, got %d", got)
		}
	})
}

func TestAddTracks(t *testing.T) {
	t.Run("Chunks Large Batches", func(t *testing.T) {
		var requests int64
		var sizes []int
		var mu sync.Mutex
		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			atomic.AddInt64(&requests, 1)
			var body addTracksRequest
			json.NewDecoder(r.Body).Decode(&body)
			mu.Lock()
			sizes = append(sizes, len(body.URIs))
			mu.Unlock()
			w.WriteHeader(http.StatusCreated)
		})
		client, _ := newTestClient(t, handler, nil)

		uris := make([]string, 250)
		for i := range uris {
			uris[i] = fmt.Sprintf("spotify:track:%d", i)
		}

		if err := client.AddTracks(context.Background(), "user_token", "pl1", uris); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		if got := atomic.LoadInt64(&requests); got != 3 {
			t.Errorf("expected 3 chunked requests, got %d", got)
		}
		want := []int{100, 100, 50}
		for i, size := range want {
			if sizes[i] != size {
				t.Errorf("chunk %d: expected %d uris, got %d", i, size, sizes[i])
			}
		}
	})
}
