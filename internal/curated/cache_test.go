package curated

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/desertthunder/mixtape/internal/catalog"
	"github.com/desertthunder/mixtape/internal/models"
)

type fakeLister struct {
	byOwner map[string][]catalog.SimplePlaylist
}

func (f *fakeLister) OwnerPlaylists(_ context.Context, ownerID string) []catalog.SimplePlaylist {
	return f.byOwner[ownerID]
}

func TestCache(t *testing.T) {
	t.Run("Absent Snapshot Is Empty And Stale", func(t *testing.T) {
		cache := New(filepath.Join(t.TempDir(), "cache.json"), 0, nil, nil)

		if playlists := cache.Get(); len(playlists) != 0 {
			t.Errorf("expected empty cache, got %d playlists", len(playlists))
		}
		if !cache.NeedsRefresh() {
			t.Error("absent snapshot must need refresh")
		}
	})

	t.Run("Refresh Replaces Snapshot", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "cache.json")
		cache := New(path, time.Hour, []string{"spotify", "topsify"}, nil)

		lister := &fakeLister{byOwner: map[string][]catalog.SimplePlaylist{
			"spotify": {{ID: "p1", Name: "Beast Mode"}},
			"topsify": {{ID: "p2", Name: "Top Hits"}},
		}}

		playlists, err := cache.Refresh(context.Background(), lister)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(playlists) != 2 {
			t.Fatalf("expected 2 playlists, got %d", len(playlists))
		}
		if playlists[0].Owner != "spotify" {
			t.Errorf("expected owner spotify, got %s", playlists[0].Owner)
		}

		if cache.NeedsRefresh() {
			t.Error("fresh snapshot must not need refresh")
		}
		if got := cache.Get(); len(got) != 2 {
			t.Errorf("expected persisted snapshot with 2 playlists, got %d", len(got))
		}
	})

	t.Run("Expired Snapshot Needs Refresh", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "cache.json")
		cache := New(path, time.Nanosecond, []string{"spotify"}, nil)

		lister := &fakeLister{byOwner: map[string][]catalog.SimplePlaylist{
			"spotify": {{ID: "p1", Name: "Beast Mode"}},
		}}
		if _, err := cache.Refresh(context.Background(), lister); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		time.Sleep(time.Millisecond)
		if !cache.NeedsRefresh() {
			t.Error("snapshot older than TTL must need refresh")
		}
	})

	t.Run("Unreadable Snapshot Treated As Empty", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "cache.json")
		if err := os.WriteFile(path, []byte("{not json"), 0644); err != nil {
			t.Fatal(err)
		}
		cache := New(path, time.Hour, nil, nil)

		if playlists := cache.Get(); len(playlists) != 0 {
			t.Errorf("expected empty cache, got %d", len(playlists))
		}
		if !cache.NeedsRefresh() {
			t.Error("unreadable snapshot must need refresh")
		}
	})
}

func TestSearch(t *testing.T) {
	playlists := []models.CuratorPlaylist{
		{ID: "p1", Name: "Chill Vibes", Description: "workout warmup"},
		{ID: "p2", Name: "Workout Hits"},
		{ID: "p3", Name: "Jazz Classics", Description: "smooth evening jazz"},
	}

	t.Run("Name Match Outranks Description Match", func(t *testing.T) {
		results := Search(playlists, []string{"workout"}, 5)
		if len(results) != 2 {
			t.Fatalf("expected 2 results, got %d", len(results))
		}
		if results[0].ID != "p2" {
			t.Errorf("expected name match first, got %s", results[0].ID)
		}
		if results[1].ID != "p1" {
			t.Errorf("expected description match second, got %s", results[1].ID)
		}
	})

	t.Run("Zero Score Excluded", func(t *testing.T) {
		results := Search(playlists, []string{"metal"}, 5)
		if len(results) != 0 {
			t.Errorf("expected no results, got %d", len(results))
		}
	})

	t.Run("Substring Scores Below Word Boundary", func(t *testing.T) {
		candidates := []models.CuratorPlaylist{
			{ID: "sub", Name: "Poprocks"},
			{ID: "word", Name: "Pop Anthems"},
		}
		results := Search(candidates, []string{"pop"}, 5)
		if len(results) != 2 {
			t.Fatalf("expected 2 results, got %d", len(results))
		}
		if results[0].ID != "word" {
			t.Errorf("expected word-boundary match first, got %s", results[0].ID)
		}
	})

	t.Run("Scores Accumulate Across Keywords", func(t *testing.T) {
		candidates := []models.CuratorPlaylist{
			{ID: "one", Name: "Morning Run"},
			{ID: "both", Name: "Morning Run Energy"},
		}
		results := Search(candidates, []string{"run", "energy"}, 5)
		if results[0].ID != "both" {
			t.Errorf("expected multi-keyword match first, got %s", results[0].ID)
		}
	})

	t.Run("Limit And Stable Ties", func(t *testing.T) {
		candidates := []models.CuratorPlaylist{
			{ID: "a", Name: "Rock One"},
			{ID: "b", Name: "Rock Two"},
			{ID: "c", Name: "Rock Three"},
		}
		results := Search(candidates, []string{"rock"}, 2)
		if len(results) != 2 {
			t.Fatalf("expected 2 results, got %d", len(results))
		}
		if results[0].ID != "a" || results[1].ID != "b" {
			t.Error("tied scores must keep encounter order")
		}
	})
}
