// package curated persists a keyword-searchable snapshot of curator playlists.
//
// The snapshot is a single JSON file refreshed wholesale from a fixed
// allow-list of catalog owners. A missing snapshot is not an error; it is an
// empty cache that needs refresh.
package curated

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/mixtape/internal/catalog"
	"github.com/desertthunder/mixtape/internal/models"
	"github.com/desertthunder/mixtape/internal/shared"
)

// DefaultTTL is how long a snapshot stays fresh.
const DefaultTTL = 24 * time.Hour

// Lister is the slice of the catalog client a refresh needs.
type Lister interface {
	OwnerPlaylists(ctx context.Context, ownerID string) []catalog.SimplePlaylist
}

// Snapshot is the on-disk cache format.
type Snapshot struct {
	Playlists  []models.CuratorPlaylist `json:"playlists"`
	LastUpdate time.Time                `json:"lastUpdate"`
}

// Cache is the curator playlist cache.
type Cache struct {
	path     string
	ttl      time.Duration
	curators []string
	logger   *log.Logger

	mu sync.Mutex
}

// New creates a Cache persisting to path with the given TTL and owner allow-list.
func New(path string, ttl time.Duration, curators []string, logger *log.Logger) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &Cache{
		path:     path,
		ttl:      ttl,
		curators: curators,
		logger:   logger.With("component", "curated"),
	}
}

func (c *Cache) load() *Snapshot {
	data, err := os.ReadFile(c.path)
	if err != nil {
		return &Snapshot{}
	}

	var snapshot Snapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		c.logger.Warn("discarding unreadable snapshot", "path", c.path, "error", err)
		return &Snapshot{}
	}
	return &snapshot
}

// Get returns the cached playlists. An absent or unreadable snapshot yields
// an empty slice.
func (c *Cache) Get() []models.CuratorPlaylist {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.load().Playlists
}

// NeedsRefresh reports whether the snapshot is absent or older than the TTL.
func (c *Cache) NeedsRefresh() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	snapshot := c.load()
	if snapshot.LastUpdate.IsZero() {
		return true
	}
	return time.Since(snapshot.LastUpdate) > c.ttl
}

// Refresh enumerates all playlists owned by the allow-listed curators and
// replaces the snapshot atomically.
func (c *Cache) Refresh(ctx context.Context, lister Lister) ([]models.CuratorPlaylist, error) {
	playlists := []models.CuratorPlaylist{}
	for _, owner := range c.curators {
		for _, playlist := range lister.OwnerPlaylists(ctx, owner) {
			entry := models.CuratorPlaylist{
				ID:          playlist.ID,
				Name:        playlist.Name,
				Description: playlist.Description,
				Owner:       owner,
				TrackCount:  playlist.Tracks.Total,
				ExternalURL: playlist.ExternalURLs.Spotify,
			}
			if len(playlist.Images) > 0 {
				entry.Image = playlist.Images[0].URL
			}
			playlists = append(playlists, entry)
		}
	}

	snapshot := Snapshot{Playlists: playlists, LastUpdate: time.Now()}
	data, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal snapshot: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	// Write-then-rename so readers never observe a partial snapshot.
	tmp, err := os.CreateTemp(filepath.Dir(c.path), "playlist_cache_*.json")
	if err != nil {
		return nil, fmt.Errorf("failed to create snapshot temp file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return nil, fmt.Errorf("failed to write snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return nil, fmt.Errorf("failed to close snapshot: %w", err)
	}
	if err := os.Rename(tmp.Name(), c.path); err != nil {
		os.Remove(tmp.Name())
		return nil, fmt.Errorf("failed to replace snapshot: %w", err)
	}

	c.logger.Info("playlist cache refreshed", "playlists", len(playlists), "curators", len(c.curators))
	return playlists, nil
}

// Per-keyword match scores, strongest signal first.
const (
	scoreNameWord = 10
	scoreNameSub  = 5
	scoreDescWord = 3
	scoreDescSub  = 1
)

func wordBoundaryMatch(keyword, text string) bool {
	pattern := regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(keyword) + `\b`)
	return pattern.MatchString(text)
}

func keywordScore(keyword string, playlist models.CuratorPlaylist) int {
	lower := strings.ToLower(keyword)
	name := strings.ToLower(playlist.Name)
	description := strings.ToLower(playlist.Description)

	switch {
	case wordBoundaryMatch(keyword, playlist.Name):
		return scoreNameWord
	case strings.Contains(name, lower):
		return scoreNameSub
	case wordBoundaryMatch(keyword, playlist.Description):
		return scoreDescWord
	case strings.Contains(description, lower):
		return scoreDescSub
	}
	return 0
}

// Search ranks playlists against query keywords, accumulating a score across
// all keywords. Zero-score playlists are excluded; ties keep encounter order.
func Search(playlists []models.CuratorPlaylist, keywords []string, limit int) []models.CuratorPlaylist {
	if limit <= 0 {
		limit = 5
	}

	type scored struct {
		playlist models.CuratorPlaylist
		score    int
	}

	ranked := []scored{}
	for _, playlist := range playlists {
		total := 0
		for _, keyword := range keywords {
			if keyword = strings.TrimSpace(keyword); keyword == "" {
				continue
			}
			total += keywordScore(keyword, playlist)
		}
		if total > 0 {
			ranked = append(ranked, scored{playlist: playlist, score: total})
		}
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].score > ranked[j].score
	})

	if len(ranked) > limit {
		ranked = ranked[:limit]
	}

	results := make([]models.CuratorPlaylist, 0, len(ranked))
	for _, entry := range ranked {
		results = append(results, entry.playlist)
	}
	return results
}
