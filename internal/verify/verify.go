// package verify matches requested songs against catalog search results.
//
// Matching is deliberately strict: a candidate is accepted only when every
// requested artist finds a word-boundary match among the candidate's credited
// artists. The top search hit is never used as a fallback, since that
// produces false positives.
package verify

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/mixtape/internal/catalog"
	"github.com/desertthunder/mixtape/internal/models"
	"github.com/desertthunder/mixtape/internal/shared"
	"golang.org/x/sync/errgroup"
)

// searchCandidates is how many candidates a verification search requests.
// More than needed, to allow re-ranking past remasters and karaoke covers.
const searchCandidates = 10

// Searcher is the slice of the catalog client verification needs.
type Searcher interface {
	SearchTracks(ctx context.Context, query string, limit int, market string) []catalog.Track
}

// Engine verifies requested songs against the catalog.
type Engine struct {
	catalog Searcher
	logger  *log.Logger
}

// NewEngine creates a verification Engine.
func NewEngine(searcher Searcher, logger *log.Logger) *Engine {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &Engine{catalog: searcher, logger: logger.With("component", "verify")}
}

// collabSplitter separates collaboration credits in a requested artist
// string ("A feat. B", "A & B", "A and B") into individual artist names.
var collabSplitter = regexp.MustCompile(`(?i)\s+feat\.?\s+|\s+ft\.?\s+|\s+featuring\s+|\s*&\s*|\s+and\s+`)

// SplitArtists breaks a requested artist string into its individual artist
// names. Empty segments are dropped.
func SplitArtists(artist string) []string {
	parts := collabSplitter.Split(artist, -1)
	names := []string{}
	for _, part := range parts {
		if part = strings.TrimSpace(part); part != "" {
			names = append(names, part)
		}
	}
	return names
}

// tokenize lowercases a name and splits it into alphanumeric word tokens.
func tokenize(name string) []string {
	var tokens []string
	var current strings.Builder
	for _, r := range strings.ToLower(name) {
		if ('a' <= r && r <= 'z') || ('0' <= r && r <= '9') || r > 127 {
			current.WriteRune(r)
			continue
		}
		if current.Len() > 0 {
			tokens = append(tokens, current.String())
			current.Reset()
		}
	}
	if current.Len() > 0 {
		tokens = append(tokens, current.String())
	}
	return tokens
}

// wordSequenceMatch reports whether needle's word tokens appear as a
// contiguous sequence among haystack's word tokens. Whole words only, so
// "Ana" never matches "Banana".
func wordSequenceMatch(needle, haystack string) bool {
	want := tokenize(needle)
	have := tokenize(haystack)
	if len(want) == 0 || len(want) > len(have) {
		return false
	}

	for start := 0; start+len(want) <= len(have); start++ {
		matched := true
		for i, token := range want {
			if have[start+i] != token {
				matched = false
				break
			}
		}
		if matched {
			return true
		}
	}
	return false
}

// ArtistsMatch reports whether every requested artist finds a word-boundary
// match among the candidate artist names.
func ArtistsMatch(requested, candidates []string) bool {
	if len(requested) == 0 {
		return false
	}

	for _, want := range requested {
		found := false
		for _, have := range candidates {
			if wordSequenceMatch(want, have) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// Verify matches one requested song against the catalog.
//
// The returned VerifiedSong always carries the requested fields; the
// verified flag and catalog attributes are filled only on a confident match.
func (e *Engine) Verify(ctx context.Context, song models.Song, market string) models.VerifiedSong {
	result := models.VerifiedSong{Song: song}

	requested := SplitArtists(song.Artist)
	if len(requested) == 0 {
		return result
	}

	query := song.Song + " " + song.Artist
	candidates := e.catalog.SearchTracks(ctx, query, searchCandidates, market)

	for _, candidate := range candidates {
		if !ArtistsMatch(requested, candidate.ArtistNames()) {
			continue
		}

		result.Verified = true
		result.CatalogID = candidate.ID
		result.CatalogURL = candidate.ExternalURL()
		result.Image = candidate.CoverImage()
		return result
	}

	e.logger.Debug("no confident match", "song", song.Display(), "candidates", len(candidates))
	return result
}

// VerifyAll verifies each song concurrently. Output order corresponds
// positionally to the input; verifications are independent per song.
//
// An invalid song shape is a contract violation and fails the whole batch
// before any search is issued.
func (e *Engine) VerifyAll(ctx context.Context, songs []models.Song, market string) ([]models.VerifiedSong, error) {
	for i, song := range songs {
		if err := song.Validate(); err != nil {
			return nil, fmt.Errorf("song %d: %w", i, err)
		}
	}

	results := make([]models.VerifiedSong, len(songs))
	group, ctx := errgroup.WithContext(ctx)
	for i, song := range songs {
		i, song := i, song
		group.Go(func() error {
			results[i] = e.Verify(ctx, song, market)
			return nil
		})
	}

	// Verifications never return errors; Wait only propagates cancellation.
	if err := group.Wait(); err != nil {
		return nil, err
	}

	return results, nil
}
