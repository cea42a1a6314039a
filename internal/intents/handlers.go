package intents

import (
	"context"
	"fmt"
	"strings"

	"github.com/desertthunder/mixtape/internal/catalog"
	"github.com/desertthunder/mixtape/internal/curated"
)

const (
	popularTrackLimit  = 20
	popularArtistLimit = 15
	tracksPerArtist    = 5
	sampledPlaylists   = 2
	sampleTrackLimit   = 10
)

// contextFooter is appended to every context block so the model treats the
// injected data as inspiration, attributed to the catalog service.
const contextFooter = "Treat this data as inspiration, not a restriction. When you draw on it, attribute the suggestions to the music catalog, never to the user."

func renderTracks(header string, tracks []catalog.Track) string {
	if len(tracks) == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString(header)
	b.WriteString("\n")
	for i, track := range tracks {
		fmt.Fprintf(&b, "%d. %s - %s\n", i+1, track.Name, strings.Join(track.ArtistNames(), ", "))
	}
	b.WriteString(contextFooter)
	return b.String()
}

// popularTracksHandler fetches the current top tracks from the catalog's
// editorial chart.
func popularTracksHandler(ctx context.Context, sources Sources, input HandlerInput) (string, error) {
	kind := "top"
	lower := strings.ToLower(input.Message)
	if strings.Contains(lower, "viral") {
		kind = "viral"
	} else if strings.Contains(lower, "new release") || strings.Contains(lower, "new music") {
		kind = "new"
	}

	tracks := sources.Catalog.PopularTracks(ctx, popularTrackLimit, kind, input.Market)
	return renderTracks("Songs currently popular on the music catalog:", tracks), nil
}

// popularArtistsHandler lists the artists behind the current charts.
func popularArtistsHandler(ctx context.Context, sources Sources, input HandlerInput) (string, error) {
	artists := sources.Catalog.PopularArtists(ctx, popularArtistLimit, input.Market)
	if len(artists) == 0 {
		return "", nil
	}

	var b strings.Builder
	b.WriteString("Artists currently popular on the music catalog:\n")
	for i, artist := range artists {
		fmt.Fprintf(&b, "%d. %s\n", i+1, artist.Name)
	}
	b.WriteString(contextFooter)
	return b.String(), nil
}

// genreMoodHandler finds curator playlists matching the message's keywords
// and samples their tracks.
func genreMoodHandler(ctx context.Context, sources Sources, input HandlerInput) (string, error) {
	keywords := extractKeywords(input.Message)
	if len(keywords) == 0 {
		return "", nil
	}

	matches := curated.Search(sources.Cache.Get(), keywords, sampledPlaylists)
	if len(matches) == 0 {
		return "", nil
	}

	var b strings.Builder
	b.WriteString("Curator playlists on the music catalog matching the request:\n")
	for _, playlist := range matches {
		fmt.Fprintf(&b, "Playlist %q", playlist.Name)
		if playlist.Description != "" {
			fmt.Fprintf(&b, " (%s)", playlist.Description)
		}
		b.WriteString(":\n")

		tracks := sources.Catalog.PlaylistTracks(ctx, playlist.ID, sampleTrackLimit, input.Market)
		if len(tracks) == 0 {
			b.WriteString("(tracks unavailable)\n")
			continue
		}
		for i, track := range tracks {
			fmt.Fprintf(&b, "%d. %s - %s\n", i+1, track.Name, strings.Join(track.ArtistNames(), ", "))
		}
	}
	b.WriteString(contextFooter)
	return b.String(), nil
}

// topTracksFromArtistsHandler is the Phase-2 handler: it needs the artists
// of the Phase-1 playlist and fetches their top tracks.
func topTracksFromArtistsHandler(ctx context.Context, sources Sources, input HandlerInput) (string, error) {
	if len(input.Phase1Artists) == 0 {
		return "", nil
	}

	tracks := sources.Catalog.TopTracksForArtists(ctx, input.Phase1Artists, tracksPerArtist, input.Market)
	return renderTracks("The most popular songs by the playlist's artists, per the music catalog:", tracks), nil
}

// stopWords are dropped during keyword extraction for curator search.
var stopWords = map[string]struct{}{
	"a": {}, "an": {}, "the": {}, "and": {}, "or": {}, "for": {}, "of": {},
	"to": {}, "me": {}, "my": {}, "i": {}, "some": {}, "with": {}, "that": {},
	"make": {}, "create": {}, "build": {}, "give": {}, "add": {}, "want": {},
	"need": {}, "like": {}, "please": {}, "playlist": {}, "playlists": {},
	"music": {}, "song": {}, "songs": {}, "track": {}, "tracks": {},
}

// extractKeywords lowercases the message and drops stop words, leaving the
// genre, mood, and activity terms worth searching the cache for.
func extractKeywords(message string) []string {
	var keywords []string
	var current strings.Builder

	flush := func() {
		if current.Len() == 0 {
			return
		}
		word := current.String()
		current.Reset()
		if _, skip := stopWords[word]; skip {
			return
		}
		if len(word) < 2 {
			return
		}
		keywords = append(keywords, word)
	}

	for _, r := range strings.ToLower(message) {
		if ('a' <= r && r <= 'z') || ('0' <= r && r <= '9') {
			current.WriteRune(r)
			continue
		}
		flush()
	}
	flush()

	return keywords
}
