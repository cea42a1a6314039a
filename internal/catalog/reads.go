package catalog

import (
	"context"
	"fmt"
	"net/url"
)

// Well-known editorial playlists used as popularity sources.
const (
	topTracksGlobalID   = "37i9dQZEVXbMDoHDwVN2tF" // Top 50 - Global
	viralTracksGlobalID = "37i9dQZEVXbLiRSasKsNU9" // Viral 50 - Global
	newReleasesID       = "37i9dQZF1DX4JAvHpjipBk" // New Music Friday
)

// popularityPlaylists maps a listing kind to its editorial source playlist.
var popularityPlaylists = map[string]string{
	"top":   topTracksGlobalID,
	"viral": viralTracksGlobalID,
	"new":   newReleasesID,
}

// SearchTracks runs a free-text track search and returns up to limit candidates.
//
// Upstream failures degrade to an empty slice.
func (c *Client) SearchTracks(ctx context.Context, query string, limit int, market string) []Track {
	if query == "" || !c.Available() {
		return nil
	}
	if limit <= 0 || limit > pageSize {
		limit = 10
	}

	endpoint := fmt.Sprintf("/search?q=%s&type=track&limit=%d", url.QueryEscape(query), limit)
	if market != "" {
		endpoint += "&market=" + url.QueryEscape(market)
	}

	var response searchResponse
	if err := c.get(ctx, endpoint, &response); err != nil {
		c.logger.Warn("track search failed", "query", query, "error", err)
		return nil
	}

	return response.Tracks.Items
}

// SearchTrack searches for a single track by title and artist, returning the
// top hit or nil when nothing matches.
func (c *Client) SearchTrack(ctx context.Context, song, artist, market string) *Track {
	query := fmt.Sprintf("track:%q artist:%q", song, artist)
	tracks := c.SearchTracks(ctx, query, 1, market)
	if len(tracks) == 0 {
		return nil
	}
	return &tracks[0]
}

// SearchArtist returns the top artist hit for a free-text name, or nil.
func (c *Client) SearchArtist(ctx context.Context, name, market string) *Artist {
	if name == "" || !c.Available() {
		return nil
	}

	endpoint := fmt.Sprintf("/search?q=%s&type=artist&limit=1", url.QueryEscape(name))
	if market != "" {
		endpoint += "&market=" + url.QueryEscape(market)
	}

	var response searchResponse
	if err := c.get(ctx, endpoint, &response); err != nil {
		c.logger.Warn("artist search failed", "name", name, "error", err)
		return nil
	}
	if len(response.Artists.Items) == 0 {
		return nil
	}

	return &response.Artists.Items[0]
}

// PopularTracks returns up to limit tracks from the editorial popularity
// playlist for kind ("top", "viral", "new"). Unknown kinds fall back to "top".
func (c *Client) PopularTracks(ctx context.Context, limit int, kind, market string) []Track {
	playlistID, ok := popularityPlaylists[kind]
	if !ok {
		playlistID = topTracksGlobalID
	}
	return c.PlaylistTracks(ctx, playlistID, limit, market)
}

// PopularArtists returns the distinct artists behind the current top tracks,
// most-popular first.
func (c *Client) PopularArtists(ctx context.Context, limit int, market string) []Artist {
	if limit <= 0 {
		limit = 10
	}

	// Over-fetch tracks since many chart entries share artists.
	tracks := c.PopularTracks(ctx, limit*3, "top", market)

	seen := map[string]struct{}{}
	artists := []Artist{}
	for _, track := range tracks {
		for _, artist := range track.Artists {
			if _, ok := seen[artist.ID]; ok {
				continue
			}
			seen[artist.ID] = struct{}{}
			artists = append(artists, artist)
			if len(artists) >= limit {
				return artists
			}
		}
	}

	return artists
}

// TopTracksForArtists fetches up to perArtist top tracks for each named
// artist. Artists that cannot be resolved contribute nothing.
func (c *Client) TopTracksForArtists(ctx context.Context, names []string, perArtist int, market string) []Track {
	if perArtist <= 0 {
		perArtist = 5
	}
	if market == "" {
		market = "US"
	}

	tracks := []Track{}
	for _, name := range names {
		artist := c.SearchArtist(ctx, name, market)
		if artist == nil {
			continue
		}

		endpoint := fmt.Sprintf("/artists/%s/top-tracks?market=%s", url.PathEscape(artist.ID), url.QueryEscape(market))
		var response topTracksResponse
		if err := c.get(ctx, endpoint, &response); err != nil {
			c.logger.Warn("top tracks fetch failed", "artist", name, "error", err)
			continue
		}

		top := response.Tracks
		if len(top) > perArtist {
			top = top[:perArtist]
		}
		tracks = append(tracks, top...)
	}

	return tracks
}

// PlaylistTracks pages through a playlist's tracks until limit is satisfied
// or the upstream signals no further pages. A failing page is treated as "no
// more data", not retried.
func (c *Client) PlaylistTracks(ctx context.Context, id string, limit int, market string) []Track {
	if !c.Available() || id == "" {
		return nil
	}
	if limit <= 0 {
		limit = pageSize
	}

	tracks := []Track{}
	offset := 0
	for len(tracks) < limit {
		endpoint := fmt.Sprintf("/playlists/%s/tracks?limit=%d&offset=%d", url.PathEscape(id), pageSize, offset)
		if market != "" {
			endpoint += "&market=" + url.QueryEscape(market)
		}

		var page paginatedPlaylistTracks
		if err := c.get(ctx, endpoint, &page); err != nil {
			c.logger.Warn("playlist page fetch failed", "playlist", id, "offset", offset, "error", err)
			break
		}

		for _, item := range page.Items {
			if item.Track.ID == "" {
				continue
			}
			tracks = append(tracks, item.Track)
			if len(tracks) >= limit {
				break
			}
		}

		if page.Next == nil || len(page.Items) == 0 {
			break
		}
		offset += len(page.Items)
	}

	return tracks
}

// OwnerPlaylists enumerates every playlist owned by the given account via
// full pagination. Used by the curator playlist cache refresh.
func (c *Client) OwnerPlaylists(ctx context.Context, ownerID string) []SimplePlaylist {
	if !c.Available() || ownerID == "" {
		return nil
	}

	playlists := []SimplePlaylist{}
	offset := 0
	for {
		endpoint := fmt.Sprintf("/users/%s/playlists?limit=%d&offset=%d", url.PathEscape(ownerID), pageSize, offset)

		var page paginatedPlaylists
		if err := c.get(ctx, endpoint, &page); err != nil {
			c.logger.Warn("owner playlist page fetch failed", "owner", ownerID, "offset", offset, "error", err)
			break
		}

		playlists = append(playlists, page.Items...)
		if page.Next == nil || len(page.Items) == 0 {
			break
		}
		offset += len(page.Items)
	}

	return playlists
}
