package catalog

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
)

// addTracksChunkSize is the catalog API's per-request track limit.
const addTracksChunkSize = 100

// Me retrieves the profile of the user the bearer token belongs to.
//
// This is a write-path dependency (upload needs the user id), so failures
// propagate rather than degrading.
func (c *Client) Me(ctx context.Context, bearer string) (*User, error) {
	var user User
	if err := c.doRequest(ctx, http.MethodGet, "/me", bearer, nil, &user); err != nil {
		return nil, fmt.Errorf("failed to fetch user profile: %w", err)
	}
	return &user, nil
}

// CreatePlaylist creates a playlist on the user's account and returns its id
// and external URL.
func (c *Client) CreatePlaylist(ctx context.Context, bearer, userID, name, description string) (string, string, error) {
	endpoint := fmt.Sprintf("/users/%s/playlists", url.PathEscape(userID))
	body := createPlaylistRequest{Name: name, Description: description, Public: false}

	var created createPlaylistResponse
	if err := c.doRequest(ctx, http.MethodPost, endpoint, bearer, body, &created); err != nil {
		return "", "", fmt.Errorf("failed to create playlist: %w", err)
	}
	if created.ID == "" {
		return "", "", fmt.Errorf("playlist creation returned no id")
	}

	return created.ID, created.ExternalURLs.Spotify, nil
}

// AddTracks adds track URIs to a playlist, batching additions in chunks no
// larger than the catalog API's per-request limit.
func (c *Client) AddTracks(ctx context.Context, bearer, playlistID string, uris []string) error {
	endpoint := fmt.Sprintf("/playlists/%s/tracks", url.PathEscape(playlistID))

	for start := 0; start < len(uris); start += addTracksChunkSize {
		end := min(start+addTracksChunkSize, len(uris))

		body := addTracksRequest{URIs: uris[start:end]}
		if err := c.doRequest(ctx, http.MethodPost, endpoint, bearer, body, nil); err != nil {
			return fmt.Errorf("failed to add tracks %d-%d: %w", start, end, err)
		}
	}

	return nil
}
