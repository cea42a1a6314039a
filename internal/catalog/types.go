package catalog

// Catalog API response types based on https://developer.spotify.com/documentation/web-api/reference/

// Image represents an image resource.
type Image struct {
	URL    string `json:"url"`
	Height int    `json:"height"`
	Width  int    `json:"width"`
}

// Artist represents a catalog artist.
type Artist struct {
	ID     string   `json:"id"`
	Name   string   `json:"name"`
	Genres []string `json:"genres"`
	Images []Image  `json:"images"`
	URI    string   `json:"uri"`
}

type externalURLs struct {
	Spotify string `json:"spotify"`
}

// Album represents a catalog album.
type Album struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	ReleaseDate string  `json:"release_date"`
	Images      []Image `json:"images"`
}

// Track represents a catalog track.
type Track struct {
	ID           string       `json:"id"`
	Name         string       `json:"name"`
	Artists      []Artist     `json:"artists"`
	Album        Album        `json:"album"`
	DurationMS   int          `json:"duration_ms"`
	Explicit     bool         `json:"explicit"`
	Popularity   int          `json:"popularity"`
	URI          string       `json:"uri"`
	ExternalURLs externalURLs `json:"external_urls"`
}

// ExternalURL returns the canonical web URL for the track.
func (t Track) ExternalURL() string {
	return t.ExternalURLs.Spotify
}

// ArtistNames returns the names of all credited artists, in credit order.
func (t Track) ArtistNames() []string {
	names := make([]string, 0, len(t.Artists))
	for _, artist := range t.Artists {
		names = append(names, artist.Name)
	}
	return names
}

// CoverImage returns the first album image URL, if any.
func (t Track) CoverImage() string {
	if len(t.Album.Images) == 0 {
		return ""
	}
	return t.Album.Images[0].URL
}

type owner struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
}

type playlistTrackRefs struct {
	Total int `json:"total"`
}

// SimplePlaylist represents a playlist object as returned in listings.
type SimplePlaylist struct {
	ID           string            `json:"id"`
	Name         string            `json:"name"`
	Description  string            `json:"description"`
	Owner        owner             `json:"owner"`
	Public       bool              `json:"public"`
	Tracks       playlistTrackRefs `json:"tracks"`
	Images       []Image           `json:"images"`
	ExternalURLs externalURLs      `json:"external_urls"`
}

type playlistTrackItem struct {
	AddedAt string `json:"added_at"`
	Track   Track  `json:"track"`
}

type paginatedPlaylistTracks struct {
	Items  []playlistTrackItem `json:"items"`
	Total  int                 `json:"total"`
	Limit  int                 `json:"limit"`
	Offset int                 `json:"offset"`
	Next   *string             `json:"next"`
}

type paginatedPlaylists struct {
	Items  []SimplePlaylist `json:"items"`
	Total  int              `json:"total"`
	Limit  int              `json:"limit"`
	Offset int              `json:"offset"`
	Next   *string          `json:"next"`
}

type searchResponse struct {
	Tracks struct {
		Items []Track `json:"items"`
		Next  *string `json:"next"`
	} `json:"tracks"`
	Artists struct {
		Items []Artist `json:"items"`
	} `json:"artists"`
}

type topTracksResponse struct {
	Tracks []Track `json:"tracks"`
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

// User represents the authenticated catalog user profile.
type User struct {
	ID          string  `json:"id"`
	DisplayName string  `json:"display_name"`
	Email       string  `json:"email"`
	Country     string  `json:"country"`
	Product     string  `json:"product"`
	Images      []Image `json:"images"`
}

type createPlaylistRequest struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Public      bool   `json:"public"`
}

type createPlaylistResponse struct {
	ID           string       `json:"id"`
	Name         string       `json:"name"`
	ExternalURLs externalURLs `json:"external_urls"`
}

type addTracksRequest struct {
	URIs []string `json:"uris"`
}
