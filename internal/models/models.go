package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/desertthunder/mixtape/internal/shared"
)

// Song represents a requested song as a structured {song, artist} pair.
//
// Both fields must be non-empty after trimming. A song-like value missing
// either field is a contract violation and fails construction.
type Song struct {
	Song   string `json:"song"`
	Artist string `json:"artist"`
}

// NewSong constructs a validated Song.
func NewSong(song, artist string) (Song, error) {
	s := Song{Song: strings.TrimSpace(song), Artist: strings.TrimSpace(artist)}
	if err := s.Validate(); err != nil {
		return Song{}, err
	}
	return s, nil
}

// Validate checks that both fields are non-empty after trimming.
func (s Song) Validate() error {
	if strings.TrimSpace(s.Song) == "" {
		return fmt.Errorf("%w: missing song title", shared.ErrInvalidSong)
	}
	if strings.TrimSpace(s.Artist) == "" {
		return fmt.Errorf("%w: missing artist", shared.ErrInvalidSong)
	}
	return nil
}

// Display returns the derived "song - artist" display string.
func (s Song) Display() string {
	return s.Song + " - " + s.Artist
}

// VerifiedSong is a Song annotated with the outcome of catalog verification.
type VerifiedSong struct {
	Song
	Verified   bool   `json:"verified"`
	CatalogID  string `json:"catalogId,omitempty"`
	CatalogURL string `json:"catalogUrl,omitempty"`
	Image      string `json:"image,omitempty"`
}

// Playlist is an ephemeral, per-conversation song list.
type Playlist struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Songs     []Song    `json:"songs"`
	CreatedAt time.Time `json:"createdAt"`
}

// NewPlaylist constructs a Playlist, validating every song.
func NewPlaylist(name string, songs []Song) (*Playlist, error) {
	for i, song := range songs {
		if err := song.Validate(); err != nil {
			return nil, fmt.Errorf("song %d: %w", i, err)
		}
	}
	return &Playlist{
		ID:        shared.GenerateID(),
		Name:      name,
		Songs:     songs,
		CreatedAt: time.Now(),
	}, nil
}

// AddSong appends a song to the playlist.
func (p *Playlist) AddSong(song Song) error {
	if err := song.Validate(); err != nil {
		return err
	}
	p.Songs = append(p.Songs, song)
	return nil
}

// RemoveSong deletes the song at index, preserving order.
func (p *Playlist) RemoveSong(index int) error {
	if index < 0 || index >= len(p.Songs) {
		return fmt.Errorf("%w: index %d out of range", shared.ErrInvalidArgument, index)
	}
	p.Songs = append(p.Songs[:index], p.Songs[index+1:]...)
	return nil
}

// ReplaceSong swaps the song at index for another.
func (p *Playlist) ReplaceSong(index int, song Song) error {
	if index < 0 || index >= len(p.Songs) {
		return fmt.Errorf("%w: index %d out of range", shared.ErrInvalidArgument, index)
	}
	if err := song.Validate(); err != nil {
		return err
	}
	p.Songs[index] = song
	return nil
}

// ReplaceSongs replaces the entire song list, as a refinement call does.
func (p *Playlist) ReplaceSongs(songs []Song) error {
	for i, song := range songs {
		if err := song.Validate(); err != nil {
			return fmt.Errorf("song %d: %w", i, err)
		}
	}
	p.Songs = songs
	return nil
}

// Artists returns the distinct artists across the playlist, case-sensitive,
// preserving first-seen order.
func (p *Playlist) Artists() []string {
	return UniqueArtists(p.Songs)
}

// UniqueArtists de-duplicates the artist field across songs, case-sensitive,
// preserving first-seen order.
func UniqueArtists(songs []Song) []string {
	seen := make(map[string]struct{}, len(songs))
	artists := []string{}
	for _, song := range songs {
		if _, ok := seen[song.Artist]; ok {
			continue
		}
		seen[song.Artist] = struct{}{}
		artists = append(artists, song.Artist)
	}
	return artists
}

// CuratorPlaylist is a cached snapshot entry for a curator-owned playlist.
type CuratorPlaylist struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Owner       string `json:"owner"`
	TrackCount  int    `json:"track_count"`
	Image       string `json:"image,omitempty"`
	ExternalURL string `json:"external_url,omitempty"`
}

// UserProfile holds the subset of the catalog user profile the service needs.
type UserProfile struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	Email       string `json:"email"`
	Country     string `json:"country"`
	Product     string `json:"product"`
}

// Session associates an opaque session id with the user's catalog credentials.
//
// Sessions expire by wall-clock comparison and are never proactively
// refreshed; an expired session requires re-authentication.
type Session struct {
	SessionID    string      `json:"session_id"`
	AccessToken  string      `json:"access_token"`
	RefreshToken string      `json:"refresh_token"`
	ExpiresAt    time.Time   `json:"expires_at"`
	UserID       string      `json:"user_id"`
	Profile      UserProfile `json:"profile"`
	CreatedAt    time.Time   `json:"created_at"`
}

// Expired reports whether the session's access token has expired.
func (s *Session) Expired() bool {
	return !s.ExpiresAt.IsZero() && time.Now().After(s.ExpiresAt)
}

// Market returns the user's catalog market, falling back to the provided default.
func (s *Session) Market(fallback string) string {
	if s.Profile.Country != "" {
		return s.Profile.Country
	}
	return fallback
}
