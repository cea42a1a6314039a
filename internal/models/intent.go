package models

// IntentType enumerates the kinds of contextual data a chat message can ask for.
type IntentType string

const (
	IntentPopularTracks            IntentType = "popular_tracks"
	IntentPopularArtists           IntentType = "popular_artists"
	IntentPopularTracksFromArtists IntentType = "popular_tracks_from_artists"
	IntentGenreMoodPlaylists       IntentType = "genre_mood_playlists"
)

// IntentTypes lists every known intent type, in registration order.
func IntentTypes() []IntentType {
	return []IntentType{
		IntentPopularTracks,
		IntentPopularArtists,
		IntentPopularTracksFromArtists,
		IntentGenreMoodPlaylists,
	}
}

// Valid reports whether t is a known intent type.
func (t IntentType) Valid() bool {
	switch t {
	case IntentPopularTracks, IntentPopularArtists, IntentPopularTracksFromArtists, IntentGenreMoodPlaylists:
		return true
	}
	return false
}

// Intent pairs a detected intent type with the classifier's confidence.
//
// Multiple intents may coexist for one message. Confidence below the
// configured threshold is treated as absent.
type Intent struct {
	Type       IntentType `json:"intentType"`
	Confidence float64    `json:"confidence"`
}
