// package models defines the data model for the playlist generation service.
//
// The structured {song, artist} pair is the single source of truth for song
// identity. Display strings are always derived, never stored. VerifiedSong
// values are produced only by the verify package.
package models
