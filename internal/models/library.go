package models

import (
	"strings"
	"time"
)

// UnknownArtist is displayed for tracks without artist credits.
const UnknownArtist = "Unknown"

// AlbumRef identifies the album a [Track] belongs to.
type AlbumRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Track is a single recording as cached in the library snapshot.
//
// An empty ID marks a local track (a user upload without a stable remote identifier).
type Track struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Artists     []string `json:"artists"`
	Album       AlbumRef `json:"album"`
	TrackNumber int      `json:"track_number"`
	DurationMS  int      `json:"duration_ms"`
}

// Local reports whether the track lacks a remote identifier.
func (t Track) Local() bool {
	return t.ID == ""
}

// Artist returns the primary artist credit.
func (t Track) Artist() string {
	if len(t.Artists) == 0 {
		return UnknownArtist
	}
	return t.Artists[0]
}

// String renders the track as "Artist - Title".
func (t Track) String() string {
	return t.Artist() + " - " + t.Name
}

// SearchText is the haystack used for cache searches: title, every artist, then album name.
func (t Track) SearchText() string {
	return t.Name + " " + strings.Join(t.Artists, " ") + " " + t.Album.Name
}

// Album is an album with its ordered track listing.
type Album struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Artists     []string `json:"artists"`
	Tracks      []Track  `json:"tracks"`
	Genres      []string `json:"genres"`
	TotalTracks int      `json:"total_tracks"`
	ReleaseDate string   `json:"release_date,omitempty"`
}

// TrackIDs returns the identifiers of the album's non-local tracks in listing order.
func (a Album) TrackIDs() []string {
	return IDs(a.Tracks)
}

// SavedTrack is a track in the user's library.
//
// For tracks reached through a saved album AddedAt is the album's save time.
type SavedTrack struct {
	Track
	AddedAt time.Time `json:"added_at"`
}

// SavedAlbum is an album in the user's library.
type SavedAlbum struct {
	Album
	AddedAt time.Time `json:"added_at"`
}

// Tracks strips save timestamps.
func Tracks(saved []SavedTrack) []Track {
	tracks := make([]Track, 0, len(saved))
	for _, s := range saved {
		tracks = append(tracks, s.Track)
	}
	return tracks
}

// Albums strips save timestamps.
func Albums(saved []SavedAlbum) []Album {
	albums := make([]Album, 0, len(saved))
	for _, s := range saved {
		albums = append(albums, s.Album)
	}
	return albums
}

// IDs returns the identifiers of tracks in order, skipping local tracks.
func IDs(tracks []Track) []string {
	ids := make([]string, 0, len(tracks))
	for _, t := range tracks {
		if t.Local() {
			continue
		}
		ids = append(ids, t.ID)
	}
	return ids
}

// UniqueIDs is [IDs] with duplicates removed, keeping the first occurrence.
func UniqueIDs(tracks []Track) []string {
	seen := make(map[string]struct{}, len(tracks))
	ids := make([]string, 0, len(tracks))
	for _, id := range IDs(tracks) {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	return ids
}

// IDSet indexes the non-local tracks by identifier.
func IDSet(tracks []Track) map[string]struct{} {
	set := make(map[string]struct{}, len(tracks))
	for _, id := range IDs(tracks) {
		set[id] = struct{}{}
	}
	return set
}
