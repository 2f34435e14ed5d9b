package testing

import (
	"fmt"
	"time"

	"github.com/desertthunder/crate/internal/models"
)

// Epoch is the base timestamp of generated fixtures.
var Epoch = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

// Day returns Epoch plus n days.
func Day(n int) time.Time {
	return Epoch.AddDate(0, 0, n)
}

// MakeAlbum builds a saved album with n tracks named "<id>-1".."<id>-n", numbered from 1.
func MakeAlbum(id string, addedAt time.Time, n int) models.SavedAlbum {
	ref := models.AlbumRef{ID: id, Name: "Album " + id}
	tracks := make([]models.Track, 0, n)
	for i := 1; i <= n; i++ {
		tracks = append(tracks, models.Track{
			ID:          fmt.Sprintf("%s-%d", id, i),
			Name:        fmt.Sprintf("Song %d of %s", i, id),
			Artists:     []string{"Artist " + id},
			Album:       ref,
			TrackNumber: i,
		})
	}
	return models.SavedAlbum{
		Album: models.Album{
			ID:          id,
			Name:        ref.Name,
			Artists:     []string{"Artist " + id},
			Tracks:      tracks,
			TotalTracks: n,
		},
		AddedAt: addedAt,
	}
}

// MakeTrack builds a single-track release: the track id doubles as its album id.
func MakeTrack(id string, addedAt time.Time) models.SavedTrack {
	return models.SavedTrack{
		Track: models.Track{
			ID:          id,
			Name:        "Song " + id,
			Artists:     []string{"Artist " + id},
			Album:       models.AlbumRef{ID: "single-" + id, Name: "Single " + id},
			TrackNumber: 1,
		},
		AddedAt: addedAt,
	}
}

// TracksOf flattens the tracks of albums in order.
func TracksOf(albums ...models.SavedAlbum) []models.Track {
	var tracks []models.Track
	for _, a := range albums {
		tracks = append(tracks, a.Tracks...)
	}
	return tracks
}
