package services

import (
	"context"

	"github.com/desertthunder/crate/internal/models"
	"github.com/desertthunder/crate/internal/paging"
)

// Remote API hard limits.
const (
	ReadBatch  = 50
	WriteBatch = 99
)

// Remote is an authenticated session with the streaming service.
//
// Saved albums and saved tracks are listed newest-saved first. Playlist items are listed in position order.
type Remote interface {
	SavedAlbums(ctx context.Context, offset, limit int) (paging.Page[models.SavedAlbum], error)
	SavedTracks(ctx context.Context, offset, limit int) (paging.Page[models.SavedTrack], error)
	PlaylistItems(ctx context.Context, playlistID string, offset, limit int) (paging.Page[models.Track], error)

	// Tracks resolves up to [ReadBatch] identifiers. Unknown identifiers are omitted from the result.
	Tracks(ctx context.Context, ids []string) ([]models.Track, error)

	// AddItems inserts ids at position, or appends them when position is nil.
	AddItems(ctx context.Context, playlistID string, ids []string, position *int) error
	RemoveAllOccurrences(ctx context.Context, playlistID string, ids []string) error
	// ReplaceItems sets the playlist to exactly ids. An empty ids clears it.
	ReplaceItems(ctx context.Context, playlistID string, ids []string) error
	SetDetails(ctx context.Context, playlistID, description string) error
}

// PlaylistPages adapts [Remote.PlaylistItems] for one playlist to a [paging.PageFunc].
func PlaylistPages(r Remote, playlistID string) paging.PageFunc[models.Track] {
	return func(ctx context.Context, offset, limit int) (paging.Page[models.Track], error) {
		return r.PlaylistItems(ctx, playlistID, offset, limit)
	}
}

// PlaylistState reads the full contents of a playlist in position order.
func PlaylistState(ctx context.Context, r Remote, playlistID string) ([]models.Track, error) {
	return paging.Collect(paging.Items(ctx, PlaylistPages(r, playlistID), ReadBatch))
}
