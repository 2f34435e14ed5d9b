package tasks

import (
	"context"
	"fmt"
	"slices"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/crate/internal/models"
	"github.com/desertthunder/crate/internal/services"
	"github.com/desertthunder/crate/internal/shared"
)

// Applier writes track lists to a playlist in remote-sized pages.
type Applier struct {
	remote   services.Remote
	logger   *log.Logger
	progress chan<- ProgressUpdate
}

// NewApplier creates an applier writing through remote.
func NewApplier(remote services.Remote, opts Opts) *Applier {
	opts = opts.withDefaults()
	return &Applier{remote: remote, logger: opts.Logger, progress: opts.Progress}
}

func pages(n int) int {
	return (n + services.WriteBatch - 1) / services.WriteBatch
}

// AddTracks adds tracks to playlistID without duplicates, keeping the first occurrence of each identifier.
//
// With a position, successive pages are inserted right after the previous ones so the whole list lands
// contiguously at position. It returns how many items were added, including pages written before a failure.
func (a *Applier) AddTracks(ctx context.Context, playlistID string, tracks []models.Track, position *int) (int, error) {
	ids := models.UniqueIDs(tracks)
	total := pages(len(ids))

	added := 0
	step := 0
	for page := range slices.Chunk(ids, services.WriteBatch) {
		step++
		var pos *int
		if position != nil {
			p := *position + added
			pos = &p
		}

		if err := a.remote.AddItems(ctx, playlistID, page, pos); err != nil {
			return added, fmt.Errorf("%w: add page %d/%d to %s: %w", shared.ErrRemoteWrite, step, total, playlistID, err)
		}
		added += len(page)
		sendProgress(a.progress, addTracksUpdate(step, total))
	}

	if added > 0 {
		a.logger.Debug("added tracks", "playlist", playlistID, "count", added, "pages", total)
	}
	return added, nil
}

// RemoveTracks removes every occurrence of ids from playlistID and returns how many identifiers were sent.
func (a *Applier) RemoveTracks(ctx context.Context, playlistID string, ids []string) (int, error) {
	total := pages(len(ids))

	removed := 0
	step := 0
	for page := range slices.Chunk(ids, services.WriteBatch) {
		step++
		if err := a.remote.RemoveAllOccurrences(ctx, playlistID, page); err != nil {
			return removed, fmt.Errorf("%w: remove page %d/%d from %s: %w", shared.ErrRemoteWrite, step, total, playlistID, err)
		}
		removed += len(page)
		sendProgress(a.progress, removeTracksUpdate(step, total))
	}
	return removed, nil
}

// ClearPlaylist empties playlistID in one call.
func (a *Applier) ClearPlaylist(ctx context.Context, playlistID string) error {
	sendProgress(a.progress, clearPlaylistUpdate(playlistID))
	if err := a.remote.ReplaceItems(ctx, playlistID, nil); err != nil {
		return fmt.Errorf("%w: clear %s: %w", shared.ErrRemoteWrite, playlistID, err)
	}
	return nil
}
