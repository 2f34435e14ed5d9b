package tasks

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/crate/internal/models"
	"github.com/desertthunder/crate/internal/services"
	"github.com/desertthunder/crate/internal/shared"
)

// TrimBoundary returns the index at which state should be cut to keep about keep tracks.
//
// The cut moves forward past the album of the last kept track, so the result is keep or more and always falls on
// an album transition. Tracks without an album identifier never extend the cut.
func TrimBoundary(state []models.Track, keep int) int {
	if len(state) <= keep {
		return len(state)
	}
	if keep <= 0 {
		return 0
	}

	i := keep - 1
	for i+1 < len(state) && state[i].Album.ID != "" && state[i+1].Album.ID == state[i].Album.ID {
		i++
	}
	return i + 1
}

// Trimmer enforces a maximum playlist length on album boundaries.
type Trimmer struct {
	remote  services.Remote
	applier *Applier
	logger  *log.Logger
}

// NewTrimmer creates a trimmer that removes through applier.
func NewTrimmer(remote services.Remote, applier *Applier, opts Opts) *Trimmer {
	opts = opts.withDefaults()
	return &Trimmer{remote: remote, applier: applier, logger: opts.Logger}
}

// Trim cuts playlistID back to keepCount tracks, extended to the end of the album at the cut. keepCount <= 0
// removes everything.
//
// Removal is by identifier and removes every occurrence, so a track that is both before and after the cut is
// removed entirely.
func (t *Trimmer) Trim(ctx context.Context, playlistID string, keepCount int) ([]models.Track, error) {
	state, err := services.PlaylistState(ctx, t.remote, playlistID)
	if err != nil {
		return nil, fmt.Errorf("%w: playlist %s: %w", shared.ErrRemoteRead, playlistID, err)
	}

	cut := TrimBoundary(state, keepCount)
	if cut >= len(state) {
		return nil, nil
	}

	removed := state[cut:]
	for _, tr := range removed {
		if !tr.Local() {
			t.logger.Infof("Removing %s", tr)
		}
	}

	if _, err := t.applier.RemoveTracks(ctx, playlistID, models.UniqueIDs(removed)); err != nil {
		return nil, err
	}
	return removed, nil
}
