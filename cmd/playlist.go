package main

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/desertthunder/crate/internal/models"
	"github.com/desertthunder/crate/internal/shared"
	"github.com/desertthunder/crate/internal/tasks"
	"github.com/desertthunder/crate/internal/ui"
	"github.com/urfave/cli/v3"
)

// Operation names recorded in the sync history.
const (
	opRecent     = "recent"
	opTrim       = "trim"
	opEverything = "everything"
	opWeekly     = "weekly"
	opLiked      = "liked"
	opSearch     = "search"
)

func playlistFlag(cmd *cli.Command, fallback string) (string, error) {
	id := cmd.String("id")
	if id == "" {
		id = fallback
	}
	if id == "" {
		return "", fmt.Errorf("%w: --id (or set it in the [playlists] config section)", shared.ErrMissingArgument)
	}
	return id, nil
}

func countFlag(cmd *cli.Command, name string, fallback int) (int, error) {
	n := fallback
	if cmd.IsSet(name) {
		n = cmd.Int(name)
	}
	if n < 0 {
		return 0, fmt.Errorf("%w: --%s must not be negative", shared.ErrInvalidArgument, name)
	}
	return n, nil
}

// PlaylistRecent adds recently saved tracks to the recent playlist and trims it back to --count.
func (r *Runner) PlaylistRecent(ctx context.Context, cmd *cli.Command) error {
	cfg := r.config.Playlists.Recent
	id, err := playlistFlag(cmd, cfg.ID)
	if err != nil {
		return err
	}
	n, err := countFlag(cmd, "count", cfg.Count)
	if err != nil {
		return err
	}

	if cmd.Bool("no-trim") {
		return r.runSync(ctx, opRecent, id, func(ctx context.Context, e *tasks.Engine) (tasks.SyncResult, error) {
			recent, err := e.Reconciler().RecentlyAdded(ctx, n)
			if err != nil {
				return tasks.SyncResult{}, err
			}
			return e.AddNewTracks(ctx, id, models.Tracks(recent))
		})
	}

	return r.runSync(ctx, opRecent, id, func(ctx context.Context, e *tasks.Engine) (tasks.SyncResult, error) {
		return e.UpdateRecentlyAdded(ctx, id, n)
	})
}

// PlaylistTrim removes tracks past the first album boundary after --keep.
func (r *Runner) PlaylistTrim(ctx context.Context, cmd *cli.Command) error {
	id, err := playlistFlag(cmd, r.config.Playlists.Recent.ID)
	if err != nil {
		return err
	}
	keep, err := countFlag(cmd, "keep", 0)
	if err != nil {
		return err
	}

	return r.runSync(ctx, opTrim, id, func(ctx context.Context, e *tasks.Engine) (tasks.SyncResult, error) {
		return e.Trim(ctx, id, keep)
	})
}

// PlaylistEverything rebuilds the everything playlist.
func (r *Runner) PlaylistEverything(ctx context.Context, cmd *cli.Command) error {
	cfg := r.config.Playlists.Everything
	id, err := playlistFlag(cmd, cfg.ID)
	if err != nil {
		return err
	}
	nRecent, err := countFlag(cmd, "recent", cfg.RecentCount)
	if err != nil {
		return err
	}
	nTotal, err := countFlag(cmd, "total", cfg.TotalCount)
	if err != nil {
		return err
	}

	return r.runSync(ctx, opEverything, id, func(ctx context.Context, e *tasks.Engine) (tasks.SyncResult, error) {
		return e.UpdateEverything(ctx, id, nRecent, nTotal)
	})
}

// PlaylistWeekly rebuilds the weekly sample playlist.
func (r *Runner) PlaylistWeekly(ctx context.Context, cmd *cli.Command) error {
	cfg := r.config.Playlists.Weekly
	id, err := playlistFlag(cmd, cfg.ID)
	if err != nil {
		return err
	}
	n, err := countFlag(cmd, "count", cfg.Count)
	if err != nil {
		return err
	}

	return r.runSync(ctx, opWeekly, id, func(ctx context.Context, e *tasks.Engine) (tasks.SyncResult, error) {
		return e.UpdateWeeklySample(ctx, id, n)
	})
}

// PlaylistLiked rebuilds the liked playlist from the cache.
func (r *Runner) PlaylistLiked(ctx context.Context, cmd *cli.Command) error {
	id, err := playlistFlag(cmd, r.config.Playlists.Liked.ID)
	if err != nil {
		return err
	}

	return r.runSync(ctx, opLiked, id, func(ctx context.Context, e *tasks.Engine) (tasks.SyncResult, error) {
		return e.UpdateLiked(ctx, id)
	})
}

// PlaylistSearch rebuilds --id from the cached tracks matching the query argument.
func (r *Runner) PlaylistSearch(ctx context.Context, cmd *cli.Command) error {
	query := cmd.StringArg("query")
	if strings.TrimSpace(query) == "" {
		return fmt.Errorf("%w: query", shared.ErrMissingArgument)
	}
	id, err := playlistFlag(cmd, "")
	if err != nil {
		return err
	}

	return r.runSync(ctx, opSearch, id, func(ctx context.Context, e *tasks.Engine) (tasks.SyncResult, error) {
		return e.AddSearchedTracks(ctx, id, query)
	})
}

type syncFunc func(ctx context.Context, e *tasks.Engine) (tasks.SyncResult, error)

// runSync runs fn with progress printed as it arrives, records it in the history and prints what changed.
//
// The summary is printed even when fn fails, since batches written before the failure stay applied.
func (r *Runner) runSync(ctx context.Context, operation, playlistID string, fn syncFunc) error {
	progress := make(chan tasks.ProgressUpdate, 50)
	printed := make(chan struct{})
	go func() {
		defer close(printed)
		for update := range progress {
			r.logger.Debug("progress", "phase", update.Phase, "step", update.Step, "total", update.Total)
			r.writePlain("→ %s\n", update.Message)
		}
	}()

	engine, _, err := r.engine(ctx, progress)
	if err != nil {
		close(progress)
		<-printed
		return err
	}
	defer r.persistToken()

	r.logger.Info("running playlist update", "operation", operation, "playlist", playlistID)
	res, err := r.record(ctx, operation, playlistID, func() (tasks.SyncResult, error) {
		return fn(ctx, engine)
	})
	close(progress)
	<-printed

	r.writeSummary(operation, playlistID, res, err)
	return err
}

func (r *Runner) writeSummary(operation, playlistID string, res tasks.SyncResult, err error) {
	r.writePlain("\n")
	r.writePlainHeader(fmt.Sprintf("%s: %s", operation, playlistID))
	for _, t := range slices.Concat(res.NewTracks, res.OldTracks) {
		r.writePlain("+ %s\n", t)
	}
	for _, t := range res.RemovedTracks {
		r.writePlain("- %s\n", t)
	}

	counts := fmt.Sprintf("%d added, %d removed", res.Added, res.Removed)
	switch {
	case err != nil:
		r.writePlain("%s\n", ui.Styles.Err("✗ Failed after "+counts))
	case res.Added == 0 && res.Removed == 0:
		r.writePlain("%s\n", ui.Styles.OK("✓ Playlist already up to date"))
	default:
		r.writePlain("%s\n", ui.Styles.OK("✓ "+counts))
	}
}
