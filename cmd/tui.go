package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/crate/internal/shared"
	"github.com/desertthunder/crate/internal/tasks"
	"github.com/desertthunder/crate/internal/ui"
	"github.com/urfave/cli/v3"
)

// operations lists the configured playlists as TUI entries. Playlists without an ID are left out.
func (r *Runner) operations() []ui.Operation {
	cfg := r.config.Playlists
	var ops []ui.Operation

	add := func(name, id, description string, fn syncFunc) {
		if id == "" {
			return
		}
		ops = append(ops, ui.Operation{
			Name:        name,
			PlaylistID:  id,
			Description: description,
			Run: func(ctx context.Context, progress chan<- tasks.ProgressUpdate) (tasks.SyncResult, error) {
				engine, _, err := r.engine(ctx, progress)
				if err != nil {
					return tasks.SyncResult{}, err
				}
				defer r.persistToken()
				return r.record(ctx, name, id, func() (tasks.SyncResult, error) {
					return fn(ctx, engine)
				})
			},
		})
	}

	add(opRecent, cfg.Recent.ID, fmt.Sprintf("Add new tracks and keep about %d", cfg.Recent.Count),
		func(ctx context.Context, e *tasks.Engine) (tasks.SyncResult, error) {
			return e.UpdateRecentlyAdded(ctx, cfg.Recent.ID, cfg.Recent.Count)
		})
	add(opEverything, cfg.Everything.ID,
		fmt.Sprintf("%d recent tracks then %d sampled", cfg.Everything.RecentCount, cfg.Everything.TotalCount),
		func(ctx context.Context, e *tasks.Engine) (tasks.SyncResult, error) {
			return e.UpdateEverything(ctx, cfg.Everything.ID, cfg.Everything.RecentCount, cfg.Everything.TotalCount)
		})
	add(opWeekly, cfg.Weekly.ID, fmt.Sprintf("Sample %d tracks", cfg.Weekly.Count),
		func(ctx context.Context, e *tasks.Engine) (tasks.SyncResult, error) {
			return e.UpdateWeeklySample(ctx, cfg.Weekly.ID, cfg.Weekly.Count)
		})
	add(opLiked, cfg.Liked.ID, "Every cached liked track",
		func(ctx context.Context, e *tasks.Engine) (tasks.SyncResult, error) {
			return e.UpdateLiked(ctx, cfg.Liked.ID)
		})

	return ops
}

// TUI launches the interactive picker over the configured playlists.
func (r *Runner) TUI(ctx context.Context, cmd *cli.Command) error {
	ops := r.operations()
	if len(ops) == 0 {
		return fmt.Errorf("%w: no playlist IDs in the [playlists] config section", shared.ErrMissingConfig)
	}

	// Logs would draw over the TUI, so they go to a file while it runs.
	logPath := filepath.Join(shared.DataDir(), "tui.log")
	if err := os.MkdirAll(filepath.Dir(logPath), 0755); err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}
	logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer logFile.Close()

	previous := r.logger
	r.SetLogger(shared.NewLogger(logFile))
	defer r.SetLogger(previous)

	p := tea.NewProgram(ui.NewModel(ctx, ops), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}
	return nil
}
