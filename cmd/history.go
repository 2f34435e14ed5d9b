package main

import (
	"context"
	"fmt"
	"time"

	"github.com/desertthunder/crate/internal/models"
	"github.com/desertthunder/crate/internal/shared"
	"github.com/desertthunder/crate/internal/ui"
	"github.com/dustin/go-humanize"
	"github.com/urfave/cli/v3"
)

const defaultHistoryRetention = 30 * 24 * time.Hour

type runView struct {
	ID         string     `json:"id"`
	Sequence   int        `json:"sequence"`
	Operation  string     `json:"operation"`
	PlaylistID string     `json:"playlist_id"`
	Status     string     `json:"status"`
	Added      int        `json:"added"`
	Removed    int        `json:"removed"`
	Message    string     `json:"message,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}

func newRunView(run *models.SyncRun) runView {
	return runView{
		ID:         run.ID(),
		Sequence:   run.Sequence(),
		Operation:  run.Operation(),
		PlaylistID: run.PlaylistID(),
		Status:     string(run.Status()),
		Added:      run.Added(),
		Removed:    run.Removed(),
		Message:    run.Message(),
		CreatedAt:  run.CreatedAt(),
		FinishedAt: run.FinishedAt(),
	}
}

func parseStatus(s string) (models.RunStatus, error) {
	switch status := models.RunStatus(s); status {
	case "", models.RunPending, models.RunSucceeded, models.RunFailed:
		return status, nil
	default:
		return "", fmt.Errorf("%w: unknown status %q", shared.ErrInvalidArgument, s)
	}
}

// History lists recorded sync runs, newest first.
func (r *Runner) History(ctx context.Context, cmd *cli.Command) error {
	status, err := parseStatus(cmd.String("status"))
	if err != nil {
		return err
	}

	repo, err := r.history()
	if err != nil {
		return err
	}

	runs, err := repo.List(map[string]any{
		"playlist_id": cmd.String("playlist"),
		"status":      status,
		"limit":       cmd.Int("limit"),
	})
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		views := make([]runView, 0, len(runs))
		for _, run := range runs {
			views = append(views, newRunView(run))
		}
		return r.writeJSON(views, true)
	}

	if len(runs) == 0 {
		r.writePlain("No runs recorded yet.\n")
		return nil
	}

	for _, run := range runs {
		r.writePlain("#%-4d %-12s %-24s %s  +%d -%d  %s\n",
			run.Sequence(), run.Operation(), run.PlaylistID(), statusLabel(run.Status()),
			run.Added(), run.Removed(), humanize.Time(run.CreatedAt()))
		if run.Status() == models.RunFailed && run.Message() != "" {
			r.writePlain("      %s\n", ui.Styles.Help(run.Message()))
		}
	}
	return nil
}

// HistoryPrune soft-deletes finished runs older than --older-than.
func (r *Runner) HistoryPrune(ctx context.Context, cmd *cli.Command) error {
	age := cmd.Duration("older-than")
	if age <= 0 {
		return fmt.Errorf("%w: --older-than must be positive", shared.ErrInvalidArgument)
	}

	repo, err := r.history()
	if err != nil {
		return err
	}

	cutoff := time.Now().Add(-age)
	n, err := repo.Prune(cutoff)
	if err != nil {
		return err
	}

	r.logger.Info("pruned sync history", "deleted", n, "cutoff", cutoff)
	r.writePlain("✓ Deleted %d runs from before %s\n", n, humanize.Time(cutoff))
	return nil
}

func statusLabel(s models.RunStatus) string {
	label := fmt.Sprintf("%-9s", s)
	switch s {
	case models.RunSucceeded:
		return ui.Styles.OK(label)
	case models.RunFailed:
		return ui.Styles.Err(label)
	default:
		return ui.Styles.Warn(label)
	}
}
