package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/crate/internal/models"
	"github.com/desertthunder/crate/internal/shared"
)

const syncRunColumns = `id, sequence, operation, playlist_id, status, added, removed, message,
	created_at, updated_at, finished_at, deleted_at`

// SyncRunRepository implements models.Repository[*models.SyncRun] for sync history.
type SyncRunRepository struct {
	db *sql.DB
}

// NewSyncRunRepository creates a new SyncRunRepository with the given database connection
func NewSyncRunRepository(db *sql.DB) *SyncRunRepository {
	return &SyncRunRepository{db: db}
}

// Create inserts a new run with generated ID and sequence
func (r *SyncRunRepository) Create(run *models.SyncRun) error {
	return r.CreateContext(context.Background(), run)
}

// CreateContext is [SyncRunRepository.Create] bound to ctx.
func (r *SyncRunRepository) CreateContext(ctx context.Context, run *models.SyncRun) error {
	if err := run.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	sequence, err := NextSequence(ctx, r.db, "sync_runs")
	if err != nil {
		return fmt.Errorf("failed to generate sequence: %w", err)
	}

	id := shared.GenerateID()
	run.SetID(id)
	run.SetSequence(sequence)

	query := `
		INSERT INTO sync_runs (id, sequence, operation, playlist_id, status, added, removed, message,
			created_at, updated_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = r.db.ExecContext(ctx, query,
		id,
		sequence,
		run.Operation(),
		run.PlaylistID(),
		run.Status(),
		run.Added(),
		run.Removed(),
		run.Message(),
		run.CreatedAt(),
		run.UpdatedAt(),
		run.FinishedAt(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert sync run: %w", err)
	}

	return nil
}

// Get retrieves a run by ID, excluding soft-deleted runs
func (r *SyncRunRepository) Get(id string) (*models.SyncRun, error) {
	query := `SELECT ` + syncRunColumns + ` FROM sync_runs WHERE id = ? AND deleted_at IS NULL`
	return scanSyncRun(r.db.QueryRow(query, id))
}

// Update writes the run's status, counts and timestamps
func (r *SyncRunRepository) Update(run *models.SyncRun) error {
	return r.UpdateContext(context.Background(), run)
}

// UpdateContext is [SyncRunRepository.Update] bound to ctx.
func (r *SyncRunRepository) UpdateContext(ctx context.Context, run *models.SyncRun) error {
	if err := run.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	now := time.Now().UTC()
	run.SetUpdatedAt(now)

	query := `
		UPDATE sync_runs
		SET status = ?, added = ?, removed = ?, message = ?, updated_at = ?, finished_at = ?
		WHERE id = ? AND deleted_at IS NULL
	`

	result, err := r.db.ExecContext(ctx, query,
		run.Status(),
		run.Added(),
		run.Removed(),
		run.Message(),
		now,
		run.FinishedAt(),
		run.ID(),
	)
	if err != nil {
		return fmt.Errorf("failed to update sync run: %w", err)
	}

	return expectAffected(result, run.ID())
}

// Delete soft-deletes a run by ID
func (r *SyncRunRepository) Delete(id string) error {
	query := `UPDATE sync_runs SET deleted_at = ? WHERE id = ? AND deleted_at IS NULL`

	result, err := r.db.Exec(query, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to delete sync run: %w", err)
	}

	return expectAffected(result, id)
}

// List retrieves runs newest first, excluding soft-deleted runs.
//
// Supported criteria: "playlist_id" and "operation" (string), "status" ([models.RunStatus]) and "limit" (int).
func (r *SyncRunRepository) List(criteria map[string]any) ([]*models.SyncRun, error) {
	query := `SELECT ` + syncRunColumns + ` FROM sync_runs WHERE deleted_at IS NULL`
	args := []any{}

	if playlistID, ok := criteria["playlist_id"].(string); ok && playlistID != "" {
		query += " AND playlist_id = ?"
		args = append(args, playlistID)
	}

	if operation, ok := criteria["operation"].(string); ok && operation != "" {
		query += " AND operation = ?"
		args = append(args, operation)
	}

	if status, ok := criteria["status"].(models.RunStatus); ok && status != "" {
		query += " AND status = ?"
		args = append(args, status)
	}

	query += " ORDER BY sequence DESC"

	if limit, ok := criteria["limit"].(int); ok && limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query sync runs: %w", err)
	}
	defer rows.Close()

	var runs []*models.SyncRun
	for rows.Next() {
		run, err := scanSyncRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return runs, nil
}

// Latest returns the most recent run against playlistID.
func (r *SyncRunRepository) Latest(playlistID string) (*models.SyncRun, error) {
	runs, err := r.List(map[string]any{"playlist_id": playlistID, "limit": 1})
	if err != nil {
		return nil, err
	}
	if len(runs) == 0 {
		return nil, fmt.Errorf("%w: no runs for playlist %s", shared.ErrRecordNotFound, playlistID)
	}
	return runs[0], nil
}

// Prune soft-deletes finished runs created before cutoff and returns how many were deleted.
func (r *SyncRunRepository) Prune(cutoff time.Time) (int, error) {
	query := `
		UPDATE sync_runs
		SET deleted_at = ?
		WHERE created_at < ? AND status != ? AND deleted_at IS NULL
	`

	result, err := r.db.Exec(query, time.Now().UTC(), cutoff.UTC(), models.RunPending)
	if err != nil {
		return 0, fmt.Errorf("failed to prune sync runs: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get affected rows: %w", err)
	}
	return int(rows), nil
}

func expectAffected(result sql.Result, id string) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: sync run %s not found or already deleted", shared.ErrRecordNotFound, id)
	}
	return nil
}

func scanSyncRun(row scanner) (*models.SyncRun, error) {
	var (
		id         string
		sequence   int
		operation  string
		playlistID string
		status     string
		added      int
		removed    int
		message    string
		createdAt  time.Time
		updatedAt  time.Time
		finishedAt sql.NullTime
		deletedAt  sql.NullTime
	)

	err := row.Scan(&id, &sequence, &operation, &playlistID, &status, &added, &removed, &message,
		&createdAt, &updatedAt, &finishedAt, &deletedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: sync run", shared.ErrRecordNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan sync run: %w", err)
	}

	run := models.NewSyncRun(sequence, operation, playlistID)
	run.SetID(id)
	run.SetStatus(models.RunStatus(status), message)
	run.SetCounts(added, removed)
	run.SetCreatedAt(createdAt)
	run.SetUpdatedAt(updatedAt)
	if finishedAt.Valid {
		run.SetFinishedAt(&finishedAt.Time)
	}
	if deletedAt.Valid {
		run.SetDeletedAt(&deletedAt.Time)
	}

	return run, nil
}
