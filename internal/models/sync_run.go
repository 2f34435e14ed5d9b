package models

import (
	"fmt"
	"time"
)

// RunStatus is the lifecycle state of a [SyncRun].
type RunStatus string

const (
	RunPending   RunStatus = "pending"
	RunSucceeded RunStatus = "succeeded"
	RunFailed    RunStatus = "failed"
)

// SyncRun records one invocation of a sync operation against a playlist.
//
// Runs are written before the operation starts and finished afterwards, so an aborted operation leaves a
// pending row behind.
type SyncRun struct {
	id         string
	sequence   int
	operation  string
	playlistID string
	status     RunStatus
	added      int
	removed    int
	message    string
	createdAt  time.Time
	updatedAt  time.Time
	finishedAt *time.Time
	deletedAt  *time.Time
}

// NewSyncRun creates a pending run for operation against playlistID.
func NewSyncRun(sequence int, operation, playlistID string) *SyncRun {
	now := time.Now().UTC()
	return &SyncRun{
		sequence:   sequence,
		operation:  operation,
		playlistID: playlistID,
		status:     RunPending,
		createdAt:  now,
		updatedAt:  now,
	}
}

func (r *SyncRun) ID() string             { return r.id }
func (r *SyncRun) Sequence() int          { return r.sequence }
func (r *SyncRun) Operation() string      { return r.operation }
func (r *SyncRun) PlaylistID() string     { return r.playlistID }
func (r *SyncRun) Status() RunStatus      { return r.status }
func (r *SyncRun) Added() int             { return r.added }
func (r *SyncRun) Removed() int           { return r.removed }
func (r *SyncRun) Message() string        { return r.message }
func (r *SyncRun) CreatedAt() time.Time   { return r.createdAt }
func (r *SyncRun) UpdatedAt() time.Time   { return r.updatedAt }
func (r *SyncRun) FinishedAt() *time.Time { return r.finishedAt }
func (r *SyncRun) DeletedAt() *time.Time  { return r.deletedAt }

func (r *SyncRun) SetID(id string)              { r.id = id }
func (r *SyncRun) SetSequence(seq int)          { r.sequence = seq }
func (r *SyncRun) SetCreatedAt(t time.Time)     { r.createdAt = t }
func (r *SyncRun) SetUpdatedAt(t time.Time)     { r.updatedAt = t }
func (r *SyncRun) SetFinishedAt(t *time.Time)   { r.finishedAt = t }
func (r *SyncRun) SetDeletedAt(t *time.Time)    { r.deletedAt = t }
func (r *SyncRun) SetCounts(added, removed int) { r.added, r.removed = added, removed }
func (r *SyncRun) SetStatus(s RunStatus, message string) {
	r.status = s
	r.message = message
}

// Finish marks the run complete. A nil err means success.
func (r *SyncRun) Finish(added, removed int, err error) {
	now := time.Now().UTC()
	r.added, r.removed = added, removed
	r.finishedAt = &now
	r.updatedAt = now
	if err != nil {
		r.status = RunFailed
		r.message = err.Error()
		return
	}
	r.status = RunSucceeded
	r.message = ""
}

// Duration is the elapsed time between creation and completion, zero while pending.
func (r *SyncRun) Duration() time.Duration {
	if r.finishedAt == nil {
		return 0
	}
	return r.finishedAt.Sub(r.createdAt)
}

// Validate implements [Model].
func (r *SyncRun) Validate() error {
	if r.operation == "" {
		return fmt.Errorf("operation is required")
	}
	switch r.status {
	case RunPending, RunSucceeded, RunFailed:
	default:
		return fmt.Errorf("unknown run status %q", r.status)
	}
	if r.added < 0 || r.removed < 0 {
		return fmt.Errorf("counts must not be negative")
	}
	return nil
}
