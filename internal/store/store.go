// Package store persists scan jobs. Every status write is conditional on the
// current status so concurrent writers cannot move a job backwards or out of
// a terminal state.
package store

import (
	"context"
	"encoding/json"
	"time"

	"pentellia/scan-core/internal/model"
)

// Store is the job persistence contract used by the reconciler and the API.
type Store interface {
	Create(ctx context.Context, job *model.ScanJob) error
	// Get returns ErrNotFound when the job does not exist.
	Get(ctx context.Context, jobID string) (*model.ScanJob, error)
	List(ctx context.Context, ownerID string, limit int) ([]*model.ScanJob, error)
	Stats(ctx context.Context, ownerID string, failedSince time.Time) (model.JobStats, error)

	// Advance moves a job to a later non-terminal status. It reports false
	// when the stored status is not a predecessor of to.
	Advance(ctx context.Context, jobID string, to model.Status, syncedAt time.Time) (bool, error)
	// Touch records a successful executor contact on a non-terminal job.
	Touch(ctx context.Context, jobID string, syncedAt time.Time) (bool, error)
	// Finish writes a terminal status only if the job is not terminal yet.
	Finish(ctx context.Context, jobID string, f Finish) (bool, error)

	// Delete removes the job outright. It is not a state transition.
	Delete(ctx context.Context, jobID, ownerID string) error
	Close() error
}

// Finish describes a terminal write.
type Finish struct {
	Status    model.Status
	Cause     model.FailureCause
	RawResult json.RawMessage
	At        time.Time
	// SyncedAt is set when the write follows a successful executor call.
	SyncedAt *time.Time
}

// predecessors lists the statuses a job may hold when moving to s.
func predecessors(s model.Status) []model.Status {
	var out []model.Status
	for _, a := range model.ActiveStatuses {
		if a.Rank() < s.Rank() {
			out = append(out, a)
		}
	}
	return out
}
