// Package jobs reconciles locally stored scan jobs against the executor and
// exposes the job operations used by the API and CLI.
package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/singleflight"

	scanerrors "pentellia/scan-core/internal/errors"
	"pentellia/scan-core/internal/logging"
	"pentellia/scan-core/internal/metrics"
	"pentellia/scan-core/internal/model"
	"pentellia/scan-core/internal/store"
)

// Executor is the slice of the execution service the job core depends on.
type Executor interface {
	Enqueue(ctx context.Context, tool, target string, params map[string]any) (string, error)
	Status(ctx context.Context, externalJobID string) (model.Status, error)
	Results(ctx context.Context, externalJobID string) (json.RawMessage, error)
	Cancel(ctx context.Context, externalJobID string) error
}

// Outcome describes what a single Reconcile call did.
type Outcome string

const (
	OutcomeTerminal    Outcome = "terminal"
	OutcomeUnchanged   Outcome = "unchanged"
	OutcomeAdvanced    Outcome = "advanced"
	OutcomeCompleted   Outcome = "completed"
	OutcomeFailed      Outcome = "failed"
	OutcomeCancelled   Outcome = "cancelled"
	OutcomeZombie      Outcome = "zombie"
	OutcomeUnreachable Outcome = "unreachable"
	OutcomeRaced       Outcome = "raced"
)

// Stale reports whether the job was returned without a successful sync.
func (o Outcome) Stale() bool {
	return o == OutcomeUnreachable
}

// Reconciled is a job as persisted after a Reconcile call.
type Reconciled struct {
	Job     *model.ScanJob
	Outcome Outcome
}

const lostJobMessage = "Job lost on external server (executor restarted or worker mismatch)"

// Reconciler brings a stored job in line with the executor. Every write goes
// through the store's conditional transitions, so any number of Reconcile and
// Cancel calls may run concurrently against the same job.
type Reconciler struct {
	store store.Store
	exec  Executor
	now   func() time.Time
	group singleflight.Group
}

func NewReconciler(st store.Store, exec Executor) *Reconciler {
	return &Reconciler{
		store: st,
		exec:  exec,
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// Reconcile syncs one job. Terminal jobs are returned as stored without
// contacting the executor. Transient executor failures leave the job untouched
// and are reported through OutcomeUnreachable rather than an error.
func (r *Reconciler) Reconcile(ctx context.Context, jobID, ownerID string) (Reconciled, error) {
	job, err := r.load(ctx, jobID, ownerID)
	if err != nil {
		return Reconciled{}, err
	}
	if job.Status.IsTerminal() {
		metrics.ReconcileOutcomes.WithLabelValues(string(OutcomeTerminal)).Inc()
		return Reconciled{Job: job, Outcome: OutcomeTerminal}, nil
	}

	// Concurrent callers for the same job share one executor round trip. The
	// shared call must not die with whichever caller arrived first; executor
	// calls carry their own timeouts.
	shared := context.WithoutCancel(ctx)
	v, err, _ := r.group.Do(jobID, func() (any, error) {
		return r.sync(shared, job)
	})
	if err != nil {
		return Reconciled{}, err
	}

	res := v.(Reconciled)
	metrics.ReconcileOutcomes.WithLabelValues(string(res.Outcome)).Inc()
	return Reconciled{Job: res.Job.Clone(), Outcome: res.Outcome}, nil
}

func (r *Reconciler) sync(ctx context.Context, job *model.ScanJob) (Reconciled, error) {
	logger := logging.FromContext(ctx).With().
		Str("job_id", job.JobID).
		Str("external_job_id", job.ExternalJobID).
		Logger()

	if job.ExternalJobID == "" {
		logger.Warn().Msg("Job has no executor id; marking failed")
		return r.markMissing(ctx, job)
	}

	remote, err := r.exec.Status(ctx, job.ExternalJobID)
	switch {
	case errors.Is(err, scanerrors.ErrExecutorJobMissing):
		logger.Warn().Msg("Executor has no record of job; marking failed")
		return r.markMissing(ctx, job)
	case err != nil:
		logger.Warn().Err(err).Msg("Executor status check failed; keeping stored state")
		return Reconciled{Job: job, Outcome: OutcomeUnreachable}, nil
	}

	now := r.now()
	switch remote {
	case model.StatusCompleted:
		raw, err := r.exec.Results(ctx, job.ExternalJobID)
		switch {
		case errors.Is(err, scanerrors.ErrExecutorJobMissing):
			logger.Warn().Msg("Executor lost results of a completed job; marking failed")
			return r.markMissing(ctx, job)
		case err != nil:
			logger.Warn().Err(err).Msg("Executor results fetch failed; keeping stored state")
			return Reconciled{Job: job, Outcome: OutcomeUnreachable}, nil
		}

		if msg, failed := resultError(raw); failed {
			logger.Info().Str("error", msg).Msg("Scan result reported a tool failure")
			return r.finish(ctx, job, store.Finish{
				Status:    model.StatusFailed,
				Cause:     model.CauseResultError,
				RawResult: raw,
				At:        now,
				SyncedAt:  &now,
			}, OutcomeFailed)
		}
		logger.Info().Msg("Scan completed")
		return r.finish(ctx, job, store.Finish{
			Status:    model.StatusCompleted,
			RawResult: raw,
			At:        now,
			SyncedAt:  &now,
		}, OutcomeCompleted)

	case model.StatusFailed:
		logger.Info().Msg("Executor reported scan failure")
		return r.finish(ctx, job, store.Finish{
			Status:    model.StatusFailed,
			Cause:     model.CauseExecutorFailed,
			RawResult: diagnostic("Scan failed on executor", model.CauseExecutorFailed, job.ExternalJobID),
			At:        now,
			SyncedAt:  &now,
		}, OutcomeFailed)

	case model.StatusCancelled:
		logger.Info().Msg("Executor reported scan cancelled")
		return r.finish(ctx, job, store.Finish{
			Status:   model.StatusCancelled,
			At:       now,
			SyncedAt: &now,
		}, OutcomeCancelled)
	}

	if remote.Rank() > job.Status.Rank() {
		ok, err := r.store.Advance(ctx, job.JobID, remote, now)
		if err != nil {
			return Reconciled{}, err
		}
		outcome := OutcomeAdvanced
		if !ok {
			outcome = OutcomeRaced
		} else {
			logger.Debug().Str("from", string(job.Status)).Str("to", string(remote)).Msg("Job advanced")
		}
		return r.reload(ctx, job.JobID, outcome)
	}

	// Same status, or the executor lags behind what we already recorded.
	ok, err := r.store.Touch(ctx, job.JobID, now)
	if err != nil {
		return Reconciled{}, err
	}
	if !ok {
		return r.reload(ctx, job.JobID, OutcomeRaced)
	}
	synced := job.Clone()
	synced.LastSyncedAt = &now
	return Reconciled{Job: synced, Outcome: OutcomeUnchanged}, nil
}

func (r *Reconciler) markMissing(ctx context.Context, job *model.ScanJob) (Reconciled, error) {
	return r.finish(ctx, job, store.Finish{
		Status:    model.StatusFailed,
		Cause:     model.CauseExecutorJobMissing,
		RawResult: diagnostic(lostJobMessage, model.CauseExecutorJobMissing, job.ExternalJobID),
		At:        r.now(),
	}, OutcomeZombie)
}

// finish performs a terminal write. Losing the write to another writer is not
// an error: the winner's record is returned.
func (r *Reconciler) finish(ctx context.Context, job *model.ScanJob, f store.Finish, outcome Outcome) (Reconciled, error) {
	ok, err := r.store.Finish(ctx, job.JobID, f)
	if err != nil {
		return Reconciled{}, err
	}
	if !ok {
		outcome = OutcomeRaced
	} else {
		metrics.TerminalTransitions.WithLabelValues(string(f.Status), causeLabel(f.Cause)).Inc()
	}
	return r.reload(ctx, job.JobID, outcome)
}

func (r *Reconciler) reload(ctx context.Context, jobID string, outcome Outcome) (Reconciled, error) {
	job, err := r.store.Get(ctx, jobID)
	if err != nil {
		return Reconciled{}, err
	}
	return Reconciled{Job: job, Outcome: outcome}, nil
}

// load fetches a job and checks ownership.
func (r *Reconciler) load(ctx context.Context, jobID, ownerID string) (*model.ScanJob, error) {
	if ownerID == "" {
		return nil, fmt.Errorf("missing owner: %w", scanerrors.ErrUnauthorized)
	}
	job, err := r.store.Get(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job.OwnerID != ownerID {
		return nil, fmt.Errorf("job %q: %w", jobID, scanerrors.ErrUnauthorized)
	}
	return job, nil
}

// resultError reports whether a result payload carries a truthy top-level
// "error" member.
func resultError(raw json.RawMessage) (string, bool) {
	var top map[string]json.RawMessage
	if err := json.Unmarshal(raw, &top); err != nil {
		return "", false
	}
	member, ok := top["error"]
	if !ok {
		return "", false
	}
	var v any
	if err := json.Unmarshal(member, &v); err != nil {
		return "", false
	}
	switch e := v.(type) {
	case nil:
		return "", false
	case bool:
		return "tool reported an error", e
	case string:
		return e, e != ""
	case float64:
		return fmt.Sprint(e), e != 0
	default:
		return string(member), true
	}
}

func diagnostic(msg string, cause model.FailureCause, externalJobID string) json.RawMessage {
	b, _ := json.Marshal(map[string]string{
		"error":           msg,
		"cause":           string(cause),
		"external_job_id": externalJobID,
	})
	return b
}

func causeLabel(c model.FailureCause) string {
	if c == model.CauseNone {
		return "none"
	}
	return string(c)
}
