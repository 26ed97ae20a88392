package jobs

import (
	"context"

	"pentellia/scan-core/internal/logging"
	"pentellia/scan-core/internal/metrics"
	"pentellia/scan-core/internal/model"
	"pentellia/scan-core/internal/store"
)

// Cancel stops a job. The executor is asked to cancel on a best-effort basis;
// the local Cancelled write happens whether or not that call succeeds. A job
// that is already terminal is returned unchanged.
func (r *Reconciler) Cancel(ctx context.Context, jobID, ownerID string) (*model.ScanJob, error) {
	job, err := r.load(ctx, jobID, ownerID)
	if err != nil {
		return nil, err
	}
	if job.Status.IsTerminal() {
		return job, nil
	}

	logger := logging.FromContext(ctx)
	if job.ExternalJobID != "" {
		if err := r.exec.Cancel(ctx, job.ExternalJobID); err != nil {
			logger.Warn().Err(err).
				Str("job_id", job.JobID).
				Str("external_job_id", job.ExternalJobID).
				Msg("Executor cancel failed; cancelling locally")
		}
	}

	ok, err := r.store.Finish(ctx, jobID, store.Finish{
		Status: model.StatusCancelled,
		At:     r.now(),
	})
	if err != nil {
		return nil, err
	}
	if ok {
		metrics.TerminalTransitions.WithLabelValues(string(model.StatusCancelled), causeLabel(model.CauseNone)).Inc()
		logger.Info().Str("job_id", jobID).Msg("Job cancelled")
	}
	return r.store.Get(ctx, jobID)
}
