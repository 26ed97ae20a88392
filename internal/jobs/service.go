package jobs

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	scanerrors "pentellia/scan-core/internal/errors"
	"pentellia/scan-core/internal/logging"
	"pentellia/scan-core/internal/model"
	"pentellia/scan-core/internal/normalize"
	"pentellia/scan-core/internal/security"
	"pentellia/scan-core/internal/store"
)

// failedWindow is the look-back used for JobStats.Failed24h.
const failedWindow = 24 * time.Hour

// JobView is what callers see for a single job.
type JobView struct {
	*model.ScanJob
	// Stale is set when the executor could not be reached and the stored
	// state was returned as-is.
	Stale    bool            `json:"stale"`
	Artifact *model.Artifact `json:"artifact,omitempty"`
}

// Service is the job boundary: dispatch, read-with-sync, cancel, delete and
// the listing endpoints.
type Service struct {
	store      store.Store
	exec       Executor
	reconciler *Reconciler
	normalizer *normalize.Normalizer
	now        func() time.Time
	newID      func() string
}

// Option customizes a Service.
type Option func(*Service)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
		s.reconciler.now = now
	}
}

// WithIDGenerator overrides job id generation.
func WithIDGenerator(newID func() string) Option {
	return func(s *Service) { s.newID = newID }
}

func NewService(st store.Store, exec Executor, norm *normalize.Normalizer, opts ...Option) *Service {
	if norm == nil {
		norm = normalize.New(nil)
	}
	s := &Service{
		store:      st,
		exec:       exec,
		reconciler: NewReconciler(st, exec),
		normalizer: norm,
		now:        func() time.Time { return time.Now().UTC() },
		newID:      func() string { return uuid.NewString() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Reconciler exposes the underlying reconciler.
func (s *Service) Reconciler() *Reconciler {
	return s.reconciler
}

// Dispatch validates a scan request, enqueues it on the executor and records
// the job as queued.
func (s *Service) Dispatch(ctx context.Context, ownerID string, req model.ScanRequest) (*model.ScanJob, error) {
	if ownerID == "" {
		return nil, fmt.Errorf("missing owner: %w", scanerrors.ErrUnauthorized)
	}
	if err := security.ValidateOwner(ownerID); err != nil {
		return nil, err
	}
	if req.Asset != nil && req.Asset.OwnerID != "" && req.Asset.OwnerID != ownerID {
		return nil, fmt.Errorf("asset %q: %w", req.Asset.ID, scanerrors.ErrUnauthorized)
	}
	if err := security.ValidateScanRequest(req); err != nil {
		return nil, err
	}

	tool := strings.ToLower(strings.TrimSpace(req.Tool))
	target := strings.TrimSpace(req.ResolvedTarget())
	params := make(map[string]any, len(req.Params)+1)
	for k, v := range req.Params {
		params[k] = v
	}
	if req.Timeout > 0 {
		params["timeout"] = req.Timeout
	}

	externalID, err := s.exec.Enqueue(ctx, tool, target, params)
	if err != nil {
		return nil, err
	}

	job := &model.ScanJob{
		JobID:         s.newID(),
		OwnerID:       ownerID,
		Tool:          tool,
		Target:        target,
		ExternalJobID: externalID,
		Status:        model.StatusQueued,
		CreatedAt:     s.now(),
	}
	if err := s.store.Create(ctx, job); err != nil {
		// Without a local record the remote job could never be reconciled.
		if cerr := s.exec.Cancel(context.WithoutCancel(ctx), externalID); cerr != nil {
			logging.FromContext(ctx).Warn().
				Err(cerr).
				Str("external_job_id", externalID).
				Msg("Failed to cancel orphaned executor job")
		}
		return nil, err
	}

	logging.FromContext(ctx).Info().
		Str("job_id", job.JobID).
		Str("external_job_id", externalID).
		Str("tool", tool).
		Msg("Scan dispatched")
	return job, nil
}

// GetJob reconciles and returns a job. Completed jobs carry their normalized
// artifact.
func (s *Service) GetJob(ctx context.Context, jobID, ownerID string) (JobView, error) {
	res, err := s.reconciler.Reconcile(ctx, jobID, ownerID)
	if err != nil {
		return JobView{}, err
	}

	view := JobView{ScanJob: res.Job, Stale: res.Outcome.Stale()}
	if res.Job.Status == model.StatusCompleted {
		artifact := s.normalizer.Job(res.Job)
		view.Artifact = &artifact
	}
	return view, nil
}

// CancelJob cancels a job and returns its final record.
func (s *Service) CancelJob(ctx context.Context, jobID, ownerID string) (*model.ScanJob, error) {
	return s.reconciler.Cancel(ctx, jobID, ownerID)
}

// DeleteJob removes an owner's job record. It does not touch the executor.
func (s *Service) DeleteJob(ctx context.Context, jobID, ownerID string) error {
	if ownerID == "" {
		return fmt.Errorf("missing owner: %w", scanerrors.ErrUnauthorized)
	}
	return s.store.Delete(ctx, jobID, ownerID)
}

// ListJobs returns the owner's most recent jobs as stored, without syncing.
func (s *Service) ListJobs(ctx context.Context, ownerID string, limit int) ([]*model.ScanJob, error) {
	if ownerID == "" {
		return nil, fmt.Errorf("missing owner: %w", scanerrors.ErrUnauthorized)
	}
	return s.store.List(ctx, ownerID, limit)
}

func (s *Service) Stats(ctx context.Context, ownerID string) (model.JobStats, error) {
	if ownerID == "" {
		return model.JobStats{}, fmt.Errorf("missing owner: %w", scanerrors.ErrUnauthorized)
	}
	return s.store.Stats(ctx, ownerID, s.now().Add(-failedWindow))
}
