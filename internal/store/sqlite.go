package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	_ "modernc.org/sqlite"

	scanerrors "pentellia/scan-core/internal/errors"
	"pentellia/scan-core/internal/model"
)

const (
	defaultListLimit = 20
	maxListLimit     = 100

	jobColumns = `id, owner_id, tool, target, external_job_id, status, failure_cause,
		created_at, completed_at, last_synced_at, raw_result`
)

// SQLiteStore implements Store on a local SQLite database.
type SQLiteStore struct {
	db     *sql.DB
	dbPath string
}

var _ Store = (*SQLiteStore)(nil)

// NewSQLiteStore opens (or creates) jobs.db in dir.
func NewSQLiteStore(dir string) (*SQLiteStore, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("create job store dir: %w", err)
	}

	dbPath := filepath.Join(dir, "jobs.db")
	dsn := dbPath + "?" + url.Values{
		"_pragma": []string{
			"busy_timeout(30000)",
			"journal_mode(WAL)",
			"synchronous(NORMAL)",
		},
	}.Encode()

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open job store db: %w", err)
	}
	// SQLite works best with a single writer connection
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	s := &SQLiteStore{db: db, dbPath: dbPath}
	if err := s.initSchema(); err != nil {
		_ = db.Close()
		return nil, err
	}

	log.Debug().Str("dbPath", dbPath).Msg("Job store initialized")
	return s, nil
}

func (s *SQLiteStore) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS scan_jobs (
		id              TEXT PRIMARY KEY,
		owner_id        TEXT NOT NULL,
		tool            TEXT NOT NULL,
		target          TEXT NOT NULL,
		external_job_id TEXT NOT NULL DEFAULT '',
		status          TEXT NOT NULL,
		failure_cause   TEXT NOT NULL DEFAULT '',
		created_at      INTEGER NOT NULL,
		completed_at    INTEGER,
		last_synced_at  INTEGER,
		raw_result      TEXT,
		CHECK ((completed_at IS NULL) = (status IN ('queued', 'running')))
	);
	CREATE INDEX IF NOT EXISTS idx_scan_jobs_owner_created ON scan_jobs(owner_id, created_at DESC);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("init job store schema: %w", err)
	}
	return nil
}

// Ping checks database connectivity (used for readiness probes).
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Create inserts a new job record.
func (s *SQLiteStore) Create(ctx context.Context, job *model.ScanJob) error {
	if job == nil {
		return fmt.Errorf("job is nil: %w", scanerrors.ErrInvalidInput)
	}
	if job.JobID == "" || job.OwnerID == "" {
		return fmt.Errorf("job id and owner id are required: %w", scanerrors.ErrInvalidInput)
	}
	if !job.Status.Valid() {
		return fmt.Errorf("invalid status %q: %w", job.Status, scanerrors.ErrInvalidInput)
	}
	if job.Status.IsTerminal() != (job.CompletedAt != nil) {
		return fmt.Errorf("completed_at must be set exactly when status is terminal: %w", scanerrors.ErrInvalidInput)
	}
	if job.CreatedAt.IsZero() {
		job.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO scan_jobs (`+jobColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		job.JobID, job.OwnerID, job.Tool, job.Target, job.ExternalJobID,
		string(job.Status), string(job.FailureCause),
		toMillis(job.CreatedAt), nullableMillis(job.CompletedAt), nullableMillis(job.LastSyncedAt),
		nullableJSON(job.RawResult),
	)
	if err != nil {
		return fmt.Errorf("create job: %w", err)
	}
	return nil
}

// Get retrieves a job by ID.
func (s *SQLiteStore) Get(ctx context.Context, jobID string) (*model.ScanJob, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+jobColumns+` FROM scan_jobs WHERE id = ?`, jobID)
	job, err := scanJob(row)
	if err != nil {
		return nil, err
	}
	if job == nil {
		return nil, fmt.Errorf("job %q: %w", jobID, scanerrors.ErrNotFound)
	}
	return job, nil
}

// List returns an owner's jobs, newest first.
func (s *SQLiteStore) List(ctx context.Context, ownerID string, limit int) ([]*model.ScanJob, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	rows, err := s.db.QueryContext(ctx, `SELECT `+jobColumns+`
		FROM scan_jobs WHERE owner_id = ? ORDER BY created_at DESC, id LIMIT ?`, ownerID, limit)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()

	jobs := []*model.ScanJob{}
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

// Stats tallies an owner's jobs by status.
func (s *SQLiteStore) Stats(ctx context.Context, ownerID string, failedSince time.Time) (model.JobStats, error) {
	stats := model.JobStats{ByStatus: make(map[model.Status]int)}

	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(*) FROM scan_jobs WHERE owner_id = ? GROUP BY status`, ownerID)
	if err != nil {
		return stats, fmt.Errorf("count jobs by status: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return stats, fmt.Errorf("scan count: %w", err)
		}
		st := model.Status(status)
		stats.ByStatus[st] = count
		stats.Total += count
		if !st.IsTerminal() {
			stats.Active += count
		}
	}
	if err := rows.Err(); err != nil {
		return stats, err
	}

	row := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM scan_jobs
		WHERE owner_id = ? AND status = ? AND created_at > ?`,
		ownerID, string(model.StatusFailed), toMillis(failedSince))
	if err := row.Scan(&stats.Failed24h); err != nil {
		return stats, fmt.Errorf("count recent failures: %w", err)
	}
	return stats, nil
}

// Advance moves a job forward to a non-terminal status.
func (s *SQLiteStore) Advance(ctx context.Context, jobID string, to model.Status, syncedAt time.Time) (bool, error) {
	if !to.Valid() || to.IsTerminal() {
		return false, fmt.Errorf("advance to %q: %w", to, scanerrors.ErrInvalidInput)
	}
	from := predecessors(to)
	if len(from) == 0 {
		return false, nil
	}

	query, args := inClause(`UPDATE scan_jobs SET status = ?, last_synced_at = ? WHERE id = ? AND status IN (%s)`, from,
		string(to), toMillis(syncedAt), jobID)
	return s.execCAS(ctx, "advance job", query, args...)
}

// Touch stamps last_synced_at on a non-terminal job.
func (s *SQLiteStore) Touch(ctx context.Context, jobID string, syncedAt time.Time) (bool, error) {
	query, args := inClause(`UPDATE scan_jobs SET last_synced_at = ? WHERE id = ? AND status IN (%s)`, model.ActiveStatuses,
		toMillis(syncedAt), jobID)
	return s.execCAS(ctx, "touch job", query, args...)
}

// Finish writes a terminal status if, and only if, the job is still active.
func (s *SQLiteStore) Finish(ctx context.Context, jobID string, f Finish) (bool, error) {
	if !f.Status.IsTerminal() {
		return false, fmt.Errorf("finish with non-terminal status %q: %w", f.Status, scanerrors.ErrInvalidInput)
	}
	if f.At.IsZero() {
		f.At = time.Now().UTC()
	}

	query, args := inClause(`UPDATE scan_jobs SET
			status = ?, failure_cause = ?, raw_result = COALESCE(?, raw_result), completed_at = ?,
			last_synced_at = COALESCE(?, last_synced_at)
		WHERE id = ? AND status IN (%s)`, model.ActiveStatuses,
		string(f.Status), string(f.Cause), nullableJSON(f.RawResult), toMillis(f.At),
		nullableMillis(f.SyncedAt), jobID)
	return s.execCAS(ctx, "finish job", query, args...)
}

// Delete removes an owner's job.
func (s *SQLiteStore) Delete(ctx context.Context, jobID, ownerID string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM scan_jobs WHERE id = ? AND owner_id = ?`, jobID, ownerID)
	if err != nil {
		return fmt.Errorf("delete job: %w", err)
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return fmt.Errorf("job %q: %w", jobID, scanerrors.ErrNotFound)
	}
	return nil
}

func (s *SQLiteStore) execCAS(ctx context.Context, op, query string, args ...any) (bool, error) {
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return affected == 1, nil
}

// inClause expands %s in query to one placeholder per status and appends the
// statuses to args.
func inClause(query string, statuses []model.Status, args ...any) (string, []any) {
	placeholders := make([]string, len(statuses))
	for i, st := range statuses {
		placeholders[i] = "?"
		args = append(args, string(st))
	}
	return fmt.Sprintf(query, strings.Join(placeholders, ", ")), args
}

// scanner is an interface satisfied by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanJob(s scanner) (*model.ScanJob, error) {
	var job model.ScanJob
	var status, cause string
	var createdAt int64
	var completedAt, lastSyncedAt sql.NullInt64
	var raw sql.NullString

	err := s.Scan(
		&job.JobID, &job.OwnerID, &job.Tool, &job.Target, &job.ExternalJobID,
		&status, &cause, &createdAt, &completedAt, &lastSyncedAt, &raw,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("scan job: %w", err)
	}

	job.Status = model.Status(status)
	job.FailureCause = model.FailureCause(cause)
	job.CreatedAt = fromMillis(createdAt)
	if completedAt.Valid {
		t := fromMillis(completedAt.Int64)
		job.CompletedAt = &t
	}
	if lastSyncedAt.Valid {
		t := fromMillis(lastSyncedAt.Int64)
		job.LastSyncedAt = &t
	}
	if raw.Valid {
		job.RawResult = json.RawMessage(raw.String)
	}
	return &job, nil
}

func toMillis(t time.Time) int64 {
	return t.UnixMilli()
}

func fromMillis(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}

func nullableMillis(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UnixMilli()
}

func nullableJSON(raw json.RawMessage) any {
	if len(raw) == 0 {
		return nil
	}
	return string(raw)
}
