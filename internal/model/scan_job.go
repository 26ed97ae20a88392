package model

import (
	"encoding/json"
	"time"
)

type Status string

const (
	StatusQueued    Status = "queued"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

// TerminalStatuses lists the write-once states. Order is stable so callers can
// build SQL IN clauses from it.
var TerminalStatuses = []Status{StatusCompleted, StatusFailed, StatusCancelled}

// ActiveStatuses lists the states a reconciliation may still move forward.
var ActiveStatuses = []Status{StatusQueued, StatusRunning}

func (s Status) IsTerminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusCancelled:
		return true
	}
	return false
}

func (s Status) Valid() bool {
	switch s {
	case StatusQueued, StatusRunning, StatusCompleted, StatusFailed, StatusCancelled:
		return true
	}
	return false
}

// Rank orders statuses under Queued < Running < terminal. All terminal values
// share the top rank.
func (s Status) Rank() int {
	switch s {
	case StatusQueued:
		return 0
	case StatusRunning:
		return 1
	case StatusCompleted, StatusFailed, StatusCancelled:
		return 2
	}
	return -1
}

// FailureCause separates infrastructure loss from tool failure on Failed jobs.
type FailureCause string

const (
	CauseNone               FailureCause = ""
	CauseExecutorJobMissing FailureCause = "executor_job_missing"
	CauseResultError        FailureCause = "result_error"
	CauseExecutorFailed     FailureCause = "executor_failed"
)

type ScanJob struct {
	JobID         string          `json:"id"`
	OwnerID       string          `json:"owner_id"`
	Tool          string          `json:"tool"`
	Target        string          `json:"target"`
	ExternalJobID string          `json:"external_job_id"`
	Status        Status          `json:"status"`
	FailureCause  FailureCause    `json:"failure_cause,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
	CompletedAt   *time.Time      `json:"completed_at"`
	LastSyncedAt  *time.Time      `json:"last_synced_at,omitempty"`
	RawResult     json.RawMessage `json:"raw_result"`
}

// Clone returns a deep copy so callers can hand records out without sharing
// the raw result buffer.
func (j *ScanJob) Clone() *ScanJob {
	if j == nil {
		return nil
	}
	c := *j
	if j.CompletedAt != nil {
		t := *j.CompletedAt
		c.CompletedAt = &t
	}
	if j.LastSyncedAt != nil {
		t := *j.LastSyncedAt
		c.LastSyncedAt = &t
	}
	if j.RawResult != nil {
		c.RawResult = append(json.RawMessage(nil), j.RawResult...)
	}
	return &c
}

// JobStats is the per-owner dashboard tally.
type JobStats struct {
	Total     int            `json:"total"`
	Active    int            `json:"active"`
	Failed24h int            `json:"failed_24h"`
	ByStatus  map[Status]int `json:"by_status"`
}

// ScanRequest asks for a new scan. Target may be left empty when Asset is
// given, in which case the asset's endpoint is scanned.
type ScanRequest struct {
	Tool    string         `json:"tool"`
	Target  string         `json:"target"`
	Asset   *Asset         `json:"asset,omitempty"`
	Timeout int            `json:"timeout,omitempty"`
	Params  map[string]any `json:"params,omitempty"`
}

// ResolvedTarget returns the explicit target or the asset endpoint.
func (r ScanRequest) ResolvedTarget() string {
	if r.Target != "" || r.Asset == nil {
		return r.Target
	}
	return r.Asset.Endpoint
}
