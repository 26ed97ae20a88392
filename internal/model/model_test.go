package model

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestParseSeverity(t *testing.T) {
	tests := map[string]Severity{
		"CRITICAL": SeverityCritical,
		"crit":     SeverityCritical,
		" High ":   SeverityHigh,
		"moderate": SeverityMedium,
		"Medium":   SeverityMedium,
		"low":      SeverityLow,
		"info":     SeverityInfo,
		"":         SeverityInfo,
		"severe":   SeverityInfo,
	}
	for in, want := range tests {
		assert.Equal(t, want, ParseSeverity(in), in)
	}
}

func TestGradeAndClamp(t *testing.T) {
	assert.Equal(t, "A", GradeFor(90))
	assert.Equal(t, "B", GradeFor(89))
	assert.Equal(t, "B", GradeFor(75))
	assert.Equal(t, "C", GradeFor(74))
	assert.Equal(t, "C", GradeFor(50))
	assert.Equal(t, "D", GradeFor(49))
	assert.Equal(t, 0, ClampScore(-5))
	assert.Equal(t, 100, ClampScore(250))
	assert.Equal(t, 42, ClampScore(42))
}

func TestTally(t *testing.T) {
	s := Tally([]Finding{
		{Severity: SeverityHigh},
		{Severity: SeverityHigh},
		{Severity: SeverityCritical},
		{Severity: "unexpected"},
	})
	assert.Equal(t, Summary{Critical: 1, High: 2, Info: 1}, s)
	assert.Equal(t, 4, s.Total())
}

func TestStatusOrdering(t *testing.T) {
	assert.Less(t, StatusQueued.Rank(), StatusRunning.Rank())
	for _, s := range TerminalStatuses {
		assert.True(t, s.IsTerminal())
		assert.Greater(t, s.Rank(), StatusRunning.Rank())
	}
	for _, s := range ActiveStatuses {
		assert.False(t, s.IsTerminal())
	}
	assert.False(t, Status("paused").Valid())
	assert.Equal(t, -1, Status("paused").Rank())
}

func TestCloneIsDeep(t *testing.T) {
	now := time.Now()
	job := &ScanJob{JobID: "a", CompletedAt: &now, RawResult: json.RawMessage(`{"x":1}`)}
	c := job.Clone()
	c.RawResult[2] = 'y'
	*c.CompletedAt = now.Add(time.Hour)

	assert.Equal(t, `{"x":1}`, string(job.RawResult))
	assert.True(t, job.CompletedAt.Equal(now))
	assert.Nil(t, (*ScanJob)(nil).Clone())
}

func TestScanRequestTarget(t *testing.T) {
	assert.Equal(t, "a", ScanRequest{Target: "a", Asset: &Asset{Endpoint: "b"}}.ResolvedTarget())
	assert.Equal(t, "b", ScanRequest{Asset: &Asset{Endpoint: "b"}}.ResolvedTarget())
	assert.Empty(t, ScanRequest{}.ResolvedTarget())
}

func TestJobJSONShape(t *testing.T) {
	body, err := json.Marshal(ScanJob{JobID: "a", Status: StatusQueued})
	assert.NoError(t, err)

	var m map[string]any
	assert.NoError(t, json.Unmarshal(body, &m))
	assert.Equal(t, "a", m["id"])
	assert.Nil(t, m["completed_at"])
	assert.Nil(t, m["raw_result"])
	assert.NotContains(t, m, "failure_cause")
	assert.NotContains(t, m, "last_synced_at")
}
