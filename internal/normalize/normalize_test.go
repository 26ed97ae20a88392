package normalize

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pentellia/scan-core/internal/model"
	"pentellia/scan-core/internal/scanners"
)

func TestEmptyInputForEveryTool(t *testing.T) {
	n := New(nil)
	aliases := DefaultRegistry().Aliases()
	require.Len(t, aliases, 6)

	for category, tools := range aliases {
		for _, tool := range tools {
			for _, raw := range []json.RawMessage{nil, json.RawMessage(""), json.RawMessage("null")} {
				res := n.Normalize(tool, raw)
				assert.NotNil(t, res.Findings, "%s/%s", category, tool)
				assert.Empty(t, res.Findings, "%s/%s", category, tool)
				assert.Equal(t, model.Summary{}, res.Summary, "%s/%s", category, tool)
			}
		}
	}
}

func TestDefaultRegistryCategories(t *testing.T) {
	r := DefaultRegistry()
	tests := map[string]scanners.Category{
		"nuclei":          scanners.CategoryStructuredList,
		"semgrep":         scanners.CategoryStructuredList,
		"owasp-zap":       scanners.CategoryStructuredList,
		"zap-baseline":    scanners.CategoryStructuredList,
		"bandit":          scanners.CategoryStructuredList,
		"nmap":            scanners.CategoryFreeText,
		"wafw00f":         scanners.CategoryBooleanDetection,
		"webscan":         scanners.CategoryComposite,
		"gobuster":        scanners.CategoryPathList,
		"networkscan-pro": scanners.CategoryCanonical,
	}
	for tool, want := range tests {
		n, ok := r.Resolve(tool)
		require.True(t, ok, tool)
		assert.Equal(t, want, n.Category(), tool)
	}
}

func TestUnregisteredToolsNormalizeToNothing(t *testing.T) {
	n := New(nil)
	raw := json.RawMessage(`{"findings":[{"title":"x","severity":"high"}],"results":[{"name":"y"}]}`)
	for _, tool := range []string{"uncommon-scanner", "common", "zapper", "nmapper", "wafflehouse", "nikto"} {
		assert.Equal(t, model.EmptyResult(), n.Normalize(tool, raw), tool)
	}
}

func TestToolSpecificStructuredLists(t *testing.T) {
	n := New(nil)

	res := n.Normalize("semgrep", json.RawMessage(`{"results":[
		{"check_id":"python.lang.security.audit.eval-detected","path":"app.py","start":{"line":3},"extra":{"severity":"ERROR"}}
	]}`))
	require.Len(t, res.Findings, 1)
	assert.Equal(t, "python.lang.security.audit.eval-detected", res.Findings[0].Title)
	assert.Equal(t, "app.py:3", res.Findings[0].AffectedAsset)
	assert.Equal(t, model.Summary{High: 1}, res.Summary)

	res = n.Normalize("zap", json.RawMessage(`{"site":[{"@name":"https://example.com","alerts":[{"alert":"CSP missing","riskcode":"2"}]}]}`))
	require.Len(t, res.Findings, 1)
	assert.Equal(t, model.Summary{Medium: 1}, res.Summary)
}

func TestStructuredListSummary(t *testing.T) {
	res := New(nil).Normalize("nuclei", json.RawMessage(`[
		{"name":"a","severity":"high"},
		{"name":"b","severity":"high"},
		{"name":"c","severity":"critical"}
	]`))

	assert.Len(t, res.Findings, 3)
	assert.Equal(t, model.Summary{Critical: 1, High: 2}, res.Summary)
}

func TestJobArtifact(t *testing.T) {
	raw := json.RawMessage(`"80/tcp open http\n22/tcp open ssh\n"`)
	job := &model.ScanJob{JobID: "job-1", Tool: "nmap", Target: "10.0.0.1", Status: model.StatusCompleted, RawResult: raw}
	before := job.Clone()

	artifact := New(nil).Job(job)
	assert.Equal(t, "job-1", artifact.JobID)
	assert.Equal(t, "nmap", artifact.Tool)
	assert.Len(t, artifact.Findings, 2)
	assert.Equal(t, 2, artifact.Summary.Info)
	assert.Equal(t, Checksum(raw), artifact.Checksum)
	assert.Len(t, artifact.Checksum, 64)
	assert.Equal(t, before, job, "normalizing must not modify the job")

	assert.Equal(t, artifact, New(nil).Job(job))
}

func TestChecksum(t *testing.T) {
	assert.Empty(t, Checksum(nil))
	assert.Empty(t, Checksum(json.RawMessage("null")))
	assert.NotEqual(t, Checksum(json.RawMessage(`{"a":1}`)), Checksum(json.RawMessage(`{"a":2}`)))

	empty := New(nil).Job(nil)
	assert.NotNil(t, empty.Findings)
}
