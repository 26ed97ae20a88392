package nuclei

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pentellia/scan-core/internal/model"
	"pentellia/scan-core/internal/scanners"
)

func normalize(t *testing.T, raw string) model.Result {
	t.Helper()
	return New().Normalize(scanners.Input{Tool: "nuclei", Target: "https://example.com", Raw: json.RawMessage(raw)})
}

func TestNormalizeNucleiExport(t *testing.T) {
	res := normalize(t, `{"results":[
		{"template-id":"git-config","info":{"name":"Git Config Disclosure","severity":"high","tags":["exposure","git"]},
		 "matched-at":"https://example.com/.git/config","type":"http"},
		{"template-id":"tech-detect","info":{"name":"Nginx","severity":"info"}}
	]}`)

	require.Len(t, res.Findings, 2)
	f := res.Findings[0]
	assert.Equal(t, "Git Config Disclosure", f.Title)
	assert.Equal(t, model.SeverityHigh, f.Severity)
	assert.Equal(t, "https://example.com/.git/config", f.AffectedAsset)
	assert.Equal(t, "http", f.Category)
	assert.Equal(t, "nuclei", f.SourceTool)
	assert.Equal(t, []string{"exposure", "git"}, f.Tags)
	assert.NotEmpty(t, f.Evidence)

	assert.Equal(t, "https://example.com", res.Findings[1].AffectedAsset, "target is the fallback asset")
	assert.Equal(t, "vulnerability", res.Findings[1].Category)
}

func TestNormalizeSeverityMapping(t *testing.T) {
	res := normalize(t, `[
		{"name":"a","severity":"CRITICAL"},
		{"name":"b","risk":"Moderate"},
		{"name":"c","level":"low"},
		{"name":"d","severity":"weird"},
		{"name":"e"}
	]`)

	require.Len(t, res.Findings, 5)
	want := []model.Severity{model.SeverityCritical, model.SeverityMedium, model.SeverityLow, model.SeverityInfo, model.SeverityInfo}
	for i, sev := range want {
		assert.Equal(t, sev, res.Findings[i].Severity, res.Findings[i].Title)
	}
}

func TestNormalizeOneFindingPerItem(t *testing.T) {
	res := normalize(t, `{"findings":[{"id":"r1"},{},"plain text issue",{"title":"same"},{"title":"same"}]}`)

	require.Len(t, res.Findings, 5)
	assert.Equal(t, "r1", res.Findings[0].Title)
	assert.Equal(t, "Unnamed issue", res.Findings[1].Title)
	assert.Equal(t, "plain text issue", res.Findings[2].Title)
	assert.NotEqual(t, res.Findings[3].ID, res.Findings[4].ID, "ordinal keeps duplicates distinct")
}

func TestNormalizeUnrecognizedShape(t *testing.T) {
	for _, raw := range []string{`{"status":"ok"}`, `"text"`, `42`} {
		res := normalize(t, raw)
		assert.NotNil(t, res.Findings, raw)
		assert.Empty(t, res.Findings, raw)
	}
}

func TestNormalizeIsPure(t *testing.T) {
	raw := `{"results":[{"template-id":"x","info":{"severity":"medium"},"confidence":0.7}]}`
	a, b := normalize(t, raw), normalize(t, raw)
	assert.Equal(t, a, b)
	require.NotNil(t, a.Findings[0].Confidence)
	assert.Equal(t, 0.7, *a.Findings[0].Confidence)
}
