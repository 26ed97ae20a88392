package zap

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pentellia/scan-core/internal/model"
	"pentellia/scan-core/internal/scanners"
)

func normalize(raw string) model.Result {
	return New().Normalize(scanners.Input{Tool: "owasp-zap", Target: "https://example.com", Raw: json.RawMessage(raw)})
}

func TestNormalizeReport(t *testing.T) {
	res := normalize(`{"@version":"2.14.0","site":[
		{"@name":"https://shop.example.com","alerts":[
			{"pluginid":"10038","alert":"Content Security Policy (CSP) Header Not Set","riskcode":"2","confidence":"3",
			 "cweid":"693","wascid":"15","instances":[{"uri":"https://shop.example.com/login","method":"GET"}]},
			{"pluginid":"10021","alert":"X-Content-Type-Options Header Missing","riskcode":"1","confidence":"2","cweid":"-1","instances":[]}
		]},
		{"@name":"https://api.example.com","alerts":[
			{"pluginid":"40012","name":"Cross Site Scripting (Reflected)","riskcode":3}
		]}
	]}`)

	require.Len(t, res.Findings, 3)
	csp := res.Findings[0]
	assert.Equal(t, "Content Security Policy (CSP) Header Not Set", csp.Title)
	assert.Equal(t, model.SeverityMedium, csp.Severity)
	assert.Equal(t, "https://shop.example.com/login", csp.AffectedAsset)
	assert.Equal(t, []string{"cwe-693", "wasc-15"}, csp.Tags)
	require.NotNil(t, csp.Confidence)
	assert.Equal(t, 0.9, *csp.Confidence)
	assert.Equal(t, "owasp-zap", csp.SourceTool)

	assert.Equal(t, model.SeverityLow, res.Findings[1].Severity)
	assert.Equal(t, "https://shop.example.com", res.Findings[1].AffectedAsset)
	assert.Empty(t, res.Findings[1].Tags)

	assert.Equal(t, model.SeverityHigh, res.Findings[2].Severity)
	assert.Equal(t, "https://api.example.com", res.Findings[2].AffectedAsset)
	assert.NotEqual(t, res.Findings[0].ID, res.Findings[2].ID)
}

func TestNormalizeSingleSiteObject(t *testing.T) {
	res := normalize(`{"site":{"@name":"https://example.org","alerts":[{"alert":"Cookie No HttpOnly Flag","riskcode":"0"}]}}`)
	require.Len(t, res.Findings, 1)
	assert.Equal(t, model.SeverityInfo, res.Findings[0].Severity)
	assert.Equal(t, "https://example.org", res.Findings[0].AffectedAsset)
}

func TestNormalizeAPIAlerts(t *testing.T) {
	res := normalize(`{"alerts":[
		{"pluginId":"10202","name":"Absence of Anti-CSRF Tokens","risk":"Medium","confidence":"Low","url":"https://example.com/form"},
		{"name":"Server Leaks Version","risk":"Informational"}
	]}`)

	require.Len(t, res.Findings, 2)
	assert.Equal(t, model.SeverityMedium, res.Findings[0].Severity)
	assert.Equal(t, "https://example.com/form", res.Findings[0].AffectedAsset)
	assert.Equal(t, 0.3, *res.Findings[0].Confidence)
	assert.Equal(t, model.SeverityInfo, res.Findings[1].Severity)
	assert.Equal(t, "https://example.com", res.Findings[1].AffectedAsset)
}

func TestNormalizeNoAlerts(t *testing.T) {
	for _, raw := range []string{`{"site":[]}`, `{"site":[{"@name":"x","alerts":[]}]}`, `{}`, `"text"`} {
		res := normalize(raw)
		assert.NotNil(t, res.Findings, raw)
		assert.Empty(t, res.Findings, raw)
	}
}
