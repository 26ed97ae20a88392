package nmap

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pentellia/scan-core/internal/model"
	"pentellia/scan-core/internal/scanners"
)

func normalize(raw, target string) model.Result {
	return New().Normalize(scanners.Input{Tool: "nmap", Target: target, Raw: json.RawMessage(raw)})
}

func TestNormalizeOpenPorts(t *testing.T) {
	res := normalize(`"80/tcp open http\n22/tcp open ssh\n"`, "10.0.0.1")

	require.Len(t, res.Findings, 2)
	assert.Equal(t, "Open port 80/tcp (http)", res.Findings[0].Title)
	assert.Equal(t, "Open port 22/tcp (ssh)", res.Findings[1].Title)
	for _, f := range res.Findings {
		assert.Equal(t, model.SeverityInfo, f.Severity)
		assert.Equal(t, "network", f.Category)
		assert.Equal(t, "10.0.0.1", f.AffectedAsset)
	}
	assert.JSONEq(t, `{"port":"80","protocol":"tcp","service":"http"}`, string(res.Findings[0].Evidence))
	assert.Equal(t, []string{"port:80", "protocol:tcp", "service:http"}, res.Findings[0].Tags)
}

func TestNormalizeFullReport(t *testing.T) {
	report := "Starting Nmap 7.94\r\n" +
		"Nmap scan report for scanme.example.org (45.33.32.156)\r\n" +
		"PORT     STATE    SERVICE\r\n" +
		"22/tcp   open     ssh\r\n" +
		"25/tcp   filtered smtp\r\n" +
		"80/tcp   open     http\r\n" +
		"161/udp  closed   snmp\r\n" +
		"Nmap done: 1 IP address (1 host up)\r\n"
	raw, err := json.Marshal(map[string]string{"output": report})
	require.NoError(t, err)

	res := normalize(string(raw), "")
	require.Len(t, res.Findings, 2)
	assert.Equal(t, "45.33.32.156", res.Findings[0].AffectedAsset)
	assert.Contains(t, string(res.Findings[0].Evidence), `"host":"45.33.32.156"`)
	assert.Equal(t, "Open port 80/tcp (http)", res.Findings[1].Title)
}

func TestNormalizePlainTextAndLineArrays(t *testing.T) {
	res := normalize("443/tcp open https", "example.com")
	require.Len(t, res.Findings, 1)
	assert.Equal(t, "Open port 443/tcp (https)", res.Findings[0].Title)

	res = normalize(`["53/udp open domain", "garbage", "8080/tcp open http-proxy"]`, "example.com")
	assert.Len(t, res.Findings, 2)
}

func TestNormalizeNoOpenPorts(t *testing.T) {
	for _, raw := range []string{`"All 1000 scanned ports are closed"`, `{}`, `[]`, `{"result":""}`} {
		res := normalize(raw, "10.0.0.1")
		assert.NotNil(t, res.Findings, raw)
		assert.Empty(t, res.Findings, raw)
	}
}
