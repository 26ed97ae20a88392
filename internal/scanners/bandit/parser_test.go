package bandit

import (
	"encoding/json"
	"testing"

	"pentellia/scan-core/internal/model"
	"pentellia/scan-core/internal/scanners"
)

// TestBanditParserRejectsGarbage ensures invalid JSON is rejected
func TestBanditParserRejectsGarbage(t *testing.T) {
	_, err := Parse("bandit", []byte("{{{{"))
	if err == nil {
		t.Fatal("parser accepted invalid json")
	}

	res := New().Normalize(scanners.Input{Tool: "bandit", Raw: json.RawMessage("{{{{")})
	if res.Findings == nil || len(res.Findings) != 0 {
		t.Fatalf("expected empty non-nil findings, got %#v", res.Findings)
	}
}

// TestBanditParserAcceptsValidJSON ensures valid input is parsed
func TestBanditParserAcceptsValidJSON(t *testing.T) {
	validJSON := `{
		"results": [
			{
				"test_id": "B101",
				"test_name": "assert_used",
				"filename": "app.py",
				"line_number": 42,
				"issue_text": "Use of assert detected",
				"issue_severity": "HIGH",
				"issue_confidence": "MEDIUM",
				"issue_cwe": {"id": 703}
			}
		]
	}`

	findings, err := Parse("bandit", []byte(validJSON))
	if err != nil {
		t.Fatalf("parser rejected valid json: %v", err)
	}

	if len(findings) != 1 {
		t.Fatalf("expected 1 finding, got %d", len(findings))
	}

	f := findings[0]
	if f.Title != "assert_used" {
		t.Errorf("expected title assert_used, got %s", f.Title)
	}
	if f.Severity != model.SeverityHigh {
		t.Errorf("expected high severity, got %s", f.Severity)
	}
	if f.AffectedAsset != "app.py:42" {
		t.Errorf("expected asset app.py:42, got %s", f.AffectedAsset)
	}
	if f.Confidence == nil || *f.Confidence != 0.6 {
		t.Errorf("expected confidence 0.6, got %v", f.Confidence)
	}
	want := []string{"cwe-703", "rule:b101", "sast"}
	if len(f.Tags) != len(want) {
		t.Fatalf("expected tags %v, got %v", want, f.Tags)
	}
	for i := range want {
		if f.Tags[i] != want[i] {
			t.Errorf("expected tags %v, got %v", want, f.Tags)
		}
	}
	if len(f.Fingerprint) != 64 {
		t.Errorf("expected 64-char fingerprint, got %q", f.Fingerprint)
	}
}

// TestBanditParserEmptyResults handles zero findings
func TestBanditParserEmptyResults(t *testing.T) {
	findings, err := Parse("bandit", []byte(`{"results": []}`))
	if err != nil {
		t.Fatalf("parser failed on empty results: %v", err)
	}

	if len(findings) != 0 {
		t.Fatalf("expected 0 findings, got %d", len(findings))
	}
}

// TestBanditSeverityMapping tests all severity conversions
func TestBanditSeverityMapping(t *testing.T) {
	tests := []struct {
		input    string
		expected model.Severity
	}{
		{"HIGH", model.SeverityHigh},
		{"MEDIUM", model.SeverityMedium},
		{"LOW", model.SeverityLow},
		{"UNKNOWN", model.SeverityInfo}, // default
	}

	for _, tt := range tests {
		raw := `{
			"results": [
				{
					"test_id": "B101",
					"test_name": "test",
					"filename": "test.py",
					"line_number": 1,
					"issue_text": "test",
					"issue_severity": "` + tt.input + `"
				}
			]
		}`

		findings, _ := Parse("bandit", []byte(raw))
		if findings[0].Severity != tt.expected {
			t.Errorf("severity mapping failed: %s -> expected %s, got %s", tt.input, tt.expected, findings[0].Severity)
		}
	}
}

// TestBanditFindingIDsStable ensures re-parsing yields the same ids
func TestBanditFindingIDsStable(t *testing.T) {
	raw := []byte(`{"results":[{"test_id":"B105","test_name":"hardcoded_password_string","filename":"cfg.py","line_number":3,"issue_severity":"LOW"}]}`)
	a, _ := Parse("bandit", raw)
	b, _ := Parse("bandit", raw)

	if a[0].ID != b[0].ID {
		t.Fatal("finding id not deterministic")
	}
	if a[0].Confidence == nil || *a[0].Confidence != 0.85 {
		t.Fatalf("expected default confidence 0.85, got %v", a[0].Confidence)
	}
}
