package bandit

import (
	"encoding/json"
	"fmt"
	"strings"

	"pentellia/scan-core/internal/model"
	"pentellia/scan-core/internal/scanners"
)

type banditResult struct {
	Results []struct {
		TestID          string `json:"test_id"`
		TestName        string `json:"test_name"`
		Filename        string `json:"filename"`
		LineNumber      int    `json:"line_number"`
		IssueText       string `json:"issue_text"`
		IssueSeverity   string `json:"issue_severity"`
		IssueConfidence string `json:"issue_confidence"`
		IssueCWE        *struct {
			ID int `json:"id"`
		} `json:"issue_cwe"`
	} `json:"results"`
}

// Normalizer handles bandit's SAST report, a structured list under "results".
type Normalizer struct{}

func New() *Normalizer { return &Normalizer{} }

func (*Normalizer) Category() scanners.Category { return scanners.CategoryStructuredList }

func (*Normalizer) Normalize(in scanners.Input) model.Result {
	findings, err := Parse(in.Tool, in.Raw)
	if err != nil {
		return model.EmptyResult()
	}
	return model.Result{Findings: findings}
}

// Parse decodes a bandit report. Invalid JSON is an error; the Normalizer
// turns it into an empty result.
func Parse(tool string, raw []byte) ([]model.Finding, error) {
	var parsed banditResult
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("invalid bandit json: %w", err)
	}
	if tool == "" {
		tool = "bandit"
	}

	findings := make([]model.Finding, 0, len(parsed.Results))
	for i, r := range parsed.Results {
		asset := r.Filename
		if r.LineNumber > 0 {
			asset = fmt.Sprintf("%s:%d", r.Filename, r.LineNumber)
		}
		title := r.TestName
		if title == "" {
			title = r.TestID
		}
		tags := []string{"sast"}
		if r.TestID != "" {
			tags = append(tags, "rule:"+r.TestID)
		}
		if r.IssueCWE != nil && r.IssueCWE.ID > 0 {
			tags = append(tags, fmt.Sprintf("cwe-%d", r.IssueCWE.ID))
		}
		confidence := mapConfidence(r.IssueConfidence)

		findings = append(findings, scanners.Build(scanners.Draft{
			Tool:       tool,
			Category:   "sast",
			RuleID:     r.TestID,
			Title:      title,
			Asset:      asset,
			Severity:   model.ParseSeverity(r.IssueSeverity),
			Confidence: &confidence,
			Evidence: map[string]any{
				"file":  r.Filename,
				"line":  r.LineNumber,
				"issue": r.IssueText,
			},
			Tags:    tags,
			Ordinal: i,
		}))
	}
	return findings, nil
}

func mapConfidence(s string) float64 {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "HIGH":
		return 0.9
	case "MEDIUM":
		return 0.6
	case "LOW":
		return 0.3
	default:
		return 0.85
	}
}
