// Package semgrep normalizes semgrep's JSON output: a results array of rule
// matches located by file path and line.
package semgrep

import (
	"strings"

	"pentellia/scan-core/internal/model"
	"pentellia/scan-core/internal/scanners"
)

type Normalizer struct{}

func New() *Normalizer { return &Normalizer{} }

func (*Normalizer) Category() scanners.Category { return scanners.CategoryStructuredList }

func (*Normalizer) Normalize(in scanners.Input) model.Result {
	items, ok := scanners.List(scanners.Decode(in.Raw), "results", "result.results")
	if !ok {
		return model.EmptyResult()
	}
	findings := make([]model.Finding, 0, len(items))
	for i, item := range items {
		findings = append(findings, fromMatch(in, item, i))
	}
	return model.Result{Findings: findings}
}

func fromMatch(in scanners.Input, item any, ordinal int) model.Finding {
	ruleID := scanners.FirstString(item, "check_id", "rule_id")
	title := firstLine(scanners.FirstString(item, "extra.message", "message"))
	if title == "" {
		title = ruleID
	}
	if title == "" {
		title = "Unnamed issue"
	}

	asset := scanners.FirstString(item, "path")
	if line := scanners.FirstString(item, "start.line"); asset != "" && line != "" {
		asset += ":" + line
	}
	if asset == "" {
		asset = in.Target
	}

	meta := scanners.Lookup(item, "extra", "metadata")
	tags := scanners.Strings(scanners.Lookup(meta, "cwe"))
	tags = append(tags, scanners.Strings(scanners.Lookup(meta, "owasp"))...)

	var confidence *float64
	if c, ok := confidenceLevels[strings.ToLower(scanners.String(scanners.Lookup(meta, "confidence")))]; ok {
		confidence = &c
	}

	return scanners.Build(scanners.Draft{
		Tool:       in.Tool,
		Category:   "sast",
		RuleID:     ruleID,
		Title:      title,
		Asset:      asset,
		Severity:   Severity(scanners.FirstString(item, "extra.severity", "severity")),
		Confidence: confidence,
		Evidence:   item,
		Tags:       tags,
		Ordinal:    ordinal,
	})
}

var confidenceLevels = map[string]float64{"high": 0.9, "medium": 0.6, "low": 0.3}

// Severity maps semgrep's ERROR/WARNING/INFO levels. Newer rule packs use the
// canonical names directly.
func Severity(s string) model.Severity {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "ERROR":
		return model.SeverityHigh
	case "WARNING":
		return model.SeverityMedium
	case "INFO", "INVENTORY", "EXPERIMENT":
		return model.SeverityInfo
	}
	return model.ParseSeverity(s)
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	return strings.TrimSpace(s)
}
