package model

import (
	"encoding/json"
	"strings"
)

type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityMedium   Severity = "medium"
	SeverityLow      Severity = "low"
	SeverityInfo     Severity = "info"
)

// ParseSeverity maps a tool's severity label onto the canonical scale.
// Anything unrecognised, including the empty string, becomes info.
func ParseSeverity(s string) Severity {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "critical", "crit":
		return SeverityCritical
	case "high":
		return SeverityHigh
	case "medium", "moderate", "med":
		return SeverityMedium
	case "low":
		return SeverityLow
	default:
		return SeverityInfo
	}
}

type Finding struct {
	ID            string          `json:"id"`
	Title         string          `json:"title"`
	Severity      Severity        `json:"severity"`
	Confidence    *float64        `json:"confidence,omitempty"`
	Category      string          `json:"category"`
	AffectedAsset string          `json:"affected_asset"`
	Evidence      json.RawMessage `json:"evidence,omitempty"`
	SourceTool    string          `json:"source_tool"`
	Tags          []string        `json:"tags"`
	Fingerprint   string          `json:"fingerprint"`
}

type Summary struct {
	Critical int    `json:"critical"`
	High     int    `json:"high"`
	Medium   int    `json:"medium"`
	Low      int    `json:"low"`
	Info     int    `json:"info"`
	Score    *int   `json:"score,omitempty"`
	Grade    string `json:"grade,omitempty"`
}

func (s *Summary) Add(sev Severity) {
	switch sev {
	case SeverityCritical:
		s.Critical++
	case SeverityHigh:
		s.High++
	case SeverityMedium:
		s.Medium++
	case SeverityLow:
		s.Low++
	default:
		s.Info++
	}
}

func (s Summary) Total() int {
	return s.Critical + s.High + s.Medium + s.Low + s.Info
}

// Tally counts findings by severity.
func Tally(findings []Finding) Summary {
	var s Summary
	for _, f := range findings {
		s.Add(f.Severity)
	}
	return s
}

// GradeFor maps a 0-100 score to a letter grade.
func GradeFor(score int) string {
	switch {
	case score >= 90:
		return "A"
	case score >= 75:
		return "B"
	case score >= 50:
		return "C"
	default:
		return "D"
	}
}

// ClampScore bounds a score to [0,100].
func ClampScore(score int) int {
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}

// Result is the output of a normalizer.
type Result struct {
	Findings []Finding `json:"findings"`
	Summary  Summary   `json:"summary"`
}

// EmptyResult is the value every normalizer returns for missing input.
func EmptyResult() Result {
	return Result{Findings: []Finding{}}
}
