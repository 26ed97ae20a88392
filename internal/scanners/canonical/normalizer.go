// Package canonical ingests results from engines that already emit the
// canonical finding shape, such as the cloud and network composite scans.
package canonical

import (
	"math"

	"pentellia/scan-core/internal/model"
	"pentellia/scan-core/internal/scanners"
)

type Normalizer struct{}

func New() *Normalizer { return &Normalizer{} }

func (*Normalizer) Category() scanners.Category { return scanners.CategoryCanonical }

func (*Normalizer) Normalize(in scanners.Input) model.Result {
	root := scanners.Decode(in.Raw)
	if inner, ok := scanners.Lookup(root, "result").(map[string]any); ok {
		root = inner
	}

	items, _ := scanners.List(root, "findings")
	findings := make([]model.Finding, 0, len(items))
	for i, item := range items {
		id := scanners.FirstString(item, "id")
		tool := scanners.FirstString(item, "source_tool")
		if tool == "" {
			tool = in.Tool
		}
		asset := scanners.FirstString(item, "affected_asset")
		if asset == "" {
			asset = in.Target
		}
		title := scanners.FirstString(item, "title", "name")
		if title == "" {
			title = id
		}

		var confidence *float64
		if c, ok := scanners.Float(scanners.Lookup(item, "confidence")); ok {
			confidence = &c
		}
		var evidence any
		if e := scanners.Lookup(item, "evidence"); e != nil {
			evidence = e
		}

		f := scanners.Build(scanners.Draft{
			Tool:       tool,
			Category:   scanners.FirstString(item, "category"),
			RuleID:     id,
			Title:      title,
			Asset:      asset,
			Severity:   model.ParseSeverity(scanners.FirstString(item, "severity")),
			Confidence: confidence,
			Evidence:   evidence,
			Tags:       scanners.Strings(scanners.Lookup(item, "tags")),
			Ordinal:    i,
		})
		if id != "" {
			f.ID = id
		}
		findings = append(findings, f)
	}

	res := model.Result{Findings: findings}
	if score, ok := scanners.Float(scanners.Lookup(root, "summary", "risk_score")); ok {
		s := model.ClampScore(int(math.Round(score)))
		res.Summary.Score = &s
		res.Summary.Grade = scanners.FirstString(root, "summary.risk_level")
		if res.Summary.Grade == "" {
			res.Summary.Grade = model.GradeFor(s)
		}
	}
	return res
}
