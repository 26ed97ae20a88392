// Package nuclei normalizes structured vulnerability lists: nuclei's JSON
// export and any tool that reports an array of discrete issue objects.
package nuclei

import (
	"pentellia/scan-core/internal/model"
	"pentellia/scan-core/internal/scanners"
)

// Keys searched, in order, for the issue array when the payload is an object.
var listKeys = []string{"results", "findings", "vulnerabilities", "issues", "data", "result.results", "result"}

type Normalizer struct{}

func New() *Normalizer { return &Normalizer{} }

func (*Normalizer) Category() scanners.Category { return scanners.CategoryStructuredList }

func (*Normalizer) Normalize(in scanners.Input) model.Result {
	items, ok := scanners.List(scanners.Decode(in.Raw), listKeys...)
	if !ok {
		return model.EmptyResult()
	}
	findings := make([]model.Finding, 0, len(items))
	for i, item := range items {
		findings = append(findings, FromItem(in.Tool, in.Target, "vulnerability", item, i))
	}
	return model.Result{Findings: findings}
}

// FromItem maps one issue object to a Finding. Every item yields exactly one
// Finding; a bare string item becomes the title.
func FromItem(tool, target, defaultCategory string, item any, ordinal int) model.Finding {
	if s := scanners.String(item); s != "" {
		return scanners.Build(scanners.Draft{
			Tool:     tool,
			Category: defaultCategory,
			Title:    s,
			Asset:    target,
			Severity: model.SeverityInfo,
			Evidence: item,
			Ordinal:  ordinal,
		})
	}

	ruleID := scanners.FirstString(item, "template-id", "template_id", "templateID", "rule_id", "id")
	title := scanners.FirstString(item, "info.name", "name", "title", "check")
	if title == "" {
		title = ruleID
	}
	if title == "" {
		title = "Unnamed issue"
	}

	asset := scanners.FirstString(item, "matched-at", "matched_at", "url", "host", "target")
	if asset == "" {
		asset = target
	}

	category := scanners.FirstString(item, "type", "category")
	if category == "" {
		category = defaultCategory
	}

	tags := scanners.Strings(scanners.Lookup(item, "info", "tags"))
	tags = append(tags, scanners.Strings(scanners.Lookup(item, "tags"))...)

	var confidence *float64
	if c, ok := scanners.Float(scanners.Lookup(item, "confidence")); ok {
		confidence = &c
	}

	return scanners.Build(scanners.Draft{
		Tool:       tool,
		Category:   category,
		RuleID:     ruleID,
		Title:      title,
		Asset:      asset,
		Severity:   model.ParseSeverity(scanners.FirstString(item, "info.severity", "severity", "risk", "level")),
		Confidence: confidence,
		Evidence:   item,
		Tags:       tags,
		Ordinal:    ordinal,
	})
}
