// Package zap normalizes OWASP ZAP reports: the site[].alerts[] JSON report
// and the flat alerts list returned by the ZAP API.
package zap

import (
	"strings"

	"pentellia/scan-core/internal/model"
	"pentellia/scan-core/internal/scanners"
)

type Normalizer struct{}

func New() *Normalizer { return &Normalizer{} }

func (*Normalizer) Category() scanners.Category { return scanners.CategoryStructuredList }

func (*Normalizer) Normalize(in scanners.Input) model.Result {
	v := scanners.Decode(in.Raw)
	findings := []model.Finding{}

	sites := scanners.Lookup(v, "site")
	if site, ok := sites.(map[string]any); ok {
		sites = []any{site}
	}
	if list, ok := sites.([]any); ok {
		for _, site := range list {
			host := scanners.FirstString(site, "@name", "name")
			alerts, _ := scanners.List(scanners.Lookup(site, "alerts"))
			for _, alert := range alerts {
				findings = append(findings, fromAlert(in, host, alert, len(findings)))
			}
		}
		return model.Result{Findings: findings}
	}

	alerts, _ := scanners.List(v, "alerts")
	for _, alert := range alerts {
		findings = append(findings, fromAlert(in, "", alert, len(findings)))
	}
	return model.Result{Findings: findings}
}

func fromAlert(in scanners.Input, host string, alert any, ordinal int) model.Finding {
	ruleID := scanners.FirstString(alert, "pluginid", "pluginId", "alertRef")
	title := scanners.FirstString(alert, "alert", "name")
	if title == "" {
		title = ruleID
	}
	if title == "" {
		title = "Unnamed alert"
	}

	asset := scanners.FirstString(alert, "instances.0.uri", "url", "uri")
	if asset == "" {
		asset = host
	}
	if asset == "" {
		asset = in.Target
	}

	var tags []string
	if cwe := scanners.FirstString(alert, "cweid"); cwe != "" && cwe != "-1" && cwe != "0" {
		tags = append(tags, "cwe-"+cwe)
	}
	if wasc := scanners.FirstString(alert, "wascid"); wasc != "" && wasc != "-1" && wasc != "0" {
		tags = append(tags, "wasc-"+wasc)
	}

	var confidence *float64
	if c, ok := confidenceLevels[strings.ToLower(scanners.FirstString(alert, "confidence"))]; ok {
		confidence = &c
	}

	return scanners.Build(scanners.Draft{
		Tool:       in.Tool,
		Category:   "web",
		RuleID:     ruleID,
		Title:      title,
		Asset:      asset,
		Severity:   Severity(alert),
		Confidence: confidence,
		Evidence:   alert,
		Tags:       tags,
		Ordinal:    ordinal,
	})
}

// Report files carry numeric codes, the API carries names.
var confidenceLevels = map[string]float64{
	"1": 0.3, "low": 0.3,
	"2": 0.6, "medium": 0.6,
	"3": 0.9, "high": 0.9,
	"4": 1, "confirmed": 1,
}

// Severity reads riskcode (0 info to 3 high), falling back to the risk name.
func Severity(alert any) model.Severity {
	switch scanners.FirstString(alert, "riskcode", "riskCode") {
	case "3":
		return model.SeverityHigh
	case "2":
		return model.SeverityMedium
	case "1":
		return model.SeverityLow
	case "0":
		return model.SeverityInfo
	}
	return model.ParseSeverity(scanners.FirstString(alert, "risk"))
}
