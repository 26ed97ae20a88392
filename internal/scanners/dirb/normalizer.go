// Package dirb normalizes directory enumeration output: one finding per
// discovered path.
package dirb

import (
	"regexp"
	"strings"

	"pentellia/scan-core/internal/model"
	"pentellia/scan-core/internal/scanners"
)

var (
	urlPattern  = regexp.MustCompile(`(https?://\S+)`)
	metaPattern = regexp.MustCompile(`\((.*?)\)`)
	codePattern = regexp.MustCompile(`CODE:(\d{3})`)
)

type Normalizer struct{}

func New() *Normalizer { return &Normalizer{} }

func (*Normalizer) Category() scanners.Category { return scanners.CategoryPathList }

func (*Normalizer) Normalize(in scanners.Input) model.Result {
	items, ok := scanners.List(scanners.Decode(in.Raw), "found_items", "result.found_items", "results")
	if !ok {
		return model.EmptyResult()
	}

	findings := make([]model.Finding, 0, len(items))
	for _, item := range items {
		line := scanners.String(item)
		if line == "" {
			continue
		}
		url := line
		if m := urlPattern.FindStringSubmatch(line); m != nil {
			url = m[1]
		}
		meta := ""
		if m := metaPattern.FindStringSubmatch(line); m != nil {
			meta = m[1]
		}

		evidence := map[string]string{"url": url}
		tags := []string{"path-enumeration"}
		if meta != "" {
			evidence["meta"] = meta
		}
		if m := codePattern.FindStringSubmatch(meta); m != nil {
			evidence["code"] = m[1]
			tags = append(tags, "status:"+m[1])
		}

		findings = append(findings, scanners.Build(scanners.Draft{
			Tool:     in.Tool,
			Category: "content-discovery",
			RuleID:   url,
			Title:    "Discovered path " + strings.TrimRight(url, "/"),
			Asset:    url,
			Severity: model.SeverityLow,
			Evidence: evidence,
			Tags:     tags,
			Ordinal:  len(findings),
		}))
	}
	return model.Result{Findings: findings}
}
