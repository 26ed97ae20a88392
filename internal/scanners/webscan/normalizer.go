// Package webscan normalizes the composite web scan: a reconnaissance phase,
// a security header audit and any number of probe phases, each normalized on
// its own and concatenated. The header audit also yields the summary score.
package webscan

import (
	"math"
	"sort"

	"pentellia/scan-core/internal/model"
	"pentellia/scan-core/internal/scanners"
	"pentellia/scan-core/internal/scanners/nuclei"
	"pentellia/scan-core/internal/scanners/wafw00f"
)

const (
	phaseRecon   = "reconnaissance"
	phaseHeaders = "security_headers"
)

type Normalizer struct {
	waf *wafw00f.Normalizer
}

func New() *Normalizer { return &Normalizer{waf: wafw00f.New()} }

func (*Normalizer) Category() scanners.Category { return scanners.CategoryComposite }

func (n *Normalizer) Normalize(in scanners.Input) model.Result {
	root := scanners.Decode(in.Raw)
	if inner, ok := scanners.Lookup(root, "result").(map[string]any); ok {
		root = inner
	}
	phases, ok := scanners.Lookup(root, "results").(map[string]any)
	if !ok {
		return model.EmptyResult()
	}

	target := in.Target
	if t := scanners.FirstString(root, "target"); t != "" {
		target = t
	}

	var findings []model.Finding
	findings = append(findings, n.recon(in.Tool, target, phases[phaseRecon])...)

	headerFindings, score := headers(in.Tool, target, phases[phaseHeaders])
	findings = append(findings, headerFindings...)

	names := make([]string, 0, len(phases))
	for name := range phases {
		if name != phaseRecon && name != phaseHeaders {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	for _, name := range names {
		findings = append(findings, probes(in.Tool, target, name, phases[name])...)
	}

	res := model.Result{Findings: findings}
	if score != nil {
		res.Summary.Score = score
		res.Summary.Grade = model.GradeFor(*score)
	}
	return res
}

func (n *Normalizer) recon(tool, target string, phase any) []model.Finding {
	if phase == nil {
		return nil
	}
	var out []model.Finding

	if waf := scanners.Lookup(phase, "wafw00f"); waf != nil {
		res := n.waf.Normalize(scanners.Input{Tool: tool, Target: target, Raw: scanners.Raw(waf)})
		for _, f := range res.Findings {
			f.Tags = scanners.TagSet(append(f.Tags, "phase:"+phaseRecon)...)
			out = append(out, f)
		}
	}

	seen := map[string]bool{}
	var tech []string
	add := func(values []string) {
		for _, v := range values {
			if v != "" && !seen[v] {
				seen[v] = true
				tech = append(tech, v)
			}
		}
	}
	add(scanners.Strings(scanners.Lookup(phase, "httpx", "results", "0", "tech")))
	add(scanners.Strings(scanners.Lookup(phase, "httpx", "results", "0", "webserver")))
	add(scanners.Strings(scanners.Lookup(phase, "whatweb", "results", "0", "plugins", "HTTPServer", "string")))

	for i, t := range tech {
		out = append(out, scanners.Build(scanners.Draft{
			Tool:     tool,
			Category: "technology",
			RuleID:   t,
			Title:    "Technology detected: " + t,
			Asset:    target,
			Severity: model.SeverityInfo,
			Evidence: map[string]string{"technology": t},
			Tags:     []string{"phase:" + phaseRecon, "technology"},
			Ordinal:  i,
		}))
	}
	return out
}

// headers emits one finding per missing header and computes
// score = 100 * present / required, clamped to [0,100].
func headers(tool, target string, phase any) ([]model.Finding, *int) {
	if phase == nil {
		return nil, nil
	}

	missing, _ := scanners.List(phase, "findings", "missing")
	out := make([]model.Finding, 0, len(missing))
	for i, item := range missing {
		item = missingHeader(item)
		f := nuclei.FromItem(tool, target, "security-headers", item, i)
		f.Tags = scanners.TagSet(append(f.Tags, "phase:"+phaseHeaders)...)
		out = append(out, f)
	}

	present := count(scanners.Lookup(phase, "headers_present"))
	required := count(scanners.Lookup(phase, "headers_required"))
	if required == 0 {
		required = present + len(missing)
	}
	if required == 0 {
		return out, nil
	}
	score := model.ClampScore(int(math.Round(100 * float64(present) / float64(required))))
	return out, &score
}

// missingHeader gives header audit items a "Missing security header: X"
// title. Items may be bare header names or objects with a "header" member.
func missingHeader(item any) any {
	if h := scanners.String(item); h != "" {
		return map[string]any{"id": h, "header": h, "title": "Missing security header: " + h}
	}
	m, ok := item.(map[string]any)
	h := scanners.FirstString(item, "header")
	if !ok || h == "" || scanners.FirstString(item, "title", "name") != "" {
		return item
	}
	copied := make(map[string]any, len(m)+2)
	for k, v := range m {
		copied[k] = v
	}
	copied["title"] = "Missing security header: " + h
	copied["id"] = h
	return copied
}

func probes(tool, target, name string, phase any) []model.Finding {
	items, ok := scanners.List(phase, "findings", "results", "vulnerabilities")
	if !ok {
		return nil
	}
	out := make([]model.Finding, 0, len(items))
	for i, item := range items {
		f := nuclei.FromItem(tool, target, name, item, i)
		f.Tags = scanners.TagSet(append(f.Tags, "phase:"+name)...)
		out = append(out, f)
	}
	return out
}

// count accepts either a number or a list.
func count(v any) int {
	if arr, ok := v.([]any); ok {
		return len(arr)
	}
	if f, ok := scanners.Float(v); ok && f > 0 {
		return int(f)
	}
	return 0
}
