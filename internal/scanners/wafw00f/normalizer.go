// Package wafw00f turns a firewall detection flag into at most one finding.
package wafw00f

import (
	"strings"

	"pentellia/scan-core/internal/model"
	"pentellia/scan-core/internal/scanners"
)

type Detection struct {
	Detected     bool
	Firewall     string
	Manufacturer string
	URL          string
}

type Normalizer struct{}

func New() *Normalizer { return &Normalizer{} }

func (*Normalizer) Category() scanners.Category { return scanners.CategoryBooleanDetection }

func (*Normalizer) Normalize(in scanners.Input) model.Result {
	d := Detect(scanners.Decode(in.Raw))
	if !d.Detected {
		return model.EmptyResult()
	}

	asset := d.URL
	if asset == "" {
		asset = in.Target
	}
	title := "Web application firewall detected"
	if d.Firewall != "" {
		title += ": " + d.Firewall
	}
	tags := []string{"waf"}
	if d.Manufacturer != "" {
		tags = append(tags, "vendor:"+d.Manufacturer)
	}

	evidence := map[string]any{"detected": true}
	if d.Firewall != "" {
		evidence["firewall"] = d.Firewall
	}
	if d.Manufacturer != "" {
		evidence["manufacturer"] = d.Manufacturer
	}

	f := scanners.Build(scanners.Draft{
		Tool:     in.Tool,
		Category: "waf",
		RuleID:   d.Firewall,
		Title:    title,
		Asset:    asset,
		Severity: model.SeverityInfo,
		Evidence: evidence,
		Tags:     tags,
	})
	return model.Result{Findings: []model.Finding{f}}
}

// Detect reads the detection flag from a flat object, a {"data": [...]}
// envelope, a bare array (first detected entry wins) or a "result" wrapper.
func Detect(v any) Detection {
	switch t := v.(type) {
	case []any:
		for _, e := range t {
			if d := Detect(e); d.Detected {
				return d
			}
		}
		return Detection{}
	case map[string]any:
		if _, ok := t["detected"]; !ok {
			for _, k := range []string{"data", "result", "results"} {
				if inner, ok := t[k]; ok {
					return Detect(inner)
				}
			}
			return Detection{}
		}
		return Detection{
			Detected:     scanners.Bool(t["detected"]),
			Firewall:     vendorName(scanners.String(t["firewall"])),
			Manufacturer: vendorName(scanners.String(t["manufacturer"])),
			URL:          scanners.String(t["url"]),
		}
	}
	return Detection{}
}

// wafw00f reports "None"/"Unknown" placeholders when it cannot name a vendor.
func vendorName(s string) string {
	switch strings.ToLower(s) {
	case "", "none", "unknown", "generic":
		return ""
	}
	return s
}
