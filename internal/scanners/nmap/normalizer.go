// Package nmap extracts open ports from nmap's console output.
package nmap

import (
	"fmt"
	"regexp"
	"strings"

	"pentellia/scan-core/internal/model"
	"pentellia/scan-core/internal/scanners"
)

var (
	portLine   = regexp.MustCompile(`^\s*(\d{1,5})/(tcp|udp|sctp)\s+(\S+)\s+(\S+)`)
	reportLine = regexp.MustCompile(`^Nmap scan report for (\S+)(?:\s+\((\S+)\))?`)
)

// Object keys that may hold the console text.
var textKeys = []string{"result", "output", "stdout", "raw", "data"}

type Normalizer struct{}

func New() *Normalizer { return &Normalizer{} }

func (*Normalizer) Category() scanners.Category { return scanners.CategoryFreeText }

func (*Normalizer) Normalize(in scanners.Input) model.Result {
	text := extractText(scanners.Decode(in.Raw))
	if text == "" {
		return model.EmptyResult()
	}

	findings := []model.Finding{}
	host := ""
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimRight(line, "\r")
		if m := reportLine.FindStringSubmatch(line); m != nil {
			host = m[1]
			if m[2] != "" {
				host = m[2]
			}
			continue
		}
		m := portLine.FindStringSubmatch(line)
		if m == nil || m[3] != "open" {
			continue
		}
		port, proto, service := m[1], m[2], m[4]

		asset := in.Target
		if host != "" {
			asset = host
		}
		evidence := map[string]string{"port": port, "protocol": proto, "service": service}
		if host != "" {
			evidence["host"] = host
		}

		findings = append(findings, scanners.Build(scanners.Draft{
			Tool:     in.Tool,
			Category: "network",
			RuleID:   port + "/" + proto,
			Title:    fmt.Sprintf("Open port %s/%s (%s)", port, proto, service),
			Asset:    asset,
			Severity: model.SeverityInfo,
			Evidence: evidence,
			Tags:     []string{"port:" + port, "protocol:" + proto, "service:" + service},
			Ordinal:  len(findings),
		}))
	}
	return model.Result{Findings: findings}
}

func extractText(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case []any:
		lines := make([]string, 0, len(t))
		for _, e := range t {
			if s, ok := e.(string); ok {
				lines = append(lines, s)
			}
		}
		return strings.Join(lines, "\n")
	case map[string]any:
		for _, k := range textKeys {
			if s := extractText(t[k]); s != "" {
				return s
			}
		}
	}
	return ""
}
