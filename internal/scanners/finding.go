package scanners

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sort"
	"strconv"
	"strings"

	"pentellia/scan-core/internal/model"
)

// Fingerprint hashes the identifying parts of a finding. Same parts, same
// fingerprint.
func Fingerprint(parts ...string) string {
	h := sha256.New()
	for i, p := range parts {
		if i > 0 {
			h.Write([]byte{0})
		}
		h.Write([]byte(p))
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Draft describes a finding before ids and tags are settled.
type Draft struct {
	Tool       string
	Category   string
	RuleID     string
	Title      string
	Asset      string
	Severity   model.Severity
	Confidence *float64
	Evidence   any
	Tags       []string
	// Ordinal keeps otherwise identical items (two equal lines in a report)
	// distinct.
	Ordinal int
}

// Build turns a Draft into a canonical Finding with a deterministic id.
func Build(s Draft) model.Finding {
	tool := strings.ToLower(strings.TrimSpace(s.Tool))
	fp := Fingerprint(tool, s.Category, s.RuleID, s.Asset, s.Title, strconv.Itoa(s.Ordinal))

	sev := s.Severity
	if sev == "" {
		sev = model.SeverityInfo
	}

	f := model.Finding{
		ID:            slug(tool) + "-" + fp[:12],
		Title:         s.Title,
		Severity:      sev,
		Confidence:    clampConfidence(s.Confidence),
		Category:      s.Category,
		AffectedAsset: s.Asset,
		SourceTool:    tool,
		Tags:          TagSet(s.Tags...),
		Fingerprint:   fp,
	}
	if s.Evidence != nil {
		if raw, ok := s.Evidence.(json.RawMessage); ok {
			f.Evidence = compact(raw)
		} else if b, err := json.Marshal(s.Evidence); err == nil {
			f.Evidence = b
		}
	}
	return f
}

// TagSet trims, lowercases, de-duplicates and sorts tags. It never returns nil.
func TagSet(tags ...string) []string {
	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// IsEmpty reports whether raw carries no payload at all.
func IsEmpty(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}

func clampConfidence(c *float64) *float64 {
	if c == nil {
		return nil
	}
	v := *c
	if v < 0 {
		v = 0
	}
	if v > 1 {
		v = 1
	}
	return &v
}

func compact(raw json.RawMessage) json.RawMessage {
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return nil
	}
	return buf.Bytes()
}

func slug(tool string) string {
	if tool == "" {
		return "finding"
	}
	var b strings.Builder
	for _, r := range tool {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		default:
			b.WriteByte('-')
		}
	}
	return strings.Trim(b.String(), "-")
}
