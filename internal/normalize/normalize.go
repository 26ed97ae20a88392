// Package normalize wires the per-tool normalizers into the registry used by
// the job service and the CLI.
package normalize

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"

	"pentellia/scan-core/internal/model"
	"pentellia/scan-core/internal/scanners"
	"pentellia/scan-core/internal/scanners/bandit"
	"pentellia/scan-core/internal/scanners/canonical"
	"pentellia/scan-core/internal/scanners/dirb"
	"pentellia/scan-core/internal/scanners/nmap"
	"pentellia/scan-core/internal/scanners/nuclei"
	"pentellia/scan-core/internal/scanners/semgrep"
	"pentellia/scan-core/internal/scanners/wafw00f"
	"pentellia/scan-core/internal/scanners/webscan"
	"pentellia/scan-core/internal/scanners/zap"
)

// DefaultRegistry returns a registry with every built-in tool bound.
func DefaultRegistry() *scanners.Registry {
	r := scanners.NewRegistry()
	r.Register(nuclei.New(), "nuclei", "vulnscan")
	r.Register(semgrep.New(), "semgrep")
	r.Register(zap.New(), "zap", "owasp-zap")
	r.Register(bandit.New(), "bandit")
	r.Register(nmap.New(), "nmap", "portscan")
	r.Register(wafw00f.New(), "wafw00f", "waf")
	r.Register(webscan.New(), "webscan")
	r.Register(dirb.New(), "dirb", "dirbuster", "gobuster")
	r.Register(canonical.New(), "cloudscan", "networkscan")
	return r
}

// Normalizer converts raw results into findings. It is safe for concurrent use.
type Normalizer struct {
	registry *scanners.Registry
}

func New(registry *scanners.Registry) *Normalizer {
	if registry == nil {
		registry = DefaultRegistry()
	}
	return &Normalizer{registry: registry}
}

// Normalize converts a tool's raw result. Unknown tools and empty payloads
// produce an empty result.
func (n *Normalizer) Normalize(tool string, raw json.RawMessage) model.Result {
	return n.registry.Normalize(scanners.Input{Tool: tool, Raw: raw})
}

// Job normalizes a job's stored result into an Artifact. The job is not
// modified.
func (n *Normalizer) Job(job *model.ScanJob) model.Artifact {
	if job == nil {
		return model.Artifact{Findings: []model.Finding{}}
	}
	res := n.registry.Normalize(scanners.Input{Tool: job.Tool, Target: job.Target, Raw: job.RawResult})
	return model.Artifact{
		JobID:    job.JobID,
		Tool:     job.Tool,
		Checksum: Checksum(job.RawResult),
		Findings: res.Findings,
		Summary:  res.Summary,
	}
}

// Checksum is the hex sha256 of a raw result, or "" when there is none.
func Checksum(raw json.RawMessage) string {
	if scanners.IsEmpty(raw) {
		return ""
	}
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:])
}

// NormalizeTarget is Normalize with the scanned target available as a
// fallback asset.
func (n *Normalizer) NormalizeTarget(tool, target string, raw json.RawMessage) model.Result {
	return n.registry.Normalize(scanners.Input{Tool: tool, Target: target, Raw: raw})
}
