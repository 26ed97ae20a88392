package scanners

import (
	"sort"
	"strings"
	"sync"

	"pentellia/scan-core/internal/metrics"
	"pentellia/scan-core/internal/model"
)

// Registry maps tool identifiers to normalizers.
type Registry struct {
	mu      sync.RWMutex
	aliases map[string]Normalizer
}

func NewRegistry() *Registry {
	return &Registry{aliases: make(map[string]Normalizer)}
}

// Register binds n to each alias. Aliases are matched case-insensitively;
// registering an alias twice replaces the earlier binding.
func (r *Registry) Register(n Normalizer, aliases ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range aliases {
		a = strings.ToLower(strings.TrimSpace(a))
		if a == "" {
			continue
		}
		r.aliases[a] = n
	}
}

// Resolve finds the normalizer for tool: an exact alias match first, then the
// longest alias whose tokens appear as a run in the identifier's tokens
// ("networkscan-pro" resolves to "networkscan", "uncommon-scanner" resolves to
// nothing). Ties on length break alphabetically so resolution is stable.
func (r *Registry) Resolve(tool string) (Normalizer, bool) {
	key := strings.ToLower(strings.TrimSpace(tool))
	if key == "" {
		return nil, false
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	if n, ok := r.aliases[key]; ok {
		return n, true
	}

	words := tokens(key)
	best := ""
	for alias := range r.aliases {
		if !containsRun(words, tokens(alias)) {
			continue
		}
		if len(alias) > len(best) || (len(alias) == len(best) && alias < best) {
			best = alias
		}
	}
	if best == "" {
		return nil, false
	}
	return r.aliases[best], true
}

func tokens(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		switch r {
		case '-', '_', '.', '/', ':', ' ':
			return true
		}
		return false
	})
}

func containsRun(words, run []string) bool {
	if len(run) == 0 {
		return false
	}
	for i := 0; i+len(run) <= len(words); i++ {
		match := true
		for j := range run {
			if words[i+j] != run[j] {
				match = false
				break
			}
		}
		if match {
			return true
		}
	}
	return false
}

// Aliases lists the registered tool aliases grouped by category.
func (r *Registry) Aliases() map[Category][]string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[Category][]string)
	for alias, n := range r.aliases {
		out[n.Category()] = append(out[n.Category()], alias)
	}
	for c := range out {
		sort.Strings(out[c])
	}
	return out
}

// Normalize runs the matching normalizer. Unknown tools and empty input yield
// an empty result rather than an error.
func (r *Registry) Normalize(in Input) model.Result {
	n, ok := r.Resolve(in.Tool)
	if !ok || IsEmpty(in.Raw) {
		return model.EmptyResult()
	}

	res := n.Normalize(in)
	if res.Findings == nil {
		res.Findings = []model.Finding{}
	}

	score, grade := res.Summary.Score, res.Summary.Grade
	res.Summary = model.Tally(res.Findings)
	res.Summary.Score = score
	res.Summary.Grade = grade

	metrics.NormalizedFindings.WithLabelValues(string(n.Category())).Add(float64(len(res.Findings)))
	return res
}
