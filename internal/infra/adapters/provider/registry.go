package provider

import (
	"sort"

	"saas-ai-orchestrator/internal/domain/ports/adapter"
)

var _ adapter.ProviderSet = (*Registry)(nil)

// Registry is the registration map from provider identifier to adapter.
// Built once at startup; adapters without credentials are never registered,
// so lookups naturally report "provider unavailable".
type Registry struct {
	byName map[string]adapter.TextProvider
}

func NewRegistry() *Registry {
	return &Registry{byName: map[string]adapter.TextProvider{}}
}

func (r *Registry) Register(p adapter.TextProvider) {
	r.byName[p.Name()] = p
}

func (r *Registry) Get(provider string) (adapter.TextProvider, bool) {
	p, ok := r.byName[provider]
	return p, ok
}

// GetStream reports streaming support as a typed optional instead of a
// runtime probe.
func (r *Registry) GetStream(provider string) (adapter.StreamProvider, bool) {
	p, ok := r.byName[provider]
	if !ok {
		return nil, false
	}
	sp, ok := p.(adapter.StreamProvider)
	return sp, ok
}

func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.byName))
	for n := range r.byName {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// UpdateCheckers returns the registered adapters that manage local model
// artifacts.
func (r *Registry) UpdateCheckers() []adapter.UpdateChecker {
	var out []adapter.UpdateChecker
	for _, name := range r.Names() {
		if uc, ok := r.byName[name].(adapter.UpdateChecker); ok {
			out = append(out, uc)
		}
	}
	return out
}
