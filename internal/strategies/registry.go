package strategies

import (
	"fmt"

	"github.com/agnivade/levenshtein"

	"github.com/systmms/arkit/internal/config"
	"github.com/systmms/arkit/pkg/strategy"
)

// maxSuggestDistance bounds how far a typo may be from a known id.
const maxSuggestDistance = 3

// Registry holds the strategies offered to the user, in display order
type Registry struct {
	strategies []strategy.Strategy
	byID       map[string]strategy.Strategy
}

// New creates a registry of the given strategies. It panics on an empty or
// duplicate id.
func New(strategies ...strategy.Strategy) *Registry {
	r := &Registry{byID: make(map[string]strategy.Strategy, len(strategies))}
	for _, s := range strategies {
		id := s.Metadata().ID
		if id == "" {
			panic("strategies: strategy with empty id")
		}
		if _, exists := r.byID[id]; exists {
			panic(fmt.Sprintf("strategies: duplicate strategy id %q", id))
		}
		r.byID[id] = s
		r.strategies = append(r.strategies, s)
	}
	return r
}

// NewRegistry creates the registry of built-in strategies
func NewRegistry(cfg config.StrategiesConfig) *Registry {
	return New(
		NewKeyfile(cfg.Keyfile.Path),
		NewKeychain(cfg.Keychain.Service, cfg.Keychain.Account),
		NewReadonly(strategy.Address(cfg.Readonly.Address)),
		NewAWSSecrets(cfg.AWSSecrets),
		NewAWSParameter(cfg.AWSParameter),
		NewGCPSecrets(cfg.GCPSecrets),
		NewAzureKeyVault(cfg.AzureKeyVault),
		NewAkeyless(cfg.Akeyless),
	)
}

// List returns the strategies in display order
func (r *Registry) List() []strategy.Strategy {
	out := make([]strategy.Strategy, len(r.strategies))
	copy(out, r.strategies)
	return out
}

// Find returns the strategy with the given id
func (r *Registry) Find(id string) (strategy.Strategy, bool) {
	s, ok := r.byID[id]
	return s, ok
}

// IDs returns the strategy ids in display order
func (r *Registry) IDs() []string {
	ids := make([]string, len(r.strategies))
	for i, s := range r.strategies {
		ids[i] = s.Metadata().ID
	}
	return ids
}

// Suggest returns the known id closest to id, if one is close enough
func (r *Registry) Suggest(id string) (string, bool) {
	best, bestDist := "", maxSuggestDistance+1
	for _, known := range r.IDs() {
		if d := levenshtein.ComputeDistance(id, known); d < bestDist {
			best, bestDist = known, d
		}
	}
	return best, best != ""
}
