// Package search routes web searches across providers with an ordered
// fallback chain. Unconfigured providers are resolved before any
// network attempt.
package search

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/arclabs561/webpipe/pkg/config"
)

const (
	ProviderAuto    = "auto"
	ProviderBrave   = "brave"
	ProviderTavily  = "tavily"
	ProviderSearXNG = "searxng"

	// AutoModeFallback tries providers in priority order until one
	// returns results; AutoModeFirst uses only the first configured one.
	AutoModeFallback = "fallback"
	AutoModeFirst    = "first"

	DefaultMaxResults = 5
)

// FallbackOrder is the fixed priority for auto mode.
var FallbackOrder = []string{ProviderBrave, ProviderTavily, ProviderSearXNG}

// ErrNotConfigured marks a provider missing credentials or endpoint.
var ErrNotConfigured = errors.New("search provider not configured")

// Query is a normalized search request.
type Query struct {
	Query      string
	MaxResults int
	TimeoutMs  int64
}

// Candidate is one search hit.
type Candidate struct {
	URL     string `json:"url"`
	Title   string `json:"title,omitempty"`
	Snippet string `json:"snippet,omitempty"`
	// Provider names the backend that produced this hit.
	Provider string `json:"provider"`
}

// Provider performs web searches for one backend.
type Provider interface {
	Name() string
	Search(ctx context.Context, q Query) ([]Candidate, error)
}

// Router resolves the provider chain from process config.
type Router struct {
	providers map[string]Provider
}

// NewRouter registers every provider the config can support.
func NewRouter(cfg *config.Config) *Router {
	r := &Router{providers: make(map[string]Provider)}
	if p := newBraveProvider(cfg.Brave); p != nil {
		r.providers[p.Name()] = p
	}
	if p := newTavilyProvider(cfg.Tavily); p != nil {
		r.providers[p.Name()] = p
	}
	if p := newSearXNGProvider(cfg.SearXNG); p != nil {
		r.providers[p.Name()] = p
	}
	return r
}

// Order resolves the candidate provider list for a request. An
// explicit provider yields a single-element order; auto expands to the
// configured subset of FallbackOrder (all of it for AutoModeFallback,
// just the first configured provider for AutoModeFirst).
func (r *Router) Order(provider, autoMode string) ([]string, error) {
	name := strings.TrimSpace(strings.ToLower(provider))
	if name == "" {
		name = ProviderAuto
	}
	if name != ProviderAuto {
		switch name {
		case ProviderBrave, ProviderTavily, ProviderSearXNG:
		default:
			return nil, fmt.Errorf("unknown search provider %q", provider)
		}
		if _, ok := r.providers[name]; !ok {
			return nil, fmt.Errorf("%w: %s", ErrNotConfigured, name)
		}
		return []string{name}, nil
	}

	var order []string
	for _, candidate := range FallbackOrder {
		if _, ok := r.providers[candidate]; ok {
			order = append(order, candidate)
		}
	}
	if len(order) == 0 {
		return nil, fmt.Errorf("%w: no provider has credentials", ErrNotConfigured)
	}
	if strings.TrimSpace(strings.ToLower(autoMode)) == AutoModeFirst {
		order = order[:1]
	}
	return order, nil
}

// Search runs the query through the resolved chain: first provider to
// return results wins; all failures aggregate into one error.
func (r *Router) Search(ctx context.Context, q Query, provider, autoMode string) ([]Candidate, error) {
	if strings.TrimSpace(q.Query) == "" {
		return nil, errors.New("missing query")
	}
	if q.MaxResults <= 0 {
		q.MaxResults = DefaultMaxResults
	}
	order, err := r.Order(provider, autoMode)
	if err != nil {
		return nil, err
	}

	var errs []error
	for _, name := range order {
		p := r.providers[name]
		candidates, err := p.Search(ctx, q)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
			continue
		}
		if len(candidates) == 0 {
			errs = append(errs, fmt.Errorf("%s: no results", name))
			continue
		}
		if len(candidates) > q.MaxResults {
			candidates = candidates[:q.MaxResults]
		}
		return candidates, nil
	}
	return nil, fmt.Errorf("all search providers failed: %w", errors.Join(errs...))
}
