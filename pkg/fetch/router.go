package fetch

import (
	"context"
	"fmt"
	"strings"

	"github.com/arclabs561/webpipe/pkg/config"
)

// Router dispatches fetches to the backend named in the request.
// Fallback-on-low-signal is driven by the pipeline, which owns the
// extraction signal; the router only resolves backends and surfaces
// not_configured before any network attempt.
type Router struct {
	registry *Registry
}

// NewRouter builds a router over the backends the process config can
// support. The local backend is always present; render is registered
// unconditionally (launch failures surface as not_configured at fetch
// time); firecrawl only when credentials exist.
func NewRouter(cfg *config.Config) *Router {
	registry := NewRegistry()
	registry.Register(NewLocalProvider())
	registry.Register(NewRenderProvider(cfg.Render))
	if p := NewFirecrawlProvider(cfg.Firecrawl); p != nil {
		registry.Register(p)
	}
	return &Router{registry: registry}
}

// Resolve validates a backend name, defaulting empty to local.
func (r *Router) Resolve(backend string) (Provider, error) {
	name := strings.TrimSpace(strings.ToLower(backend))
	if name == "" {
		name = BackendLocal
	}
	switch name {
	case BackendLocal, BackendRender, BackendFirecrawl:
	default:
		return nil, fmt.Errorf("unknown fetch backend %q", backend)
	}
	p := r.registry.Get(name)
	if p == nil {
		return nil, fmt.Errorf("%w: %s", ErrNotConfigured, name)
	}
	return p, nil
}

// Fetch runs one fetch through the named backend.
func (r *Router) Fetch(ctx context.Context, req Request) (*Response, error) {
	provider, err := r.Resolve(req.Backend)
	if err != nil {
		return nil, err
	}
	resp, err := provider.Fetch(ctx, req)
	if resp != nil && resp.Provider == "" {
		resp.Provider = provider.Name()
	}
	return resp, err
}
