package search

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/arclabs561/webpipe/pkg/config"
	"github.com/arclabs561/webpipe/pkg/shared/httputil"
)

// searxngProvider talks to a self-hosted SearXNG instance. Having an
// endpoint is what makes it configured; there is no API key.
type searxngProvider struct {
	endpoint string
}

func newSearXNGProvider(cfg config.SearXNGConfig) *searxngProvider {
	if strings.TrimSpace(cfg.Endpoint) == "" {
		return nil
	}
	return &searxngProvider{endpoint: strings.TrimRight(cfg.Endpoint, "/")}
}

func (p *searxngProvider) Name() string { return ProviderSearXNG }

type searxngResponse struct {
	Results []struct {
		URL     string `json:"url"`
		Title   string `json:"title"`
		Content string `json:"content"`
	} `json:"results"`
}

func (p *searxngProvider) Search(ctx context.Context, q Query) ([]Candidate, error) {
	vals := url.Values{}
	vals.Set("q", q.Query)
	vals.Set("format", "json")
	endpoint := p.endpoint + "/search?" + vals.Encode()

	body, _, err := httputil.GetJSON(ctx, nil, endpoint, map[string]string{"Accept": "application/json"}, timeoutFor(q))
	if err != nil {
		return nil, err
	}
	var parsed searxngResponse
	if err := decodeJSON(body, &parsed); err != nil {
		return nil, fmt.Errorf("searxng response: %w", err)
	}
	candidates := make([]Candidate, 0, len(parsed.Results))
	for _, r := range parsed.Results {
		if r.URL == "" {
			continue
		}
		candidates = append(candidates, Candidate{
			URL:      r.URL,
			Title:    r.Title,
			Snippet:  r.Content,
			Provider: ProviderSearXNG,
		})
		if len(candidates) >= q.MaxResults {
			break
		}
	}
	return candidates, nil
}
