package search

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/arclabs561/webpipe/pkg/config"
	"github.com/arclabs561/webpipe/pkg/shared/httputil"
)

type braveProvider struct {
	apiKey   string
	endpoint string
}

func newBraveProvider(cfg config.BraveConfig) *braveProvider {
	if cfg.APIKey == "" {
		return nil
	}
	return &braveProvider{apiKey: cfg.APIKey, endpoint: cfg.Endpoint}
}

func (p *braveProvider) Name() string { return ProviderBrave }

type braveResponse struct {
	Web struct {
		Results []struct {
			URL         string `json:"url"`
			Title       string `json:"title"`
			Description string `json:"description"`
		} `json:"results"`
	} `json:"web"`
}

func (p *braveProvider) Search(ctx context.Context, q Query) ([]Candidate, error) {
	u, err := url.Parse(p.endpoint)
	if err != nil {
		return nil, fmt.Errorf("brave endpoint: %w", err)
	}
	vals := u.Query()
	vals.Set("q", q.Query)
	vals.Set("count", fmt.Sprintf("%d", q.MaxResults))
	u.RawQuery = vals.Encode()

	headers := map[string]string{
		"Accept":               "application/json",
		"X-Subscription-Token": p.apiKey,
	}
	body, _, err := httputil.GetJSON(ctx, nil, u.String(), headers, timeoutFor(q))
	if err != nil {
		return nil, err
	}
	var parsed braveResponse
	if err := decodeJSON(body, &parsed); err != nil {
		return nil, fmt.Errorf("brave response: %w", err)
	}
	candidates := make([]Candidate, 0, len(parsed.Web.Results))
	for _, r := range parsed.Web.Results {
		if r.URL == "" {
			continue
		}
		candidates = append(candidates, Candidate{
			URL:      r.URL,
			Title:    r.Title,
			Snippet:  r.Description,
			Provider: ProviderBrave,
		})
	}
	return candidates, nil
}

func timeoutFor(q Query) time.Duration {
	if q.TimeoutMs > 0 {
		return time.Duration(q.TimeoutMs) * time.Millisecond
	}
	return 15 * time.Second
}
