package search

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/arclabs561/webpipe/pkg/config"
	"github.com/arclabs561/webpipe/pkg/shared/httputil"
)

type tavilyProvider struct {
	apiKey   string
	endpoint string
}

func newTavilyProvider(cfg config.TavilyConfig) *tavilyProvider {
	if cfg.APIKey == "" {
		return nil
	}
	return &tavilyProvider{apiKey: cfg.APIKey, endpoint: cfg.Endpoint}
}

func (p *tavilyProvider) Name() string { return ProviderTavily }

type tavilyResponse struct {
	Results []struct {
		URL     string `json:"url"`
		Title   string `json:"title"`
		Content string `json:"content"`
	} `json:"results"`
}

func (p *tavilyProvider) Search(ctx context.Context, q Query) ([]Candidate, error) {
	payload := map[string]any{
		"api_key":     p.apiKey,
		"query":       q.Query,
		"max_results": q.MaxResults,
	}
	body, _, err := httputil.PostJSON(ctx, nil, p.endpoint, nil, payload, timeoutFor(q))
	if err != nil {
		return nil, err
	}
	var parsed tavilyResponse
	if err := decodeJSON(body, &parsed); err != nil {
		return nil, fmt.Errorf("tavily response: %w", err)
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
			Provider: ProviderTavily,
		})
	}
	return candidates, nil
}

func decodeJSON(data []byte, v any) error {
	return json.Unmarshal(data, v)
}
