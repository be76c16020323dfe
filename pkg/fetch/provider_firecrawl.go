package fetch

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/arclabs561/webpipe/pkg/config"
	"github.com/arclabs561/webpipe/pkg/shared/httputil"
)

type firecrawlProvider struct {
	cfg config.FirecrawlConfig
}

// NewFirecrawlProvider returns the remote-fetch backend, or nil when no
// API key is configured. The scrape API returns readable markdown, so
// the response is marked text/markdown and skips local extraction.
func NewFirecrawlProvider(cfg config.FirecrawlConfig) Provider {
	if cfg.APIKey == "" {
		return nil
	}
	return &firecrawlProvider{cfg: cfg}
}

func (p *firecrawlProvider) Name() string {
	return BackendFirecrawl
}

func (p *firecrawlProvider) Fetch(ctx context.Context, req Request) (*Response, error) {
	payload := map[string]any{
		"url":             req.URL,
		"formats":         []string{"markdown"},
		"onlyMainContent": true,
		"timeout":         req.TimeoutMs,
	}

	start := time.Now()
	data, status, err := httputil.PostJSON(ctx, nil, p.cfg.Endpoint, map[string]string{
		"Authorization": "Bearer " + p.cfg.APIKey,
	}, payload, req.Timeout())
	if err != nil {
		if status > 0 {
			return nil, &StatusError{Status: status}
		}
		return nil, fmt.Errorf("firecrawl scrape: %w", err)
	}

	var parsed struct {
		Success bool `json:"success"`
		Data    struct {
			Markdown string `json:"markdown"`
		} `json:"data"`
	}
	if err := json.Unmarshal(data, &parsed); err != nil {
		return nil, fmt.Errorf("firecrawl response: %w", err)
	}
	if !parsed.Success {
		return nil, fmt.Errorf("firecrawl scrape returned success=false")
	}

	body := []byte(parsed.Data.Markdown)
	truncated := false
	if req.MaxBytes > 0 && int64(len(body)) > req.MaxBytes {
		body = body[:req.MaxBytes]
		truncated = true
	}

	return &Response{
		URL:         req.URL,
		FinalURL:    req.URL,
		Status:      200,
		ContentType: "text/markdown",
		Body:        body,
		Truncated:   truncated,
		FetchedAt:   time.Now().Unix(),
		TookMs:      time.Since(start).Milliseconds(),
		Provider:    BackendFirecrawl,
	}, nil
}
