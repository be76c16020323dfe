package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const defaultUserAgent = "webpipe/1.0 (+https://github.com/arclabs561/webpipe)"

// DefaultMaxBytes caps body reads when the request does not set one.
const DefaultMaxBytes int64 = 2 << 20

type localProvider struct {
	userAgent string
}

// NewLocalProvider returns the plain HTTP client backend.
func NewLocalProvider() Provider {
	return &localProvider{userAgent: defaultUserAgent}
}

func (p *localProvider) Name() string {
	return BackendLocal
}

func (p *localProvider) Fetch(ctx context.Context, req Request) (*Response, error) {
	client, err := httpClientFor(req)
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, req.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("invalid url: %w", err)
	}
	httpReq.Header.Set("User-Agent", p.userAgent)
	httpReq.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	for name, value := range req.Headers {
		httpReq.Header.Set(name, value)
	}

	start := time.Now()
	resp, err := client.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	maxBytes := req.MaxBytes
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	// Read one byte past the cap to learn whether the body was cut.
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBytes+1))
	if err != nil {
		return nil, err
	}
	truncated := int64(len(body)) > maxBytes
	if truncated {
		body = body[:maxBytes]
	}

	finalURL := req.URL
	if resp.Request != nil && resp.Request.URL != nil {
		finalURL = resp.Request.URL.String()
	}

	out := &Response{
		URL:         req.URL,
		FinalURL:    finalURL,
		Status:      resp.StatusCode,
		ContentType: normalizeContentType(resp.Header.Get("Content-Type")),
		Headers:     flattenHeaders(resp.Header),
		Body:        body,
		Truncated:   truncated,
		FetchedAt:   time.Now().Unix(),
		TookMs:      time.Since(start).Milliseconds(),
		Provider:    BackendLocal,
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		// The body often carries a challenge or error page worth
		// extracting, so it rides along with the error.
		return out, &StatusError{Status: resp.StatusCode}
	}
	return out, nil
}

func httpClientFor(req Request) (*http.Client, error) {
	client := &http.Client{Timeout: req.Timeout()}
	if req.Proxy != "" {
		proxyURL, err := url.Parse(req.Proxy)
		if err != nil {
			return nil, fmt.Errorf("invalid proxy: %w", err)
		}
		client.Transport = &http.Transport{Proxy: http.ProxyURL(proxyURL)}
	}
	return client, nil
}

func normalizeContentType(value string) string {
	if value == "" {
		return "application/octet-stream"
	}
	parts := strings.Split(value, ";")
	return strings.ToLower(strings.TrimSpace(parts[0]))
}

func flattenHeaders(h http.Header) map[string]string {
	out := make(map[string]string, len(h))
	for name, values := range h {
		if len(values) > 0 {
			out[name] = values[0]
		}
	}
	return out
}
