// Package fetch retrieves raw web content through interchangeable
// backends: a plain HTTP client, a headless browser for JS-rendered
// pages, and the Firecrawl remote scraper.
package fetch

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

// DefaultTimeout bounds a single URL fetch when the request sets none.
const DefaultTimeout = 20 * time.Second

// Request describes one fetch. Headers must already be sanitized by
// the caller. Proxy is egress routing only; it is not part of the
// request's cache identity.
type Request struct {
	URL       string
	Backend   string
	MaxBytes  int64
	TimeoutMs int64
	Headers   map[string]string
	Proxy     string
}

// Timeout returns the per-request deadline, defaulting to
// DefaultTimeout.
func (r Request) Timeout() time.Duration {
	if r.TimeoutMs > 0 {
		return time.Duration(r.TimeoutMs) * time.Millisecond
	}
	return DefaultTimeout
}

// Response is the raw result of one fetch, cached or live.
type Response struct {
	URL         string            `json:"url"`
	FinalURL    string            `json:"final_url"`
	Status      int               `json:"status"`
	ContentType string            `json:"content_type"`
	Headers     map[string]string `json:"headers,omitempty"`
	Body        []byte            `json:"-"`
	Truncated   bool              `json:"truncated"`
	FromCache   bool              `json:"from_cache"`
	FetchedAt   int64             `json:"fetched_at_epoch_s"`
	TookMs      int64             `json:"took_ms"`
	Provider    string            `json:"provider"`
}

// Clone returns a deep copy so callers can mutate body and headers
// independently.
func (r *Response) Clone() *Response {
	if r == nil {
		return nil
	}
	out := *r
	if r.Body != nil {
		out.Body = make([]byte, len(r.Body))
		copy(out.Body, r.Body)
	}
	if r.Headers != nil {
		out.Headers = make(map[string]string, len(r.Headers))
		for k, v := range r.Headers {
			out.Headers[k] = v
		}
	}
	return &out
}

// NormalizeURL canonicalizes a URL for cache identity: lowercase
// scheme and host, default ports stripped, fragment dropped. Path,
// query and their case are preserved.
func NormalizeURL(raw string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", fmt.Errorf("invalid url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("unsupported url scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return "", fmt.Errorf("url missing host")
	}
	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	if (u.Scheme == "http" && strings.HasSuffix(u.Host, ":80")) ||
		(u.Scheme == "https" && strings.HasSuffix(u.Host, ":443")) {
		u.Host = u.Host[:strings.LastIndex(u.Host, ":")]
	}
	u.Fragment = ""
	return u.String(), nil
}
