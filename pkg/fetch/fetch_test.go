package fetch

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/arclabs561/webpipe/pkg/config"
)

func TestNormalizeURL(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"HTTPS://Example.COM/Path?q=X#frag", "https://example.com/Path?q=X"},
		{"http://example.com:80/a", "http://example.com/a"},
		{"https://example.com:443/a", "https://example.com/a"},
		{"https://example.com:8443/a", "https://example.com:8443/a"},
		{"http://example.com/a#b", "http://example.com/a"},
	}
	for _, tt := range tests {
		got, err := NormalizeURL(tt.in)
		if err != nil {
			t.Fatalf("NormalizeURL(%q): %v", tt.in, err)
		}
		if got != tt.want {
			t.Errorf("NormalizeURL(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestLocalProviderTruncatesAtMaxBytes(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		_, _ = w.Write([]byte(strings.Repeat("a", 1000)))
	}))
	defer server.Close()

	p := NewLocalProvider()
	resp, err := p.Fetch(context.Background(), Request{URL: server.URL, MaxBytes: 100})
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(resp.Body) != 100 {
		t.Fatalf("len(body)=%d, want 100", len(resp.Body))
	}
	if !resp.Truncated {
		t.Fatal("expected truncated flag")
	}
}

func TestLocalProviderKeepsBodyOnStatusError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte("<html>denied</html>"))
	}))
	defer server.Close()

	p := NewLocalProvider()
	resp, err := p.Fetch(context.Background(), Request{URL: server.URL, MaxBytes: 1 << 16})
	var statusErr *StatusError
	if !errors.As(err, &statusErr) || statusErr.Status != 403 {
		t.Fatalf("err=%v, want StatusError 403", err)
	}
	if resp == nil || len(resp.Body) == 0 {
		t.Fatal("body must ride along with the status error")
	}
}

func TestLocalProviderForwardsHeaders(t *testing.T) {
	var got string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Get("X-Trace")
		_, _ = w.Write([]byte("ok"))
	}))
	defer server.Close()

	p := NewLocalProvider()
	if _, err := p.Fetch(context.Background(), Request{
		URL:      server.URL,
		MaxBytes: 1 << 16,
		Headers:  map[string]string{"X-Trace": "t-1"},
	}); err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if got != "t-1" {
		t.Fatalf("X-Trace=%q, want t-1", got)
	}
}

func TestRouterRejectsUnknownBackend(t *testing.T) {
	router := NewRouter((&config.Config{}).WithDefaults())
	if _, err := router.Resolve("exotic"); err == nil {
		t.Fatal("expected error for unknown backend")
	}
}

func TestRouterFirecrawlNotConfiguredWithoutKey(t *testing.T) {
	router := NewRouter((&config.Config{}).WithDefaults())
	_, err := router.Resolve(BackendFirecrawl)
	if !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("err=%v, want ErrNotConfigured", err)
	}
}

func TestRouterDefaultsToLocal(t *testing.T) {
	router := NewRouter((&config.Config{}).WithDefaults())
	p, err := router.Resolve("")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if p.Name() != BackendLocal {
		t.Fatalf("backend=%q, want local", p.Name())
	}
}

func TestFirecrawlProviderParsesScrapeResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if auth := r.Header.Get("Authorization"); auth != "Bearer test-key" {
			t.Errorf("Authorization=%q", auth)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"success":true,"data":{"markdown":"# Title\n\nBody text."}}`))
	}))
	defer server.Close()

	p := NewFirecrawlProvider(config.FirecrawlConfig{APIKey: "test-key", Endpoint: server.URL})
	resp, err := p.Fetch(context.Background(), Request{URL: "https://example.com/a", MaxBytes: 1 << 16, TimeoutMs: 5000})
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if resp.ContentType != "text/markdown" {
		t.Fatalf("content type=%q", resp.ContentType)
	}
	if !strings.Contains(string(resp.Body), "Body text.") {
		t.Fatalf("body=%q", resp.Body)
	}
}

func TestFirecrawlProviderSuccessFalseIsError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"success":false}`))
	}))
	defer server.Close()

	p := NewFirecrawlProvider(config.FirecrawlConfig{APIKey: "k", Endpoint: server.URL})
	if _, err := p.Fetch(context.Background(), Request{URL: "https://example.com/a"}); err == nil {
		t.Fatal("expected error for success=false")
	}
}
