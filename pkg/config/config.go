// Package config holds process-wide configuration for the webpipe tool
// server: privacy mode, proxy endpoints, backend credentials, and the
// hard ceilings applied to every caller-supplied bound.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// PrivacyMode controls whether and how network egress is permitted.
type PrivacyMode string

const (
	PrivacyNormal    PrivacyMode = "normal"
	PrivacyOffline   PrivacyMode = "offline"
	PrivacyAnonymous PrivacyMode = "anonymous"
)

// Limits are the hard ceilings every request bound is clamped against.
// Callers can lower them per request, never raise them.
type Limits struct {
	MaxURLs            int   `yaml:"max_urls"`
	MaxParallelURLs    int   `yaml:"max_parallel_urls"`
	TopChunks          int   `yaml:"top_chunks"`
	MaxChunkChars      int   `yaml:"max_chunk_chars"`
	MaxBytes           int64 `yaml:"max_bytes"`
	MaxChars           int   `yaml:"max_chars"`
	MaxResults         int   `yaml:"max_results"`
	URLTimeoutMs       int64 `yaml:"url_timeout_ms"`
	PipelineTimeoutMs  int64 `yaml:"pipeline_timeout_ms"`
	CacheCorpusMaxDocs int   `yaml:"cache_corpus_max_docs"`
}

// ProxyConfig holds the egress proxies usable in anonymous mode.
// Direct-socket backends need the SOCKS proxy; the render backend can
// only be proxied over HTTP.
type ProxyConfig struct {
	SOCKS string `yaml:"socks"`
	HTTP  string `yaml:"http"`
}

// Config is the full process configuration.
type Config struct {
	PrivacyMode        PrivacyMode `yaml:"privacy_mode"`
	Proxy              ProxyConfig `yaml:"proxy"`
	AllowUnsafeHeaders bool        `yaml:"allow_unsafe_headers"`
	CacheDir           string      `yaml:"cache_dir"`
	Limits             Limits      `yaml:"limits"`

	Brave     BraveConfig     `yaml:"brave"`
	Tavily    TavilyConfig    `yaml:"tavily"`
	SearXNG   SearXNGConfig   `yaml:"searxng"`
	Firecrawl FirecrawlConfig `yaml:"firecrawl"`
	Render    RenderConfig    `yaml:"render"`
}

type BraveConfig struct {
	APIKey   string `yaml:"api_key"`
	Endpoint string `yaml:"endpoint"`
}

type TavilyConfig struct {
	APIKey   string `yaml:"api_key"`
	Endpoint string `yaml:"endpoint"`
}

type SearXNGConfig struct {
	Endpoint string `yaml:"endpoint"`
}

type FirecrawlConfig struct {
	APIKey   string `yaml:"api_key"`
	Endpoint string `yaml:"endpoint"`
}

type RenderConfig struct {
	// BrowserBin overrides browser discovery; empty means let rod find one.
	BrowserBin  string `yaml:"browser_bin"`
	WaitMs      int64  `yaml:"wait_ms"`
	TimeoutSecs int    `yaml:"timeout_seconds"`
}

// WithDefaults fills zero fields with safe defaults and normalizes the
// privacy mode. It never overrides an explicitly set field.
func (c *Config) WithDefaults() *Config {
	if c == nil {
		c = &Config{}
	}
	switch PrivacyMode(strings.TrimSpace(strings.ToLower(string(c.PrivacyMode)))) {
	case PrivacyOffline:
		c.PrivacyMode = PrivacyOffline
	case PrivacyAnonymous:
		c.PrivacyMode = PrivacyAnonymous
	default:
		c.PrivacyMode = PrivacyNormal
	}
	if c.CacheDir == "" {
		c.CacheDir = filepath.Join(os.TempDir(), "webpipe-cache")
	}
	if c.Brave.Endpoint == "" {
		c.Brave.Endpoint = "https://api.search.brave.com/res/v1/web/search"
	}
	if c.Tavily.Endpoint == "" {
		c.Tavily.Endpoint = "https://api.tavily.com/search"
	}
	if c.Firecrawl.Endpoint == "" {
		c.Firecrawl.Endpoint = "https://api.firecrawl.dev/v1/scrape"
	}
	if c.Render.WaitMs <= 0 {
		c.Render.WaitMs = 1500
	}
	if c.Render.TimeoutSecs <= 0 {
		c.Render.TimeoutSecs = 30
	}
	c.Limits = c.Limits.withDefaults()
	return c
}

func (l Limits) withDefaults() Limits {
	if l.MaxURLs <= 0 || l.MaxURLs > 16 {
		l.MaxURLs = 16
	}
	if l.MaxParallelURLs <= 0 || l.MaxParallelURLs > 8 {
		l.MaxParallelURLs = 8
	}
	if l.TopChunks <= 0 || l.TopChunks > 50 {
		l.TopChunks = 50
	}
	if l.MaxChunkChars < 50 || l.MaxChunkChars > 5000 {
		l.MaxChunkChars = 5000
	}
	if l.MaxBytes <= 0 || l.MaxBytes > 8<<20 {
		l.MaxBytes = 8 << 20
	}
	if l.MaxChars <= 0 || l.MaxChars > 200_000 {
		l.MaxChars = 200_000
	}
	if l.MaxResults <= 0 || l.MaxResults > 20 {
		l.MaxResults = 20
	}
	if l.URLTimeoutMs <= 0 {
		l.URLTimeoutMs = 20_000
	}
	if l.PipelineTimeoutMs <= 0 {
		l.PipelineTimeoutMs = 30_000
	}
	if l.CacheCorpusMaxDocs <= 0 {
		l.CacheCorpusMaxDocs = 500
	}
	return l
}

// LoadFile reads a YAML config file and applies defaults.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return cfg.WithDefaults(), nil
}
