package config

import (
	"os"
	"strconv"
	"strings"
)

// ConfigFromEnv builds a process config from environment variables.
func ConfigFromEnv() *Config {
	cfg := &Config{}

	cfg.PrivacyMode = PrivacyMode(strings.TrimSpace(os.Getenv("WEBPIPE_PRIVACY_MODE")))
	cfg.Proxy.SOCKS = envOr(cfg.Proxy.SOCKS, os.Getenv("WEBPIPE_ANON_PROXY"))
	cfg.Proxy.HTTP = envOr(cfg.Proxy.HTTP, os.Getenv("WEBPIPE_ANON_HTTP_PROXY"))
	cfg.AllowUnsafeHeaders = envBool("WEBPIPE_ALLOW_UNSAFE_HEADERS")
	cfg.CacheDir = envOr(cfg.CacheDir, os.Getenv("WEBPIPE_CACHE_DIR"))

	cfg.Brave.APIKey = firstNonEmpty(os.Getenv("WEBPIPE_BRAVE_API_KEY"), os.Getenv("BRAVE_SEARCH_API_KEY"))
	cfg.Brave.Endpoint = envOr(cfg.Brave.Endpoint, os.Getenv("WEBPIPE_BRAVE_ENDPOINT"))
	cfg.Tavily.APIKey = firstNonEmpty(os.Getenv("WEBPIPE_TAVILY_API_KEY"), os.Getenv("TAVILY_API_KEY"))
	cfg.Tavily.Endpoint = envOr(cfg.Tavily.Endpoint, os.Getenv("WEBPIPE_TAVILY_ENDPOINT"))
	cfg.SearXNG.Endpoint = envOr(cfg.SearXNG.Endpoint, os.Getenv("WEBPIPE_SEARXNG_ENDPOINT"))
	cfg.Firecrawl.APIKey = firstNonEmpty(os.Getenv("WEBPIPE_FIRECRAWL_API_KEY"), os.Getenv("FIRECRAWL_API_KEY"))
	cfg.Firecrawl.Endpoint = envOr(cfg.Firecrawl.Endpoint, os.Getenv("WEBPIPE_FIRECRAWL_ENDPOINT"))

	cfg.Render.BrowserBin = envOr(cfg.Render.BrowserBin, os.Getenv("WEBPIPE_RENDER_BROWSER"))
	cfg.Render.WaitMs = envInt64("WEBPIPE_RENDER_WAIT_MS", cfg.Render.WaitMs)

	cfg.Limits.MaxBytes = envInt64("WEBPIPE_MAX_BYTES_CEILING", cfg.Limits.MaxBytes)
	cfg.Limits.URLTimeoutMs = envInt64("WEBPIPE_URL_TIMEOUT_MS", cfg.Limits.URLTimeoutMs)
	cfg.Limits.PipelineTimeoutMs = envInt64("WEBPIPE_PIPELINE_TIMEOUT_MS", cfg.Limits.PipelineTimeoutMs)

	return cfg.WithDefaults()
}

// ApplyEnvDefaults fills empty fields of cfg from the environment.
func ApplyEnvDefaults(cfg *Config) *Config {
	if cfg == nil {
		return ConfigFromEnv()
	}
	env := ConfigFromEnv()
	if strings.TrimSpace(string(cfg.PrivacyMode)) == "" {
		cfg.PrivacyMode = env.PrivacyMode
	}
	if cfg.Proxy.SOCKS == "" {
		cfg.Proxy.SOCKS = env.Proxy.SOCKS
	}
	if cfg.Proxy.HTTP == "" {
		cfg.Proxy.HTTP = env.Proxy.HTTP
	}
	if cfg.CacheDir == "" {
		cfg.CacheDir = env.CacheDir
	}
	if cfg.Brave.APIKey == "" {
		cfg.Brave.APIKey = env.Brave.APIKey
	}
	if cfg.Tavily.APIKey == "" {
		cfg.Tavily.APIKey = env.Tavily.APIKey
	}
	if cfg.SearXNG.Endpoint == "" {
		cfg.SearXNG.Endpoint = env.SearXNG.Endpoint
	}
	if cfg.Firecrawl.APIKey == "" {
		cfg.Firecrawl.APIKey = env.Firecrawl.APIKey
	}
	return cfg.WithDefaults()
}

func envOr(existing, value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return existing
	}
	return value
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if s := strings.TrimSpace(v); s != "" {
			return s
		}
	}
	return ""
}

func envBool(key string) bool {
	switch strings.TrimSpace(strings.ToLower(os.Getenv(key))) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}

func envInt64(key string, fallback int64) int64 {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}
