package mcpserver

import "github.com/arclabs561/webpipe/pkg/pipeline"

// evidenceInput mirrors the pipeline request on the wire. cache_write
// is a pointer so an absent field defaults to true.
type evidenceInput struct {
	Query                     string            `json:"query,omitempty"`
	URLs                      []string          `json:"urls,omitempty"`
	URLSelectionMode          string            `json:"url_selection_mode,omitempty"`
	SearchProvider            string            `json:"search_provider,omitempty"`
	AutoMode                  string            `json:"auto_mode,omitempty"`
	FetchBackend              string            `json:"fetch_backend,omitempty"`
	RenderFallbackOnEmpty     bool              `json:"render_fallback_on_empty_extraction,omitempty"`
	RenderFallbackOnLowSignal bool              `json:"render_fallback_on_low_signal,omitempty"`
	Headers                   map[string]string `json:"headers,omitempty"`
	MaxURLs                   int               `json:"max_urls,omitempty"`
	MaxParallelURLs           int               `json:"max_parallel_urls,omitempty"`
	TopChunks                 int               `json:"top_chunks,omitempty"`
	MaxChunkChars             int               `json:"max_chunk_chars,omitempty"`
	MaxBytes                  int64             `json:"max_bytes,omitempty"`
	MaxChars                  int               `json:"max_chars,omitempty"`
	MaxResults                int               `json:"max_results,omitempty"`
	URLTimeoutMs              int64             `json:"url_timeout_ms,omitempty"`
	NoNetwork                 bool              `json:"no_network,omitempty"`
	CacheTTLSecs              int64             `json:"cache_ttl_secs,omitempty"`
	CacheWrite                *bool             `json:"cache_write,omitempty"`
	MinimalOutput             bool              `json:"minimal_output,omitempty"`
	IncludeText               bool              `json:"include_text,omitempty"`
}

func (in evidenceInput) toRequest() pipeline.Request {
	return pipeline.Request{
		Query:                     in.Query,
		URLs:                      in.URLs,
		URLSelectionMode:          in.URLSelectionMode,
		SearchProvider:            in.SearchProvider,
		AutoMode:                  in.AutoMode,
		FetchBackend:              in.FetchBackend,
		RenderFallbackOnEmpty:     in.RenderFallbackOnEmpty,
		RenderFallbackOnLowSignal: in.RenderFallbackOnLowSignal,
		Headers:                   in.Headers,
		MaxURLs:                   in.MaxURLs,
		MaxParallelURLs:           in.MaxParallelURLs,
		TopChunks:                 in.TopChunks,
		MaxChunkChars:             in.MaxChunkChars,
		MaxBytes:                  in.MaxBytes,
		MaxChars:                  in.MaxChars,
		MaxResults:                in.MaxResults,
		URLTimeoutMs:              in.URLTimeoutMs,
		NoNetwork:                 in.NoNetwork,
		CacheTTLSecs:              in.CacheTTLSecs,
		CacheWrite:                in.CacheWrite == nil || *in.CacheWrite,
		MinimalOutput:             in.MinimalOutput,
		IncludeText:               in.IncludeText,
	}
}

// singleURLInput is the wire form for web_fetch and web_extract.
type singleURLInput struct {
	URL          string            `json:"url"`
	FetchBackend string            `json:"fetch_backend,omitempty"`
	Headers      map[string]string `json:"headers,omitempty"`
	MaxBytes     int64             `json:"max_bytes,omitempty"`
	MaxChars     int               `json:"max_chars,omitempty"`
	URLTimeoutMs int64             `json:"url_timeout_ms,omitempty"`
	NoNetwork    bool              `json:"no_network,omitempty"`
	CacheTTLSecs int64             `json:"cache_ttl_secs,omitempty"`
	CacheWrite   *bool             `json:"cache_write,omitempty"`
	IncludeText  bool              `json:"include_text,omitempty"`
}

func (in singleURLInput) toRequest() pipeline.Request {
	var urls []string
	if in.URL != "" {
		urls = []string{in.URL}
	}
	return pipeline.Request{
		URLs:         urls,
		FetchBackend: in.FetchBackend,
		Headers:      in.Headers,
		MaxBytes:     in.MaxBytes,
		MaxChars:     in.MaxChars,
		URLTimeoutMs: in.URLTimeoutMs,
		NoNetwork:    in.NoNetwork,
		CacheTTLSecs: in.CacheTTLSecs,
		CacheWrite:   in.CacheWrite == nil || *in.CacheWrite,
		IncludeText:  in.IncludeText,
	}
}

func evidenceSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"query": map[string]any{
				"type":        "string",
				"description": "Search query; also used to rank chunks. Required unless urls is given.",
			},
			"urls": map[string]any{
				"type":        "array",
				"items":       map[string]any{"type": "string"},
				"description": "Explicit URLs to fetch instead of searching.",
			},
			"url_selection_mode": map[string]any{
				"type": "string",
				"enum": []string{"verbatim", "query_rank"},
				"description": "verbatim ranks explicit URLs positionally; query_rank ranks their chunks against the query.",
			},
			"search_provider": map[string]any{
				"type": "string",
				"enum": []string{"auto", "brave", "tavily", "searxng"},
			},
			"auto_mode": map[string]any{
				"type": "string",
				"enum": []string{"fallback", "first"},
			},
			"fetch_backend": map[string]any{
				"type": "string",
				"enum": []string{"local", "render", "firecrawl"},
			},
			"render_fallback_on_empty_extraction": map[string]any{"type": "boolean"},
			"render_fallback_on_low_signal":       map[string]any{"type": "boolean"},
			"headers": map[string]any{
				"type":        "object",
				"description": "Extra request headers; credential-bearing headers are dropped unless the server allows them.",
			},
			"max_urls":          map[string]any{"type": "integer"},
			"max_parallel_urls": map[string]any{"type": "integer"},
			"top_chunks":        map[string]any{"type": "integer"},
			"max_chunk_chars":   map[string]any{"type": "integer"},
			"max_bytes":         map[string]any{"type": "integer"},
			"max_chars":         map[string]any{"type": "integer"},
			"max_results":       map[string]any{"type": "integer"},
			"url_timeout_ms":    map[string]any{"type": "integer"},
			"no_network": map[string]any{
				"type":        "boolean",
				"description": "Serve from cache only; a miss is a per-URL failure.",
			},
			"cache_ttl_secs": map[string]any{"type": "integer"},
			"cache_write":    map[string]any{"type": "boolean", "default": true},
			"minimal_output": map[string]any{"type": "boolean"},
			"include_text":   map[string]any{"type": "boolean"},
		},
	}
}

func singleURLSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"url": map[string]any{"type": "string", "description": "Absolute http or https URL."},
			"fetch_backend": map[string]any{
				"type": "string",
				"enum": []string{"local", "render", "firecrawl"},
			},
			"headers":        map[string]any{"type": "object"},
			"max_bytes":      map[string]any{"type": "integer"},
			"max_chars":      map[string]any{"type": "integer"},
			"url_timeout_ms": map[string]any{"type": "integer"},
			"no_network":     map[string]any{"type": "boolean"},
			"cache_ttl_secs": map[string]any{"type": "integer"},
			"cache_write":    map[string]any{"type": "boolean", "default": true},
			"include_text":   map[string]any{"type": "boolean"},
		},
		"required": []string{"url"},
	}
}

func cacheSearchSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"query":           map[string]any{"type": "string"},
			"top_chunks":      map[string]any{"type": "integer"},
			"max_chunk_chars": map[string]any{"type": "integer"},
			"max_docs": map[string]any{
				"type":        "integer",
				"description": "How many recent cache entries to scan.",
			},
		},
		"required": []string{"query"},
	}
}
