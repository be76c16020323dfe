package pipeline

import (
	"strings"

	"github.com/arclabs561/webpipe/pkg/config"
	"github.com/arclabs561/webpipe/pkg/fetch"
)

// URL selection modes when both a query and explicit URLs are given.
const (
	SelectVerbatim  = "verbatim"
	SelectQueryRank = "query_rank"
)

// Request is the caller-facing pipeline input. Zero-valued bounds take
// the process defaults; bounds above the hard ceilings are clamped.
type Request struct {
	Query string   `json:"query,omitempty"`
	URLs  []string `json:"urls,omitempty"`

	// URLSelectionMode governs explicit URLs when a query is also
	// present: verbatim keeps them as given; query_rank ranks their
	// chunks against the query like search results.
	URLSelectionMode string `json:"url_selection_mode,omitempty"`

	// SearchProvider is auto or an explicit provider name. AutoMode
	// picks the auto strategy (fallback or first).
	SearchProvider string `json:"search_provider,omitempty"`
	AutoMode       string `json:"auto_mode,omitempty"`

	FetchBackend              string `json:"fetch_backend,omitempty"`
	RenderFallbackOnEmpty     bool   `json:"render_fallback_on_empty_extraction,omitempty"`
	RenderFallbackOnLowSignal bool   `json:"render_fallback_on_low_signal,omitempty"`

	// Headers are forwarded on every fetch after sanitization.
	Headers map[string]string `json:"headers,omitempty"`

	MaxURLs         int   `json:"max_urls,omitempty"`
	MaxParallelURLs int   `json:"max_parallel_urls,omitempty"`
	TopChunks       int   `json:"top_chunks,omitempty"`
	MaxChunkChars   int   `json:"max_chunk_chars,omitempty"`
	MaxBytes        int64 `json:"max_bytes,omitempty"`
	MaxChars        int   `json:"max_chars,omitempty"`
	MaxResults      int   `json:"max_results,omitempty"`
	URLTimeoutMs    int64 `json:"url_timeout_ms,omitempty"`

	// NoNetwork serves from cache only; a miss is a per-URL failure.
	NoNetwork bool `json:"no_network,omitempty"`
	// CacheTTLSecs treats cache entries older than this as misses;
	// zero means any age serves.
	CacheTTLSecs int64 `json:"cache_ttl_secs,omitempty"`
	// CacheWrite persists fresh fetches. The tool layer defaults it to
	// true when the field is absent.
	CacheWrite bool `json:"cache_write,omitempty"`

	MinimalOutput bool `json:"minimal_output,omitempty"`
	IncludeText   bool `json:"include_text,omitempty"`
}

// clamped is a Request with every bound resolved against the ceilings.
type clamped struct {
	Request
}

// clampBounds lowers out-of-range bounds to the configured ceilings
// and fills zero bounds with defaults. Clamping never rejects.
func clampBounds(req Request, limits config.Limits) clamped {
	if req.MaxURLs <= 0 || req.MaxURLs > limits.MaxURLs {
		req.MaxURLs = limits.MaxURLs
	}
	if req.MaxParallelURLs <= 0 || req.MaxParallelURLs > limits.MaxParallelURLs {
		req.MaxParallelURLs = limits.MaxParallelURLs
	}
	if req.TopChunks <= 0 || req.TopChunks > limits.TopChunks {
		req.TopChunks = limits.TopChunks
	}
	if req.MaxChunkChars <= 0 || req.MaxChunkChars > limits.MaxChunkChars {
		req.MaxChunkChars = limits.MaxChunkChars
	}
	if req.MaxChunkChars < 50 {
		req.MaxChunkChars = 50
	}
	if req.MaxBytes <= 0 || req.MaxBytes > limits.MaxBytes {
		req.MaxBytes = limits.MaxBytes
	}
	if req.MaxChars <= 0 || req.MaxChars > limits.MaxChars {
		req.MaxChars = limits.MaxChars
	}
	if req.MaxResults <= 0 || req.MaxResults > limits.MaxResults {
		req.MaxResults = limits.MaxResults
	}
	if req.URLTimeoutMs <= 0 || req.URLTimeoutMs > limits.URLTimeoutMs {
		req.URLTimeoutMs = limits.URLTimeoutMs
	}
	return clamped{Request: req}
}

// validate rejects requests no amount of clamping can make safe.
func validate(req Request) *Error {
	if strings.TrimSpace(req.Query) == "" && len(req.URLs) == 0 {
		return newError(CodeInvalidParams, "either query or urls is required")
	}
	switch req.URLSelectionMode {
	case "", SelectVerbatim, SelectQueryRank:
	default:
		return newError(CodeInvalidParams, "unknown url_selection_mode %q", req.URLSelectionMode)
	}
	switch strings.ToLower(strings.TrimSpace(req.FetchBackend)) {
	case "", fetch.BackendLocal, fetch.BackendRender, fetch.BackendFirecrawl:
	default:
		return newError(CodeInvalidParams, "unknown fetch_backend %q", req.FetchBackend)
	}
	return nil
}
