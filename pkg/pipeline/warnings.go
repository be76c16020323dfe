package pipeline

import "sort"

// Warning codes flag degraded-but-usable outcomes. They accumulate as
// a set across the whole invocation and are reported sorted.
const (
	WarnUnsafeHeadersDropped    = "unsafe_request_headers_dropped"
	WarnEmptyExtraction         = "empty_extraction"
	WarnLowSignal               = "main_content_low_signal"
	WarnJSChallenge             = "blocked_by_js_challenge"
	WarnOffline                 = "network_disabled_offline"
	WarnProxyRequired           = "proxy_required_anonymous"
	WarnBackendNotConfigured    = "backend_not_configured"
	WarnPartialResults          = "partial_results"
	WarnCacheOnly               = "cache_only"
	WarnNoNetworkNeedsWarmCache = "no_network_may_require_warm_cache"
	WarnHTTPStatus              = "http_status_error"
	WarnRenderFallbackUsed      = "render_fallback_used"
	WarnAllChunksLowSignal      = "all_chunks_low_signal"
)

var warningHints = map[string]string{
	WarnUnsafeHeadersDropped:    "credential-bearing request headers were removed; set allow_unsafe_headers to forward them",
	WarnEmptyExtraction:         "the fetched body produced no readable text",
	WarnLowSignal:               "extracted text is sparse for the page size; the page may be script-rendered",
	WarnJSChallenge:             "the page served a JS or CAPTCHA interstitial; retry with the render backend",
	WarnOffline:                 "offline privacy mode blocked network egress; only cached and loopback content is reachable",
	WarnProxyRequired:           "anonymous privacy mode requires a proxy for this backend; none is configured",
	WarnBackendNotConfigured:    "a requested backend was skipped for missing credentials",
	WarnPartialResults:          "some URLs failed; results cover the rest",
	WarnCacheOnly:               "results were served entirely from cache",
	WarnNoNetworkNeedsWarmCache: "no_network is set; URLs absent from the cache cannot be fetched",
	WarnHTTPStatus:              "a URL returned a non-success HTTP status",
	WarnRenderFallbackUsed:      "the headless browser was used after the plain fetch produced low signal",
	WarnAllChunksLowSignal:      "every returned chunk came from low-signal extractions",
}

// warningSet accumulates warning codes without duplicates. Not
// goroutine-safe; per-URL units collect locally and merge at assembly.
type warningSet struct {
	codes map[string]struct{}
}

func newWarningSet() *warningSet {
	return &warningSet{codes: make(map[string]struct{})}
}

func (w *warningSet) add(code string) {
	if code != "" {
		w.codes[code] = struct{}{}
	}
}

func (w *warningSet) merge(codes []string) {
	for _, c := range codes {
		w.add(c)
	}
}

// sortedCodes dedupes and sorts a unit's locally collected warning
// codes for the per-URL result.
func sortedCodes(codes []string) []string {
	set := newWarningSet()
	set.merge(codes)
	sorted, _ := set.list()
	return sorted
}

// list returns the codes sorted, with hints aligned index-for-index.
func (w *warningSet) list() (codes, hints []string) {
	if len(w.codes) == 0 {
		return nil, nil
	}
	codes = make([]string, 0, len(w.codes))
	for c := range w.codes {
		codes = append(codes, c)
	}
	sort.Strings(codes)
	hints = make([]string, len(codes))
	for i, c := range codes {
		hints[i] = warningHints[c]
	}
	return codes, hints
}
