// Package pipeline orchestrates the evidence-gathering flow: optional
// provider search, bounded-parallel fetch through the cache and egress
// gate, extraction, and cross-URL chunk ranking. Per-URL failures
// degrade to warnings; the invocation fails only when nothing usable
// remains.
package pipeline

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/arclabs561/webpipe/pkg/cache"
	"github.com/arclabs561/webpipe/pkg/chunk"
	"github.com/arclabs561/webpipe/pkg/config"
	"github.com/arclabs561/webpipe/pkg/egress"
	"github.com/arclabs561/webpipe/pkg/extract"
	"github.com/arclabs561/webpipe/pkg/fetch"
	"github.com/arclabs561/webpipe/pkg/headers"
	"github.com/arclabs561/webpipe/pkg/search"
)

// Pipeline holds the wired collaborators. It is stateless across
// invocations; all per-invocation state is local to Run.
type Pipeline struct {
	cfg    *config.Config
	log    zerolog.Logger
	search *search.Router
	fetch  *fetch.Router
	store  *cache.Store
}

// New wires a pipeline over the given collaborators.
func New(cfg *config.Config, log zerolog.Logger, searchRouter *search.Router, fetchRouter *fetch.Router, store *cache.Store) *Pipeline {
	return &Pipeline{cfg: cfg, log: log, search: searchRouter, fetch: fetchRouter, store: store}
}

// selected is one URL chosen for fetching, with its selection order
// and the query its chunks are ranked against.
type selected struct {
	url       string
	order     int
	rankQuery string
}

// unitOutcome is everything one per-URL task produces. Units never
// share state; outcomes merge only at assembly.
type unitOutcome struct {
	result   URLResult
	chunks   []chunk.Chunk
	warnings []string
	failed   bool
	code     ErrorCode
}

// Run executes the full search → fetch → extract → rank flow.
func (p *Pipeline) Run(ctx context.Context, req Request) *Result {
	started := time.Now()
	out := &Result{SchemaVersion: SchemaVersion, Kind: KindEvidence}
	defer func() { out.ElapsedMs = time.Since(started).Milliseconds() }()

	if err := validate(req); err != nil {
		out.Error = infoFor(err)
		return out
	}
	creq := clampBounds(req, p.cfg.Limits)
	warnings := newWarningSet()

	ctx, cancel := context.WithTimeout(ctx, time.Duration(p.cfg.Limits.PipelineTimeoutMs)*time.Millisecond)
	defer cancel()

	targets, searchErr := p.selectURLs(ctx, creq, warnings)
	if searchErr != nil && len(targets) == 0 {
		out.WarningCodes, out.WarningHints = warnings.list()
		out.Error = infoFor(searchErr)
		return out
	}

	outcomes := p.runUnits(ctx, creq, targets)
	p.assemble(out, creq, targets, outcomes, warnings)
	return out
}

// selectURLs resolves the fetch targets: explicit URLs verbatim, plus
// a search phase when only a query was given.
func (p *Pipeline) selectURLs(ctx context.Context, req clamped, warnings *warningSet) ([]selected, *Error) {
	var targets []selected
	seen := make(map[string]struct{})

	rankQuery := ""
	if req.URLSelectionMode == SelectQueryRank {
		rankQuery = req.Query
	}
	for _, raw := range req.URLs {
		normalized, err := fetch.NormalizeURL(raw)
		if err != nil {
			// Recorded as a target so the per-URL failure surfaces in
			// results order; the unit rejects it without I/O.
			normalized = raw
		}
		if _, dup := seen[normalized]; dup {
			continue
		}
		seen[normalized] = struct{}{}
		targets = append(targets, selected{url: normalized, order: len(targets), rankQuery: rankQuery})
	}

	if len(req.URLs) > 0 || strings.TrimSpace(req.Query) == "" {
		return capTargets(targets, req.MaxURLs), nil
	}

	// Search phase. Search goes straight to provider APIs, so it is
	// unavailable whenever network egress is off the table.
	switch {
	case req.NoNetwork:
		warnings.add(WarnNoNetworkNeedsWarmCache)
		return nil, newError(CodeNotSupported, "search requires network; no_network is set")
	case p.cfg.PrivacyMode == config.PrivacyOffline:
		warnings.add(WarnOffline)
		return nil, newError(CodeNotSupported, "search is disabled in offline privacy mode")
	case p.cfg.PrivacyMode == config.PrivacyAnonymous:
		warnings.add(WarnProxyRequired)
		return nil, newError(CodeNotSupported, "search providers cannot be proxied; disabled in anonymous privacy mode")
	}

	candidates, err := p.search.Search(ctx, search.Query{
		Query:      req.Query,
		MaxResults: req.MaxResults,
	}, req.SearchProvider, req.AutoMode)
	if err != nil {
		if errors.Is(err, search.ErrNotConfigured) {
			warnings.add(WarnBackendNotConfigured)
			return nil, newError(CodeNotConfigured, "search: %v", err)
		}
		return nil, newError(CodeSearchFailed, "search: %v", err)
	}
	for _, c := range candidates {
		normalized, err := fetch.NormalizeURL(c.URL)
		if err != nil {
			continue
		}
		if _, dup := seen[normalized]; dup {
			continue
		}
		seen[normalized] = struct{}{}
		targets = append(targets, selected{url: normalized, order: len(targets), rankQuery: req.Query})
	}
	return capTargets(targets, req.MaxURLs), nil
}

func capTargets(targets []selected, maxURLs int) []selected {
	if len(targets) > maxURLs {
		targets = targets[:maxURLs]
	}
	return targets
}

// runUnits fans the targets out over a bounded worker pool. A unit
// failure never cancels siblings; outcomes land in selection order.
func (p *Pipeline) runUnits(ctx context.Context, req clamped, targets []selected) []unitOutcome {
	outcomes := make([]unitOutcome, len(targets))
	var g errgroup.Group
	g.SetLimit(req.MaxParallelURLs)
	for i, target := range targets {
		g.Go(func() error {
			outcomes[i] = p.fetchUnit(ctx, req, target)
			return nil
		})
	}
	_ = g.Wait()
	return outcomes
}

// fetchUnit runs one URL through sanitize → egress → cache → fetch →
// extract → rank, with at most one render-backend retry.
func (p *Pipeline) fetchUnit(ctx context.Context, req clamped, target selected) (out unitOutcome) {
	out = unitOutcome{result: URLResult{URL: target.url}}
	// Each per-URL result carries the warnings its unit raised.
	defer func() { out.result.WarningCodes = sortedCodes(out.warnings) }()
	fail := func(err *Error, warns ...string) unitOutcome {
		out.failed = true
		out.code = err.Code
		out.result.Error = infoFor(err)
		out.warnings = append(out.warnings, warns...)
		return out
	}

	normalized, err := fetch.NormalizeURL(target.url)
	if err != nil {
		return fail(newError(CodeInvalidURL, "%v", err))
	}
	target.url = normalized
	out.result.URL = normalized

	ctx, cancel := context.WithTimeout(ctx, time.Duration(req.URLTimeoutMs)*time.Millisecond)
	defer cancel()

	safeHeaders, dropped := headers.Sanitize(req.Headers, p.cfg.AllowUnsafeHeaders)
	if len(dropped) > 0 {
		out.warnings = append(out.warnings, WarnUnsafeHeadersDropped)
	}

	backend := strings.ToLower(strings.TrimSpace(req.FetchBackend))
	if backend == "" {
		backend = fetch.BackendLocal
	}

	resp, key, ferr := p.fetchThrough(ctx, req, target.url, backend, safeHeaders, &out)
	if ferr != nil {
		return fail(ferr)
	}

	result := p.extractResponse(resp, req)
	p.recordExtraction(key, result)

	// One render retry at most, and only when the primary backend was
	// the plain client and its extraction came up short.
	if backend == fetch.BackendLocal && p.shouldRenderFallback(req, result) && !req.NoNetwork {
		if retried, retryKey, rerr := p.fetchThrough(ctx, req, target.url, fetch.BackendRender, safeHeaders, &out); rerr == nil {
			if retriedResult := p.extractResponse(retried, req); usableSignal(retriedResult) {
				resp, result = retried, retriedResult
				p.recordExtraction(retryKey, result)
				out.warnings = append(out.warnings, WarnRenderFallbackUsed)
			}
		}
	}

	out.result.FinalURL = resp.FinalURL
	out.result.Status = resp.Status
	out.result.ContentType = resp.ContentType
	out.result.Provider = resp.Provider
	out.result.FromCache = resp.FromCache
	out.result.Truncated = resp.Truncated || result.Truncated
	out.result.Title = result.Title
	out.result.Signal = string(result.Signal)
	out.result.JSChallenge = result.JSChallenge
	out.result.TextChars = len([]rune(result.Text))
	if req.IncludeText {
		out.result.Text = result.Text
	}

	switch {
	case result.JSChallenge:
		out.warnings = append(out.warnings, WarnJSChallenge)
	case result.Signal == extract.SignalAbsent:
		out.warnings = append(out.warnings, WarnEmptyExtraction)
	case result.Signal == extract.SignalLowSignal:
		out.warnings = append(out.warnings, WarnLowSignal)
	}
	if resp.Status >= 300 || resp.Status < 200 {
		out.warnings = append(out.warnings, WarnHTTPStatus)
	}

	chunks := chunk.Rank(result.Text, target.rankQuery, req.TopChunks, req.MaxChunkChars)
	for i := range chunks {
		chunks[i].URL = target.url
		chunks[i].SourceOrder = target.order
	}
	out.chunks = chunks
	out.result.ChunkCount = len(chunks)

	p.log.Debug().
		Str("url", target.url).
		Str("backend", resp.Provider).
		Bool("from_cache", resp.FromCache).
		Str("signal", string(result.Signal)).
		Int("chunks", len(chunks)).
		Msg("url unit done")
	return out
}

// fetchThrough runs the egress-gated, cache-coalesced fetch for one
// URL and backend. Non-2xx responses come back without error so their
// bodies (often challenge pages) stay extractable.
func (p *Pipeline) fetchThrough(ctx context.Context, req clamped, url, backend string, safeHeaders map[string]string, out *unitOutcome) (*fetch.Response, string, *Error) {
	freq := fetch.Request{
		URL:       url,
		Backend:   backend,
		MaxBytes:  req.MaxBytes,
		TimeoutMs: req.URLTimeoutMs,
		Headers:   safeHeaders,
	}
	key := cache.Key(freq)
	policy := cache.Policy{
		Read:  true,
		Write: req.CacheWrite,
		TTL:   time.Duration(req.CacheTTLSecs) * time.Second,
	}

	if req.NoNetwork {
		hit, err := p.store.Get(freq, policy)
		if err != nil {
			return nil, key, newError(CodeCacheError, "%v", err)
		}
		if hit == nil {
			out.warnings = append(out.warnings, WarnNoNetworkNeedsWarmCache)
			return nil, key, newError(CodeFetchFailed, "cache miss for %s with no_network set", url)
		}
		return hit, key, nil
	}

	class := egress.ClassDirect
	if backend == fetch.BackendRender {
		class = egress.ClassRender
	}
	decision := egress.Permit(url, p.cfg.PrivacyMode, p.cfg.Proxy, class)
	if !decision.Allowed {
		// A warm cache entry still serves a policy-denied URL.
		if hit, err := p.store.Get(freq, policy); err == nil && hit != nil {
			return hit, key, nil
		}
		switch decision.Reason {
		case egress.DenyNetworkDisabledOffline:
			out.warnings = append(out.warnings, WarnOffline)
			return nil, key, newError(CodeNotSupported, "offline privacy mode blocks %s", url)
		case egress.DenyProxyRequiredAnonymous:
			out.warnings = append(out.warnings, WarnProxyRequired)
			return nil, key, newError(CodeNotConfigured, "anonymous privacy mode requires a proxy for %s", url)
		default:
			return nil, key, newError(CodeInvalidURL, "egress denied for %q", url)
		}
	}
	freq.Proxy = decision.Proxy

	// StatusError responses survive only for the caller that ran the
	// live fetch; coalesced waiters see the bare error.
	var statusResp *fetch.Response
	resp, err := p.store.GetOrFetch(ctx, freq, policy, func(ctx context.Context) (*fetch.Response, error) {
		live, liveErr := p.fetch.Fetch(ctx, freq)
		var se *fetch.StatusError
		if errors.As(liveErr, &se) && live != nil {
			statusResp = live
		}
		return live, liveErr
	})
	if err != nil {
		var se *fetch.StatusError
		if errors.As(err, &se) && statusResp != nil {
			return statusResp, key, nil
		}
		ferr := mapFetchError(err, url)
		if ferr.Code == CodeNotConfigured {
			out.warnings = append(out.warnings, WarnBackendNotConfigured)
		}
		return nil, key, ferr
	}
	return resp, key, nil
}

func mapFetchError(err error, url string) *Error {
	switch {
	case errors.Is(err, fetch.ErrNotConfigured):
		return newError(CodeNotConfigured, "%v", err)
	case errors.Is(err, context.DeadlineExceeded):
		return newError(CodeFetchFailed, "timeout fetching %s", url)
	default:
		return newError(CodeFetchFailed, "%v", err)
	}
}

func (p *Pipeline) extractResponse(resp *fetch.Response, req clamped) extract.Result {
	return extract.FromBytes(resp.Body, resp.ContentType, extract.Options{
		MaxChars: req.MaxChars,
		BaseURL:  resp.FinalURL,
	})
}

// recordExtraction memoizes extracted text in the corpus index so
// cache_search can rank it without re-extracting.
func (p *Pipeline) recordExtraction(key string, result extract.Result) {
	if idx := p.store.Index(); idx != nil && result.Text != "" {
		_ = idx.SetText(key, result.Text, len([]rune(result.Text)))
	}
}

func (p *Pipeline) shouldRenderFallback(req clamped, result extract.Result) bool {
	if result.JSChallenge {
		return req.RenderFallbackOnEmpty || req.RenderFallbackOnLowSignal
	}
	switch result.Signal {
	case extract.SignalAbsent:
		return req.RenderFallbackOnEmpty
	case extract.SignalLowSignal:
		return req.RenderFallbackOnLowSignal
	}
	return false
}

func usableSignal(result extract.Result) bool {
	return !result.JSChallenge && result.Signal != extract.SignalAbsent
}

// assemble merges unit outcomes into the envelope: warnings union,
// chunks merged and truncated, results in selection order.
func (p *Pipeline) assemble(out *Result, req clamped, targets []selected, outcomes []unitOutcome, warnings *warningSet) {
	perURL := make([][]chunk.Chunk, 0, len(outcomes))
	var succeeded, failed, fromCache, lowSignalChunks, okSignalChunks int
	counts := map[ErrorCode]int{}

	for _, o := range outcomes {
		warnings.merge(o.warnings)
		if o.failed {
			failed++
			counts[o.code]++
			continue
		}
		succeeded++
		if o.result.FromCache {
			fromCache++
		}
		if len(o.chunks) > 0 {
			perURL = append(perURL, o.chunks)
			if o.result.Signal == string(extract.SignalLowSignal) || o.result.JSChallenge {
				lowSignalChunks += len(o.chunks)
			} else {
				okSignalChunks += len(o.chunks)
			}
		}
	}

	out.TopChunks = chunk.Merge(perURL, req.TopChunks)
	if !req.MinimalOutput {
		out.Results = make([]URLResult, len(outcomes))
		for i, o := range outcomes {
			out.Results[i] = o.result
		}
	}

	if failed > 0 && succeeded > 0 {
		warnings.add(WarnPartialResults)
	}
	if succeeded > 0 && fromCache == succeeded {
		warnings.add(WarnCacheOnly)
	}
	if len(out.TopChunks) > 0 && okSignalChunks == 0 {
		warnings.add(WarnAllChunksLowSignal)
	}

	if len(out.TopChunks) == 0 {
		out.Error = infoFor(newError(dominantCode(counts), "no usable chunks from %d url(s)", len(targets)))
	} else {
		out.OK = true
	}
	out.WarningCodes, out.WarningHints = warnings.list()
}

// dominantCode picks the aggregate error code: the single shared
// per-URL code when failures agree, fetch_failed otherwise.
func dominantCode(counts map[ErrorCode]int) ErrorCode {
	if len(counts) == 1 {
		for code := range counts {
			return code
		}
	}
	if len(counts) == 0 {
		return CodeUnexpected
	}
	return CodeFetchFailed
}
