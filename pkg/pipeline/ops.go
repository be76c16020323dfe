package pipeline

import (
	"context"
	"strings"
	"time"

	"github.com/arclabs561/webpipe/pkg/cache"
	"github.com/arclabs561/webpipe/pkg/chunk"
	"github.com/arclabs561/webpipe/pkg/extract"
)

// FetchURL is the single-URL fetch operation: one URL through the
// egress gate, cache, and backend router, with extraction metadata but
// no ranking.
func (p *Pipeline) FetchURL(ctx context.Context, req Request) *Result {
	return p.runSingle(ctx, req, KindFetch)
}

// ExtractURL fetches one URL and returns its extracted text. Text is
// always included; the caller asked for it by choosing this operation.
func (p *Pipeline) ExtractURL(ctx context.Context, req Request) *Result {
	req.IncludeText = true
	return p.runSingle(ctx, req, KindExtract)
}

func (p *Pipeline) runSingle(ctx context.Context, req Request, kind string) *Result {
	started := time.Now()
	out := &Result{SchemaVersion: SchemaVersion, Kind: kind}
	defer func() { out.ElapsedMs = time.Since(started).Milliseconds() }()

	if len(req.URLs) != 1 {
		out.Error = infoFor(newError(CodeInvalidParams, "exactly one url is required"))
		return out
	}
	req.Query = ""
	if verr := validate(req); verr != nil {
		out.Error = infoFor(verr)
		return out
	}
	creq := clampBounds(req, p.cfg.Limits)
	warnings := newWarningSet()

	ctx, cancel := context.WithTimeout(ctx, time.Duration(p.cfg.Limits.PipelineTimeoutMs)*time.Millisecond)
	defer cancel()

	outcome := p.fetchUnit(ctx, creq, selected{url: creq.URLs[0]})
	warnings.merge(outcome.warnings)
	out.Results = []URLResult{outcome.result}
	if kind == KindExtract {
		out.TopChunks = outcome.chunks
	}
	out.OK = !outcome.failed
	if outcome.failed {
		out.Error = &ErrorInfo{
			Code:      outcome.code,
			Message:   outcome.result.Error.Message,
			Retryable: outcome.code.Retryable(),
			Hint:      outcome.code.Hint(),
		}
	}
	out.WarningCodes, out.WarningHints = warnings.list()
	return out
}

// CacheSearchRequest queries the offline corpus of previously fetched
// and extracted pages. It never touches the network.
type CacheSearchRequest struct {
	Query         string `json:"query"`
	TopChunks     int    `json:"top_chunks,omitempty"`
	MaxChunkChars int    `json:"max_chunk_chars,omitempty"`
	MaxDocs       int    `json:"max_docs,omitempty"`
}

// CacheSearch ranks chunks from the cache corpus index against the
// query. Entries without memoized text are extracted on the fly and
// memoized for the next scan.
func (p *Pipeline) CacheSearch(ctx context.Context, req CacheSearchRequest) *Result {
	started := time.Now()
	out := &Result{SchemaVersion: SchemaVersion, Kind: KindCacheSearch}
	defer func() { out.ElapsedMs = time.Since(started).Milliseconds() }()

	if strings.TrimSpace(req.Query) == "" {
		out.Error = infoFor(newError(CodeInvalidParams, "query is required"))
		return out
	}
	idx := p.store.Index()
	if idx == nil {
		out.Error = infoFor(newError(CodeCacheError, "cache corpus index is disabled"))
		return out
	}

	limits := p.cfg.Limits
	if req.TopChunks <= 0 || req.TopChunks > limits.TopChunks {
		req.TopChunks = limits.TopChunks
	}
	if req.MaxChunkChars < 50 || req.MaxChunkChars > limits.MaxChunkChars {
		req.MaxChunkChars = limits.MaxChunkChars
	}
	if req.MaxDocs <= 0 || req.MaxDocs > limits.CacheCorpusMaxDocs {
		req.MaxDocs = limits.CacheCorpusMaxDocs
	}

	docs, err := idx.Recent(req.MaxDocs)
	if err != nil {
		out.Error = infoFor(newError(CodeCacheError, "%v", err))
		return out
	}

	warnings := newWarningSet()
	warnings.add(WarnCacheOnly)
	var perURL [][]chunk.Chunk
	order := 0
	for _, doc := range docs {
		if ctx.Err() != nil {
			break
		}
		text := doc.Text
		if text == "" {
			entry, err := p.store.GetByKey(doc.Key, cache.DefaultPolicy())
			if err != nil || entry == nil {
				continue
			}
			result := extract.FromBytes(entry.Body, entry.ContentType, extract.Options{
				MaxChars: limits.MaxChars,
				BaseURL:  entry.FinalURL,
			})
			if result.Text == "" {
				continue
			}
			text = result.Text
			_ = idx.SetText(doc.Key, text, len([]rune(text)))
		}
		chunks := chunk.Rank(text, req.Query, req.TopChunks, req.MaxChunkChars)
		for i := range chunks {
			chunks[i].URL = doc.URL
			chunks[i].SourceOrder = order
		}
		if len(chunks) > 0 {
			perURL = append(perURL, chunks)
		}
		order++
	}

	out.TopChunks = chunk.Merge(perURL, req.TopChunks)
	if len(out.TopChunks) == 0 {
		out.Error = infoFor(newError(CodeCacheError, "no cached content matched; warm the cache first"))
	} else {
		out.OK = true
	}
	out.WarningCodes, out.WarningHints = warnings.list()
	return out
}
