package pipeline

import "github.com/arclabs561/webpipe/pkg/chunk"

// SchemaVersion is bumped on any breaking change to the result shape.
const SchemaVersion = 2

// Result kinds name the operation that produced the payload.
const (
	KindEvidence    = "evidence"
	KindFetch       = "fetch"
	KindExtract     = "extract"
	KindCacheSearch = "cache_search"
)

// Result is the envelope returned by every pipeline operation.
type Result struct {
	OK            bool          `json:"ok"`
	SchemaVersion int           `json:"schema_version"`
	Kind          string        `json:"kind"`
	ElapsedMs     int64         `json:"elapsed_ms"`
	WarningCodes  []string      `json:"warning_codes,omitempty"`
	WarningHints  []string      `json:"warning_hints,omitempty"`
	TopChunks     []chunk.Chunk `json:"top_chunks,omitempty"`
	Results       []URLResult   `json:"results,omitempty"`
	Error         *ErrorInfo    `json:"error,omitempty"`
}

// URLResult is the per-URL detail, ordered by the original selection
// order regardless of completion order.
type URLResult struct {
	URL         string `json:"url"`
	FinalURL    string `json:"final_url,omitempty"`
	Status      int    `json:"status,omitempty"`
	ContentType string `json:"content_type,omitempty"`
	Provider    string `json:"provider,omitempty"`
	FromCache   bool   `json:"from_cache,omitempty"`
	Truncated   bool   `json:"truncated,omitempty"`

	Title       string `json:"title,omitempty"`
	Signal      string `json:"signal,omitempty"`
	JSChallenge bool   `json:"js_challenge,omitempty"`
	TextChars   int    `json:"text_chars,omitempty"`
	// Text is included only when the request asks for it.
	Text       string `json:"text,omitempty"`
	ChunkCount int    `json:"chunk_count"`

	WarningCodes []string   `json:"warning_codes,omitempty"`
	Error        *ErrorInfo `json:"error,omitempty"`
}
