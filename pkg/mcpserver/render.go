package mcpserver

import (
	"fmt"
	"strings"

	"github.com/arclabs561/webpipe/pkg/pipeline"
)

// renderMarkdown derives the human-readable view of a result. The
// structured payload stays authoritative; this is a summary.
func renderMarkdown(res *pipeline.Result) string {
	var b strings.Builder

	if !res.OK {
		fmt.Fprintf(&b, "**error** `%s`", res.Error.Code)
		if res.Error.Retryable {
			b.WriteString(" (retryable)")
		}
		fmt.Fprintf(&b, ": %s\n\nHint: %s\n", res.Error.Message, res.Error.Hint)
		appendWarnings(&b, res)
		return b.String()
	}

	switch res.Kind {
	case pipeline.KindEvidence, pipeline.KindCacheSearch:
		fmt.Fprintf(&b, "%d chunk(s) in %dms\n", len(res.TopChunks), res.ElapsedMs)
		for i, c := range res.TopChunks {
			fmt.Fprintf(&b, "\n%d. [%.3f] %s\n%s\n", i+1, c.Score, c.URL, c.Text)
		}
	case pipeline.KindFetch, pipeline.KindExtract:
		for _, r := range res.Results {
			fmt.Fprintf(&b, "%s -> %d %s", r.URL, r.Status, r.ContentType)
			if r.FromCache {
				b.WriteString(" (cached)")
			}
			if r.Title != "" {
				fmt.Fprintf(&b, "\ntitle: %s", r.Title)
			}
			if r.Signal != "" {
				fmt.Fprintf(&b, "\nsignal: %s, %d chars extracted", r.Signal, r.TextChars)
			}
			b.WriteString("\n")
			if r.Text != "" {
				fmt.Fprintf(&b, "\n%s\n", r.Text)
			}
		}
	}
	appendWarnings(&b, res)
	return b.String()
}

func appendWarnings(b *strings.Builder, res *pipeline.Result) {
	if len(res.WarningCodes) == 0 {
		return
	}
	b.WriteString("\nWarnings:\n")
	for i, code := range res.WarningCodes {
		hint := ""
		if i < len(res.WarningHints) {
			hint = res.WarningHints[i]
		}
		fmt.Fprintf(b, "- `%s`: %s\n", code, hint)
	}
}
