// Package extract turns raw fetched bytes into readable text plus a
// content-quality signal. Extraction is deterministic: identical bytes
// and content-type always produce identical output, which is what makes
// cache-driven runs reproducible.
package extract

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strings"
	"unicode/utf8"
)

// Signal classifies how much usable text an extraction produced.
type Signal string

const (
	SignalAbsent    Signal = "absent"
	SignalLowSignal Signal = "low_signal"
	SignalOK        Signal = "ok"
)

// Result is the outcome of extracting one fetched body.
type Result struct {
	// Text is the readable text, truncated to the requested max chars
	// on a rune boundary.
	Text      string
	Truncated bool
	Title     string
	Signal    Signal
	// Engine names the extraction path taken (html, json, text,
	// markdown, pdf, image, binary).
	Engine string
	// Links are absolute outbound URLs discovered in HTML, in document
	// order, capped.
	Links []string
	// Digest is a sha256 over the full (pre-truncation) text, used for
	// downstream dedup.
	Digest string
	// JSChallenge reports that the page looks like a JS/CAPTCHA
	// interstitial rather than content.
	JSChallenge bool
}

// Options bound one extraction.
type Options struct {
	MaxChars int
	// BaseURL resolves relative links; usually the fetch final URL.
	BaseURL string
	// MaxLinks caps collected outbound links; zero means 100.
	MaxLinks int
}

// low-signal threshold: extracted words per raw kilobyte below this
// mark text as low_signal. Tunable, validated by the determinism and
// signal tests rather than contractual.
const (
	minWordsPerRawKB = 2
	minSignalWords   = 15
)

// FromBytes extracts readable text from a fetched body.
func FromBytes(body []byte, contentType string, opts Options) Result {
	if opts.MaxChars <= 0 {
		opts.MaxChars = 50_000
	}
	ct := strings.ToLower(strings.TrimSpace(contentType))

	var res Result
	switch {
	case len(bytes.TrimSpace(body)) == 0:
		res = Result{Engine: "empty"}
	case looksLikePDF(body):
		// PDF text extraction is delegated to external tooling; here it
		// classifies as unreadable so callers can switch backends.
		res = Result{Engine: "pdf"}
	case looksLikeImage(body):
		res = Result{Engine: "image"}
	case strings.Contains(ct, "json"):
		res = extractJSON(body)
	case strings.Contains(ct, "html") || looksLikeHTML(body):
		res = extractHTML(body, opts)
	case strings.Contains(ct, "markdown"):
		res = Result{Engine: "markdown", Text: normalizeText(string(body))}
	case strings.HasPrefix(ct, "text/"):
		res = Result{Engine: "text", Text: normalizeText(string(body))}
	case utf8.Valid(body):
		res = Result{Engine: "text", Text: normalizeText(string(body))}
	default:
		res = Result{Engine: "binary"}
	}

	res.JSChallenge = res.JSChallenge || looksLikeJSChallenge(res.Title, res.Text)
	res.Signal = classify(res.Text, len(body))
	if res.Text != "" {
		sum := sha256.Sum256([]byte(res.Text))
		res.Digest = hex.EncodeToString(sum[:])
	}
	res.Text, res.Truncated = truncateRunes(res.Text, opts.MaxChars)
	return res
}

func extractJSON(body []byte) Result {
	var decoded any
	if err := json.Unmarshal(body, &decoded); err != nil {
		return Result{Engine: "text", Text: normalizeText(string(body))}
	}
	pretty, err := json.MarshalIndent(decoded, "", "  ")
	if err != nil {
		return Result{Engine: "text", Text: normalizeText(string(body))}
	}
	return Result{Engine: "json", Text: string(pretty)}
}

func classify(text string, rawBytes int) Signal {
	words := len(strings.Fields(text))
	if words == 0 {
		return SignalAbsent
	}
	if words < minSignalWords {
		return SignalLowSignal
	}
	if rawBytes > 4096 {
		perKB := words * 1024 / rawBytes
		if perKB < minWordsPerRawKB {
			return SignalLowSignal
		}
	}
	return SignalOK
}

// truncateRunes cuts text to at most maxChars runes, never mid-codepoint.
func truncateRunes(s string, maxChars int) (string, bool) {
	if maxChars <= 0 || utf8.RuneCountInString(s) <= maxChars {
		return s, false
	}
	runes := []rune(s)
	return string(runes[:maxChars]), true
}

// normalizeText collapses runs of blank lines and trims trailing space
// so paragraph boundaries stay stable for the chunker.
func normalizeText(s string) string {
	lines := strings.Split(strings.ReplaceAll(s, "\r\n", "\n"), "\n")
	var b strings.Builder
	blank := 0
	for _, line := range lines {
		line = strings.TrimRight(line, " \t")
		if strings.TrimSpace(line) == "" {
			blank++
			continue
		}
		if b.Len() > 0 {
			if blank > 0 {
				b.WriteString("\n\n")
			} else {
				b.WriteString("\n")
			}
		}
		blank = 0
		b.WriteString(line)
	}
	return strings.TrimSpace(b.String())
}
