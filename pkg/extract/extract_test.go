package extract

import (
	"fmt"
	"strings"
	"testing"
	"unicode/utf8"
)

const articleHTML = `<!DOCTYPE html>
<html><head><title>Go Concurrency Patterns</title></head>
<body>
<nav><a href="/home">Home</a><a href="/docs">Docs</a></nav>
<article>
<h1>Go Concurrency Patterns</h1>
<p>Goroutines are lightweight threads managed by the Go runtime. They make
concurrent programming practical for everyday server workloads.</p>
<p>Channels connect goroutines, letting one send values to another without
explicit locks or condition variables in most programs.</p>
<p>See <a href="https://go.dev/blog/pipelines">the pipelines post</a> and
<a href="/ref/spec#Channel_types">the spec</a> for details.</p>
</article>
<footer>Copyright</footer>
</body></html>`

func TestExtractHTMLArticle(t *testing.T) {
	res := FromBytes([]byte(articleHTML), "text/html; charset=utf-8", Options{
		MaxChars: 10_000,
		BaseURL:  "https://go.dev/blog/patterns",
	})
	if res.Engine != "html" {
		t.Fatalf("engine=%q", res.Engine)
	}
	if res.Title != "Go Concurrency Patterns" {
		t.Fatalf("title=%q", res.Title)
	}
	if !strings.Contains(res.Text, "Goroutines are lightweight threads") {
		t.Fatalf("text=%q", res.Text)
	}
	if strings.Contains(res.Text, "Copyright") || strings.Contains(res.Text, "Home") {
		t.Fatalf("chrome leaked into text: %q", res.Text)
	}
	if res.Signal != SignalOK {
		t.Fatalf("signal=%q", res.Signal)
	}
	wantLink := "https://go.dev/ref/spec"
	found := false
	for _, l := range res.Links {
		if l == wantLink {
			found = true
		}
	}
	if !found {
		t.Fatalf("links=%v, want resolved %q", res.Links, wantLink)
	}
}

func TestExtractIsDeterministic(t *testing.T) {
	inputs := []struct {
		body []byte
		ct   string
	}{
		{[]byte(articleHTML), "text/html"},
		{[]byte(`{"a":[1,2,3],"b":"x"}`), "application/json"},
		{[]byte("plain\n\ntext body"), "text/plain"},
		{[]byte{0x00, 0x01, 0xFF, 0xFE}, "application/octet-stream"},
	}
	for _, in := range inputs {
		first := FromBytes(in.body, in.ct, Options{MaxChars: 5000})
		for range 5 {
			again := FromBytes(in.body, in.ct, Options{MaxChars: 5000})
			if first.Text != again.Text || first.Signal != again.Signal || first.Digest != again.Digest {
				t.Fatalf("nondeterministic extraction for %s", in.ct)
			}
		}
	}
}

func TestExtractJSONPrettyPrints(t *testing.T) {
	res := FromBytes([]byte(`{"name":"webpipe","tags":["go","mcp"]}`), "application/json", Options{MaxChars: 1000})
	if res.Engine != "json" {
		t.Fatalf("engine=%q", res.Engine)
	}
	if !strings.Contains(res.Text, "\"name\": \"webpipe\"") {
		t.Fatalf("text=%q", res.Text)
	}
}

func TestExtractEmptyBodyIsAbsent(t *testing.T) {
	res := FromBytes([]byte("   \n"), "text/html", Options{MaxChars: 100})
	if res.Signal != SignalAbsent {
		t.Fatalf("signal=%q, want absent", res.Signal)
	}
}

func TestExtractPDFIsAbsentSignal(t *testing.T) {
	res := FromBytes([]byte("%PDF-1.7\n…binary…"), "application/pdf", Options{MaxChars: 100})
	if res.Engine != "pdf" || res.Signal != SignalAbsent {
		t.Fatalf("engine=%q signal=%q", res.Engine, res.Signal)
	}
}

func TestExtractLowSignalSparseHTML(t *testing.T) {
	// A large page with almost no text density.
	page := "<html><body><p>ok fine</p>" + strings.Repeat("<div class=\"pad\"></div>", 4000) + "</body></html>"
	res := FromBytes([]byte(page), "text/html", Options{MaxChars: 5000})
	if res.Signal == SignalOK {
		t.Fatalf("signal=%q, want degraded", res.Signal)
	}
}

func TestExtractDetectsJSChallenge(t *testing.T) {
	page := `<html><head><title>Just a moment...</title></head>
<body>example.com needs to review the security of your connection before proceeding.
Performance &amp; security by Cloudflare</body></html>`
	res := FromBytes([]byte(page), "text/html", Options{MaxChars: 5000})
	if !res.JSChallenge {
		t.Fatal("expected JS challenge detection")
	}
}

func TestTruncationFallsOnRuneBoundary(t *testing.T) {
	text := strings.Repeat("héllo wörld ", 100)
	res := FromBytes([]byte(text), "text/plain", Options{MaxChars: 37})
	if !res.Truncated {
		t.Fatal("expected truncation")
	}
	if got := utf8.RuneCountInString(res.Text); got > 37 {
		t.Fatalf("rune count=%d, want <= 37", got)
	}
	if !utf8.ValidString(res.Text) {
		t.Fatal("truncation split a codepoint")
	}
}

func TestDigestCoversPreTruncationText(t *testing.T) {
	body := []byte(strings.Repeat("evidence text here. ", 50))
	full := FromBytes(body, "text/plain", Options{MaxChars: 100_000})
	cut := FromBytes(body, "text/plain", Options{MaxChars: 40})
	if full.Digest != cut.Digest {
		t.Fatal("digest must be stable across output truncation")
	}
	if fmt.Sprintf("%x", cut.Digest) == "" {
		t.Fatal("digest must be set")
	}
}

func TestSniffHTMLWithoutContentType(t *testing.T) {
	res := FromBytes([]byte("<html><body><p>hi there everyone reading this page today</p></body></html>"), "application/octet-stream", Options{MaxChars: 500})
	if res.Engine != "html" {
		t.Fatalf("engine=%q, want html via sniffing", res.Engine)
	}
}
