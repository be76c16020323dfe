package extract

import (
	"bytes"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/dyatlov/go-opengraph/opengraph"
)

// blockSelectors are elements that start a new paragraph in the
// extracted text.
var blockSelectors = "p, h1, h2, h3, h4, h5, h6, li, pre, blockquote, td, dt, dd, figcaption"

// chromeSelectors are stripped before text extraction.
var chromeSelectors = "script, style, noscript, template, svg, nav, header, footer, aside, form"

func extractHTML(body []byte, opts Options) Result {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return Result{Engine: "text", Text: normalizeText(string(body))}
	}

	title := strings.TrimSpace(doc.Find("title").First().Text())
	if ogTitle := openGraphTitle(body); ogTitle != "" {
		title = ogTitle
	}

	doc.Find(chromeSelectors).Remove()

	// Prefer the semantic main-content region when one exists; the
	// whole body is the fallback.
	root := doc.Find("article").First()
	if root.Length() == 0 {
		root = doc.Find("main, [role=main]").First()
	}
	if root.Length() == 0 {
		root = doc.Find("body").First()
	}
	if root.Length() == 0 {
		return Result{Engine: "html", Title: title}
	}

	var paragraphs []string
	root.Find(blockSelectors).Each(func(_ int, sel *goquery.Selection) {
		// Only leaf-ish blocks: skip containers that nest other blocks,
		// their text arrives via the children.
		if sel.Find(blockSelectors).Length() > 0 {
			return
		}
		text := collapseSpace(sel.Text())
		if text != "" {
			paragraphs = append(paragraphs, text)
		}
	})
	if len(paragraphs) == 0 {
		if text := collapseSpace(root.Text()); text != "" {
			paragraphs = append(paragraphs, text)
		}
	}

	return Result{
		Engine: "html",
		Title:  title,
		Text:   strings.Join(paragraphs, "\n\n"),
		Links:  collectLinks(doc, opts),
	}
}

func openGraphTitle(body []byte) string {
	og := opengraph.NewOpenGraph()
	if err := og.ProcessHTML(bytes.NewReader(body)); err != nil {
		return ""
	}
	return strings.TrimSpace(og.Title)
}

func collectLinks(doc *goquery.Document, opts Options) []string {
	maxLinks := opts.MaxLinks
	if maxLinks <= 0 {
		maxLinks = 100
	}
	var base *url.URL
	if opts.BaseURL != "" {
		base, _ = url.Parse(opts.BaseURL)
	}

	seen := make(map[string]struct{})
	var links []string
	doc.Find("a[href]").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		href, _ := sel.Attr("href")
		href = strings.TrimSpace(href)
		if href == "" || strings.HasPrefix(href, "#") || strings.HasPrefix(href, "javascript:") {
			return true
		}
		u, err := url.Parse(href)
		if err != nil {
			return true
		}
		if base != nil {
			u = base.ResolveReference(u)
		}
		if u.Scheme != "http" && u.Scheme != "https" {
			return true
		}
		u.Fragment = ""
		abs := u.String()
		if _, ok := seen[abs]; ok {
			return true
		}
		seen[abs] = struct{}{}
		links = append(links, abs)
		return len(links) < maxLinks
	})
	return links
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
