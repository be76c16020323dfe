package fetch

import (
	"context"
	"fmt"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"

	"github.com/arclabs561/webpipe/pkg/config"
)

type renderProvider struct {
	cfg config.RenderConfig
}

// NewRenderProvider returns the headless-browser backend. Pages that
// hide content behind client-side rendering get a real DOM here; the
// rendered outer HTML is returned as the body.
func NewRenderProvider(cfg config.RenderConfig) Provider {
	return &renderProvider{cfg: cfg}
}

func (p *renderProvider) Name() string {
	return BackendRender
}

func (p *renderProvider) Fetch(ctx context.Context, req Request) (*Response, error) {
	timeout := req.Timeout()
	if secs := time.Duration(p.cfg.TimeoutSecs) * time.Second; secs > 0 && secs < timeout {
		timeout = secs
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	l := launcher.New().Headless(true)
	if p.cfg.BrowserBin != "" {
		l = l.Bin(p.cfg.BrowserBin)
	}
	if req.Proxy != "" {
		l = l.Proxy(req.Proxy)
	}
	controlURL, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("%w: browser launch failed: %v", ErrNotConfigured, err)
	}
	defer l.Cleanup()

	browser := rod.New().ControlURL(controlURL).Context(ctx)
	if err := browser.Connect(); err != nil {
		return nil, fmt.Errorf("browser connect: %w", err)
	}
	defer browser.Close()

	start := time.Now()
	page, err := browser.Page(proto.TargetCreateTarget{URL: req.URL})
	if err != nil {
		return nil, fmt.Errorf("render navigate: %w", err)
	}
	if err := page.WaitLoad(); err != nil {
		return nil, fmt.Errorf("render wait: %w", err)
	}
	// Give client-side frameworks a beat to hydrate before snapshotting.
	if p.cfg.WaitMs > 0 {
		select {
		case <-time.After(time.Duration(p.cfg.WaitMs) * time.Millisecond):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	html, err := page.HTML()
	if err != nil {
		return nil, fmt.Errorf("render snapshot: %w", err)
	}

	body := []byte(html)
	truncated := false
	maxBytes := req.MaxBytes
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	if int64(len(body)) > maxBytes {
		body = body[:maxBytes]
		truncated = true
	}

	finalURL := req.URL
	if info, err := page.Info(); err == nil && info.URL != "" {
		finalURL = info.URL
	}

	return &Response{
		URL:         req.URL,
		FinalURL:    finalURL,
		Status:      200,
		ContentType: "text/html",
		Body:        body,
		Truncated:   truncated,
		FetchedAt:   time.Now().Unix(),
		TookMs:      time.Since(start).Milliseconds(),
		Provider:    BackendRender,
	}, nil
}
