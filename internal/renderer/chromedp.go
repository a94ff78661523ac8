// Package renderer fetches pages and extracts their final DOM and
// outbound links, either through headless Chrome or plain HTTP.
package renderer

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/JakeFAU/ragsearch-crawler/internal/rag"
)

// Chromedp renders pages with JavaScript enabled using a shared
// headless browser. One tab is opened per Render call.
type Chromedp struct {
	allocatorCancel context.CancelFunc
	browserCtx      context.Context
	browserCancel   context.CancelFunc
	logger          *zap.Logger
	sem             chan struct{}
	timeout         time.Duration
	userAgent       string
}

// ChromedpOptions configures the headless renderer.
type ChromedpOptions struct {
	UserAgent      string
	Timeout        time.Duration
	MaxConcurrency int
}

// NewChromedp starts a headless browser. The caller owns Close.
func NewChromedp(opts ChromedpOptions, logger *zap.Logger) (*Chromedp, error) {
	if opts.MaxConcurrency <= 0 {
		opts.MaxConcurrency = 4
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 25 * time.Second
	}

	allocOpts := chromedp.DefaultExecAllocatorOptions[:]
	allocOpts = append(allocOpts,
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.UserAgent(opts.UserAgent),
	)
	allocatorCtx, allocatorCancel := chromedp.NewExecAllocator(context.Background(), allocOpts...)
	browserCtx, browserCancel := chromedp.NewContext(allocatorCtx)
	if err := chromedp.Run(browserCtx); err != nil {
		allocatorCancel()
		browserCancel()
		return nil, fmt.Errorf("chromedp warmup: %w", err)
	}

	return &Chromedp{
		allocatorCancel: allocatorCancel,
		browserCtx:      browserCtx,
		browserCancel:   browserCancel,
		logger:          logger,
		sem:             make(chan struct{}, opts.MaxConcurrency),
		timeout:         opts.Timeout,
		userAgent:       opts.UserAgent,
	}, nil
}

// Close tears down the browser and its allocator.
func (r *Chromedp) Close() {
	if r == nil {
		return
	}
	r.browserCancel()
	r.allocatorCancel()
}

// Render executes the page and returns the post-JavaScript DOM along
// with the absolute hrefs of its anchors.
func (r *Chromedp) Render(ctx context.Context, rawURL string) (rag.Page, error) {
	select {
	case r.sem <- struct{}{}:
		defer func() { <-r.sem }()
	case <-ctx.Done():
		return rag.Page{}, fmt.Errorf("acquire render slot: %w", ctx.Err())
	}

	tabCtx, cancelTab := chromedp.NewContext(r.browserCtx)
	defer cancelTab()

	taskCtx, cancelTask := context.WithTimeout(tabCtx, r.timeout)
	defer cancelTask()

	stopForward := forwardCancel(ctx, cancelTask)
	defer stopForward()

	meta := newResponseMeta()
	recordResponse(tabCtx, meta)

	var html string
	var links []string
	tasks := chromedp.Tasks{
		network.Enable(),
		emulation.SetUserAgentOverride(r.userAgent),
		chromedp.Navigate(rawURL),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
		chromedp.Evaluate(`Array.from(document.querySelectorAll("a[href]"), a => a.href)`, &links),
	}
	if err := chromedp.Run(taskCtx, tasks); err != nil {
		return rag.Page{}, fmt.Errorf("chromedp run: %w", err)
	}

	return rag.Page{
		URL:        rawURL,
		FinalURL:   meta.finalURL(rawURL),
		StatusCode: meta.statusCode,
		HTML:       html,
		Links:      links,
	}, nil
}

type responseMeta struct {
	once       sync.Once
	statusCode int
	url        string
}

func newResponseMeta() *responseMeta {
	return &responseMeta{statusCode: 200}
}

func (m *responseMeta) finalURL(raw string) string {
	if m.url == "" {
		return raw
	}
	return m.url
}

func recordResponse(tabCtx context.Context, meta *responseMeta) {
	chromedp.ListenTarget(tabCtx, func(ev interface{}) {
		resp, ok := ev.(*network.EventResponseReceived)
		if !ok || resp.Type != network.ResourceTypeDocument {
			return
		}
		meta.once.Do(func() {
			meta.statusCode = int(resp.Response.Status)
			meta.url = resp.Response.URL
		})
	})
}

func forwardCancel(parent context.Context, cancel context.CancelFunc) func() {
	if parent == nil {
		return func() {}
	}
	done := make(chan struct{})
	go func() {
		select {
		case <-parent.Done():
			cancel()
		case <-done:
		}
	}()
	return func() { close(done) }
}
