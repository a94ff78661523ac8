package renderer

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gocolly/colly/v2"
	"go.uber.org/zap"

	"github.com/JakeFAU/ragsearch-crawler/internal/rag"
)

// Colly fetches pages over plain HTTP without JavaScript execution.
// It is the default renderer; sites that require a browser use the
// Chromedp renderer instead.
type Colly struct {
	baseCollector *colly.Collector
	logger        *zap.Logger
}

// CollyOptions configures the plain HTTP renderer.
type CollyOptions struct {
	UserAgent      string
	RequestTimeout time.Duration
	MaxConcurrency int
}

// NewColly constructs a Colly-backed renderer.
func NewColly(opts CollyOptions, logger *zap.Logger) (*Colly, error) {
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 25 * time.Second
	}
	if opts.MaxConcurrency <= 0 {
		opts.MaxConcurrency = 8
	}

	base := colly.NewCollector(colly.UserAgent(opts.UserAgent))
	base.AllowURLRevisit = true
	base.WithTransport(&http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		MaxIdleConns:          128,
		MaxIdleConnsPerHost:   32,
		MaxConnsPerHost:       opts.MaxConcurrency * 2,
		IdleConnTimeout:       30 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: opts.RequestTimeout,
		ForceAttemptHTTP2:     true,
	})
	base.SetRequestTimeout(opts.RequestTimeout)

	return &Colly{
		baseCollector: base,
		logger:        logger,
	}, nil
}

// Render fetches the page and collects the absolute hrefs of its
// anchors. Each call clones the base collector so handlers never leak
// between fetches.
func (r *Colly) Render(ctx context.Context, rawURL string) (rag.Page, error) {
	collector := r.baseCollector.Clone()

	var (
		mu    sync.Mutex
		page  rag.Page
		links []string
		got   bool
		ferr  error
	)

	collector.OnResponse(func(resp *colly.Response) {
		mu.Lock()
		defer mu.Unlock()
		page = rag.Page{
			URL:        rawURL,
			FinalURL:   resp.Request.URL.String(),
			StatusCode: resp.StatusCode,
			HTML:       string(resp.Body),
		}
		got = true
	})

	collector.OnHTML("a[href]", func(e *colly.HTMLElement) {
		abs := e.Request.AbsoluteURL(e.Attr("href"))
		if abs == "" {
			return
		}
		mu.Lock()
		links = append(links, abs)
		mu.Unlock()
	})

	collector.OnError(func(_ *colly.Response, err error) {
		mu.Lock()
		defer mu.Unlock()
		if ferr == nil {
			if err == nil {
				err = errors.New("unknown colly error")
			}
			ferr = err
		}
	})

	if err := collector.Visit(rawURL); err != nil {
		return rag.Page{}, err
	}
	collector.Wait()

	if err := ctx.Err(); err != nil {
		return rag.Page{}, err
	}

	mu.Lock()
	defer mu.Unlock()
	if ferr != nil {
		return rag.Page{}, ferr
	}
	if !got {
		return rag.Page{}, errors.New("fetch produced no response")
	}
	page.Links = links
	return page, nil
}
