// Package robots evaluates robots.txt directives for crawl candidates.
package robots

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/temoto/robotstxt"
	"go.uber.org/zap"
)

// Policy decides whether a URL may be fetched.
type Policy interface {
	Allowed(ctx context.Context, rawURL string) bool
}

// Evaluator fetches and caches robots.txt per host and tests paths
// against the group matching the crawler's user agent.
type Evaluator struct {
	client    *http.Client
	cache     sync.Map
	userAgent string
	logger    *zap.Logger
}

// New builds a Policy. When override is set, robots directives are
// bypassed entirely and every URL is allowed.
func New(override bool, userAgent string, logger *zap.Logger) Policy {
	if override {
		return allowAll{}
	}
	return &Evaluator{
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
		userAgent: userAgent,
		logger:    logger,
	}
}

// Allowed implements Policy. A robots.txt that cannot be fetched or
// parsed fails open: the crawl proceeds.
func (e *Evaluator) Allowed(ctx context.Context, rawURL string) bool {
	if e == nil {
		return true
	}
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	data, err := e.load(ctx, parsed)
	if err != nil {
		e.logger.Warn("robots fetch failed; allowing access", zap.String("host", parsed.Host), zap.Error(err))
		return true
	}
	group := data.FindGroup(e.userAgent)
	if group == nil {
		return true
	}
	return group.Test(parsed.Path)
}

func (e *Evaluator) load(ctx context.Context, parsed *url.URL) (*robotstxt.RobotsData, error) {
	hostKey := strings.ToLower(parsed.Host)
	if data, ok := e.cache.Load(hostKey); ok {
		cached, assertOK := data.(*robotstxt.RobotsData)
		if !assertOK {
			return nil, fmt.Errorf("robots cache type mismatch: %T", data)
		}
		return cached, nil
	}

	robotsURL := *parsed
	robotsURL.Path = path.Join("/", "robots.txt")
	robotsURL.RawQuery = ""
	robotsURL.Fragment = ""
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, robotsURL.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("new robots request: %w", err)
	}
	req.Header.Set("User-Agent", e.userAgent)
	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch robots: %w", err)
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			e.logger.Debug("Failed to close robots response body", zap.Error(cerr))
		}
	}()
	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read robots body: %w", err)
	}
	data, err := robotstxt.FromStatusAndBytes(resp.StatusCode, body)
	if err != nil {
		return nil, fmt.Errorf("parse robots: %w", err)
	}
	e.cache.Store(hostKey, data)
	return data, nil
}

type allowAll struct{}

func (allowAll) Allowed(context.Context, string) bool { return true }
