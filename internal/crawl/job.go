// Package crawl orchestrates per-domain crawl jobs: a bounded worker
// pool draining a shared frontier under a single crawl-delay budget.
package crawl

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/JakeFAU/ragsearch-crawler/internal/content"
	"github.com/JakeFAU/ragsearch-crawler/internal/frontier"
	"github.com/JakeFAU/ragsearch-crawler/internal/ingest"
	"github.com/JakeFAU/ragsearch-crawler/internal/metrics"
	"github.com/JakeFAU/ragsearch-crawler/internal/rag"
	"github.com/JakeFAU/ragsearch-crawler/internal/robots"
)

// Job is one crawl of a domain. Its configuration snapshot is fixed at
// creation and reused unchanged by scheduled re-runs.
type Job struct {
	domain   string
	seed     string
	cfg      rag.JobConfig
	renderer rag.Renderer
	policy   robots.Policy
	sink     *ingest.Sink
	clock    rag.Clock
	logger   *zap.Logger

	// limiter paces fetches across all workers so concurrency never
	// multiplies request rate against the target host.
	limiter *rate.Limiter

	mu        sync.Mutex
	state     rag.JobState
	startedAt time.Time
	frontier  *frontier.Frontier
	cancel    context.CancelFunc
	rerun     *time.Timer
	stopped   bool

	reserved atomic.Int64
	fetched  atomic.Int64
	skipped  atomic.Int64
	errs     atomic.Int64
}

func newJob(domain, seed string, cfg rag.JobConfig, renderer rag.Renderer, policy robots.Policy, sink *ingest.Sink, clock rag.Clock, logger *zap.Logger) *Job {
	limit := rate.Inf
	if cfg.CrawlDelay > 0 {
		limit = rate.Every(cfg.CrawlDelay)
	}
	return &Job{
		domain:   domain,
		seed:     seed,
		cfg:      cfg,
		renderer: renderer,
		policy:   policy,
		sink:     sink,
		clock:    clock,
		logger:   logger,
		limiter:  rate.NewLimiter(limit, 1),
		state:    rag.JobStateRunning,
	}
}

// start launches one crawl run in the background.
func (j *Job) start(ctx context.Context) {
	runCtx, cancel := context.WithCancel(ctx)
	f := frontier.New(j.domain)

	j.mu.Lock()
	j.state = rag.JobStateRunning
	j.startedAt = j.clock.Now()
	j.frontier = f
	j.cancel = cancel
	j.mu.Unlock()

	j.reserved.Store(0)
	j.fetched.Store(0)
	j.skipped.Store(0)
	j.errs.Store(0)

	f.Add(j.seed)
	go j.run(runCtx, cancel, f)
}

func (j *Job) run(ctx context.Context, cancel context.CancelFunc, f *frontier.Frontier) {
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)
	for range j.cfg.Concurrency {
		g.Go(func() error { return j.worker(gctx, f) })
	}
	j.finish(g.Wait())
}

func (j *Job) worker(ctx context.Context, f *frontier.Frontier) error {
	metrics.ActiveWorkers.WithLabelValues(j.domain).Inc()
	defer metrics.ActiveWorkers.WithLabelValues(j.domain).Dec()

	for {
		u, ok := f.Take(ctx)
		if !ok {
			return nil
		}
		err := j.process(ctx, f, u)
		f.Done()
		if err != nil {
			return err
		}
	}
}

func (j *Job) process(ctx context.Context, f *frontier.Frontier, u string) error {
	if !j.policy.Allowed(ctx, u) {
		j.skipped.Add(1)
		metrics.PagesSkipped.WithLabelValues(j.domain, "robots").Inc()
		return nil
	}

	// Reserve a fetch slot under the page cap before touching the
	// network. Once the cap is reached the frontier is closed and the
	// remaining queue is dropped.
	if j.reserved.Add(1) > int64(j.cfg.MaxPages) {
		metrics.PagesSkipped.WithLabelValues(j.domain, "cap").Inc()
		f.Close()
		return nil
	}

	waitStart := time.Now()
	if err := j.limiter.Wait(ctx); err != nil {
		return nil
	}
	metrics.CrawlDelayWait.Observe(time.Since(waitStart).Seconds())

	page, err := j.renderer.Render(ctx, u)
	if err != nil {
		j.errs.Add(1)
		metrics.FetchErrors.WithLabelValues(j.domain).Inc()
		j.logger.Warn("fetch failed", zap.String("url", u), zap.Error(err))
		return nil
	}

	extracted, err := content.Extract(page.HTML)
	if err != nil {
		j.errs.Add(1)
		j.logger.Warn("extract failed", zap.String("url", u), zap.Error(err))
		return nil
	}

	record := rag.PageRecord{
		URL:        u,
		FinalURL:   page.FinalURL,
		StatusCode: page.StatusCode,
		Title:      extracted.Title,
		Text:       extracted.Text,
		Links:      page.Links,
		FetchedAt:  j.clock.Now(),
	}
	if _, err := j.sink.IngestPage(ctx, record); err != nil {
		j.errs.Add(1)
		if errors.Is(err, ingest.ErrUnavailable) {
			return err
		}
		j.logger.Warn("ingest failed", zap.String("url", u), zap.Error(err))
	}
	j.sink.ArchivePage(ctx, record, page.HTML)

	j.fetched.Add(1)
	metrics.PagesFetched.WithLabelValues(j.domain).Inc()

	for _, link := range page.Links {
		f.Add(link)
	}
	return nil
}

// finish resolves the terminal state for the run that just ended. A
// crawl where every fetch errored is a failure: the knowledge base
// gained no content and something is wrong with the site or the
// network. An empty run with no errors (every page robots-disallowed)
// completed cleanly. A completed crawl with a reschedule interval
// parks in the scheduled state until its timer fires.
func (j *Job) finish(runErr error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	switch {
	case j.stopped:
		j.state = rag.JobStateStopped
	case runErr != nil:
		j.state = rag.JobStateFailed
	case j.fetched.Load() == 0 && j.errs.Load() > 0:
		j.state = rag.JobStateFailed
	default:
		j.state = rag.JobStateCompleted
	}

	j.logger.Info("crawl finished",
		zap.String("state", string(j.state)),
		zap.Int64("pages_fetched", j.fetched.Load()),
		zap.Int64("pages_skipped", j.skipped.Load()),
		zap.Int64("errors", j.errs.Load()),
		zap.Error(runErr),
	)

	if j.state == rag.JobStateCompleted && j.cfg.RescheduleInterval > 0 {
		j.state = rag.JobStateScheduled
		j.rerun = time.AfterFunc(j.cfg.RescheduleInterval, func() {
			j.mu.Lock()
			if j.stopped {
				j.mu.Unlock()
				return
			}
			j.mu.Unlock()
			j.start(context.Background())
		})
	}
}

// Stop cancels the running crawl, or the pending re-run for a
// scheduled job. It is idempotent.
func (j *Job) Stop() {
	j.mu.Lock()
	j.stopped = true
	if j.rerun != nil {
		j.rerun.Stop()
		j.rerun = nil
	}
	if j.state == rag.JobStateScheduled {
		j.state = rag.JobStateStopped
	}
	cancel := j.cancel
	f := j.frontier
	j.mu.Unlock()

	if f != nil {
		f.Close()
	}
	if cancel != nil {
		cancel()
	}
}

// Status returns a point-in-time snapshot of the job.
func (j *Job) Status() rag.JobStatus {
	j.mu.Lock()
	defer j.mu.Unlock()
	return rag.JobStatus{
		Domain:       j.domain,
		State:        j.state,
		PagesFetched: int(j.fetched.Load()),
		PagesSkipped: int(j.skipped.Load()),
		Errors:       int(j.errs.Load()),
		StartedAt:    j.startedAt,
	}
}
