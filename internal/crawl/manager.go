package crawl

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/ragsearch-crawler/internal/content"
	"github.com/JakeFAU/ragsearch-crawler/internal/ingest"
	"github.com/JakeFAU/ragsearch-crawler/internal/logging"
	"github.com/JakeFAU/ragsearch-crawler/internal/rag"
	"github.com/JakeFAU/ragsearch-crawler/internal/robots"
)

// Deps carries the capabilities crawl jobs are wired with.
type Deps struct {
	Renderer rag.Renderer
	Policy   robots.Policy
	Embedder rag.Embedder
	Store    rag.VectorStore
	Chunker  *content.Chunker
	Clock    rag.Clock

	// Optional archive and notification hooks.
	Blob       rag.BlobStore
	BlobPrefix string
	Publisher  rag.Publisher
	Topic      string

	CollectionPrefix string
	Logger           *zap.Logger
}

// Manager owns the crawl jobs of the service, keyed by domain. At most
// one live job exists per domain.
type Manager struct {
	base rag.JobConfig
	deps Deps

	mu   sync.Mutex
	jobs map[string]*Job
}

// NewManager builds a Manager using base as the configuration snapshot
// for every new job.
func NewManager(base rag.JobConfig, deps Deps) (*Manager, error) {
	if deps.Renderer == nil {
		return nil, fmt.Errorf("renderer is required")
	}
	if deps.Policy == nil {
		return nil, fmt.Errorf("robots policy is required")
	}
	if deps.Embedder == nil {
		return nil, fmt.Errorf("embedder is required")
	}
	if deps.Store == nil {
		return nil, fmt.Errorf("vector store is required")
	}
	if deps.Chunker == nil {
		return nil, fmt.Errorf("chunker is required")
	}
	if deps.Clock == nil {
		return nil, fmt.Errorf("clock is required")
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	return &Manager{
		base: base,
		deps: deps,
		jobs: make(map[string]*Job),
	}, nil
}

// Start begins crawling the domain of rawURL from that URL. A domain
// with a live (running or scheduled) job rejects the request with
// rag.ErrAlreadyRunning; a terminal job is replaced by the new one.
func (m *Manager) Start(ctx context.Context, rawURL string, reschedule time.Duration) (rag.JobStatus, error) {
	seed, err := rag.NormalizeURL(rawURL)
	if err != nil {
		return rag.JobStatus{}, fmt.Errorf("invalid seed url: %w", err)
	}
	domain, err := rag.Domain(seed)
	if err != nil {
		return rag.JobStatus{}, fmt.Errorf("invalid seed url: %w", err)
	}

	cfg := m.base
	cfg.RescheduleInterval = reschedule

	logger := logging.ForDomain(m.deps.Logger, domain)
	sink, err := ingest.NewSink(m.deps.Embedder, m.deps.Store, m.deps.Chunker, ingest.Options{
		Domain:     domain,
		Collection: m.deps.CollectionPrefix + domain,
		Blob:       m.deps.Blob,
		BlobPrefix: m.deps.BlobPrefix,
		Publisher:  m.deps.Publisher,
		Topic:      m.deps.Topic,
	}, logger)
	if err != nil {
		return rag.JobStatus{}, fmt.Errorf("build ingest sink: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.jobs[domain]; ok {
		if !existing.Status().State.Terminal() {
			return rag.JobStatus{}, rag.ErrAlreadyRunning
		}
	}

	job := newJob(domain, seed, cfg, m.deps.Renderer, m.deps.Policy, sink, m.deps.Clock, logger)
	m.jobs[domain] = job
	// The job outlives the request that started it.
	job.start(context.WithoutCancel(ctx))

	logger.Info("crawl started",
		zap.String("seed", seed),
		zap.Int("max_pages", cfg.MaxPages),
		zap.Int("concurrency", cfg.Concurrency),
		zap.Duration("crawl_delay", cfg.CrawlDelay),
		zap.Duration("reschedule_interval", cfg.RescheduleInterval),
	)
	return job.Status(), nil
}

// Stop halts the crawl for a domain. Stopping an unknown domain
// returns rag.ErrNotFound; stopping a finished job is a no-op.
func (m *Manager) Stop(domain string) error {
	m.mu.Lock()
	job, ok := m.jobs[domain]
	m.mu.Unlock()
	if !ok {
		return rag.ErrNotFound
	}
	job.Stop()
	return nil
}

// Status reports the current snapshot for one domain.
func (m *Manager) Status(domain string) (rag.JobStatus, error) {
	m.mu.Lock()
	job, ok := m.jobs[domain]
	m.mu.Unlock()
	if !ok {
		return rag.JobStatus{}, rag.ErrNotFound
	}
	return job.Status(), nil
}

// StatusAll reports snapshots for every known job, ordered by domain.
func (m *Manager) StatusAll() []rag.JobStatus {
	m.mu.Lock()
	statuses := make([]rag.JobStatus, 0, len(m.jobs))
	for _, job := range m.jobs {
		statuses = append(statuses, job.Status())
	}
	m.mu.Unlock()

	sort.Slice(statuses, func(i, j int) bool { return statuses[i].Domain < statuses[j].Domain })
	return statuses
}

// Shutdown stops every job. It is called on service shutdown.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	jobs := make([]*Job, 0, len(m.jobs))
	for _, job := range m.jobs {
		jobs = append(jobs, job)
	}
	m.mu.Unlock()

	for _, job := range jobs {
		job.Stop()
	}
}
