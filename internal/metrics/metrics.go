// Package metrics registers Prometheus collectors for the crawl and
// retrieval pipelines.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// PagesFetched counts pages successfully rendered, labeled by domain.
	PagesFetched = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ragcrawler_pages_fetched_total",
		Help: "The total number of pages successfully fetched and rendered.",
	}, []string{"domain"})

	// PagesSkipped counts pages skipped before fetch, labeled by reason
	// (robots, duplicate, cap, scope).
	PagesSkipped = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ragcrawler_pages_skipped_total",
		Help: "The total number of candidate pages skipped without a fetch.",
	}, []string{"domain", "reason"})

	// FetchErrors counts fetch or render failures.
	FetchErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ragcrawler_fetch_errors_total",
		Help: "The total number of failed page fetches.",
	}, []string{"domain"})

	// ChunksUpserted counts chunks embedded and written to the vector store.
	ChunksUpserted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ragcrawler_chunks_upserted_total",
		Help: "The total number of chunks embedded and upserted.",
	}, []string{"domain"})

	// SinkErrors counts embedding or store failures during ingest.
	SinkErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ragcrawler_sink_errors_total",
		Help: "The total number of embed or upsert failures during ingest.",
	}, []string{"domain", "stage"})

	// ActiveWorkers gauges live crawl workers per domain.
	ActiveWorkers = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "ragcrawler_active_workers",
		Help: "The number of crawl workers currently running.",
	}, []string{"domain"})

	// QueryDuration observes end-to-end query pipeline latency.
	QueryDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "ragcrawler_query_duration_seconds",
		Help:    "End-to-end latency of retrieval queries.",
		Buckets: prometheus.DefBuckets,
	})

	// CrawlDelayWait observes how long workers waited on the shared
	// crawl-delay limiter before each fetch.
	CrawlDelayWait = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "ragcrawler_crawl_delay_wait_seconds",
		Help:    "Time spent waiting on the per-job crawl-delay limiter.",
		Buckets: []float64{0.01, 0.1, 0.5, 1, 2, 5, 10, 30},
	})
)

// Handler exposes the default Prometheus registry over HTTP.
func Handler() http.Handler {
	return promhttp.Handler()
}
