// Package rag defines core types shared across subsystems.
package rag

import "time"

// JobState represents the lifecycle state of a crawl job.
type JobState string

// Job states reported via the status endpoint.
const (
	JobStateRunning   JobState = "running"
	JobStateCompleted JobState = "completed"
	JobStateStopped   JobState = "stopped"
	JobStateFailed    JobState = "failed"
	JobStateScheduled JobState = "scheduled"
)

// Terminal reports whether the state admits no further transitions other
// than a scheduled re-run.
func (s JobState) Terminal() bool {
	switch s {
	case JobStateCompleted, JobStateStopped, JobStateFailed:
		return true
	default:
		return false
	}
}

// DistanceMetric selects how vector similarity is computed in the store.
type DistanceMetric string

// Supported distance metrics.
const (
	MetricCosine    DistanceMetric = "cosine"
	MetricEuclidean DistanceMetric = "euclidean"
	MetricDot       DistanceMetric = "dot"
)

// Valid reports whether the metric is one of the supported values.
func (m DistanceMetric) Valid() bool {
	switch m {
	case MetricCosine, MetricEuclidean, MetricDot:
		return true
	default:
		return false
	}
}

// JobConfig is the configuration snapshot taken when a crawl job starts.
// The snapshot is immutable for the lifetime of the job, including any
// scheduled re-runs.
type JobConfig struct {
	MaxPages           int           `json:"max_pages"`
	Concurrency        int           `json:"concurrency"`
	CrawlDelay         time.Duration `json:"crawl_delay"`
	UserAgent          string        `json:"user_agent"`
	RobotsOverride     bool          `json:"robots_override"`
	RescheduleInterval time.Duration `json:"reschedule_interval,omitempty"`
}

// JobStatus is the externally visible snapshot of a crawl job.
type JobStatus struct {
	Domain       string    `json:"domain"`
	State        JobState  `json:"state"`
	PagesFetched int       `json:"pages_fetched"`
	PagesSkipped int       `json:"pages_skipped"`
	Errors       int       `json:"errors"`
	StartedAt    time.Time `json:"started_at"`
}

// PageRecord is the transient result of one rendered fetch. It is consumed
// by the content processor and not persisted beyond chunk derivation.
type PageRecord struct {
	URL        string
	FinalURL   string
	StatusCode int
	Title      string
	Text       string
	Links      []string
	FetchedAt  time.Time
}

// Chunk is a bounded span of extracted page text, the unit of embedding
// and retrieval. Seq is the chunk's position within its source page.
type Chunk struct {
	SourceURL string
	Title     string
	Text      string
	Seq       int
}

// ChunkPayload travels with the stored vector and is returned verbatim
// by similarity queries.
type ChunkPayload struct {
	Text        string `json:"text"`
	URL         string `json:"url"`
	Title       string `json:"title,omitempty"`
	Domain      string `json:"domain"`
	Seq         int    `json:"seq"`
	ContentHash string `json:"content_hash,omitempty"`
}

// StoredVector is one embedded chunk ready for upsert. ID must be stable
// for a given (domain, source URL, seq) so re-crawls overwrite in place.
type StoredVector struct {
	ID      string
	Vector  []float32
	Payload ChunkPayload
}

// Match is one similarity hit, ordered best-first.
type Match struct {
	Text  string  `json:"text"`
	URL   string  `json:"url"`
	Title string  `json:"title,omitempty"`
	Seq   int     `json:"seq"`
	Score float32 `json:"score"`
}

// QueryResult is the response of the query pipeline. Answer is empty
// when LLM augmentation is disabled.
type QueryResult struct {
	Matches []Match `json:"matches"`
	Answer  string  `json:"answer,omitempty"`
}

// Page is the renderer's view of one fetched document.
type Page struct {
	URL        string
	FinalURL   string
	StatusCode int
	HTML       string
	Links      []string
}
