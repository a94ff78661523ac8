// Package ingest persists rendered pages into the vector store.
package ingest

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/JakeFAU/ragsearch-crawler/internal/content"
	"github.com/JakeFAU/ragsearch-crawler/internal/metrics"
	"github.com/JakeFAU/ragsearch-crawler/internal/rag"
)

// ErrUnavailable signals that the embedding or storage capability has
// failed repeatedly and the crawl should stop rather than keep
// burning fetches.
var ErrUnavailable = errors.New("ingest capability unavailable")

// DefaultFailureThreshold is the number of consecutive sink failures
// tolerated before ErrUnavailable is raised.
const DefaultFailureThreshold = 5

// Event is the notification published to the ingest topic after a
// page's raw HTML has been archived.
type Event struct {
	Domain     string    `json:"domain"`
	URL        string    `json:"url"`
	BlobURI    string    `json:"blob_uri"`
	StatusCode int       `json:"status_code"`
	FetchedAt  time.Time `json:"fetched_at"`
}

// Options configures a Sink.
type Options struct {
	Domain     string
	Collection string
	// Blob, Publisher and Topic are optional; when set, raw HTML is
	// archived and an ingest event published per page.
	Blob             rag.BlobStore
	BlobPrefix       string
	Publisher        rag.Publisher
	Topic            string
	FailureThreshold int
}

// Sink turns one rendered page into embedded chunks and upserts them.
// A Sink is scoped to a single crawl job.
type Sink struct {
	embedder rag.Embedder
	store    rag.VectorStore
	chunker  *content.Chunker
	opts     Options
	logger   *zap.Logger

	consecutiveFailures atomic.Int64
}

// NewSink builds a Sink writing into collection on behalf of domain.
func NewSink(embedder rag.Embedder, store rag.VectorStore, chunker *content.Chunker, opts Options, logger *zap.Logger) (*Sink, error) {
	if embedder == nil {
		return nil, fmt.Errorf("embedder is required")
	}
	if store == nil {
		return nil, fmt.Errorf("vector store is required")
	}
	if chunker == nil {
		return nil, fmt.Errorf("chunker is required")
	}
	if opts.Domain == "" || opts.Collection == "" {
		return nil, fmt.Errorf("domain and collection are required")
	}
	if opts.FailureThreshold <= 0 {
		opts.FailureThreshold = DefaultFailureThreshold
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Sink{
		embedder: embedder,
		store:    store,
		chunker:  chunker,
		opts:     opts,
		logger:   logger,
	}, nil
}

// IngestPage chunks, embeds and upserts one page. Chunks are processed
// in order so a failure never leaves later chunks stored ahead of
// earlier ones. It returns the number of chunks written.
func (s *Sink) IngestPage(ctx context.Context, page rag.PageRecord) (int, error) {
	chunks := s.chunker.Split(page.URL, page.Title, page.Text)
	written := 0
	for _, ch := range chunks {
		vec, err := s.embedder.Embed(ctx, ch.Text)
		if err != nil {
			metrics.SinkErrors.WithLabelValues(s.opts.Domain, "embed").Inc()
			return written, s.fail(fmt.Errorf("embed chunk %d of %s: %w", ch.Seq, page.URL, err))
		}
		sv := rag.StoredVector{
			ID:     VectorID(s.opts.Domain, ch.SourceURL, ch.Seq),
			Vector: vec,
			Payload: rag.ChunkPayload{
				Text:        ch.Text,
				URL:         ch.SourceURL,
				Title:       ch.Title,
				Domain:      s.opts.Domain,
				Seq:         ch.Seq,
				ContentHash: contentHash(ch.Text),
			},
		}
		if err := s.store.Upsert(ctx, s.opts.Collection, sv); err != nil {
			metrics.SinkErrors.WithLabelValues(s.opts.Domain, "store").Inc()
			return written, s.fail(fmt.Errorf("upsert chunk %d of %s: %w", ch.Seq, page.URL, err))
		}
		written++
		metrics.ChunksUpserted.WithLabelValues(s.opts.Domain).Inc()
	}
	s.consecutiveFailures.Store(0)
	return written, nil
}

// ArchivePage writes the raw HTML to the blob store and notifies the
// ingest topic. Both steps are best-effort: failures are logged, never
// fatal to the crawl.
func (s *Sink) ArchivePage(ctx context.Context, page rag.PageRecord, html string) {
	if s.opts.Blob == nil {
		return
	}
	path := fmt.Sprintf("%s/%s/%s.html", s.opts.BlobPrefix, s.opts.Domain, contentHash(page.URL))
	uri, err := s.opts.Blob.PutObject(ctx, path, "text/html", []byte(html))
	if err != nil {
		s.logger.Warn("archive page failed", zap.String("url", page.URL), zap.Error(err))
		return
	}
	if s.opts.Publisher == nil {
		return
	}
	event := Event{
		Domain:     s.opts.Domain,
		URL:        page.URL,
		BlobURI:    uri,
		StatusCode: page.StatusCode,
		FetchedAt:  page.FetchedAt,
	}
	if _, err := s.opts.Publisher.Publish(ctx, s.opts.Topic, event); err != nil {
		s.logger.Warn("publish ingest event failed", zap.String("url", page.URL), zap.Error(err))
	}
}

func (s *Sink) fail(err error) error {
	n := s.consecutiveFailures.Add(1)
	if n >= int64(s.opts.FailureThreshold) {
		return fmt.Errorf("%w after %d consecutive failures: %v", ErrUnavailable, n, err)
	}
	return err
}

// VectorID derives a stable UUID for a chunk so re-crawling the same
// page overwrites its previous vectors instead of duplicating them.
func VectorID(domain, sourceURL string, seq int) string {
	name := fmt.Sprintf("%s|%s|%d", domain, sourceURL, seq)
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(name)).String()
}

func contentHash(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}
