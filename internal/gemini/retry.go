package gemini

import (
	"context"
	"crypto/rand"
	"errors"
	"math"
	"math/big"
	"net"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/ragsearch-crawler/internal/rag"
)

// RetryingEmbedder wraps an embedder with jittered exponential backoff
// for transient API failures. Fetching pages is never retried, but an
// embedding call is a side-effect-free request against the model API
// and a single flaky call should not count against the ingest failure
// threshold.
type RetryingEmbedder struct {
	inner       rag.Embedder
	maxAttempts int
	baseDelay   time.Duration
	maxDelay    time.Duration
	logger      *zap.Logger
}

var _ rag.Embedder = (*RetryingEmbedder)(nil)

// WithRetries wraps inner with the default retry policy.
func WithRetries(inner rag.Embedder, logger *zap.Logger) *RetryingEmbedder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RetryingEmbedder{
		inner:       inner,
		maxAttempts: 3,
		baseDelay:   250 * time.Millisecond,
		maxDelay:    5 * time.Second,
		logger:      logger,
	}
}

// Embed calls the inner embedder, retrying transient failures. Context
// cancellation is never retried.
func (r *RetryingEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	var lastErr error
	for attempt := 0; ; attempt++ {
		vec, err := r.inner.Embed(ctx, text)
		if err == nil {
			return vec, nil
		}
		lastErr = err
		if !r.shouldRetry(err, attempt) {
			return nil, err
		}
		delay := r.backoff(attempt)
		r.logger.Debug("retrying embed",
			zap.Int("attempt", attempt+1),
			zap.Duration("backoff", delay),
			zap.Error(err),
		)
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, lastErr
		case <-timer.C:
		}
	}
}

// Dimensions returns the inner embedder's vector size.
func (r *RetryingEmbedder) Dimensions() int { return r.inner.Dimensions() }

func (r *RetryingEmbedder) shouldRetry(err error, attempt int) bool {
	if attempt >= r.maxAttempts-1 {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return netErr.Timeout()
	}
	return true
}

func (r *RetryingEmbedder) backoff(attempt int) time.Duration {
	delay := float64(r.baseDelay) * math.Pow(2, float64(attempt))
	if delay > float64(r.maxDelay) {
		delay = float64(r.maxDelay)
	}
	return time.Duration(delay/2) + randomJitter(time.Duration(delay)/2)
}

func randomJitter(limit time.Duration) time.Duration {
	if limit <= 0 {
		return 0
	}
	n, err := rand.Int(rand.Reader, big.NewInt(int64(limit)))
	if err != nil {
		return limit / 2
	}
	return time.Duration(n.Int64())
}
