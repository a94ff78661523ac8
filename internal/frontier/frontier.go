// Package frontier implements the per-job URL work queue.
package frontier

import (
	"context"
	"sync"

	"github.com/JakeFAU/ragsearch-crawler/internal/rag"
)

// Frontier is a FIFO queue of URLs pending fetch, deduplicated over
// everything it has ever accepted. It is scoped to a single host:
// cross-domain links are rejected at Add time.
//
// Take blocks while the queue is empty but fetches are still in flight,
// because any in-flight page may discover new links. Once the queue is
// empty and nothing is in flight, the crawl has drained and Take
// returns ok=false.
type Frontier struct {
	mu       sync.Mutex
	cond     *sync.Cond
	host     string
	pending  []string
	seen     map[string]struct{}
	inflight int
	closed   bool
}

// New creates a Frontier accepting only URLs on host.
func New(host string) *Frontier {
	f := &Frontier{
		host: host,
		seen: make(map[string]struct{}),
	}
	f.cond = sync.NewCond(&f.mu)
	return f
}

// Add enqueues a URL if it is in scope and has not been seen before.
// It reports whether the URL was accepted. Unparseable and off-host
// URLs are silently rejected.
func (f *Frontier) Add(rawURL string) bool {
	norm, err := rag.NormalizeURL(rawURL)
	if err != nil {
		return false
	}
	if !rag.SameHost(norm, f.host) {
		return false
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return false
	}
	if _, dup := f.seen[norm]; dup {
		return false
	}
	f.seen[norm] = struct{}{}
	f.pending = append(f.pending, norm)
	f.cond.Signal()
	return true
}

// Take removes the next URL in FIFO order, blocking until one is
// available. It returns ok=false when the frontier is closed, the
// context is cancelled, or the crawl has drained. A successful Take
// marks the URL in flight; the caller must pair it with Done.
func (f *Frontier) Take(ctx context.Context) (string, bool) {
	// Wake blocked takers when the caller's context ends.
	stop := context.AfterFunc(ctx, func() {
		f.mu.Lock()
		f.cond.Broadcast()
		f.mu.Unlock()
	})
	defer stop()

	f.mu.Lock()
	defer f.mu.Unlock()
	for {
		if f.closed || ctx.Err() != nil {
			return "", false
		}
		if len(f.pending) > 0 {
			u := f.pending[0]
			f.pending = f.pending[1:]
			f.inflight++
			return u, true
		}
		if f.inflight == 0 {
			return "", false
		}
		f.cond.Wait()
	}
}

// Done marks one taken URL as finished. When the last in-flight fetch
// completes against an empty queue, all blocked takers are released.
func (f *Frontier) Done() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.inflight > 0 {
		f.inflight--
	}
	if f.inflight == 0 && len(f.pending) == 0 {
		f.cond.Broadcast()
		return
	}
	f.cond.Signal()
}

// Close rejects further Adds and releases all blocked takers. It is
// used when a job is stopped or its page cap is reached.
func (f *Frontier) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	f.cond.Broadcast()
}

// Seen reports how many distinct in-scope URLs have been accepted.
func (f *Frontier) Seen() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.seen)
}
