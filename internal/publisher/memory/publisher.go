// Package memory provides a recording publisher for tests: events land
// in per-topic slices instead of Pub/Sub.
package memory

import (
	"context"
	"fmt"
	"sync"
)

// Publisher records published payloads keyed by topic.
type Publisher struct {
	mu     sync.Mutex
	nextID int
	topics map[string][]any
}

// New returns an empty recording Publisher.
func New() *Publisher {
	return &Publisher{topics: make(map[string][]any)}
}

// Publish records payload under topic and returns a synthetic message ID.
func (p *Publisher) Publish(_ context.Context, topic string, payload any) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.topics[topic] = append(p.topics[topic], payload)
	p.nextID++
	return fmt.Sprintf("mem-%d", p.nextID), nil
}

// Published returns the payloads recorded for topic, in publish order.
func (p *Publisher) Published(topic string) []any {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]any, len(p.topics[topic]))
	copy(out, p.topics[topic])
	return out
}

// Count returns the total number of recorded publishes across topics.
func (p *Publisher) Count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, msgs := range p.topics {
		n += len(msgs)
	}
	return n
}
