// Package memory provides an in-memory vector store for development
// and tests.
package memory

import (
	"context"
	"math"
	"sort"
	"sync"

	"github.com/JakeFAU/ragsearch-crawler/internal/rag"
)

// VectorStore keeps embedded chunks in process memory and answers
// similarity queries by brute-force scan. Contents do not survive a
// restart.
type VectorStore struct {
	mu     sync.RWMutex
	metric rag.DistanceMetric
	// collection -> id -> vector
	data map[string]map[string]rag.StoredVector
}

// NewVectorStore creates an empty store using the given metric.
func NewVectorStore(metric rag.DistanceMetric) *VectorStore {
	if !metric.Valid() {
		metric = rag.MetricCosine
	}
	return &VectorStore{
		metric: metric,
		data:   make(map[string]map[string]rag.StoredVector),
	}
}

// Upsert stores v under its ID, replacing any previous version.
func (s *VectorStore) Upsert(_ context.Context, collection string, v rag.StoredVector) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	coll, ok := s.data[collection]
	if !ok {
		coll = make(map[string]rag.StoredVector)
		s.data[collection] = coll
	}
	vec := make([]float32, len(v.Vector))
	copy(vec, v.Vector)
	v.Vector = vec
	coll[v.ID] = v
	return nil
}

// Query returns the k best matches in the collection, best first. An
// unknown collection yields an empty result, not an error.
func (s *VectorStore) Query(_ context.Context, collection string, vector []float32, k int) ([]rag.Match, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	coll := s.data[collection]
	matches := make([]rag.Match, 0, len(coll))
	for _, v := range coll {
		matches = append(matches, rag.Match{
			Text:  v.Payload.Text,
			URL:   v.Payload.URL,
			Title: v.Payload.Title,
			Seq:   v.Payload.Seq,
			Score: score(s.metric, vector, v.Vector),
		})
	}
	sort.Slice(matches, func(i, j int) bool { return matches[i].Score > matches[j].Score })
	if k > 0 && len(matches) > k {
		matches = matches[:k]
	}
	return matches, nil
}

// Ping implements rag.VectorStore and never fails.
func (s *VectorStore) Ping(context.Context) error { return nil }

// Close implements rag.VectorStore and is a no-op.
func (s *VectorStore) Close() {}

// Count reports the number of vectors held for a collection.
func (s *VectorStore) Count(collection string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data[collection])
}

func score(metric rag.DistanceMetric, a, b []float32) float32 {
	switch metric {
	case rag.MetricEuclidean:
		var sum float64
		for i := range minLen(a, b) {
			d := float64(a[i] - b[i])
			sum += d * d
		}
		return float32(-math.Sqrt(sum))
	case rag.MetricDot:
		return dot(a, b)
	default: // cosine
		na := norm(a)
		nb := norm(b)
		if na == 0 || nb == 0 {
			return 0
		}
		return dot(a, b) / (na * nb)
	}
}

func dot(a, b []float32) float32 {
	var sum float32
	for i := range minLen(a, b) {
		sum += a[i] * b[i]
	}
	return sum
}

func norm(a []float32) float32 {
	var sum float64
	for _, x := range a {
		sum += float64(x) * float64(x)
	}
	return float32(math.Sqrt(sum))
}

func minLen(a, b []float32) int {
	if len(a) < len(b) {
		return len(a)
	}
	return len(b)
}
