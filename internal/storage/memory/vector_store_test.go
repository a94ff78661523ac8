package memory

import (
	"context"
	"testing"

	"github.com/JakeFAU/ragsearch-crawler/internal/rag"
)

func stored(id string, vec []float32, text string) rag.StoredVector {
	return rag.StoredVector{
		ID:     id,
		Vector: vec,
		Payload: rag.ChunkPayload{
			Text: text,
			URL:  "https://example.com/" + id,
		},
	}
}

func TestQueryReturnsNearest(t *testing.T) {
	ctx := context.Background()
	s := NewVectorStore(rag.MetricCosine)

	if err := s.Upsert(ctx, "kb_example", stored("a", []float32{1, 0, 0}, "alpha")); err != nil {
		t.Fatal(err)
	}
	if err := s.Upsert(ctx, "kb_example", stored("b", []float32{0, 1, 0}, "beta")); err != nil {
		t.Fatal(err)
	}
	if err := s.Upsert(ctx, "kb_example", stored("c", []float32{0.9, 0.1, 0}, "gamma")); err != nil {
		t.Fatal(err)
	}

	matches, err := s.Query(ctx, "kb_example", []float32{1, 0, 0}, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(matches) != 2 {
		t.Fatalf("got %d matches, want 2", len(matches))
	}
	if matches[0].Text != "alpha" {
		t.Fatalf("best match = %q, want alpha", matches[0].Text)
	}
	if matches[0].Score < matches[1].Score {
		t.Fatal("matches should be ordered best-first")
	}
}

func TestUpsertReplacesByID(t *testing.T) {
	ctx := context.Background()
	s := NewVectorStore(rag.MetricCosine)

	if err := s.Upsert(ctx, "kb_example", stored("a", []float32{1, 0}, "old text")); err != nil {
		t.Fatal(err)
	}
	if err := s.Upsert(ctx, "kb_example", stored("a", []float32{1, 0}, "new text")); err != nil {
		t.Fatal(err)
	}

	if got := s.Count("kb_example"); got != 1 {
		t.Fatalf("Count = %d, want 1", got)
	}
	matches, err := s.Query(ctx, "kb_example", []float32{1, 0}, 1)
	if err != nil {
		t.Fatal(err)
	}
	if matches[0].Text != "new text" {
		t.Fatalf("Text = %q, want new text", matches[0].Text)
	}
}

func TestQueryUnknownCollection(t *testing.T) {
	s := NewVectorStore(rag.MetricCosine)
	matches, err := s.Query(context.Background(), "kb_missing", []float32{1}, 5)
	if err != nil {
		t.Fatal(err)
	}
	if len(matches) != 0 {
		t.Fatalf("got %d matches, want 0", len(matches))
	}
}

func TestCollectionsAreIsolated(t *testing.T) {
	ctx := context.Background()
	s := NewVectorStore(rag.MetricCosine)

	if err := s.Upsert(ctx, "kb_one", stored("a", []float32{1, 0}, "one")); err != nil {
		t.Fatal(err)
	}
	matches, err := s.Query(ctx, "kb_two", []float32{1, 0}, 5)
	if err != nil {
		t.Fatal(err)
	}
	if len(matches) != 0 {
		t.Fatal("collections must not leak into each other")
	}
}

func TestEuclideanMetric(t *testing.T) {
	ctx := context.Background()
	s := NewVectorStore(rag.MetricEuclidean)

	if err := s.Upsert(ctx, "kb", stored("near", []float32{1, 1}, "near")); err != nil {
		t.Fatal(err)
	}
	if err := s.Upsert(ctx, "kb", stored("far", []float32{10, 10}, "far")); err != nil {
		t.Fatal(err)
	}

	matches, err := s.Query(ctx, "kb", []float32{1, 1}, 2)
	if err != nil {
		t.Fatal(err)
	}
	if matches[0].Text != "near" {
		t.Fatalf("best match = %q, want near", matches[0].Text)
	}
}
