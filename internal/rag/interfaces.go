package rag

import (
	"context"
	"time"
)

// Renderer fetches and executes a page, returning the final DOM and the
// outbound links discovered in it.
type Renderer interface {
	Render(ctx context.Context, url string) (Page, error)
}

// Embedder turns text into a fixed-dimensionality vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	// Dimensions returns the vector size produced by Embed. The store's
	// configured vector size must match it exactly.
	Dimensions() int
}

// VectorStore persists embedded chunks and serves nearest-neighbor queries,
// scoped by collection name.
type VectorStore interface {
	Upsert(ctx context.Context, collection string, v StoredVector) error
	Query(ctx context.Context, collection string, vector []float32, k int) ([]Match, error)
	Ping(ctx context.Context) error
	Close()
}

// Generator produces a synthesized answer from a prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// BlobStore writes raw artifacts and returns a URI.
type BlobStore interface {
	PutObject(ctx context.Context, path string, contentType string, data []byte) (string, error)
}

// Publisher pushes ingest events to Pub/Sub (or similar).
type Publisher interface {
	Publish(ctx context.Context, topic string, payload any) (string, error)
}

// Clock returns the current time (useful for testing).
type Clock interface {
	Now() time.Time
}
