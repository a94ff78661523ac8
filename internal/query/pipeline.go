// Package query implements the retrieval pipeline: embed the question,
// search the domain's collection, optionally synthesize an answer.
package query

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/ragsearch-crawler/internal/gemini"
	"github.com/JakeFAU/ragsearch-crawler/internal/metrics"
	"github.com/JakeFAU/ragsearch-crawler/internal/rag"
)

// Pipeline answers questions against a crawled domain.
type Pipeline struct {
	embedder  rag.Embedder
	store     rag.VectorStore
	generator rag.Generator // nil when LLM augmentation is disabled
	prefix    string
	topK      int
	logger    *zap.Logger
}

// New builds a Pipeline. generator may be nil, in which case results
// carry matches only.
func New(embedder rag.Embedder, store rag.VectorStore, generator rag.Generator, prefix string, topK int, logger *zap.Logger) (*Pipeline, error) {
	if embedder == nil {
		return nil, fmt.Errorf("embedder is required")
	}
	if store == nil {
		return nil, fmt.Errorf("vector store is required")
	}
	if topK <= 0 {
		topK = 5
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{
		embedder:  embedder,
		store:     store,
		generator: generator,
		prefix:    prefix,
		topK:      topK,
		logger:    logger,
	}, nil
}

// Collection maps a crawl domain to its vector-store collection.
func (p *Pipeline) Collection(domain string) string {
	return p.prefix + domain
}

// Query runs the full retrieval pipeline for one question. A domain
// with no stored chunks yields an empty result, not an error.
func (p *Pipeline) Query(ctx context.Context, domain, question string) (rag.QueryResult, error) {
	start := time.Now()
	defer func() {
		metrics.QueryDuration.Observe(time.Since(start).Seconds())
	}()

	vec, err := p.embedder.Embed(ctx, question)
	if err != nil {
		return rag.QueryResult{}, fmt.Errorf("embed question: %w", err)
	}

	matches, err := p.store.Query(ctx, p.Collection(domain), vec, p.topK)
	if err != nil {
		return rag.QueryResult{}, fmt.Errorf("search collection: %w", err)
	}
	result := rag.QueryResult{Matches: matches}
	if len(matches) == 0 || p.generator == nil {
		return result, nil
	}

	chunks := make([]string, len(matches))
	for i, m := range matches {
		chunks[i] = m.Text
	}
	answer, err := p.generator.Generate(ctx, gemini.BuildPrompt(chunks, question))
	if err != nil {
		return rag.QueryResult{}, fmt.Errorf("generate answer: %w", err)
	}
	result.Answer = answer
	return result, nil
}
