package gemini

import (
	"context"
	"fmt"

	"google.golang.org/genai"

	"github.com/JakeFAU/ragsearch-crawler/internal/rag"
)

// Embedder produces document embeddings via the Gemini embedding
// models.
type Embedder struct {
	client *genai.Client
	model  string
	dims   int
}

var _ rag.Embedder = (*Embedder)(nil)

// NewEmbedder builds an Embedder for the given model and output
// dimensionality.
func NewEmbedder(client *genai.Client, model string, dims int) (*Embedder, error) {
	if client == nil {
		return nil, fmt.Errorf("genai client is required")
	}
	if model == "" {
		return nil, fmt.Errorf("embed model is required")
	}
	if dims <= 0 {
		return nil, fmt.Errorf("embedding dimensions must be > 0")
	}
	return &Embedder{client: client, model: model, dims: dims}, nil
}

// Embed returns the embedding vector for text.
func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	contents := []*genai.Content{
		genai.NewContentFromText(text, genai.RoleUser),
	}
	resp, err := e.client.Models.EmbedContent(ctx, e.model, contents, &genai.EmbedContentConfig{
		OutputDimensionality: genai.Ptr(int32(e.dims)),
		TaskType:             "RETRIEVAL_DOCUMENT",
	})
	if err != nil {
		return nil, fmt.Errorf("embed content: %w", err)
	}
	if len(resp.Embeddings) == 0 || len(resp.Embeddings[0].Values) == 0 {
		return nil, fmt.Errorf("embedding response is empty")
	}
	values := resp.Embeddings[0].Values
	if len(values) != e.dims {
		return nil, fmt.Errorf("embedding has %d dimensions, expected %d", len(values), e.dims)
	}
	return values, nil
}

// Dimensions returns the configured vector size.
func (e *Embedder) Dimensions() int { return e.dims }
