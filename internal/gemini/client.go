// Package gemini implements embedding and answer generation backed by
// the Gemini API.
package gemini

import (
	"context"
	"fmt"

	"google.golang.org/genai"
)

// NewClient dials the Gemini API. An empty apiKey falls back to the
// GEMINI_API_KEY environment variable handled by the SDK.
func NewClient(ctx context.Context, apiKey string) (*genai.Client, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	return client, nil
}
