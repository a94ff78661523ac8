package gemini

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"github.com/JakeFAU/ragsearch-crawler/internal/rag"
)

// Generator synthesizes answers with a Gemini chat model.
type Generator struct {
	client *genai.Client
	model  string
}

var _ rag.Generator = (*Generator)(nil)

// NewGenerator builds a Generator for the given model.
func NewGenerator(client *genai.Client, model string) (*Generator, error) {
	if client == nil {
		return nil, fmt.Errorf("genai client is required")
	}
	if model == "" {
		return nil, fmt.Errorf("generation model is required")
	}
	return &Generator{client: client, model: model}, nil
}

// Generate returns the model's answer for the prompt.
func (g *Generator) Generate(ctx context.Context, prompt string) (string, error) {
	result, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), nil)
	if err != nil {
		return "", fmt.Errorf("generate content: %w", err)
	}
	answer := strings.TrimSpace(result.Text())
	if answer == "" {
		return "", fmt.Errorf("generation response is empty")
	}
	return answer, nil
}

// BuildPrompt assembles the grounded question for answer generation.
// Retrieved chunks become the context block, separated by blank lines.
func BuildPrompt(chunks []string, question string) string {
	var b strings.Builder
	b.WriteString("Context: ")
	b.WriteString(strings.Join(chunks, "\n\n"))
	b.WriteString("\n\nQuestion: ")
	b.WriteString(question)
	b.WriteString("\nAnswer:")
	return b.String()
}
