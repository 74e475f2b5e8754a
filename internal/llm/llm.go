// Package llm adapts the Gemini API to the text-generation and embedding
// ports used by the classifier, the renderer and the semantic cache.
package llm

import "context"

// GenerateOptions tunes a single generation request.
type GenerateOptions struct {
	Temperature float32
	MaxTokens   int32
}

// Generator is a single request/response text capability.
type Generator interface {
	Generate(ctx context.Context, prompt string, opts GenerateOptions) (string, error)
}

// Embedder turns text into a vector for similarity search.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}
