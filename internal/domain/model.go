package domain

import "context"

// GenerationConfig controls a single model call.
type GenerationConfig struct {
	MaxTokens   int
	Temperature float64
}

// Generation is the outcome of a single model call.
type Generation struct {
	Text   string
	Tokens int
}

// Invoker issues generation calls against a language model.
type Invoker interface {
	Generate(ctx context.Context, prompt string, cfg GenerationConfig) (Generation, error)
}

// EmbeddingResult holds a vector and the tokens spent producing it.
type EmbeddingResult struct {
	Vector []float32
	Tokens int
}

// Embedder vectorizes text. An empty model selects the configured default.
type Embedder interface {
	Embed(ctx context.Context, text, model string) (EmbeddingResult, error)
}

// HealthChecker is implemented by collaborators that can verify availability.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}
