package ai

import "context"

// Embedder generates vector embeddings from text for semantic similarity search.
// Implementations must be thread-safe for concurrent use.
type Embedder interface {
	// EmbedText generates a vector embedding for a single text string.
	// It is equivalent to EmbedTexts with a one-element slice.
	EmbedText(ctx context.Context, text string) ([]float32, error)

	// EmbedTexts generates vector embeddings for multiple text strings in a batch.
	// The returned slice contains embeddings in the same order as the input texts.
	// Returns an error if any embedding generation fails.
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
}

// GenerateOptions tunes a single completion request.
type GenerateOptions struct {
	MaxTokens   int
	Temperature float64
	Stop        []string
}

// Generator produces text completions from a prompt.
// Implementations must be thread-safe for concurrent use.
type Generator interface {
	// Generate returns the raw completion for prompt.
	// Timeouts, transport failures, non-success statuses and malformed bodies
	// are reported as distinct errors, all wrapping core.ErrGeneration.
	Generate(ctx context.Context, prompt string, opts GenerateOptions) (string, error)

	// Ping issues a minimal completion and reports whether the backend answered.
	Ping(ctx context.Context) error
}

// Provider aggregates AI services for convenient initialization and lifecycle management.
type Provider interface {
	// Embedder returns the text embedding service.
	Embedder() Embedder

	// Generator returns the text generation service.
	Generator() Generator

	// Close releases resources held by the provider and its services.
	// After Close is called, the provider and its services should not be used.
	Close() error
}
