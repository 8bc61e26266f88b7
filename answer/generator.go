package answer

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/poiesic/docqa/ai"
	"github.com/poiesic/docqa/core"
)

// Defaults for answer generation.
const (
	DefaultMaxTokens   = 500
	DefaultTemperature = 0.7
	DefaultMinLength   = 10
)

// DefaultStopSequences end a completion before the model starts a new turn.
var DefaultStopSequences = []string{"\n\n", "Human:", "Question:"}

// Generator turns prompts into answers using an ai.Generator backend.
type Generator struct {
	backend   ai.Generator
	options   ai.GenerateOptions
	minLength int
	logger    *slog.Logger
}

// Option configures a Generator.
type Option func(*Generator)

// WithMaxTokens sets the completion token budget.
func WithMaxTokens(n int) Option {
	return func(g *Generator) {
		g.options.MaxTokens = n
	}
}

// WithTemperature sets the sampling temperature.
func WithTemperature(t float64) Option {
	return func(g *Generator) {
		g.options.Temperature = t
	}
}

// WithStopSequences replaces the stop sequences.
func WithStopSequences(stop ...string) Option {
	return func(g *Generator) {
		g.options.Stop = stop
	}
}

// WithMinLength sets the shortest trimmed completion accepted as a result.
func WithMinLength(n int) Option {
	return func(g *Generator) {
		g.minLength = n
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(g *Generator) {
		g.logger = logger
	}
}

// NewGenerator wraps backend with the default generation options.
func NewGenerator(backend ai.Generator, opts ...Option) *Generator {
	g := &Generator{
		backend: backend,
		options: ai.GenerateOptions{
			MaxTokens:   DefaultMaxTokens,
			Temperature: DefaultTemperature,
			Stop:        slices.Clone(DefaultStopSequences),
		},
		minLength: DefaultMinLength,
		logger:    slog.Default().With("component", "answer-generator"),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Generate completes prompt with the configured options.
func (g *Generator) Generate(ctx context.Context, prompt string) (string, error) {
	return g.GenerateWith(ctx, prompt, g.options)
}

// GenerateWith completes prompt with explicit options. The result is trimmed;
// completions shorter than the minimum length fail with ai.ErrDegenerateOutput.
func (g *Generator) GenerateWith(ctx context.Context, prompt string, opts ai.GenerateOptions) (string, error) {
	raw, err := g.backend.Generate(ctx, prompt, opts)
	if err != nil {
		g.logger.Warn("generation failed", "err", err)
		return "", core.WrapStage(core.ErrGeneration, err)
	}

	text := strings.TrimSpace(raw)
	if len(text) < g.minLength {
		g.logger.Warn("generated response too short", "length", len(text), "min", g.minLength)
		return "", fmt.Errorf("%w: %d characters", ai.ErrDegenerateOutput, len(text))
	}
	g.logger.Debug("generated response", "length", len(text))
	return text, nil
}

// Health reports whether the backend answers a minimal completion.
func (g *Generator) Health(ctx context.Context) bool {
	if err := g.backend.Ping(ctx); err != nil {
		g.logger.Error("generation health check failed", "err", err)
		return false
	}
	return true
}
