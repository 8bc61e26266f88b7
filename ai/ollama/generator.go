package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"

	"github.com/poiesic/docqa/ai"
	"github.com/poiesic/docqa/core"
)

// Health check parameters: the smallest completion that proves the model answers.
const (
	pingPrompt      = "Hello"
	pingMaxTokens   = 5
	pingTemperature = 0.1
)

// maxErrorBody bounds how much of a failed response body is kept in the error.
const maxErrorBody = 512

// Generator implements ai.Generator using Ollama's /api/generate endpoint.
// Requests are never retried; every failure is reported to the caller.
type Generator struct {
	url    string
	model  string
	client *http.Client
	logger *slog.Logger
}

var _ ai.Generator = (*Generator)(nil)

// GeneratorOption configures a Generator.
type GeneratorOption func(*Generator)

// WithHTTPClient replaces the HTTP client. The client's Timeout bounds each request.
func WithHTTPClient(client *http.Client) GeneratorOption {
	return func(g *Generator) {
		g.client = client
	}
}

// WithLogger sets the generator's logger.
func WithLogger(logger *slog.Logger) GeneratorOption {
	return func(g *Generator) {
		g.logger = logger
	}
}

// NewGenerator creates a generator posting to config.GenerationURL().
func NewGenerator(config *ai.Config, opts ...GeneratorOption) (*Generator, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	g := &Generator{
		url:    config.GenerationURL(),
		model:  config.GenerationModel,
		client: &http.Client{Timeout: config.GenerationTimeout},
		logger: slog.Default().With("component", "ollama-generator", "model", config.GenerationModel),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g, nil
}

type generateOptions struct {
	NumPredict  int      `json:"num_predict,omitempty"`
	Temperature float64  `json:"temperature"`
	Stop        []string `json:"stop,omitempty"`
}

type generateRequest struct {
	Model   string          `json:"model"`
	Prompt  string          `json:"prompt"`
	Options generateOptions `json:"options"`
	Stream  bool            `json:"stream"`
}

type generateResponse struct {
	Response *string `json:"response"`
	Done     bool    `json:"done"`
}

// Generate returns the raw completion for prompt.
func (g *Generator) Generate(ctx context.Context, prompt string, opts ai.GenerateOptions) (string, error) {
	resp, err := g.post(ctx, prompt, opts)
	if err != nil {
		return "", err
	}
	if resp.Response == nil {
		return "", fmt.Errorf("%w: missing response field", ai.ErrMalformedResponse)
	}
	return *resp.Response, nil
}

// Ping issues a tiny completion and reports whether the backend answered with success.
func (g *Generator) Ping(ctx context.Context) error {
	_, err := g.post(ctx, pingPrompt, ai.GenerateOptions{
		MaxTokens:   pingMaxTokens,
		Temperature: pingTemperature,
	})
	return err
}

func (g *Generator) post(ctx context.Context, prompt string, opts ai.GenerateOptions) (*generateResponse, error) {
	body, err := json.Marshal(generateRequest{
		Model:  g.model,
		Prompt: prompt,
		Options: generateOptions{
			NumPredict:  opts.MaxTokens,
			Temperature: opts.Temperature,
			Stop:        opts.Stop,
		},
		Stream: false,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", core.ErrGeneration, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", core.ErrGeneration, err)
	}
	req.Header.Set("Content-Type", "application/json")

	httpResp, err := g.client.Do(req)
	if err != nil {
		err = classifyTransportError(err)
		g.logger.Warn("generation request failed", "err", err)
		return nil, err
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(httpResp.Body, maxErrorBody))
		g.logger.Warn("generation returned error status", "status", httpResp.StatusCode)
		return nil, fmt.Errorf("%w: %d: %s", ai.ErrGenerationStatus, httpResp.StatusCode, bytes.TrimSpace(snippet))
	}

	var resp generateResponse
	if err := json.NewDecoder(httpResp.Body).Decode(&resp); err != nil {
		return nil, fmt.Errorf("%w: %w", ai.ErrMalformedResponse, err)
	}
	return &resp, nil
}

// classifyTransportError maps client.Do failures onto the generation sentinels.
func classifyTransportError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %w", ai.ErrGenerationTimeout, err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("%w: %w", ai.ErrGenerationTimeout, err)
	}
	if errors.Is(err, context.Canceled) {
		return fmt.Errorf("%w: %w", core.ErrGeneration, err)
	}
	return fmt.Errorf("%w: %w", ai.ErrGenerationUnavailable, err)
}
