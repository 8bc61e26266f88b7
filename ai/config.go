// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package ai

import (
	"errors"
	"fmt"
	"runtime"
	"strings"
	"time"
)

// Embedding backends understood by the root package.
const (
	BackendOpenAI = "openai"
	BackendOllama = "ollama"
)

// Config holds configuration for AI service providers.
type Config struct {
	// EmbeddingBackend selects the embedding client, BackendOpenAI or BackendOllama.
	EmbeddingBackend string

	// EmbeddingHost is the base URL for the embedding service API.
	// Example: "http://localhost:11434/v1" for an OpenAI-compatible server
	EmbeddingHost string

	// EmbeddingModel is the pinned model identifier used for text embeddings.
	// Changing it invalidates every stored vector.
	EmbeddingModel string

	// EmbeddingPoolSize bounds concurrent embedding calls.
	// Default: runtime.NumCPU() / 2, minimum 1
	EmbeddingPoolSize int

	// GenerationHost is the base URL of the Ollama generation service.
	// Example: "http://localhost:11434"
	GenerationHost string

	// GenerationEndpoint is the completion path appended to GenerationHost.
	// Default: "/api/generate"
	GenerationEndpoint string

	// GenerationModel is the model used to answer questions.
	GenerationModel string

	// GenerationTimeout bounds a single completion request.
	// Default: 30s
	GenerationTimeout time.Duration
}

// ConfigOption is a functional option for configuring a Config.
type ConfigOption func(*Config)

// WithEmbeddingBackend selects the embedding client.
func WithEmbeddingBackend(backend string) ConfigOption {
	return func(c *Config) {
		c.EmbeddingBackend = backend
	}
}

// WithEmbeddingHost sets the embedding service host URL.
func WithEmbeddingHost(host string) ConfigOption {
	return func(c *Config) {
		c.EmbeddingHost = host
	}
}

// WithEmbeddingModel sets the embedding model identifier.
func WithEmbeddingModel(model string) ConfigOption {
	return func(c *Config) {
		c.EmbeddingModel = model
	}
}

// WithEmbeddingPoolSize sets the number of embedding workers.
func WithEmbeddingPoolSize(size int) ConfigOption {
	return func(c *Config) {
		c.EmbeddingPoolSize = size
	}
}

// WithGenerationHost sets the generation service host URL.
func WithGenerationHost(host string) ConfigOption {
	return func(c *Config) {
		c.GenerationHost = host
	}
}

// WithGenerationEndpoint sets the completion path.
func WithGenerationEndpoint(endpoint string) ConfigOption {
	return func(c *Config) {
		c.GenerationEndpoint = endpoint
	}
}

// WithGenerationModel sets the generation model identifier.
func WithGenerationModel(model string) ConfigOption {
	return func(c *Config) {
		c.GenerationModel = model
	}
}

// WithGenerationTimeout sets the per-request generation timeout.
func WithGenerationTimeout(timeout time.Duration) ConfigOption {
	return func(c *Config) {
		c.GenerationTimeout = timeout
	}
}

// DefaultConfig returns a Config with sensible defaults for a local Ollama install.
// Embeddings go through Ollama's OpenAI-compatible API, generation through its native API.
func DefaultConfig() *Config {
	poolSize := runtime.NumCPU() / 2
	if poolSize < 1 {
		poolSize = 1
	}
	return &Config{
		EmbeddingBackend:   BackendOpenAI,
		EmbeddingHost:      "http://localhost:11434/v1",
		EmbeddingModel:     "all-minilm",
		EmbeddingPoolSize:  poolSize,
		GenerationHost:     "http://localhost:11434",
		GenerationEndpoint: "/api/generate",
		GenerationModel:    "tinyllama",
		GenerationTimeout:  30 * time.Second,
	}
}

// NewConfig creates a Config with the default values and applies the provided options.
//
// Example:
//
//	cfg := NewConfig(
//	    WithEmbeddingBackend(BackendOllama),
//	    WithEmbeddingHost("http://gpu-box:11434"),
//	    WithGenerationModel("llama3.2"),
//	)
func NewConfig(opts ...ConfigOption) *Config {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// Normalize ensures the configuration is in a canonical form.
// OpenAI-compatible embedding hosts get a /v1 suffix; native Ollama hosts lose it.
func (c *Config) Normalize() {
	c.EmbeddingBackend = strings.ToLower(strings.TrimSpace(c.EmbeddingBackend))
	if c.EmbeddingHost != "" {
		host := strings.TrimSuffix(c.EmbeddingHost, "/")
		switch c.EmbeddingBackend {
		case BackendOpenAI:
			if !strings.HasSuffix(host, "/v1") {
				host += "/v1"
			}
		case BackendOllama:
			host = strings.TrimSuffix(host, "/v1")
		}
		c.EmbeddingHost = host
	}
	c.GenerationHost = strings.TrimSuffix(c.GenerationHost, "/")
	if c.GenerationEndpoint != "" && !strings.HasPrefix(c.GenerationEndpoint, "/") {
		c.GenerationEndpoint = "/" + c.GenerationEndpoint
	}
}

// Validate checks that the configuration is valid and complete.
// It automatically normalizes the configuration before validation.
func (c *Config) Validate() error {
	c.Normalize()

	if c.EmbeddingBackend != BackendOpenAI && c.EmbeddingBackend != BackendOllama {
		return fmt.Errorf("ai config: unknown EmbeddingBackend %q", c.EmbeddingBackend)
	}
	if c.EmbeddingHost == "" {
		return errors.New("ai config: EmbeddingHost is required")
	}
	if c.EmbeddingModel == "" {
		return errors.New("ai config: EmbeddingModel is required")
	}
	if c.EmbeddingPoolSize < 1 {
		return errors.New("ai config: EmbeddingPoolSize must be at least 1")
	}
	if c.GenerationHost == "" {
		return errors.New("ai config: GenerationHost is required")
	}
	if c.GenerationEndpoint == "" {
		return errors.New("ai config: GenerationEndpoint is required")
	}
	if c.GenerationModel == "" {
		return errors.New("ai config: GenerationModel is required")
	}
	if c.GenerationTimeout <= 0 {
		return errors.New("ai config: GenerationTimeout must be positive")
	}
	return nil
}

// GenerationURL returns the full completion URL.
func (c *Config) GenerationURL() string {
	return c.GenerationHost + c.GenerationEndpoint
}
