package ai

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.NotNil(t, cfg)
	assert.Equal(t, BackendOpenAI, cfg.EmbeddingBackend)
	assert.Equal(t, "http://localhost:11434/v1", cfg.EmbeddingHost)
	assert.Equal(t, "all-minilm", cfg.EmbeddingModel)
	assert.Equal(t, "http://localhost:11434", cfg.GenerationHost)
	assert.Equal(t, "/api/generate", cfg.GenerationEndpoint)
	assert.Equal(t, "tinyllama", cfg.GenerationModel)
	assert.Equal(t, 30*time.Second, cfg.GenerationTimeout)
	assert.GreaterOrEqual(t, cfg.EmbeddingPoolSize, 1)
	require.NoError(t, cfg.Validate())
}

func TestNewConfig(t *testing.T) {
	t.Run("with no options", func(t *testing.T) {
		cfg := NewConfig()
		assert.Equal(t, DefaultConfig(), cfg)
	})

	t.Run("with custom embedding settings", func(t *testing.T) {
		cfg := NewConfig(
			WithEmbeddingBackend(BackendOllama),
			WithEmbeddingHost("http://embed:11434"),
			WithEmbeddingModel("nomic-embed-text"),
			WithEmbeddingPoolSize(4),
		)

		assert.Equal(t, BackendOllama, cfg.EmbeddingBackend)
		assert.Equal(t, "http://embed:11434", cfg.EmbeddingHost)
		assert.Equal(t, "nomic-embed-text", cfg.EmbeddingModel)
		assert.Equal(t, 4, cfg.EmbeddingPoolSize)
	})

	t.Run("with custom generation settings", func(t *testing.T) {
		cfg := NewConfig(
			WithGenerationHost("http://llm:11434"),
			WithGenerationEndpoint("/api/generate"),
			WithGenerationModel("llama3.2"),
			WithGenerationTimeout(5*time.Second),
		)

		assert.Equal(t, "http://llm:11434", cfg.GenerationHost)
		assert.Equal(t, "llama3.2", cfg.GenerationModel)
		assert.Equal(t, 5*time.Second, cfg.GenerationTimeout)
		assert.Equal(t, "http://llm:11434/api/generate", cfg.GenerationURL())
	})
}

func TestConfig_Normalize(t *testing.T) {
	tests := []struct {
		name     string
		backend  string
		host     string
		expected string
	}{
		{"openai adds v1", BackendOpenAI, "http://localhost:11434", "http://localhost:11434/v1"},
		{"openai trailing slash", BackendOpenAI, "http://localhost:11434/", "http://localhost:11434/v1"},
		{"openai keeps v1", BackendOpenAI, "http://localhost:11434/v1", "http://localhost:11434/v1"},
		{"ollama strips v1", BackendOllama, "http://localhost:11434/v1", "http://localhost:11434"},
		{"ollama plain host", BackendOllama, "http://localhost:11434", "http://localhost:11434"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewConfig(WithEmbeddingBackend(tt.backend), WithEmbeddingHost(tt.host))
			cfg.Normalize()
			assert.Equal(t, tt.expected, cfg.EmbeddingHost)
		})
	}

	t.Run("endpoint gets leading slash", func(t *testing.T) {
		cfg := NewConfig(WithGenerationEndpoint("api/generate"), WithGenerationHost("http://llm/"))
		cfg.Normalize()
		assert.Equal(t, "/api/generate", cfg.GenerationEndpoint)
		assert.Equal(t, "http://llm/api/generate", cfg.GenerationURL())
	})

	t.Run("backend is case insensitive", func(t *testing.T) {
		cfg := NewConfig(WithEmbeddingBackend(" Ollama "))
		require.NoError(t, cfg.Validate())
		assert.Equal(t, BackendOllama, cfg.EmbeddingBackend)
	})
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		opt     ConfigOption
		wantErr string
	}{
		{"unknown backend", WithEmbeddingBackend("bert"), "EmbeddingBackend"},
		{"missing embedding host", WithEmbeddingHost(""), "EmbeddingHost"},
		{"missing embedding model", WithEmbeddingModel(""), "EmbeddingModel"},
		{"zero pool size", WithEmbeddingPoolSize(0), "EmbeddingPoolSize"},
		{"missing generation host", WithGenerationHost(""), "GenerationHost"},
		{"missing endpoint", WithGenerationEndpoint(""), "GenerationEndpoint"},
		{"missing generation model", WithGenerationModel(""), "GenerationModel"},
		{"zero timeout", WithGenerationTimeout(0), "GenerationTimeout"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewConfig(tt.opt).Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
