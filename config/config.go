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


package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/poiesic/docqa/ai"
	"github.com/poiesic/docqa/chunker"
	"gopkg.in/yaml.v3"
)

// Index backends.
const (
	IndexBadger  = "badger"
	IndexChromem = "chromem"
)

// Record store backends.
const (
	RecordsBadger   = "badger"
	RecordsPostgres = "postgres"
)

// ErrInvalidConfig is wrapped by every Validate failure.
var ErrInvalidConfig = errors.New("invalid configuration")

// IndexConfig selects the vector index.
type IndexConfig struct {
	Backend string `yaml:"backend"`
	Name    string `yaml:"name"`
}

// RecordsConfig selects the record store.
type RecordsConfig struct {
	Backend string `yaml:"backend"`
	DSN     string `yaml:"dsn,omitempty"`
	Debug   bool   `yaml:"debug,omitempty"`
}

// EmbeddingConfig configures the embedding client.
type EmbeddingConfig struct {
	Backend  string `yaml:"backend"`
	Host     string `yaml:"host"`
	Model    string `yaml:"model"`
	PoolSize int    `yaml:"pool_size"`
	Cache    bool   `yaml:"cache"`
}

// GenerationConfig configures the generation backend and answer shaping.
type GenerationConfig struct {
	Host        string   `yaml:"host"`
	Endpoint    string   `yaml:"endpoint"`
	Model       string   `yaml:"model"`
	TimeoutSecs int      `yaml:"timeout_secs"`
	MaxTokens   int      `yaml:"max_tokens"`
	Temperature *float64 `yaml:"temperature,omitempty"`
	MinLength   int      `yaml:"min_length"`
}

// ChunkingConfig configures the word window and embedding batches.
type ChunkingConfig struct {
	Size           int `yaml:"size"`
	Overlap        int `yaml:"overlap"`
	EmbedBatchSize int `yaml:"embed_batch_size"`
}

// RetrievalConfig configures query-time retrieval.
type RetrievalConfig struct {
	TopK int `yaml:"top_k"`
}

// ReindexConfig configures batch re-indexing.
type ReindexConfig struct {
	BatchSize    int `yaml:"batch_size"`
	BatchDelayMs int `yaml:"batch_delay_ms"`
}

// IngestionConfig configures asynchronous ingestion.
type IngestionConfig struct {
	PoolSize int `yaml:"pool_size"`
}

// Config is the root configuration.
type Config struct {
	DataDir    string           `yaml:"data_dir"`
	LogLevel   string           `yaml:"log_level"`
	Index      IndexConfig      `yaml:"index"`
	Records    RecordsConfig    `yaml:"records"`
	Embedding  EmbeddingConfig  `yaml:"embedding"`
	Generation GenerationConfig `yaml:"generation"`
	Chunking   ChunkingConfig   `yaml:"chunking"`
	Retrieval  RetrievalConfig  `yaml:"retrieval"`
	Reindex    ReindexConfig    `yaml:"reindex"`
	Ingestion  IngestionConfig  `yaml:"ingestion"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	c := &Config{}
	applyDefaults(c)
	return c
}

// Load reads the file at path. A missing file yields Default.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Default(), nil
		}
		return nil, err
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	applyDefaults(&cfg)
	return &cfg, nil
}

// Save writes cfg to path, creating directories as needed.
func Save(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// applyDefaults fills zero values.
func applyDefaults(c *Config) {
	aiDefaults := ai.DefaultConfig()
	chunkDefaults := chunker.DefaultOptions()

	if c.DataDir == "" {
		c.DataDir = "./data"
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.Index.Backend == "" {
		c.Index.Backend = IndexBadger
	}
	if c.Index.Name == "" {
		c.Index.Name = "pdf_chunks"
	}
	if c.Records.Backend == "" {
		c.Records.Backend = RecordsBadger
	}
	if c.Embedding.Backend == "" {
		c.Embedding.Backend = aiDefaults.EmbeddingBackend
	}
	if c.Embedding.Host == "" {
		c.Embedding.Host = aiDefaults.EmbeddingHost
	}
	if c.Embedding.Model == "" {
		c.Embedding.Model = aiDefaults.EmbeddingModel
	}
	if c.Embedding.PoolSize == 0 {
		c.Embedding.PoolSize = aiDefaults.EmbeddingPoolSize
	}
	if c.Generation.Host == "" {
		c.Generation.Host = aiDefaults.GenerationHost
	}
	if c.Generation.Endpoint == "" {
		c.Generation.Endpoint = aiDefaults.GenerationEndpoint
	}
	if c.Generation.Model == "" {
		c.Generation.Model = aiDefaults.GenerationModel
	}
	if c.Generation.TimeoutSecs == 0 {
		c.Generation.TimeoutSecs = int(aiDefaults.GenerationTimeout / time.Second)
	}
	if c.Generation.MaxTokens == 0 {
		c.Generation.MaxTokens = 500
	}
	if c.Generation.Temperature == nil {
		t := 0.7
		c.Generation.Temperature = &t
	}
	if c.Generation.MinLength == 0 {
		c.Generation.MinLength = 10
	}
	if c.Chunking.Size == 0 {
		c.Chunking.Size = chunkDefaults.ChunkSize
	}
	if c.Chunking.Overlap == 0 && c.Chunking.Size == chunkDefaults.ChunkSize {
		c.Chunking.Overlap = chunkDefaults.ChunkOverlap
	}
	if c.Chunking.EmbedBatchSize == 0 {
		c.Chunking.EmbedBatchSize = 32
	}
	if c.Retrieval.TopK == 0 {
		c.Retrieval.TopK = 5
	}
	if c.Reindex.BatchSize == 0 {
		c.Reindex.BatchSize = 10
	}
	if c.Reindex.BatchDelayMs == 0 {
		c.Reindex.BatchDelayMs = 100
	}
	if c.Ingestion.PoolSize == 0 {
		c.Ingestion.PoolSize = aiDefaults.EmbeddingPoolSize
	}
}

// Validate checks the configuration and the AI settings derived from it.
func (c *Config) Validate() error {
	c.Index.Backend = strings.ToLower(c.Index.Backend)
	c.Records.Backend = strings.ToLower(c.Records.Backend)

	switch c.Index.Backend {
	case IndexBadger, IndexChromem:
	default:
		return fmt.Errorf("%w: unknown index backend %q", ErrInvalidConfig, c.Index.Backend)
	}
	switch c.Records.Backend {
	case RecordsBadger:
	case RecordsPostgres:
		if c.Records.DSN == "" {
			return fmt.Errorf("%w: records.dsn is required for postgres", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown records backend %q", ErrInvalidConfig, c.Records.Backend)
	}
	if c.Index.Name == "" {
		return fmt.Errorf("%w: index.name is required", ErrInvalidConfig)
	}
	if err := c.ChunkOptions().Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if c.Retrieval.TopK < 1 {
		return fmt.Errorf("%w: retrieval.top_k must be positive", ErrInvalidConfig)
	}
	if c.Reindex.BatchSize < 1 {
		return fmt.Errorf("%w: reindex.batch_size must be positive", ErrInvalidConfig)
	}
	if c.Reindex.BatchDelayMs < 0 {
		return fmt.Errorf("%w: reindex.batch_delay_ms cannot be negative", ErrInvalidConfig)
	}
	if c.Generation.MaxTokens < 1 {
		return fmt.Errorf("%w: generation.max_tokens must be positive", ErrInvalidConfig)
	}
	if err := c.AIConfig().Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return nil
}

// AIConfig converts the embedding and generation sections to an ai.Config.
func (c *Config) AIConfig() *ai.Config {
	return ai.NewConfig(
		ai.WithEmbeddingBackend(c.Embedding.Backend),
		ai.WithEmbeddingHost(c.Embedding.Host),
		ai.WithEmbeddingModel(c.Embedding.Model),
		ai.WithEmbeddingPoolSize(c.Embedding.PoolSize),
		ai.WithGenerationHost(c.Generation.Host),
		ai.WithGenerationEndpoint(c.Generation.Endpoint),
		ai.WithGenerationModel(c.Generation.Model),
		ai.WithGenerationTimeout(time.Duration(c.Generation.TimeoutSecs)*time.Second),
	)
}

// ChunkOptions returns the chunking window.
func (c *Config) ChunkOptions() chunker.Options {
	return chunker.Options{ChunkSize: c.Chunking.Size, ChunkOverlap: c.Chunking.Overlap}
}

// BatchDelay returns the pause between re-index batches.
func (c *Config) BatchDelay() time.Duration {
	return time.Duration(c.Reindex.BatchDelayMs) * time.Millisecond
}

// Temperature returns the sampling temperature.
func (c *Config) Temperature() float64 {
	if c.Generation.Temperature == nil {
		return 0.7
	}
	return *c.Generation.Temperature
}
