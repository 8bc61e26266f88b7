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


package docqa

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/poiesic/docqa/ai"
	"github.com/poiesic/docqa/ai/ollama"
	"github.com/poiesic/docqa/ai/openai"
	"github.com/poiesic/docqa/answer"
	"github.com/poiesic/docqa/config"
	"github.com/poiesic/docqa/core"
	"github.com/poiesic/docqa/extract"
	"github.com/poiesic/docqa/index"
	indexbadger "github.com/poiesic/docqa/index/badger"
	"github.com/poiesic/docqa/index/chromem"
	"github.com/poiesic/docqa/ingestion"
	"github.com/poiesic/docqa/rag"
	"github.com/poiesic/docqa/reindex"
	"github.com/poiesic/docqa/storage"
	"github.com/poiesic/docqa/storage/badger"
	"github.com/poiesic/docqa/storage/postgres"
)

// App owns the storage, index and AI handles shared by every component.
type App struct {
	cfg      *config.Config
	backend  *badger.Backend
	records  storage.RecordStore
	provider ai.Provider
	inMemory bool
	logger   *slog.Logger
	runs     *reindex.Runs

	index       func() (index.Index, error)
	indexOpened atomic.Bool
}

// Option configures an App.
type Option func(*appOptions)

type appOptions struct {
	cfg      *config.Config
	provider ai.Provider
	inMemory bool
	logger   *slog.Logger
}

// WithConfig sets the configuration. Defaults to config.Default().
func WithConfig(cfg *config.Config) Option {
	return func(o *appOptions) {
		o.cfg = cfg
	}
}

// WithProvider replaces the provider built from the configuration.
// The App takes ownership and closes it.
func WithProvider(p ai.Provider) Option {
	return func(o *appOptions) {
		o.provider = p
	}
}

// WithInMemory keeps the Badger backend and the chromem index in memory.
func WithInMemory() Option {
	return func(o *appOptions) {
		o.inMemory = true
	}
}

// WithLogger sets the logger handed to every component.
func WithLogger(logger *slog.Logger) Option {
	return func(o *appOptions) {
		o.logger = logger
	}
}

// Open validates the configuration and opens the record store and provider.
// The vector index is opened on first use.
func Open(ctx context.Context, opts ...Option) (*App, error) {
	options := &appOptions{
		cfg:    config.Default(),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(options)
	}
	cfg := options.cfg
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	backend, err := badger.OpenBackend(filepath.Join(cfg.DataDir, "badger"), options.inMemory)
	if err != nil {
		return nil, err
	}

	records, err := openRecords(ctx, cfg, backend, options.logger)
	if err != nil {
		backend.Close()
		return nil, err
	}

	provider := options.provider
	if provider == nil {
		provider, err = newProvider(cfg, backend, options.logger)
		if err != nil {
			records.Close()
			backend.Close()
			return nil, err
		}
	}

	app := &App{
		cfg:      cfg,
		backend:  backend,
		records:  records,
		provider: provider,
		inMemory: options.inMemory,
		logger:   options.logger.With("component", "docqa"),
		runs:     reindex.NewRuns(),
	}
	app.index = sync.OnceValues(func() (index.Index, error) {
		app.indexOpened.Store(true)
		return app.openIndex()
	})
	return app, nil
}

func openRecords(ctx context.Context, cfg *config.Config, backend *badger.Backend, logger *slog.Logger) (storage.RecordStore, error) {
	if cfg.Records.Backend == config.RecordsPostgres {
		return postgres.Open(ctx, cfg.Records.DSN,
			postgres.WithDebug(cfg.Records.Debug),
			postgres.WithLogger(logger.With("component", "postgres")))
	}
	return badger.OpenRecordStore(backend)
}

// newProvider wires the configured embedding backend behind the lazy, pooled
// and optionally cached embedders, plus the Ollama generator.
func newProvider(cfg *config.Config, backend *badger.Backend, logger *slog.Logger) (ai.Provider, error) {
	aiCfg := cfg.AIConfig()
	if err := aiCfg.Validate(); err != nil {
		return nil, err
	}

	lazy := ai.NewLazyEmbedder(func() (ai.Embedder, error) {
		if aiCfg.EmbeddingBackend == ai.BackendOllama {
			e, err := ollama.NewEmbedder(aiCfg)
			if err != nil {
				return nil, err
			}
			return e, nil
		}
		e, err := openai.NewEmbedder(aiCfg)
		if err != nil {
			return nil, err
		}
		return e, nil
	})
	pooled, err := ai.NewPooledEmbedder(lazy, aiCfg.EmbeddingPoolSize)
	if err != nil {
		return nil, err
	}

	var embedder ai.Embedder = pooled
	if cfg.Embedding.Cache {
		embedder = ai.NewCachedEmbedder(pooled, badger.NewEmbeddingCacheRepository(backend), aiCfg.EmbeddingModel)
	}

	generator, err := ollama.NewGenerator(aiCfg, ollama.WithLogger(logger.With("component", "ollama")))
	if err != nil {
		pooled.Release()
		return nil, err
	}
	return ai.NewProvider(embedder, generator, func() error {
		pooled.Release()
		return nil
	}), nil
}

func (a *App) openIndex() (index.Index, error) {
	logger := a.logger.With("index", a.cfg.Index.Name)
	switch a.cfg.Index.Backend {
	case config.IndexChromem:
		if a.inMemory {
			return chromem.NewMemory(a.cfg.Index.Name, chromem.WithLogger(logger))
		}
		return chromem.Open(filepath.Join(a.cfg.DataDir, "chromem"), a.cfg.Index.Name, chromem.WithLogger(logger))
	default:
		return indexbadger.New(a.backend, a.cfg.Index.Name, indexbadger.WithLogger(logger))
	}
}

// Close releases the provider, the index, the record store and the backend, in that order.
func (a *App) Close() error {
	var errs []error
	if err := a.provider.Close(); err != nil {
		a.logger.Error("error closing AI provider", "err", err)
		errs = append(errs, err)
	}
	if a.indexOpened.Load() {
		if idx, err := a.index(); err == nil {
			if err := idx.Close(); err != nil {
				a.logger.Error("error closing vector index", "err", err)
				errs = append(errs, err)
			}
		}
	}
	if err := a.records.Close(); err != nil {
		a.logger.Error("error closing record store", "err", err)
		errs = append(errs, err)
	}
	if err := a.backend.Close(); err != nil {
		a.logger.Error("error closing backend storage", "err", err)
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func (a *App) Config() *config.Config {
	return a.cfg
}

func (a *App) Records() storage.RecordStore {
	return a.records
}

func (a *App) Provider() ai.Provider {
	return a.provider
}

// Index returns the vector index, opening it on first call.
// An open failure is returned to every later caller.
func (a *App) Index() (index.Index, error) {
	return a.index()
}

// NewProcessor builds the per-document pipeline with the configured chunking.
func (a *App) NewProcessor(opts ...ingestion.ProcessorOption) (*ingestion.Processor, error) {
	idx, err := a.Index()
	if err != nil {
		return nil, err
	}
	base := []ingestion.ProcessorOption{
		ingestion.WithChunkOptions(a.cfg.ChunkOptions()),
		ingestion.WithEmbedBatchSize(a.cfg.Chunking.EmbedBatchSize),
		ingestion.WithProcessorLogger(a.logger.With("component", "processor")),
	}
	return ingestion.NewProcessor(extract.NewFileExtractor(), a.provider.Embedder(), idx, append(base, opts...)...)
}

// NewPipeline builds an asynchronous ingestion pipeline. Callers must Release it.
func (a *App) NewPipeline(opts ...ingestion.Option) (*ingestion.Pipeline, error) {
	proc, err := a.NewProcessor()
	if err != nil {
		return nil, err
	}
	base := []ingestion.Option{
		ingestion.WithPoolSize(a.cfg.Ingestion.PoolSize),
		ingestion.WithLogger(a.logger.With("component", "ingestion")),
	}
	return ingestion.NewPipeline(a.records, proc, append(base, opts...)...)
}

// NewAnswerGenerator builds the answer generator with the configured sampling.
func (a *App) NewAnswerGenerator() *answer.Generator {
	return answer.NewGenerator(a.provider.Generator(),
		answer.WithMaxTokens(a.cfg.Generation.MaxTokens),
		answer.WithTemperature(a.cfg.Temperature()),
		answer.WithMinLength(a.cfg.Generation.MinLength),
		answer.WithLogger(a.logger.With("component", "answer")),
	)
}

// NewService builds the question answering service.
func (a *App) NewService(opts ...rag.Option) (*rag.Service, error) {
	idx, err := a.Index()
	if err != nil {
		return nil, err
	}
	base := []rag.Option{
		rag.WithDefaultTopK(a.cfg.Retrieval.TopK),
		rag.WithLogger(a.logger.With("component", "rag")),
	}
	return rag.NewService(a.records, a.provider.Embedder(), idx, a.NewAnswerGenerator(), append(base, opts...)...)
}

// NewReindexer builds the batch re-indexer with the configured batch size and
// delay. Every reindexer from one App shares its in-flight runs.
func (a *App) NewReindexer(opts ...reindex.Option) (*reindex.Reindexer, error) {
	proc, err := a.NewProcessor()
	if err != nil {
		return nil, err
	}
	base := []reindex.Option{
		reindex.WithBatchSize(a.cfg.Reindex.BatchSize),
		reindex.WithBatchDelay(a.cfg.BatchDelay()),
		reindex.WithLogger(a.logger.With("component", "reindex")),
		reindex.WithRuns(a.runs),
	}
	return reindex.NewReindexer(a.records, proc, append(base, opts...)...)
}

// CreateCollection adds an empty collection.
func (a *App) CreateCollection(ctx context.Context, name, description string) (*core.Collection, error) {
	return a.records.Collections().CreateCollection(ctx, &core.Collection{
		Name:        name,
		Description: description,
	})
}

// DeleteCollection removes a collection's chunks from the index and then its records.
// It returns the number of chunks removed.
func (a *App) DeleteCollection(ctx context.Context, id core.ID) (int, error) {
	collection, err := a.records.Collections().GetCollection(ctx, id)
	if err != nil {
		return 0, err
	}
	idx, err := a.Index()
	if err != nil {
		return 0, err
	}
	removed, err := idx.DeleteByCollection(ctx, collection.TenantKey())
	if err != nil {
		return 0, err
	}
	if err := a.records.Collections().DeleteCollection(ctx, id); err != nil {
		return removed, err
	}
	a.logger.Info("collection deleted", "collection", collection.Name, "chunks", removed)
	return removed, nil
}

// DeleteDocument removes a document's chunks from the index and then its record.
// It returns the number of chunks removed.
func (a *App) DeleteDocument(ctx context.Context, id core.ID) (int, error) {
	doc, err := a.records.Documents().GetDocument(ctx, id)
	if err != nil {
		return 0, err
	}
	idx, err := a.Index()
	if err != nil {
		return 0, err
	}
	removed, err := idx.DeleteByDocument(ctx, doc.ID)
	if err != nil {
		return 0, err
	}
	if err := a.records.Documents().DeleteDocument(ctx, id); err != nil {
		return removed, err
	}
	a.logger.Info("document deleted", "document", doc.Filename, "chunks", removed)
	return removed, nil
}

// Stats summarizes the whole system.
type Stats struct {
	TotalCollections int         `json:"total_collections"`
	TotalDocuments   int         `json:"total_pdfs"`
	Index            index.Stats `json:"vector_store"`
	EmbeddingModel   string      `json:"embedding_model"`
	IndexBackend     string      `json:"index_backend"`
	DataDir          string      `json:"data_dir"`
}

// SystemStats counts collections, documents and indexed chunks.
func (a *App) SystemStats(ctx context.Context) (*Stats, error) {
	collections, err := a.records.Collections().ListCollections(ctx)
	if err != nil {
		return nil, fmt.Errorf("list collections: %w", err)
	}
	documents, err := a.records.Documents().CountDocuments(ctx)
	if err != nil {
		return nil, fmt.Errorf("count documents: %w", err)
	}
	idx, err := a.Index()
	if err != nil {
		return nil, err
	}
	indexStats, err := idx.Stats(ctx)
	if err != nil {
		return nil, err
	}
	return &Stats{
		TotalCollections: len(collections),
		TotalDocuments:   documents,
		Index:            indexStats,
		EmbeddingModel:   a.cfg.Embedding.Model,
		IndexBackend:     a.cfg.Index.Backend,
		DataDir:          a.cfg.DataDir,
	}, nil
}
