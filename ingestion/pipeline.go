package ingestion

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"sync"

	"github.com/panjf2000/ants/v2"
	"github.com/poiesic/docqa/core"
	"github.com/poiesic/docqa/extract"
	"github.com/poiesic/docqa/storage"
)

// CompletionFunc is called after a document finished processing.
// err is nil when the document reached the processed state.
type CompletionFunc func(doc *core.Document, chunks int, err error)

// Pipeline registers documents and processes them asynchronously.
// Each document moves from pending to processed or failed.
type Pipeline struct {
	records    storage.RecordStore
	processor  *Processor
	pool       *ants.Pool
	wg         sync.WaitGroup
	onComplete CompletionFunc
	logger     *slog.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline) error

// WithPoolSize sets the worker pool size for concurrent processing.
// Default is runtime.NumCPU() / 2, with a minimum of 1.
func WithPoolSize(size int) Option {
	return func(p *Pipeline) error {
		if size < 1 {
			size = 1
		}

		// Release old pool
		if p.pool != nil {
			p.pool.Release()
		}

		pool, err := ants.NewPool(size)
		if err != nil {
			return err
		}
		p.pool = pool
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) error {
		if logger == nil {
			logger = slog.Default()
		}
		p.logger = logger
		return nil
	}
}

// WithCompletion registers fn to observe finished documents.
func WithCompletion(fn CompletionFunc) Option {
	return func(p *Pipeline) error {
		p.onComplete = fn
		return nil
	}
}

// NewPipeline creates a new ingestion pipeline.
func NewPipeline(records storage.RecordStore, processor *Processor, opts ...Option) (*Pipeline, error) {
	if records == nil {
		return nil, ErrRecordStoreRequired
	}
	if processor == nil {
		return nil, ErrProcessorRequired
	}

	poolSize := max(runtime.NumCPU()/2, 1)
	pool, err := ants.NewPool(poolSize)
	if err != nil {
		return nil, err
	}

	p := &Pipeline{
		records:   records,
		processor: processor,
		pool:      pool,
		logger:    slog.Default().With("component", "ingestion"),
	}

	// Apply options (may override defaults)
	for _, opt := range opts {
		if optErr := opt(p); optErr != nil {
			p.Release()
			return nil, optErr
		}
	}
	return p, nil
}

// Ingest adds a pending document for the file at path and processes it
// asynchronously. An empty title is derived from the filename.
// Processing errors are recorded as the failed status, not returned.
func (p *Pipeline) Ingest(ctx context.Context, collectionID core.ID, path, title string) (*core.Document, error) {
	if _, err := p.records.Collections().GetCollection(ctx, collectionID); err != nil {
		return nil, err
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	if title == "" {
		title = extract.TitleFromFilename(path)
	}

	doc, err := p.records.Documents().AddDocument(ctx, &core.Document{
		CollectionID: collectionID,
		Title:        title,
		Filename:     filepath.Base(path),
		FilePath:     absPath,
		Status:       core.DocumentStatusPending,
	})
	if err != nil {
		return nil, err
	}

	// The caller's cancellation must not abandon a half-processed document
	bg := context.WithoutCancel(ctx)
	p.wg.Add(1)
	err = p.pool.Submit(func() {
		defer p.wg.Done()
		p.process(bg, doc)
	})
	if err != nil {
		p.wg.Done()
		p.finish(bg, doc, 0, err)
		return nil, fmt.Errorf("submit %s: %w", doc.Filename, err)
	}
	return doc, nil
}

// IngestDirectory ingests every supported file directly inside dir, in name order.
// Files that cannot be registered are skipped and reported in the joined error.
func (p *Pipeline) IngestDirectory(ctx context.Context, collectionID core.ID, dir string) ([]*core.Document, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() && extract.Supported(e.Name()) {
			names = append(names, e.Name())
		}
	}
	slices.Sort(names)

	var docs []*core.Document
	var errs []error
	for _, name := range names {
		doc, err := p.Ingest(ctx, collectionID, filepath.Join(dir, name), "")
		if err != nil {
			if errors.Is(err, core.ErrCollectionNotFound) {
				return docs, err
			}
			errs = append(errs, err)
			continue
		}
		docs = append(docs, doc)
	}
	p.logger.Info("queued directory", "dir", dir, "files", len(docs), "errors", len(errs))
	return docs, errors.Join(errs...)
}

func (p *Pipeline) process(ctx context.Context, doc *core.Document) {
	chunks, err := p.processor.Process(ctx, doc)
	p.finish(ctx, doc, chunks, err)
}

// finish records the outcome of processing doc.
func (p *Pipeline) finish(ctx context.Context, doc *core.Document, chunks int, procErr error) {
	logger := p.logger.With("document", doc.ID, "filename", doc.Filename)
	next := core.NextStatus(doc.Status, procErr == nil)

	updated, err := p.records.Documents().UpdateDocumentStatus(ctx, doc.ID, next)
	if err != nil {
		logger.Error("error updating document status", "status", next, "err", err)
	} else {
		doc = updated
	}

	if procErr != nil {
		logger.Error("error processing document", "err", procErr)
	} else {
		if err := p.records.Collections().TouchCollection(ctx, doc.CollectionID); err != nil {
			logger.Warn("error touching collection", "err", err)
		}
		logger.Info("ingested document", "chunks", chunks)
	}

	if p.onComplete != nil {
		p.onComplete(doc, chunks, procErr)
	}
}

// Wait blocks until every submitted document has finished processing.
func (p *Pipeline) Wait() {
	p.wg.Wait()
}

// Release waits for queued work and releases the worker pool.
// The pipeline should not be used after calling Release.
func (p *Pipeline) Release() {
	p.wg.Wait()
	if p.pool != nil {
		p.pool.Release()
	}
}
