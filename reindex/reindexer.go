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


package reindex

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"time"

	"github.com/poiesic/docqa/core"
	"github.com/poiesic/docqa/index"
	"github.com/poiesic/docqa/ingestion"
	"github.com/poiesic/docqa/storage"
)

const (
	// DefaultBatchSize is the number of documents processed per batch.
	DefaultBatchSize = 10

	// DefaultBatchDelay is the pause between consecutive batches.
	DefaultBatchDelay = 100 * time.Millisecond
)

// Reindexer rebuilds index entries from stored documents.
type Reindexer struct {
	records   storage.RecordStore
	processor *ingestion.Processor
	index     index.Index
	batchSize int
	delay     time.Duration
	progress  io.Writer
	logger    *slog.Logger
	runs      *Runs
}

// Option configures a Reindexer.
type Option func(*Reindexer)

// WithBatchSize sets the default batch size. Values below 1 are ignored.
func WithBatchSize(size int) Option {
	return func(r *Reindexer) {
		if size > 0 {
			r.batchSize = size
		}
	}
}

// WithBatchDelay sets the pause between batches of ReindexCollectionBatch.
// Negative values are treated as zero.
func WithBatchDelay(d time.Duration) Option {
	return func(r *Reindexer) {
		r.delay = max(d, 0)
	}
}

// WithProgress reports per-batch progress to w.
func WithProgress(w io.Writer) Option {
	return func(r *Reindexer) {
		r.progress = w
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Reindexer) {
		if logger == nil {
			logger = slog.Default()
		}
		r.logger = logger
	}
}

// WithRuns shares a run registry between reindexers. Reindexers built
// without it only coordinate with themselves.
func WithRuns(runs *Runs) Option {
	return func(r *Reindexer) {
		if runs != nil {
			r.runs = runs
		}
	}
}

// NewReindexer creates a reindexer writing through processor's index.
func NewReindexer(records storage.RecordStore, processor *ingestion.Processor, opts ...Option) (*Reindexer, error) {
	if records == nil {
		return nil, ErrRecordStoreRequired
	}
	if processor == nil {
		return nil, ErrProcessorRequired
	}
	r := &Reindexer{
		records:   records,
		processor: processor,
		index:     processor.Index(),
		batchSize: DefaultBatchSize,
		delay:     DefaultBatchDelay,
		logger:    slog.Default().With("component", "reindexer"),
		runs:      NewRuns(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// ReindexCollection rebuilds a collection, processing its documents in
// batches of the configured size without pausing between them.
func (r *Reindexer) ReindexCollection(ctx context.Context, collectionID core.ID) *Result {
	return r.shared(ctx, collectionID, plan{size: r.batchSize})
}

// ReindexCollectionBatch rebuilds a collection in batches of batchSize,
// pausing for the configured delay between batches, and reports the size of
// every batch. A batchSize below 1 uses the default.
func (r *Reindexer) ReindexCollectionBatch(ctx context.Context, collectionID core.ID, batchSize int) *Result {
	if batchSize < 1 {
		batchSize = r.batchSize
	}
	return r.shared(ctx, collectionID, plan{size: batchSize, delay: r.delay, batched: true})
}

// plan describes how a collection run walks its documents.
type plan struct {
	size    int
	delay   time.Duration
	batched bool
}

// shared joins an in-flight run of the same collection or starts one.
func (r *Reindexer) shared(ctx context.Context, collectionID core.ID, p plan) *Result {
	result, joined := r.runs.collection(collectionID, func() *Result {
		return r.run(ctx, collectionID, p)
	})
	if joined {
		r.logger.Debug("joined running re-index", "collection", collectionID)
	}
	return result
}

func (r *Reindexer) run(ctx context.Context, collectionID core.ID, p plan) *Result {
	collection, err := r.records.Collections().GetCollection(ctx, collectionID)
	if err != nil {
		if errors.Is(err, core.ErrCollectionNotFound) {
			return failed("Collection with ID %d not found", collectionID)
		}
		return failed("Re-indexing failed: %v", err)
	}
	logger := r.logger.With("collection", collection.ID, "name", collection.Name)
	logger.Info("starting re-index", "batch_size", p.size)

	removed, err := r.index.DeleteByCollection(ctx, collection.TenantKey())
	if err != nil {
		logger.Error("error clearing collection chunks", "err", err)
		return failed("Re-indexing failed: %v", err)
	}
	logger.Debug("cleared collection chunks", "chunks", removed)

	docs, err := r.records.Documents().ListDocuments(ctx, collection.ID)
	if err != nil {
		return failed("Re-indexing failed: %v", err)
	}

	result := &Result{
		Success:        true,
		CollectionName: collection.Name,
		TotalPDFs:      len(docs),
		Errors:         []string{},
	}
	if p.batched {
		result.BatchSize = p.size
		result.BatchSizes = []int{}
	}
	if len(docs) == 0 {
		result.Message = fmt.Sprintf("Collection '%s' has no PDFs to re-index", collection.Name)
		return result
	}

	totalBatches := (len(docs) + p.size - 1) / p.size
	var progress *Progress
	if r.progress != nil {
		progress = NewProgress(r.progress, len(docs), totalBatches)
		defer progress.Finish()
	}

	batchNum := 0
	for batch := range slices.Chunk(docs, p.size) {
		batchNum++
		progress.StartBatch(batchNum)

		batchChunks, batchErrors := 0, 0
		for _, doc := range batch {
			if err := ctx.Err(); err != nil {
				return interrupted(result, logger, err)
			}
			chunks, err := r.reprocess(ctx, doc)
			if err != nil && ctx.Err() != nil {
				return interrupted(result, logger, ctx.Err())
			}
			progress.Done(err)
			if err != nil {
				result.Errors = append(result.Errors, describeFailure(doc, err))
				batchErrors++
			} else {
				result.PDFsProcessed++
				batchChunks += chunks
			}
		}
		result.ChunksCreated += batchChunks
		if p.batched {
			result.BatchSizes = append(result.BatchSizes, len(batch))
		}
		logger.Info("batch completed", "batch", batchNum, "of", totalBatches, "chunks", batchChunks, "errors", batchErrors)

		if batchNum < totalBatches && p.delay > 0 {
			select {
			case <-ctx.Done():
			case <-time.After(p.delay):
			}
		}
	}

	if err := r.records.Collections().TouchCollection(ctx, collection.ID); err != nil {
		logger.Warn("error touching collection", "err", err)
	}

	switch {
	case len(result.Errors) == 0:
		result.Message = "Re-indexing completed successfully"
	case p.batched:
		result.Message = fmt.Sprintf("Re-indexing completed with %d errors out of %d PDFs", len(result.Errors), result.TotalPDFs)
	default:
		result.Message = fmt.Sprintf("Re-indexing completed with %d errors", len(result.Errors))
	}
	logger.Info("re-index completed",
		"processed", result.PDFsProcessed, "total", result.TotalPDFs,
		"chunks", result.ChunksCreated, "errors", len(result.Errors))
	return result
}

// interrupted marks result as stopped by cancellation. Documents not yet
// reached keep their status.
func interrupted(result *Result, logger *slog.Logger, err error) *Result {
	logger.Warn("re-index interrupted", "processed", result.PDFsProcessed, "total", result.TotalPDFs, "err", err)
	result.Success = false
	result.Error = fmt.Sprintf("Re-indexing failed: %v", err)
	return result
}

// reprocess runs the pipeline for doc and records its new status. A failure
// caused by cancellation leaves the status untouched.
func (r *Reindexer) reprocess(ctx context.Context, doc *core.Document) (int, error) {
	chunks, procErr := r.processor.Process(ctx, doc)
	if procErr != nil {
		if ctx.Err() != nil {
			return 0, procErr
		}
		r.logger.Error("error re-indexing document", "document", doc.ID, "filename", doc.Filename, "err", procErr)
	}

	next := core.NextStatus(doc.Status, procErr == nil)
	if _, err := r.records.Documents().UpdateDocumentStatus(ctx, doc.ID, next); err != nil {
		r.logger.Warn("error updating document status", "document", doc.ID, "status", next, "err", err)
	}
	return chunks, procErr
}

// ReindexDocument drops a single document's chunks and rebuilds them. It is
// refused while the document's collection is being re-indexed.
func (r *Reindexer) ReindexDocument(ctx context.Context, documentID core.ID) *DocumentResult {
	doc, err := r.records.Documents().GetDocument(ctx, documentID)
	if err != nil {
		if errors.Is(err, core.ErrDocumentNotFound) {
			return &DocumentResult{Error: fmt.Sprintf("PDF with ID %d not found", documentID)}
		}
		return &DocumentResult{Error: fmt.Sprintf("Failed to re-index PDF: %v", err)}
	}

	result, ok := r.runs.document(doc.CollectionID, doc.ID, func() *DocumentResult {
		if _, err := r.index.DeleteByDocument(ctx, doc.ID); err != nil {
			return &DocumentResult{Filename: doc.Filename, Error: fmt.Sprintf("Failed to re-index PDF: %v", err)}
		}
		chunks, err := r.reprocess(ctx, doc)
		if err != nil {
			return &DocumentResult{Filename: doc.Filename, Error: describeFailure(doc, err)}
		}
		r.logger.Info("re-indexed document", "document", doc.ID, "filename", doc.Filename, "chunks", chunks)
		return &DocumentResult{
			Success:       true,
			Filename:      doc.Filename,
			ChunksCreated: chunks,
			Message:       fmt.Sprintf("Successfully re-indexed %s", doc.Filename),
		}
	})
	if !ok {
		r.logger.Info("refused document re-index during collection run", "document", doc.ID, "collection", doc.CollectionID)
		return &DocumentResult{
			Filename: doc.Filename,
			Error:    fmt.Sprintf("Collection with ID %d is being re-indexed", doc.CollectionID),
		}
	}
	return result
}
