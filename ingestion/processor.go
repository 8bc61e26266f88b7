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


package ingestion

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	"github.com/poiesic/docqa/ai"
	"github.com/poiesic/docqa/chunker"
	"github.com/poiesic/docqa/core"
	"github.com/poiesic/docqa/extract"
	"github.com/poiesic/docqa/index"
)

// DefaultEmbedBatchSize is how many chunks go to the embedder per call.
const DefaultEmbedBatchSize = 32

// Processor turns one stored document into indexed chunks:
// extract, chunk, embed, upsert. It is shared by ingestion and re-indexing.
type Processor struct {
	extractor      extract.Extractor
	embedder       ai.Embedder
	index          index.Index
	chunkOptions   chunker.Options
	embedBatchSize int
	logger         *slog.Logger
}

// ProcessorOption configures a Processor.
type ProcessorOption func(*Processor) error

// WithChunkOptions sets the chunking window.
func WithChunkOptions(opts chunker.Options) ProcessorOption {
	return func(p *Processor) error {
		if err := opts.Validate(); err != nil {
			return err
		}
		p.chunkOptions = opts
		return nil
	}
}

// WithEmbedBatchSize sets how many chunks are embedded per call.
// Values below 1 are raised to 1.
func WithEmbedBatchSize(size int) ProcessorOption {
	return func(p *Processor) error {
		p.embedBatchSize = max(size, 1)
		return nil
	}
}

// WithProcessorLogger sets a custom logger.
func WithProcessorLogger(logger *slog.Logger) ProcessorOption {
	return func(p *Processor) error {
		if logger == nil {
			logger = slog.Default()
		}
		p.logger = logger
		return nil
	}
}

// NewProcessor creates a document processor.
func NewProcessor(extractor extract.Extractor, embedder ai.Embedder, idx index.Index, opts ...ProcessorOption) (*Processor, error) {
	if extractor == nil {
		return nil, ErrExtractorRequired
	}
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}
	if idx == nil {
		return nil, ErrIndexRequired
	}
	p := &Processor{
		extractor:      extractor,
		embedder:       embedder,
		index:          idx,
		chunkOptions:   chunker.DefaultOptions(),
		embedBatchSize: DefaultEmbedBatchSize,
		logger:         slog.Default().With("component", "document-processor"),
	}
	for _, opt := range opts {
		if err := opt(p); err != nil {
			return nil, err
		}
	}
	return p, nil
}

// Index returns the index chunks are written to.
func (p *Processor) Index() index.Index {
	return p.index
}

// Process indexes doc and returns the number of chunks written.
// Failures wrap the stage sentinel of core: ErrExtraction, ErrChunking,
// ErrEmbedding or ErrIndex. Chunks already written stay in the index.
func (p *Processor) Process(ctx context.Context, doc *core.Document) (int, error) {
	logger := p.logger.With("document", doc.ID, "filename", doc.Filename)

	extracted, err := p.extractor.Extract(ctx, doc.FilePath)
	if err != nil {
		logger.Warn("extraction failed", "err", err)
		return 0, core.WrapStage(core.ErrExtraction, err)
	}

	chunks, err := chunker.Chunk(extracted.Text, chunker.Source{
		ArticleTitle:   doc.DisplayTitle(),
		SourceFilename: doc.Filename,
		CollectionID:   doc.CollectionID.String(),
		DocumentID:     doc.ID,
		Pages:          extracted.Pages,
	}, p.chunkOptions)
	if err != nil {
		return 0, err
	}
	if len(chunks) == 0 {
		return 0, fmt.Errorf("%w: %w: %s", core.ErrChunking, core.ErrNoChunks, doc.Filename)
	}

	written := 0
	for batch := range slices.Chunk(chunks, p.embedBatchSize) {
		texts := make([]string, len(batch))
		for i, c := range batch {
			texts[i] = c.Text
		}
		vectors, err := p.embedder.EmbedTexts(ctx, texts)
		if err != nil {
			logger.Warn("embedding failed", "err", err)
			return written, core.WrapStage(core.ErrEmbedding, err)
		}
		if len(vectors) != len(batch) {
			err := fmt.Errorf("%w: expected %d, received %d", ai.ErrEmbeddingCountMismatch, len(batch), len(vectors))
			return written, core.WrapStage(core.ErrEmbedding, err)
		}

		entries := make([]index.Entry, len(batch))
		for i, c := range batch {
			entries[i] = index.Entry{Chunk: c, Vector: vectors[i]}
		}
		if err := p.index.UpsertBatch(ctx, entries); err != nil {
			logger.Warn("index upsert failed", "err", err)
			return written, core.WrapStage(core.ErrIndex, err)
		}
		written += len(batch)
	}

	logger.Info("processed document", "chunks", written)
	return written, nil
}
