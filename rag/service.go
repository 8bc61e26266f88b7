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


package rag

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/poiesic/docqa/ai"
	"github.com/poiesic/docqa/answer"
	"github.com/poiesic/docqa/core"
	"github.com/poiesic/docqa/index"
	"github.com/poiesic/docqa/storage"
)

// DefaultTopK is the number of chunks retrieved when the caller asks for none.
const DefaultTopK = 5

// Service orchestrates retrieval and answer generation.
type Service struct {
	records   storage.RecordStore
	embedder  ai.Embedder
	index     index.Index
	generator *answer.Generator
	topK      int
	logger    *slog.Logger
}

// Option configures a Service.
type Option func(*Service) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) error {
		if logger == nil {
			logger = slog.Default()
		}
		s.logger = logger
		return nil
	}
}

// WithDefaultTopK sets the retrieval depth used when a call passes topK <= 0.
func WithDefaultTopK(k int) Option {
	return func(s *Service) error {
		if k < 1 {
			return fmt.Errorf("%w: top-k must be positive, got %d", core.ErrValidation, k)
		}
		s.topK = k
		return nil
	}
}

// NewService creates a new question answering service.
func NewService(
	records storage.RecordStore,
	embedder ai.Embedder,
	idx index.Index,
	generator *answer.Generator,
	opts ...Option,
) (*Service, error) {
	if records == nil {
		return nil, ErrRecordStoreRequired
	}
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}
	if idx == nil {
		return nil, ErrIndexRequired
	}
	if generator == nil {
		return nil, ErrGeneratorRequired
	}

	s := &Service{
		records:   records,
		embedder:  embedder,
		index:     idx,
		generator: generator,
		topK:      DefaultTopK,
		logger:    slog.Default().With("component", "rag"),
	}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// AnswerQuestion answers question from the chunks of a collection.
// topK <= 0 uses the service default.
func (s *Service) AnswerQuestion(ctx context.Context, collectionID core.ID, question string, topK int) *Answer {
	return s.AnswerQuestionWithMonitor(ctx, collectionID, question, topK, nil)
}

// AnswerQuestionWithMonitor answers like AnswerQuestion and reports each stage to monitor.
func (s *Service) AnswerQuestionWithMonitor(ctx context.Context, collectionID core.ID, question string, topK int, monitor Monitor) *Answer {
	if monitor == nil {
		monitor = &noopMonitor{}
	}
	if topK <= 0 {
		topK = s.topK
	}
	monitor.Start(collectionID, question)

	result := s.answer(ctx, collectionID, question, topK, monitor)
	if result.Sources == nil {
		result.Sources = []Source{}
	}
	monitor.Finish(result)
	return result
}

func (s *Service) answer(ctx context.Context, collectionID core.ID, question string, topK int, monitor Monitor) *Answer {
	q, err := core.ValidateQuestion(question)
	if err != nil {
		return &Answer{Error: questionMessage(err), Question: question}
	}

	collection, err := s.records.Collections().GetCollection(ctx, collectionID)
	if err != nil {
		if errors.Is(err, core.ErrCollectionNotFound) {
			return &Answer{Error: fmt.Sprintf("Collection with ID %d not found", collectionID), Question: q}
		}
		s.logger.Error("error resolving collection", "collection", collectionID, "err", err)
		return &Answer{Error: fmt.Sprintf("RAG pipeline error: %v", err), Answer: ErrorAnswer, Question: q}
	}
	logger := s.logger.With("collection", collection.ID, "name", collection.Name)
	logger.Info("processing question")

	vector, err := s.embedder.EmbedText(ctx, q)
	if err != nil {
		err = core.WrapStage(core.ErrEmbedding, err)
		logger.Error("error generating embedding for question", "err", err)
		return &Answer{Error: fmt.Sprintf("RAG pipeline error: %v", err), Answer: ErrorAnswer, Question: q}
	}
	monitor.AfterEmbedding(vector)

	hits := s.retrieve(ctx, logger, vector, topK, collection.TenantKey())
	monitor.AfterRetrieval(hits)

	chunks := make([]core.Chunk, len(hits))
	sources := make([]Source, len(hits))
	for i, hit := range hits {
		chunks[i] = hit.Chunk
		sources[i] = newSource(hit)
	}

	prompt := answer.BuildPrompt(q, chunks, collection.Name)
	monitor.AfterPrompt(prompt)

	raw, err := s.generator.Generate(ctx, prompt)
	monitor.AfterGeneration(raw, err)
	if err != nil {
		// No-result: Postprocess turns the empty text into the refusal
		logger.Warn("no answer generated", "err", err)
		raw = ""
	}
	final := answer.Postprocess(raw)

	s.recordQuery(ctx, logger, &core.QueryRecord{
		CollectionID: collection.ID,
		Question:     q,
		Answer:       final,
		SourcesCount: len(hits),
	})

	return &Answer{
		Success:        true,
		Answer:         final,
		Sources:        sources,
		CollectionName: collection.Name,
		SourcesCount:   len(hits),
		Question:       q,
	}
}

// retrieve queries the index. Failures are logged and yield no hits.
func (s *Service) retrieve(ctx context.Context, logger *slog.Logger, vector []float32, topK int, tenant string) []core.ScoredChunk {
	hits := index.QueryOrEmpty(ctx, s.index, logger, vector, topK, tenant)
	logger.Info("retrieved relevant chunks", "count", len(hits))
	return hits
}

// recordQuery appends to the query history. Failures never reach the caller.
func (s *Service) recordQuery(ctx context.Context, logger *slog.Logger, record *core.QueryRecord) {
	if _, err := s.records.Queries().AppendQuery(ctx, record); err != nil {
		logger.Error("failed to save query history", "err", err)
		return
	}
	logger.Debug("query history saved")
}

// Summary describes what a collection offers for questions.
type Summary struct {
	CollectionID   core.ID   `json:"collection_id"`
	CollectionName string    `json:"collection_name"`
	Description    string    `json:"description"`
	DocumentCount  int       `json:"pdf_count"`
	TotalChunks    int       `json:"total_chunks_in_index"`
	CreatedAt      time.Time `json:"created_at"`
}

// CollectionSummary returns the collection's document count and the index size.
func (s *Service) CollectionSummary(ctx context.Context, collectionID core.ID) (*Summary, error) {
	collection, err := s.records.Collections().GetCollection(ctx, collectionID)
	if err != nil {
		return nil, err
	}
	docs, err := s.records.Documents().ListDocuments(ctx, collectionID)
	if err != nil {
		return nil, err
	}
	stats, err := s.index.Stats(ctx)
	if err != nil {
		s.logger.Warn("error reading index stats", "err", err)
	}
	return &Summary{
		CollectionID:   collection.ID,
		CollectionName: collection.Name,
		Description:    collection.Description,
		DocumentCount:  len(docs),
		TotalChunks:    stats.TotalChunks,
		CreatedAt:      collection.CreatedAt,
	}, nil
}

// RecentQueries returns up to limit answered questions, newest first.
// Failures are logged and yield an empty list.
func (s *Service) RecentQueries(ctx context.Context, collectionID core.ID, limit int) []*core.QueryRecord {
	records, err := s.records.Queries().RecentQueries(ctx, collectionID, limit)
	if err != nil {
		s.logger.Error("error getting recent queries", "collection", collectionID, "err", err)
		return []*core.QueryRecord{}
	}
	if records == nil {
		records = []*core.QueryRecord{}
	}
	return records
}

// Health reports generator reachability and the index size.
type Health struct {
	GeneratorReachable bool        `json:"generator_reachable"`
	Index              index.Stats `json:"index"`
	IndexError         string      `json:"index_error,omitempty"`
}

// Health checks the generation backend and reads index statistics.
func (s *Service) Health(ctx context.Context) *Health {
	h := &Health{GeneratorReachable: s.generator.Health(ctx)}
	stats, err := s.index.Stats(ctx)
	if err != nil {
		h.IndexError = err.Error()
	}
	h.Index = stats
	return h
}
