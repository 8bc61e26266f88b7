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


package index

import (
	"context"
	"log/slog"

	"github.com/poiesic/docqa/core"
)

// DefaultName is the physical index used when none is configured.
const DefaultName = "pdf_chunks"

// Entry pairs a chunk with its embedding for writing.
type Entry struct {
	Chunk  core.Chunk
	Vector []float32
}

// Stats summarizes an index.
type Stats struct {
	IndexName   string `json:"index_name"`
	TotalChunks int    `json:"total_chunks"`
}

// Index stores chunk embeddings for many collections in one physical index.
// Every chunk carries its collection_id so that queries and deletes can be
// scoped to a single tenant. Implementations must be thread-safe.
type Index interface {
	// Name returns the physical index name.
	Name() string

	// Upsert inserts or replaces one chunk. Concurrent upserts of the same
	// chunk ID resolve last-write-wins.
	Upsert(ctx context.Context, chunk core.Chunk, vector []float32) error

	// UpsertBatch inserts or replaces many chunks. An empty batch is a no-op.
	UpsertBatch(ctx context.Context, entries []Entry) error

	// Query returns up to topK chunks ordered by descending cosine similarity.
	// A non-empty collectionFilter restricts results to that collection_id.
	Query(ctx context.Context, vector []float32, topK int, collectionFilter string) ([]core.ScoredChunk, error)

	// DeleteByCollection removes every chunk of a collection and returns how many were removed.
	DeleteByCollection(ctx context.Context, collectionID string) (int, error)

	// DeleteByDocument removes every chunk of a document and returns how many were removed.
	DeleteByDocument(ctx context.Context, documentID core.ID) (int, error)

	// Stats reports the index name and chunk count.
	Stats(ctx context.Context) (Stats, error)

	// Close releases the index. The index must not be used afterwards.
	Close() error
}

// QueryOrEmpty runs idx.Query and degrades any error to an empty result.
// The error is logged when logger is non-nil.
func QueryOrEmpty(ctx context.Context, idx Index, logger *slog.Logger, vector []float32, topK int, collectionFilter string) []core.ScoredChunk {
	hits, err := idx.Query(ctx, vector, topK, collectionFilter)
	if err != nil {
		if logger != nil {
			logger.Error("error querying index", "index", idx.Name(), "err", err)
		}
		return []core.ScoredChunk{}
	}
	return hits
}
