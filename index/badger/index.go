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


package badger

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync/atomic"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/docqa/core"
	"github.com/poiesic/docqa/index"
	kv "github.com/poiesic/docqa/storage/badger"
)

// maxEntriesPerTxn bounds how many chunks one write transaction carries.
const maxEntriesPerTxn = 256

// Index implements index.Index with a brute-force cosine scan over BadgerDB.
// Vectors are normalized on write, so similarity is a dot product.
type Index struct {
	backend *kv.Backend
	name    string
	closed  atomic.Bool
	logger  *slog.Logger
}

var _ index.Index = (*Index)(nil)

// Option configures an Index.
type Option func(*Index)

// WithLogger sets the index logger.
func WithLogger(logger *slog.Logger) Option {
	return func(i *Index) {
		i.logger = logger
	}
}

// New binds the physical index name on a shared backend.
// Closing the index does not close the backend.
func New(backend *kv.Backend, name string, opts ...Option) (*Index, error) {
	if backend == nil {
		return nil, fmt.Errorf("%w: backend is required", core.ErrIndex)
	}
	if name == "" {
		name = index.DefaultName
	}
	i := &Index{
		backend: backend,
		name:    name,
		logger:  slog.Default().With("component", "badger-index", "index", name),
	}
	for _, opt := range opts {
		opt(i)
	}
	return i, nil
}

// Name implements index.Index.
func (i *Index) Name() string {
	return i.name
}

func (i *Index) check() error {
	if i.closed.Load() || i.backend.IsClosed() {
		return index.ErrIndexClosed
	}
	return nil
}

// Upsert implements index.Index.
func (i *Index) Upsert(ctx context.Context, chunk core.Chunk, vector []float32) error {
	return i.UpsertBatch(ctx, []index.Entry{{Chunk: chunk, Vector: vector}})
}

// UpsertBatch implements index.Index.
func (i *Index) UpsertBatch(ctx context.Context, entries []index.Entry) error {
	if len(entries) == 0 {
		return nil
	}
	if err := i.check(); err != nil {
		return err
	}
	for _, e := range entries {
		if err := index.ValidateEntry(e); err != nil {
			return err
		}
	}

	for group := range slices.Chunk(entries, maxEntriesPerTxn) {
		if err := ctx.Err(); err != nil {
			return index.Wrap(err)
		}
		err := i.backend.Update(func(tx *badger.Txn) error {
			for _, e := range group {
				if err := i.put(tx, e); err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			return index.Wrap(err)
		}
	}
	i.logger.Debug("upserted chunks", "count", len(entries))
	return nil
}

// put writes one entry, dropping the document index entry of a replaced
// chunk that belonged to a different document.
func (i *Index) put(tx *badger.Txn, e index.Entry) error {
	c := e.Chunk
	key := makeChunkKey(i.name, c.CollectionID, c.ID)

	item, err := tx.Get(key)
	switch {
	case err == nil:
		var previous index.Entry
		err = item.Value(func(val []byte) error {
			var err error
			previous, err = unmarshalEntry(val)
			return err
		})
		if err != nil {
			return err
		}
		if previous.Chunk.DocumentID != c.DocumentID {
			if err := tx.Delete(makeDocumentKey(i.name, previous.Chunk.DocumentID, c.CollectionID, c.ID)); err != nil {
				return err
			}
		}
	case !errors.Is(err, badger.ErrKeyNotFound):
		return err
	}

	if err := tx.Set(key, marshalEntry(c, index.NormalizeVector(e.Vector))); err != nil {
		return err
	}
	return tx.Set(makeDocumentKey(i.name, c.DocumentID, c.CollectionID, c.ID), nil)
}

// Query implements index.Index.
func (i *Index) Query(ctx context.Context, vector []float32, topK int, collectionFilter string) ([]core.ScoredChunk, error) {
	if err := i.check(); err != nil {
		return nil, err
	}
	if topK <= 0 {
		return []core.ScoredChunk{}, nil
	}
	if len(vector) == 0 {
		return nil, index.ErrEmptyVector
	}

	query := index.NormalizeVector(vector)
	prefix := makeChunkPrefix(i.name)
	if collectionFilter != "" {
		prefix = makeCollectionPrefix(i.name, collectionFilter)
	}

	var results []core.ScoredChunk
	err := i.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			var e index.Entry
			err := iter.Item().Value(func(val []byte) error {
				var err error
				e, err = unmarshalEntry(val)
				return err
			})
			if err != nil {
				return err
			}
			if len(e.Vector) != len(query) {
				i.logger.Warn("skipping chunk with mismatched dimension", "chunk", e.Chunk.ID, "dim", len(e.Vector), "query_dim", len(query))
				continue
			}
			results = append(results, core.ScoredChunk{
				Chunk: e.Chunk,
				Score: index.Dot(query, e.Vector),
			})
		}
		return nil
	}, false)
	if err != nil {
		return nil, index.Wrap(err)
	}

	// Sort by similarity descending, ties by chunk ID for stable output
	slices.SortFunc(results, func(a, b core.ScoredChunk) int {
		switch {
		case a.Score > b.Score:
			return -1
		case a.Score < b.Score:
			return 1
		}
		return cmp.Compare(a.Chunk.ID, b.Chunk.ID)
	})
	if len(results) > topK {
		results = results[:topK]
	}
	if results == nil {
		results = []core.ScoredChunk{}
	}
	return results, nil
}

// DeleteByCollection implements index.Index.
func (i *Index) DeleteByCollection(ctx context.Context, collectionID string) (int, error) {
	if err := i.check(); err != nil {
		return 0, err
	}

	var keys [][]byte
	removed := 0
	err := i.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = makeCollectionPrefix(i.name, collectionID)
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			item := iter.Item()
			var e index.Entry
			err := item.Value(func(val []byte) error {
				var err error
				e, err = unmarshalEntry(val)
				return err
			})
			if err != nil {
				return err
			}
			keys = append(keys,
				item.KeyCopy(nil),
				makeDocumentKey(i.name, e.Chunk.DocumentID, collectionID, e.Chunk.ID),
			)
			removed++
		}
		return nil
	}, false)
	if err != nil {
		return 0, index.Wrap(err)
	}

	if err := i.backend.DeleteKeys(keys); err != nil {
		return 0, index.Wrap(err)
	}
	i.logger.Info("deleted collection chunks", "collection", collectionID, "count", removed)
	return removed, nil
}

// DeleteByDocument implements index.Index.
func (i *Index) DeleteByDocument(ctx context.Context, documentID core.ID) (int, error) {
	if err := i.check(); err != nil {
		return 0, err
	}

	docKeys, err := i.backend.ScanKeys(makeDocumentPrefix(i.name, documentID))
	if err != nil {
		return 0, index.Wrap(err)
	}
	keys := make([][]byte, 0, 2*len(docKeys))
	for _, k := range docKeys {
		keys = append(keys, k, chunkKeyFromDocumentKey(i.name, k))
	}
	if err := i.backend.DeleteKeys(keys); err != nil {
		return 0, index.Wrap(err)
	}
	i.logger.Debug("deleted document chunks", "document", documentID, "count", len(docKeys))
	return len(docKeys), nil
}

// Stats implements index.Index.
func (i *Index) Stats(ctx context.Context) (index.Stats, error) {
	if err := i.check(); err != nil {
		return index.Stats{}, err
	}
	count, err := i.backend.CountKeys(makeChunkPrefix(i.name))
	if err != nil {
		return index.Stats{}, index.Wrap(err)
	}
	return index.Stats{IndexName: i.name, TotalChunks: count}, nil
}

// Close implements index.Index. The shared backend stays open.
func (i *Index) Close() error {
	i.closed.Store(true)
	return nil
}
