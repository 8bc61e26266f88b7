package badger

import (
	"context"
	"errors"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/docqa/storage"
)

// EmbeddingCacheRepository implements storage.EmbeddingCacheRepository for BadgerDB.
type EmbeddingCacheRepository struct {
	backend *Backend
}

var _ storage.EmbeddingCacheRepository = (*EmbeddingCacheRepository)(nil)

// NewEmbeddingCacheRepository creates a new EmbeddingCacheRepository.
func NewEmbeddingCacheRepository(backend *Backend) *EmbeddingCacheRepository {
	return &EmbeddingCacheRepository{
		backend: backend,
	}
}

// GetEmbeddings returns the cached vectors for keys that are present.
func (r *EmbeddingCacheRepository) GetEmbeddings(ctx context.Context, keys ...string) (map[string][]float32, error) {
	result := make(map[string][]float32, len(keys))
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		for _, key := range keys {
			item, err := tx.Get(makeEmbeddingCacheKey(key))
			if err != nil {
				if errors.Is(err, badger.ErrKeyNotFound) {
					continue
				}
				return err
			}
			err = item.Value(func(val []byte) error {
				v, err := storage.UnmarshalVector(val)
				if err != nil {
					return err
				}
				result[key] = v
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	}, false)
	return result, err
}

// PutEmbeddings stores vectors by key in a single write batch.
func (r *EmbeddingCacheRepository) PutEmbeddings(ctx context.Context, entries map[string][]float32) error {
	if len(entries) == 0 {
		return nil
	}
	wb := r.backend.db.NewWriteBatch()
	defer wb.Cancel()
	for key, v := range entries {
		if err := wb.Set(makeEmbeddingCacheKey(key), storage.MarshalVector(v)); err != nil {
			return err
		}
	}
	return wb.Flush()
}

// Len returns the number of cached vectors.
func (r *EmbeddingCacheRepository) Len() (int, error) {
	return r.backend.CountKeys([]byte(embeddingCachePrefix))
}
