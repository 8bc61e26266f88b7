package badger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/docqa/core"
	"github.com/poiesic/docqa/storage"
)

// CollectionRepository implements storage.CollectionRepository for BadgerDB.
type CollectionRepository struct {
	backend *Backend
	idSeq   *badger.Sequence
}

var _ storage.CollectionRepository = (*CollectionRepository)(nil)

// NewCollectionRepository creates a new CollectionRepository.
func NewCollectionRepository(backend *Backend) (*CollectionRepository, error) {
	idSeq, err := backend.GetSequence(collectionIDSeq)
	if err != nil {
		return nil, err
	}
	return &CollectionRepository{
		backend: backend,
		idSeq:   idSeq,
	}, nil
}

// Close releases the ID sequence.
func (r *CollectionRepository) Close() error {
	return r.idSeq.Release()
}

// CreateCollection stores a new collection with a fresh ID.
func (r *CollectionRepository) CreateCollection(ctx context.Context, collection *core.Collection) (*core.Collection, error) {
	if collection.Name == "" {
		return nil, fmt.Errorf("%w: collection name cannot be empty", core.ErrValidation)
	}
	id, err := nextID(r.idSeq)
	if err != nil {
		return nil, err
	}

	err = r.backend.Update(func(tx *badger.Txn) error {
		nameKey := makeCollectionNameKey(collection.Name)
		if _, err := tx.Get(nameKey); err == nil {
			return fmt.Errorf("%w: collection %q", storage.ErrDuplicateKey, collection.Name)
		} else if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}

		collection.ID = core.ID(id)
		collection.CreatedAt = time.Now().UTC()
		collection.UpdatedAt = collection.CreatedAt

		if err := tx.Set(makeCollectionKey(collection.ID), storage.MarshalCollection(collection)); err != nil {
			return err
		}
		return tx.Set(nameKey, storage.MarshalID(collection.ID))
	})
	if err != nil {
		return nil, err
	}
	return collection, nil
}

// GetCollection retrieves a collection by ID.
func (r *CollectionRepository) GetCollection(ctx context.Context, id core.ID) (*core.Collection, error) {
	var result *core.Collection
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		var err error
		result, err = readCollection(tx, id)
		return err
	}, false)
	return result, err
}

// ListCollections returns every collection ordered by ID.
func (r *CollectionRepository) ListCollections(ctx context.Context) ([]*core.Collection, error) {
	var results []*core.Collection
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(collectionPrefix)
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			err := iter.Item().Value(func(val []byte) error {
				c, err := storage.UnmarshalCollection(val)
				if err != nil {
					return err
				}
				results = append(results, c)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	}, false)
	return results, err
}

// TouchCollection sets UpdatedAt to now.
func (r *CollectionRepository) TouchCollection(ctx context.Context, id core.ID) error {
	return r.backend.Update(func(tx *badger.Txn) error {
		c, err := readCollection(tx, id)
		if err != nil {
			return err
		}
		c.UpdatedAt = time.Now().UTC()
		return tx.Set(makeCollectionKey(id), storage.MarshalCollection(c))
	})
}

// DeleteCollection removes the collection, its documents and its query history.
func (r *CollectionRepository) DeleteCollection(ctx context.Context, id core.ID) error {
	var c *core.Collection
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		var err error
		c, err = readCollection(tx, id)
		return err
	}, false)
	if err != nil {
		return err
	}

	var keys [][]byte
	docIndex, err := r.backend.ScanKeys(makePartialDocumentByCollectionKey(id))
	if err != nil {
		return err
	}
	for _, k := range docIndex {
		docID := binary64Suffix(k)
		keys = append(keys, k, makeDocumentKey(core.ID(docID)))
	}
	queryIndex, err := r.backend.ScanKeys(makePartialQueryByCollectionKey(id))
	if err != nil {
		return err
	}
	for _, k := range queryIndex {
		keys = append(keys, k, makeQueryKey(core.ID(binary64Suffix(k))))
	}
	keys = append(keys, makeCollectionNameKey(c.Name), makeCollectionKey(id))
	return r.backend.DeleteKeys(keys)
}

// readCollection reads a collection from the transaction.
func readCollection(tx *badger.Txn, id core.ID) (*core.Collection, error) {
	item, err := tx.Get(makeCollectionKey(id))
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, storage.CollectionNotFound(id)
		}
		return nil, err
	}
	var c *core.Collection
	err = item.Value(func(val []byte) error {
		var unmarshalErr error
		c, unmarshalErr = storage.UnmarshalCollection(val)
		return unmarshalErr
	})
	return c, err
}
