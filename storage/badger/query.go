package badger

import (
	"bytes"
	"context"
	"errors"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/docqa/core"
	"github.com/poiesic/docqa/storage"
)

// QueryRepository implements storage.QueryRepository for BadgerDB.
type QueryRepository struct {
	backend *Backend
	idSeq   *badger.Sequence
}

var _ storage.QueryRepository = (*QueryRepository)(nil)

// NewQueryRepository creates a new QueryRepository.
func NewQueryRepository(backend *Backend) (*QueryRepository, error) {
	idSeq, err := backend.GetSequence(queryIDSeq)
	if err != nil {
		return nil, err
	}
	return &QueryRepository{
		backend: backend,
		idSeq:   idSeq,
	}, nil
}

// Close releases the ID sequence.
func (r *QueryRepository) Close() error {
	return r.idSeq.Release()
}

// AppendQuery stores a query record. A zero Timestamp is set to now.
func (r *QueryRepository) AppendQuery(ctx context.Context, record *core.QueryRecord) (*core.QueryRecord, error) {
	id, err := nextID(r.idSeq)
	if err != nil {
		return nil, err
	}
	record.ID = core.ID(id)
	if record.Timestamp.IsZero() {
		record.Timestamp = time.Now().UTC()
	}

	err = r.backend.Update(func(tx *badger.Txn) error {
		if err := tx.Set(makeQueryKey(record.ID), storage.MarshalQueryRecord(record)); err != nil {
			return err
		}
		dateKey := makeQueryByCollectionKey(record.CollectionID, record.Timestamp, record.ID)
		return tx.Set(dateKey, storage.MarshalID(record.ID))
	})
	if err != nil {
		return nil, err
	}
	return record, nil
}

// RecentQueries returns up to limit records for a collection, newest first.
func (r *QueryRepository) RecentQueries(ctx context.Context, collectionID core.ID, limit int) ([]*core.QueryRecord, error) {
	if limit <= 0 {
		return []*core.QueryRecord{}, nil
	}

	var results []*core.QueryRecord
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		// Use reverse iterator to get most recent records first
		opts := badger.DefaultIteratorOptions
		opts.Reverse = true
		opts.PrefetchValues = false
		iter := tx.NewIterator(opts)
		defer iter.Close()

		prefix := makePartialQueryByCollectionKey(collectionID)
		// Seek past the last possible key with this prefix
		startKey := append(bytes.Clone(prefix), bytes.Repeat([]byte{0xff}, 16)...)

		for iter.Seek(startKey); iter.Valid() && len(results) < limit; iter.Next() {
			key := iter.Item().Key()
			if !bytes.HasPrefix(key, prefix) {
				break
			}
			record, err := readQuery(tx, core.ID(binary64Suffix(key)))
			if err != nil {
				return err
			}
			if record != nil {
				results = append(results, record)
			}
		}
		return nil
	}, false)

	return results, err
}

// readQuery reads a query record from the transaction. Returns nil, nil if missing.
func readQuery(tx *badger.Txn, id core.ID) (*core.QueryRecord, error) {
	item, err := tx.Get(makeQueryKey(id))
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, nil
		}
		return nil, err
	}
	var record *core.QueryRecord
	err = item.Value(func(val []byte) error {
		var unmarshalErr error
		record, unmarshalErr = storage.UnmarshalQueryRecord(val)
		return unmarshalErr
	})
	return record, err
}
