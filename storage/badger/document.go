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

// DocumentRepository implements storage.DocumentRepository for BadgerDB.
type DocumentRepository struct {
	backend *Backend
	idSeq   *badger.Sequence
}

var _ storage.DocumentRepository = (*DocumentRepository)(nil)

// NewDocumentRepository creates a new DocumentRepository.
func NewDocumentRepository(backend *Backend) (*DocumentRepository, error) {
	idSeq, err := backend.GetSequence(documentIDSeq)
	if err != nil {
		return nil, err
	}
	return &DocumentRepository{
		backend: backend,
		idSeq:   idSeq,
	}, nil
}

// Close releases the ID sequence.
func (r *DocumentRepository) Close() error {
	return r.idSeq.Release()
}

// AddDocument stores a document under an existing collection.
func (r *DocumentRepository) AddDocument(ctx context.Context, doc *core.Document) (*core.Document, error) {
	if doc.Filename == "" {
		return nil, fmt.Errorf("%w: document filename cannot be empty", core.ErrValidation)
	}
	if doc.Status == "" {
		doc.Status = core.DocumentStatusPending
	}
	if err := core.ValidateDocumentStatus(doc.Status); err != nil {
		return nil, err
	}
	id, err := nextID(r.idSeq)
	if err != nil {
		return nil, err
	}

	err = r.backend.Update(func(tx *badger.Txn) error {
		if _, err := readCollection(tx, doc.CollectionID); err != nil {
			return err
		}

		doc.ID = core.ID(id)
		doc.CreatedAt = time.Now().UTC()
		doc.UpdatedAt = doc.CreatedAt

		if err := tx.Set(makeDocumentKey(doc.ID), storage.MarshalDocument(doc)); err != nil {
			return err
		}
		return tx.Set(makeDocumentByCollectionKey(doc.CollectionID, doc.ID), storage.MarshalID(doc.ID))
	})
	if err != nil {
		return nil, err
	}
	return doc, nil
}

// GetDocument retrieves a document by ID.
func (r *DocumentRepository) GetDocument(ctx context.Context, id core.ID) (*core.Document, error) {
	var result *core.Document
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		var err error
		result, err = readDocument(tx, id)
		return err
	}, false)
	return result, err
}

// ListDocuments returns a collection's documents in ID order.
func (r *DocumentRepository) ListDocuments(ctx context.Context, collectionID core.ID) ([]*core.Document, error) {
	var results []*core.Document
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = makePartialDocumentByCollectionKey(collectionID)
		opts.PrefetchValues = false
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			docID := core.ID(binary64Suffix(iter.Item().Key()))
			doc, err := readDocument(tx, docID)
			if err != nil {
				// Index entry without a record; skip it
				if errors.Is(err, storage.ErrNotFound) {
					continue
				}
				return err
			}
			results = append(results, doc)
		}
		return nil
	}, false)
	return results, err
}

// UpdateDocumentStatus moves a document to status if the lifecycle allows it.
func (r *DocumentRepository) UpdateDocumentStatus(ctx context.Context, id core.ID, status core.DocumentStatus) (*core.Document, error) {
	var result *core.Document
	err := r.backend.Update(func(tx *badger.Txn) error {
		doc, err := readDocument(tx, id)
		if err != nil {
			return err
		}
		if err := core.ValidateStatusTransition(doc.Status, status); err != nil {
			return err
		}
		doc.Status = status
		doc.UpdatedAt = time.Now().UTC()
		result = doc
		return tx.Set(makeDocumentKey(id), storage.MarshalDocument(doc))
	})
	return result, err
}

// DeleteDocument removes a document and its collection index entry.
func (r *DocumentRepository) DeleteDocument(ctx context.Context, id core.ID) error {
	return r.backend.Update(func(tx *badger.Txn) error {
		doc, err := readDocument(tx, id)
		if err != nil {
			return err
		}
		if err := tx.Delete(makeDocumentByCollectionKey(doc.CollectionID, id)); err != nil {
			return err
		}
		return tx.Delete(makeDocumentKey(id))
	})
}

// CountDocuments counts documents across all collections.
func (r *DocumentRepository) CountDocuments(ctx context.Context) (int, error) {
	return r.backend.CountKeys([]byte(documentPrefix))
}

// readDocument reads a document from the transaction.
func readDocument(tx *badger.Txn, id core.ID) (*core.Document, error) {
	item, err := tx.Get(makeDocumentKey(id))
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, storage.DocumentNotFound(id)
		}
		return nil, err
	}
	var doc *core.Document
	err = item.Value(func(val []byte) error {
		var unmarshalErr error
		doc, unmarshalErr = storage.UnmarshalDocument(val)
		return unmarshalErr
	})
	return doc, err
}
