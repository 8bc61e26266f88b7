package badger

import (
	"errors"

	"github.com/poiesic/docqa/storage"
)

// RecordStore implements storage.RecordStore over a shared Backend.
// Closing the store releases its ID sequences; the Backend stays open
// because the vector index and embedding cache may share it.
type RecordStore struct {
	collections *CollectionRepository
	documents   *DocumentRepository
	queries     *QueryRepository
}

var _ storage.RecordStore = (*RecordStore)(nil)

// OpenRecordStore builds the collection, document and query repositories on backend.
func OpenRecordStore(backend *Backend) (*RecordStore, error) {
	if backend.IsClosed() {
		return nil, storage.ErrStorageClosed
	}
	collections, err := NewCollectionRepository(backend)
	if err != nil {
		return nil, err
	}
	documents, err := NewDocumentRepository(backend)
	if err != nil {
		collections.Close()
		return nil, err
	}
	queries, err := NewQueryRepository(backend)
	if err != nil {
		documents.Close()
		collections.Close()
		return nil, err
	}
	return &RecordStore{
		collections: collections,
		documents:   documents,
		queries:     queries,
	}, nil
}

func (s *RecordStore) Collections() storage.CollectionRepository { return s.collections }

func (s *RecordStore) Documents() storage.DocumentRepository { return s.documents }

func (s *RecordStore) Queries() storage.QueryRepository { return s.queries }

// Close releases the repositories' sequences.
func (s *RecordStore) Close() error {
	return errors.Join(
		s.queries.Close(),
		s.documents.Close(),
		s.collections.Close(),
	)
}
