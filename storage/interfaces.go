package storage

import (
	"context"

	"github.com/poiesic/docqa/core"
)

// CollectionRepository provides operations for managing collections.
// Implementations must be thread-safe and support concurrent access.
type CollectionRepository interface {
	// CreateCollection stores a new collection and assigns its ID.
	// Returns ErrDuplicateKey if the name is already taken.
	CreateCollection(ctx context.Context, collection *core.Collection) (*core.Collection, error)

	// GetCollection retrieves a collection by ID.
	// Returns ErrNotFound if the collection doesn't exist.
	GetCollection(ctx context.Context, id core.ID) (*core.Collection, error)

	// ListCollections returns every collection ordered by ID.
	ListCollections(ctx context.Context) ([]*core.Collection, error)

	// TouchCollection sets UpdatedAt to the current time.
	// Returns ErrNotFound if the collection doesn't exist.
	TouchCollection(ctx context.Context, id core.ID) error

	// DeleteCollection removes a collection together with its documents and query history.
	// Returns ErrNotFound if the collection doesn't exist.
	DeleteCollection(ctx context.Context, id core.ID) error
}

// DocumentRepository provides operations for managing documents.
type DocumentRepository interface {
	// AddDocument stores a new document and assigns its ID.
	// An empty Status is stored as pending.
	AddDocument(ctx context.Context, doc *core.Document) (*core.Document, error)

	// GetDocument retrieves a document by ID.
	// Returns ErrNotFound if the document doesn't exist.
	GetDocument(ctx context.Context, id core.ID) (*core.Document, error)

	// ListDocuments returns the documents of a collection ordered by ID.
	ListDocuments(ctx context.Context, collectionID core.ID) ([]*core.Document, error)

	// UpdateDocumentStatus moves a document to status.
	// Returns core.ErrInvalidStatusTransition for transitions the lifecycle forbids.
	UpdateDocumentStatus(ctx context.Context, id core.ID, status core.DocumentStatus) (*core.Document, error)

	// DeleteDocument removes a document.
	// Returns ErrNotFound if the document doesn't exist.
	DeleteDocument(ctx context.Context, id core.ID) error

	// CountDocuments returns the number of documents across all collections.
	CountDocuments(ctx context.Context) (int, error)
}

// QueryRepository is the append-only sink for answered questions.
type QueryRepository interface {
	// AppendQuery stores a query record and assigns its ID.
	AppendQuery(ctx context.Context, record *core.QueryRecord) (*core.QueryRecord, error)

	// RecentQueries returns up to limit records for a collection, newest first.
	RecentQueries(ctx context.Context, collectionID core.ID, limit int) ([]*core.QueryRecord, error)
}

// EmbeddingCacheRepository persists embedding vectors by opaque key.
type EmbeddingCacheRepository interface {
	// GetEmbeddings returns the cached vectors for the keys that are present.
	GetEmbeddings(ctx context.Context, keys ...string) (map[string][]float32, error)

	// PutEmbeddings stores vectors by key, overwriting existing entries.
	PutEmbeddings(ctx context.Context, entries map[string][]float32) error
}

// RecordStore bundles the relational collaborators of the pipeline.
type RecordStore interface {
	Collections() CollectionRepository
	Documents() DocumentRepository
	Queries() QueryRepository

	// Close releases the store's resources.
	Close() error
}
