package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/poiesic/docqa/core"
	"github.com/poiesic/docqa/storage"
	"github.com/uptrace/bun"
)

// CollectionRepository implements storage.CollectionRepository.
type CollectionRepository struct {
	db *bun.DB
}

var _ storage.CollectionRepository = (*CollectionRepository)(nil)

// CreateCollection inserts a collection and assigns its ID.
func (r *CollectionRepository) CreateCollection(ctx context.Context, collection *core.Collection) (*core.Collection, error) {
	if collection.Name == "" {
		return nil, fmt.Errorf("%w: collection name cannot be empty", core.ErrValidation)
	}
	now := time.Now().UTC()
	row := &collectionRow{
		Name:        collection.Name,
		Description: collection.Description,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if _, err := r.db.NewInsert().Model(row).Returning("id").Exec(ctx); err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("%w: collection %q", storage.ErrDuplicateKey, collection.Name)
		}
		return nil, err
	}
	collection.ID = core.ID(row.ID)
	collection.CreatedAt = now
	collection.UpdatedAt = now
	return collection, nil
}

// GetCollection retrieves a collection by ID.
func (r *CollectionRepository) GetCollection(ctx context.Context, id core.ID) (*core.Collection, error) {
	row := new(collectionRow)
	err := r.db.NewSelect().Model(row).Where("id = ?", int64(id)).Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.CollectionNotFound(id)
		}
		return nil, err
	}
	return row.toCore(), nil
}

// ListCollections returns every collection ordered by ID.
func (r *CollectionRepository) ListCollections(ctx context.Context) ([]*core.Collection, error) {
	var rows []collectionRow
	if err := r.db.NewSelect().Model(&rows).Order("id ASC").Scan(ctx); err != nil {
		return nil, err
	}
	results := make([]*core.Collection, len(rows))
	for i := range rows {
		results[i] = rows[i].toCore()
	}
	return results, nil
}

// TouchCollection sets UpdatedAt to now.
func (r *CollectionRepository) TouchCollection(ctx context.Context, id core.ID) error {
	res, err := r.db.NewUpdate().Model((*collectionRow)(nil)).
		Set("updated_at = ?", time.Now().UTC()).
		Where("id = ?", int64(id)).
		Exec(ctx)
	if err != nil {
		return err
	}
	return requireAffected(res, storage.CollectionNotFound(id))
}

// DeleteCollection removes a collection. Documents and history cascade.
func (r *CollectionRepository) DeleteCollection(ctx context.Context, id core.ID) error {
	res, err := r.db.NewDelete().Model((*collectionRow)(nil)).Where("id = ?", int64(id)).Exec(ctx)
	if err != nil {
		return err
	}
	return requireAffected(res, storage.CollectionNotFound(id))
}

// DocumentRepository implements storage.DocumentRepository.
type DocumentRepository struct {
	db *bun.DB
}

var _ storage.DocumentRepository = (*DocumentRepository)(nil)

// AddDocument inserts a document under an existing collection.
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

	now := time.Now().UTC()
	row := &documentRow{
		CollectionID: int64(doc.CollectionID),
		Title:        doc.Title,
		Filename:     doc.Filename,
		FilePath:     doc.FilePath,
		Status:       string(doc.Status),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if _, err := r.db.NewInsert().Model(row).Returning("id").Exec(ctx); err != nil {
		if isForeignKeyViolation(err) {
			return nil, storage.CollectionNotFound(doc.CollectionID)
		}
		return nil, err
	}
	doc.ID = core.ID(row.ID)
	doc.CreatedAt = now
	doc.UpdatedAt = now
	return doc, nil
}

// GetDocument retrieves a document by ID.
func (r *DocumentRepository) GetDocument(ctx context.Context, id core.ID) (*core.Document, error) {
	row := new(documentRow)
	if err := r.db.NewSelect().Model(row).Where("id = ?", int64(id)).Scan(ctx); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.DocumentNotFound(id)
		}
		return nil, err
	}
	return row.toCore(), nil
}

// ListDocuments returns a collection's documents in ID order.
func (r *DocumentRepository) ListDocuments(ctx context.Context, collectionID core.ID) ([]*core.Document, error) {
	var rows []documentRow
	err := r.db.NewSelect().Model(&rows).
		Where("collection_id = ?", int64(collectionID)).
		Order("id ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	results := make([]*core.Document, len(rows))
	for i := range rows {
		results[i] = rows[i].toCore()
	}
	return results, nil
}

// UpdateDocumentStatus moves a document to status if the lifecycle allows it.
func (r *DocumentRepository) UpdateDocumentStatus(ctx context.Context, id core.ID, status core.DocumentStatus) (*core.Document, error) {
	var result *core.Document
	err := r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		row := new(documentRow)
		if err := tx.NewSelect().Model(row).Where("id = ?", int64(id)).For("UPDATE").Scan(ctx); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return storage.DocumentNotFound(id)
			}
			return err
		}
		if err := core.ValidateStatusTransition(core.DocumentStatus(row.Status), status); err != nil {
			return err
		}
		row.Status = string(status)
		row.UpdatedAt = time.Now().UTC()
		if _, err := tx.NewUpdate().Model(row).Column("status", "updated_at").WherePK().Exec(ctx); err != nil {
			return err
		}
		result = row.toCore()
		return nil
	})
	return result, err
}

// DeleteDocument removes a document.
func (r *DocumentRepository) DeleteDocument(ctx context.Context, id core.ID) error {
	res, err := r.db.NewDelete().Model((*documentRow)(nil)).Where("id = ?", int64(id)).Exec(ctx)
	if err != nil {
		return err
	}
	return requireAffected(res, storage.DocumentNotFound(id))
}

// CountDocuments counts documents across all collections.
func (r *DocumentRepository) CountDocuments(ctx context.Context) (int, error) {
	return r.db.NewSelect().Model((*documentRow)(nil)).Count(ctx)
}

// QueryRepository implements storage.QueryRepository.
type QueryRepository struct {
	db *bun.DB
}

var _ storage.QueryRepository = (*QueryRepository)(nil)

// AppendQuery inserts a query record. A zero Timestamp is set to now.
func (r *QueryRepository) AppendQuery(ctx context.Context, record *core.QueryRecord) (*core.QueryRecord, error) {
	if record.Timestamp.IsZero() {
		record.Timestamp = time.Now().UTC()
	}
	row := &queryRow{
		CollectionID: int64(record.CollectionID),
		Question:     record.Question,
		Answer:       record.Answer,
		SourcesCount: record.SourcesCount,
		Timestamp:    record.Timestamp,
	}
	if _, err := r.db.NewInsert().Model(row).Returning("id").Exec(ctx); err != nil {
		if isForeignKeyViolation(err) {
			return nil, storage.CollectionNotFound(record.CollectionID)
		}
		return nil, err
	}
	record.ID = core.ID(row.ID)
	return record, nil
}

// RecentQueries returns up to limit records for a collection, newest first.
func (r *QueryRepository) RecentQueries(ctx context.Context, collectionID core.ID, limit int) ([]*core.QueryRecord, error) {
	if limit <= 0 {
		return []*core.QueryRecord{}, nil
	}
	var rows []queryRow
	err := r.db.NewSelect().Model(&rows).
		Where("collection_id = ?", int64(collectionID)).
		Order("timestamp DESC", "id DESC").
		Limit(limit).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	results := make([]*core.QueryRecord, len(rows))
	for i := range rows {
		results[i] = rows[i].toCore()
	}
	return results, nil
}

// requireAffected returns notFound when res changed no rows.
func requireAffected(res sql.Result, notFound error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return notFound
	}
	return nil
}
