package postgres

import (
	"time"

	"github.com/poiesic/docqa/core"
	"github.com/uptrace/bun"
)

type collectionRow struct {
	bun.BaseModel `bun:"table:collections,alias:c"`

	ID          int64     `bun:"id,pk,autoincrement"`
	Name        string    `bun:"name,notnull,unique"`
	Description string    `bun:"description,notnull,default:''"`
	CreatedAt   time.Time `bun:"created_at,notnull"`
	UpdatedAt   time.Time `bun:"updated_at,notnull"`
}

func (r *collectionRow) toCore() *core.Collection {
	return &core.Collection{
		ID:          core.ID(r.ID),
		Name:        r.Name,
		Description: r.Description,
		CreatedAt:   r.CreatedAt.UTC(),
		UpdatedAt:   r.UpdatedAt.UTC(),
	}
}

type documentRow struct {
	bun.BaseModel `bun:"table:documents,alias:d"`

	ID           int64     `bun:"id,pk,autoincrement"`
	CollectionID int64     `bun:"collection_id,notnull"`
	Title        string    `bun:"title,notnull,default:''"`
	Filename     string    `bun:"filename,notnull"`
	FilePath     string    `bun:"file_path,notnull"`
	Status       string    `bun:"status,notnull"`
	CreatedAt    time.Time `bun:"created_at,notnull"`
	UpdatedAt    time.Time `bun:"updated_at,notnull"`
}

func (r *documentRow) toCore() *core.Document {
	return &core.Document{
		ID:           core.ID(r.ID),
		CollectionID: core.ID(r.CollectionID),
		Title:        r.Title,
		Filename:     r.Filename,
		FilePath:     r.FilePath,
		Status:       core.DocumentStatus(r.Status),
		CreatedAt:    r.CreatedAt.UTC(),
		UpdatedAt:    r.UpdatedAt.UTC(),
	}
}

type queryRow struct {
	bun.BaseModel `bun:"table:query_history,alias:q"`

	ID           int64     `bun:"id,pk,autoincrement"`
	CollectionID int64     `bun:"collection_id,notnull"`
	Question     string    `bun:"question_text,notnull"`
	Answer       string    `bun:"answer_text,notnull"`
	SourcesCount int       `bun:"sources_count,notnull"`
	Timestamp    time.Time `bun:"timestamp,notnull"`
}

func (r *queryRow) toCore() *core.QueryRecord {
	return &core.QueryRecord{
		ID:           core.ID(r.ID),
		CollectionID: core.ID(r.CollectionID),
		Question:     r.Question,
		Answer:       r.Answer,
		SourcesCount: r.SourcesCount,
		Timestamp:    r.Timestamp.UTC(),
	}
}
