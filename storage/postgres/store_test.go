package postgres

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/poiesic/docqa/core"
	"github.com/poiesic/docqa/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun/driver/pgdriver"
)

// openTestStore connects to DOCQA_TEST_POSTGRES_DSN or skips the test.
func openTestStore(t *testing.T) *Store {
	t.Helper()
	dsn := os.Getenv("DOCQA_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("DOCQA_TEST_POSTGRES_DSN not set")
	}
	s, err := Open(context.Background(), dsn)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func uniqueName(t *testing.T) string {
	return fmt.Sprintf("%s-%d", t.Name(), time.Now().UnixNano())
}

func TestRowConversion(t *testing.T) {
	ts := time.Date(2025, 3, 1, 12, 0, 0, 0, time.FixedZone("CET", 3600))

	c := (&collectionRow{ID: 3, Name: "papers", Description: "d", CreatedAt: ts, UpdatedAt: ts}).toCore()
	assert.Equal(t, core.ID(3), c.ID)
	assert.Equal(t, time.UTC, c.CreatedAt.Location())
	assert.True(t, c.CreatedAt.Equal(ts))

	d := (&documentRow{ID: 9, CollectionID: 3, Filename: "a.pdf", Status: "failed", CreatedAt: ts, UpdatedAt: ts}).toCore()
	assert.Equal(t, core.DocumentStatusFailed, d.Status)
	assert.Equal(t, core.ID(3), d.CollectionID)

	q := (&queryRow{ID: 1, CollectionID: 3, Question: "q", Answer: "a", SourcesCount: 2, Timestamp: ts}).toCore()
	assert.Equal(t, 2, q.SourcesCount)
	assert.Equal(t, "q", q.Question)
}

func TestErrorClassification(t *testing.T) {
	assert.False(t, isUniqueViolation(fmt.Errorf("plain")))
	assert.False(t, isForeignKeyViolation(nil))
	assert.False(t, isUniqueViolation(pgdriver.Error{}))
}

func TestStore_Collections(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	name := uniqueName(t)

	c, err := s.Collections().CreateCollection(ctx, &core.Collection{Name: name})
	require.NoError(t, err)
	assert.NotZero(t, c.ID)

	_, err = s.Collections().CreateCollection(ctx, &core.Collection{Name: name})
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)

	got, err := s.Collections().GetCollection(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, name, got.Name)

	require.NoError(t, s.Collections().TouchCollection(ctx, c.ID))
	require.NoError(t, s.Collections().DeleteCollection(ctx, c.ID))

	_, err = s.Collections().GetCollection(ctx, c.ID)
	assert.ErrorIs(t, err, core.ErrCollectionNotFound)
	assert.ErrorIs(t, s.Collections().DeleteCollection(ctx, c.ID), storage.ErrNotFound)
}

func TestStore_DocumentsAndQueries(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	c, err := s.Collections().CreateCollection(ctx, &core.Collection{Name: uniqueName(t)})
	require.NoError(t, err)

	doc, err := s.Documents().AddDocument(ctx, &core.Document{CollectionID: c.ID, Filename: "a.pdf", FilePath: "/tmp/a.pdf"})
	require.NoError(t, err)
	assert.Equal(t, core.DocumentStatusPending, doc.Status)

	_, err = s.Documents().AddDocument(ctx, &core.Document{CollectionID: 0, Filename: "b.pdf"})
	assert.ErrorIs(t, err, core.ErrCollectionNotFound)

	updated, err := s.Documents().UpdateDocumentStatus(ctx, doc.ID, core.DocumentStatusProcessed)
	require.NoError(t, err)
	assert.Equal(t, core.DocumentStatusProcessed, updated.Status)

	_, err = s.Documents().UpdateDocumentStatus(ctx, doc.ID, core.DocumentStatusPending)
	assert.ErrorIs(t, err, core.ErrInvalidStatusTransition)

	docs, err := s.Documents().ListDocuments(ctx, c.ID)
	require.NoError(t, err)
	require.Len(t, docs, 1)

	base := time.Now().UTC().Truncate(time.Millisecond)
	for i := range 3 {
		_, err := s.Queries().AppendQuery(ctx, &core.QueryRecord{
			CollectionID: c.ID,
			Question:     fmt.Sprintf("q%d", i),
			Answer:       "a",
			Timestamp:    base.Add(time.Duration(i) * time.Second),
		})
		require.NoError(t, err)
	}
	recent, err := s.Queries().RecentQueries(ctx, c.ID, 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, "q2", recent[0].Question)

	require.NoError(t, s.Collections().DeleteCollection(ctx, c.ID))
	_, err = s.Documents().GetDocument(ctx, doc.ID)
	assert.ErrorIs(t, err, core.ErrDocumentNotFound, "documents cascade with their collection")
}
