package ingestion

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/poiesic/docqa/ai/mock"
	"github.com/poiesic/docqa/chunker"
	"github.com/poiesic/docqa/core"
	"github.com/poiesic/docqa/extract"
	"github.com/poiesic/docqa/index"
	indexbadger "github.com/poiesic/docqa/index/badger"
	"github.com/poiesic/docqa/storage/badger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	store    *badger.RecordStore
	index    index.Index
	embedder *mock.MockEmbedder
	dir      string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store, backend, err := badger.NewMemoryRecordStore()
	require.NoError(t, err)
	idx, err := indexbadger.New(backend, "test")
	require.NoError(t, err)
	t.Cleanup(func() {
		idx.Close()
		store.Close()
		backend.Close()
	})
	return &fixture{
		store:    store,
		index:    idx,
		embedder: mock.NewMockEmbedder(),
		dir:      t.TempDir(),
	}
}

func (f *fixture) writeWords(t *testing.T, name string, n int) string {
	t.Helper()
	words := make([]string, n)
	for i := range words {
		words[i] = fmt.Sprintf("%s%d", strings.TrimSuffix(name, filepath.Ext(name)), i)
	}
	path := filepath.Join(f.dir, name)
	require.NoError(t, os.WriteFile(path, []byte(strings.Join(words, " ")), 0o644))
	return path
}

func (f *fixture) collection(t *testing.T, name string) *core.Collection {
	t.Helper()
	c, err := f.store.Collections().CreateCollection(context.Background(), &core.Collection{Name: name})
	require.NoError(t, err)
	return c
}

func (f *fixture) processor(t *testing.T, opts ...ProcessorOption) *Processor {
	t.Helper()
	opts = append([]ProcessorOption{WithChunkOptions(chunker.Options{ChunkSize: 100, ChunkOverlap: 20})}, opts...)
	p, err := NewProcessor(extract.NewFileExtractor(), f.embedder, f.index, opts...)
	require.NoError(t, err)
	return p
}

func TestNewProcessor_Required(t *testing.T) {
	f := newFixture(t)
	_, err := NewProcessor(nil, f.embedder, f.index)
	assert.ErrorIs(t, err, ErrExtractorRequired)
	_, err = NewProcessor(extract.NewFileExtractor(), nil, f.index)
	assert.ErrorIs(t, err, ErrEmbedderRequired)
	_, err = NewProcessor(extract.NewFileExtractor(), f.embedder, nil)
	assert.ErrorIs(t, err, ErrIndexRequired)
}

func TestNewProcessor_InvalidChunkOptions(t *testing.T) {
	f := newFixture(t)
	_, err := NewProcessor(extract.NewFileExtractor(), f.embedder, f.index,
		WithChunkOptions(chunker.Options{ChunkSize: 10, ChunkOverlap: 10}))
	assert.ErrorIs(t, err, core.ErrInvalidChunkOptions)
}

func TestProcessor_Process(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c := f.collection(t, "papers")

	path := f.writeWords(t, "paper.txt", 250)
	doc := &core.Document{ID: 9, CollectionID: c.ID, Filename: "paper.txt", FilePath: path, Title: "Paper"}

	n, err := f.processor(t, WithEmbedBatchSize(2)).Process(ctx, doc)
	require.NoError(t, err)
	assert.Equal(t, 4, n)
	assert.Equal(t, 2, f.embedder.CallCount(), "4 chunks in batches of 2")

	stats, err := f.index.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, stats.TotalChunks)

	results, err := f.index.Query(ctx, mock.DeterministicVector("x", mock.DefaultDimension), 10, c.TenantKey())
	require.NoError(t, err)
	require.Len(t, results, 4)
	for _, r := range results {
		assert.Equal(t, core.ID(9), r.Chunk.DocumentID)
		assert.Equal(t, "Paper", r.Chunk.ArticleTitle)
		assert.Equal(t, "paper.txt", r.Chunk.SourceFilename)
	}
}

func TestProcessor_StageErrors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	t.Run("missing file", func(t *testing.T) {
		doc := &core.Document{ID: 1, Filename: "gone.pdf", FilePath: filepath.Join(f.dir, "gone.pdf")}
		_, err := f.processor(t).Process(ctx, doc)
		assert.ErrorIs(t, err, core.ErrExtraction)
		assert.ErrorIs(t, err, core.ErrFileNotFound)
	})

	t.Run("embedding failure", func(t *testing.T) {
		path := f.writeWords(t, "e.txt", 10)
		failing := mock.NewMockEmbedder()
		failing.EmbedTextsFunc = func(context.Context, []string) ([][]float32, error) {
			return nil, errors.New("model offline")
		}
		p, err := NewProcessor(extract.NewFileExtractor(), failing, f.index)
		require.NoError(t, err)

		_, err = p.Process(ctx, &core.Document{ID: 2, Filename: "e.txt", FilePath: path})
		assert.ErrorIs(t, err, core.ErrEmbedding)
	})

	t.Run("closed index", func(t *testing.T) {
		path := f.writeWords(t, "i.txt", 10)
		store, backend, err := badger.NewMemoryRecordStore()
		require.NoError(t, err)
		defer backend.Close()
		defer store.Close()
		closed, err := indexbadger.New(backend, "closed")
		require.NoError(t, err)
		require.NoError(t, closed.Close())

		p, err := NewProcessor(extract.NewFileExtractor(), f.embedder, closed)
		require.NoError(t, err)
		_, err = p.Process(ctx, &core.Document{ID: 3, Filename: "i.txt", FilePath: path})
		assert.ErrorIs(t, err, core.ErrIndex)
	})
}

func TestNewPipeline_Required(t *testing.T) {
	f := newFixture(t)
	_, err := NewPipeline(nil, f.processor(t))
	assert.ErrorIs(t, err, ErrRecordStoreRequired)
	_, err = NewPipeline(f.store, nil)
	assert.ErrorIs(t, err, ErrProcessorRequired)
}

func TestPipeline_Ingest(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c := f.collection(t, "papers")

	var mu sync.Mutex
	completed := map[string]error{}
	p, err := NewPipeline(f.store, f.processor(t), WithPoolSize(2), WithCompletion(func(doc *core.Document, chunks int, err error) {
		mu.Lock()
		defer mu.Unlock()
		completed[doc.Filename] = err
	}))
	require.NoError(t, err)
	defer p.Release()

	good := f.writeWords(t, "deep_learning-notes.txt", 150)
	doc, err := p.Ingest(ctx, c.ID, good, "")
	require.NoError(t, err)
	assert.Equal(t, core.DocumentStatusPending, doc.Status)
	assert.Equal(t, "Deep Learning Notes", doc.Title)
	assert.True(t, filepath.IsAbs(doc.FilePath))

	bad, err := p.Ingest(ctx, c.ID, filepath.Join(f.dir, "missing.txt"), "Missing")
	require.NoError(t, err)

	p.Wait()

	got, err := f.store.Documents().GetDocument(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, core.DocumentStatusProcessed, got.Status)

	got, err = f.store.Documents().GetDocument(ctx, bad.ID)
	require.NoError(t, err)
	assert.Equal(t, core.DocumentStatusFailed, got.Status)

	mu.Lock()
	assert.NoError(t, completed["deep_learning-notes.txt"])
	assert.ErrorIs(t, completed["missing.txt"], core.ErrFileNotFound)
	mu.Unlock()

	stats, err := f.index.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.TotalChunks)
}

func TestPipeline_IngestUnknownCollection(t *testing.T) {
	f := newFixture(t)
	p, err := NewPipeline(f.store, f.processor(t))
	require.NoError(t, err)
	defer p.Release()

	_, err = p.Ingest(context.Background(), 404, f.writeWords(t, "a.txt", 5), "")
	assert.ErrorIs(t, err, core.ErrCollectionNotFound)
}

func TestPipeline_IngestDirectory(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c := f.collection(t, "corpus")

	f.writeWords(t, "b.txt", 30)
	f.writeWords(t, "a.md", 30)
	require.NoError(t, os.WriteFile(filepath.Join(f.dir, "skip.png"), []byte("png"), 0o644))
	require.NoError(t, os.Mkdir(filepath.Join(f.dir, "sub.txt"), 0o755))

	p, err := NewPipeline(f.store, f.processor(t))
	require.NoError(t, err)
	defer p.Release()

	docs, err := p.IngestDirectory(ctx, c.ID, f.dir)
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, "a.md", docs[0].Filename)
	assert.Equal(t, "b.txt", docs[1].Filename)

	p.Wait()
	listed, err := f.store.Documents().ListDocuments(ctx, c.ID)
	require.NoError(t, err)
	for _, d := range listed {
		assert.Equal(t, core.DocumentStatusProcessed, d.Status, d.Filename)
	}
}
