// Package indextest holds behavior tests shared by every index.Index backend.
package indextest

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/poiesic/docqa/core"
	"github.com/poiesic/docqa/index"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Factory returns an empty index. The test owns closing it.
type Factory func(t *testing.T) index.Index

// Chunk builds a chunk with its ID derived the usual way.
func Chunk(collection string, doc core.ID, file string, seq int, text string) core.Chunk {
	return core.Chunk{
		ID:             core.ChunkID(file, seq),
		Text:           text,
		ArticleTitle:   "Title of " + file,
		SourceFilename: file,
		PageNumbers:    []int{seq + 1},
		SequenceID:     seq,
		CollectionID:   collection,
		DocumentID:     doc,
	}
}

// axis returns a unit vector along dimension d of a dim-sized space.
func axis(d, dim int) []float32 {
	v := make([]float32, dim)
	v[d] = 1
	return v
}

// Run executes the shared suite against newIndex.
func Run(t *testing.T, newIndex Factory) {
	t.Run("upsert and query ordering", func(t *testing.T) {
		idx := newIndex(t)
		ctx := context.Background()

		entries := []index.Entry{
			{Chunk: Chunk("1", 10, "a.pdf", 0, "alpha"), Vector: []float32{1, 0, 0}},
			{Chunk: Chunk("1", 10, "a.pdf", 1, "beta"), Vector: []float32{0.8, 0.6, 0}},
			{Chunk: Chunk("1", 10, "a.pdf", 2, "gamma"), Vector: []float32{0, 0, 1}},
		}
		require.NoError(t, idx.UpsertBatch(ctx, entries))

		results, err := idx.Query(ctx, []float32{2, 0, 0}, 2, "1")
		require.NoError(t, err)
		require.Len(t, results, 2)
		assert.Equal(t, "alpha", results[0].Chunk.Text)
		assert.Equal(t, "beta", results[1].Chunk.Text)
		assert.InDelta(t, 1.0, results[0].Score, 1e-4)
		assert.InDelta(t, 0.8, results[1].Score, 1e-4)
		assert.GreaterOrEqual(t, results[0].Score, results[1].Score)

		got := results[1].Chunk
		assert.Equal(t, "a.pdf_chunk_1", got.ID)
		assert.Equal(t, "Title of a.pdf", got.ArticleTitle)
		assert.Equal(t, "a.pdf", got.SourceFilename)
		assert.Equal(t, []int{2}, got.PageNumbers)
		assert.Equal(t, 1, got.SequenceID)
		assert.Equal(t, "1", got.CollectionID)
		assert.Equal(t, core.ID(10), got.DocumentID)
	})

	t.Run("topK larger than index", func(t *testing.T) {
		idx := newIndex(t)
		ctx := context.Background()

		require.NoError(t, idx.Upsert(ctx, Chunk("1", 1, "a.pdf", 0, "only"), []float32{1, 0}))
		results, err := idx.Query(ctx, []float32{1, 0}, 10, "1")
		require.NoError(t, err)
		assert.Len(t, results, 1)
	})

	t.Run("empty index and empty batch", func(t *testing.T) {
		idx := newIndex(t)
		ctx := context.Background()

		require.NoError(t, idx.UpsertBatch(ctx, nil))
		results, err := idx.Query(ctx, []float32{1, 0}, 5, "1")
		require.NoError(t, err)
		assert.Empty(t, results)

		stats, err := idx.Stats(ctx)
		require.NoError(t, err)
		assert.Equal(t, idx.Name(), stats.IndexName)
		assert.Zero(t, stats.TotalChunks)
	})

	t.Run("filter isolation", func(t *testing.T) {
		idx := newIndex(t)
		ctx := context.Background()

		// Same filename in two collections; the near-identical vectors would
		// interleave if the filter leaked.
		for seq := range 3 {
			require.NoError(t, idx.Upsert(ctx, Chunk("A", 1, "shared.pdf", seq, fmt.Sprintf("A%d", seq)), []float32{1, float32(seq) * 0.01}))
			require.NoError(t, idx.Upsert(ctx, Chunk("B", 2, "shared.pdf", seq, fmt.Sprintf("B%d", seq)), []float32{1, float32(seq)*0.01 + 0.001}))
		}

		for _, tenant := range []string{"A", "B"} {
			results, err := idx.Query(ctx, []float32{1, 0}, 10, tenant)
			require.NoError(t, err)
			require.Len(t, results, 3)
			for _, r := range results {
				assert.Equal(t, tenant, r.Chunk.CollectionID)
			}
		}

		all, err := idx.Query(ctx, []float32{1, 0}, 10, "")
		require.NoError(t, err)
		assert.Len(t, all, 6)

		none, err := idx.Query(ctx, []float32{1, 0}, 10, "C")
		require.NoError(t, err)
		assert.Empty(t, none)
	})

	t.Run("upsert replaces", func(t *testing.T) {
		idx := newIndex(t)
		ctx := context.Background()

		c := Chunk("1", 1, "a.pdf", 0, "old text")
		require.NoError(t, idx.Upsert(ctx, c, []float32{1, 0}))
		c.Text = "new text"
		require.NoError(t, idx.Upsert(ctx, c, []float32{0, 1}))

		stats, err := idx.Stats(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, stats.TotalChunks)

		results, err := idx.Query(ctx, []float32{0, 1}, 1, "1")
		require.NoError(t, err)
		require.Len(t, results, 1)
		assert.Equal(t, "new text", results[0].Chunk.Text)
	})

	t.Run("delete by collection", func(t *testing.T) {
		idx := newIndex(t)
		ctx := context.Background()

		for seq := range 4 {
			require.NoError(t, idx.Upsert(ctx, Chunk("A", 1, "a.pdf", seq, "a"), axis(seq%3, 3)))
		}
		require.NoError(t, idx.Upsert(ctx, Chunk("B", 2, "b.pdf", 0, "b"), axis(0, 3)))

		n, err := idx.DeleteByCollection(ctx, "A")
		require.NoError(t, err)
		assert.Equal(t, 4, n)

		stats, err := idx.Stats(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, stats.TotalChunks)

		n, err = idx.DeleteByCollection(ctx, "A")
		require.NoError(t, err)
		assert.Zero(t, n)

		left, err := idx.Query(ctx, axis(0, 3), 10, "B")
		require.NoError(t, err)
		assert.Len(t, left, 1)
	})

	t.Run("delete by document", func(t *testing.T) {
		idx := newIndex(t)
		ctx := context.Background()

		for seq := range 3 {
			require.NoError(t, idx.Upsert(ctx, Chunk("A", 1, "one.pdf", seq, "one"), axis(seq, 3)))
			require.NoError(t, idx.Upsert(ctx, Chunk("A", 2, "two.pdf", seq, "two"), axis(seq, 3)))
		}

		n, err := idx.DeleteByDocument(ctx, 1)
		require.NoError(t, err)
		assert.Equal(t, 3, n)

		results, err := idx.Query(ctx, axis(0, 3), 10, "A")
		require.NoError(t, err)
		require.Len(t, results, 3)
		for _, r := range results {
			assert.Equal(t, core.ID(2), r.Chunk.DocumentID)
		}
	})

	t.Run("concurrent upserts of one id", func(t *testing.T) {
		idx := newIndex(t)
		ctx := context.Background()

		var wg sync.WaitGroup
		for w := range 8 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				c := Chunk("1", 1, "a.pdf", 0, fmt.Sprintf("writer %d", w))
				assert.NoError(t, idx.Upsert(ctx, c, []float32{1, float32(w)}))
			}()
		}
		wg.Wait()

		stats, err := idx.Stats(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, stats.TotalChunks)
	})

	t.Run("rejects invalid entries", func(t *testing.T) {
		idx := newIndex(t)
		ctx := context.Background()

		err := idx.Upsert(ctx, Chunk("1", 1, "a.pdf", 0, "x"), nil)
		assert.ErrorIs(t, err, core.ErrIndex)

		err = idx.Upsert(ctx, core.Chunk{CollectionID: "1"}, []float32{1})
		assert.ErrorIs(t, err, core.ErrIndex)
	})

	t.Run("closed", func(t *testing.T) {
		idx := newIndex(t)
		require.NoError(t, idx.Close())

		_, err := idx.Query(context.Background(), []float32{1}, 1, "")
		assert.ErrorIs(t, err, index.ErrIndexClosed)
	})
}
