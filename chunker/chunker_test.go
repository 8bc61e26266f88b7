package chunker

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/poiesic/docqa/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func makeWords(n int) string {
	words := make([]string, n)
	for i := range words {
		words[i] = fmt.Sprintf("w%d", i)
	}
	return strings.Join(words, " ")
}

func testSource() Source {
	return Source{
		ArticleTitle:   "Title",
		SourceFilename: "doc.pdf",
		CollectionID:   "1",
		DocumentID:     9,
	}
}

func TestChunk_OverlapProperty(t *testing.T) {
	chunks, err := Chunk(makeWords(250), testSource(), Options{ChunkSize: 100, ChunkOverlap: 20})
	require.NoError(t, err)
	require.Len(t, chunks, 4)

	lengths := make([]int, len(chunks))
	for i, c := range chunks {
		lengths[i] = len(strings.Fields(c.Text))
	}
	assert.Equal(t, []int{100, 100, 90, 10}, lengths)

	for k := range 2 {
		cur := strings.Fields(chunks[k].Text)
		next := strings.Fields(chunks[k+1].Text)
		assert.Equal(t, cur[len(cur)-20:], next[:20], "chunk %d overlap", k)
	}
	// The tail chunk is shorter than the overlap, so it lies entirely in chunk 2.
	third := strings.Fields(chunks[2].Text)
	assert.Equal(t, third[len(third)-10:], strings.Fields(chunks[3].Text))

	for i, c := range chunks {
		assert.Equal(t, i, c.SequenceID)
		assert.Equal(t, core.ChunkID("doc.pdf", i), c.ID)
		assert.Equal(t, "Title", c.ArticleTitle)
		assert.Equal(t, "1", c.CollectionID)
		assert.Equal(t, core.ID(9), c.DocumentID)
	}
}

func TestChunk_EmptyText(t *testing.T) {
	for _, text := range []string{"", "   ", "\n\t "} {
		chunks, err := Chunk(text, testSource(), DefaultOptions())
		require.NoError(t, err)
		assert.Empty(t, chunks)
	}
}

func TestChunk_ShorterThanWindow(t *testing.T) {
	chunks, err := Chunk("one  two\nthree", testSource(), Options{ChunkSize: 10, ChunkOverlap: 2})
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Equal(t, "one two three", chunks[0].Text)
}

func TestChunk_InvalidOptions(t *testing.T) {
	cases := []Options{
		{ChunkSize: 10, ChunkOverlap: 10},
		{ChunkSize: 10, ChunkOverlap: 11},
		{ChunkSize: 1, ChunkOverlap: 1},
		{ChunkSize: 0, ChunkOverlap: 0},
		{ChunkSize: 10, ChunkOverlap: -1},
	}
	for _, opts := range cases {
		t.Run(fmt.Sprintf("size=%d overlap=%d", opts.ChunkSize, opts.ChunkOverlap), func(t *testing.T) {
			done := make(chan error, 1)
			go func() {
				_, err := Chunk(makeWords(50), testSource(), opts)
				done <- err
			}()
			select {
			case err := <-done:
				require.Error(t, err)
				assert.ErrorIs(t, err, core.ErrChunking)
				assert.ErrorIs(t, err, core.ErrInvalidChunkOptions)
			case <-time.After(2 * time.Second):
				t.Fatal("Chunk did not return for invalid options")
			}
		})
	}
}

func TestChunk_IDStability(t *testing.T) {
	text := makeWords(1500)
	first, err := Chunk(text, testSource(), DefaultOptions())
	require.NoError(t, err)
	second, err := Chunk(text, testSource(), DefaultOptions())
	require.NoError(t, err)

	require.Equal(t, len(first), len(second))
	for i := range first {
		assert.Equal(t, first[i].ID, second[i].ID)
		assert.Equal(t, first[i].Text, second[i].Text)
	}
}

func TestChunk_PageInference(t *testing.T) {
	t.Run("empty table gives no pages", func(t *testing.T) {
		chunks, err := Chunk(makeWords(30), testSource(), Options{ChunkSize: 10, ChunkOverlap: 0})
		require.NoError(t, err)
		for _, c := range chunks {
			assert.Empty(t, c.PageNumbers)
		}
	})

	t.Run("position ratio selects bucket", func(t *testing.T) {
		src := testSource()
		src.Pages = core.PageMap{0: {1}, 1: {2}, 2: {3}}
		chunks, err := Chunk(makeWords(30), src, Options{ChunkSize: 10, ChunkOverlap: 0})
		require.NoError(t, err)
		require.Len(t, chunks, 3)
		assert.Equal(t, []int{1}, chunks[0].PageNumbers)
		assert.Equal(t, []int{2}, chunks[1].PageNumbers)
		assert.Equal(t, []int{3}, chunks[2].PageNumbers)
	})

	t.Run("missing bucket falls back to first", func(t *testing.T) {
		src := testSource()
		src.Pages = core.PageMap{0: {4, 5}, 7: {9}}
		chunks, err := Chunk(makeWords(30), src, Options{ChunkSize: 10, ChunkOverlap: 0})
		require.NoError(t, err)
		require.Len(t, chunks, 3)
		// bucket 1 is absent for the third chunk
		assert.Equal(t, []int{4, 5}, chunks[2].PageNumbers)
	})

	t.Run("no first bucket falls back to page one", func(t *testing.T) {
		src := testSource()
		src.Pages = core.PageMap{5: {6}}
		chunks, err := Chunk(makeWords(10), src, Options{ChunkSize: 10, ChunkOverlap: 0})
		require.NoError(t, err)
		assert.Equal(t, []int{1}, chunks[0].PageNumbers)
	})

	t.Run("chunks do not share page slices", func(t *testing.T) {
		src := testSource()
		src.Pages = core.PageMap{0: {1}}
		chunks, err := Chunk(makeWords(20), src, Options{ChunkSize: 10, ChunkOverlap: 0})
		require.NoError(t, err)
		chunks[0].PageNumbers[0] = 99
		assert.Equal(t, []int{1}, chunks[1].PageNumbers)
		assert.Equal(t, []int{1}, src.Pages[0])
	})
}
