package rag

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/poiesic/docqa/ai"
	"github.com/poiesic/docqa/ai/mock"
	"github.com/poiesic/docqa/answer"
	"github.com/poiesic/docqa/core"
	"github.com/poiesic/docqa/index"
	indexbadger "github.com/poiesic/docqa/index/badger"
	"github.com/poiesic/docqa/storage"
	"github.com/poiesic/docqa/storage/badger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	store     *badger.RecordStore
	index     *indexbadger.Index
	embedder  *mock.MockEmbedder
	generator *mock.MockGenerator
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
		store:     store,
		index:     idx,
		embedder:  mock.NewMockEmbedder(),
		generator: mock.NewMockGenerator(),
	}
}

func (f *fixture) service(t *testing.T, records storage.RecordStore, opts ...Option) *Service {
	t.Helper()
	if records == nil {
		records = f.store
	}
	svc, err := NewService(records, f.embedder, f.index, answer.NewGenerator(f.generator), opts...)
	require.NoError(t, err)
	return svc
}

func (f *fixture) collection(t *testing.T, name string) *core.Collection {
	t.Helper()
	c, err := f.store.Collections().CreateCollection(context.Background(), &core.Collection{Name: name, Description: name + " papers"})
	require.NoError(t, err)
	return c
}

// index stores n chunks for c with texts built from prefix.
func (f *fixture) addChunks(t *testing.T, c *core.Collection, prefix string, n int) {
	t.Helper()
	ctx := context.Background()
	for i := range n {
		text := fmt.Sprintf("%s passage %d about attention mechanisms", prefix, i)
		vec, err := f.embedder.EmbedText(ctx, text)
		require.NoError(t, err)
		require.NoError(t, f.index.Upsert(ctx, core.Chunk{
			ID:             core.ChunkID(prefix+".pdf", i),
			Text:           text,
			ArticleTitle:   "Title " + prefix,
			SourceFilename: prefix + ".pdf",
			PageNumbers:    []int{i + 1},
			SequenceID:     i,
			CollectionID:   c.TenantKey(),
			DocumentID:     1,
		}, vec))
	}
}

type failingQueries struct {
	storage.QueryRepository
}

func (failingQueries) AppendQuery(context.Context, *core.QueryRecord) (*core.QueryRecord, error) {
	return nil, errors.New("disk full")
}

type failingHistoryStore struct {
	*badger.RecordStore
}

func (s failingHistoryStore) Queries() storage.QueryRepository {
	return failingQueries{s.RecordStore.Queries()}
}

type recordingMonitor struct {
	stages []string
	hits   int
	final  *Answer
}

func (m *recordingMonitor) Start(core.ID, string)       { m.stages = append(m.stages, "start") }
func (m *recordingMonitor) AfterEmbedding([]float32)    { m.stages = append(m.stages, "embed") }
func (m *recordingMonitor) AfterPrompt(string)          { m.stages = append(m.stages, "prompt") }
func (m *recordingMonitor) AfterGeneration(string, error) { m.stages = append(m.stages, "generate") }
func (m *recordingMonitor) AfterRetrieval(hits []core.ScoredChunk) {
	m.stages = append(m.stages, "retrieve")
	m.hits = len(hits)
}
func (m *recordingMonitor) Finish(a *Answer) {
	m.stages = append(m.stages, "finish")
	m.final = a
}

func TestNewService(t *testing.T) {
	f := newFixture(t)
	gen := answer.NewGenerator(f.generator)

	t.Run("valid configuration", func(t *testing.T) {
		svc, err := NewService(f.store, f.embedder, f.index, gen)
		require.NoError(t, err)
		assert.Equal(t, DefaultTopK, svc.topK)
	})

	t.Run("invalid top-k", func(t *testing.T) {
		_, err := NewService(f.store, f.embedder, f.index, gen, WithDefaultTopK(0))
		assert.ErrorIs(t, err, core.ErrValidation)
	})

	t.Run("missing collaborators", func(t *testing.T) {
		_, err := NewService(nil, f.embedder, f.index, gen)
		assert.Equal(t, ErrRecordStoreRequired, err)
		_, err = NewService(f.store, nil, f.index, gen)
		assert.Equal(t, ErrEmbedderRequired, err)
		_, err = NewService(f.store, f.embedder, nil, gen)
		assert.Equal(t, ErrIndexRequired, err)
		_, err = NewService(f.store, f.embedder, f.index, nil)
		assert.Equal(t, ErrGeneratorRequired, err)
	})
}

func TestAnswerQuestion_Success(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c := f.collection(t, "papers")
	f.addChunks(t, c, "attention", 3)

	result := f.service(t, nil).AnswerQuestion(ctx, c.ID, "  What is attention?  ", 2)

	require.True(t, result.Success, result.Error)
	assert.Equal(t, mock.DefaultAnswer, result.Answer)
	assert.Equal(t, "papers", result.CollectionName)
	assert.Equal(t, "What is attention?", result.Question)
	assert.Equal(t, 2, result.SourcesCount)
	require.Len(t, result.Sources, 2)
	for _, src := range result.Sources {
		assert.Equal(t, "attention.pdf", src.SourcePDF)
		assert.Equal(t, "Title attention", src.ArticleTitle)
		assert.Len(t, src.PageNumbers, 1)
	}

	prompts := f.generator.Prompts()
	require.Len(t, prompts, 1)
	assert.Contains(t, prompts[0], "'papers' collection")
	assert.Contains(t, prompts[0], "Context 1: ")

	history, err := f.store.Queries().RecentQueries(ctx, c.ID, 10)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "What is attention?", history[0].Question)
	assert.Equal(t, mock.DefaultAnswer, history[0].Answer)
	assert.Equal(t, 2, history[0].SourcesCount)
}

func TestAnswerQuestion_NoContext(t *testing.T) {
	f := newFixture(t)
	c := f.collection(t, "empty")
	f.generator.GenerateFunc = func(context.Context, string, ai.GenerateOptions) (string, error) {
		return "I don't have enough information to answer this question.", nil
	}

	result := f.service(t, nil).AnswerQuestion(context.Background(), c.ID, "What is attention?", 5)

	require.True(t, result.Success)
	assert.Equal(t, answer.Refusal, result.Answer)
	assert.Zero(t, result.SourcesCount)
	assert.NotNil(t, result.Sources)
	assert.Empty(t, result.Sources)
	assert.Contains(t, f.generator.Prompts()[0], "no relevant context was found")
}

func TestAnswerQuestion_FilterIsolation(t *testing.T) {
	f := newFixture(t)
	a := f.collection(t, "a")
	b := f.collection(t, "b")
	f.addChunks(t, a, "alpha", 2)
	f.addChunks(t, b, "beta", 4)

	result := f.service(t, nil).AnswerQuestion(context.Background(), a.ID, "What about attention?", 10)
	require.True(t, result.Success)
	require.Len(t, result.Sources, 2)
	for _, src := range result.Sources {
		assert.Equal(t, "alpha.pdf", src.SourcePDF)
	}
}

func TestAnswerQuestion_DefaultTopK(t *testing.T) {
	f := newFixture(t)
	c := f.collection(t, "papers")
	f.addChunks(t, c, "many", 8)

	result := f.service(t, nil).AnswerQuestion(context.Background(), c.ID, "What is attention?", 0)
	assert.Equal(t, DefaultTopK, result.SourcesCount)

	result = f.service(t, nil, WithDefaultTopK(3)).AnswerQuestion(context.Background(), c.ID, "What is attention?", -1)
	assert.Equal(t, 3, result.SourcesCount)
}

func TestAnswerQuestion_Failures(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c := f.collection(t, "papers")
	f.addChunks(t, c, "attention", 2)
	svc := f.service(t, nil)

	t.Run("invalid question", func(t *testing.T) {
		tests := []struct {
			question string
			want     string
		}{
			{"   ", "Question cannot be empty"},
			{"ab", "Question is too short"},
			{strings.Repeat("q", 1001), "Question is too long (max 1000 characters)"},
		}
		for _, tt := range tests {
			result := svc.AnswerQuestion(ctx, c.ID, tt.question, 5)
			assert.False(t, result.Success)
			assert.Equal(t, tt.want, result.Error)
			assert.NotNil(t, result.Sources)
		}
	})

	t.Run("unknown collection", func(t *testing.T) {
		before := f.embedder.CallCount()
		result := svc.AnswerQuestion(ctx, 9999, "What is attention?", 5)
		assert.False(t, result.Success)
		assert.Equal(t, "Collection with ID 9999 not found", result.Error)
		assert.Equal(t, before, f.embedder.CallCount(), "no embedding for an unknown collection")
	})

	t.Run("embedding failure", func(t *testing.T) {
		failing := mock.NewMockEmbedder()
		failing.EmbedTextsFunc = func(context.Context, []string) ([][]float32, error) {
			return nil, errors.New("model not loaded")
		}
		svc, err := NewService(f.store, failing, f.index, answer.NewGenerator(f.generator))
		require.NoError(t, err)

		result := svc.AnswerQuestion(ctx, c.ID, "What is attention?", 5)
		assert.False(t, result.Success)
		assert.Equal(t, ErrorAnswer, result.Answer)
		assert.Contains(t, result.Error, "RAG pipeline error")
		assert.Contains(t, result.Error, "model not loaded")
	})

	t.Run("generation failure is a refusal", func(t *testing.T) {
		gen := mock.NewScriptedGenerator("", ai.ErrGenerationTimeout)
		svc, err := NewService(f.store, f.embedder, f.index, answer.NewGenerator(gen))
		require.NoError(t, err)

		result := svc.AnswerQuestion(ctx, c.ID, "What is attention?", 5)
		assert.True(t, result.Success)
		assert.Equal(t, answer.Refusal, result.Answer)
		assert.Equal(t, 2, result.SourcesCount)
	})

	t.Run("short answer is a refusal", func(t *testing.T) {
		gen := mock.NewScriptedGenerator("Unsure, maybe", nil)
		svc, err := NewService(f.store, f.embedder, f.index, answer.NewGenerator(gen))
		require.NoError(t, err)

		result := svc.AnswerQuestion(ctx, c.ID, "What is attention?", 5)
		assert.True(t, result.Success)
		assert.Equal(t, answer.Refusal, result.Answer)
	})

	t.Run("history failure is swallowed", func(t *testing.T) {
		result := f.service(t, failingHistoryStore{f.store}).AnswerQuestion(ctx, c.ID, "What is attention?", 5)
		assert.True(t, result.Success)
		assert.Equal(t, mock.DefaultAnswer, result.Answer)
	})
}

func TestAnswerQuestion_RetrievalFailure(t *testing.T) {
	f := newFixture(t)
	c := f.collection(t, "papers")
	f.addChunks(t, c, "attention", 2)
	svc := f.service(t, nil)
	require.NoError(t, f.index.Close())

	result := svc.AnswerQuestion(context.Background(), c.ID, "What is attention?", 5)
	assert.True(t, result.Success)
	assert.Zero(t, result.SourcesCount)
	assert.Contains(t, f.generator.Prompts()[0], "no relevant context was found")
}

func TestAnswerQuestionWithMonitor(t *testing.T) {
	f := newFixture(t)
	c := f.collection(t, "papers")
	f.addChunks(t, c, "attention", 2)

	m := &recordingMonitor{}
	result := f.service(t, nil).AnswerQuestionWithMonitor(context.Background(), c.ID, "What is attention?", 5, m)

	assert.Equal(t, []string{"start", "embed", "retrieve", "prompt", "generate", "finish"}, m.stages)
	assert.Equal(t, 2, m.hits)
	assert.Same(t, result, m.final)
}

func TestPreview(t *testing.T) {
	assert.Equal(t, "short", Preview("short"))

	exact := strings.Repeat("a", PreviewLength)
	assert.Equal(t, exact, Preview(exact))

	long := strings.Repeat("é", PreviewLength+5)
	got := Preview(long)
	assert.Equal(t, strings.Repeat("é", PreviewLength)+"...", got)
}

func TestSources_Preview(t *testing.T) {
	hit := core.ScoredChunk{Chunk: core.Chunk{Text: strings.Repeat("word ", 100), SourceFilename: "f.pdf"}, Score: 0.5}
	src := newSource(hit)
	assert.Len(t, []rune(src.ChunkPreview), PreviewLength+3)
	assert.True(t, strings.HasSuffix(src.ChunkPreview, "..."))
	assert.Equal(t, []int{}, src.PageNumbers)
	assert.Equal(t, float32(0.5), src.Score)
}

func TestCollectionSummary(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c := f.collection(t, "papers")
	f.addChunks(t, c, "attention", 3)
	_, err := f.store.Documents().AddDocument(ctx, &core.Document{CollectionID: c.ID, Filename: "attention.pdf"})
	require.NoError(t, err)

	summary, err := f.service(t, nil).CollectionSummary(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, "papers", summary.CollectionName)
	assert.Equal(t, "papers papers", summary.Description)
	assert.Equal(t, 1, summary.DocumentCount)
	assert.Equal(t, 3, summary.TotalChunks)

	_, err = f.service(t, nil).CollectionSummary(ctx, 404)
	assert.ErrorIs(t, err, core.ErrCollectionNotFound)
}

func TestRecentQueries(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c := f.collection(t, "papers")
	svc := f.service(t, nil)

	assert.Empty(t, svc.RecentQueries(ctx, c.ID, 10))

	for _, q := range []string{"first question", "second question", "third question"} {
		require.True(t, svc.AnswerQuestion(ctx, c.ID, q, 5).Success)
	}

	recent := svc.RecentQueries(ctx, c.ID, 2)
	require.Len(t, recent, 2)
	assert.Equal(t, "third question", recent[0].Question)
	assert.Equal(t, "second question", recent[1].Question)
}

func TestHealth(t *testing.T) {
	f := newFixture(t)
	c := f.collection(t, "papers")
	f.addChunks(t, c, "attention", 2)
	svc := f.service(t, nil)

	h := svc.Health(context.Background())
	assert.True(t, h.GeneratorReachable)
	assert.Equal(t, index.Stats{IndexName: "test", TotalChunks: 2}, h.Index)
	assert.Empty(t, h.IndexError)

	f.generator.PingFunc = func(context.Context) error { return ai.ErrGenerationUnavailable }
	assert.False(t, svc.Health(context.Background()).GeneratorReachable)
}
