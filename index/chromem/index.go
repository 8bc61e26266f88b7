package chromem

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/philippgille/chromem-go"
	"github.com/poiesic/docqa/core"
	"github.com/poiesic/docqa/index"
)

// metaChunkID holds the chunk ID; the chromem document ID is scoped by collection.
const metaChunkID = "chunk_id"

// Index implements index.Index on a chromem-go collection.
// Collection scoping uses chromem's metadata where filters.
type Index struct {
	db         *chromem.DB
	collection *chromem.Collection
	name       string

	// mu serializes writers so delete counts are exact
	mu     sync.RWMutex
	closed atomic.Bool
	logger *slog.Logger
}

var _ index.Index = (*Index)(nil)

// Option configures an Index.
type Option func(*Index)

// WithLogger sets the index logger.
func WithLogger(logger *slog.Logger) Option {
	return func(i *Index) {
		i.logger = logger
	}
}

// Open opens a persistent chromem database under dir and binds the index name.
func Open(dir, name string, opts ...Option) (*Index, error) {
	db, err := chromem.NewPersistentDB(dir, false)
	if err != nil {
		return nil, index.Wrap(err)
	}
	return New(db, name, opts...)
}

// NewMemory binds the index name on a fresh in-memory database.
func NewMemory(name string, opts ...Option) (*Index, error) {
	return New(chromem.NewDB(), name, opts...)
}

// New binds the index name on db, creating the chromem collection if needed.
func New(db *chromem.DB, name string, opts ...Option) (*Index, error) {
	if name == "" {
		name = index.DefaultName
	}
	// Embeddings are always supplied by the caller, so no embedding func is needed
	collection, err := db.GetOrCreateCollection(name, nil, nil)
	if err != nil {
		return nil, index.Wrap(fmt.Errorf("get or create collection %q: %w", name, err))
	}
	i := &Index{
		db:         db,
		collection: collection,
		name:       name,
		logger:     slog.Default().With("component", "chromem-index", "index", name),
	}
	for _, opt := range opts {
		opt(i)
	}
	return i, nil
}

func documentID(collectionID, chunkID string) string {
	return collectionID + "/" + chunkID
}

// Name implements index.Index.
func (i *Index) Name() string {
	return i.name
}

func (i *Index) check() error {
	if i.closed.Load() {
		return index.ErrIndexClosed
	}
	return nil
}

// Upsert implements index.Index.
func (i *Index) Upsert(ctx context.Context, chunk core.Chunk, vector []float32) error {
	return i.UpsertBatch(ctx, []index.Entry{{Chunk: chunk, Vector: vector}})
}

// UpsertBatch implements index.Index.
func (i *Index) UpsertBatch(ctx context.Context, entries []index.Entry) error {
	if len(entries) == 0 {
		return nil
	}
	if err := i.check(); err != nil {
		return err
	}

	docs := make([]chromem.Document, len(entries))
	for n, e := range entries {
		if err := index.ValidateEntry(e); err != nil {
			return err
		}
		md := index.ChunkToMetadata(e.Chunk)
		md[metaChunkID] = e.Chunk.ID
		docs[n] = chromem.Document{
			ID:        documentID(e.Chunk.CollectionID, e.Chunk.ID),
			Content:   e.Chunk.Text,
			Metadata:  md,
			Embedding: index.NormalizeVector(e.Vector),
		}
	}

	i.mu.Lock()
	defer i.mu.Unlock()
	if err := i.collection.AddDocuments(ctx, docs, runtime.NumCPU()); err != nil {
		return index.Wrap(err)
	}
	i.logger.Debug("upserted chunks", "count", len(docs))
	return nil
}

// Query implements index.Index.
func (i *Index) Query(ctx context.Context, vector []float32, topK int, collectionFilter string) ([]core.ScoredChunk, error) {
	if err := i.check(); err != nil {
		return nil, err
	}
	if topK <= 0 {
		return []core.ScoredChunk{}, nil
	}
	if len(vector) == 0 {
		return nil, index.ErrEmptyVector
	}

	i.mu.RLock()
	defer i.mu.RUnlock()

	// chromem rejects nResults above the collection size
	n := min(topK, i.collection.Count())
	if n == 0 {
		return []core.ScoredChunk{}, nil
	}

	var where map[string]string
	if collectionFilter != "" {
		where = map[string]string{index.MetaCollectionID: collectionFilter}
	}
	results, err := i.collection.QueryEmbedding(ctx, index.NormalizeVector(vector), n, where, nil)
	if err != nil {
		return nil, index.Wrap(err)
	}

	scored := make([]core.ScoredChunk, 0, len(results))
	for _, r := range results {
		scored = append(scored, core.ScoredChunk{
			Chunk: index.MetadataToChunk(r.Metadata[metaChunkID], r.Content, r.Metadata),
			Score: r.Similarity,
		})
	}
	return scored, nil
}

// DeleteByCollection implements index.Index.
func (i *Index) DeleteByCollection(ctx context.Context, collectionID string) (int, error) {
	return i.deleteWhere(ctx, map[string]string{index.MetaCollectionID: collectionID})
}

// DeleteByDocument implements index.Index.
func (i *Index) DeleteByDocument(ctx context.Context, documentID core.ID) (int, error) {
	return i.deleteWhere(ctx, map[string]string{index.MetaDocumentID: documentID.String()})
}

func (i *Index) deleteWhere(ctx context.Context, where map[string]string) (int, error) {
	if err := i.check(); err != nil {
		return 0, err
	}

	i.mu.Lock()
	defer i.mu.Unlock()
	before := i.collection.Count()
	if err := i.collection.Delete(ctx, where, nil); err != nil {
		return 0, index.Wrap(err)
	}
	removed := before - i.collection.Count()
	i.logger.Debug("deleted chunks", "where", where, "count", removed)
	return removed, nil
}

// Stats implements index.Index.
func (i *Index) Stats(ctx context.Context) (index.Stats, error) {
	if err := i.check(); err != nil {
		return index.Stats{}, err
	}
	return index.Stats{IndexName: i.name, TotalChunks: i.collection.Count()}, nil
}

// Close implements index.Index. chromem persists on every write, so there is nothing to flush.
func (i *Index) Close() error {
	i.closed.Store(true)
	return nil
}
