package ai

import (
	"context"
	"encoding/hex"
	"fmt"
	"log/slog"

	"github.com/go-crypt/x/blake2b"
	"github.com/poiesic/docqa/core"
	"github.com/poiesic/docqa/storage"
)

// CachedEmbedder memoizes vectors per (model, text). It relies on embeddings
// being deterministic for a pinned model, so a cache entry never goes stale
// unless the model changes, and the model is part of the key.
// Cache failures are logged and bypassed.
type CachedEmbedder struct {
	inner  Embedder
	cache  storage.EmbeddingCacheRepository
	model  string
	logger *slog.Logger
}

var _ Embedder = (*CachedEmbedder)(nil)

// NewCachedEmbedder wraps inner with cache.
func NewCachedEmbedder(inner Embedder, cache storage.EmbeddingCacheRepository, model string) *CachedEmbedder {
	return &CachedEmbedder{
		inner:  inner,
		cache:  cache,
		model:  model,
		logger: slog.Default().With("component", "embedding-cache"),
	}
}

// CacheKey returns the cache key for text under model.
func CacheKey(model, text string) string {
	h, _ := blake2b.New(16, nil)
	h.Write([]byte(model))
	h.Write([]byte{0})
	h.Write([]byte(text))
	return hex.EncodeToString(h.Sum(nil))
}

// EmbedText implements Embedder.
func (c *CachedEmbedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	vectors, err := c.EmbedTexts(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// EmbedTexts implements Embedder. Only texts missing from the cache reach the inner embedder.
func (c *CachedEmbedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	keys := make([]string, len(texts))
	for i, text := range texts {
		keys[i] = CacheKey(c.model, text)
	}

	hits, err := c.cache.GetEmbeddings(ctx, keys...)
	if err != nil {
		c.logger.Warn("embedding cache lookup failed", "err", err)
		hits = nil
	}

	result := make([][]float32, len(texts))
	var missTexts []string
	var missIdx []int
	for i, key := range keys {
		if v, ok := hits[key]; ok {
			result[i] = v
			continue
		}
		missTexts = append(missTexts, texts[i])
		missIdx = append(missIdx, i)
	}
	c.logger.Debug("embedding cache", "hits", len(texts)-len(missTexts), "misses", len(missTexts))
	if len(missTexts) == 0 {
		return result, nil
	}

	vectors, err := c.inner.EmbedTexts(ctx, missTexts)
	if err != nil {
		return nil, err
	}
	if len(vectors) != len(missTexts) {
		return nil, fmt.Errorf("%w: %w: expected %d, received %d",
			core.ErrEmbedding, ErrEmbeddingCountMismatch, len(missTexts), len(vectors))
	}

	fresh := make(map[string][]float32, len(vectors))
	for j, v := range vectors {
		result[missIdx[j]] = v
		fresh[keys[missIdx[j]]] = v
	}
	if err := c.cache.PutEmbeddings(ctx, fresh); err != nil {
		c.logger.Warn("embedding cache store failed", "err", err)
	}
	return result, nil
}
