package ai

import (
	"context"
	"sync"

	"github.com/poiesic/docqa/core"
)

// LazyEmbedder defers construction of an expensive Embedder until first use.
// Concurrent first calls share a single construction. A failed construction
// is remembered and returned to every later caller.
type LazyEmbedder struct {
	get func() (Embedder, error)
}

var _ Embedder = (*LazyEmbedder)(nil)

// NewLazyEmbedder wraps factory so it runs at most once.
func NewLazyEmbedder(factory func() (Embedder, error)) *LazyEmbedder {
	return &LazyEmbedder{get: sync.OnceValues(factory)}
}

// Load returns the underlying embedder, constructing it if necessary.
func (l *LazyEmbedder) Load() (Embedder, error) {
	e, err := l.get()
	if err != nil {
		return nil, core.WrapStage(core.ErrEmbedding, err)
	}
	return e, nil
}

// EmbedText implements Embedder.
func (l *LazyEmbedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	e, err := l.Load()
	if err != nil {
		return nil, err
	}
	return e.EmbedText(ctx, text)
}

// EmbedTexts implements Embedder.
func (l *LazyEmbedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	e, err := l.Load()
	if err != nil {
		return nil, err
	}
	return e.EmbedTexts(ctx, texts)
}
