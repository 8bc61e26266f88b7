package ai

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/panjf2000/ants/v2"
	"github.com/poiesic/docqa/core"
)

// PooledEmbedder runs embedding calls on a bounded worker pool so that large
// batch embeds cannot starve concurrent query-time embedding.
type PooledEmbedder struct {
	inner  Embedder
	pool   *ants.Pool
	logger *slog.Logger
}

var _ Embedder = (*PooledEmbedder)(nil)

// NewPooledEmbedder creates a pool of size workers in front of inner.
// Sizes below 1 are raised to 1.
func NewPooledEmbedder(inner Embedder, size int) (*PooledEmbedder, error) {
	if size < 1 {
		size = 1
	}
	pool, err := ants.NewPool(size)
	if err != nil {
		return nil, err
	}
	return &PooledEmbedder{
		inner:  inner,
		pool:   pool,
		logger: slog.Default().With("component", "embedding-pool"),
	}, nil
}

type embedResult struct {
	vectors [][]float32
	err     error
}

// EmbedText implements Embedder.
func (p *PooledEmbedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	vectors, err := p.EmbedTexts(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// EmbedTexts implements Embedder. It returns early if ctx is cancelled while
// the call is queued or running; the worker finishes in the background.
func (p *PooledEmbedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	done := make(chan embedResult, 1)
	err := p.pool.Submit(func() {
		vectors, err := p.inner.EmbedTexts(ctx, texts)
		if err == nil && len(vectors) != len(texts) {
			err = fmt.Errorf("%w: expected %d, received %d", ErrEmbeddingCountMismatch, len(texts), len(vectors))
		}
		done <- embedResult{vectors: vectors, err: err}
	})
	if err != nil {
		if errors.Is(err, ants.ErrPoolClosed) {
			err = ErrPoolClosed
		}
		return nil, core.WrapStage(core.ErrEmbedding, err)
	}

	select {
	case r := <-done:
		if r.err != nil {
			p.logger.Debug("pooled embedding failed", "count", len(texts), "err", r.err)
			return nil, core.WrapStage(core.ErrEmbedding, r.err)
		}
		return r.vectors, nil
	case <-ctx.Done():
		return nil, core.WrapStage(core.ErrEmbedding, ctx.Err())
	}
}

// Release stops the pool. Calls after Release fail with ErrPoolClosed.
func (p *PooledEmbedder) Release() {
	p.pool.Release()
}
