package ai

import (
	"context"
	"fmt"
	"sync"
)

// LazyEmbedder defers construction of an expensive embedder until first use.
// Construction runs at most once per process; every caller, including those
// that arrive while it is in flight, observes the same embedder or error.
type LazyEmbedder struct {
	load func() (Embedder, error)
}

func NewLazyEmbedder(build func(ctx context.Context) (Embedder, error)) *LazyEmbedder {
	return &LazyEmbedder{
		load: sync.OnceValues(func() (Embedder, error) {
			e, err := build(context.Background())
			if err != nil {
				return nil, fmt.Errorf("init embedder failed: %w", err)
			}
			return e, nil
		}),
	}
}

// Warmup forces initialization so a broken model fails at start-up.
func (l *LazyEmbedder) Warmup() error {
	_, err := l.load()
	return err
}

func (l *LazyEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	e, err := l.load()
	if err != nil {
		return nil, err
	}
	return e.Embed(ctx, text)
}
