package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"time"

	redisv9 "github.com/redis/go-redis/v9"

	"groundedqa/internal/ai"
	"groundedqa/internal/model"
)

type EmbeddingCache struct {
	client *redisv9.Client
	ttl    time.Duration
}

func NewEmbeddingCache(client *redisv9.Client, ttl time.Duration) *EmbeddingCache {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &EmbeddingCache{client: client, ttl: ttl}
}

func (c *EmbeddingCache) Get(ctx context.Context, modelName, text string) ([]float32, bool, error) {
	raw, err := c.client.Get(ctx, c.key(modelName, text)).Bytes()
	if err == redisv9.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get embedding failed: %w", err)
	}
	vec, err := model.DecodeVector(raw)
	if err != nil {
		return nil, false, fmt.Errorf("decode cached embedding failed: %w", err)
	}
	return vec, true, nil
}

func (c *EmbeddingCache) Set(ctx context.Context, modelName, text string, vec []float32) error {
	if err := c.client.Set(ctx, c.key(modelName, text), model.EncodeVector(vec), c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set embedding failed: %w", err)
	}
	return nil
}

func (c *EmbeddingCache) key(modelName, text string) string {
	sum := sha256.Sum256([]byte(modelName + "\x00" + text))
	return "embedding:" + hex.EncodeToString(sum[:])
}

// CachedEmbedder serves repeated texts from Redis. Cache failures are
// logged and fall through to the wrapped embedder.
type CachedEmbedder struct {
	next   ai.Embedder
	cache  *EmbeddingCache
	model  string
	logger *slog.Logger
}

func NewCachedEmbedder(next ai.Embedder, cache *EmbeddingCache, modelName string, logger *slog.Logger) *CachedEmbedder {
	if logger == nil {
		logger = slog.Default()
	}
	return &CachedEmbedder{next: next, cache: cache, model: modelName, logger: logger}
}

func (e *CachedEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vec, hit, err := e.cache.Get(ctx, e.model, text)
	if err != nil {
		e.logger.Warn("embedding cache read failed", "error", err)
	}
	if hit {
		return vec, nil
	}

	vec, err = e.next.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	if err := e.cache.Set(ctx, e.model, text, vec); err != nil {
		e.logger.Warn("embedding cache write failed", "error", err)
	}
	return vec, nil
}
