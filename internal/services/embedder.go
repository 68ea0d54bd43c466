package services

import (
	"context"
	"fmt"

	"github.com/virachai/vision-iq/internal/clients/redis"
	"github.com/virachai/vision-iq/internal/observability"
	"github.com/virachai/vision-iq/internal/platform/logger"
	"github.com/virachai/vision-iq/internal/platform/openai"
)

// CachedEmbedder adapts the batch embeddings client to the single-text
// lookup the alignment engine wants, with a Redis read-through so repeated
// scene phrasings skip the API.
type CachedEmbedder struct {
	log     *logger.Logger
	ai      openai.Client
	cache   redis.EmbedCache
	metrics *observability.Metrics
}

func NewCachedEmbedder(baseLog *logger.Logger, ai openai.Client, cache redis.EmbedCache) *CachedEmbedder {
	return &CachedEmbedder{
		log:     baseLog.With("service", "CachedEmbedder"),
		ai:      ai,
		cache:   cache,
		metrics: observability.Current(),
	}
}

func (e *CachedEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if e.cache != nil {
		if vector, ok := e.cache.Get(ctx, text); ok {
			e.metrics.EmbedCacheHit()
			return vector, nil
		}
		e.metrics.EmbedCacheMiss()
	}

	vectors, err := e.ai.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vectors) != 1 {
		return nil, fmt.Errorf("expected 1 embedding, got %d", len(vectors))
	}
	if e.cache != nil {
		e.cache.Set(ctx, text, vectors[0])
	}
	return vectors[0], nil
}
