package embcache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/kailas-cloud/vecsql/internal/domain"
)

// DefaultSize is the number of embeddings kept when no size is given.
const DefaultSize = 4096

// CachedEmbedder is an in-process LRU cache in front of an embedder.
// Cache keys include the embedder name, so two models never share
// entries even when given identical text.
type CachedEmbedder struct {
	inner      domain.Embedder
	cache      *lru.Cache[string, []float32]
	cacheTotal *prometheus.CounterVec
}

// New creates a caching decorator. size <= 0 uses DefaultSize.
// cacheTotal is a counter vec with label "result" ("hit"/"miss"); nil
// disables counting.
func New(inner domain.Embedder, size int, cacheTotal *prometheus.CounterVec) (*CachedEmbedder, error) {
	if size <= 0 {
		size = DefaultSize
	}
	cache, err := lru.New[string, []float32](size)
	if err != nil {
		return nil, fmt.Errorf("create embedding cache: %w", err)
	}
	return &CachedEmbedder{inner: inner, cache: cache, cacheTotal: cacheTotal}, nil
}

// Embed resolves each text from the cache when possible and embeds the
// remainder in one batch against the inner embedder. Result order
// matches the input order.
func (c *CachedEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	var missing []string
	var missingAt []int
	for i, text := range texts {
		key := c.cacheKey(text)
		if vec, ok := c.cache.Get(key); ok {
			c.incCache("hit")
			out[i] = vec
			continue
		}
		c.incCache("miss")
		missing = append(missing, text)
		missingAt = append(missingAt, i)
	}
	if len(missing) == 0 {
		return out, nil
	}

	vectors, err := c.inner.Embed(ctx, missing)
	if err != nil {
		return nil, fmt.Errorf("embed texts: %w", err)
	}
	if len(vectors) != len(missing) {
		return nil, fmt.Errorf("%w: embedder returned %d vectors for %d texts",
			domain.ErrEmbeddingProviderError, len(vectors), len(missing))
	}
	for j, vec := range vectors {
		c.cache.Add(c.cacheKey(missing[j]), vec)
		out[missingAt[j]] = vec
	}
	return out, nil
}

// Name reports the inner embedder's name.
func (c *CachedEmbedder) Name() string {
	return c.inner.Name()
}

// Config reports the inner embedder's configuration.
func (c *CachedEmbedder) Config() map[string]any {
	return c.inner.Config()
}

func (c *CachedEmbedder) incCache(result string) {
	if c.cacheTotal != nil {
		c.cacheTotal.WithLabelValues(result).Inc()
	}
}

func (c *CachedEmbedder) cacheKey(text string) string {
	h := sha256.Sum256([]byte(c.inner.Name() + "\x00" + text))
	return hex.EncodeToString(h[:])
}
