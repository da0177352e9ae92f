package vecsql

import (
	"context"
	"fmt"

	"github.com/kailas-cloud/vecsql/internal/domain"
	collectionuc "github.com/kailas-cloud/vecsql/internal/usecase/collection"
)

// CollectionOption configures collection creation.
type CollectionOption func(*collectionConfig)

type collectionConfig struct {
	dimension  int
	metric     DistanceMetric
	embedder   Embedder
	properties map[string]any
}

// WithDimension sets the vector dimension. Required unless an
// embedding function is configured, in which case the dimension is
// probed from it.
func WithDimension(dim int) CollectionOption {
	return func(c *collectionConfig) {
		c.dimension = dim
	}
}

// WithDistance sets the distance metric. Default: l2.
func WithDistance(metric DistanceMetric) CollectionOption {
	return func(c *collectionConfig) {
		c.metric = metric
	}
}

// WithEmbeddingFunction attaches an embedding function to the
// collection. Its name and properties are persisted so GetCollection
// can rebuild it later through the embedder registry.
func WithEmbeddingFunction(e Embedder, properties map[string]any) CollectionOption {
	return func(c *collectionConfig) {
		c.embedder = e
		c.properties = properties
	}
}

// collectionParams resolves collection options into creation
// parameters and the embedding function the handle will use. A missing
// dimension is probed by embedding a short text.
func (c *Client) collectionParams(ctx context.Context, name string, opts []CollectionOption) (collectionuc.CreateParams, domain.Embedder, error) {
	cfg := &collectionConfig{}
	for _, o := range opts {
		o(cfg)
	}

	var embedder domain.Embedder
	var descriptor *domain.EmbedderDescriptor
	if cfg.embedder != nil {
		embedder = adaptEmbedder(cfg.embedder, cfg.properties)
		descriptor = domain.Describe(embedder)
	} else {
		embedder = c.embedder
	}

	dimension := cfg.dimension
	if dimension == 0 && embedder != nil {
		probed, err := probeDimension(ctx, embedder)
		if err != nil {
			return collectionuc.CreateParams{}, nil, err
		}
		dimension = probed
	}

	params := collectionuc.CreateParams{
		Name:      name,
		Dimension: dimension,
		Distance:  domain.Distance(cfg.metric),
		Embedder:  descriptor,
	}
	return params, embedder, nil
}

// probeDimension embeds a short text to learn the vector size the
// embedding function produces.
func probeDimension(ctx context.Context, e domain.Embedder) (int, error) {
	vectors, err := e.Embed(ctx, []string{"dimension probe"})
	if err != nil {
		return 0, fmt.Errorf("%w: probing vector dimension: %v", domain.ErrEmbeddingProviderError, err)
	}
	if len(vectors) == 0 || len(vectors[0]) == 0 {
		return 0, fmt.Errorf("%w: embedding function produced an empty vector", domain.ErrEmbeddingProviderError)
	}
	return len(vectors[0]), nil
}
