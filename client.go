package vecsql

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/vecsql/internal/catalog"
	"github.com/kailas-cloud/vecsql/internal/db"
	"github.com/kailas-cloud/vecsql/internal/db/mysql"
	"github.com/kailas-cloud/vecsql/internal/domain"
	"github.com/kailas-cloud/vecsql/internal/repository/embcache"
	hybridrepo "github.com/kailas-cloud/vecsql/internal/repository/hybrid"
	recordrepo "github.com/kailas-cloud/vecsql/internal/repository/record"
	collectionuc "github.com/kailas-cloud/vecsql/internal/usecase/collection"
	recorduc "github.com/kailas-cloud/vecsql/internal/usecase/record"
	searchuc "github.com/kailas-cloud/vecsql/internal/usecase/search"
)

const defaultReadinessTimeout = 10 * time.Second

// Client is the vecsql SDK entry point.
type Client struct {
	store     db.Store
	obs       *observer
	embedder  domain.Embedder
	collSvc   *collectionuc.Service
	recSvc    *recorduc.Service
	searchSvc *searchuc.Service
}

// New creates a vecsql Client and connects to the database.
func New(ctx context.Context, opts ...Option) (*Client, error) {
	cfg := &clientConfig{readinessTimeout: defaultReadinessTimeout}
	for _, o := range opts {
		o.apply(cfg)
	}

	if cfg.dsn == "" {
		return nil, errors.New("vecsql: database DSN required (use WithDSN)")
	}

	store, err := mysql.NewStore(mysql.Config{DSN: cfg.dsn})
	if err != nil {
		return nil, fmt.Errorf("vecsql: create store: %w", err)
	}
	if err := store.WaitForReady(ctx, cfg.readinessTimeout); err != nil {
		store.Close()
		return nil, fmt.Errorf("vecsql: database not ready: %w", err)
	}

	return wireClient(store, cfg)
}

func wireClient(store db.Store, cfg *clientConfig) (*Client, error) {
	obs, err := newObserver(cfg.logger, cfg.metricsReg)
	if err != nil {
		store.Close()
		return nil, err
	}

	embedder, err := clientEmbedder(cfg, obs)
	if err != nil {
		store.Close()
		return nil, err
	}

	resolver := catalog.NewResolver(store, zap.NewNop())
	recRepo := recordrepo.New(store)
	hybRepo := hybridrepo.New(store, nil)

	return &Client{
		store:     store,
		obs:       obs,
		embedder:  embedder,
		collSvc:   collectionuc.New(resolver),
		recSvc:    recorduc.New(recRepo, cfg.maxBatchSize),
		searchSvc: searchuc.New(recRepo, hybRepo, nil),
	}, nil
}

// clientEmbedder adapts the configured embedder and wraps it with the
// in-process cache unless caching was disabled.
func clientEmbedder(cfg *clientConfig, obs *observer) (domain.Embedder, error) {
	if cfg.embedder == nil {
		return nil, nil
	}
	inner := adaptEmbedder(cfg.embedder, nil)
	if cfg.embeddingCacheSize < 0 {
		return inner, nil
	}
	cached, err := embcache.New(inner, cfg.embeddingCacheSize, obs.cacheCounter())
	if err != nil {
		return nil, fmt.Errorf("vecsql: %w", err)
	}
	return cached, nil
}

// Close releases all resources.
func (c *Client) Close() error {
	if c.store != nil {
		return c.store.Close()
	}
	return nil
}

// Ping checks database connectivity.
func (c *Client) Ping(ctx context.Context) error {
	if err := c.store.Ping(ctx); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}

// CreateCollection creates a new collection and returns a handle to it.
func (c *Client) CreateCollection(ctx context.Context, name string, opts ...CollectionOption) (col *Collection, err error) {
	start := time.Now()
	defer func() { c.obs.observe("collection.create", start, err) }()

	params, embedder, err := c.collectionParams(ctx, name, opts)
	if err != nil {
		return nil, err
	}
	desc, err := c.collSvc.Create(ctx, params)
	if err != nil {
		return nil, err
	}
	return c.handle(desc, embedder), nil
}

// GetCollection returns a handle to an existing collection. A persisted
// embedding function is rebuilt through the embedder registry.
func (c *Client) GetCollection(ctx context.Context, name string) (col *Collection, err error) {
	start := time.Now()
	defer func() { c.obs.observe("collection.get", start, err) }()

	desc, err := c.collSvc.Get(ctx, name)
	if err != nil {
		return nil, err
	}
	embedder, err := c.restoreEmbedder(desc)
	if err != nil {
		return nil, err
	}
	return c.handle(desc, embedder), nil
}

// GetOrCreateCollection returns an existing collection or creates it.
func (c *Client) GetOrCreateCollection(ctx context.Context, name string, opts ...CollectionOption) (col *Collection, err error) {
	start := time.Now()
	defer func() { c.obs.observe("collection.get_or_create", start, err) }()

	params, embedder, err := c.collectionParams(ctx, name, opts)
	if err != nil {
		return nil, err
	}
	desc, err := c.collSvc.GetOrCreate(ctx, params)
	if err != nil {
		return nil, err
	}
	if desc.Embedder() != nil && embedder == nil {
		embedder, err = c.restoreEmbedder(desc)
		if err != nil {
			return nil, err
		}
	}
	return c.handle(desc, embedder), nil
}

// ListCollections lists all catalog-registered collections.
func (c *Client) ListCollections(ctx context.Context) (infos []CollectionInfo, err error) {
	start := time.Now()
	defer func() { c.obs.observe("collection.list", start, err) }()

	descs, err := c.collSvc.List(ctx)
	if err != nil {
		return nil, err
	}
	infos = make([]CollectionInfo, 0, len(descs))
	for _, d := range descs {
		infos = append(infos, collectionInfo(d))
	}
	return infos, nil
}

// DeleteCollection removes a collection and all its records.
func (c *Client) DeleteCollection(ctx context.Context, name string) (err error) {
	start := time.Now()
	defer func() { c.obs.observe("collection.delete", start, err) }()
	return c.collSvc.Delete(ctx, name)
}

func (c *Client) handle(desc domain.Descriptor, embedder domain.Embedder) *Collection {
	if embedder == nil {
		embedder = c.embedder
	}
	return &Collection{
		client:   c,
		desc:     desc,
		embedder: embedder,
	}
}

// restoreEmbedder rebuilds the collection's persisted embedding
// function, falling back to the client-wide embedder when none was
// recorded.
func (c *Client) restoreEmbedder(desc domain.Descriptor) (domain.Embedder, error) {
	if desc.Embedder() == nil {
		return c.embedder, nil
	}
	return buildEmbedder(desc.Embedder())
}

func collectionInfo(d domain.Descriptor) CollectionInfo {
	info := CollectionInfo{
		Name:      d.Name(),
		Dimension: d.Dimension(),
		Metric:    DistanceMetric(d.Distance()),
	}
	if e := d.Embedder(); e != nil {
		info.EmbedderName = e.Name
	}
	return info
}
