package vecsql

import (
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Option configures the Client.
type Option interface {
	apply(*clientConfig)
}

// optionFunc adapts a function to the Option interface.
type optionFunc func(*clientConfig)

func (f optionFunc) apply(c *clientConfig) { f(c) }

type clientConfig struct {
	dsn string

	embedder Embedder

	maxBatchSize       int
	embeddingCacheSize int
	readinessTimeout   time.Duration

	logger     *slog.Logger
	metricsReg prometheus.Registerer
}

// WithDSN sets the database connection string, in the form
// user:password@tcp(host:port)/dbname.
func WithDSN(dsn string) Option {
	return optionFunc(func(c *clientConfig) {
		c.dsn = dsn
	})
}

// WithEmbedder sets the default text embedding provider. Collections
// created with their own embedder override it.
func WithEmbedder(e Embedder) Option {
	return optionFunc(func(c *clientConfig) {
		c.embedder = e
	})
}

// WithMaxBatchSize sets the maximum number of records per write.
// Default: 1000.
func WithMaxBatchSize(size int) Option {
	return optionFunc(func(c *clientConfig) {
		c.maxBatchSize = size
	})
}

// WithEmbeddingCacheSize sets how many embeddings the in-process cache
// keeps. Zero uses the default; negative disables caching.
func WithEmbeddingCacheSize(size int) Option {
	return optionFunc(func(c *clientConfig) {
		c.embeddingCacheSize = size
	})
}

// WithReadinessTimeout bounds how long New waits for the database.
// Default: 10s.
func WithReadinessTimeout(d time.Duration) Option {
	return optionFunc(func(c *clientConfig) {
		c.readinessTimeout = d
	})
}

// WithLogger enables SDK operation logging through the given logger.
func WithLogger(logger *slog.Logger) Option {
	return optionFunc(func(c *clientConfig) {
		c.logger = logger
	})
}

// WithPrometheus registers SDK operation metrics with the given registerer.
func WithPrometheus(reg prometheus.Registerer) Option {
	return optionFunc(func(c *clientConfig) {
		c.metricsReg = reg
	})
}
