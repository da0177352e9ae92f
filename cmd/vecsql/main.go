package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/vecsql/internal/catalog"
	"github.com/kailas-cloud/vecsql/internal/config"
	"github.com/kailas-cloud/vecsql/internal/db/mysql"
	"github.com/kailas-cloud/vecsql/internal/domain"
	logpkg "github.com/kailas-cloud/vecsql/internal/logger"
	"github.com/kailas-cloud/vecsql/internal/metrics"
	"github.com/kailas-cloud/vecsql/internal/repository/embcache"
	hybridrepo "github.com/kailas-cloud/vecsql/internal/repository/hybrid"
	recordrepo "github.com/kailas-cloud/vecsql/internal/repository/record"
	chiTransport "github.com/kailas-cloud/vecsql/internal/transport/chi"
	openaiEmb "github.com/kailas-cloud/vecsql/internal/transport/openai"
	collectionuc "github.com/kailas-cloud/vecsql/internal/usecase/collection"
	recorduc "github.com/kailas-cloud/vecsql/internal/usecase/record"
	searchuc "github.com/kailas-cloud/vecsql/internal/usecase/search"
	"github.com/kailas-cloud/vecsql/internal/version"
)

func main() {
	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting vecsql API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
	)

	store, err := mysql.NewStore(mysql.Config{
		DSN:             cfg.Database.DSN,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: time.Duration(cfg.Database.ConnMaxLifetimeSec) * time.Second,
	})
	if err != nil {
		logger.Fatal("Failed to create database store", zap.Error(err))
	}
	defer store.Close()

	ctx := context.Background()
	if err := store.WaitForReady(ctx, time.Duration(cfg.Database.ReadinessTimeout)*time.Second); err != nil {
		logger.Fatal("Database not ready", zap.Error(err))
	}
	logger.Info("Connected to database")

	// Register embedding metrics explicitly (no init())
	metrics.RegisterEmbeddingMetrics()

	embedder := buildEmbedder(cfg, logger)

	resolver := catalog.NewResolver(store, logger)
	recRepo := recordrepo.New(store)
	hybRepo := hybridrepo.New(store, logger)

	collSvc := collectionuc.New(resolver)
	recSvc := recorduc.New(recRepo, cfg.Limits.MaxBatchSize)
	searchSvc := searchuc.New(recRepo, hybRepo, logger)

	server := chiTransport.NewServer(collSvc, recSvc, searchSvc, embedder, store, logger)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      server.Router(),
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("Received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
}

// buildEmbedder assembles the embedder chain from the first configured
// vectorizer: OpenAI-compatible provider wrapped with an LRU cache.
// Returns nil when no vectorizer is configured; text inputs then
// require client-supplied embeddings.
func buildEmbedder(cfg config.Config, logger *zap.Logger) domain.Embedder {
	var vecCfg config.VectorizerConfig
	found := false
	for _, vc := range cfg.Embedding.Vectorizers {
		vecCfg = vc
		found = true
		break
	}
	if !found {
		logger.Info("No vectorizer configured, running without an embedder")
		return nil
	}
	provCfg := cfg.Embedding.Providers[vecCfg.Provider]

	base := openaiEmb.NewEmbedder(&openaiEmb.Config{
		APIKey:     provCfg.APIKey,
		BaseURL:    provCfg.BaseURL,
		Model:      vecCfg.Model,
		Dimensions: vecCfg.Dimensions,
		Provider:   vecCfg.Provider,
		Logger:     logger,
	})

	if cfg.Limits.EmbedCacheSize < 0 {
		logger.Info("Embedding cache disabled")
		return base
	}

	cached, err := embcache.New(base, cfg.Limits.EmbedCacheSize, metrics.EmbeddingCacheTotal)
	if err != nil {
		logger.Warn("Failed to create embedding cache, continuing without it", zap.Error(err))
		return base
	}

	logger.Info("Embedder created",
		zap.String("provider", vecCfg.Provider),
		zap.String("model", vecCfg.Model),
		zap.Int("dimensions", vecCfg.Dimensions),
	)
	return cached
}
