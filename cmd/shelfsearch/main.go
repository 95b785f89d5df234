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

	"github.com/kailas-cloud/shelfsearch/internal/config"
	"github.com/kailas-cloud/shelfsearch/internal/db/opensearch"
	"github.com/kailas-cloud/shelfsearch/internal/db/postgres"
	dbRedis "github.com/kailas-cloud/shelfsearch/internal/db/redis"
	"github.com/kailas-cloud/shelfsearch/internal/domain"
	"github.com/kailas-cloud/shelfsearch/internal/domain/search/pagination"
	"github.com/kailas-cloud/shelfsearch/internal/flags"
	logpkg "github.com/kailas-cloud/shelfsearch/internal/logger"
	"github.com/kailas-cloud/shelfsearch/internal/metrics"
	"github.com/kailas-cloud/shelfsearch/internal/repository/embcache"
	chiTransport "github.com/kailas-cloud/shelfsearch/internal/transport/chi"
	openaiEmb "github.com/kailas-cloud/shelfsearch/internal/transport/openai"
	embeddinguc "github.com/kailas-cloud/shelfsearch/internal/usecase/embedding"
	healthuc "github.com/kailas-cloud/shelfsearch/internal/usecase/health"
	searchuc "github.com/kailas-cloud/shelfsearch/internal/usecase/search"
	"github.com/kailas-cloud/shelfsearch/internal/version"
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

	logger.Info("Starting shelfsearch API server",
		zap.String("version", version.String()),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.String("engine_url", cfg.Engine.URL),
		zap.Bool("postgres", cfg.Postgres.DSN != ""),
		zap.Strings("redis_addrs", cfg.Redis.Addrs),
	)

	// Register metrics explicitly (no init())
	metrics.RegisterHTTPMetrics()
	metrics.RegisterEmbeddingMetrics()
	metrics.RegisterSearchMetrics()

	ctx := context.Background()

	engine, err := opensearch.New(&opensearch.Config{
		URL:      cfg.Engine.URL,
		Username: cfg.Engine.Username,
		Password: cfg.Engine.Password,
		Timeout:  time.Duration(cfg.Engine.TimeoutSec) * time.Second,
		Logger:   logger,
	})
	if err != nil {
		logger.Fatal("Failed to create engine client", zap.Error(err))
	}

	// Pass nil interfaces (not typed nil pointers!) for absent components.
	// Go gotcha: (*postgres.Store)(nil) wrapped in an interface != nil.
	components := healthuc.Components{Engine: engine}

	var relational searchuc.Relational
	if cfg.Postgres.DSN != "" {
		pg, err := postgres.Open(ctx, postgres.Config{
			DSN:          cfg.Postgres.DSN,
			MaxOpenConns: cfg.Postgres.MaxOpenConns,
		}, logger)
		if err != nil {
			logger.Fatal("Failed to open relational store", zap.Error(err))
		}
		defer func() { _ = pg.Close() }()
		relational = pg
		components.Postgres = pg
		logger.Info("Connected to relational store")
	} else {
		logger.Warn("postgres.dsn is empty, free-tier library search is disabled")
	}

	var cache *dbRedis.Store
	if len(cfg.Redis.Addrs) > 0 {
		cache, err = dbRedis.NewStore(dbRedis.Config{
			Addrs:    cfg.Redis.Addrs,
			Password: cfg.Redis.Password,
		})
		if err != nil {
			logger.Fatal("Failed to create redis store", zap.Error(err))
		}
		defer cache.Close()

		if err := cache.WaitForReady(ctx, time.Duration(cfg.Redis.ReadinessTimeout)*time.Second); err != nil {
			logger.Fatal("Redis not ready", zap.Error(err))
		}
		components.Redis = cache
		logger.Info("Connected to redis")
	}

	var embedder searchuc.Embedder
	if cfg.Embedding.APIKey != "" {
		base, chain := buildEmbedder(cfg.Embedding, cfg.Redis, cache, logger)
		embedder = chain
		components.Embedding = base
		logger.Info("Embedder created",
			zap.String("provider", cfg.Embedding.Provider),
			zap.String("model", cfg.Embedding.Model),
			zap.Int("dimensions", cfg.Embedding.Dimensions),
		)
	} else {
		logger.Warn("embedding.api_key is empty, corpus search is keyword only")
	}

	flagSet, err := flags.NewStatic(cfg.Flags)
	if err != nil {
		logger.Fatal("Invalid feature flags", zap.Error(err))
	}

	router := searchuc.NewRouter(routerConfig(cfg), embedder, flagSet, logger)
	searchSvc := searchuc.New(searchuc.Config{
		LibraryIndex: cfg.Engine.LibraryIndex,
		Limits: pagination.Limits{
			DefaultSize: cfg.Search.DefaultPageSize,
			MaxSize:     cfg.Search.MaxPageSize,
		},
		DefaultScore: cfg.Search.DefaultQueryScore,
	}, engine, relational, router, logger)

	healthSvc := healthuc.New(components)

	server := chiTransport.NewServer(searchSvc, healthSvc, cfg.Auth.APIKeys, logger)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      server.Routes(),
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	// Graceful shutdown
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

func routerConfig(cfg config.Config) searchuc.RouterConfig {
	languages := make(map[string]searchuc.Language, len(cfg.Corpus.Languages))
	for code, l := range cfg.Corpus.Languages {
		languages[code] = searchuc.Language{Index: l.Index, Embeddings: l.Embeddings}
	}
	return searchuc.RouterConfig{
		Languages:       languages,
		DefaultLanguage: cfg.Corpus.DefaultLanguage,
		FallbackIndex:   cfg.Corpus.FallbackIndex,
		SemanticFlag:    cfg.Corpus.SemanticFlag,
		DisableFallback: cfg.Corpus.DisableFallback,
		DefaultK:        cfg.Search.DefaultPageSize,
		DefaultScore:    cfg.Corpus.DefaultQueryScore,
	}
}

// buildEmbedder assembles the decorator chain: OpenAI -> Cached -> Instrumented -> Instruction.
// It returns the base provider for health checks and the outermost decorator.
func buildEmbedder(
	embCfg config.EmbeddingConfig,
	redisCfg config.RedisConfig,
	cache *dbRedis.Store,
	logger *zap.Logger,
) (*openaiEmb.Embedder, domain.Embedder) {
	base := openaiEmb.NewEmbedder(&openaiEmb.Config{
		APIKey:     embCfg.APIKey,
		BaseURL:    embCfg.BaseURL,
		Model:      embCfg.Model,
		Dimensions: embCfg.Dimensions,
		Provider:   embCfg.Provider,
		Logger:     logger,
	})

	opts := embcache.Options{
		MemorySize: embCfg.MemoryCacheSize,
		TTL:        time.Duration(redisCfg.CacheTTLHours) * time.Hour,
		CacheTotal: metrics.EmbeddingCacheTotal,
	}
	var cached *embcache.CachedEmbedder
	var err error
	if cache != nil {
		cached, err = embcache.New(base, cache, opts, logger)
	} else {
		cached, err = embcache.New(base, nil, opts, logger)
	}
	if err != nil {
		logger.Fatal("Failed to create embedding cache", zap.Error(err))
	}

	var embedder domain.Embedder = embeddinguc.NewInstrumentedEmbedder(
		cached, embCfg.Provider, embCfg.Model,
		time.Duration(embCfg.TimeoutMs)*time.Millisecond, logger,
	)

	// Instruction prefix (outermost: cache key includes instruction)
	if embCfg.QueryInstruction != "" {
		embedder = domain.NewInstructionEmbedder(embedder, embCfg.QueryInstruction)
	}
	return base, embedder
}
