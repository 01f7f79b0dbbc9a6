package main

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/kailas-cloud/vecmatch/internal/config"
	dbRedis "github.com/kailas-cloud/vecmatch/internal/db/redis"
	"github.com/kailas-cloud/vecmatch/internal/domain"
	logpkg "github.com/kailas-cloud/vecmatch/internal/logger"
	"github.com/kailas-cloud/vecmatch/internal/metrics"
	"github.com/kailas-cloud/vecmatch/internal/repository/embcache"
	"github.com/kailas-cloud/vecmatch/internal/repository/sqlstore"
	openaiEmb "github.com/kailas-cloud/vecmatch/internal/transport/openai"
	embeddinguc "github.com/kailas-cloud/vecmatch/internal/usecase/embedding"
	"github.com/kailas-cloud/vecmatch/internal/version"
)

const cacheReadinessTimeout = 10 * time.Second

// app holds the collaborators shared by every mode of one invocation.
type app struct {
	cfg      config.Config
	logger   *zap.Logger
	store    *sqlstore.Store
	cache    *dbRedis.Store // nil when the cache is disabled
	base     *openaiEmb.Embedder
	embedder domain.Embedder
}

// bootstrap loads configuration, connects storage and assembles the embedder chain.
// The returned context carries a logger tagged with the run id and mode.
func bootstrap(ctx context.Context, flags rootFlags, mode string) (*app, context.Context, error) {
	env := config.GetEnv()

	var (
		cfg config.Config
		err error
	)
	if flags.configPath != "" {
		cfg, err = config.LoadFile(flags.configPath)
	} else {
		cfg, err = config.Load(env)
	}
	if err != nil {
		return nil, ctx, fmt.Errorf("failed to load config: %w", err)
	}

	base, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		return nil, ctx, fmt.Errorf("failed to create logger: %w", err)
	}
	runID := uuid.NewString()
	ctx = logpkg.WithRun(ctx, base, runID, mode)
	logger := logpkg.FromContext(ctx)

	logger.Info("Starting vecmatch",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.String("db_driver", cfg.Database.Driver),
		zap.String("provider", cfg.Provider.Name),
		zap.String("embedding_model", cfg.Provider.EmbeddingModel),
	)

	// Register metrics explicitly (no init())
	metrics.Register()

	a := &app{cfg: cfg, logger: logger}

	a.store, err = sqlstore.Open(ctx, sqlstore.Config{
		Driver:       cfg.Database.Driver,
		DSN:          cfg.Database.DSN,
		MaxLookupIDs: cfg.Database.MaxLookupIDs,
		MaxOpenConns: cfg.Database.MaxOpenConns,
	}, logger)
	if err != nil {
		logger.Error("Failed to connect to database", zap.Error(err))
		return nil, ctx, err
	}
	logger.Info("Connected to database")

	if flags.migrate {
		if err := a.store.Migrate(ctx); err != nil {
			a.close()
			return nil, ctx, err
		}
		logger.Info("Schema migrated")
	}

	if cfg.Cache.Enabled() {
		a.cache, err = dbRedis.NewStore(dbRedis.Config{
			Addrs:    cfg.Cache.Addrs,
			Password: cfg.Cache.Password,
		})
		if err != nil {
			a.close()
			return nil, ctx, fmt.Errorf("failed to create cache store: %w", err)
		}
		if err := a.cache.WaitForReady(ctx, cacheReadinessTimeout); err != nil {
			a.close()
			return nil, ctx, fmt.Errorf("cache not ready: %w", err)
		}
		logger.Info("Connected to embedding cache", zap.Strings("addrs", cfg.Cache.Addrs))
	}

	a.base, a.embedder = a.buildEmbedder()
	return a, ctx, nil
}

func (a *app) close() {
	if a.cache != nil {
		a.cache.Close()
	}
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.logger.Warn("Failed to close database", zap.Error(err))
		}
	}
	_ = a.logger.Sync()
}

// buildEmbedder assembles the decorator chain: Cached -> Instrumented -> OpenAI.
// Cache hits never reach the limiter or the provider.
func (a *app) buildEmbedder() (*openaiEmb.Embedder, domain.Embedder) {
	p := a.cfg.Provider
	base := openaiEmb.NewEmbedder(&openaiEmb.Config{
		APIKey:     p.APIKey,
		BaseURL:    p.BaseURL,
		Model:      p.EmbeddingModel,
		Dimensions: p.Dimensions,
		Provider:   p.Name,
		Logger:     a.logger,
	})

	// Pass a nil interface (not a typed nil pointer) when pacing is off.
	var limiter embeddinguc.Limiter
	if p.RequestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(p.RequestsPerSecond), max(1, int(p.RequestsPerSecond)))
	}

	var embedder domain.Embedder = embeddinguc.NewInstrumentedEmbedder(
		base, p.Name, p.EmbeddingModel, limiter, p.MaxBatchSize, a.logger,
	)

	if a.cache != nil {
		embedder = embcache.New(embedder, a.cache, embcache.Options{
			KeyPrefix: a.cfg.Cache.KeyPrefix,
			Model:     p.EmbeddingModel,
			TTL:       time.Duration(a.cfg.Cache.TTLSec) * time.Second,
		}, metrics.EmbeddingCacheTotal, a.logger)
	}

	return base, embedder
}

func (a *app) completer() *openaiEmb.Completer {
	p := a.cfg.Provider
	return openaiEmb.NewCompleter(&openaiEmb.Config{
		APIKey:    p.APIKey,
		BaseURL:   p.BaseURL,
		Model:     p.CompletionModel,
		MaxTokens: p.MaxTokens,
		Provider:  p.Name,
		Logger:    a.logger,
	})
}
