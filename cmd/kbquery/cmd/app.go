package cmd

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/kbquery/internal/config"
	"github.com/kailas-cloud/kbquery/internal/db"
	dbRedis "github.com/kailas-cloud/kbquery/internal/db/redis"
	"github.com/kailas-cloud/kbquery/internal/domain"
	logpkg "github.com/kailas-cloud/kbquery/internal/logger"
	"github.com/kailas-cloud/kbquery/internal/metrics"
	"github.com/kailas-cloud/kbquery/internal/repository/embcache"
	searchrepo "github.com/kailas-cloud/kbquery/internal/repository/search"
	openaiEmb "github.com/kailas-cloud/kbquery/internal/transport/openai"
	embeddinguc "github.com/kailas-cloud/kbquery/internal/usecase/embedding"
	healthuc "github.com/kailas-cloud/kbquery/internal/usecase/health"
	knowledgeuc "github.com/kailas-cloud/kbquery/internal/usecase/knowledge"
	queryuc "github.com/kailas-cloud/kbquery/internal/usecase/query"
)

// app is the composition root shared by every subcommand.
type app struct {
	cfg       config.Config
	logger    *zap.Logger
	store     db.Store
	query     *queryuc.Service
	knowledge *knowledgeuc.Service
	health    *healthuc.Service
}

func loadConfig() (config.Config, error) {
	if configPath != "" {
		return config.LoadFile(configPath)
	}
	return config.Load(envName)
}

// newApp loads config, connects to the store and assembles the services.
func newApp(ctx context.Context) (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	level := cfg.Logging.Level
	if logLevel != "" {
		level = logLevel
	}
	logger, err := logpkg.NewLogger(envName, level)
	if err != nil {
		return nil, err
	}

	logger.Debug("Connecting to database",
		zap.String("db_driver", cfg.Database.Driver),
		zap.Strings("db_addrs", cfg.Database.Addrs),
		zap.String("collection", cfg.Collection.Name),
	)

	store, err := dbRedis.NewStore(dbRedis.Config{
		Flavor:     dbRedis.Flavor(cfg.Database.Driver),
		Addrs:      cfg.Database.Addrs,
		Username:   cfg.Database.Username,
		Password:   cfg.Database.Password,
		DB:         cfg.Database.DB,
		ClientName: "kbquery",
	})
	if err != nil {
		_ = logger.Sync()
		return nil, fmt.Errorf("create %s store: %w", cfg.Database.Driver, err)
	}

	readiness := time.Duration(cfg.Database.ReadinessTimeout) * time.Second
	if err := store.WaitForReady(ctx, readiness); err != nil {
		store.Close()
		_ = logger.Sync()
		return nil, fmt.Errorf("%w: database not ready: %w", domain.ErrStoreQuery, err)
	}

	metrics.RegisterEmbeddingMetrics()
	metrics.RegisterQueryMetrics()

	embedder := buildEmbedder(cfg, store, logger)
	repo := searchrepo.New(store, searchrepo.Layout{
		KeyPrefix:    cfg.Storage.KeyPrefix,
		ContentField: cfg.Collection.ContentField,
		VectorField:  cfg.Collection.VectorField,
	})

	querySvc := queryuc.New(repo, embedder, cfg.Collection.Name,
		queryuc.WithDimensions(cfg.Embedding.Dimensions),
		queryuc.WithDefaultTopK(cfg.Query.DefaultTopK),
		queryuc.WithLogger(logger),
	)

	return &app{
		cfg:       cfg,
		logger:    logger,
		store:     store,
		query:     querySvc,
		knowledge: knowledgeuc.New(querySvc),
		health:    healthuc.New(store, repo, cfg.Collection.Name, newEmbeddingHealthChecker(embedder)),
	}, nil
}

func (a *app) close() {
	a.store.Close()
	_ = a.logger.Sync()
}

// queryContext bounds a single CLI query by query.timeout_sec.
func (a *app) queryContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if t := a.cfg.Query.Timeout(); t > 0 {
		return context.WithTimeout(ctx, t)
	}
	return context.WithCancel(ctx)
}

// embeddingHealthChecker wraps domain.Embedder to implement health.EmbeddingChecker.
type embeddingHealthChecker struct {
	embedder domain.Embedder
}

func newEmbeddingHealthChecker(embedder domain.Embedder) *embeddingHealthChecker {
	return &embeddingHealthChecker{embedder: embedder}
}

func (h *embeddingHealthChecker) HealthCheck(ctx context.Context) error {
	if hc, ok := h.embedder.(domain.HealthChecker); ok {
		if err := hc.HealthCheck(ctx); err != nil {
			return fmt.Errorf("embedding health check: %w", err)
		}
	}
	return nil
}

// buildEmbedder assembles the decorator chain: OpenAI -> Cached -> Instrumented -> Instruction
func buildEmbedder(cfg config.Config, store db.KVStore, logger *zap.Logger) domain.Embedder {
	emb := cfg.Embedding

	base := openaiEmb.NewEmbedder(&openaiEmb.Config{
		APIKey:            emb.APIKey,
		BaseURL:           emb.BaseURL,
		Model:             emb.Model,
		Dimensions:        emb.Dimensions,
		RequestDimensions: emb.RequestDimensions,
		Provider:          emb.Provider,
		Logger:            logger,
	})

	var embedder domain.Embedder = base
	if cfg.Cache.Enabled && store != nil {
		embedder = embcache.New(base, store, embcache.Config{
			KeyPrefix: cfg.Storage.KeyPrefix,
			Model:     emb.Model,
			TTL:       cfg.Cache.TTL(),
		}, metrics.EmbeddingCacheTotal, logger)
	}

	embedder = embeddinguc.NewInstrumentedEmbedder(
		embedder, emb.Provider, emb.Model,
		time.Duration(emb.TimeoutSec)*time.Second, logger,
	)

	// Instruction prefix (outermost, so the cache key includes it)
	if emb.QueryInstruction != "" {
		return domain.NewInstructionEmbedder(embedder, emb.QueryInstruction)
	}
	return embedder
}
