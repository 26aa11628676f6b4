package main

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/kailas-cloud/vecstore"
	"github.com/kailas-cloud/vecstore/internal/config"
	"github.com/kailas-cloud/vecstore/internal/domain"
	logpkg "github.com/kailas-cloud/vecstore/internal/logger"
	"github.com/kailas-cloud/vecstore/internal/metrics"
	openaiEmb "github.com/kailas-cloud/vecstore/internal/transport/openai"
	embeddinguc "github.com/kailas-cloud/vecstore/internal/usecase/embedding"
)

// app holds everything the commands share.
type app struct {
	cfg      config.Config
	logger   *zap.Logger
	client   *vecstore.Client
	store    *vecstore.Store[vecstore.Document]
	embedder *embeddinguc.Service
}

// bootstrap loads config, connects to the database and opens the document store.
func bootstrap(ctx context.Context, initSchema bool) (*app, error) {
	if env == "" {
		env = config.GetEnv()
	}

	cfg, err := config.Load(env)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		return nil, fmt.Errorf("create logger: %w", err)
	}

	metrics.RegisterEmbeddingMetrics()

	embedder, err := buildEmbedder(cfg.Embedding, logger)
	if err != nil {
		return nil, err
	}

	client, err := vecstore.New(ctx, clientOptions(cfg, embedder, logger)...)
	if err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}
	logger.Info("Connected to database",
		zap.String("driver", cfg.Database.Driver),
		zap.Strings("addrs", cfg.Database.Addrs),
	)

	store, err := vecstore.NewStore[vecstore.Document](ctx, client, storeOptions(cfg.Store, initSchema)...)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("open store: %w", err)
	}

	return &app{cfg: cfg, logger: logger, client: client, store: store, embedder: embedder}, nil
}

func (a *app) close() {
	a.client.Close()
	_ = a.logger.Sync()
}

func clientOptions(cfg config.Config, embedder vecstore.Embedder, logger *zap.Logger) []vecstore.Option {
	db := cfg.Database
	var opts []vecstore.Option
	if db.Driver == "redis" {
		opts = append(opts, vecstore.WithRedis(db.Addrs[0], db.Password))
	} else {
		opts = append(opts, vecstore.WithValkey(db.Addrs[0], db.Password))
	}
	opts = append(opts,
		vecstore.WithAddrs(db.Addrs...),
		vecstore.WithUsername(db.Username),
		vecstore.WithReadinessTimeout(time.Duration(db.ReadinessTimeout)*time.Second),
		vecstore.WithEmbedder(embedder),
		vecstore.WithKeyPrefix(cfg.Storage.KeyPrefix),
		vecstore.WithHNSW(cfg.Store.HNSWM, cfg.Store.HNSWEFConstruct),
		vecstore.WithLogger(logger),
		vecstore.WithPrometheus(prometheus.DefaultRegisterer),
	)
	if cfg.Embedding.Cache.Enabled {
		ttl := time.Duration(cfg.Embedding.Cache.TTLSec) * time.Second
		opts = append(opts, vecstore.WithEmbeddingCache(cfg.Embedding.Model, ttl))
	}
	return opts
}

func storeOptions(cfg config.StoreConfig, initSchema bool) []vecstore.StoreOption {
	names := make([]string, 0, len(cfg.FilterableFields))
	opts := []vecstore.StoreOption{
		vecstore.WithCollection(cfg.Collection),
		vecstore.WithIndexName(cfg.IndexName),
		vecstore.WithNumCandidates(cfg.NumCandidates),
		vecstore.WithInitializeSchema(initSchema),
	}
	for _, f := range cfg.FilterableFields {
		names = append(names, f.Name)
		if f.Type == "numeric" {
			opts = append(opts, vecstore.WithNumericField(f.Name))
		}
	}
	return append(opts, vecstore.WithFilterableFields(names...))
}

// buildEmbedder assembles the decorator chain: OpenAI -> Instrumented (batching) -> Instruction.
// The database-backed cache is added by the client.
func buildEmbedder(cfg config.EmbeddingConfig, logger *zap.Logger) (*embeddinguc.Service, error) {
	base := openaiEmb.NewEmbedder(&openaiEmb.Config{
		APIKey:     cfg.APIKey,
		BaseURL:    cfg.BaseURL,
		Model:      cfg.Model,
		Dimensions: cfg.Dimensions,
		Provider:   cfg.Provider,
		Logger:     logger,
	})

	var strategy embeddinguc.BatchingStrategy = embeddinguc.SingleBatch{MaxBatchSize: cfg.MaxBatchSize}
	if cfg.Batching == "token_count" {
		counter, err := embeddinguc.NewTiktokenCounter(embeddinguc.DefaultEncoding)
		if err != nil {
			return nil, fmt.Errorf("token counter: %w", err)
		}
		strategy, err = embeddinguc.NewTokenCountBatching(counter, embeddinguc.TokenCountOptions{
			MaxInputTokens:    cfg.MaxInputTokens,
			ReservePercentage: cfg.ReservePercentage,
			MaxBatchSize:      cfg.MaxBatchSize,
		})
		if err != nil {
			return nil, fmt.Errorf("batching strategy: %w", err)
		}
	}

	var chain domain.Embedder = embeddinguc.NewInstrumentedEmbedder(base, strategy, cfg.Provider, cfg.Model, logger)
	if cfg.Instruction != "" {
		chain = domain.NewInstructionEmbedder(chain, cfg.Instruction)
	}

	logger.Info("Embedder created",
		zap.String("provider", cfg.Provider),
		zap.String("model", cfg.Model),
		zap.Int("dimensions", cfg.Dimensions),
		zap.String("batching", strategy.Name()),
	)
	return embeddinguc.NewService(chain, cfg.Dimensions, base), nil
}
