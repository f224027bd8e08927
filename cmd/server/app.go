package main

import (
	"context"
	"fmt"

	"github.com/bsm/redislock"
	"github.com/meritledger/backend/internal/application/reconciliation"
	"github.com/meritledger/backend/internal/domain/partner"
	"github.com/meritledger/backend/internal/infrastructure/cache"
	"github.com/meritledger/backend/internal/infrastructure/config"
	"github.com/meritledger/backend/internal/infrastructure/event"
	"github.com/meritledger/backend/internal/infrastructure/extraction"
	"github.com/meritledger/backend/internal/infrastructure/marketrate"
	"github.com/meritledger/backend/internal/infrastructure/persistence"
	"github.com/meritledger/backend/internal/infrastructure/storage"
	"github.com/meritledger/backend/internal/infrastructure/strategy"
	"github.com/meritledger/backend/internal/infrastructure/telemetry"
	"github.com/meritledger/backend/internal/interfaces/http/handler"
	"github.com/meritledger/backend/internal/interfaces/http/middleware"
	"github.com/meritledger/backend/internal/interfaces/http/router"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const inflationCacheKey = "merit:inflation_rate"

// application holds the wired services behind the HTTP layer
type application struct {
	handlers router.Handlers
	batch    *reconciliation.BatchProcessor
	limiter  middleware.Limiter
	bus      *event.InMemoryEventBus
	redis    *redis.Client
	logger   *zap.Logger
}

func newApplication(ctx context.Context, cfg *config.Config, db *persistence.Database, mp *telemetry.MeterProvider, log *zap.Logger) (*application, error) {
	app := &application{logger: log}

	if cfg.Redis.Enabled {
		client, err := cache.NewRedisClient(ctx, cfg.Redis)
		if err != nil {
			return nil, err
		}
		app.redis = client
		log.Info("Redis connected", zap.String("addr", cfg.Redis.Addr()))
	}

	// Domain events fan out to the journal and the metrics
	app.bus = event.NewInMemoryEventBus(log)
	app.bus.Subscribe(event.NewLoggingHandler(log))
	metrics, err := telemetry.NewReconciliationMetrics(mp.Meter("meritledger.reconciliation"))
	if err != nil {
		return nil, fmt.Errorf("reconciliation metrics: %w", err)
	}
	app.bus.Subscribe(metrics)
	if err := app.bus.Start(ctx); err != nil {
		return nil, err
	}

	settings := reconciliation.Settings{
		ConfidenceThreshold: cfg.Reconcile.ConfidenceThreshold,
		DocumentReward:      cfg.Reconcile.DocumentReward,
		ScopeToEntity:       cfg.Reconcile.ScopeToEntity,
		PricePolicy: partner.PricePolicy{
			Multiplier: cfg.Reconcile.InflationMultiplier,
			Penalty:    cfg.Reconcile.PricePenalty,
		},
		FallbackInflation: cfg.Market.Fallback,
	}

	scope := persistence.NewGormTransactionScope(db.DB)
	repos := persistence.NewRepositories(db.DB)

	strategies, err := strategy.NewRegistryWithDefaults()
	if err != nil {
		return nil, err
	}
	nameSimilarity, err := strategies.GetSimilarityStrategy(cfg.Reconcile.SimilarityStrategy)
	if err != nil {
		return nil, err
	}
	allocationStrategy, err := strategies.GetAllocationStrategy("")
	if err != nil {
		return nil, err
	}
	log.Info("Strategies selected",
		zap.String("similarity", nameSimilarity.Name()),
		zap.String("allocation", allocationStrategy.Name()))

	resolver := partner.NewIdentityResolver(nameSimilarity,
		partner.WithThreshold(cfg.Reconcile.SimilarityThreshold),
		partner.WithIDGenerator(partner.TaggedIDGenerator{Tag: cfg.Reconcile.IDTag}),
	)

	var rateOpts []marketrate.Option
	if cfg.Market.CacheEnabled {
		if app.redis != nil {
			rateOpts = append(rateOpts, marketrate.WithCache(cache.NewRedisRateCache(app.redis, inflationCacheKey)))
		} else {
			rateOpts = append(rateOpts, marketrate.WithCache(cache.NewInMemoryRateCache()))
		}
	}
	inflation := marketrate.NewHTTPInflationSource(cfg.Market, log, rateOpts...)

	allocation := reconciliation.NewAllocationService(scope, allocationStrategy, settings, log)
	prices := reconciliation.NewPriceService(scope, inflation, settings, log)
	merit := reconciliation.NewMeritService(scope, log)
	debts := reconciliation.NewDebtService(scope, log)
	query := reconciliation.NewQueryService(repos)
	ingestion := reconciliation.NewIngestionService(scope, resolver, allocation, prices, settings, log)

	allocation.SetEventPublisher(app.bus)
	prices.SetEventPublisher(app.bus)
	merit.SetEventPublisher(app.bus)
	ingestion.SetEventPublisher(app.bus)

	batch, err := app.newBatchProcessor(ctx, cfg, ingestion, debts)
	if err != nil {
		return nil, err
	}
	if batch != nil {
		batch.SetRecorder(metrics)
	}
	app.batch = batch

	if cfg.HTTP.RateLimitEnabled {
		if app.redis != nil {
			app.limiter = cache.NewRedisRequestLimiter(app.redis, cfg.HTTP.RateLimit, cfg.HTTP.RateLimitWindow)
		} else {
			local := middleware.NewRateLimiter(cfg.HTTP.RateLimit, cfg.HTTP.RateLimitWindow)
			go local.RunSweeper(ctx)
			app.limiter = local
		}
	}

	system := handler.NewSystemHandler(cfg.App.Name, version)
	system.AddCheck("database", func(context.Context) error {
		return db.Ping()
	})
	if app.redis != nil {
		system.AddCheck("redis", func(ctx context.Context) error {
			return app.redis.Ping(ctx).Err()
		})
	}

	app.handlers = router.Handlers{
		Documents:      handler.NewDocumentHandler(ingestion, allocation, query),
		Entities:       handler.NewEntityHandler(query, merit, debts),
		Reconciliation: handler.NewReconciliationHandler(allocation, prices, query, batch),
		System:         system,
	}
	return app, nil
}

// newBatchProcessor wires the inbox. The "none" source returns nil, which
// leaves POST /batches answering 503.
func (a *application) newBatchProcessor(ctx context.Context, cfg *config.Config, ingestion *reconciliation.IngestionService, debts *reconciliation.DebtService) (*reconciliation.BatchProcessor, error) {
	var source reconciliation.DocumentSource
	switch cfg.Batch.Source {
	case "none":
		a.logger.Info("Batch ingestion disabled")
		return nil, nil
	case "local":
		local, err := storage.NewLocalDocumentSource(cfg.Batch, a.logger)
		if err != nil {
			return nil, err
		}
		source = local
	case "s3":
		client, err := storage.NewS3Client(ctx, cfg.Storage)
		if err != nil {
			return nil, err
		}
		s3Source, err := storage.NewS3DocumentSource(client, cfg.Storage.Bucket, cfg.Batch, a.logger)
		if err != nil {
			return nil, err
		}
		source = s3Source
	default:
		return nil, fmt.Errorf("unsupported batch source %q", cfg.Batch.Source)
	}

	var extractor reconciliation.Extractor
	if cfg.Extraction.Enabled {
		gemini, err := extraction.NewGeminiExtractor(ctx, cfg.Extraction, a.logger)
		if err != nil {
			return nil, err
		}
		extractor = gemini
	}

	batch := reconciliation.NewBatchProcessor(source, extractor, ingestion, debts, a.logger.Named("batch"))
	if a.redis != nil {
		batch.SetLocker(cache.NewRedisBatchLock(redislock.New(a.redis), cfg.Batch.LockKey, cfg.Batch.LockTTL, a.logger))
	} else {
		batch.SetLocker(cache.NewLocalBatchLock())
	}
	return batch, nil
}

func (a *application) close(ctx context.Context) {
	if err := a.bus.Stop(ctx); err != nil {
		a.logger.Warn("Event bus stop failed", zap.Error(err))
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.logger.Warn("Redis close failed", zap.Error(err))
		}
	}
}
