package commands

import (
	"context"
	"fmt"

	"github.com/sudhan/stockpicks/internal/aggregator"
	"github.com/sudhan/stockpicks/internal/chunk"
	"github.com/sudhan/stockpicks/internal/dispatch"
	"github.com/sudhan/stockpicks/internal/fundamentals"
	"github.com/sudhan/stockpicks/internal/mailer"
	"github.com/sudhan/stockpicks/internal/orchestrator"
	"github.com/sudhan/stockpicks/internal/scheduler"
	"github.com/sudhan/stockpicks/internal/scoring"
	"github.com/sudhan/stockpicks/internal/storage"
	"github.com/sudhan/stockpicks/internal/universe"
	"github.com/sudhan/stockpicks/pkg/config"
	"github.com/sudhan/stockpicks/pkg/database"
	"github.com/sudhan/stockpicks/pkg/httputil"
	"github.com/sudhan/stockpicks/pkg/logger"
	"github.com/sudhan/stockpicks/pkg/redis"
)

// app bundles the wired pipeline shared by the commands
type app struct {
	cfg *config.Config
	log *logger.Logger
	db  *database.DB // nil when no DATABASE_URL is configured
	rdb *redis.Client

	orch  *orchestrator.Orchestrator
	agg   *aggregator.Aggregator
	runs  orchestrator.RunStore
	queue *dispatch.Queue // nil without a database
	local *dispatch.LocalInvoker
}

// newApp wires the pipeline. With a DATABASE_URL the chunk hand-off and
// run records are durable and chunks execute on separate worker
// processes; without one everything runs in-process.
// ⭐ SSOT: 파이프라인 조립은 이 함수에서만
func newApp() (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	log := logger.New(cfg)

	rdb, err := redis.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("connect redis: %w", err)
	}

	var db *database.DB
	if cfg.Database.URL != "" {
		db, err = database.New(cfg)
		if err != nil {
			return nil, fmt.Errorf("connect database: %w", err)
		}
	}

	// Market data clients. Retry policy lives in the fetcher; the shared
	// Redis window paces requests across worker processes when enabled.
	marketClient := httputil.NewWithTimeout(log, cfg.MarketData.RequestTimeout)
	if cfg.MarketData.SharedRateLimit && rdb.Enabled() {
		limiter := redis.NewRateLimiter(rdb, "stockpicks")
		marketClient = marketClient.WithRateLimiter(limiter, redis.MarketDataRateLimit(cfg.MarketData.RequestsPerSecond))
	}

	primary := fundamentals.NewPrimaryClient(marketClient, cfg.MarketData.PrimaryBaseURL, log)
	var secondary fundamentals.Source
	if av := fundamentals.NewAlphaVantageClient(marketClient, cfg.MarketData.AlphaVantageURL, cfg.MarketData.AlphaVantageKey, log); av != nil {
		secondary = av
	}
	fetcher := fundamentals.NewFetcher(primary, secondary, cfg.MarketData.RequestsPerSecond, log)

	processor := chunk.NewProcessor(fetcher, cfg.Pipeline.FetchWorkers, log)
	scorer := scoring.NewClient(httputil.NewWithTimeout(log, cfg.Scoring.Timeout), cfg.Scoring, log)

	mail, err := mailer.New(cfg.Email, log)
	if err != nil {
		return nil, fmt.Errorf("configure mailer: %w", err)
	}

	var store storage.Store
	var runs orchestrator.RunStore
	if db != nil {
		store = storage.NewPostgresStore(db)
		runs = orchestrator.NewPostgresRunStore(db)
	} else {
		store = storage.NewMemoryStore()
		runs = orchestrator.NewMemoryRunStore()
	}
	publisher := storage.NewPublisher(store, cfg.Pipeline.StoragePrefix, log)

	agg := aggregator.New(store, mail, cfg.Pipeline.StoragePrefix, cfg.Pipeline.TopN, log)
	planner := scheduler.NewOneShotFinalizer(agg, log)

	a := &app{cfg: cfg, log: log, db: db, rdb: rdb, agg: agg, runs: runs}

	var invoker dispatch.Invoker
	if db != nil {
		a.queue = dispatch.NewQueue(db, log)
		invoker = a.queue
	} else {
		// In-process fallback: jobs run on goroutines via the orchestrator
		a.local = dispatch.NewLocalInvoker(dispatch.HandlerFunc(func(ctx context.Context, p dispatch.Payload) error {
			return a.orch.Handle(ctx, p)
		}), log)
		invoker = a.local
	}

	loader := universe.NewLoader(httputil.New(log), log)
	a.orch = orchestrator.New(
		loader, fetcher, processor, scorer, publisher,
		invoker, agg, planner, mail, runs,
		cfg.Pipeline, log,
	)

	return a, nil
}

// Close releases external connections
func (a *app) Close() {
	if a.local != nil {
		a.local.Wait()
	}
	if a.db != nil {
		a.db.Close()
	}
	if a.rdb != nil {
		_ = a.rdb.Close()
	}
}

// migrate ensures the pipeline tables exist when a database is wired
func (a *app) migrate(ctx context.Context) error {
	if a.db == nil {
		return nil
	}
	return a.db.Migrate(ctx)
}
