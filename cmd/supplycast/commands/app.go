package commands

import (
	"context"
	"fmt"

	"github.com/wonny/supplycast/internal/artifacts"
	"github.com/wonny/supplycast/internal/chart"
	"github.com/wonny/supplycast/internal/forecast"
	"github.com/wonny/supplycast/internal/notify"
	"github.com/wonny/supplycast/internal/pipeline"
	"github.com/wonny/supplycast/internal/publication"
	"github.com/wonny/supplycast/internal/reference"
	"github.com/wonny/supplycast/internal/sales"
	"github.com/wonny/supplycast/pkg/config"
	"github.com/wonny/supplycast/pkg/database"
	"github.com/wonny/supplycast/pkg/logger"
	"github.com/wonny/supplycast/pkg/redis"
)

// app holds the wired dependencies of one CLI invocation
type app struct {
	cfg      *config.Config
	log      *logger.Logger
	db       *database.DB
	upstream *database.Upstream
	redis    *redis.Client
	notifier notify.Notifier

	layout   artifacts.Layout
	provider *sales.Provider
	resolver *reference.Resolver
	runner   *pipeline.Runner
}

// newApp loads config and connects every store.
// A primary database that stays unreachable after the retries wraps database.ErrUnavailable.
func newApp(ctx context.Context) (*app, error) {
	// 1. Load config
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if verbose {
		cfg.LogLevel = "debug"
	}

	// 2. Initialize logger
	log := logger.New(cfg)
	zlog := log.Zerolog()

	a := &app{cfg: cfg, log: log, layout: artifacts.NewLayout(cfg.Pipeline.DataDir)}

	// 3. Connect to database
	a.db, err = database.New(ctx, cfg, logger.Component(zlog, "database"))
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	// 4. Upstream warehouse (없으면 cache-only)
	a.upstream, err = database.NewUpstream(ctx, cfg, logger.Component(zlog, "database.upstream"))
	if err != nil {
		log.WithError(err).Warn("upstream warehouse unavailable, running cache-only")
		a.upstream = nil
	}

	// 5. Redis cache (disabled면 no-op)
	a.redis, err = redis.New(ctx, cfg)
	if err != nil {
		a.close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	// 6. Collaborators
	var source sales.Source
	var precharge pipeline.PrechargeExporter
	if a.upstream != nil {
		source = sales.NewWarehouseSource(a.upstream.DB)
		if cfg.Pipeline.ExportPrecharge {
			precharge = sales.NewPrechargeExporter(a.upstream.DB, cfg.Pipeline.PrechargeUser, logger.Component(zlog, "sales.precharge"))
		}
	}
	a.provider = sales.NewProvider(a.layout, source, cfg.Upstream.FloorDate, logger.Component(zlog, "sales.provider"))
	a.resolver = reference.NewResolver(
		reference.NewPostgresSource(a.db.Pool),
		redis.NewCache(a.redis, "supplycast"),
		logger.Component(zlog, "reference"),
	)
	a.notifier = notify.New(cfg, logger.Component(zlog, "notify"))

	renderer, err := chart.NewRenderer()
	if err != nil {
		a.close()
		return nil, fmt.Errorf("init chart renderer: %w", err)
	}

	a.runner = pipeline.NewRunner(pipeline.Deps{
		Store:      pipeline.NewRepository(a.db.Pool),
		Layout:     a.layout,
		History:    a.provider,
		Reference:  a.resolver,
		Forecaster: forecast.NewForecaster(logger.Component(zlog, "forecast")),
		Charts: chart.NewGenerator(renderer, chart.Options{
			MaxBytes: cfg.Pipeline.ChartMaxBytes,
			Workers:  cfg.Pipeline.ChartWorkers,
		}, zlog),
		Renderer: renderer,
		Publisher: publication.NewAdapter(
			a.db.Pool,
			cfg.Pipeline.PublishBatchSize,
			cfg.Pipeline.PublishBatchesPerSecond,
			logger.Component(zlog, "publication"),
		),
		Precharge: precharge,
		Notifier:  a.notifier,
	}, pipeline.Options{
		ArchiveDir:      cfg.Pipeline.ArchiveDir,
		ChartMaxBytes:   cfg.Pipeline.ChartMaxBytes,
		ChartFlushEvery: cfg.Pipeline.ChartFlushEvery,
		StaleClaimAfter: cfg.Pipeline.StaleClaimAfter,
	}, zlog)

	return a, nil
}

// close releases every connection opened by newApp
func (a *app) close() {
	if a.notifier != nil {
		if err := a.notifier.Close(); err != nil {
			a.log.WithError(err).Warn("failed to close notifier")
		}
	}
	if a.redis != nil {
		_ = a.redis.Close()
	}
	if a.upstream != nil {
		_ = a.upstream.Close()
	}
	if a.db != nil {
		a.db.Close()
	}
}
