package app

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	_ "github.com/lib/pq"

	"PriceScanner/internal/config"
	"PriceScanner/internal/crawl"
	"PriceScanner/internal/importer"
	"PriceScanner/internal/infrastructure/alert"
	"PriceScanner/internal/infrastructure/extract"
	"PriceScanner/internal/infrastructure/importers"
	"PriceScanner/internal/infrastructure/scheduler"
	"PriceScanner/internal/infrastructure/storage"
	"PriceScanner/internal/logging"
	"PriceScanner/internal/ports"
	"PriceScanner/internal/usecase"
)

// Application wires configs to use cases and lifecycle orchestration.
type Application struct {
	cfg         config.Config
	logger      *slog.Logger
	db          *sql.DB
	pipeline    *usecase.Pipeline
	multiSource *usecase.MultiSource
}

// New builds a runnable application instance.
func New(cfg config.Config, baseLogger *slog.Logger) (*Application, error) {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level)
	}

	app := &Application{cfg: cfg, logger: baseLogger}

	var (
		catalog  ports.PriceCatalog
		syncLogs ports.SyncLogRepository
		scrapes  ports.ScrapeSourceRepository
	)
	if cfg.Database.DSN != "" {
		db, err := sql.Open("postgres", cfg.Database.DSN)
		if err != nil {
			return nil, fmt.Errorf("open database: %w", err)
		}
		app.db = db
		catalog = storage.NewPostgresCatalog(db)
		syncLogs = storage.NewPostgresSyncLogs(db)
		scrapes = storage.NewPostgresScrapeSources(db)
	} else {
		baseLogger.Warn("no database DSN configured, using in-memory catalog")
		catalog = storage.NewMemoryCatalog()
		syncLogs = storage.NewMemorySyncLogs()
		scrapes = storage.NewMemoryScrapeSources(nil)
	}

	httpClient := &http.Client{Timeout: 30 * time.Second}

	registry := importer.NewRegistry()
	registry.Register(importers.NewCSVImporter(httpClient))
	registry.Register(importers.NewExcelImporter())
	registry.Register(importers.NewHTMLTableImporter(httpClient, cfg.Scrape.UserAgent))
	registry.Register(importers.NewAPIImporter(cfg.Extractor.Timeout()))
	registry.Register(importers.NewDemoImporter())

	app.pipeline = usecase.NewPipeline(usecase.PipelineDeps{
		Registry: registry,
		Catalog:  catalog,
		SyncLogs: syncLogs,
		Alerts:   alert.NewLogSink(baseLogger.With("component", "alerts")),
		Sources:  cfg.Sources,
		Logger:   baseLogger.With("component", "pipeline"),
	})

	app.multiSource = usecase.NewMultiSource(usecase.MultiSourceDeps{
		Sources:      scrapes,
		Extractor:    extract.NewClient(cfg.Extractor, baseLogger.With("component", "extractor")),
		Limiter:      crawl.NewDomainRateLimiter(cfg.Scrape.DefaultDelay()),
		Compliance:   crawl.NewComplianceChecker(httpClient, cfg.Scrape.UserAgent, baseLogger.With("component", "compliance")),
		DefaultDelay: cfg.Scrape.DefaultDelay(),
		Logger:       baseLogger.With("component", "multisource"),
	})

	return app, nil
}

// Run performs one pipeline execution, then a multi-source scrape when an
// org is configured for it. With the scheduler enabled it instead keeps the
// pipeline on its recurring schedule until the context ends.
func (a *Application) Run(ctx context.Context) error {
	if a.cfg.Scheduler.Enabled {
		sched := usecase.NewScheduler(scheduler.NewCronScheduler(a.cfg.Scheduler.CronExpression, a.cfg.Scheduler.Location()), a.pipeline)
		if err := sched.Start(ctx); err != nil {
			return fmt.Errorf("start scheduler: %w", err)
		}
		defer func() { _ = sched.Stop(context.Background()) }()
		<-ctx.Done()
		return nil
	}

	summary, err := a.pipeline.Run(ctx)
	if err != nil {
		return fmt.Errorf("pipeline run: %w", err)
	}
	a.logger.Info("pipeline finished",
		"run_id", summary.RunID,
		"total", summary.Total,
		"succeeded", summary.Succeeded,
		"failed", summary.Failed,
	)

	if a.cfg.Scrape.OrgID == "" {
		return nil
	}

	result, err := a.multiSource.Run(ctx, a.cfg.Scrape.OrgID)
	if err != nil {
		return fmt.Errorf("multi-source run: %w", err)
	}
	a.logger.Info("multi-source finished",
		"unique_products", result.Stats.UniqueProducts,
		"duplicates_removed", result.Stats.DuplicatesRemoved,
		"failed_sources", result.Stats.SourcesFailed,
	)
	return nil
}

// Close releases held resources.
func (a *Application) Close() error {
	if a.db != nil {
		return a.db.Close()
	}
	return nil
}
