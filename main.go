// Command moderation runs one batch moderation pass: it drains every
// configured source, scores the text through the Perspective API, and writes
// the resulting flags to the JSON report and, when enabled, the reports
// table.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/neighborly/moderation/internal/bootstrap"
	"github.com/neighborly/moderation/internal/config"
	"github.com/neighborly/moderation/internal/domain"
	"github.com/neighborly/moderation/internal/logging"
	"github.com/neighborly/moderation/internal/metrics"
	"github.com/neighborly/moderation/internal/perspective"
	"github.com/neighborly/moderation/internal/pipeline"
	"github.com/neighborly/moderation/internal/policy"
	"github.com/neighborly/moderation/internal/retry"
	"github.com/neighborly/moderation/internal/sink"
)

const (
	metricsReadHeaderTimeout = 5 * time.Second
	reportsInsertTimeout     = time.Minute
	mongoDisconnectTimeout   = 10 * time.Second
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "moderation: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := bootstrap.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := bootstrap.CreateLogger(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	logger = logger.With(logging.String("run_id", uuid.NewString()))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("Starting moderation run",
		logging.Int("sources", len(cfg.Sources)),
		logging.Int("page_size", cfg.Pipeline.PageSize),
		logging.Bool("reports_enabled", cfg.Reports.Enabled),
	)

	if cfg.Metrics.Enabled {
		startMetricsServer(cfg, logger)
	}

	flags, err := runPipeline(ctx, cfg, logger)
	if err != nil {
		return err
	}

	fileSink := sink.NewFileSink(cfg.Output.File)
	if err := fileSink.Write(flags); err != nil {
		return err
	}
	logger.Info("Report written",
		logging.String("file", fileSink.Path()),
		logging.Int("flags", len(flags)),
	)

	logger.Info("Moderation run complete", logging.Int("flags", len(flags)))
	return nil
}

// runPipeline wires the stores, readers, scorer, and decision engine, runs
// the driver, and records to the reports table before returning the flags.
func runPipeline(ctx context.Context, cfg *config.Config, logger logging.Logger) ([]domain.FlagRecord, error) {
	var components pipelineComponents
	defer components.close(logger)

	if err := components.setup(ctx, cfg, logger); err != nil {
		return nil, err
	}

	flags, runErr := components.driver.Run(ctx)
	if runErr != nil {
		interrupted := errors.Is(runErr, context.Canceled) ||
			errors.Is(runErr, retry.ErrContextCancelled) ||
			ctx.Err() != nil
		if !interrupted {
			return nil, fmt.Errorf("pipeline run: %w", runErr)
		}
		logger.Warn("Run interrupted, writing partial results", logging.Int("flags", len(flags)))
	}

	if cfg.Reports.Enabled && components.reports != nil {
		// Insertion uses a fresh context so an interrupted run still lands
		// its partial flags.
		insertCtx, cancel := context.WithTimeout(context.Background(), reportsInsertTimeout)
		defer cancel()

		if err := components.reports.InsertAll(insertCtx, flags); err != nil {
			return nil, err
		}
		logger.Info("Reports recorded", logging.Int("count", len(flags)))
	}

	return flags, nil
}

func startMetricsServer(cfg *config.Config, logger logging.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Metrics.Port),
		Handler:           mux,
		ReadHeaderTimeout: metricsReadHeaderTimeout,
	}

	logger.Info("Starting metrics endpoint", logging.Int("port", cfg.Metrics.Port))
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Warn("Metrics endpoint failed", logging.Error(err))
		}
	}()
}

func thresholdsFrom(cfg *config.Config) policy.Thresholds {
	return policy.Thresholds{
		domain.AttributeToxicity:       cfg.Thresholds.Toxicity,
		domain.AttributeIdentityAttack: cfg.Thresholds.IdentityAttack,
		domain.AttributeInsult:         cfg.Thresholds.Insult,
		domain.AttributeProfanity:      cfg.Thresholds.Profanity,
		domain.AttributeThreat:         cfg.Thresholds.Threat,
	}
}

// pipelineComponents owns the store connections for one run.
type pipelineComponents struct {
	driver   *pipeline.Driver
	reports  *sink.ReportStore
	closeFns []func() error
}

func (c *pipelineComponents) setup(ctx context.Context, cfg *config.Config, logger logging.Logger) error {
	registry, err := bootstrap.BuildRegistry(cfg)
	if err != nil {
		return err
	}

	db, mongoDB, err := c.connectStores(ctx, cfg, logger)
	if err != nil {
		return err
	}

	readers, err := bootstrap.BuildReaders(registry, db, mongoDB, logger)
	if err != nil {
		return err
	}

	engine, err := policy.NewEngine(thresholdsFrom(cfg))
	if err != nil {
		return err
	}

	scorer := perspective.NewClient(perspective.Config{
		Endpoint:    cfg.Scoring.Endpoint,
		APIKey:      cfg.Scoring.APIKey,
		MinInterval: cfg.Scoring.MinInterval,
		Timeout:     cfg.Scoring.Timeout,
	}, logging.NewAdapter(logger))

	c.driver = pipeline.New(registry, readers, scorer, engine, pipeline.Config{
		PageSize: cfg.Pipeline.PageSize,
		PageRetry: retry.Config{
			MaxAttempts: cfg.Pipeline.PageRetries,
			Delay:       cfg.Pipeline.PageRetryDelay,
			IsRetryable: retry.DefaultIsRetryable,
		},
	}, logging.NewAdapter(logger))

	if cfg.Reports.Enabled {
		c.reports = sink.NewReportStore(db, cfg.Reports.Table)
		if cfg.Reports.Migrate {
			if migrateErr := c.reports.Migrate(); migrateErr != nil {
				return migrateErr
			}
			logger.Info("Reports schema up to date")
		}
	}

	return nil
}

func (c *pipelineComponents) connectStores(ctx context.Context, cfg *config.Config, logger logging.Logger) (*sqlx.DB, *mongo.Database, error) {
	var db *sqlx.DB
	var mongoDB *mongo.Database

	if bootstrap.NeedsPostgres(cfg) {
		pg, err := bootstrap.SetupPostgres(cfg, logger)
		if err != nil {
			return nil, nil, err
		}
		db = pg
		c.closeFns = append(c.closeFns, db.Close)
	}

	if bootstrap.NeedsMongo(cfg) {
		client, database, err := bootstrap.SetupMongo(ctx, cfg, logger)
		if err != nil {
			return nil, nil, err
		}
		mongoDB = database
		c.closeFns = append(c.closeFns, func() error {
			disconnectCtx, cancel := context.WithTimeout(context.Background(), mongoDisconnectTimeout)
			defer cancel()
			return client.Disconnect(disconnectCtx)
		})
	}

	return db, mongoDB, nil
}

func (c *pipelineComponents) close(logger logging.Logger) {
	for _, closeFn := range c.closeFns {
		if err := closeFn(); err != nil {
			logger.Warn("Error closing store connection", logging.Error(err))
		}
	}
}
