package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/de-tools/promo-lab/pkg/services/archive"
	"github.com/de-tools/promo-lab/pkg/services/builder"
	"github.com/de-tools/promo-lab/pkg/services/config"
	"github.com/de-tools/promo-lab/pkg/services/data"
	"github.com/de-tools/promo-lab/pkg/services/evaluator"
	"github.com/de-tools/promo-lab/pkg/services/events"
	"github.com/de-tools/promo-lab/pkg/services/ingest"
	"github.com/de-tools/promo-lab/pkg/services/optimizer"
	"github.com/de-tools/promo-lab/pkg/services/postmortem"
	"github.com/de-tools/promo-lab/pkg/services/repository"
	"github.com/de-tools/promo-lab/pkg/services/scenario"
	"github.com/de-tools/promo-lab/pkg/services/validator"
	"github.com/de-tools/promo-lab/pkg/store/baseline"
	"github.com/de-tools/promo-lab/pkg/store/cache"
	"github.com/de-tools/promo-lab/pkg/store/databricks"
	"github.com/de-tools/promo-lab/pkg/store/duckdb"
	"github.com/de-tools/promo-lab/pkg/store/postgres"
	scenariostore "github.com/de-tools/promo-lab/pkg/store/scenario"
	"github.com/de-tools/promo-lab/pkg/store/sqldb"
	"github.com/rs/zerolog"
)

// App is the fully wired pipeline shared by the web server and the CLI.
type App struct {
	Scenarios scenario.Service
	Data      *data.Service
	Learner   *postmortem.Learner
	Loader    *ingest.Loader
	Baseline  baseline.Store

	closers []io.Closer
}

// NewLogger builds the process logger; pretty selects human readable console output.
func NewLogger(cfg config.Log, w io.Writer) zerolog.Logger {
	level, err := zerolog.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	if cfg.Pretty {
		w = zerolog.ConsoleWriter{Out: w}
	}
	return zerolog.New(w).Level(level).With().Timestamp().Logger()
}

func New(ctx context.Context, cfg config.Config) (*App, error) {
	logger := zerolog.Ctx(ctx)
	a := &App{}

	db, dialect, err := openStore(ctx, cfg.Store)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, db)

	baselineDB, baselineDialect := db, dialect
	if cfg.Baseline.Source == config.SourceDatabricks {
		baselineDB, err = openDatabricks(cfg.Baseline)
		if err != nil {
			_ = a.Close()
			return nil, err
		}
		a.closers = append(a.closers, baselineDB)
		baselineDialect = sqldb.DialectDatabricks
	}

	a.Baseline, err = baseline.NewStore(baselineDB, baselineDialect)
	if err != nil {
		_ = a.Close()
		return nil, fmt.Errorf("failed to create baseline store: %w", err)
	}
	scenarioStore, err := scenariostore.NewStore(db, dialect)
	if err != nil {
		_ = a.Close()
		return nil, fmt.Errorf("failed to create scenario store: %w", err)
	}

	c := cache.New(cache.Settings{
		Addr:     cfg.Cache.Addr,
		Password: cfg.Cache.Password,
		DB:       cfg.Cache.DB,
		Prefix:   cfg.Cache.Prefix,
	})
	if closer, ok := c.(io.Closer); ok {
		a.closers = append(a.closers, closer)
	}

	publisher, err := events.NewPublisher(events.Settings{
		Brokers:      cfg.Events.Brokers,
		Topic:        cfg.Events.Topic,
		MaxAttempts:  cfg.Events.MaxAttempts,
		WriteTimeout: cfg.Events.WriteTimeout,
	})
	if err != nil {
		_ = a.Close()
		return nil, fmt.Errorf("failed to create event publisher: %w", err)
	}
	a.closers = append(a.closers, publisher)

	archiver, err := archive.New(ctx, archive.Settings{
		Bucket: cfg.Archive.Bucket,
		Prefix: cfg.Archive.Prefix,
		Region: cfg.Archive.Region,
	})
	if err != nil {
		_ = a.Close()
		return nil, fmt.Errorf("failed to create report archiver: %w", err)
	}

	validatorSettings := validator.DefaultSettings()
	validatorSettings.BlockPenalty = cfg.Validator.BlockPenalty
	validatorSettings.WarnPenalty = cfg.Validator.WarnPenalty
	v := validator.NewValidator(validatorSettings)

	optimizerSettings := optimizer.DefaultSettings()
	optimizerSettings.Workers = cfg.Optimizer.Workers
	optimizerSettings.MaxCandidates = cfg.Optimizer.MaxCandidates

	postmortemSettings := postmortem.DefaultSettings()
	postmortemSettings.MissThreshold = cfg.PostMortem.MissThreshold
	postmortemSettings.CannibalizationThreshold = cfg.PostMortem.CannibalizationThreshold

	e := evaluator.NewEvaluator(a.Baseline)
	repo := repository.NewRepository(db, scenarioStore)

	a.Scenarios = scenario.NewService(scenario.Dependencies{
		Builder:    builder.NewBuilder(a.Baseline),
		Evaluator:  e,
		Validator:  v,
		Optimizer:  optimizer.NewOptimizer(a.Baseline, e, v, optimizerSettings),
		Analyzer:   postmortem.NewAnalyzer(repo, a.Baseline, postmortemSettings),
		Repository: repo,
		Revisions:  a.Baseline,
		Cache:      c,
		Publisher:  publisher,
		Archiver:   archiver,
	}, scenario.Settings{
		Workers:  cfg.Pipeline.Workers,
		CacheTTL: cfg.Cache.TTL,
	})
	a.Data = data.NewService(a.Baseline)

	learnerSettings := postmortem.DefaultLearnerSettings()
	learnerSettings.Rate = cfg.PostMortem.LearningRate
	learnerSettings.Floor = cfg.PostMortem.LearnFloor
	learnerSettings.Cap = cfg.PostMortem.LearnCap
	a.Learner = postmortem.NewLearner(repo, a.Baseline, learnerSettings)
	a.Loader = ingest.NewLoader(baselineDB, a.Baseline, ingest.Settings{BatchSize: cfg.Ingest.BatchSize})

	logger.Info().
		Str("store", cfg.Store.Backend).
		Str("baseline", cfg.Baseline.Source).
		Bool("redis_cache", cfg.Cache.Addr != "").
		Bool("kafka_events", len(cfg.Events.Brokers) > 0).
		Bool("s3_archive", cfg.Archive.Bucket != "").
		Msg("pipeline wired")
	return a, nil
}

// Close releases connections in reverse order of creation.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

func openStore(ctx context.Context, cfg config.Store) (*sql.DB, sqldb.Dialect, error) {
	switch cfg.Backend {
	case config.BackendPostgres:
		db, err := postgres.NewDB(ctx, postgres.Settings{
			DSN:             cfg.PostgresDSN,
			MaxOpenConns:    cfg.MaxOpenConns,
			ConnMaxLifetime: cfg.ConnMaxLifetime,
		})
		if err != nil {
			return nil, "", fmt.Errorf("failed to create Postgres instance: %w", err)
		}
		return db, sqldb.DialectPostgres, nil
	default:
		db, err := duckdb.NewDB(duckdb.Settings{DbPath: cfg.DuckDBPath, Threads: cfg.Threads})
		if err != nil {
			return nil, "", fmt.Errorf("failed to create DuckDB instance: %w", err)
		}
		return db, sqldb.DialectDuckDB, nil
	}
}

func openDatabricks(cfg config.Baseline) (*sql.DB, error) {
	path := cfg.DatabricksConfig
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("resolve home directory: %w", err)
		}
		path = filepath.Join(home, ".databrickscfg")
	}

	settings, err := databricks.LoadProfile(path, cfg.Profile)
	if err != nil {
		return nil, err
	}
	if cfg.HTTPPath != "" {
		settings.HTTPPath = cfg.HTTPPath
	}
	if cfg.Catalog != "" {
		settings.Catalog = cfg.Catalog
	}
	if cfg.Schema != "" {
		settings.Schema = cfg.Schema
	}

	db, err := databricks.NewDB(settings)
	if err != nil {
		return nil, err
	}
	return db, nil
}
