package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/feral-file/ufc-indexer/internal/adapter"
	"github.com/feral-file/ufc-indexer/internal/config"
	"github.com/feral-file/ufc-indexer/internal/discovery"
	"github.com/feral-file/ufc-indexer/internal/fetcher"
	"github.com/feral-file/ufc-indexer/internal/logger"
	"github.com/feral-file/ufc-indexer/internal/messaging"
	"github.com/feral-file/ufc-indexer/internal/metrics"
	"github.com/feral-file/ufc-indexer/internal/pipeline"
	"github.com/feral-file/ufc-indexer/internal/providers/jetstream"
	"github.com/feral-file/ufc-indexer/internal/store"
	"github.com/feral-file/ufc-indexer/internal/writer"
)

const (
	exitOK    = 0
	exitFatal = 1
	exitUsage = 2
)

const usage = `Usage: ufc-indexer <command> [flags]

Commands:
  ingest              discover events and write every event page
  backfill-dates      fill in missing event dates from the event pages
  cleanup-duplicates  keep one event per name and delete the others

Run 'ufc-indexer <command> --help' for the flags of a command.
`

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	if len(args) == 0 {
		fmt.Fprint(os.Stderr, usage)
		return exitUsage
	}

	command := args[0]
	flags, ok := newFlagSet(command)
	if !ok {
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n%s", command, usage)
		return exitUsage
	}
	if err := flags.Parse(args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return exitOK
		}
		fmt.Fprintf(os.Stderr, "%v\n", err)
		return exitUsage
	}
	if flags.NArg() > 0 {
		fmt.Fprintf(os.Stderr, "unexpected arguments: %v\n", flags.Args())
		return exitUsage
	}

	configFile, _ := flags.GetString("config")
	envPath, _ := flags.GetString("env")

	// Load configuration
	config.ChdirRepoRoot()
	cfg, err := config.Load(configFile, envPath, flags)
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}
	if err := cfg.Validate(); err != nil {
		panic(fmt.Sprintf("Invalid config: %v", err))
	}

	// Create context cancelled on interrupt
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize logger with sentry integration
	err = logger.Initialize(logger.Config{
		Debug:           cfg.Debug,
		SentryDSN:       cfg.SentryDSN,
		BreadcrumbLevel: zapcore.InfoLevel,
		Tags: map[string]string{
			"service": "ufc-indexer",
			"command": command,
		},
	})
	if err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	defer logger.Flush(2 * time.Second)

	metrics.Register()

	code := execute(ctx, command, cfg)

	if cfg.Metrics.PushgatewayURL != "" {
		pushCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
		if err := metrics.Push(pushCtx, cfg.Metrics.PushgatewayURL, cfg.Metrics.Job, command); err != nil {
			logger.ErrorCtx(pushCtx, err)
		}
		cancel()
	}

	return code
}

// newFlagSet returns the flags of command
func newFlagSet(command string) (*pflag.FlagSet, bool) {
	flags := pflag.NewFlagSet(command, pflag.ContinueOnError)
	flags.String("config", "", "Path to configuration file")
	flags.String("env", "config/", "Path to environment files")
	flags.Bool("debug", false, "Enable debug logging")
	flags.String("backend", "", "Store backend: rest, postgres or memory")

	switch command {
	case pipeline.CommandIngest:
		flags.Int("workers", 0, "Number of events processed concurrently")
		flags.Int("start-from", 0, "Skip this many events of the index")
		flags.Int("max-events", 0, "Process at most this many events (0 = all)")
		flags.Bool("dry-run", false, "Write to an in-memory store instead of the configured one")
		flags.StringSlice("event", nil, "Only ingest this event, by name or short key (repeatable)")
	case pipeline.CommandBackfillDates:
		flags.Int("workers", 0, "Number of events processed concurrently")
		flags.Bool("dry-run", false, "Report the dates that would be patched")
	case pipeline.CommandCleanupDuplicates:
		flags.Bool("dry-run", false, "Report the events that would be deleted")
	default:
		return nil, false
	}

	return flags, true
}

// execute builds the pipeline and runs command
func execute(ctx context.Context, command string, cfg *config.Config) int {
	logger.InfoCtx(ctx, "Starting ufc-indexer",
		zap.String("command", command),
		zap.Int("workers", cfg.Worker.WorkerPoolSize),
		zap.Bool("dryRun", cfg.Ingest.DryRun),
	)

	// Initialize adapters
	clock := adapter.NewClock()
	jsonAdapter := adapter.NewJSON()
	httpClient := adapter.NewHTTPClient(adapter.HTTPClientConfig{
		Timeout:   cfg.Fetch.Timeout,
		MaxConns:  cfg.Worker.WorkerPoolSize,
		UserAgent: cfg.Fetch.UserAgent,
	})

	dataStore, closeStore, err := openStore(ctx, command, cfg, httpClient, jsonAdapter)
	if err != nil {
		logger.ErrorCtx(ctx, err)
		return exitFatal
	}
	defer closeStore()

	if err := dataStore.Ping(ctx); err != nil {
		logger.ErrorCtx(ctx, fmt.Errorf("failed to reach store: %w", err))
		return exitFatal
	}

	publisher := openPublisher(cfg, jsonAdapter)
	defer publisher.Close()

	pageFetcher := fetcher.New(httpClient, clock, fetcher.Config{
		Workers:           cfg.Worker.WorkerPoolSize,
		Timeout:           cfg.Fetch.Timeout,
		MinDelay:          cfg.Fetch.MinDelay,
		RequestsPerSecond: cfg.Fetch.RequestsPerSecond,
		Retry:             cfg.FetchPolicy(),
	})

	p := pipeline.New(
		pageFetcher,
		dataStore,
		writer.New(dataStore, cfg.WriterPolicy()),
		publisher,
		pipeline.NewScheduler(cfg.Worker.WorkerPoolSize, cfg.TaskBudget()),
		clock,
		pipeline.Config{
			Index: discovery.Config{
				IndexURL:  cfg.Index.URL,
				Threshold: cfg.Index.Threshold,
			},
			StartFrom: cfg.Ingest.StartFrom,
			MaxEvents: cfg.Ingest.MaxEvents,
			Events:    cfg.Ingest.Events,
			DryRun:    cfg.Ingest.DryRun,
			Retry:     cfg.WriterPolicy(),
		},
	)

	var runErr error
	switch command {
	case pipeline.CommandIngest:
		_, runErr = p.Ingest(ctx)
	case pipeline.CommandBackfillDates:
		_, runErr = p.BackfillDates(ctx)
	case pipeline.CommandCleanupDuplicates:
		_, runErr = p.CleanupDuplicates(ctx)
	}

	if runErr != nil {
		logger.ErrorCtx(ctx, runErr, zap.String("kind", pipeline.Kind(runErr)))
		return exitFatal
	}

	logger.InfoCtx(ctx, "ufc-indexer finished", zap.String("command", command))
	return exitOK
}

// openStore opens the configured backend. A dry ingest always writes to memory; other dry runs
// read from the configured backend when its credentials are present.
func openStore(ctx context.Context, command string, cfg *config.Config, client adapter.HTTPClient, json adapter.JSON) (store.Store, func(), error) {
	backend := cfg.Store.Backend
	if cfg.Ingest.DryRun {
		strict := *cfg
		strict.Ingest.DryRun = false
		if command == pipeline.CommandIngest || strict.Validate() != nil {
			logger.InfoCtx(ctx, "Dry run, using the in-memory store")
			backend = config.StoreBackendMemory
		}
	}

	switch backend {
	case config.StoreBackendMemory:
		return store.NewMemoryStore(), func() {}, nil

	case config.StoreBackendPostgres:
		db, err := gorm.Open(postgres.Open(cfg.Database.DSN()), &gorm.Config{TranslateError: true})
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
		}

		// Configure connection pool
		if err := store.ConfigureConnectionPool(db, cfg.Database.MaxOpenConns, cfg.Database.MaxIdleConns, cfg.Database.ConnMaxLifetime, cfg.Database.ConnMaxIdleTime); err != nil {
			return nil, nil, fmt.Errorf("failed to configure connection pool: %w", err)
		}
		logger.InfoCtx(ctx, "Connected to database",
			zap.String("host", cfg.Database.Host),
			zap.Int("max_open_conns", cfg.Database.MaxOpenConns),
			zap.Int("max_idle_conns", cfg.Database.MaxIdleConns),
		)

		closeDB := func() {
			if sqlDB, err := db.DB(); err == nil {
				_ = sqlDB.Close()
			}
		}
		return store.NewPGStore(db), closeDB, nil

	default:
		logger.InfoCtx(ctx, "Using REST store", zap.String("url", cfg.Store.URL))
		return store.NewRESTStore(client, json, store.RESTConfig{
			URL:      cfg.Store.URL,
			APIKey:   cfg.Store.APIKey,
			Token:    cfg.Store.Token,
			PageSize: cfg.Store.PageSize,
		}), func() {}, nil
	}
}

// openPublisher connects to NATS when configured. Notifications are best effort,
// so a broker that cannot be reached only disables them.
func openPublisher(cfg *config.Config, json adapter.JSON) messaging.Publisher {
	if cfg.NATS.URL == "" || cfg.Ingest.DryRun {
		return messaging.NewNoopPublisher()
	}

	pub, err := jetstream.NewPublisher(jetstream.Config{
		URL:            cfg.NATS.URL,
		MaxReconnects:  cfg.NATS.MaxReconnects,
		ReconnectWait:  cfg.NATS.ReconnectWait,
		ConnectionName: cfg.NATS.ConnectionName,
		SubjectPrefix:  cfg.NATS.SubjectPrefix,
	}, adapter.NewNatsJetStream(), json)
	if err != nil {
		logger.Error(fmt.Errorf("notifications disabled: %w", err))
		return messaging.NewNoopPublisher()
	}

	return pub
}

