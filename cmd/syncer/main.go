package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"newsletter_ingest/internal/config"
	"newsletter_ingest/internal/domain"
	"newsletter_ingest/internal/parser"
	"newsletter_ingest/internal/publisher"
	"newsletter_ingest/internal/scheduler"
	"newsletter_ingest/internal/service"
	"newsletter_ingest/internal/source/beehiiv"
	"newsletter_ingest/internal/storage/postgres"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	once := flag.Bool("once", false, "run a single sync and exit")
	issuePath := flag.String("issue", "", "ingest one issue from a JSON file and exit")
	recent := flag.Int("recent", 0, "print the N most recent sync logs and exit")
	flag.Parse()

	logger := setupLogger("info")

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger = setupLogger(cfg.LogLevel)

	db, err := sqlx.Connect("postgres", cfg.Database.DSN())
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		logger.Error("failed to ping database", "error", err)
		os.Exit(1)
	}
	logger.Info("connected to database")

	// Publisher stays a nil interface when disabled so SyncService skips it.
	var pub service.Publisher
	if !cfg.RabbitMQ.Disabled {
		rabbitMQ, err := publisher.NewRabbitMQ(publisher.Config{
			URL:        cfg.RabbitMQ.URL,
			Exchange:   cfg.RabbitMQ.Exchange,
			RoutingKey: cfg.RabbitMQ.RoutingKey,
			QueueName:  cfg.RabbitMQ.QueueName,
		}, logger)
		if err != nil {
			logger.Error("failed to connect to rabbitmq", "error", err)
			os.Exit(1)
		}
		defer rabbitMQ.Close()
		pub = rabbitMQ
	}

	articleStore := postgres.NewArticleStore(db)
	categoryStore := postgres.NewCategoryStore(db)
	syncLogStore := postgres.NewSyncLogStore(db)
	txManager := postgres.NewTransactionManager(db)

	source := beehiiv.New(beehiiv.Config{
		BaseURL:        cfg.API.BaseURL,
		APIKey:         cfg.API.APIKey,
		PublicationID:  cfg.API.PublicationID,
		PageSize:       cfg.API.PageSize,
		Timeout:        cfg.API.Timeout,
		MaxAttempts:    cfg.API.Retry.MaxAttempts,
		InitialBackoff: cfg.API.Retry.InitialBackoff,
		MaxBackoff:     cfg.API.Retry.MaxBackoff,
	}, logger)

	syncService := service.NewSyncService(
		source,
		parser.New(cfg.Parser.Options()),
		articleStore,
		categoryStore,
		syncLogStore,
		txManager,
		pub,
		logger,
		cfg.Sync,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigCh
		logger.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	switch {
	case *recent > 0:
		logs, err := syncService.RecentLogs(ctx, *recent)
		if err != nil {
			logger.Error("failed to list sync logs", "error", err)
			os.Exit(1)
		}
		printJSON(logs)
		return

	case *issuePath != "":
		issue, err := readIssue(*issuePath)
		if err != nil {
			logger.Error("failed to read issue", "path", *issuePath, "error", err)
			os.Exit(1)
		}
		log, err := syncService.SyncIssue(ctx, issue)
		if err != nil {
			logger.Error("issue sync failed", "error", err)
			os.Exit(1)
		}
		printJSON(log)
		if log.Status == domain.SyncFailed {
			os.Exit(2)
		}
		return
	}

	sched := scheduler.NewScheduler(syncService, cfg.Sync.Interval, cfg.Sync.RunTimeout, logger)

	if *once {
		if sched.RunOnce(ctx) == nil {
			os.Exit(1)
		}
		return
	}

	logger.Info("starting newsletter syncer",
		"source", source.Name(),
		"publication_id", source.ID(),
		"interval", cfg.Sync.Interval,
		"max_issues", cfg.Sync.MaxIssuesPerSync,
	)

	if err := sched.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("scheduler error", "error", err)
		os.Exit(1)
	}
}

func readIssue(path string) (*domain.Issue, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var issue domain.Issue
	if err := json.Unmarshal(data, &issue); err != nil {
		return nil, fmt.Errorf("decode issue: %w", err)
	}
	return &issue, nil
}

func printJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}

func setupLogger(level string) *slog.Logger {
	var logLevel slog.Level
	switch level {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: logLevel}
	handler := slog.NewJSONHandler(os.Stdout, opts)
	return slog.New(handler)
}
