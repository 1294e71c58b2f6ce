package main

import (
	"context"
	"flag"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/phc/analytics-backend/internal/application/pipeline"
	"github.com/phc/analytics-backend/internal/infrastructure/config"
	"github.com/phc/analytics-backend/internal/infrastructure/documents"
	"github.com/phc/analytics-backend/internal/infrastructure/logger"
	"github.com/phc/analytics-backend/internal/infrastructure/persistence"
	"github.com/phc/analytics-backend/internal/infrastructure/prestashop"
	"github.com/phc/analytics-backend/internal/infrastructure/storage"
)

func main() {
	var documentsPath string
	flag.StringVar(&documentsPath, "documents", "", "Path to a billing documents CSV export (default: built-in fixture)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	log, err := logger.New(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = logger.Sync(log)
	}()

	log.Info("Starting warehouse pipeline",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.Bool("mock_source", cfg.Prestashop.UseMock),
	)

	gormLog := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level))
	db, err := persistence.NewDatabaseWithLogger(&cfg.Database, gormLog)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()

	var source pipeline.SourceClient
	if cfg.Prestashop.UseMock {
		source = prestashop.NewMockClient()
	} else {
		source, err = prestashop.NewClient(cfg.Prestashop)
		if err != nil {
			log.Fatal("Failed to create source client", zap.Error(err))
		}
	}

	var docSource pipeline.DocumentSource
	if documentsPath != "" {
		docSource = documents.NewCSVSource(documentsPath)
	} else {
		docSource = documents.NewFixtureSource()
	}

	var publisher pipeline.Publisher
	if cfg.S3.Enabled {
		publisher, err = storage.NewS3Publisher(cfg.S3, storage.WithLogger(log))
		if err != nil {
			log.Fatal("Failed to create S3 publisher", zap.Error(err))
		}
	}

	service := pipeline.NewService(
		source,
		docSource,
		persistence.NewGormWatermarkStore(db.DB),
		persistence.NewGormWarehouseRepository(db.DB),
		storage.NewFileSink(cfg.Output, log),
		publisher,
		cfg.Output.PartitionFacts,
		log,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	result, err := service.Run(ctx)
	if err != nil {
		log.Fatal("Pipeline run failed", zap.Error(err))
	}

	log.Info("Pipeline run completed",
		zap.String("run_id", result.RunID.String()),
		zap.Duration("duration", result.Duration),
		zap.Int("customers", result.CustomersLoaded),
		zap.Int("products", result.ProductsLoaded),
		zap.Int("orders", result.OrdersLoaded),
		zap.Int("order_lines", result.OrderLinesLoaded),
		zap.Int("documents", result.DocumentsLoaded),
		zap.Int("files_written", len(result.Written)),
	)
}
