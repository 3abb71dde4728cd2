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

	"go.uber.org/zap"

	"github.com/jvanhook93/Kastle-script/internal/config"
	"github.com/jvanhook93/Kastle-script/internal/db"
	"github.com/jvanhook93/Kastle-script/internal/grpcapi"
	"github.com/jvanhook93/Kastle-script/internal/httpapi"
	"github.com/jvanhook93/Kastle-script/internal/kastle/ingest"
	"github.com/jvanhook93/Kastle-script/internal/kastle/service"
	"github.com/jvanhook93/Kastle-script/internal/kastle/store/sqlite"
	"github.com/jvanhook93/Kastle-script/internal/logging"
	"github.com/jvanhook93/Kastle-script/internal/metrics"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "kastle-server: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.FromEnv()
	if err != nil {
		return err
	}

	logger, err := logging.New(cfg.Env, cfg.LogLevel)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	aliases := ingest.DefaultAliases()
	if cfg.ColumnsFile != "" {
		data, err := os.ReadFile(cfg.ColumnsFile)
		if err != nil {
			return fmt.Errorf("read columns file: %w", err)
		}
		if aliases, err = ingest.LoadAliases(data); err != nil {
			return err
		}
	}

	// Storage
	sqlDB, err := db.Open(ctx, db.Config{Path: cfg.DBPath})
	if err != nil {
		return err
	}
	defer sqlDB.Close()

	writer := db.NewWorker(sqlDB)
	defer writer.Close()

	runStore := sqlite.NewRunStore(sqlDB, writer)

	pruner := service.NewRunPruner(runStore, service.PrunerConfig{
		RetentionDays: cfg.RunRetentionDays,
		IntervalHours: cfg.PruneIntervalHours,
	}, logger.Named("pruner"))
	pruner.Start(ctx)
	defer pruner.Stop()

	// Services
	m := metrics.New()
	batchSvc := service.NewBatchService(ingest.NewNormalizer(aliases), runStore, m, logger.Named("batch"), service.BatchConfig{
		MaxParallelFiles: cfg.MaxParallelFiles,
	})

	// gRPC health
	grpcDone := make(chan error, 1)
	if cfg.GRPCAddr != "" {
		gs, err := grpcapi.New(cfg.GRPCAddr, logger.Named("grpc"))
		if err != nil {
			return err
		}
		go func() { grpcDone <- gs.Serve(ctx) }()
	} else {
		close(grpcDone)
	}

	// HTTP
	srv := httpapi.NewServer(httpapi.Dependencies{
		Logger:         logger.Named("http"),
		Addr:           cfg.HTTPAddr,
		BatchService:   batchSvc,
		Metrics:        m,
		OutputDir:      cfg.OutputDir,
		MaxUploadBytes: cfg.MaxUploadBytes(),
	})

	go func() {
		logger.Info("listening", zap.String("addr", cfg.HTTPAddr), zap.String("env", cfg.Env))
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)

	if err := <-grpcDone; err != nil {
		logger.Error("grpc shutdown", zap.Error(err))
	}
	return nil
}
