package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/corevoice/users-service/internal/config"
	"github.com/corevoice/users-service/internal/mq"
	"github.com/corevoice/users-service/internal/service"
	"github.com/corevoice/users-service/internal/storage/factory"
)

var (
	// Version information set via ldflags during build
	Version   = "dev"
	BuildDate = "unknown"
	GitCommit = "unknown"
)

func main() {
	showVersion := flag.Bool("version", false, "Show version information")
	flag.Parse()

	if *showVersion {
		printVersion()
		os.Exit(0)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.SlogLevel(),
	}))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := factory.Open(ctx, cfg.Database)
	if err != nil {
		logger.Error("failed to open storage backend",
			slog.String("module", cfg.Database.Module),
			slog.Any("error", err))
		os.Exit(1)
	}

	svc := service.New(logger, store)
	defer func() {
		if err := svc.Close(); err != nil {
			logger.Error("failed to close storage backend", slog.Any("error", err))
		}
	}()

	router := mq.NewRouter(logger, svc)
	connector := mq.NewConnector(logger, cfg.MQ, router)

	logger.Info("starting users service",
		slog.String("version", Version),
		slog.String("storage_module", cfg.Database.Module),
		slog.String("request_queue", cfg.MQ.RequestQueue))

	if err := connector.Run(ctx); err != nil {
		logger.Error("connector stopped", slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info("shut down")
}

func printVersion() {
	fmt.Printf("Users Service\n")
	fmt.Printf("Version:    %s\n", Version)
	fmt.Printf("Build Date: %s\n", BuildDate)
	fmt.Printf("Git Commit: %s\n", GitCommit)
}
