package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	corecfg "github.com/jovey-lab/project-jovey/internal/core/config"
	"github.com/jovey-lab/project-jovey/internal/core/storage/postgres"
	"github.com/jovey-lab/project-jovey/internal/dbmanager"
	"github.com/jovey-lab/project-jovey/internal/events"
	"github.com/jovey-lab/project-jovey/internal/migrations"
	"github.com/jovey-lab/project-jovey/internal/server"
)

func main() {
	configPath := flag.String("config", "jovey.yaml", "Path to configuration file")
	flag.Parse()

	// 0. Initialize Logger
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// 1. Load Configuration
	cfg, err := corecfg.Load(*configPath)
	if err != nil {
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}
	slog.Info("Loaded config", "config", cfg)

	// 2. Initialize Storage (PostgreSQL)
	store, err := postgres.NewAdapter(
		cfg.Database.DSN,
		cfg.Database.MaxOpenConns,
		cfg.Database.MaxIdleConns,
	)
	if err != nil {
		slog.Error("Failed to initialize database", "error", err)
		os.Exit(1)
	}
	defer store.Close()

	// 2.1. Run Database Migrations
	if err := migrations.RunMigrations(store.DB(), cfg.Database.AutoMigrate); err != nil {
		slog.Error("Failed to run database migrations", "error", err)
		os.Exit(1)
	}

	// 3. Initialize Event Type Catalog
	catalog, err := events.NewCatalog(cfg.Catalog.Path)
	if err != nil {
		slog.Error("Failed to load event type catalog", "error", err)
		os.Exit(1)
	}

	// 4. Initialize Services
	eventsSvc := events.NewService(store, catalog, cfg.Server.MaxBodySizeMB)

	processor := dbmanager.NewProcessor(store, cfg.Processor.UnhandledPolicy)
	managerSvc := dbmanager.NewService(store, processor)

	scheduler := dbmanager.NewScheduler(
		cfg.Processor.ParsedInterval(),
		cfg.Processor.BatchSize,
		managerSvc,
	)

	slog.Info("Database manager initialized",
		"scheduler_enabled", cfg.Processor.Enabled,
		"interval", cfg.Processor.Interval,
		"batch_size", cfg.Processor.BatchSize,
		"unhandled_policy", cfg.Processor.UnhandledPolicy,
	)

	// 5. Initialize Server
	srv := server.New(fmtAddr(cfg.Server.Host, cfg.Server.Port), store.DB(), cfg.Server.Mode)
	eventsSvc.RegisterRoutes(srv.Engine)
	managerSvc.RegisterRoutes(srv.Engine)

	// 6. Start Services
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Signal handler triggers the shutdown sequence below.
	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
		<-quit
		slog.Info("Signal received, shutting down...")
		cancel()
	}()

	g, gCtx := errgroup.WithContext(ctx)

	if cfg.Processor.Enabled {
		g.Go(func() error {
			return scheduler.Start(gCtx)
		})
	} else {
		slog.Info("Event processing scheduler disabled by config")
	}

	// HTTP server blocks until ctx is cancelled.
	g.Go(func() error {
		return srv.Run(gCtx)
	})

	if err := g.Wait(); err != nil {
		slog.Error("Service stopped with error", "error", err)
	}

	slog.Info("Shutdown complete")
}

func fmtAddr(host string, port int) string {
	return fmt.Sprintf("%s:%d", host, port)
}
