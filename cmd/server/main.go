// Package main provides the entry point for the dataset control API server
package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"go.temporal.io/sdk/client"

	"github.com/Caia-Tech/ff6-dataset/internal/api"
	"github.com/Caia-Tech/ff6-dataset/internal/cli"
	"github.com/Caia-Tech/ff6-dataset/internal/pipeline"
	"github.com/Caia-Tech/ff6-dataset/internal/presentation"
	"github.com/Caia-Tech/ff6-dataset/internal/storage"
)

func main() {
	cli.Run(run)
}

func run() error {
	common := cli.RegisterFlags()
	flag.Parse()

	cfg, err := cli.Bootstrap(common)
	if err != nil {
		return err
	}

	// Initialize Temporal client
	temporalClient, err := client.Dial(client.Options{
		HostPort:  cfg.Temporal.HostPort,
		Namespace: cfg.Temporal.Namespace,
	})
	if err != nil {
		return fmt.Errorf("failed to create Temporal client: %w", err)
	}
	defer temporalClient.Close()

	metrics := storage.NewSimpleMetricsCollector()
	snapshots, err := pipeline.OpenSnapshots(cfg, metrics)
	if err != nil {
		return fmt.Errorf("failed to open snapshot repository: %w", err)
	}

	browse := presentation.NewAPI(
		presentation.NewRenderer(nil),
		presentation.NewFileStorage(cfg.DataPaths.CleanedPages, cfg.DataPaths.TrainingFile, cfg.DataPaths.ReviewDir),
		snapshots,
		&presentation.APIConfig{BasePath: api.DatasetPrefix},
	)

	app := api.NewApp(api.AppConfig{
		AppName:       "FF6 Dataset API",
		CORSOrigins:   cfg.Server.AllowOrigins,
		EnableLogging: true,
		ReadTimeout:   cfg.Server.ReadTimeout,
		WriteTimeout:  cfg.Server.WriteTimeout,
		BodyLimit:     cfg.Server.MaxRequestSize,
	})
	api.SetupRoutes(app,
		api.NewHandlers(temporalClient, cfg.Temporal.TaskQueue),
		api.NewStorageHandler(snapshots, metrics),
		browse.Handler(),
	)

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-quit
		log.Info().Msg("Shutting down server...")
		if err := app.Shutdown(); err != nil {
			log.Error().Err(err).Msg("Server shutdown error")
		}
	}()

	addr := cfg.Server.Addr()
	log.Info().Str("address", addr).Str("task_queue", cfg.Temporal.TaskQueue).Msg("Starting FF6 dataset server")
	if err := app.Listen(addr); err != nil {
		return fmt.Errorf("failed to start server: %w", err)
	}
	return nil
}
