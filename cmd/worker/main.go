// Command worker runs the Temporal worker for dataset builds.
package main

import (
	"flag"
	"fmt"

	"github.com/rs/zerolog/log"
	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"

	"github.com/Caia-Tech/ff6-dataset/internal/cli"
	"github.com/Caia-Tech/ff6-dataset/internal/expansion"
	"github.com/Caia-Tech/ff6-dataset/internal/pipeline"
	"github.com/Caia-Tech/ff6-dataset/internal/temporal/activities"
	"github.com/Caia-Tech/ff6-dataset/internal/temporal/workflows"
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

	temporalClient, err := client.Dial(client.Options{
		HostPort:  cfg.Temporal.HostPort,
		Namespace: cfg.Temporal.Namespace,
	})
	if err != nil {
		return fmt.Errorf("failed to create Temporal client: %w", err)
	}
	defer temporalClient.Close()

	tokens, err := expansion.NewTokenCounter(expansion.DefaultEncoding)
	if err != nil {
		log.Warn().Err(err).Msg("Token encoding unavailable, estimating from length")
	}

	// builds are committed once by SnapshotDatasetActivity, not per stage
	env, err := cli.NewEnv(cfg, pipeline.WithTokenCounter(tokens), pipeline.WithSnapshotStore(nil))
	if err != nil {
		return err
	}
	defer env.Close()

	w := worker.New(temporalClient, cfg.Temporal.TaskQueue, worker.Options{
		MaxConcurrentActivityExecutionSize:     1,
		MaxConcurrentWorkflowTaskExecutionSize: 10,
	})

	w.RegisterWorkflow(workflows.DatasetBuildWorkflow)
	w.RegisterActivity(activities.NewDatasetActivities(env.Runner, env.Snapshots))

	log.Info().
		Str("host", cfg.Temporal.HostPort).
		Str("task_queue", cfg.Temporal.TaskQueue).
		Bool("snapshots", env.Snapshots != nil).
		Msg("Starting dataset worker")

	if err := w.Run(worker.InterruptCh()); err != nil {
		return fmt.Errorf("worker stopped: %w", err)
	}
	return nil
}
