// Package cli holds the start-up steps shared by the command line tools.
package cli

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"

	"github.com/Caia-Tech/ff6-dataset/internal/pipeline"
	"github.com/Caia-Tech/ff6-dataset/internal/storage"
	"github.com/Caia-Tech/ff6-dataset/pkg/logging"
	config "github.com/Caia-Tech/ff6-dataset/pkg/pipeline"
)

// Flags shared by every command
type Flags struct {
	ConfigPath string
	Snapshot   bool
	LogLevel   string
}

// RegisterFlags adds the shared flags to the default flag set
func RegisterFlags() *Flags {
	f := &Flags{}
	flag.StringVar(&f.ConfigPath, "config", "", "optional JSON configuration file")
	flag.BoolVar(&f.Snapshot, "snapshot", false, "commit stage output to the data repository")
	flag.StringVar(&f.LogLevel, "log-level", "", "override the log level")
	return f
}

// Bootstrap loads the configuration and sets up logging
func Bootstrap(f *Flags) (*config.PipelineConfig, error) {
	if f == nil {
		f = &Flags{}
	}
	cfg, err := config.LoadPipelineConfig(f.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	if f.LogLevel != "" {
		cfg.Logging.Level = f.LogLevel
	}
	if f.Snapshot {
		cfg.Snapshot.Enabled = true
	}
	if err := logging.SetupLogger(cfg.Logging); err != nil {
		return nil, fmt.Errorf("failed to setup logging: %w", err)
	}
	return cfg, nil
}

// Run calls fn and exits with status 1 if it fails. Deferred calls in fn
// have already run when the error is printed.
func Run(fn func() error) {
	if err := fn(); err != nil {
		fmt.Fprintf(os.Stderr, "❌ %v\n", err)
		os.Exit(1)
	}
}

// SignalContext is cancelled on SIGINT or SIGTERM
func SignalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

// Env bundles a runner with the resources it holds
type Env struct {
	Runner    *pipeline.Runner
	Bus       *pipeline.EventBus
	Snapshots storage.SnapshotStore
	Metrics   *storage.SimpleMetricsCollector
	RunID     string
}

// NewEnv opens the snapshot store when enabled, starts an event bus that
// logs stage events and builds a runner on top of both
func NewEnv(cfg *config.PipelineConfig, opts ...pipeline.Option) (*Env, error) {
	metrics := storage.NewSimpleMetricsCollector()
	snapshots, err := pipeline.OpenSnapshots(cfg, metrics)
	if err != nil {
		return nil, fmt.Errorf("failed to open snapshot repository: %w", err)
	}

	bus := pipeline.NewEventBus(64, 1)
	logger := logging.GetLogger("events")
	if _, err := bus.Subscribe(nil, LogEvents(logger), 16); err != nil {
		bus.Close()
		return nil, fmt.Errorf("failed to subscribe to stage events: %w", err)
	}

	opts = append([]pipeline.Option{
		pipeline.WithEventBus(bus),
		pipeline.WithSnapshotStore(snapshots),
	}, opts...)

	return &Env{
		Runner:    pipeline.NewRunner(cfg, opts...),
		Bus:       bus,
		Snapshots: snapshots,
		Metrics:   metrics,
		RunID:     pipeline.NewRunID(),
	}, nil
}

// Close flushes pending events
func (e *Env) Close() {
	e.Bus.Close()
}

// LogEvents returns an event handler that writes each stage event to logger
func LogEvents(logger zerolog.Logger) pipeline.EventHandler {
	return func(ctx context.Context, event *pipeline.StageEvent) error {
		entry := logger.Info()
		if event.Type == pipeline.EventStageFailed {
			entry = logger.Error().Str("error", event.Error)
		}
		entry.
			Str("event_id", event.ID).
			Str("event_type", string(event.Type)).
			Str("run_id", event.RunID).
			Str("stage", event.Stage).
			Fields(event.Metadata).
			Msg("Stage event")
		return nil
	}
}
