package pipeline

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/rs/zerolog"

	"github.com/Caia-Tech/ff6-dataset/internal/expansion"
	"github.com/Caia-Tech/ff6-dataset/internal/generation"
	"github.com/Caia-Tech/ff6-dataset/internal/processing"
	"github.com/Caia-Tech/ff6-dataset/internal/scraping"
	"github.com/Caia-Tech/ff6-dataset/internal/storage"
	"github.com/Caia-Tech/ff6-dataset/pkg/dataset"
	"github.com/Caia-Tech/ff6-dataset/pkg/logging"
	config "github.com/Caia-Tech/ff6-dataset/pkg/pipeline"
	"github.com/Caia-Tech/ff6-dataset/pkg/ratelimit"
)

// Runner executes dataset stages file to file. The CLI commands and the
// workflow activities share it.
type Runner struct {
	config    *config.PipelineConfig
	bus       *EventBus
	snapshots storage.SnapshotStore
	completer expansion.Completer
	limiter   *ratelimit.Limiter
	tokens    expansion.TokenCounter
	rng       *rand.Rand
	logger    zerolog.Logger
}

// Option configures a Runner
type Option func(*Runner)

// WithEventBus publishes stage events to bus
func WithEventBus(bus *EventBus) Option {
	return func(r *Runner) { r.bus = bus }
}

// WithSnapshotStore commits stage outputs to store
func WithSnapshotStore(store storage.SnapshotStore) Option {
	return func(r *Runner) { r.snapshots = store }
}

// WithCompleter sets the LLM used by the expand stage
func WithCompleter(c expansion.Completer) Option {
	return func(r *Runner) { r.completer = c }
}

// WithLimiter shares one pacing limiter across stages
func WithLimiter(l *ratelimit.Limiter) Option {
	return func(r *Runner) { r.limiter = l }
}

// WithTokenCounter sets the counter used for prompt statistics
func WithTokenCounter(t expansion.TokenCounter) Option {
	return func(r *Runner) { r.tokens = t }
}

// WithRand fixes the generator's randomness
func WithRand(rng *rand.Rand) Option {
	return func(r *Runner) { r.rng = rng }
}

// NewRunner creates a runner for cfg
func NewRunner(cfg *config.PipelineConfig, opts ...Option) *Runner {
	if cfg == nil {
		cfg = config.DefaultPipelineConfig()
	}
	r := &Runner{
		config: cfg,
		logger: logging.GetLogger("pipeline"),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.limiter == nil {
		r.limiter = ratelimit.NewLimiterWithIntervals(map[string]time.Duration{
			ratelimit.SourceWiki:      cfg.Wiki.RequestDelay,
			ratelimit.SourceAnthropic: cfg.Expansion.RequestDelay,
		})
	}
	return r
}

// OpenSnapshots opens the snapshot store when snapshots are enabled
func OpenSnapshots(cfg *config.PipelineConfig, metrics storage.MetricsCollector) (storage.SnapshotStore, error) {
	if cfg.Snapshot == nil || !cfg.Snapshot.Enabled {
		return nil, nil
	}
	store, err := storage.OpenSnapshotStore(cfg.Snapshot, metrics)
	if err != nil {
		return nil, err
	}
	return store, nil
}

// Config returns the runner's configuration
func (r *Runner) Config() *config.PipelineConfig {
	return r.config
}

// Scrape fetches titles (the configured page list when empty) and writes
// the raw pages to out
func (r *Runner) Scrape(ctx context.Context, runID string, titles []string, out string) (*scraping.ScrapeStats, error) {
	logger := logging.GetPipelineLogger(runID, StageScrape)
	r.publish(NewStageEvent(EventStageStarted, runID, StageScrape))

	if len(titles) == 0 {
		titles = r.config.Wiki.Pages
	}

	fetcher := scraping.NewFetcher(r.config.Wiki, r.limiter)
	checker := scraping.NewComplianceChecker(r.config.Wiki.UserAgent, r.config.Wiki.RequestTimeout)
	if _, err := fetcher.ApplyRobotsPolicy(ctx, checker); err != nil {
		return nil, r.fail(runID, StageScrape, fmt.Errorf("robots check failed: %w", err))
	}

	pages, stats, err := fetcher.Scrape(ctx, titles)
	if err != nil {
		return stats, r.fail(runID, StageScrape, err)
	}
	if err := dataset.SavePages(out, pages); err != nil {
		return stats, r.fail(runID, StageScrape, err)
	}

	logger.Info().
		Int("fetched", stats.Fetched).
		Int("missing", stats.Missing).
		Int("failed", stats.Failed).
		Int("sections", stats.Sections).
		Str("output", out).
		Msg("Scrape complete")

	r.complete(ctx, runID, StageScrape, fmt.Sprintf("%d pages, %d sections", stats.Fetched, stats.Sections), map[string]interface{}{
		"fetched":  stats.Fetched,
		"missing":  stats.Missing,
		"failed":   stats.Failed,
		"sections": stats.Sections,
	}, out)
	return stats, nil
}

// Clean reads raw pages from in and writes cleaned pages to out
func (r *Runner) Clean(ctx context.Context, runID, in, out string) (*processing.CleaningStats, error) {
	logger := logging.GetPipelineLogger(runID, StageClean)
	r.publish(NewStageEvent(EventStageStarted, runID, StageClean))

	pages, err := dataset.LoadPages(in)
	if err != nil {
		return nil, r.fail(runID, StageClean, err)
	}

	cleaner := processing.NewPageCleaner(r.config.Cleaning)
	cleaned, stats := cleaner.CleanPages(pages)
	if err := dataset.SavePages(out, cleaned); err != nil {
		return stats, r.fail(runID, StageClean, err)
	}

	logger.Info().
		Int("pages_in", stats.PagesIn).
		Int("pages_out", stats.PagesOut).
		Int("sections_out", stats.SectionsOut).
		Str("output", out).
		Msg("Clean complete")

	r.complete(ctx, runID, StageClean, fmt.Sprintf("%d of %d pages kept", stats.PagesOut, stats.PagesIn), map[string]interface{}{
		"pages_in":     stats.PagesIn,
		"pages_out":    stats.PagesOut,
		"sections_out": stats.SectionsOut,
	}, out)
	return stats, nil
}

// Generate reads cleaned pages from in and writes template pairs to out,
// replacing any previous pairs file
func (r *Runner) Generate(ctx context.Context, runID, in, out string) (*generation.GenerationStats, error) {
	logger := logging.GetPipelineLogger(runID, StageGenerate)
	r.publish(NewStageEvent(EventStageStarted, runID, StageGenerate))

	pages, err := dataset.LoadPages(in)
	if err != nil {
		return nil, r.fail(runID, StageGenerate, err)
	}

	generator := generation.NewGenerator(r.config.Generation, r.rng)
	pairs, stats := generator.Generate(pages)
	if err := dataset.SavePairs(out, pairs); err != nil {
		return stats, r.fail(runID, StageGenerate, err)
	}

	logger.Info().
		Int("pairs", stats.Pairs).
		Int("duplicates", stats.Duplicates).
		Str("output", out).
		Msg("Generate complete")

	r.complete(ctx, runID, StageGenerate, fmt.Sprintf("%d pairs", stats.Pairs), map[string]interface{}{
		"pairs":      stats.Pairs,
		"duplicates": stats.Duplicates,
	}, out)
	return stats, nil
}

// Expand asks the LLM for extra pairs per cleaned section and appends them to out
func (r *Runner) Expand(ctx context.Context, runID, in, out string) (*expansion.ExpansionStats, error) {
	logger := logging.GetPipelineLogger(runID, StageExpand)
	r.publish(NewStageEvent(EventStageStarted, runID, StageExpand))

	completer := r.completer
	if completer == nil {
		c, err := expansion.NewAnthropicCompleter(r.config.Expansion)
		if err != nil {
			return nil, r.fail(runID, StageExpand, err)
		}
		completer = c
	}

	expander := expansion.NewExpander(r.config.Expansion, completer, r.limiter, r.tokens)
	stats, err := expander.ExpandFile(ctx, in, out)
	if err != nil {
		return stats, r.fail(runID, StageExpand, err)
	}

	logger.Info().
		Int("processed", stats.Processed).
		Int("new_pairs", stats.NewPairs).
		Int("request_errors", stats.RequestErrors).
		Int("parse_errors", stats.ParseErrors).
		Str("output", out).
		Msg("Expand complete")

	r.complete(ctx, runID, StageExpand, fmt.Sprintf("%d new pairs from %d sections", stats.NewPairs, stats.Processed), map[string]interface{}{
		"processed":  stats.Processed,
		"new_pairs":  stats.NewPairs,
		"duplicates": stats.Duplicates,
	}, out)
	return stats, nil
}

// Snapshot commits paths under stage. It returns "" when snapshots are
// disabled or nothing changed.
func (r *Runner) Snapshot(ctx context.Context, runID, stage, summary string, paths ...string) (string, error) {
	if r.snapshots == nil {
		return "", nil
	}
	hash, err := r.snapshots.Commit(ctx, stage, summary, runID, paths...)
	if err != nil {
		return "", fmt.Errorf("failed to snapshot %s: %w", stage, err)
	}
	if hash != "" {
		event := NewStageEvent(EventSnapshotTaken, runID, stage)
		event.Metadata["hash"] = hash
		r.publish(event)
	}
	return hash, nil
}

// complete publishes the completion event and snapshots the stage output.
// A failed snapshot is logged; the stage output is already on disk.
func (r *Runner) complete(ctx context.Context, runID, stage, summary string, metadata map[string]interface{}, paths ...string) {
	event := NewStageEvent(EventStageCompleted, runID, stage)
	event.Metadata = metadata
	r.publish(event)

	if _, err := r.Snapshot(ctx, runID, stage, summary, paths...); err != nil {
		r.logger.Warn().Err(err).Str("stage", stage).Msg("Snapshot failed")
	}
}

func (r *Runner) fail(runID, stage string, err error) error {
	event := NewStageEvent(EventStageFailed, runID, stage)
	event.Error = err.Error()
	r.publish(event)
	return fmt.Errorf("%s failed: %w", stage, err)
}

func (r *Runner) publish(event *StageEvent) {
	if r.bus == nil {
		return
	}
	if err := r.bus.Publish(event); err != nil {
		r.logger.Debug().Err(err).Str("event", string(event.Type)).Msg("Stage event not published")
	}
}
