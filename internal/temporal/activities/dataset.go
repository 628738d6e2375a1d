package activities

import (
	"context"
	"fmt"

	"go.temporal.io/sdk/activity"

	"github.com/Caia-Tech/ff6-dataset/internal/pipeline"
	"github.com/Caia-Tech/ff6-dataset/internal/storage"
	"github.com/Caia-Tech/ff6-dataset/internal/temporal/workflows"
	"github.com/Caia-Tech/ff6-dataset/pkg/logging"
)

// DatasetActivities runs dataset stages for the build workflow
type DatasetActivities struct {
	runner    *pipeline.Runner
	snapshots storage.SnapshotStore
}

// NewDatasetActivities creates activities backed by runner. A nil store
// makes the snapshot activity a no-op.
func NewDatasetActivities(runner *pipeline.Runner, snapshots storage.SnapshotStore) *DatasetActivities {
	return &DatasetActivities{
		runner:    runner,
		snapshots: snapshots,
	}
}

// ScrapeWikiActivity fetches pages and writes the raw pages file
func (a *DatasetActivities) ScrapeWikiActivity(ctx context.Context, input workflows.ScrapeInput) (workflows.ScrapeResult, error) {
	logger := activity.GetLogger(ctx)
	logger.Info("Scraping wiki", "runID", input.RunID, "pages", len(input.Pages), "output", input.Output)

	stats, err := a.runner.Scrape(ctx, input.RunID, input.Pages, input.Output)
	if err != nil {
		return workflows.ScrapeResult{}, err
	}
	return workflows.ScrapeResult{
		Fetched:  stats.Fetched,
		Missing:  stats.Missing,
		Failed:   stats.Failed,
		Sections: stats.Sections,
	}, nil
}

// CleanPagesActivity cleans the raw pages file
func (a *DatasetActivities) CleanPagesActivity(ctx context.Context, input workflows.StageInput) (workflows.CleanResult, error) {
	logger := activity.GetLogger(ctx)
	logger.Info("Cleaning pages", "runID", input.RunID, "input", input.Input)

	stats, err := a.runner.Clean(ctx, input.RunID, input.Input, input.Output)
	if err != nil {
		return workflows.CleanResult{}, err
	}
	return workflows.CleanResult{
		PagesIn:     stats.PagesIn,
		PagesOut:    stats.PagesOut,
		SectionsOut: stats.SectionsOut,
	}, nil
}

// GeneratePairsActivity writes template pairs for the cleaned pages
func (a *DatasetActivities) GeneratePairsActivity(ctx context.Context, input workflows.StageInput) (workflows.GenerateResult, error) {
	logger := activity.GetLogger(ctx)
	logger.Info("Generating pairs", "runID", input.RunID, "input", input.Input)

	stats, err := a.runner.Generate(ctx, input.RunID, input.Input, input.Output)
	if err != nil {
		return workflows.GenerateResult{}, err
	}
	return workflows.GenerateResult{
		Pairs:      stats.Pairs,
		Duplicates: stats.Duplicates,
	}, nil
}

// ExpandPairsActivity appends LLM generated pairs to the training file
func (a *DatasetActivities) ExpandPairsActivity(ctx context.Context, input workflows.StageInput) (workflows.ExpandResult, error) {
	logger := activity.GetLogger(ctx)
	logger.Info("Expanding pairs", "runID", input.RunID, "input", input.Input)

	stats, err := a.runner.Expand(ctx, input.RunID, input.Input, input.Output)
	if err != nil {
		return workflows.ExpandResult{}, err
	}
	return workflows.ExpandResult{
		Processed:     stats.Processed,
		Skipped:       stats.Skipped,
		NewPairs:      stats.NewPairs,
		RequestErrors: stats.RequestErrors,
		ParseErrors:   stats.ParseErrors,
	}, nil
}

// SnapshotDatasetActivity commits the build outputs and returns the hash
func (a *DatasetActivities) SnapshotDatasetActivity(ctx context.Context, input workflows.SnapshotInput) (string, error) {
	info := activity.GetInfo(ctx)
	logger := logging.GetWorkflowLogger(info.WorkflowExecution.ID, info.ActivityType.Name)

	if a.snapshots == nil {
		logger.Info().Msg("Snapshots disabled, skipping")
		return "", nil
	}

	hash, err := a.snapshots.Commit(ctx, "build", input.Summary, input.RunID, input.Paths...)
	if err != nil {
		return "", fmt.Errorf("failed to snapshot dataset: %w", err)
	}
	logger.Info().
		Str("run_id", input.RunID).
		Str("hash", hash).
		Msg("Dataset snapshot recorded")
	return hash, nil
}
