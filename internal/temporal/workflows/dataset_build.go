package workflows

import (
	"fmt"
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"github.com/Caia-Tech/ff6-dataset/pkg/dataset"
)

// DatasetBuildInput describes one end-to-end dataset build. Empty paths
// fall back to the standard data layout.
type DatasetBuildInput struct {
	RunID        string   `json:"run_id"`
	Pages        []string `json:"pages,omitempty"`
	RawPath      string   `json:"raw_path,omitempty"`
	CleanedPath  string   `json:"cleaned_path,omitempty"`
	TrainingPath string   `json:"training_path,omitempty"`
	Expand       bool     `json:"expand"`
	Snapshot     bool     `json:"snapshot"`
}

// DatasetBuildResult carries the counts reported by each stage
type DatasetBuildResult struct {
	RunID        string         `json:"run_id"`
	Scrape       ScrapeResult   `json:"scrape"`
	Clean        CleanResult    `json:"clean"`
	Generate     GenerateResult `json:"generate"`
	Expand       *ExpandResult  `json:"expand,omitempty"`
	SnapshotHash string         `json:"snapshot_hash,omitempty"`
}

// ScrapeInput is the input of the scrape activity
type ScrapeInput struct {
	RunID  string   `json:"run_id"`
	Pages  []string `json:"pages,omitempty"`
	Output string   `json:"output"`
}

// ScrapeResult summarises the scrape activity
type ScrapeResult struct {
	Fetched  int `json:"fetched"`
	Missing  int `json:"missing"`
	Failed   int `json:"failed"`
	Sections int `json:"sections"`
}

// StageInput names the files a file-to-file stage reads and writes
type StageInput struct {
	RunID  string `json:"run_id"`
	Input  string `json:"input"`
	Output string `json:"output"`
}

// CleanResult summarises the clean activity
type CleanResult struct {
	PagesIn     int `json:"pages_in"`
	PagesOut    int `json:"pages_out"`
	SectionsOut int `json:"sections_out"`
}

// GenerateResult summarises the generate activity
type GenerateResult struct {
	Pairs      int `json:"pairs"`
	Duplicates int `json:"duplicates"`
}

// ExpandResult summarises the expand activity
type ExpandResult struct {
	Processed     int `json:"processed"`
	Skipped       int `json:"skipped"`
	NewPairs      int `json:"new_pairs"`
	RequestErrors int `json:"request_errors"`
	ParseErrors   int `json:"parse_errors"`
}

// SnapshotInput lists the files to commit after a build
type SnapshotInput struct {
	RunID   string   `json:"run_id"`
	Summary string   `json:"summary"`
	Paths   []string `json:"paths"`
}

// Activity names for registration
const (
	ScrapeWikiActivityName      = "ScrapeWikiActivity"
	CleanPagesActivityName      = "CleanPagesActivity"
	GeneratePairsActivityName   = "GeneratePairsActivity"
	ExpandPairsActivityName     = "ExpandPairsActivity"
	SnapshotDatasetActivityName = "SnapshotDatasetActivity"
)

func (in DatasetBuildInput) withDefaults() DatasetBuildInput {
	if in.RawPath == "" {
		in.RawPath = dataset.RawPagesFile
	}
	if in.CleanedPath == "" {
		in.CleanedPath = dataset.CleanedPagesFile
	}
	if in.TrainingPath == "" {
		in.TrainingPath = dataset.TrainingFile
	}
	return in
}

// DatasetBuildWorkflow runs scrape, clean, generate and optionally expand,
// then snapshots the outputs. Activities hand each other file paths and
// are never retried; a failed stage fails the build.
func DatasetBuildWorkflow(ctx workflow.Context, input DatasetBuildInput) (*DatasetBuildResult, error) {
	logger := workflow.GetLogger(ctx)
	input = input.withDefaults()
	if input.RunID == "" {
		input.RunID = workflow.GetInfo(ctx).WorkflowExecution.RunID
	}
	logger.Info("Starting dataset build", "runID", input.RunID, "pages", len(input.Pages), "expand", input.Expand)

	ao := workflow.ActivityOptions{
		StartToCloseTimeout: 30 * time.Minute,
		RetryPolicy: &temporal.RetryPolicy{
			MaximumAttempts: 1,
		},
	}
	ctx = workflow.WithActivityOptions(ctx, ao)

	result := &DatasetBuildResult{RunID: input.RunID}

	if err := workflow.ExecuteActivity(ctx, ScrapeWikiActivityName, ScrapeInput{
		RunID:  input.RunID,
		Pages:  input.Pages,
		Output: input.RawPath,
	}).Get(ctx, &result.Scrape); err != nil {
		return result, fmt.Errorf("scrape: %w", err)
	}
	if result.Scrape.Fetched == 0 {
		return result, temporal.NewNonRetryableApplicationError("no pages were fetched", "EmptyScrape", nil)
	}

	if err := workflow.ExecuteActivity(ctx, CleanPagesActivityName, StageInput{
		RunID:  input.RunID,
		Input:  input.RawPath,
		Output: input.CleanedPath,
	}).Get(ctx, &result.Clean); err != nil {
		return result, fmt.Errorf("clean: %w", err)
	}

	if err := workflow.ExecuteActivity(ctx, GeneratePairsActivityName, StageInput{
		RunID:  input.RunID,
		Input:  input.CleanedPath,
		Output: input.TrainingPath,
	}).Get(ctx, &result.Generate); err != nil {
		return result, fmt.Errorf("generate: %w", err)
	}

	if input.Expand {
		// expansion paces one LLM request per section
		expandCtx := workflow.WithStartToCloseTimeout(ctx, 12*time.Hour)
		var expanded ExpandResult
		if err := workflow.ExecuteActivity(expandCtx, ExpandPairsActivityName, StageInput{
			RunID:  input.RunID,
			Input:  input.CleanedPath,
			Output: input.TrainingPath,
		}).Get(ctx, &expanded); err != nil {
			return result, fmt.Errorf("expand: %w", err)
		}
		result.Expand = &expanded
	}

	if input.Snapshot {
		summary := fmt.Sprintf("%d pages, %d pairs", result.Clean.PagesOut, result.Generate.Pairs)
		if result.Expand != nil {
			summary += fmt.Sprintf(" (+%d expanded)", result.Expand.NewPairs)
		}
		if err := workflow.ExecuteActivity(ctx, SnapshotDatasetActivityName, SnapshotInput{
			RunID:   input.RunID,
			Summary: summary,
			Paths:   []string{input.RawPath, input.CleanedPath, input.TrainingPath},
		}).Get(ctx, &result.SnapshotHash); err != nil {
			return result, fmt.Errorf("snapshot: %w", err)
		}
	}

	logger.Info("Dataset build completed",
		"runID", input.RunID,
		"pages", result.Clean.PagesOut,
		"pairs", result.Generate.Pairs,
		"snapshot", result.SnapshotHash)
	return result, nil
}
