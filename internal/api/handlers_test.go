package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	enumspb "go.temporal.io/api/enums/v1"
	workflowpb "go.temporal.io/api/workflow/v1"
	"go.temporal.io/api/workflowservice/v1"
	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/mocks"
	"google.golang.org/protobuf/types/known/timestamppb"

	"github.com/Caia-Tech/ff6-dataset/internal/presentation"
	"github.com/Caia-Tech/ff6-dataset/internal/storage"
	"github.com/Caia-Tech/ff6-dataset/internal/temporal/workflows"
	"github.com/Caia-Tech/ff6-dataset/pkg/dataset"
)

const testQueue = "ff6-dataset"

func newTestApp(t *testing.T, temporal client.Client, storageHandler *StorageHandler, browse http.Handler) *fiber.App {
	t.Helper()
	if storageHandler == nil {
		storageHandler = NewStorageHandler(nil, nil)
	}
	app := NewApp(AppConfig{AppName: "test"})
	SetupRoutes(app, NewHandlers(temporal, testQueue), storageHandler, browse)
	return app
}

func doRequest(t *testing.T, app *fiber.App, method, path, body string) (int, map[string]interface{}) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var decoded map[string]interface{}
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &decoded), string(raw))
	}
	return resp.StatusCode, decoded
}

func TestHealthAndRoot(t *testing.T) {
	app := newTestApp(t, &mocks.Client{}, nil, nil)

	status, body := doRequest(t, app, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "healthy", body["status"])

	status, body = doRequest(t, app, http.MethodGet, "/", "")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, DatasetPrefix, body["dataset"])
}

func TestStartBuild(t *testing.T) {
	temporal := &mocks.Client{}
	run := &mocks.WorkflowRun{}
	run.On("GetID").Return("dataset-build-fixed")
	run.On("GetRunID").Return("run-123")

	temporal.On("ExecuteWorkflow",
		mock.Anything,
		mock.MatchedBy(func(opts client.StartWorkflowOptions) bool {
			return strings.HasPrefix(opts.ID, "dataset-build-") &&
				opts.TaskQueue == testQueue &&
				opts.CronSchedule == "0 3 * * *"
		}),
		mock.Anything,
		mock.MatchedBy(func(in workflows.DatasetBuildInput) bool {
			return in.RunID != "" &&
				assert.ObjectsAreEqual([]string{"Terra_Branford", "Kefka_Palazzo"}, in.Pages) &&
				in.Expand && !in.Snapshot
		}),
	).Return(run, nil).Once()

	app := newTestApp(t, temporal, nil, nil)
	status, body := doRequest(t, app, http.MethodPost, "/api/v1/builds",
		`{"pages":["Terra Branford","Kefka_Palazzo"],"expand":true,"schedule":"0 3 * * *"}`)

	assert.Equal(t, http.StatusAccepted, status)
	assert.Equal(t, "dataset-build-fixed", body["workflow_id"])
	assert.Equal(t, "run-123", body["run_id"])
	assert.NotEmpty(t, body["build_run_id"])
	temporal.AssertExpectations(t)
}

func TestStartBuild_EmptyBodyUsesDefaults(t *testing.T) {
	temporal := &mocks.Client{}
	run := &mocks.WorkflowRun{}
	run.On("GetID").Return("dataset-build-default")
	run.On("GetRunID").Return("run-1")

	temporal.On("ExecuteWorkflow", mock.Anything, mock.Anything, mock.Anything,
		mock.MatchedBy(func(in workflows.DatasetBuildInput) bool {
			return len(in.Pages) == 0 && !in.Expand
		}),
	).Return(run, nil).Once()

	app := newTestApp(t, temporal, nil, nil)
	status, _ := doRequest(t, app, http.MethodPost, "/api/v1/builds", "")
	assert.Equal(t, http.StatusAccepted, status)
	temporal.AssertExpectations(t)
}

func TestStartBuild_Validation(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "malformed json", body: `{"pages":`},
		{name: "empty title", body: `{"pages":["  "]}`},
		{name: "title with pipe", body: `{"pages":["Terra|Tina"]}`},
		{name: "bad schedule", body: `{"schedule":"every day"}`},
		{name: "too many pages", body: `{"pages":[` + strings.Repeat(`"Moogle",`, maxBuildPages) + `"Mog"]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			temporal := &mocks.Client{}
			app := newTestApp(t, temporal, nil, nil)

			status, body := doRequest(t, app, http.MethodPost, "/api/v1/builds", tt.body)
			assert.Equal(t, http.StatusBadRequest, status)
			assert.NotEmpty(t, body["error"])
			temporal.AssertNotCalled(t, "ExecuteWorkflow")
		})
	}
}

func TestStartBuild_TemporalError(t *testing.T) {
	temporal := &mocks.Client{}
	temporal.On("ExecuteWorkflow", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(nil, errors.New("connection refused"))

	app := newTestApp(t, temporal, nil, nil)
	status, body := doRequest(t, app, http.MethodPost, "/api/v1/builds", `{}`)
	assert.Equal(t, http.StatusInternalServerError, status)
	assert.Equal(t, "connection refused", body["details"])
}

func describeResponse(status enumspb.WorkflowExecutionStatus, closed bool) *workflowservice.DescribeWorkflowExecutionResponse {
	start := time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)
	info := &workflowpb.WorkflowExecutionInfo{
		Status:    status,
		StartTime: timestamppb.New(start),
	}
	if closed {
		info.CloseTime = timestamppb.New(start.Add(time.Minute))
	}
	return &workflowservice.DescribeWorkflowExecutionResponse{WorkflowExecutionInfo: info}
}

func TestGetBuild(t *testing.T) {
	t.Run("running", func(t *testing.T) {
		temporal := &mocks.Client{}
		temporal.On("DescribeWorkflowExecution", mock.Anything, "dataset-build-1", "").
			Return(describeResponse(enumspb.WORKFLOW_EXECUTION_STATUS_RUNNING, false), nil)

		status, body := doRequest(t, newTestApp(t, temporal, nil, nil), http.MethodGet, "/api/v1/builds/dataset-build-1", "")
		assert.Equal(t, http.StatusOK, status)
		assert.Equal(t, enumspb.WORKFLOW_EXECUTION_STATUS_RUNNING.String(), body["status"])
		assert.NotContains(t, body, "close_time")
		assert.NotContains(t, body, "result")
		temporal.AssertNotCalled(t, "GetWorkflow")
	})

	t.Run("completed with result", func(t *testing.T) {
		temporal := &mocks.Client{}
		run := &mocks.WorkflowRun{}
		temporal.On("DescribeWorkflowExecution", mock.Anything, "dataset-build-2", "").
			Return(describeResponse(enumspb.WORKFLOW_EXECUTION_STATUS_COMPLETED, true), nil)
		temporal.On("GetWorkflow", mock.Anything, "dataset-build-2", "").Return(run)
		run.On("Get", mock.Anything, mock.AnythingOfType("*workflows.DatasetBuildResult")).
			Run(func(args mock.Arguments) {
				result := args.Get(1).(*workflows.DatasetBuildResult)
				result.RunID = "build-2"
				result.Generate = workflows.GenerateResult{Pairs: 42}
			}).
			Return(nil)

		status, body := doRequest(t, newTestApp(t, temporal, nil, nil), http.MethodGet, "/api/v1/builds/dataset-build-2", "")
		assert.Equal(t, http.StatusOK, status)
		assert.Equal(t, enumspb.WORKFLOW_EXECUTION_STATUS_COMPLETED.String(), body["status"])
		assert.Contains(t, body, "close_time")

		result, ok := body["result"].(map[string]interface{})
		require.True(t, ok)
		assert.Equal(t, "build-2", result["run_id"])
	})

	t.Run("failed", func(t *testing.T) {
		temporal := &mocks.Client{}
		run := &mocks.WorkflowRun{}
		temporal.On("DescribeWorkflowExecution", mock.Anything, "dataset-build-3", "").
			Return(describeResponse(enumspb.WORKFLOW_EXECUTION_STATUS_FAILED, true), nil)
		temporal.On("GetWorkflow", mock.Anything, "dataset-build-3", "").Return(run)
		run.On("Get", mock.Anything, nil).Return(errors.New("no pages were fetched"))

		status, body := doRequest(t, newTestApp(t, temporal, nil, nil), http.MethodGet, "/api/v1/builds/dataset-build-3", "")
		assert.Equal(t, http.StatusOK, status)
		assert.Equal(t, enumspb.WORKFLOW_EXECUTION_STATUS_FAILED.String(), body["status"])
		assert.Equal(t, "no pages were fetched", body["error"])
	})

	t.Run("not found", func(t *testing.T) {
		temporal := &mocks.Client{}
		temporal.On("DescribeWorkflowExecution", mock.Anything, "missing", "").
			Return(nil, errors.New("workflow not found"))

		status, body := doRequest(t, newTestApp(t, temporal, nil, nil), http.MethodGet, "/api/v1/builds/missing", "")
		assert.Equal(t, http.StatusNotFound, status)
		assert.Equal(t, "missing", body["workflow_id"])
	})
}

func TestStorageRoutes(t *testing.T) {
	t.Run("snapshots disabled", func(t *testing.T) {
		app := newTestApp(t, &mocks.Client{}, nil, nil)

		status, _ := doRequest(t, app, http.MethodGet, "/api/v1/storage/snapshots", "")
		assert.Equal(t, http.StatusNotFound, status)

		status, body := doRequest(t, app, http.MethodGet, "/api/v1/storage/health", "")
		assert.Equal(t, http.StatusOK, status)
		assert.Equal(t, true, body["healthy"])

		status, body = doRequest(t, app, http.MethodGet, "/api/v1/storage/metrics", "")
		assert.Equal(t, http.StatusOK, status)
		assert.EqualValues(t, 0, body["total_operations"])
	})

	t.Run("snapshots enabled", func(t *testing.T) {
		repo := t.TempDir()
		metrics := storage.NewSimpleMetricsCollector()
		store, err := storage.OpenSnapshotStore(&storage.SnapshotConfig{
			Enabled:     true,
			RepoPath:    repo,
			AuthorName:  "Test",
			AuthorEmail: "test@caiatech.com",
		}, metrics)
		require.NoError(t, err)

		path := filepath.Join(repo, dataset.TrainingFile)
		require.NoError(t, dataset.SavePairs(path, []dataset.TrainingPair{
			dataset.NewTrainingPair("Who is Shadow?", "A ninja for hire."),
		}))
		_, err = store.Commit(t.Context(), "generate", "1 pairs", "run-1", path)
		require.NoError(t, err)

		app := newTestApp(t, &mocks.Client{}, NewStorageHandler(store, metrics), nil)

		status, body := doRequest(t, app, http.MethodGet, "/api/v1/storage/snapshots?limit=5", "")
		require.Equal(t, http.StatusOK, status)
		assert.EqualValues(t, 1, body["count"])

		status, _ = doRequest(t, app, http.MethodGet, "/api/v1/storage/snapshots?limit=zero", "")
		assert.Equal(t, http.StatusBadRequest, status)

		status, body = doRequest(t, app, http.MethodGet, "/api/v1/storage/metrics", "")
		require.Equal(t, http.StatusOK, status)
		assert.Positive(t, body["total_operations"])

		status, _ = doRequest(t, app, http.MethodDelete, "/api/v1/storage/metrics", "")
		assert.Equal(t, http.StatusOK, status)
		assert.Empty(t, metrics.GetMetrics())

		status, body = doRequest(t, app, http.MethodGet, "/api/v1/storage/health", "")
		assert.Equal(t, http.StatusOK, status)
		assert.Equal(t, true, body["healthy"])
	})
}

func TestDatasetBrowseMount(t *testing.T) {
	dir := t.TempDir()
	pagesPath := filepath.Join(dir, dataset.CleanedPagesFile)
	pairsPath := filepath.Join(dir, dataset.TrainingFile)
	require.NoError(t, dataset.SavePages(pagesPath, []dataset.Page{{
		Title: "Sabin_Rene_Figaro",
		URL:   "https://finalfantasy.fandom.com/wiki/Sabin_Rene_Figaro",
		Sections: []dataset.Section{
			{Heading: "Introduction", Content: "Sabin is Edgar's twin brother.", Versions: []dataset.VersionTag{dataset.VersionAll}},
		},
	}}))

	browse := presentation.NewAPI(
		presentation.NewRenderer(nil),
		presentation.NewFileStorage(pagesPath, pairsPath, filepath.Join(dir, "review")),
		nil,
		&presentation.APIConfig{BasePath: DatasetPrefix},
	)
	app := newTestApp(t, &mocks.Client{}, nil, browse.Handler())

	status, body := doRequest(t, app, http.MethodGet, DatasetPrefix+"/pages", "")
	require.Equal(t, http.StatusOK, status)
	assert.EqualValues(t, 1, body["total"])

	status, body = doRequest(t, app, http.MethodGet, DatasetPrefix+"/statistics", "")
	require.Equal(t, http.StatusOK, status)
	assert.EqualValues(t, 1, body["total_pages"])
	assert.NotContains(t, body, "total_pairs")
}
