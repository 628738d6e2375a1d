package api

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	enumspb "go.temporal.io/api/enums/v1"
	"go.temporal.io/sdk/client"

	"github.com/Caia-Tech/ff6-dataset/internal/temporal/workflows"
	"github.com/Caia-Tech/ff6-dataset/pkg/logging"
)

const maxBuildPages = 500

// Handlers contains the HTTP handlers for the control API
type Handlers struct {
	temporal  client.Client
	taskQueue string
	logger    zerolog.Logger
}

// NewHandlers creates a new handlers instance
func NewHandlers(temporal client.Client, taskQueue string) *Handlers {
	return &Handlers{
		temporal:  temporal,
		taskQueue: taskQueue,
		logger:    logging.GetLogger("api"),
	}
}

// Health returns the service health status
func (h *Handlers) Health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":    "healthy",
		"service":   "ff6-dataset",
		"version":   "0.1.0",
		"timestamp": time.Now().UTC(),
	})
}

// BuildRequest starts a dataset build
type BuildRequest struct {
	Pages    []string `json:"pages"`
	Expand   bool     `json:"expand"`
	Snapshot bool     `json:"snapshot"`
	Schedule string   `json:"schedule"` // optional cron expression
}

// BuildResponse identifies a started build
type BuildResponse struct {
	WorkflowID string `json:"workflow_id"`
	RunID      string `json:"run_id"`
	BuildRunID string `json:"build_run_id"`
}

// BuildStatusResponse reports the state of a build workflow
type BuildStatusResponse struct {
	WorkflowID string                        `json:"workflow_id"`
	Status     string                        `json:"status"`
	StartTime  time.Time                     `json:"start_time"`
	CloseTime  *time.Time                    `json:"close_time,omitempty"`
	Result     *workflows.DatasetBuildResult `json:"result,omitempty"`
	Error      string                        `json:"error,omitempty"`
}

// StartBuild starts a DatasetBuildWorkflow
func (h *Handlers) StartBuild(c *fiber.Ctx) error {
	var req BuildRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error":   "Invalid request body",
				"details": err.Error(),
			})
		}
	}

	if err := validateBuildRequest(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":   "Validation failed",
			"details": err.Error(),
		})
	}

	buildRunID := uuid.New().String()
	workflowID := fmt.Sprintf("dataset-build-%s", uuid.New().String())

	we, err := h.temporal.ExecuteWorkflow(c.Context(), client.StartWorkflowOptions{
		ID:           workflowID,
		TaskQueue:    h.taskQueue,
		CronSchedule: req.Schedule,
	}, workflows.DatasetBuildWorkflow, workflows.DatasetBuildInput{
		RunID:    buildRunID,
		Pages:    req.Pages,
		Expand:   req.Expand,
		Snapshot: req.Snapshot,
	})
	if err != nil {
		h.logger.Error().Err(err).Str("workflow_id", workflowID).Msg("Failed to start dataset build")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error":   "Failed to start dataset build",
			"details": err.Error(),
		})
	}

	h.logger.Info().
		Str("workflow_id", workflowID).
		Str("build_run_id", buildRunID).
		Int("pages", len(req.Pages)).
		Bool("expand", req.Expand).
		Msg("Started dataset build")

	return c.Status(fiber.StatusAccepted).JSON(BuildResponse{
		WorkflowID: we.GetID(),
		RunID:      we.GetRunID(),
		BuildRunID: buildRunID,
	})
}

// GetBuild returns the status of a build, with its result once completed
func (h *Handlers) GetBuild(c *fiber.Ctx) error {
	workflowID := c.Params("id")
	if workflowID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Workflow ID is required",
		})
	}

	resp, err := h.temporal.DescribeWorkflowExecution(c.Context(), workflowID, "")
	if err != nil {
		h.logger.Warn().Err(err).Str("workflow_id", workflowID).Msg("Failed to describe workflow")
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error":       "Build not found",
			"workflow_id": workflowID,
		})
	}

	info := resp.GetWorkflowExecutionInfo()
	status := info.GetStatus()
	response := BuildStatusResponse{
		WorkflowID: workflowID,
		Status:     status.String(),
		StartTime:  info.GetStartTime().AsTime(),
	}
	if info.GetCloseTime() != nil {
		closeTime := info.GetCloseTime().AsTime()
		response.CloseTime = &closeTime
	}

	switch status {
	case enumspb.WORKFLOW_EXECUTION_STATUS_COMPLETED:
		var result workflows.DatasetBuildResult
		if err := h.temporal.GetWorkflow(c.Context(), workflowID, "").Get(c.Context(), &result); err != nil {
			response.Error = err.Error()
		} else {
			response.Result = &result
		}
	case enumspb.WORKFLOW_EXECUTION_STATUS_FAILED:
		err := h.temporal.GetWorkflow(c.Context(), workflowID, "").Get(c.Context(), nil)
		if err == nil {
			err = errors.New("build failed")
		}
		response.Error = err.Error()
	}

	return c.JSON(response)
}

func validateBuildRequest(req *BuildRequest) error {
	if len(req.Pages) > maxBuildPages {
		return fmt.Errorf("too many pages: %d (maximum %d)", len(req.Pages), maxBuildPages)
	}
	for i, title := range req.Pages {
		title = strings.TrimSpace(title)
		if title == "" {
			return fmt.Errorf("page %d has an empty title", i)
		}
		if strings.ContainsAny(title, "|#<>[]{}") {
			return fmt.Errorf("page title %q contains characters not allowed in wiki titles", title)
		}
		req.Pages[i] = strings.ReplaceAll(title, " ", "_")
	}
	if s := strings.TrimSpace(req.Schedule); s != "" && len(strings.Fields(s)) != 5 {
		return fmt.Errorf("schedule must be a five-field cron expression")
	}
	return nil
}
