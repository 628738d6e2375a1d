package api

import (
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/Caia-Tech/ff6-dataset/internal/storage"
)

// StorageHandler provides HTTP endpoints for snapshot history and monitoring
type StorageHandler struct {
	snapshots storage.SnapshotStore
	metrics   *storage.SimpleMetricsCollector
}

// NewStorageHandler creates a new storage handler. Either argument may be nil
// when snapshots are disabled.
func NewStorageHandler(snapshots storage.SnapshotStore, metrics *storage.SimpleMetricsCollector) *StorageHandler {
	return &StorageHandler{
		snapshots: snapshots,
		metrics:   metrics,
	}
}

// GetSnapshots returns the most recent dataset snapshots
func (h *StorageHandler) GetSnapshots(c *fiber.Ctx) error {
	if h.snapshots == nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Snapshots are disabled",
		})
	}

	limit, err := strconv.Atoi(c.Query("limit", "20"))
	if err != nil || limit <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "limit must be a positive integer",
		})
	}

	history, err := h.snapshots.History(c.Context(), limit)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error":   "Failed to read snapshot history",
			"details": err.Error(),
		})
	}

	return c.JSON(fiber.Map{
		"snapshots": history,
		"count":     len(history),
	})
}

// GetStorageMetrics returns per-operation snapshot metrics
func (h *StorageHandler) GetStorageMetrics(c *fiber.Ctx) error {
	if h.metrics == nil {
		return c.JSON(fiber.Map{
			"metrics_summary":  fiber.Map{},
			"total_operations": 0,
		})
	}

	summary := h.metrics.Summary()
	rates := make(map[string]float64, len(summary))
	for op, stats := range summary {
		rates[op] = stats.GetSuccessRate()
	}

	return c.JSON(fiber.Map{
		"metrics_summary":  summary,
		"success_rates":    rates,
		"total_operations": len(h.metrics.GetMetrics()),
	})
}

// GetStorageHealth checks the snapshot repository
func (h *StorageHandler) GetStorageHealth(c *fiber.Ctx) error {
	if h.snapshots == nil {
		return c.JSON(fiber.Map{
			"healthy": true,
			"status":  "Snapshots are disabled",
		})
	}

	if err := h.snapshots.Health(c.Context()); err != nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"healthy": false,
			"error":   err.Error(),
		})
	}

	return c.JSON(fiber.Map{
		"healthy": true,
		"status":  "Snapshot repository is healthy",
	})
}

// ClearMetrics clears all collected metrics
func (h *StorageHandler) ClearMetrics(c *fiber.Ctx) error {
	if h.metrics != nil {
		h.metrics.ClearMetrics()
	}
	return c.JSON(fiber.Map{
		"message": "Metrics cleared successfully",
	})
}
