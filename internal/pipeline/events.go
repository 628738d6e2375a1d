package pipeline

import (
	"time"

	"github.com/google/uuid"
)

// EventType represents the type of stage event
type EventType string

const (
	EventStageStarted   EventType = "stage.started"
	EventStageCompleted EventType = "stage.completed"
	EventStageFailed    EventType = "stage.failed"
	EventSnapshotTaken  EventType = "snapshot.taken"
)

// Stage names
const (
	StageScrape   = "scrape"
	StageClean    = "clean"
	StageGenerate = "generate"
	StageExpand   = "expand"
	StageReview   = "review"
)

// StageEvent reports progress of one stage of a dataset run
type StageEvent struct {
	ID        string                 `json:"id"`
	Type      EventType              `json:"type"`
	RunID     string                 `json:"run_id"`
	Stage     string                 `json:"stage"`
	Timestamp time.Time              `json:"timestamp"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Error     string                 `json:"error,omitempty"`
}

// NewStageEvent creates a new stage event
func NewStageEvent(eventType EventType, runID, stage string) *StageEvent {
	return &StageEvent{
		ID:        GenerateEventID(),
		Type:      eventType,
		RunID:     runID,
		Stage:     stage,
		Timestamp: time.Now(),
		Metadata:  make(map[string]interface{}),
	}
}

// GenerateEventID generates a unique event ID
func GenerateEventID() string {
	return "evt_" + uuid.NewString()
}

// NewRunID generates an identifier for a dataset run
func NewRunID() string {
	return uuid.NewString()
}
