package presentation

import (
	"time"

	"github.com/Caia-Tech/ff6-dataset/internal/storage"
	"github.com/Caia-Tech/ff6-dataset/pkg/dataset"
)

// OutputFormat selects how a page is rendered
type OutputFormat string

const (
	FormatJSON     OutputFormat = "json"
	FormatMarkdown OutputFormat = "markdown"
	FormatPlain    OutputFormat = "plain"
	FormatHTML     OutputFormat = "html"
)

// PageSummary is one entry of the page listing
type PageSummary struct {
	Title         string `json:"title"`
	URL           string `json:"url"`
	Sections      int    `json:"sections"`
	ContentLength int    `json:"content_length"`
}

// PageListResponse is returned by GET /pages
type PageListResponse struct {
	Total int           `json:"total"`
	Pages []PageSummary `json:"pages"`
}

// PairsResponse is returned by GET /pairs
type PairsResponse struct {
	Total  int                    `json:"total"`
	Offset int                    `json:"offset"`
	Limit  int                    `json:"limit"`
	Query  string                 `json:"query,omitempty"`
	Pairs  []dataset.TrainingPair `json:"pairs"`
}

// StatisticsResponse is returned by GET /statistics
type StatisticsResponse struct {
	dataset.Statistics
	Timestamp time.Time `json:"timestamp"`
}

// ReviewResponse is returned by GET /review
type ReviewResponse struct {
	Accepted         int            `json:"accepted"` // includes edited pairs
	Rejected         int            `json:"rejected"`
	AcceptRate       *float64       `json:"accept_rate,omitempty"`
	RejectionReasons map[string]int `json:"rejection_reasons,omitempty"`
}

// SnapshotsResponse is returned by GET /snapshots
type SnapshotsResponse struct {
	Snapshots []storage.Snapshot `json:"snapshots"`
}

// ErrorResponse is the body of every error reply
type ErrorResponse struct {
	Error     string    `json:"error"`
	Status    int       `json:"status"`
	Details   string    `json:"details,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}
