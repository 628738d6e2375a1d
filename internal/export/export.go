package export

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Caia-Tech/ff6-dataset/pkg/dataset"
)

// Export targets
const (
	TargetPostgres = "postgres"
	TargetElastic  = "elastic"
)

// Config configures the export sinks
type Config struct {
	DatabaseURL       string        `json:"-"`
	ElasticsearchURLs []string      `json:"elasticsearch_urls"`
	PairsIndex        string        `json:"pairs_index"`
	SectionsIndex     string        `json:"sections_index"`
	BulkWorkers       int           `json:"bulk_workers"`
	FlushBytes        int           `json:"flush_bytes"`
	FlushInterval     time.Duration `json:"flush_interval"`
}

// DefaultConfig returns local development endpoints
func DefaultConfig() *Config {
	return &Config{
		DatabaseURL:       "postgres://localhost:5432/ff6_dataset",
		ElasticsearchURLs: []string{"http://localhost:9200"},
		PairsIndex:        "ff6-training-pairs",
		SectionsIndex:     "ff6-wiki-sections",
		BulkWorkers:       2,
		FlushBytes:        5 * 1024 * 1024,
		FlushInterval:     time.Second,
	}
}

// ExportStats summarises an export
type ExportStats struct {
	Target   string        `json:"target"`
	Pages    int           `json:"pages"`
	Sections int           `json:"sections"`
	Pairs    int           `json:"pairs"`
	Failed   int           `json:"failed"`
	Duration time.Duration `json:"duration"`
}

// Sink copies the dataset into an external store
type Sink interface {
	Export(ctx context.Context, pages []dataset.Page, pairs []dataset.TrainingPair) (*ExportStats, error)
	Close()
}

// NewSink opens the sink for target
func NewSink(ctx context.Context, target string, config *Config) (Sink, error) {
	if config == nil {
		config = DefaultConfig()
	}
	switch target {
	case TargetPostgres:
		return NewPostgresSink(ctx, config.DatabaseURL)
	case TargetElastic:
		return NewElasticSink(config)
	default:
		return nil, fmt.Errorf("unknown export target %q", target)
	}
}

var idNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://finalfantasy.fandom.com/ff6-dataset"))

// DocumentID derives a stable identifier from content parts
func DocumentID(parts ...string) string {
	return uuid.NewSHA1(idNamespace, []byte(strings.Join(parts, "\x1f"))).String()
}

// PairID identifies a training pair by its content
func PairID(p dataset.TrainingPair) string {
	return DocumentID("pair", p.Instruction, p.Input, p.Output)
}

// SectionID identifies a section by page title, position and heading
func SectionID(title string, index int, heading string) string {
	return DocumentID("section", title, fmt.Sprint(index), heading)
}
