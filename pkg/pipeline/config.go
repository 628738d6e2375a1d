package pipeline

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/Caia-Tech/ff6-dataset/internal/expansion"
	"github.com/Caia-Tech/ff6-dataset/internal/export"
	"github.com/Caia-Tech/ff6-dataset/internal/generation"
	"github.com/Caia-Tech/ff6-dataset/internal/processing"
	"github.com/Caia-Tech/ff6-dataset/internal/review"
	"github.com/Caia-Tech/ff6-dataset/internal/scraping"
	"github.com/Caia-Tech/ff6-dataset/internal/storage"
	"github.com/Caia-Tech/ff6-dataset/pkg/dataset"
	"github.com/Caia-Tech/ff6-dataset/pkg/logging"
)

// PipelineConfig holds complete pipeline configuration
type PipelineConfig struct {
	// Logging configuration
	Logging *logging.LogConfig `json:"logging"`

	// Stage configuration
	Wiki       *scraping.Config   `json:"wiki"`
	Cleaning   *processing.Config `json:"cleaning"`
	Generation *generation.Config `json:"generation"`
	Expansion  *expansion.Config  `json:"expansion"`
	Review     *review.Config     `json:"review"`

	// Data paths
	DataPaths *DataPathsConfig `json:"data_paths"`

	// Services
	Server   *ServerConfig           `json:"server"`
	Temporal *TemporalConfig         `json:"temporal"`
	Snapshot *storage.SnapshotConfig `json:"snapshot"`
	Export   *export.Config          `json:"export"`
}

// ServerConfig holds server settings
type ServerConfig struct {
	Host           string        `json:"host"`
	Port           int           `json:"port"`
	ReadTimeout    time.Duration `json:"read_timeout"`
	WriteTimeout   time.Duration `json:"write_timeout"`
	MaxRequestSize int           `json:"max_request_size"`
	AllowOrigins   string        `json:"allow_origins"`
}

// Addr returns the listen address
func (s *ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// TemporalConfig holds the workflow service connection settings
type TemporalConfig struct {
	HostPort  string `json:"host_port"`
	Namespace string `json:"namespace"`
	TaskQueue string `json:"task_queue"`
}

// DataPathsConfig holds all data file locations
type DataPathsConfig struct {
	DataRoot     string `json:"data_root"`
	RawPages     string `json:"raw_pages"`
	CleanedPages string `json:"cleaned_pages"`
	TrainingFile string `json:"training_file"`
	ReviewDir    string `json:"review_dir"`
	LogDir       string `json:"log_dir"`
}

// DefaultPipelineConfig returns a complete default configuration
func DefaultPipelineConfig() *PipelineConfig {
	return &PipelineConfig{
		Logging: logging.DefaultLogConfig(),

		Wiki:       scraping.DefaultConfig(),
		Cleaning:   processing.DefaultConfig(),
		Generation: generation.DefaultConfig(),
		Expansion:  expansion.DefaultConfig(),
		Review:     review.DefaultConfig(),

		DataPaths: &DataPathsConfig{
			DataRoot:     "data",
			RawPages:     dataset.RawPagesFile,
			CleanedPages: dataset.CleanedPagesFile,
			TrainingFile: dataset.TrainingFile,
			ReviewDir:    dataset.ReviewDir,
			LogDir:       "logs",
		},

		Server: &ServerConfig{
			Host:           "0.0.0.0",
			Port:           8080,
			ReadTimeout:    30 * time.Second,
			WriteTimeout:   30 * time.Second,
			MaxRequestSize: 4 * 1024 * 1024, // 4MB
			AllowOrigins:   "*",
		},

		Temporal: &TemporalConfig{
			HostPort:  "localhost:7233",
			Namespace: "default",
			TaskQueue: "ff6-dataset",
		},

		Snapshot: storage.DefaultSnapshotConfig(),
		Export:   export.DefaultConfig(),
	}
}

// ProductionPipelineConfig returns production-ready configuration
func ProductionPipelineConfig() *PipelineConfig {
	config := DefaultPipelineConfig()

	// Production logging
	config.Logging.Level = "info"
	config.Logging.Format = "json"
	config.Logging.Console = false

	// Every build is recorded
	config.Snapshot.Enabled = true
	config.Wiki.RobotsPolicy = scraping.RobotsEnforce

	return config
}

// DevelopmentPipelineConfig returns development configuration
func DevelopmentPipelineConfig() *PipelineConfig {
	config := DefaultPipelineConfig()

	// Development logging
	config.Logging.Level = "debug"
	config.Logging.Format = "pretty"
	config.Logging.Console = true

	config.Snapshot.Enabled = false
	config.Generation.Seed = 1

	return config
}

// LoadPipelineConfig builds the configuration from defaults, an optional
// JSON file, a .env file and the process environment, in that order
func LoadPipelineConfig(path string) (*PipelineConfig, error) {
	config := DefaultPipelineConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := json.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	if err := LoadEnvFile(""); err != nil {
		return nil, err
	}
	applyEnvOverrides(config)

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

func applyEnvOverrides(config *PipelineConfig) {
	config.Expansion.APIKey = getEnv("ANTHROPIC_API_KEY", config.Expansion.APIKey)
	config.Expansion.BaseURL = getEnv("ANTHROPIC_BASE_URL", config.Expansion.BaseURL)
	config.Logging.Level = getEnv("CAIA_LOG_LEVEL", config.Logging.Level)
	config.Temporal.HostPort = getEnv("TEMPORAL_HOST", config.Temporal.HostPort)
	config.Export.DatabaseURL = getEnv("DATABASE_URL", config.Export.DatabaseURL)

	if es := getEnv("ELASTICSEARCH_URL", ""); es != "" {
		config.Export.ElasticsearchURLs = []string{es}
	}
	if port := getEnvInt("PORT", 0); port > 0 {
		config.Server.Port = port
	}
}

// Validate checks settings that would otherwise fail deep inside a stage
func (c *PipelineConfig) Validate() error {
	switch c.Wiki.RobotsPolicy {
	case scraping.RobotsEnforce, scraping.RobotsWarn, scraping.RobotsIgnore:
	default:
		return fmt.Errorf("invalid robots policy %q", c.Wiki.RobotsPolicy)
	}
	if c.Cleaning.MinSectionLength < 0 || c.Cleaning.MinPageLength < 0 {
		return fmt.Errorf("cleaning thresholds must not be negative")
	}
	if c.Review.SampleSize <= 0 {
		return fmt.Errorf("review sample size must be positive")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port %d", c.Server.Port)
	}
	return nil
}
