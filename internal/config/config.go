package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	KafkaBrokers   []string `env:"KAFKA_BROKERS" envDefault:"localhost:9092"`
	KafkaSinkTopic string   `env:"KAFKA_SINK_TOPIC" envDefault:"hospital-admission-incidence"`

	HTTPAddr        string        `env:"HTTP_ADDR" envDefault:":8080"`
	LogLevel        string        `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat       string        `env:"LOG_FORMAT" envDefault:"json"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`

	// Snapshot archive location on local disk.
	ArchivePath string `env:"ARCHIVE_PATH" envDefault:"data/archive.db"`

	// Upstream healthdata.gov datasets. The time-series dataset republishes
	// the full history; the daily dataset carries one report day per issue.
	HealthDataBaseURL   string        `env:"HEALTHDATA_BASE_URL" envDefault:"https://healthdata.gov"`
	TimeSeriesDatasetID string        `env:"TIMESERIES_DATASET_ID" envDefault:"g62h-syeh"`
	DailyDatasetID      string        `env:"DAILY_DATASET_ID" envDefault:"6xf2-c3ie"`
	FetchTimeout        time.Duration `env:"FETCH_TIMEOUT" envDefault:"60s"`
	FetchInterval       time.Duration `env:"FETCH_INTERVAL" envDefault:"6h"`

	// Temporal resolutions reconstructed and published each cycle.
	PublishResolutions []string `env:"PUBLISH_RESOLUTIONS" envDefault:"daily,weekly"`
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	if len(cfg.KafkaBrokers) == 0 {
		return nil, errors.New("KAFKA_BROKERS is required")
	}
	if cfg.KafkaSinkTopic == "" {
		return nil, errors.New("KAFKA_SINK_TOPIC is required")
	}
	if cfg.ShutdownTimeout <= 0 {
		return nil, errors.New("SHUTDOWN_TIMEOUT must be positive")
	}
	if cfg.ArchivePath == "" {
		return nil, errors.New("ARCHIVE_PATH is required")
	}
	if cfg.TimeSeriesDatasetID == "" {
		return nil, errors.New("TIMESERIES_DATASET_ID is required")
	}
	if cfg.DailyDatasetID == "" {
		return nil, errors.New("DAILY_DATASET_ID is required")
	}
	if cfg.FetchTimeout <= 0 {
		return nil, errors.New("FETCH_TIMEOUT must be positive")
	}
	if cfg.FetchInterval <= 0 {
		return nil, errors.New("FETCH_INTERVAL must be positive")
	}
	if len(cfg.PublishResolutions) == 0 {
		return nil, errors.New("PUBLISH_RESOLUTIONS is required")
	}
	for _, r := range cfg.PublishResolutions {
		if r != "daily" && r != "weekly" {
			return nil, fmt.Errorf("PUBLISH_RESOLUTIONS: unknown resolution %q", r)
		}
	}

	return cfg, nil
}
