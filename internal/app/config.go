package app

import "fmt"

// Config holds everything an App instance needs to run one pipeline.
type Config struct {
	PipelinePath string
	Tag          string
	AuthToken    string
	LogFormat    string
	LogLevel     string
	WorkerCount  int
	DryRun       bool
}

// NewConfig validates a Config and applies defaults.
func NewConfig(cfg Config) (*Config, error) {
	if cfg.PipelinePath == "" {
		return nil, fmt.Errorf("pipeline definition path is required")
	}
	if cfg.Tag == "" {
		return nil, fmt.Errorf("release tag is required")
	}
	if cfg.WorkerCount <= 0 {
		cfg.WorkerCount = 4
	}
	if cfg.LogFormat == "" {
		cfg.LogFormat = "json"
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	return &cfg, nil
}
