package app

import (
	"errors"
	"fmt"
	"strings"

	"github.com/specialistvlad/tsflow/internal/config"
)

// Config holds all the necessary configuration for an App instance to run.
type Config struct {
	ScriptPath string // a command file or a directory of them
	ConfigFile string

	WorkingDir string
	InputStart string
	InputEnd   string
	Properties map[string]string
	DataStores []*config.DataStore

	LogFormat       string
	LogLevel        string
	HealthcheckPort int
	ProgressURL     string
	ReportPath      string

	// From and To bound a partial run; To is exclusive and 0 runs to the end.
	From      int
	To        int
	CheckOnly bool
}

// NewConfig validates cfg and returns a copy.
func NewConfig(cfg Config) (*Config, error) {
	if cfg.ScriptPath == "" {
		return nil, errors.New("ScriptPath is a required configuration field and cannot be empty")
	}
	switch cfg.LogFormat {
	case "", "text", "json":
	default:
		return nil, fmt.Errorf("invalid log format %q: must be 'text' or 'json'", cfg.LogFormat)
	}
	switch strings.ToLower(cfg.LogLevel) {
	case "", "debug", "info", "warn", "error":
	default:
		return nil, fmt.Errorf("invalid log level %q: must be 'debug', 'info', 'warn', or 'error'", cfg.LogLevel)
	}
	if cfg.HealthcheckPort < 0 {
		return nil, fmt.Errorf("invalid healthcheck port %d", cfg.HealthcheckPort)
	}
	if cfg.From < 0 {
		return nil, fmt.Errorf("invalid start index %d", cfg.From)
	}
	if cfg.To != 0 && cfg.To <= cfg.From {
		return nil, fmt.Errorf("end index %d must be greater than start index %d", cfg.To, cfg.From)
	}
	return &cfg, nil
}

// MergeFile fills every setting left empty in c from the configuration
// file. Settings already present, typically from flags, win. Properties
// are merged key by key.
func (c *Config) MergeFile(f *config.File) {
	if f == nil {
		return
	}
	fill := func(dst *string, v string) {
		if *dst == "" {
			*dst = v
		}
	}
	fill(&c.WorkingDir, f.WorkingDir)
	fill(&c.InputStart, f.InputStart)
	fill(&c.InputEnd, f.InputEnd)
	fill(&c.LogLevel, f.LogLevel)
	fill(&c.LogFormat, f.LogFormat)
	fill(&c.ProgressURL, f.ProgressURL)
	fill(&c.ReportPath, f.Report)
	if c.HealthcheckPort == 0 {
		c.HealthcheckPort = f.HealthcheckPort
	}
	if len(f.Properties) > 0 {
		merged := make(map[string]string, len(f.Properties)+len(c.Properties))
		for k, v := range f.Properties {
			merged[k] = v
		}
		for k, v := range c.Properties {
			merged[k] = v
		}
		c.Properties = merged
	}
	c.DataStores = append(append([]*config.DataStore(nil), f.DataStores...), c.DataStores...)
}
