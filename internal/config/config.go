// Package config loads rtcheck run profiles: which analysis to run, on
// which platform, how to search for interfaces and how to log.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/fentz26/rtcheck/internal/analyzers"
	"github.com/fentz26/rtcheck/internal/design"
	"github.com/fentz26/rtcheck/internal/models"
	"github.com/fentz26/rtcheck/internal/resource"
	"github.com/fentz26/rtcheck/internal/taskset"
)

var ErrInvalidConfig = errors.New("invalid config")

// Config is a run profile.
type Config struct {
	Analysis AnalysisConfig `yaml:"analysis"`
	Model    ModelConfig    `yaml:"model"`
	Design   DesignConfig   `yaml:"design"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// AnalysisConfig selects the battery and the input encoding.
type AnalysisConfig struct {
	// Algorithm is the family whose battery runs.
	Algorithm  string `yaml:"algorithm"`
	Processors int64  `yaml:"processors"`
	// Tests run instead of the battery when set.
	Tests []string `yaml:"tests,omitempty"`
	// TimeUnit scales bare numbers, in task sets and in this profile.
	TimeUnit string `yaml:"time_unit"`
	Format   string `yaml:"format"`
}

// ModelConfig is the resource interface of hierarchical analyses. Times
// accept unit suffixes. A zero concurrency selects the periodic resource
// model.
type ModelConfig struct {
	Resource    string `yaml:"resource,omitempty"`
	Period      string `yaml:"period,omitempty"`
	Concurrency int64  `yaml:"concurrency,omitempty"`
}

// DesignConfig is the interface search space.
type DesignConfig struct {
	Designer   string `yaml:"designer"`
	Strategy   string `yaml:"strategy"`
	PeriodMin  string `yaml:"period_min,omitempty"`
	PeriodMax  string `yaml:"period_max,omitempty"`
	PeriodStep string `yaml:"period_step,omitempty"`
	// ResourceStep enables the stepped search below the linear budget.
	ResourceStep   string `yaml:"resource_step,omitempty"`
	ConcurrencyMin int64  `yaml:"concurrency_min,omitempty"`
	ConcurrencyMax int64  `yaml:"concurrency_max,omitempty"`
	Workers        int    `yaml:"workers,omitempty"`
}

// LoggingConfig configures internal/logger.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// DefaultConfig returns a sensible default configuration.
func DefaultConfig() *Config {
	return &Config{
		Analysis: AnalysisConfig{
			Algorithm:  string(analyzers.FamilyUniprocessorEDF),
			Processors: 1,
			TimeUnit:   "ms",
			Format:     string(taskset.FormatAuto),
		},
		Design: DesignConfig{
			Designer: "mpr-edf-sel09",
			Strategy: design.Naive.String(),
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// LoadConfig loads configuration from a YAML file. A missing file yields
// the defaults.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultConfig(), nil
		}
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// DefaultPath is ~/.rtcheck/profile.yaml.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".rtcheck", "profile.yaml")
}

// SaveConfig saves configuration to a YAML file, creating parent directories if needed.
func SaveConfig(path string, cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config cannot be nil")
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("creating config dir: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}

// LoadEnv loads .env files into the process environment. Missing files
// are skipped; variables already set win.
func LoadEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, path := range paths {
		if _, err := os.Stat(path); os.IsNotExist(err) {
			continue
		}
		if err := godotenv.Load(path); err != nil {
			return fmt.Errorf("loading %s: %w", path, err)
		}
	}
	return nil
}

// ApplyEnv overrides profile values from LOG_LEVEL, LOG_FORMAT and
// RTCHECK_WORKERS.
func (c *Config) ApplyEnv() error {
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		c.Logging.Format = v
	}
	if v := os.Getenv("RTCHECK_WORKERS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: RTCHECK_WORKERS=%q", ErrInvalidConfig, v)
		}
		c.Design.Workers = n
	}
	return nil
}

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	if _, err := analyzers.ParseFamily(c.Analysis.Algorithm); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if err := analyzers.ValidateProcessors(c.Analysis.Processors); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	unit, err := c.Unit()
	if err != nil {
		return err
	}
	if _, err := taskset.ParseFormat(c.Analysis.Format); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if _, err := c.ResourceModel(); err != nil {
		return err
	}
	if _, err := design.ParseStrategy(c.Design.Strategy); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if c.Design.Workers < 0 {
		return fmt.Errorf("%w: workers cannot be negative", ErrInvalidConfig)
	}
	if c.Design.ConcurrencyMin < 0 || c.Design.ConcurrencyMax < 0 {
		return fmt.Errorf("%w: concurrency bounds cannot be negative", ErrInvalidConfig)
	}
	for name, v := range map[string]string{
		"period_min":    c.Design.PeriodMin,
		"period_max":    c.Design.PeriodMax,
		"period_step":   c.Design.PeriodStep,
		"resource_step": c.Design.ResourceStep,
	} {
		if _, err := parseOptional(v, unit); err != nil {
			return fmt.Errorf("%w: %s: %v", ErrInvalidConfig, name, err)
		}
	}
	return nil
}

// Unit returns the scale of bare numbers.
func (c *Config) Unit() (models.Time, error) {
	if c.Analysis.TimeUnit == "" {
		return taskset.DefaultUnit, nil
	}
	unit, err := models.ParseUnit(c.Analysis.TimeUnit)
	if err != nil {
		return 0, fmt.Errorf("%w: time_unit: %v", ErrInvalidConfig, err)
	}
	return unit, nil
}

// TaskSetOptions returns how task set files are read.
func (c *Config) TaskSetOptions() (taskset.Options, error) {
	unit, err := c.Unit()
	if err != nil {
		return taskset.Options{}, err
	}
	format, err := taskset.ParseFormat(c.Analysis.Format)
	if err != nil {
		return taskset.Options{}, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return taskset.Options{Format: format, Unit: unit}, nil
}

// ResourceModel returns the configured interface, or nil when no resource
// is set.
func (c *Config) ResourceModel() (resource.Model, error) {
	if c.Model.Resource == "" && c.Model.Period == "" {
		return nil, nil
	}
	unit, err := c.Unit()
	if err != nil {
		return nil, err
	}
	budget, err := models.ParseTime(c.Model.Resource, unit)
	if err != nil {
		return nil, fmt.Errorf("%w: model resource: %v", ErrInvalidConfig, err)
	}
	period, err := models.ParseTime(c.Model.Period, unit)
	if err != nil {
		return nil, fmt.Errorf("%w: model period: %v", ErrInvalidConfig, err)
	}

	var model resource.Model
	if c.Model.Concurrency == 0 {
		model = resource.PeriodicResourceModel{Resource: budget, Period: period}
	} else {
		model = resource.MultiprocessorResourceModel{Resource: budget, Period: period, Concurrency: c.Model.Concurrency}
	}
	if err := model.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return model, nil
}

// Platform returns what the analyzers run on.
func (c *Config) Platform() (analyzers.Platform, error) {
	model, err := c.ResourceModel()
	if err != nil {
		return analyzers.Platform{}, err
	}
	return analyzers.Platform{Processors: c.Analysis.Processors, Model: model}, nil
}

// DesignRequest returns the interface search of the profile. The period
// range defaults to a single period of one time unit when unset.
func (c *Config) DesignRequest() (analyzers.DesignRequest, error) {
	unit, err := c.Unit()
	if err != nil {
		return analyzers.DesignRequest{}, err
	}
	strategy, err := design.ParseStrategy(c.Design.Strategy)
	if err != nil {
		return analyzers.DesignRequest{}, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	var req analyzers.DesignRequest
	req.Strategy = strategy
	periods := &req.Bounds.Periods
	for _, f := range []struct {
		dst *models.Time
		src string
	}{
		{&periods.Min, c.Design.PeriodMin},
		{&periods.Max, c.Design.PeriodMax},
		{&periods.Step, c.Design.PeriodStep},
		{&req.Step, c.Design.ResourceStep},
	} {
		if *f.dst, err = parseOptional(f.src, unit); err != nil {
			return analyzers.DesignRequest{}, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
		}
	}
	if periods.Min == 0 {
		periods.Min = unit
	}
	if periods.Max == 0 {
		periods.Max = periods.Min
	}
	req.Bounds.Concurrency = design.ConcurrencyRange{Min: c.Design.ConcurrencyMin, Max: c.Design.ConcurrencyMax}

	cfg := design.DefaultConfig()
	if c.Design.Workers > 0 {
		cfg.Workers = c.Design.Workers
	}
	req.Config = cfg
	return req, nil
}

func parseOptional(s string, unit models.Time) (models.Time, error) {
	if s == "" {
		return 0, nil
	}
	return models.ParseTime(s, unit)
}
