package design

import (
	"log/slog"
	"runtime"
)

// Config defines the synthesizer configuration.
type Config struct {
	// Workers is the maximum number of periods explored concurrently.
	Workers int `yaml:"workers"`
	// Logger receives per-job debug records. Nil means slog.Default().
	Logger *slog.Logger `yaml:"-"`
}

// DefaultConfig returns the default synthesizer configuration.
func DefaultConfig() *Config {
	return &Config{
		Workers: runtime.GOMAXPROCS(0),
	}
}

// WorkerLimit returns the worker pool size, at least one.
func (c *Config) WorkerLimit() int {
	if c == nil || c.Workers < 1 {
		return 1
	}
	return c.Workers
}

func (c *Config) logger() *slog.Logger {
	if c == nil || c.Logger == nil {
		return slog.Default()
	}
	return c.Logger
}
