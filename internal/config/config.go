// Package config provides application configuration for episim.
// Configurations are loaded from TOML files with XDG-compliant paths.
// Everything that describes the epidemic model itself lives in the model
// property file; this covers the surrounding application concerns.
package config

import (
	"errors"
	"fmt"
)

// Config holds the complete application configuration.
type Config struct {
	Simulation SimulationConfig `toml:"simulation"`
	Output     OutputConfig     `toml:"output"`
	Logging    LoggingConfig    `toml:"logging"`
	Database   DatabaseConfig   `toml:"database"`
	Monitor    MonitorConfig    `toml:"monitor"`
}

// SimulationConfig carries the defaults a run starts from. Command-line
// flags override every field here.
type SimulationConfig struct {
	ModelFile     string `toml:"model_file"`
	FallbackModel string `toml:"fallback_model"`
	RunNumber     int    `toml:"run_number"`
}

// OutputConfig controls where run artifacts are written.
type OutputConfig struct {
	Directory string `toml:"directory"`
}

// LoggingConfig controls application logging.
type LoggingConfig struct {
	Level  LogLevel  `toml:"level"`
	Format LogFormat `toml:"format"`
	File   string    `toml:"file"`
}

// LogLevel defines logging verbosity.
type LogLevel string

const (
	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)

// LogFormat selects the log handler.
type LogFormat string

const (
	LogFormatText LogFormat = "text"
	LogFormatJSON LogFormat = "json"
)

// DatabaseConfig controls the SQLite results store.
type DatabaseConfig struct {
	Enabled bool   `toml:"enabled"`
	File    string `toml:"file"`
}

// MonitorConfig controls the live terminal monitor.
type MonitorConfig struct {
	Enabled   bool `toml:"enabled"`
	RefreshMS int  `toml:"refresh_ms"`
}

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	var errs []error

	if err := c.Simulation.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("simulation: %w", err))
	}

	if err := c.Output.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("output: %w", err))
	}

	if err := c.Logging.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("logging: %w", err))
	}

	if err := c.Database.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("database: %w", err))
	}

	if err := c.Monitor.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("monitor: %w", err))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	return nil
}

// Validate checks that the simulation defaults are valid.
func (s *SimulationConfig) Validate() error {
	var errs []error

	if s.ModelFile == "" {
		errs = append(errs, errors.New("model_file is required"))
	}

	if s.RunNumber < 1 {
		errs = append(errs, errors.New("run_number must be at least 1"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	return nil
}

// Validate checks that the output configuration is valid.
func (o *OutputConfig) Validate() error {
	if o.Directory == "" {
		return errors.New("directory is required")
	}
	return nil
}

// Validate checks that the logging configuration is valid.
func (l *LoggingConfig) Validate() error {
	var errs []error

	validLevels := map[LogLevel]bool{
		LogLevelDebug: true,
		LogLevelInfo:  true,
		LogLevelWarn:  true,
		LogLevelError: true,
	}

	if !validLevels[l.Level] && l.Level != "" {
		errs = append(errs, fmt.Errorf("invalid log level: %s", l.Level))
	}

	validFormats := map[LogFormat]bool{
		LogFormatText: true,
		LogFormatJSON: true,
	}

	if !validFormats[l.Format] && l.Format != "" {
		errs = append(errs, fmt.Errorf("invalid log format: %s", l.Format))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	return nil
}

// Validate checks that the database configuration is valid.
func (d *DatabaseConfig) Validate() error {
	if d.Enabled && d.File == "" {
		return errors.New("file is required when the results store is enabled")
	}
	return nil
}

// Validate checks that the monitor configuration is valid.
func (m *MonitorConfig) Validate() error {
	if m.RefreshMS < 0 {
		return errors.New("refresh_ms must be non-negative")
	}
	return nil
}

// Default returns a configuration with sensible default values.
func Default() *Config {
	return &Config{
		Simulation: SimulationConfig{
			ModelFile:     "model.fred",
			FallbackModel: "params",
			RunNumber:     1,
		},
		Output: OutputConfig{
			Directory: "OUT",
		},
		Logging: LoggingConfig{
			Level:  LogLevelInfo,
			Format: LogFormatText,
			File:   "",
		},
		Database: DatabaseConfig{
			Enabled: true,
			File:    "results.db",
		},
		Monitor: MonitorConfig{
			Enabled:   false,
			RefreshMS: 250,
		},
	}
}
