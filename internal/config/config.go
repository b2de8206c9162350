// Package config loads docql.yaml, the explicit configuration object that
// carries pipeline and store settings into components.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/roach88/docql/internal/query"
	"github.com/roach88/docql/internal/store"
	"github.com/roach88/docql/internal/strategy"
)

// Options is the docql.yaml file.
type Options struct {
	// Database is the SQLite path. ":memory:" keeps everything in process.
	Database string `yaml:"database"`

	// ThreadSafetyChecks enables the per-context reentrancy detector.
	ThreadSafetyChecks bool `yaml:"thread_safety_checks"`

	// StandaloneStateManager is passed to the state manager hook when a
	// query starts streaming.
	StandaloneStateManager bool `yaml:"standalone_state_manager,omitempty"`

	// LogLevel is debug, info, warn or error.
	LogLevel string `yaml:"log_level,omitempty"`

	Retry RetryOptions `yaml:"retry"`
}

// RetryOptions configures the store's write strategy.
// Format for delays: Go duration string (e.g., "100ms", "2s").
type RetryOptions struct {
	// MaxAttempts of 1 disables retries.
	MaxAttempts int    `yaml:"max_attempts"`
	BaseDelay   string `yaml:"base_delay"`
	MaxDelay    string `yaml:"max_delay"`
}

// Default returns the options used when no file is given.
func Default() *Options {
	return &Options{
		Database:           ":memory:",
		ThreadSafetyChecks: true,
		LogLevel:           "info",
		Retry: RetryOptions{
			MaxAttempts: 3,
			BaseDelay:   "100ms",
			MaxDelay:    "2s",
		},
	}
}

// Load reads path over the defaults. Keys absent from the file keep their
// default values.
func Load(path string) (*Options, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML over the defaults and validates the result.
func Parse(data []byte) (*Options, error) {
	opts := Default()
	if err := yaml.Unmarshal(data, opts); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	return opts, nil
}

// Validate checks every field.
func (o *Options) Validate() error {
	var errs []error
	if o.Database == "" {
		errs = append(errs, errors.New("database must not be empty"))
	}
	if _, err := o.Level(); err != nil {
		errs = append(errs, err)
	}
	if _, err := o.RetryConfig(); err != nil {
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}

// Level parses LogLevel. Empty means info.
func (o *Options) Level() (slog.Level, error) {
	switch strings.ToLower(o.LogLevel) {
	case "", "info":
		return slog.LevelInfo, nil
	case "debug":
		return slog.LevelDebug, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return 0, fmt.Errorf("unknown log_level %q", o.LogLevel)
}

// RetryConfig converts the retry section to a strategy.Config.
func (o *Options) RetryConfig() (strategy.Config, error) {
	base, err := parseDuration("retry.base_delay", o.Retry.BaseDelay)
	if err != nil {
		return strategy.Config{}, err
	}
	maxDelay, err := parseDuration("retry.max_delay", o.Retry.MaxDelay)
	if err != nil {
		return strategy.Config{}, err
	}
	cfg := strategy.Config{MaxAttempts: o.Retry.MaxAttempts, BaseDelay: base, MaxDelay: maxDelay}
	if err := cfg.Validate(); err != nil {
		return strategy.Config{}, fmt.Errorf("retry: %w", err)
	}
	return cfg, nil
}

func parseDuration(field, s string) (time.Duration, error) {
	if s == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", field, err)
	}
	return d, nil
}

// Strategy builds the write strategy. One attempt means NoRetry.
func (o *Options) Strategy(logger *slog.Logger) (strategy.ExecutionStrategy, error) {
	cfg, err := o.RetryConfig()
	if err != nil {
		return nil, err
	}
	if cfg.MaxAttempts == 1 {
		return strategy.NoRetry{}, nil
	}
	return strategy.NewRetrying(cfg, store.IsTransient, strategy.WithLogger(logger)), nil
}

// OpenStore opens Database with the configured write strategy.
func (o *Options) OpenStore(logger *slog.Logger, opts ...store.Option) (*store.Store, error) {
	s, err := o.Strategy(logger)
	if err != nil {
		return nil, err
	}
	return store.Open(o.Database, append([]store.Option{store.WithStrategy(s)}, opts...)...)
}

// QueryOptions returns the pipeline options these settings imply.
func (o *Options) QueryOptions(logger *slog.Logger) []query.Option {
	return []query.Option{
		query.WithThreadSafetyChecks(o.ThreadSafetyChecks),
		query.WithStandaloneStateManager(o.StandaloneStateManager),
		query.WithLogger(logger),
	}
}
