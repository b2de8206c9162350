// Package strategy runs store operations under a retry policy.
//
// The query read path never retries. Strategies wrap writes and schema
// setup in the store, where a busy or locked database is worth another
// attempt.
package strategy

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// ExecutionStrategy runs op, possibly more than once.
type ExecutionStrategy interface {
	Execute(ctx context.Context, op func(ctx context.Context) error) error
}

// Classifier reports whether err is worth retrying.
type Classifier func(err error) bool

// NoRetry runs each operation exactly once.
type NoRetry struct{}

func (NoRetry) Execute(ctx context.Context, op func(ctx context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return op(ctx)
}

// Config controls Retrying.
type Config struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
}

// DefaultConfig is three attempts, 100ms doubling up to 2s.
func DefaultConfig() Config {
	return Config{MaxAttempts: 3, BaseDelay: 100 * time.Millisecond, MaxDelay: 2 * time.Second}
}

// Validate checks the config for values Retrying cannot use.
func (c Config) Validate() error {
	if c.MaxAttempts < 1 {
		return fmt.Errorf("max_attempts must be at least 1, got %d", c.MaxAttempts)
	}
	if c.BaseDelay < 0 || c.MaxDelay < 0 {
		return errors.New("retry delays must not be negative")
	}
	if c.MaxDelay < c.BaseDelay {
		return fmt.Errorf("max_delay %s is below base_delay %s", c.MaxDelay, c.BaseDelay)
	}
	return nil
}

// Retrying retries transient failures with exponential backoff.
type Retrying struct {
	config    Config
	transient Classifier
	logger    *slog.Logger
	sleep     func(ctx context.Context, d time.Duration) error
}

// RetryOption configures Retrying.
type RetryOption func(*Retrying)

// WithLogger sets the logger for retry diagnostics.
func WithLogger(l *slog.Logger) RetryOption {
	return func(r *Retrying) { r.logger = l }
}

// WithSleep replaces the backoff wait. Tests use it to avoid real delays.
func WithSleep(fn func(ctx context.Context, d time.Duration) error) RetryOption {
	return func(r *Retrying) { r.sleep = fn }
}

// NewRetrying creates a retrying strategy. transient decides which errors
// are retried; a nil classifier retries nothing.
func NewRetrying(config Config, transient Classifier, opts ...RetryOption) *Retrying {
	if config.MaxAttempts < 1 {
		config.MaxAttempts = 1
	}
	r := &Retrying{
		config:    config,
		transient: transient,
		logger:    slog.Default(),
		sleep:     sleepContext,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Execute runs op until it succeeds, fails permanently, or runs out of
// attempts. The last error is returned wrapped in *ExhaustedError when
// attempts run out.
func (r *Retrying) Execute(ctx context.Context, op func(ctx context.Context) error) error {
	var lastErr error
	for attempt := 0; attempt < r.config.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		lastErr = op(ctx)
		if lastErr == nil {
			return nil
		}
		if r.transient == nil || !r.transient(lastErr) {
			return lastErr
		}
		if attempt == r.config.MaxAttempts-1 {
			break
		}

		delay := r.Delay(attempt)
		r.logger.Debug("retrying transient failure",
			"attempt", attempt+1,
			"max_attempts", r.config.MaxAttempts,
			"delay", delay,
			"error", lastErr)
		if err := r.sleep(ctx, delay); err != nil {
			return err
		}
	}
	return &ExhaustedError{Attempts: r.config.MaxAttempts, Err: lastErr}
}

// Delay is the wait after the given zero-based attempt: BaseDelay doubled
// per attempt, capped at MaxDelay.
func (r *Retrying) Delay(attempt int) time.Duration {
	d := r.config.BaseDelay
	for i := 0; i < attempt; i++ {
		d *= 2
		if d >= r.config.MaxDelay {
			return r.config.MaxDelay
		}
	}
	return min(d, r.config.MaxDelay)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// ExhaustedError is returned when every attempt failed transiently.
type ExhaustedError struct {
	Attempts int
	Err      error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("gave up after %d attempts: %v", e.Attempts, e.Err)
}

func (e *ExhaustedError) Unwrap() error { return e.Err }

// IsExhaustedError reports whether err is an *ExhaustedError.
func IsExhaustedError(err error) bool {
	var e *ExhaustedError
	return errors.As(err, &e)
}
