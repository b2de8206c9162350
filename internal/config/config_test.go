package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/docql/internal/strategy"
)

func TestDefault(t *testing.T) {
	opts := Default()
	require.NoError(t, opts.Validate())
	assert.Equal(t, ":memory:", opts.Database)
	assert.True(t, opts.ThreadSafetyChecks)

	cfg, err := opts.RetryConfig()
	require.NoError(t, err)
	assert.Equal(t, strategy.DefaultConfig(), cfg)
}

func TestParse_KeepsDefaultsForMissingKeys(t *testing.T) {
	opts, err := Parse([]byte(`
database: /tmp/docs.db
retry:
  max_attempts: 5
`))
	require.NoError(t, err)
	assert.Equal(t, "/tmp/docs.db", opts.Database)
	assert.True(t, opts.ThreadSafetyChecks)
	assert.Equal(t, 5, opts.Retry.MaxAttempts)
	assert.Equal(t, "100ms", opts.Retry.BaseDelay)
}

func TestParse_Overrides(t *testing.T) {
	opts, err := Parse([]byte(`
thread_safety_checks: false
standalone_state_manager: true
log_level: debug
retry: {max_attempts: 2, base_delay: 10ms, max_delay: 50ms}
`))
	require.NoError(t, err)
	assert.False(t, opts.ThreadSafetyChecks)
	assert.True(t, opts.StandaloneStateManager)

	level, err := opts.Level()
	require.NoError(t, err)
	assert.Equal(t, slog.LevelDebug, level)

	cfg, err := opts.RetryConfig()
	require.NoError(t, err)
	assert.Equal(t, strategy.Config{MaxAttempts: 2, BaseDelay: 10 * time.Millisecond, MaxDelay: 50 * time.Millisecond}, cfg)
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		msg  string
	}{
		{"syntax", "database: [", "failed to parse"},
		{"empty database", `database: ""`, "database must not be empty"},
		{"log level", "log_level: loud", "unknown log_level"},
		{"bad duration", "retry: {base_delay: soon}", "retry.base_delay"},
		{"zero attempts", "retry: {max_attempts: 0}", "max_attempts must be at least 1"},
		{"inverted delays", "retry: {base_delay: 5s, max_delay: 1s}", "below base_delay"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.msg)
		})
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "docql.yaml")
	require.NoError(t, os.WriteFile(path, []byte("database: x.db\n"), 0o644))

	opts, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "x.db", opts.Database)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestStrategy(t *testing.T) {
	opts := Default()
	s, err := opts.Strategy(slog.Default())
	require.NoError(t, err)
	assert.IsType(t, &strategy.Retrying{}, s)

	opts.Retry.MaxAttempts = 1
	s, err = opts.Strategy(slog.Default())
	require.NoError(t, err)
	assert.Equal(t, strategy.NoRetry{}, s)
}

func TestOpenStore(t *testing.T) {
	st, err := Default().OpenStore(slog.Default())
	require.NoError(t, err)
	defer st.Close()

	names, err := st.Collections(t.Context())
	require.NoError(t, err)
	assert.Empty(t, names)
}

func TestQueryOptions(t *testing.T) {
	assert.Len(t, Default().QueryOptions(slog.Default()), 3)
}
