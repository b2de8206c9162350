package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/docql/internal/document"
	"github.com/roach88/docql/internal/strategy"
)

func TestOpen_CreatesNewDatabase(t *testing.T) {
	_, path := createFileStore(t)

	_, err := os.Stat(path)
	assert.NoError(t, err, "database file was not created")
}

func TestOpen_Idempotent(t *testing.T) {
	s, path := createFileStore(t)
	_, err := s.Put(context.Background(), "Customers", "1", document.Object{"Id": document.Int(1)})
	require.NoError(t, err)
	require.NoError(t, s.Close())

	for i := 0; i < 3; i++ {
		s, err := Open(path)
		require.NoError(t, err, "Open() iteration %d", i)
		require.NoError(t, s.Close())
	}

	s2, err := Open(path)
	require.NoError(t, err)
	defer s2.Close()

	names, err := s2.Collections(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"Customers"}, names)

	got, err := s2.Get(context.Background(), "Customers", "1")
	require.NoError(t, err)
	assert.Equal(t, document.Object{"Id": document.Int(1)}, got.Doc)
}

func TestOpen_Pragmas(t *testing.T) {
	s, _ := createFileStore(t)

	tests := []struct {
		name     string
		expected string
	}{
		{"journal_mode", "wal"},
		{"synchronous", "1"},
		{"busy_timeout", "5000"},
		{"user_version", fmt.Sprint(currentSchemaVersion)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.NoError(t, s.verifyPragma(tt.name, tt.expected))
		})
	}
}

func TestOpen_RejectsNewerSchema(t *testing.T) {
	s, path := createFileStore(t)
	_, err := s.DB().Exec(fmt.Sprintf("PRAGMA user_version = %d", currentSchemaVersion+1))
	require.NoError(t, err)
	require.NoError(t, s.Close())

	_, err = Open(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "newer than supported")
}

func TestOpen_InvalidPath(t *testing.T) {
	_, err := Open("/nonexistent/dir/test.db")
	assert.Error(t, err)
}

func TestClose_NilDB(t *testing.T) {
	var s Store
	assert.NoError(t, s.Close())
}

func TestIsTransient(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"busy", sqlite3.Error{Code: sqlite3.ErrBusy}, true},
		{"locked", sqlite3.Error{Code: sqlite3.ErrLocked}, true},
		{"wrapped busy", fmt.Errorf("put: %w", sqlite3.Error{Code: sqlite3.ErrBusy}), true},
		{"constraint", sqlite3.Error{Code: sqlite3.ErrConstraint}, false},
		{"plain error", errors.New("boom"), false},
		{"nil", nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsTransient(tt.err))
		})
	}
}

// countingStrategy runs each operation once and counts the calls.
type countingStrategy struct {
	calls int
}

func (c *countingStrategy) Execute(ctx context.Context, op func(ctx context.Context) error) error {
	c.calls++
	return op(ctx)
}

func TestStore_WritesUseStrategy(t *testing.T) {
	cs := &countingStrategy{}
	s := createTestStore(t, WithStrategy(cs))
	ctx := context.Background()

	// One call for the schema at Open.
	assert.Equal(t, 1, cs.calls)

	require.NoError(t, s.EnsureCollection(ctx, "Customers"))
	_, err := s.Put(ctx, "Customers", "1", document.Object{})
	require.NoError(t, err)
	_, err = s.Delete(ctx, "Customers", "1")
	require.NoError(t, err)
	assert.Equal(t, 4, cs.calls)

	// Reads never go through the strategy.
	_, err = s.Get(ctx, "Customers", "1")
	require.ErrorIs(t, err, ErrNotFound)
	_, err = s.Collections(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, cs.calls)
}

func TestStore_RetriesTransientWrite(t *testing.T) {
	attempts := 0
	flaky := strategy.NewRetrying(strategy.Config{MaxAttempts: 3}, IsTransient,
		strategy.WithSleep(func(context.Context, time.Duration) error { return nil }))
	s := createTestStore(t, WithStrategy(flaky))

	err := s.inTx(context.Background(), "flaky", func(tx *sql.Tx) error {
		attempts++
		if attempts < 3 {
			return sqlite3.Error{Code: sqlite3.ErrBusy}
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
}
