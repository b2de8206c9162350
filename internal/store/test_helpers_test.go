package store

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/docql/internal/document"
)

// createTestStore creates a new in-memory store for testing.
func createTestStore(t *testing.T, opts ...Option) *Store {
	t.Helper()
	s, err := Open(":memory:", opts...)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

// createFileStore creates a store backed by a file in a temp dir.
func createFileStore(t *testing.T) (*Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s, path
}

// sequenceIDs returns an ID generator yielding "doc-1", "doc-2", ...
func sequenceIDs() func() (string, error) {
	n := 0
	return func() (string, error) {
		n++
		return fmt.Sprintf("doc-%d", n), nil
	}
}

// seedCustomers writes customer documents keyed by their Id.
func seedCustomers(t *testing.T, s *Store, docs ...document.Object) {
	t.Helper()
	records := make([]Record, len(docs))
	for i, d := range docs {
		records[i] = Record{ID: fmt.Sprint(document.ToAny(d["Id"])), Doc: d}
	}
	_, err := s.PutMany(context.Background(), "Customers", records)
	require.NoError(t, err)
}

func customerDoc(id int64, name string, status int64, age document.Value) document.Object {
	return document.Object{
		"Id":     document.Int(id),
		"Name":   document.String(name),
		"Status": document.Int(status),
		"Age":    age,
		"Active": document.Bool(status == 0),
	}
}
