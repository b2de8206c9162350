package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/docql/internal/document"
	"github.com/roach88/docql/internal/querysql"
)

func TestGet_NotFound(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	_, err := s.Get(ctx, "Customers", "1")
	assert.ErrorIs(t, err, ErrNotFound, "unknown collection")

	require.NoError(t, s.EnsureCollection(ctx, "Customers"))
	_, err = s.Get(ctx, "Customers", "1")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = s.Get(ctx, "", "1")
	assert.True(t, IsInvalidCollectionError(err))
}

func TestCollections_Empty(t *testing.T) {
	s := createTestStore(t)

	names, err := s.Collections(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, names)
	assert.Empty(t, names)
}

func TestExecuteQuery_UnknownCollection(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	cur, err := s.ExecuteQuery(ctx, "Customers", &querysql.Query{Text: `SELECT doc FROM "Customers"`})
	require.NoError(t, err)
	defer cur.Close()

	_, ok, err := cur.Next(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestExecuteQuery_BindsNamedParameters(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	seedCustomers(t, s,
		customerDoc(1, "Ann", 0, document.Int(30)),
		customerDoc(2, "Bob", 1, document.Null{}),
	)

	q := &querysql.Query{
		Collection: "Customers",
		Text:       `SELECT c.doc FROM "Customers" AS c WHERE json_extract(c.doc, '$.Name') = @p0`,
		Parameters: []querysql.Parameter{{Name: "p0", Source: "name", Value: "Bob"}},
	}
	cur, err := s.ExecuteQuery(ctx, "Customers", q)
	require.NoError(t, err)
	defer cur.Close()

	doc, ok, err := cur.Next(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, int64(2), document.ToAny(doc["Id"]))
	assert.Equal(t, document.Null{}, doc["Age"])

	_, ok, err = cur.Next(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	// The exhausted cursor released the connection.
	_, err = s.Put(ctx, "Customers", "3", document.Object{})
	assert.NoError(t, err)
}

func TestExecuteQuery_Errors(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	seedCustomers(t, s, customerDoc(1, "Ann", 0, document.Null{}))

	_, err := s.ExecuteQuery(ctx, "Customers", nil)
	assert.Error(t, err)

	_, err = s.ExecuteQuery(ctx, "Customers", &querysql.Query{Text: "SELEC nonsense"})
	assert.Error(t, err)

	cur, err := s.ExecuteQuery(ctx, "Customers", &querysql.Query{Text: `SELECT '[1]'`})
	require.NoError(t, err)
	defer cur.Close()
	_, _, err = cur.Next(ctx)
	assert.ErrorContains(t, err, "must be a JSON object")
}

func TestRowsCursor_CanceledContext(t *testing.T) {
	s := createTestStore(t)
	seedCustomers(t, s, customerDoc(1, "Ann", 0, document.Null{}))

	cur, err := s.ExecuteQuery(context.Background(), "Customers",
		&querysql.Query{Text: `SELECT c.doc FROM "Customers" AS c`})
	require.NoError(t, err)
	defer cur.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, _, err = cur.Next(ctx)
	assert.ErrorIs(t, err, context.Canceled)

	require.NoError(t, cur.Close())
	require.NoError(t, cur.Close(), "close is idempotent")
	_, ok, err := cur.Next(context.Background())
	assert.NoError(t, err)
	assert.False(t, ok)
}

func TestRowsCursor_NullColumn(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	cur, err := s.ExecuteQuery(ctx, "", &querysql.Query{Text: `SELECT NULL`})
	require.NoError(t, err)
	defer cur.Close()

	doc, ok, err := cur.Next(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, document.Object{}, doc)
}
