package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/docql/internal/document"
)

func TestEnsureCollection(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.EnsureCollection(ctx, "People"))
	require.NoError(t, s.EnsureCollection(ctx, `Odd "Name"`))
	require.NoError(t, s.EnsureCollection(ctx, "People"))

	names, err := s.Collections(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"People", `Odd "Name"`}, names)
}

func TestEnsureCollection_InvalidNames(t *testing.T) {
	s := createTestStore(t)

	for _, name := range []string{"", "sqlite_master", "SQLITE_x", "collections", "a\x00b"} {
		t.Run(name, func(t *testing.T) {
			err := s.EnsureCollection(context.Background(), name)
			assert.True(t, IsInvalidCollectionError(err), "got %v", err)
		})
	}
}

func TestPut_AssignsIDAndRevision(t *testing.T) {
	s := createTestStore(t, WithIDGenerator(sequenceIDs()))
	ctx := context.Background()
	doc := document.Object{"b": document.Int(2), "a": document.String("x")}

	rec, err := s.Put(ctx, "Things", "", doc)
	require.NoError(t, err)
	assert.Equal(t, "doc-1", rec.ID)
	assert.Equal(t, document.MustContentHash(doc), rec.Revision)

	var text string
	require.NoError(t, s.DB().QueryRow(`SELECT doc FROM "Things" WHERE id = 'doc-1'`).Scan(&text))
	assert.Equal(t, `{"a":"x","b":2}`, text, "stored in canonical form")
}

func TestPut_DefaultIDIsUUIDv7(t *testing.T) {
	s := createTestStore(t)

	rec, err := s.Put(context.Background(), "Things", "", document.Object{})
	require.NoError(t, err)
	require.Len(t, rec.ID, 36)
	assert.Equal(t, byte('7'), rec.ID[14], "version nibble")
}

func TestPut_Replaces(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	first, err := s.Put(ctx, "Customers", "1", document.Object{"Name": document.String("Ann")})
	require.NoError(t, err)
	second, err := s.Put(ctx, "Customers", "1", document.Object{"Name": document.String("Bob")})
	require.NoError(t, err)
	assert.NotEqual(t, first.Revision, second.Revision)

	got, err := s.Get(ctx, "Customers", "1")
	require.NoError(t, err)
	assert.Equal(t, "Bob", got.Doc.String("Name"))
	assert.Equal(t, second.Revision, got.Revision)

	again, err := s.Put(ctx, "Customers", "1", document.Object{"Name": document.String("Bob")})
	require.NoError(t, err)
	assert.Equal(t, second.Revision, again.Revision, "equal documents share a revision")
}

func TestPutMany(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	_, err := s.PutMany(ctx, "Customers", []Record{
		{ID: "1", Doc: document.Object{"Id": document.Int(1)}},
		{ID: "2", Doc: document.Object{"Id": document.Int(2)}},
	})
	require.NoError(t, err)

	records, err := s.PutMany(ctx, "Customers", []Record{
		{ID: "3", Doc: document.Object{"Id": document.Int(3)}},
		{ID: "4", Doc: document.Object{"Id": document.Int(4)}},
	})
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "3", records[0].ID)

	var count int
	require.NoError(t, s.DB().QueryRow(`SELECT COUNT(*) FROM "Customers"`).Scan(&count))
	assert.Equal(t, 4, count)
}

func TestPutMany_RollsBackOnFailure(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.EnsureCollection(ctx, "Customers"))

	_, err := s.DB().Exec(`CREATE TRIGGER reject_bad BEFORE INSERT ON "Customers"
		WHEN NEW.id = 'bad' BEGIN SELECT RAISE(ABORT, 'rejected'); END`)
	require.NoError(t, err)

	_, err = s.PutMany(ctx, "Customers", []Record{
		{ID: "ok", Doc: document.Object{}},
		{ID: "bad", Doc: document.Object{}},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rejected")

	_, err = s.Get(ctx, "Customers", "ok")
	assert.ErrorIs(t, err, ErrNotFound, "first write rolled back")
}

func TestDelete(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	deleted, err := s.Delete(ctx, "Nowhere", "1")
	require.NoError(t, err)
	assert.False(t, deleted, "unknown collection")

	_, err = s.Put(ctx, "Customers", "1", document.Object{})
	require.NoError(t, err)

	deleted, err = s.Delete(ctx, "Customers", "1")
	require.NoError(t, err)
	assert.True(t, deleted)

	deleted, err = s.Delete(ctx, "Customers", "1")
	require.NoError(t, err)
	assert.False(t, deleted)
}
