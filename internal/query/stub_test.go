package query

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/docql/internal/document"
	"github.com/roach88/docql/internal/model"
	"github.com/roach88/docql/internal/queryir"
	"github.com/roach88/docql/internal/querysql"
	"github.com/roach88/docql/internal/testutil"
	"github.com/roach88/docql/internal/typemap"
)

// structShaper decodes each document into T through its canonical JSON.
func structShaper[T any]() Shaper[T] {
	return func(_ *Context, doc document.Object) (T, error) {
		var out T
		data, err := document.MarshalCanonical(doc)
		if err != nil {
			return out, err
		}
		if err := json.Unmarshal(data, &out); err != nil {
			return out, fmt.Errorf("decode %T: %w", out, err)
		}
		return out, nil
	}
}

// stubDriver records every query and serves canned documents.
type stubDriver struct {
	mu          sync.Mutex
	docs        []document.Object
	executeErr  error
	cursorErr   error
	onNext      func(pos int)
	queries     []*querysql.Query
	collections []string
	cursors     []*stubCursor
}

func (d *stubDriver) ExecuteQuery(_ context.Context, collection string, q *querysql.Query) (Cursor, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.queries = append(d.queries, q)
	d.collections = append(d.collections, collection)
	if d.executeErr != nil {
		return nil, d.executeErr
	}
	c := &stubCursor{docs: d.docs, err: d.cursorErr, onNext: d.onNext}
	d.cursors = append(d.cursors, c)
	return c, nil
}

func (d *stubDriver) executions() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.queries)
}

type stubCursor struct {
	docs   []document.Object
	pos    int
	err    error
	onNext func(pos int)
	nexts  int
	closes int
}

func (c *stubCursor) Next(ctx context.Context) (document.Object, bool, error) {
	c.nexts++
	if c.onNext != nil {
		c.onNext(c.pos)
	}
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	if c.pos >= len(c.docs) {
		if c.err != nil {
			return nil, false, c.err
		}
		return nil, false, nil
	}
	doc := c.docs[c.pos]
	c.pos++
	return doc, true, nil
}

func (c *stubCursor) Close() error {
	c.closes++
	return nil
}

type recordingStateManager struct {
	calls []bool
}

func (s *recordingStateManager) Initialize(standalone bool) {
	s.calls = append(s.calls, standalone)
}

type env struct {
	f        *queryir.Factory
	m        *model.Model
	customer *model.EntityType
	root     *queryir.RootReference
}

func newEnv(t *testing.T) *env {
	t.Helper()
	m := testutil.FixtureModel(t)
	f := queryir.NewFactory(typemap.NewRegistry())
	customer := testutil.Entity(t, m, "Customer")
	return &env{f: f, m: m, customer: customer, root: f.Root(queryir.DefaultAlias, customer)}
}

func (e *env) prop(t *testing.T, name string) queryir.Expr {
	t.Helper()
	k, err := e.f.Property(e.root, name)
	require.NoError(t, err)
	return k
}

// customersByID is Customers WHERE Id = @id.
func (e *env) customersByID(t *testing.T) *queryir.Select {
	t.Helper()
	sel, err := e.f.Select(e.customer)
	require.NoError(t, err)
	return e.f.Where(sel, e.f.Equal(e.prop(t, "Id"), e.f.Parameter("id", typemap.Int, nil)))
}

func customerDoc(id int64, name string) document.Object {
	return document.Object{"Id": document.Int(id), "Name": document.String(name)}
}
