package query

import (
	"context"

	"github.com/roach88/docql/internal/document"
	"github.com/roach88/docql/internal/querysql"
)

// Driver runs generated query text against a document store. The same
// ctx-aware call serves the blocking and the asynchronous enumerators.
type Driver interface {
	ExecuteQuery(ctx context.Context, collection string, q *querysql.Query) (Cursor, error)
}

// Cursor streams result documents. Next returns false once the results
// are exhausted.
type Cursor interface {
	Next(ctx context.Context) (document.Object, bool, error)
	Close() error
}

// DriverFunc adapts a function to Driver.
type DriverFunc func(ctx context.Context, collection string, q *querysql.Query) (Cursor, error)

func (fn DriverFunc) ExecuteQuery(ctx context.Context, collection string, q *querysql.Query) (Cursor, error) {
	return fn(ctx, collection, q)
}

// SliceCursor serves documents from memory.
type SliceCursor struct {
	docs   []document.Object
	pos    int
	closed bool
}

// NewSliceCursor creates a cursor over docs.
func NewSliceCursor(docs ...document.Object) *SliceCursor {
	return &SliceCursor{docs: docs}
}

func (c *SliceCursor) Next(ctx context.Context) (document.Object, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	if c.closed || c.pos >= len(c.docs) {
		return nil, false, nil
	}
	doc := c.docs[c.pos]
	c.pos++
	return doc, true, nil
}

func (c *SliceCursor) Close() error {
	c.closed = true
	return nil
}

// Closed reports whether Close was called.
func (c *SliceCursor) Closed() bool {
	return c.closed
}
