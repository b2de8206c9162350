package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/roach88/docql/internal/document"
	"github.com/roach88/docql/internal/query"
	"github.com/roach88/docql/internal/querysql"
)

var _ query.Driver = (*Store)(nil)

// Get returns the document with id, or ErrNotFound.
func (s *Store) Get(ctx context.Context, collection, id string) (Record, error) {
	if err := validateCollection(collection); err != nil {
		return Record{}, err
	}
	ok, err := isRegistered(ctx, s.db, collection)
	if err != nil {
		return Record{}, fmt.Errorf("get: %w", err)
	}
	if !ok {
		return Record{}, fmt.Errorf("get %s/%s: %w", collection, id, ErrNotFound)
	}

	var text, revision string
	err = s.db.QueryRowContext(ctx,
		`SELECT doc, revision FROM `+quoteIdent(collection)+` WHERE id = ?`, id,
	).Scan(&text, &revision)
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, fmt.Errorf("get %s/%s: %w", collection, id, ErrNotFound)
	}
	if err != nil {
		return Record{}, fmt.Errorf("get %s/%s: %w", collection, id, err)
	}

	doc, err := decodeDocument(text)
	if err != nil {
		return Record{}, fmt.Errorf("get %s/%s: %w", collection, id, err)
	}
	return Record{ID: id, Revision: revision, Doc: doc}, nil
}

// Collections returns registered collection names in creation order.
//
// Returns an empty slice (not nil) when no collection exists.
func (s *Store) Collections(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT name FROM collections ORDER BY seq ASC`)
	if err != nil {
		return nil, fmt.Errorf("query collections: %w", err)
	}
	defer rows.Close()

	names := []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan collection: %w", err)
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate collections: %w", err)
	}
	return names, nil
}

// ExecuteQuery runs generated query text and returns a cursor over the
// single result column of each row. Queries against an unregistered
// collection return an empty cursor.
//
// The store keeps one connection, so the result rows are read before the
// cursor is returned and the connection is free for other queries while
// the cursor is open. Documents are decoded as the cursor advances.
func (s *Store) ExecuteQuery(ctx context.Context, collection string, q *querysql.Query) (query.Cursor, error) {
	if q == nil {
		return nil, errors.New("execute query: nil query")
	}
	if collection != "" {
		ok, err := isRegistered(ctx, s.db, collection)
		if err != nil {
			return nil, fmt.Errorf("execute query: %w", err)
		}
		if !ok {
			slog.Debug("query against unknown collection", "collection", collection)
			return query.NewSliceCursor(), nil
		}
	}

	rows, err := s.db.QueryContext(ctx, q.Text, q.Args()...)
	if err != nil {
		return nil, fmt.Errorf("execute query: %w", err)
	}
	defer rows.Close()

	var results []sql.NullString
	for rows.Next() {
		var text sql.NullString
		if err := rows.Scan(&text); err != nil {
			return nil, fmt.Errorf("scan result: %w", err)
		}
		results = append(results, text)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate results: %w", err)
	}
	return &rowsCursor{rows: results}, nil
}

// rowsCursor decodes buffered result rows one at a time.
type rowsCursor struct {
	rows   []sql.NullString
	pos    int
	closed bool
}

func (c *rowsCursor) Next(ctx context.Context) (document.Object, bool, error) {
	if c.closed {
		return nil, false, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	if c.pos >= len(c.rows) {
		return nil, false, c.Close()
	}

	text := c.rows[c.pos]
	c.pos++
	if !text.Valid {
		return document.Object{}, true, nil
	}
	doc, err := decodeDocument(text.String)
	if err != nil {
		return nil, false, err
	}
	return doc, true, nil
}

func (c *rowsCursor) Close() error {
	c.closed = true
	c.rows = nil
	return nil
}
