package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/roach88/docql/internal/document"
)

// Record is one stored document.
type Record struct {
	ID       string
	Revision string
	Doc      document.Object
}

func newDocumentID() (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

// validateCollection rejects names SQLite reserves or the registry uses.
func validateCollection(name string) error {
	switch {
	case name == "":
		return &InvalidCollectionError{Name: name, Reason: "name is empty"}
	case strings.ContainsRune(name, 0):
		return &InvalidCollectionError{Name: name, Reason: "name contains NUL"}
	case strings.HasPrefix(strings.ToLower(name), "sqlite_"):
		return &InvalidCollectionError{Name: name, Reason: "sqlite_ prefix is reserved"}
	case strings.EqualFold(name, "collections"):
		return &InvalidCollectionError{Name: name, Reason: "name is reserved for the registry"}
	}
	return nil
}

func quoteIdent(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

// EnsureCollection creates the collection table and registers it.
// Calling it for an existing collection is a no-op.
func (s *Store) EnsureCollection(ctx context.Context, name string) error {
	if err := validateCollection(name); err != nil {
		return err
	}
	return s.inTx(ctx, "ensure collection", func(tx *sql.Tx) error {
		return ensureCollection(ctx, tx, name)
	})
}

func ensureCollection(ctx context.Context, tx *sql.Tx, name string) error {
	_, err := tx.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS `+quoteIdent(name)+` (
			id       TEXT PRIMARY KEY COLLATE BINARY,
			doc      TEXT NOT NULL CHECK (json_valid(doc)),
			revision TEXT NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("create table: %w", err)
	}

	result, err := tx.ExecContext(ctx, `
		INSERT INTO collections (name, seq)
		VALUES (?, (SELECT COALESCE(MAX(seq), 0) + 1 FROM collections))
		ON CONFLICT(name) DO NOTHING
	`, name)
	if err != nil {
		return fmt.Errorf("register collection: %w", err)
	}
	if n, _ := result.RowsAffected(); n > 0 {
		slog.Debug("collection created", "collection", name)
	}
	return nil
}

// Put stores doc under id in collection, creating the collection if
// needed. An empty id gets a new UUIDv7. Writing an existing id replaces
// the document.
//
// The document is stored in canonical JSON; its revision is the
// document's content hash, so rewriting an equal document leaves the
// revision unchanged.
func (s *Store) Put(ctx context.Context, collection, id string, doc document.Object) (Record, error) {
	records, err := s.PutMany(ctx, collection, []Record{{ID: id, Doc: doc}})
	if err != nil {
		return Record{}, err
	}
	return records[0], nil
}

// PutMany stores records in one transaction. Either all are written or
// none are. Revisions in the input are ignored; the returned records carry
// the assigned IDs and computed revisions.
func (s *Store) PutMany(ctx context.Context, collection string, records []Record) ([]Record, error) {
	if err := validateCollection(collection); err != nil {
		return nil, err
	}

	out := make([]Record, len(records))
	texts := make([]string, len(records))
	for i, r := range records {
		text, revision, err := encodeDocument(r.Doc)
		if err != nil {
			return nil, fmt.Errorf("put %s[%d]: %w", collection, i, err)
		}
		id := r.ID
		if id == "" {
			if id, err = s.newID(); err != nil {
				return nil, fmt.Errorf("put %s[%d]: generate id: %w", collection, i, err)
			}
		}
		out[i] = Record{ID: id, Revision: revision, Doc: r.Doc}
		texts[i] = text
	}

	err := s.inTx(ctx, "put", func(tx *sql.Tx) error {
		if err := ensureCollection(ctx, tx, collection); err != nil {
			return err
		}
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO `+quoteIdent(collection)+` (id, doc, revision)
			VALUES (?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET doc = excluded.doc, revision = excluded.revision
			WHERE revision != excluded.revision
		`)
		if err != nil {
			return err
		}
		defer stmt.Close()

		for i, r := range out {
			if _, err := stmt.ExecContext(ctx, r.ID, texts[i], r.Revision); err != nil {
				return fmt.Errorf("document %q: %w", r.ID, err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	slog.Debug("documents written", "collection", collection, "count", len(out))
	return out, nil
}

// Delete removes the document with id. It reports whether a document was
// removed; deleting from an unknown collection removes nothing.
func (s *Store) Delete(ctx context.Context, collection, id string) (bool, error) {
	if err := validateCollection(collection); err != nil {
		return false, err
	}

	var deleted bool
	err := s.inTx(ctx, "delete", func(tx *sql.Tx) error {
		deleted = false
		ok, err := isRegistered(ctx, tx, collection)
		if err != nil || !ok {
			return err
		}
		result, err := tx.ExecContext(ctx, `DELETE FROM `+quoteIdent(collection)+` WHERE id = ?`, id)
		if err != nil {
			return err
		}
		n, err := result.RowsAffected()
		if err != nil {
			return err
		}
		deleted = n > 0
		return nil
	})
	return deleted, err
}

// inTx runs fn in a transaction under the store's execution strategy.
// Each attempt gets a fresh transaction.
func (s *Store) inTx(ctx context.Context, op string, fn func(tx *sql.Tx) error) error {
	err := s.strategy.Execute(ctx, func(ctx context.Context) error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin tx: %w", err)
		}
		defer tx.Rollback() // No-op if committed

		if err := fn(tx); err != nil {
			return err
		}
		return tx.Commit()
	})
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// queryer is the read surface shared by *sql.DB and *sql.Tx.
type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func isRegistered(ctx context.Context, q queryer, name string) (bool, error) {
	var one int
	err := q.QueryRowContext(ctx, `SELECT 1 FROM collections WHERE name = ?`, name).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("lookup collection: %w", err)
	}
	return true, nil
}
