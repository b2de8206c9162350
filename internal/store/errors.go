package store

import (
	"errors"
	"fmt"

	"github.com/mattn/go-sqlite3"
)

// ErrNotFound is returned by Get when no document has the requested ID.
var ErrNotFound = errors.New("document not found")

// InvalidCollectionError is returned for collection names the store
// cannot use as a table name.
type InvalidCollectionError struct {
	Name   string
	Reason string
}

func (e *InvalidCollectionError) Error() string {
	return fmt.Sprintf("invalid collection %q: %s", e.Name, e.Reason)
}

// IsInvalidCollectionError reports whether err is an *InvalidCollectionError.
func IsInvalidCollectionError(err error) bool {
	var e *InvalidCollectionError
	return errors.As(err, &e)
}

// IsTransient reports whether err is a SQLite busy or locked condition
// that may succeed on another attempt.
func IsTransient(err error) bool {
	var se sqlite3.Error
	if !errors.As(err, &se) {
		return false
	}
	return se.Code == sqlite3.ErrBusy || se.Code == sqlite3.ErrLocked
}
