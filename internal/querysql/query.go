package querysql

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

// Query is generated document SQL plus its bound parameters.
type Query struct {
	// Text is the SQL text. Parameters appear as @p0, @p1, ...
	Text string

	// Collection is the collection the plan reads.
	Collection string

	// Parameters are in placeholder order.
	Parameters []Parameter
}

// Parameter is one bound value.
type Parameter struct {
	// Name is the placeholder name without the @ prefix ("p0").
	Name string `json:"name"`

	// Source is the plan parameter the value came from. Raw-query list
	// arguments are named "<name>[<index>]".
	Source string `json:"source"`

	// Value is the store-side (converted) value.
	Value any `json:"value"`
}

// Args returns the parameters as database/sql named arguments.
func (q *Query) Args() []any {
	args := make([]any, len(q.Parameters))
	for i, p := range q.Parameters {
		args[i] = sql.Named(p.Name, p.Value)
	}
	return args
}

// ToQueryString renders the query with a comment line per parameter, for
// logs and diagnostics:
//
//	-- @p0='Ann'
//	SELECT c.doc
//	...
func (q *Query) ToQueryString() string {
	var b strings.Builder
	for _, p := range q.Parameters {
		fmt.Fprintf(&b, "-- @%s='%s'\n", p.Name, strings.ReplaceAll(formatValue(p.Value), "'", "''"))
	}
	if len(q.Parameters) > 0 {
		b.WriteByte('\n')
	}
	b.WriteString(q.Text)
	return b.String()
}

func formatValue(v any) string {
	switch val := v.(type) {
	case nil:
		return "NULL"
	case []byte:
		return fmt.Sprintf("0x%x", val)
	case string:
		return val
	}
	return fmt.Sprint(v)
}

// ArityMismatchError is returned when raw query text references a
// different number of positional arguments than were supplied.
type ArityMismatchError struct {
	Expected int
	Actual   int
}

func (e *ArityMismatchError) Error() string {
	return fmt.Sprintf("raw query expects %d argument(s), got %d", e.Expected, e.Actual)
}

// IsArityMismatchError reports whether err is an *ArityMismatchError.
func IsArityMismatchError(err error) bool {
	var e *ArityMismatchError
	return errors.As(err, &e)
}
