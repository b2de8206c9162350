package harness

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/roach88/docql/internal/document"
	"github.com/roach88/docql/internal/store"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type      string            // Assertion type for categorization
	Expected  string            // Human-readable expected outcome
	Actual    string            // Human-readable actual outcome
	Documents []document.Object // Result documents for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Documents) > 0 {
		fmt.Fprintf(&buf, "\nResults:\n")
		for i, doc := range e.Documents {
			text, err := document.MarshalCanonical(doc)
			if err != nil {
				text = []byte(err.Error())
			}
			fmt.Fprintf(&buf, "  [%d] %s\n", i+1, text)
		}
	}

	return buf.String()
}

// assertResultContains checks that some result document matches the
// expected fields (subset match).
func assertResultContains(docs []document.Object, assertion Assertion) error {
	for _, doc := range docs {
		if matchDocument(doc, assertion.Where) {
			return nil
		}
	}

	return &AssertionError{
		Type:      AssertResultContains,
		Expected:  fmt.Sprintf("a document matching %s", formatFields(assertion.Where)),
		Actual:    "not found in results",
		Documents: docs,
	}
}

// assertResultOrder checks that the field values of the results, in order,
// equal the expected values.
func assertResultOrder(docs []document.Object, assertion Assertion) error {
	path := strings.Split(assertion.Field, ".")
	actual := make([]any, len(docs))
	for i, doc := range docs {
		if v, ok := doc.Lookup(path...); ok {
			actual[i] = document.ToAny(v)
		}
	}

	if len(actual) != len(assertion.Values) {
		return &AssertionError{
			Type:      AssertResultOrder,
			Expected:  fmt.Sprintf("%s values %v", assertion.Field, assertion.Values),
			Actual:    fmt.Sprintf("%d results: %v", len(actual), actual),
			Documents: docs,
		}
	}
	for i, want := range assertion.Values {
		if !valuesEqual(actual[i], want) {
			return &AssertionError{
				Type:     AssertResultOrder,
				Expected: fmt.Sprintf("%s values %v", assertion.Field, assertion.Values),
				Actual: fmt.Sprintf("position %d has %v (want %v); all values %v",
					i+1, actual[i], want, actual),
				Documents: docs,
			}
		}
	}
	return nil
}

// assertResultCount checks that exactly Count documents match Where. An
// empty Where counts every document.
func assertResultCount(docs []document.Object, assertion Assertion) error {
	count := 0
	for _, doc := range docs {
		if matchDocument(doc, assertion.Where) {
			count++
		}
	}

	if count != assertion.Count {
		return &AssertionError{
			Type:      AssertResultCount,
			Expected:  fmt.Sprintf("%d documents matching %s", assertion.Count, formatFields(assertion.Where)),
			Actual:    fmt.Sprintf("%d documents", count),
			Documents: docs,
		}
	}
	return nil
}

// assertQueryContains checks the generated query text.
func assertQueryContains(queryText string, assertion Assertion) error {
	if strings.Contains(queryText, assertion.Text) {
		return nil
	}
	return &AssertionError{
		Type:     AssertQueryContains,
		Expected: fmt.Sprintf("query containing %q", assertion.Text),
		Actual:   queryText,
	}
}

// assertStoredDocument reads a document back from the store and validates
// expected values using subset semantics.
func assertStoredDocument(ctx context.Context, st *store.Store, assertion Assertion) error {
	rec, err := st.Get(ctx, assertion.Collection, assertion.ID)
	if errors.Is(err, store.ErrNotFound) {
		return &AssertionError{
			Type:     AssertStoredDocument,
			Expected: fmt.Sprintf("document %s/%s", assertion.Collection, assertion.ID),
			Actual:   "document not found",
		}
	}
	if err != nil {
		return &AssertionError{
			Type:     AssertStoredDocument,
			Expected: fmt.Sprintf("document %s/%s", assertion.Collection, assertion.ID),
			Actual:   fmt.Sprintf("read error: %v", err),
		}
	}

	// Check fields in sorted order so the first mismatch is deterministic.
	keys := make([]string, 0, len(assertion.Expect))
	for k := range assertion.Expect {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, key := range keys {
		expectedValue := assertion.Expect[key]
		actual, exists := rec.Doc[key]
		if !exists {
			return &AssertionError{
				Type:     AssertStoredDocument,
				Expected: fmt.Sprintf("field %q to exist", key),
				Actual:   fmt.Sprintf("field %q not present, fields: %v", key, rec.Doc.SortedKeys()),
			}
		}
		if !valuesEqual(document.ToAny(actual), expectedValue) {
			return &AssertionError{
				Type:     AssertStoredDocument,
				Expected: fmt.Sprintf("field %q = %v (type %T)", key, expectedValue, expectedValue),
				Actual:   fmt.Sprintf("field %q = %v (type %T)", key, document.ToAny(actual), document.ToAny(actual)),
			}
		}
	}
	return nil
}

// formatFields creates a human-readable description of expected fields.
func formatFields(fields map[string]any) string {
	if len(fields) == 0 {
		return "(no conditions)"
	}

	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%v", k, fields[k]))
	}
	return strings.Join(parts, " AND ")
}

// matchDocument checks if doc contains all expected fields (subset match).
// Keys may be dotted paths into sub-documents. Extra keys in doc are
// ignored.
func matchDocument(doc document.Object, expected map[string]any) bool {
	for key, expectedVal := range expected {
		actual, exists := doc.Lookup(strings.Split(key, ".")...)
		if !exists {
			return false
		}
		if !valuesEqual(document.ToAny(actual), expectedVal) {
			return false
		}
	}
	return true
}

// valuesEqual compares a decoded document value with a YAML value.
// Numbers compare by value across int and float; maps use subset
// semantics; lists must match element for element.
func valuesEqual(actual, expected any) bool {
	if actual == nil || expected == nil {
		return actual == nil && expected == nil
	}

	if a, ok := toFloat(actual); ok {
		e, ok := toFloat(expected)
		return ok && a == e
	}

	switch exp := expected.(type) {
	case map[string]any:
		act, ok := actual.(map[string]any)
		if !ok {
			return false
		}
		for k, v := range exp {
			if !valuesEqual(act[k], v) {
				return false
			}
		}
		return true
	case []any:
		act, ok := actual.([]any)
		if !ok || len(act) != len(exp) {
			return false
		}
		for i := range exp {
			if !valuesEqual(act[i], exp[i]) {
				return false
			}
		}
		return true
	case string:
		act, ok := actual.(string)
		return ok && act == exp
	case bool:
		act, ok := actual.(bool)
		return ok && act == exp
	}
	return fmt.Sprint(actual) == fmt.Sprint(expected)
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}

// containsFold reports whether substr is in s, ignoring case.
func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}

// normalizeQuery trims the surrounding whitespace YAML block scalars leave
// on expected query text.
func normalizeQuery(s string) string {
	return strings.TrimSpace(s)
}

// AssertionContext provides context for evaluating assertions.
type AssertionContext struct {
	Store *store.Store
	Ctx   context.Context
}

// EvaluateAssertions evaluates all assertions against the result.
// Returns a slice of error messages for failed assertions.
// The actx parameter provides database access for stored_document
// assertions.
func EvaluateAssertions(result *Result, assertions []Assertion, actx *AssertionContext) []string {
	var errs []string

	for i, assertion := range assertions {
		var err error

		switch assertion.Type {
		case AssertResultContains:
			err = assertResultContains(result.Documents, assertion)
		case AssertResultOrder:
			err = assertResultOrder(result.Documents, assertion)
		case AssertResultCount:
			err = assertResultCount(result.Documents, assertion)
		case AssertQueryContains:
			err = assertQueryContains(result.QueryText(), assertion)
		case AssertStoredDocument:
			if actx == nil || actx.Store == nil {
				err = fmt.Errorf("assertion[%d]: stored_document requires database context", i)
			} else {
				err = assertStoredDocument(actx.Ctx, actx.Store, assertion)
			}
		default:
			err = fmt.Errorf("assertion[%d]: unknown assertion type %q", i, assertion.Type)
		}

		if err != nil {
			errs = append(errs, err.Error())
		}
	}

	return errs
}
