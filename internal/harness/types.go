package harness

import (
	"github.com/roach88/docql/internal/document"
	"github.com/roach88/docql/internal/querysql"
)

// Result is the outcome of a test scenario execution.
type Result struct {
	// Pass indicates overall test success.
	// True if the expectation and all assertions hold.
	Pass bool `json:"pass"`

	// Query is the generated query text with parameter comment lines.
	// Empty if generation failed.
	Query string `json:"query,omitempty"`

	// Parameters are the bound parameters in placeholder order.
	Parameters []querysql.Parameter `json:"parameters,omitempty"`

	// Documents holds the shaped results in store order.
	Documents []document.Object `json:"documents"`

	// RunError is the failure of the query run, if any.
	RunError string `json:"run_error,omitempty"`

	// Errors contains validation error messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	// queryText is the query text without parameter comments.
	queryText string
}

// NewResult creates a new passing result.
// Used as the starting point for test execution.
func NewResult() *Result {
	return &Result{
		Pass:      true,
		Documents: []document.Object{},
		Errors:    []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// QueryText returns the generated query text without parameter comments.
func (r *Result) QueryText() string {
	return r.queryText
}

func (r *Result) setQuery(q *querysql.Query) {
	if q == nil {
		return
	}
	r.Query = q.ToQueryString()
	r.Parameters = q.Parameters
	r.queryText = q.Text
}
