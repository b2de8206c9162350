package planspec

import (
	"errors"
	"fmt"
)

// PlanError reports an expression that could not be built. Path locates it
// in the plan, e.g. "where.and[1].eq[0]".
type PlanError struct {
	Path    string
	Line    int
	Message string
	Err     error
}

func (e *PlanError) Error() string {
	msg := e.Message
	if e.Err != nil {
		if msg == "" {
			msg = e.Err.Error()
		} else {
			msg = msg + ": " + e.Err.Error()
		}
	}
	if e.Line > 0 {
		return fmt.Sprintf("%s (line %d): %s", e.Path, e.Line, msg)
	}
	return fmt.Sprintf("%s: %s", e.Path, msg)
}

func (e *PlanError) Unwrap() error { return e.Err }

// IsPlanError reports whether err is a *PlanError.
func IsPlanError(err error) bool {
	var e *PlanError
	return errors.As(err, &e)
}
