package query

import (
	"context"
	"errors"
	"fmt"
)

// CanceledError reports an enumeration stopped by cancellation. It
// matches context.Canceled under errors.Is even when the driver's error
// does not wrap it.
type CanceledError struct {
	// QueryID identifies the canceled enumeration.
	QueryID string

	// Err is the error that surfaced the cancellation.
	Err error
}

func (e *CanceledError) Error() string {
	if e.QueryID != "" {
		return fmt.Sprintf("query %s canceled: %v", e.QueryID, e.Err)
	}
	return fmt.Sprintf("query canceled: %v", e.Err)
}

func (e *CanceledError) Unwrap() error { return e.Err }

func (e *CanceledError) Is(target error) bool {
	return target == context.Canceled
}

// ReentrancyError reports a second advance on a Context while another one
// is in flight.
type ReentrancyError struct{}

func (e *ReentrancyError) Error() string {
	return "a second operation was started on this query context before a previous operation completed"
}

// IsCanceledError reports whether err is a *CanceledError.
func IsCanceledError(err error) bool {
	var e *CanceledError
	return errors.As(err, &e)
}

// IsReentrancyError reports whether err is a *ReentrancyError.
func IsReentrancyError(err error) bool {
	var e *ReentrancyError
	return errors.As(err, &e)
}

// ExceptionDetector classifies iteration failures.
type ExceptionDetector interface {
	// IsCancellation reports whether err is the result of cancellation.
	IsCancellation(ctx context.Context, err error) bool
}

// DefaultExceptionDetector treats context.Canceled, in the error chain or
// on ctx, as cancellation. Deadline expiry is a failure, not a
// cancellation.
type DefaultExceptionDetector struct{}

func (DefaultExceptionDetector) IsCancellation(ctx context.Context, err error) bool {
	if errors.Is(err, context.Canceled) {
		return true
	}
	return ctx != nil && errors.Is(ctx.Err(), context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
}
