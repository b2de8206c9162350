package queryir

import (
	"errors"
	"fmt"
)

// UnsupportedOperatorError is raised when a Binary or Unary node is built
// with an operator outside its allowed set. It indicates a translation bug
// or an unsupported query shape and is never retried.
type UnsupportedOperatorError struct {
	Op   Operator
	Node NodeKind
}

func (e *UnsupportedOperatorError) Error() string {
	return fmt.Sprintf("unsupported operator %s for %s node", e.Op, e.Node)
}

// GenerationError is raised while preparing or rendering a plan.
//
// GenerationError includes structured fields for diagnostics.
type GenerationError struct {
	// Code identifies the error category.
	Code GenerationErrorCode

	// Message is a human-readable description.
	Message string

	// Node is the kind of the node being processed, when known.
	Node NodeKind

	// Details contains additional context (parameter name, entity, ...).
	Details map[string]string
}

// GenerationErrorCode categorizes generation errors.
type GenerationErrorCode string

const (
	// ErrCodeOffsetWithoutLimit indicates a plan with Offset but no Limit.
	ErrCodeOffsetWithoutLimit GenerationErrorCode = "OFFSET_WITHOUT_LIMIT"

	// ErrCodeMissingDiscriminator indicates a hierarchy without a discriminator property.
	ErrCodeMissingDiscriminator GenerationErrorCode = "MISSING_DISCRIMINATOR"

	// ErrCodeUnresolvableProjection indicates a projection that cannot be rendered.
	ErrCodeUnresolvableProjection GenerationErrorCode = "UNRESOLVABLE_PROJECTION"

	// ErrCodeUnknownMember indicates a property or navigation missing from the model.
	ErrCodeUnknownMember GenerationErrorCode = "UNKNOWN_MEMBER"

	// ErrCodeMissingParameter indicates a parameter absent from the value table.
	ErrCodeMissingParameter GenerationErrorCode = "MISSING_PARAMETER"

	// ErrCodeInvalidParameter indicates a parameter value of the wrong shape.
	ErrCodeInvalidParameter GenerationErrorCode = "INVALID_PARAMETER"

	// ErrCodeInvalidFromRaw indicates raw-query arguments that are not a value list.
	ErrCodeInvalidFromRaw GenerationErrorCode = "INVALID_FROM_RAW"

	// ErrCodeInvalidConstant indicates a constant with no literal form.
	ErrCodeInvalidConstant GenerationErrorCode = "INVALID_CONSTANT"

	// ErrCodeUnsupportedNode indicates a node the target language cannot express.
	ErrCodeUnsupportedNode GenerationErrorCode = "UNSUPPORTED_NODE"
)

func (e *GenerationError) Error() string {
	if name, ok := e.Details["parameter"]; ok {
		return fmt.Sprintf("%s: %s (parameter=%s)", e.Code, e.Message, name)
	}
	if entity, ok := e.Details["entity"]; ok {
		return fmt.Sprintf("%s: %s (entity=%s)", e.Code, e.Message, entity)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NewGenerationError creates a GenerationError for the given node kind.
func NewGenerationError(code GenerationErrorCode, node NodeKind, format string, args ...any) *GenerationError {
	return &GenerationError{Code: code, Node: node, Message: fmt.Sprintf(format, args...)}
}

// WithDetail returns e with one more detail entry.
func (e *GenerationError) WithDetail(key, value string) *GenerationError {
	if e.Details == nil {
		e.Details = make(map[string]string)
	}
	e.Details[key] = value
	return e
}

// IsUnsupportedOperatorError returns true if err is an UnsupportedOperatorError.
// Uses errors.As to handle wrapped errors.
func IsUnsupportedOperatorError(err error) bool {
	var uo *UnsupportedOperatorError
	return errors.As(err, &uo)
}

// IsGenerationError returns true if err is a GenerationError with the given
// code, or any GenerationError when code is empty.
func IsGenerationError(err error, code GenerationErrorCode) bool {
	var ge *GenerationError
	if errors.As(err, &ge) {
		return code == "" || ge.Code == code
	}
	return false
}
