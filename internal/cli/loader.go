package cli

import (
	"errors"
	"fmt"
	"strings"

	"cuelang.org/go/cue/token"

	"github.com/roach88/docql/internal/compiler"
	"github.com/roach88/docql/internal/model"
	"github.com/roach88/docql/internal/planspec"
	"github.com/roach88/docql/internal/queryir"
	"github.com/roach88/docql/internal/typemap"
)

// LoadError represents a model directory that could not be loaded or
// compiled.
type LoadError struct {
	Code    string
	Message string
	Pos     token.Pos // CUE position if available
}

func (e *LoadError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// LoadModelDir loads and compiles the CUE model in dir without validating
// it. Failures are returned as *LoadError.
func LoadModelDir(dir string) (*compiler.Result, int, error) {
	res, fileCount, err := compiler.LoadDir(dir)
	if err != nil {
		return nil, fileCount, convertLoadError(err)
	}
	return res, fileCount, nil
}

// LoadModel loads, validates and resolves the model in dir.
func LoadModel(dir string) (*model.Model, error) {
	res, _, err := LoadModelDir(dir)
	if err != nil {
		return nil, err
	}
	m, err := res.Model()
	if err != nil {
		return nil, fmt.Errorf("invalid model in %s: %w", dir, err)
	}
	return m, nil
}

// newBuilder returns a plan builder over m with the default type mappings.
func newBuilder(m *model.Model) *planspec.Builder {
	return planspec.NewBuilder(m, queryir.NewFactory(typemap.NewRegistry()))
}

// convertLoadError converts a compiler error to a LoadError with position
// info.
func convertLoadError(err error) *LoadError {
	var loadErr *compiler.LoadError
	if errors.As(err, &loadErr) {
		return &LoadError{Code: loadErr.Code, Message: loadErr.Message}
	}
	var compileErr *compiler.CompileError
	if errors.As(err, &compileErr) {
		return &LoadError{
			Code:    MapFieldToErrorCode(compileErr.Field),
			Message: compileErr.Message,
			Pos:     compileErr.Pos,
		}
	}
	return &LoadError{Code: ErrCodeGeneric, Message: err.Error()}
}

// Error codes for CLI failures outside model validation. Load failures
// reuse the compiler's E001-E005 codes and validation uses E101-E110.
const (
	ErrCodeGeneric     = "E000" // Generic/unknown error
	ErrCodeCUE         = "E006" // CUE evaluation error
	ErrCodeWriteFailed = "E007" // File write error
	ErrCodePlan        = "E008" // Plan file missing or invalid
	ErrCodeStore       = "E009" // Store could not be opened or written
	ErrCodeQuery       = "E010" // Query generation or execution failed
	ErrCodeSeed        = "E011" // Seed file missing or invalid
	ErrCodeConfig      = "E012" // Config file missing or invalid
)

// MapFieldToErrorCode maps a compiler error field to an error code.
func MapFieldToErrorCode(field string) string {
	switch {
	case field == "type":
		return compiler.ErrInvalidFieldType
	case field == "cue":
		return ErrCodeCUE
	case strings.HasPrefix(field, "enum."):
		return compiler.ErrInvalidFieldType
	case strings.HasPrefix(field, "navigations."):
		return compiler.ErrUnknownReference
	default:
		return ErrCodeGeneric
	}
}
