package queryir

import (
	"fmt"
)

// ValidationResult contains the structural analysis of a plan.
type ValidationResult struct {
	// Errors are violations the generator would reject.
	Errors []error

	// Warnings describe constructs that will generate but may not behave as
	// the author expects (unmapped values, unknown-type property reads).
	Warnings []string
}

// OK reports whether the plan has no errors.
func (r ValidationResult) OK() bool {
	return len(r.Errors) == 0
}

// Err returns the first error, or nil.
func (r ValidationResult) Err() error {
	if len(r.Errors) == 0 {
		return nil
	}
	return r.Errors[0]
}

// Validate checks a plan before generation.
//
// Rules:
//  1. Offset requires Limit
//  2. Raw source arguments must be a Parameter or a list Constant
//  3. Membership values must be a Parameter or a list Constant
//  4. Projection aliases must be unique
//
// Validate is a pure function with no side effects.
func Validate(sel *Select) ValidationResult {
	v := &validator{warnings: []string{}}
	v.validateSelect(sel)
	return ValidationResult{Errors: v.errors, Warnings: v.warnings}
}

type validator struct {
	errors   []error
	warnings []string
}

func (v *validator) addError(err error) {
	v.errors = append(v.errors, err)
}

func (v *validator) addWarning(format string, args ...any) {
	v.warnings = append(v.warnings, fmt.Sprintf(format, args...))
}

func (v *validator) validateSelect(sel *Select) {
	if sel == nil {
		v.addError(NewGenerationError(ErrCodeUnsupportedNode, KindSelect, "nil plan"))
		return
	}

	// Rule 1
	if sel.Offset != nil && sel.Limit == nil {
		v.addError(NewGenerationError(ErrCodeOffsetWithoutLimit, KindSelect,
			"offset requires a limit"))
	}

	// Rule 2
	if sel.From != nil {
		switch a := sel.From.Arguments.(type) {
		case nil, *Parameter:
		case *Constant:
			if _, ok := asList(a.Value); !ok && a.Value != nil {
				v.addError(NewGenerationError(ErrCodeInvalidFromRaw, KindFromRaw,
					"raw query arguments must be a list, got %T", a.Value))
			}
		default:
			v.addError(NewGenerationError(ErrCodeInvalidFromRaw, KindFromRaw,
				"raw query arguments must be a constant or parameter, got %s", a.Kind()))
		}
	}

	// Rule 4
	seen := make(map[string]bool)
	for _, p := range sel.Projections {
		if p.Alias == "" {
			continue
		}
		if seen[p.Alias] {
			v.addError(NewGenerationError(ErrCodeUnresolvableProjection, KindProjection,
				"duplicate projection alias %q", p.Alias))
		}
		seen[p.Alias] = true
	}

	Walk(sel, func(e Expr) bool {
		switch n := e.(type) {
		case *In:
			// Rule 3
			switch vals := n.Values.(type) {
			case *Parameter:
			case *Constant:
				if _, ok := asList(vals.Value); !ok {
					v.addError(NewGenerationError(ErrCodeInvalidConstant, KindIn,
						"membership values must be a list, got %T", vals.Value))
				}
			default:
				v.addError(NewGenerationError(ErrCodeUnsupportedNode, KindIn,
					"membership values must be a constant or parameter, got %s", n.Values.Kind()))
			}
		case *KeyAccess:
			if n.TypeMapping == nil {
				v.addWarning("Property '%s' has no store mapping - compared as raw JSON", n.Name)
			}
		case *Parameter:
			if n.TypeMapping == nil && !n.ClrType.IsZero() {
				v.addWarning("Parameter '%s' has no store mapping - value bound unconverted", n.Name)
			}
		}
		return true
	})
}
