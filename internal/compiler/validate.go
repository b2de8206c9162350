package compiler

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/docql/internal/model"
	"github.com/roach88/docql/internal/typemap"
)

// Validation error codes (E100-E199)
const (
	ErrEntityNameEmpty         = "E101" // entity name is required
	ErrDuplicateName           = "E102" // duplicate entity/property/navigation name
	ErrMissingKey              = "E103" // collection root without a usable key
	ErrInvalidFieldType        = "E104" // property without a type
	ErrUnknownReference        = "E105" // unknown base or navigation target
	ErrInvalidDiscriminator    = "E106" // discriminator misplaced or missing
	ErrDuplicateDiscriminator  = "E107" // two concrete types share a discriminator value
	ErrInvalidCollection       = "E108" // collection declared on a derived or owned entity
	ErrInheritanceCycle        = "E109" // base chain loops
	ErrInvalidNavigationTarget = "E110" // navigation target is not an owned entity
)

// ValidationError represents a model validation error.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

// ValidationErrors joins validation errors into one error.
func ValidationErrors(errs []ValidationError) error {
	joined := make([]error, len(errs))
	for i, e := range errs {
		joined[i] = e
	}
	return errors.Join(joined...)
}

// Validate checks entity definitions before they are resolved.
// Returns all errors found (does not fail-fast).
func Validate(defs []model.EntityDef, enums map[string]*typemap.EnumInfo) []ValidationError {
	var errs []ValidationError
	byName := make(map[string]*model.EntityDef, len(defs))

	for i := range defs {
		def := &defs[i]
		field := fmt.Sprintf("entity[%d]", i)

		// E101: name is required
		if strings.TrimSpace(def.Name) == "" {
			errs = append(errs, ValidationError{Field: field, Message: "entity name is required", Code: ErrEntityNameEmpty})
			continue
		}

		// E102: duplicate entity
		if _, dup := byName[def.Name]; dup {
			errs = append(errs, ValidationError{
				Field:   "entity." + def.Name,
				Message: fmt.Sprintf("duplicate entity name: %q", def.Name),
				Code:    ErrDuplicateName,
			})
			continue
		}
		byName[def.Name] = def
	}

	for _, cycle := range inheritanceCycles(defs) {
		errs = append(errs, ValidationError{
			Field:   "entity." + cycle[0] + ".base",
			Message: "inheritance cycle: " + strings.Join(cycle, " -> "),
			Code:    ErrInheritanceCycle,
		})
	}
	cyclic := slices.ContainsFunc(errs, func(e ValidationError) bool { return e.Code == ErrInheritanceCycle })

	for _, def := range byName {
		errs = append(errs, validateEntity(def, byName, enums, cyclic)...)
	}
	if !cyclic {
		errs = append(errs, validateDiscriminatorValues(defs, byName)...)
	}

	slices.SortStableFunc(errs, func(a, b ValidationError) int {
		return strings.Compare(a.Field, b.Field)
	})
	return errs
}

func validateEntity(def *model.EntityDef, byName map[string]*model.EntityDef, enums map[string]*typemap.EnumInfo, cyclic bool) []ValidationError {
	var errs []ValidationError
	prefix := "entity." + def.Name

	seen := make(map[string]bool)
	for _, p := range def.Properties {
		// E102: duplicate member
		if seen[p.Name] {
			errs = append(errs, ValidationError{
				Field:   prefix + ".properties." + p.Name,
				Message: fmt.Sprintf("duplicate property name: %q", p.Name),
				Code:    ErrDuplicateName,
			})
		}
		seen[p.Name] = true

		// E104: property type
		if p.Type.IsZero() {
			errs = append(errs, ValidationError{
				Field:   prefix + ".properties." + p.Name,
				Message: "property type is required",
				Code:    ErrInvalidFieldType,
			})
		}
		if p.Type.Unwrap().Kind == typemap.KindEnum {
			if _, ok := enums[p.Type.Name]; !ok {
				errs = append(errs, ValidationError{
					Field:   prefix + ".properties." + p.Name,
					Message: fmt.Sprintf("unknown enum %q", p.Type.Name),
					Code:    ErrUnknownReference,
				})
			}
		}
	}

	for _, nav := range def.Navigations {
		if seen[nav.Name] {
			errs = append(errs, ValidationError{
				Field:   prefix + ".navigations." + nav.Name,
				Message: fmt.Sprintf("duplicate member name: %q", nav.Name),
				Code:    ErrDuplicateName,
			})
		}
		seen[nav.Name] = true

		target, ok := byName[nav.Target]
		switch {
		case !ok:
			errs = append(errs, ValidationError{
				Field:   prefix + ".navigations." + nav.Name,
				Message: fmt.Sprintf("unknown target entity %q", nav.Target),
				Code:    ErrUnknownReference,
			})
		case !target.Owned:
			errs = append(errs, ValidationError{
				Field:   prefix + ".navigations." + nav.Name,
				Message: fmt.Sprintf("target entity %q must be owned", nav.Target),
				Code:    ErrInvalidNavigationTarget,
			})
		}
	}

	if def.Base != "" {
		if _, ok := byName[def.Base]; !ok {
			errs = append(errs, ValidationError{
				Field:   prefix + ".base",
				Message: fmt.Sprintf("unknown base entity %q", def.Base),
				Code:    ErrUnknownReference,
			})
			return errs
		}
		// E108: derived types live in the root's collection
		if def.Collection != "" {
			errs = append(errs, ValidationError{
				Field:   prefix + ".collection",
				Message: "derived entities share their root's collection",
				Code:    ErrInvalidCollection,
			})
		}
		// E106: discriminator belongs to the root
		if def.Discriminator != "" {
			errs = append(errs, ValidationError{
				Field:   prefix + ".discriminator",
				Message: "only the hierarchy root declares a discriminator",
				Code:    ErrInvalidDiscriminator,
			})
		}
		return errs
	}

	if def.Owned {
		if def.Collection != "" || def.Key != "" {
			errs = append(errs, ValidationError{
				Field:   prefix,
				Message: "owned entities have no collection or key",
				Code:    ErrInvalidCollection,
			})
		}
		return errs
	}

	// E103: collection roots need a key property
	if def.Key == "" {
		errs = append(errs, ValidationError{Field: prefix + ".key", Message: "key is required", Code: ErrMissingKey})
	} else if !seen[def.Key] {
		errs = append(errs, ValidationError{
			Field:   prefix + ".key",
			Message: fmt.Sprintf("key %q is not a property", def.Key),
			Code:    ErrMissingKey,
		})
	}

	if cyclic {
		return errs
	}
	hasDerived := false
	for _, other := range byName {
		if other.Base == def.Name {
			hasDerived = true
			break
		}
	}
	switch {
	case def.Discriminator == "" && hasDerived:
		errs = append(errs, ValidationError{
			Field:   prefix + ".discriminator",
			Message: "hierarchy root with derived entities needs a discriminator",
			Code:    ErrInvalidDiscriminator,
		})
	case def.Discriminator != "" && !seen[def.Discriminator]:
		errs = append(errs, ValidationError{
			Field:   prefix + ".discriminator",
			Message: fmt.Sprintf("discriminator %q is not a property", def.Discriminator),
			Code:    ErrInvalidDiscriminator,
		})
	}
	return errs
}

// validateDiscriminatorValues rejects concrete types in one hierarchy that
// share a discriminator value.
func validateDiscriminatorValues(defs []model.EntityDef, byName map[string]*model.EntityDef) []ValidationError {
	var errs []ValidationError
	owners := make(map[string]string)
	for _, def := range defs {
		if def.Abstract || def.Owned || def.Name == "" {
			continue
		}
		root := rootOf(def.Name, byName)
		value := def.DiscriminatorValue
		if value == nil {
			value = def.Name
		}
		key := root + "\x00" + fmt.Sprint(value)
		if prev, dup := owners[key]; dup {
			errs = append(errs, ValidationError{
				Field:   "entity." + def.Name + ".discriminator_value",
				Message: fmt.Sprintf("value %v already used by %q", value, prev),
				Code:    ErrDuplicateDiscriminator,
			})
			continue
		}
		owners[key] = def.Name
	}
	return errs
}

func rootOf(name string, byName map[string]*model.EntityDef) string {
	for {
		def, ok := byName[name]
		if !ok || def.Base == "" {
			return name
		}
		if _, ok := byName[def.Base]; !ok {
			return name
		}
		name = def.Base
	}
}
