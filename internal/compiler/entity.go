// Package compiler turns CUE entity model definitions into a model.Model.
//
// A model file declares enumerations and entities:
//
//	enum: Status: ["Active", "Suspended", "Closed"]
//
//	entity: Customer: {
//		collection: "Customers"
//		key:        "Id"
//		properties: {
//			Id:     "int"
//			Name:   string
//			Status: "enum:Status"
//			Age:    "int?"
//		}
//		navigations: {
//			Address: target: "Address"
//			Orders: {target: "Order", collection: true}
//		}
//	}
//
//	entity: Teacher: {base: "Person", discriminator_value: "Teacher"}
//
// Property types are either type strings (see typemap.ParseType) or bare
// CUE kinds (string, int, bool, float, {...}, [...]).
package compiler

import (
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"

	"github.com/roach88/docql/internal/model"
	"github.com/roach88/docql/internal/typemap"
)

// Result is a compiled model file.
type Result struct {
	Defs  []model.EntityDef
	Enums map[string]*typemap.EnumInfo
}

// Compile reads the enum and entity sections of v.
func Compile(v cue.Value) (*Result, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	enums, err := CompileEnums(v.LookupPath(cue.ParsePath("enum")))
	if err != nil {
		return nil, err
	}

	res := &Result{Enums: enums}
	entitiesVal := v.LookupPath(cue.ParsePath("entity"))
	if !entitiesVal.Exists() {
		return res, nil
	}
	iter, err := entitiesVal.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}
	for iter.Next() {
		def, err := CompileEntity(iter.Value(), enums)
		if err != nil {
			return nil, err
		}
		res.Defs = append(res.Defs, *def)
	}
	return res, nil
}

// Model validates the compiled definitions and resolves them into a
// model. Validation errors are returned joined.
func (r *Result) Model() (*model.Model, error) {
	if errs := Validate(r.Defs, r.Enums); len(errs) > 0 {
		return nil, ValidationErrors(errs)
	}
	return model.Build(r.Defs, r.Enums)
}

// CompileEnums parses enum declarations. Each enum is a list of value
// names; a value's ordinal is its index. A missing section yields an
// empty map.
func CompileEnums(v cue.Value) (map[string]*typemap.EnumInfo, error) {
	enums := map[string]*typemap.EnumInfo{}
	if !v.Exists() {
		return enums, nil
	}

	iter, err := v.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}
	for iter.Next() {
		name := iter.Label()
		values, err := iter.Value().List()
		if err != nil {
			return nil, &CompileError{
				Field:   "enum." + name,
				Message: "enum must be a list of value names",
				Pos:     iter.Value().Pos(),
			}
		}
		info := &typemap.EnumInfo{Name: name}
		for values.Next() {
			s, err := values.Value().String()
			if err != nil {
				return nil, formatCUEError(err)
			}
			info.Names = append(info.Names, s)
		}
		enums[name] = info
	}
	return enums, nil
}

// CompileEntity parses one entity struct. The entity name is the struct
// label.
func CompileEntity(v cue.Value, enums map[string]*typemap.EnumInfo) (*model.EntityDef, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	def := &model.EntityDef{}
	labels := v.Path().Selectors()
	if len(labels) > 0 {
		def.Name = labels[len(labels)-1].String()
	}

	var err error
	fields := []struct {
		field string
		dst   *string
	}{
		{"collection", &def.Collection},
		{"base", &def.Base},
		{"key", &def.Key},
		{"discriminator", &def.Discriminator},
	}
	for _, s := range fields {
		if *s.dst, err = optionalString(v, s.field); err != nil {
			return nil, err
		}
	}
	if def.Abstract, err = optionalBool(v, "abstract"); err != nil {
		return nil, err
	}
	if def.Owned, err = optionalBool(v, "owned"); err != nil {
		return nil, err
	}

	if dv := v.LookupPath(cue.ParsePath("discriminator_value")); dv.Exists() {
		var value any
		if err := dv.Decode(&value); err != nil {
			return nil, formatCUEError(err)
		}
		def.DiscriminatorValue = value
	}

	if def.Properties, err = parseProperties(v, enums); err != nil {
		return nil, err
	}
	if def.Navigations, err = parseNavigations(v); err != nil {
		return nil, err
	}
	return def, nil
}

func optionalString(v cue.Value, field string) (string, error) {
	fv := v.LookupPath(cue.ParsePath(field))
	if !fv.Exists() {
		return "", nil
	}
	s, err := fv.String()
	if err != nil {
		return "", formatCUEError(err)
	}
	return s, nil
}

func optionalBool(v cue.Value, field string) (bool, error) {
	fv := v.LookupPath(cue.ParsePath(field))
	if !fv.Exists() {
		return false, nil
	}
	b, err := fv.Bool()
	if err != nil {
		return false, formatCUEError(err)
	}
	return b, nil
}

// parseProperties reads the properties struct in declaration order.
func parseProperties(v cue.Value, enums map[string]*typemap.EnumInfo) ([]model.Property, error) {
	propsVal := v.LookupPath(cue.ParsePath("properties"))
	if !propsVal.Exists() {
		return nil, nil
	}

	iter, err := propsVal.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}

	var props []model.Property
	for iter.Next() {
		typ, err := extractType(iter.Value(), enums)
		if err != nil {
			return nil, err
		}
		props = append(props, model.Property{Name: iter.Label(), Type: typ})
	}
	return props, nil
}

// parseNavigations reads owned navigations. A navigation is either a
// target name or a struct with target and collection.
func parseNavigations(v cue.Value) ([]model.NavigationDef, error) {
	navsVal := v.LookupPath(cue.ParsePath("navigations"))
	if !navsVal.Exists() {
		return nil, nil
	}

	iter, err := navsVal.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}

	var navs []model.NavigationDef
	for iter.Next() {
		nv := iter.Value()
		nav := model.NavigationDef{Name: iter.Label()}

		if target, err := nv.String(); err == nil {
			nav.Target = target
			navs = append(navs, nav)
			continue
		}

		targetVal := nv.LookupPath(cue.ParsePath("target"))
		if !targetVal.Exists() {
			return nil, &CompileError{
				Field:   "navigations." + nav.Name,
				Message: "navigation target is required",
				Pos:     nv.Pos(),
			}
		}
		if nav.Target, err = targetVal.String(); err != nil {
			return nil, formatCUEError(err)
		}
		if nav.Collection, err = optionalBool(nv, "collection"); err != nil {
			return nil, err
		}
		navs = append(navs, nav)
	}
	return navs, nil
}

// extractType converts a property value to a type. Concrete strings are
// type strings; anything else maps from its CUE kind.
func extractType(v cue.Value, enums map[string]*typemap.EnumInfo) (typemap.Type, error) {
	if v.Kind() == cue.StringKind {
		s, err := v.String()
		if err != nil {
			return typemap.Type{}, formatCUEError(err)
		}
		t, err := typemap.ParseType(s, enums)
		if err != nil {
			return typemap.Type{}, &CompileError{Field: "type", Message: err.Error(), Pos: v.Pos()}
		}
		return t, nil
	}

	if v.IsConcrete() && v.Kind() != cue.StructKind && v.Kind() != cue.ListKind {
		return typemap.Type{}, &CompileError{
			Field:   "type",
			Message: fmt.Sprintf("property type must be a type string or CUE kind, got %v", v),
			Pos:     v.Pos(),
		}
	}

	switch v.IncompleteKind() {
	case cue.StringKind:
		return typemap.String, nil
	case cue.IntKind:
		return typemap.Int, nil
	case cue.FloatKind, cue.NumberKind:
		return typemap.Float, nil
	case cue.BoolKind:
		return typemap.Bool, nil
	case cue.BytesKind:
		return typemap.Bytes, nil
	case cue.ListKind:
		return typemap.ArrayOf(typemap.Object), nil
	case cue.StructKind:
		return typemap.Object, nil
	}
	if v.IncompleteKind() == cue.StringKind|cue.NullKind {
		return typemap.NullableOf(typemap.String), nil
	}
	return typemap.Type{}, &CompileError{
		Field:   "type",
		Message: fmt.Sprintf("unsupported type kind: %v", v.IncompleteKind()),
		Pos:     v.Pos(),
	}
}

// CompileError represents a compilation error with source position.
type CompileError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}

	// CUE errors may contain multiple errors
	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	// Return first error with position info
	firstErr := errs[0]
	positions := errors.Positions(firstErr)
	if len(positions) > 0 {
		return &CompileError{
			Field:   "cue",
			Message: firstErr.Error(),
			Pos:     positions[0],
		}
	}

	return err
}
