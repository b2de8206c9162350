package queryir

import (
	"reflect"
)

// ExpandMembership resolves every In node of e against params so that the
// generator only sees literal value lists.
//
// Null values are split out of the list because a membership test never
// matches null:
//
//	x IN (1, null)      => x IN (1) OR x IS NULL
//	x NOT IN (1, null)  => x NOT IN (1) AND x IS NOT NULL
//	x IN (null)         => x IS NULL
//	x IN ()             => true = false
//	x NOT IN ()         => true = true
func (f *Factory) ExpandMembership(e Expr, params map[string]any) (Expr, error) {
	r := NewRewriter(map[NodeKind]Handler{
		KindIn: func(r *Rewriter, e Expr) (Expr, error) {
			return f.expandIn(r, e.(*In), params)
		},
	})
	return r.Rewrite(e)
}

// ExpandSelect is ExpandMembership for a whole plan.
func (f *Factory) ExpandSelect(sel *Select, params map[string]any) (*Select, error) {
	out, err := f.ExpandMembership(sel, params)
	if err != nil {
		return nil, err
	}
	return out.(*Select), nil
}

func (f *Factory) expandIn(r *Rewriter, in *In, params map[string]any) (Expr, error) {
	item, err := r.Rewrite(in.Item)
	if err != nil {
		return nil, err
	}

	var values []any
	switch v := in.Values.(type) {
	case *Constant:
		list, ok := asList(v.Value)
		if !ok {
			return nil, NewGenerationError(ErrCodeInvalidConstant, KindIn,
				"membership values must be a list, got %T", v.Value)
		}
		values = list
	case *Parameter:
		raw, ok := params[v.Name]
		if !ok {
			return nil, NewGenerationError(ErrCodeMissingParameter, KindIn,
				"no value supplied for membership parameter").WithDetail("parameter", v.Name)
		}
		list, ok := asList(raw)
		if !ok {
			return nil, NewGenerationError(ErrCodeInvalidParameter, KindIn,
				"membership parameter must be a list, got %T", raw).WithDetail("parameter", v.Name)
		}
		values = list
	default:
		return nil, NewGenerationError(ErrCodeUnsupportedNode, KindIn,
			"membership values must be a constant or parameter, got %s", in.Values.Kind())
	}

	nonNull := make([]any, 0, len(values))
	hasNull := false
	for _, v := range values {
		if isNil(v) {
			hasNull = true
			continue
		}
		nonNull = append(nonNull, v)
	}

	var result Expr
	if len(nonNull) > 0 {
		result = &In{
			Item:        item,
			Values:      NewConstant(nonNull, in.Values.Mapping()),
			Negated:     in.Negated,
			TypeMapping: in.TypeMapping,
		}
	}

	if hasNull {
		var nullCheck Expr
		if in.Negated {
			nullCheck = f.IsNotNull(item)
		} else {
			nullCheck = f.IsNull(item)
		}
		switch {
		case result == nil:
			result = nullCheck
		case in.Negated:
			result = f.AndAlso(result, nullCheck)
		default:
			result = f.OrElse(result, nullCheck)
		}
	}

	if result == nil {
		return f.Equal(f.Constant(true, nil), f.Constant(in.Negated, nil)), nil
	}
	return result, nil
}

// asList flattens any slice (other than []byte) into []any.
func asList(v any) ([]any, bool) {
	if list, ok := v.([]any); ok {
		return list, true
	}
	if v == nil {
		return nil, false
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, false
	}
	if rv.Type().Elem().Kind() == reflect.Uint8 {
		return nil, false
	}
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out, true
}

func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Interface, reflect.Slice:
		return rv.IsNil()
	}
	return false
}
