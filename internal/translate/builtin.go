package translate

import (
	"github.com/roach88/docql/internal/queryir"
	"github.com/roach88/docql/internal/typemap"
)

// Declaring types recognized by the built-in rules.
var (
	DateTime       = typemap.Time
	DateTimeOffset = typemap.Type{Kind: typemap.KindTime, Name: "DateTimeOffset"}
)

// DateTimeMemberTranslator maps UtcNow on DateTime and DateTimeOffset to
// the store's current-time function.
type DateTimeMemberTranslator struct {
	factory *queryir.Factory
}

// NewDateTimeMemberTranslator creates the rule.
func NewDateTimeMemberTranslator(f *queryir.Factory) *DateTimeMemberTranslator {
	return &DateTimeMemberTranslator{factory: f}
}

func (t *DateTimeMemberTranslator) Translate(_ queryir.Expr, member Member, returnType typemap.Type) queryir.Expr {
	if member.Name != "UtcNow" || !isDateTime(member.DeclaringType.Unwrap()) {
		return nil
	}
	return t.factory.Function("GetCurrentDateTime", nil, returnType, nil)
}

// isDateTime accepts the plain time type and its DateTime and
// DateTimeOffset spellings.
func isDateTime(t typemap.Type) bool {
	if t.Kind != typemap.KindTime {
		return false
	}
	return t.Equal(DateTime) || t.Equal(DateTimeOffset) || t.Name == "DateTime"
}

// EqualsTranslator maps Equals calls to equality. Operands of different
// types can never be equal, so the call folds to constant false unless one
// side is an untyped parameter or constant.
type EqualsTranslator struct {
	factory *queryir.Factory
}

// NewEqualsTranslator creates the rule.
func NewEqualsTranslator(f *queryir.Factory) *EqualsTranslator {
	return &EqualsTranslator{factory: f}
}

func (t *EqualsTranslator) Translate(instance queryir.Expr, method Method, args []queryir.Expr) queryir.Expr {
	if method.Name != "Equals" {
		return nil
	}

	var left, right queryir.Expr
	switch {
	case instance != nil && len(args) == 1:
		left, right = instance, args[0]
	case instance == nil && len(args) == 2:
		left, right = args[0], args[1]
	default:
		return nil
	}
	if left == nil || right == nil {
		return nil
	}

	if left.Type().Unwrap().Equal(right.Type().Unwrap()) || isUntypedValue(left) || isUntypedValue(right) {
		return t.factory.Equal(left, right)
	}
	return t.factory.Constant(false, t.factory.BoolMapping())
}

// isUntypedValue reports whether e is a parameter or constant that can be
// compared with any type: Object-typed values and the null constant.
func isUntypedValue(e queryir.Expr) bool {
	switch v := e.(type) {
	case *queryir.Constant:
		return v.Value == nil || isUntypedKind(v.Type().Kind)
	case *queryir.Parameter:
		return isUntypedKind(v.Type().Kind)
	}
	return false
}

func isUntypedKind(k typemap.Kind) bool {
	return k == typemap.KindObject || k == typemap.KindNull
}

// StringMemberTranslator maps string Length to the store's length function.
type StringMemberTranslator struct {
	factory *queryir.Factory
}

func (t *StringMemberTranslator) Translate(instance queryir.Expr, member Member, _ typemap.Type) queryir.Expr {
	if instance == nil || member.Name != "Length" || member.DeclaringType.Unwrap().Kind != typemap.KindString {
		return nil
	}
	return t.factory.Function("length", []queryir.Expr{instance}, typemap.Int, nil)
}

// StringMethodTranslator maps common string instance methods:
//
//	s.ToUpper()       upper(s)
//	s.ToLower()       lower(s)
//	s.Trim()          trim(s)
//	s.Contains(x)     instr(s, x) > 0
//	s.StartsWith(x)   substr(s, 1, length(x)) = x
type StringMethodTranslator struct {
	factory *queryir.Factory
}

func (t *StringMethodTranslator) Translate(instance queryir.Expr, method Method, args []queryir.Expr) queryir.Expr {
	if instance == nil || method.DeclaringType.Unwrap().Kind != typemap.KindString {
		return nil
	}
	f := t.factory
	switch {
	case len(args) == 0:
		var name string
		switch method.Name {
		case "ToUpper":
			name = "upper"
		case "ToLower":
			name = "lower"
		case "Trim":
			name = "trim"
		default:
			return nil
		}
		return f.Function(name, []queryir.Expr{instance}, typemap.String, nil)

	case len(args) == 1 && method.Name == "Contains":
		instr := f.Function("instr", []queryir.Expr{instance, args[0]}, typemap.Int, nil)
		return f.GreaterThan(instr, f.Constant(0, nil))

	case len(args) == 1 && method.Name == "StartsWith":
		length := f.Function("length", []queryir.Expr{args[0]}, typemap.Int, nil)
		prefix := f.Function("substr", []queryir.Expr{instance, f.Constant(1, nil), length}, typemap.String, nil)
		return f.Equal(prefix, args[0])
	}
	return nil
}
