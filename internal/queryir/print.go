package queryir

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/roach88/docql/internal/model"
	"github.com/roach88/docql/internal/typemap"
)

// Print renders e as a single-line debug form. The output depends only on
// the tree's structure and values, so two Equal trees print identically.
func Print(e Expr) string {
	var sb strings.Builder
	printExpr(&sb, e)
	return sb.String()
}

func printExpr(sb *strings.Builder, e Expr) {
	switch n := e.(type) {
	case nil:
		sb.WriteString("<nil>")
	case *Binary:
		fmt.Fprintf(sb, "%s(", n.Op)
		printExpr(sb, n.Left)
		sb.WriteString(", ")
		printExpr(sb, n.Right)
		sb.WriteByte(')')
	case *Unary:
		sb.WriteString(n.Op.String())
		if n.Op == OpConvert {
			fmt.Fprintf(sb, "<%s>", n.ClrType)
		}
		sb.WriteByte('(')
		printExpr(sb, n.Operand)
		sb.WriteByte(')')
	case *Conditional:
		sb.WriteByte('(')
		printExpr(sb, n.Test)
		sb.WriteString(" ? ")
		printExpr(sb, n.IfTrue)
		sb.WriteString(" : ")
		printExpr(sb, n.IfFalse)
		sb.WriteByte(')')
	case *Constant:
		printValue(sb, n.Value)
	case *Parameter:
		sb.WriteString("@" + n.Name)
	case *Function:
		sb.WriteString(n.Name + "(")
		for i, arg := range n.Args {
			if i > 0 {
				sb.WriteString(", ")
			}
			printExpr(sb, arg)
		}
		sb.WriteByte(')')
	case *In:
		printExpr(sb, n.Item)
		if n.Negated {
			sb.WriteString(" NOT")
		}
		sb.WriteString(" IN ")
		printExpr(sb, n.Values)
	case *Ordering:
		printExpr(sb, n.Expr)
		if n.Ascending {
			sb.WriteString(" ASC")
		} else {
			sb.WriteString(" DESC")
		}
	case *Projection:
		printExpr(sb, n.Expr)
		if n.Alias != "" {
			sb.WriteString(" AS " + n.Alias)
		}
	case *EntityProjection:
		fmt.Fprintf(sb, "Entity<%s>(", entityName(n.Entity))
		printExpr(sb, n.Access)
		sb.WriteByte(')')
	case *RootReference:
		sb.WriteString(n.Alias)
	case *KeyAccess:
		printExpr(sb, n.Accessor)
		sb.WriteString("." + n.Name)
	case *ObjectAccess:
		printExpr(sb, n.Accessor)
		sb.WriteString("." + n.Name)
	case *ObjectArrayProjection:
		printExpr(sb, n.Accessor)
		sb.WriteString("[] AS " + n.InnerAlias)
	case *FromRaw:
		fmt.Fprintf(sb, "FromRaw(%s, ", strconv.Quote(n.Text))
		printExpr(sb, n.Arguments)
		sb.WriteString(") AS " + n.Alias)
	case *Select:
		printSelect(sb, n)
	default:
		fmt.Fprintf(sb, "<%T>", e)
	}
}

func printSelect(sb *strings.Builder, s *Select) {
	sb.WriteString("Select(")
	if s.Distinct {
		sb.WriteString("DISTINCT ")
	}
	for i, p := range s.Projections {
		if i > 0 {
			sb.WriteString(", ")
		}
		printExpr(sb, p)
	}
	if len(s.Projections) == 0 {
		fmt.Fprintf(sb, "Entity<%s>(%s)", entityName(s.Entity), s.Alias)
	}
	sb.WriteString(" FROM ")
	if s.From != nil {
		printExpr(sb, s.From)
	} else {
		sb.WriteString(s.Collection + " AS " + s.Alias)
	}
	if s.Predicate != nil {
		sb.WriteString(" WHERE ")
		printExpr(sb, s.Predicate)
	}
	if len(s.Orderings) > 0 {
		sb.WriteString(" ORDER BY ")
		for i, o := range s.Orderings {
			if i > 0 {
				sb.WriteString(", ")
			}
			printExpr(sb, o)
		}
	}
	if s.Limit != nil {
		sb.WriteString(" LIMIT ")
		printExpr(sb, s.Limit)
	}
	if s.Offset != nil {
		sb.WriteString(" OFFSET ")
		printExpr(sb, s.Offset)
	}
	sb.WriteByte(')')
}

func printValue(sb *strings.Builder, v any) {
	switch val := v.(type) {
	case nil:
		sb.WriteString("null")
	case string:
		sb.WriteString(strconv.Quote(val))
	case time.Time:
		sb.WriteString(val.UTC().Format(time.RFC3339Nano))
	case []any:
		sb.WriteByte('[')
		for i, elem := range val {
			if i > 0 {
				sb.WriteString(", ")
			}
			printValue(sb, elem)
		}
		sb.WriteByte(']')
	default:
		fmt.Fprint(sb, val)
	}
}

func entityName(e *model.EntityType) string {
	if e == nil {
		return "?"
	}
	return e.Name
}

// Equal reports whether a and b are structurally equal: same node kinds,
// operators, names, values, types and mappings, recursively. Entity types
// compare by identity.
func Equal(a, b Expr) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if a.Kind() != b.Kind() {
		return false
	}
	switch x := a.(type) {
	case *Binary:
		y := b.(*Binary)
		return x.Op == y.Op && typed(x, y) && Equal(x.Left, y.Left) && Equal(x.Right, y.Right)
	case *Unary:
		y := b.(*Unary)
		return x.Op == y.Op && typed(x, y) && Equal(x.Operand, y.Operand)
	case *Conditional:
		y := b.(*Conditional)
		return Equal(x.Test, y.Test) && Equal(x.IfTrue, y.IfTrue) && Equal(x.IfFalse, y.IfFalse)
	case *Constant:
		y := b.(*Constant)
		return typed(x, y) && valuesEqual(x.Value, y.Value)
	case *Parameter:
		y := b.(*Parameter)
		return x.Name == y.Name && typed(x, y)
	case *Function:
		y := b.(*Function)
		return x.Name == y.Name && typed(x, y) && exprsEqual(x.Args, y.Args)
	case *In:
		y := b.(*In)
		return x.Negated == y.Negated && MappingsEqual(x.TypeMapping, y.TypeMapping) &&
			Equal(x.Item, y.Item) && Equal(x.Values, y.Values)
	case *Ordering:
		y := b.(*Ordering)
		return x.Ascending == y.Ascending && Equal(x.Expr, y.Expr)
	case *Projection:
		y := b.(*Projection)
		return x.Alias == y.Alias && Equal(x.Expr, y.Expr)
	case *EntityProjection:
		y := b.(*EntityProjection)
		return x.Entity == y.Entity && Equal(x.Access, y.Access)
	case *RootReference:
		y := b.(*RootReference)
		return x.Alias == y.Alias && x.Entity == y.Entity
	case *KeyAccess:
		y := b.(*KeyAccess)
		return x.Name == y.Name && typed(x, y) && Equal(x.Accessor, y.Accessor)
	case *ObjectAccess:
		y := b.(*ObjectAccess)
		return x.Name == y.Name && x.Entity == y.Entity && Equal(x.Accessor, y.Accessor)
	case *ObjectArrayProjection:
		y := b.(*ObjectArrayProjection)
		return x.InnerAlias == y.InnerAlias && x.Entity == y.Entity && Equal(x.Accessor, y.Accessor)
	case *FromRaw:
		y := b.(*FromRaw)
		return x.Text == y.Text && x.Alias == y.Alias && Equal(x.Arguments, y.Arguments)
	case *Select:
		return selectsEqual(x, b.(*Select))
	}
	return false
}

func selectsEqual(x, y *Select) bool {
	if x.Collection != y.Collection || x.Alias != y.Alias || x.Distinct != y.Distinct || x.Entity != y.Entity {
		return false
	}
	if (x.From == nil) != (y.From == nil) || (x.From != nil && !Equal(x.From, y.From)) {
		return false
	}
	if len(x.Projections) != len(y.Projections) || len(x.Orderings) != len(y.Orderings) {
		return false
	}
	for i := range x.Projections {
		if !Equal(x.Projections[i], y.Projections[i]) {
			return false
		}
	}
	for i := range x.Orderings {
		if !Equal(x.Orderings[i], y.Orderings[i]) {
			return false
		}
	}
	return Equal(x.Predicate, y.Predicate) && Equal(x.Offset, y.Offset) && Equal(x.Limit, y.Limit)
}

// typed compares the semantic type and mapping of two nodes of one kind.
func typed(a, b Expr) bool {
	return a.Type().Equal(b.Type()) && MappingsEqual(a.Mapping(), b.Mapping())
}

// MappingsEqual reports whether two mappings convert the same CLR type to
// the same store type with the same kind of converter.
func MappingsEqual(a, b *typemap.Mapping) bool {
	if a == b {
		return true
	}
	if a == nil || b == nil {
		return false
	}
	return a.ClrType.Equal(b.ClrType) && a.StoreType == b.StoreType &&
		reflect.TypeOf(a.Converter) == reflect.TypeOf(b.Converter)
}

func exprsEqual(a, b []Expr) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !Equal(a[i], b[i]) {
			return false
		}
	}
	return true
}

func valuesEqual(a, b any) bool {
	switch x := a.(type) {
	case []any:
		y, ok := b.([]any)
		if !ok || len(x) != len(y) {
			return false
		}
		for i := range x {
			if !valuesEqual(x[i], y[i]) {
				return false
			}
		}
		return true
	case time.Time:
		y, ok := b.(time.Time)
		return ok && x.Equal(y)
	}
	return reflect.DeepEqual(a, b)
}
