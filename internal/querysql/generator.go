package querysql

import (
	"fmt"
	"math"
	"reflect"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/roach88/docql/internal/document"
	"github.com/roach88/docql/internal/queryir"
	"github.com/roach88/docql/internal/typemap"
)

// Generator renders queryir plans as SQLite document SQL.
//
// Every collection is a table with a JSON "doc" column. Property reads
// become json_extract over the document, the result row is a single JSON
// document column, and all runtime values are bound as named parameters
// (@p0, @p1, ...) in first-use order.
//
// Plans must have been through Factory.ExpandMembership: membership tests
// over parameters are rejected here.
type Generator struct {
	source typemap.Source
}

// NewGenerator creates a Generator. source maps the values of raw query
// arguments, which carry no mapping of their own; nil means the built-in
// registry.
func NewGenerator(source typemap.Source) *Generator {
	if source == nil {
		source = typemap.NewRegistry()
	}
	return &Generator{source: source}
}

// Generate renders sel against the runtime parameter values.
//
// Output shape, one clause per line:
//
//	SELECT [DISTINCT] <projection>
//	FROM "<Collection>" AS c | FROM (<raw>) c
//	WHERE <predicate>
//	ORDER BY <orderings>
//	LIMIT <limit> [OFFSET <offset>]
func (g *Generator) Generate(sel *queryir.Select, params map[string]any) (*Query, error) {
	if sel == nil {
		return nil, queryir.NewGenerationError(queryir.ErrCodeUnsupportedNode, queryir.KindSelect, "cannot generate nil plan")
	}
	if sel.Offset != nil && sel.Limit == nil {
		return nil, queryir.NewGenerationError(queryir.ErrCodeOffsetWithoutLimit, queryir.KindSelect,
			"offset requires a limit")
	}

	w := &writer{
		source: g.source,
		params: params,
		alias:  sel.Alias,
		bound:  make(map[string]string),
	}
	if w.alias == "" {
		w.alias = queryir.DefaultAlias
	}

	text, err := w.selectStmt(sel)
	if err != nil {
		return nil, err
	}
	return &Query{Text: text, Collection: sel.Collection, Parameters: w.parameters}, nil
}

// writer holds per-generation state.
type writer struct {
	source     typemap.Source
	params     map[string]any
	alias      string
	parameters []Parameter
	bound      map[string]string // plan parameter name -> rendered placeholder
}

func (w *writer) selectStmt(sel *queryir.Select) (string, error) {
	var b strings.Builder

	b.WriteString("SELECT ")
	if sel.Distinct {
		b.WriteString("DISTINCT ")
	}
	proj, err := w.projections(sel.Projections)
	if err != nil {
		return "", err
	}
	b.WriteString(proj)

	b.WriteString("\nFROM ")
	if sel.From != nil {
		raw, err := w.fromRaw(sel.From)
		if err != nil {
			return "", err
		}
		b.WriteString("(\n    ")
		b.WriteString(strings.ReplaceAll(raw, "\n", "\n    "))
		b.WriteString("\n) ")
		b.WriteString(w.alias)
	} else {
		b.WriteString(quoteIdent(sel.Collection))
		b.WriteString(" AS ")
		b.WriteString(w.alias)
	}

	if sel.Predicate != nil {
		pred, err := w.expr(sel.Predicate)
		if err != nil {
			return "", err
		}
		b.WriteString("\nWHERE ")
		b.WriteString(pred)
	}

	if len(sel.Orderings) > 0 {
		terms := make([]string, len(sel.Orderings))
		for i, o := range sel.Orderings {
			term, err := w.expr(o.Expr)
			if err != nil {
				return "", err
			}
			if !o.Ascending {
				term += " DESC"
			}
			terms[i] = term
		}
		b.WriteString("\nORDER BY ")
		b.WriteString(strings.Join(terms, ", "))
	}

	if sel.Limit != nil {
		limit, err := w.expr(sel.Limit)
		if err != nil {
			return "", err
		}
		b.WriteString("\nLIMIT ")
		b.WriteString(limit)
		if sel.Offset != nil {
			offset, err := w.expr(sel.Offset)
			if err != nil {
				return "", err
			}
			b.WriteString(" OFFSET ")
			b.WriteString(offset)
		}
	}

	return b.String(), nil
}

// projections renders the single result column. A lone entity projection
// yields the document itself; anything else is assembled with json_object.
func (w *writer) projections(projections []*queryir.Projection) (string, error) {
	if len(projections) == 0 {
		return w.alias + ".doc", nil
	}
	if len(projections) == 1 && projections[0].Alias == "" {
		if ep, ok := projections[0].Expr.(*queryir.EntityProjection); ok {
			return w.expr(ep.Access)
		}
	}

	parts := make([]string, 0, len(projections))
	for i, p := range projections {
		alias := p.Alias
		if alias == "" {
			if k, ok := p.Expr.(*queryir.KeyAccess); ok {
				alias = k.Name
			} else {
				alias = fmt.Sprintf("value%d", i)
			}
		}
		value, err := w.projectionValue(p.Expr)
		if err != nil {
			return "", err
		}
		parts = append(parts, quoteString(alias)+", "+value)
	}
	return "json_object(" + strings.Join(parts, ", ") + ")", nil
}

func (w *writer) projectionValue(e queryir.Expr) (string, error) {
	rendered, err := w.expr(e)
	if err != nil {
		return "", err
	}
	switch e.(type) {
	case *queryir.EntityProjection, *queryir.ObjectAccess, *queryir.ObjectArrayProjection:
		return "json(" + rendered + ")", nil
	}
	switch e.Type().Unwrap().Kind {
	case typemap.KindBool:
		return fmt.Sprintf("CASE WHEN %s IS NULL THEN NULL WHEN %s THEN json('true') ELSE json('false') END", rendered, rendered), nil
	case typemap.KindObject, typemap.KindArray:
		if _, ok := e.(*queryir.KeyAccess); ok {
			return "json(" + rendered + ")", nil
		}
	}
	return rendered, nil
}

func (w *writer) expr(e queryir.Expr) (string, error) {
	switch n := e.(type) {
	case *queryir.Binary:
		return w.binary(n)
	case *queryir.Unary:
		return w.unary(n)
	case *queryir.Conditional:
		return w.conditional(n)
	case *queryir.Constant:
		return w.constant(n)
	case *queryir.Parameter:
		return w.parameter(n)
	case *queryir.Function:
		return w.function(n)
	case *queryir.In:
		return w.in(n)
	case *queryir.RootReference:
		return w.rootDoc(n), nil
	case *queryir.EntityProjection:
		return w.expr(n.Access)
	case *queryir.KeyAccess, *queryir.ObjectAccess:
		base, path, err := w.jsonPath(n)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("json_extract(%s, %s)", base, quoteString(path)), nil
	case *queryir.ObjectArrayProjection:
		base, path, err := w.jsonPath(n.Accessor)
		if err != nil {
			return "", err
		}
		inner := n.InnerAlias
		if inner == "" {
			inner = "i"
		}
		return fmt.Sprintf("(SELECT json_group_array(json(%s.value)) FROM json_each(%s, %s) AS %s)",
			inner, base, quoteString(path), inner), nil
	case nil:
		return "", queryir.NewGenerationError(queryir.ErrCodeUnsupportedNode, queryir.KindSelect, "nil expression")
	default:
		return "", queryir.NewGenerationError(queryir.ErrCodeUnsupportedNode, e.Kind(),
			"%s cannot appear in an expression", e.Kind())
	}
}

func (w *writer) rootDoc(r *queryir.RootReference) string {
	alias := r.Alias
	if alias == "" {
		alias = w.alias
	}
	return alias + ".doc"
}

var identLabel = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// jsonPath flattens an accessor chain into a base document expression and
// a JSON path ("$.Address.City").
func (w *writer) jsonPath(e queryir.Expr) (string, string, error) {
	var labels []string
	cur := e
	var base string
loop:
	for {
		switch n := cur.(type) {
		case *queryir.KeyAccess:
			labels = append(labels, n.Name)
			cur = n.Accessor
		case *queryir.ObjectAccess:
			labels = append(labels, n.Name)
			cur = n.Accessor
		case *queryir.EntityProjection:
			cur = n.Access
		case *queryir.RootReference:
			base = w.rootDoc(n)
			break loop
		default:
			rendered, err := w.expr(cur)
			if err != nil {
				return "", "", err
			}
			base = rendered
			break loop
		}
	}

	var path strings.Builder
	path.WriteByte('$')
	for i := len(labels) - 1; i >= 0; i-- {
		path.WriteByte('.')
		if identLabel.MatchString(labels[i]) {
			path.WriteString(labels[i])
		} else {
			path.WriteString(`"` + strings.ReplaceAll(labels[i], `"`, `\"`) + `"`)
		}
	}
	return base, path.String(), nil
}

var binaryTokens = map[queryir.Operator]string{
	queryir.OpAdd:     " + ",
	queryir.OpSub:     " - ",
	queryir.OpMul:     " * ",
	queryir.OpDiv:     " / ",
	queryir.OpMod:     " % ",
	queryir.OpOr:      " | ",
	queryir.OpAnd:     " & ",
	queryir.OpShl:     " << ",
	queryir.OpShr:     " >> ",
	queryir.OpAndAlso: " AND ",
	queryir.OpOrElse:  " OR ",
	queryir.OpEq:      " = ",
	queryir.OpNeq:     " != ",
	queryir.OpGt:      " > ",
	queryir.OpGte:     " >= ",
	queryir.OpLt:      " < ",
	queryir.OpLte:     " <= ",
}

func (w *writer) binary(b *queryir.Binary) (string, error) {
	if b.Op == queryir.OpEq || b.Op == queryir.OpNeq {
		operand := b.Left
		switch {
		case w.isNull(b.Right):
		case w.isNull(b.Left):
			operand = b.Right
		default:
			operand = nil
		}
		if operand != nil {
			rendered, err := w.expr(operand)
			if err != nil {
				return "", err
			}
			if b.Op == queryir.OpEq {
				return "(" + rendered + " IS NULL)", nil
			}
			return "(" + rendered + " IS NOT NULL)", nil
		}
	}

	left, err := w.expr(b.Left)
	if err != nil {
		return "", err
	}
	right, err := w.expr(b.Right)
	if err != nil {
		return "", err
	}

	switch b.Op {
	case queryir.OpXor:
		return fmt.Sprintf("((%s | %s) - (%s & %s))", left, right, left, right), nil
	case queryir.OpAdd:
		if isString(b.Left) {
			return "(" + left + " || " + right + ")", nil
		}
	}

	token, ok := binaryTokens[b.Op]
	if !ok {
		return "", &queryir.UnsupportedOperatorError{Op: b.Op, Node: queryir.KindBinary}
	}
	return "(" + left + token + right + ")", nil
}

func isString(e queryir.Expr) bool {
	return e.Type().Unwrap().Kind == typemap.KindString
}

// isNull reports whether e is known to be null at generation time.
func (w *writer) isNull(e queryir.Expr) bool {
	switch n := e.(type) {
	case *queryir.Constant:
		return isNilValue(n.Value)
	case *queryir.Parameter:
		v, ok := w.params[n.Name]
		return ok && isNilValue(v)
	}
	return false
}

func (w *writer) unary(u *queryir.Unary) (string, error) {
	operand, err := w.expr(u.Operand)
	if err != nil {
		return "", err
	}
	switch u.Op {
	case queryir.OpNot:
		if u.Type().Unwrap().Kind == typemap.KindBool || u.Operand.Type().Unwrap().Kind == typemap.KindBool {
			return "NOT (" + operand + ")", nil
		}
		return "~(" + operand + ")", nil
	case queryir.OpNegate:
		return "-(" + operand + ")", nil
	case queryir.OpUnaryPlus:
		return "+(" + operand + ")", nil
	case queryir.OpConvert:
		if m := u.TypeMapping; m != nil && m.StoreType != "" {
			return "CAST(" + operand + " AS " + m.StoreType + ")", nil
		}
		return operand, nil
	}
	return "", &queryir.UnsupportedOperatorError{Op: u.Op, Node: queryir.KindUnary}
}

func (w *writer) conditional(c *queryir.Conditional) (string, error) {
	test, err := w.expr(c.Test)
	if err != nil {
		return "", err
	}
	ifTrue, err := w.expr(c.IfTrue)
	if err != nil {
		return "", err
	}
	ifFalse, err := w.expr(c.IfFalse)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("CASE WHEN %s THEN %s ELSE %s END", test, ifTrue, ifFalse), nil
}

// functionTemplates maps store-neutral function names to SQLite text.
var functionTemplates = map[string]string{
	"GetCurrentDateTime": "strftime('%Y-%m-%dT%H:%M:%fZ', 'now')",
}

func (w *writer) function(f *queryir.Function) (string, error) {
	if tmpl, ok := functionTemplates[f.Name]; ok && len(f.Args) == 0 {
		return tmpl, nil
	}
	args := make([]string, len(f.Args))
	for i, a := range f.Args {
		rendered, err := w.expr(a)
		if err != nil {
			return "", err
		}
		args[i] = rendered
	}
	return f.Name + "(" + strings.Join(args, ", ") + ")", nil
}

func (w *writer) in(n *queryir.In) (string, error) {
	item, err := w.expr(n.Item)
	if err != nil {
		return "", err
	}
	values, ok := n.Values.(*queryir.Constant)
	if !ok {
		return "", queryir.NewGenerationError(queryir.ErrCodeUnsupportedNode, queryir.KindIn,
			"membership values must be expanded to a constant list before generation")
	}
	list, ok := asList(values.Value)
	if !ok {
		return "", queryir.NewGenerationError(queryir.ErrCodeInvalidConstant, queryir.KindIn,
			"membership values must be a list, got %T", values.Value)
	}

	rendered := make([]string, len(list))
	for i, v := range list {
		converted, err := convert(v, values.Mapping())
		if err != nil {
			return "", queryir.NewGenerationError(queryir.ErrCodeInvalidConstant, queryir.KindIn,
				"membership value %d: %v", i, err)
		}
		lit, err := literal(converted)
		if err != nil {
			return "", err
		}
		rendered[i] = lit
	}

	op := " IN ("
	if n.Negated {
		op = " NOT IN ("
	}
	return "(" + item + op + strings.Join(rendered, ", ") + "))", nil
}

func (w *writer) constant(c *queryir.Constant) (string, error) {
	v, err := convert(c.Value, c.Mapping())
	if err != nil {
		return "", queryir.NewGenerationError(queryir.ErrCodeInvalidConstant, queryir.KindConstant, "%v", err)
	}
	return literal(v)
}

// parameter binds the named plan parameter once and reuses its
// placeholder. Lists and objects are bound as JSON text.
func (w *writer) parameter(p *queryir.Parameter) (string, error) {
	if rendered, ok := w.bound[p.Name]; ok {
		return rendered, nil
	}
	raw, ok := w.params[p.Name]
	if !ok {
		return "", queryir.NewGenerationError(queryir.ErrCodeMissingParameter, queryir.KindParameter,
			"no value supplied").WithDetail("parameter", p.Name)
	}
	v, err := convert(raw, p.Mapping())
	if err != nil {
		return "", queryir.NewGenerationError(queryir.ErrCodeInvalidParameter, queryir.KindParameter,
			"%v", err).WithDetail("parameter", p.Name)
	}
	rendered, err := w.bind(p.Name, v)
	if err != nil {
		return "", queryir.NewGenerationError(queryir.ErrCodeInvalidParameter, queryir.KindParameter,
			"%v", err).WithDetail("parameter", p.Name)
	}
	w.bound[p.Name] = rendered
	return rendered, nil
}

func (w *writer) bind(source string, v any) (string, error) {
	name := "p" + strconv.Itoa(len(w.parameters))
	placeholder := "@" + name

	if _, isList := asList(v); isList || isObject(v) {
		canonical, err := document.MarshalCanonical(v)
		if err != nil {
			return "", err
		}
		w.parameters = append(w.parameters, Parameter{Name: name, Source: source, Value: string(canonical)})
		return "json(" + placeholder + ")", nil
	}

	w.parameters = append(w.parameters, Parameter{Name: name, Source: source, Value: bindValue(v)})
	return placeholder, nil
}

// fromRaw substitutes positional arguments into raw query text. Each
// argument is converted through the mapping of its own type. Constant
// argument lists are inlined as literals; parameter lists bind one
// placeholder per element. {{ and }} are literal braces.
func (w *writer) fromRaw(fr *queryir.FromRaw) (string, error) {
	var args []string
	switch a := fr.Arguments.(type) {
	case nil:
	case *queryir.Constant:
		if a.Value != nil {
			list, ok := asList(a.Value)
			if !ok {
				return "", queryir.NewGenerationError(queryir.ErrCodeInvalidFromRaw, queryir.KindFromRaw,
					"raw query arguments must be a list, got %T", a.Value)
			}
			for i, v := range list {
				cv, err := w.convertRaw(v)
				if err != nil {
					return "", queryir.NewGenerationError(queryir.ErrCodeInvalidFromRaw, queryir.KindFromRaw,
						"argument %d: %v", i, err)
				}
				lit, err := literal(cv)
				if err != nil {
					return "", err
				}
				args = append(args, lit)
			}
		}
	case *queryir.Parameter:
		raw, ok := w.params[a.Name]
		if !ok {
			return "", queryir.NewGenerationError(queryir.ErrCodeMissingParameter, queryir.KindFromRaw,
				"no value supplied for raw query arguments").WithDetail("parameter", a.Name)
		}
		list, ok := asList(raw)
		if !ok {
			return "", queryir.NewGenerationError(queryir.ErrCodeInvalidFromRaw, queryir.KindFromRaw,
				"raw query arguments must be a list, got %T", raw).WithDetail("parameter", a.Name)
		}
		for i, v := range list {
			rendered, err := w.rawParameter(fmt.Sprintf("%s[%d]", a.Name, i), v)
			if err != nil {
				return "", queryir.NewGenerationError(queryir.ErrCodeInvalidFromRaw, queryir.KindFromRaw,
					"argument %d: %v", i, err).WithDetail("parameter", a.Name)
			}
			args = append(args, rendered)
		}
	default:
		return "", queryir.NewGenerationError(queryir.ErrCodeInvalidFromRaw, queryir.KindFromRaw,
			"raw query arguments must be a constant or parameter, got %s", a.Kind())
	}
	return substitute(fr.Text, args)
}

func (w *writer) rawParameter(source string, v any) (string, error) {
	cv, err := w.convertRaw(v)
	if err != nil {
		return "", err
	}
	return w.bind(source, cv)
}

// convertRaw applies the mapping of v's own type to a raw query argument.
func (w *writer) convertRaw(v any) (any, error) {
	if isNilValue(v) {
		return v, nil
	}
	return convert(v, w.source.FindMapping(typemap.TypeOf(v)))
}

func substitute(text string, args []string) (string, error) {
	var b strings.Builder
	maxIndex := -1
	for i := 0; i < len(text); {
		switch c := text[i]; c {
		case '{':
			if i+1 < len(text) && text[i+1] == '{' {
				b.WriteByte('{')
				i += 2
				continue
			}
			j := i + 1
			for j < len(text) && text[j] >= '0' && text[j] <= '9' {
				j++
			}
			if j == i+1 || j >= len(text) || text[j] != '}' {
				return "", queryir.NewGenerationError(queryir.ErrCodeInvalidFromRaw, queryir.KindFromRaw,
					"malformed placeholder at offset %d", i)
			}
			idx, err := strconv.Atoi(text[i+1 : j])
			if err != nil {
				return "", queryir.NewGenerationError(queryir.ErrCodeInvalidFromRaw, queryir.KindFromRaw,
					"placeholder index at offset %d: %v", i, err)
			}
			maxIndex = max(maxIndex, idx)
			if idx < len(args) {
				b.WriteString(args[idx])
			}
			i = j + 1
		case '}':
			if i+1 < len(text) && text[i+1] == '}' {
				b.WriteByte('}')
				i += 2
				continue
			}
			return "", queryir.NewGenerationError(queryir.ErrCodeInvalidFromRaw, queryir.KindFromRaw,
				"unmatched '}' at offset %d", i)
		default:
			b.WriteByte(c)
			i++
		}
	}
	if maxIndex+1 != len(args) {
		return "", &ArityMismatchError{Expected: maxIndex + 1, Actual: len(args)}
	}
	return b.String(), nil
}

// convert applies m's converter to v. Integers under enum and char
// mappings are first lifted to the mapped type.
func convert(v any, m *typemap.Mapping) (any, error) {
	if m == nil || m.Converter == nil || isNilValue(v) {
		return v, nil
	}
	switch m.ClrType.Unwrap().Kind {
	case typemap.KindEnum:
		if n, ok := typemap.AsInt64(v); ok && m.ClrType.Enum != nil {
			v = typemap.EnumValue{Enum: m.ClrType.Enum, Ordinal: n}
		}
	case typemap.KindChar:
		if n, ok := typemap.AsInt64(v); ok {
			v = rune(n)
		}
	}
	return m.Converter.ConvertToProvider(v)
}

// bindValue narrows v to a type the sqlite driver binds without surprises.
func bindValue(v any) any {
	switch val := v.(type) {
	case time.Time:
		return val.UTC().Format(time.RFC3339Nano)
	case uuid.UUID:
		return val.String()
	case typemap.EnumValue:
		return val.Ordinal
	case float32:
		return float64(val)
	}
	if n, ok := typemap.AsInt64(v); ok {
		return n
	}
	return v
}

// literal renders v as SQLite literal text.
func literal(v any) (string, error) {
	if dv, ok := v.(document.Value); ok {
		v = document.ToAny(dv)
	}
	switch val := v.(type) {
	case nil:
		return "NULL", nil
	case bool:
		if val {
			return "true", nil
		}
		return "false", nil
	case string:
		return quoteString(val), nil
	case float64:
		return formatFloat(val)
	case float32:
		return formatFloat(float64(val))
	case []byte:
		return fmt.Sprintf("X'%X'", val), nil
	case time.Time:
		return quoteString(val.UTC().Format(time.RFC3339Nano)), nil
	case uuid.UUID:
		return quoteString(val.String()), nil
	case typemap.EnumValue:
		return strconv.FormatInt(val.Ordinal, 10), nil
	}
	if n, ok := typemap.AsInt64(v); ok {
		return strconv.FormatInt(n, 10), nil
	}
	if isNilValue(v) {
		return "NULL", nil
	}
	if list, ok := asList(v); ok {
		parts := make([]string, len(list))
		for i, elem := range list {
			lit, err := literal(elem)
			if err != nil {
				return "", err
			}
			parts[i] = lit
		}
		return "json_array(" + strings.Join(parts, ", ") + ")", nil
	}
	if isObject(v) {
		canonical, err := document.MarshalCanonical(v)
		if err != nil {
			return "", queryir.NewGenerationError(queryir.ErrCodeInvalidConstant, queryir.KindConstant, "%v", err)
		}
		return "json(" + quoteString(string(canonical)) + ")", nil
	}
	return "", queryir.NewGenerationError(queryir.ErrCodeInvalidConstant, queryir.KindConstant,
		"no literal form for %T", v)
}

func formatFloat(f float64) (string, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return "", queryir.NewGenerationError(queryir.ErrCodeInvalidConstant, queryir.KindConstant,
			"non-finite number %v", f)
	}
	s := strconv.FormatFloat(f, 'g', -1, 64)
	if !strings.ContainsAny(s, ".eE") {
		s += ".0"
	}
	return s, nil
}

func quoteString(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

func quoteIdent(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

// asList flattens any slice other than []byte into []any.
func asList(v any) ([]any, bool) {
	switch val := v.(type) {
	case []any:
		return val, true
	case document.Array:
		out := make([]any, len(val))
		for i, elem := range val {
			out[i] = document.ToAny(elem)
		}
		return out, true
	case nil, []byte:
		return nil, false
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, false
	}
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out, true
}

func isObject(v any) bool {
	switch v.(type) {
	case map[string]any, document.Object:
		return true
	}
	rv := reflect.ValueOf(v)
	return rv.Kind() == reflect.Map && rv.Type().Key().Kind() == reflect.String
}

func isNilValue(v any) bool {
	if v == nil {
		return true
	}
	if _, ok := v.(document.Null); ok {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Interface, reflect.Slice:
		return rv.IsNil()
	}
	return false
}
