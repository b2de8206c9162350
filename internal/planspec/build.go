package planspec

import (
	"fmt"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/roach88/docql/internal/model"
	"github.com/roach88/docql/internal/queryir"
	"github.com/roach88/docql/internal/translate"
	"github.com/roach88/docql/internal/typemap"
)

var binaryForms = map[string]queryir.Operator{
	"eq":       queryir.OpEq,
	"ne":       queryir.OpNeq,
	"lt":       queryir.OpLt,
	"le":       queryir.OpLte,
	"gt":       queryir.OpGt,
	"ge":       queryir.OpGte,
	"and":      queryir.OpAndAlso,
	"or":       queryir.OpOrElse,
	"add":      queryir.OpAdd,
	"sub":      queryir.OpSub,
	"mul":      queryir.OpMul,
	"div":      queryir.OpDiv,
	"mod":      queryir.OpMod,
	"bit_and":  queryir.OpAnd,
	"bit_or":   queryir.OpOr,
	"xor":      queryir.OpXor,
	"shl":      queryir.OpShl,
	"shr":      queryir.OpShr,
	"coalesce": queryir.OpCoalesce,
	"power":    queryir.OpPower,
}

// Builder turns plans into query IR against one model.
type Builder struct {
	model   *model.Model
	factory *queryir.Factory
	members *translate.MemberRegistry
	methods *translate.MethodRegistry
}

// NewBuilder creates a builder with the built-in translation rules.
func NewBuilder(m *model.Model, f *queryir.Factory) *Builder {
	return &Builder{
		model:   m,
		factory: f,
		members: translate.NewMemberRegistry(f),
		methods: translate.NewMethodRegistry(f),
	}
}

// Members returns the member registry, for adding plugins.
func (b *Builder) Members() *translate.MemberRegistry { return b.members }

// Methods returns the method registry, for adding plugins.
func (b *Builder) Methods() *translate.MethodRegistry { return b.methods }

// Entity resolves the plan's entity.
func (b *Builder) Entity(p *Plan) (*model.EntityType, error) {
	e, ok := b.model.Entity(p.Entity)
	if !ok {
		return nil, &PlanError{Path: "entity", Message: fmt.Sprintf("unknown entity %q", p.Entity)}
	}
	return e, nil
}

// Build produces the plan's select. Operators are applied in the order
// where, order_by, select, distinct, skip, take.
func (b *Builder) Build(p *Plan) (*queryir.Select, error) {
	entity, err := b.Entity(p)
	if err != nil {
		return nil, err
	}
	s := &scope{
		Builder: b,
		root:    b.factory.Root(queryir.DefaultAlias, entity),
		params:  make(map[string]typemap.Type, len(p.Parameters)),
	}
	for _, name := range p.ParameterNames() {
		typ, err := typemap.ParseType(p.Parameters[name], b.model.Enums())
		if err != nil {
			return nil, &PlanError{Path: "parameters." + name, Err: err}
		}
		s.params[name] = typ
	}

	f := b.factory
	var sel *queryir.Select
	if p.FromRaw != nil {
		var args queryir.Expr
		if !isAbsent(&p.FromRaw.Args) {
			if args, err = s.expr(&p.FromRaw.Args, "from_raw.args"); err != nil {
				return nil, err
			}
		}
		sel, err = f.FromRaw(entity, p.FromRaw.Text, args)
	} else {
		sel, err = f.Select(entity)
	}
	if err != nil {
		return nil, fmt.Errorf("entity %s: %w", entity.Name, err)
	}

	if !isAbsent(&p.Where) {
		pred, err := s.expr(&p.Where, "where")
		if err != nil {
			return nil, err
		}
		sel = f.Where(sel, pred)
	}
	for i := range p.OrderBy {
		o := &p.OrderBy[i]
		e, err := s.expr(&o.Expr, fmt.Sprintf("order_by[%d]", i))
		if err != nil {
			return nil, err
		}
		sel = f.OrderBy(sel, e, !o.Desc)
	}
	for i := range p.Select {
		proj := &p.Select[i]
		e, err := s.expr(&proj.Expr, fmt.Sprintf("select[%d]", i))
		if err != nil {
			return nil, err
		}
		sel = f.Project(sel, proj.As, e)
	}
	if p.Distinct {
		sel = f.Distinct(sel)
	}
	if !isAbsent(&p.Skip) {
		e, err := s.expr(&p.Skip, "skip")
		if err != nil {
			return nil, err
		}
		sel = f.Skip(sel, e)
	}
	if !isAbsent(&p.Take) {
		e, err := s.expr(&p.Take, "take")
		if err != nil {
			return nil, err
		}
		sel = f.Take(sel, e)
	}
	return sel, nil
}

// scope is the state of one Build call.
type scope struct {
	*Builder
	root   *queryir.RootReference
	params map[string]typemap.Type
}

func fail(n *yaml.Node, path, format string, args ...any) error {
	return &PlanError{Path: path, Line: n.Line, Message: fmt.Sprintf(format, args...)}
}

func wrap(n *yaml.Node, path string, err error) error {
	if IsPlanError(err) {
		return err
	}
	return &PlanError{Path: path, Line: n.Line, Err: err}
}

func (s *scope) expr(n *yaml.Node, path string) (queryir.Expr, error) {
	if n.Kind == yaml.AliasNode {
		return s.expr(n.Alias, path)
	}
	if n.Kind != yaml.MappingNode {
		return s.constant(n, path)
	}
	if len(n.Content) != 2 {
		return nil, fail(n, path, "expression must have exactly one key, got %d", len(n.Content)/2)
	}
	form, val := n.Content[0].Value, n.Content[1]
	path = path + "." + form
	f := s.factory

	if op, ok := binaryForms[form]; ok {
		return s.binary(op, val, path)
	}

	switch form {
	case "const":
		return s.constant(val, path)
	case "prop":
		return s.property(val, path)
	case "nav":
		return s.navigation(val, path, false)
	case "array":
		return s.navigation(val, path, true)
	case "param":
		return s.parameter(val, path)
	case "not", "neg", "is_null", "is_not_null":
		operand, err := s.expr(val, path)
		if err != nil {
			return nil, err
		}
		switch form {
		case "not":
			return f.Not(operand), nil
		case "neg":
			return f.Negate(operand), nil
		case "is_null":
			return f.IsNull(operand), nil
		default:
			return f.IsNotNull(operand), nil
		}
	case "in":
		return s.membership(val, path)
	case "if":
		ops, err := s.operands(val, path, 3, 3)
		if err != nil {
			return nil, err
		}
		return f.Condition(ops[0], ops[1], ops[2]), nil
	case "convert":
		return s.convert(val, path)
	case "func":
		return s.function(val, path)
	case "member":
		return s.member(val, path)
	case "call":
		return s.call(val, path)
	}
	return nil, fail(n, path, "unknown expression form %q", form)
}

func (s *scope) constant(n *yaml.Node, path string) (queryir.Expr, error) {
	var v any
	if err := n.Decode(&v); err != nil {
		return nil, wrap(n, path, err)
	}
	return s.factory.Constant(v, nil), nil
}

func (s *scope) binary(op queryir.Operator, n *yaml.Node, path string) (queryir.Expr, error) {
	maxOps := 2
	if op.IsLogical() {
		maxOps = -1
	}
	ops, err := s.operands(n, path, 2, maxOps)
	if err != nil {
		return nil, err
	}
	out := ops[0]
	for _, next := range ops[1:] {
		b, err := s.factory.MakeBinary(op, out, next, nil)
		if err != nil {
			return nil, wrap(n, path, err)
		}
		out = b
	}
	return out, nil
}

// operands builds a sequence of expressions; maxOps < 0 means unbounded.
func (s *scope) operands(n *yaml.Node, path string, minOps, maxOps int) ([]queryir.Expr, error) {
	if n.Kind != yaml.SequenceNode {
		return nil, fail(n, path, "expected a list of operands")
	}
	count := len(n.Content)
	if count < minOps || (maxOps >= 0 && count > maxOps) {
		if minOps == maxOps {
			return nil, fail(n, path, "expected %d operands, got %d", minOps, count)
		}
		return nil, fail(n, path, "expected at least %d operands, got %d", minOps, count)
	}
	out := make([]queryir.Expr, count)
	for i, item := range n.Content {
		e, err := s.expr(item, fmt.Sprintf("%s[%d]", path, i))
		if err != nil {
			return nil, err
		}
		out[i] = e
	}
	return out, nil
}

func scalarString(n *yaml.Node, path, what string) (string, error) {
	if n.Kind != yaml.ScalarNode || strings.TrimSpace(n.Value) == "" {
		return "", fail(n, path, "expected %s", what)
	}
	return n.Value, nil
}

// walk follows owned navigations from the root through all but the last
// segment of a dotted path and returns the accessor and the last segment.
func (s *scope) walk(n *yaml.Node, path string) (queryir.Expr, string, error) {
	text, err := scalarString(n, path, "a property path")
	if err != nil {
		return nil, "", err
	}
	segments := strings.Split(text, ".")
	var accessor queryir.Expr = s.root
	for _, seg := range segments[:len(segments)-1] {
		nav, err := s.factory.Navigation(accessor, seg)
		if err != nil {
			return nil, "", wrap(n, path, err)
		}
		accessor = nav
	}
	return accessor, segments[len(segments)-1], nil
}

func (s *scope) property(n *yaml.Node, path string) (queryir.Expr, error) {
	accessor, name, err := s.walk(n, path)
	if err != nil {
		return nil, err
	}
	p, err := s.factory.Property(accessor, name)
	if err != nil {
		return nil, wrap(n, path, err)
	}
	return p, nil
}

func (s *scope) navigation(n *yaml.Node, path string, collection bool) (queryir.Expr, error) {
	accessor, name, err := s.walk(n, path)
	if err != nil {
		return nil, err
	}
	var e queryir.Expr
	if collection {
		e, err = s.factory.ObjectArray(accessor, name)
	} else {
		e, err = s.factory.Navigation(accessor, name)
	}
	if err != nil {
		return nil, wrap(n, path, err)
	}
	return e, nil
}

func (s *scope) parameter(n *yaml.Node, path string) (queryir.Expr, error) {
	name, err := scalarString(n, path, "a parameter name")
	if err != nil {
		return nil, err
	}
	typ, ok := s.params[name]
	if !ok {
		return nil, fail(n, path, "parameter %q not declared", name)
	}
	return s.factory.Parameter(name, typ, nil), nil
}

func (s *scope) typeOf(n *yaml.Node, path string) (typemap.Type, error) {
	text, err := scalarString(n, path, "a type")
	if err != nil {
		return typemap.Type{}, err
	}
	typ, err := typemap.ParseType(text, s.model.Enums())
	if err != nil {
		return typemap.Type{}, wrap(n, path, err)
	}
	return typ, nil
}

// fields splits a mapping into its keys, rejecting keys outside allowed
// and missing required ones.
func fields(n *yaml.Node, path string, required []string, optional ...string) (map[string]*yaml.Node, error) {
	if n.Kind != yaml.MappingNode {
		return nil, fail(n, path, "expected a mapping")
	}
	allowed := make(map[string]bool, len(required)+len(optional))
	for _, k := range required {
		allowed[k] = true
	}
	for _, k := range optional {
		allowed[k] = true
	}
	out := make(map[string]*yaml.Node, len(n.Content)/2)
	for i := 0; i+1 < len(n.Content); i += 2 {
		key := n.Content[i].Value
		if !allowed[key] {
			keys := make([]string, 0, len(allowed))
			for k := range allowed {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			return nil, fail(n.Content[i], path, "unknown field %q (want one of %s)", key, strings.Join(keys, ", "))
		}
		out[key] = n.Content[i+1]
	}
	for _, k := range required {
		if _, ok := out[k]; !ok {
			return nil, fail(n, path, "%s is required", k)
		}
	}
	return out, nil
}

func (s *scope) membership(n *yaml.Node, path string) (queryir.Expr, error) {
	fs, err := fields(n, path, []string{"item", "values"}, "negated")
	if err != nil {
		return nil, err
	}
	item, err := s.expr(fs["item"], path+".item")
	if err != nil {
		return nil, err
	}
	values, err := s.expr(fs["values"], path+".values")
	if err != nil {
		return nil, err
	}
	var negated bool
	if neg, ok := fs["negated"]; ok {
		if err := neg.Decode(&negated); err != nil {
			return nil, wrap(neg, path+".negated", err)
		}
	}
	return s.factory.In(item, values, negated), nil
}

func (s *scope) convert(n *yaml.Node, path string) (queryir.Expr, error) {
	fs, err := fields(n, path, []string{"expr", "type"})
	if err != nil {
		return nil, err
	}
	operand, err := s.expr(fs["expr"], path+".expr")
	if err != nil {
		return nil, err
	}
	typ, err := s.typeOf(fs["type"], path+".type")
	if err != nil {
		return nil, err
	}
	return s.factory.Convert(operand, typ), nil
}

func (s *scope) arguments(fs map[string]*yaml.Node, path string) ([]queryir.Expr, error) {
	n, ok := fs["args"]
	if !ok {
		return nil, nil
	}
	return s.operands(n, path+".args", 0, -1)
}

func (s *scope) function(n *yaml.Node, path string) (queryir.Expr, error) {
	fs, err := fields(n, path, []string{"name", "returns"}, "args")
	if err != nil {
		return nil, err
	}
	name, err := scalarString(fs["name"], path+".name", "a function name")
	if err != nil {
		return nil, err
	}
	args, err := s.arguments(fs, path)
	if err != nil {
		return nil, err
	}
	returns, err := s.typeOf(fs["returns"], path+".returns")
	if err != nil {
		return nil, err
	}
	return s.factory.Function(name, args, returns, nil), nil
}

// receiver resolves the instance and declaring type of a member or call.
// An instance reference takes the instance's type unless declaring
// overrides it.
func (s *scope) receiver(fs map[string]*yaml.Node, path string) (queryir.Expr, typemap.Type, error) {
	var instance queryir.Expr
	var declaring typemap.Type
	if on, ok := fs["on"]; ok {
		e, err := s.expr(on, path+".on")
		if err != nil {
			return nil, declaring, err
		}
		instance, declaring = e, e.Type()
	}
	if d, ok := fs["declaring"]; ok {
		typ, err := s.typeOf(d, path+".declaring")
		if err != nil {
			return nil, declaring, err
		}
		declaring = typ
	}
	return instance, declaring, nil
}

func (s *scope) member(n *yaml.Node, path string) (queryir.Expr, error) {
	fs, err := fields(n, path, []string{"name"}, "on", "declaring", "returns")
	if err != nil {
		return nil, err
	}
	name, err := scalarString(fs["name"], path+".name", "a member name")
	if err != nil {
		return nil, err
	}
	instance, declaring, err := s.receiver(fs, path)
	if err != nil {
		return nil, err
	}
	if instance == nil && declaring.IsZero() {
		return nil, fail(n, path, "on or declaring is required")
	}
	returns := declaring
	if r, ok := fs["returns"]; ok {
		if returns, err = s.typeOf(r, path+".returns"); err != nil {
			return nil, err
		}
	}
	e := s.members.Translate(instance, translate.Member{DeclaringType: declaring, Name: name}, returns)
	if e == nil {
		return nil, fail(n, path, "no translation for member %s.%s", declaring, name)
	}
	return e, nil
}

func (s *scope) call(n *yaml.Node, path string) (queryir.Expr, error) {
	fs, err := fields(n, path, []string{"method"}, "on", "declaring", "args")
	if err != nil {
		return nil, err
	}
	name, err := scalarString(fs["method"], path+".method", "a method name")
	if err != nil {
		return nil, err
	}
	args, err := s.arguments(fs, path)
	if err != nil {
		return nil, err
	}
	// With neither on nor declaring this is a static call such as
	// Equals(a, b).
	instance, declaring, err := s.receiver(fs, path)
	if err != nil {
		return nil, err
	}
	e := s.methods.Translate(instance, translate.Method{DeclaringType: declaring, Name: name}, args)
	if e == nil {
		return nil, fail(n, path, "no translation for method %s", name)
	}
	return e, nil
}
