package queryir

import (
	"fmt"

	"github.com/roach88/docql/internal/model"
	"github.com/roach88/docql/internal/typemap"
)

// DefaultAlias is the alias of the root document in generated queries.
const DefaultAlias = "c"

// Factory constructs IR nodes and propagates type mappings through them.
//
// Leaves (Constant, Parameter) may be created without a mapping; they pick
// one up from the expression they are composed into. Composite
// constructors always return mapped nodes.
type Factory struct {
	source      typemap.Source
	boolMapping *typemap.Mapping
}

// NewFactory creates a Factory resolving mappings through source.
func NewFactory(source typemap.Source) *Factory {
	return &Factory{
		source:      source,
		boolMapping: source.FindMapping(typemap.Bool),
	}
}

// Source returns the mapping source.
func (f *Factory) Source() typemap.Source {
	return f.source
}

// BoolMapping returns the mapping used for boolean results.
func (f *Factory) BoolMapping() *typemap.Mapping {
	return f.boolMapping
}

// FindMapping looks up the default mapping for t.
func (f *Factory) FindMapping(t typemap.Type) *typemap.Mapping {
	if t.Kind == typemap.KindNull {
		return nil
	}
	return f.source.FindMapping(t)
}

// ApplyDefaultTypeMapping maps e by its own type unless it is already mapped.
func (f *Factory) ApplyDefaultTypeMapping(e Expr) Expr {
	if e == nil || e.Mapping() != nil {
		return e
	}
	return f.ApplyTypeMapping(e, f.FindMapping(e.Type()))
}

// ApplyTypeMapping pushes m down through e. Nodes that already carry a
// mapping are returned unchanged, which makes the operation idempotent.
func (f *Factory) ApplyTypeMapping(e Expr, m *typemap.Mapping) Expr {
	if e == nil || e.Mapping() != nil {
		return e
	}
	switch n := e.(type) {
	case *Conditional:
		return f.applyOnConditional(n, m)
	case *Binary:
		return f.applyOnBinary(n, m)
	case *Unary:
		return f.applyOnUnary(n, m)
	case *Constant:
		return n.ApplyTypeMapping(m)
	case *Parameter:
		return n.ApplyTypeMapping(m)
	case *Function:
		return n.ApplyTypeMapping(m)
	case *KeyAccess:
		return &KeyAccess{Accessor: n.Accessor, Name: n.Name, ClrType: n.ClrType, TypeMapping: m}
	default:
		return e
	}
}

// inferTypeMapping returns the first mapping carried by the expressions.
func inferTypeMapping(exprs ...Expr) *typemap.Mapping {
	for _, e := range exprs {
		if e != nil && e.Mapping() != nil {
			return e.Mapping()
		}
	}
	return nil
}

func (f *Factory) applyOnConditional(c *Conditional, m *typemap.Mapping) Expr {
	return &Conditional{
		Test:    f.ApplyTypeMapping(c.Test, f.boolMapping),
		IfTrue:  f.ApplyTypeMapping(c.IfTrue, m),
		IfFalse: f.ApplyTypeMapping(c.IfFalse, m),
	}
}

func (f *Factory) applyOnBinary(b *Binary, m *typemap.Mapping) *Binary {
	left, right := b.Left, b.Right

	var operandMapping, resultMapping *typemap.Mapping
	var resultType typemap.Type

	switch {
	case b.Op.IsComparison():
		operandMapping = inferTypeMapping(left, right)
		if operandMapping == nil {
			lookup := left.Type()
			if k := lookup.Kind; k == typemap.KindObject || k == typemap.KindNull {
				lookup = right.Type()
			}
			operandMapping = f.FindMapping(lookup)
		}
		resultType = typemap.Bool
		resultMapping = f.boolMapping

	case b.Op.IsLogical():
		operandMapping = f.boolMapping
		resultType = typemap.Bool
		resultMapping = f.boolMapping

	default:
		operandMapping = m
		if operandMapping == nil {
			operandMapping = inferTypeMapping(left, right)
		}
		if operandMapping == nil {
			operandMapping = f.FindMapping(left.Type())
		}
		resultType = left.Type()
		if operandMapping != nil {
			resultType = operandMapping.ClrType
		}
		resultMapping = operandMapping
	}

	return &Binary{
		Op:          b.Op,
		Left:        f.ApplyTypeMapping(left, operandMapping),
		Right:       f.ApplyTypeMapping(right, operandMapping),
		ClrType:     resultType,
		TypeMapping: resultMapping,
	}
}

func (f *Factory) applyOnUnary(u *Unary, m *typemap.Mapping) *Unary {
	operand := u.Operand
	switch {
	case u.Op == OpNot && operand.Type().Unwrap().Kind == typemap.KindBool:
		return &Unary{Op: OpNot, Operand: f.ApplyDefaultTypeMapping(operand), ClrType: typemap.Bool, TypeMapping: f.boolMapping}

	case u.Op == OpConvert:
		typ := u.ClrType
		if typ.IsZero() && m != nil {
			typ = m.ClrType
		}
		return &Unary{Op: OpConvert, Operand: f.ApplyDefaultTypeMapping(operand), ClrType: typ, TypeMapping: m}

	default:
		if m == nil {
			m = inferTypeMapping(operand)
		}
		if m == nil {
			m = f.FindMapping(operand.Type())
		}
		typ := u.ClrType
		if typ.IsZero() {
			typ = operand.Type()
		}
		return &Unary{Op: u.Op, Operand: f.ApplyTypeMapping(operand, m), ClrType: typ, TypeMapping: m}
	}
}

// MakeBinary builds a mapped binary node. Operators outside the allowed set
// fail with *UnsupportedOperatorError.
func (f *Factory) MakeBinary(op Operator, left, right Expr, m *typemap.Mapping) (*Binary, error) {
	b, err := NewBinary(op, left, right, typemap.Null, nil)
	if err != nil {
		return nil, err
	}
	return f.applyOnBinary(b, m), nil
}

func (f *Factory) binary(op Operator, left, right Expr) *Binary {
	b, err := f.MakeBinary(op, left, right, nil)
	if err != nil {
		panic(fmt.Sprintf("queryir: %v", err))
	}
	return b
}

func (f *Factory) Equal(left, right Expr) *Binary              { return f.binary(OpEq, left, right) }
func (f *Factory) NotEqual(left, right Expr) *Binary           { return f.binary(OpNeq, left, right) }
func (f *Factory) LessThan(left, right Expr) *Binary           { return f.binary(OpLt, left, right) }
func (f *Factory) LessThanOrEqual(left, right Expr) *Binary    { return f.binary(OpLte, left, right) }
func (f *Factory) GreaterThan(left, right Expr) *Binary        { return f.binary(OpGt, left, right) }
func (f *Factory) GreaterThanOrEqual(left, right Expr) *Binary { return f.binary(OpGte, left, right) }
func (f *Factory) AndAlso(left, right Expr) *Binary            { return f.binary(OpAndAlso, left, right) }
func (f *Factory) OrElse(left, right Expr) *Binary             { return f.binary(OpOrElse, left, right) }
func (f *Factory) Add(left, right Expr) *Binary                { return f.binary(OpAdd, left, right) }
func (f *Factory) Subtract(left, right Expr) *Binary           { return f.binary(OpSub, left, right) }
func (f *Factory) Multiply(left, right Expr) *Binary           { return f.binary(OpMul, left, right) }
func (f *Factory) Divide(left, right Expr) *Binary             { return f.binary(OpDiv, left, right) }
func (f *Factory) Modulo(left, right Expr) *Binary             { return f.binary(OpMod, left, right) }
func (f *Factory) And(left, right Expr) *Binary                { return f.binary(OpAnd, left, right) }
func (f *Factory) Or(left, right Expr) *Binary                 { return f.binary(OpOr, left, right) }
func (f *Factory) Xor(left, right Expr) *Binary                { return f.binary(OpXor, left, right) }
func (f *Factory) LeftShift(left, right Expr) *Binary          { return f.binary(OpShl, left, right) }
func (f *Factory) RightShift(left, right Expr) *Binary         { return f.binary(OpShr, left, right) }

// IsNull is Equal(e, null).
func (f *Factory) IsNull(e Expr) *Binary {
	return f.Equal(e, f.Constant(nil, nil))
}

// IsNotNull is NotEqual(e, null).
func (f *Factory) IsNotNull(e Expr) *Binary {
	return f.NotEqual(e, f.Constant(nil, nil))
}

// MakeUnary builds a mapped unary node. Operators outside the allowed set
// fail with *UnsupportedOperatorError.
func (f *Factory) MakeUnary(op Operator, operand Expr, typ typemap.Type, m *typemap.Mapping) (*Unary, error) {
	u, err := NewUnary(op, operand, typ, nil)
	if err != nil {
		return nil, err
	}
	return f.applyOnUnary(u, m), nil
}

// Not negates a boolean, or complements an integer.
func (f *Factory) Not(operand Expr) *Unary {
	return f.applyOnUnary(&Unary{Op: OpNot, Operand: operand}, nil)
}

// Negate is arithmetic negation.
func (f *Factory) Negate(operand Expr) *Unary {
	return f.applyOnUnary(&Unary{Op: OpNegate, Operand: operand}, nil)
}

// Convert changes operand's type to typ.
func (f *Factory) Convert(operand Expr, typ typemap.Type) *Unary {
	return f.applyOnUnary(&Unary{Op: OpConvert, Operand: operand, ClrType: typ}, f.FindMapping(typ))
}

// Condition builds test ? ifTrue : ifFalse with the branches sharing one
// inferred mapping.
func (f *Factory) Condition(test, ifTrue, ifFalse Expr) Expr {
	m := inferTypeMapping(ifTrue, ifFalse)
	if m == nil {
		m = f.FindMapping(NewConditional(test, ifTrue, ifFalse).Type())
	}
	return f.applyOnConditional(NewConditional(test, ifTrue, ifFalse), m)
}

// In builds a membership test. The item's mapping (its own, else its type's
// default) is applied to both the item and the values.
func (f *Factory) In(item, values Expr, negated bool) *In {
	m := item.Mapping()
	if m == nil {
		m = f.FindMapping(item.Type())
	}
	return &In{
		Item:        f.ApplyTypeMapping(item, m),
		Values:      f.ApplyTypeMapping(values, m),
		Negated:     negated,
		TypeMapping: f.boolMapping,
	}
}

// Function builds a function call; each argument gets its default mapping.
func (f *Factory) Function(name string, args []Expr, returnType typemap.Type, m *typemap.Mapping) *Function {
	mapped := make([]Expr, len(args))
	for i, a := range args {
		mapped[i] = f.ApplyDefaultTypeMapping(a)
	}
	if m == nil {
		m = f.FindMapping(returnType)
	}
	return &Function{Name: name, Args: mapped, ClrType: returnType, TypeMapping: m}
}

// Constant builds a literal; m may be nil.
func (f *Factory) Constant(value any, m *typemap.Mapping) *Constant {
	return NewConstant(value, m)
}

// Parameter builds a parameter reference; m may be nil.
func (f *Factory) Parameter(name string, typ typemap.Type, m *typemap.Mapping) *Parameter {
	return NewParameter(name, typ, m)
}

// Root builds the root document reference.
func (f *Factory) Root(alias string, entity *model.EntityType) *RootReference {
	return &RootReference{Alias: alias, Entity: entity}
}

func entityOf(accessor Expr) *model.EntityType {
	switch a := accessor.(type) {
	case *RootReference:
		return a.Entity
	case *ObjectAccess:
		return a.Entity
	case *EntityProjection:
		return a.Entity
	}
	return nil
}

// Property reads a scalar field through accessor. When the accessor's
// entity is known the property must exist and its type drives the mapping.
func (f *Factory) Property(accessor Expr, name string) (*KeyAccess, error) {
	entity := entityOf(accessor)
	if entity == nil {
		return &KeyAccess{Accessor: accessor, Name: name, ClrType: typemap.Object}, nil
	}
	p := entity.FindProperty(name)
	if p == nil {
		return nil, NewGenerationError(ErrCodeUnknownMember, KindKeyAccess,
			"property %q not found", name).WithDetail("entity", entity.Name)
	}
	return &KeyAccess{Accessor: accessor, Name: name, ClrType: p.Type, TypeMapping: f.FindMapping(p.Type)}, nil
}

// Navigation reads an owned sub-document through accessor.
func (f *Factory) Navigation(accessor Expr, name string) (*ObjectAccess, error) {
	entity := entityOf(accessor)
	if entity == nil {
		return &ObjectAccess{Accessor: accessor, Name: name}, nil
	}
	nav := entity.FindNavigation(name)
	if nav == nil || nav.Collection {
		return nil, NewGenerationError(ErrCodeUnknownMember, KindObjectAccess,
			"navigation %q not found", name).WithDetail("entity", entity.Name)
	}
	return &ObjectAccess{Accessor: accessor, Name: name, Entity: nav.Target}, nil
}

// ObjectArray projects an owned collection navigation.
func (f *Factory) ObjectArray(accessor Expr, name string) (*ObjectArrayProjection, error) {
	entity := entityOf(accessor)
	var target *model.EntityType
	if entity != nil {
		nav := entity.FindNavigation(name)
		if nav == nil || !nav.Collection {
			return nil, NewGenerationError(ErrCodeUnknownMember, KindObjectArrayProjection,
				"collection navigation %q not found", name).WithDetail("entity", entity.Name)
		}
		target = nav.Target
	}
	return &ObjectArrayProjection{
		Accessor:   &ObjectAccess{Accessor: accessor, Name: name, Entity: target},
		InnerAlias: "i",
		Entity:     target,
	}, nil
}

// Select builds a plan over entity's collection, projecting the whole
// entity. When the entity has a discriminator, a predicate restricting the
// collection to entity's concrete types is injected: an equality for one
// concrete type, a membership test for several.
func (f *Factory) Select(entity *model.EntityType) (*Select, error) {
	root := f.Root(DefaultAlias, entity)
	sel := &Select{
		Collection:  entity.Collection(),
		Alias:       DefaultAlias,
		Projections: []*Projection{{Expr: &EntityProjection{Entity: entity, Access: root}}},
		Entity:      entity,
	}
	pred, err := f.discriminatorPredicate(entity, root)
	if err != nil {
		return nil, err
	}
	sel.Predicate = pred
	return sel, nil
}

// FromRaw builds a plan whose source is raw query text. The discriminator
// predicate is injected as for Select.
func (f *Factory) FromRaw(entity *model.EntityType, text string, args Expr) (*Select, error) {
	sel, err := f.Select(entity)
	if err != nil {
		return nil, err
	}
	sel.From = &FromRaw{Text: text, Alias: DefaultAlias, Arguments: args}
	return sel, nil
}

func (f *Factory) discriminatorPredicate(entity *model.EntityType, root *RootReference) (Expr, error) {
	prop := entity.DiscriminatorProperty()
	if prop == nil {
		if entity.IsInHierarchy() {
			return nil, NewGenerationError(ErrCodeMissingDiscriminator, KindSelect,
				"entity is part of an inheritance hierarchy but no discriminator property is defined").
				WithDetail("entity", entity.Name)
		}
		return nil, nil
	}

	access := &KeyAccess{Accessor: root, Name: prop.Name, ClrType: prop.Type, TypeMapping: f.FindMapping(prop.Type)}
	concrete := entity.ConcreteDerivedTypesInclusive()
	switch len(concrete) {
	case 0:
		return nil, NewGenerationError(ErrCodeMissingDiscriminator, KindSelect,
			"entity has no concrete types").WithDetail("entity", entity.Name)
	case 1:
		return f.Equal(access, f.Constant(concrete[0].DiscriminatorValue, nil)), nil
	default:
		values := make([]any, len(concrete))
		for i, t := range concrete {
			values[i] = t.DiscriminatorValue
		}
		return f.In(access, f.Constant(values, nil), false), nil
	}
}

// Where returns sel with pred AND-ed onto its predicate.
func (f *Factory) Where(sel *Select, pred Expr) *Select {
	out := sel.clone()
	pred = f.ApplyTypeMapping(pred, f.boolMapping)
	if out.Predicate == nil {
		out.Predicate = pred
	} else {
		out.Predicate = f.AndAlso(out.Predicate, pred)
	}
	return out
}

// OrderBy returns sel with one more ordering.
func (f *Factory) OrderBy(sel *Select, e Expr, ascending bool) *Select {
	out := sel.clone()
	out.Orderings = append(out.Orderings, &Ordering{Expr: f.ApplyDefaultTypeMapping(e), Ascending: ascending})
	return out
}

// Project returns sel with an aliased projection. The first call replaces
// the default whole-entity projection.
func (f *Factory) Project(sel *Select, alias string, e Expr) *Select {
	out := sel.clone()
	if len(out.Projections) == 1 && out.Projections[0].Alias == "" {
		if _, ok := out.Projections[0].Expr.(*EntityProjection); ok {
			out.Projections = nil
		}
	}
	out.Projections = append(out.Projections, &Projection{Alias: alias, Expr: f.ApplyDefaultTypeMapping(e)})
	return out
}

// Take returns sel limited to limit rows.
func (f *Factory) Take(sel *Select, limit Expr) *Select {
	out := sel.clone()
	out.Limit = f.ApplyTypeMapping(limit, f.FindMapping(typemap.Int))
	return out
}

// Skip returns sel skipping offset rows. A plan with Offset also needs a Limit.
func (f *Factory) Skip(sel *Select, offset Expr) *Select {
	out := sel.clone()
	out.Offset = f.ApplyTypeMapping(offset, f.FindMapping(typemap.Int))
	return out
}

// Distinct returns sel with duplicate rows removed.
func (f *Factory) Distinct(sel *Select) *Select {
	out := sel.clone()
	out.Distinct = true
	return out
}
