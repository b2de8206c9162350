package queryir

import (
	"fmt"

	"github.com/roach88/docql/internal/model"
	"github.com/roach88/docql/internal/typemap"
)

// Expr is a typed node of the query IR.
//
// This is a sealed interface - only types in this package implement it.
// Kind returns the node's discriminant, which the Rewriter dispatches on.
//
// Type is the node's semantic type. Mapping is its conversion rule; once a
// node carries a non-nil mapping, mapping application leaves it unchanged.
type Expr interface {
	Kind() NodeKind
	Type() typemap.Type
	Mapping() *typemap.Mapping
	exprNode() // Marker method - seals interface to this package
}

// NodeKind discriminates IR node variants.
type NodeKind int

const (
	KindBinary NodeKind = iota
	KindUnary
	KindConditional
	KindConstant
	KindParameter
	KindFunction
	KindIn
	KindOrdering
	KindProjection
	KindEntityProjection
	KindRootReference
	KindKeyAccess
	KindObjectAccess
	KindObjectArrayProjection
	KindFromRaw
	KindSelect
)

var nodeKindNames = [...]string{
	KindBinary:                "Binary",
	KindUnary:                 "Unary",
	KindConditional:           "Conditional",
	KindConstant:              "Constant",
	KindParameter:             "Parameter",
	KindFunction:              "Function",
	KindIn:                    "In",
	KindOrdering:              "Ordering",
	KindProjection:            "Projection",
	KindEntityProjection:      "EntityProjection",
	KindRootReference:         "RootReference",
	KindKeyAccess:             "KeyAccess",
	KindObjectAccess:          "ObjectAccess",
	KindObjectArrayProjection: "ObjectArrayProjection",
	KindFromRaw:               "FromRaw",
	KindSelect:                "Select",
}

func (k NodeKind) String() string {
	if int(k) >= 0 && int(k) < len(nodeKindNames) {
		return nodeKindNames[k]
	}
	return fmt.Sprintf("NodeKind(%d)", int(k))
}

// Operator is a binary or unary operator.
type Operator int

const (
	OpAdd Operator = iota
	OpSub
	OpMul
	OpDiv
	OpMod
	OpAnd // bitwise
	OpOr  // bitwise
	OpAndAlso
	OpOrElse
	OpLt
	OpLte
	OpGt
	OpGte
	OpEq
	OpNeq
	OpXor
	OpShl
	OpShr

	OpNot
	OpNegate
	OpUnaryPlus
	OpConvert

	// Declared so callers can name them; never legal in a node.
	OpCoalesce
	OpPower
	OpArrayIndex
)

var operatorNames = [...]string{
	OpAdd:        "Add",
	OpSub:        "Subtract",
	OpMul:        "Multiply",
	OpDiv:        "Divide",
	OpMod:        "Modulo",
	OpAnd:        "And",
	OpOr:         "Or",
	OpAndAlso:    "AndAlso",
	OpOrElse:     "OrElse",
	OpLt:         "LessThan",
	OpLte:        "LessThanOrEqual",
	OpGt:         "GreaterThan",
	OpGte:        "GreaterThanOrEqual",
	OpEq:         "Equal",
	OpNeq:        "NotEqual",
	OpXor:        "ExclusiveOr",
	OpShl:        "LeftShift",
	OpShr:        "RightShift",
	OpNot:        "Not",
	OpNegate:     "Negate",
	OpUnaryPlus:  "UnaryPlus",
	OpConvert:    "Convert",
	OpCoalesce:   "Coalesce",
	OpPower:      "Power",
	OpArrayIndex: "ArrayIndex",
}

func (o Operator) String() string {
	if int(o) >= 0 && int(o) < len(operatorNames) {
		return operatorNames[o]
	}
	return fmt.Sprintf("Operator(%d)", int(o))
}

var binaryOperators = map[Operator]bool{
	OpAdd: true, OpSub: true, OpMul: true, OpDiv: true, OpMod: true,
	OpAnd: true, OpOr: true, OpAndAlso: true, OpOrElse: true,
	OpLt: true, OpLte: true, OpGt: true, OpGte: true, OpEq: true, OpNeq: true,
	OpXor: true, OpShl: true, OpShr: true,
}

var unaryOperators = map[Operator]bool{
	OpNot: true, OpNegate: true, OpUnaryPlus: true, OpConvert: true,
}

// IsComparison reports whether o yields a boolean from two values.
func (o Operator) IsComparison() bool {
	switch o {
	case OpEq, OpNeq, OpLt, OpLte, OpGt, OpGte:
		return true
	}
	return false
}

// IsLogical reports whether o is AndAlso or OrElse.
func (o Operator) IsLogical() bool {
	return o == OpAndAlso || o == OpOrElse
}

// Binary is a two-operand operation.
type Binary struct {
	Op          Operator
	Left        Expr
	Right       Expr
	ClrType     typemap.Type
	TypeMapping *typemap.Mapping
}

// NewBinary validates the operator and builds an untyped-mapping node.
// Most callers go through Factory instead.
func NewBinary(op Operator, left, right Expr, typ typemap.Type, mapping *typemap.Mapping) (*Binary, error) {
	if !binaryOperators[op] {
		return nil, &UnsupportedOperatorError{Op: op, Node: KindBinary}
	}
	return &Binary{Op: op, Left: left, Right: right, ClrType: typ, TypeMapping: mapping}, nil
}

func (*Binary) exprNode()                   {}
func (*Binary) Kind() NodeKind              { return KindBinary }
func (b *Binary) Type() typemap.Type        { return b.ClrType }
func (b *Binary) Mapping() *typemap.Mapping { return b.TypeMapping }

// Update returns b when both children are unchanged.
func (b *Binary) Update(left, right Expr) *Binary {
	if left == b.Left && right == b.Right {
		return b
	}
	return &Binary{Op: b.Op, Left: left, Right: right, ClrType: b.ClrType, TypeMapping: b.TypeMapping}
}

// Unary is a one-operand operation.
type Unary struct {
	Op          Operator
	Operand     Expr
	ClrType     typemap.Type
	TypeMapping *typemap.Mapping
}

// NewUnary validates the operator.
func NewUnary(op Operator, operand Expr, typ typemap.Type, mapping *typemap.Mapping) (*Unary, error) {
	if !unaryOperators[op] {
		return nil, &UnsupportedOperatorError{Op: op, Node: KindUnary}
	}
	return &Unary{Op: op, Operand: operand, ClrType: typ, TypeMapping: mapping}, nil
}

func (*Unary) exprNode()                   {}
func (*Unary) Kind() NodeKind              { return KindUnary }
func (u *Unary) Type() typemap.Type        { return u.ClrType }
func (u *Unary) Mapping() *typemap.Mapping { return u.TypeMapping }

// Update returns u when the operand is unchanged.
func (u *Unary) Update(operand Expr) *Unary {
	if operand == u.Operand {
		return u
	}
	return &Unary{Op: u.Op, Operand: operand, ClrType: u.ClrType, TypeMapping: u.TypeMapping}
}

// Conditional is test ? IfTrue : IfFalse. Its type and mapping come from
// IfTrue, falling back to IfFalse.
type Conditional struct {
	Test    Expr
	IfTrue  Expr
	IfFalse Expr
}

// NewConditional builds a conditional node.
func NewConditional(test, ifTrue, ifFalse Expr) *Conditional {
	return &Conditional{Test: test, IfTrue: ifTrue, IfFalse: ifFalse}
}

func (*Conditional) exprNode()      {}
func (*Conditional) Kind() NodeKind { return KindConditional }

func (c *Conditional) Type() typemap.Type {
	if c.IfTrue != nil && !c.IfTrue.Type().IsZero() {
		return c.IfTrue.Type()
	}
	if c.IfFalse != nil {
		return c.IfFalse.Type()
	}
	return typemap.Null
}

func (c *Conditional) Mapping() *typemap.Mapping {
	if c.IfTrue != nil && c.IfTrue.Mapping() != nil {
		return c.IfTrue.Mapping()
	}
	if c.IfFalse != nil {
		return c.IfFalse.Mapping()
	}
	return nil
}

// Update returns c when no child changed.
func (c *Conditional) Update(test, ifTrue, ifFalse Expr) *Conditional {
	if test == c.Test && ifTrue == c.IfTrue && ifFalse == c.IfFalse {
		return c
	}
	return &Conditional{Test: test, IfTrue: ifTrue, IfFalse: ifFalse}
}

// Constant is a literal value. Value is a scalar, nil, or a []any value
// list for membership tests (in which case TypeMapping is the element
// mapping).
type Constant struct {
	Value       any
	ClrType     typemap.Type
	TypeMapping *typemap.Mapping
}

// NewConstant builds a constant with its type inferred from the value.
func NewConstant(value any, mapping *typemap.Mapping) *Constant {
	typ := typemap.TypeOf(value)
	if mapping != nil {
		if _, isList := value.([]any); !isList {
			typ = mapping.ClrType
		}
	}
	return &Constant{Value: value, ClrType: typ, TypeMapping: mapping}
}

func (*Constant) exprNode()                   {}
func (*Constant) Kind() NodeKind              { return KindConstant }
func (c *Constant) Type() typemap.Type        { return c.ClrType }
func (c *Constant) Mapping() *typemap.Mapping { return c.TypeMapping }

// ApplyTypeMapping returns a copy carrying m.
func (c *Constant) ApplyTypeMapping(m *typemap.Mapping) *Constant {
	return &Constant{Value: c.Value, ClrType: c.ClrType, TypeMapping: m}
}

// Parameter is a placeholder resolved against the runtime parameter table
// at generation time.
type Parameter struct {
	Name        string
	ClrType     typemap.Type
	TypeMapping *typemap.Mapping
}

// NewParameter builds a parameter reference.
func NewParameter(name string, typ typemap.Type, mapping *typemap.Mapping) *Parameter {
	return &Parameter{Name: name, ClrType: typ, TypeMapping: mapping}
}

func (*Parameter) exprNode()                   {}
func (*Parameter) Kind() NodeKind              { return KindParameter }
func (p *Parameter) Type() typemap.Type        { return p.ClrType }
func (p *Parameter) Mapping() *typemap.Mapping { return p.TypeMapping }

// ApplyTypeMapping returns a copy carrying m.
func (p *Parameter) ApplyTypeMapping(m *typemap.Mapping) *Parameter {
	return &Parameter{Name: p.Name, ClrType: p.ClrType, TypeMapping: m}
}

// Function is a store-side function call.
type Function struct {
	Name        string
	Args        []Expr
	ClrType     typemap.Type
	TypeMapping *typemap.Mapping
}

func (*Function) exprNode()                   {}
func (*Function) Kind() NodeKind              { return KindFunction }
func (f *Function) Type() typemap.Type        { return f.ClrType }
func (f *Function) Mapping() *typemap.Mapping { return f.TypeMapping }

// ApplyTypeMapping returns a copy carrying m.
func (f *Function) ApplyTypeMapping(m *typemap.Mapping) *Function {
	return &Function{Name: f.Name, Args: f.Args, ClrType: f.ClrType, TypeMapping: m}
}

// Update returns f when no argument changed.
func (f *Function) Update(args []Expr) *Function {
	if sameExprs(args, f.Args) {
		return f
	}
	return &Function{Name: f.Name, Args: args, ClrType: f.ClrType, TypeMapping: f.TypeMapping}
}

// In is a membership test of Item against Values.
type In struct {
	Item        Expr
	Values      Expr
	Negated     bool
	TypeMapping *typemap.Mapping // boolean mapping
}

func (*In) exprNode()                   {}
func (*In) Kind() NodeKind              { return KindIn }
func (*In) Type() typemap.Type          { return typemap.Bool }
func (i *In) Mapping() *typemap.Mapping { return i.TypeMapping }

// Update returns i when no child changed.
func (i *In) Update(item, values Expr) *In {
	if item == i.Item && values == i.Values {
		return i
	}
	return &In{Item: item, Values: values, Negated: i.Negated, TypeMapping: i.TypeMapping}
}

// Ordering is one ORDER BY term.
type Ordering struct {
	Expr      Expr
	Ascending bool
}

func (*Ordering) exprNode()                   {}
func (*Ordering) Kind() NodeKind              { return KindOrdering }
func (o *Ordering) Type() typemap.Type        { return o.Expr.Type() }
func (o *Ordering) Mapping() *typemap.Mapping { return o.Expr.Mapping() }

// Update returns o when the expression is unchanged.
func (o *Ordering) Update(e Expr) *Ordering {
	if e == o.Expr {
		return o
	}
	return &Ordering{Expr: e, Ascending: o.Ascending}
}

// Projection is one aliased SELECT term.
type Projection struct {
	Alias string
	Expr  Expr
}

func (*Projection) exprNode()                   {}
func (*Projection) Kind() NodeKind              { return KindProjection }
func (p *Projection) Type() typemap.Type        { return p.Expr.Type() }
func (p *Projection) Mapping() *typemap.Mapping { return p.Expr.Mapping() }

// Update returns p when the expression is unchanged.
func (p *Projection) Update(e Expr) *Projection {
	if e == p.Expr {
		return p
	}
	return &Projection{Alias: p.Alias, Expr: e}
}

// EntityProjection projects a whole entity document reached through Access.
type EntityProjection struct {
	Entity *model.EntityType
	Access Expr
}

func (*EntityProjection) exprNode()                 {}
func (*EntityProjection) Kind() NodeKind            { return KindEntityProjection }
func (*EntityProjection) Type() typemap.Type        { return typemap.Object }
func (*EntityProjection) Mapping() *typemap.Mapping { return nil }

// Update returns p when the access expression is unchanged.
func (p *EntityProjection) Update(access Expr) *EntityProjection {
	if access == p.Access {
		return p
	}
	return &EntityProjection{Entity: p.Entity, Access: access}
}

// RootReference is the root document of the query source.
type RootReference struct {
	Alias  string
	Entity *model.EntityType
}

func (*RootReference) exprNode()                 {}
func (*RootReference) Kind() NodeKind            { return KindRootReference }
func (*RootReference) Type() typemap.Type        { return typemap.Object }
func (*RootReference) Mapping() *typemap.Mapping { return nil }

// KeyAccess reads a scalar field from the document reached by Accessor.
type KeyAccess struct {
	Accessor    Expr
	Name        string
	ClrType     typemap.Type
	TypeMapping *typemap.Mapping
}

func (*KeyAccess) exprNode()                   {}
func (*KeyAccess) Kind() NodeKind              { return KindKeyAccess }
func (k *KeyAccess) Type() typemap.Type        { return k.ClrType }
func (k *KeyAccess) Mapping() *typemap.Mapping { return k.TypeMapping }

// Update returns k when the accessor is unchanged.
func (k *KeyAccess) Update(accessor Expr) *KeyAccess {
	if accessor == k.Accessor {
		return k
	}
	return &KeyAccess{Accessor: accessor, Name: k.Name, ClrType: k.ClrType, TypeMapping: k.TypeMapping}
}

// ObjectAccess reads an owned sub-document.
type ObjectAccess struct {
	Accessor Expr
	Name     string
	Entity   *model.EntityType
}

func (*ObjectAccess) exprNode()                 {}
func (*ObjectAccess) Kind() NodeKind            { return KindObjectAccess }
func (*ObjectAccess) Type() typemap.Type        { return typemap.Object }
func (*ObjectAccess) Mapping() *typemap.Mapping { return nil }

// Update returns o when the accessor is unchanged.
func (o *ObjectAccess) Update(accessor Expr) *ObjectAccess {
	if accessor == o.Accessor {
		return o
	}
	return &ObjectAccess{Accessor: accessor, Name: o.Name, Entity: o.Entity}
}

// ObjectArrayProjection projects an owned array of sub-documents.
// Accessor is the ObjectAccess naming the array field.
type ObjectArrayProjection struct {
	Accessor   Expr
	InnerAlias string
	Entity     *model.EntityType
}

func (*ObjectArrayProjection) exprNode()                 {}
func (*ObjectArrayProjection) Kind() NodeKind            { return KindObjectArrayProjection }
func (*ObjectArrayProjection) Type() typemap.Type        { return typemap.ArrayOf(typemap.Object) }
func (*ObjectArrayProjection) Mapping() *typemap.Mapping { return nil }

// Update returns o when the accessor is unchanged.
func (o *ObjectArrayProjection) Update(accessor Expr) *ObjectArrayProjection {
	if accessor == o.Accessor {
		return o
	}
	return &ObjectArrayProjection{Accessor: accessor, InnerAlias: o.InnerAlias, Entity: o.Entity}
}

// FromRaw splices caller-supplied query text as the query source. Text
// holds positional placeholders {0}, {1}, ... filled from Arguments, which
// must be a Parameter or Constant holding a []any.
type FromRaw struct {
	Text      string
	Alias     string
	Arguments Expr
}

func (*FromRaw) exprNode()                 {}
func (*FromRaw) Kind() NodeKind            { return KindFromRaw }
func (*FromRaw) Type() typemap.Type        { return typemap.Object }
func (*FromRaw) Mapping() *typemap.Mapping { return nil }

// Update returns f when the arguments are unchanged.
func (f *FromRaw) Update(args Expr) *FromRaw {
	if args == f.Arguments {
		return f
	}
	return &FromRaw{Text: f.Text, Alias: f.Alias, Arguments: args}
}

// Select is a logical query plan over one collection.
//
// Semantics:
//
//	SELECT [DISTINCT] <Projections>
//	FROM <Collection | From> AS <Alias>
//	WHERE <Predicate>
//	ORDER BY <Orderings>
//	LIMIT <Limit> OFFSET <Offset>
//
// Offset without Limit is a configuration error (see Validate).
type Select struct {
	Collection  string
	Alias       string
	From        *FromRaw
	Projections []*Projection
	Predicate   Expr
	Orderings   []*Ordering
	Offset      Expr
	Limit       Expr
	Distinct    bool
	Entity      *model.EntityType
}

func (*Select) exprNode()                 {}
func (*Select) Kind() NodeKind            { return KindSelect }
func (*Select) Type() typemap.Type        { return typemap.Object }
func (*Select) Mapping() *typemap.Mapping { return nil }

// Update returns s when no component changed.
func (s *Select) Update(from *FromRaw, projections []*Projection, predicate Expr, orderings []*Ordering, offset, limit Expr) *Select {
	if from == s.From && predicate == s.Predicate && offset == s.Offset && limit == s.Limit &&
		sameProjections(projections, s.Projections) && sameOrderings(orderings, s.Orderings) {
		return s
	}
	out := s.clone()
	out.From = from
	out.Projections = projections
	out.Predicate = predicate
	out.Orderings = orderings
	out.Offset = offset
	out.Limit = limit
	return out
}

func (s *Select) clone() *Select {
	out := *s
	out.Projections = append([]*Projection(nil), s.Projections...)
	out.Orderings = append([]*Ordering(nil), s.Orderings...)
	return &out
}

func sameExprs(a, b []Expr) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func sameProjections(a, b []*Projection) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func sameOrderings(a, b []*Ordering) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
