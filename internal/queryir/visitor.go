package queryir

// Handler rewrites one node. It may call r.VisitChildren to continue the
// default traversal below the node.
type Handler func(r *Rewriter, e Expr) (Expr, error)

// Rewriter is a bottom-up tree rewriter. Nodes whose kind has a handler are
// passed to it; all others are rebuilt from their rewritten children via
// Update, so an untouched subtree is returned by identity.
type Rewriter struct {
	handlers map[NodeKind]Handler
}

// NewRewriter creates a Rewriter with per-kind handlers.
func NewRewriter(handlers map[NodeKind]Handler) *Rewriter {
	return &Rewriter{handlers: handlers}
}

// Rewrite rewrites e. A nil expression rewrites to nil.
func (r *Rewriter) Rewrite(e Expr) (Expr, error) {
	if e == nil {
		return nil, nil
	}
	if h, ok := r.handlers[e.Kind()]; ok {
		return h(r, e)
	}
	return r.VisitChildren(e)
}

// VisitChildren rewrites e's children and rebuilds e if any changed.
func (r *Rewriter) VisitChildren(e Expr) (Expr, error) {
	switch n := e.(type) {
	case *Binary:
		left, err := r.Rewrite(n.Left)
		if err != nil {
			return nil, err
		}
		right, err := r.Rewrite(n.Right)
		if err != nil {
			return nil, err
		}
		return n.Update(left, right), nil

	case *Unary:
		operand, err := r.Rewrite(n.Operand)
		if err != nil {
			return nil, err
		}
		return n.Update(operand), nil

	case *Conditional:
		test, err := r.Rewrite(n.Test)
		if err != nil {
			return nil, err
		}
		ifTrue, err := r.Rewrite(n.IfTrue)
		if err != nil {
			return nil, err
		}
		ifFalse, err := r.Rewrite(n.IfFalse)
		if err != nil {
			return nil, err
		}
		return n.Update(test, ifTrue, ifFalse), nil

	case *Function:
		args, err := r.rewriteAll(n.Args)
		if err != nil {
			return nil, err
		}
		return n.Update(args), nil

	case *In:
		item, err := r.Rewrite(n.Item)
		if err != nil {
			return nil, err
		}
		values, err := r.Rewrite(n.Values)
		if err != nil {
			return nil, err
		}
		return n.Update(item, values), nil

	case *Ordering:
		inner, err := r.Rewrite(n.Expr)
		if err != nil {
			return nil, err
		}
		return n.Update(inner), nil

	case *Projection:
		inner, err := r.Rewrite(n.Expr)
		if err != nil {
			return nil, err
		}
		return n.Update(inner), nil

	case *EntityProjection:
		access, err := r.Rewrite(n.Access)
		if err != nil {
			return nil, err
		}
		return n.Update(access), nil

	case *KeyAccess:
		accessor, err := r.Rewrite(n.Accessor)
		if err != nil {
			return nil, err
		}
		return n.Update(accessor), nil

	case *ObjectAccess:
		accessor, err := r.Rewrite(n.Accessor)
		if err != nil {
			return nil, err
		}
		return n.Update(accessor), nil

	case *ObjectArrayProjection:
		accessor, err := r.Rewrite(n.Accessor)
		if err != nil {
			return nil, err
		}
		return n.Update(accessor), nil

	case *FromRaw:
		args, err := r.Rewrite(n.Arguments)
		if err != nil {
			return nil, err
		}
		return n.Update(args), nil

	case *Select:
		return r.visitSelect(n)

	default:
		// Constant, Parameter, RootReference: leaves.
		return e, nil
	}
}

func (r *Rewriter) rewriteAll(exprs []Expr) ([]Expr, error) {
	if exprs == nil {
		return nil, nil
	}
	out := make([]Expr, len(exprs))
	for i, e := range exprs {
		rewritten, err := r.Rewrite(e)
		if err != nil {
			return nil, err
		}
		out[i] = rewritten
	}
	return out, nil
}

func (r *Rewriter) visitSelect(s *Select) (Expr, error) {
	var from *FromRaw
	if s.From != nil {
		rewritten, err := r.Rewrite(s.From)
		if err != nil {
			return nil, err
		}
		fr, ok := rewritten.(*FromRaw)
		if !ok {
			return nil, unexpectedRewrite(KindFromRaw, rewritten)
		}
		from = fr
	}

	var projections []*Projection
	if s.Projections != nil {
		projections = make([]*Projection, len(s.Projections))
		for i, p := range s.Projections {
			rewritten, err := r.Rewrite(p)
			if err != nil {
				return nil, err
			}
			pr, ok := rewritten.(*Projection)
			if !ok {
				return nil, unexpectedRewrite(KindProjection, rewritten)
			}
			projections[i] = pr
		}
	}

	predicate, err := r.Rewrite(s.Predicate)
	if err != nil {
		return nil, err
	}

	var orderings []*Ordering
	if s.Orderings != nil {
		orderings = make([]*Ordering, len(s.Orderings))
		for i, o := range s.Orderings {
			rewritten, err := r.Rewrite(o)
			if err != nil {
				return nil, err
			}
			or, ok := rewritten.(*Ordering)
			if !ok {
				return nil, unexpectedRewrite(KindOrdering, rewritten)
			}
			orderings[i] = or
		}
	}

	offset, err := r.Rewrite(s.Offset)
	if err != nil {
		return nil, err
	}
	limit, err := r.Rewrite(s.Limit)
	if err != nil {
		return nil, err
	}

	return s.Update(from, projections, predicate, orderings, offset, limit), nil
}

func unexpectedRewrite(want NodeKind, got Expr) error {
	gotKind := "nil"
	if got != nil {
		gotKind = got.Kind().String()
	}
	return NewGenerationError(ErrCodeUnsupportedNode, want,
		"rewrite of %s produced %s", want, gotKind)
}

// Walk calls fn for e and every node below it, parents first. Returning
// false from fn skips the node's children.
func Walk(e Expr, fn func(Expr) bool) {
	if e == nil || !fn(e) {
		return
	}
	switch n := e.(type) {
	case *Binary:
		Walk(n.Left, fn)
		Walk(n.Right, fn)
	case *Unary:
		Walk(n.Operand, fn)
	case *Conditional:
		Walk(n.Test, fn)
		Walk(n.IfTrue, fn)
		Walk(n.IfFalse, fn)
	case *Function:
		for _, a := range n.Args {
			Walk(a, fn)
		}
	case *In:
		Walk(n.Item, fn)
		Walk(n.Values, fn)
	case *Ordering:
		Walk(n.Expr, fn)
	case *Projection:
		Walk(n.Expr, fn)
	case *EntityProjection:
		Walk(n.Access, fn)
	case *KeyAccess:
		Walk(n.Accessor, fn)
	case *ObjectAccess:
		Walk(n.Accessor, fn)
	case *ObjectArrayProjection:
		Walk(n.Accessor, fn)
	case *FromRaw:
		Walk(n.Arguments, fn)
	case *Select:
		if n.From != nil {
			Walk(n.From, fn)
		}
		for _, p := range n.Projections {
			Walk(p, fn)
		}
		Walk(n.Predicate, fn)
		for _, o := range n.Orderings {
			Walk(o, fn)
		}
		Walk(n.Offset, fn)
		Walk(n.Limit, fn)
	}
}

// ParameterNames returns the distinct parameter names referenced by e in
// first-use order.
func ParameterNames(e Expr) []string {
	var names []string
	seen := make(map[string]bool)
	Walk(e, func(n Expr) bool {
		if p, ok := n.(*Parameter); ok && !seen[p.Name] {
			seen[p.Name] = true
			names = append(names, p.Name)
		}
		return true
	})
	return names
}
