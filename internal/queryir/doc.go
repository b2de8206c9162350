// Package queryir provides the typed intermediate representation (IR) that
// sits between host-side query expressions and generated document SQL.
//
// ARCHITECTURE:
//
//	[plan / translators] → [Factory] → [IR tree] → [ExpandMembership] → [querysql.Generator]
//
// Every node carries a semantic type (typemap.Type) and, once resolved, a
// store mapping (*typemap.Mapping). The Factory is the only component that
// assigns mappings: composite constructors infer an operand mapping from
// their children and push it down to unmapped leaves, so a parameter
// compared with an enum property is converted with the enum's converter.
//
// SEALED INTERFACE:
//
// Expr is sealed with a marker method. Only types in this package implement
// it, which keeps the generator's type switch exhaustive.
//
// IMMUTABILITY:
//
// Nodes are never mutated after construction. Update methods return the
// receiver when no child changed, so rewriting an untouched subtree
// preserves identity.
//
// MAPPING PROPAGATION:
//
//	Comparison   operands share left's mapping, else right's, else the
//	             default for left's type (right's if left is untyped)
//	AndAlso      operands and result are boolean
//	Arithmetic   explicit mapping, else inferred, else by left's type
//	Not(bool)    boolean result; operand keeps its default mapping
//	Convert      result takes the target mapping
//	Condition    test is boolean; branches share one inferred mapping
//	In           item's mapping applies to item and values
//
// Once a node carries a mapping, applying another one is a no-op.
package queryir
