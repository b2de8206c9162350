// Package planspec reads query plans written in YAML and builds them into
// *queryir.Select values against a model.
//
// A plan names an entity and the operators applied to it:
//
//	entity: Customer
//	parameters:
//	  ids: "[]int"
//	values:
//	  ids: [1, 2]
//	where:
//	  and:
//	    - in: {item: {prop: Id}, values: {param: ids}}
//	    - call: {method: StartsWith, on: {prop: Name}, args: ["A"]}
//	order_by:
//	  - expr: {prop: Name}
//	    desc: true
//	select:
//	  - as: city
//	    expr: {prop: Address.City}
//	skip: 1
//	take: 10
//
// Expressions are YAML nodes. A scalar or sequence is a constant. A mapping
// has exactly one key naming the form:
//
//	prop: Address.City        property, through owned navigations
//	nav: Address              owned sub-document
//	array: Orders             owned collection
//	param: ids                declared parameter
//	const: [1, 2]             constant (any YAML value)
//	eq, ne, lt, le, gt, ge    comparisons, two operands
//	and, or                   logical, two or more operands
//	add, sub, mul, div, mod   arithmetic, two operands
//	bit_and, bit_or, xor      bitwise, two operands
//	shl, shr                  shifts, two operands
//	coalesce, power           rejected by the factory
//	not, neg                  unary
//	is_null, is_not_null      null tests
//	in: {item, values, negated}
//	if: [test, then, else]
//	convert: {expr, type}
//	func: {name, args, returns}
//	member: {name, on | declaring, returns}
//	call: {method, on | declaring, args}
//
// member and call go through the translate registries; a reference no rule
// recognizes is an error.
package planspec
