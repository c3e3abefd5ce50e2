// Package sqlexpr provides the expression nodes that render typed SQL
// fragments for query objects.
//
// Every node implements Expression, a sealed interface: only types in this
// package implement it, so renderers and validators can switch over the
// closed set of variants.
//
// VARIANTS:
//
//	String      expr, DISTINCT expr, expr AS alias
//	OrderBy     column ASC | column DESC
//	Array[T]    'a', 'b', 'c'  or  1, 2, 3
//	Equal[T]    (key = value)
//	Comparison  (key >= value), operator from Comparator
//	Like        expr LIKE 'pattern'
//	FullText    CONTAINS ((cols), '"term*"')
//	Logical     immutable tree of AND, OR, NOT, BETWEEN, EXISTS, IN, NOT IN
//
// RENDERING:
//
// SQL() is a pure function of the node's current fields. Nothing is cached,
// so a caller may mutate a node up until render time. Composing a node with
// a nil child is the caller's responsibility; query objects recover from the
// resulting panic and render the empty string.
//
// QUOTING:
//
// Equal and Comparison decide at construction whether their value is quoted:
// numeric types (integers, floats, decimal.Decimal) render bare, everything
// else renders as a single-quoted literal with embedded quotes doubled.
//
// Every node also implements validation.Validatable, declaring the members
// that must be set before the node is usable.
package sqlexpr
