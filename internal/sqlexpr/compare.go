package sqlexpr

import "github.com/roach88/sqlgate/internal/validation"

// Comparator selects the operator of a Comparison.
type Comparator int

const (
	Eq Comparator = iota
	Ne
	Gt
	Lt
	Ge
	Le
)

// Operator returns the SQL operator. Unknown comparators fall back to "=".
func (c Comparator) Operator() string {
	switch c {
	case Ne:
		return "<>"
	case Gt:
		return ">"
	case Lt:
		return "<"
	case Ge:
		return ">="
	case Le:
		return "<="
	default:
		return "="
	}
}

// ParseComparator maps an operator or its name ("ge", ">=") to a Comparator.
func ParseComparator(s string) (Comparator, bool) {
	switch s {
	case "eq", "=":
		return Eq, true
	case "ne", "<>", "!=":
		return Ne, true
	case "gt", ">":
		return Gt, true
	case "lt", "<":
		return Lt, true
	case "ge", ">=":
		return Ge, true
	case "le", "<=":
		return Le, true
	}
	return Eq, false
}

// Equal renders "(key = value)".
//
// Quoted is decided by NewEqual from the declared type of T: numeric types
// render bare, everything else quoted.
type Equal[T any] struct {
	Key            string
	Value          T
	Quoted         bool
	UseParentheses bool
}

// NewEqual creates a parenthesized equality on key.
func NewEqual[T any](key string, value T) *Equal[T] {
	return &Equal[T]{
		Key:            key,
		Value:          value,
		Quoted:         quotesFor(value),
		UseParentheses: true,
	}
}

func (*Equal[T]) expressionNode() {}

func (e *Equal[T]) SQL() string {
	return paren(e.Key+" = "+render(any(e.Value), e.Quoted), e.UseParentheses)
}

func (e *Equal[T]) Mandatory() []validation.Field {
	return []validation.Field{{Name: "key", Value: e.Key}}
}

// Comparison renders "(key <op> value)" with the same quoting rule as Equal.
type Comparison[T any] struct {
	Key            string
	Value          T
	Op             Comparator
	Quoted         bool
	UseParentheses bool
}

// NewComparison creates a parenthesized comparison on key.
func NewComparison[T any](key string, value T, op Comparator) *Comparison[T] {
	return &Comparison[T]{
		Key:            key,
		Value:          value,
		Op:             op,
		Quoted:         quotesFor(value),
		UseParentheses: true,
	}
}

func (*Comparison[T]) expressionNode() {}

func (c *Comparison[T]) SQL() string {
	return paren(c.Key+" "+c.Op.Operator()+" "+render(any(c.Value), c.Quoted), c.UseParentheses)
}

func (c *Comparison[T]) Mandatory() []validation.Field {
	return []validation.Field{{Name: "key", Value: c.Key}}
}
