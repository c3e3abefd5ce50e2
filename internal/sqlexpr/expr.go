package sqlexpr

import (
	"strings"

	"github.com/roach88/sqlgate/internal/validation"
)

// Expression is a renderable SQL fragment.
//
// This is a sealed interface - only types in this package implement it.
type Expression interface {
	validation.Validatable

	// SQL renders the fragment. It never caches: the result always
	// reflects the node's current fields.
	SQL() string

	expressionNode()
}

// String is a column list, projection or free-form fragment.
//
// Rendering composes the optional parts around Expr:
//
//	a           Str("a")
//	DISTINCT a  Distinct: true
//	a AS x      Alias: "x"
//	(a)         UseParentheses: true
type String struct {
	Expr           string
	Distinct       bool
	Alias          string
	UseParentheses bool
}

// Str creates a plain String expression.
func Str(expr string) *String {
	return &String{Expr: expr}
}

func (*String) expressionNode() {}

// SQL renders the fragment.
func (s *String) SQL() string {
	out := paren(s.Expr, s.UseParentheses)
	if s.Distinct {
		out = "DISTINCT " + out
	}
	if s.Alias != "" {
		out += " AS " + s.Alias
	}
	return out
}

// Mandatory declares Expr as required.
func (s *String) Mandatory() []validation.Field {
	return []validation.Field{{Name: "expr", Value: s.Expr}}
}

// OrderBy renders a single sort key.
type OrderBy struct {
	Column         string
	Asc            bool
	UseParentheses bool
}

func (*OrderBy) expressionNode() {}

// SQL renders "column ASC" or "column DESC". Parentheses wrap the column only.
func (o *OrderBy) SQL() string {
	dir := " DESC"
	if o.Asc {
		dir = " ASC"
	}
	return paren(o.Column, o.UseParentheses) + dir
}

func (o *OrderBy) Mandatory() []validation.Field {
	return []validation.Field{{Name: "column", Value: o.Column}}
}

// Like is a pattern-match predicate.
//
// With Parameterized set, Pattern is emitted as-is so the caller can supply
// a placeholder such as "@name"; otherwise it is quoted.
type Like struct {
	Expr           string
	Pattern        string
	Parameterized  bool
	UseParentheses bool
}

func (*Like) expressionNode() {}

func (l *Like) SQL() string {
	pattern := l.Pattern
	if !l.Parameterized {
		pattern = Quote(pattern)
	}
	return paren(l.Expr+" LIKE "+pattern, l.UseParentheses)
}

func (l *Like) Mandatory() []validation.Field {
	return []validation.Field{
		{Name: "expr", Value: l.Expr},
		{Name: "pattern", Value: l.Pattern},
	}
}

// FullText is a prefix CONTAINS predicate over a column list. An empty
// column list searches every full-text indexed column.
type FullText struct {
	Columns        []string
	Term           string
	UseParentheses bool
}

func (*FullText) expressionNode() {}

func (f *FullText) SQL() string {
	cols := "*"
	if len(f.Columns) > 0 {
		cols = "(" + strings.Join(f.Columns, ", ") + ")"
	}
	term := strings.ReplaceAll(f.Term, `"`, `""`)
	return paren("CONTAINS ("+cols+", "+Quote(`"`+term+`*"`)+")", f.UseParentheses)
}

func (f *FullText) Mandatory() []validation.Field {
	return []validation.Field{{Name: "term", Value: f.Term}}
}
