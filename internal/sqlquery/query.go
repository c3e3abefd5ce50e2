// Package sqlquery composes expression nodes into complete SQL statements.
//
// Query is a sealed interface over Select, Insert, Update, Delete and Raw.
// Each variant holds clause slots and renders them in a fixed order; a slot
// that is nil or renders empty is omitted.
//
// FAIL-SAFE EMPTY:
//
// Rendering never returns a partial statement. If composition cannot
// complete (for example a slot holds a nil node that panics when rendered)
// SQL returns the empty string, and callers treat "" as "could not compose".
// Build layers an error result on top of the same policy.
package sqlquery

import (
	"errors"
	"fmt"
	"strings"

	"github.com/roach88/sqlgate/internal/sqlexpr"
	"github.com/roach88/sqlgate/internal/validation"
)

// Query is a renderable statement.
//
// This is a sealed interface - only types in this package implement it.
type Query interface {
	validation.Validatable
	SQL() string
	queryNode()
}

// ErrEmpty is returned by Build when a query renders no text.
var ErrEmpty = errors.New("query rendered an empty statement")

// Build validates q and renders it.
//
// It returns an error wrapping ErrEmpty when rendering fails, and an error
// naming the missing members when validation fails.
func Build(q Query) (string, error) {
	if q == nil {
		return "", fmt.Errorf("cannot build nil query: %w", ErrEmpty)
	}
	if missing := validation.Missing(q); len(missing) > 0 {
		return "", fmt.Errorf("%T is missing mandatory fields: %s", q, strings.Join(missing, ", "))
	}
	text := q.SQL()
	if text == "" {
		return "", fmt.Errorf("%T: %w", q, ErrEmpty)
	}
	return text, nil
}

// Join pairs a relation with its join condition.
type Join struct {
	Table string
	On    sqlexpr.Expression
}

// Raw is a precomputed statement passed through verbatim.
type Raw string

func (Raw) queryNode() {}

func (r Raw) SQL() string { return string(r) }

func (r Raw) Mandatory() []validation.Field {
	return []validation.Field{{Name: "statement", Value: string(r)}}
}

// Select renders
//
//	SELECT <columns> FROM <from>
//	  [INNER JOIN t ON c]... [LEFT JOIN t ON c]...
//	  [WHERE ...] [GROUP BY ...] [HAVING ...]
//	  [ORDER BY ... [OFFSET n ROWS FETCH NEXT m ROWS ONLY]]
//
// When Statement is set it is returned verbatim and no slot is consulted.
// Pagination is emitted only together with ORDER BY, and only when
// Skip >= 0 and Take > 0; otherwise it is silently omitted.
type Select struct {
	Columns   sqlexpr.Expression
	From      string
	Joins     []Join
	LeftJoins []Join
	Where     sqlexpr.Expression
	GroupBy   sqlexpr.Expression
	Having    sqlexpr.Expression
	OrderBy   sqlexpr.Expression
	Skip      int
	Take      int
	Statement string
}

func (*Select) queryNode() {}

func (s *Select) SQL() (out string) {
	defer failSafe(&out)

	if s.Statement != "" {
		return s.Statement
	}

	var b strings.Builder
	b.WriteString("SELECT ")
	b.WriteString(s.Columns.SQL())
	b.WriteString(" FROM ")
	b.WriteString(s.From)

	for _, j := range s.Joins {
		fmt.Fprintf(&b, " INNER JOIN %s ON %s", j.Table, j.On.SQL())
	}
	for _, j := range s.LeftJoins {
		fmt.Fprintf(&b, " LEFT JOIN %s ON %s", j.Table, j.On.SQL())
	}

	writeClause(&b, "WHERE", s.Where)
	writeClause(&b, "GROUP BY", s.GroupBy)
	writeClause(&b, "HAVING", s.Having)
	if writeClause(&b, "ORDER BY", s.OrderBy) && s.Skip >= 0 && s.Take > 0 {
		fmt.Fprintf(&b, " OFFSET %d ROWS FETCH NEXT %d ROWS ONLY", s.Skip, s.Take)
	}

	return b.String()
}

// Mandatory requires a projection and a source, or only the statement when
// a precomputed one is set.
func (s *Select) Mandatory() []validation.Field {
	if s.Statement != "" {
		return []validation.Field{{Name: "statement", Value: s.Statement}}
	}
	return []validation.Field{
		{Name: "columns", Value: clauseValue(s.Columns)},
		{Name: "from", Value: s.From},
	}
}

// Insert renders "INSERT INTO <into> [(<columns>)] [VALUES (<values>)]".
type Insert struct {
	Into    string
	Columns sqlexpr.Expression
	Values  sqlexpr.Expression
}

func (*Insert) queryNode() {}

func (q *Insert) SQL() (out string) {
	defer failSafe(&out)

	var b strings.Builder
	b.WriteString("INSERT INTO ")
	b.WriteString(q.Into)
	if cols := render(q.Columns); cols != "" {
		b.WriteString(" (" + cols + ")")
	}
	if vals := render(q.Values); vals != "" {
		b.WriteString(" VALUES (" + vals + ")")
	}
	return b.String()
}

func (q *Insert) Mandatory() []validation.Field {
	return []validation.Field{
		{Name: "into", Value: q.Into},
		{Name: "values", Value: clauseValue(q.Values)},
	}
}

// Assignment is one "column = value" pair of an UPDATE.
type Assignment struct {
	Column string
	Value  sqlexpr.Expression
}

// Update renders
//
//	UPDATE <table> SET c1 = ISNULL(v1, NULL), c2 = ISNULL(v2, NULL) [WHERE ...]
//
// Each value passes through ISNULL so NULL is written explicitly rather than
// left to driver defaults. An Update with no assignments cannot compose.
type Update struct {
	Table string
	Set   []Assignment
	Where sqlexpr.Expression
}

func (*Update) queryNode() {}

// Assign appends an assignment and returns the receiver.
func (q *Update) Assign(column string, value sqlexpr.Expression) *Update {
	q.Set = append(q.Set, Assignment{Column: column, Value: value})
	return q
}

func (q *Update) SQL() (out string) {
	defer failSafe(&out)

	if len(q.Set) == 0 {
		return ""
	}

	sets := make([]string, 0, len(q.Set))
	for _, a := range q.Set {
		sets = append(sets, fmt.Sprintf("%s = ISNULL(%s, NULL)", a.Column, a.Value.SQL()))
	}

	var b strings.Builder
	b.WriteString("UPDATE ")
	b.WriteString(q.Table)
	b.WriteString(" SET ")
	b.WriteString(strings.Join(sets, ", "))
	writeClause(&b, "WHERE", q.Where)
	return b.String()
}

// Mandatory requires a filter so that an unconditioned UPDATE is never
// reported valid.
func (q *Update) Mandatory() []validation.Field {
	return []validation.Field{
		{Name: "table", Value: q.Table},
		{Name: "set", Value: q.Set},
		{Name: "where", Value: clauseValue(q.Where)},
	}
}

// Delete renders "DELETE FROM <from> [WHERE ...]".
type Delete struct {
	From  string
	Where sqlexpr.Expression
}

func (*Delete) queryNode() {}

func (q *Delete) SQL() (out string) {
	defer failSafe(&out)

	var b strings.Builder
	b.WriteString("DELETE FROM ")
	b.WriteString(q.From)
	writeClause(&b, "WHERE", q.Where)
	return b.String()
}

func (q *Delete) Mandatory() []validation.Field {
	return []validation.Field{
		{Name: "from", Value: q.From},
		{Name: "where", Value: clauseValue(q.Where)},
	}
}

// failSafe turns a panic during composition into an empty statement.
func failSafe(out *string) {
	if r := recover(); r != nil {
		*out = ""
	}
}

// render returns the text of e, or "" when e is unset.
func render(e sqlexpr.Expression) string {
	if validation.Absent(e) {
		return ""
	}
	return e.SQL()
}

// writeClause appends " KEYWORD text" when e renders non-empty.
func writeClause(b *strings.Builder, keyword string, e sqlexpr.Expression) bool {
	text := render(e)
	if text == "" {
		return false
	}
	b.WriteString(" " + keyword + " " + text)
	return true
}

// clauseValue reports a slot by its rendered text so an empty Logical tree
// counts as missing. A slot that cannot render is missing too.
func clauseValue(e sqlexpr.Expression) (v any) {
	defer func() {
		if recover() != nil {
			v = nil
		}
	}()
	if validation.Absent(e) {
		return nil
	}
	return e.SQL()
}
