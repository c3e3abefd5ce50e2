package sqlexpr

import (
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/roach88/sqlgate/internal/validation"
)

func TestString_Combinations(t *testing.T) {
	tests := []struct {
		name string
		expr *String
		want string
	}{
		{"plain", &String{Expr: "a"}, "a"},
		{"distinct", &String{Expr: "a", Distinct: true}, "DISTINCT a"},
		{"alias", &String{Expr: "a", Alias: "x"}, "a AS x"},
		{"distinct alias", &String{Expr: "a", Distinct: true, Alias: "x"}, "DISTINCT a AS x"},
		{"parens", &String{Expr: "a + b", UseParentheses: true}, "(a + b)"},
		{"parens distinct alias", &String{Expr: "a", Distinct: true, Alias: "x", UseParentheses: true}, "DISTINCT (a) AS x"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.expr.SQL())
		})
	}
}

func TestString_RendersLatestState(t *testing.T) {
	s := Str("a")
	assert.Equal(t, "a", s.SQL())

	s.Alias = "total"
	assert.Equal(t, "a AS total", s.SQL())
}

func TestOrderBy(t *testing.T) {
	assert.Equal(t, "name ASC", (&OrderBy{Column: "name", Asc: true}).SQL())
	assert.Equal(t, "name DESC", (&OrderBy{Column: "name"}).SQL())
	assert.Equal(t, "(name) DESC", (&OrderBy{Column: "name", UseParentheses: true}).SQL())
}

func TestArray_Empty(t *testing.T) {
	assert.Equal(t, "", NewArray[int](false).SQL())
	assert.Equal(t, "", NewArray[string](true).SQL())

	a := NewArray[string](true)
	a.UseParentheses = true
	assert.Equal(t, "", a.SQL())
}

func TestArray_Render(t *testing.T) {
	assert.Equal(t, "1, 2, 3", NewArray(false, 1, 2, 3).SQL())
	assert.Equal(t, "'a', 'b'", NewArray(true, "a", "b").SQL())
	assert.Equal(t, "'it''s'", NewArray(true, "it's").SQL())

	a := NewArray(true, "a", "b")
	a.UseParentheses = true
	assert.Equal(t, "('a'), ('b')", a.SQL())
}

func TestArray_Append(t *testing.T) {
	a := NewArray[string](false)
	a.Append("id").Append("name", "email")

	assert.Equal(t, 3, a.Len())
	assert.Equal(t, "id, name, email", a.SQL())
}

func TestArray_ExpressionItems(t *testing.T) {
	a := NewArray[Expression](true, Str("GETDATE()"), NewEqual("a", 1))
	assert.Equal(t, "GETDATE(), (a = 1)", a.SQL())
}

func TestArray_NilItem(t *testing.T) {
	a := NewArray[any](true, "x", nil, 3)
	assert.Equal(t, "'x', NULL, '3'", a.SQL())
}

func TestArray_NoStraySeparators(t *testing.T) {
	for n := 1; n <= 20; n++ {
		items := make([]string, n)
		for i := range items {
			items[i] = strings.Repeat("v", i+1)
		}
		for _, quote := range []bool{true, false} {
			a := NewArray(quote, items...)
			for _, parens := range []bool{true, false} {
				a.UseParentheses = parens
				out := a.SQL()

				assert.NotContains(t, out, ", ,")
				assert.False(t, strings.HasPrefix(out, ","), out)
				assert.False(t, strings.HasSuffix(out, ","), out)
				assert.False(t, strings.HasSuffix(out, " "), out)
				assert.Equal(t, n-1, strings.Count(out, ", "), out)
			}
		}
	}
}

func TestEqual_Quoting(t *testing.T) {
	tests := []struct {
		name string
		got  string
		want string
	}{
		{"int", NewEqual("id", 5).SQL(), "(id = 5)"},
		{"int64", NewEqual("id", int64(-7)).SQL(), "(id = -7)"},
		{"uint8", NewEqual("flags", uint8(3)).SQL(), "(flags = 3)"},
		{"float", NewEqual("ratio", 2.5).SQL(), "(ratio = 2.5)"},
		{"decimal", NewEqual("price", decimal.RequireFromString("9.5")).SQL(), "(price = 9.5)"},
		{"string", NewEqual("name", "ann").SQL(), "(name = 'ann')"},
		{"escaped", NewEqual("name", "O'Brien").SQL(), "(name = 'O''Brien')"},
		{"bool", NewEqual("active", true).SQL(), "(active = 'true')"},
		{"any int", NewEqual[any]("id", 5).SQL(), "(id = 5)"},
		{"any string", NewEqual[any]("id", "5").SQL(), "(id = '5')"},
		{"any nil", NewEqual[any]("id", nil).SQL(), "(id = NULL)"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.got)
		})
	}
}

func TestEqual_Time(t *testing.T) {
	ts := time.Date(2024, 3, 1, 12, 30, 0, 0, time.UTC)
	assert.Equal(t, "(created = '2024-03-01T12:30:00.000')", NewEqual("created", ts).SQL())
}

func TestEqual_WithoutParentheses(t *testing.T) {
	e := NewEqual("id", 5)
	e.UseParentheses = false
	assert.Equal(t, "id = 5", e.SQL())
}

func TestComparison(t *testing.T) {
	tests := []struct {
		op   Comparator
		want string
	}{
		{Eq, "(age = 18)"},
		{Ne, "(age <> 18)"},
		{Gt, "(age > 18)"},
		{Lt, "(age < 18)"},
		{Ge, "(age >= 18)"},
		{Le, "(age <= 18)"},
		{Comparator(99), "(age = 18)"},
	}

	for _, tc := range tests {
		t.Run(tc.want, func(t *testing.T) {
			assert.Equal(t, tc.want, NewComparison("age", 18, tc.op).SQL())
		})
	}

	assert.Equal(t, "(name >= 'm')", NewComparison("name", "m", Ge).SQL())
}

func TestParseComparator(t *testing.T) {
	op, ok := ParseComparator(">=")
	assert.True(t, ok)
	assert.Equal(t, Ge, op)

	op, ok = ParseComparator("ne")
	assert.True(t, ok)
	assert.Equal(t, Ne, op)

	op, ok = ParseComparator("~")
	assert.False(t, ok)
	assert.Equal(t, Eq, op)
}

func TestLike(t *testing.T) {
	assert.Equal(t, "name LIKE 'jo%'", (&Like{Expr: "name", Pattern: "jo%"}).SQL())
	assert.Equal(t, "name LIKE @pattern", (&Like{Expr: "name", Pattern: "@pattern", Parameterized: true}).SQL())
	assert.Equal(t, "(name LIKE 'jo%')", (&Like{Expr: "name", Pattern: "jo%", UseParentheses: true}).SQL())
	assert.Equal(t, "(name LIKE @p)", (&Like{Expr: "name", Pattern: "@p", Parameterized: true, UseParentheses: true}).SQL())
}

func TestFullText(t *testing.T) {
	f := &FullText{Columns: []string{"title", "body"}, Term: "data"}
	assert.Equal(t, `CONTAINS ((title, body), '"data*"')`, f.SQL())

	f.UseParentheses = true
	assert.Equal(t, `(CONTAINS ((title, body), '"data*"'))`, f.SQL())

	all := &FullText{Term: `o'neil "x"`}
	assert.Equal(t, `CONTAINS (*, '"o''neil ""x""*"')`, all.SQL())
}

func TestLiteral(t *testing.T) {
	assert.Equal(t, "NULL", Literal(nil))
	assert.Equal(t, "5", Literal(5))
	assert.Equal(t, "0.25", Literal(0.25))
	assert.Equal(t, "'it''s'", Literal("it's"))
	assert.Equal(t, "GETDATE()", Literal(Str("GETDATE()")))
}

func TestEnclosed(t *testing.T) {
	assert.True(t, enclosed("(a)"))
	assert.True(t, enclosed("((a) OR (b))"))
	assert.True(t, enclosed("(x = ')')"))
	assert.False(t, enclosed("(a) OR (b)"))
	assert.False(t, enclosed("a"))
	assert.False(t, enclosed("(a"))
}

func TestMandatory(t *testing.T) {
	assert.False(t, validation.IsValid(Str("")))
	assert.True(t, validation.IsValid(Str("a")))

	assert.False(t, validation.IsValid(&OrderBy{}))
	assert.False(t, validation.IsValid(NewArray[int](false)))
	assert.True(t, validation.IsValid(NewArray(false, 1)))

	assert.Equal(t, []string{"pattern"}, validation.Missing(&Like{Expr: "name"}))
	assert.False(t, validation.IsValid(&FullText{}))
	assert.False(t, validation.IsValid(NewEqual("", 1)))
	assert.True(t, validation.IsValid(NewComparison("a", 0, Gt)))
}
