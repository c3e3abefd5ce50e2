package sqlquery

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/sqlgate/internal/sqlexpr"
	"github.com/roach88/sqlgate/internal/validation"
)

func TestSelect_Basic(t *testing.T) {
	q := &Select{
		Columns: sqlexpr.Str("id, name"),
		From:    "t",
		Where:   sqlexpr.NewEqual("id", 5),
	}
	assert.Equal(t, "SELECT id, name FROM t WHERE (id = 5)", q.SQL())
}

func TestSelect_AllClauses(t *testing.T) {
	q := &Select{
		Columns: sqlexpr.NewArray(false, "u.id", "COUNT(o.id) AS orders"),
		From:    "users u",
		Joins: []Join{
			{Table: "accounts a", On: sqlexpr.Str("a.user_id = u.id")},
		},
		LeftJoins: []Join{
			{Table: "orders o", On: sqlexpr.Str("o.user_id = u.id")},
		},
		Where:   sqlexpr.Where(sqlexpr.NewEqual("a.active", 1)).And(sqlexpr.NewComparison("u.age", 18, sqlexpr.Ge)),
		GroupBy: sqlexpr.Str("u.id"),
		Having:  sqlexpr.Str("COUNT(o.id) > 0"),
		OrderBy: &sqlexpr.OrderBy{Column: "u.id", Asc: true},
		Skip:    20,
		Take:    10,
	}

	want := "SELECT u.id, COUNT(o.id) AS orders FROM users u" +
		" INNER JOIN accounts a ON a.user_id = u.id" +
		" LEFT JOIN orders o ON o.user_id = u.id" +
		" WHERE ((a.active = 1) AND (u.age >= 18))" +
		" GROUP BY u.id" +
		" HAVING COUNT(o.id) > 0" +
		" ORDER BY u.id ASC" +
		" OFFSET 20 ROWS FETCH NEXT 10 ROWS ONLY"
	assert.Equal(t, want, q.SQL())
}

func TestSelect_JoinOrderPreserved(t *testing.T) {
	q := &Select{
		Columns: sqlexpr.Str("*"),
		From:    "a",
		Joins: []Join{
			{Table: "c", On: sqlexpr.Str("c.id = a.c")},
			{Table: "b", On: sqlexpr.Str("b.id = a.b")},
		},
	}
	assert.Equal(t, "SELECT * FROM a INNER JOIN c ON c.id = a.c INNER JOIN b ON b.id = a.b", q.SQL())
}

func TestSelect_RawStatementWins(t *testing.T) {
	q := &Select{
		Columns:   sqlexpr.Str("id"),
		From:      "t",
		Where:     sqlexpr.NewEqual("id", 1),
		OrderBy:   &sqlexpr.OrderBy{Column: "id"},
		Skip:      0,
		Take:      5,
		Statement: "SELECT 42",
	}
	assert.Equal(t, "SELECT 42", q.SQL())

	// Slots are not consulted, even broken ones.
	q.Columns = (*sqlexpr.String)(nil)
	assert.Equal(t, "SELECT 42", q.SQL())
}

func TestSelect_PaginationRequiresOrderBy(t *testing.T) {
	q := &Select{Columns: sqlexpr.Str("id"), From: "t", Skip: 0, Take: 10}
	assert.Equal(t, "SELECT id FROM t", q.SQL())
}

func TestSelect_PaginationBounds(t *testing.T) {
	tests := []struct {
		name       string
		skip, take int
		paged      bool
	}{
		{"first page", 0, 10, true},
		{"later page", 30, 10, true},
		{"negative skip", -1, 10, false},
		{"zero take", 0, 0, false},
		{"negative take", 5, -3, false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			q := &Select{
				Columns: sqlexpr.Str("id"),
				From:    "t",
				OrderBy: &sqlexpr.OrderBy{Column: "id"},
				Skip:    tc.skip,
				Take:    tc.take,
			}
			out := q.SQL()
			assert.True(t, strings.HasPrefix(out, "SELECT id FROM t ORDER BY id DESC"))
			assert.Equal(t, tc.paged, strings.Contains(out, "OFFSET"))
			assert.Equal(t, tc.paged, strings.Contains(out, "FETCH NEXT"))
		})
	}
}

func TestSelect_EmptyLogicalOmitted(t *testing.T) {
	q := &Select{Columns: sqlexpr.Str("id"), From: "t", Where: sqlexpr.NewLogical(true)}
	assert.Equal(t, "SELECT id FROM t", q.SQL())
}

func TestSelect_FailSafeEmpty(t *testing.T) {
	tests := []struct {
		name string
		q    *Select
	}{
		{"nil columns", &Select{From: "t"}},
		{"nil join condition", &Select{Columns: sqlexpr.Str("*"), From: "t", Joins: []Join{{Table: "u"}}}},
		{"typed nil where", &Select{Columns: sqlexpr.Str("*"), From: "t", Where: sqlexpr.Where((*sqlexpr.String)(nil))}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, "", tc.q.SQL())
		})
	}

	var nilSelect *Select
	assert.Equal(t, "", nilSelect.SQL())
}

func TestInsert(t *testing.T) {
	q := &Insert{
		Into:    "users",
		Columns: sqlexpr.NewArray(false, "name", "age"),
		Values:  sqlexpr.NewArray[any](false, sqlexpr.Str(sqlexpr.Literal("ann")), 31),
	}
	assert.Equal(t, "INSERT INTO users (name, age) VALUES ('ann', 31)", q.SQL())

	q.Columns = nil
	assert.Equal(t, "INSERT INTO users VALUES ('ann', 31)", q.SQL())

	q.Values = nil
	assert.Equal(t, "INSERT INTO users", q.SQL())
}

func TestUpdate(t *testing.T) {
	q := (&Update{Table: "users", Where: sqlexpr.NewEqual("id", 7)}).
		Assign("name", sqlexpr.Str("'bob'")).
		Assign("age", sqlexpr.Str("@age"))

	assert.Equal(t, "UPDATE users SET name = ISNULL('bob', NULL), age = ISNULL(@age, NULL) WHERE (id = 7)", q.SQL())
}

func TestUpdate_NoAssignments(t *testing.T) {
	q := &Update{Table: "users", Where: sqlexpr.NewEqual("id", 7)}
	assert.Equal(t, "", q.SQL())
}

func TestDelete(t *testing.T) {
	assert.Equal(t, "DELETE FROM users", (&Delete{From: "users"}).SQL())
	assert.Equal(t, "DELETE FROM users WHERE (id = 7)", (&Delete{From: "users", Where: sqlexpr.NewEqual("id", 7)}).SQL())
}

func TestRaw(t *testing.T) {
	assert.Equal(t, "EXEC dbo.Ping", Raw("EXEC dbo.Ping").SQL())
	assert.False(t, validation.IsValid(Raw("")))
}

func TestValidation_MissingFilter(t *testing.T) {
	q := &Delete{From: "users"}
	assert.False(t, validation.IsValid(q))
	assert.Equal(t, []string{"where"}, validation.Missing(q))

	// Validation never mutates the query.
	assert.False(t, validation.IsValid(q))
	assert.Equal(t, "users", q.From)
	assert.Nil(t, q.Where)

	q.Where = sqlexpr.NewEqual("id", 1)
	assert.True(t, validation.IsValid(q))

	u := &Update{Table: "users", Where: sqlexpr.NewLogical(true)}
	u.Assign("a", sqlexpr.Str("1"))
	assert.Equal(t, []string{"where"}, validation.Missing(u))
}

func TestValidation_Select(t *testing.T) {
	assert.Equal(t, []string{"columns", "from"}, validation.Missing(&Select{}))
	assert.True(t, validation.IsValid(&Select{Statement: "SELECT 1"}))
	assert.True(t, validation.IsValid(&Select{Columns: sqlexpr.Str("*"), From: "t"}))
	assert.Equal(t, []string{"columns"}, validation.Missing(&Select{Columns: (*sqlexpr.String)(nil), From: "t"}))
}

func TestValidation_Insert(t *testing.T) {
	assert.Equal(t, []string{"into", "values"}, validation.Missing(&Insert{}))
	assert.Equal(t, []string{"values"}, validation.Missing(&Insert{Into: "t", Values: sqlexpr.NewArray[int](false)}))
}

func TestBuild(t *testing.T) {
	text, err := Build(&Select{Columns: sqlexpr.Str("id"), From: "t"})
	require.NoError(t, err)
	assert.Equal(t, "SELECT id FROM t", text)

	_, err = Build(&Delete{From: "t"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "where")

	_, err = Build(&Update{Table: "t", Set: []Assignment{{Column: "a"}}, Where: sqlexpr.Str("1=1")})
	require.ErrorIs(t, err, ErrEmpty)

	_, err = Build(nil)
	require.ErrorIs(t, err, ErrEmpty)
}
