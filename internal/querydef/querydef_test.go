package querydef

import (
	"io/fs"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/sqlgate/internal/param"
	"github.com/roach88/sqlgate/internal/sqlquery"
)

// TestBuild_Golden renders every definition under testdata/queries and
// compares the SQL with testdata/golden/<name>.golden.
func TestBuild_Golden(t *testing.T) {
	files, err := filepath.Glob(filepath.Join("testdata", "queries", "*.yaml"))
	require.NoError(t, err)
	require.NotEmpty(t, files)

	for _, file := range files {
		name := strings.TrimSuffix(filepath.Base(file), ".yaml")
		t.Run(name, func(t *testing.T) {
			doc, err := Load(file)
			require.NoError(t, err)
			assert.Equal(t, name, doc.Name)

			q, err := doc.Build()
			require.NoError(t, err)

			text, err := sqlquery.Build(q)
			require.NoError(t, err)

			g := goldie.New(t,
				goldie.WithFixtureDir("testdata/golden"),
				goldie.WithNameSuffix(".golden"),
			)
			g.Assert(t, name, []byte(text+"\n"))
		})
	}
}

func TestParse_Rejects(t *testing.T) {
	tests := []struct {
		name    string
		src     string
		wantErr string
	}{
		{"empty", "", "empty query definition"},
		{"no kind", "name: x\nfrom: t\n", "no kind"},
		{"unknown kind", "kind: merge\n", "unknown query kind"},
		{"unknown field", "kind: select\ncolums: a\n", "invalid query definition"},
		{"two forms", "kind: delete\nfrom: t\nwhere: {raw: a = 1, eq: {key: b, value: 2}}\n", "exactly one form"},
		{"empty condition", "kind: delete\nfrom: t\nwhere: {}\n", "found 0"},
		{"nested bad condition", "kind: delete\nfrom: t\nwhere:\n  all:\n    - {}\n", "where.all[0]"},
		{"join without on", "kind: select\njoins:\n  - table: r\n", "joins[0].on: missing condition"},
		{"procedure without name", "kind: procedure\n", "requires statement"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.src))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestBuild_MissingMandatory(t *testing.T) {
	tests := []struct {
		name    string
		src     string
		missing string
	}{
		{"select without columns", "name: q\nkind: select\nfrom: t\n", "missing columns"},
		{"delete without where", "name: q\nkind: delete\nfrom: t\n", "missing where"},
		{"update without set", "name: q\nkind: update\ntable: t\nwhere: {raw: id = 1}\n", "missing set"},
		{"insert without values", "name: q\nkind: insert\ninto: t\n", "missing values"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc, err := Parse([]byte(tt.src))
			require.NoError(t, err)
			_, err = doc.Build()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.missing)
		})
	}
}

func TestBuild_UnknownComparatorFallsBackToEquality(t *testing.T) {
	doc, err := Parse([]byte("kind: delete\nfrom: t\nwhere:\n  compare: {key: a, op: approx, value: x}\n"))
	require.NoError(t, err)

	q, err := doc.Build()
	require.NoError(t, err)
	assert.Equal(t, "DELETE FROM t WHERE (a = 'x')", q.SQL())
}

func TestBuild_NotGroupsWholeCondition(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{
			"raw with or",
			"kind: delete\nfrom: t\nwhere: {not: {raw: \"a = 1 OR b = 2\"}}\n",
			"DELETE FROM t WHERE (NOT (a = 1 OR b = 2))",
		},
		{
			"nested not",
			"kind: delete\nfrom: t\nwhere: {not: {not: {raw: \"a = 1 AND b = 2\"}}}\n",
			"DELETE FROM t WHERE (NOT ((NOT (a = 1 AND b = 2))))",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc, err := Parse([]byte(tt.src))
			require.NoError(t, err)

			q, err := doc.Build()
			require.NoError(t, err)
			assert.Equal(t, tt.want, q.SQL())
		})
	}
}

func TestProcedureAndParameters(t *testing.T) {
	src := `
name: tally
kind: procedure
statement: dbo.Tally
params:
  - {name: "@from", type: Date, value: "2024-01-01"}
  - {name: total, type: Int, direction: out}
  - {name: label, type: NVarChar, direction: inout, size: 8, value: start}
`
	doc, err := Parse([]byte(src))
	require.NoError(t, err)
	assert.True(t, doc.Procedure())

	q, err := doc.Build()
	require.NoError(t, err)
	assert.Equal(t, sqlquery.Raw("dbo.Tally"), q)

	params, err := doc.Parameters()
	require.NoError(t, err)
	require.Len(t, params, 3)

	assert.Equal(t, "from", params[0].BindName())
	assert.Equal(t, param.Date, params[0].Type)
	assert.Equal(t, param.DirIn, params[0].Direction)
	assert.Equal(t, param.DirOut, params[1].Direction)
	assert.Equal(t, param.DirInOut, params[2].Direction)
	assert.Equal(t, 8, params[2].Size)
}

func TestParameters_Errors(t *testing.T) {
	for _, src := range []string{
		"kind: procedure\nstatement: p\nparams: [{type: Int}]\n",
		"kind: procedure\nstatement: p\nparams: [{name: a, type: Blob}]\n",
		"kind: procedure\nstatement: p\nparams: [{name: a, direction: up}]\n",
	} {
		doc, err := Parse([]byte(src))
		require.NoError(t, err)
		_, err = doc.Parameters()
		assert.Error(t, err, src)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.ErrorIs(t, err, fs.ErrNotExist)
}
