package testutil

import (
	"database/sql"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/require"
)

// OpenSQLite opens a private in-memory SQLite database, applies stmts, and
// closes it when the test ends.
//
// The pool is limited to one connection: every connection to ":memory:"
// would otherwise see its own empty database.
func OpenSQLite(t testing.TB, stmts ...string) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	for _, stmt := range stmts {
		_, err := db.Exec(stmt)
		require.NoError(t, err, "seed statement: %s", stmt)
	}
	return db
}
