package session

import (
	"context"
	"database/sql"
	"strings"
)

// Identity is the ambient caller context pushed into every new connection
// for row-level access control.
type Identity struct {
	SubjectID int64
	Address   string
}

// Execer runs a statement on a connection or transaction.
type Execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// ContextSetter pushes an identity into a freshly opened connection.
type ContextSetter interface {
	SetContext(ctx context.Context, conn Execer, id Identity) error
}

// ContextSetterFunc adapts a function to ContextSetter.
type ContextSetterFunc func(ctx context.Context, conn Execer, id Identity) error

func (f ContextSetterFunc) SetContext(ctx context.Context, conn Execer, id Identity) error {
	return f(ctx, conn, id)
}

// DefaultContextStatement is the statement run by RLSContextSetter when no
// other is configured.
const DefaultContextStatement = "EXECUTE rls.Set_Session_Context @UserID = @UserID, @IpAddress = @IpAddress"

// RLSContextSetter calls a session-context procedure with the subject id and
// originating address bound as @UserID and @IpAddress.
type RLSContextSetter struct {
	Statement string
}

func (r RLSContextSetter) SetContext(ctx context.Context, conn Execer, id Identity) error {
	stmt := strings.TrimSpace(r.Statement)
	if stmt == "" {
		stmt = DefaultContextStatement
	}
	_, err := conn.ExecContext(ctx, stmt,
		sql.Named("UserID", id.SubjectID),
		sql.Named("IpAddress", id.Address),
	)
	return err
}
