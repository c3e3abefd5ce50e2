// Package session executes statements against a database and materializes
// their results.
//
// A Session is one logical unit of work:
//
//	Idle -> Connected -> (Executing -> Connected)* -> Closed
//
// Outside a transaction every call acquires its own connection and releases
// it on every exit path. Begin pins one connection and transaction that all
// later calls reuse until Commit or Rollback, which end the transaction and
// release the connection. Close is idempotent and rolls back a transaction
// left open.
//
// CONCURRENCY:
//
// A Session is for sequential use. Callers that need concurrent queries use
// one Session each.
//
// IDENTITY:
//
// When the session carries a positive subject id, the ContextSetter runs on
// every connection right after it is opened. Connections reused within a
// transaction are set once.
//
// TIMING:
//
// Each call reports open, execute and fetch durations to the Observer, and
// Close reports the close phase, all tagged with the session id.
package session

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/roach88/sqlgate/internal/param"
	"github.com/roach88/sqlgate/internal/rowmap"
)

// Statement is anything that renders SQL text. sqlquery.Query satisfies it.
type Statement interface {
	SQL() string
}

// Row is the current row of a result set.
type Row interface {
	Columns() ([]string, error)
	Scan(dest ...any) error
}

// Mapper converts one row to one record.
type Mapper[T any] func(row Row) (T, error)

// Accumulator folds one row into the result, appending zero or more records.
type Accumulator[T any] func(row Row, out []T) ([]T, error)

// Session owns a database handle and, while a transaction is active, one
// pinned connection.
type Session struct {
	db       *sql.DB
	id       string
	identity Identity
	setter   ContextSetter
	observer Observer
	clock    Clock
	logger   *slog.Logger

	conn   *sql.Conn
	tx     *sql.Tx
	closed bool
}

// Option configures a Session.
type Option func(*Session)

// WithLogger sets the logger used for lifecycle messages and, unless
// WithObserver is given, for phase timings.
func WithLogger(l *slog.Logger) Option {
	return func(s *Session) { s.logger = l }
}

// WithObserver sets the timing sink.
func WithObserver(o Observer) Option {
	return func(s *Session) { s.observer = o }
}

// WithClock sets the clock used for timings.
func WithClock(c Clock) Option {
	return func(s *Session) { s.clock = c }
}

// WithContextSetter replaces the row-level security setter.
func WithContextSetter(cs ContextSetter) Option {
	return func(s *Session) { s.setter = cs }
}

// WithIdentity sets the ambient identity. Non-positive subject ids are
// treated as anonymous.
func WithIdentity(id Identity) Option {
	return func(s *Session) { s.SetIdentity(id) }
}

// WithIDGenerator sets the source of the session id.
func WithIDGenerator(g IDGenerator) Option {
	return func(s *Session) { s.id = g.Generate() }
}

// New creates a session over db. No connection is opened until first use.
func New(db *sql.DB, opts ...Option) *Session {
	s := &Session{
		db:     db,
		setter: RLSContextSetter{},
		clock:  systemClock{},
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.id == "" {
		s.id = UUIDv7Generator{}.Generate()
	}
	if s.observer == nil {
		s.observer = LogObserver{Logger: s.logger}
	}
	return s
}

// ID returns the session id used to tag timings.
func (s *Session) ID() string { return s.id }

// Identity returns the ambient identity.
func (s *Session) Identity() Identity { return s.identity }

// SetIdentity replaces the ambient identity for connections opened later.
func (s *Session) SetIdentity(id Identity) {
	if id.SubjectID < 0 {
		id.SubjectID = 0
	}
	s.identity = id
}

// SetSubject sets the subject id. Non-positive ids are ignored.
func (s *Session) SetSubject(id int64) {
	if id > 0 {
		s.identity.SubjectID = id
	}
}

// InTx reports whether a transaction is active.
func (s *Session) InTx() bool { return s.tx != nil }

// CallOption configures one Query, QueryInto or Execute call.
type CallOption func(*call)

type call struct {
	op        string
	params    []*param.Parameter
	holder    any
	procedure bool
	columns   func([]string)
}

// WithParams binds explicit parameters. Output-direction parameters are
// refreshed after the call succeeds.
func WithParams(ps ...*param.Parameter) CallOption {
	return func(c *call) { c.params = append(c.params, ps...) }
}

// WithArgs binds the members of a value holder as input parameters.
func WithArgs(holder any) CallOption {
	return func(c *call) { c.holder = holder }
}

// AsProcedure runs the statement text as a stored procedure name.
func AsProcedure() CallOption {
	return func(c *call) { c.procedure = true }
}

// WithColumns reports the result's column names once the query has run,
// before any row is read, so fn sees them even for an empty result.
func WithColumns(fn func(columns []string)) CallOption {
	return func(c *call) { c.columns = fn }
}

// Op names the call in timings and errors.
func Op(name string) CallOption {
	return func(c *call) { c.op = name }
}

func newCall(defaultOp string, opts []CallOption) *call {
	c := &call{op: defaultOp}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Query runs stmt and maps each row to a T, in the order the engine yields
// them. With a nil mapper rows are mapped by column name into T, which must
// be a struct or pointer to struct.
func Query[T any](ctx context.Context, s *Session, stmt Statement, mapper Mapper[T], opts ...CallOption) ([]T, error) {
	c := newCall("query", opts)

	if mapper != nil {
		return fetch(ctx, s, stmt, c, func(Row) (func(Row, []T) ([]T, error), error) {
			return func(row Row, out []T) ([]T, error) {
				v, err := mapper(row)
				if err != nil {
					return out, err
				}
				return append(out, v), nil
			}, nil
		})
	}

	reg, err := rowmap.For[T]()
	if err != nil {
		return nil, newError(CodeMappingFailed, c.op, "invalid record type", err)
	}
	return fetch(ctx, s, stmt, c, func(first Row) (func(Row, []T) ([]T, error), error) {
		cols, err := first.Columns()
		if err != nil {
			return nil, err
		}
		plan := reg.Plan(cols)
		return func(row Row, out []T) ([]T, error) {
			v, err := plan.Row(row)
			if err != nil {
				return out, err
			}
			return append(out, v), nil
		}, nil
	})
}

// QueryInto runs stmt and folds every row into the result with acc.
func QueryInto[T any](ctx context.Context, s *Session, stmt Statement, acc Accumulator[T], opts ...CallOption) ([]T, error) {
	c := newCall("query", opts)
	if acc == nil {
		return nil, newError(CodeMappingFailed, c.op, "nil accumulator", nil)
	}
	return fetch(ctx, s, stmt, c, func(Row) (func(Row, []T) ([]T, error), error) {
		return acc, nil
	})
}

// Execute runs a non-query statement and returns the affected row count.
func (s *Session) Execute(ctx context.Context, stmt Statement, opts ...CallOption) (int64, error) {
	c := newCall("execute", opts)

	text, args, err := s.prepare(stmt, c)
	if err != nil {
		return 0, err
	}

	ex, release, err := s.acquire(ctx, c.op)
	if err != nil {
		return 0, err
	}
	defer release()

	start := s.clock.Now()
	res, err := ex.ExecContext(ctx, text, args...)
	if err != nil {
		s.observe(c.op, PhaseExecute, start, -1, err)
		return 0, newError(CodeExecutionFailed, c.op, "execute statement", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		affected = -1
	}
	s.observe(c.op, PhaseExecute, start, affected, nil)

	param.RefreshAll(c.params)
	return affected, nil
}

// fetch runs a row-returning call. prepareRow is invoked with the first row
// to build the per-row step, so column resolution happens once per result.
func fetch[T any](ctx context.Context, s *Session, stmt Statement, c *call,
	prepareRow func(first Row) (func(Row, []T) ([]T, error), error)) ([]T, error) {

	text, args, err := s.prepare(stmt, c)
	if err != nil {
		return nil, err
	}

	ex, release, err := s.acquire(ctx, c.op)
	if err != nil {
		return nil, err
	}
	defer release()

	start := s.clock.Now()
	rows, err := ex.QueryContext(ctx, text, args...)
	s.observe(c.op, PhaseExecute, start, -1, err)
	if err != nil {
		return nil, newError(CodeExecutionFailed, c.op, "execute query", err)
	}
	defer rows.Close()

	if c.columns != nil {
		cols, err := rows.Columns()
		if err != nil {
			return nil, newError(CodeMappingFailed, c.op, "resolve columns", err)
		}
		c.columns(cols)
	}

	start = s.clock.Now()
	out := []T{}
	var step func(Row, []T) ([]T, error)
	var count int64
	for rows.Next() {
		if step == nil {
			if step, err = prepareRow(rows); err != nil {
				s.observe(c.op, PhaseFetch, start, count, err)
				return nil, newError(CodeMappingFailed, c.op, "resolve columns", err)
			}
		}
		if out, err = step(rows, out); err != nil {
			s.observe(c.op, PhaseFetch, start, count, err)
			return nil, newError(CodeMappingFailed, c.op, "map row", err)
		}
		count++
	}
	if err := rows.Err(); err != nil {
		s.observe(c.op, PhaseFetch, start, count, err)
		return nil, newError(CodeExecutionFailed, c.op, "fetch rows", err)
	}
	if err := rows.Close(); err != nil {
		s.observe(c.op, PhaseFetch, start, count, err)
		return nil, newError(CodeExecutionFailed, c.op, "close rows", err)
	}
	s.observe(c.op, PhaseFetch, start, count, nil)

	// Output parameters are only final once the result set is closed.
	param.RefreshAll(c.params)
	return out, nil
}

// prepare renders stmt and binds the call's parameters.
func (s *Session) prepare(stmt Statement, c *call) (string, []any, error) {
	if s.closed {
		return "", nil, newError(CodeSessionClosed, c.op, "session is closed", nil)
	}

	text := render(stmt)
	if text == "" {
		return "", nil, newError(CodeCompositionFailed, c.op, "statement rendered empty", nil)
	}
	if c.procedure && strings.ContainsAny(text, " \t\r\n;") {
		return "", nil, newError(CodeCompositionFailed, c.op, "procedure call requires a bare procedure name", nil)
	}

	params := c.params
	if c.holder != nil {
		held, err := param.FromHolder(c.holder)
		if err != nil {
			return "", nil, newError(CodeCompositionFailed, c.op, "derive parameters", err)
		}
		params = append(append([]*param.Parameter{}, params...), held...)
	}
	args, err := param.Args(params)
	if err != nil {
		return "", nil, newError(CodeCompositionFailed, c.op, "bind parameters", err)
	}
	return text, args, nil
}

// render returns stmt's text, or "" for a nil or failing statement.
func render(stmt Statement) (text string) {
	defer func() {
		if recover() != nil {
			text = ""
		}
	}()
	if stmt == nil {
		return ""
	}
	return strings.TrimSpace(stmt.SQL())
}

// acquire returns the executor for one call and the function that releases
// it. Inside a transaction the pinned transaction is returned and release is
// a no-op.
func (s *Session) acquire(ctx context.Context, op string) (Execer, func(), error) {
	if s.tx != nil {
		return s.tx, func() {}, nil
	}
	conn, err := s.open(ctx, op)
	if err != nil {
		return nil, nil, err
	}
	return conn, func() { conn.Close() }, nil
}

// open takes a connection from the pool and applies the identity context.
func (s *Session) open(ctx context.Context, op string) (*sql.Conn, error) {
	start := s.clock.Now()
	conn, err := s.db.Conn(ctx)
	if err == nil && s.identity.SubjectID > 0 && s.setter != nil {
		if err = s.setter.SetContext(ctx, conn, s.identity); err != nil {
			conn.Close()
		}
	}
	s.observe(op, PhaseOpen, start, -1, err)
	if err != nil {
		return nil, newError(CodeConnectionFailed, op, "open connection", err)
	}
	return conn, nil
}

// Begin starts a transaction at the given isolation level. Later calls reuse
// its connection until Commit or Rollback.
func (s *Session) Begin(ctx context.Context, isolation sql.IsolationLevel) error {
	const op = "begin"
	if s.closed {
		return newError(CodeSessionClosed, op, "session is closed", nil)
	}
	if s.tx != nil {
		return newError(CodeTxActive, op, "transaction already active", nil)
	}

	conn, err := s.open(ctx, op)
	if err != nil {
		return err
	}
	tx, err := conn.BeginTx(ctx, &sql.TxOptions{Isolation: isolation})
	if err != nil {
		conn.Close()
		return newError(CodeExecutionFailed, op, "begin transaction", err)
	}

	s.conn, s.tx = conn, tx
	s.logger.Debug("transaction started", "session", s.id, "isolation", isolation.String())
	return nil
}

// Commit commits the active transaction and releases its connection.
func (s *Session) Commit() error {
	return s.endTx("commit", (*sql.Tx).Commit)
}

// Rollback rolls back the active transaction and releases its connection.
func (s *Session) Rollback() error {
	return s.endTx("rollback", (*sql.Tx).Rollback)
}

func (s *Session) endTx(op string, finish func(*sql.Tx) error) error {
	if s.tx == nil {
		return newError(CodeNoTx, op, "no active transaction", nil)
	}

	err := finish(s.tx)
	s.releaseTx()
	if err != nil {
		return newError(CodeExecutionFailed, op, op+" transaction", err)
	}
	s.logger.Debug("transaction ended", "session", s.id, "op", op)
	return nil
}

func (s *Session) releaseTx() {
	s.tx = nil
	if s.conn != nil {
		s.conn.Close()
		s.conn = nil
	}
}

// Close ends the session. An active transaction is rolled back. Calling
// Close more than once is a no-op.
func (s *Session) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true

	start := s.clock.Now()
	var err error
	if s.tx != nil {
		if rbErr := s.tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			err = newError(CodeExecutionFailed, "close", "rollback on close", rbErr)
		}
		s.releaseTx()
	}
	s.observe("close", PhaseClose, start, -1, err)
	return err
}

func (s *Session) observe(op string, phase Phase, start time.Time, rows int64, err error) {
	s.observer.Observe(Timing{
		Session: s.id,
		Op:      op,
		Phase:   phase,
		Elapsed: s.clock.Now().Sub(start),
		Rows:    rows,
		Err:     err,
	})
}
