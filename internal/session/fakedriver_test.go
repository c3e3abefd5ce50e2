package session

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

// fakeDriver is a scripted database/sql driver for behaviour SQLite cannot
// show: output parameters, session-context calls, and failures on open or
// mid-fetch. Each test registers its own fakeDB under a unique DSN.
type fakeDriver struct {
	mu  sync.Mutex
	dbs map[string]*fakeDB
}

var fake = &fakeDriver{dbs: make(map[string]*fakeDB)}

func init() {
	sql.Register("sessionfake", fake)
}

type fakeResult struct {
	columns []string
	rows    [][]driver.Value
	failAt  int   // row index at which Next fails with err; -1 fails the query itself
	err     error // nil never fails
}

type fakeDB struct {
	mu sync.Mutex

	openErr error
	results map[string]fakeResult // keyed by query text
	execErr map[string]error
	outs    map[string]any // output values by parameter name
	log     []string

	opens, closes, commits, rollbacks int
}

func (d *fakeDB) record(entry string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.log = append(d.log, entry)
}

func (d *fakeDB) entries() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.log...)
}

// openFake registers a fresh fakeDB and opens a pool over it.
func openFake(t *testing.T) (*sql.DB, *fakeDB) {
	t.Helper()

	state := &fakeDB{
		results: make(map[string]fakeResult),
		execErr: make(map[string]error),
		outs:    make(map[string]any),
	}
	fake.mu.Lock()
	fake.dbs[t.Name()] = state
	fake.mu.Unlock()

	db, err := sql.Open("sessionfake", t.Name())
	require.NoError(t, err)
	t.Cleanup(func() {
		db.Close()
		fake.mu.Lock()
		delete(fake.dbs, t.Name())
		fake.mu.Unlock()
	})
	return db, state
}

func (f *fakeDriver) Open(name string) (driver.Conn, error) {
	f.mu.Lock()
	state, ok := f.dbs[name]
	f.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("fake database %q not registered", name)
	}

	state.mu.Lock()
	defer state.mu.Unlock()
	if state.openErr != nil {
		return nil, state.openErr
	}
	state.opens++
	return &fakeConn{db: state}, nil
}

type fakeConn struct {
	db *fakeDB
}

var (
	_ driver.ExecerContext     = (*fakeConn)(nil)
	_ driver.QueryerContext    = (*fakeConn)(nil)
	_ driver.ConnBeginTx       = (*fakeConn)(nil)
	_ driver.NamedValueChecker = (*fakeConn)(nil)
)

func (c *fakeConn) Prepare(string) (driver.Stmt, error) {
	return nil, errors.New("fake: prepare not supported")
}

func (c *fakeConn) Close() error {
	c.db.mu.Lock()
	defer c.db.mu.Unlock()
	c.db.closes++
	return nil
}

func (c *fakeConn) Begin() (driver.Tx, error) {
	return c.BeginTx(context.Background(), driver.TxOptions{})
}

func (c *fakeConn) BeginTx(_ context.Context, opts driver.TxOptions) (driver.Tx, error) {
	c.db.record(fmt.Sprintf("begin isolation=%d", opts.Isolation))
	return &fakeTx{db: c.db}, nil
}

// CheckNamedValue accepts every argument, including sql.Out.
func (c *fakeConn) CheckNamedValue(*driver.NamedValue) error {
	return nil
}

func (c *fakeConn) ExecContext(_ context.Context, query string, args []driver.NamedValue) (driver.Result, error) {
	c.db.record("exec: " + query + formatArgs(args))

	c.db.mu.Lock()
	err := c.db.execErr[query]
	outs := c.db.outs
	c.db.mu.Unlock()
	if err != nil {
		return nil, err
	}

	for _, nv := range args {
		out, ok := nv.Value.(sql.Out)
		if !ok {
			continue
		}
		if err := assignOut(out.Dest, outs[nv.Name]); err != nil {
			return nil, err
		}
	}
	return driver.RowsAffected(3), nil
}

func (c *fakeConn) QueryContext(_ context.Context, query string, args []driver.NamedValue) (driver.Rows, error) {
	c.db.record("query: " + query + formatArgs(args))

	c.db.mu.Lock()
	res, ok := c.db.results[query]
	c.db.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("fake: no result scripted for %q", query)
	}
	if res.err != nil && res.failAt < 0 {
		return nil, res.err
	}
	return &fakeRows{res: res}, nil
}

type fakeTx struct {
	db *fakeDB
}

func (tx *fakeTx) Commit() error {
	tx.db.mu.Lock()
	defer tx.db.mu.Unlock()
	tx.db.commits++
	return nil
}

func (tx *fakeTx) Rollback() error {
	tx.db.mu.Lock()
	defer tx.db.mu.Unlock()
	tx.db.rollbacks++
	return nil
}

type fakeRows struct {
	res fakeResult
	idx int
}

func (r *fakeRows) Columns() []string { return r.res.columns }

func (r *fakeRows) Close() error { return nil }

func (r *fakeRows) Next(dest []driver.Value) error {
	if r.res.err != nil && r.res.failAt >= 0 && r.idx == r.res.failAt {
		return r.res.err
	}
	if r.idx >= len(r.res.rows) {
		return io.EOF
	}
	copy(dest, r.res.rows[r.idx])
	r.idx++
	return nil
}

func assignOut(dest any, v any) error {
	switch d := dest.(type) {
	case sql.Scanner:
		return d.Scan(v)
	case *any:
		*d = v
		return nil
	case *[]byte:
		b, _ := v.([]byte)
		*d = b
		return nil
	}
	return fmt.Errorf("fake: unsupported out destination %T", dest)
}

func formatArgs(args []driver.NamedValue) string {
	if len(args) == 0 {
		return ""
	}
	parts := make([]string, 0, len(args))
	for _, nv := range args {
		if _, ok := nv.Value.(sql.Out); ok {
			parts = append(parts, nv.Name+"=<out>")
			continue
		}
		parts = append(parts, fmt.Sprintf("%s=%v", nv.Name, nv.Value))
	}
	sort.Strings(parts)
	return " [" + strings.Join(parts, " ") + "]"
}
