// Package sqldriver wraps a database/sql driver.Driver (github.com/lib/pq
// in particular) so every query and exec runs inside a local client span,
// following the same driver.Conn-wrapping shape the teacher uses for its
// own SQL contrib packages: the wrapped driver is registered under a new
// name and used exactly like the original via sql.Open.
package sqldriver

import (
	"context"
	"database/sql"
	"database/sql/driver"

	"github.com/lib/pq"

	"github.com/reddit/baseplate.go/baseplate"
	"github.com/reddit/baseplate.go/tracing/ext"
)

// RegisterPQ registers a traced lib/pq driver under the name "postgres-traced"
// and returns that name for use with sql.Open, the concrete instantiation
// of Register this module ships out of the box (spec §4.8 "contrib/sqldriver").
func RegisterPQ(bp *baseplate.Baseplate) string {
	return Register("postgres", &pq.Driver{}, bp)
}

// Register wraps driver under name+"-traced" and returns the name to pass
// to sql.Open. bp supplies the local span's parent via whatever context
// the query is issued with -- callers must use sql.Conn/QueryContext-style
// APIs for spans to attach correctly; the plain (non-context) *sql.DB
// methods get an untraced pass-through.
func Register(name string, drv driver.Driver, bp *baseplate.Baseplate) string {
	tracedName := name + "-traced"
	sql.Register(tracedName, &tracedDriver{drv: drv, bp: bp})
	return tracedName
}

type tracedDriver struct {
	drv driver.Driver
	bp  *baseplate.Baseplate
}

// Open implements driver.Driver.
func (d *tracedDriver) Open(dsn string) (driver.Conn, error) {
	conn, err := d.drv.Open(dsn)
	if err != nil {
		return nil, err
	}
	return &tracedConn{conn: conn, bp: d.bp}, nil
}

type tracedConn struct {
	conn driver.Conn
	bp   *baseplate.Baseplate
}

// Prepare implements driver.Conn.
func (c *tracedConn) Prepare(query string) (driver.Stmt, error) {
	stmt, err := c.conn.Prepare(query)
	if err != nil {
		return nil, err
	}
	return &tracedStmt{stmt: stmt, query: query, bp: c.bp}, nil
}

// Close implements driver.Conn.
func (c *tracedConn) Close() error { return c.conn.Close() }

// Begin implements driver.Conn.
func (c *tracedConn) Begin() (driver.Tx, error) { return c.conn.Begin() }

// PrepareContext implements driver.ConnPrepareContext when the underlying
// connection supports it, so a query-level span can be started against the
// context the caller issued the query with.
func (c *tracedConn) PrepareContext(ctx context.Context, query string) (driver.Stmt, error) {
	if pc, ok := c.conn.(driver.ConnPrepareContext); ok {
		stmt, err := pc.PrepareContext(ctx, query)
		if err != nil {
			return nil, err
		}
		return &tracedStmt{stmt: stmt, query: query, bp: c.bp}, nil
	}
	return c.Prepare(query)
}

type tracedStmt struct {
	stmt  driver.Stmt
	query string
	bp    *baseplate.Baseplate
}

// Close implements driver.Stmt.
func (s *tracedStmt) Close() error { return s.stmt.Close() }

// NumInput implements driver.Stmt.
func (s *tracedStmt) NumInput() int { return s.stmt.NumInput() }

// Exec implements driver.Stmt (legacy, non-context path; untraced).
func (s *tracedStmt) Exec(args []driver.Value) (driver.Result, error) {
	return s.stmt.Exec(args)
}

// Query implements driver.Stmt (legacy, non-context path; untraced).
func (s *tracedStmt) Query(args []driver.Value) (driver.Rows, error) {
	return s.stmt.Query(args)
}

// ExecContext implements driver.StmtExecContext, wrapping the call in a
// local client span tagged with the query text (spec §4.8
// "contrib/sqldriver").
func (s *tracedStmt) ExecContext(ctx context.Context, args []driver.NamedValue) (driver.Result, error) {
	ec, ok := s.stmt.(driver.StmtExecContext)
	if !ok {
		return nil, driver.ErrSkip
	}
	_, span := s.bp.StartLocalSpan(ctx, "sql.exec", "sql")
	span.SetTag(ext.Component, "sql")
	span.SetTag(ext.DBStatement, s.query)
	res, err := ec.ExecContext(ctx, args)
	span.Finish(err)
	return res, err
}

// QueryContext implements driver.StmtQueryContext, wrapping the call in a
// local client span tagged with the query text.
func (s *tracedStmt) QueryContext(ctx context.Context, args []driver.NamedValue) (driver.Rows, error) {
	qc, ok := s.stmt.(driver.StmtQueryContext)
	if !ok {
		return nil, driver.ErrSkip
	}
	_, span := s.bp.StartLocalSpan(ctx, "sql.query", "sql")
	span.SetTag(ext.Component, "sql")
	span.SetTag(ext.DBStatement, s.query)
	rows, err := qc.QueryContext(ctx, args)
	span.Finish(err)
	return rows, err
}
