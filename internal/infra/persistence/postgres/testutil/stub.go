// Package testutil provides an in-memory database/sql driver that speaks the
// few statements the snapshot stores issue. Inserts made inside a transaction
// become visible only on commit.
package testutil

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync/atomic"
)

// StubConn is the single connection behind a stub database.
type StubConn struct {
	// Execs lists every statement passed to ExecContext.
	Execs []string
	// Tables holds committed rows keyed by column name.
	Tables map[string][]map[string]any
	// Inserts counts insert statements accepted, committed or not.
	Inserts int
	// Committed and RolledBack count finished transactions.
	Committed  int
	RolledBack int

	FailPing   bool
	FailExec   bool
	FailBegin  bool
	FailCommit bool
	// FailTables makes inserts into and selects from the named tables fail.
	FailTables map[string]bool

	pending []pendingInsert
	inTx    bool
}

type pendingInsert struct {
	table  string
	row    map[string]any
	upsert bool
}

var stubSeq atomic.Int64

// NewStubDB registers a fresh stub driver and opens a sql.DB on it.
func NewStubDB() (*sql.DB, *StubConn) {
	conn := &StubConn{Tables: make(map[string][]map[string]any)}
	name := fmt.Sprintf("rentcore-stub-%d", stubSeq.Add(1))
	sql.Register(name, stubDriver{conn: conn})
	db, err := sql.Open(name, "stub")
	if err != nil {
		panic(err)
	}
	// one connection keeps transaction state on this StubConn
	db.SetMaxOpenConns(1)
	return db, conn
}

// Row returns the committed row of table whose first column equals key.
func (c *StubConn) Row(table string, key any) (map[string]any, bool) {
	for _, row := range c.Tables[table] {
		if keyOf(row) == key {
			return row, true
		}
	}
	return nil, false
}

type stubDriver struct{ conn *StubConn }

func (d stubDriver) Open(string) (driver.Conn, error) { return d.conn, nil }

// Prepare implements driver.Conn. Only the context-aware paths are supported.
func (c *StubConn) Prepare(string) (driver.Stmt, error) {
	return nil, errors.New("stub: prepared statements unsupported")
}

// Close implements driver.Conn.
func (c *StubConn) Close() error { return nil }

// Begin implements driver.Conn.
func (c *StubConn) Begin() (driver.Tx, error) {
	return c.BeginTx(context.Background(), driver.TxOptions{})
}

// Ping implements driver.Pinger.
func (c *StubConn) Ping(context.Context) error {
	if c.FailPing {
		return errors.New("stub: ping failed")
	}
	return nil
}

// BeginTx implements driver.ConnBeginTx.
func (c *StubConn) BeginTx(context.Context, driver.TxOptions) (driver.Tx, error) {
	if c.FailBegin {
		return nil, errors.New("stub: begin failed")
	}
	c.inTx, c.pending = true, nil
	return stubTx{conn: c}, nil
}

// ExecContext implements driver.ExecerContext. Statements other than inserts
// are recorded and otherwise ignored.
func (c *StubConn) ExecContext(_ context.Context, query string, args []driver.NamedValue) (driver.Result, error) {
	c.Execs = append(c.Execs, query)
	if c.FailExec {
		return nil, errors.New("stub: exec failed")
	}
	if !strings.HasPrefix(strings.ToUpper(strings.TrimSpace(query)), "INSERT INTO") {
		return driver.RowsAffected(0), nil
	}
	table, cols, err := parseInsert(query)
	if err != nil {
		return nil, err
	}
	if c.FailTables[table] {
		return nil, fmt.Errorf("stub: insert into %s failed", table)
	}
	if len(cols) != len(args) {
		return nil, fmt.Errorf("stub: %d columns but %d args for %s", len(cols), len(args), table)
	}
	row := make(map[string]any, len(cols)+1)
	for i, col := range cols {
		row[col] = args[i].Value
	}
	row[keyColumn] = cols[0]
	ins := pendingInsert{table: table, row: row, upsert: strings.Contains(strings.ToUpper(query), "ON CONFLICT")}
	c.Inserts++
	if c.inTx {
		c.pending = append(c.pending, ins)
	} else {
		c.apply(ins)
	}
	return driver.RowsAffected(1), nil
}

// keyColumn remembers which column an inserted row is keyed by.
const keyColumn = "\x00key"

func keyOf(row map[string]any) any {
	col, _ := row[keyColumn].(string)
	return row[col]
}

func (c *StubConn) apply(ins pendingInsert) {
	rows := c.Tables[ins.table]
	if ins.upsert {
		key := keyOf(ins.row)
		kept := rows[:0:0]
		for _, existing := range rows {
			if keyOf(existing) != key {
				kept = append(kept, existing)
			}
		}
		rows = kept
	}
	c.Tables[ins.table] = append(rows, ins.row)
}

// Seed replaces the committed rows of table. The first of cols is the key.
func (c *StubConn) Seed(table string, cols []string, rows ...[]any) {
	c.Tables[table] = nil
	for _, vals := range rows {
		row := make(map[string]any, len(cols)+1)
		for i, col := range cols {
			row[col] = vals[i]
		}
		row[keyColumn] = cols[0]
		c.Tables[table] = append(c.Tables[table], row)
	}
}

// QueryContext implements driver.QueryerContext for plain column selects.
func (c *StubConn) QueryContext(_ context.Context, query string, _ []driver.NamedValue) (driver.Rows, error) {
	table, cols, err := parseSelect(query)
	if err != nil {
		return nil, err
	}
	if c.FailTables[table] {
		return nil, fmt.Errorf("stub: select from %s failed", table)
	}
	out := &stubRows{cols: cols}
	for _, row := range c.Tables[table] {
		vals := make([]driver.Value, len(cols))
		for i, col := range cols {
			vals[i] = row[col]
		}
		out.rows = append(out.rows, vals)
	}
	return out, nil
}

type stubTx struct{ conn *StubConn }

func (t stubTx) Commit() error {
	c := t.conn
	pending := c.pending
	c.inTx, c.pending = false, nil
	if c.FailCommit {
		c.RolledBack++
		return errors.New("stub: commit failed")
	}
	for _, ins := range pending {
		c.apply(ins)
	}
	c.Committed++
	return nil
}

func (t stubTx) Rollback() error {
	c := t.conn
	if c.inTx {
		c.inTx, c.pending = false, nil
		c.RolledBack++
	}
	return nil
}

type stubRows struct {
	cols []string
	rows [][]driver.Value
	next int
}

func (r *stubRows) Columns() []string { return r.cols }
func (r *stubRows) Close() error      { return nil }

func (r *stubRows) Next(dest []driver.Value) error {
	if r.next >= len(r.rows) {
		return io.EOF
	}
	copy(dest, r.rows[r.next])
	r.next++
	return nil
}

func parseInsert(query string) (string, []string, error) {
	up := strings.ToUpper(query)
	at := strings.Index(up, "INTO ")
	if at == -1 {
		return "", nil, fmt.Errorf("stub: cannot parse insert %q", query)
	}
	rest := strings.TrimSpace(query[at+len("INTO "):])
	open, end := strings.Index(rest, "("), strings.Index(rest, ")")
	if open == -1 || end <= open {
		return "", nil, fmt.Errorf("stub: cannot parse insert %q", query)
	}
	return strings.ToLower(strings.TrimSpace(rest[:open])), splitColumns(rest[open+1 : end]), nil
}

func parseSelect(query string) (string, []string, error) {
	lower := strings.ToLower(strings.TrimSpace(query))
	from := strings.Index(lower, " from ")
	if !strings.HasPrefix(lower, "select ") || from == -1 {
		return "", nil, fmt.Errorf("stub: cannot parse select %q", query)
	}
	fields := strings.Fields(lower[from+len(" from "):])
	if len(fields) == 0 {
		return "", nil, fmt.Errorf("stub: cannot parse select %q", query)
	}
	return fields[0], splitColumns(lower[len("select "):from]), nil
}

func splitColumns(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		out = append(out, strings.ToLower(strings.TrimSpace(p)))
	}
	return out
}
