package loader

import (
	"context"
	"errors"
	"reflect"
	"slices"
	"strings"

	"commitpipe/internal/platform/store"
	"commitpipe/internal/services/commits/domain"
)

// memTable is a tiny in memory sink that understands the statements the pg
// repo sends. Tx snapshots the rows and restores them when fn fails
type memTable struct {
	tags    []string
	stmts   []string
	txs     int
	failOn  string // statement prefix that errors
	failErr error
	closed  bool
}

type tag int64

func (t tag) String() string      { return "" }
func (t tag) RowsAffected() int64 { return int64(t) }

type countRow int64

func (r countRow) Scan(dest ...any) error {
	*(dest[0].(*int64)) = int64(r)
	return nil
}

func (m *memTable) Exec(_ context.Context, sql string, args ...any) (store.CommandTag, error) {
	m.stmts = append(m.stmts, sql)
	if m.failOn != "" && strings.HasPrefix(sql, m.failOn) {
		return nil, m.failErr
	}
	switch {
	case strings.HasPrefix(sql, "DELETE"):
		before := len(m.tags)
		m.tags = slices.DeleteFunc(m.tags, func(s string) bool { return s == args[0] })
		return tag(before - len(m.tags)), nil
	case strings.HasPrefix(sql, "INSERT"):
		n := len(args) / len(domain.Columns)
		for i := 0; i < n; i++ {
			m.tags = append(m.tags, args[i*len(domain.Columns)+len(domain.Columns)-1].(string))
		}
		return tag(n), nil
	}
	return tag(0), nil
}

func (m *memTable) Query(context.Context, string, ...any) (store.Rows, error) {
	return nil, errors.New("not used")
}

func (m *memTable) QueryRow(_ context.Context, sql string, args ...any) store.Row {
	m.stmts = append(m.stmts, sql)
	var n int64
	for _, t := range m.tags {
		if t == args[0] {
			n++
		}
	}
	return countRow(n)
}

func (m *memTable) Tx(_ context.Context, fn func(q store.RowQuerier) error) error {
	m.txs++
	snap := slices.Clone(m.tags)
	if err := fn(m); err != nil {
		m.tags = snap
		return err
	}
	return nil
}

func (m *memTable) Close(context.Context) error {
	m.closed = true
	return nil
}

// memCH is the clickhouse flavor of memTable, without transactions
type memCH struct {
	tags     []string
	inserts  int
	failFrom int // insert call number (1 based) that starts failing, 0 never
	err      error
}

func (c *memCH) Insert(_ context.Context, _ string, data any) error {
	c.inserts++
	if c.failFrom > 0 && c.inserts >= c.failFrom {
		return c.err
	}
	for _, r := range data.([][]any) {
		c.tags = append(c.tags, r[len(r)-1].(string))
	}
	return nil
}

func (c *memCH) Exec(_ context.Context, _ string, args ...any) error {
	c.tags = slices.DeleteFunc(c.tags, func(s string) bool { return s == args[0] })
	return nil
}

func (c *memCH) Query(_ context.Context, _ string, args ...any) (store.Rows, error) {
	var n uint64
	for _, t := range c.tags {
		if t == args[0] {
			n++
		}
	}
	return &oneRow{v: n}, nil
}

func (c *memCH) Close() error { return nil }

type oneRow struct {
	v    uint64
	done bool
}

func (r *oneRow) Next() bool {
	if r.done {
		return false
	}
	r.done = true
	return true
}

func (r *oneRow) Scan(dest ...any) error {
	reflect.ValueOf(dest[0]).Elem().Set(reflect.ValueOf(r.v))
	return nil
}
func (r *oneRow) Err() error        { return nil }
func (r *oneRow) Close()            {}
func (r *oneRow) Columns() []string { return nil }
