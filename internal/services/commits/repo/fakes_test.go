package repo

import (
	"context"
	"errors"
	"reflect"

	"commitpipe/internal/platform/store"
)

type call struct {
	sql  string
	args []any
}

// fakeQ records statements and answers with canned results
type fakeQ struct {
	calls    []call
	affected int64
	execErr  error
	scalar   int64
	scanErr  error
}

type tag int64

func (t tag) String() string      { return "" }
func (t tag) RowsAffected() int64 { return int64(t) }

type row struct {
	v   int64
	err error
}

func (r row) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	*(dest[0].(*int64)) = r.v
	return nil
}

func (f *fakeQ) Exec(_ context.Context, sql string, args ...any) (store.CommandTag, error) {
	f.calls = append(f.calls, call{sql, args})
	if f.execErr != nil {
		return nil, f.execErr
	}
	return tag(f.affected), nil
}

func (f *fakeQ) Query(context.Context, string, ...any) (store.Rows, error) {
	return nil, errors.New("not used")
}

func (f *fakeQ) QueryRow(_ context.Context, sql string, args ...any) store.Row {
	f.calls = append(f.calls, call{sql, args})
	return row{v: f.scalar, err: f.scanErr}
}

// fakeCH records clickhouse traffic
type fakeCH struct {
	execs    []call
	inserts  map[string][][]any
	count    uint64
	execErr  error
	queryErr error
}

func (f *fakeCH) Insert(_ context.Context, table string, data any) error {
	if f.inserts == nil {
		f.inserts = map[string][][]any{}
	}
	f.inserts[table] = append(f.inserts[table], data.([][]any)...)
	return f.execErr
}

func (f *fakeCH) Exec(_ context.Context, sql string, args ...any) error {
	f.execs = append(f.execs, call{sql, args})
	return f.execErr
}

func (f *fakeCH) Query(_ context.Context, sql string, args ...any) (store.Rows, error) {
	f.execs = append(f.execs, call{sql, args})
	if f.queryErr != nil {
		return nil, f.queryErr
	}
	return &countRows{v: f.count}, nil
}

func (f *fakeCH) Close() error { return nil }

type countRows struct {
	v    uint64
	done bool
}

func (r *countRows) Next() bool {
	if r.done {
		return false
	}
	r.done = true
	return true
}

func (r *countRows) Scan(dest ...any) error {
	reflect.ValueOf(dest[0]).Elem().Set(reflect.ValueOf(r.v))
	return nil
}
func (r *countRows) Err() error        { return nil }
func (r *countRows) Close()            {}
func (r *countRows) Columns() []string { return []string{"count()"} }
