package store

import (
	"context"
	"errors"
	"reflect"

	"commitpipe/internal/platform/store/ch"
)

// fakeCHRows implements ch.Rows over in-memory data
type fakeCHRows struct {
	cols   []string
	data   [][]any
	idx    int
	err    error
	closed bool
}

func newFakeCHRows(cols []string, data ...[]any) *fakeCHRows {
	return &fakeCHRows{cols: cols, data: data, idx: -1}
}

func (r *fakeCHRows) Next() bool {
	if r.err != nil {
		return false
	}
	r.idx++
	return r.idx < len(r.data)
}
func (r *fakeCHRows) Err() error        { return r.err }
func (r *fakeCHRows) Close() error      { r.closed = true; return nil }
func (r *fakeCHRows) Columns() []string { return r.cols }
func (r *fakeCHRows) Scan(dest ...any) error { return assignRow(r.data[r.idx], dest) }

// fakeCHClient records calls made through the adapter
type fakeCHClient struct {
	pingErr  error
	inserted map[string][][]any
	execs    []string
	execArgs [][]any
	execErr  error
	rows     *fakeCHRows
	queryErr error
	closed   bool
}

func (f *fakeCHClient) Ping(context.Context) error { return f.pingErr }
func (f *fakeCHClient) Insert(_ context.Context, table string, rows [][]any) error {
	if f.inserted == nil {
		f.inserted = map[string][][]any{}
	}
	f.inserted[table] = append(f.inserted[table], rows...)
	return nil
}
func (f *fakeCHClient) Exec(_ context.Context, sql string, args ...any) error {
	f.execs = append(f.execs, sql)
	f.execArgs = append(f.execArgs, args)
	return f.execErr
}
func (f *fakeCHClient) Query(context.Context, string, ...any) (ch.Rows, error) {
	if f.queryErr != nil {
		return nil, f.queryErr
	}
	return f.rows, nil
}
func (f *fakeCHClient) Close() error { f.closed = true; return nil }

// assignRow copies row values into scan destinations, converting where possible
func assignRow(row []any, dest []any) error {
	if len(row) != len(dest) {
		return errors.New("dest len mismatch")
	}
	for i := range dest {
		dv := reflect.ValueOf(dest[i])
		if dv.Kind() != reflect.Pointer || !dv.Elem().CanSet() {
			return errors.New("dest not pointer")
		}
		val := reflect.ValueOf(row[i])
		switch {
		case val.IsValid() && val.Type().AssignableTo(dv.Elem().Type()):
			dv.Elem().Set(val)
		case val.IsValid() && val.Type().ConvertibleTo(dv.Elem().Type()):
			dv.Elem().Set(val.Convert(dv.Elem().Type()))
		default:
			return errors.New("type mismatch")
		}
	}
	return nil
}

// txRunnerStub is a TxRunner over canned results; Tx runs fn against itself
type txRunnerStub struct {
	affected int64
	execErr  error
	scalar   any
}

func (s txRunnerStub) Exec(context.Context, string, ...any) (CommandTag, error) {
	return stubTag(s.affected), s.execErr
}
func (s txRunnerStub) Query(context.Context, string, ...any) (Rows, error) {
	return nil, errors.New("not implemented")
}
func (s txRunnerStub) QueryRow(context.Context, string, ...any) Row {
	return stubRow{v: s.scalar}
}
func (s txRunnerStub) Tx(_ context.Context, fn func(q RowQuerier) error) error { return fn(s) }

type stubTag int64

func (t stubTag) String() string      { return "" }
func (t stubTag) RowsAffected() int64 { return int64(t) }

type stubRow struct{ v any }

func (r stubRow) Scan(dest ...any) error {
	if err, ok := r.v.(error); ok {
		return err
	}
	return assignRow([]any{r.v}, dest)
}
