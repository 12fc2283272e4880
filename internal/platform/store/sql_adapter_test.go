package store

import (
	"context"
	"errors"
	"sync"
	"testing"

	"commitpipe/internal/platform/store/pg"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// pgxFakeRow implements pgx.Row
type pgxFakeRow struct{ vals []any }

func (r pgxFakeRow) Scan(dest ...any) error { return assignRow(r.vals, dest) }

// pgxFakeRows implements pgx.Rows
type pgxFakeRows struct {
	fields []pgconn.FieldDescription
	data   [][]any
	idx    int
	closed bool
}

func newPgxFakeRows(cols []string, data ...[]any) *pgxFakeRows {
	fds := make([]pgconn.FieldDescription, len(cols))
	for i, c := range cols {
		fds[i] = pgconn.FieldDescription{Name: c}
	}
	return &pgxFakeRows{fields: fds, data: data, idx: -1}
}

func (r *pgxFakeRows) Conn() *pgx.Conn                              { return nil }
func (r *pgxFakeRows) Close()                                       { r.closed = true }
func (r *pgxFakeRows) Err() error                                   { return nil }
func (r *pgxFakeRows) CommandTag() pgconn.CommandTag                { return pgconn.NewCommandTag("SELECT 0") }
func (r *pgxFakeRows) FieldDescriptions() []pgconn.FieldDescription { return r.fields }
func (r *pgxFakeRows) RawValues() [][]byte                          { return nil }
func (r *pgxFakeRows) Values() ([]any, error)                       { return r.data[r.idx], nil }
func (r *pgxFakeRows) Next() bool                                   { r.idx++; return r.idx < len(r.data) }
func (r *pgxFakeRows) Scan(dest ...any) error                       { return assignRow(r.data[r.idx], dest) }

// pgxFakeTx implements pgx.Tx and records commit or rollback
type pgxFakeTx struct {
	execTag    string
	execErr    error
	rows       *pgxFakeRows
	row        []any
	committed  bool
	rolledBack bool
	rbErr      error
}

func (f *pgxFakeTx) Exec(context.Context, string, ...any) (pgconn.CommandTag, error) {
	return pgconn.NewCommandTag(f.execTag), f.execErr
}
func (f *pgxFakeTx) Query(context.Context, string, ...any) (pgx.Rows, error) { return f.rows, nil }
func (f *pgxFakeTx) QueryRow(context.Context, string, ...any) pgx.Row     { return pgxFakeRow{vals: f.row} }
func (f *pgxFakeTx) SendBatch(context.Context, *pgx.Batch) pgx.BatchResults {
	return nil
}
func (f *pgxFakeTx) CopyFrom(context.Context, pgx.Identifier, []string, pgx.CopyFromSource) (int64, error) {
	return 0, errors.New("not implemented")
}
func (f *pgxFakeTx) LargeObjects() pgx.LargeObjects { return pgx.LargeObjects{} }
func (f *pgxFakeTx) Prepare(context.Context, string, string) (*pgconn.StatementDescription, error) {
	return nil, errors.New("not implemented")
}
func (f *pgxFakeTx) Conn() *pgx.Conn                           { return nil }
func (f *pgxFakeTx) Begin(context.Context) (pgx.Tx, error)     { return f, nil }
func (f *pgxFakeTx) Commit(context.Context) error              { f.committed = true; return nil }
func (f *pgxFakeTx) Rollback(context.Context) error            { f.rolledBack = true; return f.rbErr }

// recTracer captures query events
type recTracer struct {
	mu     sync.Mutex
	events []pg.QueryEvent
}

func (r *recTracer) OnQuery(_ context.Context, ev pg.QueryEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func TestTag_StringAndRowsAffected(t *testing.T) {
	t.Parallel()

	tg := tag{t: pgconn.NewCommandTag("DELETE 3")}
	if tg.String() != "DELETE 3" || tg.RowsAffected() != 3 {
		t.Fatalf("tag = %q / %d", tg.String(), tg.RowsAffected())
	}
}

func TestRows_ColumnsAndScan(t *testing.T) {
	t.Parallel()

	fr := newPgxFakeRows([]string{"sha", "committer_id"}, []any{"abc123", int64(7)}, []any{"def456", int64(0)})
	rs := rows{r: fr}

	if cols := rs.Columns(); len(cols) != 2 || cols[0] != "sha" || cols[1] != "committer_id" {
		t.Fatalf("Columns = %#v", cols)
	}
	var shas []string
	for rs.Next() {
		var sha string
		var id int64
		if err := rs.Scan(&sha, &id); err != nil {
			t.Fatalf("Scan: %v", err)
		}
		shas = append(shas, sha)
	}
	rs.Close()
	if !fr.closed || len(shas) != 2 || shas[1] != "def456" {
		t.Fatalf("closed=%v shas=%v", fr.closed, shas)
	}
}

func TestTxQuerier_TracesEveryStatement(t *testing.T) {
	t.Parallel()

	tr := &recTracer{}
	fx := &pgxFakeTx{
		execTag: "INSERT 0 2",
		rows:    newPgxFakeRows([]string{"sha"}, []any{"abc123"}),
		row:     []any{int64(2)},
	}
	q := txQuerier{tx: fx, tracing: tracing{tracer: tr}}
	ctx := context.Background()

	ct, err := q.Exec(ctx, "INSERT INTO git_commits (sha) VALUES ($1), ($2)", "a", "b")
	if err != nil || ct.RowsAffected() != 2 {
		t.Fatalf("Exec = %v, %v", ct, err)
	}
	rs, err := q.Query(ctx, "SELECT sha FROM git_commits")
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	rs.Close()
	var n int64
	if err := q.QueryRow(ctx, "SELECT count(*) FROM git_commits").Scan(&n); err != nil || n != 2 {
		t.Fatalf("QueryRow = %d, %v", n, err)
	}

	if len(tr.events) != 3 {
		t.Fatalf("expected 3 trace events, got %d", len(tr.events))
	}
	if tr.events[0].Slow {
		t.Fatal("slow threshold of zero should never flag")
	}
}

func TestRunTx_CommitAndRollback(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	ok := &pgxFakeTx{execTag: "DELETE 1"}
	if err := runTx(ctx, ok, tracing{}, func(q RowQuerier) error {
		_, err := q.Exec(ctx, "DELETE FROM git_commits WHERE pipeline_run_date = $1", "2024-03-15")
		return err
	}); err != nil {
		t.Fatalf("runTx: %v", err)
	}
	if !ok.committed || ok.rolledBack {
		t.Fatalf("expected commit only: %+v", ok)
	}

	boom := errors.New("boom")
	bad := &pgxFakeTx{}
	if err := runTx(ctx, bad, tracing{}, func(RowQuerier) error { return boom }); !errors.Is(err, boom) {
		t.Fatalf("runTx err = %v", err)
	}
	if bad.committed || !bad.rolledBack {
		t.Fatalf("expected rollback only: %+v", bad)
	}

	rbFail := &pgxFakeTx{rbErr: errors.New("conn lost")}
	err := runTx(ctx, rbFail, tracing{}, func(RowQuerier) error { return boom })
	if !errors.Is(err, boom) || !errors.Is(err, rbFail.rbErr) {
		t.Fatalf("expected joined error, got %v", err)
	}
}
