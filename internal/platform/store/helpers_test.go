package store

import (
	"context"
	"errors"
	"testing"
)

func TestExec_ReturnsRowsAffected(t *testing.T) {
	t.Parallel()

	n, err := Exec(context.Background(), txRunnerStub{affected: 4}, "DELETE FROM git_commits WHERE pipeline_run_date = $1", "2024-03-15")
	if err != nil || n != 4 {
		t.Fatalf("Exec = %d, %v", n, err)
	}

	boom := errors.New("boom")
	if _, err := Exec(context.Background(), txRunnerStub{execErr: boom}, "x"); !errors.Is(err, boom) {
		t.Fatalf("Exec err = %v", err)
	}
}

func TestScalar(t *testing.T) {
	t.Parallel()

	n, err := Scalar[int64](context.Background(), txRunnerStub{scalar: int64(3)}, "SELECT count(*) FROM git_commits")
	if err != nil || n != 3 {
		t.Fatalf("Scalar = %d, %v", n, err)
	}

	boom := errors.New("no rows")
	if _, err := Scalar[int64](context.Background(), txRunnerStub{scalar: boom}, "x"); !errors.Is(err, boom) {
		t.Fatalf("Scalar err = %v", err)
	}
}

func TestCHScalar(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	c := newCHAdapter(&fakeCHClient{rows: newFakeCHRows([]string{"count()"}, []any{uint64(6)})})
	n, err := CHScalar[uint64](ctx, c, "SELECT count() FROM git_commits")
	if err != nil || n != 6 {
		t.Fatalf("CHScalar = %d, %v", n, err)
	}

	empty := newCHAdapter(&fakeCHClient{rows: newFakeCHRows([]string{"count()"})})
	if _, err := CHScalar[uint64](ctx, empty, "x"); err == nil {
		t.Fatal("expected error for empty result")
	}

	broken := &fakeCHRows{err: errors.New("stream reset"), idx: -1}
	if _, err := CHScalar[uint64](ctx, newCHAdapter(&fakeCHClient{rows: broken}), "x"); err == nil || err.Error() != "stream reset" {
		t.Fatalf("expected rows error, got %v", err)
	}
}
