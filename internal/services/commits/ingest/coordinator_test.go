package ingest

import (
	"context"
	"math/rand/v2"
	"sync"
	"testing"
	"time"

	perr "commitpipe/internal/platform/errors"
	"commitpipe/internal/platform/testkit"
	"commitpipe/internal/services/commits/domain"
)

// fakeFetcher returns one row per window after a random delay
type fakeFetcher struct {
	mu        sync.Mutex
	calls     int
	deadlines int
	truncate  domain.WindowKey
}

func (f *fakeFetcher) Fetch(ctx context.Context, w domain.Window) domain.WindowResult {
	time.Sleep(time.Duration(rand.IntN(20)) * time.Millisecond)
	f.mu.Lock()
	f.calls++
	if _, ok := ctx.Deadline(); ok {
		f.deadlines++
	}
	f.mu.Unlock()

	res := domain.WindowResult{Window: w, Rows: []domain.RawCommit{[]byte(`{"sha":"` + w.Key.String() + `"}`)}, Pages: 1}
	if w.Key == f.truncate {
		res.Truncated = true
		res.Err = perr.Unavailablef("boom")
	}
	return res
}

func fixedNow() time.Time { return time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC) }

func TestCoordinator_AllSixWindowsRegardlessOfOrder(t *testing.T) {
	t.Parallel()

	for range 5 {
		ff := &fakeFetcher{truncate: domain.WindowKey{Year: 2024, Month: time.January}}
		c := NewCoordinator(ff, Config{}, fixedNow)

		out, err := c.FetchTrailing(context.Background())
		if err != nil {
			t.Fatalf("FetchTrailing: %v", err)
		}
		if len(out) != 6 || ff.calls != 6 {
			t.Fatalf("results=%d calls=%d", len(out), ff.calls)
		}
		for _, w := range TrailingWindows(fixedNow(), 6) {
			r, ok := out[w.Key]
			if !ok {
				t.Fatalf("missing window %s", w.Key)
			}
			if string(r.Rows[0]) != `{"sha":"`+w.Key.String()+`"}` {
				t.Fatalf("window %s got rows of another window: %s", w.Key, r.Rows[0])
			}
		}
		if jan := out[domain.WindowKey{Year: 2024, Month: time.January}]; !jan.Truncated {
			t.Fatal("a truncated window must not be dropped or reset")
		}
		if ff.deadlines != 0 {
			t.Fatal("no timeout configured, no deadline expected")
		}
	}
}

func TestCoordinator_WindowTimeoutSetsDeadline(t *testing.T) {
	t.Parallel()

	ff := &fakeFetcher{}
	c := NewCoordinator(ff, Config{Windows: 3, WindowTimeout: time.Minute}, fixedNow)
	out, err := c.FetchTrailing(context.Background())
	if err != nil || len(out) != 3 {
		t.Fatalf("out=%d err=%v", len(out), err)
	}
	if ff.deadlines != 3 {
		t.Fatalf("deadlines = %d, want 3", ff.deadlines)
	}
}

func TestCoordinator_KeyCollisionIsConflict(t *testing.T) {
	testkit.Serial(t)

	testkit.Swap(t, &trailingWindows, func(now time.Time, n int) []domain.Window {
		ws := TrailingWindows(now, n)
		ws[1].Key = ws[0].Key
		return ws
	})

	_, err := NewCoordinator(&fakeFetcher{}, Config{}, fixedNow).FetchTrailing(context.Background())
	if !perr.IsCode(err, perr.ErrorCodeConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
}

func TestCoordinator_CanceledParent(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := NewCoordinator(&fakeFetcher{}, Config{}, fixedNow).FetchTrailing(ctx); err != context.Canceled {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestNewCoordinator_NilFetcherPanics(t *testing.T) {
	t.Parallel()
	testkit.MustPanic(t, func() { _ = NewCoordinator(nil, Config{}, nil) })
}
