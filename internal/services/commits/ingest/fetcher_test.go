package ingest

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"
	"time"

	"commitpipe/internal/adapters/ingest/github"
	"commitpipe/internal/services/commits/domain"
)

func page(shas ...string) string {
	out := "["
	for i, s := range shas {
		if i > 0 {
			out += ","
		}
		out += fmt.Sprintf(`{"sha":%q}`, s)
	}
	return out + "]"
}

var march = domain.Window{
	Key:   domain.WindowKey{Year: 2024, Month: time.March},
	Start: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
	End:   time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC),
}

func TestFetcher_PaginatesUntilEmptyPage(t *testing.T) {
	t.Parallel()

	var mu sync.Mutex
	var pages []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		pages = append(pages, r.URL.Query().Get("page"))
		mu.Unlock()
		switch r.URL.Query().Get("page") {
		case "1":
			_, _ = w.Write([]byte(page("a1", "a2")))
		case "2":
			_, _ = w.Write([]byte(page("b1")))
		default:
			_, _ = w.Write([]byte(`[]`))
		}
	}))
	defer srv.Close()

	f := NewFetcher(github.NewClient(github.Options{BaseURL: srv.URL}), "acme", "widgets", 0)
	res := f.Fetch(context.Background(), march)
	if res.Truncated || res.Err != nil {
		t.Fatalf("unexpected truncation: %+v", res.Err)
	}
	if len(res.Rows) != 3 || res.Pages != 2 {
		t.Fatalf("rows=%d pages=%d", len(res.Rows), res.Pages)
	}
	if len(pages) != 3 || pages[2] != "3" {
		t.Fatalf("requested pages %v", pages)
	}
}

func TestFetcher_ErrorOnPage2_ReturnsExactlyPage1(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("per_page") != strconv.Itoa(DefaultPerPage) {
			t.Errorf("per_page = %q", r.URL.Query().Get("per_page"))
		}
		if r.URL.Query().Get("page") == "1" {
			_, _ = w.Write([]byte(page("p1-a", "p1-b", "p1-c")))
			return
		}
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"message":"Server Error"}`))
	}))
	defer srv.Close()

	f := NewFetcher(github.NewClient(github.Options{BaseURL: srv.URL}), "acme", "widgets", DefaultPerPage)
	res := f.Fetch(context.Background(), march)

	if len(res.Rows) != 3 {
		t.Fatalf("rows = %d, want exactly page 1's 3 rows", len(res.Rows))
	}
	if !res.Truncated || res.Pages != 1 {
		t.Fatalf("truncated=%v pages=%d", res.Truncated, res.Pages)
	}
	var se *github.GHStatusError
	if !errors.As(res.Err, &se) || se.Status != http.StatusInternalServerError {
		t.Fatalf("err = %v", res.Err)
	}
}

// listerFunc adapts a function to domain.CommitLister
type listerFunc func(ctx context.Context, owner, repo string, q domain.CommitQuery) ([]domain.RawCommit, error)

func (f listerFunc) ListCommits(ctx context.Context, owner, repo string, q domain.CommitQuery) ([]domain.RawCommit, error) {
	return f(ctx, owner, repo, q)
}

func TestFetcher_PassesWindowBoundsAndFirstPageError(t *testing.T) {
	t.Parallel()

	boom := errors.New("dial tcp: connection refused")
	var seen domain.CommitQuery
	f := NewFetcher(listerFunc(func(_ context.Context, owner, repo string, q domain.CommitQuery) ([]domain.RawCommit, error) {
		if owner != "acme" || repo != "widgets" {
			t.Errorf("owner/repo = %s/%s", owner, repo)
		}
		seen = q
		return nil, boom
	}), "acme", "widgets", 50)

	res := f.Fetch(context.Background(), march)
	if !seen.Since.Equal(march.Start) || !seen.Until.Equal(march.End) || seen.Page != 1 || seen.PerPage != 50 {
		t.Fatalf("query = %+v", seen)
	}
	if len(res.Rows) != 0 || !res.Truncated || !errors.Is(res.Err, boom) {
		t.Fatalf("result = %+v", res)
	}
}
