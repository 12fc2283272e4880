package github

import (
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	perr "commitpipe/internal/platform/errors"
)

// GHStatusError wraps non-2xx HTTP responses from GitHub
type GHStatusError struct {
	Status int
	Body   string
	Err    error
}

// Error interface
func (e *GHStatusError) Error() string { return e.Err.Error() }

// Unwrap interface
func (e *GHStatusError) Unwrap() error { return e.Err }

// HTTPStatus interface
func (e *GHStatusError) HTTPStatus() int { return e.Status }

func newStatusError(status int, body string, remaining int) *GHStatusError {
	code := perr.ErrorCodeUnavailable
	switch {
	case status == http.StatusTooManyRequests,
		status == http.StatusForbidden && remaining == 0:
		code = perr.ErrorCodeTooManyRequests
	case status == http.StatusNotFound:
		code = perr.ErrorCodeNotFound
	case status == http.StatusUnprocessableEntity, status == http.StatusBadRequest:
		code = perr.ErrorCodeInvalidArgument
	}
	return &GHStatusError{
		Status: status,
		Body:   strings.TrimSpace(body),
		Err:    perr.New(code, fmt.Sprintf("github unexpected status %d", status)),
	}
}

// parseRateHeaders reads the rate limit headers; remaining is -1 when absent
func parseRateHeaders(h http.Header) (remaining int, reset time.Time, retryAfter int) {
	remaining = -1
	if s := h.Get("X-RateLimit-Remaining"); s != "" {
		remaining = atoi(s)
	}
	if sec := atoi(h.Get("X-RateLimit-Reset")); sec > 0 {
		reset = time.Unix(int64(sec), 0).UTC()
	}
	retryAfter = atoi(h.Get("Retry-After"))
	return
}

func atoi(s string) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0
	}
	return n
}

func drainAndClose(rc io.ReadCloser) error {
	_, _ = io.Copy(io.Discard, io.LimitReader(rc, 1<<20))
	return rc.Close()
}
