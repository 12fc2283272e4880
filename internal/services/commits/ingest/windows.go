// Package ingest computes the trailing month windows and fetches them concurrently
package ingest

import (
	"time"

	"commitpipe/internal/services/commits/domain"
)

// DefaultWindows is the trailing period length in months
const DefaultWindows = 6

// TrailingWindows walks backward from now and returns n contiguous windows,
// newest first. Each window runs from the first instant of the cursor's month
// to the cursor; the next cursor is one second before that start since the
// API filters at second precision
func TrailingWindows(now time.Time, n int) []domain.Window {
	out := make([]domain.Window, 0, max(n, 0))
	cursor := now.UTC().Truncate(time.Second)
	for range n {
		start := time.Date(cursor.Year(), cursor.Month(), 1, 0, 0, 0, 0, time.UTC)
		out = append(out, domain.Window{Key: domain.KeyOf(cursor), Start: start, End: cursor})
		cursor = start.Add(-time.Second)
	}
	return out
}
