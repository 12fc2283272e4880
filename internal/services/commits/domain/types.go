// Package domain holds the core data structures for the commits pipeline
package domain

import (
	"fmt"
	"time"

	perr "commitpipe/internal/platform/errors"
)

// RunTagLayout formats the run tag from the run's UTC date
const RunTagLayout = "2006-01-02"

// RunTag returns the run tag for an execution started at t
func RunTag(t time.Time) string { return t.UTC().Format(RunTagLayout) }

// WindowKey is the (year, month) partition key shared by ingest and staging
type WindowKey struct {
	Year  int
	Month time.Month
}

// String renders the key as YYYY-MM
func (k WindowKey) String() string { return fmt.Sprintf("%04d-%02d", k.Year, int(k.Month)) }

// Before orders keys chronologically
func (k WindowKey) Before(o WindowKey) bool {
	if k.Year != o.Year {
		return k.Year < o.Year
	}
	return k.Month < o.Month
}

// KeyOf returns the key of the month containing t (UTC)
func KeyOf(t time.Time) WindowKey {
	t = t.UTC()
	return WindowKey{Year: t.Year(), Month: t.Month()}
}

// Window is one bounded fetch interval: first instant of a month up to a cursor
type Window struct {
	Key   WindowKey
	Start time.Time
	End   time.Time
}

// WindowResult is what one window fetch produced. Truncated is set when a
// page failed; Rows then hold the pages accumulated before the failure
type WindowResult struct {
	Window    Window
	Rows      []RawCommit
	Pages     int
	Truncated bool
	Err       error
}

// Handle points at one written partition file
type Handle struct {
	Key  WindowKey
	Path string
	Rows int
}

// ValidationMode decides what a malformed row does to the adapt stage
type ValidationMode string

const (
	// ModeStrict aborts adaptation on the first invalid row
	ModeStrict ValidationMode = "strict"
	// ModeSkip logs and counts invalid rows, then continues
	ModeSkip ValidationMode = "skip"
)

// ParseValidationMode maps a config value to a mode; empty means strict
func ParseValidationMode(s string) (ValidationMode, error) {
	switch ValidationMode(s) {
	case "", ModeStrict:
		return ModeStrict, nil
	case ModeSkip:
		return ModeSkip, nil
	}
	return "", perr.InvalidArgf("unknown validation mode %q (want strict or skip)", s)
}

// Sink mutation names carried on Outcomes
const (
	OpDelete = "delete"
	OpInsert = "insert"
)

// Outcome is the explicit result of one sink mutation
type Outcome struct {
	Op      string
	OK      bool
	Kind    perr.ErrorCode
	Message string
	Rows    int64
	Err     error
}

// Succeeded builds a successful Outcome
func Succeeded(op string, rows int64) Outcome { return Outcome{Op: op, OK: true, Rows: rows} }

// Failed builds a failed Outcome from err
func Failed(op string, err error) Outcome {
	o := Outcome{Op: op, Kind: perr.CodeOf(err), Err: err}
	if err != nil {
		o.Message = err.Error()
	}
	return o
}

// Skipped builds an Outcome for an operation that did not run. It carries
// no error; the failure that caused the skip is reported on its own Outcome
func Skipped(op, reason string) Outcome { return Outcome{Op: op, Message: reason} }

// Ran reports whether the operation was attempted
func (o Outcome) Ran() bool { return o.OK || o.Err != nil }

// Report summarizes one pipeline execution
type Report struct {
	RunTag    string
	RunID     string
	Windows   int
	Truncated []WindowKey
	Handles   []Handle
	Extracted int
	Adapted   int
	Skipped   int
	Loaded    int64
	Delete    Outcome
	Insert    Outcome
	Elapsed   time.Duration
}
