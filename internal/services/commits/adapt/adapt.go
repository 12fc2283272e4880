// Package adapt reads staged partitions back and turns raw commits into Records
package adapt

import (
	"context"
	"encoding/json"
	"os"
	"time"

	"commitpipe/internal/adapters/ingest/github"
	perr "commitpipe/internal/platform/errors"
	"commitpipe/internal/platform/logger"
	"commitpipe/internal/services/commits/domain"
)

// TimestampLayout is the only accepted commit date format
const TimestampLayout = "2006-01-02T15:04:05Z"

// UnknownUsername stands in for the login of a commit with no linked account
const UnknownUsername = "None"

// Option configures an Adapter
type Option func(*Adapter)

// WithClock sets the clock future dated commits are checked against
func WithClock(now func() time.Time) Option {
	return func(a *Adapter) {
		if now != nil {
			a.now = now
		}
	}
}

// Adapter implements domain.RecordAdapter
type Adapter struct {
	mode domain.ValidationMode
	now  func() time.Time
	val  *Validator
}

// New returns an Adapter. Strict mode fails on the first invalid row; skip
// mode logs it and moves on
func New(mode domain.ValidationMode, opts ...Option) *Adapter {
	if mode == "" {
		mode = domain.ModeStrict
	}
	a := &Adapter{mode: mode, now: time.Now}
	for _, o := range opts {
		o(a)
	}
	a.val = NewValidator(func() time.Time { return a.now() })
	return a
}

// Adapt reads every handle in order. Total counts raw entries read whether or
// not they became Records, so it stays the expected count for reconciliation
func (a *Adapter) Adapt(ctx context.Context, handles []domain.Handle, runTag string) (domain.AdaptResult, error) {
	log := logger.C(ctx).With().Str("component", "adapt").Logger()
	var res domain.AdaptResult

	for _, h := range handles {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		entries, err := readPartition(h.Path)
		if err != nil {
			return res, err
		}
		res.Total += len(entries)

		for i, raw := range entries {
			rec, err := a.Record(raw, runTag)
			if err == nil {
				res.Records = append(res.Records, rec)
				continue
			}
			err = perr.WithOp(err, "adapt "+h.Key.String())
			if a.mode == domain.ModeStrict {
				return res, err
			}
			res.Skipped++
			ev := log.Warn().Err(err).Str("partition", h.Key.String()).Int("index", i)
			if e, ok := perr.As(err); ok && e.Field() != "" {
				ev = ev.Str("field", e.Field())
			}
			ev.Msg("skipping invalid commit")
		}
		log.Debug().Str("partition", h.Key.String()).Int("rows", len(entries)).Msg("adapted partition")
	}
	return res, nil
}

// Record builds and validates one Record from a raw listing entry
func (a *Adapter) Record(raw domain.RawCommit, runTag string) (domain.Record, error) {
	var c github.Commit
	if err := json.Unmarshal(raw, &c); err != nil {
		return domain.Record{}, perr.Wrap(err, perr.ErrorCodeJSON, "decode commit")
	}

	var author github.Account
	if c.Author != nil {
		author = *c.Author
	}
	if author.Login == "" {
		author.Login = UnknownUsername
	}
	sig := c.Commit.Author
	if sig == nil {
		sig = &github.Signature{}
	}

	// time.Parse tolerates fractional seconds the layout does not name
	ts, err := time.Parse(TimestampLayout, sig.Date)
	if err != nil || ts.Format(TimestampLayout) != sig.Date {
		return domain.Record{}, perr.WithField(
			perr.Validationf("commit %q: commit_timestamp %q does not match %s", c.SHA, sig.Date, TimestampLayout),
			"commit_timestamp")
	}

	rec := domain.Record{
		SHA:               c.SHA,
		CommitterID:       author.ID,
		CommitterUsername: author.Login,
		CommitterName:     sig.Name,
		CommitterEmail:    sig.Email,
		CommitTimestamp:   ts,
		PipelineRunDate:   runTag,
	}
	if err := a.val.Struct(rec); err != nil {
		return domain.Record{}, err
	}
	return rec, nil
}

func readPartition(path string) ([]json.RawMessage, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, perr.IOf(err, "read partition %s", path)
	}
	var entries []json.RawMessage
	if err := json.Unmarshal(b, &entries); err != nil {
		return nil, perr.WithField(perr.Wrap(err, perr.ErrorCodeJSON, "decode partition"), path)
	}
	return entries, nil
}
