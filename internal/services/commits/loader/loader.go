// Package loader reconciles a run's Records into the sink: delete by run
// tag, insert in batches, count by run tag
package loader

import (
	"context"
	"time"

	"commitpipe/internal/modkit/repokit"
	perr "commitpipe/internal/platform/errors"
	"commitpipe/internal/platform/logger"
	"commitpipe/internal/platform/store"
	"commitpipe/internal/services/commits/domain"
	"commitpipe/internal/services/commits/repo"
)

// DefaultBatchSize is used when InsertRecords gets a non positive size
const DefaultBatchSize = 100

// Options tune the loader
type Options struct {
	// StatementTimeout bounds every postgres statement, zero means none
	StatementTimeout time.Duration
}

// Loader implements domain.Loader. Postgres work runs inside one transaction
// per operation; clickhouse has none, so a failed insert batch leaves the
// earlier batches in place
type Loader struct {
	withRepo func(ctx context.Context, fn func(domain.SinkRepo) error) error
	closer   func(ctx context.Context) error
}

var _ domain.Loader = (*Loader)(nil)

// NewPG returns a Loader over a postgres TxRunner. closer may be nil
func NewPG(tx repokit.TxRunner, closer func(context.Context) error, opt Options) *Loader {
	tx = repokit.WithBeginHooks(tx, hooks(opt)...)
	b := repo.NewPG()
	return &Loader{
		withRepo: func(ctx context.Context, fn func(domain.SinkRepo) error) error {
			return repokit.WithTx(ctx, tx, func(q repokit.Queryer) error {
				return fn(repokit.MustBind(b, q))
			})
		},
		closer: closer,
	}
}

// NewCH returns a Loader over a clickhouse seam. closer may be nil
func NewCH(c repokit.Clickhouse, closer func(context.Context) error) *Loader {
	r := repo.NewCH(c)
	return &Loader{
		withRepo: func(_ context.Context, fn func(domain.SinkRepo) error) error { return fn(r) },
		closer:   closer,
	}
}

// Open connects to the sink described by cfg and returns a Loader owning the
// connection. Exactly one backend must be enabled
func Open(ctx context.Context, cfg store.Config, opt Options, sopts ...store.Option) (*Loader, error) {
	if cfg.PG.Enabled == cfg.CH.Enabled {
		return nil, perr.InvalidArgf("exactly one sink backend must be enabled")
	}
	s, err := store.Open(ctx, cfg, sopts...)
	if err != nil {
		return nil, err
	}
	if err := s.Guard(ctx); err != nil {
		_ = s.Close(ctx)
		return nil, err
	}
	if s.PG != nil {
		return NewPG(s.PG, s.Close, opt), nil
	}
	return NewCH(s.CH, s.Close), nil
}

func hooks(opt Options) []repokit.BeginHook {
	if opt.StatementTimeout <= 0 {
		return nil
	}
	return []repokit.BeginHook{repokit.StatementTimeout(opt.StatementTimeout)}
}

// DeleteRun removes the rows of a previous load of runTag. A failure is rolled
// back and reported on the Outcome
func (l *Loader) DeleteRun(ctx context.Context, table, runTag string) domain.Outcome {
	var n int64
	err := l.withRepo(ctx, func(r domain.SinkRepo) error {
		var err error
		n, err = r.DeleteRun(ctx, table, runTag)
		return err
	})
	if err != nil {
		l.failed(ctx, domain.OpDelete, table, err)
		return domain.Failed(domain.OpDelete, err)
	}
	log(ctx).Info().Str("table", table).Int64("rows", n).Msg("deleted previous run")
	return domain.Succeeded(domain.OpDelete, n)
}

// InsertRecords writes recs batchSize rows at a time. Empty input is a usage
// error
func (l *Loader) InsertRecords(ctx context.Context, table string, recs []domain.Record, batchSize int) domain.Outcome {
	if len(recs) == 0 {
		err := perr.InvalidArgf("no records to insert into %s", table)
		l.failed(ctx, domain.OpInsert, table, err)
		return domain.Failed(domain.OpInsert, err)
	}
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}

	var total int64
	err := l.withRepo(ctx, func(r domain.SinkRepo) error {
		total = 0
		for start := 0; start < len(recs); start += batchSize {
			end := min(start+batchSize, len(recs))
			n, err := r.InsertRecords(ctx, table, recs[start:end])
			if err != nil {
				return perr.WithOp(err, "insert batch")
			}
			total += n
		}
		return nil
	})
	if err != nil {
		l.failed(ctx, domain.OpInsert, table, err)
		return domain.Failed(domain.OpInsert, err)
	}
	log(ctx).Info().Str("table", table).Int64("rows", total).Int("batch_size", batchSize).Msg("inserted records")
	return domain.Succeeded(domain.OpInsert, total)
}

// CountRows returns the number of rows tagged runTag
func (l *Loader) CountRows(ctx context.Context, table, runTag string) (int64, error) {
	var n int64
	err := l.withRepo(ctx, func(r domain.SinkRepo) error {
		var err error
		n, err = r.CountRun(ctx, table, runTag)
		return err
	})
	return n, err
}

// Close releases the sink connection
func (l *Loader) Close(ctx context.Context) error {
	if l.closer == nil {
		return nil
	}
	return l.closer(ctx)
}

func (l *Loader) failed(ctx context.Context, op, table string, err error) {
	log(ctx).Error().Err(err).
		Str("op", op).
		Str("table", table).
		Str("kind", perr.CodeOf(err).String()).
		Msg("sink operation rolled back")
}

func log(ctx context.Context) *logger.Logger {
	l := logger.C(ctx).With().Str("component", "loader").Logger()
	return &l
}
