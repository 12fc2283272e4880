package repo

import (
	"context"
	"strings"

	"commitpipe/internal/modkit/repokit"
	perr "commitpipe/internal/platform/errors"
	"commitpipe/internal/platform/store"
	"commitpipe/internal/services/commits/domain"
)

// CH is the SinkRepo for a clickhouse table. Mutations are applied
// synchronously so the count that follows sees them
type CH struct{ ch repokit.Clickhouse }

// NewCH binds a SinkRepo to a clickhouse seam
func NewCH(c repokit.Clickhouse) *CH { return &CH{ch: c} }

// DeleteRun drops the run's rows. Clickhouse does not report affected rows, so
// the count is always -1
func (s *CH) DeleteRun(ctx context.Context, table, runTag string) (int64, error) {
	t, err := QuoteTable(table)
	if err != nil {
		return 0, err
	}
	err = s.ch.Exec(ctx, `ALTER TABLE `+t+` DELETE WHERE `+domain.RunTagColumn+` = ? SETTINGS mutations_sync = 1`, runTag)
	if err != nil {
		return 0, perr.Wrapf(err, perr.ErrorCodeDB, "delete run %s from %s", runTag, table)
	}
	return -1, nil
}

// InsertRecords sends recs as one native batch
func (s *CH) InsertRecords(ctx context.Context, table string, recs []domain.Record) (int64, error) {
	if len(recs) == 0 {
		return 0, nil
	}
	t, err := QuoteTable(table)
	if err != nil {
		return 0, err
	}
	rows := make([][]any, 0, len(recs))
	for _, r := range recs {
		rows = append(rows, r.Values())
	}
	target := t + " (" + strings.Join(domain.Columns, ", ") + ")"
	if err := s.ch.Insert(ctx, target, rows); err != nil {
		return 0, perr.Wrapf(err, perr.ErrorCodeDB, "insert %d records into %s", len(recs), table)
	}
	return int64(len(recs)), nil
}

// CountRun returns the number of rows carrying runTag
func (s *CH) CountRun(ctx context.Context, table, runTag string) (int64, error) {
	t, err := QuoteTable(table)
	if err != nil {
		return 0, err
	}
	n, err := store.CHScalar[uint64](ctx, s.ch, `SELECT toUInt64(count()) FROM `+t+` WHERE `+domain.RunTagColumn+` = ?`, runTag)
	if err != nil {
		return 0, perr.Wrapf(err, perr.ErrorCodeDB, "count run %s in %s", runTag, table)
	}
	return int64(n), nil
}
