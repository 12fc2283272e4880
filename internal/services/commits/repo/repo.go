// Package repo provides the sink repositories for commit records
package repo

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"commitpipe/internal/modkit/repokit"
	perr "commitpipe/internal/platform/errors"
	"commitpipe/internal/platform/store"
	"commitpipe/internal/services/commits/domain"

	"github.com/jackc/pgx/v5"
)

type binder struct{}

// NewPG constructs a repo binder for Postgres
func NewPG() repokit.Binder[domain.SinkRepo] { return binder{} }

// Bind implements repokit.Binder
func (binder) Bind(q repokit.Queryer) domain.SinkRepo { return &pg{q: q} }

type pg struct{ q repokit.Queryer }

// QuoteTable sanitizes a possibly schema qualified table name
func QuoteTable(table string) (string, error) {
	table = strings.TrimSpace(table)
	if table == "" {
		return "", perr.InvalidArgf("sink table name is empty")
	}
	parts := strings.Split(table, ".")
	for _, p := range parts {
		if p == "" {
			return "", perr.InvalidArgf("sink table name %q is malformed", table)
		}
	}
	return pgx.Identifier(parts).Sanitize(), nil
}

// DeleteRun removes every row carrying runTag
func (s *pg) DeleteRun(ctx context.Context, table, runTag string) (int64, error) {
	t, err := QuoteTable(table)
	if err != nil {
		return 0, err
	}
	n, err := store.Exec(ctx, s.q, "DELETE FROM "+t+" WHERE "+domain.RunTagColumn+" = $1", runTag)
	if err != nil {
		return 0, perr.FromPostgresf(err, "delete run %s from %s", runTag, table)
	}
	return n, nil
}

// InsertRecords writes recs as multi row INSERTs, splitting at the bind
// parameter limit
func (s *pg) InsertRecords(ctx context.Context, table string, recs []domain.Record) (int64, error) {
	if len(recs) == 0 {
		return 0, nil
	}
	t, err := QuoteTable(table)
	if err != nil {
		return 0, err
	}

	var total int64
	for chunk := range slices.Chunk(recs, domain.MaxBatchSize()) {
		n, err := s.insert(ctx, t, chunk)
		if err != nil {
			return 0, perr.FromPostgresf(err, "insert %d records into %s", len(chunk), table)
		}
		total += n
	}
	return total, nil
}

func (s *pg) insert(ctx context.Context, t string, recs []domain.Record) (int64, error) {
	var sb strings.Builder
	args := make([]any, 0, len(recs)*len(domain.Columns))
	arg := func(v any) string { args = append(args, v); return fmt.Sprintf("$%d", len(args)) }

	sb.WriteString("INSERT INTO " + t + " (" + strings.Join(domain.Columns, ", ") + ") VALUES ")
	for i, r := range recs {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteByte('(')
		for j, v := range r.Values() {
			if j > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(arg(v))
		}
		sb.WriteByte(')')
	}

	return store.Exec(ctx, s.q, sb.String(), args...)
}

// CountRun returns the number of rows carrying runTag
func (s *pg) CountRun(ctx context.Context, table, runTag string) (int64, error) {
	t, err := QuoteTable(table)
	if err != nil {
		return 0, err
	}
	n, err := store.Scalar[int64](ctx, s.q, "SELECT count(*) FROM "+t+" WHERE "+domain.RunTagColumn+" = $1", runTag)
	if err != nil {
		return 0, perr.FromPostgresf(err, "count run %s in %s", runTag, table)
	}
	return n, nil
}
