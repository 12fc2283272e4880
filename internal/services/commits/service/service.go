// Package service provides the commits pipeline orchestrator
package service

import (
	"context"
	"errors"
	"slices"
	"time"

	perr "commitpipe/internal/platform/errors"
	"commitpipe/internal/platform/logger"
	"commitpipe/internal/services/commits/domain"

	"github.com/google/uuid"
)

// Config holds the sink target for a run
type Config struct {
	Table     string
	BatchSize int // <=0 -> loader default
}

// Service runs fetch, persist, adapt and reconcile in strict sequence
type Service struct {
	Ingest  domain.Ingestor
	Stage   domain.PartitionWriter
	Adapt   domain.RecordAdapter
	OpenRun domain.LoaderFactory
	Cfg     Config

	now   func() time.Time
	newID func() string
}

var _ domain.RunnerPort = (*Service)(nil)

// New constructs the orchestrator
func New(
	in domain.Ingestor,
	stage domain.PartitionWriter,
	adapt domain.RecordAdapter,
	open domain.LoaderFactory,
	cfg Config,
) *Service {
	if in == nil || stage == nil || adapt == nil || open == nil {
		panic("commits.Service requires ingest, stage, adapt and loader factory")
	}
	if cfg.Table == "" {
		panic("commits.Service requires a sink table")
	}
	return &Service{
		Ingest: in, Stage: stage, Adapt: adapt, OpenRun: open,
		Cfg:   cfg,
		now:   time.Now,
		newID: uuid.NewString,
	}
}

// WithClock overrides the clock the run tag is derived from
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Run executes one pipeline run. The count comparison runs whenever the sink
// was reached, and the returned error joins every failed sink Outcome with a
// mismatch, so no stage can hide a short load
func (s *Service) Run(ctx context.Context) (rep domain.Report, _ error) {
	began := time.Now()
	rep = domain.Report{RunTag: domain.RunTag(s.now()), RunID: s.newID()}
	ctx = logger.WithRun(ctx, rep.RunTag, rep.RunID)
	log := logger.C(ctx).With().Str("component", "commits").Logger()
	defer func() { rep.Elapsed = time.Since(began) }()

	log.Info().Str("table", s.Cfg.Table).Msg("run started")

	results, err := s.Ingest.FetchTrailing(ctx)
	if err != nil {
		return rep, perr.WithOp(err, "fetch")
	}
	data := make(map[domain.WindowKey][]domain.RawCommit, len(results))
	for k, r := range results {
		data[k] = r.Rows
		rep.Extracted += len(r.Rows)
		if r.Truncated {
			rep.Truncated = append(rep.Truncated, k)
			log.Warn().Err(r.Err).
				Str("window", k.String()).
				Int("pages", r.Pages).
				Int("rows", len(r.Rows)).
				Msg("window truncated, keeping partial rows")
		}
	}
	rep.Windows = len(results)
	slices.SortFunc(rep.Truncated, func(a, b domain.WindowKey) int {
		if a.Before(b) {
			return 1
		}
		if b.Before(a) {
			return -1
		}
		return 0
	})

	rep.Handles, err = s.Stage.Persist(data)
	if err != nil {
		return rep, perr.WithOp(err, "persist")
	}

	adapted, err := s.Adapt.Adapt(ctx, rep.Handles, rep.RunTag)
	rep.Adapted, rep.Skipped = len(adapted.Records), adapted.Skipped
	if err != nil {
		return rep, perr.WithOp(err, "adapt")
	}

	sink, err := s.OpenRun(ctx)
	if err != nil {
		return rep, perr.WithOp(err, "connect")
	}

	rep.Delete = sink.DeleteRun(ctx, s.Cfg.Table, rep.RunTag)
	switch {
	case !rep.Delete.OK:
		rep.Insert = domain.Skipped(domain.OpInsert, "previous rows could not be deleted")
	case len(adapted.Records) == 0:
		rep.Insert = domain.Skipped(domain.OpInsert, "no records")
	default:
		rep.Insert = sink.InsertRecords(ctx, s.Cfg.Table, adapted.Records, s.Cfg.BatchSize)
	}

	count, countErr := sink.CountRows(ctx, s.Cfg.Table, rep.RunTag)
	closeErr := sink.Close(ctx)
	rep.Loaded = count

	var errs []error
	for _, o := range []domain.Outcome{rep.Delete, rep.Insert} {
		if o.Err != nil {
			errs = append(errs, o.Err)
		}
	}
	if countErr != nil {
		errs = append(errs, perr.WithOp(countErr, "count"))
	} else if count != int64(adapted.Total) {
		errs = append(errs, perr.Mismatchf("run %s: sink holds %d rows for the run, %d were extracted",
			rep.RunTag, count, adapted.Total))
	}
	if closeErr != nil {
		log.Warn().Err(closeErr).Msg("closing sink")
	}

	runErr := errors.Join(errs...)
	rep.Elapsed = time.Since(began)
	logReport(log, rep, runErr)
	return rep, runErr
}

func logReport(log logger.Logger, rep domain.Report, err error) {
	ev := log.Info()
	if err != nil {
		ev = log.Error().Err(err)
	}
	truncated := make([]string, 0, len(rep.Truncated))
	for _, k := range rep.Truncated {
		truncated = append(truncated, k.String())
	}
	ev.Int("windows", rep.Windows).
		Strs("truncated", truncated).
		Int("partitions", len(rep.Handles)).
		Int("extracted", rep.Extracted).
		Int("adapted", rep.Adapted).
		Int("skipped", rep.Skipped).
		Int64("loaded", rep.Loaded).
		Bool("delete_ok", rep.Delete.OK).
		Bool("insert_ok", rep.Insert.OK).
		Str("insert_note", rep.Insert.Message).
		Dur("elapsed", rep.Elapsed).
		Msg("run finished")
}
