package domain

import (
	"context"

	"commitpipe/internal/adapters/ingest/github"
)

// CommitQuery re-exports the commits listing filter
type CommitQuery = github.CommitQuery

// RunnerPort is the public port exposed by the module
type RunnerPort interface {
	Run(ctx context.Context) (Report, error)
}

// CommitLister lists one page of commits for a repository
type CommitLister interface {
	ListCommits(ctx context.Context, owner, repo string, q CommitQuery) ([]RawCommit, error)
}

// WindowFetcher retrieves every page of one window. It never fails outright:
// errors end pagination and are reported on the result
type WindowFetcher interface {
	Fetch(ctx context.Context, w Window) WindowResult
}

// Ingestor fetches the trailing windows concurrently
type Ingestor interface {
	FetchTrailing(ctx context.Context) (map[WindowKey]WindowResult, error)
}

// PartitionWriter stages raw rows per (year, month)
type PartitionWriter interface {
	Persist(data map[WindowKey][]RawCommit) ([]Handle, error)
}

// AdaptResult is what the adapt stage produced
type AdaptResult struct {
	Records []Record
	Total   int
	Skipped int
}

// RecordAdapter turns staged partitions into Records
type RecordAdapter interface {
	Adapt(ctx context.Context, handles []Handle, runTag string) (AdaptResult, error)
}

// SinkRepo is the statement level sink surface bound to one connection
type SinkRepo interface {
	DeleteRun(ctx context.Context, table, runTag string) (int64, error)
	InsertRecords(ctx context.Context, table string, recs []Record) (int64, error)
	CountRun(ctx context.Context, table, runTag string) (int64, error)
}

// Loader reconciles one run's Records into the sink
type Loader interface {
	DeleteRun(ctx context.Context, table, runTag string) Outcome
	InsertRecords(ctx context.Context, table string, recs []Record, batchSize int) Outcome
	CountRows(ctx context.Context, table, runTag string) (int64, error)
	Close(ctx context.Context) error
}

// LoaderFactory opens the sink lazily, after adaptation succeeded
type LoaderFactory func(ctx context.Context) (Loader, error)
