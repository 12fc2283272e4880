package ingest

import (
	"context"
	"time"

	perr "commitpipe/internal/platform/errors"
	"commitpipe/internal/platform/logger"
	"commitpipe/internal/services/commits/domain"
	"commitpipe/internal/services/commits/guardrails"

	"golang.org/x/sync/errgroup"
)

// trailingWindows is swapped in tests
var trailingWindows = TrailingWindows

// Config holds the fan-out knobs
type Config struct {
	Windows int // <=0 -> DefaultWindows

	// WindowTimeout bounds each window's whole pagination; zero means none
	WindowTimeout time.Duration
}

// Coordinator implements domain.Ingestor
type Coordinator struct {
	fetch domain.WindowFetcher
	cfg   Config
	now   func() time.Time
}

// NewCoordinator builds a coordinator over a window fetcher
func NewCoordinator(f domain.WindowFetcher, cfg Config, now func() time.Time) *Coordinator {
	if f == nil {
		panic("ingest.Coordinator requires a non nil WindowFetcher")
	}
	if cfg.Windows <= 0 {
		cfg.Windows = DefaultWindows
	}
	if now == nil {
		now = time.Now
	}
	return &Coordinator{fetch: f, cfg: cfg, now: now}
}

// FetchTrailing fetches every trailing window concurrently and waits for all
// of them. One window's failure never cancels another; it only truncates its
// own result. Two windows mapping to the same (year, month) is a Conflict
func (c *Coordinator) FetchTrailing(ctx context.Context) (map[domain.WindowKey]domain.WindowResult, error) {
	log := logger.C(ctx).With().Str("component", "coordinator").Logger()
	windows := trailingWindows(c.now(), c.cfg.Windows)
	results := make([]domain.WindowResult, len(windows))

	var g errgroup.Group
	for i, w := range windows {
		log.Info().Str("window", w.Key.String()).Time("since", w.Start).Time("until", w.End).Msg("fetching commits")
		g.Go(func() error {
			wctx, cancel := guardrails.ForWindow(ctx, c.cfg.WindowTimeout)
			defer cancel()
			results[i] = c.fetch.Fetch(wctx, w)
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	out := make(map[domain.WindowKey]domain.WindowResult, len(results))
	for _, r := range results {
		if prev, dup := out[r.Window.Key]; dup {
			return nil, perr.Conflictf("window key %s produced twice (%s..%s and %s..%s)",
				r.Window.Key, prev.Window.Start.Format(time.RFC3339), prev.Window.End.Format(time.RFC3339),
				r.Window.Start.Format(time.RFC3339), r.Window.End.Format(time.RFC3339))
		}
		out[r.Window.Key] = r
	}

	log.Info().Int("windows", len(out)).Msg("aggregated results by month")
	return out, nil
}
