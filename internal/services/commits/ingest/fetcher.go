package ingest

import (
	"context"
	"errors"

	"commitpipe/internal/adapters/ingest/github"
	"commitpipe/internal/platform/logger"
	"commitpipe/internal/services/commits/domain"
)

// DefaultPerPage is the page size requested from the commits listing
const DefaultPerPage = 100

// Fetcher implements domain.WindowFetcher over a CommitLister
type Fetcher struct {
	lister  domain.CommitLister
	owner   string
	repo    string
	perPage int
}

// NewFetcher builds a window fetcher for owner/repo
func NewFetcher(l domain.CommitLister, owner, repo string, perPage int) *Fetcher {
	if perPage <= 0 {
		perPage = DefaultPerPage
	}
	return &Fetcher{lister: l, owner: owner, repo: repo, perPage: perPage}
}

// Fetch requests pages 1..n until an empty page. A failed page ends the
// window: the error is logged and the pages gathered so far are returned
func (f *Fetcher) Fetch(ctx context.Context, w domain.Window) domain.WindowResult {
	log := logger.C(ctx).With().Str("component", "fetcher").Str("window", w.Key.String()).Logger()
	res := domain.WindowResult{Window: w}

	for page := 1; ; page++ {
		rows, err := f.lister.ListCommits(ctx, f.owner, f.repo, domain.CommitQuery{
			Since:   w.Start,
			Until:   w.End,
			Page:    page,
			PerPage: f.perPage,
		})
		if err != nil {
			evt := log.Error().Err(err).Int("page", page).Int("rows_kept", len(res.Rows))
			var se *github.GHStatusError
			if errors.As(err, &se) {
				evt = evt.Int("status", se.Status).Str("body", se.Body)
			}
			evt.Msg("commits page failed; window truncated")
			res.Truncated = true
			res.Err = err
			return res
		}
		if len(rows) == 0 {
			break
		}
		res.Rows = append(res.Rows, rows...)
		res.Pages = page
	}

	log.Debug().Int("pages", res.Pages).Int("rows", len(res.Rows)).Msg("window fetched")
	return res
}
