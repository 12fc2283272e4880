package github

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"strconv"
	"time"

	perr "commitpipe/internal/platform/errors"
)

// CommitQuery filters one page of the commits listing
type CommitQuery struct {
	Since   time.Time
	Until   time.Time
	Page    int // 1-based
	PerPage int
}

// maxPageBytes caps a single page body; 100 commits stay well under this
const maxPageBytes = 32 << 20

// ListCommits fetches one page of /repos/{owner}/{repo}/commits. Entries are
// returned as raw JSON so staging keeps the exact upstream payload
func (c *Client) ListCommits(ctx context.Context, owner, repo string, q CommitQuery) ([]json.RawMessage, error) {
	path := fmt.Sprintf("/repos/%s/%s/commits", url.PathEscape(owner), url.PathEscape(repo))

	v := url.Values{}
	if !q.Since.IsZero() {
		v.Set("since", q.Since.UTC().Format(time.RFC3339))
	}
	if !q.Until.IsZero() {
		v.Set("until", q.Until.UTC().Format(time.RFC3339))
	}
	if q.PerPage > 0 {
		v.Set("per_page", strconv.Itoa(q.PerPage))
	}
	if q.Page > 0 {
		v.Set("page", strconv.Itoa(q.Page))
	}

	resp, err := c.Do(ctx, path, v)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			c.log.Error().Err(cerr).Str("path", path).Msg("github close body failed")
		}
	}()

	b, err := io.ReadAll(io.LimitReader(resp.Body, maxPageBytes))
	if err != nil {
		return nil, perr.Wrap(err, perr.ErrorCodeUnavailable, "github read body failed")
	}
	var out []json.RawMessage
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, perr.Wrapf(err, perr.ErrorCodeJSON, "github commits page %d: decode", q.Page)
	}
	return out, nil
}
