package repokit

import (
	"context"
	"time"

	perr "commitpipe/internal/platform/errors"
)

const defaultPingTimeout = 5 * time.Second

// Ping checks a dependency answers within timeout (5s when ctx has no deadline)
func Ping(ctx context.Context, name string, p interface{ Ping(context.Context) error }) error {
	if p == nil {
		return perr.Newf(perr.ErrorCodeUnavailable, "%s: nil dependency", name)
	}
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, defaultPingTimeout)
		defer cancel()
	}
	if err := p.Ping(ctx); err != nil {
		return perr.Wrapf(err, perr.ErrorCodeUnavailable, "%s ping failed", name)
	}
	return nil
}
