// Package guardrails holds per-task budget helpers for the window fan-out
package guardrails

import (
	"context"
	"time"
)

// ForWindow returns a context for one window fetch bounded by d and any
// remaining parent budget. Zero d adds no limit; the child is still cancelable
func ForWindow(parent context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	return withChildTimeout(parent, d)
}

// Remaining returns the time until the deadline on ctx or zero when none is set or already expired
func Remaining(ctx context.Context) time.Duration {
	if dl, ok := ctx.Deadline(); ok {
		if d := time.Until(dl); d > 0 {
			return d
		}
	}
	return 0
}

// withChildTimeout chooses the tighter of d and the parent remainder; it never extends the parent deadline
func withChildTimeout(parent context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(parent)
	}
	if rem := Remaining(parent); rem > 0 && rem < d {
		return context.WithTimeout(parent, rem)
	}
	return context.WithTimeout(parent, d)
}
