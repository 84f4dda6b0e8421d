package scraper

import (
	"context"
	"fmt"
	"time"

	"github.com/paurush33/alberta-procurement-scraper/models"
)

// Poll cadences for the two canonical waits.
const (
	resultPollInterval = 400 * time.Millisecond
	changePollInterval = 300 * time.Millisecond
)

// WaitUntil polls pred every interval until it reports true or timeout
// elapses. The predicate is evaluated at least once. Returns nil on success,
// an error wrapping ErrWaitTimeout when the window closes, or ctx.Err() on
// cancellation.
func WaitUntil(ctx context.Context, timeout, interval time.Duration, pred func(context.Context) bool) error {
	start := time.Now()
	for {
		if pred(ctx) {
			return nil
		}
		if time.Since(start) >= timeout {
			return fmt.Errorf("after %s: %w", timeout, ErrWaitTimeout)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(interval):
		}
	}
}

// WaitForAnyResult blocks until at least one result card is present anywhere
// in the composed tree.
func WaitForAnyResult(ctx context.Context, q *DeepQuery, timeout time.Duration) error {
	err := WaitUntil(ctx, timeout, resultPollInterval, func(ctx context.Context) bool {
		els, err := q.QueryAll(ctx, ResultCardSelector)
		return err == nil && len(els) > 0
	})
	if err != nil {
		return fmt.Errorf("no results appeared: %w", err)
	}
	return nil
}

// WaitForPageChange blocks until the first-card fingerprint is both
// non-sentinel and different from prev. A sentinel fingerprint never counts
// as a change, even though it differs from prev.
func WaitForPageChange(ctx context.Context, fp *Fingerprinter, prev models.Fingerprint, timeout time.Duration) error {
	err := WaitUntil(ctx, timeout, changePollInterval, func(ctx context.Context) bool {
		cur := fp.Current(ctx)
		return !cur.IsZero() && cur != prev
	})
	if err != nil {
		return fmt.Errorf("page did not change: %w", err)
	}
	return nil
}
