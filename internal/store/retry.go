package store

import (
	"context"
	"log/slog"
	"time"
)

// RetryPolicy bounds how often a busy or locked statement is re-run.
type RetryPolicy struct {
	// MaxRetries is the number of retries after the first attempt.
	MaxRetries int

	// BaseDelay is the wait before the first retry; each later retry doubles it.
	BaseDelay time.Duration
}

// DefaultRetryPolicy returns 5 retries starting at 10ms.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries: 5,
		BaseDelay:  10 * time.Millisecond,
	}
}

// Delay returns the wait before retry number attempt (zero-based).
func (p RetryPolicy) Delay(attempt int) time.Duration {
	return p.BaseDelay << uint(attempt)
}

// run calls fn until it returns something other than a busy error or the
// retry ceiling is reached. The last error is returned unchanged, and retries
// reports how many times fn was re-run.
//
// The wait between attempts ends early if ctx is cancelled; the pending
// busy error is returned in that case.
func (p RetryPolicy) run(ctx context.Context, logger *slog.Logger, op string, fn func() error) (retries int, err error) {
	for attempt := 0; ; attempt++ {
		err = fn()
		if err == nil || !isBusy(err) || attempt >= p.MaxRetries {
			return attempt, err
		}

		delay := p.Delay(attempt)
		logger.Debug("database busy, retrying",
			"op", op,
			"attempt", attempt+1,
			"max_retries", p.MaxRetries,
			"delay", delay,
		)

		if !sleep(ctx, delay) {
			return attempt, err
		}
	}
}

// sleep blocks for d and reports false if ctx was cancelled first.
func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}
