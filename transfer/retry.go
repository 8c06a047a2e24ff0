package transfer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/avast/retry-go"
)

const (
	// DefaultAttempts is the number of times a transfer is attempted before
	// giving up.
	DefaultAttempts = 3
	// DefaultRetryDelay is the fixed delay between two attempts.
	DefaultRetryDelay = 500 * time.Millisecond
)

// retryable reports whether a failed attempt may succeed if tried again.
func retryable(err error) bool {
	var objErr *ObjectError
	switch {
	case errors.Is(err, ErrChecksumMismatch),
		errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded),
		errors.As(err, &objErr):
		return false
	}
	return true
}

// retry runs fn until it succeeds, returns a non-retryable error, or the
// configured number of attempts is used up. The delay between attempts is a
// timer that is abandoned when ctx is done. It returns the number of attempts
// made.
func (c *Client) retry(ctx context.Context, st *ObjectStatus, fn func() error) (int, error) {
	op := st.Operation.String()
	var attempts int
	var last error
	err := retry.Do(
		func() error {
			attempts++
			if attempts > 1 {
				retriesCounter.WithLabelValues(op).Inc()
			}
			last = fn()
			return last
		},
		retry.Context(ctx),
		retry.Attempts(c.attempts),
		retry.Delay(c.delay),
		retry.DelayType(retry.FixedDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(retryable),
		retry.OnRetry(func(n uint, err error) {
			logger(ctx).Warn(op+" attempt failed", "index", st.Index, "oid", st.Pointer.Oid, "attempt", n+1, "err", err)
		}),
	)
	if err == nil {
		return attempts, nil
	}
	if last != nil && retryable(last) && attempts >= int(c.attempts) {
		return attempts, fmt.Errorf("%w: %s %s after %d attempts: %w", ErrRetriesExhausted, op, st.Pointer.Oid, attempts, last)
	}
	return attempts, err
}
