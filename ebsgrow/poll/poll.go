// Package poll runs fixed-interval status checks against the provider with an
// upper bound on how long the caller is blocked.
package poll

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v5"
)

// ErrTimedOut is returned when the condition did not settle before the timeout.
var ErrTimedOut = errors.New("timed out waiting for condition")

// errPending marks an attempt whose condition has not settled yet.
var errPending = errors.New("condition pending")

// Condition reports whether the awaited state has been reached. A non-nil
// error stops polling immediately.
type Condition func(ctx context.Context) (done bool, err error)

// Until calls cond every interval until it reports done, returns an error,
// ctx is cancelled or timeout elapses. The first check happens immediately.
func Until(ctx context.Context, interval, timeout time.Duration, cond Condition) error {
	_, err := backoff.Retry(
		ctx,
		func() (struct{}, error) {
			done, err := cond(ctx)
			if err != nil {
				return struct{}{}, backoff.Permanent(err)
			}
			if !done {
				return struct{}{}, errPending
			}
			return struct{}{}, nil
		},
		backoff.WithBackOff(backoff.NewConstantBackOff(interval)),
		backoff.WithMaxElapsedTime(timeout),
	)

	if errors.Is(err, errPending) {
		return fmt.Errorf("%w after %s", ErrTimedOut, timeout)
	}

	return err
}
