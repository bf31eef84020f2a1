package sitestack

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
)

// ErrPollExhausted is returned by PollUntil when the condition never held.
var ErrPollExhausted = errors.New("poll attempts exhausted")

var errNotReady = errors.New("condition not met yet")

// Sleeper waits for d or until ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

// sleeperTimer drives backoff's retry loop with a Sleeper instead of a
// real timer.
type sleeperTimer struct {
	ctx   context.Context
	sleep Sleeper
	c     chan time.Time
	err   error
}

func newSleeperTimer(ctx context.Context, sleep Sleeper) *sleeperTimer {
	return &sleeperTimer{ctx: ctx, sleep: sleep, c: make(chan time.Time, 1)}
}

func (t *sleeperTimer) Start(d time.Duration) {
	t.err = t.sleep(t.ctx, d)
	// Always fire so a failed sleep is reported by the next attempt
	// rather than blocking the loop.
	t.c <- time.Now()
}

func (t *sleeperTimer) Stop() {}

func (t *sleeperTimer) C() <-chan time.Time {
	return t.c
}

// PollUntil calls check up to maxAttempts times, waiting interval between
// calls, until it reports done. An error from check stops polling and is
// returned as is. Context cancellation returns the context error. A nil
// sleep waits on a real timer.
func PollUntil(ctx context.Context, interval time.Duration, maxAttempts int, sleep Sleeper, check func(context.Context) (bool, error)) error {
	return pollUntil(ctx, interval, maxAttempts, sleep, zap.NewNop(), check)
}

func pollUntil(ctx context.Context, interval time.Duration, maxAttempts int, sleep Sleeper, logger *zap.Logger, check func(context.Context) (bool, error)) error {
	if maxAttempts < 1 {
		return ErrPollExhausted
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	var timer backoff.Timer
	var st *sleeperTimer
	if sleep != nil {
		st = newSleeperTimer(ctx, sleep)
		timer = st
	}

	attempt := 0
	b := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(interval), uint64(maxAttempts-1)),
		ctx)

	err := backoff.RetryNotifyWithTimer(func() error {
		if st != nil && st.err != nil {
			return backoff.Permanent(st.err)
		}
		attempt++
		done, err := check(ctx)
		if err != nil {
			return backoff.Permanent(err)
		}
		if !done {
			return errNotReady
		}
		return nil
	}, b, func(err error, next time.Duration) {
		logger.Debug("condition not met, retrying",
			zap.Int("attempt", attempt),
			zap.String("retry_in", next.String()))
	}, timer)

	if errors.Is(err, errNotReady) {
		return ErrPollExhausted
	}
	return err
}
