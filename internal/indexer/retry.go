package indexer

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
)

const maxRetryDelay = 30 * time.Second

// retryPolicy retries an RPC call with a delay that doubles after every
// failure, capped at maxDelay.
type retryPolicy struct {
	retries  int
	base     time.Duration
	maxDelay time.Duration
	// onRetry runs before every wait.
	onRetry func(attempt int, wait time.Duration, err error)
}

// rpcRetry builds the runner's policy for op. Each retry is logged with fields.
func (r *Runner) rpcRetry(op string, fields ...zap.Field) retryPolicy {
	return retryPolicy{
		retries:  r.cfg.MaxRetries,
		base:     r.cfg.RetryBackoff,
		maxDelay: maxRetryDelay,
		onRetry: func(attempt int, wait time.Duration, err error) {
			r.logger.Warn("rpc call failed, retrying", append([]zap.Field{
				zap.String("op", op),
				zap.Int("attempt", attempt),
				zap.Duration("wait", wait),
				zap.Error(err),
			}, fields...)...)
		},
	}
}

// do calls fn until it succeeds, the retries are used up or ctx is done.
// Context errors returned by fn are not retried.
func (p retryPolicy) do(ctx context.Context, fn func(context.Context) error) error {
	retries := max(p.retries, 0)
	delay := p.base
	if delay <= 0 {
		delay = 100 * time.Millisecond
	}
	maxDelay := p.maxDelay
	if maxDelay <= 0 {
		maxDelay = maxRetryDelay
	}

	for attempt := 1; ; attempt++ {
		err := fn(ctx)
		if err == nil {
			return nil
		}
		if attempt > retries || !retryable(err) {
			return err
		}
		if p.onRetry != nil {
			p.onRetry(attempt, delay, err)
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
		delay = min(delay*2, maxDelay)
	}
}

func retryable(err error) bool {
	return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
}
