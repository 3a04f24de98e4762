package ledger

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/rs/zerolog/log"
)

// RetryPolicy bounds how often a conflicting transaction is re-run.
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 12,
		BaseDelay:   10 * time.Millisecond,
		MaxDelay:    1200 * time.Millisecond,
	}
}

// run executes attempt until it succeeds, fails with a non-conflict error,
// or the policy gives up. Business errors returned by the TxFunc pass
// straight through without a retry.
func (p RetryPolicy) run(ctx context.Context, attempt func(ctx context.Context) error) error {
	maxAttempts := p.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 1
	}
	delay := p.BaseDelay

	var lastErr error
	for i := 1; i <= maxAttempts; i++ {
		err := attempt(ctx)
		if err == nil {
			return nil
		}
		if !errors.Is(err, ErrConflict) {
			return err
		}
		lastErr = err

		if i == maxAttempts {
			break
		}
		log.Debug().Int("attempt", i).Dur("backoff", delay).Msg("ledger transaction conflict, retrying")
		if err := sleepWithContext(ctx, jitter(delay)); err != nil {
			return err
		}
		delay *= 2
		if delay > p.MaxDelay {
			delay = p.MaxDelay
		}
	}
	return fmt.Errorf("%w after %d attempts: %v", ErrConflict, maxAttempts, lastErr)
}

// jitter spreads retries of colliding transactions over [d/2, d].
func jitter(d time.Duration) time.Duration {
	if d <= 0 {
		return 0
	}
	half := int64(d) / 2
	return time.Duration(half + rand.Int64N(half+1))
}

func sleepWithContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
