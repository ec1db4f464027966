package remote

import (
	"context"
	"fmt"
	"time"

	"github.com/dmitrijs2005/delegsync/internal/common"
	"github.com/sethvargo/go-retry"
)

// RetryPolicy bounds the exponential backoff applied to throttled calls.
// Waits are BaseBackoff * 2^(attempt-1), each shifted by a random jitter of
// at most MaxJitter.
type RetryPolicy struct {
	ReadAttempts  int
	WriteAttempts int
	BaseBackoff   time.Duration
	MaxJitter     time.Duration
}

// DefaultRetryPolicy allows 5 attempts per read and 3 per write.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		ReadAttempts:  5,
		WriteAttempts: 3,
		BaseBackoff:   time.Second,
		MaxJitter:     500 * time.Millisecond,
	}
}

func (p RetryPolicy) backoff(attempts int) retry.Backoff {
	var b retry.Backoff
	if p.BaseBackoff > 0 {
		b = retry.NewExponential(p.BaseBackoff)
	} else {
		b = retry.BackoffFunc(func() (time.Duration, bool) { return 0, false })
	}
	if p.MaxJitter > 0 {
		b = retry.WithJitter(p.MaxJitter, b)
	}
	return retry.WithMaxRetries(uint64(attempts-1), b)
}

// do runs fn until it succeeds, fails with a non-transient error or runs out
// of attempts. Exhaustion is reported as common.ErrRateLimitExhausted.
func (c *Client) do(ctx context.Context, op, sheet string, attempts int, fn func(ctx context.Context) error) error {
	if attempts < 1 {
		attempts = 1
	}
	attempt := 0
	err := retry.Do(ctx, c.policy.backoff(attempts), func(ctx context.Context) error {
		attempt++
		c.calls++
		err := fn(ctx)
		if err != nil && common.IsTransient(err) {
			if attempt < attempts {
				c.log.Warn(ctx, "remote call throttled, backing off",
					"op", op, "sheet", sheet, "attempt", attempt, "error", err)
			}
			return retry.RetryableError(err)
		}
		return err
	})
	if err != nil && common.IsTransient(err) {
		return fmt.Errorf("%w: %s %s after %d attempts: %v", common.ErrRateLimitExhausted, op, sheet, attempt, err)
	}
	return err
}
