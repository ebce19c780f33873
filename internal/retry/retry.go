package retry

import (
	"context"
	"fmt"
	"time"
)

// Policy is a reusable exponential-backoff retry policy. Delays between
// attempts follow BaseDelay, BaseDelay*Multiplier, BaseDelay*Multiplier^2, ...
type Policy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	Multiplier  int
}

// Default mirrors the backoff used by every external capability call:
// three attempts with 1s and 2s waits between them.
var Default = Policy{MaxAttempts: 3, BaseDelay: time.Second, Multiplier: 2}

// Do runs fn up to MaxAttempts times. onFailure is invoked for every
// failed attempt, including the last; the final error is returned once
// the budget is exhausted. The context cancels waiting between attempts.
func (p Policy) Do(ctx context.Context, fn func(ctx context.Context) error, onFailure func(attempt int, err error)) error {
	if p.MaxAttempts < 1 {
		return fmt.Errorf("retry: invalid max attempts %d", p.MaxAttempts)
	}

	delay := p.BaseDelay
	var lastErr error
	for attempt := 1; attempt <= p.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}
		if onFailure != nil {
			onFailure(attempt, lastErr)
		}
		if attempt == p.MaxAttempts {
			break
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
		delay *= time.Duration(p.Multiplier)
	}
	return fmt.Errorf("all %d attempts failed: %w", p.MaxAttempts, lastErr)
}
