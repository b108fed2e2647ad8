package retry

import (
	"context"
	"fmt"
	"time"
)

// Policy is the single retry-with-backoff configuration applied at every
// transport boundary (queue send/receive, object store reads, DB writes).
type Policy struct {
	MaxAttempts int
	Delay       time.Duration
	MaxDelay    time.Duration
}

// DefaultPolicy mirrors the database connect loop: a handful of attempts with
// a growing pause between them.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts: 5,
		Delay:       500 * time.Millisecond,
		MaxDelay:    10 * time.Second,
	}
}

// Do runs fn until it succeeds, attempts run out, or the context is
// cancelled. The delay doubles after every failed attempt up to MaxDelay.
func (p Policy) Do(ctx context.Context, op string, fn func() error) error {
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = 1
	}
	delay := p.Delay
	var err error
	for attempt := 1; attempt <= p.MaxAttempts; attempt++ {
		if err = fn(); err == nil {
			return nil
		}
		if attempt == p.MaxAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("%s aborted: %w", op, ctx.Err())
		case <-time.After(delay):
		}
		delay *= 2
		if p.MaxDelay > 0 && delay > p.MaxDelay {
			delay = p.MaxDelay
		}
	}
	return fmt.Errorf("%s failed after %d attempts: %w", op, p.MaxAttempts, err)
}
