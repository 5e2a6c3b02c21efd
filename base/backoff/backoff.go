package backoff

import (
	"context"
	"time"
)

// Strategy computes the wait before attempt n (0-based) from the base
// duration and the previously applied wait.
type Strategy func(attempt int, base, last time.Duration) time.Duration

type Backoff struct {
	LastDuration time.Duration
	NextDuration time.Duration
	base         time.Duration
	cap          time.Duration
	attempt      int
	strategy     Strategy
}

func New(strategy Strategy, base, cap time.Duration) *Backoff {
	b := &Backoff{strategy: strategy, base: base, cap: cap}
	b.Reset()
	return b
}

// NewExponential doubles the wait on every attempt, capped.
func NewExponential(base, cap time.Duration) *Backoff {
	return New(func(attempt int, base, _ time.Duration) time.Duration {
		return base << uint(attempt)
	}, base, cap)
}

// NewLinear grows the wait by base on every attempt, capped.
func NewLinear(base, cap time.Duration) *Backoff {
	return New(func(attempt int, base, _ time.Duration) time.Duration {
		return time.Duration(attempt) * base
	}, base, cap)
}

func (b *Backoff) Reset() {
	b.attempt = 0
	b.LastDuration = 0
	b.NextDuration = b.next()
}

// Backoff sleeps for NextDuration or until ctx is canceled, whichever
// comes first, then advances the schedule. A canceled ctx is returned
// as the error; completing the wait is not one.
func (b *Backoff) Backoff(ctx context.Context) error {
	t := time.NewTimer(b.NextDuration)
	defer t.Stop()
	select {
	case <-t.C:
		b.attempt++
		b.LastDuration = b.NextDuration
		b.NextDuration = b.next()
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (b *Backoff) next() time.Duration {
	d := b.strategy(b.attempt, b.base, b.LastDuration)
	if b.cap > 0 && d > b.cap {
		d = b.cap
	}
	return d
}
