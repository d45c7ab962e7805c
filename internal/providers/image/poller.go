package image

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrPollTimeout is returned once every attempt reported "not ready".
var ErrPollTimeout = errors.New("poll budget exhausted")

// Clock abstracts the wait between poll attempts.
type Clock interface {
	After(d time.Duration) <-chan time.Time
}

// SystemClock waits on the real wall clock.
type SystemClock struct{}

func (SystemClock) After(d time.Duration) <-chan time.Time { return time.After(d) }

// StepClock fires immediately and accumulates the time it was asked to wait.
// It makes poll loops deterministic in tests.
type StepClock struct {
	Elapsed time.Duration
	Waits   int
}

func (c *StepClock) After(d time.Duration) <-chan time.Time {
	c.Waits++
	c.Elapsed += d
	ch := make(chan time.Time, 1)
	ch <- time.Unix(0, 0).Add(c.Elapsed)
	return ch
}

// FetchFunc performs one poll attempt. ready=false means the upstream has
// not finished yet; a non-nil error aborts polling.
type FetchFunc func(ctx context.Context, attempt int) (ready bool, err error)

// Poller is a bounded wait-then-fetch loop.
type Poller struct {
	Interval    time.Duration
	MaxAttempts int
	Clock       Clock
}

// Budget is the worst-case time Poll waits before giving up.
func (p Poller) Budget() time.Duration {
	return p.Interval * time.Duration(p.MaxAttempts)
}

// Poll calls fetch after each interval until it reports ready, fails, or
// MaxAttempts attempts have been made. It returns the attempt count.
func (p Poller) Poll(ctx context.Context, fetch FetchFunc) (int, error) {
	if p.MaxAttempts <= 0 {
		return 0, fmt.Errorf("poller: max attempts must be positive")
	}
	clock := p.Clock
	if clock == nil {
		clock = SystemClock{}
	}
	for attempt := 1; attempt <= p.MaxAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return attempt - 1, ctx.Err()
		case <-clock.After(p.Interval):
		}
		ready, err := fetch(ctx, attempt)
		if err != nil {
			return attempt, err
		}
		if ready {
			return attempt, nil
		}
	}
	return p.MaxAttempts, ErrPollTimeout
}

// TimeoutMessage renders the user-facing timeout text for a budget.
func TimeoutMessage(budget time.Duration) string {
	switch {
	case budget <= 0:
		return "Request timed out"
	case budget%time.Minute == 0:
		mins := int(budget / time.Minute)
		if mins == 1 {
			return "Request timed out after 1 minute"
		}
		return fmt.Sprintf("Request timed out after %d minutes", mins)
	default:
		return fmt.Sprintf("Request timed out after %s", budget)
	}
}
