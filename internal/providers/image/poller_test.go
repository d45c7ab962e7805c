package image

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPollReadyOnThirdAttempt(t *testing.T) {
	clock := &StepClock{}
	p := Poller{Interval: 2 * time.Second, MaxAttempts: 60, Clock: clock}

	attempts, err := p.Poll(context.Background(), func(ctx context.Context, attempt int) (bool, error) {
		return attempt == 3, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
	assert.Equal(t, 6*time.Second, clock.Elapsed)
}

func TestPollExhaustsBudgetDeterministically(t *testing.T) {
	clock := &StepClock{}
	p := Poller{Interval: 2 * time.Second, MaxAttempts: 60, Clock: clock}
	calls := 0

	attempts, err := p.Poll(context.Background(), func(ctx context.Context, attempt int) (bool, error) {
		calls++
		return false, nil
	})
	require.ErrorIs(t, err, ErrPollTimeout)
	assert.Equal(t, 60, attempts)
	assert.Equal(t, 60, calls)
	assert.Equal(t, 60, clock.Waits)
	assert.Equal(t, 2*time.Minute, clock.Elapsed)
	assert.Equal(t, p.Budget(), clock.Elapsed)
}

func TestPollStopsOnFetchError(t *testing.T) {
	boom := errors.New("boom")
	p := Poller{Interval: time.Second, MaxAttempts: 5, Clock: &StepClock{}}

	attempts, err := p.Poll(context.Background(), func(ctx context.Context, attempt int) (bool, error) {
		if attempt == 2 {
			return false, boom
		}
		return false, nil
	})
	require.ErrorIs(t, err, boom)
	assert.Equal(t, 2, attempts)
}

func TestPollHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	p := Poller{Interval: time.Hour, MaxAttempts: 3}

	attempts, err := p.Poll(ctx, func(ctx context.Context, attempt int) (bool, error) {
		t.Fatal("fetch must not run after cancellation")
		return false, nil
	})
	require.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, attempts)
}

func TestPollRejectsZeroAttempts(t *testing.T) {
	_, err := Poller{Interval: time.Second}.Poll(context.Background(), nil)
	require.Error(t, err)
}

func TestTimeoutMessage(t *testing.T) {
	assert.Equal(t, "Request timed out after 2 minutes", TimeoutMessage(2*time.Minute))
	assert.Equal(t, "Request timed out after 1 minute", TimeoutMessage(time.Minute))
	assert.Equal(t, "Request timed out after 30s", TimeoutMessage(30*time.Second))
	assert.Contains(t, TimeoutMessage(0), "Request timed out")
}
