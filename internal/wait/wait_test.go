package wait

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fast = Options{Timeout: 200 * time.Millisecond, Interval: 2 * time.Millisecond}

func TestUntilSatisfiedAfterPolls(t *testing.T) {
	calls := 0
	cond := Condition{Name: "third time", Check: func(context.Context) (bool, string, error) {
		calls++
		return calls >= 3, "", nil
	}}

	require.NoError(t, Until(context.Background(), cond, fast))
	assert.Equal(t, 3, calls)
}

func TestUntilSatisfiedImmediately(t *testing.T) {
	calls := 0
	cond := Condition{Name: "now", Check: func(context.Context) (bool, string, error) {
		calls++
		return true, "", nil
	}}

	start := time.Now()
	require.NoError(t, Until(context.Background(), cond, Options{Timeout: time.Second, Interval: time.Second}))
	assert.Equal(t, 1, calls)
	assert.Less(t, time.Since(start), 500*time.Millisecond)
}

func TestUntilTimeoutCarriesLastState(t *testing.T) {
	n := 0
	cond := Condition{Name: "never", Check: func(context.Context) (bool, string, error) {
		n++
		return false, "still hidden", nil
	}}

	err := Until(context.Background(), cond, Options{Timeout: 20 * time.Millisecond, Interval: 2 * time.Millisecond})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrTimeout))

	var te *TimeoutError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, "never", te.Condition)
	assert.Equal(t, "still hidden", te.LastState)
	assert.Equal(t, n, te.Polls)
	assert.Contains(t, te.Error(), "still hidden")
}

func TestUntilTimeoutStateNeverEmpty(t *testing.T) {
	cond := Condition{Name: "silent", Check: func(context.Context) (bool, string, error) {
		return false, "", nil
	}}

	err := Until(context.Background(), cond, Options{Timeout: 5 * time.Millisecond, Interval: time.Millisecond})
	var te *TimeoutError
	require.ErrorAs(t, err, &te)
	assert.NotEmpty(t, te.LastState)
}

func TestUntilKeepsProbeError(t *testing.T) {
	boom := errors.New("node detached")
	cond := Condition{Name: "erroring", Check: func(context.Context) (bool, string, error) {
		return false, "", boom
	}}

	err := Until(context.Background(), cond, Options{Timeout: 5 * time.Millisecond, Interval: time.Millisecond})
	assert.ErrorIs(t, err, boom)
	assert.ErrorIs(t, err, ErrTimeout)

	var te *TimeoutError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, "node detached", te.LastState)
}

func TestUntilStopsOnPermanentError(t *testing.T) {
	gone := errors.New("scope detached")
	calls := 0
	cond := Condition{Name: "scoped", Check: func(context.Context) (bool, string, error) {
		calls++
		return false, "", Permanent(gone)
	}}

	start := time.Now()
	err := Until(context.Background(), cond, Options{Timeout: time.Second, Interval: time.Millisecond})
	assert.ErrorIs(t, err, gone)
	assert.NotErrorIs(t, err, ErrTimeout)
	assert.Equal(t, 1, calls)
	assert.Less(t, time.Since(start), 500*time.Millisecond)
	assert.NoError(t, Permanent(nil))
}

func TestUntilErrorThenSuccess(t *testing.T) {
	calls := 0
	cond := Condition{Name: "flaky", Check: func(context.Context) (bool, string, error) {
		calls++
		if calls == 1 {
			return true, "", errors.New("transient")
		}
		return true, "", nil
	}}

	require.NoError(t, Until(context.Background(), cond, fast))
	assert.Equal(t, 2, calls)
}

func TestUntilContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cond := Condition{Name: "cancelled", Check: func(context.Context) (bool, string, error) {
		cancel()
		return false, "", nil
	}}

	err := Until(ctx, cond, Options{Timeout: time.Second, Interval: 50 * time.Millisecond})
	assert.ErrorIs(t, err, context.Canceled)
	assert.NotErrorIs(t, err, ErrTimeout)
}

func TestGuardRunsActionOnlyAfterCondition(t *testing.T) {
	ready := false
	acted := false
	cond := Condition{Name: "ready", Check: func(context.Context) (bool, string, error) {
		if !ready {
			ready = true
			return false, "loading", nil
		}
		return true, "", nil
	}}

	err := Guard(context.Background(), cond, fast, func(context.Context) error {
		assert.True(t, ready)
		acted = true
		return nil
	})
	require.NoError(t, err)
	assert.True(t, acted)
}

func TestGuardSkipsActionOnTimeout(t *testing.T) {
	cond := Condition{Name: "never", Check: func(context.Context) (bool, string, error) {
		return false, "disabled", nil
	}}

	err := Guard(context.Background(), cond, Options{Timeout: 5 * time.Millisecond, Interval: time.Millisecond},
		func(context.Context) error {
			t.Fatal("action must not run")
			return nil
		})
	assert.ErrorIs(t, err, ErrTimeout)
}

func TestOptionsDefaults(t *testing.T) {
	o := Options{}.withDefaults()
	assert.Equal(t, DefaultTimeout, o.Timeout)
	assert.Equal(t, DefaultInterval, o.Interval)
}
