// Package wait polls conditions against a live page until they hold or a
// timeout elapses. Every wait is bounded.
package wait

import (
	"context"
	"errors"
	"fmt"
	"time"
)

const (
	DefaultTimeout  = 20 * time.Second
	DefaultInterval = 100 * time.Millisecond
)

// ErrTimeout matches every *TimeoutError via errors.Is.
var ErrTimeout = errors.New("wait: timed out")

// Options bound a wait.
type Options struct {
	Timeout  time.Duration
	Interval time.Duration
}

func (o Options) withDefaults() Options {
	if o.Timeout <= 0 {
		o.Timeout = DefaultTimeout
	}
	if o.Interval <= 0 {
		o.Interval = DefaultInterval
	}
	return o
}

// Condition is a named probe. Check reports whether the condition holds and
// a short description of what it observed. A non-nil error counts as "not
// yet" and is kept for diagnostics.
type Condition struct {
	Name  string
	Check func(ctx context.Context) (ok bool, state string, err error)
}

// TimeoutError reports a condition that never held.
type TimeoutError struct {
	Condition string
	// LastState is what the final probe observed. Never empty.
	LastState string
	Timeout   time.Duration
	Polls     int
	// Err is the error returned by the final probe, if any.
	Err error
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("wait: %s not satisfied after %s (%d polls, last state: %s)",
		e.Condition, e.Timeout, e.Polls, e.LastState)
}

func (e *TimeoutError) Is(target error) bool { return target == ErrTimeout }

func (e *TimeoutError) Unwrap() error { return e.Err }

type permanentError struct{ err error }

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent marks a probe error that no later poll can recover from. Until
// returns it at once instead of polling to the timeout.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// Until probes c immediately and then every opts.Interval until it holds.
func Until(ctx context.Context, c Condition, opts Options) error {
	opts = opts.withDefaults()

	deadline := time.Now().Add(opts.Timeout)
	timer := time.NewTimer(0)
	defer timer.Stop()
	<-timer.C

	var (
		polls     int
		lastState string
		lastErr   error
	)
	for {
		ok, state, err := c.Check(ctx)
		polls++
		if err == nil && ok {
			return nil
		}
		var perm *permanentError
		if errors.As(err, &perm) {
			return fmt.Errorf("wait: %s: %w", c.Name, perm.err)
		}
		lastState, lastErr = describe(ok, state, err), err

		remaining := time.Until(deadline)
		if remaining <= 0 {
			return &TimeoutError{
				Condition: c.Name,
				LastState: lastState,
				Timeout:   opts.Timeout,
				Polls:     polls,
				Err:       lastErr,
			}
		}

		timer.Reset(min(opts.Interval, remaining))
		select {
		case <-ctx.Done():
			return fmt.Errorf("wait: %s: %w", c.Name, ctx.Err())
		case <-timer.C:
		}
	}
}

// Guard runs action once c holds. A timed out condition skips the action.
func Guard(ctx context.Context, c Condition, opts Options, action func(ctx context.Context) error) error {
	if err := Until(ctx, c, opts); err != nil {
		return err
	}
	return action(ctx)
}

func describe(ok bool, state string, err error) string {
	switch {
	case err != nil && state != "":
		return state + ": " + err.Error()
	case err != nil:
		return err.Error()
	case state != "":
		return state
	default:
		return fmt.Sprintf("condition reported %t", ok)
	}
}
