package element

import (
	"context"
	"errors"
	"fmt"

	"github.com/v0xg/dashdriver/internal/wait"
)

// Predicate is one of the built-in wait targets.
type Predicate int

const (
	Present Predicate = iota
	NotPresent
	Visible
	NotVisible
	Clickable
)

func (p Predicate) String() string {
	switch p {
	case Present:
		return "present"
	case NotPresent:
		return "not present"
	case Visible:
		return "visible"
	case NotVisible:
		return "not visible"
	case Clickable:
		return "clickable"
	default:
		return fmt.Sprintf("predicate(%d)", int(p))
	}
}

// evaluate applies p to el, which is the null element when nothing matched.
func evaluate(ctx context.Context, p Predicate, el *Element) (bool, string, error) {
	if el.node == nil {
		switch p {
		case NotPresent, NotVisible:
			return true, "no match", nil
		default:
			return false, "no match", nil
		}
	}

	switch p {
	case Present, NotPresent:
		stalled, err := el.IsStalled(ctx)
		if err != nil {
			return false, "", err
		}
		if stalled {
			return p == NotPresent, "detached", nil
		}
		return p == Present, "attached", nil

	case Visible, NotVisible:
		visible, err := el.IsDisplayed(ctx)
		if errors.Is(err, ErrStale) {
			return p == NotVisible, "detached", nil
		}
		if err != nil {
			return false, "", err
		}
		return visible == (p == Visible), fmt.Sprintf("displayed=%t", visible), nil

	case Clickable:
		visible, err := el.IsDisplayed(ctx)
		if errors.Is(err, ErrStale) {
			return false, "detached", nil
		}
		if err != nil {
			return false, "", err
		}
		if !visible {
			return false, "displayed=false", nil
		}
		enabled, err := el.IsEnabled(ctx)
		if err != nil {
			return false, "", err
		}
		return enabled, fmt.Sprintf("displayed=true enabled=%t", enabled), nil
	}
	return false, "", fmt.Errorf("element: unknown predicate %s", p)
}

// Condition re-resolves the query on every probe and tests its first match.
// A stale scope ends the wait at once with StaleElementError.
func (q Query) Condition(p Predicate) wait.Condition {
	return wait.Condition{
		Name: fmt.Sprintf("%s is %s", q, p),
		Check: func(ctx context.Context) (bool, string, error) {
			el, err := q.one(ctx, false)
			if errors.Is(err, ErrStale) {
				return false, "", wait.Permanent(err)
			}
			if err != nil {
				return false, "", err
			}
			return evaluate(ctx, p, el)
		},
	}
}

// Condition tests the node this element already holds.
func (e *Element) Condition(p Predicate) wait.Condition {
	return wait.Condition{
		Name: fmt.Sprintf("%s is %s", e.loc, p),
		Check: func(ctx context.Context) (bool, string, error) {
			return evaluate(ctx, p, e)
		},
	}
}

// WaitUntil blocks until p holds for the query's first match.
func (q Query) WaitUntil(ctx context.Context, p Predicate) error {
	return q.sess.Until(ctx, q.Condition(p))
}

func (q Query) WaitUntilPresent(ctx context.Context) error    { return q.WaitUntil(ctx, Present) }
func (q Query) WaitUntilNotPresent(ctx context.Context) error { return q.WaitUntil(ctx, NotPresent) }
func (q Query) WaitUntilVisible(ctx context.Context) error    { return q.WaitUntil(ctx, Visible) }
func (q Query) WaitUntilNotVisible(ctx context.Context) error { return q.WaitUntil(ctx, NotVisible) }
func (q Query) WaitUntilClickable(ctx context.Context) error  { return q.WaitUntil(ctx, Clickable) }

// WaitUntil blocks until p holds for this element's node.
func (e *Element) WaitUntil(ctx context.Context, p Predicate) error {
	return e.sess.Until(ctx, e.Condition(p))
}

func (e *Element) WaitUntilVisible(ctx context.Context) error    { return e.WaitUntil(ctx, Visible) }
func (e *Element) WaitUntilNotVisible(ctx context.Context) error { return e.WaitUntil(ctx, NotVisible) }
func (e *Element) WaitUntilClickable(ctx context.Context) error  { return e.WaitUntil(ctx, Clickable) }

// ClickWhenClickable waits for the element to become clickable, then clicks.
func (e *Element) ClickWhenClickable(ctx context.Context) error {
	return e.sess.Guard(ctx, e.Condition(Clickable), e.Click)
}
