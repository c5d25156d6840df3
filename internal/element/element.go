package element

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/v0xg/dashdriver/internal/driver"
	"github.com/v0xg/dashdriver/internal/locator"
)

// liveness is what we know about the node behind an element. Only staleness
// is remembered: a detached node never comes back, but an attached one can
// be removed at any moment.
type liveness int

const (
	unknown liveness = iota
	stale
)

// Element is a located node. The zero node is the null element returned by
// OneOrNull: it is not valid and every interaction fails with
// ErrInvalidElement.
type Element struct {
	sess  *Session
	node  driver.Node
	loc   locator.Locator
	state liveness
}

// Located lets *Element act as the generic View.
func (e *Element) Located() *Element { return e }

// Locator is the locator the element was resolved with.
func (e *Element) Locator() locator.Locator { return e.loc }

// Session returns the session the element was resolved in.
func (e *Element) Session() *Session { return e.sess }

// IsValid reports whether the element is backed by a node not yet known to
// be stale. It does not probe the driver; use IsStalled for that.
func (e *Element) IsValid() bool {
	return e != nil && e.node != nil && e.state != stale
}

// IsStalled probes the driver and reports whether the node has left the
// document. A null element is always stalled.
func (e *Element) IsStalled(ctx context.Context) (bool, error) {
	if e == nil || e.node == nil || e.state == stale {
		return true, nil
	}
	attached, err := e.node.Attached(ctx)
	if err != nil {
		return false, fmt.Errorf("element %s: probe: %w", e.loc, err)
	}
	if !attached {
		e.markStale()
	}
	return !attached, nil
}

func (e *Element) markStale() {
	if e.state != stale {
		e.state = stale
		if e.sess != nil {
			e.sess.log.Debug("element: marked stale", "locator", e.loc.String())
		}
	}
}

// Query builds a deferred query relative to this element.
func (e *Element) Query(loc locator.Locator) Query {
	return Query{sess: e.sess, loc: loc, scope: e}
}

// do guards a driver call: null elements fail up front, detached nodes are
// remembered and reported as StaleElementError.
func (e *Element) do(ctx context.Context, op string, fn func(n driver.Node) error) error {
	if e == nil || e.node == nil {
		return fmt.Errorf("%s %s: %w", op, e.describe(), ErrInvalidElement)
	}
	if e.state == stale {
		return &StaleElementError{Locator: e.loc}
	}
	err := fn(e.node)
	if err == nil {
		return nil
	}
	if errors.Is(err, driver.ErrDetached) {
		e.markStale()
		return &StaleElementError{Locator: e.loc, Err: err}
	}
	return fmt.Errorf("%s %s: %w", op, e.loc, err)
}

func (e *Element) describe() string {
	if e == nil {
		return "<nil>"
	}
	return e.loc.String()
}

// Click clicks the node once. It does not wait; use WaitUntilClickable first
// when the page may still be rendering.
func (e *Element) Click(ctx context.Context) error {
	return e.do(ctx, "click", func(n driver.Node) error { return n.Click(ctx) })
}

// Fill replaces the value of an input-like node.
func (e *Element) Fill(ctx context.Context, text string) error {
	return e.do(ctx, "fill", func(n driver.Node) error { return n.SetValue(ctx, text) })
}

// Text returns the rendered text of the node.
func (e *Element) Text(ctx context.Context) (string, error) {
	var text string
	err := e.do(ctx, "text", func(n driver.Node) error {
		var err error
		text, err = n.Text(ctx)
		return err
	})
	return text, err
}

// Attribute returns an attribute value and whether it is set.
func (e *Element) Attribute(ctx context.Context, name string) (string, bool, error) {
	var (
		value string
		ok    bool
	)
	err := e.do(ctx, "attribute", func(n driver.Node) error {
		var err error
		value, ok, err = n.Attribute(ctx, name)
		return err
	})
	return value, ok, err
}

// HasClass reports whether the class attribute holds the token.
func (e *Element) HasClass(ctx context.Context, class string) (bool, error) {
	v, _, err := e.Attribute(ctx, "class")
	if err != nil {
		return false, err
	}
	for _, c := range strings.Fields(v) {
		if c == class {
			return true, nil
		}
	}
	return false, nil
}

// IsDisplayed reports whether the node is rendered.
func (e *Element) IsDisplayed(ctx context.Context) (bool, error) {
	var visible bool
	err := e.do(ctx, "visible", func(n driver.Node) error {
		var err error
		visible, err = n.Visible(ctx)
		return err
	})
	return visible, err
}

// DisplayedAs reports whether the node's visibility equals expected. A null
// element counts as not displayed.
func (e *Element) DisplayedAs(ctx context.Context, expected bool) (bool, error) {
	if e == nil || e.node == nil {
		return !expected, nil
	}
	visible, err := e.IsDisplayed(ctx)
	if err != nil {
		return false, err
	}
	return visible == expected, nil
}

// IsEnabled reports whether the node accepts input.
func (e *Element) IsEnabled(ctx context.Context) (bool, error) {
	var enabled bool
	err := e.do(ctx, "enabled", func(n driver.Node) error {
		var err error
		enabled, err = n.Enabled(ctx)
		return err
	})
	return enabled, err
}

// IsClickable reports whether the node is both displayed and enabled.
func (e *Element) IsClickable(ctx context.Context) (bool, error) {
	visible, err := e.IsDisplayed(ctx)
	if err != nil || !visible {
		return false, err
	}
	return e.IsEnabled(ctx)
}
