package roddriver

import (
	"context"
	"fmt"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"

	"github.com/v0xg/dashdriver/internal/driver"
)

type node struct {
	el      *rod.Element
	timeout time.Duration
}

// on returns the element bound to ctx, cut off after the action timeout.
func (n *node) on(ctx context.Context) (*rod.Element, context.CancelFunc) {
	ctx, cancel := bound(ctx, n.timeout)
	return n.el.Context(ctx), cancel
}

// Attached reports whether the node is still in the document. A remote
// object that can no longer be evaluated counts as detached.
func (n *node) Attached(ctx context.Context) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	el, cancel := n.on(ctx)
	defer cancel()
	res, err := el.Eval(`() => this.isConnected`)
	if err != nil {
		if ctx.Err() != nil {
			return false, ctx.Err()
		}
		return false, nil
	}
	return res.Value.Bool(), nil
}

// check turns a failed call on a node that has left the document into
// driver.ErrDetached.
func (n *node) check(ctx context.Context, op string, err error) error {
	if err == nil {
		return nil
	}
	if attached, aerr := n.Attached(ctx); aerr == nil && !attached {
		return fmt.Errorf("%s: %w", op, driver.ErrDetached)
	}
	return fmt.Errorf("roddriver: %s: %w", op, err)
}

func (n *node) Text(ctx context.Context) (string, error) {
	el, cancel := n.on(ctx)
	defer cancel()
	s, err := el.Text()
	return s, n.check(ctx, "text", err)
}

func (n *node) Attribute(ctx context.Context, name string) (string, bool, error) {
	el, cancel := n.on(ctx)
	defer cancel()
	v, err := el.Attribute(name)
	if err := n.check(ctx, "attribute", err); err != nil {
		return "", false, err
	}
	if v == nil {
		return "", false, nil
	}
	return *v, true, nil
}

func (n *node) Visible(ctx context.Context) (bool, error) {
	el, cancel := n.on(ctx)
	defer cancel()
	v, err := el.Visible()
	return v, n.check(ctx, "visible", err)
}

func (n *node) Enabled(ctx context.Context) (bool, error) {
	el, cancel := n.on(ctx)
	defer cancel()
	res, err := el.Eval(`() => !this.disabled`)
	if err := n.check(ctx, "enabled", err); err != nil {
		return false, err
	}
	return res.Value.Bool(), nil
}

// Click scrolls the node into view and clicks its center. rod waits for
// the node to be interactable, for at most the action timeout.
func (n *node) Click(ctx context.Context) error {
	el, cancel := n.on(ctx)
	defer cancel()
	return n.check(ctx, "click", el.Click(proto.InputMouseButtonLeft, 1))
}

// SetValue replaces the current text, typing the new value so input
// handlers fire.
func (n *node) SetValue(ctx context.Context, value string) error {
	el, cancel := n.on(ctx)
	defer cancel()
	if err := el.SelectAllText(); err != nil {
		return n.check(ctx, "fill", err)
	}
	return n.check(ctx, "fill", el.Input(value))
}
