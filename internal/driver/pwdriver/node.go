package pwdriver

import (
	"context"
	"fmt"

	"github.com/playwright-community/playwright-go"

	"github.com/v0xg/dashdriver/internal/driver"
)

type node struct {
	h playwright.ElementHandle
}

// Attached reports whether the node is still in the document. A disposed
// handle counts as detached.
func (n *node) Attached(ctx context.Context) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	v, err := n.h.Evaluate(`e => e.isConnected`)
	if err != nil {
		return false, nil
	}
	connected, _ := v.(bool)
	return connected, nil
}

func (n *node) check(ctx context.Context, op string, err error) error {
	if err == nil {
		return nil
	}
	if attached, aerr := n.Attached(ctx); aerr == nil && !attached {
		return fmt.Errorf("%s: %w", op, driver.ErrDetached)
	}
	return fmt.Errorf("pwdriver: %s: %w", op, err)
}

func (n *node) Text(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	s, err := n.h.InnerText()
	return s, n.check(ctx, "text", err)
}

func (n *node) Attribute(ctx context.Context, name string) (string, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", false, err
	}
	v, err := n.h.Evaluate(`(e, name) => e.getAttribute(name)`, name)
	if err := n.check(ctx, "attribute", err); err != nil {
		return "", false, err
	}
	s, ok := v.(string)
	return s, ok, nil
}

func (n *node) Visible(ctx context.Context) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	v, err := n.h.IsVisible()
	return v, n.check(ctx, "visible", err)
}

func (n *node) Enabled(ctx context.Context) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	v, err := n.h.IsEnabled()
	return v, n.check(ctx, "enabled", err)
}

// Click runs playwright's actionability checks, bounded by ctx.
func (n *node) Click(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return n.check(ctx, "click", n.h.Click(playwright.ElementHandleClickOptions{Timeout: timeoutMS(ctx)}))
}

func (n *node) SetValue(ctx context.Context, value string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return n.check(ctx, "fill", n.h.Fill(value, playwright.ElementHandleFillOptions{Timeout: timeoutMS(ctx)}))
}
