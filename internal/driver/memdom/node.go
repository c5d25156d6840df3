package memdom

import (
	"context"
	"strings"

	"golang.org/x/net/html"

	"github.com/v0xg/dashdriver/internal/driver"
)

type node struct {
	doc *Document
	n   *html.Node
}

var _ driver.Node = (*node)(nil)

// Unwrap exposes the tree node behind a driver handle obtained from this
// backend, so fixtures can assert on identity.
func Unwrap(dn driver.Node) (*html.Node, bool) {
	n, ok := dn.(*node)
	if !ok {
		return nil, false
	}
	return n.n, true
}

func (x *node) live(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !x.doc.attachedLocked(x.n) {
		return driver.ErrDetached
	}
	return nil
}

func (x *node) Text(ctx context.Context) (string, error) {
	x.doc.mu.Lock()
	defer x.doc.mu.Unlock()
	if err := x.live(ctx); err != nil {
		return "", err
	}
	if !isVisible(x.n) {
		return "", nil
	}
	return TextOf(x.n), nil
}

func (x *node) Attribute(ctx context.Context, name string) (string, bool, error) {
	x.doc.mu.Lock()
	defer x.doc.mu.Unlock()
	if err := x.live(ctx); err != nil {
		return "", false, err
	}
	v, ok := Attr(x.n, name)
	return v, ok, nil
}

func (x *node) Visible(ctx context.Context) (bool, error) {
	x.doc.mu.Lock()
	defer x.doc.mu.Unlock()
	if err := x.live(ctx); err != nil {
		return false, err
	}
	return isVisible(x.n), nil
}

func (x *node) Enabled(ctx context.Context) (bool, error) {
	x.doc.mu.Lock()
	defer x.doc.mu.Unlock()
	if err := x.live(ctx); err != nil {
		return false, err
	}
	return isEnabled(x.n), nil
}

func (x *node) Click(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return x.doc.click(x.n)
}

func (x *node) SetValue(ctx context.Context, value string) error {
	x.doc.mu.Lock()
	defer x.doc.mu.Unlock()
	if err := x.live(ctx); err != nil {
		return err
	}
	if x.n.Data == "textarea" {
		SetText(x.n, value)
		return nil
	}
	SetAttr(x.n, "value", value)
	return nil
}

func (x *node) Attached(ctx context.Context) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	x.doc.mu.Lock()
	defer x.doc.mu.Unlock()
	return x.doc.attachedLocked(x.n), nil
}

func isVisible(n *html.Node) bool {
	for a := n; a != nil; a = a.Parent {
		if a.Type != html.ElementNode {
			continue
		}
		if _, hidden := Attr(a, "hidden"); hidden {
			return false
		}
		if style, ok := Attr(a, "style"); ok {
			compact := strings.ToLower(strings.ReplaceAll(style, " ", ""))
			if strings.Contains(compact, "display:none") || strings.Contains(compact, "visibility:hidden") {
				return false
			}
		}
		if a.Data == "input" {
			if typ, _ := Attr(a, "type"); typ == "hidden" {
				return false
			}
		}
	}
	return true
}

func isEnabled(n *html.Node) bool {
	_, disabled := Attr(n, "disabled")
	return !disabled
}
