package element

import (
	"context"
	"errors"
	"fmt"

	"github.com/v0xg/dashdriver/internal/driver"
	"github.com/v0xg/dashdriver/internal/locator"
)

// Query is a deferred lookup: a locator, the element it is relative to, and
// the view kind its results become. Building one never touches the driver.
// Queries are values; As and friends return modified copies.
type Query struct {
	sess  *Session
	loc   locator.Locator
	scope *Element
	kind  Kind
}

func (q Query) Locator() locator.Locator { return q.loc }
func (q Query) Kind() Kind               { return q.kind }
func (q Query) Session() *Session        { return q.sess }

// As relabels the query so resolution builds views of kind k.
func (q Query) As(k Kind) Query {
	q.kind = k
	return q
}

func (q Query) AsDashboard() Query     { return q.As(KindDashboard) }
func (q Query) AsWidget() Query        { return q.As(KindWidget) }
func (q Query) AsOverlayDialog() Query { return q.As(KindOverlayDialog) }
func (q Query) AsPopupButton() Query   { return q.As(KindPopupButton) }
func (q Query) AsPopupMenu() Query     { return q.As(KindPopupMenu) }
func (q Query) AsMessage() Query       { return q.As(KindMessage) }

// String describes the query for logs and wait diagnostics.
func (q Query) String() string {
	if q.scope != nil && !q.loc.Absolute() {
		return q.scope.loc.String() + " >> " + q.loc.String()
	}
	return q.loc.String()
}

// find runs the locator once.
func (q Query) find(ctx context.Context) ([]driver.Node, error) {
	var scope driver.Node
	if q.scope != nil && !q.loc.Absolute() {
		if q.scope.node == nil {
			return nil, fmt.Errorf("query %s: %w", q, ErrInvalidElement)
		}
		if q.scope.state == stale {
			return nil, &StaleElementError{Locator: q.scope.loc}
		}
		scope = q.scope.node
	}

	nodes, err := q.sess.drv.Find(ctx, q.loc, scope)
	if err != nil {
		if errors.Is(err, driver.ErrDetached) && q.scope != nil {
			q.scope.markStale()
			return nil, &StaleElementError{Locator: q.scope.loc, Err: err}
		}
		return nil, fmt.Errorf("query %s: %w", q, err)
	}
	return nodes, nil
}

func (q Query) wrap(n driver.Node) *Element {
	return &Element{sess: q.sess, node: n, loc: q.loc}
}

// One resolves the first match in document order and fails with
// NotFoundError if there is none.
func (q Query) One(ctx context.Context) (*Element, error) {
	return q.one(ctx, true)
}

// OneOrNull is One that yields a null element instead of NotFoundError.
func (q Query) OneOrNull(ctx context.Context) (*Element, error) {
	return q.one(ctx, false)
}

func (q Query) one(ctx context.Context, mustExist bool) (*Element, error) {
	nodes, err := q.find(ctx)
	if err != nil {
		return nil, err
	}
	if len(nodes) == 0 {
		if mustExist {
			return nil, &NotFoundError{Locator: q.loc}
		}
		return &Element{sess: q.sess, loc: q.loc}, nil
	}
	return q.wrap(nodes[0]), nil
}

// All resolves every match in document order. The slice is a snapshot: it
// does not follow later DOM changes.
func (q Query) All(ctx context.Context) ([]*Element, error) {
	nodes, err := q.find(ctx)
	if err != nil {
		return nil, err
	}
	els := make([]*Element, len(nodes))
	for i, n := range nodes {
		els[i] = q.wrap(n)
	}
	return els, nil
}

// Count returns the current number of matches.
func (q Query) Count(ctx context.Context) (int, error) {
	nodes, err := q.find(ctx)
	return len(nodes), err
}

// Exists reports whether at least one node matches right now.
func (q Query) Exists(ctx context.Context) (bool, error) {
	n, err := q.Count(ctx)
	return n > 0, err
}

// View resolves one element and builds the view for the query's kind. With
// mustExist false a missing node yields a view over a null element.
func (q Query) View(ctx context.Context, mustExist bool) (View, error) {
	el, err := q.one(ctx, mustExist)
	if err != nil {
		return nil, err
	}
	return build(ctx, q.kind, el)
}

// Views resolves every match into views of the query's kind.
func (q Query) Views(ctx context.Context) ([]View, error) {
	els, err := q.All(ctx)
	if err != nil {
		return nil, err
	}
	views := make([]View, 0, len(els))
	for _, el := range els {
		v, err := build(ctx, q.kind, el)
		if err != nil {
			return nil, err
		}
		views = append(views, v)
	}
	return views, nil
}
