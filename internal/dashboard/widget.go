package dashboard

import (
	"context"
	"fmt"

	"github.com/v0xg/dashdriver/internal/element"
	"github.com/v0xg/dashdriver/internal/locator"
	"github.com/v0xg/dashdriver/internal/wait"
)

var (
	widgetNameLocator    = locator.ByXPath(`.//h4`)
	widgetContentLocator = locator.ByXPath(`.//div[contains(@class, "dashbrd-grid-widget-content") or contains(@class, "dashbrd-grid-iterator-content")]`)
)

// Widget is one cell of the grid. A freshly rendered widget may still be
// fetching its data; WaitUntilReady covers that.
type Widget struct {
	*element.Element
}

var _ element.Validator = (*Widget)(nil)

func (w *Widget) Validate(ctx context.Context) error {
	return requireClass(ctx, w.Element, "dashbrd-grid-widget", "dashbrd-grid-iterator")
}

// Name returns the heading text.
func (w *Widget) Name(ctx context.Context) (string, error) {
	el, err := w.Query(widgetNameLocator).One(ctx)
	if err != nil {
		return "", err
	}
	return el.Text(ctx)
}

// Content returns the widget body.
func (w *Widget) Content(ctx context.Context) (*element.Element, error) {
	return w.Query(widgetContentLocator).One(ctx)
}

// IsLoading reports whether the widget or any part of it carries the
// loading marker.
func (w *Widget) IsLoading(ctx context.Context) (bool, error) {
	loading, err := w.HasClass(ctx, "is-loading")
	if err != nil || loading {
		return loading, err
	}
	return w.Query(loadingLocator).Exists(ctx)
}

// Ready holds once the widget has no loading marker.
func (w *Widget) Ready() wait.Condition {
	return wait.Condition{
		Name: fmt.Sprintf("widget %s is ready", w.Locator()),
		Check: func(ctx context.Context) (bool, string, error) {
			loading, err := w.IsLoading(ctx)
			if err != nil {
				return false, "", err
			}
			return !loading, fmt.Sprintf("loading=%t", loading), nil
		},
	}
}

// WaitUntilReady blocks until the widget has finished loading.
func (w *Widget) WaitUntilReady(ctx context.Context) error {
	return w.Session().Until(ctx, w.Ready())
}

// widgetCount holds once the grid has at least want widgets.
func (d *Dashboard) widgetCount(want int) wait.Condition {
	q := d.Query(widgetsLocator)
	return wait.Condition{
		Name: fmt.Sprintf("dashboard has %d widgets", want),
		Check: func(ctx context.Context) (bool, string, error) {
			n, err := q.Count(ctx)
			if err != nil {
				return false, "", err
			}
			return n >= want, fmt.Sprintf("widgets=%d", n), nil
		},
	}
}

// widgetsReady holds once no widget on the grid is loading.
func (d *Dashboard) widgetsReady() wait.Condition {
	return wait.Condition{
		Name: "dashboard widgets are ready",
		Check: func(ctx context.Context) (bool, string, error) {
			ws, err := d.Widgets(ctx)
			if err != nil {
				return false, "", err
			}
			loading := 0
			for _, w := range ws {
				l, err := w.IsLoading(ctx)
				if err != nil {
					return false, "", err
				}
				if l {
					loading++
				}
			}
			return loading == 0, fmt.Sprintf("loading=%d", loading), nil
		},
	}
}
