package dashboard

import (
	"context"
	"fmt"

	"github.com/v0xg/dashdriver/internal/element"
	"github.com/v0xg/dashdriver/internal/locator"
)

// Mode is the editing state of a dashboard, probed from the page.
type Mode int

const (
	ModeView Mode = iota
	ModeEdit
)

func (m Mode) String() string {
	switch m {
	case ModeView:
		return "view"
	case ModeEdit:
		return "edit"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// Dashboard is the widget grid. Its mode is never cached: every call that
// depends on it probes the edit navigation again.
type Dashboard struct {
	*element.Element
}

var _ element.Validator = (*Dashboard)(nil)

// Find resolves the dashboard of the current page.
func Find(ctx context.Context, sess *element.Session) (*Dashboard, error) {
	return viewAs[*Dashboard](sess.Query(dashboardLocator).AsDashboard().View(ctx, true))
}

func (d *Dashboard) Validate(ctx context.Context) error {
	return requireClass(ctx, d.Element, "dashbrd-grid-container")
}

// Title returns the page heading.
func (d *Dashboard) Title(ctx context.Context) (string, error) {
	el, err := d.Query(titleLocator).One(ctx)
	if err != nil {
		return "", err
	}
	return el.Text(ctx)
}

// IsEmpty reports whether the grid shows its new-widget placeholder.
func (d *Dashboard) IsEmpty(ctx context.Context) (bool, error) {
	el, err := d.Query(placeholderLocator).OneOrNull(ctx)
	if err != nil {
		return false, err
	}
	return el.IsValid(), nil
}

// Widgets returns every widget and iterator in document order.
func (d *Dashboard) Widgets(ctx context.Context) ([]*Widget, error) {
	return viewsAs[*Widget](d.Query(widgetsLocator).AsWidget().Views(ctx))
}

// Widget returns the widget whose heading is exactly name, once it has
// finished loading. A missing widget fails immediately with
// element.ErrNotFound; it is not waited for.
func (d *Dashboard) Widget(ctx context.Context, name string) (*Widget, error) {
	q := d.Query(widgetByName(name)).AsWidget()
	if err := d.unique(ctx, q, "widget "+name); err != nil {
		return nil, err
	}
	w, err := viewAs[*Widget](q.View(ctx, true))
	if err != nil {
		return nil, err
	}
	if err := w.WaitUntilReady(ctx); err != nil {
		return nil, err
	}
	return w, nil
}

// WidgetOrNull is Widget for callers that expect the widget may be absent:
// a missing widget yields a view over the null element, and a present one
// is returned without waiting for it to load.
func (d *Dashboard) WidgetOrNull(ctx context.Context, name string) (*Widget, error) {
	q := d.Query(widgetByName(name)).AsWidget()
	if err := d.unique(ctx, q, "widget "+name); err != nil {
		return nil, err
	}
	return viewAs[*Widget](q.View(ctx, false))
}

// Controls returns the dashboard control bar.
func (d *Dashboard) Controls(ctx context.Context) (*element.Element, error) {
	return d.Query(controlsLocator).One(ctx)
}

// Mode probes whether the edit navigation is displayed.
func (d *Dashboard) Mode(ctx context.Context) (Mode, error) {
	editing, err := d.IsEditable(ctx, true)
	if err != nil {
		return ModeView, err
	}
	if editing {
		return ModeEdit, nil
	}
	return ModeView, nil
}

// IsEditable reports whether the editing state equals expected.
func (d *Dashboard) IsEditable(ctx context.Context, expected bool) (bool, error) {
	controls, err := d.Controls(ctx)
	if err != nil {
		return false, err
	}
	return editNavShown(ctx, controls, expected)
}

// CheckIfEditable fails with NotEditableError unless the editing state
// equals expected.
func (d *Dashboard) CheckIfEditable(ctx context.Context, expected bool) error {
	ok, err := d.IsEditable(ctx, expected)
	if err != nil {
		return err
	}
	if !ok {
		return &NotEditableError{Expected: expected}
	}
	return nil
}

func editNavShown(ctx context.Context, controls *element.Element, expected bool) (bool, error) {
	nav, err := controls.Query(editNavLocator).OneOrNull(ctx)
	if err != nil {
		return false, err
	}
	return nav.DisplayedAs(ctx, expected)
}

// unique enforces strict name lookups.
func (d *Dashboard) unique(ctx context.Context, q element.Query, what string) error {
	if !d.Session().Strict() {
		return nil
	}
	n, err := q.Count(ctx)
	if err != nil {
		return err
	}
	if n > 1 {
		return &element.AmbiguousMatchError{What: what, Count: n}
	}
	return nil
}

func (d *Dashboard) actions(ctx context.Context, name string) (*PopupButton, error) {
	q := d.Query(actionsByName(name)).AsPopupButton()
	if err := d.unique(ctx, q, "actions of widget "+name); err != nil {
		return nil, err
	}
	return viewAs[*PopupButton](q.View(ctx, true))
}

func (d *Dashboard) button(ctx context.Context, controls *element.Element, loc locator.Locator) (*element.Element, error) {
	return controls.Query(loc).One(ctx)
}
