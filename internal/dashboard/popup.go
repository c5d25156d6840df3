package dashboard

import (
	"context"

	"github.com/v0xg/dashdriver/internal/element"
	"github.com/v0xg/dashdriver/internal/locator"
	"github.com/v0xg/dashdriver/internal/wait"
)

var menuItemsLocator = locator.ByXPath(`.//a`)

// PopupButton opens an action menu.
type PopupButton struct {
	*element.Element
}

// Select opens the menu, picks action and waits for the menu to close. It
// then waits for every effect in order, so the action's result is on the
// page when Select returns.
func (b *PopupButton) Select(ctx context.Context, action string, effects ...wait.Condition) error {
	if err := b.ClickWhenClickable(ctx); err != nil {
		return err
	}
	q := b.Session().Query(popupMenuLocator).AsPopupMenu()
	if err := q.WaitUntilVisible(ctx); err != nil {
		return err
	}
	menu, err := viewAs[*PopupMenu](q.View(ctx, true))
	if err != nil {
		return err
	}
	if err := menu.Select(ctx, action); err != nil {
		return err
	}
	for _, c := range effects {
		if err := b.Session().Until(ctx, c); err != nil {
			return err
		}
	}
	return nil
}

// PopupMenu is an open action menu.
type PopupMenu struct {
	*element.Element
}

var _ element.Validator = (*PopupMenu)(nil)

func (m *PopupMenu) Validate(ctx context.Context) error {
	return requireClass(ctx, m.Element, "action-menu", "action-menu-top")
}

// Items lists the item labels in menu order.
func (m *PopupMenu) Items(ctx context.Context) ([]string, error) {
	return textsOf(ctx, m.Query(menuItemsLocator))
}

// HasItems reports whether every label is present.
func (m *PopupMenu) HasItems(ctx context.Context, labels ...string) (bool, error) {
	items, err := m.Items(ctx)
	if err != nil {
		return false, err
	}
	have := make(map[string]bool, len(items))
	for _, it := range items {
		have[it] = true
	}
	for _, l := range labels {
		if !have[l] {
			return false, nil
		}
	}
	return true, nil
}

// Select clicks the item labeled action and waits for the menu to close.
func (m *PopupMenu) Select(ctx context.Context, action string) error {
	item, err := m.Query(locator.ByXPath(`.//a[text()=` + locator.EscapeQuotes(action) + `]`)).One(ctx)
	if err != nil {
		return err
	}
	if err := item.ClickWhenClickable(ctx); err != nil {
		return err
	}
	return m.WaitUntilNotVisible(ctx)
}
