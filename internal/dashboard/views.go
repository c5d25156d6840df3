// Package dashboard holds the page objects of the widget dashboard: the
// dashboard itself with its edit/view state machine, widgets, overlay
// dialogs, widget action menus and message banners.
package dashboard

import (
	"context"
	"fmt"

	"github.com/v0xg/dashdriver/internal/element"
	"github.com/v0xg/dashdriver/internal/locator"
)

// Page conventions of the dashboard UI.
var (
	dashboardLocator   = locator.ByClass("dashbrd-grid-container")
	titleLocator       = locator.ByXPath(`//h1[@id="page-title-general"]`)
	placeholderLocator = locator.ByXPath(`.//div[@class="dashbrd-grid-new-widget-placeholder"]`)
	widgetsLocator     = locator.ByXPath(`.//div[` + locator.FromClass("dashbrd-grid-widget") +
		` or ` + locator.FromClass("dashbrd-grid-iterator") + `]`)
	controlsLocator = locator.ByXPath(`//ul[@id="dashbrd-control"]`)
	editNavLocator  = locator.ByXPath(`.//nav[@class="dashbrd-edit"]`)

	editButton      = locator.ByID("dashbrd-edit")
	saveButton      = locator.ByID("dashbrd-save")
	cancelButton    = locator.ByID("dashbrd-cancel")
	addWidgetButton = locator.ByID("dashbrd-add-widget")
	pasteButton     = locator.ByID("dashbrd-paste-widget")

	popupMenuLocator = locator.ByXPath(`//ul[contains(@class, "action-menu-top")]`)
	messageLocator   = locator.ByXPath(`//output[@role="contentinfo"] | //div[contains(@class, "msg-good") or contains(@class, "msg-bad")]`)
	loadingLocator   = locator.ByXPath(`.//div[contains(@class, "is-loading")]`)
)

const widgetHead = `.//div[contains(@class, "dashbrd-grid-widget-head") or contains(@class, "dashbrd-grid-iterator-head")]`

// widgetByName matches the widget whose heading text is exactly name.
func widgetByName(name string) locator.Locator {
	return locator.ByXPath(widgetHead + `/h4[text()=` + locator.EscapeQuotes(name) + `]/../../..`)
}

// actionsByName matches the Actions button in the heading of that widget.
func actionsByName(name string) locator.Locator {
	return locator.ByXPath(widgetHead + `/h4[text()=` + locator.EscapeQuotes(name) + `]/../ul/li/button[@title="Actions"]`)
}

func dialogByID(id string) locator.Locator {
	return locator.ByXPath(`//div[contains(@class, "overlay-dialogue")][@data-dialogueid=` + locator.EscapeQuotes(id) + `]`)
}

func init() {
	element.Register(element.KindDashboard, func(el *element.Element) element.View { return &Dashboard{Element: el} })
	element.Register(element.KindWidget, func(el *element.Element) element.View { return &Widget{Element: el} })
	element.Register(element.KindOverlayDialog, func(el *element.Element) element.View { return &OverlayDialog{Element: el} })
	element.Register(element.KindPopupButton, func(el *element.Element) element.View { return &PopupButton{Element: el} })
	element.Register(element.KindPopupMenu, func(el *element.Element) element.View { return &PopupMenu{Element: el} })
	element.Register(element.KindMessage, func(el *element.Element) element.View { return &Message{Element: el} })
}

// viewAs converts a resolved view to its concrete type.
func viewAs[T element.View](v element.View, err error) (T, error) {
	var zero T
	if err != nil {
		return zero, err
	}
	t, ok := v.(T)
	if !ok {
		return zero, fmt.Errorf("dashboard: resolved %T, want %T", v, zero)
	}
	return t, nil
}

func viewsAs[T element.View](vs []element.View, err error) ([]T, error) {
	if err != nil {
		return nil, err
	}
	out := make([]T, 0, len(vs))
	for _, v := range vs {
		t, err := viewAs[T](v, nil)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}

// requireClass is the shared Validate body: the node must carry one of the
// given classes.
func requireClass(ctx context.Context, el *element.Element, classes ...string) error {
	for _, c := range classes {
		ok, err := el.HasClass(ctx, c)
		if err != nil {
			return err
		}
		if ok {
			return nil
		}
	}
	return fmt.Errorf("missing class %q", classes)
}

// textsOf returns the text of every element the query matches.
func textsOf(ctx context.Context, q element.Query) ([]string, error) {
	els, err := q.All(ctx)
	if err != nil {
		return nil, err
	}
	texts := make([]string, 0, len(els))
	for _, el := range els {
		t, err := el.Text(ctx)
		if err != nil {
			return nil, err
		}
		texts = append(texts, t)
	}
	return texts, nil
}
