package dashboard

import (
	"context"

	"github.com/v0xg/dashdriver/internal/element"
	"github.com/v0xg/dashdriver/internal/locator"
)

// WidgetConfigDialog is the dialog id of the widget configuration form.
const WidgetConfigDialog = "widgetConfg"

var (
	dialogTitleLocator  = locator.ByXPath(`.//div[contains(@class, "overlay-dialogue-header")]/h4`)
	dialogBodyLocator   = locator.ByXPath(`.//div[contains(@class, "overlay-dialogue-body")]`)
	dialogFooterLocator = locator.ByXPath(`.//div[contains(@class, "overlay-dialogue-footer")]`)
	dialogCloseLocator  = locator.ByXPath(`.//button[@title="Close"]`)
)

// OverlayDialog is a modal identified by its data-dialogueid.
type OverlayDialog struct {
	*element.Element
}

var _ element.Validator = (*OverlayDialog)(nil)

// FindOverlayDialog waits for the dialog with the given id to show, then
// for its content to finish loading.
func FindOverlayDialog(ctx context.Context, sess *element.Session, id string) (*OverlayDialog, error) {
	q := sess.Query(dialogByID(id))
	if err := q.WaitUntilVisible(ctx); err != nil {
		return nil, err
	}
	dialog, err := viewAs[*OverlayDialog](q.AsOverlayDialog().View(ctx, true))
	if err != nil {
		return nil, err
	}
	if err := dialog.WaitUntilReady(ctx); err != nil {
		return nil, err
	}
	return dialog, nil
}

func (o *OverlayDialog) Validate(ctx context.Context) error {
	return requireClass(ctx, o.Element, "overlay-dialogue")
}

// WaitUntilReady waits for the dialog's loading indicator to clear.
func (o *OverlayDialog) WaitUntilReady(ctx context.Context) error {
	return o.Query(loadingLocator).WaitUntilNotPresent(ctx)
}

func (o *OverlayDialog) Title(ctx context.Context) (string, error) {
	el, err := o.Query(dialogTitleLocator).One(ctx)
	if err != nil {
		return "", err
	}
	return el.Text(ctx)
}

func (o *OverlayDialog) Content(ctx context.Context) (*element.Element, error) {
	return o.Query(dialogBodyLocator).One(ctx)
}

func (o *OverlayDialog) Footer(ctx context.Context) (*element.Element, error) {
	return o.Query(dialogFooterLocator).One(ctx)
}

// ClickButton clicks the footer button labeled label once it is clickable.
func (o *OverlayDialog) ClickButton(ctx context.Context, label string) error {
	footer, err := o.Footer(ctx)
	if err != nil {
		return err
	}
	btn, err := footer.Query(locator.ByXPath(`.//button[normalize-space(text())=` + locator.EscapeQuotes(label) + `]`)).One(ctx)
	if err != nil {
		return err
	}
	return btn.ClickWhenClickable(ctx)
}

// Close dismisses the dialog and waits for it to go away.
func (o *OverlayDialog) Close(ctx context.Context) error {
	btn, err := o.Query(dialogCloseLocator).One(ctx)
	if err != nil {
		return err
	}
	if err := btn.Click(ctx); err != nil {
		return err
	}
	return o.WaitUntilNotVisible(ctx)
}
