package dashboard

import (
	"context"
	"fmt"
	"time"

	"github.com/v0xg/dashdriver/internal/element"
	"github.com/v0xg/dashdriver/internal/wait"
)

// transition runs one state machine step with logging and a checkpoint.
func (d *Dashboard) transition(ctx context.Context, name string, step func() error) error {
	log := d.Session().Logger()
	start := time.Now()
	log.Debug("dashboard: "+name, "phase", "start")

	err := step()
	d.Session().Checkpoint(ctx, name, err)
	if err != nil {
		log.Warn("dashboard: "+name+" failed", "error", err, "elapsed", time.Since(start))
		return fmt.Errorf("dashboard: %s: %w", name, err)
	}
	log.Info("dashboard: "+name, "elapsed", time.Since(start))
	return nil
}

// Edit switches to edit mode. It does nothing when already editing.
func (d *Dashboard) Edit(ctx context.Context) error {
	return d.transition(ctx, "edit", func() error {
		controls, err := d.Controls(ctx)
		if err != nil {
			return err
		}
		editing, err := editNavShown(ctx, controls, true)
		if err != nil || editing {
			return err
		}
		btn, err := d.button(ctx, controls, editButton)
		if err != nil {
			return err
		}
		if err := btn.Click(ctx); err != nil {
			return err
		}
		return controls.Query(editNavLocator).WaitUntilVisible(ctx)
	})
}

// CancelEditing leaves edit mode without saving. It does nothing in view
// mode. When the page re-renders the whole control bar in response, the
// wait for the edit navigation to close is skipped.
func (d *Dashboard) CancelEditing(ctx context.Context) error {
	return d.transition(ctx, "cancel editing", func() error {
		controls, err := d.Controls(ctx)
		if err != nil {
			return err
		}
		editing, err := editNavShown(ctx, controls, true)
		if err != nil || !editing {
			return err
		}
		btn, err := d.button(ctx, controls, cancelButton)
		if err != nil {
			return err
		}
		if err := btn.Click(ctx); err != nil {
			return err
		}
		return d.waitEditClosed(ctx, controls)
	})
}

// Save submits the edited layout and waits for view mode. It does nothing
// in view mode. A rejected save leaves the edit navigation open and
// surfaces as wait.ErrTimeout.
func (d *Dashboard) Save(ctx context.Context) error {
	return d.transition(ctx, "save", func() error {
		controls, err := d.Controls(ctx)
		if err != nil {
			return err
		}
		editing, err := editNavShown(ctx, controls, true)
		if err != nil || !editing {
			return err
		}
		btn, err := d.button(ctx, controls, saveButton)
		if err != nil {
			return err
		}
		if err := btn.ClickWhenClickable(ctx); err != nil {
			return err
		}
		return d.waitEditClosed(ctx, controls)
	})
}

// waitEditClosed waits for the edit navigation to close. A control bar
// that was re-rendered, before or during the wait, counts as closed.
func (d *Dashboard) waitEditClosed(ctx context.Context, controls *element.Element) error {
	stalled, err := controls.IsStalled(ctx)
	if err != nil {
		return err
	}
	if stalled {
		d.Session().Logger().Debug("dashboard: controls re-rendered, skipping close wait")
		return nil
	}
	closed := controls.Query(editNavLocator).Condition(element.NotVisible)
	return d.Session().Until(ctx, wait.Condition{
		Name: closed.Name,
		Check: func(ctx context.Context) (bool, string, error) {
			stalled, err := controls.IsStalled(ctx)
			if err != nil {
				return false, "", err
			}
			if stalled {
				return true, "controls re-rendered", nil
			}
			return closed.Check(ctx)
		},
	})
}

// AddWidget opens the widget configuration dialog. The dashboard must be
// in edit mode.
func (d *Dashboard) AddWidget(ctx context.Context) (*OverlayDialog, error) {
	var dialog *OverlayDialog
	err := d.transition(ctx, "add widget", func() error {
		if err := d.CheckIfEditable(ctx, true); err != nil {
			return err
		}
		controls, err := d.Controls(ctx)
		if err != nil {
			return err
		}
		btn, err := d.button(ctx, controls, addWidgetButton)
		if err != nil {
			return err
		}
		if err := btn.Click(ctx); err != nil {
			return err
		}
		dialog, err = FindOverlayDialog(ctx, d.Session(), WidgetConfigDialog)
		return err
	})
	return dialog, err
}

// DeleteWidget removes the named widget. The dashboard must be in edit
// mode. Elements resolved for that widget earlier are stale afterwards.
func (d *Dashboard) DeleteWidget(ctx context.Context, name string) error {
	return d.transition(ctx, "delete widget", func() error {
		if err := d.CheckIfEditable(ctx, true); err != nil {
			return err
		}
		btn, err := d.actions(ctx, name)
		if err != nil {
			return err
		}
		return btn.Select(ctx, "Delete", btn.Condition(element.NotVisible))
	})
}

// CopyWidget copies the named widget to the client-side clipboard. It
// works in either mode.
func (d *Dashboard) CopyWidget(ctx context.Context, name string) error {
	return d.transition(ctx, "copy widget", func() error {
		btn, err := d.actions(ctx, name)
		if err != nil {
			return err
		}
		return btn.Select(ctx, "Copy")
	})
}

// PasteWidget pastes the copied widget as a new one. The dashboard must be
// in edit mode. It returns once the new widget is on the grid and loaded.
func (d *Dashboard) PasteWidget(ctx context.Context) error {
	return d.transition(ctx, "paste widget", func() error {
		if err := d.CheckIfEditable(ctx, true); err != nil {
			return err
		}
		controls, err := d.Controls(ctx)
		if err != nil {
			return err
		}
		btn, err := d.button(ctx, controls, pasteButton)
		if err != nil {
			return err
		}
		before, err := d.Query(widgetsLocator).Count(ctx)
		if err != nil {
			return err
		}
		if err := btn.ClickWhenClickable(ctx); err != nil {
			return err
		}
		if err := d.Session().Until(ctx, d.widgetCount(before+1)); err != nil {
			return err
		}
		return d.Session().Until(ctx, d.widgetsReady())
	})
}

// ReplaceWidget pastes the copied widget in place of the named one. The
// dashboard must be in edit mode. It returns once the replaced widget has
// left the page and the grid has finished loading; elements resolved for
// the old widget are stale afterwards.
func (d *Dashboard) ReplaceWidget(ctx context.Context, name string) error {
	return d.transition(ctx, "replace widget", func() error {
		if err := d.CheckIfEditable(ctx, true); err != nil {
			return err
		}
		btn, err := d.actions(ctx, name)
		if err != nil {
			return err
		}
		return btn.Select(ctx, "Paste", btn.Condition(element.NotPresent), d.widgetsReady())
	})
}
