package scenario

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/v0xg/dashdriver/internal/dashboard"
	"github.com/v0xg/dashdriver/internal/element"
	"github.com/v0xg/dashdriver/internal/locator"
)

// ErrExpectation marks a failed expect_* step.
var ErrExpectation = errors.New("scenario: expectation failed")

// StepError reports the step a run stopped at.
type StepError struct {
	Index int
	Step  Step
	Err   error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("scenario: step %d (%s): %v", e.Index+1, e.Step, e.Err)
}

func (e *StepError) Unwrap() error { return e.Err }

// StepResult records one executed step.
type StepResult struct {
	Step    Step
	Elapsed time.Duration
	Err     error
}

// Runner executes scenarios against the dashboard of one session.
type Runner struct {
	sess *element.Session
	// OnStep, if set, is called after every step.
	OnStep func(i int, r StepResult)
}

func NewRunner(sess *element.Session) *Runner {
	return &Runner{sess: sess}
}

// Run executes the steps in order and stops at the first failure.
func (r *Runner) Run(ctx context.Context, sc *Scenario) ([]StepResult, error) {
	log := r.sess.Logger().With("scenario", sc.Name)
	dash, err := dashboard.Find(ctx, r.sess)
	if err != nil {
		return nil, fmt.Errorf("scenario: %w", err)
	}

	results := make([]StepResult, 0, len(sc.Steps))
	for i, step := range sc.Steps {
		start := time.Now()
		err := r.step(ctx, dash, step)
		res := StepResult{Step: step, Elapsed: time.Since(start), Err: err}
		results = append(results, res)
		if r.OnStep != nil {
			r.OnStep(i, res)
		}
		if err != nil {
			log.Error("scenario: step failed", "index", i+1, "step", step.String(), "error", err)
			return results, &StepError{Index: i, Step: step, Err: err}
		}
		log.Debug("scenario: step done", "index", i+1, "step", step.String(), "elapsed", res.Elapsed)
	}
	log.Info("scenario: passed", "steps", len(results))
	return results, nil
}

func (r *Runner) step(ctx context.Context, dash *dashboard.Dashboard, s Step) error {
	switch s.Action {
	case ActionEdit:
		return dash.Edit(ctx)
	case ActionSave:
		return dash.Save(ctx)
	case ActionCancel:
		return dash.CancelEditing(ctx)
	case ActionAddWidget:
		return r.addWidget(ctx, dash, s)
	case ActionDeleteWidget:
		return dash.DeleteWidget(ctx, s.Widget)
	case ActionCopyWidget:
		return dash.CopyWidget(ctx, s.Widget)
	case ActionPasteWidget:
		return dash.PasteWidget(ctx)
	case ActionReplaceWidget:
		return dash.ReplaceWidget(ctx, s.Widget)
	case ActionFill:
		el, err := r.target(ctx, s)
		if err != nil {
			return err
		}
		return el.Fill(ctx, s.Text)
	case ActionClick:
		el, err := r.target(ctx, s)
		if err != nil {
			return err
		}
		return el.ClickWhenClickable(ctx)
	case ActionWaitVisible:
		loc, err := locator.Parse(s.Target)
		if err != nil {
			return err
		}
		return r.sess.Query(loc).WaitUntilVisible(ctx)
	case ActionExpectWidgets:
		return expectWidgets(ctx, dash, s.Names)
	case ActionExpectWidget:
		_, err := dash.Widget(ctx, s.Widget)
		return err
	case ActionExpectMode:
		return expectMode(ctx, dash, s.Mode)
	case ActionExpectMessage:
		return r.expectMessage(ctx, s)
	}
	return fmt.Errorf("unknown action %q", s.Action)
}

func (r *Runner) target(ctx context.Context, s Step) (*element.Element, error) {
	loc, err := locator.Parse(s.Target)
	if err != nil {
		return nil, err
	}
	return r.sess.Query(loc).One(ctx)
}

// addWidget opens the configuration dialog, fills the named inputs,
// submits and waits for the dialog to close.
func (r *Runner) addWidget(ctx context.Context, dash *dashboard.Dashboard, s Step) error {
	dialog, err := dash.AddWidget(ctx)
	if err != nil {
		return err
	}
	body, err := dialog.Content(ctx)
	if err != nil {
		return err
	}
	keys := make([]string, 0, len(s.Fields))
	for k := range s.Fields {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, k := range keys {
		in, err := body.Query(locator.ByName(k)).One(ctx)
		if err != nil {
			return err
		}
		if err := in.Fill(ctx, s.Fields[k]); err != nil {
			return err
		}
	}
	button := s.Button
	if button == "" {
		button = "Add"
	}
	if err := dialog.ClickButton(ctx, button); err != nil {
		return err
	}
	return dialog.WaitUntilNotVisible(ctx)
}

func expectWidgets(ctx context.Context, dash *dashboard.Dashboard, want []string) error {
	ws, err := dash.Widgets(ctx)
	if err != nil {
		return err
	}
	got := make([]string, 0, len(ws))
	for _, w := range ws {
		n, err := w.Name(ctx)
		if err != nil {
			return err
		}
		got = append(got, n)
	}
	if !slices.Equal(got, want) {
		return fmt.Errorf("%w: widgets %q, want %q", ErrExpectation, got, want)
	}
	return nil
}

func expectMode(ctx context.Context, dash *dashboard.Dashboard, want string) error {
	m, err := dash.Mode(ctx)
	if err != nil {
		return err
	}
	if m.String() != strings.ToLower(want) {
		return fmt.Errorf("%w: mode %s, want %s", ErrExpectation, m, strings.ToLower(want))
	}
	return nil
}

func (r *Runner) expectMessage(ctx context.Context, s Step) error {
	msg, err := dashboard.FindMessage(ctx, r.sess)
	if err != nil {
		return err
	}
	if s.Good != nil {
		good, err := msg.IsGood(ctx)
		if err != nil {
			return err
		}
		if good != *s.Good {
			title, _ := msg.Title(ctx)
			return fmt.Errorf("%w: message good=%t (%q), want good=%t", ErrExpectation, good, title, *s.Good)
		}
	}
	if s.Text == "" {
		return nil
	}
	title, err := msg.Title(ctx)
	if err != nil && !errors.Is(err, element.ErrNotFound) {
		return err
	}
	if strings.Contains(title, s.Text) {
		return nil
	}
	ok, err := msg.HasLine(ctx, s.Text)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: message has no line containing %q", ErrExpectation, s.Text)
	}
	return nil
}
