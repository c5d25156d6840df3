// Package scenario runs dashboard sessions described in YAML: a list of
// state machine operations and expectations executed in order.
package scenario

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/v0xg/dashdriver/internal/locator"
)

// Step actions.
const (
	ActionEdit          = "edit"
	ActionSave          = "save"
	ActionCancel        = "cancel"
	ActionAddWidget     = "add_widget"
	ActionDeleteWidget  = "delete_widget"
	ActionCopyWidget    = "copy_widget"
	ActionPasteWidget   = "paste_widget"
	ActionReplaceWidget = "replace_widget"
	ActionFill          = "fill"
	ActionClick         = "click"
	ActionWaitVisible   = "wait_visible"
	ActionExpectWidgets = "expect_widgets"
	ActionExpectWidget  = "expect_widget"
	ActionExpectMode    = "expect_mode"
	ActionExpectMessage = "expect_message"
)

// Scenario is a named list of steps.
type Scenario struct {
	Name  string `yaml:"name"`
	Steps []Step `yaml:"steps"`
}

// Step is a single operation. Which fields apply depends on Action.
type Step struct {
	Action string            `yaml:"action"`
	Widget string            `yaml:"widget,omitempty"` // widget heading for *_widget and expect_widget
	Target string            `yaml:"target,omitempty"` // locator, "kind:value", for fill/click/wait_visible
	Text   string            `yaml:"text,omitempty"`   // fill value, or expected message line
	Fields map[string]string `yaml:"fields,omitempty"` // add_widget: input name -> value
	Button string            `yaml:"button,omitempty"` // add_widget submit label, default "Add"
	Mode   string            `yaml:"mode,omitempty"`   // expect_mode: view | edit
	Names  []string          `yaml:"names,omitempty"`  // expect_widgets, in order
	Good   *bool             `yaml:"good,omitempty"`   // expect_message
}

// String renders the step for progress output.
func (s Step) String() string {
	switch s.Action {
	case ActionDeleteWidget, ActionCopyWidget, ActionReplaceWidget, ActionExpectWidget:
		return fmt.Sprintf("%s → %q", s.Action, s.Widget)
	case ActionFill:
		return fmt.Sprintf("%s → %s (text: %q)", s.Action, s.Target, s.Text)
	case ActionClick, ActionWaitVisible:
		return fmt.Sprintf("%s → %s", s.Action, s.Target)
	case ActionExpectMode:
		return fmt.Sprintf("%s → %s", s.Action, s.Mode)
	case ActionExpectWidgets:
		return fmt.Sprintf("%s → %q", s.Action, s.Names)
	case ActionAddWidget:
		if name, ok := s.Fields["name"]; ok {
			return fmt.Sprintf("%s → %q", s.Action, name)
		}
	}
	return s.Action
}

// Load reads a scenario file.
func Load(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("scenario: %w", err)
	}
	return Parse(data)
}

// Parse decodes and validates a scenario.
func Parse(data []byte) (*Scenario, error) {
	var sc Scenario
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&sc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("scenario: empty document")
		}
		return nil, fmt.Errorf("scenario: parse: %w", err)
	}
	if err := sc.Validate(); err != nil {
		return nil, err
	}
	return &sc, nil
}

// Validate checks every step before anything runs.
func (sc *Scenario) Validate() error {
	if len(sc.Steps) == 0 {
		return errors.New("scenario: no steps")
	}
	var errs []error
	for i, s := range sc.Steps {
		if err := s.validate(); err != nil {
			errs = append(errs, fmt.Errorf("scenario: step %d (%s): %w", i+1, s.Action, err))
		}
	}
	return errors.Join(errs...)
}

func (s Step) validate() error {
	switch s.Action {
	case ActionEdit, ActionSave, ActionCancel, ActionPasteWidget, ActionAddWidget:
		return nil
	case ActionDeleteWidget, ActionCopyWidget, ActionReplaceWidget, ActionExpectWidget:
		if s.Widget == "" {
			return errors.New("widget is required")
		}
	case ActionFill, ActionClick, ActionWaitVisible:
		if s.Target == "" {
			return errors.New("target is required")
		}
		if _, err := locator.Parse(s.Target); err != nil {
			return err
		}
	case ActionExpectWidgets:
		if s.Names == nil {
			return errors.New("names is required")
		}
	case ActionExpectMode:
		switch strings.ToLower(s.Mode) {
		case "view", "edit":
		default:
			return fmt.Errorf("mode must be view or edit, got %q", s.Mode)
		}
	case ActionExpectMessage:
		if s.Good == nil && s.Text == "" {
			return errors.New("good or text is required")
		}
	case "":
		return errors.New("action is required")
	default:
		return fmt.Errorf("unknown action %q", s.Action)
	}
	return nil
}
