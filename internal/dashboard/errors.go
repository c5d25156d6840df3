package dashboard

import "errors"

// ErrNotEditable matches *NotEditableError.
var ErrNotEditable = errors.New("dashboard: wrong editing mode")

// NotEditableError reports an operation attempted while the dashboard was
// not in the mode it requires.
type NotEditableError struct {
	// Expected is the editing state the operation needed.
	Expected bool
}

func (e *NotEditableError) Error() string {
	if e.Expected {
		return "dashboard: not in editing mode"
	}
	return "dashboard: in editing mode"
}

func (e *NotEditableError) Is(target error) bool { return target == ErrNotEditable }
