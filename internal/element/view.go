package element

import (
	"context"
	"fmt"
	"sync"
)

// Kind tags a query with the view its results are built into.
type Kind int

const (
	KindGeneric Kind = iota
	KindDashboard
	KindWidget
	KindOverlayDialog
	KindPopupButton
	KindPopupMenu
	KindMessage
)

func (k Kind) String() string {
	switch k {
	case KindGeneric:
		return "element"
	case KindDashboard:
		return "dashboard"
	case KindWidget:
		return "widget"
	case KindOverlayDialog:
		return "overlay dialog"
	case KindPopupButton:
		return "popup button"
	case KindPopupMenu:
		return "popup menu"
	case KindMessage:
		return "message"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// View is a typed wrapper over a located element. *Element is itself the
// generic view.
type View interface {
	Located() *Element
}

// Validator is implemented by views that require a particular structure
// from their node. Validate is not called for null elements.
type Validator interface {
	Validate(ctx context.Context) error
}

// Factory wraps a located element into a view. It must not do I/O.
type Factory func(el *Element) View

var (
	factoriesMu sync.RWMutex
	factories   = map[Kind]Factory{
		KindGeneric: func(el *Element) View { return el },
	}
)

// Register installs the factory for a kind. View packages call it from init.
func Register(k Kind, f Factory) {
	factoriesMu.Lock()
	defer factoriesMu.Unlock()
	factories[k] = f
}

func build(ctx context.Context, k Kind, el *Element) (View, error) {
	factoriesMu.RLock()
	f, ok := factories[k]
	factoriesMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("element: no view registered for %s", k)
	}

	v := f(el)
	if !el.IsValid() {
		return v, nil
	}
	if val, ok := v.(Validator); ok {
		if err := val.Validate(ctx); err != nil {
			return nil, fmt.Errorf("%w: %s as %s: %w", ErrViewMismatch, el.loc, k, err)
		}
	}
	return v, nil
}
