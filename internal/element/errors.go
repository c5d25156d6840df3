package element

import (
	"errors"
	"fmt"

	"github.com/v0xg/dashdriver/internal/locator"
)

var (
	// ErrNotFound matches *NotFoundError.
	ErrNotFound = errors.New("element: not found")
	// ErrAmbiguous matches *AmbiguousMatchError.
	ErrAmbiguous = errors.New("element: ambiguous match")
	// ErrStale matches *StaleElementError.
	ErrStale = errors.New("element: stale")
	// ErrInvalidElement is returned by interactions on a null element.
	ErrInvalidElement = errors.New("element: invalid element")
	// ErrViewMismatch is returned when a node lacks the structure a view needs.
	ErrViewMismatch = errors.New("element: node does not match view")
)

// NotFoundError reports a required single-element query with no match.
type NotFoundError struct {
	Locator locator.Locator
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("element: no element matches %s", e.Locator)
}

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// AmbiguousMatchError reports a lookup that required a unique match.
type AmbiguousMatchError struct {
	What  string
	Count int
}

func (e *AmbiguousMatchError) Error() string {
	return fmt.Sprintf("element: %s matches %d elements", e.What, e.Count)
}

func (e *AmbiguousMatchError) Is(target error) bool { return target == ErrAmbiguous }

// StaleElementError reports an element whose node left the document.
type StaleElementError struct {
	Locator locator.Locator
	Err     error
}

func (e *StaleElementError) Error() string {
	return fmt.Sprintf("element: %s is no longer attached to the document", e.Locator)
}

func (e *StaleElementError) Is(target error) bool { return target == ErrStale }

func (e *StaleElementError) Unwrap() error { return e.Err }
