// Package driver defines the capability set a browser backend must offer.
// The element and dashboard packages only talk to these interfaces.
package driver

import (
	"context"
	"errors"

	"github.com/v0xg/dashdriver/internal/locator"
)

// ErrDetached is returned by Node methods (and by Find with a detached
// scope) when the node no longer belongs to the live document.
var ErrDetached = errors.New("driver: node is detached from the document")

// Driver finds nodes in a live page.
type Driver interface {
	// Find returns every node matching loc in document order. A nil scope
	// searches the whole document; otherwise only the subtree below scope.
	// Find never waits: no match is an empty slice, not an error.
	Find(ctx context.Context, loc locator.Locator, scope Node) ([]Node, error)
}

// Node is a handle to a DOM node owned by the driver session.
type Node interface {
	Text(ctx context.Context) (string, error)
	// Attribute returns the attribute value and whether it is present.
	Attribute(ctx context.Context, name string) (string, bool, error)
	Visible(ctx context.Context) (bool, error)
	Enabled(ctx context.Context) (bool, error)
	Click(ctx context.Context) error
	// SetValue replaces the current value of an input-like node.
	SetValue(ctx context.Context, value string) error
	// Attached probes whether the node is still part of the document.
	Attached(ctx context.Context) (bool, error)
}

// Screenshotter is implemented by drivers able to capture the viewport as PNG.
type Screenshotter interface {
	Screenshot(ctx context.Context) ([]byte, error)
}
