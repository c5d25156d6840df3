// Package element implements lazy queries over a live page, located element
// handles with staleness tracking, and a factory that re-types a located
// node into a behavioral view.
package element

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/v0xg/dashdriver/internal/driver"
	"github.com/v0xg/dashdriver/internal/locator"
	"github.com/v0xg/dashdriver/internal/wait"
)

// Snapshotter records page state after a transition, for diagnostics.
type Snapshotter interface {
	Snapshot(ctx context.Context, label string, failed bool)
}

// Options configure a Session.
type Options struct {
	Wait wait.Options
	// Strict turns name lookups with several matches into AmbiguousMatchError.
	Strict bool
	Logger *slog.Logger
	// Snapshotter is optional.
	Snapshotter Snapshotter
}

// Session is the query root for one browser page. Sessions share nothing;
// run parallel pages with separate sessions.
type Session struct {
	id   string
	drv  driver.Driver
	opts Options
	log  *slog.Logger
}

// NewSession binds a driver to a fresh query graph.
func NewSession(drv driver.Driver, opts Options) *Session {
	id := uuid.NewString()
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Session{
		id:   id,
		drv:  drv,
		opts: opts,
		log:  logger.With("session", id),
	}
}

// ID identifies the session in logs and artifacts.
func (s *Session) ID() string { return s.id }

// Driver returns the backend the session queries.
func (s *Session) Driver() driver.Driver { return s.drv }

// Logger is the session's structured logger.
func (s *Session) Logger() *slog.Logger { return s.log }

// WaitOptions returns the configured wait bounds.
func (s *Session) WaitOptions() wait.Options { return s.opts.Wait }

// Strict reports whether ambiguous name lookups are errors.
func (s *Session) Strict() bool { return s.opts.Strict }

// Query builds a deferred query against the document root.
func (s *Session) Query(loc locator.Locator) Query {
	return Query{sess: s, loc: loc}
}

// Checkpoint hands the current page to the snapshotter, if any.
func (s *Session) Checkpoint(ctx context.Context, label string, err error) {
	if s.opts.Snapshotter != nil {
		s.opts.Snapshotter.Snapshot(ctx, label, err != nil)
	}
}

// Until waits on a condition with the session's bounds.
func (s *Session) Until(ctx context.Context, c wait.Condition) error {
	err := wait.Until(ctx, c, s.opts.Wait)
	if err != nil {
		s.log.Debug("element: wait failed", "condition", c.Name, "error", err)
	}
	return err
}

// Guard runs action once c holds, with the session's bounds.
func (s *Session) Guard(ctx context.Context, c wait.Condition, action func(ctx context.Context) error) error {
	if err := s.Until(ctx, c); err != nil {
		return err
	}
	return action(ctx)
}
