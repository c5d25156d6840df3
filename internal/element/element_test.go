package element

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/html"

	"github.com/v0xg/dashdriver/internal/driver"
	"github.com/v0xg/dashdriver/internal/driver/memdom"
	"github.com/v0xg/dashdriver/internal/locator"
	"github.com/v0xg/dashdriver/internal/wait"
)

const fixture = `<html><body>
<h1 id="page-title-general">Overview</h1>
<div class="panel" id="p1"><span class="label">first</span><button id="b1">One</button></div>
<div class="panel" id="p2"><span class="label">second</span><button id="b2" disabled>Two</button></div>
<div class="panel" id="p3" hidden><span class="label">third</span></div>
<input name="q">
</body></html>`

// countingDriver counts Find calls to prove queries are lazy.
type countingDriver struct {
	driver.Driver
	finds int
}

func (c *countingDriver) Find(ctx context.Context, loc locator.Locator, scope driver.Node) ([]driver.Node, error) {
	c.finds++
	return c.Driver.Find(ctx, loc, scope)
}

func newSession(t *testing.T, src string) (*Session, *memdom.Document) {
	t.Helper()
	doc := memdom.MustParse(src)
	t.Cleanup(doc.Close)
	return NewSession(doc, Options{Wait: wait.Options{Timeout: 300 * time.Millisecond, Interval: 2 * time.Millisecond}}), doc
}

func TestQueryIsLazy(t *testing.T) {
	doc := memdom.MustParse(fixture)
	drv := &countingDriver{Driver: doc}
	sess := NewSession(drv, Options{})

	q := sess.Query(locator.ByClass("panel")).AsWidget().As(KindGeneric)
	_ = q.String()
	assert.Zero(t, drv.finds)

	_, err := q.All(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, drv.finds)
}

func TestAsDoesNotMutate(t *testing.T) {
	sess, _ := newSession(t, fixture)
	q := sess.Query(locator.ByClass("panel"))
	w := q.AsWidget()
	assert.Equal(t, KindGeneric, q.Kind())
	assert.Equal(t, KindWidget, w.Kind())
	assert.Equal(t, q.Locator(), w.Locator())
}

func TestOne(t *testing.T) {
	sess, _ := newSession(t, fixture)
	ctx := context.Background()

	el, err := sess.Query(locator.ByClass("panel")).One(ctx)
	require.NoError(t, err)
	id, ok, err := el.Attribute(ctx, "id")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "p1", id, "first match in document order")

	_, err = sess.Query(locator.ByID("nope")).One(ctx)
	assert.ErrorIs(t, err, ErrNotFound)
	var nf *NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, locator.ByID("nope"), nf.Locator)
}

func TestOneOrNullIsNullObject(t *testing.T) {
	sess, _ := newSession(t, fixture)
	ctx := context.Background()

	el, err := sess.Query(locator.ByID("nope")).OneOrNull(ctx)
	require.NoError(t, err)
	require.NotNil(t, el)
	assert.False(t, el.IsValid())

	assert.ErrorIs(t, el.Click(ctx), ErrInvalidElement)
	assert.ErrorIs(t, el.Fill(ctx, "x"), ErrInvalidElement)
	_, err = el.Text(ctx)
	assert.ErrorIs(t, err, ErrInvalidElement)

	stalled, err := el.IsStalled(ctx)
	require.NoError(t, err)
	assert.True(t, stalled)

	notShown, err := el.DisplayedAs(ctx, false)
	require.NoError(t, err)
	assert.True(t, notShown)

	_, err = el.Query(locator.ByTag("span")).All(ctx)
	assert.ErrorIs(t, err, ErrInvalidElement)
}

func TestAllSnapshot(t *testing.T) {
	sess, doc := newSession(t, fixture)
	ctx := context.Background()

	q := sess.Query(locator.ByClass("label"))
	els, err := q.All(ctx)
	require.NoError(t, err)
	require.Len(t, els, 3)

	doc.Mutate(func(root *html.Node) {
		memdom.AppendHTML(memdom.First(root, "body"), `<span class="label">fourth</span>`)
	})
	assert.Len(t, els, 3)

	els, err = q.All(ctx)
	require.NoError(t, err)
	assert.Len(t, els, 4)

	n, err := q.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, n)
}

func TestScopedAndAbsoluteQueries(t *testing.T) {
	sess, _ := newSession(t, fixture)
	ctx := context.Background()

	panel, err := sess.Query(locator.ByID("p2")).One(ctx)
	require.NoError(t, err)

	label, err := panel.Query(locator.ByXPath(`.//span`)).One(ctx)
	require.NoError(t, err)
	text, err := label.Text(ctx)
	require.NoError(t, err)
	assert.Equal(t, "second", text)

	title, err := panel.Query(locator.ByXPath(`//h1[@id="page-title-general"]`)).One(ctx)
	require.NoError(t, err, "absolute xpath escapes the scope")
	text, err = title.Text(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Overview", text)
}

func TestInteractions(t *testing.T) {
	sess, doc := newSession(t, fixture)
	ctx := context.Background()

	in, err := sess.Query(locator.ByName("q")).One(ctx)
	require.NoError(t, err)
	require.NoError(t, in.Fill(ctx, "cpu load"))
	v, _, err := in.Attribute(ctx, "value")
	require.NoError(t, err)
	assert.Equal(t, "cpu load", v)

	b1, err := sess.Query(locator.ByID("b1")).One(ctx)
	require.NoError(t, err)
	clickable, err := b1.IsClickable(ctx)
	require.NoError(t, err)
	assert.True(t, clickable)
	require.NoError(t, b1.Click(ctx))
	assert.Equal(t, []string{"button#b1"}, doc.Clicks())

	b2, err := sess.Query(locator.ByID("b2")).One(ctx)
	require.NoError(t, err)
	clickable, err = b2.IsClickable(ctx)
	require.NoError(t, err)
	assert.False(t, clickable)

	panel, err := sess.Query(locator.ByID("p1")).One(ctx)
	require.NoError(t, err)
	has, err := panel.HasClass(ctx, "panel")
	require.NoError(t, err)
	assert.True(t, has)
}

func TestDisplayedAs(t *testing.T) {
	sess, _ := newSession(t, fixture)
	ctx := context.Background()

	hidden, err := sess.Query(locator.ByID("p3")).One(ctx)
	require.NoError(t, err)

	match, err := hidden.DisplayedAs(ctx, true)
	require.NoError(t, err)
	assert.False(t, match)
	match, err = hidden.DisplayedAs(ctx, false)
	require.NoError(t, err)
	assert.True(t, match)
}

func TestStalenessIsMonotonic(t *testing.T) {
	sess, doc := newSession(t, fixture)
	ctx := context.Background()

	panel, err := sess.Query(locator.ByID("p1")).One(ctx)
	require.NoError(t, err)

	stalled, err := panel.IsStalled(ctx)
	require.NoError(t, err)
	assert.False(t, stalled)
	assert.True(t, panel.IsValid())

	var removed *html.Node
	doc.Mutate(func(root *html.Node) {
		removed = memdom.First(root, "#p1")
		memdom.Detach(removed)
	})
	assert.True(t, panel.IsValid(), "validity is only updated by a probe")

	stalled, err = panel.IsStalled(ctx)
	require.NoError(t, err)
	assert.True(t, stalled)
	assert.False(t, panel.IsValid())

	// Re-attaching the same node does not revive the handle.
	doc.Mutate(func(root *html.Node) { memdom.First(root, "body").AppendChild(removed) })
	stalled, err = panel.IsStalled(ctx)
	require.NoError(t, err)
	assert.True(t, stalled)

	err = panel.Click(ctx)
	assert.ErrorIs(t, err, ErrStale)
}

func TestInteractionDetectsDetach(t *testing.T) {
	sess, doc := newSession(t, fixture)
	ctx := context.Background()

	b1, err := sess.Query(locator.ByID("b1")).One(ctx)
	require.NoError(t, err)
	doc.Mutate(func(root *html.Node) { memdom.Detach(memdom.First(root, "#p1")) })

	err = b1.Click(ctx)
	assert.ErrorIs(t, err, ErrStale)
	assert.ErrorIs(t, err, driver.ErrDetached)
	assert.False(t, b1.IsValid())
}

func TestQueryUnderStaleScope(t *testing.T) {
	sess, doc := newSession(t, fixture)
	ctx := context.Background()

	panel, err := sess.Query(locator.ByID("p1")).One(ctx)
	require.NoError(t, err)
	doc.Mutate(func(root *html.Node) { memdom.Detach(memdom.First(root, "#p1")) })

	_, err = panel.Query(locator.ByTag("span")).One(ctx)
	assert.ErrorIs(t, err, ErrStale)
	assert.False(t, panel.IsValid())
}

func TestWaitUnderStaleScopeFailsFast(t *testing.T) {
	sess, doc := newSession(t, fixture)
	ctx := context.Background()

	panel, err := sess.Query(locator.ByID("p1")).One(ctx)
	require.NoError(t, err)
	doc.Mutate(func(root *html.Node) { memdom.Detach(memdom.First(root, "#p1")) })

	start := time.Now()
	err = panel.Query(locator.ByTag("span")).WaitUntilVisible(ctx)
	assert.ErrorIs(t, err, ErrStale)
	assert.NotErrorIs(t, err, wait.ErrTimeout)
	assert.Less(t, time.Since(start), 150*time.Millisecond)
}

func TestQueryWaitsFollowAsyncChanges(t *testing.T) {
	sess, doc := newSession(t, fixture)
	ctx := context.Background()

	doc.After(20*time.Millisecond, func(root *html.Node) {
		memdom.AppendHTML(memdom.First(root, "body"), `<div class="late" hidden>late</div>`)
	})
	doc.After(40*time.Millisecond, func(root *html.Node) {
		memdom.Show(memdom.First(root, ".late"))
	})

	q := sess.Query(locator.ByClass("late"))
	require.NoError(t, q.WaitUntilPresent(ctx))
	require.NoError(t, q.WaitUntilVisible(ctx))

	doc.After(10*time.Millisecond, func(root *html.Node) {
		memdom.Detach(memdom.First(root, ".late"))
	})
	require.NoError(t, q.WaitUntilNotVisible(ctx))
	require.NoError(t, q.WaitUntilNotPresent(ctx))
}

func TestElementWaitTreatsDetachAsNotVisible(t *testing.T) {
	sess, doc := newSession(t, fixture)
	ctx := context.Background()

	b1, err := sess.Query(locator.ByID("b1")).One(ctx)
	require.NoError(t, err)
	doc.After(10*time.Millisecond, func(root *html.Node) { memdom.Detach(memdom.First(root, "#b1")) })
	require.NoError(t, b1.WaitUntilNotVisible(ctx))

	stalled, err := b1.IsStalled(ctx)
	require.NoError(t, err)
	assert.True(t, stalled)
}

func TestClickWhenClickable(t *testing.T) {
	sess, doc := newSession(t, fixture)
	ctx := context.Background()

	b2, err := sess.Query(locator.ByID("b2")).One(ctx)
	require.NoError(t, err)
	doc.After(15*time.Millisecond, func(root *html.Node) { memdom.RemoveAttr(memdom.First(root, "#b2"), "disabled") })

	require.NoError(t, b2.ClickWhenClickable(ctx))
	assert.Equal(t, []string{"button#b2"}, doc.Clicks())
}

func TestClickWhenClickableLogsFailedWait(t *testing.T) {
	doc := memdom.MustParse(fixture)
	t.Cleanup(doc.Close)
	var buf bytes.Buffer
	sess := NewSession(doc, Options{
		Wait:   wait.Options{Timeout: 20 * time.Millisecond, Interval: 2 * time.Millisecond},
		Logger: slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})),
	})
	ctx := context.Background()

	b2, err := sess.Query(locator.ByID("b2")).One(ctx)
	require.NoError(t, err)

	err = b2.ClickWhenClickable(ctx)
	require.ErrorIs(t, err, wait.ErrTimeout)
	assert.Empty(t, doc.Clicks())
	assert.Contains(t, buf.String(), "element: wait failed")
	assert.Contains(t, buf.String(), "id:b2 is clickable")
}

func TestWaitTimeoutDiagnostics(t *testing.T) {
	sess, _ := newSession(t, fixture)
	ctx := context.Background()

	err := sess.Query(locator.ByID("p3")).WaitUntilVisible(ctx)
	require.Error(t, err)

	var te *wait.TimeoutError
	require.True(t, errors.As(err, &te))
	assert.Contains(t, te.Condition, "id:p3")
	assert.Equal(t, "displayed=false", te.LastState)

	err = sess.Query(locator.ByID("missing")).WaitUntilPresent(ctx)
	require.ErrorAs(t, err, &te)
	assert.Equal(t, "no match", te.LastState)
}

type labelView struct{ el *Element }

func (v *labelView) Located() *Element { return v.el }

func (v *labelView) Validate(ctx context.Context) error {
	ok, err := v.el.HasClass(ctx, "label")
	if err != nil {
		return err
	}
	if !ok {
		return errors.New("missing label class")
	}
	return nil
}

const kindLabel Kind = 100

func TestViewFactory(t *testing.T) {
	Register(kindLabel, func(el *Element) View { return &labelView{el: el} })
	sess, _ := newSession(t, fixture)
	ctx := context.Background()

	v, err := sess.Query(locator.ByClass("label")).As(kindLabel).View(ctx, true)
	require.NoError(t, err)
	lv, ok := v.(*labelView)
	require.True(t, ok)
	text, err := lv.Located().Text(ctx)
	require.NoError(t, err)
	assert.Equal(t, "first", text)

	views, err := sess.Query(locator.ByClass("label")).As(kindLabel).Views(ctx)
	require.NoError(t, err)
	assert.Len(t, views, 3)

	_, err = sess.Query(locator.ByClass("panel")).As(kindLabel).View(ctx, true)
	assert.ErrorIs(t, err, ErrViewMismatch)

	null, err := sess.Query(locator.ByID("nope")).As(kindLabel).View(ctx, false)
	require.NoError(t, err, "null elements skip validation")
	assert.False(t, null.Located().IsValid())

	_, err = sess.Query(locator.ByClass("label")).As(Kind(999)).View(ctx, true)
	assert.Error(t, err)

	generic, err := sess.Query(locator.ByClass("label")).View(ctx, true)
	require.NoError(t, err)
	_, isElement := generic.(*Element)
	assert.True(t, isElement)
}

func TestSessionIdentity(t *testing.T) {
	a, _ := newSession(t, fixture)
	b, _ := newSession(t, fixture)
	assert.NotEqual(t, a.ID(), b.ID())
	assert.NotNil(t, a.Logger())
}
