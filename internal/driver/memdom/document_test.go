package memdom

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/html"

	"github.com/v0xg/dashdriver/internal/driver"
	"github.com/v0xg/dashdriver/internal/locator"
)

const page = `<html><body>
<h1 id="title">Board</h1>
<ul id="menu" class="menu top">
  <li><a class="item">One</a></li>
  <li><a class="item" hidden>Two</a></li>
  <li style="display: none"><a class="item">Three</a></li>
</ul>
<form><input name="user" value="x"><textarea name="notes"></textarea>
<button id="go" disabled>Go</button></form>
</body></html>`

func texts(t *testing.T, nodes []driver.Node) []string {
	t.Helper()
	var out []string
	for _, n := range nodes {
		h, ok := Unwrap(n)
		require.True(t, ok)
		out = append(out, TextOf(h))
	}
	return out
}

func TestFindByKind(t *testing.T) {
	d := MustParse(page)
	ctx := context.Background()

	tests := []struct {
		loc  locator.Locator
		want int
	}{
		{locator.ByID("title"), 1},
		{locator.ByClass("item"), 3},
		{locator.ByClass("menu"), 1},
		{locator.ByTag("li"), 3},
		{locator.ByName("user"), 1},
		{locator.ByCSS("ul#menu > li > a"), 3},
		{locator.ByXPath(`//a[@class="item"]`), 3},
		{locator.ByXPath(`//h1[text()="Board"]`), 1},
		{locator.ByID("missing"), 0},
	}
	for _, tt := range tests {
		t.Run(tt.loc.String(), func(t *testing.T) {
			nodes, err := d.Find(ctx, tt.loc, nil)
			require.NoError(t, err)
			assert.Len(t, nodes, tt.want)
		})
	}
}

func TestFindScopedAndDocumentOrder(t *testing.T) {
	d := MustParse(page)
	ctx := context.Background()

	menus, err := d.Find(ctx, locator.ByID("menu"), nil)
	require.NoError(t, err)
	require.Len(t, menus, 1)

	links, err := d.Find(ctx, locator.ByXPath(`.//a`), menus[0])
	require.NoError(t, err)
	// TextOf on the raw node ignores only hidden descendants, not the node itself.
	assert.Equal(t, []string{"One", "Two", "Three"}, texts(t, links))

	self, err := d.Find(ctx, locator.ByClass("menu"), menus[0])
	require.NoError(t, err)
	assert.Empty(t, self, "scope itself is not a match")
}

func TestFindInvalidSelectors(t *testing.T) {
	d := MustParse(page)
	_, err := d.Find(context.Background(), locator.ByXPath(`//a[`), nil)
	assert.Error(t, err)
	_, err = d.Find(context.Background(), locator.ByCSS(`a[`), nil)
	assert.Error(t, err)
}

func TestVisibilityAndEnabled(t *testing.T) {
	d := MustParse(page)
	ctx := context.Background()

	links, err := d.Find(ctx, locator.ByClass("item"), nil)
	require.NoError(t, err)
	var visible []bool
	for _, l := range links {
		v, err := l.Visible(ctx)
		require.NoError(t, err)
		visible = append(visible, v)
	}
	assert.Equal(t, []bool{true, false, false}, visible)

	text, err := links[1].Text(ctx)
	require.NoError(t, err)
	assert.Empty(t, text, "hidden nodes have no rendered text")

	gos, err := d.Find(ctx, locator.ByID("go"), nil)
	require.NoError(t, err)
	enabled, err := gos[0].Enabled(ctx)
	require.NoError(t, err)
	assert.False(t, enabled)
	assert.Error(t, gos[0].Click(ctx))
}

func TestClickRunsHandlers(t *testing.T) {
	d := MustParse(page)
	ctx := context.Background()

	d.MustHandle("a.item", func(d *Document, target *html.Node) {
		d.Mutate(func(root *html.Node) {
			SetText(First(root, "#title"), "Clicked "+TextOf(target))
		})
	})

	links, err := d.Find(ctx, locator.ByClass("item"), nil)
	require.NoError(t, err)
	require.NoError(t, links[0].Click(ctx))
	assert.Error(t, links[1].Click(ctx), "hidden link is not clickable")

	titles, err := d.Find(ctx, locator.ByID("title"), nil)
	require.NoError(t, err)
	text, err := titles[0].Text(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Clicked One", text)
	assert.Equal(t, []string{"a.item"}, d.Clicks())
}

func TestDetachMakesHandlesStale(t *testing.T) {
	d := MustParse(page)
	ctx := context.Background()

	menus, err := d.Find(ctx, locator.ByID("menu"), nil)
	require.NoError(t, err)
	menu := menus[0]

	d.Mutate(func(root *html.Node) { Detach(First(root, "#menu")) })

	attached, err := menu.Attached(ctx)
	require.NoError(t, err)
	assert.False(t, attached)

	_, err = menu.Visible(ctx)
	assert.ErrorIs(t, err, driver.ErrDetached)
	assert.ErrorIs(t, menu.Click(ctx), driver.ErrDetached)

	_, err = d.Find(ctx, locator.ByTag("a"), menu)
	assert.ErrorIs(t, err, driver.ErrDetached)
}

func TestReplaceAndAppendHTML(t *testing.T) {
	d := MustParse(page)
	ctx := context.Background()

	old, err := d.Find(ctx, locator.ByID("title"), nil)
	require.NoError(t, err)

	d.Mutate(func(root *html.Node) {
		ReplaceHTML(First(root, "#title"), `<h1 id="title">New</h1>`)
		AppendHTML(First(root, "body"), `<p class="note">added</p>`)
	})

	attached, err := old[0].Attached(ctx)
	require.NoError(t, err)
	assert.False(t, attached)

	fresh, err := d.Find(ctx, locator.ByID("title"), nil)
	require.NoError(t, err)
	text, err := fresh[0].Text(ctx)
	require.NoError(t, err)
	assert.Equal(t, "New", text)

	notes, err := d.Find(ctx, locator.ByClass("note"), nil)
	require.NoError(t, err)
	assert.Len(t, notes, 1)
}

func TestSetValue(t *testing.T) {
	d := MustParse(page)
	ctx := context.Background()

	inputs, err := d.Find(ctx, locator.ByName("user"), nil)
	require.NoError(t, err)
	require.NoError(t, inputs[0].SetValue(ctx, "admin"))
	v, ok, err := inputs[0].Attribute(ctx, "value")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "admin", v)

	notes, err := d.Find(ctx, locator.ByName("notes"), nil)
	require.NoError(t, err)
	require.NoError(t, notes[0].SetValue(ctx, "hello"))
	text, err := notes[0].Text(ctx)
	require.NoError(t, err)
	assert.Equal(t, "hello", text)
}

func TestAfterAndClose(t *testing.T) {
	d := MustParse(page)
	done := make(chan struct{})
	d.After(time.Millisecond, func(root *html.Node) {
		AddClass(First(root, "#title"), "ready")
		close(done)
	})
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("After callback did not run")
	}
	d.Mutate(func(root *html.Node) {
		assert.True(t, HasClass(First(root, "#title"), "ready"))
	})

	d.Close()
	d.After(time.Millisecond, func(root *html.Node) { t.Error("callback after Close") })
	time.Sleep(10 * time.Millisecond)
}

func TestScreenshotIsPNG(t *testing.T) {
	d := MustParse(page)
	data, err := d.Screenshot(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []byte("\x89PNG"), data[:4])
}

func TestClassHelpers(t *testing.T) {
	d := MustParse(page)
	d.Mutate(func(root *html.Node) {
		menu := First(root, "#menu")
		AddClass(menu, "open")
		assert.True(t, HasClass(menu, "open"))
		RemoveClass(menu, "menu")
		assert.False(t, HasClass(menu, "menu"))
		assert.Equal(t, menu, Closest(First(menu, "a"), "open"))
		Hide(menu)
		assert.False(t, isVisible(menu))
		Show(menu)
		assert.True(t, isVisible(menu))
	})
}
