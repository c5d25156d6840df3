// Package memdom is an in-memory driver backend. Pages are parsed from HTML
// and scripted with click handlers that mutate the tree, immediately or
// after a delay, the way a server round trip would. It implements the full
// driver capability set, including staleness: a removed node stays
// reachable through its handle but reports ErrDetached.
package memdom

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"strings"
	"sync"
	"time"

	"github.com/andybalholm/cascadia"
	"github.com/antchfx/htmlquery"
	"golang.org/x/net/html"

	"github.com/v0xg/dashdriver/internal/driver"
	"github.com/v0xg/dashdriver/internal/locator"
)

// Handler reacts to a click on a node matching its selector. It runs
// without the document lock held and must mutate through Mutate or After.
type Handler func(d *Document, target *html.Node)

type handler struct {
	sel cascadia.Selector
	fn  Handler
}

// Document is a live page. It is safe for concurrent use.
type Document struct {
	mu       sync.Mutex
	root     *html.Node
	handlers []handler
	clicks   []string
	timers   []*time.Timer
	closed   bool
}

var _ driver.Driver = (*Document)(nil)
var _ driver.Screenshotter = (*Document)(nil)

// Parse builds a document from HTML source.
func Parse(src string) (*Document, error) {
	root, err := html.Parse(strings.NewReader(src))
	if err != nil {
		return nil, fmt.Errorf("memdom: parse: %w", err)
	}
	return &Document{root: root}, nil
}

// MustParse is Parse for fixtures.
func MustParse(src string) *Document {
	d, err := Parse(src)
	if err != nil {
		panic(err)
	}
	return d
}

// Handle registers fn for clicks on nodes matching the CSS selector.
// Handlers run in registration order.
func (d *Document) Handle(css string, fn Handler) error {
	sel, err := cascadia.Compile(css)
	if err != nil {
		return fmt.Errorf("memdom: handler selector %q: %w", css, err)
	}
	d.mu.Lock()
	d.handlers = append(d.handlers, handler{sel: sel, fn: fn})
	d.mu.Unlock()
	return nil
}

// MustHandle is Handle for fixtures.
func (d *Document) MustHandle(css string, fn Handler) {
	if err := d.Handle(css, fn); err != nil {
		panic(err)
	}
}

// Mutate runs fn with exclusive access to the tree.
func (d *Document) Mutate(fn func(root *html.Node)) {
	d.mu.Lock()
	defer d.mu.Unlock()
	fn(d.root)
}

// After runs fn through Mutate once delay has passed, simulating a
// response arriving asynchronously.
func (d *Document) After(delay time.Duration, fn func(root *html.Node)) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return
	}
	d.timers = append(d.timers, time.AfterFunc(delay, func() { d.Mutate(fn) }))
}

// Close cancels pending After callbacks.
func (d *Document) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed = true
	for _, t := range d.timers {
		t.Stop()
	}
	d.timers = nil
}

// Clicks lists the clicked nodes, described as tag#id.class, in order.
func (d *Document) Clicks() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.clicks...)
}

// HTML renders the current tree.
func (d *Document) HTML() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	var buf bytes.Buffer
	_ = html.Render(&buf, d.root)
	return buf.String()
}

// Find implements driver.Driver.
func (d *Document) Find(ctx context.Context, loc locator.Locator, scope driver.Node) ([]driver.Node, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	top := d.root
	if scope != nil {
		sn, ok := scope.(*node)
		if !ok || sn.doc != d {
			return nil, fmt.Errorf("memdom: scope %T does not belong to this document", scope)
		}
		if !d.attachedLocked(sn.n) {
			return nil, driver.ErrDetached
		}
		top = sn.n
	}

	var found []*html.Node
	if loc.Kind == locator.XPath {
		matches, err := htmlquery.QueryAll(top, loc.Value)
		if err != nil {
			return nil, fmt.Errorf("memdom: xpath %q: %w", loc.Value, err)
		}
		found = matches
	} else {
		css, err := loc.CSSSelector()
		if err != nil {
			return nil, err
		}
		sel, err := cascadia.Compile(css)
		if err != nil {
			return nil, fmt.Errorf("memdom: css %q: %w", css, err)
		}
		found = sel.MatchAll(top)
	}

	nodes := make([]driver.Node, 0, len(found))
	for _, n := range found {
		if n == top || n.Type != html.ElementNode {
			continue
		}
		nodes = append(nodes, &node{doc: d, n: n})
	}
	return nodes, nil
}

// Screenshot implements driver.Screenshotter. The image is a small solid
// frame whose shade follows the number of visible elements, enough to tell
// page states apart in a recording.
func (d *Document) Screenshot(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	d.mu.Lock()
	visible := 0
	walk(d.root, func(n *html.Node) {
		if n.Type == html.ElementNode && isVisible(n) {
			visible++
		}
	})
	d.mu.Unlock()

	img := image.NewRGBA(image.Rect(0, 0, 64, 48))
	shade := uint8(255 - (visible*8)%200)
	for y := 0; y < 48; y++ {
		for x := 0; x < 64; x++ {
			img.Set(x, y, color.RGBA{shade, shade, 255, 255})
		}
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (d *Document) attachedLocked(n *html.Node) bool {
	for n.Parent != nil {
		n = n.Parent
	}
	return n == d.root
}

func (d *Document) click(n *html.Node) error {
	d.mu.Lock()
	switch {
	case !d.attachedLocked(n):
		d.mu.Unlock()
		return driver.ErrDetached
	case !isVisible(n):
		d.mu.Unlock()
		return fmt.Errorf("memdom: %s is not visible", describe(n))
	case !isEnabled(n):
		d.mu.Unlock()
		return fmt.Errorf("memdom: %s is disabled", describe(n))
	}
	d.clicks = append(d.clicks, describe(n))
	var matched []Handler
	for _, h := range d.handlers {
		if h.sel.Match(n) {
			matched = append(matched, h.fn)
		}
	}
	d.mu.Unlock()

	for _, fn := range matched {
		fn(d, n)
	}
	return nil
}

func walk(n *html.Node, fn func(*html.Node)) {
	fn(n)
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walk(c, fn)
	}
}

func describe(n *html.Node) string {
	s := n.Data
	if id, ok := Attr(n, "id"); ok {
		s += "#" + id
	}
	if class, ok := Attr(n, "class"); ok {
		for _, c := range strings.Fields(class) {
			s += "." + c
		}
	}
	return s
}
