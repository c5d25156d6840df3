// Package roddriver runs the page objects against Chrome through go-rod.
package roddriver

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"

	"github.com/v0xg/dashdriver/internal/driver"
	"github.com/v0xg/dashdriver/internal/locator"
)

// Options configures the browser.
type Options struct {
	// Bin is the browser binary; empty looks one up on the system.
	Bin      string
	Headless bool
	// Stealth opens the page with go-rod/stealth evasions applied.
	Stealth bool
	Width   int
	Height  int
	// Profile is a user data directory for authenticated sessions. The
	// browser using it must be closed first.
	Profile string
	// Remote connects to a running browser's DevTools URL instead of
	// launching one.
	Remote string
	// LoadTimeout bounds navigation and the network idle wait.
	LoadTimeout time.Duration
	// ActionTimeout bounds every element call, clicks included, when the
	// caller's context has no earlier deadline.
	ActionTimeout time.Duration
	Logger        *slog.Logger
}

// DefaultActionTimeout applies when Options.ActionTimeout is zero.
const DefaultActionTimeout = 20 * time.Second

// Driver is one Chrome tab.
type Driver struct {
	browser *rod.Browser
	page    *rod.Page
	lnch    *launcher.Launcher
	log     *slog.Logger
	timeout time.Duration
}

var (
	_ driver.Driver        = (*Driver)(nil)
	_ driver.Screenshotter = (*Driver)(nil)
)

// newLauncher builds the launch flags without starting anything.
func newLauncher(opts Options) *launcher.Launcher {
	bin := opts.Bin
	if bin == "" {
		bin, _ = launcher.LookPath()
	}
	l := launcher.New().Headless(opts.Headless).
		Set("disable-blink-features", "AutomationControlled")
	if bin != "" {
		l = l.Bin(bin)
	}
	if opts.Profile != "" {
		l = l.UserDataDir(opts.Profile)
	}
	return l
}

// Open starts or connects to a browser and loads url.
func Open(ctx context.Context, url string, opts Options) (*Driver, error) {
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	if opts.LoadTimeout <= 0 {
		opts.LoadTimeout = 30 * time.Second
	}
	if opts.ActionTimeout <= 0 {
		opts.ActionTimeout = DefaultActionTimeout
	}
	d := &Driver{log: log, timeout: opts.ActionTimeout}

	wsURL := opts.Remote
	if wsURL == "" {
		d.lnch = newLauncher(opts)
		u, err := d.lnch.Context(ctx).Launch()
		if err != nil {
			return nil, fmt.Errorf("roddriver: launch: %w", err)
		}
		wsURL = u
		log.Info("roddriver: launched chrome", "url", wsURL, "headless", opts.Headless)
	} else {
		log.Info("roddriver: connecting to remote", "url", wsURL)
	}

	d.browser = rod.New().ControlURL(wsURL).Context(ctx)
	if err := d.browser.Connect(); err != nil {
		d.browser = nil
		d.Close()
		return nil, fmt.Errorf("roddriver: connect: %w", err)
	}

	var err error
	if opts.Stealth {
		d.page, err = stealth.Page(d.browser)
	} else {
		d.page, err = d.browser.Page(proto.TargetCreateTarget{})
	}
	if err != nil {
		d.Close()
		return nil, fmt.Errorf("roddriver: create page: %w", err)
	}

	if opts.Width > 0 && opts.Height > 0 {
		if err := d.page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
			Width: opts.Width, Height: opts.Height, DeviceScaleFactor: 1,
		}); err != nil {
			d.Close()
			return nil, fmt.Errorf("roddriver: viewport: %w", err)
		}
	}

	if err := d.Navigate(ctx, url, opts.LoadTimeout); err != nil {
		d.Close()
		return nil, err
	}
	return d, nil
}

// Navigate loads url and waits for the load event and a quiet network.
// Persistent connections can keep the network busy; the idle wait is
// bounded and its timeout ignored.
func (d *Driver) Navigate(ctx context.Context, url string, timeout time.Duration) error {
	navCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	p := d.page.Context(navCtx)
	if err := p.Navigate(url); err != nil {
		return fmt.Errorf("roddriver: navigate %s: %w", url, err)
	}
	if err := p.WaitLoad(); err != nil {
		d.log.Warn("roddriver: wait load", "url", url, "error", err)
	}
	d.page.Timeout(5*time.Second).WaitRequestIdle(500*time.Millisecond, nil, nil, nil)()
	return nil
}

// Page exposes the rod page for callers that need raw access.
func (d *Driver) Page() *rod.Page { return d.page }

// Close shuts the tab and, when it was launched here, the browser.
func (d *Driver) Close() error {
	var err error
	if d.page != nil {
		err = d.page.Close()
	}
	if d.browser != nil {
		if cerr := d.browser.Close(); err == nil {
			err = cerr
		}
	}
	if d.lnch != nil {
		d.lnch.Kill()
		d.lnch.Cleanup()
	}
	return err
}

// Find implements driver.Driver. rod's Elements and ElementsX return the
// current matches without retrying.
func (d *Driver) Find(ctx context.Context, loc locator.Locator, scope driver.Node) ([]driver.Node, error) {
	q, err := translate(loc)
	if err != nil {
		return nil, err
	}

	var els rod.Elements
	ctx, cancel := bound(ctx, d.timeout)
	defer cancel()

	if scope == nil {
		p := d.page.Context(ctx)
		if q.xpath {
			els, err = p.ElementsX(q.expr)
		} else {
			els, err = p.Elements(q.expr)
		}
	} else {
		sn, ok := scope.(*node)
		if !ok {
			return nil, fmt.Errorf("roddriver: scope %T is not a rod node", scope)
		}
		attached, aerr := sn.Attached(ctx)
		if aerr != nil {
			return nil, aerr
		}
		if !attached {
			return nil, driver.ErrDetached
		}
		el := sn.el.Context(ctx)
		if q.xpath {
			els, err = el.ElementsX(q.expr)
		} else {
			els, err = el.Elements(q.expr)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("roddriver: find %s: %w", loc, err)
	}

	nodes := make([]driver.Node, len(els))
	for i, el := range els {
		nodes[i] = &node{el: el, timeout: d.timeout}
	}
	return nodes, nil
}

// Screenshot implements driver.Screenshotter with a PNG of the viewport.
func (d *Driver) Screenshot(ctx context.Context) ([]byte, error) {
	ctx, cancel := bound(ctx, d.timeout)
	defer cancel()
	data, err := d.page.Context(ctx).Screenshot(false, &proto.PageCaptureScreenshot{
		Format: proto.PageCaptureScreenshotFormatPng,
	})
	if err != nil {
		return nil, fmt.Errorf("roddriver: screenshot: %w", err)
	}
	return data, nil
}

// bound limits ctx to timeout unless it already ends sooner. rod retries
// Click until its context is done.
func bound(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		timeout = DefaultActionTimeout
	}
	return context.WithTimeout(ctx, timeout)
}

type query struct {
	expr  string
	xpath bool
}

// translate maps a locator onto rod's two query APIs.
func translate(loc locator.Locator) (query, error) {
	if loc.Kind == locator.XPath {
		if loc.Value == "" {
			return query{}, fmt.Errorf("roddriver: empty xpath")
		}
		return query{expr: loc.Value, xpath: true}, nil
	}
	css, err := loc.CSSSelector()
	if err != nil {
		return query{}, err
	}
	return query{expr: css}, nil
}
