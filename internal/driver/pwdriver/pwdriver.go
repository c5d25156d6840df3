// Package pwdriver runs the page objects through playwright-go. It covers
// the browsers rod cannot drive.
package pwdriver

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/playwright-community/playwright-go"

	"github.com/v0xg/dashdriver/internal/driver"
	"github.com/v0xg/dashdriver/internal/locator"
)

// Options configures the browser.
type Options struct {
	// Bin is a Chromium executable; empty uses the one playwright installs.
	Bin      string
	Headless bool
	Width    int
	Height   int
	// Profile launches a persistent context in this user data directory.
	Profile string
	// Remote is a CDP endpoint to connect to instead of launching.
	Remote string
	// Install downloads the driver and browsers on first use.
	Install     bool
	LoadTimeout time.Duration
	Logger      *slog.Logger
}

// Driver is one playwright page.
type Driver struct {
	pw      *playwright.Playwright
	browser playwright.Browser
	bctx    playwright.BrowserContext
	page    playwright.Page
	log     *slog.Logger
}

var (
	_ driver.Driver        = (*Driver)(nil)
	_ driver.Screenshotter = (*Driver)(nil)
)

func launchOptions(opts Options) playwright.BrowserTypeLaunchOptions {
	lo := playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(opts.Headless),
		Args:     []string{"--disable-blink-features=AutomationControlled"},
	}
	if opts.Bin != "" {
		lo.ExecutablePath = playwright.String(opts.Bin)
	}
	return lo
}

func viewport(opts Options) *playwright.Size {
	if opts.Width <= 0 || opts.Height <= 0 {
		return nil
	}
	return &playwright.Size{Width: opts.Width, Height: opts.Height}
}

// Open starts playwright, gets a page by launching, connecting or opening
// a persistent profile, and loads url.
func Open(ctx context.Context, url string, opts Options) (*Driver, error) {
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	if opts.LoadTimeout <= 0 {
		opts.LoadTimeout = 30 * time.Second
	}

	runOpts := &playwright.RunOptions{Browsers: []string{"chromium"}, Stdout: io.Discard, Stderr: io.Discard}
	if opts.Install {
		if err := playwright.Install(runOpts); err != nil {
			return nil, fmt.Errorf("pwdriver: install: %w", err)
		}
	}
	pw, err := playwright.Run(runOpts)
	if err != nil {
		return nil, fmt.Errorf("pwdriver: start playwright: %w", err)
	}
	d := &Driver{pw: pw, log: log}

	switch {
	case opts.Remote != "":
		log.Info("pwdriver: connecting over cdp", "url", opts.Remote)
		d.browser, err = pw.Chromium.ConnectOverCDP(opts.Remote)
		if err == nil {
			d.bctx, err = d.browser.NewContext(playwright.BrowserNewContextOptions{Viewport: viewport(opts)})
		}
	case opts.Profile != "":
		lo := launchOptions(opts)
		d.bctx, err = pw.Chromium.LaunchPersistentContext(opts.Profile, playwright.BrowserTypeLaunchPersistentContextOptions{
			Headless:       lo.Headless,
			ExecutablePath: lo.ExecutablePath,
			Args:           lo.Args,
			Viewport:       viewport(opts),
		})
	default:
		d.browser, err = pw.Chromium.Launch(launchOptions(opts))
		if err == nil {
			d.bctx, err = d.browser.NewContext(playwright.BrowserNewContextOptions{Viewport: viewport(opts)})
		}
	}
	if err != nil {
		d.Close()
		return nil, fmt.Errorf("pwdriver: launch: %w", err)
	}

	if d.page, err = d.bctx.NewPage(); err != nil {
		d.Close()
		return nil, fmt.Errorf("pwdriver: create page: %w", err)
	}
	if err := d.Navigate(ctx, url, opts.LoadTimeout); err != nil {
		d.Close()
		return nil, err
	}
	log.Info("pwdriver: page loaded", "url", url, "headless", opts.Headless)
	return d, nil
}

// Navigate loads url and waits for the load event.
func (d *Driver) Navigate(ctx context.Context, url string, timeout time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if dl, ok := ctx.Deadline(); ok && time.Until(dl) < timeout {
		timeout = time.Until(dl)
	}
	_, err := d.page.Goto(url, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateLoad,
		Timeout:   playwright.Float(float64(timeout.Milliseconds())),
	})
	if err != nil {
		return fmt.Errorf("pwdriver: navigate %s: %w", url, err)
	}
	return nil
}

// Page exposes the playwright page.
func (d *Driver) Page() playwright.Page { return d.page }

// Close releases the page, context, browser and driver process.
func (d *Driver) Close() error {
	var errs []error
	if d.bctx != nil {
		errs = append(errs, d.bctx.Close())
	}
	if d.browser != nil {
		errs = append(errs, d.browser.Close())
	}
	if d.pw != nil {
		errs = append(errs, d.pw.Stop())
	}
	for _, err := range errs {
		if err != nil {
			return fmt.Errorf("pwdriver: close: %w", err)
		}
	}
	return nil
}

// Find implements driver.Driver. QuerySelectorAll returns the current
// matches without auto-waiting.
func (d *Driver) Find(ctx context.Context, loc locator.Locator, scope driver.Node) ([]driver.Node, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	sel, err := selector(loc)
	if err != nil {
		return nil, err
	}

	var handles []playwright.ElementHandle
	if scope == nil {
		handles, err = d.page.QuerySelectorAll(sel)
	} else {
		sn, ok := scope.(*node)
		if !ok {
			return nil, fmt.Errorf("pwdriver: scope %T is not a playwright node", scope)
		}
		attached, aerr := sn.Attached(ctx)
		if aerr != nil {
			return nil, aerr
		}
		if !attached {
			return nil, driver.ErrDetached
		}
		handles, err = sn.h.QuerySelectorAll(sel)
	}
	if err != nil {
		return nil, fmt.Errorf("pwdriver: find %s: %w", loc, err)
	}

	nodes := make([]driver.Node, len(handles))
	for i, h := range handles {
		nodes[i] = &node{h: h}
	}
	return nodes, nil
}

// Screenshot implements driver.Screenshotter.
func (d *Driver) Screenshot(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := d.page.Screenshot(playwright.PageScreenshotOptions{
		Type:    playwright.ScreenshotTypePng,
		Timeout: timeoutMS(ctx),
	})
	if err != nil {
		return nil, fmt.Errorf("pwdriver: screenshot: %w", err)
	}
	return data, nil
}

// selector maps a locator onto playwright's engine-prefixed syntax.
func selector(loc locator.Locator) (string, error) {
	if loc.Kind == locator.XPath {
		if loc.Value == "" {
			return "", fmt.Errorf("pwdriver: empty xpath")
		}
		return "xpath=" + loc.Value, nil
	}
	css, err := loc.CSSSelector()
	if err != nil {
		return "", err
	}
	return "css=" + css, nil
}

// timeoutMS converts the context deadline to playwright's millisecond
// timeout. No deadline leaves playwright's default in place.
func timeoutMS(ctx context.Context) *float64 {
	dl, ok := ctx.Deadline()
	if !ok {
		return nil
	}
	ms := float64(time.Until(dl).Milliseconds())
	if ms < 1 {
		ms = 1
	}
	return playwright.Float(ms)
}
