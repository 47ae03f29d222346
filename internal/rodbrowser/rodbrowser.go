// Package rodbrowser implements dom.Driver with go-rod, as an alternative to
// the chromedp driver for browsers where chromedp's allocator misbehaves.
package rodbrowser

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"

	"github.com/cantalupo555/kindle-bulk-downloader/internal/browser"
	"github.com/cantalupo555/kindle-bulk-downloader/internal/dom"
)

const queryTimeout = 10 * time.Second

// Browser is a launched browser with one tab.
type Browser struct {
	launcher *launcher.Launcher
	browser  *rod.Browser
	page     *rod.Page
}

var _ dom.Driver = (*Browser)(nil)

// New launches the browser described by cfg and opens a blank tab.
func New(ctx context.Context, cfg browser.Config) (*Browser, error) {
	l := launcher.New().
		UserDataDir(cfg.ProfilePath).
		Headless(cfg.Headless).
		NoSandbox(true).
		Set("disable-dev-shm-usage").
		Set("window-size", fmt.Sprintf("%d,%d", cfg.WindowWidth, cfg.WindowHeight))
	if cfg.ExecPath != "" {
		l = l.Bin(cfg.ExecPath)
	}

	controlURL, err := l.Context(ctx).Launch()
	if err != nil {
		return nil, fmt.Errorf("launch browser: %w", err)
	}

	b := rod.New().ControlURL(controlURL).Context(ctx)
	if err := b.Connect(); err != nil {
		l.Kill()
		return nil, fmt.Errorf("connect to browser: %w", err)
	}

	page, err := b.Page(proto.TargetCreateTarget{URL: "about:blank"})
	if err != nil {
		_ = b.Close()
		l.Kill()
		return nil, fmt.Errorf("open tab: %w", err)
	}

	return &Browser{launcher: l, browser: b, page: page}, nil
}

// Close shuts the browser down. The profile directory is kept.
func (b *Browser) Close() {
	_ = b.browser.Close()
	b.launcher.Kill()
}

// on returns the tab bound to ctx and timeout (0 for none).
func (b *Browser) on(ctx context.Context, timeout time.Duration) (*rod.Page, context.CancelFunc) {
	if timeout > 0 {
		ctx, cancel := context.WithTimeout(ctx, timeout)
		return b.page.Context(ctx), cancel
	}
	ctx, cancel := context.WithCancel(ctx)
	return b.page.Context(ctx), cancel
}

// Navigate implements dom.Driver.
func (b *Browser) Navigate(ctx context.Context, url string) error {
	page, cancel := b.on(ctx, 0)
	defer cancel()

	if err := page.Navigate(url); err != nil {
		return fmt.Errorf("navigating to %s: %w", url, err)
	}
	if err := page.WaitLoad(); err != nil {
		return fmt.Errorf("waiting for %s: %w", url, err)
	}
	return nil
}

// Location implements dom.Driver.
func (b *Browser) Location(ctx context.Context) (string, error) {
	page, cancel := b.on(ctx, queryTimeout)
	defer cancel()

	info, err := page.Info()
	if err != nil {
		return "", err
	}
	return info.URL, nil
}

// HTML implements dom.Driver.
func (b *Browser) HTML(ctx context.Context) (string, error) {
	page, cancel := b.on(ctx, queryTimeout)
	defer cancel()

	html, err := page.HTML()
	if err != nil {
		return "", fmt.Errorf("reading page HTML: %w", err)
	}
	return html, nil
}

// ClickNth implements dom.Driver.
func (b *Browser) ClickNth(ctx context.Context, selector string, n int) error {
	page, cancel := b.on(ctx, queryTimeout)
	defer cancel()

	el, err := nth(page, selector, n)
	if err != nil {
		return err
	}
	return click(el)
}

// WaitClick implements dom.Driver. rod retries element lookups until the
// page context expires.
func (b *Browser) WaitClick(ctx context.Context, scope dom.Scope, selector string, timeout time.Duration) error {
	page, cancel := b.on(ctx, timeout)
	defer cancel()

	var (
		el  *rod.Element
		err error
	)
	if scope.IsDocument() {
		el, err = page.Element(selector)
	} else {
		var root *rod.Element
		if root, err = nth(page, scope.Selector, scope.Index); err == nil {
			el, err = root.Element(selector)
		}
	}
	if err == nil {
		err = click(el)
	}
	if err != nil && ctx.Err() == nil {
		return fmt.Errorf("%w: %s in %s: %v", dom.ErrNotFound, selector, scope, err)
	}
	if err != nil {
		return ctx.Err()
	}
	return nil
}

// Eval implements dom.Driver.
func (b *Browser) Eval(ctx context.Context, fn string, out any) error {
	page, cancel := b.on(ctx, queryTimeout)
	defer cancel()

	res, err := page.Eval(fn)
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	raw, err := res.Value.MarshalJSON()
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, out)
}

// ConfigureDownloads sets the directory downloads are saved to.
func (b *Browser) ConfigureDownloads(ctx context.Context, downloadDir string) error {
	return proto.BrowserSetDownloadBehavior{
		Behavior:      proto.BrowserSetDownloadBehaviorBehaviorAllow,
		DownloadPath:  downloadDir,
		EventsEnabled: true,
	}.Call(b.browser.Context(ctx))
}

func nth(page *rod.Page, selector string, n int) (*rod.Element, error) {
	els, err := page.Elements(selector)
	if err != nil {
		return nil, err
	}
	if n < 0 || n >= len(els) {
		return nil, fmt.Errorf("%w: %s[%d] (%d matches)", dom.ErrNotFound, selector, n, len(els))
	}
	return els[n], nil
}

// click dispatches element.click() so covered or off-screen elements are
// clicked the same way as on screen ones.
func click(el *rod.Element) error {
	_, err := el.Eval(`() => this.click()`)
	return err
}
