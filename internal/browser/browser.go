// Package browser provides the Chrome/chromedp implementation of dom.Driver.
package browser

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/cdproto/browser"
	"github.com/chromedp/cdproto/cdp"
	cdpdom "github.com/chromedp/cdproto/dom"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/cantalupo555/kindle-bulk-downloader/internal/dom"
)

// queryTimeout bounds queries that are not supposed to wait.
const queryTimeout = 10 * time.Second

// Config holds browser configuration options.
type Config struct {
	ExecPath     string
	ProfilePath  string
	DownloadDir  string
	WindowWidth  int
	WindowHeight int
	Headless     bool
}

// DefaultConfig returns default browser configuration.
func DefaultConfig() Config {
	return Config{
		ExecPath:     "chromium",
		WindowWidth:  1920,
		WindowHeight: 1080,
	}
}

// Context holds the browser contexts and cancel functions. It implements
// dom.Driver over the first tab.
type Context struct {
	Ctx         context.Context
	AllocCancel context.CancelFunc
	CtxCancel   context.CancelFunc
}

var _ dom.Driver = (*Context)(nil)

// New starts the browser and opens its first tab. Closing parent closes
// the browser.
func New(parent context.Context, cfg Config, log *zap.SugaredLogger) (*Context, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.ExecPath(cfg.ExecPath),
		chromedp.UserDataDir(cfg.ProfilePath),
		chromedp.Flag("headless", cfg.Headless),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.WindowSize(cfg.WindowWidth, cfg.WindowHeight),
	)

	allocCtx, allocCancel := chromedp.NewExecAllocator(parent, opts...)

	ctx, ctxCancel := chromedp.NewContext(allocCtx,
		chromedp.WithLogf(log.Debugf),
		chromedp.WithErrorf(log.Debugf),
	)

	// The first Run starts the browser process.
	if err := chromedp.Run(ctx); err != nil {
		ctxCancel()
		allocCancel()
		return nil, fmt.Errorf("starting browser %s: %w", cfg.ExecPath, err)
	}

	return &Context{
		Ctx:         ctx,
		AllocCancel: allocCancel,
		CtxCancel:   ctxCancel,
	}, nil
}

// Close closes all browser contexts.
func (c *Context) Close() {
	if c.CtxCancel != nil {
		c.CtxCancel()
	}
	if c.AllocCancel != nil {
		c.AllocCancel()
	}
}

// run executes actions on the tab, bounded by timeout (0 for none) and by
// the caller's ctx.
func (c *Context) run(ctx context.Context, timeout time.Duration, actions ...chromedp.Action) error {
	var (
		runCtx context.Context
		cancel context.CancelFunc
	)
	if timeout > 0 {
		runCtx, cancel = context.WithTimeout(c.Ctx, timeout)
	} else {
		runCtx, cancel = context.WithCancel(c.Ctx)
	}
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	err := chromedp.Run(runCtx, actions...)
	if err != nil && ctx.Err() != nil {
		return ctx.Err()
	}
	return err
}

// Navigate navigates to the given URL.
func (c *Context) Navigate(ctx context.Context, url string) error {
	if err := c.run(ctx, 0,
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
	); err != nil {
		return fmt.Errorf("navigating to %s: %w", url, err)
	}
	return nil
}

// Location returns the current page URL.
func (c *Context) Location(ctx context.Context) (string, error) {
	var url string
	if err := c.run(ctx, queryTimeout, chromedp.Location(&url)); err != nil {
		return "", err
	}
	return url, nil
}

// HTML returns the outer HTML of the document.
func (c *Context) HTML(ctx context.Context) (string, error) {
	var html string
	if err := c.run(ctx, queryTimeout, chromedp.OuterHTML("html", &html, chromedp.ByQuery)); err != nil {
		return "", fmt.Errorf("reading page HTML: %w", err)
	}
	return html, nil
}

// ClickNth clicks the n-th element currently matching selector.
func (c *Context) ClickNth(ctx context.Context, selector string, n int) error {
	return c.run(ctx, queryTimeout, chromedp.ActionFunc(func(ctx context.Context) error {
		node, err := nth(ctx, selector, n)
		if err != nil {
			return err
		}
		return jsClick(node).Do(ctx)
	}))
}

// WaitClick waits for selector inside scope and clicks the first match.
func (c *Context) WaitClick(ctx context.Context, scope dom.Scope, selector string, timeout time.Duration) error {
	err := c.run(ctx, timeout, chromedp.ActionFunc(func(ctx context.Context) error {
		opts := []chromedp.QueryOption{chromedp.ByQuery}
		if !scope.IsDocument() {
			root, err := nth(ctx, scope.Selector, scope.Index)
			if err != nil {
				return err
			}
			opts = append(opts, chromedp.FromNode(root))
		}

		var nodes []*cdp.Node
		if err := chromedp.Nodes(selector, &nodes, opts...).Do(ctx); err != nil {
			return err
		}
		return jsClick(nodes[0]).Do(ctx)
	}))
	if err != nil && ctx.Err() == nil {
		return fmt.Errorf("%w: %s in %s: %v", dom.ErrNotFound, selector, scope, err)
	}
	return err
}

// Eval runs a function expression in the page.
func (c *Context) Eval(ctx context.Context, fn string, out any) error {
	return c.run(ctx, queryTimeout, chromedp.Evaluate(dom.Invoke(fn), out))
}

// ConfigureDownloads sets up the download directory for the browser.
func (c *Context) ConfigureDownloads(ctx context.Context, downloadDir string) error {
	return c.run(ctx, queryTimeout,
		browser.SetDownloadBehavior(browser.SetDownloadBehaviorBehaviorAllow).
			WithDownloadPath(downloadDir).
			WithEventsEnabled(true),
	)
}

// nth returns the n-th element matching selector without waiting for more
// matches to appear.
func nth(ctx context.Context, selector string, n int) (*cdp.Node, error) {
	var nodes []*cdp.Node
	if err := chromedp.Nodes(selector, &nodes, chromedp.ByQueryAll, chromedp.AtLeast(0)).Do(ctx); err != nil {
		return nil, err
	}
	if n < 0 || n >= len(nodes) {
		return nil, fmt.Errorf("%w: %s[%d] (%d matches)", dom.ErrNotFound, selector, n, len(nodes))
	}
	return nodes[n], nil
}

// jsClick dispatches a DOM click on node, like element.click() in the page.
// It does not need the element to be on screen or uncovered.
func jsClick(node *cdp.Node) chromedp.ActionFunc {
	return func(ctx context.Context) error {
		obj, err := cdpdom.ResolveNode().WithBackendNodeID(node.BackendNodeID).Do(ctx)
		if err != nil {
			return fmt.Errorf("resolving node: %w", err)
		}
		defer runtime.ReleaseObject(obj.ObjectID).Do(ctx)

		_, exc, err := runtime.CallFunctionOn(`function() { this.click(); }`).
			WithObjectID(obj.ObjectID).
			Do(ctx)
		if err != nil {
			return err
		}
		if exc != nil {
			return exc
		}
		return nil
	}
}
