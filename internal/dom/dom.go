// Package dom abstracts the live page the downloader drives, so the row loop
// works the same over chromedp, go-rod or an in-memory fake.
package dom

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// ErrNotFound is returned by drivers when a selector matched nothing before
// the timeout, or when a scope index is out of range.
var ErrNotFound = errors.New("element not found")

// Scope restricts a query to the subtree of the Index-th element matching
// Selector. The zero value is the whole document.
type Scope struct {
	Selector string
	Index    int
}

// Document is the scope of the whole page.
var Document = Scope{}

// IsDocument reports whether the scope is the whole page.
func (s Scope) IsDocument() bool {
	return s.Selector == ""
}

func (s Scope) String() string {
	if s.IsDocument() {
		return "document"
	}
	return fmt.Sprintf("%s[%d]", s.Selector, s.Index)
}

// Driver is the set of page operations the downloader needs.
type Driver interface {
	// Navigate loads url and waits for the document to be ready.
	Navigate(ctx context.Context, url string) error
	// Location returns the URL of the current document.
	Location(ctx context.Context) (string, error)
	// HTML returns the outer HTML of the current document.
	HTML(ctx context.Context) (string, error)
	// ClickNth clicks the n-th element currently matching selector, without
	// waiting. It returns ErrNotFound if there is no such element.
	ClickNth(ctx context.Context, selector string, n int) error
	// WaitClick waits up to timeout for selector to match inside scope, then
	// clicks the first match.
	WaitClick(ctx context.Context, scope Scope, selector string, timeout time.Duration) error
	// Eval runs a JavaScript function expression (for example "() => 1")
	// in the page and decodes its result into out, which may be nil.
	Eval(ctx context.Context, fn string, out any) error
}

// ClickWhenReady waits for selector inside scope and clicks it. A missing
// element is not an error: a warning is logged and false is returned. Only
// cancellation of ctx is reported as an error.
func ClickWhenReady(ctx context.Context, d Driver, log *zap.SugaredLogger, scope Scope, selector string, timeout time.Duration) (bool, error) {
	err := d.WaitClick(ctx, scope, selector, timeout)
	if err == nil {
		log.Debugw("clicked", "selector", selector, "scope", scope.String())
		return true, nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return false, ctxErr
	}
	log.Warnf("Selector %s not found within %dms. Skipping...", selector, timeout.Milliseconds())
	log.Debugw("wait click failed", "selector", selector, "scope", scope.String(), "error", err)
	return false, nil
}

// Sleep pauses for d or until ctx is done.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
