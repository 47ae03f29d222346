package browser

import (
	"context"
	"errors"
	"strings"
)

// ErrBrowserClosed reports that the browser window went away mid-run.
var ErrBrowserClosed = errors.New("browser closed")

// closedPatterns are messages chromedp and the DevTools websocket produce
// when the browser exits.
var closedPatterns = []string{
	"context canceled",
	"websocket: close",
	"target closed",
	"browser: not connected",
	"session closed",
	"page closed",
	"connection refused",
	"broken pipe",
	"use of closed network connection",
}

// IsBrowserClosed checks if an error indicates the browser was forcefully closed.
// This includes context canceled and common chromedp errors. A deadline is a
// slow page, not a closed one.
func IsBrowserClosed(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrBrowserClosed) || errors.Is(err, context.Canceled) {
		return true
	}

	msg := strings.ToLower(err.Error())
	for _, pattern := range closedPatterns {
		if strings.Contains(msg, pattern) {
			return true
		}
	}
	return false
}

// Classify maps driver errors caused by the browser going away to
// ErrBrowserClosed, unless the run itself was cancelled (Ctrl+C), in which
// case the context error is returned. Other errors pass through.
func Classify(ctx context.Context, err error) error {
	if err == nil {
		return nil
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if IsBrowserClosed(err) {
		return errors.Join(ErrBrowserClosed, err)
	}
	return err
}
