// Package auth detects the Amazon sign-in page and waits for the user to
// sign in from the browser window.
package auth

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/cantalupo555/kindle-bulk-downloader/internal/dom"
)

// signInPaths are the path prefixes Amazon redirects to when the session
// is missing or expired.
var signInPaths = []string{"/ap/signin", "/ap/mfa", "/ap/cvf", "/ap/challenge"}

// IsSignInPage reports whether pageURL is part of the Amazon sign-in flow.
func IsSignInPage(pageURL string) bool {
	u, err := url.Parse(pageURL)
	if err != nil {
		return false
	}
	for _, p := range signInPaths {
		if strings.HasPrefix(u.Path, p) {
			return true
		}
	}
	return false
}

// CheckLoginStatus reports whether the current page is outside the sign-in
// flow.
func CheckLoginStatus(ctx context.Context, d dom.Driver) (bool, error) {
	pageURL, err := d.Location(ctx)
	if err != nil {
		return false, fmt.Errorf("could not get current URL: %w", err)
	}
	return !IsSignInPage(pageURL), nil
}

// Waiter polls the login status until the user has signed in.
type Waiter struct {
	Interval time.Duration
	Timeout  time.Duration
	Log      *zap.SugaredLogger
}

// WaitForLogin waits for the user to complete login within the timeout period.
// Returns nil if login is successful, error if timeout or check fails.
func (w Waiter) WaitForLogin(ctx context.Context, d dom.Driver) error {
	w.Log.Warn("⚠️  You are NOT signed in to Amazon!")
	w.Log.Warn("⚠️  Please sign in in the browser window.")
	w.Log.Infof("Waiting for sign-in (checking every %v, max %v)...", w.Interval, w.Timeout)

	timeout := time.NewTimer(w.Timeout)
	defer timeout.Stop()
	check := time.NewTicker(w.Interval)
	defer check.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timeout.C:
			return fmt.Errorf("login timeout: user did not sign in within %v", w.Timeout)
		case <-check.C:
			ok, err := CheckLoginStatus(ctx, d)
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				w.Log.Warnf("Login check failed: %v", err)
				continue
			}
			if ok {
				w.Log.Info("✓ Sign-in detected!")
				return nil
			}
			w.Log.Debug("Still waiting for sign-in...")
		}
	}
}

// EnsureLoggedIn returns at once when the current page is not a sign-in
// page, and otherwise waits for the user. A failed first check is logged
// and treated as signed out.
func (w Waiter) EnsureLoggedIn(ctx context.Context, d dom.Driver) error {
	ok, err := CheckLoginStatus(ctx, d)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		w.Log.Warnf("Could not check login status: %v", err)
	}
	if ok {
		return nil
	}
	return w.WaitForLogin(ctx, d)
}
