// Package trigger adds the "Trigger Download" button to the content list and
// waits for the user to press it.
package trigger

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/cantalupo555/kindle-bulk-downloader/internal/dom"
)

// Label is the button text.
const Label = "Trigger Download"

// Button waits for the injected button to be clicked.
type Button struct {
	// Poll is how often the page is checked.
	Poll time.Duration
	// Matches reports whether the button belongs on pageURL.
	Matches func(pageURL string) bool
	Log     *zap.SugaredLogger
}

// Wait installs the button whenever the current page matches, and returns
// once it has been pressed. Navigation wipes the button, so it is
// re-installed on every check.
func (b Button) Wait(ctx context.Context, d dom.Driver) error {
	b.Log.Infof("Open the book list page you want to start from and press %q in the browser window.", Label)

	ticker := time.NewTicker(b.Poll)
	defer ticker.Stop()

	shown := false
	for {
		pressed, visible, err := b.check(ctx, d)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			b.Log.Debugw("trigger check failed", "error", err)
		}
		if pressed {
			b.Log.Info("Trigger pressed, starting.")
			return nil
		}
		if visible && !shown {
			b.Log.Debug("trigger button installed")
		}
		shown = visible

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (b Button) check(ctx context.Context, d dom.Driver) (pressed, visible bool, err error) {
	pageURL, err := d.Location(ctx)
	if err != nil {
		return false, false, err
	}
	if b.Matches != nil && !b.Matches(pageURL) {
		return false, false, nil
	}

	if err := d.Eval(ctx, dom.InstallTriggerScript(Label), &visible); err != nil {
		return false, false, fmt.Errorf("installing button: %w", err)
	}
	if err := d.Eval(ctx, dom.TriggeredScript(), &pressed); err != nil {
		return false, visible, fmt.Errorf("reading button state: %w", err)
	}
	return pressed, visible, nil
}
