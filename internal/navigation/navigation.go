// Package navigation handles pagination of the content list.
package navigation

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/cantalupo555/kindle-bulk-downloader/internal/dom"
)

// ErrNotAdvanced is returned by a run that stopped because the next-page
// control was present but could not be clicked.
var ErrNotAdvanced = errors.New("next page could not be opened")

// Paginator moves the content list to its next page.
type Paginator struct {
	Driver dom.Driver
	// NextSelector matches the control right after the active page.
	NextSelector string
	// Settle is the fixed pause for the new page's rows to load.
	Settle time.Duration
	Log    *zap.SugaredLogger
}

// Next clicks the next-page control and waits for the page to settle. It
// reports false when the control could not be clicked, which ends the run.
func (p Paginator) Next(ctx context.Context) (bool, error) {
	if err := p.Driver.ClickNth(ctx, p.NextSelector, 0); err != nil {
		if ctx.Err() != nil {
			return false, ctx.Err()
		}
		p.Log.Warnf("Next page control could not be clicked: %v", err)
		return false, nil
	}

	p.Log.Info("Clicked next page... waiting for content to load.")
	if err := dom.Sleep(ctx, p.Settle); err != nil {
		return false, err
	}
	return true, nil
}
