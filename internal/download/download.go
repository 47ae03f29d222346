// Package download runs the "Download & transfer via USB" sequence for one
// book row.
package download

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/cantalupo555/kindle-bulk-downloader/internal/config"
	"github.com/cantalupo555/kindle-bulk-downloader/internal/dom"
)

// Result records which steps of the sequence succeeded.
type Result struct {
	Opened    bool
	Menu      bool
	Device    bool
	Confirmed bool
	Dismissed bool
}

// Complete reports whether every step succeeded.
func (r Result) Complete() bool {
	return r.Opened && r.Menu && r.Device && r.Confirmed && r.Dismissed
}

// Transferrer clicks through the transfer dialog of a row.
type Transferrer struct {
	Driver    dom.Driver
	Selectors config.Selectors
	Timeouts  config.Timeouts
	Log       *zap.SugaredLogger
}

type step struct {
	scope    dom.Scope
	selector string
	timeout  time.Duration
	done     string
	missing  string
	result   *bool
}

// Transfer opens the dropdown of the row at index (0-based, of total rows on
// the page) and clicks through the transfer dialog. Each step may fail on
// its own; failures are logged and the next step is tried. Only context
// cancellation is returned as an error.
func (t Transferrer) Transfer(ctx context.Context, index, total int) (Result, error) {
	var res Result
	n, of := index+1, total
	dropdown := dom.Scope{Selector: t.Selectors.Dropdown, Index: index}

	if err := t.Driver.ClickNth(ctx, t.Selectors.Dropdown, index); err != nil {
		if ctx.Err() != nil {
			return res, ctx.Err()
		}
		t.Log.Warnf("Dropdown %d/%d could not be opened: %v", n, of, err)
	} else {
		res.Opened = true
		t.Log.Infof("Dropdown %d/%d opened.", n, of)
	}

	steps := []step{
		{
			scope:    dropdown,
			selector: t.Selectors.DownloadTransfer,
			timeout:  t.Timeouts.Element,
			done:     "Download & Transfer button clicked.",
			missing:  "Download & Transfer button not found for this dropdown. Skipping...",
			result:   &res.Menu,
		},
		{
			scope:    dropdown,
			selector: t.Selectors.Device,
			timeout:  t.Timeouts.Element,
			done:     "Download to Kindle list option selected.",
			missing:  "No Kindle option available in this dropdown. Skipping...",
			result:   &res.Device,
		},
		{
			scope:    dropdown,
			selector: t.Selectors.Confirm,
			timeout:  t.Timeouts.Element,
			done:     "Confirm Download button clicked.",
			missing:  "Confirm Download button not found. Skipping...",
			result:   &res.Confirmed,
		},
		{
			scope:    dom.Document,
			selector: t.Selectors.NotificationX,
			timeout:  t.Timeouts.Notification,
			done:     "Notification close button clicked.",
			missing:  "Notification close button not found or did not appear. Skipping...",
			result:   &res.Dismissed,
		},
	}

	for _, s := range steps {
		ok, err := dom.ClickWhenReady(ctx, t.Driver, t.Log, s.scope, s.selector, s.timeout)
		if err != nil {
			return res, err
		}
		*s.result = ok
		if ok {
			t.Log.Infof("Dropdown %d/%d %s", n, of, s.done)
		} else {
			t.Log.Warnf("Dropdown %d/%d %s", n, of, s.missing)
		}
	}

	return res, ctx.Err()
}
