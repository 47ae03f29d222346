// Package runner walks the content list page by page and runs the transfer
// sequence on every row.
package runner

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/cantalupo555/kindle-bulk-downloader/internal/config"
	"github.com/cantalupo555/kindle-bulk-downloader/internal/datefilter"
	"github.com/cantalupo555/kindle-bulk-downloader/internal/dom"
	"github.com/cantalupo555/kindle-bulk-downloader/internal/download"
	"github.com/cantalupo555/kindle-bulk-downloader/internal/library"
	"github.com/cantalupo555/kindle-bulk-downloader/internal/navigation"
	"github.com/cantalupo555/kindle-bulk-downloader/internal/report"
)

// CompletionMessage is shown in the page once the last page is done.
const CompletionMessage = "Reached the last page - we should be good!"

// Options tune a run.
type Options struct {
	// Limit caps the rows processed per page; 0 processes all of them.
	Limit int
	// MaxPages stops the run after that many pages; 0 walks all of them.
	MaxPages int
	// Filter skips rows acquired outside its range. Nil disables it.
	Filter *datefilter.DateRange
	// DryRun extracts rows without clicking any row control.
	DryRun bool
	// OnRow is called with every extracted row, samples included.
	OnRow func(library.Row)
}

// Runner owns one pass over the content list.
type Runner struct {
	driver      dom.Driver
	cfg         *config.Config
	log         *zap.SugaredLogger
	opts        Options
	stats       *report.Stats
	transferrer download.Transferrer
	paginator   navigation.Paginator
}

// New returns a runner driving d. Statistics are recorded into stats.
func New(d dom.Driver, cfg *config.Config, log *zap.SugaredLogger, stats *report.Stats, opts Options) *Runner {
	return &Runner{
		driver: d,
		cfg:    cfg,
		log:    log,
		opts:   opts,
		stats:  stats,
		transferrer: download.Transferrer{
			Driver:    d,
			Selectors: cfg.Selectors,
			Timeouts:  cfg.Timeouts,
			Log:       log,
		},
		paginator: navigation.Paginator{
			Driver:       d,
			NextSelector: cfg.Selectors.NextPage,
			Settle:       cfg.Timeouts.PageSettle,
			Log:          log,
		},
	}
}

// Run processes the page currently shown and every page after it. Rows are
// re-queried from scratch on each page. It returns nil when the last page
// is done. It returns navigation.ErrNotAdvanced when a next page exists but
// could not be opened, and other errors when the page cannot be read or ctx
// ends.
func (r *Runner) Run(ctx context.Context) error {
	for page := 1; ; page++ {
		listing, err := r.snapshot(ctx)
		if err != nil {
			return err
		}
		r.stats.Pages++

		if err := r.processPage(ctx, listing); err != nil {
			return err
		}

		if r.opts.MaxPages > 0 && page >= r.opts.MaxPages {
			r.log.Infof("Stopping after %d page(s) as requested.", page)
			return nil
		}

		if listing.HasNext {
			advanced, err := r.paginator.Next(ctx)
			if err != nil {
				return err
			}
			if advanced {
				continue
			}
			r.log.Warnf("Stopped on page %s: next page could not be opened.", pageLabel(listing))
			return navigation.ErrNotAdvanced
		}

		r.log.Info("No next page found. All dropdowns processed.")
		return r.complete(ctx)
	}
}

func (r *Runner) snapshot(ctx context.Context) (*library.Listing, error) {
	html, err := r.driver.HTML(ctx)
	if err != nil {
		return nil, err
	}
	listing, err := library.Parse(html, r.cfg)
	if err != nil {
		return nil, fmt.Errorf("%w (check the selectors in the config file)", err)
	}
	return listing, nil
}

func (r *Runner) processPage(ctx context.Context, listing *library.Listing) error {
	total := len(listing.Rows)
	if r.opts.Limit > 0 && r.opts.Limit < total {
		total = r.opts.Limit
	}

	r.log.Infof("Processing %d dropdowns on page %s...", total, pageLabel(listing))

	for i := 0; i < total; i++ {
		if err := r.processRow(ctx, listing.Rows[i], i+1, total); err != nil {
			return err
		}
	}
	return nil
}

func (r *Runner) processRow(ctx context.Context, row library.Row, n, total int) error {
	r.stats.RowsSeen++

	fields, _ := json.Marshal(row)
	r.log.Infof("Dropdown %d/%d: %s", n, total, fields)
	if r.opts.OnRow != nil {
		r.opts.OnRow(row)
	}

	if row.IsSample() {
		r.stats.SamplesSkipped++
		r.log.Infof("Dropdown %d/%d ignoring because it is a SAMPLE: %q", n, total, row.Title)
		return nil
	} else if row.Tags != "" {
		r.log.Infof("Dropdown %d/%d found tags: %s", n, total, row.Tags)
	}

	if r.opts.Filter != nil && r.opts.Filter.Enabled {
		inRange, err := r.opts.Filter.IsInRange(row.Acquired)
		if err != nil {
			r.stats.Filtered++
			r.log.Warnf("Dropdown %d/%d skipped, unreadable acquisition date %q: %v", n, total, row.Acquired, err)
			return nil
		}
		if !inRange {
			r.stats.Filtered++
			r.log.Infof("Dropdown %d/%d skipped, acquired %s is outside %s", n, total, row.Acquired, r.opts.Filter)
			return nil
		}
	}

	if r.opts.DryRun {
		return nil
	}

	res, err := r.transferrer.Transfer(ctx, row.Index, total)
	if err != nil {
		return err
	}
	if res.Confirmed {
		r.stats.Transfers++
	}
	if !res.Complete() {
		r.stats.Incomplete++
	}

	if err := dom.Sleep(ctx, r.cfg.Timeouts.RowPause); err != nil {
		return err
	}
	r.log.Infof("Dropdown %d/%d processed.", n, total)
	return nil
}

func pageLabel(listing *library.Listing) string {
	if listing.Page == "" {
		return "?"
	}
	return listing.Page
}

// complete shows the completion signal in the page.
func (r *Runner) complete(ctx context.Context) error {
	if r.opts.DryRun {
		return nil
	}
	if err := r.driver.Eval(ctx, dom.AlertScript(CompletionMessage), nil); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		r.log.Warnf("Could not show the completion alert: %v", err)
	}
	return nil
}
