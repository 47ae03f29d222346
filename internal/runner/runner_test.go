package runner

import (
	"bytes"
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/cantalupo555/kindle-bulk-downloader/internal/config"
	"github.com/cantalupo555/kindle-bulk-downloader/internal/datefilter"
	"github.com/cantalupo555/kindle-bulk-downloader/internal/dom/domtest"
	"github.com/cantalupo555/kindle-bulk-downloader/internal/library"
	"github.com/cantalupo555/kindle-bulk-downloader/internal/navigation"
	"github.com/cantalupo555/kindle-bulk-downloader/internal/report"
	"github.com/cantalupo555/kindle-bulk-downloader/internal/sessionlog"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.Timeouts.Element = time.Millisecond
	cfg.Timeouts.Notification = time.Millisecond
	cfg.Timeouts.RowPause = 0
	cfg.Timeouts.PageSettle = 0
	return cfg
}

func books(prefix string, n int) []domtest.Book {
	out := make([]domtest.Book, n)
	for i := range out {
		out[i] = domtest.Book{
			ID:       fmt.Sprintf("%s%d", prefix, i),
			Title:    fmt.Sprintf("Book %s%d", prefix, i),
			Author:   "Author",
			Acquired: "June 1, 2020",
		}
	}
	return out
}

type harness struct {
	lib   *domtest.Library
	sel   config.Selectors
	log   *sessionlog.Log
	stats *report.Stats
	run   *Runner
}

func newHarness(lib *domtest.Library, opts Options) *harness {
	cfg := testConfig()
	logger, log := sessionlog.New(&bytes.Buffer{}, false)
	stats := report.New()
	return &harness{
		lib:   lib,
		sel:   cfg.Selectors,
		log:   log,
		stats: stats,
		run:   New(lib, cfg, logger.Sugar(), stats, opts),
	}
}

// dropdownOpens returns, per page, the indexes of the dropdowns opened.
func (h *harness) dropdownOpens() map[int][]int {
	out := map[int][]int{}
	for _, c := range h.lib.ClicksOn(h.sel.Dropdown) {
		out[c.Page] = append(out[c.Page], c.Index)
	}
	return out
}

func TestRunProcessesEveryRowOnce(t *testing.T) {
	lib := domtest.NewLibrary(books("a", 2), books("b", 3), books("c", 1))
	h := newHarness(lib, Options{})

	require.NoError(t, h.run.Run(context.Background()))

	assert.Equal(t, map[int][]int{0: {0, 1}, 1: {0, 1, 2}, 2: {0}}, h.dropdownOpens())
	assert.Len(t, lib.ClicksOn(h.sel.Confirm), 6)
	assert.Len(t, lib.ClicksOn(h.sel.NextPage), 2, "pagination advances exactly when a next page exists")
	assert.Equal(t, []string{CompletionMessage}, lib.Alerts())

	assert.Equal(t, 3, h.stats.Pages)
	assert.Equal(t, 6, h.stats.RowsSeen)
	assert.Equal(t, 6, h.stats.Transfers)
	assert.Zero(t, h.stats.Incomplete)
	assert.Empty(t, h.log.Warnings())

	entries := h.log.Entries()
	assert.Equal(t, "Processing 2 dropdowns on page 1...", entries[0])
	assert.Contains(t, entries, "Processing 3 dropdowns on page 2...")
	assert.Contains(t, entries, "Processing 1 dropdowns on page 3...")
	assert.Equal(t, "No next page found. All dropdowns processed.", entries[len(entries)-1])
}

func TestRunLogOrderFollowsEvents(t *testing.T) {
	lib := domtest.NewLibrary(books("a", 1))
	h := newHarness(lib, Options{})

	require.NoError(t, h.run.Run(context.Background()))

	assert.Equal(t, []string{
		"Processing 1 dropdowns on page 1...",
		`Dropdown 1/1: {"id":"a0","title":"Book a0","author":"Author","date":"June 1, 2020","url":"https://www.amazon.com/gp/product/a0"}`,
		"Dropdown 1/1 opened.",
		"Dropdown 1/1 Download & Transfer button clicked.",
		"Dropdown 1/1 Download to Kindle list option selected.",
		"Dropdown 1/1 Confirm Download button clicked.",
		"Dropdown 1/1 Notification close button clicked.",
		"Dropdown 1/1 processed.",
		"No next page found. All dropdowns processed.",
	}, h.log.Entries())
}

func TestRunSkipsSamples(t *testing.T) {
	page := books("a", 3)
	page[1].Tags = "Sample"
	page[2].Tags = "Prime Reading"
	lib := domtest.NewLibrary(page)
	h := newHarness(lib, Options{})

	require.NoError(t, h.run.Run(context.Background()))

	assert.Equal(t, map[int][]int{0: {0, 2}}, h.dropdownOpens())
	assert.Equal(t, 1, h.stats.SamplesSkipped)
	assert.Equal(t, 2, h.stats.Transfers)
	assert.Contains(t, h.log.Entries(), `Dropdown 2/3 ignoring because it is a SAMPLE: "Book a1"`)
	assert.Contains(t, h.log.Entries(), "Dropdown 3/3 found tags: Prime Reading")
}

func TestRunMissingElementsAreWarnings(t *testing.T) {
	lib := domtest.NewLibrary(books("a", 2), books("b", 1))
	h := newHarness(lib, Options{})
	lib.Missing[h.sel.Confirm] = true
	lib.Missing[h.sel.NotificationX] = true

	require.NoError(t, h.run.Run(context.Background()))

	assert.Equal(t, map[int][]int{0: {0, 1}, 1: {0}}, h.dropdownOpens(), "every row is still visited")
	assert.Zero(t, h.stats.Transfers)
	assert.Equal(t, 3, h.stats.Incomplete)

	warnings := h.log.Warnings()
	assert.Len(t, warnings, 12)
	assert.Contains(t, warnings, "WARN: Dropdown 1/1 Confirm Download button not found. Skipping...")
	assert.Contains(t, warnings, "WARN: Selector span[id=\"notification-close\"] not found within 1ms. Skipping...")
	assert.Equal(t, []string{CompletionMessage}, lib.Alerts())
}

func TestRunNextPageNotOpened(t *testing.T) {
	lib := domtest.NewLibrary(books("a", 2), books("b", 2))
	h := newHarness(lib, Options{})
	lib.Missing[h.sel.NextPage] = true

	err := h.run.Run(context.Background())
	assert.ErrorIs(t, err, navigation.ErrNotAdvanced)

	assert.Equal(t, 0, lib.Page())
	assert.Equal(t, map[int][]int{0: {0, 1}}, h.dropdownOpens())
	assert.Empty(t, lib.Alerts(), "a stuck run is not completion")

	entries := h.log.Entries()
	assert.Equal(t, "WARN: Stopped on page 1: next page could not be opened.", entries[len(entries)-1])
	assert.NotContains(t, entries, "No next page found. All dropdowns processed.")
}

func TestRunDateFilter(t *testing.T) {
	page := books("a", 3)
	page[0].Acquired = "January 5, 2019"
	page[2].Acquired = "not a date"
	filter, err := datefilter.NewDateRange("2020-01-01", "2020-12-31")
	require.NoError(t, err)

	lib := domtest.NewLibrary(page)
	h := newHarness(lib, Options{Filter: filter})

	require.NoError(t, h.run.Run(context.Background()))

	assert.Equal(t, map[int][]int{0: {1}}, h.dropdownOpens())
	assert.Equal(t, 2, h.stats.Filtered)
	assert.Len(t, h.log.Warnings(), 1)
}

func TestRunLimitAndMaxPages(t *testing.T) {
	lib := domtest.NewLibrary(books("a", 5), books("b", 5), books("c", 5))
	h := newHarness(lib, Options{Limit: 2, MaxPages: 2})

	require.NoError(t, h.run.Run(context.Background()))

	assert.Equal(t, map[int][]int{0: {0, 1}, 1: {0, 1}}, h.dropdownOpens())
	assert.Equal(t, 1, lib.Page())
	assert.Empty(t, lib.Alerts(), "stopping early is not completion")
	assert.Contains(t, h.log.Entries(), "Processing 2 dropdowns on page 1...")
}

func TestRunDryRun(t *testing.T) {
	first := books("a", 2)
	first[0].Tags = "Sample"
	lib := domtest.NewLibrary(first, books("b", 1))

	var seen []library.Row
	h := newHarness(lib, Options{DryRun: true, OnRow: func(r library.Row) { seen = append(seen, r) }})

	require.NoError(t, h.run.Run(context.Background()))

	require.Len(t, seen, 3)
	assert.Equal(t, "a0", seen[0].ID)
	assert.Equal(t, "b0", seen[2].ID)
	assert.Empty(t, h.dropdownOpens())
	assert.Len(t, lib.ClicksOn(h.sel.NextPage), 1)
	assert.Empty(t, lib.Alerts())
}

func TestRunEmptyPage(t *testing.T) {
	lib := domtest.NewLibrary(nil)
	h := newHarness(lib, Options{})

	require.NoError(t, h.run.Run(context.Background()))

	assert.Equal(t, 1, h.stats.Pages)
	assert.Zero(t, h.stats.RowsSeen)
	assert.Contains(t, h.log.Entries(), "Processing 0 dropdowns on page 1...")
	assert.Equal(t, []string{CompletionMessage}, lib.Alerts())
}

func TestRunCancelled(t *testing.T) {
	lib := domtest.NewLibrary(books("a", 3), books("b", 3))
	h := newHarness(lib, Options{})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	opened := 0
	lib.OnClick = func(c domtest.Click) {
		if c.Selector == h.sel.Dropdown {
			opened++
			if opened == 2 {
				cancel()
			}
		}
	}

	err := h.run.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, map[int][]int{0: {0, 1}}, h.dropdownOpens())
	assert.Empty(t, lib.Alerts())
}

func TestRunBrokenRowSelector(t *testing.T) {
	lib := domtest.NewLibrary(books("a", 1))
	cfg := testConfig()
	cfg.Selectors.Row = "li.book"
	logger, _ := sessionlog.New(&bytes.Buffer{}, false)

	err := New(lib, cfg, logger.Sugar(), report.New(), Options{}).Run(context.Background())
	assert.ErrorIs(t, err, library.ErrNoRowContainer)
}
