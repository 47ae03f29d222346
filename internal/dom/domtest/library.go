// Package domtest provides an in-memory dom.Driver that renders a paginated
// Kindle content list, for tests of the code that drives it.
package domtest

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strings"
	"sync"
	"time"

	"github.com/cantalupo555/kindle-bulk-downloader/internal/config"
	"github.com/cantalupo555/kindle-bulk-downloader/internal/dom"
)

// Book is one row of the fake content list.
type Book struct {
	ID       string
	Title    string
	Author   string
	Acquired string
	Tags     string
}

// Click records one click the driver performed.
type Click struct {
	Page     int
	Scope    dom.Scope
	Selector string
	Index    int
}

// Library is a fake content list. Pages holds the rows of each page; the
// next-page control exists on every page but the last.
type Library struct {
	Pages [][]Book
	// Missing lists selectors that never appear.
	Missing map[string]bool
	// Locations, when non-empty, is consumed one entry per Location call.
	Locations []string
	// LocationFailures is the number of Location calls that fail before
	// Locations is consulted.
	LocationFailures int
	// OnClick is called after every recorded click.
	OnClick func(Click)

	sel config.Selectors

	mu        sync.Mutex
	page      int
	url       string
	triggered bool
	installed int
	clicks    []Click
	alerts    []string
	evals     []string
}

// NewLibrary returns a fake list using the default selectors.
func NewLibrary(pages ...[]Book) *Library {
	return &Library{
		Pages:   pages,
		Missing: map[string]bool{},
		sel:     config.Default().Selectors,
	}
}

// Selectors returns the selectors the fake markup matches.
func (l *Library) Selectors() config.Selectors {
	return l.sel
}

// Press simulates the user clicking the injected trigger button.
func (l *Library) Press() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.triggered = true
}

// Page returns the 0-based index of the page shown.
func (l *Library) Page() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.page
}

// Clicks returns a copy of the recorded clicks.
func (l *Library) Clicks() []Click {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]Click(nil), l.clicks...)
}

// ClicksOn returns the recorded clicks of one selector.
func (l *Library) ClicksOn(selector string) []Click {
	var out []Click
	for _, c := range l.Clicks() {
		if c.Selector == selector {
			out = append(out, c)
		}
	}
	return out
}

// Alerts returns the messages shown with an alert.
func (l *Library) Alerts() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.alerts...)
}

// Installs returns how many times the trigger button script ran.
func (l *Library) Installs() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.installed
}

// Navigate implements dom.Driver.
func (l *Library) Navigate(ctx context.Context, url string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.url = url
	l.page = 0
	return nil
}

// Location implements dom.Driver.
func (l *Library) Location(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.LocationFailures > 0 {
		l.LocationFailures--
		return "", errors.New("location unavailable")
	}
	if len(l.Locations) > 0 {
		l.url = l.Locations[0]
		l.Locations = l.Locations[1:]
	}
	return l.url, nil
}

// HTML implements dom.Driver.
func (l *Library) HTML(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.render(), nil
}

// ClickNth implements dom.Driver.
func (l *Library) ClickNth(ctx context.Context, selector string, n int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	l.mu.Lock()
	click := Click{Page: l.page, Scope: dom.Document, Selector: selector, Index: n}
	err := l.clickNth(selector, n)
	if err == nil {
		l.clicks = append(l.clicks, click)
	}
	l.mu.Unlock()

	if err == nil && l.OnClick != nil {
		l.OnClick(click)
	}
	return err
}

func (l *Library) clickNth(selector string, n int) error {
	if l.Missing[selector] {
		return fmt.Errorf("%w: %s", dom.ErrNotFound, selector)
	}
	switch selector {
	case l.sel.Dropdown:
		if n < 0 || n >= len(l.rows()) {
			return fmt.Errorf("%w: %s[%d]", dom.ErrNotFound, selector, n)
		}
	case l.sel.NextPage:
		if n != 0 || l.page >= len(l.Pages)-1 {
			return fmt.Errorf("%w: %s[%d]", dom.ErrNotFound, selector, n)
		}
		l.page++
	}
	return nil
}

// WaitClick implements dom.Driver. Missing selectors fail at once instead of
// after timeout.
func (l *Library) WaitClick(ctx context.Context, scope dom.Scope, selector string, timeout time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	l.mu.Lock()
	click := Click{Page: l.page, Scope: scope, Selector: selector}
	var err error
	switch {
	case l.Missing[selector]:
		err = fmt.Errorf("%w: %s within %s", dom.ErrNotFound, selector, timeout)
	case !scope.IsDocument() && (scope.Selector != l.sel.Dropdown || scope.Index < 0 || scope.Index >= len(l.rows())):
		err = fmt.Errorf("%w: scope %s", dom.ErrNotFound, scope)
	default:
		l.clicks = append(l.clicks, click)
	}
	l.mu.Unlock()

	if err == nil && l.OnClick != nil {
		l.OnClick(click)
	}
	return err
}

// Eval implements dom.Driver for the scripts in package dom.
func (l *Library) Eval(ctx context.Context, fn string, out any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.evals = append(l.evals, fn)

	var result bool
	switch {
	case fn == dom.TriggeredScript():
		result = l.triggered
	case strings.Contains(fn, dom.TriggerButtonID):
		l.installed++
		result = true
	case strings.Contains(fn, "alert("):
		l.alerts = append(l.alerts, alertMessage(fn))
		result = true
	default:
		return fmt.Errorf("domtest: unsupported script %q", fn)
	}

	if b, ok := out.(*bool); ok {
		*b = result
	}
	return nil
}

func alertMessage(fn string) string {
	start := strings.Index(fn, "alert(")
	end := strings.LastIndex(fn, "), 0)")
	if start < 0 || end <= start {
		return fn
	}
	return strings.Trim(fn[start+len("alert("):end], `"`)
}

func (l *Library) rows() []Book {
	if l.page >= len(l.Pages) {
		return nil
	}
	return l.Pages[l.page]
}

// render writes the markup the default selectors expect.
func (l *Library) render() string {
	var b strings.Builder
	b.WriteString("<html><head><title>Content</title></head><body><table><tbody>\n")
	for _, book := range l.rows() {
		id := html.EscapeString(book.ID)
		fmt.Fprintf(&b, `<tr>
<td><div class="Checkbox-module_checkbox__a1"><input type="checkbox" id="%s:KindleEBook"></div></td>
<td><div id="content-title-%s">%s</div><div id="content-author-%s">%s</div><div id="content-acquired-date-%s">%s</div>`,
			id, id, html.EscapeString(book.Title), id, html.EscapeString(book.Author), id, html.EscapeString(book.Acquired))
		if book.Tags != "" {
			fmt.Fprintf(&b, `<div class="information_row tags"> %s </div>`, html.EscapeString(book.Tags))
		}
		fmt.Fprintf(&b, "</td>\n<td><div class=\"Dropdown-module_container__x9\"><span>More actions</span></div></td>\n</tr>\n")
	}
	b.WriteString("</tbody></table>\n<ul class=\"pagination\">")
	for i := range l.Pages {
		class := "page-item"
		if i == l.page {
			class += " active"
		}
		fmt.Fprintf(&b, `<li class="%s"><a>%d</a></li>`, class, i+1)
	}
	b.WriteString("</ul></body></html>")
	return b.String()
}
