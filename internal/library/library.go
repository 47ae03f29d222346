// Package library extracts the book rows, the active page and the
// pagination state from a snapshot of the Kindle content list.
package library

import (
	"errors"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/cantalupo555/kindle-bulk-downloader/internal/config"
)

// Row holds the display fields of one book.
type Row struct {
	Index    int    `json:"-"`
	ID       string `json:"id"`
	Title    string `json:"title"`
	Author   string `json:"author"`
	Acquired string `json:"date"`
	Tags     string `json:"tags,omitempty"`
	URL      string `json:"url"`
}

// IsSample reports whether the row is a free sample, which cannot be
// downloaded.
func (r Row) IsSample() bool {
	return r.Tags == config.SampleTag
}

// Listing is one page of the content list.
type Listing struct {
	Page    string
	Rows    []Row
	HasNext bool
}

// ErrNoRowContainer is returned when a dropdown is not inside a row, which
// means the row selector no longer matches the page.
var ErrNoRowContainer = errors.New("dropdown is not inside a row")

// Parse reads a content list snapshot. Rows are returned in document order,
// one per dropdown, so Row.Index is also the dropdown index on the page.
func Parse(html string, cfg *config.Config) (*Listing, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parsing content list: %w", err)
	}
	return FromDocument(doc, cfg)
}

// FromDocument extracts the listing from a parsed document.
func FromDocument(doc *goquery.Document, cfg *config.Config) (*Listing, error) {
	sel := cfg.Selectors

	listing := &Listing{
		Page:    text(doc.Find(sel.ActivePage).First()),
		HasNext: doc.Find(sel.NextPage).Length() > 0,
	}

	var rowErr error
	doc.Find(sel.Dropdown).EachWithBreak(func(i int, dropdown *goquery.Selection) bool {
		tr := dropdown.Closest(sel.Row)
		if tr.Length() == 0 {
			rowErr = fmt.Errorf("dropdown %d: %w (row selector %q)", i+1, ErrNoRowContainer, sel.Row)
			return false
		}

		row := Row{
			Index:    i,
			Title:    text(tr.Find(sel.Title).First()),
			Author:   text(tr.Find(sel.Author).First()),
			Acquired: text(tr.Find(sel.AcquiredDate).First()),
			Tags:     text(tr.Find(sel.Tags).First()),
		}
		if id, ok := tr.Find(sel.Checkbox).First().Attr("id"); ok {
			row.ID = strings.TrimSuffix(id, config.CheckboxSuffix)
		}
		if row.ID != "" {
			row.URL = cfg.ProductURL(row.ID)
		}
		listing.Rows = append(listing.Rows, row)
		return true
	})
	if rowErr != nil {
		return nil, rowErr
	}
	return listing, nil
}

func text(s *goquery.Selection) string {
	return strings.TrimSpace(s.Text())
}
