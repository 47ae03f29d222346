package library

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cantalupo555/kindle-bulk-downloader/internal/config"
	"github.com/cantalupo555/kindle-bulk-downloader/internal/dom/domtest"
)

const fixture = `<html><body>
<table>
<tr>
  <td><div class="Checkbox-module_checkbox__q1"><input type="checkbox" id="B00AAA1111:KindleEBook"></div></td>
  <td>
    <div id="content-title-B00AAA1111">
      The Left Hand of Darkness
    </div>
    <div id="content-author-B00AAA1111">Ursula K. Le Guin</div>
    <div id="content-acquired-date-B00AAA1111">March 3, 2019</div>
  </td>
  <td><div class="Dropdown-module_container__3fe">More actions</div></td>
</tr>
<tr>
  <td><div class="Checkbox-module_checkbox__q1"><input type="checkbox" id="B00BBB2222:KindleEBook"></div></td>
  <td>
    <div id="content-title-B00BBB2222">Dune</div>
    <div id="content-author-B00BBB2222">Frank Herbert</div>
    <div id="content-acquired-date-B00BBB2222">January 9, 2021</div>
    <div class="information_row tags">
      Sample
    </div>
  </td>
  <td><div class="Dropdown-module_container__3fe">More actions</div></td>
</tr>
</table>
<ul class="pagination">
  <li class="page-item"><a>1</a></li>
  <li class="page-item active"><a> 2 </a></li>
  <li class="page-item"><a>3</a></li>
</ul>
</body></html>`

func TestParse(t *testing.T) {
	cfg := config.Default()

	listing, err := Parse(fixture, cfg)
	require.NoError(t, err)

	assert.Equal(t, "2", listing.Page)
	assert.True(t, listing.HasNext)
	require.Len(t, listing.Rows, 2)

	assert.Equal(t, Row{
		Index:    0,
		ID:       "B00AAA1111",
		Title:    "The Left Hand of Darkness",
		Author:   "Ursula K. Le Guin",
		Acquired: "March 3, 2019",
		URL:      "https://www.amazon.com/gp/product/B00AAA1111",
	}, listing.Rows[0])
	assert.False(t, listing.Rows[0].IsSample())

	assert.Equal(t, 1, listing.Rows[1].Index)
	assert.Equal(t, "Sample", listing.Rows[1].Tags)
	assert.True(t, listing.Rows[1].IsSample())
}

func TestParseLastPage(t *testing.T) {
	html := `<html><body><ul class="pagination">
<li class="page-item"><a>1</a></li><li class="page-item active"><a>2</a></li>
</ul></body></html>`

	listing, err := Parse(html, config.Default())
	require.NoError(t, err)

	assert.Equal(t, "2", listing.Page)
	assert.False(t, listing.HasNext)
	assert.Empty(t, listing.Rows)
}

func TestParseUsesMarketplace(t *testing.T) {
	cfg := config.Default()
	cfg.Marketplace = "www.amazon.nl"

	listing, err := Parse(fixture, cfg)
	require.NoError(t, err)
	assert.Equal(t, "https://www.amazon.nl/gp/product/B00AAA1111", listing.Rows[0].URL)
}

func TestParseDropdownOutsideRow(t *testing.T) {
	html := `<html><body><div class="Dropdown-module_container__1"></div></body></html>`

	_, err := Parse(html, config.Default())
	assert.ErrorIs(t, err, ErrNoRowContainer)
}

func TestParseFakeLibrary(t *testing.T) {
	lib := domtest.NewLibrary(
		[]domtest.Book{
			{ID: "B1", Title: "A & B", Author: "X", Acquired: "May 1, 2020"},
			{ID: "B2", Title: "<C>", Tags: "Sample"},
		},
		[]domtest.Book{{ID: "B3", Title: "D"}},
	)

	html, err := lib.HTML(context.Background())
	require.NoError(t, err)

	listing, err := Parse(html, config.Default())
	require.NoError(t, err)
	assert.Equal(t, "1", listing.Page)
	assert.True(t, listing.HasNext)
	require.Len(t, listing.Rows, 2)
	assert.Equal(t, "A & B", listing.Rows[0].Title)
	assert.Equal(t, "<C>", listing.Rows[1].Title)
	assert.True(t, listing.Rows[1].IsSample())
}
