package domtest

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cantalupo555/kindle-bulk-downloader/internal/dom"
)

const fixture = `<!DOCTYPE html>
<html><body>
<div class="row"><button class="dd" onclick="rec('dd0')">A</button><div class="menu"><span class="item" onclick="rec('item0')">a</span></div></div>
<div class="row"><button class="dd" onclick="rec('dd1')">B</button><div class="menu"><span class="item" onclick="rec('item1')">b</span></div></div>
<script>
window.__clicks = [];
function rec(name) { window.__clicks.push(name); }
setTimeout(function () {
	var b = document.createElement('button');
	b.id = 'late';
	b.onclick = function () { rec('late'); };
	document.body.appendChild(b);
}, 300);
</script>
</body></html>`

// TestDriver checks that a browser-backed dom.Driver finds, scopes and clicks
// elements the way the row loop expects. open must return a driver on a
// blank tab; it is called once.
func TestDriver(t *testing.T, open func(ctx context.Context) (dom.Driver, error)) {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(fixture))
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	d, err := open(ctx)
	require.NoError(t, err)

	require.NoError(t, d.Navigate(ctx, srv.URL+"/list"))

	clicks := func(t *testing.T) []string {
		t.Helper()
		var out []string
		require.NoError(t, d.Eval(ctx, `() => window.__clicks`, &out))
		return out
	}

	t.Run("location", func(t *testing.T) {
		u, err := d.Location(ctx)
		require.NoError(t, err)
		assert.Equal(t, srv.URL+"/list", u)
	})

	t.Run("html", func(t *testing.T) {
		html, err := d.HTML(ctx)
		require.NoError(t, err)
		assert.Equal(t, 2, strings.Count(html, `class="row"`))
	})

	t.Run("click nth", func(t *testing.T) {
		require.NoError(t, d.ClickNth(ctx, ".row .dd", 1))
		assert.Equal(t, []string{"dd1"}, clicks(t))

		err := d.ClickNth(ctx, ".row .dd", 5)
		assert.ErrorIs(t, err, dom.ErrNotFound)
	})

	t.Run("scoped wait click", func(t *testing.T) {
		require.NoError(t, d.WaitClick(ctx, dom.Scope{Selector: ".row", Index: 1}, ".item", 5*time.Second))
		assert.Equal(t, "item1", last(clicks(t)))
	})

	t.Run("wait for late element", func(t *testing.T) {
		require.NoError(t, d.WaitClick(ctx, dom.Document, "#late", 5*time.Second))
		assert.Equal(t, "late", last(clicks(t)))
	})

	t.Run("missing element times out", func(t *testing.T) {
		start := time.Now()
		err := d.WaitClick(ctx, dom.Document, "#never", 300*time.Millisecond)
		assert.ErrorIs(t, err, dom.ErrNotFound)
		assert.Less(t, time.Since(start), 10*time.Second)
	})

	t.Run("trigger script", func(t *testing.T) {
		var visible bool
		require.NoError(t, d.Eval(ctx, dom.InstallTriggerScript("Go"), &visible))
		assert.True(t, visible)

		var pressed bool
		require.NoError(t, d.Eval(ctx, dom.TriggeredScript(), &pressed))
		assert.False(t, pressed)

		require.NoError(t, d.WaitClick(ctx, dom.Document, "#"+dom.TriggerButtonID, 5*time.Second))
		require.NoError(t, d.Eval(ctx, dom.TriggeredScript(), &pressed))
		assert.True(t, pressed)
	})
}

func last(s []string) string {
	if len(s) == 0 {
		return ""
	}
	return s[len(s)-1]
}
