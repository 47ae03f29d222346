package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 10*time.Second, cfg.Timeouts.Element)
	assert.Equal(t, 15*time.Second, cfg.Timeouts.Notification)
	assert.Equal(t, 8*time.Second, cfg.Timeouts.RowPause)
	assert.Equal(t, 10*time.Second, cfg.Timeouts.PageSettle)
}

func TestParseMergesOverDefaults(t *testing.T) {
	data := []byte(`
marketplace: www.amazon.nl
selectors:
  device: 'span.device'
timeouts:
  row_pause: 2s
  element: 1500ms
`)
	cfg, err := Parse(data)
	require.NoError(t, err)

	assert.Equal(t, "www.amazon.nl", cfg.Marketplace)
	assert.Equal(t, "span.device", cfg.Selectors.Device)
	assert.Equal(t, 2*time.Second, cfg.Timeouts.RowPause)
	assert.Equal(t, 1500*time.Millisecond, cfg.Timeouts.Element)

	// untouched keys keep their defaults
	assert.Equal(t, Default().Selectors.Confirm, cfg.Selectors.Confirm)
	assert.Equal(t, Default().Timeouts.PageSettle, cfg.Timeouts.PageSettle)
}

func TestParseEmptyReturnsDefaults(t *testing.T) {
	cfg, err := Parse(nil)
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestParseRejects(t *testing.T) {
	tests := []struct {
		name string
		data string
		want string
	}{
		{"unknown key", "selectors:\n  dropdwn: x\n", "field dropdwn not found"},
		{"empty selector", "selectors:\n  confirm: ''\n", "selectors.confirm"},
		{"bad marketplace", "marketplace: https://www.amazon.com/\n", "host name"},
		{"relative path", "content_path: hz/mycd\n", "content_path"},
		{"zero timeout", "timeouts:\n  element: 0s\n", "timeouts must be positive"},
		{"negative pause", "timeouts:\n  row_pause: -1s\n", "pauses"},
		{"bad duration", "timeouts:\n  element: soon\n", "parsing config file"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.data))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("marketplace: www.amazon.de\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "www.amazon.de", cfg.Marketplace)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reading config file")
}

func TestURLs(t *testing.T) {
	cfg := Default()
	cfg.Marketplace = "www.amazon.nl"

	assert.Equal(t, "https://www.amazon.nl/hz/mycd/digital-console/contentlist/booksAll/dateDsc/", cfg.ContentURL())
	assert.Equal(t, "https://www.amazon.nl/gp/product/B00TEST123", cfg.ProductURL("B00TEST123"))
}

func TestIsContentList(t *testing.T) {
	cfg := Default()

	assert.True(t, cfg.IsContentList("https://www.amazon.com/hz/mycd/digital-console/contentlist/booksAll/dateDsc/"))
	assert.True(t, cfg.IsContentList("https://www.amazon.com/hz/mycd/digital-console/contentlist/booksAll?pageNumber=3"))
	assert.False(t, cfg.IsContentList("https://www.amazon.com/ap/signin?openid.return_to=x"))
	assert.False(t, cfg.IsContentList("::not a url"))
}

func TestExpandHome(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(home, "Downloads"), ExpandHome("~/Downloads"))
	assert.Equal(t, "/tmp/x", ExpandHome("/tmp/x"))
}
