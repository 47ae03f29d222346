// Package config holds the marketplace, selector and timing settings used to
// drive the Kindle content list.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the complete tool configuration.
type Config struct {
	Marketplace string    `yaml:"marketplace"`
	ContentPath string    `yaml:"content_path"`
	Selectors   Selectors `yaml:"selectors"`
	Timeouts    Timeouts  `yaml:"timeouts"`
}

// Selectors are the CSS selectors of the content list. Amazon changes its
// class names without notice, so all of them can be overridden.
type Selectors struct {
	Dropdown         string `yaml:"dropdown"`
	Row              string `yaml:"row"`
	Title            string `yaml:"title"`
	Author           string `yaml:"author"`
	AcquiredDate     string `yaml:"acquired_date"`
	Checkbox         string `yaml:"checkbox"`
	Tags             string `yaml:"tags"`
	ActivePage       string `yaml:"active_page"`
	NextPage         string `yaml:"next_page"`
	DownloadTransfer string `yaml:"download_transfer"`
	Device           string `yaml:"device"`
	Confirm          string `yaml:"confirm"`
	NotificationX    string `yaml:"notification_close"`
}

// Timeouts are the waits and fixed pauses of the row loop.
type Timeouts struct {
	Element            time.Duration `yaml:"element"`
	Notification       time.Duration `yaml:"notification"`
	RowPause           time.Duration `yaml:"row_pause"`
	PageSettle         time.Duration `yaml:"page_settle"`
	LoginCheckInterval time.Duration `yaml:"login_check_interval"`
	LoginTimeout       time.Duration `yaml:"login_timeout"`
	TriggerPoll        time.Duration `yaml:"trigger_poll"`
}

const (
	// DefaultMarketplace is the Amazon host used when none is configured.
	DefaultMarketplace = "www.amazon.com"
	// DefaultContentPath is the "all books" content list.
	DefaultContentPath = "/hz/mycd/digital-console/contentlist/booksAll/dateDsc/"
	// SampleTag is the tag text of free samples, which cannot be downloaded.
	SampleTag = "Sample"
	// CheckboxSuffix is stripped from checkbox ids to obtain the ASIN.
	CheckboxSuffix = ":KindleEBook"
)

// Default returns the configuration matching the content list as of the
// last time the download feature was available.
func Default() *Config {
	return &Config{
		Marketplace: DefaultMarketplace,
		ContentPath: DefaultContentPath,
		Selectors: Selectors{
			Dropdown:         `[class^="Dropdown-module_container__"]`,
			Row:              `tr`,
			Title:            `[id^="content-title-"]`,
			Author:           `[id^="content-author-"]`,
			AcquiredDate:     `[id^="content-acquired-date-"]`,
			Checkbox:         `[class^="Checkbox"] input[type="checkbox"]`,
			Tags:             `.information_row.tags`,
			ActivePage:       `.page-item.active`,
			NextPage:         `.pagination .page-item.active + *`,
			DownloadTransfer: `div:has(>[id^="MARK_AS_"]) + div`,
			Device:           `span[id^="download_and_transfer_list_"]`,
			Confirm:          `[id^="DOWNLOAD_AND_TRANSFER_DIALOG_"] [id$="_CONFIRM"]`,
			NotificationX:    `span[id="notification-close"]`,
		},
		Timeouts: Timeouts{
			Element:            10 * time.Second,
			Notification:       15 * time.Second,
			RowPause:           8 * time.Second,
			PageSettle:         10 * time.Second,
			LoginCheckInterval: 10 * time.Second,
			LoginTimeout:       5 * time.Minute,
			TriggerPoll:        time.Second,
		},
	}
}

// Load reads a YAML config file at path and merges it over the defaults.
// Unknown keys are an error so that a mistyped selector name is not ignored.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(ExpandHome(path))
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML config data over the defaults and validates the result.
func Parse(data []byte) (*Config, error) {
	cfg := Default()

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that the configuration can drive the row loop.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Marketplace) == "" {
		return errors.New("marketplace must not be empty")
	}
	if strings.ContainsAny(c.Marketplace, "/ ") {
		return fmt.Errorf("marketplace must be a host name, got %q", c.Marketplace)
	}
	if !strings.HasPrefix(c.ContentPath, "/") {
		return fmt.Errorf("content_path must start with '/', got %q", c.ContentPath)
	}

	required := map[string]string{
		"dropdown":           c.Selectors.Dropdown,
		"row":                c.Selectors.Row,
		"title":              c.Selectors.Title,
		"checkbox":           c.Selectors.Checkbox,
		"active_page":        c.Selectors.ActivePage,
		"next_page":          c.Selectors.NextPage,
		"download_transfer":  c.Selectors.DownloadTransfer,
		"device":             c.Selectors.Device,
		"confirm":            c.Selectors.Confirm,
		"notification_close": c.Selectors.NotificationX,
	}
	for name, sel := range required {
		if strings.TrimSpace(sel) == "" {
			return fmt.Errorf("selectors.%s must not be empty", name)
		}
	}

	if c.Timeouts.Element <= 0 || c.Timeouts.Notification <= 0 {
		return errors.New("element and notification timeouts must be positive")
	}
	if c.Timeouts.RowPause < 0 || c.Timeouts.PageSettle < 0 {
		return errors.New("pauses must not be negative")
	}
	if c.Timeouts.LoginCheckInterval <= 0 || c.Timeouts.TriggerPoll <= 0 {
		return errors.New("polling intervals must be positive")
	}
	return nil
}

// ContentURL is the full URL of the content list.
func (c *Config) ContentURL() string {
	u := url.URL{Scheme: "https", Host: c.Marketplace, Path: c.ContentPath}
	return u.String()
}

// ProductURL is the product page of a book on the configured marketplace.
func (c *Config) ProductURL(asin string) string {
	u := url.URL{Scheme: "https", Host: c.Marketplace, Path: "/gp/product/" + asin}
	return u.String()
}

// IsContentList reports whether a page URL is the book list, in any
// sort order.
func (c *Config) IsContentList(pageURL string) bool {
	u, err := url.Parse(pageURL)
	if err != nil {
		return false
	}
	base := strings.TrimSuffix(c.ContentPath, "/")
	if i := strings.Index(base, "/booksAll"); i >= 0 {
		base = base[:i+len("/booksAll")]
	}
	return strings.HasPrefix(u.Path, base)
}

// ExpandHome replaces a leading ~ with the user's home directory.
func ExpandHome(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, path[1:])
		}
	}
	return path
}
