// Package report provides the final execution report.
package report

import (
	"fmt"
	"io"
	"strings"
	"time"
)

// Stats holds all statistics collected during execution.
type Stats struct {
	StartTime      time.Time
	EndTime        time.Time
	Pages          int
	RowsSeen       int
	SamplesSkipped int
	Filtered       int // rows outside the acquisition date range
	Transfers      int // rows whose transfer was confirmed
	Incomplete     int // rows where at least one step was skipped
	Warnings       []string
}

// New creates a new Stats instance with StartTime set to now.
func New() *Stats {
	return &Stats{StartTime: time.Now()}
}

// Finish marks the end time of the execution.
func (s *Stats) Finish() {
	if s.EndTime.IsZero() {
		s.EndTime = time.Now()
	}
}

// Duration returns the total execution duration.
func (s *Stats) Duration() time.Duration {
	if s.EndTime.IsZero() {
		return time.Since(s.StartTime)
	}
	return s.EndTime.Sub(s.StartTime)
}

// formatDuration formats a duration in a human-readable way.
func formatDuration(d time.Duration) string {
	d = d.Round(time.Second)
	h := d / time.Hour
	d -= h * time.Hour
	m := d / time.Minute
	d -= m * time.Minute
	s := d / time.Second

	if h > 0 {
		return fmt.Sprintf("%dh %dm %ds", h, m, s)
	}
	if m > 0 {
		return fmt.Sprintf("%dm %ds", m, s)
	}
	return fmt.Sprintf("%ds", s)
}

// ANSI color codes
const (
	colorReset  = "\033[0m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorRed    = "\033[31m"
	colorCyan   = "\033[36m"
	colorBold   = "\033[1m"
)

const (
	boxWidth    = 52
	labelWidth  = 22
	maxWarnings = 5
)

// Print writes the final report box to w.
func (s *Stats) Print(w io.Writer) {
	s.Finish()

	fmt.Fprintln(w)
	rule(w, "=")
	title(w, "📊 FINAL REPORT")
	rule(w, "-")

	row(w, "⏱️ ", "Duration", formatDuration(s.Duration()), "")
	row(w, "📄", "Pages", fmt.Sprintf("%d", s.Pages), "")
	row(w, "📚", "Books seen", fmt.Sprintf("%d", s.RowsSeen), "")

	transfers := fmt.Sprintf("%d confirmed", s.Transfers)
	transferColor := colorGreen
	if s.Incomplete > 0 {
		transfers += fmt.Sprintf(", %d incomplete", s.Incomplete)
		transferColor = colorYellow
	}
	row(w, "⬇️ ", "Transfers", transfers, transferColor)

	if s.SamplesSkipped > 0 {
		row(w, "⏭️ ", "Samples", fmt.Sprintf("%d skipped", s.SamplesSkipped), colorYellow)
	}
	if s.Filtered > 0 {
		row(w, "📅", "Filtered", fmt.Sprintf("%d (out of date range)", s.Filtered), colorYellow)
	}

	rule(w, "-")
	if len(s.Warnings) > 0 {
		row(w, "⚠️ ", fmt.Sprintf("Warnings (%d):", len(s.Warnings)), "", colorRed)
		for i, warn := range s.Warnings {
			if i >= maxWarnings {
				detail(w, fmt.Sprintf("... and %d more warnings", len(s.Warnings)-maxWarnings))
				break
			}
			detail(w, "- "+warn)
		}
	} else {
		row(w, "✅", "No warnings", "", colorGreen)
	}

	rule(w, "=")
	fmt.Fprintln(w)
}

func rule(w io.Writer, ch string) {
	fmt.Fprintf(w, "%s%s%s\n", colorCyan, strings.Repeat(ch, boxWidth), colorReset)
}

func title(w io.Writer, text string) {
	padding := max((boxWidth-visualLength(text))/2, 0)
	fmt.Fprintf(w, "%s%s%s%s\n", strings.Repeat(" ", padding), colorBold, text, colorReset)
}

// row prints "  [emoji]  [label]   [value]" with the value column aligned.
func row(w io.Writer, emoji, label, value, valueColor string) {
	fullLabel := label
	if emoji != "" {
		fullLabel = emoji + "  " + label
	}
	padding := max(labelWidth-visualLength(fullLabel), 0)

	if valueColor != "" {
		value = valueColor + value + colorReset
	}
	fmt.Fprintf(w, "  %s%s   %s\n", fullLabel, strings.Repeat(" ", padding), value)
}

func detail(w io.Writer, text string) {
	fmt.Fprintf(w, "      %s%s%s\n", colorRed, text, colorReset)
}

// visualLength approximates the terminal width of s: emoji and CJK count
// as two cells, variation selectors as none.
func visualLength(s string) int {
	width := 0
	for _, r := range s {
		switch {
		case r == '\ufe0f':
		case r > 256:
			width += 2
		default:
			width++
		}
	}
	return width
}

// Summary returns a brief one-line summary of the stats.
func (s *Stats) Summary() string {
	return fmt.Sprintf(
		"%d pages, %d books, %d transfers confirmed (%d incomplete), %d samples, %d filtered, %d warnings in %s",
		s.Pages,
		s.RowsSeen,
		s.Transfers,
		s.Incomplete,
		s.SamplesSkipped,
		s.Filtered,
		len(s.Warnings),
		formatDuration(s.Duration()),
	)
}
