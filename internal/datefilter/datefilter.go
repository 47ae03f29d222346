// Package datefilter restricts processing to books acquired within a date range.
package datefilter

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// DateRange represents a date range filter.
type DateRange struct {
	From    time.Time
	To      time.Time
	Enabled bool
}

// NewDateRange creates a new DateRange from string dates.
// Date format: YYYY-MM-DD (e.g., "2023-01-01")
// Pass empty strings to disable filtering.
func NewDateRange(from, to string) (*DateRange, error) {
	dr := &DateRange{}

	if from == "" && to == "" {
		return dr, nil
	}

	dr.Enabled = true

	if from != "" {
		fromDate, err := time.Parse(time.DateOnly, from)
		if err != nil {
			return nil, fmt.Errorf("invalid 'from' date format (use YYYY-MM-DD): %w", err)
		}
		dr.From = fromDate
	} else {
		dr.From = time.Date(1970, 1, 1, 0, 0, 0, 0, time.UTC)
	}

	if to != "" {
		toDate, err := time.Parse(time.DateOnly, to)
		if err != nil {
			return nil, fmt.Errorf("invalid 'to' date format (use YYYY-MM-DD): %w", err)
		}
		dr.To = toDate
	} else {
		now := time.Now().UTC()
		dr.To = time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	}

	if dr.From.After(dr.To) {
		return nil, fmt.Errorf("'from' date (%s) is after 'to' date (%s)", dr.From.Format(time.DateOnly), dr.To.Format(time.DateOnly))
	}

	return dr, nil
}

// monthMap maps English and Dutch month names and abbreviations to months.
var monthMap = map[string]time.Month{
	"january": time.January, "jan": time.January, "januari": time.January,
	"february": time.February, "feb": time.February, "februari": time.February,
	"march": time.March, "mar": time.March, "maart": time.March, "mrt": time.March,
	"april": time.April, "apr": time.April,
	"may": time.May, "mei": time.May,
	"june": time.June, "jun": time.June, "juni": time.June,
	"july": time.July, "jul": time.July, "juli": time.July,
	"august": time.August, "aug": time.August, "augustus": time.August,
	"september": time.September, "sep": time.September, "sept": time.September,
	"october": time.October, "oct": time.October, "oktober": time.October, "okt": time.October,
	"november": time.November, "nov": time.November,
	"december": time.December, "dec": time.December,
}

var (
	// monthFirst matches "March 3, 2019" and "Mar 3 2019".
	monthFirst = regexp.MustCompile(`^(\p{L}+)\.?\s+(\d{1,2}),?\s+(\d{4})$`)
	// dayFirst matches "3 March 2019" and "3 maart 2019".
	dayFirst = regexp.MustCompile(`^(\d{1,2})\.?\s+(\p{L}+)\.?\s+(\d{4})$`)
)

// ParseAcquiredDate parses the acquisition date shown in the content list.
// Formats: "March 3, 2019", "3 March 2019", "3 maart 2019" and "2019-03-03".
func ParseAcquiredDate(dateText string) (time.Time, error) {
	dateText = strings.Join(strings.Fields(dateText), " ")

	if t, err := time.Parse(time.DateOnly, dateText); err == nil {
		return t, nil
	}

	var dayStr, monthStr, yearStr string
	if m := monthFirst.FindStringSubmatch(dateText); m != nil {
		monthStr, dayStr, yearStr = m[1], m[2], m[3]
	} else if m := dayFirst.FindStringSubmatch(dateText); m != nil {
		dayStr, monthStr, yearStr = m[1], m[2], m[3]
	} else {
		return time.Time{}, fmt.Errorf("invalid date format: %s", dateText)
	}

	month, ok := monthMap[strings.ToLower(monthStr)]
	if !ok {
		return time.Time{}, fmt.Errorf("invalid month: %s", monthStr)
	}
	day, _ := strconv.Atoi(dayStr)
	year, _ := strconv.Atoi(yearStr)
	if day < 1 || day > 31 {
		return time.Time{}, fmt.Errorf("invalid day: %s", dayStr)
	}

	t := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	if t.Day() != day {
		return time.Time{}, fmt.Errorf("invalid date: %s", dateText)
	}
	return t, nil
}

// IsInRange checks if a date text (e.g., "March 3, 2019") is within the date range.
// Returns true if filtering is disabled or the date is within range.
// Returns an error if the date cannot be parsed.
func (dr *DateRange) IsInRange(dateText string) (bool, error) {
	if dr == nil || !dr.Enabled {
		return true, nil
	}

	parsedDate, err := ParseAcquiredDate(dateText)
	if err != nil {
		return false, err
	}

	// inclusive on both ends
	return !parsedDate.Before(dr.From) && !parsedDate.After(dr.To), nil
}

// String returns a human-readable representation of the date range.
func (dr *DateRange) String() string {
	if dr == nil || !dr.Enabled {
		return "all dates"
	}
	return fmt.Sprintf("%s to %s", dr.From.Format(time.DateOnly), dr.To.Format(time.DateOnly))
}
