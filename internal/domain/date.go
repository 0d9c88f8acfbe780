package domain

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"
)

const isoLayout = "2006-01-02"

// dateLayouts are tried in order against the whole cleaned input
var dateLayouts = []string{
	isoLayout,
	"January 2, 2006",
	"Jan 2, 2006",
	"2 January 2006",
	"2 Jan 2006",
	"January 2 2006",
}

var (
	isoDatePattern      = regexp.MustCompile(`\d{4}-\d{2}-\d{2}`)
	monthFirstPattern   = regexp.MustCompile(`[A-Za-z]{3,9} \d{1,2},? \d{4}`)
	dayFirstPattern     = regexp.MustCompile(`\d{1,2} [A-Za-z]{3,9},? \d{4}`)
	abbreviationPattern = regexp.MustCompile(`\b(Jan|Feb|Mar|Apr|Jun|Jul|Aug|Sep|Sept|Oct|Nov|Dec)\.`)
)

// Date is a calendar date without time of day or zone
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// NewDate creates a date, normalizing out-of-range values the way time.Date does
func NewDate(year int, month time.Month, day int) Date {
	return DateOf(time.Date(year, month, day, 0, 0, 0, 0, time.UTC))
}

// DateOf returns the calendar date of t in its own location
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Year: y, Month: m, Day: d}
}

// Time returns midnight UTC of the date
func (d Date) Time() time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC)
}

// String formats the date as YYYY-MM-DD
func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, d.Month, d.Day)
}

// Before reports whether d is strictly before other
func (d Date) Before(other Date) bool {
	return d.Time().Before(other.Time())
}

// IsSentinel reports whether the date is one of the placeholder values used for "unknown"
func (d Date) IsSentinel() bool {
	return !SentinelDate.Before(d)
}

func (d Date) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.String() + `"`), nil
}

func (d *Date) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "" || s == "null" {
		return nil
	}
	// Stores may hand back timestamps for date columns
	if len(s) > len(isoLayout) {
		s = s[:len(isoLayout)]
	}
	t, err := time.Parse(isoLayout, s)
	if err != nil {
		return fmt.Errorf("failed to parse date %q: %w", s, err)
	}
	*d = DateOf(t)
	return nil
}

// ParseDate reads a calendar date from free-form page text. Footnote markers and
// non-breaking spaces are ignored. When the whole text is not a date, the first
// embedded date is used. Returns nil when nothing parses.
func ParseDate(s string) *Date {
	cleaned := abbreviationPattern.ReplaceAllString(CleanText(s), "$1")
	cleaned = strings.ReplaceAll(cleaned, "Sept ", "Sep ")
	if cleaned == "" {
		return nil
	}

	if d, ok := parseWithLayouts(cleaned); ok {
		return &d
	}

	type candidate struct {
		start int
		text  string
	}
	var candidates []candidate
	for _, pattern := range []*regexp.Regexp{isoDatePattern, monthFirstPattern, dayFirstPattern} {
		for _, loc := range pattern.FindAllStringIndex(cleaned, -1) {
			candidates = append(candidates, candidate{start: loc[0], text: cleaned[loc[0]:loc[1]]})
		}
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].start < candidates[j].start
	})

	for _, c := range candidates {
		if d, ok := parseWithLayouts(c.text); ok {
			return &d
		}
	}

	return nil
}

func parseWithLayouts(s string) (Date, bool) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return DateOf(t), true
		}
	}
	return Date{}, false
}
