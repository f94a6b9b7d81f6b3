package dates

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Range is an inclusive date range.
type Range struct {
	Start time.Time
	End   time.Time
}

// Contains reports whether t falls inside r.
func (r Range) Contains(t time.Time) bool {
	return !t.Before(r.Start) && !t.After(r.End)
}

// distance is the number of days between t and r, zero when t is inside.
func (r Range) distance(t time.Time) time.Duration {
	switch {
	case t.Before(r.Start):
		return r.Start.Sub(t)
	case t.After(r.End):
		return t.Sub(r.End)
	}
	return 0
}

const sep = `\s*(?:-|–|—|to|through|thru)\s*`

var (
	numericPeriodRe = regexp.MustCompile(`(?i)(\d{1,2}/\d{1,2}/\d{2,4})` + sep + `(\d{1,2}/\d{1,2}/\d{2,4})`)
	namedPeriodRe   = regexp.MustCompile(`(?i)([a-z]{3,9}\.? \d{1,2},? \d{4})` + sep + `([a-z]{3,9}\.? \d{1,2},? \d{4})`)
	monthPeriodRe   = regexp.MustCompile(`(?i)\b([a-z]{3,9})\.? (\d{4})` + sep + `([a-z]{3,9})\.? (\d{4})\b`)
	yearRe          = regexp.MustCompile(`\b(?:19|20)\d{2}\b`)
)

var periodFormats = MustCompileAll([]string{
	"01/02/2006", "1/2/2006", "01/02/06", "1/2/06",
	"Jan 2, 2006", "Jan 2 2006", "January 2, 2006", "January 2 2006",
})

// FindPeriod locates the statement period in text. It understands
// "12/15/24 - 01/14/25", "December 15, 2024 to January 14, 2025" and
// "Dec 2024 - Jan 2025"; the first well-ordered match wins.
func FindPeriod(text string) (*Range, bool) {
	for _, m := range numericPeriodRe.FindAllStringSubmatch(text, -1) {
		if r, ok := parseRange(m[1], m[2]); ok {
			return r, true
		}
	}
	for _, m := range namedPeriodRe.FindAllStringSubmatch(text, -1) {
		if r, ok := parseRange(strings.ReplaceAll(m[1], ".", ""), strings.ReplaceAll(m[2], ".", "")); ok {
			return r, true
		}
	}
	for _, m := range monthPeriodRe.FindAllStringSubmatch(text, -1) {
		if r, ok := parseMonthRange(m[1], m[2], m[3], m[4]); ok {
			return r, true
		}
	}
	return nil, false
}

func parseRange(a, b string) (*Range, bool) {
	start, err := Parse(a, periodFormats)
	if err != nil {
		return nil, false
	}
	end, err := Parse(b, periodFormats)
	if err != nil {
		return nil, false
	}
	r := &Range{Start: start.Time, End: end.Time}
	if r.End.Before(r.Start) {
		return nil, false
	}
	return r, true
}

func parseMonthRange(m1, y1, m2, y2 string) (*Range, bool) {
	start, ok := monthStart(m1, y1)
	if !ok {
		return nil, false
	}
	first, ok := monthStart(m2, y2)
	if !ok {
		return nil, false
	}
	end := first.AddDate(0, 1, -1)
	if end.Before(start) {
		return nil, false
	}
	return &Range{Start: start, End: end}, true
}

func monthStart(month, year string) (time.Time, bool) {
	y, err := strconv.Atoi(year)
	if err != nil {
		return time.Time{}, false
	}
	for _, layout := range []string{"Jan", "January"} {
		if t, err := time.Parse(layout, month); err == nil {
			return time.Date(y, t.Month(), 1, 0, 0, 0, 0, time.UTC), true
		}
	}
	return time.Time{}, false
}

// InferYear picks the year for a yearless month/day.
//
// With a period, the candidate years around it are tried and the one that puts the
// date inside or nearest the period wins, ties going to the later year. This places
// 12/30 in the start year and 01/04 in the end year of a Dec-Jan statement. Without
// a period, fallbackYear is used when positive; otherwise ErrYearUnknown.
func InferYear(month time.Month, day int, period *Range, fallbackYear int) (int, error) {
	if period == nil {
		if fallbackYear > 0 {
			return fallbackYear, nil
		}
		return 0, ErrYearUnknown
	}

	best, bestDist := period.End.Year(), time.Duration(-1)
	for y := period.End.Year() + 1; y >= period.Start.Year()-1; y-- {
		t := time.Date(y, month, day, 0, 0, 0, 0, time.UTC)
		if t.Day() != day {
			continue
		}
		if d := period.distance(t); bestDist < 0 || d < bestDist {
			best, bestDist = y, d
		}
	}
	return best, nil
}

// LatestYear returns the latest plausible four-digit year in text, or 0. Digits
// that are part of an amount such as 2024.00 are ignored.
func LatestYear(text string) int {
	latest := 0
	for _, loc := range yearRe.FindAllStringIndex(text, -1) {
		if loc[1] < len(text)-1 && (text[loc[1]] == '.' || text[loc[1]] == ',') && isDigit(text[loc[1]+1]) {
			continue
		}
		if loc[0] > 0 && (text[loc[0]-1] == '$' || text[loc[0]-1] == ',' || text[loc[0]-1] == '.') {
			continue
		}
		y, _ := strconv.Atoi(text[loc[0]:loc[1]])
		if y > latest {
			latest = y
		}
	}
	return latest
}

func isDigit(b byte) bool { return b >= '0' && b <= '9' }
