// Package dates parses statement dates in issuer-specific formats and infers the
// year of dates printed without one.
package dates

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrYearUnknown is returned when a yearless date has no period or year context.
var ErrYearUnknown = errors.New("year unknown")

// DefaultFormats are tried when a spec or extractor names none.
var DefaultFormats = []string{
	"01/02/2006", "1/2/2006", "01/02/06", "1/2/06", "2006-01-02",
	"Jan 2, 2006", "January 2, 2006", "02 Jan 2006", "Jan 2 2006",
	"01/02", "1/2", "Jan 2", "02 Jan",
}

// Format is a compiled date format.
type Format struct {
	// Source is the format as written.
	Source string
	// Layout is the Go reference layout.
	Layout  string
	HasYear bool
}

var strftime = strings.NewReplacer(
	"%Y", "2006", "%y", "06",
	"%m", "01", "%-m", "1",
	"%d", "02", "%-d", "2", "%e", "_2",
	"%b", "Jan", "%B", "January", "%h", "Jan",
	"%a", "Mon", "%A", "Monday",
)

// Compile converts a format to a Go layout. Formats containing % are read as
// strftime, anything else as a Go reference layout.
func Compile(format string) (Format, error) {
	f := strings.TrimSpace(format)
	if f == "" {
		return Format{}, errors.New("empty date format")
	}

	layout := f
	if strings.Contains(f, "%") {
		layout = strftime.Replace(f)
		if strings.Contains(layout, "%") {
			return Format{}, fmt.Errorf("unsupported strftime directive in %q", format)
		}
	}
	if !strings.ContainsAny(layout, "12") && !strings.Contains(layout, "Jan") {
		return Format{}, fmt.Errorf("date format %q has no month or day", format)
	}

	return Format{
		Source:  format,
		Layout:  layout,
		HasYear: strings.Contains(layout, "06"),
	}, nil
}

// CompileAll compiles formats in order, failing on the first bad one.
func CompileAll(formats []string) ([]Format, error) {
	out := make([]Format, 0, len(formats))
	for _, f := range formats {
		c, err := Compile(f)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

// MustCompileAll is CompileAll for package-level format tables.
func MustCompileAll(formats []string) []Format {
	out, err := CompileAll(formats)
	if err != nil {
		panic(err)
	}
	return out
}

// Parsed is a date read from a cell. When HasYear is false only Month and Day are
// meaningful.
type Parsed struct {
	Time    time.Time
	HasYear bool
}

// Parse tries each format in order and returns the first match.
func Parse(raw string, formats []Format) (Parsed, error) {
	s := strings.Join(strings.Fields(raw), " ")
	if s == "" {
		return Parsed{}, errors.New("empty date")
	}
	for _, f := range formats {
		t, err := time.Parse(f.Layout, s)
		if err != nil {
			continue
		}
		return Parsed{Time: t, HasYear: f.HasYear}, nil
	}
	return Parsed{}, fmt.Errorf("no format matches %q", raw)
}

// WithYear places a yearless date in year. Feb 29 in a non-leap year is an error.
func (p Parsed) WithYear(year int) (time.Time, error) {
	t := time.Date(year, p.Time.Month(), p.Time.Day(), 0, 0, 0, 0, time.UTC)
	if t.Day() != p.Time.Day() {
		return time.Time{}, fmt.Errorf("%s %d does not exist in %d", p.Time.Month(), p.Time.Day(), year)
	}
	return t, nil
}

// Resolve returns the calendar date of p, inferring the year for yearless dates
// from the statement period, or from fallbackYear when there is no period.
func (p Parsed) Resolve(period *Range, fallbackYear int) (time.Time, error) {
	if p.HasYear {
		return time.Date(p.Time.Year(), p.Time.Month(), p.Time.Day(), 0, 0, 0, 0, time.UTC), nil
	}
	year, err := InferYear(p.Time.Month(), p.Time.Day(), period, fallbackYear)
	if err != nil {
		return time.Time{}, err
	}
	return p.WithYear(year)
}

// LooksLikeDate reports whether s parses with any default format.
func LooksLikeDate(s string) bool {
	_, err := Parse(s, defaultCompiled)
	return err == nil
}

var defaultCompiled = MustCompileAll(DefaultFormats)

// Defaults returns the compiled default formats.
func Defaults() []Format {
	out := make([]Format, len(defaultCompiled))
	copy(out, defaultCompiled)
	return out
}
