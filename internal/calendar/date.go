// Package calendar provides zone-free calendar dates, times of day and the
// booking window arithmetic used by the booking selector.
package calendar

import (
	"fmt"
	"time"
)

const dateLayout = "2006-01-02"

// Date is a civil year/month/day with no time zone. Values are always built
// from local wall-clock parts so a date never shifts across a day boundary.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// NewDate normalizes the parts (Oct 32 becomes Nov 1) and returns the date.
func NewDate(year int, month time.Month, day int) Date {
	return DateOf(time.Date(year, month, day, 0, 0, 0, 0, time.UTC))
}

// DateOf returns the wall-clock date of t in t's own location.
func DateOf(t time.Time) Date {
	return Date{Year: t.Year(), Month: t.Month(), Day: t.Day()}
}

// Today returns the local calendar date of now in loc.
func Today(now time.Time, loc *time.Location) Date {
	if loc == nil {
		loc = time.Local
	}
	return DateOf(now.In(loc))
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return Date{}, fmt.Errorf("calendar: invalid date %q: %w", s, err)
	}
	return DateOf(t), nil
}

// String returns the canonical YYYY-MM-DD form.
func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}

// AddDays returns the date n days after d (n may be negative).
func (d Date) AddDays(n int) Date {
	return NewDate(d.Year, d.Month, d.Day+n)
}

// Weekday returns the day of the week of d.
func (d Date) Weekday() time.Weekday {
	return d.civil().Weekday()
}

// Compare returns -1, 0 or +1.
func (d Date) Compare(o Date) int {
	return d.civil().Compare(o.civil())
}

// Before reports whether d is earlier than o.
func (d Date) Before(o Date) bool { return d.Compare(o) < 0 }

// After reports whether d is later than o.
func (d Date) After(o Date) bool { return d.Compare(o) > 0 }

// Pretty renders a short label such as "Wed, Oct 14".
func (d Date) Pretty() string {
	return d.civil().Format("Mon, Jan 2")
}

// MarshalText encodes d as YYYY-MM-DD.
func (d Date) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalText decodes a YYYY-MM-DD value.
func (d *Date) UnmarshalText(b []byte) error {
	parsed, err := ParseDate(string(b))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// civil anchors the date at UTC midnight. UTC has no DST, so differences
// between civil values are always whole days.
func (d Date) civil() time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC)
}

// DiffDays returns the number of calendar days from from to to. It equals
// ceil((to at local midnight - from at local midnight) / 24h) on days without
// a DST transition, and stays exact on the 23h and 25h days around one.
func DiffDays(from, to Date) int {
	return int(to.civil().Sub(from.civil()).Hours() / 24)
}
