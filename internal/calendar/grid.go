package calendar

import (
	"fmt"
	"time"
)

// DefaultStripDays is the number of dated entries in the short day list.
const DefaultStripDays = 5

// Weekdays are the month grid column headers, Sunday first.
var Weekdays = []string{"Su", "Mo", "Tu", "We", "Th", "Fr", "Sa"}

// DayOption is one entry of the short day list.
type DayOption struct {
	Date  Date   `json:"date"`
	Label string `json:"label"`
	Today bool   `json:"today,omitempty"`
}

// DayStrip returns today and the following n-1 days. The first entry is
// labelled "Today".
func DayStrip(today Date, n int) []DayOption {
	if n < 1 {
		n = 1
	}
	out := make([]DayOption, 0, n)
	for i := 0; i < n; i++ {
		d := today.AddDays(i)
		opt := DayOption{Date: d, Label: d.Pretty()}
		if i == 0 {
			opt.Label = "Today"
			opt.Today = true
		}
		out = append(out, opt)
	}
	return out
}

// Month identifies a calendar month for the extended picker.
type Month struct {
	Year  int        `json:"year"`
	Month time.Month `json:"month"`
}

// MonthOf returns the month containing d.
func MonthOf(d Date) Month {
	return Month{Year: d.Year, Month: d.Month}
}

// Add moves delta months forward or back. There is no bound in either direction.
func (m Month) Add(delta int) Month {
	return MonthOf(NewDate(m.Year, m.Month+time.Month(delta), 1))
}

// Prev returns the previous month.
func (m Month) Prev() Month { return m.Add(-1) }

// Next returns the next month.
func (m Month) Next() Month { return m.Add(1) }

// First returns the first day of the month.
func (m Month) First() Date {
	return NewDate(m.Year, m.Month, 1)
}

// DaysIn returns the number of days in the month.
func (m Month) DaysIn() int {
	return NewDate(m.Year, m.Month+1, 0).Day
}

// Title renders e.g. "October 2026".
func (m Month) Title() string {
	return fmt.Sprintf("%s %d", m.Month, m.Year)
}

// Cell is one position of the month grid. Blank cells pad the first week.
type Cell struct {
	Blank    bool      `json:"blank,omitempty"`
	Date     Date      `json:"date"`
	Day      int       `json:"day,omitempty"`
	Today    bool      `json:"today,omitempty"`
	Selected bool      `json:"selected,omitempty"`
	Disabled bool      `json:"disabled,omitempty"`
	Reason   Placement `json:"reason,omitempty"`
}

// Grid is a rendered month for the extended picker.
type Grid struct {
	Month    Month    `json:"month"`
	Title    string   `json:"title"`
	Weekdays []string `json:"weekdays"`
	Cells    []Cell   `json:"cells"`
}

// BuildGrid lays out month m. Each day is enabled or disabled by w relative to
// today; selected, when non-nil, is marked.
func BuildGrid(m Month, today Date, selected *Date, w Window) Grid {
	first := m.First()
	lead := int(first.Weekday())
	days := m.DaysIn()

	cells := make([]Cell, 0, lead+days)
	for i := 0; i < lead; i++ {
		cells = append(cells, Cell{Blank: true})
	}
	for day := 1; day <= days; day++ {
		d := NewDate(m.Year, m.Month, day)
		placement := w.Classify(today, d)
		cells = append(cells, Cell{
			Date:     d,
			Day:      day,
			Today:    d == today,
			Selected: selected != nil && *selected == d,
			Disabled: placement != InWindow,
			Reason:   placement,
		})
	}

	return Grid{
		Month:    m,
		Title:    m.Title(),
		Weekdays: append([]string(nil), Weekdays...),
		Cells:    cells,
	}
}
