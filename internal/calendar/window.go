package calendar

// DefaultWindowDays is how far ahead clients may book.
const DefaultWindowDays = 30

// Placement describes where a date falls relative to a booking window.
type Placement int

const (
	InWindow Placement = iota
	Past
	TooFar
)

func (p Placement) String() string {
	switch p {
	case Past:
		return "past"
	case TooFar:
		return "too_far"
	default:
		return "in_window"
	}
}

// MarshalText encodes the placement name.
func (p Placement) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// Window is the inclusive range [today, today+Days] of bookable dates.
type Window struct {
	Days int
}

// NewWindow returns a window of days; values below one use the default.
func NewWindow(days int) Window {
	if days < 1 {
		days = DefaultWindowDays
	}
	return Window{Days: days}
}

// Classify places d relative to the window starting at today.
func (w Window) Classify(today, d Date) Placement {
	diff := DiffDays(today, d)
	switch {
	case diff < 0:
		return Past
	case diff > w.Days:
		return TooFar
	default:
		return InWindow
	}
}

// Contains reports whether d is bookable.
func (w Window) Contains(today, d Date) bool {
	return w.Classify(today, d) == InWindow
}

// Last returns the final bookable date.
func (w Window) Last(today Date) Date {
	return today.AddDays(w.Days)
}
