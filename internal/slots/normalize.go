// Package slots normalizes the start times a provider's backend offers for a day.
package slots

import (
	"sort"

	"github.com/wolfman30/bookerai-widget/internal/calendar"
)

// Normalize parses raw HH:MM strings, drops entries that do not parse,
// removes duplicates by canonical HH:MM and sorts by time of day. It never
// fails as a whole; a malformed entry only removes itself.
func Normalize(raw []string) []calendar.TimeOfDay {
	seen := make(map[string]struct{}, len(raw))
	out := make([]calendar.TimeOfDay, 0, len(raw))
	for _, s := range raw {
		t, err := calendar.ParseTimeOfDay(s)
		if err != nil {
			continue
		}
		key := t.String()
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Minutes() < out[j].Minutes() })
	return out
}

// Strings returns the canonical HH:MM form of each time.
func Strings(times []calendar.TimeOfDay) []string {
	out := make([]string, len(times))
	for i, t := range times {
		out[i] = t.String()
	}
	return out
}

// Labels returns the 12-hour display form of each time.
func Labels(times []calendar.TimeOfDay) []string {
	out := make([]string, len(times))
	for i, t := range times {
		out[i] = t.Format12h()
	}
	return out
}
