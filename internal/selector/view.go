package selector

import (
	"strings"
	"time"

	"github.com/wolfman30/bookerai-widget/internal/calendar"
	"github.com/wolfman30/bookerai-widget/internal/slots"
)

// Screen is the visible top-level panel.
type Screen string

const (
	ScreenDatePicking Screen = "date_picking"
	ScreenTimePicking Screen = "time_picking"
)

// SlotStatus describes the slot panel.
type SlotStatus string

const (
	SlotsIdle    SlotStatus = "idle"
	SlotsLoading SlotStatus = "loading"
	SlotsReady   SlotStatus = "ready"
	SlotsEmpty   SlotStatus = "empty"
	SlotsError   SlotStatus = "error"
)

// NoticeKind classifies a transient notice.
type NoticeKind string

const (
	NoticeInfo  NoticeKind = "info"
	NoticeError NoticeKind = "error"
)

const (
	placeholder  = "—"
	otherLabel   = "Other"
	labelIdle    = "Book appointment"
	labelBooking = "Booking..."
	minDigits    = 7
)

// Notice is a non-blocking message that disappears after ExpiresAt.
type Notice struct {
	Kind      NoticeKind `json:"kind"`
	Message   string     `json:"message"`
	ExpiresAt time.Time  `json:"expires_at"`
}

// Selection is the chosen date and time. Either may be unset.
type Selection struct {
	Date *calendar.Date      `json:"date,omitempty"`
	Time *calendar.TimeOfDay `json:"time,omitempty"`
}

func (s Selection) clone() Selection {
	out := Selection{}
	if s.Date != nil {
		d := *s.Date
		out.Date = &d
	}
	if s.Time != nil {
		t := *s.Time
		out.Time = &t
	}
	return out
}

// Contact holds the client's details as typed.
type Contact struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
}

// Valid reports whether the name is non-blank and the phone has at least
// seven digits once everything else is stripped.
func (c Contact) Valid() bool {
	return strings.TrimSpace(c.Name) != "" && PhoneDigits(c.Phone) >= minDigits
}

// PhoneDigits counts ASCII digits in phone.
func PhoneDigits(phone string) int {
	n := 0
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			n++
		}
	}
	return n
}

// SlotView is one selectable time control.
type SlotView struct {
	Value    string `json:"value"`
	Label    string `json:"label"`
	Selected bool   `json:"selected,omitempty"`
}

// Summary is the visible booking recap.
type Summary struct {
	Date string `json:"date"`
	Time string `json:"time"`
}

// View is an immutable snapshot of everything a renderer needs.
type View struct {
	Version         uint64               `json:"version"`
	Screen          Screen               `json:"screen"`
	ProviderName    string               `json:"provider_name"`
	Today           calendar.Date        `json:"today"`
	LastBookable    calendar.Date        `json:"last_bookable"`
	DayStrip        []calendar.DayOption `json:"day_strip"`
	OtherLabel      string               `json:"other_label"`
	CalendarOpen    bool                 `json:"calendar_open"`
	Calendar        *calendar.Grid       `json:"calendar,omitempty"`
	Selection       Selection            `json:"selection"`
	PickedDateLabel string               `json:"picked_date_label,omitempty"`
	Slots           []SlotView           `json:"slots"`
	SlotStatus      SlotStatus           `json:"slot_status"`
	SlotMessage     string               `json:"slot_message,omitempty"`
	Summary         Summary              `json:"summary"`
	Contact         Contact              `json:"contact"`
	CanSubmit       bool                 `json:"can_submit"`
	SubmitEnabled   bool                 `json:"submit_enabled"`
	SubmitLabel     string               `json:"submit_label"`
	Busy            bool                 `json:"busy"`
	Notice          *Notice              `json:"notice,omitempty"`
	Navigate        string               `json:"navigate,omitempty"`
}

// View returns the current snapshot.
func (s *Selector) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.viewLocked()
}

// Selection returns a copy of the current selection.
func (s *Selector) Selection() Selection {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sel.clone()
}

func (s *Selector) viewLocked() View {
	today := s.today()
	v := View{
		Version:      s.version,
		Screen:       s.screen,
		ProviderName: s.provider.DisplayName(),
		Today:        today,
		LastBookable: s.window.Last(today),
		DayStrip:     append([]calendar.DayOption(nil), s.strip...),
		OtherLabel:   otherLabel,
		CalendarOpen: s.calendarOpen,
		Selection:    s.sel.clone(),
		Slots:        make([]SlotView, 0, len(s.slots)),
		SlotStatus:   s.slotStatus,
		SlotMessage:  s.slotMessage,
		Summary:      Summary{Date: placeholder, Time: placeholder},
		Contact:      s.contact,
		CanSubmit:    s.canSubmitLocked(),
		Busy:         s.busy,
		Navigate:     s.navigate,
		SubmitLabel:  labelIdle,
	}
	v.SubmitEnabled = v.CanSubmit && !s.busy && s.navigate == ""
	if s.busy {
		v.SubmitLabel = labelBooking
	}

	if s.calendarOpen {
		grid := calendar.BuildGrid(s.month, today, s.sel.Date, s.window)
		v.Calendar = &grid
	}
	if s.sel.Date != nil {
		v.PickedDateLabel = s.sel.Date.Pretty()
		v.Summary.Date = v.PickedDateLabel
	}
	if s.sel.Time != nil {
		v.Summary.Time = s.sel.Time.Format12h()
	}
	values, labels := slots.Strings(s.slots), slots.Labels(s.slots)
	for i, t := range s.slots {
		v.Slots = append(v.Slots, SlotView{
			Value:    values[i],
			Label:    labels[i],
			Selected: s.sel.Time != nil && *s.sel.Time == t,
		})
	}
	if s.notice != nil && s.now().Before(s.notice.ExpiresAt) {
		n := *s.notice
		v.Notice = &n
	}
	return v
}

// CanSubmit is true iff a date and time are chosen, the name is non-blank
// and the phone carries at least seven digits.
func (s *Selector) CanSubmit() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.canSubmitLocked()
}

func (s *Selector) canSubmitLocked() bool {
	return s.sel.Date != nil && s.sel.Time != nil && s.contact.Valid()
}
