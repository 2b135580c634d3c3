package selector

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/wolfman30/bookerai-widget/internal/bookerapi"
	"github.com/wolfman30/bookerai-widget/internal/calendar"
	"github.com/wolfman30/bookerai-widget/internal/slots"
)

const (
	msgLoadFailed  = "Could not load times. Please try again."
	msgSubmitFail  = "Could not reach the booking service. Please try again."
	msgPastDate    = "That day has already passed. Please pick another date."
	fmtFullyBooked = "%s is fully booked or closed on this day."
	fmtTooFar      = "Sorry, %s cannot be booked this far out."
)

// Outcome is the result of a completed submission.
type Outcome struct {
	// Navigate is the confirmation destination; empty when nothing was sent.
	Navigate string
	// Accepted reports whether the backend answered 2xx. Navigation happens
	// either way.
	Accepted bool
	// Status is the backend HTTP status, zero when nothing was sent.
	Status int
}

// Initialize selects today, shows the time screen and loads today's slots.
func (s *Selector) Initialize(ctx context.Context) error {
	s.mu.Lock()
	today := s.today()
	s.sel = Selection{Date: &today}
	s.screen = ScreenTimePicking
	s.calendarOpen = false
	s.month = calendar.MonthOf(today)
	s.strip = calendar.DayStrip(today, s.stripDays)
	s.mu.Unlock()

	if !s.provider.HasID() {
		s.logger.Warn("provider id missing from page configuration; slot loading will fail")
	}
	return s.LoadSlotsFor(ctx, today)
}

// GoBack rebuilds the short day list, shows the date screen and clears the time.
func (s *Selector) GoBack() {
	s.mu.Lock()
	s.strip = calendar.DayStrip(s.today(), s.stripDays)
	s.screen = ScreenDatePicking
	s.calendarOpen = false
	s.sel.Time = nil
	v, o := s.commit()
	s.mu.Unlock()
	s.publish(v, o)
}

// PickDate selects date and loads its slots. A date outside the booking
// window leaves the state untouched apart from a notice and returns
// ErrOutsideWindow.
func (s *Selector) PickDate(ctx context.Context, date calendar.Date) error {
	s.mu.Lock()
	switch placement := s.window.Classify(s.today(), date); placement {
	case calendar.Past, calendar.TooFar:
		if placement == calendar.Past {
			s.setNotice(NoticeInfo, msgPastDate)
		} else {
			s.setNotice(NoticeInfo, fmt.Sprintf(fmtTooFar, s.provider.DisplayName()))
		}
		v, o := s.commit()
		s.mu.Unlock()
		s.metrics.ObserveDateRejection(placement.String())
		s.publish(v, o)
		return fmt.Errorf("%w: %s is %s", ErrOutsideWindow, date, placement)
	}

	d := date
	s.sel = Selection{Date: &d}
	s.screen = ScreenTimePicking
	s.calendarOpen = false
	s.mu.Unlock()

	return s.LoadSlotsFor(ctx, date)
}

// OpenExtendedPicker reveals the month grid on the date screen.
func (s *Selector) OpenExtendedPicker() {
	s.setCalendar(func() { s.calendarOpen = true })
}

// CloseExtendedPicker collapses the month grid.
func (s *Selector) CloseExtendedPicker() {
	s.setCalendar(func() { s.calendarOpen = false })
}

// ToggleExtendedPicker flips the month grid, the "Other" entry's behaviour.
func (s *Selector) ToggleExtendedPicker() {
	s.setCalendar(func() { s.calendarOpen = !s.calendarOpen })
}

// PrevMonth moves the visible month back. Browsing is unbounded.
func (s *Selector) PrevMonth() {
	s.setCalendar(func() { s.month = s.month.Prev() })
}

// NextMonth moves the visible month forward. Browsing is unbounded.
func (s *Selector) NextMonth() {
	s.setCalendar(func() { s.month = s.month.Next() })
}

func (s *Selector) setCalendar(mutate func()) {
	s.mu.Lock()
	s.screen = ScreenDatePicking
	mutate()
	v, o := s.commit()
	s.mu.Unlock()
	s.publish(v, o)
}

// ClickCalendarDay handles a click on a month grid day. Days beyond the
// window raise a notice naming the provider, past days do nothing, and
// bookable days behave like PickDate.
func (s *Selector) ClickCalendarDay(ctx context.Context, date calendar.Date) error {
	s.mu.Lock()
	placement := s.window.Classify(s.today(), date)
	switch placement {
	case calendar.Past:
		s.mu.Unlock()
		return nil
	case calendar.TooFar:
		s.setNotice(NoticeInfo, fmt.Sprintf(fmtTooFar, s.provider.DisplayName()))
		v, o := s.commit()
		s.mu.Unlock()
		s.metrics.ObserveDateRejection(placement.String())
		s.publish(v, o)
		return nil
	}
	s.mu.Unlock()
	return s.PickDate(ctx, date)
}

// LoadSlotsFor fetches the bookable times of date, which must be the selected
// date. Existing slots and the chosen time are cleared first. A response that
// arrives after a newer load started, or after the date changed, is dropped.
func (s *Selector) LoadSlotsFor(ctx context.Context, date calendar.Date) error {
	s.mu.Lock()
	if s.sel.Date == nil || *s.sel.Date != date {
		s.mu.Unlock()
		return fmt.Errorf("selector: %s is not the selected date", date)
	}
	s.seq++
	ticket := s.seq
	s.sel.Time = nil
	s.slots = nil
	s.slotStatus = SlotsLoading
	s.slotMessage = ""
	providerID := s.provider.ProviderID
	v, o := s.commit()
	s.mu.Unlock()
	s.publish(v, o)

	start := time.Now()
	raw, err := s.backend.GetSlots(ctx, providerID, date)
	elapsed := time.Since(start).Seconds()

	s.mu.Lock()
	if ticket != s.seq || s.sel.Date == nil || *s.sel.Date != date {
		s.mu.Unlock()
		s.metrics.ObserveStaleResponse()
		s.logger.Debug("discarding stale slot response", "date", date.String())
		return nil
	}

	var result string
	switch {
	case err != nil:
		result = "error"
		s.slotStatus = SlotsError
		s.slotMessage = msgLoadFailed
	default:
		s.slots = slots.Normalize(raw)
		if len(s.slots) == 0 {
			result = "empty"
			s.slotStatus = SlotsEmpty
			s.slotMessage = fmt.Sprintf(fmtFullyBooked, s.provider.DisplayName())
		} else {
			result = "ok"
			s.slotStatus = SlotsReady
		}
	}
	v, o = s.commit()
	s.mu.Unlock()

	s.metrics.ObserveSlotFetch(result, elapsed)
	s.publish(v, o)

	if err != nil {
		s.logger.Warn("failed to load slots", "provider_id", providerID, "date", date.String(), "error", err)
		return fmt.Errorf("load slots for %s: %w", date, err)
	}
	s.logger.Debug("slots loaded", "provider_id", providerID, "date", date.String(), "raw", len(raw), "offered", len(v.Slots))
	return nil
}

// Reload retries slot loading for the selected date.
func (s *Selector) Reload(ctx context.Context) error {
	s.mu.Lock()
	if s.sel.Date == nil {
		s.mu.Unlock()
		return fmt.Errorf("selector: no date selected")
	}
	d := *s.sel.Date
	s.mu.Unlock()
	return s.LoadSlotsFor(ctx, d)
}

// SelectTime marks t as the chosen slot. t must be one of the offered times.
func (s *Selector) SelectTime(t calendar.TimeOfDay) error {
	s.mu.Lock()
	if !containsTime(s.slots, t) {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrUnknownSlot, t)
	}
	chosen := t
	s.sel.Time = &chosen
	v, o := s.commit()
	s.mu.Unlock()
	s.publish(v, o)
	return nil
}

// SetName updates the client name.
func (s *Selector) SetName(name string) {
	s.updateContact(func(c *Contact) { c.Name = name })
}

// SetPhone updates the client phone.
func (s *Selector) SetPhone(phone string) {
	s.updateContact(func(c *Contact) { c.Phone = phone })
}

// SetContact updates both contact fields.
func (s *Selector) SetContact(name, phone string) {
	s.updateContact(func(c *Contact) {
		c.Name = name
		c.Phone = phone
	})
}

func (s *Selector) updateContact(mutate func(*Contact)) {
	s.mu.Lock()
	mutate(&s.contact)
	v, o := s.commit()
	s.mu.Unlock()
	s.publish(v, o)
}

// Submit sends the booking when CanSubmit holds; otherwise it does nothing.
// Any completed round trip navigates to the confirmation destination, even
// when the backend rejected the booking. Only a transport failure keeps the
// client on the page, with the submit action re-enabled.
func (s *Selector) Submit(ctx context.Context) (Outcome, error) {
	s.mu.Lock()
	if !s.canSubmitLocked() || s.busy || s.navigate != "" {
		s.mu.Unlock()
		return Outcome{}, nil
	}
	s.busy = true
	req := bookerapi.AppointmentRequest{
		ProviderID:  s.provider.ProviderID,
		Date:        s.sel.Date.String(),
		StartTime:   s.sel.Time.String(),
		ClientName:  strings.TrimSpace(s.contact.Name),
		ClientPhone: strings.TrimSpace(s.contact.Phone),
	}
	v, o := s.commit()
	s.mu.Unlock()
	s.publish(v, o)

	resp, err := s.backend.CreateAppointment(ctx, req)

	s.mu.Lock()
	s.busy = false
	if err != nil {
		s.setNotice(NoticeError, msgSubmitFail)
		v, o = s.commit()
		s.mu.Unlock()
		s.metrics.ObserveSubmission("transport_error", "none")
		s.logger.Error("appointment submission failed", "provider_id", req.ProviderID, "date", req.Date, "error", err)
		s.publish(v, o)
		return Outcome{}, fmt.Errorf("submit appointment: %w", err)
	}

	s.navigate = s.confirmationURL
	v, o = s.commit()
	s.mu.Unlock()

	out := Outcome{Navigate: s.confirmationURL, Accepted: resp.Accepted()}
	if resp != nil {
		out.Status = resp.Status
	}
	s.metrics.ObserveSubmission("completed", strconv.Itoa(out.Status))
	if !out.Accepted {
		s.logger.Warn("backend did not confirm booking; navigating anyway",
			"provider_id", req.ProviderID, "date", req.Date, "start_time", req.StartTime, "status", out.Status)
	} else {
		s.logger.Info("appointment submitted", "provider_id", req.ProviderID, "date", req.Date, "start_time", req.StartTime)
	}
	s.publish(v, o)
	return out, nil
}

func containsTime(times []calendar.TimeOfDay, t calendar.TimeOfDay) bool {
	for _, x := range times {
		if x == t {
			return true
		}
	}
	return false
}
