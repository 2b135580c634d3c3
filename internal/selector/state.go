package selector

import (
	"context"
	"errors"

	"github.com/wolfman30/bookerai-widget/internal/calendar"
)

// State is the portable part of a selection, used to survive reconnects.
type State struct {
	Date  *calendar.Date      `json:"date,omitempty"`
	Time  *calendar.TimeOfDay `json:"time,omitempty"`
	Name  string              `json:"name,omitempty"`
	Phone string              `json:"phone,omitempty"`
}

// State exports the current selection and contact.
func (s *Selector) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	sel := s.sel.clone()
	return State{Date: sel.Date, Time: sel.Time, Name: s.contact.Name, Phone: s.contact.Phone}
}

// Restore rehydrates a previously exported state. The contact is always
// restored. A date still inside the booking window is re-selected and its
// slots reloaded; the time survives only if it is still offered. A date that
// has left the window falls back to Initialize.
func (s *Selector) Restore(ctx context.Context, st State) error {
	s.SetContact(st.Name, st.Phone)

	if st.Date == nil {
		return s.Initialize(ctx)
	}
	if err := s.PickDate(ctx, *st.Date); err != nil {
		if errors.Is(err, ErrOutsideWindow) {
			s.mu.Lock()
			s.notice = nil
			s.mu.Unlock()
			return s.Initialize(ctx)
		}
		return err
	}
	if st.Time == nil {
		return nil
	}
	if err := s.SelectTime(*st.Time); err != nil && !errors.Is(err, ErrUnknownSlot) {
		return err
	}
	return nil
}
