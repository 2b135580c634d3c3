package widget

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/wolfman30/bookerai-widget/internal/calendar"
	"github.com/wolfman30/bookerai-widget/internal/selector"
)

// ErrBadCommand marks a malformed or unknown command.
var ErrBadCommand = errors.New("widget: bad command")

// Command types accepted over HTTP and WebSocket.
const (
	CmdInit           = "init"
	CmdGoBack         = "go_back"
	CmdPickDate       = "pick_date"
	CmdToggleCalendar = "toggle_calendar"
	CmdOpenCalendar   = "open_calendar"
	CmdCloseCalendar  = "close_calendar"
	CmdPrevMonth      = "prev_month"
	CmdNextMonth      = "next_month"
	CmdClickDay       = "click_day"
	CmdSelectTime     = "select_time"
	CmdSetContact     = "set_contact"
	CmdReload         = "reload"
	CmdSubmit         = "submit"
	CmdPing           = "ping"
)

// Command is one client action.
type Command struct {
	Type  string  `json:"type"`
	Date  string  `json:"date,omitempty"`
	Time  string  `json:"time,omitempty"`
	Name  *string `json:"name,omitempty"`
	Phone *string `json:"phone,omitempty"`
}

// mutates reports whether the command can change the selection.
func (c Command) mutates() bool {
	return c.Type != CmdPing
}

func (c Command) date() (calendar.Date, error) {
	d, err := calendar.ParseDate(strings.TrimSpace(c.Date))
	if err != nil {
		return calendar.Date{}, fmt.Errorf("%w: %s needs a YYYY-MM-DD date: %v", ErrBadCommand, c.Type, err)
	}
	return d, nil
}

func (c Command) timeOfDay() (calendar.TimeOfDay, error) {
	t, err := calendar.ParseTimeOfDay(c.Time)
	if err != nil {
		return calendar.TimeOfDay{}, fmt.Errorf("%w: %s needs an HH:MM time: %v", ErrBadCommand, c.Type, err)
	}
	return t, nil
}

// apply runs cmd against sel. Only submit yields a non-zero outcome.
func apply(ctx context.Context, sel *selector.Selector, cmd Command) (selector.Outcome, error) {
	switch cmd.Type {
	case CmdInit:
		return selector.Outcome{}, sel.Initialize(ctx)
	case CmdGoBack:
		sel.GoBack()
	case CmdPickDate, CmdClickDay:
		d, err := cmd.date()
		if err != nil {
			return selector.Outcome{}, err
		}
		if cmd.Type == CmdClickDay {
			return selector.Outcome{}, sel.ClickCalendarDay(ctx, d)
		}
		return selector.Outcome{}, sel.PickDate(ctx, d)
	case CmdToggleCalendar:
		sel.ToggleExtendedPicker()
	case CmdOpenCalendar:
		sel.OpenExtendedPicker()
	case CmdCloseCalendar:
		sel.CloseExtendedPicker()
	case CmdPrevMonth:
		sel.PrevMonth()
	case CmdNextMonth:
		sel.NextMonth()
	case CmdSelectTime:
		t, err := cmd.timeOfDay()
		if err != nil {
			return selector.Outcome{}, err
		}
		return selector.Outcome{}, sel.SelectTime(t)
	case CmdSetContact:
		if cmd.Name != nil {
			sel.SetName(*cmd.Name)
		}
		if cmd.Phone != nil {
			sel.SetPhone(*cmd.Phone)
		}
	case CmdReload:
		return selector.Outcome{}, sel.Reload(ctx)
	case CmdSubmit:
		return sel.Submit(ctx)
	case CmdPing:
	default:
		return selector.Outcome{}, fmt.Errorf("%w: unknown type %q", ErrBadCommand, cmd.Type)
	}
	return selector.Outcome{}, nil
}
