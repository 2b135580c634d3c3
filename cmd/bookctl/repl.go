package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/wolfman30/bookerai-widget/internal/calendar"
	"github.com/wolfman30/bookerai-widget/internal/selector"
)

const helpText = `commands:
  view                 show the current state
  back                 return to the day list
  pick YYYY-MM-DD      choose a date
  other                toggle the month calendar
  prev | next          browse months
  click YYYY-MM-DD     click a day in the month calendar
  reload               retry loading times
  time HH:MM           choose a time
  name <text>          set the client name
  phone <text>         set the client phone
  submit               book the appointment
  quit                 exit`

// run reads commands from in until quit, EOF or a completed submission.
func run(ctx context.Context, sel *selector.Selector, in io.Reader, out io.Writer) error {
	if err := sel.Initialize(ctx); err != nil {
		fmt.Fprintf(out, "! %v\n", err)
	}
	render(out, sel.View())

	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}
		verb, arg, _ := strings.Cut(strings.TrimSpace(scanner.Text()), " ")
		arg = strings.TrimSpace(arg)

		var err error
		verb = strings.ToLower(verb)
		switch verb {
		case "":
			continue
		case "help", "?":
			fmt.Fprintln(out, helpText)
			continue
		case "quit", "exit":
			return nil
		case "view":
		case "back":
			sel.GoBack()
		case "pick", "click":
			var d calendar.Date
			if d, err = calendar.ParseDate(arg); err == nil {
				if verb == "pick" {
					err = sel.PickDate(ctx, d)
				} else {
					err = sel.ClickCalendarDay(ctx, d)
				}
			}
		case "other":
			sel.ToggleExtendedPicker()
		case "prev":
			sel.PrevMonth()
		case "next":
			sel.NextMonth()
		case "reload":
			err = sel.Reload(ctx)
		case "time":
			var t calendar.TimeOfDay
			if t, err = calendar.ParseTimeOfDay(arg); err == nil {
				err = sel.SelectTime(t)
			}
		case "name":
			sel.SetName(arg)
		case "phone":
			sel.SetPhone(arg)
		case "submit":
			var outcome selector.Outcome
			outcome, err = sel.Submit(ctx)
			if err == nil && outcome.Navigate != "" {
				render(out, sel.View())
				if !outcome.Accepted {
					fmt.Fprintf(out, "backend answered %d\n", outcome.Status)
				}
				fmt.Fprintf(out, "-> %s\n", outcome.Navigate)
				return nil
			}
			if err == nil {
				fmt.Fprintln(out, "! not ready to book yet")
			}
		default:
			fmt.Fprintf(out, "unknown command %q, try help\n", verb)
			continue
		}
		if err != nil && !errors.Is(err, selector.ErrOutsideWindow) {
			fmt.Fprintf(out, "! %v\n", err)
		}
		render(out, sel.View())
	}
}

func render(out io.Writer, v selector.View) {
	fmt.Fprintf(out, "== %s ==\n", v.ProviderName)
	if v.Notice != nil {
		fmt.Fprintf(out, "[%s] %s\n", v.Notice.Kind, v.Notice.Message)
	}

	switch v.Screen {
	case selector.ScreenDatePicking:
		labels := make([]string, 0, len(v.DayStrip)+1)
		for _, d := range v.DayStrip {
			labels = append(labels, fmt.Sprintf("%s (%s)", d.Label, d.Date))
		}
		labels = append(labels, v.OtherLabel)
		fmt.Fprintf(out, "days: %s\n", strings.Join(labels, " | "))
		fmt.Fprintf(out, "bookable through %s\n", v.LastBookable.Pretty())
		if v.Calendar != nil {
			renderGrid(out, *v.Calendar)
		}
	case selector.ScreenTimePicking:
		fmt.Fprintf(out, "date: %s\n", v.PickedDateLabel)
		switch v.SlotStatus {
		case selector.SlotsLoading:
			fmt.Fprintln(out, "loading times...")
		case selector.SlotsReady:
			parts := make([]string, 0, len(v.Slots))
			for _, s := range v.Slots {
				mark := " "
				if s.Selected {
					mark = "*"
				}
				parts = append(parts, fmt.Sprintf("%s%s [%s]", mark, s.Label, s.Value))
			}
			fmt.Fprintf(out, "times: %s\n", strings.Join(parts, " "))
		default:
			if v.SlotMessage != "" {
				fmt.Fprintln(out, v.SlotMessage)
			}
		}
	}

	fmt.Fprintf(out, "summary: %s at %s\n", v.Summary.Date, v.Summary.Time)
	state := "disabled"
	if v.SubmitEnabled {
		state = "ready"
	}
	fmt.Fprintf(out, "%s: %s\n", v.SubmitLabel, state)
}

func renderGrid(out io.Writer, g calendar.Grid) {
	fmt.Fprintf(out, "   %s\n", g.Title)
	fmt.Fprintln(out, " "+strings.Join(g.Weekdays, " "))
	for i, c := range g.Cells {
		switch {
		case c.Blank:
			fmt.Fprint(out, "   ")
		case c.Selected:
			fmt.Fprintf(out, "[%2d", c.Day)
		case c.Disabled:
			fmt.Fprintf(out, " %2s", "..")
		default:
			fmt.Fprintf(out, " %2d", c.Day)
		}
		if (i+1)%7 == 0 {
			fmt.Fprintln(out)
		}
	}
	if len(g.Cells)%7 != 0 {
		fmt.Fprintln(out)
	}
}
