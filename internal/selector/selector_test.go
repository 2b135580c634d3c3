package selector

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/bookerai-widget/internal/bookerapi"
	"github.com/wolfman30/bookerai-widget/internal/calendar"
	"github.com/wolfman30/bookerai-widget/internal/provider"
	"github.com/wolfman30/bookerai-widget/pkg/logging"
)

var today = calendar.NewDate(2026, 10, 14)

type fakeBackend struct {
	mu           sync.Mutex
	slots        map[calendar.Date][]string
	slotErr      error
	slotCalls    int
	beforeSlots  func(call int, date calendar.Date)
	created      []bookerapi.AppointmentRequest
	createStatus int
	createErr    error
	beforeCreate func()
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{slots: map[calendar.Date][]string{}, createStatus: 201}
}

func (f *fakeBackend) GetSlots(ctx context.Context, providerID string, date calendar.Date) ([]string, error) {
	f.mu.Lock()
	f.slotCalls++
	call := f.slotCalls
	hook := f.beforeSlots
	raw, err := f.slots[date], f.slotErr
	f.mu.Unlock()

	if hook != nil {
		hook(call, date)
	}
	return raw, err
}

func (f *fakeBackend) CreateAppointment(ctx context.Context, req bookerapi.AppointmentRequest) (*bookerapi.AppointmentResponse, error) {
	if f.beforeCreate != nil {
		f.beforeCreate()
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.created = append(f.created, req)
	if f.createErr != nil {
		return nil, f.createErr
	}
	return &bookerapi.AppointmentResponse{Status: f.createStatus}, nil
}

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type recorder struct {
	mu    sync.Mutex
	views []View
}

func (r *recorder) Changed(v View) {
	r.mu.Lock()
	r.views = append(r.views, v)
	r.mu.Unlock()
}

func (r *recorder) all() []View {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]View(nil), r.views...)
}

type harness struct {
	sel     *Selector
	backend *fakeBackend
	clock   *clock
	views   *recorder
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		backend: newFakeBackend(),
		clock:   &clock{now: time.Date(2026, 10, 14, 10, 0, 0, 0, time.UTC)},
		views:   &recorder{},
	}
	h.backend.slots[today] = []string{"10:00", "09:00", "10:00", "bad"}

	sel, err := New(Options{
		Provider: provider.Profile{ProviderID: "barber-1", Name: "Jay"},
		Backend:  h.backend,
		Location: time.UTC,
		Now:      h.clock.Now,
		Logger:   logging.New("error"),
		Observer: h.views,
	})
	require.NoError(t, err)
	h.sel = sel
	return h
}

func (h *harness) init(t *testing.T) {
	t.Helper()
	require.NoError(t, h.sel.Initialize(context.Background()))
}

func slotValues(v View) []string {
	out := make([]string, 0, len(v.Slots))
	for _, s := range v.Slots {
		out = append(out, s.Value)
	}
	return out
}

func tod(t *testing.T, s string) calendar.TimeOfDay {
	t.Helper()
	v, err := calendar.ParseTimeOfDay(s)
	require.NoError(t, err)
	return v
}

func TestNew_RequiresBackend(t *testing.T) {
	_, err := New(Options{})
	assert.ErrorIs(t, err, ErrNoBackend)
}

func TestInitialize_SelectsTodayAndLoadsNormalizedSlots(t *testing.T) {
	h := newHarness(t)
	h.init(t)

	v := h.sel.View()
	assert.Equal(t, ScreenTimePicking, v.Screen)
	require.NotNil(t, v.Selection.Date)
	assert.Equal(t, today, *v.Selection.Date)
	assert.Nil(t, v.Selection.Time)
	assert.Equal(t, SlotsReady, v.SlotStatus)
	assert.Equal(t, []string{"09:00", "10:00"}, slotValues(v))
	assert.Equal(t, "9:00 AM", v.Slots[0].Label)
	assert.Equal(t, "Wed, Oct 14", v.PickedDateLabel)
	assert.Equal(t, Summary{Date: "Wed, Oct 14", Time: "—"}, v.Summary)
	assert.False(t, v.CanSubmit)
	assert.Equal(t, "Book appointment", v.SubmitLabel)
}

func TestLoadSlots_ShowsLoadingFirst(t *testing.T) {
	h := newHarness(t)
	h.init(t)

	views := h.views.all()
	require.GreaterOrEqual(t, len(views), 2)
	assert.Equal(t, SlotsLoading, views[0].SlotStatus)
	assert.Empty(t, views[0].Slots)
	assert.Equal(t, SlotsReady, views[len(views)-1].SlotStatus)
	for i := 1; i < len(views); i++ {
		assert.Greater(t, views[i].Version, views[i-1].Version)
	}
}

func TestPickDate_WindowBoundaries(t *testing.T) {
	h := newHarness(t)
	h.init(t)
	ctx := context.Background()

	require.NoError(t, h.sel.PickDate(ctx, today.AddDays(30)))
	assert.Equal(t, today.AddDays(30), *h.sel.Selection().Date)

	err := h.sel.PickDate(ctx, today.AddDays(31))
	assert.ErrorIs(t, err, ErrOutsideWindow)
	assert.Equal(t, today.AddDays(30), *h.sel.Selection().Date)
	v := h.sel.View()
	require.NotNil(t, v.Notice)
	assert.Equal(t, "Sorry, Jay cannot be booked this far out.", v.Notice.Message)

	err = h.sel.PickDate(ctx, today.AddDays(-1))
	assert.ErrorIs(t, err, ErrOutsideWindow)
	assert.Equal(t, today.AddDays(30), *h.sel.Selection().Date)

	require.NoError(t, h.sel.PickDate(ctx, today))
	assert.Equal(t, today, *h.sel.Selection().Date)
}

func TestNew_WindowOptionMatchesNewWindow(t *testing.T) {
	for _, days := range []int{-3, 0, 1, 7} {
		sel, err := New(Options{
			Backend:  newFakeBackend(),
			Window:   calendar.Window{Days: days},
			Location: time.UTC,
			Now:      func() time.Time { return time.Date(2026, 10, 14, 10, 0, 0, 0, time.UTC) },
		})
		require.NoError(t, err)
		want := calendar.NewWindow(days).Last(today)
		assert.Equal(t, want, sel.View().LastBookable, "days=%d", days)
	}
}

func TestPickDate_ClearsTimeAndDisablesSubmit(t *testing.T) {
	h := newHarness(t)
	h.init(t)
	h.backend.slots[today.AddDays(1)] = []string{"09:00"}
	h.sel.SetContact("Jo", "555-123-4567")

	require.NoError(t, h.sel.SelectTime(tod(t, "09:00")))
	assert.True(t, h.sel.CanSubmit())

	require.NoError(t, h.sel.PickDate(context.Background(), today.AddDays(1)))
	v := h.sel.View()
	assert.Nil(t, v.Selection.Time)
	assert.False(t, v.CanSubmit)
	assert.False(t, v.SubmitEnabled)
	assert.Equal(t, "—", v.Summary.Time)
	assert.Equal(t, ScreenTimePicking, v.Screen)
}

func TestCanSubmit(t *testing.T) {
	tests := []struct {
		name  string
		cName string
		phone string
		pick  bool
		want  bool
	}{
		{name: "blank name", cName: "", phone: "5551234567", pick: true, want: false},
		{name: "whitespace name", cName: "   ", phone: "5551234567", pick: true, want: false},
		{name: "short phone", cName: "Jo", phone: "555", pick: true, want: false},
		{name: "punctuated phone counts digits", cName: "Jo", phone: "(555) 12-34", pick: true, want: true},
		{name: "no time", cName: "Jo", phone: "5551234567", pick: false, want: false},
		{name: "all valid", cName: "Jo", phone: "5551234567", pick: true, want: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			h.init(t)
			h.sel.SetName(tt.cName)
			h.sel.SetPhone(tt.phone)
			if tt.pick {
				require.NoError(t, h.sel.SelectTime(tod(t, "10:00")))
			}
			assert.Equal(t, tt.want, h.sel.CanSubmit())
			assert.Equal(t, tt.want, h.sel.View().SubmitEnabled)
		})
	}
}

func TestSelectTime(t *testing.T) {
	h := newHarness(t)
	h.init(t)

	err := h.sel.SelectTime(tod(t, "11:00"))
	assert.ErrorIs(t, err, ErrUnknownSlot)
	assert.Nil(t, h.sel.Selection().Time)

	require.NoError(t, h.sel.SelectTime(tod(t, "09:00")))
	require.NoError(t, h.sel.SelectTime(tod(t, "10:00")))
	v := h.sel.View()
	selected := 0
	for _, s := range v.Slots {
		if s.Selected {
			selected++
			assert.Equal(t, "10:00", s.Value)
		}
	}
	assert.Equal(t, 1, selected)
	assert.Equal(t, "10:00 AM", v.Summary.Time)
}

func TestLoadSlots_DropsStaleResponse(t *testing.T) {
	h := newHarness(t)
	h.init(t)
	first, second := today.AddDays(1), today.AddDays(2)
	h.backend.slots[first] = []string{"08:00"}
	h.backend.slots[second] = []string{"15:00", "14:00"}

	entered := make(chan struct{})
	release := make(chan struct{})
	h.backend.mu.Lock()
	callsBefore := h.backend.slotCalls
	h.backend.beforeSlots = func(call int, date calendar.Date) {
		if call == callsBefore+1 {
			close(entered)
			<-release
		}
	}
	h.backend.mu.Unlock()

	done := make(chan error, 1)
	go func() { done <- h.sel.PickDate(context.Background(), first) }()
	<-entered

	require.NoError(t, h.sel.PickDate(context.Background(), second))
	close(release)
	require.NoError(t, <-done)

	v := h.sel.View()
	assert.Equal(t, second, *v.Selection.Date)
	assert.Equal(t, []string{"14:00", "15:00"}, slotValues(v))
	assert.Equal(t, SlotsReady, v.SlotStatus)
}

func TestLoadSlots_DropsSupersededRequestForSameDate(t *testing.T) {
	h := newHarness(t)
	h.init(t)

	entered := make(chan struct{})
	release := make(chan struct{})
	h.backend.mu.Lock()
	callsBefore := h.backend.slotCalls
	h.backend.beforeSlots = func(call int, date calendar.Date) {
		if call == callsBefore+1 {
			close(entered)
			<-release
		}
	}
	h.backend.mu.Unlock()

	done := make(chan error, 1)
	go func() { done <- h.sel.Reload(context.Background()) }()
	<-entered

	h.backend.mu.Lock()
	h.backend.slots[today] = []string{"16:00"}
	h.backend.mu.Unlock()
	require.NoError(t, h.sel.Reload(context.Background()))

	h.backend.mu.Lock()
	h.backend.slots[today] = []string{"07:00"}
	h.backend.mu.Unlock()
	close(release)
	require.NoError(t, <-done)

	assert.Equal(t, []string{"16:00"}, slotValues(h.sel.View()))
}

func TestLoadSlots_EmptyIsFullyBooked(t *testing.T) {
	h := newHarness(t)
	h.backend.slots[today] = []string{}
	h.init(t)
	h.sel.SetContact("Jo", "5551234567")

	v := h.sel.View()
	assert.Equal(t, SlotsEmpty, v.SlotStatus)
	assert.Equal(t, "Jay is fully booked or closed on this day.", v.SlotMessage)
	assert.Empty(t, v.Slots)
	assert.False(t, v.CanSubmit)
	assert.False(t, v.SubmitEnabled)
}

func TestLoadSlots_Failure(t *testing.T) {
	h := newHarness(t)
	h.backend.slotErr = &bookerapi.StatusError{Op: "get slots", Status: 502}

	err := h.sel.Initialize(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, bookerapi.ErrUnavailable)

	v := h.sel.View()
	assert.Equal(t, SlotsError, v.SlotStatus)
	assert.Equal(t, "Could not load times. Please try again.", v.SlotMessage)
	assert.Empty(t, v.Slots)
}

func TestLoadSlots_RejectsUnselectedDate(t *testing.T) {
	h := newHarness(t)
	h.init(t)
	assert.Error(t, h.sel.LoadSlotsFor(context.Background(), today.AddDays(3)))
}

func TestGoBack_RebuildsStripAndClearsTime(t *testing.T) {
	h := newHarness(t)
	h.init(t)
	require.NoError(t, h.sel.SelectTime(tod(t, "09:00")))
	h.sel.OpenExtendedPicker()

	h.sel.GoBack()
	v := h.sel.View()
	assert.Equal(t, ScreenDatePicking, v.Screen)
	assert.False(t, v.CalendarOpen)
	assert.Nil(t, v.Calendar)
	assert.Nil(t, v.Selection.Time)
	assert.Equal(t, "Other", v.OtherLabel)
	require.Len(t, v.DayStrip, 5)
	assert.Equal(t, "Today", v.DayStrip[0].Label)
	assert.Equal(t, today.AddDays(4), v.DayStrip[4].Date)
	assert.Equal(t, today.AddDays(calendar.DefaultWindowDays), v.LastBookable)
}

func TestExtendedPicker_MonthPersistsAcrossToggles(t *testing.T) {
	h := newHarness(t)
	h.init(t)

	h.sel.ToggleExtendedPicker()
	v := h.sel.View()
	require.NotNil(t, v.Calendar)
	assert.Equal(t, "October 2026", v.Calendar.Title)

	h.sel.NextMonth()
	h.sel.NextMonth()
	h.sel.ToggleExtendedPicker()
	assert.Nil(t, h.sel.View().Calendar)

	h.sel.ToggleExtendedPicker()
	v = h.sel.View()
	require.NotNil(t, v.Calendar)
	assert.Equal(t, "December 2026", v.Calendar.Title)

	h.sel.CloseExtendedPicker()
	h.sel.PrevMonth()
	h.sel.OpenExtendedPicker()
	assert.Equal(t, "November 2026", h.sel.View().Calendar.Title)
}

func TestClickCalendarDay(t *testing.T) {
	h := newHarness(t)
	h.init(t)
	ctx := context.Background()
	h.sel.OpenExtendedPicker()
	before := h.sel.View()

	require.NoError(t, h.sel.ClickCalendarDay(ctx, today.AddDays(-3)))
	assert.Equal(t, before.Version, h.sel.View().Version)

	require.NoError(t, h.sel.ClickCalendarDay(ctx, today.AddDays(45)))
	v := h.sel.View()
	require.NotNil(t, v.Notice)
	assert.Equal(t, "Sorry, Jay cannot be booked this far out.", v.Notice.Message)
	assert.Equal(t, today, *v.Selection.Date)
	assert.True(t, v.CalendarOpen)

	h.backend.slots[today.AddDays(5)] = []string{"12:00"}
	require.NoError(t, h.sel.ClickCalendarDay(ctx, today.AddDays(5)))
	v = h.sel.View()
	assert.Equal(t, today.AddDays(5), *v.Selection.Date)
	assert.False(t, v.CalendarOpen)
	assert.Equal(t, ScreenTimePicking, v.Screen)
	assert.Equal(t, []string{"12:00"}, slotValues(v))
}

func TestNotice_Expires(t *testing.T) {
	h := newHarness(t)
	h.init(t)

	require.Error(t, h.sel.PickDate(context.Background(), today.AddDays(40)))
	require.NotNil(t, h.sel.View().Notice)

	h.clock.Advance(4 * time.Second)
	assert.Nil(t, h.sel.View().Notice)
}

func readyToSubmit(t *testing.T, h *harness) {
	t.Helper()
	h.init(t)
	require.NoError(t, h.sel.SelectTime(tod(t, "10:00")))
	h.sel.SetContact("  Jo  ", " 555-123-4567 ")
}

func TestSubmit_SendsTrimmedRequestAndNavigates(t *testing.T) {
	h := newHarness(t)
	readyToSubmit(t, h)

	out, err := h.sel.Submit(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Outcome{Navigate: "/confirmed", Accepted: true, Status: 201}, out)

	require.Len(t, h.backend.created, 1)
	assert.Equal(t, bookerapi.AppointmentRequest{
		ProviderID:  "barber-1",
		Date:        "2026-10-14",
		StartTime:   "10:00",
		ClientName:  "Jo",
		ClientPhone: "555-123-4567",
	}, h.backend.created[0])

	v := h.sel.View()
	assert.Equal(t, "/confirmed", v.Navigate)
	assert.False(t, v.SubmitEnabled)

	sawBusy := false
	for _, view := range h.views.all() {
		if view.Busy {
			sawBusy = true
			assert.Equal(t, "Booking...", view.SubmitLabel)
			assert.False(t, view.SubmitEnabled)
		}
	}
	assert.True(t, sawBusy)

	again, err := h.sel.Submit(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Outcome{}, again)
	assert.Len(t, h.backend.created, 1)
}

func TestSubmit_NavigatesEvenWhenRejected(t *testing.T) {
	for _, status := range []int{409, 500} {
		h := newHarness(t)
		h.backend.createStatus = status
		readyToSubmit(t, h)

		out, err := h.sel.Submit(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "/confirmed", out.Navigate)
		assert.False(t, out.Accepted)
		assert.Equal(t, status, out.Status)
	}
}

func TestSubmit_TransportFailureStaysAndReenables(t *testing.T) {
	h := newHarness(t)
	h.backend.createErr = errors.New("connection refused")
	readyToSubmit(t, h)

	out, err := h.sel.Submit(context.Background())
	require.Error(t, err)
	assert.Empty(t, out.Navigate)

	v := h.sel.View()
	assert.Empty(t, v.Navigate)
	assert.False(t, v.Busy)
	assert.True(t, v.SubmitEnabled)
	assert.Equal(t, "Book appointment", v.SubmitLabel)
	require.NotNil(t, v.Notice)
	assert.Equal(t, NoticeError, v.Notice.Kind)
	assert.Equal(t, "Could not reach the booking service. Please try again.", v.Notice.Message)
}

func TestSubmit_NoopWhenIneligible(t *testing.T) {
	h := newHarness(t)
	h.init(t)

	out, err := h.sel.Submit(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Outcome{}, out)
	assert.Empty(t, h.backend.created)
}

func TestSubmit_IgnoresSecondClickWhileBusy(t *testing.T) {
	h := newHarness(t)
	readyToSubmit(t, h)

	entered := make(chan struct{})
	release := make(chan struct{})
	h.backend.beforeCreate = func() {
		close(entered)
		<-release
	}

	done := make(chan Outcome, 1)
	go func() {
		out, _ := h.sel.Submit(context.Background())
		done <- out
	}()
	<-entered

	out, err := h.sel.Submit(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Outcome{}, out)

	close(release)
	assert.Equal(t, "/confirmed", (<-done).Navigate)
}

func TestStateAndRestore(t *testing.T) {
	h := newHarness(t)
	h.backend.slots[today.AddDays(2)] = []string{"13:30"}
	h.init(t)
	require.NoError(t, h.sel.PickDate(context.Background(), today.AddDays(2)))
	require.NoError(t, h.sel.SelectTime(tod(t, "13:30")))
	h.sel.SetContact("Jo", "5551234567")
	st := h.sel.State()

	other := newHarness(t)
	other.backend.slots[today.AddDays(2)] = []string{"13:30"}
	require.NoError(t, other.sel.Restore(context.Background(), st))

	v := other.sel.View()
	assert.Equal(t, today.AddDays(2), *v.Selection.Date)
	require.NotNil(t, v.Selection.Time)
	assert.Equal(t, "1:30 PM", v.Summary.Time)
	assert.Equal(t, Contact{Name: "Jo", Phone: "5551234567"}, v.Contact)
	assert.True(t, v.CanSubmit)
}

func TestRestore_DropsVanishedTimeAndExpiredDate(t *testing.T) {
	h := newHarness(t)
	gone := tod(t, "08:15")
	d := today.AddDays(1)
	h.backend.slots[d] = []string{"09:00"}

	require.NoError(t, h.sel.Restore(context.Background(), State{Date: &d, Time: &gone, Name: "Jo"}))
	v := h.sel.View()
	assert.Equal(t, d, *v.Selection.Date)
	assert.Nil(t, v.Selection.Time)

	old := today.AddDays(-2)
	require.NoError(t, h.sel.Restore(context.Background(), State{Date: &old}))
	v = h.sel.View()
	assert.Equal(t, today, *v.Selection.Date)
	assert.Nil(t, v.Notice)
}
