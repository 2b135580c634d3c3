// Package selector implements the booking selector view-model: date picking,
// slot loading and submission gating, independent of any rendering technology.
package selector

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/wolfman30/bookerai-widget/internal/bookerapi"
	"github.com/wolfman30/bookerai-widget/internal/calendar"
	"github.com/wolfman30/bookerai-widget/internal/observability/metrics"
	"github.com/wolfman30/bookerai-widget/internal/provider"
	"github.com/wolfman30/bookerai-widget/pkg/logging"
)

var (
	// ErrOutsideWindow is returned when a date falls outside the booking window.
	ErrOutsideWindow = errors.New("selector: date outside booking window")
	// ErrUnknownSlot is returned when selecting a time that is not offered.
	ErrUnknownSlot = errors.New("selector: time is not an offered slot")
	// ErrNoBackend is returned when the selector was built without a backend.
	ErrNoBackend = errors.New("selector: backend is required")
)

const (
	defaultNoticeTTL       = 3 * time.Second
	defaultConfirmationURL = "/confirmed"
)

// SlotSource lists raw bookable times for a provider on a date.
type SlotSource interface {
	GetSlots(ctx context.Context, providerID string, date calendar.Date) ([]string, error)
}

// AppointmentCreator submits a booking request.
type AppointmentCreator interface {
	CreateAppointment(ctx context.Context, req bookerapi.AppointmentRequest) (*bookerapi.AppointmentResponse, error)
}

// Backend is what the selector needs from the booking API. *bookerapi.Client
// satisfies it.
type Backend interface {
	SlotSource
	AppointmentCreator
}

// Observer is notified with a fresh view after every state change.
type Observer interface {
	Changed(View)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(View)

// Changed calls f(v).
func (f ObserverFunc) Changed(v View) { f(v) }

// Options configure a Selector.
type Options struct {
	Provider        provider.Profile
	Backend         Backend
	Window          calendar.Window
	StripDays       int
	ConfirmationURL string
	Location        *time.Location
	Now             func() time.Time
	NoticeTTL       time.Duration
	Logger          *logging.Logger
	Metrics         *metrics.WidgetMetrics
	Observer        Observer
}

// Selector holds one client's booking selection. All state is private and
// changes only through its commands, so invariants like "changing the date
// clears the time" hold everywhere. It is safe for concurrent use.
type Selector struct {
	provider        provider.Profile
	backend         Backend
	window          calendar.Window
	stripDays       int
	confirmationURL string
	loc             *time.Location
	now             func() time.Time
	noticeTTL       time.Duration
	logger          *logging.Logger
	metrics         *metrics.WidgetMetrics
	observer        Observer

	mu           sync.Mutex
	version      uint64
	seq          uint64
	sel          Selection
	contact      Contact
	screen       Screen
	calendarOpen bool
	month        calendar.Month
	strip        []calendar.DayOption
	slots        []calendar.TimeOfDay
	slotStatus   SlotStatus
	slotMessage  string
	busy         bool
	navigate     string
	notice       *Notice
}

// New builds a selector. Call Initialize to load today's slots.
func New(opts Options) (*Selector, error) {
	if opts.Backend == nil {
		return nil, ErrNoBackend
	}
	opts.Window = calendar.NewWindow(opts.Window.Days)
	if opts.StripDays < 1 {
		opts.StripDays = calendar.DefaultStripDays
	}
	if opts.ConfirmationURL == "" {
		opts.ConfirmationURL = defaultConfirmationURL
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.NoticeTTL <= 0 {
		opts.NoticeTTL = defaultNoticeTTL
	}
	if opts.Logger == nil {
		opts.Logger = logging.Default()
	}

	s := &Selector{
		provider:        opts.Provider,
		backend:         opts.Backend,
		window:          opts.Window,
		stripDays:       opts.StripDays,
		confirmationURL: opts.ConfirmationURL,
		loc:             opts.Location,
		now:             opts.Now,
		noticeTTL:       opts.NoticeTTL,
		logger:          opts.Logger.Component("selector"),
		metrics:         opts.Metrics,
		observer:        opts.Observer,
		screen:          ScreenTimePicking,
		slotStatus:      SlotsIdle,
	}
	today := s.today()
	s.month = calendar.MonthOf(today)
	s.strip = calendar.DayStrip(today, s.stripDays)
	return s, nil
}

// SetObserver replaces the change observer.
func (s *Selector) SetObserver(o Observer) {
	s.mu.Lock()
	s.observer = o
	s.mu.Unlock()
}

// Provider returns the provider profile this selector books for.
func (s *Selector) Provider() provider.Profile {
	return s.provider
}

func (s *Selector) today() calendar.Date {
	return calendar.Today(s.now(), s.loc)
}

// commit bumps the version and snapshots the view. Caller holds s.mu.
func (s *Selector) commit() (View, Observer) {
	s.version++
	return s.viewLocked(), s.observer
}

func (s *Selector) publish(v View, o Observer) {
	if o != nil {
		o.Changed(v)
	}
}

func (s *Selector) setNotice(kind NoticeKind, msg string) {
	s.notice = &Notice{Kind: kind, Message: msg, ExpiresAt: s.now().Add(s.noticeTTL)}
}
