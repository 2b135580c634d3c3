// Package widget hosts one booking selector per browser session and exposes
// it over HTTP and WebSocket.
package widget

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/wolfman30/bookerai-widget/internal/observability/metrics"
	"github.com/wolfman30/bookerai-widget/internal/selector"
	"github.com/wolfman30/bookerai-widget/internal/session"
	"github.com/wolfman30/bookerai-widget/pkg/logging"
)

// ErrUnknownSession is returned for an id that is neither live nor stored.
var ErrUnknownSession = errors.New("widget: unknown session")

const (
	defaultSweepInterval = time.Minute
	saveTimeout          = 2 * time.Second
)

// SelectorFactory builds a selector that reports changes to obs.
type SelectorFactory func(obs selector.Observer) (*selector.Selector, error)

// HubConfig configures a Hub.
type HubConfig struct {
	NewSelector   SelectorFactory
	Store         session.Store
	TTL           time.Duration
	SweepInterval time.Duration
	Logger        *logging.Logger
	Metrics       *metrics.WidgetMetrics
	Now           func() time.Time
}

// Result is what a client gets back for a command.
type Result struct {
	View     selector.View `json:"view"`
	Navigate string        `json:"navigate,omitempty"`
}

// Session is one live selector and its push subscribers.
type Session struct {
	ID  string
	sel *selector.Selector

	mu       sync.Mutex
	lastSeen time.Time
	subs     map[chan selector.View]struct{}
}

// View returns the session's current view.
func (s *Session) View() selector.View {
	return s.sel.View()
}

func (s *Session) touch(now time.Time) {
	s.mu.Lock()
	s.lastSeen = now
	s.mu.Unlock()
}

// broadcast hands v to every subscriber. A slow subscriber only ever holds
// the newest view.
func (s *Session) broadcast(v selector.View) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for ch := range s.subs {
		select {
		case ch <- v:
		default:
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- v:
			default:
			}
		}
	}
}

func (s *Session) idle(now time.Time, ttl time.Duration) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.subs) == 0 && now.Sub(s.lastSeen) > ttl
}

// Hub owns live sessions keyed by id.
type Hub struct {
	newSelector   SelectorFactory
	store         session.Store
	ttl           time.Duration
	sweepInterval time.Duration
	logger        *logging.Logger
	metrics       *metrics.WidgetMetrics
	now           func() time.Time

	mu       sync.Mutex
	sessions map[string]*Session
}

// NewHub creates a hub. Config.NewSelector is required.
func NewHub(cfg HubConfig) (*Hub, error) {
	if cfg.NewSelector == nil {
		return nil, errors.New("widget: selector factory is required")
	}
	if cfg.Store == nil {
		cfg.Store = session.NewMemoryStore(cfg.TTL)
	}
	if cfg.TTL <= 0 {
		cfg.TTL = session.DefaultTTL
	}
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = defaultSweepInterval
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.Default()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Hub{
		newSelector:   cfg.NewSelector,
		store:         cfg.Store,
		ttl:           cfg.TTL,
		sweepInterval: cfg.SweepInterval,
		logger:        cfg.Logger.Component("widget"),
		metrics:       cfg.Metrics,
		now:           cfg.Now,
		sessions:      make(map[string]*Session),
	}, nil
}

func (h *Hub) build(id string) (*Session, error) {
	sess := &Session{ID: id, lastSeen: h.now(), subs: make(map[chan selector.View]struct{})}
	sel, err := h.newSelector(selector.ObserverFunc(sess.broadcast))
	if err != nil {
		return nil, fmt.Errorf("widget: build selector: %w", err)
	}
	sess.sel = sel
	return sess, nil
}

// register stores sess unless another goroutine got there first, in which
// case the existing session wins.
func (h *Hub) register(sess *Session) *Session {
	h.mu.Lock()
	if existing, ok := h.sessions[sess.ID]; ok {
		h.mu.Unlock()
		return existing
	}
	h.sessions[sess.ID] = sess
	n := len(h.sessions)
	h.mu.Unlock()
	h.metrics.SetActiveSessions(n)
	return sess
}

// Create starts a fresh session with today's slots loaded. A slot loading
// failure is reported in the view, not as an error.
func (h *Hub) Create(ctx context.Context) (*Session, error) {
	sess, err := h.build(uuid.New().String())
	if err != nil {
		return nil, err
	}
	if err := sess.sel.Initialize(ctx); err != nil {
		h.logger.Warn("initial slot load failed", "session_id", sess.ID, "error", err)
	}
	sess = h.register(sess)
	h.persist(ctx, sess)
	h.logger.Info("session created", "session_id", sess.ID)
	return sess, nil
}

// Get returns a live session, rehydrating it from the store when needed.
func (h *Hub) Get(ctx context.Context, id string) (*Session, error) {
	h.mu.Lock()
	sess, ok := h.sessions[id]
	h.mu.Unlock()
	if ok {
		sess.touch(h.now())
		return sess, nil
	}

	snap, err := h.store.Load(ctx, id)
	if err != nil {
		if errors.Is(err, session.ErrInvalidID) {
			return nil, ErrUnknownSession
		}
		return nil, fmt.Errorf("widget: load session: %w", err)
	}
	if snap == nil {
		return nil, ErrUnknownSession
	}

	sess, err = h.build(id)
	if err != nil {
		return nil, err
	}
	if err := sess.sel.Restore(ctx, snap.State()); err != nil {
		h.logger.Warn("session restore incomplete", "session_id", id, "error", err)
	}
	h.logger.Info("session restored", "session_id", id)
	return h.register(sess), nil
}

// Dispatch runs cmd against the session and persists the new state.
// Rejections the client should see in the view (dates outside the window,
// slot load failures) come back as an error together with a valid Result.
func (h *Hub) Dispatch(ctx context.Context, id string, cmd Command) (Result, error) {
	sess, err := h.Get(ctx, id)
	if err != nil {
		return Result{}, err
	}

	out, cmdErr := apply(ctx, sess.sel, cmd)
	if errors.Is(cmdErr, ErrBadCommand) {
		return Result{}, cmdErr
	}
	res := Result{View: sess.View(), Navigate: out.Navigate}
	switch {
	case out.Navigate != "":
		h.finish(ctx, sess)
	case cmd.mutates():
		h.persist(ctx, sess)
	}
	if cmdErr != nil {
		h.logger.Debug("command rejected", "session_id", id, "type", cmd.Type, "error", cmdErr)
	}
	return res, cmdErr
}

// Subscribe registers for pushed views. cancel must be called when done.
func (h *Hub) Subscribe(sess *Session) (<-chan selector.View, func()) {
	ch := make(chan selector.View, 1)
	sess.mu.Lock()
	sess.subs[ch] = struct{}{}
	sess.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			sess.mu.Lock()
			delete(sess.subs, ch)
			sess.mu.Unlock()
			sess.touch(h.now())
		})
	}
}

// Len returns the number of live sessions.
func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.sessions)
}

// Sweep evicts sessions idle for longer than the TTL with no subscribers.
// Their snapshots stay in the store.
func (h *Hub) Sweep() int {
	now := h.now()
	h.mu.Lock()
	evicted := 0
	for id, sess := range h.sessions {
		if sess.idle(now, h.ttl) {
			delete(h.sessions, id)
			evicted++
		}
	}
	n := len(h.sessions)
	h.mu.Unlock()

	if evicted > 0 {
		h.metrics.SetActiveSessions(n)
		h.logger.Debug("evicted idle sessions", "count", evicted, "remaining", n)
	}
	return evicted
}

// Run sweeps idle sessions until ctx is cancelled.
func (h *Hub) Run(ctx context.Context) {
	ticker := time.NewTicker(h.sweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			h.Sweep()
		}
	}
}

// finish drops a session whose booking went through so it cannot be
// restored and submitted again.
func (h *Hub) finish(ctx context.Context, sess *Session) {
	h.mu.Lock()
	if h.sessions[sess.ID] == sess {
		delete(h.sessions, sess.ID)
	}
	n := len(h.sessions)
	h.mu.Unlock()
	h.metrics.SetActiveSessions(n)

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), saveTimeout)
	defer cancel()
	if err := h.store.Delete(ctx, sess.ID); err != nil {
		h.logger.Error("failed to delete finished session", "session_id", sess.ID, "error", err)
	}
	h.logger.Info("session finished", "session_id", sess.ID)
}

func (h *Hub) persist(ctx context.Context, sess *Session) {
	if sess.View().Navigate != "" {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), saveTimeout)
	defer cancel()

	snap := session.FromState(sess.ID, sess.sel.Provider().ProviderID, sess.sel.State(), h.now())
	if err := h.store.Save(ctx, snap); err != nil {
		h.logger.Error("failed to persist session", "session_id", sess.ID, "error", err)
	}
}
