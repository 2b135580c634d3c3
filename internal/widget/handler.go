package widget

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/wolfman30/bookerai-widget/internal/selector"
	"github.com/wolfman30/bookerai-widget/pkg/logging"
)

const (
	maxCommandBytes = 4 << 10
	writeWait       = 10 * time.Second
	pongWait        = 60 * time.Second
	pingPeriod      = (pongWait * 9) / 10
)

// OutboundMessage is what the widget receives over the socket.
type OutboundMessage struct {
	Type      string         `json:"type"` // "session", "view", "navigate", "error", "pong"
	SessionID string         `json:"session_id,omitempty"`
	View      *selector.View `json:"view,omitempty"`
	URL       string         `json:"url,omitempty"`
	Error     string         `json:"error,omitempty"`
}

type commandResponse struct {
	SessionID string        `json:"session_id,omitempty"`
	View      selector.View `json:"view"`
	Navigate  string        `json:"navigate,omitempty"`
	Error     string        `json:"error,omitempty"`
}

// Handler serves the widget endpoints.
type Handler struct {
	hub      *Hub
	logger   *logging.Logger
	upgrader websocket.Upgrader
}

// NewHandler creates a widget handler. allowedOrigins limits WebSocket
// upgrades; empty or "*" allows any origin.
func NewHandler(hub *Hub, allowedOrigins []string, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{
		hub:    hub,
		logger: logger.Component("widget_http"),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     originChecker(allowedOrigins),
		},
	}
}

// Routes mounts the widget endpoints.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/sessions", h.CreateSession)
	r.Get("/sessions/{sessionID}", h.GetSession)
	r.Post("/sessions/{sessionID}/commands", h.HandleCommand)
	r.Get("/ws", h.HandleWebSocket)
	return r
}

// CreateSession starts a new selector session.
func (h *Handler) CreateSession(w http.ResponseWriter, r *http.Request) {
	sess, err := h.hub.Create(r.Context())
	if err != nil {
		h.logger.Error("failed to create session", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to create session"})
		return
	}
	writeJSON(w, http.StatusCreated, commandResponse{SessionID: sess.ID, View: sess.View()})
}

// GetSession returns the current view of a session.
func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(chi.URLParam(r, "sessionID"))
	sess, err := h.hub.Get(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, commandResponse{SessionID: sess.ID, View: sess.View()})
}

// HandleCommand applies one command and returns the resulting view.
func (h *Handler) HandleCommand(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(chi.URLParam(r, "sessionID"))

	var cmd Command
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxCommandBytes)).Decode(&cmd); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	res, err := h.hub.Dispatch(r.Context(), id, cmd)
	if err != nil && (errors.Is(err, ErrUnknownSession) || errors.Is(err, ErrBadCommand)) {
		h.writeError(w, err)
		return
	}
	resp := commandResponse{SessionID: id, View: res.View, Navigate: res.Navigate}
	if err != nil {
		resp.Error = clientMessage(err)
	}
	writeJSON(w, http.StatusOK, resp)
}

// HandleWebSocket upgrades to a WebSocket that accepts commands and pushes
// every view change. Without a session query parameter a new session is
// created.
func (h *Handler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var (
		sess *Session
		err  error
	)
	if id := strings.TrimSpace(r.URL.Query().Get("session")); id != "" {
		sess, err = h.hub.Get(ctx, id)
	} else {
		sess, err = h.hub.Create(ctx)
	}
	if err != nil {
		h.writeError(w, err)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Debug("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	views, cancel := h.hub.Subscribe(sess)
	defer cancel()

	out := &socketWriter{conn: conn}
	done := make(chan struct{})
	defer close(done)

	_ = out.send(OutboundMessage{Type: "session", SessionID: sess.ID})
	initial := sess.View()
	_ = out.send(OutboundMessage{Type: "view", View: &initial})

	go h.pump(out, views, done)

	conn.SetReadLimit(maxCommandBytes)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	h.logger.Info("widget socket opened", "session_id", sess.ID)
	for {
		var cmd Command
		if err := conn.ReadJSON(&cmd); err != nil {
			h.logger.Debug("widget socket closed", "session_id", sess.ID, "error", err)
			return
		}
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))

		if cmd.Type == CmdPing {
			sess.touch(h.hub.now())
			_ = out.send(OutboundMessage{Type: "pong"})
			continue
		}

		res, err := h.hub.Dispatch(ctx, sess.ID, cmd)
		if err != nil {
			_ = out.send(OutboundMessage{Type: "error", Error: clientMessage(err)})
		}
		if res.Navigate != "" {
			_ = out.send(OutboundMessage{Type: "navigate", URL: res.Navigate})
		}
	}
}

// pump forwards pushed views and keeps the connection alive with pings.
func (h *Handler) pump(out *socketWriter, views <-chan selector.View, done <-chan struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case v := <-views:
			if err := out.send(OutboundMessage{Type: "view", View: &v}); err != nil {
				return
			}
		case <-ticker.C:
			if err := out.ping(); err != nil {
				return
			}
		}
	}
}

// socketWriter serializes writes; gorilla connections allow one writer.
type socketWriter struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (s *socketWriter) send(msg OutboundMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return s.conn.WriteJSON(msg)
}

func (s *socketWriter) ping() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait))
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrUnknownSession):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "unknown session"})
	case errors.Is(err, ErrBadCommand):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
	default:
		h.logger.Error("widget request failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
	}
}

// clientMessage maps a command error to text safe to show a client.
func clientMessage(err error) string {
	switch {
	case errors.Is(err, selector.ErrOutsideWindow):
		return "date outside booking window"
	case errors.Is(err, selector.ErrUnknownSlot):
		return "time is not available"
	case errors.Is(err, ErrBadCommand), errors.Is(err, ErrUnknownSession):
		return err.Error()
	default:
		return "request failed"
	}
}

func originChecker(allowed []string) func(*http.Request) bool {
	set := make(map[string]struct{}, len(allowed))
	for _, o := range allowed {
		o = strings.TrimSpace(o)
		if o == "*" {
			return func(*http.Request) bool { return true }
		}
		if o != "" {
			set[strings.TrimRight(o, "/")] = struct{}{}
		}
	}
	if len(set) == 0 {
		return func(*http.Request) bool { return true }
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		_, ok := set[strings.TrimRight(origin, "/")]
		return ok
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
