package httpx

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"time"

	domainauth "github.com/Dev-16-apk/breedify/internal/domain/auth"
	"github.com/gorilla/websocket"
)

const (
	wsWriteDeadline = 5 * time.Second
	wsPingInterval  = 30 * time.Second
	wsPongDeadline  = 60 * time.Second
	wsReadLimit     = 4 << 10
)

// EventHandlers streams session state over a websocket. Clients may send
// {"type":"activity","kind":"keydown"} messages to report activity.
type EventHandlers struct {
	AllowedOrigins []string
	Logger         *slog.Logger

	upgrader websocket.Upgrader
}

// NewEventHandlers builds handlers accepting the given browser origins.
// With no origins configured only same-origin requests are upgraded.
func NewEventHandlers(allowedOrigins []string, logger *slog.Logger) *EventHandlers {
	if logger == nil {
		logger = slog.Default()
	}
	h := &EventHandlers{AllowedOrigins: allowedOrigins, Logger: logger}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     h.checkOrigin,
	}
	return h
}

func (h *EventHandlers) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	if slices.Contains(h.AllowedOrigins, origin) || slices.Contains(h.AllowedOrigins, "*") {
		return true
	}
	u, err := url.Parse(origin)
	return err == nil && strings.EqualFold(u.Host, r.Host)
}

type clientMessage struct {
	Type string `json:"type"`
	Kind string `json:"kind"`
}

// Stream handles GET /api/session/events.
func (h *EventHandlers) Stream(w http.ResponseWriter, r *http.Request) {
	m := SessionManagerFromContext(r.Context())

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote an HTTP error response.
		h.Logger.DebugContext(r.Context(), "websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	updates, unsubscribe := m.Subscribe()
	defer unsubscribe()

	done := make(chan struct{})
	go func() {
		defer close(done)
		conn.SetReadLimit(wsReadLimit)
		_ = conn.SetReadDeadline(time.Now().Add(wsPongDeadline))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(wsPongDeadline))
		})
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			var msg clientMessage
			if json.Unmarshal(data, &msg) != nil || msg.Type != "activity" {
				continue
			}
			m.RecordActivity(domainauth.ActivityKind(strings.ToLower(msg.Kind)))
		}
	}()

	ticker := time.NewTicker(wsPingInterval)
	defer ticker.Stop()

	for {
		select {
		case state, ok := <-updates:
			if !ok {
				h.closeConn(conn, websocket.CloseGoingAway, "session manager closed")
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteDeadline))
			if err := conn.WriteJSON(state); err != nil {
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteDeadline))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-done:
			return
		case <-r.Context().Done():
			h.closeConn(conn, websocket.CloseGoingAway, "server shutting down")
			return
		}
	}
}

func (h *EventHandlers) closeConn(conn *websocket.Conn, code int, reason string) {
	_ = conn.SetWriteDeadline(time.Now().Add(wsWriteDeadline))
	_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(code, reason))
}
