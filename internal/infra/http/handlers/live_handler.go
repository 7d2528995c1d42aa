package handlers

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/xavierca1/hospital-leads/internal/dashboard"
)

const (
	liveWriteWait  = 10 * time.Second
	livePongWait   = 60 * time.Second
	livePingPeriod = livePongWait * 9 / 10
)

// LiveMessage is pushed to the browser after every cache change.
type LiveMessage struct {
	Kind   dashboard.ChangeKind `json:"kind"`
	IDs    []string             `json:"ids,omitempty"`
	Counts dashboard.Counts     `json:"counts"`
	Live   bool                 `json:"live"`
}

type LiveHandler struct {
	Session  *dashboard.Session
	Upgrader websocket.Upgrader
	Logger   *zap.Logger
}

func NewLiveHandler(session *dashboard.Session, allowedOrigins []string, logger *zap.Logger) *LiveHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LiveHandler{
		Session: session,
		Upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     originChecker(allowedOrigins),
		},
		Logger: logger,
	}
}

func originChecker(allowed []string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		for _, a := range allowed {
			if a == "*" || a == origin {
				return true
			}
		}
		return false
	}
}

// Handle (GET /dashboard/live) upgrades to a websocket and streams
// LiveMessage values until the client goes away or the session closes.
func (h *LiveHandler) Handle(w http.ResponseWriter, r *http.Request) {
	conn, err := h.Upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.Logger.Debug("websocket upgrade", zap.Error(err))
		return
	}
	defer conn.Close()

	changes, cancel := h.Session.Watch(16)
	defer cancel()

	// Reader: handles pongs and notices the client closing.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		conn.SetReadLimit(512)
		_ = conn.SetReadDeadline(time.Now().Add(livePongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(livePongWait))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ping := time.NewTicker(livePingPeriod)
	defer ping.Stop()

	if err := h.send(conn, dashboard.Change{Kind: dashboard.ChangeReloaded}); err != nil {
		return
	}
	for {
		select {
		case <-closed:
			return
		case c, ok := <-changes:
			if !ok {
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "session closed"),
					time.Now().Add(liveWriteWait))
				return
			}
			if err := h.send(conn, c); err != nil {
				return
			}
		case <-ping.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(liveWriteWait)); err != nil {
				return
			}
		}
	}
}

func (h *LiveHandler) send(conn *websocket.Conn, c dashboard.Change) error {
	view := h.Session.View(dashboard.Criteria{})
	_ = conn.SetWriteDeadline(time.Now().Add(liveWriteWait))
	return conn.WriteJSON(LiveMessage{
		Kind:   c.Kind,
		IDs:    c.IDs,
		Counts: view.Counts,
		Live:   h.Session.LiveMode() != "",
	})
}
