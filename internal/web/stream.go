package web

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"samayan-ad-pro/internal/ad"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

type statusMessage struct {
	Type    string     `json:"type"`
	Status  ad.Status  `json:"status"`
	Message string     `json:"message,omitempty"`
	Result  *ad.Result `json:"result,omitempty"`
}

// handleStatusStream pushes the session's current status and then every transition.
func (s *Server) handleStatusStream(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.existingSession(r)
	if !ok {
		http.Error(w, "no session", http.StatusUnauthorized)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "err", err)
		return
	}
	defer conn.Close()

	events := make(chan ad.Event, 16)
	unsubscribe := sess.Orchestrator.Subscribe(func(ev ad.Event) {
		select {
		case events <- ev:
		default:
			s.logger.Warn("status stream full, dropping event", "status", string(ev.Status))
		}
	})
	defer unsubscribe()

	closed := make(chan struct{})
	go func() {
		defer close(closed)
		conn.SetReadLimit(512)
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(pongWait))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	snap := sess.Orchestrator.Snapshot()
	if err := writeStatus(conn, ad.Event{Status: snap.Status, Message: snap.Message, Result: snap.Result}); err != nil {
		return
	}

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-closed:
			return
		case <-r.Context().Done():
			return
		case ev := <-events:
			if err := writeStatus(conn, ev); err != nil {
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func writeStatus(conn *websocket.Conn, ev ad.Event) error {
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteJSON(statusMessage{
		Type:    "status",
		Status:  ev.Status,
		Message: ev.Message,
		Result:  ev.Result,
	})
}
