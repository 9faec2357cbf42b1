package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/talgya/concept-world/internal/engine"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Clients only send control frames.
	maxMessageSize = 512

	// Progress reports buffered per connection before the monitor drops them.
	streamBuffer = 256
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Observation is read-only; cross-origin dashboards may connect.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// StreamMessage is one frame sent to stream clients.
type StreamMessage struct {
	Type     string            `json:"type"` // "progress", "snapshot" or "done"
	Progress *engine.Progress  `json:"progress,omitempty"`
	Replicas []engine.Progress `json:"replicas,omitempty"`
}

// handleStream upgrades to a WebSocket and pushes every progress report
// of the live run. The first frame is the current snapshot; a "done"
// frame follows once every replica has finished.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	if s.Monitor == nil {
		http.Error(w, "no run in progress", http.StatusServiceUnavailable)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Debug("stream upgrade failed", "error", err)
		return
	}

	updates, unsubscribe := s.Monitor.Subscribe(streamBuffer)
	closed := make(chan struct{})
	go readPump(conn, closed)
	writePump(conn, s.Monitor, updates, closed)
	unsubscribe()
}

// readPump discards client frames so control messages are processed,
// and closes closed when the peer goes away.
func readPump(conn *websocket.Conn, closed chan<- struct{}) {
	defer close(closed)
	conn.SetReadLimit(maxMessageSize)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				slog.Debug("stream read error", "error", err)
			}
			return
		}
	}
}

func writePump(conn *websocket.Conn, m *engine.Monitor, updates <-chan engine.Progress, closed <-chan struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		conn.Close()
	}()

	if err := send(conn, StreamMessage{Type: "snapshot", Replicas: m.Snapshot()}); err != nil {
		return
	}
	if m.Done() {
		finish(conn)
		return
	}

	for {
		select {
		case p, ok := <-updates:
			if !ok {
				return
			}
			if err := send(conn, StreamMessage{Type: "progress", Progress: &p}); err != nil {
				return
			}
			if p.Done && m.Done() {
				finish(conn)
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-closed:
			return
		}
	}
}

func send(conn *websocket.Conn, msg StreamMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteMessage(websocket.TextMessage, data)
}

func finish(conn *websocket.Conn) {
	if send(conn, StreamMessage{Type: "done"}) != nil {
		return
	}
	conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "run finished"),
		time.Now().Add(writeWait))
}
