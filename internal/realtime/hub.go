package realtime

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	sendBufferSize = 64
)

// Hub manages connected dashboard sessions and fans events out to them.
type Hub struct {
	logger   *zap.Logger
	upgrader websocket.Upgrader

	mu      sync.RWMutex
	clients map[string]*session
}

// session is one connected dashboard client. Frames are pushed through a
// buffered channel drained by a single writer goroutine.
type session struct {
	id     string
	conn   *websocket.Conn
	sendCh chan []byte
}

// NewHub creates a fanout hub.
func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Browser dashboards connect cross-origin; access control is
			// handled at the HTTP layer.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		clients: make(map[string]*session),
	}
}

// Publish broadcasts the event to every connected session. Best-effort and
// non-blocking: a session with a full buffer misses the event, and zero
// connected sessions is not an error.
func (h *Hub) Publish(event Event) {
	data, err := json.Marshal(event)
	if err != nil {
		h.logger.Error("Failed to marshal realtime event", zap.Error(err))
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, s := range h.clients {
		select {
		case s.sendCh <- data:
		default:
			h.logger.Warn("Dropping realtime event for slow client",
				zap.String("client_id", s.id),
				zap.String("event_type", string(event.Type)))
		}
	}
}

// ClientCount returns the number of connected sessions.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// ServeHTTP upgrades the request to a WebSocket session and keeps it
// registered until the connection drops.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("WebSocket upgrade failed", zap.Error(err))
		return
	}

	s := &session{
		id:     uuid.New().String(),
		conn:   conn,
		sendCh: make(chan []byte, sendBufferSize),
	}

	h.register(s)

	// Acknowledge the connection before any state events flow.
	if ack, err := json.Marshal(Event{Type: EventConnected}); err == nil {
		s.sendCh <- ack
	}

	go h.writePump(s)
	go h.readPump(s)
}

func (h *Hub) register(s *session) {
	h.mu.Lock()
	h.clients[s.id] = s
	h.mu.Unlock()

	h.logger.Info("Dashboard client connected", zap.String("client_id", s.id))
}

func (h *Hub) unregister(s *session) {
	h.mu.Lock()
	if _, ok := h.clients[s.id]; !ok {
		h.mu.Unlock()
		return
	}
	delete(h.clients, s.id)
	h.mu.Unlock()

	close(s.sendCh)
	h.logger.Info("Dashboard client disconnected", zap.String("client_id", s.id))
}

// writePump drains the session buffer onto the wire and keeps the
// connection alive with pings. One writer per connection.
func (h *Hub) writePump(s *session) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = s.conn.Close()
	}()

	for {
		select {
		case data, ok := <-s.sendCh:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = s.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := s.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump discards inbound frames; the channel is outbound-only. It exists
// to notice the disconnect and unregister the session.
func (h *Hub) readPump(s *session) {
	defer h.unregister(s)

	s.conn.SetReadLimit(512)
	_ = s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := s.conn.ReadMessage(); err != nil {
			return
		}
	}
}
