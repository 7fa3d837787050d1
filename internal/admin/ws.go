package admin

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"signalops-sim/internal/eventbus"
	"signalops-sim/internal/session"
)

const (
	clientBuffer = 64
	writeWait    = 5 * time.Second
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// wsMessage is the envelope sent to websocket clients.
type wsMessage struct {
	Type   string          `json:"type"`
	Status *session.Status `json:"status,omitempty"`
	Record *session.Record `json:"record,omitempty"`
	Error  string          `json:"error,omitempty"`
}

type client struct {
	conn *websocket.Conn
	send chan []byte
	once sync.Once
}

func (c *client) close() {
	c.once.Do(func() {
		close(c.send)
	})
}

// hub fans session records out to connected clients. Slow clients drop
// messages instead of blocking the session.
type hub struct {
	mu      sync.Mutex
	clients map[*client]struct{}
}

func newHub() *hub {
	return &hub{clients: make(map[*client]struct{})}
}

func (h *hub) add(c *client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
}

func (h *hub) remove(c *client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		c.close()
	}
	h.mu.Unlock()
}

func (h *hub) broadcast(msg wsMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		select {
		case c.send <- data:
		default:
		}
	}
}

// sendTo queues data for one client if it is still connected.
func (h *hub) sendTo(c *client, data []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; !ok {
		return
	}
	select {
	case c.send <- data:
	default:
	}
}

func (h *hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		delete(h.clients, c)
		c.close()
	}
}

func (h *hub) len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// handleWS streams records to the client and publishes the events it sends
// ({"kind": ..., "target_id": ...}) on the session bus.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("websocket upgrade failed", "err", err)
		return
	}
	c := &client{conn: conn, send: make(chan []byte, clientBuffer)}
	status := s.ctrl.Status()
	if hello, err := json.Marshal(wsMessage{Type: "hello", Status: &status}); err == nil {
		c.send <- hello
	}
	s.hub.add(c)
	go s.writePump(c)

	defer func() {
		s.hub.remove(c)
		conn.Close()
	}()
	for {
		var ev eventbus.Event
		if err := conn.ReadJSON(&ev); err != nil {
			return
		}
		if err := s.ctrl.Bus().Publish(context.Background(), ev); err != nil {
			if data, mErr := json.Marshal(wsMessage{Type: "error", Error: err.Error()}); mErr == nil {
				s.hub.sendTo(c, data)
			}
		}
	}
}

func (s *Server) writePump(c *client) {
	for data := range c.send {
		_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
			s.log.Debug("websocket write failed", "err", err)
			s.hub.remove(c)
			return
		}
	}
	_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
}
