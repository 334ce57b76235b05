package progress

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	maxMsgSize = 4 * 1024
)

// Event types published while a confirmation runs.
const (
	EventDayStarted          = "day_started"
	EventDayConverted        = "day_converted"
	EventDayAlreadyConfirmed = "day_already_confirmed"
	EventDayFailed           = "day_failed"
	EventDaySkipped          = "day_skipped"
	EventFinished            = "finished"
)

// Event is pushed to every client watching a portal session.
type Event struct {
	Type    string    `json:"type"`
	LeadID  int64     `json:"lead_id,omitempty"`
	Label   string    `json:"label,omitempty"`
	Status  string    `json:"status,omitempty"`
	Message string    `json:"message,omitempty"`
	Index   int       `json:"index,omitempty"`
	Total   int       `json:"total,omitempty"`
	At      time.Time `json:"at"`
}

// connection is a single websocket client.
type connection struct {
	sessionID string
	conn      *websocket.Conn
	send      chan []byte
}

// Hub fans progress events out to the websocket clients of a session.
type Hub struct {
	mu          sync.RWMutex
	connections map[string]map[*connection]struct{} // sessionID -> clients
}

func NewHub() *Hub {
	return &Hub{
		connections: make(map[string]map[*connection]struct{}),
	}
}

func (h *Hub) register(c *connection) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.connections[c.sessionID]
	if !ok {
		set = make(map[*connection]struct{})
		h.connections[c.sessionID] = set
	}
	set[c] = struct{}{}
}

func (h *Hub) unregister(c *connection) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.connections[c.sessionID]
	if !ok {
		return
	}
	if _, ok := set[c]; ok {
		delete(set, c)
		close(c.send)
	}
	if len(set) == 0 {
		delete(h.connections, c.sessionID)
	}
}

// Subscribers is the number of clients watching a session.
func (h *Hub) Subscribers(sessionID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.connections[sessionID])
}

// Publish sends an event to every client of the session. It never blocks:
// clients whose buffer is full miss the event.
func (h *Hub) Publish(sessionID string, ev Event) {
	if ev.At.IsZero() {
		ev.At = time.Now().UTC()
	}
	data, err := json.Marshal(ev)
	if err != nil {
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.connections[sessionID] {
		select {
		case c.send <- data:
		default:
			// client too slow, skip
		}
	}
}

// ServeWS registers the connection and runs its read and write loops. It
// blocks until the client disconnects.
func (h *Hub) ServeWS(conn *websocket.Conn, sessionID string) {
	c := &connection{
		sessionID: sessionID,
		conn:      conn,
		send:      make(chan []byte, 64),
	}
	h.register(c)

	go h.writePump(c)
	h.readPump(c)
}

// readPump only drains control frames; clients have nothing to say.
func (h *Hub) readPump(c *connection) {
	defer func() {
		h.unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMsgSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) writePump(c *connection) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
