package stream

import (
	"errors"
	"log"
	"sync"

	"github.com/gorilla/websocket"
)

// sendBuffer is the number of envelopes queued per client before drops start.
const sendBuffer = 64

// ErrHubFull is returned by Register once maxClients dashboards are connected.
var ErrHubFull = errors.New("stream: too many clients")

// Client is one connected dashboard.
type Client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte
}

// Hub fans envelopes out to a bounded set of dashboards. A slow dashboard
// misses envelopes instead of stalling the tick; misses are counted per
// envelope type.
type Hub struct {
	maxClients int

	mu      sync.RWMutex
	clients map[*Client]struct{}

	dropMu  sync.Mutex
	dropped map[string]uint64
}

// NewHub accepts up to maxClients dashboards. maxClients < 1 means one.
func NewHub(maxClients int) *Hub {
	if maxClients < 1 {
		maxClients = 1
	}
	return &Hub{
		maxClients: maxClients,
		clients:    make(map[*Client]struct{}),
		dropped:    make(map[string]uint64),
	}
}

// Register adds c, or returns ErrHubFull when the limit is reached.
func (h *Hub) Register(c *Client) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.clients) >= h.maxClients {
		return ErrHubFull
	}
	h.clients[c] = struct{}{}
	return nil
}

// Unregister removes c and closes its send queue. Unknown clients are ignored.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
}

// Broadcast queues msg, an envelope of type msgType, for every client and
// returns how many clients accepted it.
func (h *Hub) Broadcast(msgType string, msg []byte) int {
	h.mu.RLock()
	delivered, missed := 0, 0
	for c := range h.clients {
		select {
		case c.send <- msg:
			delivered++
		default:
			missed++
		}
	}
	h.mu.RUnlock()

	if missed > 0 {
		h.dropMu.Lock()
		h.dropped[msgType] += uint64(missed)
		h.dropMu.Unlock()
		log.Printf("stream: %d client(s) behind, dropped %s", missed, msgType)
	}
	return delivered
}

// Dropped returns the number of envelopes missed by slow clients, by type.
func (h *Hub) Dropped() map[string]uint64 {
	h.dropMu.Lock()
	defer h.dropMu.Unlock()
	out := make(map[string]uint64, len(h.dropped))
	for k, v := range h.dropped {
		out[k] = v
	}
	return out
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (c *Client) writePump() {
	defer c.conn.Close()
	for msg := range c.send {
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			return
		}
	}
}
