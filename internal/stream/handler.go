package stream

import (
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/i474232898/greenhouse-monitor/internal/scheduler"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Handler upgrades dashboard connections and sends them the current state.
// The stream is push-only; control goes through the HTTP API.
type Handler struct {
	hub    *Hub
	status func() scheduler.Status
}

func NewHandler(hub *Hub, status func() scheduler.Status) *Handler {
	return &Handler{hub: hub, status: status}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ERROR: stream: upgrade: %v", err)
		return
	}

	client := &Client{
		hub:  h.hub,
		conn: conn,
		send: make(chan []byte, sendBuffer),
	}

	if err := h.hub.Register(client); err != nil {
		log.Printf("stream: rejecting %s: %v", r.RemoteAddr, err)
		msg := websocket.FormatCloseMessage(websocket.CloseTryAgainLater, "too many clients")
		_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
		conn.Close()
		return
	}
	go client.writePump()

	if msg, err := NewEnvelope(TypeSimState, h.status()); err == nil {
		client.send <- msg
	}

	h.readPump(client)
}

func (h *Handler) readPump(c *Client) {
	defer func() {
		h.hub.Unregister(c)
		c.conn.Close()
	}()

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("ERROR: stream: read: %v", err)
			}
			return
		}
	}
}

// NewMux serves the stream at /ws.
func NewMux(h *Handler) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/ws", h)
	return mux
}
