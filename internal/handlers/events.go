package handlers

import (
	"net/http"
	"sync"
	"time"

	"tagarr/internal/database/models"
	"tagarr/internal/utils"

	"github.com/gorilla/websocket"
)

const writeWait = 10 * time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// EventHub pushes every finished run to connected websocket clients.
type EventHub struct {
	logger *utils.Logger

	mu      sync.Mutex
	clients map[*wsClient]struct{}
	closed  bool
}

type wsClient struct {
	conn *websocket.Conn
	send chan *models.Run
}

func NewEventHub(logger *utils.Logger) *EventHub {
	return &EventHub{
		logger:  logger,
		clients: make(map[*wsClient]struct{}),
	}
}

// RunFinished implements core.Observer. Slow clients miss events rather than
// block the poll loop.
func (h *EventHub) RunFinished(run *models.Run) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		select {
		case c.send <- run:
		default:
			h.logger.Warn("Dropping run event for slow websocket client")
		}
	}
}

func (h *EventHub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("Websocket upgrade failed:", err)
		return
	}

	c := &wsClient{conn: conn, send: make(chan *models.Run, 8)}
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		conn.Close()
		return
	}
	h.clients[c] = struct{}{}
	n := len(h.clients)
	h.mu.Unlock()
	h.logger.Debug("Websocket client connected,", n, "listening")

	go h.writeLoop(c)
	h.readLoop(c)
}

// readLoop only exists to notice the client going away.
func (h *EventHub) readLoop(c *wsClient) {
	defer h.remove(c)
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *EventHub) writeLoop(c *wsClient) {
	defer c.conn.Close()
	for run := range c.send {
		c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteJSON(run); err != nil {
			h.logger.Debug("Websocket write failed:", err)
			return
		}
	}
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
}

func (h *EventHub) remove(c *wsClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
}

// Clients returns the number of connected clients.
func (h *EventHub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Close disconnects every client.
func (h *EventHub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for c := range h.clients {
		delete(h.clients, c)
		close(c.send)
	}
}
