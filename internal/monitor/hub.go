package monitor

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/padrelay/padrelay/frame"
	"github.com/padrelay/padrelay/session"
)

const (
	eventBuffer  = 256
	clientBuffer = 64
)

// Hub fans events out to websocket clients. Its Observer methods never
// block: events are dropped when the buffer is full.
type Hub struct {
	logger *slog.Logger
	events chan Event

	mu      sync.Mutex
	clients map[*client]struct{}
	last    map[string]Event // latest event per console
	seq     int64
	dropped uint64
	stopped bool
}

// NewHub returns an idle Hub; call Run to start broadcasting.
func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		logger:  logger,
		events:  make(chan Event, eventBuffer),
		clients: make(map[*client]struct{}),
		last:    make(map[string]Event),
	}
}

func (h *Hub) Connected(s session.Session)    { h.publish(sessionEvent(TypeConnected, s)) }
func (h *Hub) Disconnected(s session.Session) { h.publish(sessionEvent(TypeDisconnected, s)) }
func (h *Hub) Frame(s session.Session, f frame.Frame) {
	h.publish(frameEvent(s, f))
}

func (h *Hub) publish(ev Event) {
	select {
	case h.events <- ev:
	default:
		h.mu.Lock()
		h.dropped++
		h.mu.Unlock()
	}
}

// Run broadcasts published events until ctx is done, then disconnects all clients.
func (h *Hub) Run(ctx context.Context) {
	defer h.closeAll()
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-h.events:
			h.broadcast(ev)
		}
	}
}

func (h *Hub) broadcast(ev Event) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.seq++
	ev.Seq = h.seq
	if ev.Type == TypeDisconnected {
		delete(h.last, ev.Addr)
	} else {
		h.last[ev.Addr] = ev
	}

	data, err := json.Marshal(ev)
	if err != nil {
		h.logger.Error("Failed to marshal monitor event", "error", err)
		return
	}
	for c := range h.clients {
		select {
		case c.send <- data:
		default:
			// slow client
			h.removeLocked(c)
		}
	}
}

// register adds c and queues the latest state of every known console. After
// Run has returned, c is closed right away.
func (h *Hub) register(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.stopped {
		close(c.send)
		return
	}
	h.clients[c] = struct{}{}
	for _, ev := range h.last {
		data, err := json.Marshal(ev)
		if err != nil {
			continue
		}
		select {
		case c.send <- data:
		default:
		}
	}
	h.logger.Debug("Monitor client connected", "remote", c.conn.RemoteAddr(), "total", len(h.clients))
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeLocked(c)
}

func (h *Hub) removeLocked(c *client) {
	if _, ok := h.clients[c]; !ok {
		return
	}
	delete(h.clients, c)
	close(c.send)
	h.logger.Debug("Monitor client disconnected", "remote", c.conn.RemoteAddr(), "total", len(h.clients))
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.stopped = true
	for c := range h.clients {
		h.removeLocked(c)
	}
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Dropped returns how many events were discarded because the buffer was full.
func (h *Hub) Dropped() uint64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.dropped
}

type client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte
}

func (c *client) writePump() {
	defer c.conn.Close()
	for msg := range c.send {
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			return
		}
	}
	_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
}

// readPump discards client input and detects disconnects.
func (c *client) readPump() {
	defer func() {
		c.hub.unregister(c)
		c.conn.Close()
	}()
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}
