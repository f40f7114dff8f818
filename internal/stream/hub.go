package stream

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"launchpad-engine-go/internal/models"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 54 * time.Second
	sendBufferSize = 256
)

// client is one subscribed websocket connection. Events are fanned out over
// the send channel; a client that cannot keep up is dropped.
type client struct {
	conn *websocket.Conn
	send chan models.SaleEvent
}

// Hub broadcasts sale events to all connected websocket clients. It
// implements models.EventSink, so the engines and the registry publish into
// it directly. Run must be started in its own goroutine before the HTTP
// handler is served.
type Hub struct {
	clients    map[*client]bool
	broadcast  chan models.SaleEvent
	register   chan *client
	unregister chan *client
	stop       chan struct{}

	upgrader websocket.Upgrader
	logger   *zap.Logger
}

// NewHub creates a hub.
func NewHub(logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		clients:    make(map[*client]bool),
		broadcast:  make(chan models.SaleEvent, sendBufferSize),
		register:   make(chan *client),
		unregister: make(chan *client),
		stop:       make(chan struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		logger: logger,
	}
}

// Run owns the client set. It loops until Close is called.
func (h *Hub) Run() {
	for {
		select {
		case c := <-h.register:
			h.clients[c] = true
			h.logger.Sugar().Infow("stream client connected", "clients", len(h.clients))

		case c := <-h.unregister:
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				close(c.send)
				h.logger.Sugar().Infow("stream client disconnected", "clients", len(h.clients))
			}

		case event := <-h.broadcast:
			for c := range h.clients {
				select {
				case c.send <- event:
				default:
					close(c.send)
					delete(h.clients, c)
				}
			}

		case <-h.stop:
			for c := range h.clients {
				close(c.send)
				delete(h.clients, c)
			}
			return
		}
	}
}

// Emit implements models.EventSink. Events are dropped, not blocked on, when
// the broadcast buffer is full; the stream is a best-effort mirror of the
// engine's logs, never part of its transaction.
func (h *Hub) Emit(event models.SaleEvent) {
	select {
	case h.broadcast <- event:
	default:
		h.logger.Sugar().Warnw("event stream buffer full, dropping event", "type", event.Type)
	}
}

// HandleWS upgrades an HTTP request and subscribes the connection to the
// event stream.
func (h *Hub) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Sugar().Errorw("websocket upgrade failed", "error", err)
		return
	}

	c := &client{
		conn: conn,
		send: make(chan models.SaleEvent, sendBufferSize),
	}
	h.register <- c

	go h.writePump(c)
	go h.readPump(c)
}

// Close shuts the hub down and disconnects all clients.
func (h *Hub) Close() {
	close(h.stop)
}

// readPump discards inbound frames; the stream is one-way. It exists to
// notice closes and answer pings.
func (h *Hub) readPump(c *client) {
	defer func() {
		h.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(512)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				h.logger.Sugar().Debugw("stream read error", "error", err)
			}
			return
		}
	}
}

// writePump pushes events and keepalive pings to one client.
func (h *Hub) writePump(c *client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case event, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteJSON(event); err != nil {
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
