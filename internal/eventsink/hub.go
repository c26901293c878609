package eventsink

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/deskkube/clustercore/internal/pkg/metrics"
)

// wireMessage is the envelope written to every connected WebSocket client.
type wireMessage struct {
	Channel   string      `json:"channel"`
	Type      string      `json:"type"`
	Data      interface{} `json:"data,omitempty"`
	Timestamp string      `json:"timestamp"`
}

// client is one connected UI WebSocket. send is buffered; a message that
// doesn't fit a slow client's buffer is dropped for that client rather than
// allowed to block the hub.
type client struct {
	conn *websocket.Conn
	send chan wireMessage
}

// Hub is a single, process-wide broadcaster: every driver in the system
// emits onto it, and every connected UI WebSocket receives everything (the
// UI filters by channel key client-side), mirroring the teacher's
// single-hub, map-plus-channels shape.
type Hub struct {
	mu      sync.RWMutex
	clients map[*client]struct{}

	broadcast  chan wireMessage
	register   chan *client
	unregister chan *client

	ctx    context.Context
	cancel context.CancelFunc
}

// NewHub constructs a Hub bound to ctx; Run must be called to start its
// event loop, typically in its own goroutine.
func NewHub(ctx context.Context) *Hub {
	hctx, cancel := context.WithCancel(ctx)
	return &Hub{
		clients:    make(map[*client]struct{}),
		broadcast:  make(chan wireMessage, 256),
		register:   make(chan *client),
		unregister: make(chan *client),
		ctx:        hctx,
		cancel:     cancel,
	}
}

// Run is the hub's single-threaded event loop; all map mutation happens
// here so no lock is held across a channel operation.
func (h *Hub) Run() {
	for {
		select {
		case <-h.ctx.Done():
			h.mu.Lock()
			for c := range h.clients {
				close(c.send)
			}
			h.clients = make(map[*client]struct{})
			h.mu.Unlock()
			return

		case c := <-h.register:
			h.mu.Lock()
			h.clients[c] = struct{}{}
			metrics.WebSocketConnectionsActive.Set(float64(len(h.clients)))
			h.mu.Unlock()

		case c := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				close(c.send)
			}
			metrics.WebSocketConnectionsActive.Set(float64(len(h.clients)))
			h.mu.Unlock()

		case msg := <-h.broadcast:
			h.mu.RLock()
			for c := range h.clients {
				select {
				case c.send <- msg:
				default:
					// Slow client: drop the message rather than block the
					// hub for everyone else.
				}
			}
			h.mu.RUnlock()
		}
	}
}

// Stop shuts down the hub's event loop and closes every registered client.
func (h *Hub) Stop() { h.cancel() }

// Emit implements Sink.
func (h *Hub) Emit(channel, eventType string, data interface{}) {
	msg := wireMessage{
		Channel:   channel,
		Type:      eventType,
		Data:      data,
		Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
	}
	select {
	case h.broadcast <- msg:
	case <-h.ctx.Done():
	default:
		// Broadcast buffer full: drop rather than block the emitting driver.
	}
}

// ClientCount returns the number of currently registered UI connections.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// ServeClient registers conn with the hub and pumps messages to it until
// the connection closes or the hub stops. It is meant to be called
// directly from an HTTP handler after upgrading the connection.
func (h *Hub) ServeClient(conn *websocket.Conn) {
	c := &client{conn: conn, send: make(chan wireMessage, 256)}

	select {
	case h.register <- c:
	case <-h.ctx.Done():
		conn.Close()
		return
	}

	defer func() {
		select {
		case h.unregister <- c:
		case <-h.ctx.Done():
		}
		conn.Close()
	}()

	const (
		pongWait   = 75 * time.Second
		pingPeriod = 25 * time.Second
	)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	// Reader goroutine: UI clients don't send anything meaningful on this
	// socket, but we must drain reads to process control frames (pong) and
	// detect disconnects.
	go func() {
		for {
			if _, _, err := conn.NextReader(); err != nil {
				conn.Close()
				return
			}
		}
	}()

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case msg, ok := <-c.send:
			if !ok {
				conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			b, err := json.Marshal(msg)
			if err != nil {
				continue
			}
			if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
				return
			}
		case <-ticker.C:
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-h.ctx.Done():
			return
		}
	}
}
