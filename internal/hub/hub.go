package hub

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"parking-service/internal/model"
)

type Client struct {
	conn *websocket.Conn
	Send chan []byte
}

func NewClient(conn *websocket.Conn, bufferSize int) *Client {
	return &Client{
		conn: conn,
		Send: make(chan []byte, bufferSize),
	}
}

// WritePump drains the client's send channel onto the connection. It returns
// when the channel is closed by the hub or the write fails.
func (c *Client) WritePump() {
	defer c.conn.Close()
	for message := range c.Send {
		if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
			return
		}
	}
	_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
}

// Hub fans lot events out to websocket subscribers. Slow clients whose send
// buffers fill up are skipped rather than blocking the broadcast loop.
type Hub struct {
	mu      sync.RWMutex
	clients map[*Client]struct{}

	register   chan *Client
	unregister chan *Client
	broadcast  chan []byte

	log zerolog.Logger
}

func New(log zerolog.Logger) *Hub {
	return &Hub{
		clients:    make(map[*Client]struct{}),
		register:   make(chan *Client, 16),
		unregister: make(chan *Client, 16),
		broadcast:  make(chan []byte, 256),
		log:        log,
	}
}

func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.closeAllClients()
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = struct{}{}
			total := len(h.clients)
			h.mu.Unlock()
			h.log.Debug().Int("total", total).Msg("websocket client registered")

		case client := <-h.unregister:
			h.removeClient(client)

		case message := <-h.broadcast:
			h.fanout(message)
		}
	}
}

// Publish marshals the event once and hands it to the broadcast loop without
// blocking; if the loop is saturated the event is dropped.
func (h *Hub) Publish(event model.LotEvent) {
	data, err := json.Marshal(event)
	if err != nil {
		h.log.Error().Err(err).Msg("failed to marshal lot event")
		return
	}
	select {
	case h.broadcast <- data:
	default:
		h.log.Warn().Str("type", string(event.Type)).Msg("broadcast channel full, dropping event")
	}
}

func (h *Hub) Register(client *Client) {
	h.register <- client
}

func (h *Hub) Unregister(client *Client) {
	h.unregister <- client
}

func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) fanout(message []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for client := range h.clients {
		select {
		case client.Send <- message:
		default:
			h.log.Debug().Msg("client send buffer full, skipping")
		}
	}
}

func (h *Hub) removeClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[client]; !ok {
		return
	}
	delete(h.clients, client)
	close(client.Send)
	h.log.Debug().Int("total", len(h.clients)).Msg("websocket client unregistered")
}

func (h *Hub) closeAllClients() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for client := range h.clients {
		close(client.Send)
	}
	h.clients = make(map[*Client]struct{})
}
