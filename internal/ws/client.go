package ws

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// Client wraps one WebSocket connection. Outbound frames are queued on a
// buffered channel drained by the write pump; the in-order queue is what
// keeps partial frames ordered.
type Client struct {
	conn   *websocket.Conn
	connID string
	send   chan []byte
	mu     sync.Mutex
	closed bool
}

// NewClient creates a client for an upgraded connection.
func NewClient(conn *websocket.Conn, connID string) *Client {
	return &Client{
		conn:   conn,
		connID: connID,
		send:   make(chan []byte, 256),
	}
}

// ConnID returns the stable connection identity.
func (c *Client) ConnID() string {
	return c.connID
}

// Conn returns the underlying WebSocket connection.
func (c *Client) Conn() *websocket.Conn {
	return c.conn
}

// SendChan returns the outbound queue for the write pump.
func (c *Client) SendChan() <-chan []byte {
	return c.send
}

// Send queues raw bytes for delivery. A full queue closes the client; a
// reader that cannot keep up with its own stream is dead weight.
func (c *Client) Send(data []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}

	select {
	case c.send <- data:
	default:
		c.closeLocked()
	}
}

// SendFrame marshals and queues one frame.
func (c *Client) SendFrame(f Frame) {
	data, err := json.Marshal(f)
	if err != nil {
		log.Error().Err(err).Str("conn_id", c.connID).Msg("failed to marshal frame")
		return
	}
	c.Send(data)
}

// CloseWithReason sends a close control message carrying the reason, then
// closes the client. Best-effort: the peer may already be gone.
func (c *Client) CloseWithReason(code int, reason string) {
	msg := websocket.FormatCloseMessage(code, reason)
	_ = c.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))
	c.Close()
	_ = c.conn.Close()
}

// Close closes the outbound queue. Idempotent.
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closeLocked()
}

func (c *Client) closeLocked() {
	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
}

// IsClosed returns true if the client is closed.
func (c *Client) IsClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// ClientManager tracks live clients keyed by connection identity.
type ClientManager struct {
	mu      sync.RWMutex
	clients map[string]*Client
}

// NewClientManager creates an empty ClientManager.
func NewClientManager() *ClientManager {
	return &ClientManager{
		clients: make(map[string]*Client),
	}
}

// Register adds a client.
func (m *ClientManager) Register(client *Client) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.clients[client.connID] = client
}

// Get returns the client for a connection, or nil.
func (m *ClientManager) Get(connID string) *Client {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.clients[connID]
}

// Remove drops a client from the manager.
func (m *ClientManager) Remove(connID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.clients, connID)
}

// Count returns the number of live clients.
func (m *ClientManager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.clients)
}

// Close closes every client.
func (m *ClientManager) Close() {
	m.mu.Lock()
	clients := make([]*Client, 0, len(m.clients))
	for _, client := range m.clients {
		clients = append(clients, client)
	}
	m.clients = make(map[string]*Client)
	m.mu.Unlock()

	for _, client := range clients {
		client.Close()
	}
}
