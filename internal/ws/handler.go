package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/studychat/backend/internal/model"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum inbound message size. Sized for a full attachment payload in
	// base64 plus framing overhead.
	maxMessageSize = 32 << 20
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin: func(r *http.Request) bool {
		// Token verification gates every operation after the upgrade.
		return true
	},
}

// Handler upgrades HTTP requests to WebSocket connections and runs the
// per-connection goroutines: a read pump decoding intents, a write pump
// draining the outbound queue, and a worker executing intents one at a time.
type Handler struct {
	router  *Router
	manager *ClientManager
}

// NewHandler creates a Handler dispatching to the given router.
func NewHandler(router *Router, manager *ClientManager) *Handler {
	return &Handler{router: router, manager: manager}
}

// HandleConnection upgrades the request and serves the connection until the
// peer disappears. Blocks for the lifetime of the connection.
func (h *Handler) HandleConnection(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error().Err(err).Msg("websocket upgrade failed")
		return
	}

	connID := uuid.New().String()
	client := NewClient(conn, connID)
	h.manager.Register(client)

	log.Info().Str("conn_id", connID).Str("remote", conn.RemoteAddr().String()).Msg("connection established")

	// Intents run strictly in arrival order on a single worker. The channel
	// is unbuffered so the read pump blocks behind a slow operation, which
	// keeps the cancel fast-path meaningful.
	intents := make(chan *Intent)
	done := make(chan struct{})

	go h.writePump(client)
	go h.worker(client, intents, done)

	h.readPump(client, intents)

	close(intents)
	<-done

	h.router.HandleDisconnect(context.Background(), connID)
	h.manager.Remove(connID)
	client.Close()
	log.Info().Str("conn_id", connID).Msg("connection closed")
}

// readPump reads intents off the wire until the connection dies. Cancel
// intents are applied inline; everything else is handed to the worker.
func (h *Handler) readPump(client *Client, intents chan<- *Intent) {
	conn := client.Conn()
	conn.SetReadLimit(maxMessageSize)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Warn().Err(err).Str("conn_id", client.ConnID()).Msg("unexpected close")
			}
			return
		}

		var intent Intent
		if err := json.Unmarshal(data, &intent); err != nil {
			// A peer that cannot speak the protocol gets one error and the
			// connection is torn down; the close-time flush still runs.
			client.SendFrame(errorFrame(model.ErrKindValidation, "malformed intent"))
			return
		}

		h.router.Registry().Touch(client.ConnID())

		if intent.Action == ActionCancelGeneration {
			h.router.HandleCancel(client.ConnID())
			continue
		}

		intents <- &intent
	}
}

// worker drains the intent queue, one operation at a time.
func (h *Handler) worker(client *Client, intents <-chan *Intent, done chan<- struct{}) {
	defer close(done)
	for intent := range intents {
		h.router.Dispatch(context.Background(), client, intent)
	}
}

// writePump moves queued frames onto the wire and keeps the connection alive
// with periodic pings.
func (h *Handler) writePump(client *Client) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	conn := client.Conn()
	defer conn.Close()
	for {
		select {
		case data, ok := <-client.SendChan():
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Warn().Err(err).Str("conn_id", client.ConnID()).Msg("write failed")
				return
			}

			// Drain whatever else is queued to avoid a wakeup per frame.
			for i := 0; i < len(client.SendChan()); i++ {
				if err := conn.WriteMessage(websocket.TextMessage, <-client.SendChan()); err != nil {
					return
				}
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
