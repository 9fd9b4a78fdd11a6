// Package ws implements the gateway's three WebSocket surfaces: a typed
// request/response command API, a chat relay, and a live price-tick stream.
package ws

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/cloddsbot/core/internal/domain"
	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
	sendBufferSize = 256
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// TickSource is the subset of bus.Bus the tick-stream handler subscribes to.
type TickSource interface {
	OnTick(fn func(domain.PriceUpdate))
}

// CommandFunc handles one typed /ws request, returning a JSON-marshalable
// payload or an error.
type CommandFunc func(ctx context.Context, args json.RawMessage) (any, error)

// ChatFunc relays one /chat message to the external agent hook, if wired.
type ChatFunc func(ctx context.Context, message string, options map[string]any) error

// Hub serves the gateway's WebSocket endpoints.
type Hub struct {
	log      *slog.Logger
	commands map[string]CommandFunc
	chat     ChatFunc

	mu          sync.RWMutex
	tickClients map[*tickClient]bool
}

// NewHub creates a Hub with the given command registry and optional chat
// relay (nil disables /chat and it reports unavailable).
func NewHub(log *slog.Logger, commands map[string]CommandFunc, chat ChatFunc) *Hub {
	return &Hub{log: log, commands: commands, chat: chat, tickClients: make(map[*tickClient]bool)}
}

// ConnectTicks wires the hub to a tick source so every subsequent price
// update is broadcast to connected /api/ticks/stream clients.
func (h *Hub) ConnectTicks(src TickSource) {
	src.OnTick(h.broadcastTick)
}

func (h *Hub) broadcastTick(p domain.PriceUpdate) {
	data, err := json.Marshal(map[string]any{"type": "tick", "payload": p})
	if err != nil {
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.tickClients {
		select {
		case c.send <- data:
		default:
			h.log.Warn("ws: dropping tick for slow client")
		}
	}
}

// wsRequest is one typed command request sent over /ws.
type wsRequest struct {
	ID      string          `json:"id"`
	Command string          `json:"command"`
	Args    json.RawMessage `json:"args"`
}

type wsResponse struct {
	Type    string `json:"type"`
	ID      string `json:"id"`
	OK      bool   `json:"ok"`
	Payload any    `json:"payload,omitempty"`
	Error   string `json:"error,omitempty"`
}

// HandleWS serves the typed command request/response API: each inbound text
// frame is a {id, command, args} request, answered with exactly one
// {type:"res", id, ok, payload|error} response.
// WS /ws
func (h *Hub) HandleWS(w http.ResponseWriter, r *http.Request) {
	raw, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Error("ws: upgrade failed", slog.String("error", err.Error()))
		return
	}
	conn := &wsConn{Conn: raw}
	defer conn.Close()

	conn.SetReadLimit(maxMessageSize)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	done := make(chan struct{})
	go keepAlive(r.Context(), conn, done)
	defer close(done)

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.log.Warn("ws: unexpected close", slog.String("error", err.Error()))
			}
			return
		}

		var req wsRequest
		if err := json.Unmarshal(message, &req); err != nil {
			writeResponse(conn, wsResponse{Type: "res", OK: false, Error: "invalid request"})
			continue
		}

		resp := wsResponse{Type: "res", ID: req.ID}
		cmd, ok := h.commands[req.Command]
		if !ok {
			resp.Error = "unknown command"
		} else if payload, err := cmd(r.Context(), req.Args); err != nil {
			resp.Error = err.Error()
		} else {
			resp.OK = true
			resp.Payload = payload
		}
		if err := writeResponse(conn, resp); err != nil {
			return
		}
	}
}

// chatRequest is one inbound /chat message.
type chatRequest struct {
	ID      string         `json:"id"`
	Message string         `json:"message"`
	Options map[string]any `json:"options"`
}

// HandleChat relays chat messages to the wired agent hook. If no hook is
// configured, every message is answered with a clear unavailable error.
// WS /chat
func (h *Hub) HandleChat(w http.ResponseWriter, r *http.Request) {
	raw, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Error("ws: chat upgrade failed", slog.String("error", err.Error()))
		return
	}
	conn := &wsConn{Conn: raw}
	defer conn.Close()

	conn.SetReadLimit(maxMessageSize)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	done := make(chan struct{})
	go keepAlive(r.Context(), conn, done)
	defer close(done)

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			return
		}

		var req chatRequest
		if err := json.Unmarshal(message, &req); err != nil {
			writeResponse(conn, wsResponse{Type: "res", OK: false, Error: "invalid request"})
			continue
		}

		resp := wsResponse{Type: "res", ID: req.ID}
		switch {
		case h.chat == nil:
			resp.Error = "chat relay unavailable"
		default:
			if err := h.chat(r.Context(), req.Message, req.Options); err != nil {
				resp.Error = err.Error()
			} else {
				resp.OK = true
			}
		}
		if err := writeResponse(conn, resp); err != nil {
			return
		}
	}
}

// tickClient is one connected /api/ticks/stream reader. It never receives
// inbound frames; it only relays broadcast ticks.
type tickClient struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte
}

// HandleTicksStream upgrades and registers a read-only client that receives
// every price tick broadcast by the hub.
// WS /api/ticks/stream
func (h *Hub) HandleTicksStream(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Error("ws: ticks stream upgrade failed", slog.String("error", err.Error()))
		return
	}

	c := &tickClient{hub: h, conn: conn, send: make(chan []byte, sendBufferSize)}

	h.mu.Lock()
	h.tickClients[c] = true
	h.mu.Unlock()

	go c.writePump()
	c.readPump()
}

func (c *tickClient) readPump() {
	defer func() {
		c.hub.mu.Lock()
		delete(c.hub.tickClients, c)
		c.hub.mu.Unlock()
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
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

func (c *tickClient) writePump() {
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

// wsConn serializes writes to one request/response connection, since its
// main read loop and its keepAlive goroutine both write to the same
// underlying socket.
type wsConn struct {
	*websocket.Conn
	writeMu sync.Mutex
}

func (c *wsConn) writeMessage(messageType int, data []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	c.SetWriteDeadline(time.Now().Add(writeWait))
	return c.Conn.WriteMessage(messageType, data)
}

// keepAlive sends periodic pings on a request/response connection until
// done is closed or the request context ends.
func keepAlive(ctx context.Context, conn *wsConn, done <-chan struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := conn.writeMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func writeResponse(conn *wsConn, resp wsResponse) error {
	data, err := json.Marshal(resp)
	if err != nil {
		return err
	}
	return conn.writeMessage(websocket.TextMessage, data)
}
