// Package usersocket maintains exactly one authenticated WebSocket per user
// to a venue's user channel, normalizing fill and order-update events.
package usersocket

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/cloddsbot/core/internal/domain"
	"github.com/gorilla/websocket"
)

// State is the socket's connection lifecycle state.
type State string

const (
	StateDisconnected      State = "disconnected"
	StateConnecting        State = "connecting"
	StateOpenUnsubscribed  State = "open_unsubscribed"
	StateSubscribed        State = "subscribed"
	StateClosing           State = "closing"
)

const (
	pingInterval   = 10 * time.Second
	initialBackoff = 5 * time.Second
	backoffFactor  = 1.5
	maxBackoff     = 60 * time.Second
	maxAttempts    = 10
)

// FillHandler receives normalized fill events.
type FillHandler func(domain.Fill)

// OrderEventHandler receives normalized order lifecycle events.
type OrderEventHandler func(domain.OrderEvent)

// ErrorHandler receives the terminal error raised once reconnect attempts
// reach maxAttempts; Socket invokes it on no other path.
type ErrorHandler func(error)

// Socket is a single user's authenticated connection to one venue's user
// channel.
type Socket struct {
	wsURL   string
	venue   string
	userID  string
	creds   domain.UserCredentials
	log     *slog.Logger

	onFill  FillHandler
	onOrder OrderEventHandler
	onError ErrorHandler

	mu             sync.Mutex
	state          State
	conn           *websocket.Conn
	stale          bool
	reconnectAttempt int
	backoff        time.Duration

	done chan struct{}
}

// NewSocket constructs a Socket for one user/venue pair. Call Connect to
// begin dialing.
func NewSocket(wsURL, venue, userID string, creds domain.UserCredentials, onFill FillHandler, onOrder OrderEventHandler, onError ErrorHandler, log *slog.Logger) *Socket {
	return &Socket{
		wsURL:   wsURL,
		venue:   venue,
		userID:  userID,
		creds:   creds,
		log:     log.With(slog.String("venue", venue), slog.String("user_id", userID)),
		onFill:  onFill,
		onOrder: onOrder,
		onError: onError,
		state:   StateDisconnected,
		backoff: initialBackoff,
		done:    make(chan struct{}),
	}
}

// Connect dials the venue's user channel and begins the read loop. It
// returns once the dial attempt has resolved (connected, or the connection
// attempt failed and a reconnect has been scheduled).
func (s *Socket) Connect(ctx context.Context) error {
	s.setState(StateConnecting)
	return s.dial(ctx)
}

func (s *Socket) dial(ctx context.Context) error {
	dialer := websocket.Dialer{HandshakeTimeout: 15 * time.Second}
	conn, _, err := dialer.DialContext(ctx, s.wsURL, nil)
	if err != nil {
		s.scheduleReconnect(ctx, err)
		return fmt.Errorf("usersocket: dial: %w", err)
	}

	s.mu.Lock()
	s.conn = conn
	s.stale = false
	self := conn
	s.mu.Unlock()

	s.setState(StateOpenUnsubscribed)

	if err := s.sendSubscribe(); err != nil {
		s.scheduleReconnect(ctx, err)
		return err
	}

	go s.pingLoop(ctx, self)
	go s.readLoop(ctx, self)

	return nil
}

func (s *Socket) sendSubscribe() error {
	msg := map[string]any{
		"type":    "subscribe",
		"channel": "user",
		"auth": map[string]any{
			"apiKey":     s.creds.APIKey,
			"secret":     s.creds.Secret,
			"passphrase": s.creds.Passphrase,
		},
	}
	for k, v := range s.creds.Extra {
		msg["auth"].(map[string]any)[k] = v
	}
	return s.writeJSON(msg)
}

func (s *Socket) writeJSON(v any) error {
	s.mu.Lock()
	conn := s.conn
	s.mu.Unlock()
	if conn == nil {
		return fmt.Errorf("usersocket: %w", domain.ErrWSDisconnect)
	}
	return conn.WriteJSON(v)
}

func (s *Socket) pingLoop(ctx context.Context, self *websocket.Conn) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.done:
			return
		case <-ticker.C:
			if s.isStale(self) {
				return
			}
			if err := self.WriteJSON(map[string]string{"type": "ping"}); err != nil {
				s.log.Warn("usersocket: ping failed", slog.Any("error", err))
				return
			}
		}
	}
}

func (s *Socket) readLoop(ctx context.Context, self *websocket.Conn) {
	for {
		if s.isStale(self) {
			return
		}
		_, data, err := self.ReadMessage()
		if err != nil {
			if s.isStale(self) {
				return
			}
			code := websocket.CloseNormalClosure
			if ce, ok := err.(*websocket.CloseError); ok {
				code = ce.Code
			}
			if code != websocket.CloseNormalClosure {
				s.scheduleReconnect(ctx, err)
			} else {
				s.setState(StateDisconnected)
			}
			return
		}
		s.handleMessage(data)
	}
}

type wireEnvelope struct {
	Type      string `json:"type"`
	Channel   string `json:"channel"`
	EventType string `json:"event_type"`
}

func (s *Socket) handleMessage(data []byte) {
	var env wireEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		s.log.Warn("usersocket: malformed message", slog.Any("error", err))
		return
	}

	switch {
	case env.Type == "pong":
		return
	case env.Type == "subscribed" && env.Channel == "user":
		s.mu.Lock()
		s.reconnectAttempt = 0
		s.backoff = initialBackoff
		s.mu.Unlock()
		s.setState(StateSubscribed)
	case env.Type == "trade" || env.EventType == "trade":
		var f domain.Fill
		if err := json.Unmarshal(data, &f); err != nil {
			s.log.Warn("usersocket: malformed fill", slog.Any("error", err))
			return
		}
		if s.onFill != nil {
			s.onFill(f)
		}
	default:
		var oe domain.OrderEvent
		if err := json.Unmarshal(data, &oe); err != nil {
			return
		}
		if oe.Type != domain.OrderEventPlacement && oe.Type != domain.OrderEventCancellation {
			oe.Type = domain.OrderEventUpdate
		}
		if s.onOrder != nil {
			s.onOrder(oe)
		}
	}
}

func (s *Socket) scheduleReconnect(ctx context.Context, cause error) {
	s.mu.Lock()
	if s.state == StateClosing {
		s.mu.Unlock()
		return
	}
	s.reconnectAttempt++
	attempt := s.reconnectAttempt
	delay := s.backoff
	s.backoff = time.Duration(float64(s.backoff) * backoffFactor)
	if s.backoff > maxBackoff {
		s.backoff = maxBackoff
	}
	s.mu.Unlock()

	if attempt >= maxAttempts {
		s.setState(StateDisconnected)
		if s.onError != nil {
			s.onError(fmt.Errorf("usersocket: max reconnect attempts (%d) exceeded: %w", maxAttempts, cause))
		}
		return
	}

	s.setState(StateDisconnected)
	s.log.Warn("usersocket: reconnecting", slog.Int("attempt", attempt), slog.Duration("delay", delay), slog.Any("error", cause))

	go func() {
		select {
		case <-ctx.Done():
			return
		case <-s.done:
			return
		case <-time.After(delay):
		}
		s.setState(StateConnecting)
		_ = s.dial(ctx)
	}()
}

// Disconnect cancels any pending reconnect/ping timers, closes the
// connection with code 1000, and marks the socket stale.
func (s *Socket) Disconnect() {
	s.mu.Lock()
	s.state = StateClosing
	conn := s.conn
	s.stale = true
	s.mu.Unlock()

	select {
	case <-s.done:
	default:
		close(s.done)
	}

	if conn != nil {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		_ = conn.Close()
	}
	s.setState(StateDisconnected)
}

// isStale reports whether self is no longer this Socket's current
// connection — the staleness guard every callback must check before acting.
func (s *Socket) isStale(self *websocket.Conn) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stale || s.conn != self
}

func (s *Socket) setState(st State) {
	s.mu.Lock()
	s.state = st
	s.mu.Unlock()
}

// State returns the socket's current lifecycle state.
func (s *Socket) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}
