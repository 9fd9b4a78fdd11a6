package usersocket

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/cloddsbot/core/internal/domain"
)

// inflight is the Go translation of a promise: concurrent GetOrCreate calls
// for the same user/venue block on done and observe the same (socket, err)
// pair once the dial resolves, instead of racing to dial twice.
type inflight struct {
	done   chan struct{}
	socket *Socket
	err    error
}

// Manager owns at most one Socket per (venue, userID) pair and deduplicates
// concurrent connection attempts.
type Manager struct {
	wsURLs  map[string]string
	onFill  FillHandler
	onOrder OrderEventHandler
	onError ErrorHandler
	log     *slog.Logger

	mu         sync.Mutex
	sockets    map[string]*Socket
	connecting map[string]*inflight
}

// NewManager constructs a Manager. wsURLs maps venue name to its user-channel
// WebSocket URL; handlers are shared across every socket the Manager creates.
func NewManager(wsURLs map[string]string, onFill FillHandler, onOrder OrderEventHandler, onError ErrorHandler, log *slog.Logger) *Manager {
	return &Manager{
		wsURLs:     wsURLs,
		onFill:     onFill,
		onOrder:    onOrder,
		onError:    onError,
		log:        log,
		sockets:    make(map[string]*Socket),
		connecting: make(map[string]*inflight),
	}
}

func key(venue, userID string) string {
	return venue + ":" + userID
}

// GetOrCreate returns the open socket for (venue, userID), dialing one if
// none exists. Concurrent callers for the same key share a single dial
// attempt and receive the same result.
func (m *Manager) GetOrCreate(ctx context.Context, venue, userID string, creds domain.UserCredentials) (*Socket, error) {
	k := key(venue, userID)

	m.mu.Lock()
	if s, ok := m.sockets[k]; ok {
		m.mu.Unlock()
		return s, nil
	}
	if inf, ok := m.connecting[k]; ok {
		m.mu.Unlock()
		select {
		case <-inf.done:
			return inf.socket, inf.err
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	wsURL, ok := m.wsURLs[venue]
	if !ok {
		m.mu.Unlock()
		return nil, fmt.Errorf("usersocket: no wsURL configured for venue %q", venue)
	}
	inf := &inflight{done: make(chan struct{})}
	m.connecting[k] = inf
	m.mu.Unlock()

	socket := NewSocket(wsURL, venue, userID, creds, m.onFill, m.onOrder, func(err error) {
		m.drop(k)
		if m.onError != nil {
			m.onError(err)
		}
	}, m.log)

	err := socket.Connect(ctx)

	m.mu.Lock()
	delete(m.connecting, k)
	if err == nil {
		m.sockets[k] = socket
	}
	m.mu.Unlock()

	inf.socket = socket
	inf.err = err
	close(inf.done)

	if err != nil {
		return nil, err
	}
	return socket, nil
}

// Get returns the existing socket for (venue, userID), if any.
func (m *Manager) Get(venue, userID string) (*Socket, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sockets[key(venue, userID)]
	return s, ok
}

func (m *Manager) drop(k string) {
	m.mu.Lock()
	delete(m.sockets, k)
	m.mu.Unlock()
}

// Disconnect tears down and forgets the socket for (venue, userID), if any.
func (m *Manager) Disconnect(venue, userID string) {
	k := key(venue, userID)
	m.mu.Lock()
	s, ok := m.sockets[k]
	delete(m.sockets, k)
	m.mu.Unlock()
	if ok {
		s.Disconnect()
	}
}

// DisconnectAll tears down every socket the Manager owns, used on shutdown.
func (m *Manager) DisconnectAll() {
	m.mu.Lock()
	sockets := make([]*Socket, 0, len(m.sockets))
	for _, s := range m.sockets {
		sockets = append(sockets, s)
	}
	m.sockets = make(map[string]*Socket)
	m.mu.Unlock()

	for _, s := range sockets {
		s.Disconnect()
	}
}
