package usersocket

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/cloddsbot/core/internal/domain"
	"github.com/gorilla/websocket"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// websocketEchoHandler upgrades every connection, acks the first subscribe
// message with a "subscribed" frame, and otherwise just drains reads until
// the client hangs up.
func websocketEchoHandler(t *testing.T, upgrader websocket.Upgrader, mu *sync.Mutex, upgrades *int) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		mu.Lock()
		*upgrades++
		mu.Unlock()

		var sub map[string]any
		if err := conn.ReadJSON(&sub); err != nil {
			return
		}
		_ = conn.WriteJSON(map[string]string{"type": "subscribed", "channel": "user"})

		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	})
}

func TestGetOrCreateDedupesConcurrentDials(t *testing.T) {
	upgrader := websocket.Upgrader{}
	var upgrades int
	var mu sync.Mutex

	srv := httptest.NewServer(websocketEchoHandler(t, upgrader, &mu, &upgrades))
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")

	m := NewManager(map[string]string{"kalshi": wsURL}, nil, nil, nil, discardLogger())

	var wg sync.WaitGroup
	results := make([]*Socket, 5)
	errs := make([]error, 5)
	for i := 0; i < 5; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			s, err := m.GetOrCreate(context.Background(), "kalshi", "user-1", domain.UserCredentials{APIKey: "k"})
			results[i] = s
			errs[i] = err
		}()
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Fatalf("GetOrCreate[%d]: %v", i, err)
		}
	}
	for i := 1; i < 5; i++ {
		if results[i] != results[0] {
			t.Fatalf("expected all concurrent GetOrCreate calls to share one socket")
		}
	}

	mu.Lock()
	got := upgrades
	mu.Unlock()
	if got != 1 {
		t.Fatalf("expected exactly 1 dial to reach the server, got %d", got)
	}

	m.DisconnectAll()
}

func TestGetOrCreateReturnsExistingSocket(t *testing.T) {
	upgrader := websocket.Upgrader{}
	var upgrades int
	var mu sync.Mutex

	srv := httptest.NewServer(websocketEchoHandler(t, upgrader, &mu, &upgrades))
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")
	m := NewManager(map[string]string{"kalshi": wsURL}, nil, nil, nil, discardLogger())

	s1, err := m.GetOrCreate(context.Background(), "kalshi", "user-1", domain.UserCredentials{})
	if err != nil {
		t.Fatalf("GetOrCreate: %v", err)
	}
	s2, err := m.GetOrCreate(context.Background(), "kalshi", "user-1", domain.UserCredentials{})
	if err != nil {
		t.Fatalf("GetOrCreate: %v", err)
	}
	if s1 != s2 {
		t.Fatalf("expected second GetOrCreate to return the cached socket")
	}

	m.DisconnectAll()
	time.Sleep(10 * time.Millisecond)
}

func TestGetOrCreateUnknownVenueErrors(t *testing.T) {
	m := NewManager(map[string]string{}, nil, nil, nil, discardLogger())
	_, err := m.GetOrCreate(context.Background(), "unknown", "user-1", domain.UserCredentials{})
	if err == nil {
		t.Fatal("expected error for unconfigured venue")
	}
}
