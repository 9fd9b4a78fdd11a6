package app

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/cloddsbot/core/internal/domain"
)

// fakeAlertStore is an in-memory domain.AlertStore for exercising the
// createAlert/listAlerts/deleteAlert command closures.
type fakeAlertStore struct {
	byID map[string]domain.Alert
}

func newFakeAlertStore() *fakeAlertStore {
	return &fakeAlertStore{byID: make(map[string]domain.Alert)}
}

func (s *fakeAlertStore) Create(ctx context.Context, a domain.Alert) error {
	s.byID[a.ID] = a
	return nil
}

func (s *fakeAlertStore) GetByID(ctx context.Context, id string) (domain.Alert, error) {
	a, ok := s.byID[id]
	if !ok {
		return domain.Alert{}, domain.ErrNotFound
	}
	return a, nil
}

func (s *fakeAlertStore) ListEnabledUntriggered(ctx context.Context) ([]domain.Alert, error) {
	var out []domain.Alert
	for _, a := range s.byID {
		if a.Enabled && !a.Triggered {
			out = append(out, a)
		}
	}
	return out, nil
}

func (s *fakeAlertStore) MarkTriggered(ctx context.Context, id string, at time.Time) error {
	a := s.byID[id]
	a.Triggered = true
	a.LastTriggeredAt = &at
	s.byID[id] = a
	return nil
}

func (s *fakeAlertStore) Rearm(ctx context.Context, id string) error {
	a := s.byID[id]
	a.Triggered = false
	s.byID[id] = a
	return nil
}

func (s *fakeAlertStore) Delete(ctx context.Context, id string) error {
	if _, ok := s.byID[id]; !ok {
		return domain.ErrNotFound
	}
	delete(s.byID, id)
	return nil
}

func TestCmdGetMarket(t *testing.T) {
	market := &domain.Market{Venue: "kalshi", ID: "mkt-1", Question: "Will it rain?"}
	adapter := &fakeAdapter{markets: map[string]*domain.Market{"mkt-1": market}}
	feeds := newTestFeedManager(t, "kalshi", adapter)

	cmd := cmdGetMarket(feeds)
	args, _ := json.Marshal(map[string]string{"id": "mkt-1", "venue": "kalshi"})
	got, err := cmd(context.Background(), args)
	if err != nil {
		t.Fatalf("cmdGetMarket: %v", err)
	}
	m, ok := got.(*domain.Market)
	if !ok || m.ID != "mkt-1" {
		t.Fatalf("unexpected result: %#v", got)
	}
}

func TestCmdGetMarketMissingArgs(t *testing.T) {
	feeds := newTestFeedManager(t, "kalshi", &fakeAdapter{})
	cmd := cmdGetMarket(feeds)
	if _, err := cmd(context.Background(), nil); err == nil {
		t.Fatal("expected error for missing args")
	}
}

func TestCmdCreateAndListAndDeleteAlert(t *testing.T) {
	alerts := newFakeAlertStore()

	create := cmdCreateAlert(alerts)
	args, _ := json.Marshal(map[string]any{
		"userId":    "user-1",
		"name":      "BTC above 100k",
		"marketId":  "mkt-1",
		"venue":     "kalshi",
		"kind":      string(domain.AlertPriceAbove),
		"threshold": 100000,
	})
	created, err := create(context.Background(), args)
	if err != nil {
		t.Fatalf("cmdCreateAlert: %v", err)
	}
	alert := created.(domain.Alert)
	if alert.ID == "" {
		t.Fatal("expected generated alert id")
	}

	list := cmdListAlerts(alerts)
	got, err := list(context.Background(), nil)
	if err != nil {
		t.Fatalf("cmdListAlerts: %v", err)
	}
	if len(got.([]domain.Alert)) != 1 {
		t.Fatalf("expected 1 alert, got %d", len(got.([]domain.Alert)))
	}

	del := cmdDeleteAlert(alerts)
	delArgs, _ := json.Marshal(map[string]string{"id": alert.ID})
	if _, err := del(context.Background(), delArgs); err != nil {
		t.Fatalf("cmdDeleteAlert: %v", err)
	}
	if _, ok := alerts.byID[alert.ID]; ok {
		t.Fatal("expected alert to be deleted")
	}
}

func TestCmdCreateAlertRequiresUserAndMarket(t *testing.T) {
	alerts := newFakeAlertStore()
	create := cmdCreateAlert(alerts)
	args, _ := json.Marshal(map[string]any{"name": "missing required fields"})
	if _, err := create(context.Background(), args); err == nil {
		t.Fatal("expected validation error")
	}
}

func TestBuildCommandsRegistersEveryCommand(t *testing.T) {
	feeds := newTestFeedManager(t, "kalshi", &fakeAdapter{})
	alerts := newFakeAlertStore()
	cmds := buildCommands(feeds, alerts)

	want := []string{"getMarket", "searchMarkets", "getOrderbook", "createAlert", "listAlerts", "deleteAlert"}
	for _, name := range want {
		if _, ok := cmds[name]; !ok {
			t.Errorf("missing command %q", name)
		}
	}
	if len(cmds) != len(want) {
		t.Errorf("expected exactly %d commands, got %d: %v", len(want), len(cmds), fmt.Sprint(cmds))
	}
}
