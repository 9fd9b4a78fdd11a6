package cron

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/cloddsbot/core/internal/domain"
)

type fakeJobStore struct {
	mu   sync.Mutex
	jobs map[string]domain.CronJob
}

func newFakeJobStore() *fakeJobStore {
	return &fakeJobStore{jobs: make(map[string]domain.CronJob)}
}

func (s *fakeJobStore) Create(ctx context.Context, j domain.CronJob) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[j.ID] = j
	return nil
}

func (s *fakeJobStore) Update(ctx context.Context, j domain.CronJob) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[j.ID] = j
	return nil
}

func (s *fakeJobStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.jobs, id)
	return nil
}

func (s *fakeJobStore) GetByID(ctx context.Context, id string) (domain.CronJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.jobs[id]
	if !ok {
		return domain.CronJob{}, domain.ErrNotFound
	}
	return j, nil
}

func (s *fakeJobStore) ListEnabled(ctx context.Context) ([]domain.CronJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.CronJob
	for _, j := range s.jobs {
		if j.Enabled {
			out = append(out, j)
		}
	}
	return out, nil
}

func (s *fakeJobStore) ListDuePast(ctx context.Context, now time.Time) ([]domain.CronJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.CronJob
	for _, j := range s.jobs {
		if j.Enabled && j.NextRunAt != nil && j.NextRunAt.Before(now) {
			out = append(out, j)
		}
	}
	return out, nil
}

type fakeAlertStore struct {
	alerts map[string]domain.Alert
}

func (s *fakeAlertStore) Create(ctx context.Context, a domain.Alert) error { return nil }
func (s *fakeAlertStore) GetByID(ctx context.Context, id string) (domain.Alert, error) {
	a, ok := s.alerts[id]
	if !ok {
		return domain.Alert{}, domain.ErrNotFound
	}
	return a, nil
}
func (s *fakeAlertStore) ListEnabledUntriggered(ctx context.Context) ([]domain.Alert, error) {
	var out []domain.Alert
	for _, a := range s.alerts {
		if a.Enabled && !a.Triggered {
			out = append(out, a)
		}
	}
	return out, nil
}
func (s *fakeAlertStore) MarkTriggered(ctx context.Context, id string, at time.Time) error {
	a := s.alerts[id]
	a.Triggered = true
	a.LastTriggeredAt = &at
	s.alerts[id] = a
	return nil
}
func (s *fakeAlertStore) Rearm(ctx context.Context, id string) error {
	a := s.alerts[id]
	a.Triggered = false
	s.alerts[id] = a
	return nil
}
func (s *fakeAlertStore) Delete(ctx context.Context, id string) error {
	delete(s.alerts, id)
	return nil
}

type fakeMarketLookup struct {
	price float64
}

func (f *fakeMarketLookup) GetMarket(ctx context.Context, id, venue string) (*domain.Market, error) {
	return &domain.Market{
		Venue:    venue,
		ID:       id,
		Outcomes: []domain.Outcome{{ID: "yes", Price: f.price}},
	}, nil
}

func discardLog() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func TestStartBootstrapsAlertScanJob(t *testing.T) {
	store := newFakeJobStore()
	svc := New(store, &fakeMarketLookup{price: 0.5}, &fakeAlertStore{alerts: map[string]domain.Alert{}}, nil, nil, discardLog())

	if err := svc.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer svc.Stop()

	jobs, _ := store.ListEnabled(context.Background())
	var foundScan bool
	for _, j := range jobs {
		if j.Payload.Kind == domain.PayloadAlertScan {
			foundScan = true
			if j.NextRunAt == nil {
				t.Fatal("expected bootstrapped alert scan job to have a next run time")
			}
		}
	}
	if !foundScan {
		t.Fatal("expected Start to bootstrap an alertScan job")
	}
}

func TestStartDoesNotDuplicateExistingAlertScanJob(t *testing.T) {
	store := newFakeJobStore()
	now := time.Now()
	store.jobs["existing"] = domain.CronJob{
		ID:      "existing",
		Enabled: true,
		Schedule: domain.Schedule{
			Kind: domain.ScheduleEvery, EveryMs: 30000, Anchor: now,
		},
		Payload: domain.CronPayload{Kind: domain.PayloadAlertScan},
	}

	svc := New(store, &fakeMarketLookup{price: 0.5}, &fakeAlertStore{alerts: map[string]domain.Alert{}}, nil, nil, discardLog())
	if err := svc.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer svc.Stop()

	var count int
	for _, j := range store.jobs {
		if j.Payload.Kind == domain.PayloadAlertScan {
			count++
		}
	}
	if count != 1 {
		t.Fatalf("expected exactly 1 alertScan job, got %d", count)
	}
}

func TestAlertPayloadMarksTriggeredAndNotifies(t *testing.T) {
	store := newFakeJobStore()
	alerts := &fakeAlertStore{alerts: map[string]domain.Alert{
		"a1": {
			ID: "a1", UserID: "u1", MarketID: "m1", Venue: "kalshi", Enabled: true,
			Condition: domain.AlertCondition{Kind: domain.AlertPriceAbove, Threshold: 0.6},
		},
	}}

	var notified string
	notify := func(ctx context.Context, userID, msg string) error {
		notified = userID
		return nil
	}

	svc := New(store, &fakeMarketLookup{price: 0.7}, alerts, notify, nil, discardLog())

	store.jobs["a1-check"] = domain.CronJob{
		ID:       "a1-check",
		Enabled:  true,
		Schedule: domain.Schedule{Kind: domain.ScheduleAt, At: time.Now().Add(-time.Second)},
		Payload:  domain.CronPayload{Kind: domain.PayloadAlert, AlertID: "a1"},
	}

	svc.fire(context.Background(), "a1-check")

	if !alerts.alerts["a1"].Triggered {
		t.Fatal("expected alert to be marked triggered")
	}
	if notified != "u1" {
		t.Fatalf("expected notification to u1, got %q", notified)
	}
}
