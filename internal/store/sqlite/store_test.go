package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/cloddsbot/core/internal/domain"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(":memory:")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := db.Migrate(context.Background()); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestMigrateIsIdempotent(t *testing.T) {
	db := openTestDB(t)
	if err := db.Migrate(context.Background()); err != nil {
		t.Fatalf("second migrate: %v", err)
	}
}

func TestUserStoreUpsertAndGet(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	store := NewUserStore(db)

	now := time.Now().UTC().Truncate(time.Second)
	u := domain.User{ID: "u1", Handle: "alice", CreatedAt: now, UpdatedAt: now}
	if err := store.Upsert(ctx, u); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	got, err := store.GetByID(ctx, "u1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Handle != "alice" {
		t.Fatalf("handle = %q, want alice", got.Handle)
	}

	u.Handle = "alice2"
	if err := store.Upsert(ctx, u); err != nil {
		t.Fatalf("re-upsert: %v", err)
	}
	got, err = store.GetByID(ctx, "u1")
	if err != nil {
		t.Fatalf("get after update: %v", err)
	}
	if got.Handle != "alice2" {
		t.Fatalf("handle after update = %q, want alice2", got.Handle)
	}

	if _, err := store.GetByID(ctx, "missing"); err != domain.ErrNotFound {
		t.Fatalf("get missing: err = %v, want ErrNotFound", err)
	}
}

func TestSessionStoreLifecycle(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	users := NewUserStore(db)
	sessions := NewSessionStore(db)

	now := time.Now().UTC().Truncate(time.Second)
	if err := users.Upsert(ctx, domain.User{ID: "u1", Handle: "alice", CreatedAt: now, UpdatedAt: now}); err != nil {
		t.Fatalf("seed user: %v", err)
	}

	sess := domain.Session{ID: "s1", UserID: "u1", ExpiresAt: now.Add(-time.Minute), CreatedAt: now}
	if err := sessions.Create(ctx, sess); err != nil {
		t.Fatalf("create: %v", err)
	}

	got, err := sessions.GetByID(ctx, "s1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.UserID != "u1" {
		t.Fatalf("userID = %q, want u1", got.UserID)
	}

	n, err := sessions.DeleteExpired(ctx, now)
	if err != nil {
		t.Fatalf("delete expired: %v", err)
	}
	if n != 1 {
		t.Fatalf("deleted = %d, want 1", n)
	}
	if _, err := sessions.GetByID(ctx, "s1"); err != domain.ErrNotFound {
		t.Fatalf("get after expiry: err = %v, want ErrNotFound", err)
	}
}

func TestAlertStoreTriggerAndRearm(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	store := NewAlertStore(db)

	now := time.Now().UTC().Truncate(time.Second)
	a := domain.Alert{
		ID:        "a1",
		UserID:    "u1",
		Kind:      "price",
		Name:      "BTC above 70k",
		MarketID:  "m1",
		Venue:     "polymarket",
		Condition: domain.AlertCondition{Kind: domain.AlertPriceAbove, Threshold: 0.7},
		Enabled:   true,
		CreatedAt: now,
	}
	if err := store.Create(ctx, a); err != nil {
		t.Fatalf("create: %v", err)
	}

	untriggered, err := store.ListEnabledUntriggered(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(untriggered) != 1 {
		t.Fatalf("untriggered count = %d, want 1", len(untriggered))
	}

	if err := store.MarkTriggered(ctx, "a1", now); err != nil {
		t.Fatalf("mark triggered: %v", err)
	}
	untriggered, err = store.ListEnabledUntriggered(ctx)
	if err != nil {
		t.Fatalf("list after trigger: %v", err)
	}
	if len(untriggered) != 0 {
		t.Fatalf("untriggered count after trigger = %d, want 0", len(untriggered))
	}

	if err := store.Rearm(ctx, "a1"); err != nil {
		t.Fatalf("rearm: %v", err)
	}
	got, err := store.GetByID(ctx, "a1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Triggered {
		t.Fatalf("triggered = true after rearm")
	}
	if got.Condition.Kind != domain.AlertPriceAbove {
		t.Fatalf("condition kind = %q, want %q", got.Condition.Kind, domain.AlertPriceAbove)
	}

	if err := store.Delete(ctx, "a1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := store.GetByID(ctx, "a1"); err != domain.ErrNotFound {
		t.Fatalf("get after delete: err = %v, want ErrNotFound", err)
	}
}

func TestPositionStoreListHistory(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	store := NewPositionStore(db)

	base := time.Now().UTC().Truncate(time.Second)
	for i := 0; i < 3; i++ {
		p := domain.ClosedPosition{
			OpenPosition: domain.OpenPosition{
				ID:         "p" + string(rune('1'+i)),
				Strategy:   "momentum",
				Asset:      "BTC",
				Direction:  domain.DirectionUp,
				TokenID:    "t1",
				EntryPrice: 0.5,
				Shares:     10,
				OpenedAt:   base,
			},
			ExitPrice:    0.55,
			RealizedPnL:  5,
			ExitReason:   domain.ExitReasonTakeProfit,
			ClosedAt:     base.Add(time.Duration(i) * time.Minute),
		}
		if err := store.Insert(ctx, p); err != nil {
			t.Fatalf("insert %d: %v", i, err)
		}
	}

	history, err := store.ListHistory(ctx, domain.ListOpts{Limit: 2})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("history len = %d, want 2", len(history))
	}
	if history[0].ClosedAt.Before(history[1].ClosedAt) {
		t.Fatalf("history not ordered newest-first")
	}
}

func TestMarketStoreUpsertAndGet(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	store := NewMarketStore(db)

	now := time.Now().UTC().Truncate(time.Second)
	m := domain.Market{
		Venue:     "polymarket",
		ID:        "m1",
		Slug:      "will-btc-hit-100k",
		Question:  "Will BTC hit $100k?",
		Outcomes:  []domain.Outcome{{ID: "o1", Name: "Yes", Price: 0.6}, {ID: "o2", Name: "No", Price: 0.4}},
		Tags:      []string{"crypto", "btc"},
		URL:       "https://example.com/m1",
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := store.Upsert(ctx, m); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	got, err := store.GetByID(ctx, "polymarket", "m1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(got.Outcomes) != 2 || got.Outcomes[0].Name != "Yes" {
		t.Fatalf("outcomes = %+v", got.Outcomes)
	}
	if len(got.Tags) != 2 || got.Tags[1] != "btc" {
		t.Fatalf("tags = %+v", got.Tags)
	}
}

func TestCredentialStoreUpsertAndGet(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	store := NewCredentialStore(db)

	now := time.Now().UTC().Truncate(time.Second)
	c := domain.TradingCredential{UserID: "u1", Venue: "polymarket", Ciphertext: "iv:ct", CreatedAt: now, UpdatedAt: now}
	if err := store.Upsert(ctx, c); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	got, err := store.Get(ctx, "u1", "polymarket")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Ciphertext != "iv:ct" {
		t.Fatalf("ciphertext = %q", got.Ciphertext)
	}

	if _, err := store.Get(ctx, "u1", "kalshi"); err != domain.ErrNotFound {
		t.Fatalf("get missing venue: err = %v, want ErrNotFound", err)
	}
}

func TestCronJobStoreLifecycle(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	store := NewCronJobStore(db)

	now := time.Now().UTC().Truncate(time.Second)
	next := now.Add(time.Minute)
	j := domain.CronJob{
		ID:          "j1",
		Name:        "alert scan",
		Description: "periodic alert scan",
		Enabled:     true,
		Schedule:    domain.Schedule{Kind: domain.ScheduleEvery, EveryMs: 60000, Anchor: now},
		SessionTarget: domain.SessionMain,
		WakeMode:      domain.WakeNow,
		Payload:       domain.CronPayload{Kind: domain.PayloadAlertScan},
		CreatedAt:     now,
		UpdatedAt:     now,
		NextRunAt:     &next,
	}
	if err := store.Create(ctx, j); err != nil {
		t.Fatalf("create: %v", err)
	}

	got, err := store.GetByID(ctx, "j1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Schedule.Kind != domain.ScheduleEvery || got.Schedule.EveryMs != 60000 {
		t.Fatalf("schedule = %+v", got.Schedule)
	}
	if got.Payload.Kind != domain.PayloadAlertScan {
		t.Fatalf("payload = %+v", got.Payload)
	}

	enabled, err := store.ListEnabled(ctx)
	if err != nil {
		t.Fatalf("list enabled: %v", err)
	}
	if len(enabled) != 1 {
		t.Fatalf("enabled count = %d, want 1", len(enabled))
	}

	due, err := store.ListDuePast(ctx, now.Add(2*time.Minute))
	if err != nil {
		t.Fatalf("list due: %v", err)
	}
	if len(due) != 1 {
		t.Fatalf("due count = %d, want 1", len(due))
	}

	j.Enabled = false
	j.LastStatus = domain.JobStatusOK
	if err := store.Update(ctx, j); err != nil {
		t.Fatalf("update: %v", err)
	}
	got, err = store.GetByID(ctx, "j1")
	if err != nil {
		t.Fatalf("get after update: %v", err)
	}
	if got.Enabled {
		t.Fatalf("enabled = true after update")
	}
	if got.LastStatus != domain.JobStatusOK {
		t.Fatalf("lastStatus = %q, want ok", got.LastStatus)
	}

	if err := store.Delete(ctx, "j1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := store.GetByID(ctx, "j1"); err != domain.ErrNotFound {
		t.Fatalf("get after delete: err = %v, want ErrNotFound", err)
	}
}
