// Package cron schedules and executes recurring and one-shot jobs against
// five payload kinds, persisting schedule state so a restarted process
// recovers without a durable queue.
package cron

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/cloddsbot/core/internal/domain"
)

const (
	driftCatchupInterval = 60 * time.Second
	alertScanInterval    = 30 * time.Second
)

// Service is the Cron Service: it owns the jobs table (via store) and every
// outstanding timer. Jobs are mutated only inside Service's own methods and
// its timer callbacks.
type Service struct {
	store    domain.CronJobStore
	handlers *payloadHandlers
	log      *slog.Logger

	mu     sync.Mutex
	timers map[string]*time.Timer

	stop chan struct{}
}

// New constructs a Service. feeds/alerts/notify/agent wire the payload
// handlers that fire when a job runs; notify and agent may be nil.
func New(store domain.CronJobStore, feeds MarketLookup, alerts domain.AlertStore, notify ChatSender, agent AgentTurnFunc, log *slog.Logger) *Service {
	return &Service{
		store: store,
		handlers: &payloadHandlers{
			feeds:  feeds,
			alerts: alerts,
			notify: notify,
			agent:  agent,
			log:    log,
		},
		log:    log,
		timers: make(map[string]*time.Timer),
		stop:   make(chan struct{}),
	}
}

// Start loads every enabled job, arms its timer, bootstraps the alertScan
// job if none exists, and begins the 60s drift-catchup loop.
func (s *Service) Start(ctx context.Context) error {
	if err := s.bootstrap(ctx); err != nil {
		return err
	}

	jobs, err := s.store.ListEnabled(ctx)
	if err != nil {
		return err
	}
	for _, j := range jobs {
		s.scheduleJob(ctx, j)
	}

	go s.driftCatchupLoop(ctx)
	return nil
}

// Stop cancels every outstanding timer without mutating the store; the next
// Start recomputes schedules from persisted state.
func (s *Service) Stop() {
	close(s.stop)
	s.mu.Lock()
	for id, t := range s.timers {
		t.Stop()
		delete(s.timers, id)
	}
	s.mu.Unlock()
}

func (s *Service) bootstrap(ctx context.Context) error {
	jobs, err := s.store.ListEnabled(ctx)
	if err != nil {
		return err
	}
	for _, j := range jobs {
		if j.Payload.Kind == domain.PayloadAlertScan {
			return nil
		}
	}

	now := time.Now()
	job := domain.CronJob{
		ID:      "alert-scan",
		Name:    "alert scan",
		Enabled: true,
		Schedule: domain.Schedule{
			Kind:    domain.ScheduleEvery,
			EveryMs: alertScanInterval.Milliseconds(),
			Anchor:  now,
		},
		Payload:   domain.CronPayload{Kind: domain.PayloadAlertScan},
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.log.Info("cron: bootstrapping alert scan job")
	return s.store.Create(ctx, job)
}

// scheduleJob computes the next run for job, cancels any existing timer for
// it, persists the new next-run time, and arms a fresh timer. It is the
// self-rescheduling loop's single entry point, called both from Start and
// from a job's own completion.
func (s *Service) scheduleJob(ctx context.Context, job domain.CronJob) {
	s.mu.Lock()
	if t, ok := s.timers[job.ID]; ok {
		t.Stop()
		delete(s.timers, job.ID)
	}
	s.mu.Unlock()

	next, armable := nextRun(job.Schedule, job.DeleteAfterRun, time.Now())
	if !armable {
		job.NextRunAt = nil
		if err := s.store.Update(ctx, job); err != nil {
			s.log.Error("cron: persist non-armable job", slog.String("job_id", job.ID), slog.Any("error", err))
		}
		return
	}

	job.NextRunAt = &next
	if err := s.store.Update(ctx, job); err != nil {
		s.log.Error("cron: persist next run", slog.String("job_id", job.ID), slog.Any("error", err))
		return
	}

	delay := time.Until(next)
	if delay < 0 {
		delay = 0
	}
	jobID := job.ID
	timer := time.AfterFunc(delay, func() { s.fire(ctx, jobID) })

	s.mu.Lock()
	s.timers[job.ID] = timer
	s.mu.Unlock()
}

// fire runs one job's payload handler and then either deletes it (one-shot,
// deleteAfterRun) or reschedules it.
func (s *Service) fire(ctx context.Context, jobID string) {
	job, err := s.store.GetByID(ctx, jobID)
	if err != nil {
		s.log.Warn("cron: fire: job vanished", slog.String("job_id", jobID), slog.Any("error", err))
		return
	}
	if !job.Enabled {
		return
	}

	now := time.Now()
	job.RunningAt = &now
	_ = s.store.Update(ctx, job)

	start := time.Now()
	runErr := s.handlers.run(ctx, job)
	dur := time.Since(start)

	job.RunningAt = nil
	job.LastRunAt = &now
	job.LastDurMs = dur.Milliseconds()
	if runErr != nil {
		job.LastStatus = domain.JobStatusError
		job.LastError = runErr.Error()
		s.log.Error("cron: job handler failed", slog.String("job_id", jobID), slog.Any("error", runErr))
	} else {
		job.LastStatus = domain.JobStatusOK
		job.LastError = ""
	}

	if job.Schedule.Kind == domain.ScheduleAt && job.DeleteAfterRun {
		if err := s.store.Delete(ctx, job.ID); err != nil {
			s.log.Error("cron: delete one-shot job", slog.String("job_id", job.ID), slog.Any("error", err))
		}
		s.mu.Lock()
		delete(s.timers, job.ID)
		s.mu.Unlock()
		return
	}

	s.scheduleJob(ctx, job)
}

// driftCatchupLoop re-arms any enabled, non-running job whose next_run_at
// has slipped into the past — e.g. after the process was suspended.
func (s *Service) driftCatchupLoop(ctx context.Context) {
	ticker := time.NewTicker(driftCatchupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stop:
			return
		case <-ticker.C:
			s.catchUp(ctx)
		}
	}
}

func (s *Service) catchUp(ctx context.Context) {
	due, err := s.store.ListDuePast(ctx, time.Now())
	if err != nil {
		s.log.Error("cron: drift catchup list", slog.Any("error", err))
		return
	}
	for _, j := range due {
		if j.RunningAt != nil {
			continue
		}
		s.scheduleJob(ctx, j)
	}
}
