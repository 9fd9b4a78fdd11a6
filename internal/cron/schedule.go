package cron

import (
	"time"

	"github.com/cloddsbot/core/internal/domain"
)

// nextRun computes the next firing time for a schedule given the current
// time and, for ScheduleAt, whether the job should be treated as expired
// (its At time has already passed and it is not eligible to fire again).
//
// Returns (next, armable). armable is false only for an already-past
// ScheduleAt job with deleteAfterRun unset — such a job stays in the store
// but is never rearmed.
func nextRun(sched domain.Schedule, deleteAfterRun bool, now time.Time) (time.Time, bool) {
	switch sched.Kind {
	case domain.ScheduleAt:
		if sched.At.After(now) {
			return sched.At, true
		}
		if deleteAfterRun {
			return sched.At, true // caller deletes instead of rearming
		}
		return time.Time{}, false

	case domain.ScheduleEvery:
		anchor := sched.Anchor
		if anchor.IsZero() {
			anchor = now
		}
		every := time.Duration(sched.EveryMs) * time.Millisecond
		if every <= 0 {
			every = time.Second
		}
		elapsed := now.Sub(anchor)
		ticks := elapsed / every
		if elapsed > 0 && elapsed%every != 0 {
			ticks++
		}
		next := anchor.Add(ticks * every)
		if !next.After(now) {
			next = next.Add(every)
		}
		return next, true

	case domain.ScheduleCron:
		loc := time.UTC
		if sched.TimeZone != "" {
			if l, err := time.LoadLocation(sched.TimeZone); err == nil {
				loc = l
			}
		}
		return nextCronTime(sched.CronExpr, now.In(loc)), true

	default:
		return now.Add(time.Minute), true
	}
}
