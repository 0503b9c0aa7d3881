// Package recovery detects missed scheduler fires on startup (or on
// demand), validates schedule invariants, and repairs state so a restart
// after downtime catches up correctly instead of silently skipping a run.
package recovery

import (
	"context"
	"time"

	"github.com/engels74/tgraph-bot-go/internal/clock"
	"github.com/engels74/tgraph-bot-go/internal/log"
	"github.com/engels74/tgraph-bot-go/internal/schedule"
	"github.com/engels74/tgraph-bot-go/internal/state"
)

// MissedFireReason classifies why a fire is considered missed.
type MissedFireReason string

const (
	ReasonMissedScheduled MissedFireReason = "missed_scheduled"
	ReasonIntervalBackfill MissedFireReason = "interval_backfill"
	ReasonDowntime         MissedFireReason = "downtime"
)

// MissedFire is one elapsed scheduled instant detected during recovery.
type MissedFire struct {
	ScheduledTime time.Time
	DetectedAt    time.Time
	Reason        MissedFireReason
}

// Recovery reconciles persisted state against the TimestampCalculator.
type Recovery struct {
	clock      clock.Clock
	calculator *schedule.Calculator
	logger     log.Logger
}

// New returns a Recovery bound to clk/calc/logger.
func New(clk clock.Clock, calc *schedule.Calculator, logger log.Logger) *Recovery {
	return &Recovery{clock: clk, calculator: calc, logger: logger}
}

// DetectMissedFires finds fires that elapsed while the process was down.
func (r *Recovery) DetectMissedFires(cfg schedule.SchedulingConfig, st state.ScheduleState, now time.Time) []MissedFire {
	if st.LastUpdate == nil {
		return nil
	}

	var missed []MissedFire

	if st.NextUpdate != nil && st.NextUpdate.Before(now) {
		missed = append(missed, MissedFire{
			ScheduledTime: *st.NextUpdate,
			DetectedAt:    now,
			Reason:        ReasonMissedScheduled,
		})
	}

	if !cfg.FixedTimeEnabled() {
		elapsed := now.Sub(*st.LastUpdate)
		intervalCount := int(elapsed / (time.Duration(cfg.UpdateDays()) * 24 * time.Hour))
		for k := 1; k < intervalCount; k++ {
			missed = append(missed, MissedFire{
				ScheduledTime: st.LastUpdate.AddDate(0, 0, k*cfg.UpdateDays()),
				DetectedAt:    now,
				Reason:        ReasonIntervalBackfill,
			})
		}
	}

	return missed
}

// ValidateIntegrity returns the issues found in st relative to cfg and now.
func (r *Recovery) ValidateIntegrity(cfg schedule.SchedulingConfig, st state.ScheduleState, now time.Time) []string {
	var issues []string

	if st.NextUpdate != nil {
		for _, issue := range r.calculator.ValidateIntegrity(cfg, st.NextUpdate, st.LastUpdate, now) {
			issues = append(issues, string(issue))
		}
	}

	if st.ConsecutiveFailures > 10 {
		issues = append(issues, "consecutive_failures exceeds 10")
	} else if st.ConsecutiveFailures > 0 && st.LastFailure != nil && now.Sub(*st.LastFailure) > 7*24*time.Hour {
		issues = append(issues, "consecutive_failures > 0 with last_failure older than 7 days")
	}

	return issues
}

// Repair mutates st in place to resolve the issues ValidateIntegrity found:
// a fresh next_update, failure-counter reset when stale enough, and
// is_running cleared when hasRunningTask reports false.
func (r *Recovery) Repair(cfg schedule.SchedulingConfig, st *state.ScheduleState, now time.Time, hasRunningTask bool) {
	next := r.calculator.NextUpdate(cfg, st.LastUpdate, now)
	st.NextUpdate = &next

	if st.ConsecutiveFailures > 5 && st.LastFailure != nil && now.Sub(*st.LastFailure) > 3*24*time.Hour {
		st.ConsecutiveFailures = 0
		st.LastFailure = nil
		st.LastErrorMessage = ""
	}

	if !hasRunningTask {
		st.IsRunning = false
	}
}

// Callback replays one missed fire; implemented by the UpdateOrchestrator in
// production.
type Callback func(ctx context.Context, fire MissedFire) error

// PerformRecovery runs detection, validation-driven repair, and (if cb is
// non-nil) sequential replay of every missed fire, continuing past
// individual failures. The final state is returned for the caller to
// persist via StateStore.
func (r *Recovery) PerformRecovery(ctx context.Context, cfg schedule.SchedulingConfig, st state.ScheduleState, now time.Time, hasRunningTask bool, cb Callback) state.ScheduleState {
	fires := r.DetectMissedFires(cfg, st, now)
	if issues := r.ValidateIntegrity(cfg, st, now); len(issues) > 0 {
		r.logger.Warn("recovery: schedule integrity issues found", "issues", issues)
	}
	r.Repair(cfg, &st, now, hasRunningTask)

	if cb == nil {
		return st
	}

	for _, fire := range fires {
		if err := cb(ctx, fire); err != nil {
			r.logger.Errorf("recovery: replay of missed fire at %s failed: %v", fire.ScheduledTime, err)
			st.RecordFailure(r.clock.Now(), err.Error())
			continue
		}
		st.RecordSuccess(r.clock.Now())
	}

	next := r.calculator.NextUpdate(cfg, st.LastUpdate, r.clock.Now())
	st.NextUpdate = &next
	return st
}
