package schedule

import (
	"time"

	"github.com/engels74/tgraph-bot-go/internal/clock"
)

// Calculator is the single source of truth for next_update, shared by the
// scheduler loop and anything that renders a "next update" label (chat
// embeds, the uptime/about commands). Constructing next_update anywhere
// else would let two callers disagree about when the next run fires.
type Calculator struct {
	clock clock.Clock
}

// NewCalculator returns a Calculator that resolves the system zone and "now"
// through clk.
func NewCalculator(clk clock.Clock) *Calculator {
	return &Calculator{clock: clk}
}

// NextUpdate reduces (cfg, lastUpdate, now) to the next scheduled fire. now
// must already be zone-aware; lastUpdate, if present, is converted to the
// system zone before use.
func (c *Calculator) NextUpdate(cfg SchedulingConfig, lastUpdate *time.Time, now time.Time) time.Time {
	now = c.clock.ToSystemZone(now)

	if !cfg.FixedTimeEnabled() {
		return c.nextInterval(cfg, lastUpdate, now)
	}
	return c.nextFixedTime(cfg, lastUpdate, now)
}

func (c *Calculator) nextInterval(cfg SchedulingConfig, lastUpdate *time.Time, now time.Time) time.Time {
	if lastUpdate == nil {
		return now.AddDate(0, 0, cfg.UpdateDays())
	}
	last := c.clock.ToSystemZone(*lastUpdate)
	// Intentionally may be in the past; the caller (Recovery/Scheduler)
	// decides whether to replay.
	return last.AddDate(0, 0, cfg.UpdateDays())
}

func (c *Calculator) nextFixedTime(cfg SchedulingConfig, lastUpdate *time.Time, now time.Time) time.Time {
	hour, minute := cfg.ClockTime()
	zone := c.clock.SystemZone()

	if lastUpdate == nil {
		// First-run constraint: at least update_days away, never "still
		// today" even if the fixed time hasn't passed yet today.
		date := now.AddDate(0, 0, cfg.UpdateDays())
		return atClockTime(date, hour, minute, zone)
	}

	last := c.clock.ToSystemZone(*lastUpdate)
	candidate := atClockTime(last.AddDate(0, 0, cfg.UpdateDays()), hour, minute, zone)
	for !candidate.After(now) {
		candidate = atClockTime(candidate.AddDate(0, 0, cfg.UpdateDays()), hour, minute, zone)
	}
	return candidate
}

// atClockTime returns the local instant on date's calendar day at hour:minute
// in zone. time.Date normalises DST gaps/ambiguity per Go's documented
// policy: a non-existent local time is pushed forward by the gap (spring
// forward → next valid instant) and an ambiguous time resolves to the first
// occurrence (fall back).
func atClockTime(date time.Time, hour, minute int, zone *time.Location) time.Time {
	return time.Date(date.Year(), date.Month(), date.Day(), hour, minute, 0, 0, zone)
}

// TimeUntil returns the duration from now until NextUpdate's result.
func (c *Calculator) TimeUntil(cfg SchedulingConfig, lastUpdate *time.Time, now time.Time) time.Duration {
	return c.NextUpdate(cfg, lastUpdate, now).Sub(now)
}

// IsValidSchedule reports whether t is a plausible next_update value: in the
// future, and not absurdly far out (more than a year).
func (c *Calculator) IsValidSchedule(t, now time.Time) bool {
	return t.After(now) && !t.After(now.AddDate(1, 0, 0))
}

// IntegrityIssue names a consistency problem surfaced by ValidateIntegrity.
type IntegrityIssue string

const (
	IssueNextInPast       IntegrityIssue = "next_update is in the past"
	IssueNextTooFarOut    IntegrityIssue = "next_update is more than 2x update_days away"
	IssueIntervalMismatch IntegrityIssue = "next_update - last_update does not match update_days within tolerance"
)

// ValidateIntegrity checks a stored next_update against cfg/lastUpdate/now
// and returns the issues found, if any.
func (c *Calculator) ValidateIntegrity(cfg SchedulingConfig, storedNext *time.Time, lastUpdate *time.Time, now time.Time) []IntegrityIssue {
	var issues []IntegrityIssue
	if storedNext == nil {
		return issues
	}
	next := c.clock.ToSystemZone(*storedNext)

	if !next.After(now) {
		issues = append(issues, IssueNextInPast)
	}
	maxFuture := now.AddDate(0, 0, 2*cfg.UpdateDays())
	if next.After(maxFuture) {
		issues = append(issues, IssueNextTooFarOut)
	}
	if lastUpdate != nil {
		last := c.clock.ToSystemZone(*lastUpdate)
		interval := next.Sub(last)
		expected := time.Duration(cfg.UpdateDays()) * 24 * time.Hour
		tolerance := 24 * time.Hour
		if !cfg.FixedTimeEnabled() {
			tolerance = time.Second
		}
		diff := interval - expected
		if diff < 0 {
			diff = -diff
		}
		if diff > tolerance {
			issues = append(issues, IssueIntervalMismatch)
		}
	}
	return issues
}
