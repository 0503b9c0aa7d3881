// Package state defines the mutable ScheduleState the Scheduler owns, the
// on-disk PersistentRecord shape, and the StateStore that atomically
// persists it.
package state

import "time"

// ScheduleState is mutable and exclusively owned by the Scheduler; every
// other component reads it through explicit accessors rather than mutating
// it directly.
type ScheduleState struct {
	LastUpdate          *time.Time `json:"last_update,omitempty"`
	NextUpdate          *time.Time `json:"next_update,omitempty"`
	IsRunning           bool       `json:"is_running"`
	ConsecutiveFailures int        `json:"consecutive_failures"`
	LastFailure         *time.Time `json:"last_failure,omitempty"`
	LastErrorMessage    string     `json:"last_error,omitempty"`
}

// Clone returns a deep copy so callers (e.g. CommandSurface reading status)
// cannot mutate the Scheduler's live state through a shared pointer.
func (s ScheduleState) Clone() ScheduleState {
	clone := s
	if s.LastUpdate != nil {
		t := *s.LastUpdate
		clone.LastUpdate = &t
	}
	if s.NextUpdate != nil {
		t := *s.NextUpdate
		clone.NextUpdate = &t
	}
	if s.LastFailure != nil {
		t := *s.LastFailure
		clone.LastFailure = &t
	}
	return clone
}

// RecordSuccess resets the failure counters and stamps lastUpdate as both
// the last and (temporarily) the most recent successful run. Callers set
// NextUpdate separately via the TimestampCalculator.
func (s *ScheduleState) RecordSuccess(at time.Time) {
	s.LastUpdate = &at
	s.ConsecutiveFailures = 0
	s.LastFailure = nil
	s.LastErrorMessage = ""
}

// RecordFailure increments the failure counter and stamps the failure
// timestamp/message.
func (s *ScheduleState) RecordFailure(at time.Time, msg string) {
	s.ConsecutiveFailures++
	s.LastFailure = &at
	s.LastErrorMessage = msg
}

// ScheduleSnapshot is the subset of SchedulingConfig persisted alongside
// ScheduleState, so a restart can detect a config change between runs.
type ScheduleSnapshot struct {
	UpdateDays      int    `json:"update_days"`
	FixedUpdateTime string `json:"fixed_update_time"`
}

// SchemaVersion is the current PersistentRecord.Version. A different value
// on load is treated as incompatible (see Store.Load).
const SchemaVersion = "1.0"

// PersistentRecord is the on-disk JSON shape.
type PersistentRecord struct {
	Version string            `json:"version"`
	State   ScheduleState     `json:"state"`
	Config  *ScheduleSnapshot `json:"config,omitempty"`
	SavedAt time.Time         `json:"saved_at"`
}
