// Package breaker implements a per-task circuit breaker gate: closed
// admits, open denies, half-open probes. The state machine is hand-rolled
// with three independent calls (Allow/RecordSuccess/RecordFailure) rather
// than a single wrapped Execute, because those three calls are invoked
// from separate points in the supervisor's task-execution wrapper, not
// back-to-back. The outbound HTTP boundary in internal/analytics
// additionally wraps github.com/sony/gobreaker directly around request
// execution, which is the usual shape for that library.
package breaker

import (
	"sync"
	"time"
)

// State is one of the three states of a keyed breaker.
type State int

const (
	Closed State = iota
	Open
	HalfOpen
)

func (s State) String() string {
	switch s {
	case Open:
		return "open"
	case HalfOpen:
		return "half_open"
	default:
		return "closed"
	}
}

// Policy configures the thresholds governing state transitions.
type Policy struct {
	FailureThreshold int           // consecutive failures in Closed before tripping Open
	SuccessThreshold int           // consecutive successes in HalfOpen before closing
	RecoveryTimeout  time.Duration // time in Open before a probe is admitted
}

// AuditFunc receives a transition notification. Passed in by the caller
// (TaskSupervisor) so breaker stays decoupled from the logging package.
type AuditFunc func(task string, from, to State)

type taskState struct {
	mu                   sync.Mutex
	state                State
	consecutiveFailures  int
	consecutiveSuccesses int
	openedAt             time.Time
	probeSent            bool
}

// Manager holds one breaker per task name.
type Manager struct {
	policy Policy
	audit  AuditFunc

	mu    sync.Mutex
	tasks map[string]*taskState
}

// NewManager returns a Manager applying policy to every task it tracks. audit
// may be nil.
func NewManager(policy Policy, audit AuditFunc) *Manager {
	if audit == nil {
		audit = func(string, State, State) {}
	}
	return &Manager{
		policy: policy,
		audit:  audit,
		tasks:  make(map[string]*taskState),
	}
}

func (m *Manager) state(task string) *taskState {
	m.mu.Lock()
	defer m.mu.Unlock()
	ts, ok := m.tasks[task]
	if !ok {
		ts = &taskState{state: Closed}
		m.tasks[task] = ts
	}
	return ts
}

// Allow reports whether task is currently permitted to run, evaluated at
// instant now. Calling Allow on an Open breaker whose recovery timeout has
// elapsed transitions it to HalfOpen and admits exactly one probe.
func (m *Manager) Allow(task string, now time.Time) bool {
	ts := m.state(task)
	ts.mu.Lock()
	defer ts.mu.Unlock()

	switch ts.state {
	case Closed:
		return true
	case Open:
		if now.Sub(ts.openedAt) >= m.policy.RecoveryTimeout {
			m.transition(task, ts, HalfOpen)
			ts.probeSent = true
			return true
		}
		return false
	case HalfOpen:
		// A single probe is admitted per recovery window; subsequent
		// callers are denied until the probe resolves.
		if ts.probeSent {
			return false
		}
		ts.probeSent = true
		return true
	default:
		return false
	}
}

// RecordSuccess reports a successful attempt for task at instant now.
func (m *Manager) RecordSuccess(task string, now time.Time) {
	ts := m.state(task)
	ts.mu.Lock()
	defer ts.mu.Unlock()

	switch ts.state {
	case Closed:
		ts.consecutiveFailures = 0
	case HalfOpen:
		ts.consecutiveSuccesses++
		if ts.consecutiveSuccesses >= m.policy.SuccessThreshold {
			ts.consecutiveFailures = 0
			ts.consecutiveSuccesses = 0
			ts.openedAt = time.Time{}
			ts.probeSent = false
			m.transition(task, ts, Closed)
		} else {
			// Threshold not yet reached: admit another probe instead of
			// staying latched on the one that just succeeded.
			ts.probeSent = false
		}
	case Open:
		// Stale success from a probe that raced the recovery timeout; ignore.
	}
}

// RecordFailure reports a failed attempt for task at instant now.
func (m *Manager) RecordFailure(task string, now time.Time) {
	ts := m.state(task)
	ts.mu.Lock()
	defer ts.mu.Unlock()

	switch ts.state {
	case Closed:
		ts.consecutiveFailures++
		if ts.consecutiveFailures >= m.policy.FailureThreshold {
			ts.openedAt = now
			m.transition(task, ts, Open)
		}
	case HalfOpen:
		ts.consecutiveSuccesses = 0
		ts.openedAt = now
		ts.probeSent = false
		m.transition(task, ts, Open)
	case Open:
		ts.openedAt = now
	}
}

// State returns the current state of task without mutating anything.
func (m *Manager) State(task string) State {
	ts := m.state(task)
	ts.mu.Lock()
	defer ts.mu.Unlock()
	return ts.state
}

// transition must be called with ts.mu held.
func (m *Manager) transition(task string, ts *taskState, to State) {
	from := ts.state
	ts.state = to
	if from != to {
		m.audit(task, from, to)
	}
}
