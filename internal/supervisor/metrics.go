package supervisor

import (
	"sync"
	"time"

	"github.com/engels74/tgraph-bot-go/internal/errclass"
)

// Metrics is the per-task error-counter value: attempts, successes,
// failures, and a per-class failure breakdown.
type Metrics struct {
	mu sync.Mutex

	TotalAttempts  int
	TotalSuccesses int
	TotalFailures  int
	PerClass       map[errclass.Class]int

	ConsecutiveFailures  int
	ConsecutiveSuccesses int

	LastSuccess *time.Time
	LastFailure *time.Time
	LastAttempt *time.Time
}

func newMetrics() *Metrics {
	return &Metrics{PerClass: make(map[errclass.Class]int)}
}

func (m *Metrics) recordAttempt(at time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.TotalAttempts++
	m.LastAttempt = &at
}

func (m *Metrics) recordSuccess(at time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.TotalSuccesses++
	m.ConsecutiveSuccesses++
	m.ConsecutiveFailures = 0
	m.LastSuccess = &at
}

func (m *Metrics) recordFailure(at time.Time, class errclass.Class) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.TotalFailures++
	m.ConsecutiveFailures++
	m.ConsecutiveSuccesses = 0
	m.PerClass[class]++
	m.LastFailure = &at
}

// Snapshot returns a copy safe to read without holding the Metrics lock.
func (m *Metrics) Snapshot() Metrics {
	m.mu.Lock()
	defer m.mu.Unlock()
	classCopy := make(map[errclass.Class]int, len(m.PerClass))
	for k, v := range m.PerClass {
		classCopy[k] = v
	}
	return Metrics{
		TotalAttempts:        m.TotalAttempts,
		TotalSuccesses:       m.TotalSuccesses,
		TotalFailures:        m.TotalFailures,
		PerClass:             classCopy,
		ConsecutiveFailures:  m.ConsecutiveFailures,
		ConsecutiveSuccesses: m.ConsecutiveSuccesses,
		LastSuccess:          m.LastSuccess,
		LastFailure:          m.LastFailure,
		LastAttempt:          m.LastAttempt,
	}
}
