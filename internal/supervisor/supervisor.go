// Package supervisor runs named long-running tasks with health heartbeats,
// a restart policy, a per-task circuit breaker and metrics, and a bounded
// audit log.
package supervisor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/engels74/tgraph-bot-go/internal/breaker"
	"github.com/engels74/tgraph-bot-go/internal/clock"
	"github.com/engels74/tgraph-bot-go/internal/errclass"
	"github.com/engels74/tgraph-bot-go/internal/log"
	"github.com/engels74/tgraph-bot-go/internal/retry"
)

// Status is a task's lifecycle state.
type Status int

const (
	Idle Status = iota
	Running
	Failed
	Cancelled
)

func (s Status) String() string {
	switch s {
	case Running:
		return "running"
	case Failed:
		return "failed"
	case Cancelled:
		return "cancelled"
	default:
		return "idle"
	}
}

// staleAfter marks a task unhealthy if its heartbeat is older than this.
const staleAfter = 5 * time.Minute

// heartbeatChunk bounds any single wait so a task can stamp a heartbeat at
// least every 2 minutes, even mid-wait.
const heartbeatChunk = 2 * time.Minute

// defaultTaskTimeout bounds ordinary task bodies; the scheduler's own body
// is registered with Unbounded and paces itself instead.
const defaultTaskTimeout = 5 * time.Minute

// Body is the work a supervised task performs. It must return promptly
// after ctx is cancelled.
type Body func(ctx context.Context) error

type taskConfig struct {
	unbounded bool
}

// TaskOption configures a registered task.
type TaskOption func(*taskConfig)

// Unbounded marks a task's body as having no outer timeout (reserved for
// the scheduler loop, which self-paces via heartbeat-chunked waits).
func Unbounded() TaskOption { return func(c *taskConfig) { c.unbounded = true } }

type task struct {
	name             string
	body             Body
	restartOnFailure bool
	cfg              taskConfig

	mu            sync.Mutex
	status        Status
	lastHeartbeat time.Time

	cancel context.CancelFunc
	done   chan struct{}
}

// Supervisor manages a set of named background tasks.
type Supervisor struct {
	clock   clock.Clock
	logger  log.Logger
	policy  *retry.Policy
	breaker *breaker.Manager

	mu          sync.Mutex
	tasks       map[string]*task
	metrics     map[string]*Metrics
	audit       *auditLog
	shutdown    context.CancelFunc
	ctx         context.Context
	started     bool
	healthCron  *cron.Cron
}

// New returns a Supervisor. policy supplies both the retry/backoff math and
// the circuit-breaker thresholds.
func New(clk clock.Clock, logger log.Logger, policy *retry.Policy) *Supervisor {
	s := &Supervisor{
		clock:   clk,
		logger:  logger,
		policy:  policy,
		tasks:   make(map[string]*task),
		metrics: make(map[string]*Metrics),
		audit:   newAuditLog(),
	}
	s.breaker = breaker.NewManager(breaker.Policy{
		FailureThreshold: policy.FailureThreshold,
		SuccessThreshold: policy.SuccessThreshold,
		RecoveryTimeout:  policy.RecoveryTimeout,
	}, func(taskName string, from, to breaker.State) {
		s.appendAudit(taskName, "breaker_transition", fmt.Sprintf("%s -> %s", from, to))
	})
	return s
}

// Start accepts registrations and begins the health watcher, a periodic tick
// (via robfig/cron, "@every 30s") that logs any task whose heartbeat has
// gone stale.
func (s *Supervisor) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return
	}
	s.ctx, s.shutdown = context.WithCancel(context.Background())
	s.started = true

	s.healthCron = cron.New()
	_, _ = s.healthCron.AddFunc("@every 30s", func() {
		if stale := s.HealthSummary(); len(stale) > 0 {
			s.logger.Warn("supervisor health check found stale tasks", "tasks", stale)
		}
	})
	s.healthCron.Start()
}

// Add registers a task, replacing any existing task of the same name
// (cancelling the old one first).
func (s *Supervisor) Add(name string, body Body, restartOnFailure bool, opts ...TaskOption) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.tasks[name]; ok {
		existing.cancel()
		<-existing.done
	}

	cfg := taskConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}

	taskCtx, cancel := context.WithCancel(s.ctx)
	t := &task{
		name:             name,
		body:             body,
		restartOnFailure: restartOnFailure,
		cfg:              cfg,
		status:           Idle,
		lastHeartbeat:    s.clock.Now(),
		cancel:           cancel,
		done:             make(chan struct{}),
	}
	s.tasks[name] = t
	if _, ok := s.metrics[name]; !ok {
		s.metrics[name] = newMetrics()
	}

	go s.run(taskCtx, t)
}

// Remove cancels and deregisters a task.
func (s *Supervisor) Remove(name string) {
	s.mu.Lock()
	t, ok := s.tasks[name]
	if ok {
		delete(s.tasks, name)
	}
	s.mu.Unlock()

	if ok {
		t.cancel()
		<-t.done
	}
}

// Stop cancels the health watcher, cancels every task, waits for them to
// terminate, and clears supervisor state.
func (s *Supervisor) Stop() {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return
	}
	if s.healthCron != nil {
		<-s.healthCron.Stop().Done()
	}
	s.shutdown()
	tasks := make([]*task, 0, len(s.tasks))
	for _, t := range s.tasks {
		tasks = append(tasks, t)
	}
	s.tasks = make(map[string]*task)
	s.started = false
	s.mu.Unlock()

	for _, t := range tasks {
		<-t.done
	}
}

// HeartbeatInterval returns the heartbeat chunk size that Sleep splits its
// waits into.
func (s *Supervisor) HeartbeatInterval() time.Duration { return heartbeatChunk }

// Sleep waits for d, split into heartbeat-sized chunks, stamping name's
// heartbeat after every chunk. Returns false iff ctx was cancelled (i.e.
// shutdown was requested) before d elapsed.
func (s *Supervisor) Sleep(ctx context.Context, name string, d time.Duration) bool {
	for remaining := d; remaining > 0; {
		chunk := remaining
		if chunk > heartbeatChunk {
			chunk = heartbeatChunk
		}
		timer := time.NewTimer(chunk)
		select {
		case <-ctx.Done():
			timer.Stop()
			return false
		case <-timer.C:
		}
		s.stampHeartbeat(name)
		remaining -= chunk
	}
	return true
}

func (s *Supervisor) stampHeartbeat(name string) {
	s.mu.Lock()
	t, ok := s.tasks[name]
	s.mu.Unlock()
	if !ok {
		return
	}
	t.mu.Lock()
	t.lastHeartbeat = s.clock.Now()
	t.mu.Unlock()
}

func (s *Supervisor) setStatus(t *task, status Status) {
	t.mu.Lock()
	t.status = status
	t.lastHeartbeat = s.clock.Now()
	t.mu.Unlock()
}

func (s *Supervisor) appendAudit(task, event, message string) {
	s.audit.append(AuditEntry{
		Timestamp: s.clock.Now(),
		Task:      task,
		Event:     event,
		Message:   message,
	})
	s.logger.Info("supervisor audit", "task", task, "event", event, "message", message)
}

// run is the per-task execution wrapper: heartbeat, restart, breaker.
func (s *Supervisor) run(ctx context.Context, t *task) {
	defer close(t.done)

	for {
		select {
		case <-ctx.Done():
			s.setStatus(t, Idle)
			s.appendAudit(t.name, "cancelled", "shutdown requested")
			return
		default:
		}

		now := s.clock.Now()
		if !s.breaker.Allow(t.name, now) {
			s.appendAudit(t.name, "blocked", "circuit breaker open")
			if !s.Sleep(ctx, t.name, minDuration(s.policy.RecoveryTimeout, 60*time.Second)) {
				s.setStatus(t, Idle)
				s.appendAudit(t.name, "cancelled", "shutdown requested")
				return
			}
			continue
		}

		s.setStatus(t, Running)
		s.metricsFor(t.name).recordAttempt(s.clock.Now())

		err := s.execute(ctx, t)

		if err == nil {
			s.setStatus(t, Idle)
			s.breaker.RecordSuccess(t.name, s.clock.Now())
			s.metricsFor(t.name).recordSuccess(s.clock.Now())
			s.appendAudit(t.name, "completed", "")
			return
		}

		class := errclass.Classify(err)
		s.breaker.RecordFailure(t.name, s.clock.Now())
		metrics := s.metricsFor(t.name)
		metrics.recordFailure(s.clock.Now(), class)
		s.appendAudit(t.name, "failed", err.Error())

		if !t.restartOnFailure || class == errclass.Permanent {
			s.setStatus(t, Failed)
			return
		}

		delay := s.policy.Delay(metrics.Snapshot().ConsecutiveFailures)
		if !s.Sleep(ctx, t.name, delay) {
			s.setStatus(t, Idle)
			s.appendAudit(t.name, "cancelled", "shutdown requested")
			return
		}
	}
}

func (s *Supervisor) execute(ctx context.Context, t *task) error {
	if t.cfg.unbounded {
		return t.body(ctx)
	}

	execCtx, cancel := context.WithTimeout(ctx, defaultTaskTimeout)
	defer cancel()

	errCh := make(chan error, 1)
	go func() { errCh <- t.body(execCtx) }()

	select {
	case err := <-errCh:
		return err
	case <-execCtx.Done():
		if ctx.Err() != nil {
			// Parent cancellation (shutdown), not a timeout; let the caller
			// observe it via the outer select in run().
			<-errCh
			return ctx.Err()
		}
		return fmt.Errorf("task %q timed out after %s", t.name, defaultTaskTimeout)
	}
}

func (s *Supervisor) metricsFor(name string) *Metrics {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.metrics[name]
	if !ok {
		m = newMetrics()
		s.metrics[name] = m
	}
	return m
}

// Status returns the current lifecycle status and metrics for name.
func (s *Supervisor) Status(name string) (Status, Metrics, bool) {
	s.mu.Lock()
	t, ok := s.tasks[name]
	m := s.metrics[name]
	s.mu.Unlock()
	if !ok {
		return Idle, Metrics{}, false
	}
	t.mu.Lock()
	status := t.status
	t.mu.Unlock()
	if m == nil {
		return status, Metrics{}, true
	}
	return status, m.Snapshot(), true
}

// StatusAll returns a status snapshot for every registered task; per-task
// metrics are available from Status.
func (s *Supervisor) StatusAll() map[string]Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]Status, len(s.tasks))
	for name, t := range s.tasks {
		t.mu.Lock()
		out[name] = t.status
		t.mu.Unlock()
	}
	return out
}

// IsHealthy reports whether every task's heartbeat is fresh.
func (s *Supervisor) IsHealthy() bool {
	return len(s.HealthSummary()) == 0
}

// HealthSummary lists the names of tasks whose heartbeat is stale.
func (s *Supervisor) HealthSummary() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.clock.Now()
	var stale []string
	for name, t := range s.tasks {
		t.mu.Lock()
		age := now.Sub(t.lastHeartbeat)
		t.mu.Unlock()
		if age > staleAfter {
			stale = append(stale, name)
		}
	}
	return stale
}

// Audit returns up to limit of the most recent audit entries (0 = all
// currently retained).
func (s *Supervisor) Audit(limit int) []AuditEntry {
	return s.audit.recent(limit)
}

// BreakerState reports the circuit breaker state for name's own restart
// loop, independent of any breaker a task's body maintains for its own
// internal operations.
func (s *Supervisor) BreakerState(name string) breaker.State {
	return s.breaker.State(name)
}

// TaskNames lists every task currently registered, for callers that need to
// iterate without holding a snapshot of StatusAll.
func (s *Supervisor) TaskNames() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, 0, len(s.tasks))
	for name := range s.tasks {
		names = append(names, name)
	}
	return names
}

func minDuration(a, b time.Duration) time.Duration {
	if a < b {
		return a
	}
	return b
}
