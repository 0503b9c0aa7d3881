// Package scheduler implements the Scheduler (C7): the single supervised
// update_scheduler task that fires the update-and-post pipeline at a
// configured cadence, replays missed runs after downtime, retries with
// backoff, and guarantees every reader of next_update — the loop itself,
// the manual /update_graphs command, any embed built mid-run — observes
// the same timestamp.
//
// It lives in its own package rather than internal/schedule because
// internal/recovery already depends on internal/schedule's Calculator and
// SchedulingConfig types; folding the Scheduler into internal/schedule
// would close that into an import cycle (schedule -> recovery -> schedule).
// Composing the two here, one layer up, keeps both lower packages simple.
//
// state.last_update and state.next_update are advanced *before* the
// orchestrator callback runs, never after, so no reader ever observes a
// stale next_update while a run is in flight.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/engels74/tgraph-bot-go/internal/breaker"
	"github.com/engels74/tgraph-bot-go/internal/clock"
	"github.com/engels74/tgraph-bot-go/internal/errclass"
	"github.com/engels74/tgraph-bot-go/internal/log"
	"github.com/engels74/tgraph-bot-go/internal/orchestrate"
	"github.com/engels74/tgraph-bot-go/internal/recovery"
	"github.com/engels74/tgraph-bot-go/internal/retry"
	"github.com/engels74/tgraph-bot-go/internal/schedule"
	"github.com/engels74/tgraph-bot-go/internal/state"
	"github.com/engels74/tgraph-bot-go/internal/supervisor"
)

// TaskName is the name the Scheduler registers itself under with the
// TaskSupervisor.
const TaskName = "update_scheduler"

const breakerKey = "trigger_update"

// backoffCeilHours bounds the backoff window to 2^min(failures,6) hours.
const backoffCeilHours = 6

// fallbackWait is the defensive fallback used when TimestampCalculator
// returns an implausible next_update.
const fallbackWait = time.Hour

// triggerTimeout bounds a single orchestrator invocation within
// trigger_update.
const triggerTimeout = 10 * time.Minute

// RunConfig is everything one orchestrator invocation needs, resolved fresh
// on every fire so an in-flight config edit takes effect without a restart.
type RunConfig struct {
	Scheduling schedule.SchedulingConfig
	Run        orchestrate.Config
	Target     orchestrate.Target
}

// SnapshotFunc resolves the current configuration. Supplied by the caller
// (cmd/ wiring) over internal/config.Store so this package stays decoupled
// from it.
type SnapshotFunc func() (RunConfig, error)

// Metrics mirrors supervisor.Metrics' shape for the trigger_update
// operation specifically, distinct from the TaskSupervisor's own
// restart-level metrics for the update_scheduler task as a whole.
type Metrics struct {
	TotalAttempts  int
	TotalSuccesses int
	TotalFailures  int
	PerClass       map[errclass.Class]int
}

// Scheduler owns the single update_scheduler task.
type Scheduler struct {
	clock        clock.Clock
	calculator   *schedule.Calculator
	recovery     *recovery.Recovery
	stateStore   *state.Store
	supervisor   *supervisor.Supervisor
	orchestrator *orchestrate.Orchestrator
	policy       *retry.Policy
	breaker      *breaker.Manager
	logger       log.Logger
	snapshot     SnapshotFunc
	recoveryOn   bool

	mu      sync.Mutex
	state   state.ScheduleState
	metrics Metrics

	triggerMu sync.Mutex // serializes trigger_update against a manual RunNow
}

// New wires a Scheduler. recoveryEnabled selects whether Start() delegates
// to Recovery.PerformRecovery or installs a fresh ScheduleState.
func New(
	clk clock.Clock,
	calculator *schedule.Calculator,
	rec *recovery.Recovery,
	stateStore *state.Store,
	sup *supervisor.Supervisor,
	orchestrator *orchestrate.Orchestrator,
	policy *retry.Policy,
	logger log.Logger,
	snapshot SnapshotFunc,
	recoveryEnabled bool,
) *Scheduler {
	s := &Scheduler{
		clock:        clk,
		calculator:   calculator,
		recovery:     rec,
		stateStore:   stateStore,
		supervisor:   sup,
		orchestrator: orchestrator,
		policy:       policy,
		logger:       logger,
		snapshot:     snapshot,
		recoveryOn:   recoveryEnabled,
		metrics:      Metrics{PerClass: make(map[errclass.Class]int)},
	}
	s.breaker = breaker.NewManager(breaker.Policy{
		FailureThreshold: policy.FailureThreshold,
		SuccessThreshold: policy.SuccessThreshold,
		RecoveryTimeout:  policy.RecoveryTimeout,
	}, func(task string, from, to breaker.State) {
		logger.Info("scheduler breaker transition", "task", task, "from", from.String(), "to", to.String())
	})
	return s
}

// Start runs the startup sequence: load persisted state, recover or
// install fresh state, register the body with the supervisor, mark
// running, and persist.
func (s *Scheduler) Start(ctx context.Context) error {
	cfg, err := s.snapshot()
	if err != nil {
		return fmt.Errorf("scheduler: resolve config: %w", err)
	}

	loaded, _, err := s.stateStore.Load()
	if err != nil {
		return fmt.Errorf("scheduler: load state: %w", err)
	}

	now := s.clock.Now()
	var resolved state.ScheduleState
	if s.recoveryOn {
		resolved = s.recovery.PerformRecovery(ctx, cfg.Scheduling, loaded, now, false, s.replayMissedFire)
	} else {
		resolved = loaded
		next := s.calculator.NextUpdate(cfg.Scheduling, resolved.LastUpdate, now)
		resolved.NextUpdate = &next
		resolved.IsRunning = false
	}

	s.mu.Lock()
	s.state = resolved
	s.state.IsRunning = true
	snapshotState := s.state
	s.mu.Unlock()

	s.supervisor.Start()
	s.supervisor.Add(TaskName, s.body, true, supervisor.Unbounded())

	if err := s.persist(snapshotState, cfg.Scheduling); err != nil {
		s.logger.Warnf("scheduler: failed to persist startup state: %v", err)
	}
	return nil
}

// Stop deregisters the scheduler task. The supervisor itself is shut down
// by its owner, since it may host other tasks.
func (s *Scheduler) Stop() {
	s.supervisor.Remove(TaskName)
	s.mu.Lock()
	s.state.IsRunning = false
	final := s.state
	s.mu.Unlock()
	if err := s.stateStore.Save(final, nil); err != nil {
		s.logger.Warnf("scheduler: failed to persist state on stop: %v", err)
	}
}

// replayMissedFire is the Recovery.Callback invoked once per detected missed
// fire during startup recovery: a single orchestrator pass, no retry loop
// (the retry loop belongs to trigger_update's live-fire path, not replay).
func (s *Scheduler) replayMissedFire(ctx context.Context, fire recovery.MissedFire) error {
	cfg, err := s.snapshot()
	if err != nil {
		return err
	}
	runCtx, cancel := context.WithTimeout(ctx, triggerTimeout)
	defer cancel()
	_, err = s.orchestrator.Run(runCtx, cfg.Run, cfg.Target, "")
	return err
}

// body is the cooperative loop registered with the TaskSupervisor as the
// unbounded update_scheduler task.
func (s *Scheduler) body(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		now := s.clock.Now()
		s.mu.Lock()
		st := s.state
		s.mu.Unlock()

		if s.backoffActive(st, now) {
			if !s.supervisor.Sleep(ctx, TaskName, 5*time.Minute) {
				return nil
			}
			continue
		}

		cfg, err := s.snapshot()
		if err != nil {
			s.logger.Errorf("scheduler: resolve config: %v", err)
			if !s.supervisor.Sleep(ctx, TaskName, time.Minute) {
				return nil
			}
			continue
		}

		next := s.calculator.NextUpdate(cfg.Scheduling, st.LastUpdate, now)
		if !s.calculator.IsValidSchedule(next, now) {
			next = now.Add(fallbackWait)
		}
		s.mu.Lock()
		s.state.NextUpdate = &next
		s.mu.Unlock()

		if !s.supervisor.Sleep(ctx, TaskName, next.Sub(now)) {
			return nil
		}

		s.triggerUpdate(ctx, cfg)
	}
}

// backoffActive reports whether consecutive_failures >= 3 and now is still
// within 2^min(consecutive_failures,6) hours of the last failure.
func (s *Scheduler) backoffActive(st state.ScheduleState, now time.Time) bool {
	if st.ConsecutiveFailures < 3 || st.LastFailure == nil {
		return false
	}
	exp := st.ConsecutiveFailures
	if exp > backoffCeilHours {
		exp = backoffCeilHours
	}
	window := time.Duration(1<<uint(exp)) * time.Hour
	return now.Before(st.LastFailure.Add(window))
}

// triggerUpdate is the critical section: it advances last_update/next_update
// before invoking the orchestrator on every attempt, so any embed built
// during that call reads the post-fire timestamp rather than the one the
// fire replaced.
func (s *Scheduler) triggerUpdate(ctx context.Context, cfg RunConfig) {
	result, err := s.runTrigger(ctx, cfg)
	if err != nil {
		s.logger.Errorf("scheduler: trigger_update failed: %v", err)
		return
	}
	s.logger.Infof("scheduler: trigger_update posted %d file(s), %d render failure(s)", len(result.PostedFiles), len(result.RenderFailures))
}

// runTrigger is shared by the scheduled loop and the manual /update_graphs
// path (RunNow); the two are mutually exclusive via triggerMu so a manual
// trigger never races a scheduled fire.
func (s *Scheduler) runTrigger(ctx context.Context, cfg RunConfig) (orchestrate.Result, error) {
	s.triggerMu.Lock()
	defer s.triggerMu.Unlock()

	now := s.clock.Now()
	if !s.breaker.Allow(breakerKey, now) {
		s.logger.Warn("scheduler: update_blocked", "reason", "circuit breaker open")
		return orchestrate.Result{}, fmt.Errorf("scheduler: circuit breaker open for %s", breakerKey)
	}

	s.mu.Lock()
	s.metrics.TotalAttempts++
	scheduledTime := now
	if s.state.NextUpdate != nil {
		scheduledTime = *s.state.NextUpdate
	}
	s.mu.Unlock()

	var lastErr error
	var result orchestrate.Result
	for attempt := 1; attempt <= s.policy.MaxAttempts; attempt++ {
		if attempt > 1 {
			if !s.supervisor.Sleep(ctx, TaskName, s.policy.Delay(attempt-1)) {
				return orchestrate.Result{}, ctx.Err()
			}
		}

		// Advance state before invoking the callback: this is the fix for
		// the defect this component exists to prevent.
		s.mu.Lock()
		s.state.LastUpdate = &scheduledTime
		freshCfg, snapErr := s.snapshot()
		if snapErr == nil {
			next := s.calculator.NextUpdate(freshCfg.Scheduling, s.state.LastUpdate, s.clock.Now())
			s.state.NextUpdate = &next
		}
		s.mu.Unlock()

		runCtx, cancel := context.WithTimeout(ctx, triggerTimeout)
		result, lastErr = s.orchestrator.Run(runCtx, cfg.Run, cfg.Target, "")
		cancel()

		if lastErr == nil {
			s.recordSuccess(scheduledTime)
			return result, nil
		}

		class := errclass.Classify(lastErr)
		if class == errclass.Permanent || attempt == s.policy.MaxAttempts {
			break
		}
	}

	s.recordFailure(lastErr)
	return result, lastErr
}

// recordSuccess records a successful fire. scheduledTime anchors
// state.last_update: it was already stamped into s.state.LastUpdate before
// the callback ran, and must not be overwritten with the completion time,
// or interval-mode cadence drifts by the render/post duration every cycle.
func (s *Scheduler) recordSuccess(scheduledTime time.Time) {
	now := s.clock.Now()
	s.breaker.RecordSuccess(breakerKey, now)

	s.mu.Lock()
	s.state.RecordSuccess(scheduledTime)
	s.metrics.TotalSuccesses++
	final := s.state
	s.mu.Unlock()

	if err := s.persistCurrent(final); err != nil {
		s.logger.Warnf("scheduler: failed to persist state after success: %v", err)
	}
}

func (s *Scheduler) recordFailure(cause error) {
	now := s.clock.Now()
	s.breaker.RecordFailure(breakerKey, now)
	class := errclass.Classify(cause)

	msg := "unknown failure"
	if cause != nil {
		msg = cause.Error()
	}

	s.mu.Lock()
	s.state.RecordFailure(now, msg)
	s.metrics.TotalFailures++
	s.metrics.PerClass[class]++
	final := s.state
	s.mu.Unlock()

	if err := s.persistCurrent(final); err != nil {
		s.logger.Warnf("scheduler: failed to persist state after failure: %v", err)
	}
}

func (s *Scheduler) persistCurrent(st state.ScheduleState) error {
	cfg, err := s.snapshot()
	if err != nil {
		return s.stateStore.Save(st, nil)
	}
	return s.persist(st, cfg.Scheduling)
}

func (s *Scheduler) persist(st state.ScheduleState, cfg schedule.SchedulingConfig) error {
	return s.stateStore.Save(st, &state.ScheduleSnapshot{
		UpdateDays:      cfg.UpdateDays(),
		FixedUpdateTime: cfg.FixedUpdateTime(),
	})
}

// RunNow implements commands.GraphUpdateRunner: a manual, out-of-band
// trigger for /update_graphs that participates in the same mutual
// exclusion and state bookkeeping as a scheduled fire ("natural cadence
// continues" — a manual run folds last_update/next_update forward exactly
// as a scheduled run would, rather than opening a second code path).
func (s *Scheduler) RunNow(ctx context.Context) (orchestrate.Result, error) {
	cfg, err := s.snapshot()
	if err != nil {
		return orchestrate.Result{}, err
	}
	return s.runTrigger(ctx, cfg)
}

// NextUpdateReadable implements commands.GraphUpdateRunner, formatting the
// currently known next_update with the chat service's relative-timestamp
// token.
func (s *Scheduler) NextUpdateReadable() string {
	s.mu.Lock()
	next := s.state.NextUpdate
	s.mu.Unlock()
	if next == nil {
		return "not yet scheduled"
	}
	return s.clock.FormatForChat(*next, clock.StyleRelative)
}

// ForceRecovery re-runs recovery on demand, independent of the startup
// path.
func (s *Scheduler) ForceRecovery(ctx context.Context) error {
	cfg, err := s.snapshot()
	if err != nil {
		return err
	}

	s.mu.Lock()
	st := s.state
	s.mu.Unlock()

	resolved := s.recovery.PerformRecovery(ctx, cfg.Scheduling, st, s.clock.Now(), true, s.replayMissedFire)

	s.mu.Lock()
	s.state = resolved
	s.mu.Unlock()

	return s.persist(resolved, cfg.Scheduling)
}

// Status returns a defensive copy of the scheduler's current state, for the
// commands surface and any future status endpoint.
func (s *Scheduler) Status() state.ScheduleState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Clone()
}

// BreakerState reports trigger_update's own circuit breaker state,
// independent of the TaskSupervisor's breaker for the update_scheduler
// task itself.
func (s *Scheduler) BreakerState() breaker.State {
	return s.breaker.State(breakerKey)
}

// MetricsSnapshot returns a copy of the trigger_update operation's metrics.
func (s *Scheduler) MetricsSnapshot() Metrics {
	s.mu.Lock()
	defer s.mu.Unlock()
	classCopy := make(map[errclass.Class]int, len(s.metrics.PerClass))
	for k, v := range s.metrics.PerClass {
		classCopy[k] = v
	}
	return Metrics{
		TotalAttempts:  s.metrics.TotalAttempts,
		TotalSuccesses: s.metrics.TotalSuccesses,
		TotalFailures:  s.metrics.TotalFailures,
		PerClass:       classCopy,
	}
}
