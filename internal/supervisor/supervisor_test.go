package supervisor

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/engels74/tgraph-bot-go/internal/clock"
	"github.com/engels74/tgraph-bot-go/internal/log"
	"github.com/engels74/tgraph-bot-go/internal/retry"
)

func newTestSupervisor(t *testing.T) *Supervisor {
	t.Helper()
	policy, err := retry.New(5, 5*time.Millisecond, 20*time.Millisecond, 2.0, false, 3, 1, 50*time.Millisecond)
	require.NoError(t, err)
	s := New(clock.New(time.UTC), log.Nop(), policy)
	s.Start()
	t.Cleanup(s.Stop)
	return s
}

func waitForStatus(t *testing.T, s *Supervisor, name string, want Status, timeout time.Duration) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if got, _, ok := s.Status(name); ok && got == want {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("task %q never reached status %s", name, want)
}

func TestSupervisor_SuccessfulTaskGoesIdle(t *testing.T) {
	s := newTestSupervisor(t)
	s.Add("ok", func(ctx context.Context) error { return nil }, false)
	waitForStatus(t, s, "ok", Idle, time.Second)
}

func TestSupervisor_NonRestartingTaskFailsTerminal(t *testing.T) {
	s := newTestSupervisor(t)
	s.Add("fails-once", func(ctx context.Context) error { return errors.New("boom") }, false)
	waitForStatus(t, s, "fails-once", Failed, time.Second)

	_, metrics, ok := s.Status("fails-once")
	require.True(t, ok)
	assert.Equal(t, 1, metrics.TotalFailures)
}

func TestSupervisor_RestartingTaskRetriesThenSucceeds(t *testing.T) {
	s := newTestSupervisor(t)
	attempts := 0
	succeeded := make(chan struct{})
	s.Add("flaky", func(ctx context.Context) error {
		attempts++
		if attempts < 3 {
			return errors.New("transient failure")
		}
		close(succeeded)
		return nil
	}, true)

	select {
	case <-succeeded:
	case <-time.After(2 * time.Second):
		t.Fatal("task never succeeded")
	}
	waitForStatus(t, s, "flaky", Idle, 2*time.Second)
	assert.GreaterOrEqual(t, attempts, 3)
}

func TestSupervisor_RemoveCancelsTask(t *testing.T) {
	s := newTestSupervisor(t)
	started := make(chan struct{})
	s.Add("long", func(ctx context.Context) error {
		close(started)
		<-ctx.Done()
		return ctx.Err()
	}, false, Unbounded())

	<-started
	s.Remove("long")
	_, _, ok := s.Status("long")
	assert.False(t, ok)
}

func TestSupervisor_HealthSummaryOmitsFreshTasks(t *testing.T) {
	s := newTestSupervisor(t)
	blocked := make(chan struct{})
	s.Add("stuck", func(ctx context.Context) error {
		<-blocked
		return nil
	}, false, Unbounded())
	t.Cleanup(func() { close(blocked) })

	assert.Empty(t, s.HealthSummary())
}
