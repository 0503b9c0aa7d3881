package recovery

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/engels74/tgraph-bot-go/internal/clock"
	"github.com/engels74/tgraph-bot-go/internal/log"
	"github.com/engels74/tgraph-bot-go/internal/schedule"
	"github.com/engels74/tgraph-bot-go/internal/state"
)

func newRecovery(t *testing.T) (*Recovery, schedule.SchedulingConfig) {
	t.Helper()
	clk := clock.New(time.UTC)
	cfg, err := schedule.NewSchedulingConfig(1, schedule.DisabledFixedTime)
	require.NoError(t, err)
	return New(clk, schedule.NewCalculator(clk), log.Nop()), cfg
}

func TestRecovery_DetectMissedFires_NoPriorRunIsNotMissed(t *testing.T) {
	r, cfg := newRecovery(t)
	now := time.Date(2025, 7, 16, 12, 0, 0, 0, time.UTC)

	fires := r.DetectMissedFires(cfg, state.ScheduleState{}, now)
	assert.Empty(t, fires)
}

func TestRecovery_DetectMissedFires_PastNextUpdate(t *testing.T) {
	r, cfg := newRecovery(t)
	last := time.Date(2025, 7, 14, 12, 0, 0, 0, time.UTC)
	next := time.Date(2025, 7, 15, 12, 0, 0, 0, time.UTC)
	now := time.Date(2025, 7, 16, 12, 0, 0, 0, time.UTC)

	st := state.ScheduleState{LastUpdate: &last, NextUpdate: &next}
	fires := r.DetectMissedFires(cfg, st, now)

	require.NotEmpty(t, fires)
	assert.Equal(t, ReasonMissedScheduled, fires[0].Reason)
}

func TestRecovery_DetectMissedFires_IntervalBackfill(t *testing.T) {
	r, cfg := newRecovery(t)
	last := time.Date(2025, 7, 10, 12, 0, 0, 0, time.UTC)
	now := time.Date(2025, 7, 16, 12, 0, 0, 0, time.UTC) // 6 days elapsed, update_days=1

	st := state.ScheduleState{LastUpdate: &last}
	fires := r.DetectMissedFires(cfg, st, now)

	var backfills int
	for _, f := range fires {
		if f.Reason == ReasonIntervalBackfill {
			backfills++
		}
	}
	assert.Equal(t, 5, backfills)
}

func TestRecovery_Repair_ClearsStaleFailuresAndRunningFlag(t *testing.T) {
	r, cfg := newRecovery(t)
	last := time.Date(2025, 7, 1, 12, 0, 0, 0, time.UTC)
	oldFailure := time.Date(2025, 7, 1, 12, 0, 0, 0, time.UTC)
	now := time.Date(2025, 7, 16, 12, 0, 0, 0, time.UTC)

	st := state.ScheduleState{
		LastUpdate:          &last,
		IsRunning:           true,
		ConsecutiveFailures: 6,
		LastFailure:         &oldFailure,
		LastErrorMessage:    "old failure",
	}

	r.Repair(cfg, &st, now, false)

	assert.NotNil(t, st.NextUpdate)
	assert.Equal(t, 0, st.ConsecutiveFailures)
	assert.Nil(t, st.LastFailure)
	assert.False(t, st.IsRunning)
}

func TestRecovery_PerformRecovery_ReplaysAndContinuesPastFailure(t *testing.T) {
	r, cfg := newRecovery(t)
	last := time.Date(2025, 7, 10, 12, 0, 0, 0, time.UTC)
	next := time.Date(2025, 7, 15, 12, 0, 0, 0, time.UTC)
	now := time.Date(2025, 7, 16, 12, 0, 0, 0, time.UTC)

	st := state.ScheduleState{LastUpdate: &last, NextUpdate: &next}

	var replayed int
	cb := func(ctx context.Context, fire MissedFire) error {
		replayed++
		if replayed == 1 {
			return errors.New("first replay fails")
		}
		return nil
	}

	final := r.PerformRecovery(context.Background(), cfg, st, now, false, cb)

	assert.Greater(t, replayed, 1)
	assert.NotNil(t, final.NextUpdate)
	assert.False(t, final.IsRunning)
}
