package scheduler

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/engels74/tgraph-bot-go/internal/analytics"
	"github.com/engels74/tgraph-bot-go/internal/chat"
	"github.com/engels74/tgraph-bot-go/internal/clock"
	"github.com/engels74/tgraph-bot-go/internal/errclass"
	"github.com/engels74/tgraph-bot-go/internal/graphs"
	"github.com/engels74/tgraph-bot-go/internal/log"
	"github.com/engels74/tgraph-bot-go/internal/orchestrate"
	"github.com/engels74/tgraph-bot-go/internal/recovery"
	"github.com/engels74/tgraph-bot-go/internal/retry"
	"github.com/engels74/tgraph-bot-go/internal/schedule"
	"github.com/engels74/tgraph-bot-go/internal/state"
	"github.com/engels74/tgraph-bot-go/internal/supervisor"
)

type fakeFetcher struct {
	err error
}

func (f *fakeFetcher) FetchPlayHistory(ctx context.Context, rng analytics.TimeRange) ([]analytics.Play, error) {
	if f.err != nil {
		return nil, f.err
	}
	return []analytics.Play{{Timestamp: time.Date(2025, 7, 16, 12, 0, 0, 0, time.UTC), User: "u1", MediaType: analytics.Movie}}, nil
}

func (f *fakeFetcher) LookupUser(ctx context.Context, identifier string) (string, error) {
	return "u-" + identifier, nil
}

func (f *fakeFetcher) FetchMonthlyPlays(ctx context.Context, months int) ([]analytics.MonthlyCount, error) {
	return nil, nil
}

type fakePoster struct {
	postErr error
}

func (p *fakePoster) PostFiles(ctx context.Context, channelID string, files []chat.UploadFile) error {
	return p.postErr
}

func (p *fakePoster) DeletePriorArtifacts(ctx context.Context, channelID string, lookback int) error {
	return nil
}

func (p *fakePoster) SendDM(ctx context.Context, userID string, files []chat.UploadFile) error {
	return nil
}

// flakyFetcher fails the first N calls, then succeeds, to exercise the
// retry loop inside runTrigger.
type flakyFetcher struct {
	failures int
	calls    int
}

func (f *flakyFetcher) FetchPlayHistory(ctx context.Context, rng analytics.TimeRange) ([]analytics.Play, error) {
	f.calls++
	if f.calls <= f.failures {
		return nil, errors.New("connection reset by peer")
	}
	return []analytics.Play{{Timestamp: time.Date(2025, 7, 16, 12, 0, 0, 0, time.UTC), User: "u1", MediaType: analytics.Movie}}, nil
}

func (f *flakyFetcher) LookupUser(ctx context.Context, identifier string) (string, error) { return "", nil }

func (f *flakyFetcher) FetchMonthlyPlays(ctx context.Context, months int) ([]analytics.MonthlyCount, error) {
	return nil, nil
}

func runCfg(dir string) orchestrate.Config {
	return orchestrate.Config{
		TimeRange:   analytics.TimeRange{Days: 30},
		Enabled:     graphs.Enabled{graphs.DailyPlayCount: true},
		Colours:     graphs.ColorConfig{},
		Dimensions:  graphs.DefaultDimensions(),
		ArtifactDir: dir,
		KeepDays:    7,
	}
}

func newTestScheduler(t *testing.T, fetcher analytics.Fetcher, poster chat.Poster, maxAttempts int) *Scheduler {
	t.Helper()
	clk := clock.New(time.UTC)
	calc := schedule.NewCalculator(clk)
	logger := log.Nop()

	schedulingCfg, err := schedule.NewSchedulingConfig(1, schedule.DisabledFixedTime)
	require.NoError(t, err)

	policy, err := retry.New(maxAttempts, time.Millisecond, 5*time.Millisecond, 2.0, false, 100, 1, time.Second)
	require.NoError(t, err)

	rec := recovery.New(clk, calc, logger)
	stateStore := state.NewStore(filepath.Join(t.TempDir(), "state.json"), clk, logger)
	sup := supervisor.New(clk, logger, policy)

	orch := orchestrate.New(fetcher, poster, logger, func() time.Time { return clk.Now() })

	dir := t.TempDir()
	snapshot := func() (RunConfig, error) {
		return RunConfig{
			Scheduling: schedulingCfg,
			Run:        runCfg(dir),
			Target:     orchestrate.Target{ChannelID: "chan-1"},
		}, nil
	}

	return New(clk, calc, rec, stateStore, sup, orch, policy, logger, snapshot, true)
}

func TestScheduler_BackoffActive(t *testing.T) {
	s := newTestScheduler(t, &fakeFetcher{}, &fakePoster{}, 3)
	now := time.Date(2025, 7, 16, 12, 0, 0, 0, time.UTC)

	assert.False(t, s.backoffActive(state.ScheduleState{ConsecutiveFailures: 2}, now))

	recentFailure := now.Add(-30 * time.Minute)
	assert.True(t, s.backoffActive(state.ScheduleState{ConsecutiveFailures: 3, LastFailure: &recentFailure}, now))

	oldFailure := now.Add(-9 * time.Hour)
	assert.False(t, s.backoffActive(state.ScheduleState{ConsecutiveFailures: 3, LastFailure: &oldFailure}, now))
}

func TestScheduler_RunTrigger_SuccessAdvancesState(t *testing.T) {
	s := newTestScheduler(t, &fakeFetcher{}, &fakePoster{}, 3)

	result, err := s.RunNow(context.Background())
	require.NoError(t, err)
	assert.NotEmpty(t, result.PostedFiles)

	st := s.Status()
	require.NotNil(t, st.LastUpdate)
	require.NotNil(t, st.NextUpdate)
	assert.True(t, st.NextUpdate.After(*st.LastUpdate))
	assert.Equal(t, 0, st.ConsecutiveFailures)

	metrics := s.MetricsSnapshot()
	assert.Equal(t, 1, metrics.TotalAttempts)
	assert.Equal(t, 1, metrics.TotalSuccesses)
}

func TestScheduler_RunTrigger_TransientRetriesThenSucceeds(t *testing.T) {
	fetcher := &flakyFetcher{failures: 1}
	s := newTestScheduler(t, fetcher, &fakePoster{}, 3)

	result, err := s.RunNow(context.Background())
	require.NoError(t, err)
	assert.NotEmpty(t, result.PostedFiles)
	assert.Equal(t, 2, fetcher.calls)
}

func TestScheduler_RunTrigger_ExhaustsAttemptsOnPersistentTransientFailure(t *testing.T) {
	fetcher := &flakyFetcher{failures: 10}
	s := newTestScheduler(t, fetcher, &fakePoster{}, 3)

	_, err := s.RunNow(context.Background())
	require.Error(t, err)
	assert.Equal(t, 3, fetcher.calls)

	st := s.Status()
	assert.Equal(t, 1, st.ConsecutiveFailures)
	require.NotNil(t, st.LastFailure)

	metrics := s.MetricsSnapshot()
	assert.Equal(t, 1, metrics.TotalFailures)
	assert.Equal(t, 1, metrics.PerClass[errclass.Transient])
}

func TestScheduler_RunTrigger_PermanentFailureStopsAfterOneAttempt(t *testing.T) {
	fetcher := &flakyFetcher{failures: 0}
	poster := &fakePoster{postErr: &chat.PermissionError{Op: "post files", Err: errors.New("missing access")}}
	s := newTestScheduler(t, fetcher, poster, 5)

	_, err := s.RunNow(context.Background())
	require.Error(t, err)
	assert.Equal(t, 1, fetcher.calls)

	var permErr *orchestrate.PermanentError
	assert.ErrorAs(t, err, &permErr)
}

func TestScheduler_NextUpdateReadable_FallsBackWhenUnset(t *testing.T) {
	s := newTestScheduler(t, &fakeFetcher{}, &fakePoster{}, 3)
	assert.Equal(t, "not yet scheduled", s.NextUpdateReadable())
}

func TestScheduler_NextUpdateReadable_FormatsRelativeTimestamp(t *testing.T) {
	s := newTestScheduler(t, &fakeFetcher{}, &fakePoster{}, 3)
	_, err := s.RunNow(context.Background())
	require.NoError(t, err)
	assert.Contains(t, s.NextUpdateReadable(), "<t:")
}

func TestScheduler_Start_InstallsFreshStateWhenNoPriorRun(t *testing.T) {
	s := newTestScheduler(t, &fakeFetcher{}, &fakePoster{}, 3)
	require.NoError(t, s.Start(context.Background()))
	t.Cleanup(s.Stop)

	st := s.Status()
	assert.True(t, st.IsRunning)
	require.NotNil(t, st.NextUpdate)
	assert.Nil(t, st.LastUpdate)
}

func TestScheduler_ForceRecovery_PersistsRepairedState(t *testing.T) {
	s := newTestScheduler(t, &fakeFetcher{}, &fakePoster{}, 3)

	past := time.Now().Add(-48 * time.Hour)
	s.mu.Lock()
	s.state = state.ScheduleState{LastUpdate: &past}
	s.mu.Unlock()

	require.NoError(t, s.ForceRecovery(context.Background()))

	st := s.Status()
	require.NotNil(t, st.NextUpdate)
	assert.True(t, st.NextUpdate.After(time.Now()))
}
