package orchestrate

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/engels74/tgraph-bot-go/internal/analytics"
	"github.com/engels74/tgraph-bot-go/internal/chat"
	"github.com/engels74/tgraph-bot-go/internal/errclass"
	"github.com/engels74/tgraph-bot-go/internal/graphs"
	"github.com/engels74/tgraph-bot-go/internal/log"
)

type fakeFetcher struct {
	plays   []analytics.Play
	monthly []analytics.MonthlyCount
	err     error
}

func (f *fakeFetcher) FetchPlayHistory(ctx context.Context, rng analytics.TimeRange) ([]analytics.Play, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.plays, nil
}

func (f *fakeFetcher) LookupUser(ctx context.Context, identifier string) (string, error) {
	return "user-" + identifier, nil
}

func (f *fakeFetcher) FetchMonthlyPlays(ctx context.Context, months int) ([]analytics.MonthlyCount, error) {
	return f.monthly, nil
}

type fakePoster struct {
	posted  []chat.UploadFile
	postErr error
	deleted bool
}

func (p *fakePoster) PostFiles(ctx context.Context, channelID string, files []chat.UploadFile) error {
	if p.postErr != nil {
		return p.postErr
	}
	p.posted = append(p.posted, files...)
	return nil
}

func (p *fakePoster) DeletePriorArtifacts(ctx context.Context, channelID string, lookback int) error {
	p.deleted = true
	return nil
}

func (p *fakePoster) SendDM(ctx context.Context, userID string, files []chat.UploadFile) error {
	return nil
}

func basicConfig(dir string) Config {
	return Config{
		TimeRange:   analytics.TimeRange{Days: 30},
		Enabled:     graphs.Enabled{graphs.DailyPlayCount: true},
		Colours:     graphs.ColorConfig{},
		Dimensions:  graphs.DefaultDimensions(),
		ArtifactDir: dir,
		KeepDays:    7,
	}
}

func TestOrchestrator_Run_HappyPath(t *testing.T) {
	dir := t.TempDir()
	fetcher := &fakeFetcher{plays: []analytics.Play{
		{Timestamp: time.Date(2025, 7, 16, 12, 0, 0, 0, time.UTC), User: "u1", MediaType: analytics.Movie},
	}}
	poster := &fakePoster{}
	o := New(fetcher, poster, log.Nop(), func() time.Time { return time.Date(2025, 7, 16, 12, 0, 0, 0, time.UTC) })

	result, err := o.Run(context.Background(), basicConfig(dir), Target{ChannelID: "c1", PostDeleteLookback: 50}, "")
	require.NoError(t, err)
	assert.Len(t, result.PostedFiles, 1)
	assert.True(t, poster.deleted)
	assert.Len(t, poster.posted, 1)
}

func TestOrchestrator_Run_FetchErrorPropagates(t *testing.T) {
	dir := t.TempDir()
	fetcher := &fakeFetcher{err: errors.New("503 service unavailable")}
	poster := &fakePoster{}
	o := New(fetcher, poster, log.Nop(), nil)

	_, err := o.Run(context.Background(), basicConfig(dir), Target{ChannelID: "c1"}, "")
	require.Error(t, err)
}

func TestOrchestrator_Run_ZeroValidFilesIsPermanent(t *testing.T) {
	dir := t.TempDir()
	fetcher := &fakeFetcher{}
	poster := &fakePoster{}
	cfg := basicConfig(dir)
	cfg.Enabled = graphs.Enabled{} // nothing enabled, nothing rendered

	o := New(fetcher, poster, log.Nop(), nil)
	_, err := o.Run(context.Background(), cfg, Target{ChannelID: "c1"}, "")

	require.Error(t, err)
	assert.Equal(t, errclass.Permanent, errclass.Classify(err))
}

func TestOrchestrator_Run_PostFailureIsTransientByDefault(t *testing.T) {
	dir := t.TempDir()
	fetcher := &fakeFetcher{plays: []analytics.Play{
		{Timestamp: time.Date(2025, 7, 16, 12, 0, 0, 0, time.UTC), User: "u1", MediaType: analytics.Movie},
	}}
	poster := &fakePoster{postErr: errors.New("connection reset")}
	o := New(fetcher, poster, log.Nop(), nil)

	_, err := o.Run(context.Background(), basicConfig(dir), Target{ChannelID: "c1"}, "")
	require.Error(t, err)
	assert.Equal(t, errclass.Transient, errclass.Classify(err))
}

func TestOrchestrator_Run_PostPermissionFailureIsPermanent(t *testing.T) {
	dir := t.TempDir()
	fetcher := &fakeFetcher{plays: []analytics.Play{
		{Timestamp: time.Date(2025, 7, 16, 12, 0, 0, 0, time.UTC), User: "u1", MediaType: analytics.Movie},
	}}
	poster := &fakePoster{postErr: &chat.PermissionError{Op: "post files", Err: errors.New("missing access")}}
	o := New(fetcher, poster, log.Nop(), nil)

	_, err := o.Run(context.Background(), basicConfig(dir), Target{ChannelID: "c1"}, "")
	require.Error(t, err)
	assert.Equal(t, errclass.Permanent, errclass.Classify(err))
}

func TestOrchestrator_Cleanup_RemovesOldArtifacts(t *testing.T) {
	dir := t.TempDir()
	old := filepath.Join(dir, "old.png")
	recent := filepath.Join(dir, "recent.png")
	require.NoError(t, os.WriteFile(old, []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(recent, []byte("x"), 0o644))
	oldTime := time.Now().Add(-30 * 24 * time.Hour)
	require.NoError(t, os.Chtimes(old, oldTime, oldTime))

	o := New(&fakeFetcher{}, &fakePoster{}, log.Nop(), func() time.Time { return time.Now() })
	cleaned, err := o.cleanup(dir, 7)
	require.NoError(t, err)
	assert.Equal(t, 1, cleaned)

	_, err = os.Stat(old)
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(recent)
	assert.NoError(t, err)
}

func TestOrchestrator_Validate_RejectsOversizeAndBadSuffix(t *testing.T) {
	dir := t.TempDir()
	ok := filepath.Join(dir, "ok.png")
	badSuffix := filepath.Join(dir, "bad.txt")
	require.NoError(t, os.WriteFile(ok, []byte("data"), 0o644))
	require.NoError(t, os.WriteFile(badSuffix, []byte("data"), 0o644))

	o := New(&fakeFetcher{}, &fakePoster{}, log.Nop(), nil)
	valid, rejected := o.validate([]string{ok, badSuffix, filepath.Join(dir, "missing.png")}, false)

	assert.Equal(t, []string{ok}, valid)
	assert.Len(t, rejected, 2)
}
