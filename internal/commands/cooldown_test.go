package commands

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/engels74/tgraph-bot-go/internal/clock"
)

type fixedClock struct{ now time.Time }

func (f *fixedClock) Now() time.Time                    { return f.now }
func (f *fixedClock) SystemZone() *time.Location         { return time.UTC }
func (f *fixedClock) EnsureZoneAware(t time.Time) time.Time { return t }
func (f *fixedClock) ToSystemZone(t time.Time) time.Time { return t }
func (f *fixedClock) FormatForChat(t time.Time, style clock.Style) string {
	return "<relative>"
}

func TestCooldownTracker_AllowsWhenBothDisabled(t *testing.T) {
	clk := &fixedClock{now: time.Now()}
	tr := NewCooldownTracker(clk)
	ok, _ := tr.Check("u1", 0, 0)
	assert.True(t, ok)
}

func TestCooldownTracker_BlocksDuringUserWindow(t *testing.T) {
	clk := &fixedClock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	tr := NewCooldownTracker(clk)
	tr.Record("u1", 5, 0)

	ok, retry := tr.Check("u1", 5, 0)
	assert.False(t, ok)
	assert.InDelta(t, (5 * time.Minute).Seconds(), retry.Seconds(), 1)

	// A different user is unaffected.
	ok2, _ := tr.Check("u2", 5, 0)
	assert.True(t, ok2)
}

func TestCooldownTracker_BlocksDuringGlobalWindow(t *testing.T) {
	clk := &fixedClock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	tr := NewCooldownTracker(clk)
	tr.Record("u1", 0, 30)

	ok, _ := tr.Check("u2", 0, 30)
	assert.False(t, ok)
}

func TestCooldownTracker_ExpiresAfterWindow(t *testing.T) {
	clk := &fixedClock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	tr := NewCooldownTracker(clk)
	tr.Record("u1", 1, 0)

	clk.now = clk.now.Add(2 * time.Minute)
	ok, _ := tr.Check("u1", 1, 0)
	assert.True(t, ok)
}

func TestCooldownTracker_FormatRetry(t *testing.T) {
	clk := &fixedClock{now: time.Now()}
	tr := NewCooldownTracker(clk)
	require.Equal(t, "<relative>", tr.FormatRetry(time.Minute))
}

func TestCooldownTracker_SweepRemovesExpiredEntries(t *testing.T) {
	clk := &fixedClock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	tr := NewCooldownTracker(clk)
	tr.Record("u1", 1, 0)
	clk.now = clk.now.Add(2 * time.Minute)

	tr.sweep()
	tr.mu.Lock()
	_, stillTracked := tr.users["u1"]
	tr.mu.Unlock()
	assert.False(t, stillTracked)
}
