package commands

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatUptime_SingularAndPlural(t *testing.T) {
	assert.Equal(t, "1 second", FormatUptime(1*time.Second))
	assert.Equal(t, "2 seconds", FormatUptime(2*time.Second))
	assert.Equal(t, "1 minute, 1 second", FormatUptime(61*time.Second))
	assert.Equal(t, "1 day, 2 hours, 3 minutes, 4 seconds", FormatUptime(26*time.Hour+3*time.Minute+4*time.Second))
}

func TestFormatUptime_ZeroShowsZeroSeconds(t *testing.T) {
	assert.Equal(t, "0 seconds", FormatUptime(0))
}

func TestFormatUptime_OmitsZeroComponents(t *testing.T) {
	assert.Equal(t, "2 hours", FormatUptime(2*time.Hour))
}

func TestUptimeCommand_ReportsElapsedSinceConstruction(t *testing.T) {
	clk := &fixedClock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	cmd := NewUptimeCommand(clk)
	clk.now = clk.now.Add(90 * time.Second)

	in := &fakeInteraction{}
	err := cmd.Handle(context.Background(), in, Args{})
	require.NoError(t, err)
	assert.Equal(t, "Uptime: 1 minute, 30 seconds", in.last.Content)
	assert.True(t, in.last.Ephemeral)
}
