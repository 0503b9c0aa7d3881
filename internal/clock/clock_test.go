package clock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSystem_EnsureZoneAware(t *testing.T) {
	loc, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)
	c := New(loc)

	t.Run("naive time gets the system zone", func(t *testing.T) {
		naive := time.Date(2025, 7, 16, 12, 0, 0, 0, time.UTC)
		got := c.EnsureZoneAware(naive)
		assert.Equal(t, loc, got.Location())
	})

	t.Run("already zoned time is returned unchanged", func(t *testing.T) {
		zoned := time.Date(2025, 7, 16, 12, 0, 0, 0, time.FixedZone("X", 3600))
		got := c.EnsureZoneAware(zoned)
		assert.Equal(t, zoned, got)
	})
}

func TestSystem_FormatForChat(t *testing.T) {
	c := New(time.UTC)
	ts := time.Date(2025, 7, 16, 21, 28, 0, 0, time.UTC)

	got := c.FormatForChat(ts, StyleRelative)
	assert.Equal(t, "<t:1752701280:R>", got)
}

func TestNew_DefaultsToLocal(t *testing.T) {
	c := New(nil)
	assert.Equal(t, time.Local, c.SystemZone())
}
