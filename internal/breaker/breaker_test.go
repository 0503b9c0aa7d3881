package breaker

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManager_TripsOpenAfterThreshold(t *testing.T) {
	var transitions [][2]State
	m := NewManager(Policy{FailureThreshold: 3, SuccessThreshold: 2, RecoveryTimeout: time.Minute},
		func(_ string, from, to State) { transitions = append(transitions, [2]State{from, to}) })

	now := time.Unix(0, 0)
	require.True(t, m.Allow("t", now))
	m.RecordFailure("t", now)
	m.RecordFailure("t", now)
	assert.Equal(t, Closed, m.State("t"))
	m.RecordFailure("t", now)
	assert.Equal(t, Open, m.State("t"))
	require.False(t, m.Allow("t", now))

	require.Len(t, transitions, 1)
	assert.Equal(t, Closed, transitions[0][0])
	assert.Equal(t, Open, transitions[0][1])
}

func TestManager_HalfOpenAdmitsExactlyOneProbe(t *testing.T) {
	m := NewManager(Policy{FailureThreshold: 1, SuccessThreshold: 1, RecoveryTimeout: time.Minute}, nil)

	start := time.Unix(0, 0)
	m.RecordFailure("t", start)
	require.Equal(t, Open, m.State("t"))

	afterTimeout := start.Add(time.Minute)
	require.False(t, m.Allow("t", start.Add(30*time.Second)))
	require.True(t, m.Allow("t", afterTimeout))
	assert.Equal(t, HalfOpen, m.State("t"))

	// A second caller arriving while the probe is still in flight is denied.
	require.False(t, m.Allow("t", afterTimeout.Add(time.Second)))
}

func TestManager_HalfOpenClosesAfterSuccessThreshold(t *testing.T) {
	m := NewManager(Policy{FailureThreshold: 1, SuccessThreshold: 2, RecoveryTimeout: time.Minute}, nil)

	start := time.Unix(0, 0)
	m.RecordFailure("t", start)
	afterTimeout := start.Add(time.Minute)
	require.True(t, m.Allow("t", afterTimeout))

	m.RecordSuccess("t", afterTimeout)
	assert.Equal(t, HalfOpen, m.State("t"))

	m.RecordSuccess("t", afterTimeout)
	assert.Equal(t, Closed, m.State("t"))
}

func TestManager_HalfOpenAdmitsNextProbeAfterNonClosingSuccess(t *testing.T) {
	m := NewManager(Policy{FailureThreshold: 1, SuccessThreshold: 2, RecoveryTimeout: time.Minute}, nil)

	start := time.Unix(0, 0)
	m.RecordFailure("t", start)
	afterTimeout := start.Add(time.Minute)

	require.True(t, m.Allow("t", afterTimeout))
	m.RecordSuccess("t", afterTimeout)
	assert.Equal(t, HalfOpen, m.State("t"))

	// A single success below SuccessThreshold must not leave the breaker
	// permanently refusing further probes.
	require.True(t, m.Allow("t", afterTimeout.Add(time.Second)))
	m.RecordSuccess("t", afterTimeout.Add(time.Second))
	assert.Equal(t, Closed, m.State("t"))
}

func TestManager_HalfOpenFailureReopens(t *testing.T) {
	m := NewManager(Policy{FailureThreshold: 1, SuccessThreshold: 1, RecoveryTimeout: time.Minute}, nil)

	start := time.Unix(0, 0)
	m.RecordFailure("t", start)
	afterTimeout := start.Add(time.Minute)
	require.True(t, m.Allow("t", afterTimeout))

	m.RecordFailure("t", afterTimeout)
	assert.Equal(t, Open, m.State("t"))
}

func TestManager_TasksAreIndependent(t *testing.T) {
	m := NewManager(Policy{FailureThreshold: 1, SuccessThreshold: 1, RecoveryTimeout: time.Minute}, nil)
	now := time.Unix(0, 0)

	m.RecordFailure("a", now)
	assert.Equal(t, Open, m.State("a"))
	assert.Equal(t, Closed, m.State("b"))
}
