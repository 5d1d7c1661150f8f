package resilience

import (
	"context"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errRemoteDown = eris.New("connection refused")

func fail(ctx context.Context) error { return errRemoteDown }
func succeed(ctx context.Context) error { return nil }

func TestBreakerOpensAtThreshold(t *testing.T) {
	t.Parallel()

	cb := NewCircuitBreaker(CircuitBreakerConfig{FailureThreshold: 3, ResetTimeout: time.Minute})
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		require.ErrorIs(t, cb.Execute(ctx, fail), errRemoteDown)
		assert.Equal(t, CircuitClosed, cb.State())
	}
	require.ErrorIs(t, cb.Execute(ctx, fail), errRemoteDown)
	assert.Equal(t, CircuitOpen, cb.State())

	// Open circuit rejects without invoking fn.
	invoked := false
	err := cb.Execute(ctx, func(ctx context.Context) error {
		invoked = true
		return nil
	})
	require.ErrorIs(t, err, ErrCircuitOpen)
	assert.False(t, invoked)
}

func TestBreakerSuccessResetsCounter(t *testing.T) {
	t.Parallel()

	cb := NewCircuitBreaker(CircuitBreakerConfig{FailureThreshold: 2, ResetTimeout: time.Minute})
	ctx := context.Background()

	require.Error(t, cb.Execute(ctx, fail))
	require.NoError(t, cb.Execute(ctx, succeed))
	require.Error(t, cb.Execute(ctx, fail))
	assert.Equal(t, CircuitClosed, cb.State())
}

func TestBreakerHalfOpenProbe(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 10, 15, 14, 30, 0, 0, time.UTC)
	cb := NewCircuitBreaker(CircuitBreakerConfig{FailureThreshold: 1, ResetTimeout: 30 * time.Second})
	cb.nowFunc = func() time.Time { return now }
	ctx := context.Background()

	require.Error(t, cb.Execute(ctx, fail))
	assert.Equal(t, CircuitOpen, cb.State())

	// Still inside the reset window.
	require.ErrorIs(t, cb.Execute(ctx, succeed), ErrCircuitOpen)

	// After the window one probe is let through; success closes the circuit.
	now = now.Add(31 * time.Second)
	assert.Equal(t, CircuitHalfOpen, cb.State())
	require.NoError(t, cb.Execute(ctx, succeed))
	assert.Equal(t, CircuitClosed, cb.State())
}

func TestBreakerFailedProbeReopens(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 10, 15, 14, 30, 0, 0, time.UTC)
	cb := NewCircuitBreaker(CircuitBreakerConfig{FailureThreshold: 1, ResetTimeout: 30 * time.Second})
	cb.nowFunc = func() time.Time { return now }
	ctx := context.Background()

	require.Error(t, cb.Execute(ctx, fail))
	now = now.Add(31 * time.Second)
	require.ErrorIs(t, cb.Execute(ctx, fail), errRemoteDown)
	assert.Equal(t, CircuitOpen, cb.State())

	// The failed probe restarts the reset window.
	require.ErrorIs(t, cb.Execute(ctx, succeed), ErrCircuitOpen)
}

func TestBreakerShouldTripFilter(t *testing.T) {
	t.Parallel()

	cb := NewCircuitBreaker(CircuitBreakerConfig{
		FailureThreshold: 1,
		ResetTimeout:     time.Minute,
		ShouldTrip:       IsTransient,
	})
	ctx := context.Background()

	// A remote-side rejection is an error but must not open the circuit.
	rejection := eris.New("mapa: create punto: server returned success=false")
	require.Error(t, cb.Execute(ctx, func(ctx context.Context) error { return rejection }))
	assert.Equal(t, CircuitClosed, cb.State())

	require.Error(t, cb.Execute(ctx, fail))
	assert.Equal(t, CircuitOpen, cb.State())
}

func TestBreakerReset(t *testing.T) {
	t.Parallel()

	var transitions [][2]CircuitState
	cb := NewCircuitBreaker(CircuitBreakerConfig{
		FailureThreshold: 1,
		ResetTimeout:     time.Hour,
		OnStateChange: func(from, to CircuitState) {
			transitions = append(transitions, [2]CircuitState{from, to})
		},
	})
	ctx := context.Background()

	require.Error(t, cb.Execute(ctx, fail))
	assert.Equal(t, CircuitOpen, cb.State())

	cb.Reset()
	assert.Equal(t, CircuitClosed, cb.State())
	require.NoError(t, cb.Execute(ctx, succeed))

	require.Equal(t, [][2]CircuitState{
		{CircuitClosed, CircuitOpen},
		{CircuitOpen, CircuitClosed},
	}, transitions)
}

func TestIsTransient(t *testing.T) {
	t.Parallel()

	assert.False(t, IsTransient(nil))
	assert.True(t, IsTransient(eris.New("dial tcp: connection refused")))
	assert.True(t, IsTransient(eris.New("mapa: server unreachable")))
	assert.True(t, IsTransient(context.DeadlineExceeded))
	assert.False(t, IsTransient(eris.New("mapa: update punto 3: server returned success=false")))
}

func TestCircuitStateString(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "closed", CircuitClosed.String())
	assert.Equal(t, "open", CircuitOpen.String())
	assert.Equal(t, "half-open", CircuitHalfOpen.String())
}
