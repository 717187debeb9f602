package ratelimit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

var epoch = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func TestTryConsumeWithinWindow(t *testing.T) {
	l := New(3, 10*time.Second, epoch)

	for i := 0; i < 3; i++ {
		require.True(t, l.TryConsume(epoch.Add(time.Duration(i)*time.Second)), "call %d", i+1)
	}
	require.False(t, l.TryConsume(epoch.Add(5*time.Second)), "fourth call must be denied")
	require.Equal(t, 3, l.State().Count, "denied call must not mutate the count")
}

func TestTryConsumeAfterWindowElapses(t *testing.T) {
	l := New(3, 10*time.Second, epoch)
	for i := 0; i < 3; i++ {
		require.True(t, l.TryConsume(epoch))
	}
	require.False(t, l.TryConsume(epoch))

	later := epoch.Add(11 * time.Second)
	require.True(t, l.TryConsume(later))
	require.Equal(t, State{Count: 1, WindowStart: later}, l.State())
	require.Equal(t, 2, l.Remaining(later))
}

func TestWindowBoundaryIsExclusive(t *testing.T) {
	l := New(1, 10*time.Second, epoch)
	require.True(t, l.TryConsume(epoch))
	// exactly one window later has not exceeded the window yet
	require.False(t, l.TryConsume(epoch.Add(10*time.Second)))
	require.True(t, l.TryConsume(epoch.Add(10*time.Second+time.Millisecond)))
}

func TestAtMostLimitPerWindow(t *testing.T) {
	for _, limit := range []int{1, 3, 30} {
		l := New(limit, time.Minute, epoch)
		allowed := 0
		for i := 0; i < limit*3; i++ {
			if l.TryConsume(epoch.Add(time.Duration(i) * time.Millisecond)) {
				allowed++
			}
		}
		require.Equal(t, limit, allowed, "limit %d", limit)
	}
}

func TestResetAndRestore(t *testing.T) {
	l := New(2, time.Hour, epoch)
	require.True(t, l.TryConsume(epoch))
	require.True(t, l.TryConsume(epoch))
	require.False(t, l.TryConsume(epoch))

	l.Reset(epoch.Add(time.Second))
	require.Equal(t, 2, l.Remaining(epoch.Add(time.Second)))
	require.True(t, l.TryConsume(epoch.Add(time.Second)))

	l.Restore(State{Count: -4, WindowStart: epoch})
	require.Equal(t, 0, l.State().Count)
}

func TestDefaults(t *testing.T) {
	l := New(0, 0, epoch)
	require.Equal(t, DefaultLimit, l.Limit())
	require.Equal(t, DefaultWindow, l.Window())
}
