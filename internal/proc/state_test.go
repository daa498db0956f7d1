package proc

import (
	"testing"

	"github.com/nexa-sys/nexa-os-sub006/internal/sched"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newHarness() (*sched.RunQueueSet, *StateMachine) {
	rs := sched.NewRunQueueSet(1)
	sm := NewStateMachine(rs)
	return rs, sm
}

// TestClassicSleepWakeRaceMustNotSleep is spec.md §8 scenario 1: a
// process is registered as a waiter, then woken, before it manages to
// actually transition to Sleeping. The transition must be refused.
func TestClassicSleepWakeRaceMustNotSleep(t *testing.T) {
	_, sm := newHarness()
	r := New(100, 1, 100, 0, 1_000_000, 0)
	accepted, err := sm.SetState(r, Running)
	require.NoError(t, err)
	require.True(t, accepted)

	// add_waiter(P) is modeled by the waitq package in production; here
	// we model only its effect on the state machine: an ISR observes P
	// still schedulable and calls wake before P reaches set_state(Sleeping).
	woke := sm.Wake(r, WakeData)
	assert.False(t, woke, "P is Running, not Sleeping, so wake only sets wake_pending")

	accepted, err = sm.SetState(r, Sleeping)
	require.NoError(t, err)
	assert.False(t, accepted, "the Sleeping transition must be refused")
	assert.NotEqual(t, Sleeping, r.State())
	assert.False(t, r.WakePending(), "wake_pending must be consumed by the refused transition")
}

// TestZombieImmutability is spec.md §8 scenario 2.
func TestZombieImmutability(t *testing.T) {
	_, sm := newHarness()
	r := New(1, 0, 1, 0, 1_000_000, 0)
	sm.SetState(r, Running)

	require.NoError(t, sm.Exit(r, 42, 0, false))
	assert.Equal(t, Zombie, r.State())

	woke := sm.Wake(r, WakeData)
	assert.False(t, woke)
	assert.Equal(t, Zombie, r.State())
	ec, _, _ := r.ExitStatus()
	assert.Equal(t, 42, ec)
}

func TestZombieIsAbsorbingForSetState(t *testing.T) {
	_, sm := newHarness()
	r := New(1, 0, 1, 0, 1_000_000, 0)
	require.NoError(t, sm.Exit(r, 0, 0, false))

	_, err := sm.SetState(r, Ready)
	require.Error(t, err)
}

func TestExitRequiresCommittedStatusBeforeZombie(t *testing.T) {
	_, sm := newHarness()
	r := New(1, 0, 1, 0, 1_000_000, 0)
	_, err := sm.SetState(r, Zombie)
	require.Error(t, err, "Zombie without a prior committed exit status is an invariant violation")
}

// TestRapidDoubleWakeRebasesVruntime is spec.md §8 scenario 4. P slept
// long enough that the rest of the queue's vruntime moved well past P's
// stale value; without rebasing P would look unfairly deserving (a tiny
// vdeadline) forever, so wake must raise it back up near the current
// queue minimum rather than leaving it at its stale absolute value.
func TestRapidDoubleWakeRebasesVruntime(t *testing.T) {
	rs, sm := newHarness()

	other := New(2, 0, 2, 0, 1_000_000, 0)
	sm.SetState(other, Running)
	other.Entry.Vruntime = 5_000_000_000
	sm.SetState(other, Ready) // admits `other` with vruntime 5e9 into the queue

	r := New(1, 0, 1, 0, 1_000_000, 0)
	sm.SetState(r, Running)
	accepted, _ := sm.SetState(r, Sleeping)
	require.True(t, accepted)
	r.Entry.Vruntime = 1_000_000_000
	r.Entry.Lag = -50_000_000

	sm.Wake(r, WakeData)
	sm.Wake(r, WakeData)

	assert.Equal(t, Ready, r.State())
	assert.Greater(t, r.Entry.Vruntime, uint64(1_000_000_000), "stale vruntime must be rebased up near the current queue minimum")
	assert.GreaterOrEqual(t, r.Entry.Lag, int64(0))
	assert.True(t, rs.Contains(r.Pid))
}

// TestWakeIdempotenceOnReady is spec.md §8's idempotence property: two
// wake calls on a Ready process leave it Ready with wake_pending true.
func TestWakeIdempotenceOnReady(t *testing.T) {
	_, sm := newHarness()
	r := New(1, 0, 1, 0, 1_000_000, 0)

	sm.Wake(r, WakeData)
	sm.Wake(r, WakeData)

	assert.Equal(t, Ready, r.State())
	assert.True(t, r.WakePending())
}

func TestWakeOnUnknownStateNeverPanics(t *testing.T) {
	_, sm := newHarness()
	r := New(1, 0, 1, 0, 1_000_000, 0)
	assert.NotPanics(t, func() {
		sm.Wake(r, WakeTimeout)
	})
}

func TestRunningToReadyAlwaysPermittedAndAdmits(t *testing.T) {
	rs, sm := newHarness()
	r := New(1, 0, 1, 0, 1_000_000, 0)
	sm.SetState(r, Running)
	accepted, err := sm.SetState(r, Ready)
	require.NoError(t, err)
	assert.True(t, accepted)
	assert.True(t, rs.Contains(r.Pid))
}
