package ctxswitch

import (
	"testing"

	"github.com/nexa-sys/nexa-os-sub006/internal/proc"
	"github.com/nexa-sys/nexa-os-sub006/internal/sched"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newHarness(t *testing.T) (*proc.Table, *sched.RunQueueSet, *Switcher) {
	t.Helper()
	rs := sched.NewRunQueueSet(1)
	tbl := proc.NewTable(8, rs)
	return tbl, rs, New(tbl, rs)
}

func TestSwitchFromIdlePicksReadyEntry(t *testing.T) {
	tbl, _, sw := newHarness(t)
	r, err := tbl.Create(0, 0, 0, 4_000_000)
	require.NoError(t, err)

	next, err := sw.Switch(0, 0, proc.RegContext{}, -1, true)
	require.NoError(t, err)
	assert.Equal(t, r.Pid, next)
	assert.Equal(t, proc.Running, r.State())
}

func TestSwitchWithNoEligibleEntryGoesIdle(t *testing.T) {
	_, _, sw := newHarness(t)
	next, err := sw.Switch(0, 0, proc.RegContext{}, -1, true)
	require.NoError(t, err)
	assert.Equal(t, 0, next)
}

func TestSwitchPreemptsRunningBackToReady(t *testing.T) {
	tbl, rs, sw := newHarness(t)
	a, err := tbl.Create(0, 0, 0, 4_000_000)
	require.NoError(t, err)
	b, err := tbl.Create(0, 0, 0, 4_000_000)
	require.NoError(t, err)

	first, err := sw.Switch(0, 0, proc.RegContext{}, -1, true)
	require.NoError(t, err)
	require.Equal(t, a.Pid, first)

	ctx := proc.RegContext{RIP: 0x1000, RSP: 0x7fff, RFLAGS: 0x2}
	second, err := sw.Switch(0, first, ctx, -1, true)
	require.NoError(t, err)
	assert.Equal(t, b.Pid, second)

	assert.Equal(t, proc.Ready, a.State())
	assert.Equal(t, ctx, a.Context)
	assert.True(t, rs.Contains(a.Pid), "preempted entry must be back in the run queue")
}

func TestSwitchLeavesSleepingPreviousAlone(t *testing.T) {
	tbl, rs, sw := newHarness(t)
	a, err := tbl.Create(0, 0, 0, 4_000_000)
	require.NoError(t, err)
	b, err := tbl.Create(0, 0, 0, 4_000_000)
	require.NoError(t, err)

	first, err := sw.Switch(0, 0, proc.RegContext{}, -1, true)
	require.NoError(t, err)
	require.Equal(t, a.Pid, first)

	accepted, err := tbl.StateMachine().SetState(a, proc.Sleeping)
	require.NoError(t, err)
	require.True(t, accepted)

	second, err := sw.Switch(0, first, proc.RegContext{}, -1, true)
	require.NoError(t, err)
	assert.Equal(t, b.Pid, second)
	assert.Equal(t, proc.Sleeping, a.State(), "set_state only acts on a Running previous; a Sleeping one keeps its state")
	assert.False(t, rs.Contains(a.Pid))
}

func TestSwitchRenewsExhaustedSliceOnRepick(t *testing.T) {
	tbl, _, sw := newHarness(t)
	r, err := tbl.Create(0, 0, 0, 4_000_000)
	require.NoError(t, err)

	first, err := sw.Switch(0, 0, proc.RegContext{}, -1, true)
	require.NoError(t, err)
	require.Equal(t, r.Pid, first)

	r.Entry.SliceRemainingNs = 0
	accepted, err := tbl.StateMachine().SetState(r, proc.Ready)
	require.NoError(t, err)
	require.True(t, accepted)

	second, err := sw.Switch(0, first, proc.RegContext{}, -1, true)
	require.NoError(t, err)
	assert.Equal(t, r.Pid, second)
	assert.Equal(t, r.Entry.SliceNs, r.Entry.SliceRemainingNs, "an exhausted slice must be renewed on repick")
}

func TestSwitchUnknownPidInRunQueueIsInvariantViolation(t *testing.T) {
	rs := sched.NewRunQueueSet(1)
	tbl := proc.NewTable(8, rs)
	sw := New(tbl, rs)

	ghost := sched.NewEntry(999, 0, 4_000_000, 0)
	rs.Admit(ghost)

	_, err := sw.Switch(0, 0, proc.RegContext{}, -1, true)
	assert.Error(t, err)
}
