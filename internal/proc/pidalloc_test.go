package proc

import (
	"testing"

	"github.com/nexa-sys/nexa-os-sub006/internal/kernelerr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAllocatePidNeverReturnsZero(t *testing.T) {
	a := NewPidAllocator()
	for i := 0; i < 100; i++ {
		pid, err := a.Allocate()
		require.NoError(t, err)
		assert.NotZero(t, pid)
	}
}

func TestFreeRejectsPidZero(t *testing.T) {
	a := NewPidAllocator()
	err := a.Free(0)
	require.Error(t, err)
	assert.Equal(t, kernelerr.ErrPidZero, err)
}

func TestFreeRejectsDoubleFree(t *testing.T) {
	a := NewPidAllocator()
	pid, err := a.Allocate()
	require.NoError(t, err)
	require.NoError(t, a.Free(pid))

	err = a.Free(pid)
	require.Error(t, err)
	assert.Equal(t, kernelerr.ErrDoubleFreePid, err)
}

func TestFreeRejectsUnallocatedPid(t *testing.T) {
	a := NewPidAllocator()
	err := a.Free(MinPid + 50)
	require.Error(t, err)
	assert.Equal(t, kernelerr.ErrDoubleFreePid, err)
}

func TestAllocateReusesFreedPidAfterRewind(t *testing.T) {
	a := NewPidAllocator()
	pa, err := a.Allocate()
	require.NoError(t, err)
	pb, err := a.Allocate()
	require.NoError(t, err)
	require.NoError(t, a.Free(pa))

	pc, err := a.Allocate()
	require.NoError(t, err)
	assert.Equal(t, pa, pc, "freeing the lower pid should rewind the hint so it is reused next")
	_ = pb
}

func TestAllocateWrapsAroundWhenExhaustedNearTop(t *testing.T) {
	a := NewPidAllocator()
	a.hint = MaxPid - 1
	first, err := a.Allocate()
	require.NoError(t, err)
	second, err := a.Allocate()
	require.NoError(t, err)
	third, err := a.Allocate()
	require.NoError(t, err)

	assert.ElementsMatch(t, []int{MaxPid - 1, MaxPid, MinPid}, []int{first, second, third})
}
