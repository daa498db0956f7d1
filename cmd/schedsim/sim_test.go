package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestSpawnWorkloadHonorsNiceSpread(t *testing.T) {
	flagCPUs = 2
	flagProcs = 20
	flagSliceNs = 4_000_000
	flagWaitListCapacity = 8
	k := buildKernel(zap.NewNop())

	procs, err := spawnWorkload(k, 20, 5)
	require.NoError(t, err)
	require.Len(t, procs, 20)
	for _, r := range procs {
		assert.GreaterOrEqual(t, r.Entry.Nice, int8(-5))
		assert.LessOrEqual(t, r.Entry.Nice, int8(5))
	}
}

func TestSpawnWorkloadZeroSpreadGivesNiceZero(t *testing.T) {
	k := buildKernel(zap.NewNop())
	procs, err := spawnWorkload(k, 5, 0)
	require.NoError(t, err)
	for _, r := range procs {
		assert.Equal(t, int8(0), r.Entry.Nice)
	}
}

func TestDriveCPUPicksUpIdleCPU(t *testing.T) {
	flagCPUs = 1
	k := buildKernel(zap.NewNop())
	procs, err := spawnWorkload(k, 1, 0)
	require.NoError(t, err)

	pid, err := driveCPU(k, 0)
	require.NoError(t, err)
	assert.Equal(t, procs[0].Pid, pid)
}

func TestDriveCPUNoOpWhenAlreadyRunning(t *testing.T) {
	flagCPUs = 1
	k := buildKernel(zap.NewNop())
	procs, err := spawnWorkload(k, 2, 0)
	require.NoError(t, err)

	first, err := driveCPU(k, 0)
	require.NoError(t, err)
	second, err := driveCPU(k, 0)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, procs[0].Pid, first)
}
