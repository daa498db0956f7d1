package sched

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTickChargesVruntimeAndSlice(t *testing.T) {
	e := NewEntry(1, 0, 10_000_000, 0)
	resched := Tick(e, 1_000_000, 0, false)
	assert.False(t, resched)
	assert.Equal(t, uint64(1_000_000), e.Vruntime)
	assert.Equal(t, uint64(9_000_000), e.SliceRemainingNs)
}

func TestTickSetsNeedReschedWhenSliceExhausted(t *testing.T) {
	e := NewEntry(1, 0, 1_000_000, 0)
	resched := Tick(e, 1_000_000, 0, false)
	require.True(t, resched)
	assert.Equal(t, uint64(0), e.SliceRemainingNs)
}

func TestTickSliceSaturatesAtZero(t *testing.T) {
	e := NewEntry(1, 0, 1_000_000, 0)
	Tick(e, 5_000_000, 0, false)
	assert.Equal(t, uint64(0), e.SliceRemainingNs)
}

func TestTickDefersPreemptionBelowMinGranularity(t *testing.T) {
	e := NewEntry(1, 0, 10_000_000, 0)
	// candidate would win by less than minGranularityNs: no resched.
	resched := Tick(e, 100_000, e.Vdeadline-500_000, true)
	assert.False(t, resched)
}

func TestTickFlagsPreemptionAboveMinGranularity(t *testing.T) {
	e := NewEntry(1, 0, 10_000_000, 0)
	resched := Tick(e, 100_000, 0, true)
	assert.True(t, resched)
}

func TestRenewResetsSliceAndVdeadline(t *testing.T) {
	e := NewEntry(1, 0, 1_000_000, 0)
	Tick(e, 1_000_000, 0, false)
	Renew(e, 5_000_000)
	assert.Equal(t, uint64(5_000_000), e.SliceNs)
	assert.Equal(t, uint64(5_000_000), e.SliceRemainingNs)
}
