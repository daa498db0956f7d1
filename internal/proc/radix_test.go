package proc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRadixRegisterAndLookup(t *testing.T) {
	rt := newRadixTree()
	rt.Register(42, 7)
	slot, ok := rt.Lookup(42)
	require.True(t, ok)
	assert.Equal(t, 7, slot)
}

func TestRadixLookupAbsentReturnsFalse(t *testing.T) {
	rt := newRadixTree()
	_, ok := rt.Lookup(123)
	assert.False(t, ok)
}

func TestRadixUnregisterClearsMapping(t *testing.T) {
	rt := newRadixTree()
	rt.Register(5, 1)
	rt.Unregister(5)
	_, ok := rt.Lookup(5)
	assert.False(t, ok)
}

func TestRadixSparseKeysDoNotCollide(t *testing.T) {
	rt := newRadixTree()
	pids := []int{1, 64, 4096, 200000, MaxRadixPid}
	for i, p := range pids {
		rt.Register(p, i)
	}
	for i, p := range pids {
		slot, ok := rt.Lookup(p)
		require.True(t, ok)
		assert.Equal(t, i, slot)
	}
}

func TestRadixSlotZeroIsDistinguishableFromAbsent(t *testing.T) {
	rt := newRadixTree()
	rt.Register(9, 0)
	slot, ok := rt.Lookup(9)
	require.True(t, ok)
	assert.Equal(t, 0, slot)
}
