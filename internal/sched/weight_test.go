package sched

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNiceToWeightAlwaysPositive(t *testing.T) {
	for n := minNice; n <= maxNice; n++ {
		w := NiceToWeight(n)
		assert.Greaterf(t, w, uint64(0), "nice %d produced zero weight", n)
	}
}

func TestNiceToWeightClampsOutOfRange(t *testing.T) {
	require.Equal(t, NiceToWeight(minNice), NiceToWeight(-1000))
	require.Equal(t, NiceToWeight(maxNice), NiceToWeight(1000))
}

func TestNiceToWeightMonotonicallyDecreasing(t *testing.T) {
	for n := minNice; n < maxNice; n++ {
		assert.Greaterf(t, NiceToWeight(n), NiceToWeight(n+1),
			"weight must strictly decrease from nice %d to %d", n, n+1)
	}
}

func TestCalcDeltaVruntimeIdentityAtNiceZero(t *testing.T) {
	w0 := NiceToWeight(0)
	for _, d := range []uint64{0, 1, 1000, 1 << 40} {
		assert.Equal(t, d, CalcDeltaVruntime(d, w0))
	}
}

func TestCalcDeltaVruntimeHigherPriorityAccruesSlower(t *testing.T) {
	const d = 1_000_000
	for n1 := minNice; n1 < maxNice; n1++ {
		n2 := n1 + 1
		w1 := NiceToWeight(n1)
		w2 := NiceToWeight(n2)
		assert.Lessf(t, CalcDeltaVruntime(d, w1), CalcDeltaVruntime(d, w2),
			"nice %d (heavier) must accrue vruntime slower than nice %d", n1, n2)
	}
}

func TestCalcDeltaVruntimeZeroWeightFallsBackToIdentity(t *testing.T) {
	assert.Equal(t, uint64(42), CalcDeltaVruntime(42, 0))
}

func TestCalcDeltaVruntimeSaturatesOnOverflow(t *testing.T) {
	got := CalcDeltaVruntime(^uint64(0), NiceToWeight(maxNice))
	assert.Equal(t, ^uint64(0), got)
}

func TestCalcDeltaVruntimeFastAgreesWithSlowWithinOnePercent(t *testing.T) {
	for n := minNice; n <= maxNice; n++ {
		const d = 5_000_000
		slow := CalcDeltaVruntime(d, NiceToWeight(n))
		fast := CalcDeltaVruntimeFast(d, n)
		if slow == 0 {
			continue
		}
		diff := int64(slow) - int64(fast)
		if diff < 0 {
			diff = -diff
		}
		tolerance := slow/100 + 1
		assert.LessOrEqualf(t, uint64(diff), tolerance,
			"nice %d: slow=%d fast=%d diverge by more than 1%%", n, slow, fast)
	}
}

func TestCalcVdeadlineSaturatesOnOverflow(t *testing.T) {
	got := CalcVdeadline(^uint64(0)-10, 1_000_000, NiceToWeight(maxNice))
	assert.Equal(t, ^uint64(0), got)
}
