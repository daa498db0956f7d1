package sched

import (
	"math/big"
	"math/bits"
)

// W0 is the reference weight at nice 0 (NICE_0_LOAD in the teacher's
// vocabulary). calc_vdeadline and calc_delta_vruntime both scale against
// it so that a nice-0 process accumulates vruntime 1:1 with wall time.
const W0 = 1024

const (
	minNice = -20
	maxNice = 19
)

// niceToWeight is indexed by nice+20. Each step is ~1.25x the next,
// matching the ratio spec.md requires; nice 0 sits at W0. This mirrors
// the well-known CFS prio-to-weight table, which is the only concrete
// nice/weight curve anywhere in the retrieval pack and satisfies every
// invariant in spec.md §4.1 (strictly positive, strictly decreasing with
// higher nice).
var niceToWeight = [maxNice - minNice + 1]uint64{
	88761, 71755, 56483, 46273, 36291, // -20..-16
	29154, 23254, 18705, 14949, 11916, // -15..-11
	9548, 7620, 6100, 4904, 3906, // -10..-6
	3121, 2501, 1991, 1586, 1277, // -5..-1
	1024,                      // 0
	820, 655, 526, 423,        // 1..4
	335, 272, 215, 172, 137,   // 5..9
	110, 87, 70, 56, 45,       // 10..14
	36, 29, 23, 18, 15,        // 15..19
}

// niceToWmult holds W0/weight for each entry as a fixed-point value
// scaled by 2^32, so calc_delta_vruntime_fast can replace the division
// in calc_delta_vruntime with a multiply-and-shift.
var niceToWmult [maxNice - minNice + 1]uint64

func init() {
	for i, w := range niceToWeight {
		niceToWmult[i] = (uint64(W0) << 32) / w
	}
}

func clampNice(n int) int {
	if n < minNice {
		return minNice
	}
	if n > maxNice {
		return maxNice
	}
	return n
}

// NiceToWeight maps nice in [-20,19] to its weight. Out-of-range nice
// values are clamped rather than rejected -- the nice() syscall boundary
// (§6) is responsible for telling a caller it clamped, this helper just
// never divides by zero.
func NiceToWeight(nice int) uint64 {
	return niceToWeight[clampNice(nice)-minNice]
}

func niceToReciprocal(nice int) uint64 {
	return niceToWmult[clampNice(nice)-minNice]
}

// CalcDeltaVruntime scales delta_exec (ns actually run) by W0/weight: a
// heavier (lower-nice) process accrues vruntime more slowly. A
// zero weight can't occur from NiceToWeight but callers may pass a raw
// weight of 0 (e.g. a corrupted entry); the fallback degrades to 1:1
// instead of dividing by zero.
func CalcDeltaVruntime(deltaExec uint64, weight uint64) uint64 {
	if weight == 0 {
		return deltaExec
	}
	if weight == W0 {
		return deltaExec
	}
	// delta_exec * W0 can overflow 64 bits; do the multiply in 128 bits
	// and saturate the quotient rather than wrap, per spec.md §4.1.
	num := new(big.Int).Mul(big.NewInt(0).SetUint64(deltaExec), big.NewInt(W0))
	num.Div(num, big.NewInt(0).SetUint64(weight))
	if !num.IsUint64() {
		return ^uint64(0)
	}
	return num.Uint64()
}

// CalcDeltaVruntimeFast is the reciprocal-multiply variant: it must
// agree with CalcDeltaVruntime to within 1% per spec.md §4.1.
func CalcDeltaVruntimeFast(deltaExec uint64, nice int) uint64 {
	if clampNice(nice) == 0 {
		return deltaExec
	}
	recip := niceToReciprocal(nice)
	hi, lo := bits.Mul64(deltaExec, recip)
	// recip is W0*2^32/weight, so the 128-bit product right-shifted by
	// 32 is delta*W0/weight; if that doesn't fit in 64 bits, saturate.
	if hi>>32 != 0 {
		return ^uint64(0)
	}
	return hi<<32 | lo>>32
}

// CalcVdeadline computes vrt + slice*W0/weight, saturating on overflow
// instead of wrapping.
func CalcVdeadline(vrt, sliceNs, weight uint64) uint64 {
	delta := CalcDeltaVruntime(sliceNs, weight)
	sum := vrt + delta
	if sum < vrt {
		return ^uint64(0)
	}
	return sum
}
