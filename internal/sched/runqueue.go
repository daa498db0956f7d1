package sched

import (
	"math/bits"
	"sync"
)

// RunQueue is a single CPU's ordered set of Ready entries (spec.md §4.5).
// Entries are kept in per-policy-class slices rather than one sorted
// structure: the expected resident count per class is small (spec.md
// calls a red-black tree or pairing heap merely "acceptable," not
// required), so Pick does a bounded scan per class using a bitmap of
// which slots are eligible -- the same bitmap+bits.TrailingZeros64 idiom
// Maemo32-SupraX_Legacy's out-of-order issue logic uses to pick among a
// bounded candidate window, adapted here from instruction age to
// vdeadline.
type RunQueue struct {
	mu sync.Mutex

	cpu     int
	classes [3][]*Entry // indexed by Policy
	byPid   map[Pid]*Entry
	minVrt  uint64
	hasMin  bool
}

// NewRunQueue builds an empty run queue bound to the given CPU index.
func NewRunQueue(cpu int) *RunQueue {
	return &RunQueue{
		cpu:   cpu,
		byPid: make(map[Pid]*Entry),
	}
}

// QueueMinVruntime returns the queue's fair vruntime baseline, used by
// the wake path to rebase a long-sleeper's vruntime (spec.md §3).
func (rq *RunQueue) QueueMinVruntime() uint64 {
	rq.mu.Lock()
	defer rq.mu.Unlock()
	if !rq.hasMin {
		return 0
	}
	return rq.minVrt
}

func (rq *RunQueue) trackMin(v uint64) {
	if !rq.hasMin || v < rq.minVrt {
		rq.minVrt = v
		rq.hasMin = true
	}
}

// Insert admits an Entry into the run queue. It is a no-op if the pid is
// already queued, preventing the double-insert the wake_pending protocol
// in proc.StateMachine depends on never happening.
func (rq *RunQueue) Insert(e *Entry) {
	rq.mu.Lock()
	defer rq.mu.Unlock()

	if e.queued {
		return
	}
	e.queued = true
	rq.classes[e.Policy] = append(rq.classes[e.Policy], e)
	rq.byPid[e.Pid] = e
	rq.trackMin(e.Vruntime)
}

// Remove evicts a pid from the run queue if present.
func (rq *RunQueue) Remove(pid Pid) *Entry {
	rq.mu.Lock()
	defer rq.mu.Unlock()

	e, ok := rq.byPid[pid]
	if !ok {
		return nil
	}
	delete(rq.byPid, pid)
	bucket := rq.classes[e.Policy]
	for i, c := range bucket {
		if c.Pid == pid {
			bucket[i] = bucket[len(bucket)-1]
			rq.classes[e.Policy] = bucket[:len(bucket)-1]
			break
		}
	}
	e.queued = false
	return e
}

// Contains reports whether pid currently sits in this run queue.
func (rq *RunQueue) Contains(pid Pid) bool {
	rq.mu.Lock()
	defer rq.mu.Unlock()
	_, ok := rq.byPid[pid]
	return ok
}

// Len returns the number of Ready entries resident in the queue across
// all policy classes.
func (rq *RunQueue) Len() int {
	rq.mu.Lock()
	defer rq.mu.Unlock()
	return len(rq.byPid)
}

// eligibleBitmap builds a bitmap (as a slice of uint64 words) marking
// which indices of bucket are both CPU-runnable on rq.cpu and eligible
// per the given strictness.
func eligibleBitmap(bucket []*Entry, cpu int, strict bool) []uint64 {
	words := (len(bucket) + 63) / 64
	bm := make([]uint64, words)
	for i, e := range bucket {
		if !e.CPURunnable(cpu) {
			continue
		}
		if !e.Eligible(strict) {
			continue
		}
		bm[i/64] |= 1 << uint(i%64)
	}
	return bm
}

// pickFromBucket scans the eligibility bitmap word by word, using
// bits.TrailingZeros64 to visit only set bits, and returns the winner by
// spec.md §4.5 rules 3 and 5: smallest vdeadline, tie-break smaller
// vruntime, then smaller pid; among those, prefer a matching NUMA node.
func pickFromBucket(bucket []*Entry, bm []uint64, preferredNode int) *Entry {
	var best *Entry
	for w, word := range bm {
		for word != 0 {
			b := bits.TrailingZeros64(word)
			word &^= 1 << uint(b)
			idx := w*64 + b
			if idx >= len(bucket) {
				continue
			}
			cand := bucket[idx]
			if best == nil || betterCandidate(cand, best, preferredNode) {
				best = cand
			}
		}
	}
	return best
}

func betterCandidate(cand, best *Entry, preferredNode int) bool {
	if cand.Vdeadline != best.Vdeadline {
		return cand.Vdeadline < best.Vdeadline
	}
	if cand.Vruntime != best.Vruntime {
		return cand.Vruntime < best.Vruntime
	}
	// vdeadline and vruntime tied: the NUMA hint is the soft tie-break
	// (spec.md §4.5 rule 5), pid is the final deterministic fallback
	// (rule 3) when neither or both candidates match the preferred node.
	candNuma := cand.PreferredNode == preferredNode
	bestNuma := best.PreferredNode == preferredNode
	if candNuma != bestNuma {
		return candNuma
	}
	return cand.Pid < best.Pid
}

// Pick selects the next entry to run on rq.cpu, applying policy-class
// priority first (Realtime > Normal > Idle), then eligibility, affinity,
// deadline ordering and the NUMA soft hint within a class. strict
// chooses between the steady-state and wake-time eligibility thresholds.
// It returns nil if no entry in any class is both runnable and eligible.
func (rq *RunQueue) Pick(strict bool, preferredNode int) *Entry {
	rq.mu.Lock()
	defer rq.mu.Unlock()
	for class := PolicyRealtime; class <= PolicyIdle; class++ {
		bucket := rq.classes[class]
		if len(bucket) == 0 {
			continue
		}
		bm := eligibleBitmap(bucket, rq.cpu, strict)
		if best := pickFromBucket(bucket, bm, preferredNode); best != nil {
			return best
		}
	}
	return nil
}

// ShouldPreempt reports whether a newly woken entry must flag the
// currently running entry's need-resched (spec.md §4.5 preemption rule):
// its policy class outranks the running one, or within the same class it
// is eligible and has a strictly smaller vdeadline.
func ShouldPreempt(woken, running *Entry) bool {
	if woken.Policy < running.Policy {
		return true
	}
	if woken.Policy > running.Policy {
		return false
	}
	if !woken.Eligible(false) {
		return false
	}
	return woken.Vdeadline < running.Vdeadline
}
