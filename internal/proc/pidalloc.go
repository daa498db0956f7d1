package proc

import (
	"sync"

	"github.com/nexa-sys/nexa-os-sub006/internal/kernelerr"
)

// MinPid is reserved: pid 0 is never returned by AllocatePid (spec.md
// §3's "reserved-not-zero policy").
const MinPid = 1

// MaxPid bounds the bitmap. It is capped at the radix index's address
// space since every allocated pid must also be representable in the
// pid->slot map.
const MaxPid = MaxRadixPid

// PidAllocator is a bitmap over [MinPid, MaxPid] with a hint pointer that
// accelerates sequential allocation (spec.md §4.3).
type PidAllocator struct {
	mu   sync.Mutex
	bits []uint64 // bit (pid - MinPid) set => allocated
	hint int      // next pid to try
}

// NewPidAllocator builds an allocator over [MinPid, MaxPid].
func NewPidAllocator() *PidAllocator {
	nbits := MaxPid - MinPid + 1
	return &PidAllocator{
		bits: make([]uint64, (nbits+63)/64),
		hint: MinPid,
	}
}

func (a *PidAllocator) isSet(pid int) bool {
	i := pid - MinPid
	return a.bits[i/64]&(1<<uint(i%64)) != 0
}

func (a *PidAllocator) set(pid int) {
	i := pid - MinPid
	a.bits[i/64] |= 1 << uint(i%64)
}

func (a *PidAllocator) clear(pid int) {
	i := pid - MinPid
	a.bits[i/64] &^= 1 << uint(i%64)
}

// Allocate scans from the hint for a free pid, wrapping around once. It
// returns (0, err) with an OutOfResource kernelerr when the pid space is
// exhausted.
func (a *PidAllocator) Allocate() (int, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	start := a.hint
	for pid := start; pid <= MaxPid; pid++ {
		if !a.isSet(pid) {
			a.set(pid)
			a.hint = pid + 1
			return pid, nil
		}
	}
	for pid := MinPid; pid < start; pid++ {
		if !a.isSet(pid) {
			a.set(pid)
			a.hint = pid + 1
			return pid, nil
		}
	}
	return 0, kernelerr.ErrPidExhausted
}

// Free releases pid back to the pool. Freeing pid 0, an out-of-range
// pid, or a pid that isn't currently allocated is rejected. On success
// the hint rewinds to min(hint, pid) so a freed low pid is reused before
// the allocator continues climbing (spec.md §4.3).
func (a *PidAllocator) Free(pid int) error {
	if pid == 0 {
		return kernelerr.ErrPidZero
	}
	if pid < MinPid || pid > MaxPid {
		return kernelerr.New(kernelerr.InvariantViolation, "free_pid", "pid out of range")
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.isSet(pid) {
		return kernelerr.ErrDoubleFreePid
	}
	a.clear(pid)
	if pid < a.hint {
		a.hint = pid
	}
	return nil
}

// Allocated reports whether pid is currently allocated; used by tests
// to check that Table.Reap released it.
func (a *PidAllocator) Allocated(pid int) bool {
	if pid < MinPid || pid > MaxPid {
		return false
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.isSet(pid)
}
