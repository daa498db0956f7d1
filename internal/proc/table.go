package proc

import (
	"sync"

	"github.com/nexa-sys/nexa-os-sub006/internal/kernelerr"
	"github.com/nexa-sys/nexa-os-sub006/internal/sched"
)

// Table is the fixed-capacity process table (spec.md §3, §4.3). It
// exclusively owns Records; everything else reaches a Record via pid,
// resolved through the radix tree. A slot is allocated on process
// creation and returned on zombie reaping.
type Table struct {
	mu sync.Mutex

	slots    []*Record
	freeSlot []int // stack of free slot indices

	pids  *PidAllocator
	radix *radixTree

	sm *StateMachine
}

// NewTable builds a process table with the given fixed capacity, bound
// to the given run queue set for scheduler admission.
func NewTable(capacity int, rs *sched.RunQueueSet) *Table {
	t := &Table{
		slots:    make([]*Record, capacity),
		freeSlot: make([]int, capacity),
		pids:     NewPidAllocator(),
		radix:    newRadixTree(),
		sm:       NewStateMachine(rs),
	}
	for i := 0; i < capacity; i++ {
		t.freeSlot[i] = capacity - 1 - i
	}
	return t
}

// StateMachine returns the table's bound state machine, the correctness-
// critical surface from spec.md §4.6.
func (t *Table) StateMachine() *StateMachine {
	return t.sm
}

// Create allocates a pid and a table slot for a new process, registers
// the pid->slot mapping, and returns the new Record in state Ready.
func (t *Table) Create(parentPid int, tgid int, nice int8, sliceNs uint64) (*Record, error) {
	pid, err := t.pids.Allocate()
	if err != nil {
		return nil, err
	}

	t.mu.Lock()
	if len(t.freeSlot) == 0 {
		t.mu.Unlock()
		_ = t.pids.Free(pid)
		return nil, kernelerr.New(kernelerr.OutOfResource, "proc_new", "process table is full")
	}
	slot := t.freeSlot[len(t.freeSlot)-1]
	t.freeSlot = t.freeSlot[:len(t.freeSlot)-1]

	vrt := t.sm.sched.MinVruntime()
	r := New(pid, parentPid, tgid, nice, sliceNs, vrt)
	t.slots[slot] = r
	t.radix.Register(pid, slot)
	t.mu.Unlock()

	t.sm.sched.Admit(r.Entry)
	return r, nil
}

// Lookup resolves pid to its Record via the radix tree, or (nil, false)
// if absent.
func (t *Table) Lookup(pid int) (*Record, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	slot, ok := t.radix.Lookup(pid)
	if !ok {
		return nil, false
	}
	r := t.slots[slot]
	if r == nil {
		return nil, false
	}
	return r, true
}

// Reap removes a Zombie process's record from the table, clears its
// radix mapping, and frees its pid, all under one lock acquisition --
// SPEC_FULL's atomicity supplement to spec.md §4.3's ordering edge case,
// so a concurrent Allocate can never observe a freed-but-still-mapped
// pid (original_source's pid_tree_edge_cases.rs regression).
func (t *Table) Reap(pid int) error {
	t.mu.Lock()
	slot, ok := t.radix.Lookup(pid)
	if !ok {
		t.mu.Unlock()
		return kernelerr.ErrPidNotFound
	}
	r := t.slots[slot]
	if r == nil || r.State() != Zombie {
		t.mu.Unlock()
		return kernelerr.New(kernelerr.InvariantViolation, "reap", "pid is not a zombie")
	}

	t.radix.Unregister(pid)
	t.slots[slot] = nil
	t.freeSlot = append(t.freeSlot, slot)
	err := t.pids.Free(pid)
	t.mu.Unlock()

	return err
}

// Len reports the number of live (non-reaped) records in the table.
func (t *Table) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.slots) - len(t.freeSlot)
}
