// Package waitq implements the bounded wait-list primitive (spec.md
// §4.7) that ties device producers (keyboard, TTY, pipe) to the
// scheduler's wake path. A WaitList stores PIDs, never pointers into the
// process table, so a reaped process leaves no dangling reference: a
// stale pid simply no-ops when woken (spec.md §9).
package waitq

import "sync"

// DefaultCapacity is the documented default ring size (spec.md §3, §9
// Open Questions: "N=8 ... treat the capacity as configurable and
// defaulted from a single constant").
const DefaultCapacity = 8

// Waker is called once per popped pid during WakeAll. It is the
// process-table's state-machine Wake(pid) in production; tests may stub
// it. The bool return mirrors C6.wake's "did it actually transition to
// Ready" result but WakeAll does not otherwise act on it -- a waiter that
// was already Ready/Running when woken (wake_pending set instead) is
// still removed from the list, matching spec.md §4.7's "the list is
// emptied."
type Waker func(pid int) bool

// WaitList is a bounded FIFO ring of waiter PIDs for one event source.
// It is safe for concurrent use: add/remove/wake_all all take the same
// lock, and per spec.md §5 a caller never holds this lock and a run-queue
// lock at once beyond WakeAll's nested call into Waker.
type WaitList struct {
	mu       sync.Mutex
	capacity int
	waiters  []int
}

// New builds a WaitList with the given capacity; capacity<=0 defaults to
// DefaultCapacity.
func New(capacity int) *WaitList {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &WaitList{
		capacity: capacity,
		waiters:  make([]int, 0, capacity),
	}
}

// AddWaiter inserts pid if it is not already present and the list has
// room. Overflow is silent per spec.md §4.7 and §7: the caller gets back
// a bool rather than an error so it can log at the syscall boundary if it
// cares, but the wait-list itself does not treat this as exceptional.
func (w *WaitList) AddWaiter(pid int) bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	for _, p := range w.waiters {
		if p == pid {
			return true
		}
	}
	if len(w.waiters) >= w.capacity {
		return false
	}
	w.waiters = append(w.waiters, pid)
	return true
}

// RemoveWaiter unconditionally removes pid if present, reporting whether
// it was found. Used by a consumer that finds data before it would have
// slept, to withdraw its own registration (spec.md §6's has_data() /
// add_waiter contract).
func (w *WaitList) RemoveWaiter(pid int) bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	for i, p := range w.waiters {
		if p == pid {
			w.waiters = append(w.waiters[:i], w.waiters[i+1:]...)
			return true
		}
	}
	return false
}

// Len reports the number of waiters currently registered.
func (w *WaitList) Len() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.waiters)
}

// WakeAll pops every waiter in insertion order and calls wake for each,
// then empties the list, per spec.md §4.7. It returns the pids that were
// popped (and thus had wake called), in order, for callers that want to
// log or test against the exact wake sequence.
func (w *WaitList) WakeAll(wake Waker) []int {
	w.mu.Lock()
	popped := w.waiters
	w.waiters = make([]int, 0, w.capacity)
	w.mu.Unlock()

	for _, pid := range popped {
		wake(pid)
	}
	return popped
}
