package kernel

import "container/heap"

// timerEntry is one pending timeout: pid fires at deadline (ns on the
// kernel's monotonic clock) unless cancelled first. list records which
// wait list pid is registered on, so Advance can also withdraw the
// now-irrelevant registration.
type timerEntry struct {
	deadline uint64
	pid      int
	list     string
	index    int
}

// Fired is one timeout that reached its deadline.
type Fired struct {
	Pid  int
	List string
}

type timerHeap []*timerEntry

func (h timerHeap) Len() int            { return len(h) }
func (h timerHeap) Less(i, j int) bool  { return h[i].deadline < h[j].deadline }
func (h timerHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}
func (h *timerHeap) Push(x interface{}) {
	e := x.(*timerEntry)
	e.index = len(*h)
	*h = append(*h, e)
}
func (h *timerHeap) Pop() interface{} {
	old := *h
	n := len(old)
	e := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return e
}

// TimerWheel schedules timeout-based wakes for sleeping processes (spec.md
// §6's "timeout" argument to a blocking syscall): a process that slept
// with a deadline and never got a data/signal wake is woken by Advance
// with reason WakeTimeout instead of waiting forever. It is a min-heap
// ordered by deadline rather than a literal wheel, since the pack has no
// hierarchical timing-wheel example to ground bucket sizing on; a heap is
// the direct, unremarkable structure for "next thing to fire."
type TimerWheel struct {
	h     timerHeap
	byPid map[int]*timerEntry
}

// NewTimerWheel builds an empty wheel.
func NewTimerWheel() *TimerWheel {
	tw := &TimerWheel{byPid: make(map[int]*timerEntry)}
	heap.Init(&tw.h)
	return tw
}

// Arm schedules pid to fire at deadlineNs against the wait list named
// list, replacing any existing timer for the same pid (a process can
// only be waiting on one deadline at a time).
func (tw *TimerWheel) Arm(pid int, list string, deadlineNs uint64) {
	tw.Cancel(pid)
	e := &timerEntry{deadline: deadlineNs, pid: pid, list: list}
	heap.Push(&tw.h, e)
	tw.byPid[pid] = e
}

// Cancel removes pid's pending timer, if any, reporting whether one was
// found. Used when a process wakes from data/signal before its deadline.
func (tw *TimerWheel) Cancel(pid int) bool {
	e, ok := tw.byPid[pid]
	if !ok {
		return false
	}
	heap.Remove(&tw.h, e.index)
	delete(tw.byPid, pid)
	return true
}

// Advance pops every timer whose deadline is <= nowNs and returns the
// pids (and their wait-list names) that fired, in deadline order. Callers
// withdraw the wait-list registration and call
// StateMachine.Wake(..., WakeTimeout) for each.
func (tw *TimerWheel) Advance(nowNs uint64) []Fired {
	var fired []Fired
	for tw.h.Len() > 0 && tw.h[0].deadline <= nowNs {
		e := heap.Pop(&tw.h).(*timerEntry)
		delete(tw.byPid, e.pid)
		fired = append(fired, Fired{Pid: e.pid, List: e.list})
	}
	return fired
}

// Len reports the number of pending timers.
func (tw *TimerWheel) Len() int { return tw.h.Len() }
