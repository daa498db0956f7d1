package sched

// RunQueueSet is the SMP front end: one RunQueue per CPU, with a simple
// affinity-honoring placement policy. Load balancing beyond honoring
// affinity is explicitly out of scope (spec.md §1 Non-goals) -- Admit
// just picks the least-loaded CPU the entry's affinity mask permits, it
// never migrates a resident entry to rebalance.
type RunQueueSet struct {
	queues []*RunQueue
}

// NewRunQueueSet builds ncpu per-CPU run queues.
func NewRunQueueSet(ncpu int) *RunQueueSet {
	rs := &RunQueueSet{queues: make([]*RunQueue, ncpu)}
	for i := range rs.queues {
		rs.queues[i] = NewRunQueue(i)
	}
	return rs
}

// Queue returns the run queue for a specific CPU index.
func (rs *RunQueueSet) Queue(cpu int) *RunQueue {
	return rs.queues[cpu]
}

// NumCPU reports how many per-CPU run queues this set manages.
func (rs *RunQueueSet) NumCPU() int {
	return len(rs.queues)
}

// Admit inserts e into the least-loaded CPU its affinity mask permits,
// preferring e.LastCPU on a tie to preserve cache locality. It returns
// the CPU index chosen, or -1 if no CPU is permitted by the affinity
// mask (an invariant violation the caller should treat as fatal: an
// entry must always be runnable somewhere).
func (rs *RunQueueSet) Admit(e *Entry) int {
	best := -1
	for i, rq := range rs.queues {
		if !e.CPURunnable(i) {
			continue
		}
		if best == -1 {
			best = i
			continue
		}
		if i == e.LastCPU {
			best = i
			continue
		}
		if rq.Len() < rs.queues[best].Len() && best != e.LastCPU {
			best = i
		}
	}
	if best == -1 {
		return -1
	}
	e.LastCPU = best
	rs.queues[best].Insert(e)
	return best
}

// Remove evicts pid from whichever queue currently holds it.
func (rs *RunQueueSet) Remove(pid Pid) *Entry {
	for _, rq := range rs.queues {
		if e := rq.Remove(pid); e != nil {
			return e
		}
	}
	return nil
}

// Contains reports whether pid is resident in any queue in the set.
func (rs *RunQueueSet) Contains(pid Pid) bool {
	for _, rq := range rs.queues {
		if rq.Contains(pid) {
			return true
		}
	}
	return false
}

// MinVruntime returns the queue-wide fair vruntime baseline across every
// CPU, used to rebase a long-sleeper on wake (spec.md §3). Taking the
// minimum across CPUs (rather than just the target CPU) keeps a process
// that migrates CPUs from being unfairly rebased against a stale,
// possibly much larger, per-CPU baseline.
func (rs *RunQueueSet) MinVruntime() uint64 {
	var min uint64
	has := false
	for _, rq := range rs.queues {
		v := rq.QueueMinVruntime()
		if !has || v < min {
			min = v
			has = true
		}
	}
	return min
}

// Migrate forces e onto a CPU permitted by its (possibly just updated)
// affinity mask, used by sched_setaffinity when the current CPU is
// excluded (spec.md §6).
func (rs *RunQueueSet) Migrate(pid Pid) int {
	e := rs.Remove(pid)
	if e == nil {
		return -1
	}
	return rs.Admit(e)
}
