package sched

// Tick charges deltaExec (ns since the last tick) against the running
// entry's vruntime and slice, per spec.md §4.8. It reports whether the
// caller should set need-resched: either the slice is exhausted, or a
// higher-priority entry has become eligible and would preempt by more
// than the minimum granularity floor.
func Tick(running *Entry, deltaExec uint64, candidateVdeadline uint64, candidateEligible bool) (needResched bool) {
	running.Vruntime += CalcDeltaVruntime(deltaExec, running.Weight)
	running.TotalTimeNs += deltaExec
	running.ClampLag()

	if deltaExec >= running.SliceRemainingNs {
		running.SliceRemainingNs = 0
	} else {
		running.SliceRemainingNs -= deltaExec
	}

	if running.SliceRemainingNs == 0 {
		return true
	}
	if candidateEligible && candidateVdeadline+minGranularityNs < running.Vdeadline {
		return true
	}
	return false
}

// Renew resets the slice of an entry that exhausted it but is being kept
// running (e.g. it is the only runnable entry), recomputing Vdeadline.
func Renew(e *Entry, sliceNs uint64) {
	e.SliceNs = sliceNs
	e.SliceRemainingNs = sliceNs
	e.Vdeadline = CalcVdeadline(e.Vruntime, e.SliceNs, e.Weight)
}
