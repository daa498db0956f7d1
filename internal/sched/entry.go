package sched

// Policy is the coarse priority band that dominates vdeadline ordering:
// Realtime preempts Normal preempts Idle (spec.md §4.5 rule 1).
type Policy int

const (
	PolicyRealtime Policy = iota
	PolicyNormal
	PolicyIdle
)

// lagMax bounds lag to [-lagMax, +lagMax] after any mutation (spec.md
// §3's scheduler-entry invariant).
const lagMax = 100_000_000 // 100ms in ns

// wakeupEligibilityThresholdNs is the lenient eligibility bound used at
// wake time only (spec.md §4.5 rule 2): lag >= -500us is permitted at
// wake to avoid thrashing, even though the steady-state rule is lag >= 0.
const wakeupEligibilityThresholdNs = -500_000

// minGranularityNs is the preemption-deferral floor (spec.md §4.8): a
// newly eligible entry that would win by less than this is not worth a
// context switch yet.
const minGranularityNs = 1_000_000 // 1ms

// Pid is the numeric process identity an Entry is scheduled for. It is
// kept as a plain type alias of int rather than importing the proc
// package, so sched has no dependency on proc -- proc depends on sched,
// never the other way.
type Pid = int

// Entry is the EEVDF bookkeeping for one schedulable pid (spec.md §3,
// "Scheduler entry"). It never holds a pointer to the owning process
// record; the process table looks up records by pid separately, the same
// separation the teacher keeps between wait-list PIDs and proc_t.
type Entry struct {
	Pid Pid

	Vruntime          uint64
	Vdeadline         uint64
	Lag               int64
	Weight            uint64
	Nice              int8
	SliceNs           uint64
	SliceRemainingNs  uint64
	Policy            Policy
	CPUAffinity       uint64 // bit i set => may run on CPU i
	LastCPU           int
	PreferredNode     int

	TotalTimeNs       uint64
	WaitTimeNs        uint64
	VoluntarySwitches uint64
	PreemptCount      uint64

	// queued is true while the entry is resident in a run queue; it is
	// maintained by RunQueue.Insert/Remove so callers can't double-insert.
	queued bool
}

// NewEntry builds an Entry at its default slice, admitting it with the
// given starting vruntime (typically the run queue's current minimum).
func NewEntry(pid Pid, nice int8, sliceNs uint64, vruntime uint64) *Entry {
	e := &Entry{
		Pid:              pid,
		Nice:             nice,
		Weight:           NiceToWeight(int(nice)),
		SliceNs:          sliceNs,
		SliceRemainingNs: sliceNs,
		Policy:           PolicyNormal,
		CPUAffinity:      ^uint64(0),
		LastCPU:          -1,
	}
	e.Vruntime = vruntime
	e.Vdeadline = CalcVdeadline(e.Vruntime, e.SliceNs, e.Weight)
	return e
}

func clampLag(lag int64) int64 {
	if lag > lagMax {
		return lagMax
	}
	if lag < -lagMax {
		return -lagMax
	}
	return lag
}

// ClampLag enforces the [-100ms, +100ms] invariant; exported because both
// Wake (in the proc package, through Admit) and Tick call it.
func (e *Entry) ClampLag() {
	e.Lag = clampLag(e.Lag)
}

// SetNice recomputes Weight and refreshes Vdeadline unconditionally, per
// SPEC_FULL's supplement to spec.md §6's nice() syscall: the recompute
// happens whether or not the entry is currently queued, so the next
// admission uses fresh bookkeeping instead of a stale weight.
func (e *Entry) SetNice(nice int8) {
	e.Nice = nice
	e.Weight = NiceToWeight(int(nice))
	e.Vdeadline = CalcVdeadline(e.Vruntime, e.SliceNs, e.Weight)
}

// Admit (re)computes Vdeadline from the current Vruntime/SliceNs/Weight
// and clamps Lag. Called on initial admission and on every wake.
func (e *Entry) Admit() {
	e.Vdeadline = CalcVdeadline(e.Vruntime, e.SliceNs, e.Weight)
	e.ClampLag()
}

// Eligible reports whether the entry passes the pick-policy eligibility
// test. strict=true applies the steady-state rule (lag >= 0); strict=
// false applies the lenient wake-time threshold (lag >= -500us).
func (e *Entry) Eligible(strict bool) bool {
	if strict {
		return e.Lag >= 0
	}
	return e.Lag >= wakeupEligibilityThresholdNs
}

// CPURunnable reports whether the entry's affinity mask permits running
// on the given CPU index (spec.md §4.5 rule 4, a hard filter).
func (e *Entry) CPURunnable(cpu int) bool {
	if cpu < 0 || cpu >= 64 {
		return false
	}
	return e.CPUAffinity&(1<<uint(cpu)) != 0
}
