package proc

import (
	"sync"

	"github.com/nexa-sys/nexa-os-sub006/internal/sched"
)

// State is the process state sum type (spec.md §3). It is a closed set
// dispatched by switch, never by interface/vtable (spec.md §9).
type State int

const (
	Ready State = iota
	Running
	Sleeping
	Zombie
	Stopped
	Traced
)

func (s State) String() string {
	switch s {
	case Ready:
		return "ready"
	case Running:
		return "running"
	case Sleeping:
		return "sleeping"
	case Zombie:
		return "zombie"
	case Stopped:
		return "stopped"
	case Traced:
		return "traced"
	default:
		return "invalid"
	}
}

// RegContext is the architectural register snapshot saved across a
// switch point (spec.md §3: "register context snapshot"). The scheduler
// core never interprets these fields; it only preserves them across
// Context Switch Glue (C9), which is why they are untyped words rather
// than a real frame layout -- page-table walking and the real trap frame
// are external collaborators (spec.md §1).
type RegContext struct {
	RIP    uint64
	RSP    uint64
	RFLAGS uint64
}

// SignalState is the minimal signal boundary surface (spec.md §6): a
// pending-signal bitmask, a blocked-signal mask, and whether the pending
// set has anything deliverable and unblocked.
type SignalState struct {
	Pending uint64
	Blocked uint64
}

// HasDeliverable reports whether any pending signal is unblocked, the
// predicate the scheduler reads on return-to-user (spec.md §6).
func (s *SignalState) HasDeliverable() bool {
	return s.Pending&^s.Blocked != 0
}

// ControlBlock holds the memory/fd metadata a process record owns but
// the scheduler core never interprets: page-table root and memory bounds
// belong to the (external, out-of-scope) virtual memory subsystem; fds
// belong to the (external) file-system/IPC layers (spec.md §1).
type ControlBlock struct {
	PageTableRoot uintptr
	MemLow        uintptr
	MemHigh       uintptr
	Fds           []int
}

// Record is one process's kernel-visible state: identity, the state
// machine's current State, register context, signal state, exit status,
// and wake_pending. It embeds *sched.Entry, since spec.md §3 describes
// the scheduler entry as "extend[ing] the process record" -- composition
// here, not duplication: Entry is the scheduling bookkeeping keyed by the
// same pid.
type Record struct {
	mu sync.Mutex

	Pid          int
	ParentPid    int
	ThreadGroup  int
	state        State
	Context      RegContext
	Signal       SignalState
	ControlBlock ControlBlock

	exitCode         int
	termSignal       int
	hasTermSig       bool
	hasExitCommitted bool
	wakePending      bool
	lastWakeReason   WakeReason

	*sched.Entry
}

// New constructs a Record in state Ready, with its scheduler entry
// admitted at the given starting vruntime (spec.md §4.2: "construct
// (takes identity + entry point + stacks)" -- entry point/stacks live in
// RegContext/ControlBlock, set by the caller after New returns).
func New(pid, parentPid, tgid int, nice int8, sliceNs uint64, vruntime uint64) *Record {
	return &Record{
		Pid:         pid,
		ParentPid:   parentPid,
		ThreadGroup: tgid,
		state:       Ready,
		Entry:       sched.NewEntry(pid, nice, sliceNs, vruntime),
	}
}

// State returns the process's current state under lock.
func (r *Record) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// SetContext overwrites the saved register context snapshot.
func (r *Record) SetContext(ctx RegContext) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Context = ctx
}

// SetExitStatus records exit_code and an optional termSignal. Per
// spec.md §3 and §4.2, this MUST be called, and observably committed,
// before the state transition to Zombie. StateMachine.Exit commits the
// same fields itself, under the record's lock, before its Zombie
// transition.
func (r *Record) SetExitStatus(exitCode int, termSignal int, hasTermSignal bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.exitCode = exitCode
	r.termSignal = termSignal
	r.hasTermSig = hasTermSignal
	r.hasExitCommitted = true
}

// ExitStatus reads back exit_code and term_signal.
func (r *Record) ExitStatus() (exitCode int, termSignal int, hasTermSignal bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.exitCode, r.termSignal, r.hasTermSig
}

// WaitStatus assembles the POSIX-style status word from exit_code (low 8
// bits) and term_signal (spec.md §6).
func (r *Record) WaitStatus() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.hasTermSig {
		return (r.termSignal & 0x7f) | 0x80<<8
	}
	return (r.exitCode & 0xff) << 8
}

// ResetToDefaults restores a Record to its post-exec state: the process
// identity (pid, ppid, tgid) survives exec, everything else -- context,
// signal masks, exit status, wake_pending -- does not (spec.md §4.2).
func (r *Record) ResetToDefaults() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Context = RegContext{}
	r.Signal = SignalState{}
	r.exitCode = 0
	r.termSignal = 0
	r.hasTermSig = false
	r.hasExitCommitted = false
	r.wakePending = false
	r.lastWakeReason = WakeNone
}
