// Package kernelerr defines the error kinds shared across the scheduler
// core (proc, ctxswitch, kernel). Errors here are kinds, not rich types: a
// caller switches on Kind, never on a concrete struct.
package kernelerr

import "fmt"

// Kind classifies a kernel-core error per the propagation policy: fatal
// invariant violations panic in debug builds, OutOfResource and
// DoubleFree are recoverable and returned to the caller.
type Kind int

const (
	// InvariantViolation marks a fatal correctness bug: a Zombie-out
	// transition, set_state on a nonexistent pid, reentering a busy
	// kernel stack. Callers MUST NOT retry.
	InvariantViolation Kind = iota
	// OutOfResource marks a recoverable resource exhaustion: PID space
	// exhausted, wait-list full.
	OutOfResource
	// DoubleFree marks a recoverable double-release: freeing a pid or
	// wait-list entry twice.
	DoubleFree
)

func (k Kind) String() string {
	switch k {
	case InvariantViolation:
		return "invariant violation"
	case OutOfResource:
		return "out of resource"
	case DoubleFree:
		return "double free"
	default:
		return "unknown kernel error"
	}
}

// Error is a kernelerr.Kind plus context. It satisfies the error
// interface so it composes with errors.Is/errors.As at call sites, but
// call sites are expected to inspect Kind directly, mirroring the
// teacher's preference for explicit error codes over type switches.
type Error struct {
	Kind Kind
	Op   string
	Msg  string
}

func (e *Error) Error() string {
	if e.Op != "" {
		return fmt.Sprintf("%s: %s: %s", e.Op, e.Kind, e.Msg)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

// New builds an *Error of the given kind.
func New(kind Kind, op, msg string) *Error {
	return &Error{Kind: kind, Op: op, Msg: msg}
}

// Invariant is a convenience constructor for the fatal case; callers in
// the kernel core that want panic-on-debug semantics pass this to
// kernel's Console.Check or panic it directly.
func Invariant(op, msg string) *Error {
	return New(InvariantViolation, op, msg)
}

// Sentinel errors for the few spots that don't need Op/Msg formatting,
// grounded on the pack's errors.New-sentinel convention (ja7ad-consumption
// pkg/system/proc/errs.go).
var (
	ErrPidZero       = New(InvariantViolation, "free_pid", "pid 0 is reserved and never allocated")
	ErrPidExhausted  = New(OutOfResource, "allocate_pid", "pid space exhausted")
	ErrPidNotFound   = New(InvariantViolation, "set_state", "pid not present in process table")
	ErrZombieOut     = New(InvariantViolation, "set_state", "zombie is absorbing; no transition out")
	ErrDoubleFreePid = New(DoubleFree, "free_pid", "pid already free")
	ErrWaitListFull  = New(OutOfResource, "add_waiter", "wait list at capacity")
	ErrStackReentry  = New(InvariantViolation, "syscall_enter", "kernel stack already in use")
)
