// Package kernel wires the scheduler core (internal/sched, internal/proc,
// internal/waitq, internal/ctxswitch) into a runnable trap/syscall surface
// (spec.md §6): timer tick dispatch, device wait-list wiring, and the
// syscall ABI operations named there.
package kernel

import (
	"fmt"
	"os"

	"github.com/nexa-sys/nexa-os-sub006/internal/kernelerr"
)

// Console is the kernel's only logging surface: plain fmt.Printf-style
// trace output, the way main.go writes diagnostics directly to stdout,
// plus a panic path for fatal invariant violations. It is a thin wrapper
// so a ring-buffer console (or a test spy) can replace os.Stdout without
// touching call sites, the same role the teacher's cons/bprof_t plays.
type Console struct {
	out   *os.File
	debug bool
}

// NewConsole builds a Console writing to out. debug controls whether
// InvariantViolation errors panic (debug=true, matching the teacher's
// "panic on anything that should never happen") or are only printed and
// returned to the caller (debug=false, a production kernel build).
func NewConsole(out *os.File, debug bool) *Console {
	return &Console{out: out, debug: debug}
}

// Printf writes a trace line, never erroring: a console write failure is
// not something the kernel core can react to.
func (c *Console) Printf(format string, args ...interface{}) {
	fmt.Fprintf(c.out, format, args...)
}

// Check logs and, in debug builds, panics on a fatal InvariantViolation.
// Any other error (or nil) is returned unchanged so the caller's normal
// error path handles it. This mirrors spec.md §7: "InvariantViolation ...
// is additionally a panic value in debug builds."
func (c *Console) Check(err error) error {
	if err == nil {
		return nil
	}
	kerr, ok := err.(*kernelerr.Error)
	if !ok || kerr.Kind != kernelerr.InvariantViolation {
		return err
	}
	c.Printf("panic: %s\n", kerr.Error())
	if c.debug {
		panic(kerr)
	}
	return err
}
