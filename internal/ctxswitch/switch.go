// Package ctxswitch implements context switch glue (spec.md §4.9). It is
// not itself a scheduling algorithm: it is the contract point where a C5
// pick becomes the actual running entry, carrying the previously-running
// process's saved register context and driving the C6 Running/Ready
// transitions either side of the switch.
package ctxswitch

import (
	"github.com/nexa-sys/nexa-os-sub006/internal/kernelerr"
	"github.com/nexa-sys/nexa-os-sub006/internal/proc"
	"github.com/nexa-sys/nexa-os-sub006/internal/sched"
)

// Switcher binds a process table to the run queue set it switches
// between, so a switch point only needs a pid and a saved context rather
// than the full table/scheduler wiring.
type Switcher struct {
	table *proc.Table
	sched *sched.RunQueueSet
}

// New builds a Switcher bound to table's process records and rs's
// per-CPU run queues. Both must be the same instances the rest of the
// kernel wiring admits into and looks pids up from.
func New(table *proc.Table, rs *sched.RunQueueSet) *Switcher {
	return &Switcher{table: table, sched: rs}
}

// Switch performs one switch point on cpu (spec.md §4.9). runningPid is
// the pid that was Running on cpu before this call, or 0 if the CPU was
// idle; saved is its just-captured register context snapshot. strict
// selects the pick eligibility threshold C5 uses -- callers pass false
// only immediately after a wake on this CPU, where spec.md's lenient
// wake-time threshold legitimately applies.
//
// It returns the pid now Running on cpu, or 0 if C5 found nothing
// eligible and the CPU goes idle.
func (sw *Switcher) Switch(cpu int, runningPid int, saved proc.RegContext, preferredNode int, strict bool) (int, error) {
	if runningPid != 0 {
		if prev, ok := sw.table.Lookup(runningPid); ok {
			prev.SetContext(saved)

			// A process reaching a switch point while still Running was
			// preempted, not blocked, and goes back to Ready. One that
			// already drove itself to Sleeping/Stopped/Zombie before
			// reaching here keeps that state; set_state only acts on
			// Running, so there is nothing else to do for it.
			if prev.State() == proc.Running {
				if _, err := sw.table.StateMachine().SetState(prev, proc.Ready); err != nil {
					return 0, err
				}
			}
		}
	}

	picked := sw.sched.Queue(cpu).Pick(strict, preferredNode)
	if picked == nil {
		return 0, nil
	}

	next, ok := sw.table.Lookup(picked.Pid)
	if !ok {
		return 0, kernelerr.New(kernelerr.InvariantViolation, "ctxswitch",
			"run queue held a pid absent from the process table")
	}

	if _, err := sw.table.StateMachine().SetState(next, proc.Running); err != nil {
		return 0, err
	}

	// Reprogram the timer for the new entry's slice: a preempted entry
	// picked up again keeps whatever slice it had left, an entry that
	// fully exhausted its slice last time it ran gets a fresh one.
	if picked.SliceRemainingNs == 0 {
		sched.Renew(picked, picked.SliceNs)
	}

	return picked.Pid, nil
}
