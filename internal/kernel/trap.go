package kernel

import (
	"github.com/nexa-sys/nexa-os-sub006/internal/kernelerr"
	"github.com/nexa-sys/nexa-os-sub006/internal/proc"
	"github.com/nexa-sys/nexa-os-sub006/internal/sched"
)

// TimerTick is the timer-interrupt entry point (C8, spec.md §4.8): charge
// deltaExec against whatever is Running on cpu, expire any timeouts due
// by nowNs, and switch if need-resched came out of either. Like the
// teacher's trapstub, this never allocates anything the caller doesn't
// already own and never blocks; it either returns quickly or escalates a
// fatal invariant through console.Check.
func (k *Kernel) TimerTick(cpu int, deltaExec uint64, nowNs uint64) error {
	runningPid := k.Running(cpu)
	var running *proc.Record
	if runningPid != 0 {
		r, ok := k.table.Lookup(runningPid)
		if !ok {
			return k.console.Check(kernelerr.New(kernelerr.InvariantViolation, "timer_tick",
				"cpu's recorded running pid is absent from the process table"))
		}
		running = r
	}

	k.ExpireTimeouts(nowNs)

	if running == nil {
		// CPU was idle; a timeout expiry above may have just made an
		// entry Ready, so give Schedule a chance to pick it up.
		return k.Schedule(cpu)
	}

	candidate := k.sched.Queue(cpu).Pick(true, running.Entry.PreferredNode)
	candEligible := candidate != nil
	var candVdeadline uint64
	if candidate != nil {
		candVdeadline = candidate.Vdeadline
	}

	if !sched.Tick(running.Entry, deltaExec, candVdeadline, candEligible) {
		return nil
	}
	return k.Schedule(cpu)
}

// Schedule performs one switch point on cpu using whatever context the
// currently-running record last had saved (C9, spec.md §4.9). It is the
// direct entry point for a voluntary reschedule (after sched_yield, after
// a blocking wait()) as well as the tail of TimerTick's need-resched path.
func (k *Kernel) Schedule(cpu int) error {
	runningPid := k.Running(cpu)
	var ctx proc.RegContext
	var preferredNode int = -1
	if runningPid != 0 {
		if r, ok := k.table.Lookup(runningPid); ok {
			ctx = r.Context
			preferredNode = r.Entry.PreferredNode
		}
	}

	next, err := k.switcher.Switch(cpu, runningPid, ctx, preferredNode, true)
	if err != nil {
		return k.console.Check(err)
	}
	k.setRunning(cpu, next)
	return nil
}
