package kernel

import (
	"fmt"

	"github.com/nexa-sys/nexa-os-sub006/internal/kernelerr"
	"github.com/nexa-sys/nexa-os-sub006/internal/proc"
	"go.uber.org/zap"
)

// The syscall ABI operations spec.md §6 names. Each takes the caller's
// *proc.Record directly rather than a bare pid: the kernel's trap
// dispatcher has already resolved pid to a record before reaching here,
// the same division of labor main.go's trapstub/syscall split shows
// (trapstub never looks up a proc_t itself).

func waitListName(ppid int) string {
	return fmt.Sprintf("wait:%d", ppid)
}

// SchedYield implements sched_yield(): the caller gives up the remainder
// of its slice voluntarily, going Running->Ready, and cpu is immediately
// rescheduled (a yield is a request for a switch point now, not merely a
// bookkeeping update). It errors if called for a record that is not
// currently Running on cpu.
func (k *Kernel) SchedYield(r *proc.Record, cpu int) error {
	if r.State() != proc.Running || k.Running(cpu) != r.Pid {
		return kernelerr.New(kernelerr.InvariantViolation, "sched_yield", "caller is not running on cpu")
	}
	if _, err := k.table.StateMachine().SetState(r, proc.Ready); err != nil {
		return k.console.Check(err)
	}
	return k.Schedule(cpu)
}

// Nice implements nice(delta): recompute weight and refresh vdeadline
// unconditionally, per SPEC_FULL's supplement to spec.md §6 (the
// original_source recomputes even when the entry isn't currently
// queued).
func (k *Kernel) Nice(r *proc.Record, nice int8) {
	r.Entry.SetNice(nice)
}

// SetAffinity implements sched_setaffinity(mask): the affinity mask is
// always accepted, but if it excludes the CPU the entry currently sits
// on (Ready) or would have migrated to, the entry is moved to a
// permitted CPU immediately rather than left to discover the exclusion
// at its next Pick.
func (k *Kernel) SetAffinity(r *proc.Record, mask uint64) error {
	r.Entry.CPUAffinity = mask
	if r.State() != proc.Ready {
		return nil
	}
	if r.Entry.CPURunnable(r.Entry.LastCPU) {
		return nil
	}
	if cpu := k.sched.Migrate(r.Pid); cpu == -1 {
		return k.console.Check(kernelerr.New(kernelerr.OutOfResource, "sched_setaffinity",
			"no cpu permitted by the new affinity mask"))
	}
	return nil
}

// Exit implements exit(code): commits the exit status, flips the caller
// to Zombie, and wakes the parent's wait list so a blocked wait(child)
// observes SIGCHLD (spec.md §6, SPEC_FULL's wait/reap supplement).
func (k *Kernel) Exit(r *proc.Record, exitCode, termSignal int, hasTermSignal bool) error {
	if err := k.table.StateMachine().Exit(r, exitCode, termSignal, hasTermSignal); err != nil {
		return k.console.Check(err)
	}

	wl := k.WaitList(waitListName(r.ParentPid))
	woke := wl.WakeAll(func(pid int) bool {
		parent, ok := k.table.Lookup(pid)
		if !ok {
			return false
		}
		return k.table.StateMachine().Wake(parent, proc.WakeData)
	})
	k.log.Info("process exited",
		zap.Int("pid", r.Pid),
		zap.Int("parent", r.ParentPid),
		zap.Ints("woke_waiters", woke),
	)
	return nil
}

// Wait implements wait(child): if child has already become a Zombie, it
// is reaped (pid mapping and bitmap slot both released, spec.md §4.3)
// and its wait status returned immediately. Otherwise the caller
// registers on child's parent wait list, transitions to Sleeping, and
// cpu is rescheduled on the spot -- a blocked caller cannot remain the
// CPU's running entry. blocked is true and the caller resumes, Ready,
// once exit() wakes this list. If the Sleeping transition is refused
// (wake_pending already armed, e.g. a prior sibling exit already woke
// this list), caller never left Running/Ready: its wait-list
// registration is withdrawn and blocked is false.
func (k *Kernel) Wait(caller, child *proc.Record, cpu int) (status int, blocked bool, err error) {
	if child.State() == proc.Zombie {
		status = child.WaitStatus()
		if rerr := k.table.Reap(child.Pid); rerr != nil {
			return 0, false, k.console.Check(rerr)
		}
		return status, false, nil
	}

	wl := k.WaitList(waitListName(caller.Pid))
	wl.AddWaiter(caller.Pid)
	accepted, serr := k.table.StateMachine().SetState(caller, proc.Sleeping)
	if serr != nil {
		wl.RemoveWaiter(caller.Pid)
		return 0, false, k.console.Check(serr)
	}
	if !accepted {
		wl.RemoveWaiter(caller.Pid)
		return 0, false, nil
	}

	k.log.Debug("wait blocked on child", zap.Int("caller", caller.Pid), zap.Int("child", child.Pid))
	if err := k.Schedule(cpu); err != nil {
		return 0, true, err
	}
	return 0, true, nil
}

// SleepOn registers r as a waiter on the named device wait list and
// transitions it to Sleeping, arming a timeout if timeoutNs > 0 (spec.md
// §4.7's add_waiter/set_state(Sleeping) contract, plus SPEC_FULL's
// WakeTimeout supplement), then reschedules cpu since r can no longer be
// its running entry. nowNs is the kernel's current monotonic clock
// reading. If the Sleeping transition is refused (wake_pending already
// armed, per internal/proc/state.go's SetState contract), r never left
// Running/Ready: its wait-list registration and any armed timeout are
// withdrawn and the caller is told it did not sleep.
func (k *Kernel) SleepOn(r *proc.Record, list string, timeoutNs uint64, nowNs uint64, cpu int) (bool, error) {
	wl := k.WaitList(list)
	registered := wl.AddWaiter(r.Pid)
	if timeoutNs > 0 {
		k.timer.Arm(r.Pid, list, nowNs+timeoutNs)
	}

	accepted, err := k.table.StateMachine().SetState(r, proc.Sleeping)
	if err != nil {
		wl.RemoveWaiter(r.Pid)
		k.timer.Cancel(r.Pid)
		return false, k.console.Check(err)
	}
	if !accepted {
		wl.RemoveWaiter(r.Pid)
		k.timer.Cancel(r.Pid)
		return false, nil
	}

	return registered, k.Schedule(cpu)
}

// WakeList wakes every waiter on the named device wait list with
// WakeData, cancelling any armed timeout for each (spec.md §4.7's
// wake_all).
func (k *Kernel) WakeList(list string) []int {
	wl := k.WaitList(list)
	return wl.WakeAll(func(pid int) bool {
		k.timer.Cancel(pid)
		r, ok := k.table.Lookup(pid)
		if !ok {
			return false
		}
		return k.table.StateMachine().Wake(r, proc.WakeData)
	})
}

// ExpireTimeouts advances the timer wheel to nowNs and wakes every pid
// whose deadline passed with WakeTimeout, withdrawing its wait-list
// registration first so the later wake_all on that list doesn't see a
// stale entry.
func (k *Kernel) ExpireTimeouts(nowNs uint64) []int {
	fired := k.timer.Advance(nowNs)
	woke := make([]int, 0, len(fired))
	for _, f := range fired {
		k.WaitList(f.List).RemoveWaiter(f.Pid)
		r, ok := k.table.Lookup(f.Pid)
		if !ok {
			continue
		}
		if k.table.StateMachine().Wake(r, proc.WakeTimeout) {
			woke = append(woke, f.Pid)
		}
	}
	if len(woke) > 0 {
		k.log.Debug("timeouts expired", zap.Ints("woke", woke))
	}
	return woke
}
