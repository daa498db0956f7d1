package kernel

import (
	"os"
	"sync"

	"github.com/nexa-sys/nexa-os-sub006/internal/ctxswitch"
	"github.com/nexa-sys/nexa-os-sub006/internal/kernelerr"
	"github.com/nexa-sys/nexa-os-sub006/internal/proc"
	"github.com/nexa-sys/nexa-os-sub006/internal/sched"
	"github.com/nexa-sys/nexa-os-sub006/internal/waitq"
	"go.uber.org/zap"
)

// Config bounds a simulated machine: CPU count, process-table capacity,
// default time slice, and default wait-list capacity. cmd/schedsim builds
// one of these from its CLI flags (SPEC_FULL's ambient config layer).
// Debug selects whether an InvariantViolation panics (spec.md §7) or is
// only logged and returned.
type Config struct {
	NumCPU           int
	TableCapacity    int
	DefaultSliceNs   uint64
	WaitListCapacity int
	Debug            bool
}

// Kernel is the wiring layer spec.md §1 calls an external collaborator
// boundary: it owns the process table, the SMP run-queue set, the
// context-switch glue, a registry of device wait lists, and the per-CPU
// bookkeeping (currently-running pid, stack-reentry guard) the trap and
// syscall paths need. Nothing in internal/sched or internal/proc imports
// this package; it only imports them, the same layering direction
// spec.md §1's component table implies (C1-C9 are pure, C-wiring sits
// above).
type Kernel struct {
	mu sync.Mutex

	cfg     Config
	table   *proc.Table
	sched   *sched.RunQueueSet
	switcher *ctxswitch.Switcher
	console *Console
	log     *zap.Logger
	timer   *TimerWheel

	waitlists map[string]*waitq.WaitList

	running []int  // per-CPU currently running pid, 0 if idle
	busy    []bool // per-CPU kernel-stack reentry guard (spec.md §7)
}

// New builds a Kernel from cfg. log may be nil, in which case a no-op
// logger is used (tests don't need zap wired up to exercise scheduling
// behavior).
func New(cfg Config, log *zap.Logger) *Kernel {
	if cfg.NumCPU <= 0 {
		cfg.NumCPU = 1
	}
	if cfg.TableCapacity <= 0 {
		cfg.TableCapacity = 1024
	}
	if cfg.DefaultSliceNs == 0 {
		cfg.DefaultSliceNs = 4_000_000
	}
	if log == nil {
		log = zap.NewNop()
	}

	rs := sched.NewRunQueueSet(cfg.NumCPU)
	tbl := proc.NewTable(cfg.TableCapacity, rs)

	return &Kernel{
		cfg:       cfg,
		table:     tbl,
		sched:     rs,
		switcher:  ctxswitch.New(tbl, rs),
		console:   NewConsole(os.Stdout, cfg.Debug),
		log:       log,
		timer:     NewTimerWheel(),
		waitlists: make(map[string]*waitq.WaitList),
		running:   make([]int, cfg.NumCPU),
		busy:      make([]bool, cfg.NumCPU),
	}
}

// Table exposes the bound process table for callers that need direct
// lookup (e.g. a CLI command printing process state).
func (k *Kernel) Table() *proc.Table { return k.table }

// RunQueues exposes the bound run-queue set.
func (k *Kernel) RunQueues() *sched.RunQueueSet { return k.sched }

// WaitList returns the named device wait list, creating it on first use
// with the kernel's configured default capacity (spec.md §9 Open
// Question, resolved by SPEC_FULL as a constructor parameter).
func (k *Kernel) WaitList(name string) *waitq.WaitList {
	k.mu.Lock()
	defer k.mu.Unlock()
	wl, ok := k.waitlists[name]
	if !ok {
		wl = waitq.New(k.cfg.WaitListCapacity)
		k.waitlists[name] = wl
	}
	return wl
}

// Spawn creates a new process (spec.md §4.2 "construct") and admits it
// Ready, via the process table's own admission path.
func (k *Kernel) Spawn(parentPid, tgid int, nice int8) (*proc.Record, error) {
	return k.table.Create(parentPid, tgid, nice, k.cfg.DefaultSliceNs)
}

// EnterSyscall is the kernel-stack reentry guard (spec.md §7): a CPU
// already inside a syscall calling back into the kernel observes
// ErrStackReentry instead of corrupting the live stack frame. Callers
// must pair every successful EnterSyscall with ExitSyscall.
func (k *Kernel) EnterSyscall(cpu int) error {
	k.mu.Lock()
	defer k.mu.Unlock()
	if cpu < 0 || cpu >= len(k.busy) {
		return kernelerr.New(kernelerr.InvariantViolation, "enter_syscall", "cpu index out of range")
	}
	if k.busy[cpu] {
		return kernelerr.ErrStackReentry
	}
	k.busy[cpu] = true
	return nil
}

// ExitSyscall releases the reentry guard EnterSyscall took.
func (k *Kernel) ExitSyscall(cpu int) {
	k.mu.Lock()
	defer k.mu.Unlock()
	if cpu >= 0 && cpu < len(k.busy) {
		k.busy[cpu] = false
	}
}

// Running reports the pid currently running on cpu, or 0 if idle.
func (k *Kernel) Running(cpu int) int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.running[cpu]
}

func (k *Kernel) setRunning(cpu, pid int) {
	k.mu.Lock()
	k.running[cpu] = pid
	k.mu.Unlock()
}
