// Command schedsim is a userspace-facing simulation harness for the
// scheduler core in internal/sched, internal/proc, internal/waitq,
// internal/ctxswitch and internal/kernel. It is outside the kernel
// boundary, so unlike the kernel packages it logs through structured,
// leveled go.uber.org/zap logging rather than printf/panic.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	flagCPUs             int
	flagProcs            int
	flagNiceSpread       int
	flagSliceNs          int64
	flagWaitListCapacity int
	flagDebug            bool
	flagVerbose          bool
)

func newLogger() (*zap.Logger, error) {
	if flagVerbose {
		return zap.NewDevelopment()
	}
	cfg := zap.NewProductionConfig()
	cfg.DisableStacktrace = true
	return cfg.Build()
}

func main() {
	root := &cobra.Command{
		Use:   "schedsim",
		Short: "EEVDF scheduler core simulation harness",
		Long: `schedsim drives the nexa-os-sub006 scheduler core (nice/weight table,
scheduler entries, per-CPU run queues, wait lists, timer tick, and
context-switch glue) outside of any real kernel, for demonstration,
race-condition reproduction, and throughput benchmarking.`,
	}

	root.PersistentFlags().IntVar(&flagCPUs, "cpus", 4, "number of simulated CPUs")
	root.PersistentFlags().IntVar(&flagProcs, "procs", 32, "number of simulated processes")
	root.PersistentFlags().IntVar(&flagNiceSpread, "nice-spread", 10, "processes are given a random nice in [-spread, +spread]")
	root.PersistentFlags().Int64Var(&flagSliceNs, "slice-ns", 4_000_000, "default scheduling slice, in nanoseconds")
	root.PersistentFlags().IntVar(&flagWaitListCapacity, "wait-list-capacity", 8, "default wait-list ring capacity")
	root.PersistentFlags().BoolVar(&flagDebug, "debug", false, "panic (instead of only logging) on an invariant violation")
	root.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "use a development (debug-level, console-encoded) logger")

	root.AddCommand(newRunCmd())
	root.AddCommand(newRaceCmd())
	root.AddCommand(newBenchCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
