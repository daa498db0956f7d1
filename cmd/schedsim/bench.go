package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var flagBenchTicks int

func newBenchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bench",
		Short: "measure timer-tick/reschedule throughput for a spawned workload",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBench()
		},
	}
	cmd.Flags().IntVar(&flagBenchTicks, "ticks", 500_000, "number of timer ticks to drive through the benchmark")
	return cmd
}

func runBench() error {
	log, err := newLogger()
	if err != nil {
		return err
	}
	defer log.Sync()

	k := buildKernel(log)
	if _, err := spawnWorkload(k, flagProcs, flagNiceSpread); err != nil {
		return fmt.Errorf("spawn workload: %w", err)
	}
	for cpu := 0; cpu < flagCPUs; cpu++ {
		if _, err := driveCPU(k, cpu); err != nil {
			return err
		}
	}

	const tickNs = 1_000_000
	start := time.Now()
	var now uint64
	for tick := 0; tick < flagBenchTicks; tick++ {
		now += tickNs
		for cpu := 0; cpu < flagCPUs; cpu++ {
			if err := k.TimerTick(cpu, tickNs, now); err != nil {
				return err
			}
			if _, err := driveCPU(k, cpu); err != nil {
				return err
			}
		}
	}
	elapsed := time.Since(start)

	totalOps := flagBenchTicks * flagCPUs
	opsPerSec := float64(totalOps) / elapsed.Seconds()
	log.Info("bench complete",
		zap.Int("ticks", flagBenchTicks),
		zap.Int("cpus", flagCPUs),
		zap.Int("procs", flagProcs),
		zap.Duration("elapsed", elapsed),
		zap.Float64("ops_per_sec", opsPerSec),
	)
	fmt.Printf("%d tick-cpu ops in %s (%.0f ops/sec)\n", totalOps, elapsed, opsPerSec)
	return nil
}
