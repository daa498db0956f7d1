package main

import (
	"fmt"
	"math/rand"
	"os"
	"text/tabwriter"

	"github.com/nexa-sys/nexa-os-sub006/internal/proc"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var flagTicks int

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "simulate a workload of processes across timer ticks and print a fairness summary",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSim()
		},
	}
	cmd.Flags().IntVar(&flagTicks, "ticks", 10_000, "number of timer ticks to simulate")
	return cmd
}

func runSim() error {
	log, err := newLogger()
	if err != nil {
		return err
	}
	defer log.Sync()

	k := buildKernel(log)
	procs, err := spawnWorkload(k, flagProcs, flagNiceSpread)
	if err != nil {
		return fmt.Errorf("spawn workload: %w", err)
	}

	for cpu := 0; cpu < flagCPUs; cpu++ {
		if _, err := driveCPU(k, cpu); err != nil {
			return fmt.Errorf("initial schedule cpu %d: %w", cpu, err)
		}
	}

	const tickNs = 1_000_000 // 1ms per simulated tick
	var now uint64
	for tick := 0; tick < flagTicks; tick++ {
		now += tickNs
		for cpu := 0; cpu < flagCPUs; cpu++ {
			delta := tickNs/2 + uint64(rand.Intn(int(tickNs)))
			if err := k.TimerTick(cpu, delta, now); err != nil {
				log.Error("timer tick failed", zap.Int("cpu", cpu), zap.Error(err))
				return err
			}
			if _, err := driveCPU(k, cpu); err != nil {
				return err
			}
		}
	}

	printSummary(procs)
	return nil
}

func printSummary(procs []*proc.Record) {
	tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "PID\tNICE\tWEIGHT\tSTATE\tTOTAL_TIME_NS\tVRUNTIME")
	for _, r := range procs {
		fmt.Fprintf(tw, "%d\t%d\t%d\t%s\t%d\t%d\n",
			r.Pid, r.Entry.Nice, r.Entry.Weight, r.State(), r.Entry.TotalTimeNs, r.Entry.Vruntime)
	}
	tw.Flush()
}
