package main

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/nexa-sys/nexa-os-sub006/internal/proc"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var flagIterations int

func newRaceCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "race",
		Short: "hammer the sleep/wake anti-lost-wakeup protocol concurrently and report the outcome",
		Long: `race reproduces the classic sleep/wake race from spec.md §8 scenario 1: one
goroutine plays the consumer about to call set_state(self, Sleeping),
another plays an interrupt calling wake(self) concurrently. Every
iteration must end with the process either correctly refused the sleep
(wake_pending defended it) or correctly woken back up -- a "lost wakeup"
(Sleeping with nothing left to ever wake it) is a fatal finding.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRace()
		},
	}
	cmd.Flags().IntVar(&flagIterations, "iterations", 200_000, "number of racing sleep/wake attempts")
	return cmd
}

func runRace() error {
	log, err := newLogger()
	if err != nil {
		return err
	}
	defer log.Sync()

	k := buildKernel(log)
	r, err := k.Spawn(0, 0, 0)
	if err != nil {
		return fmt.Errorf("spawn: %w", err)
	}
	sm := k.Table().StateMachine()

	if _, err := sm.SetState(r, proc.Running); err != nil {
		return fmt.Errorf("initial transition to running: %w", err)
	}

	var refusedByWakePending, genuineSleeps, lostWakeups int64
	for i := 0; i < flagIterations; i++ {
		var wg sync.WaitGroup
		wg.Add(1)
		go func() {
			defer wg.Done()
			sm.Wake(r, proc.WakeData)
		}()

		accepted, _ := sm.SetState(r, proc.Sleeping)
		wg.Wait()

		if accepted {
			// The sleep won the race, so the concurrent wake above ran
			// after it and must have moved the process back to Ready.
			atomic.AddInt64(&genuineSleeps, 1)
			if r.State() == proc.Sleeping {
				atomic.AddInt64(&lostWakeups, 1)
				log.Error("lost wakeup observed", zap.Int("iteration", i))
				break
			}
			if _, err := sm.SetState(r, proc.Running); err != nil {
				return fmt.Errorf("re-running after wake at iteration %d: %w", i, err)
			}
		} else {
			atomic.AddInt64(&refusedByWakePending, 1)
		}
	}

	log.Info("race summary",
		zap.Int("iterations", flagIterations),
		zap.Int64("refused_by_wake_pending", refusedByWakePending),
		zap.Int64("genuine_sleeps", genuineSleeps),
		zap.Int64("lost_wakeups", lostWakeups),
	)
	if lostWakeups > 0 {
		return fmt.Errorf("observed %d lost wakeups out of %d iterations", lostWakeups, flagIterations)
	}
	fmt.Printf("no lost wakeups across %d iterations (%d refused, %d genuine sleeps)\n",
		flagIterations, refusedByWakePending, genuineSleeps)
	return nil
}
