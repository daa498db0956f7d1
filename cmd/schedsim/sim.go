package main

import (
	"math/rand"

	"github.com/nexa-sys/nexa-os-sub006/internal/kernel"
	"github.com/nexa-sys/nexa-os-sub006/internal/proc"
	"go.uber.org/zap"
)

// buildKernel constructs a Kernel from the root command's persistent
// flags, the ambient-config path SPEC_FULL's AMBIENT STACK section
// describes (cobra flags, no persisted config file).
func buildKernel(log *zap.Logger) *kernel.Kernel {
	return kernel.New(kernel.Config{
		NumCPU:           flagCPUs,
		TableCapacity:    flagProcs * 4,
		DefaultSliceNs:   uint64(flagSliceNs),
		WaitListCapacity: flagWaitListCapacity,
		Debug:            flagDebug,
	}, log)
}

// spawnWorkload creates n processes as children of pid 0 (the simulated
// init), each with a uniformly random nice in [-spread, +spread], and
// admits them Ready.
func spawnWorkload(k *kernel.Kernel, n, spread int) ([]*proc.Record, error) {
	procs := make([]*proc.Record, 0, n)
	for i := 0; i < n; i++ {
		nice := int8(0)
		if spread > 0 {
			nice = int8(rand.Intn(2*spread+1) - spread)
		}
		r, err := k.Spawn(0, 0, nice)
		if err != nil {
			return nil, err
		}
		procs = append(procs, r)
	}
	return procs, nil
}

// driveCPU advances cpu by one switch point if idle, then returns the
// pid now running there (0 if the whole system has nothing runnable).
func driveCPU(k *kernel.Kernel, cpu int) (int, error) {
	if k.Running(cpu) == 0 {
		if err := k.Schedule(cpu); err != nil {
			return 0, err
		}
	}
	return k.Running(cpu), nil
}
