// Package scenario runs the end-to-end behavioral scenarios used to verify
// the scheduler, aging, and synchronization primitives. Each scenario boots
// its own Kernel, drives a small process graph through ksyscall.Surface, and
// reports a pass/fail verdict plus a human-readable detail string — the Go
// equivalent of the original programs' printf-and-eyeball test shape, made
// machine-checkable.
package scenario

import (
	"context"
	"fmt"
	"time"

	"github.com/mharlan/quanta/internal/kconfig"
	"github.com/mharlan/quanta/internal/kernel"
	"github.com/mharlan/quanta/internal/sched"
)

// Result is the outcome of one scenario run.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

func fail(name, format string, args ...any) Result {
	return Result{Name: name, Passed: false, Detail: fmt.Sprintf(format, args...)}
}

func ok(name, format string, args ...any) Result {
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf(format, args...)}
}

// newKernel builds a fresh, isolated kernel for one scenario run, without
// booting it — callers define a root body closing over k.Sys, then call
// k.Boot themselves.
func newKernel(ncpu int, tick time.Duration) *kernel.Kernel {
	cfg := kconfig.Default()
	cfg.NCPU = ncpu
	cfg.TickInterval = tick
	return kernel.New(cfg)
}

// parkInit keeps a scenario's root body, which runs as init, from
// returning: init may not exit, so once its work is done it sleeps on ticks
// until the kernel is shut down.
func parkInit(k *kernel.Kernel, p *sched.Proc) {
	for {
		k.Sys.Sleep(p, 1000)
	}
}

// All runs every scenario in order and returns their results. Scenarios are
// independent (each boots its own kernel) so a failure in one does not
// affect the others.
func All(ctx context.Context) []Result {
	fns := []func(context.Context) Result{
		PriorityPreemption,
		Starvation,
		ProducerConsumer,
		ReadWrite,
		SleepWakeupRace,
		WaitCopyFailure,
	}
	results := make([]Result, 0, len(fns))
	for _, fn := range fns {
		results = append(results, fn(ctx))
	}
	return results
}
