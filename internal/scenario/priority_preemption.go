package scenario

import (
	"context"
	"sync"
	"time"

	"github.com/mharlan/quanta/internal/sched"
)

type tickRecord struct {
	tag  byte
	tick uint64
}

// PriorityPreemption is S1: fork low-priority L, let it run a while, then
// fork high-priority H. Once H starts recording, L must stop appearing —
// strict priority preemption, not round-robin sharing. Grounded on
// prio_test.c's busy_work/pipe-of-logrec shape, with the pipe replaced by a
// buffered Go channel.
func PriorityPreemption(ctx context.Context) Result {
	const name = "S1-priority-preemption"

	k := newKernel(2, time.Millisecond)
	records := make(chan tickRecord, 4096)
	var wg sync.WaitGroup
	wg.Add(1)

	busyWork := func(tag byte, rounds int) func(*sched.Proc) {
		return func(cp *sched.Proc) {
			for i := 0; i < rounds; i++ {
				if i%50000 == 0 {
					records <- tickRecord{tag: tag, tick: k.Table.Uptime()}
					cp.CheckPreempt()
				}
			}
			cp.Exit(0)
		}
	}

	root := func(p *sched.Proc) {
		k.Sys.ForkPrio(p, "L", sched.PrioDefault, busyWork('L', 6_000_000))
		k.Sys.Sleep(p, 20)
		k.Sys.ForkPrio(p, "H", 0, busyWork('H', 6_000_000))
		k.Sys.Wait(p, nil)
		k.Sys.Wait(p, nil)
		close(records)
		wg.Done()
		parkInit(k, p)
	}

	if err := k.Boot(ctx, "root", root); err != nil {
		return fail(name, "boot: %v", err)
	}
	defer k.Shutdown()

	done := make(chan struct{})
	go func() { wg.Wait(); close(done) }()
	select {
	case <-done:
	case <-time.After(10 * time.Second):
		return fail(name, "timed out waiting for scenario to finish")
	}

	seenH := false
	var lastHTick uint64
	for rec := range records {
		if rec.tag == 'H' {
			seenH = true
			lastHTick = rec.tick
		}
		if seenH && rec.tag == 'L' && rec.tick > lastHTick+1 {
			return fail(name, "low-priority record at tick %d after high-priority reached tick %d", rec.tick, lastHTick)
		}
	}
	if !seenH {
		return fail(name, "high-priority process never recorded a tick")
	}
	return ok(name, "no low-priority activity observed once high-priority ran")
}
