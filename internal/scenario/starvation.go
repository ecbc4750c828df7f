package scenario

import (
	"context"
	"sync"
	"time"

	"github.com/mharlan/quanta/internal/sched"
)

// Starvation is S2: a continuously-running, non-yielding H at priority 0
// alongside a waiting L at priority 20. Aging must raise L's effective
// priority to 0 within 20*20=400 ticks and it must be dispatched at least
// once, grounded on schedtest.c's run_test1 round-robin/preemption shape.
func Starvation(ctx context.Context) Result {
	const name = "S2-aging-starvation"

	k := newKernel(1, time.Millisecond)
	var wg sync.WaitGroup
	wg.Add(1)

	lRan := make(chan struct{}, 1)

	hBody := func(p *sched.Proc) {
		for k.Table.Uptime() < uint64(sched.AgingTicks*sched.PrioDefault+50) {
			p.CheckPreempt()
		}
		p.Exit(0)
	}

	lBody := func(p *sched.Proc) {
		select {
		case lRan <- struct{}{}:
		default:
		}
		p.Exit(0)
	}

	root := func(p *sched.Proc) {
		k.Sys.ForkPrio(p, "H", 0, hBody)
		k.Sys.ForkPrio(p, "L", sched.PrioDefault, lBody)
		k.Sys.Wait(p, nil)
		k.Sys.Wait(p, nil)
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
		return fail(name, "timed out: low-priority process starved past the aging deadline")
	}

	select {
	case <-lRan:
		return ok(name, "low-priority process was dispatched via aging within the deadline")
	default:
		return fail(name, "low-priority process completed without ever being observed running")
	}
}
