package scenario

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/mharlan/quanta/internal/sched"
)

// sleepWakeupTrials is capped by the process table: each trial forks a
// consumer and a producer and they all run concurrently, so its 2*29 = 58
// children must fit in NPROC (64) next to root and the four CPUs' idle
// slots. It also stays under MaxSem (32), since each trial claims one
// semaphore id for its signal/wait pair.
const sleepWakeupTrials = 29

// SleepWakeupRace is S5: repeatedly races a sem_signal against a sem_wait
// that has not yet reached its sleep point, verifying the no-lost-wakeup
// property the sleep/wakeup channel protocol promises — a waiter that
// observes the semaphore still at zero is guaranteed to be asleep (holding
// the semaphore's own lock across the check-and-sleep) before any signal
// bound for it can be delivered, so the wakeup can never arrive early and be
// dropped. There is no original-source program for this property; it is
// built directly from the primitive's contract.
func SleepWakeupRace(ctx context.Context) Result {
	const name = "S5-sleep-wakeup-race"

	k := newKernel(4, time.Millisecond)

	var wg sync.WaitGroup
	wg.Add(sleepWakeupTrials)

	hangs := make(chan int, sleepWakeupTrials)

	consumer := func(trial int) func(*sched.Proc) {
		return func(p *sched.Proc) {
			if k.Sys.SemWait(p, trial) != 0 {
				hangs <- trial
			}
			wg.Done()
			p.Exit(0)
		}
	}
	producer := func(trial int) func(*sched.Proc) {
		return func(p *sched.Proc) {
			k.Sys.SemSignal(p, trial)
			p.Exit(0)
		}
	}

	root := func(p *sched.Proc) {
		for t := 0; t < sleepWakeupTrials; t++ {
			k.Sys.SemInit(t, 0)
			k.Sys.Fork(p, fmt.Sprintf("consumer-%d", t), consumer(t))
			k.Sys.Fork(p, fmt.Sprintf("producer-%d", t), producer(t))
		}
		for i := 0; i < sleepWakeupTrials*2; i++ {
			k.Sys.Wait(p, nil)
		}
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
	case <-time.After(20 * time.Second):
		return fail(name, "timed out after %d trials: at least one sem_wait never woke (possible lost wakeup)", sleepWakeupTrials)
	}

	if len(hangs) > 0 {
		return fail(name, "%d of %d trials reported a non-zero sem_wait result", len(hangs), sleepWakeupTrials)
	}
	return ok(name, "%d concurrent signal/wait races resolved with no lost wakeup", sleepWakeupTrials)
}
