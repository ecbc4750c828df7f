package scenario

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/mharlan/quanta/internal/sched"
)

const (
	pcNBuf  = 5
	pcNProd = 2
	pcNCons = 2
	pcItems = 10

	semEmpty = 0
	semFull  = 1
	semMutex = 2
)

type pcEvent struct {
	produced bool
	value    int
	inMutex  bool
}

// ProducerConsumer is S3: a bounded ring buffer shared by two producers and
// two consumers, coordinated by three semaphores (empty slots, full slots,
// mutual exclusion), grounded on prodcons.c. It checks that every produced
// value is consumed exactly once and that no two critical sections overlap.
func ProducerConsumer(ctx context.Context) Result {
	const name = "S3-producer-consumer"

	k := newKernel(2, time.Millisecond)

	var buf [pcNBuf]int
	in, out := 0, 0

	var mu sync.Mutex
	var inCrit bool
	events := make(chan pcEvent, pcNProd*pcItems*2)
	overlap := make(chan struct{}, 1)

	enterCrit := func() {
		mu.Lock()
		if inCrit {
			select {
			case overlap <- struct{}{}:
			default:
			}
		}
		inCrit = true
		mu.Unlock()
	}
	leaveCrit := func() {
		mu.Lock()
		inCrit = false
		mu.Unlock()
	}

	put := func(x int) {
		buf[in] = x
		in = (in + 1) % pcNBuf
	}
	get := func() int {
		x := buf[out]
		out = (out + 1) % pcNBuf
		return x
	}

	var wg sync.WaitGroup
	wg.Add(pcNProd + pcNCons)

	producer := func(id int) func(*sched.Proc) {
		return func(p *sched.Proc) {
			for i := 0; i < pcItems; i++ {
				k.Sys.SemWait(p, semEmpty)
				k.Sys.SemWait(p, semMutex)

				enterCrit()
				v := i + id*100
				put(v)
				events <- pcEvent{produced: true, value: v}
				leaveCrit()

				k.Sys.SemSignal(p, semMutex)
				k.Sys.SemSignal(p, semFull)
				k.Sys.Sleep(p, 20)
			}
			wg.Done()
			p.Exit(0)
		}
	}

	consumer := func(id int) func(*sched.Proc) {
		return func(p *sched.Proc) {
			for i := 0; i < pcItems; i++ {
				k.Sys.SemWait(p, semFull)
				k.Sys.SemWait(p, semMutex)

				enterCrit()
				v := get()
				events <- pcEvent{produced: false, value: v}
				leaveCrit()

				k.Sys.SemSignal(p, semMutex)
				k.Sys.SemSignal(p, semEmpty)
				k.Sys.Sleep(p, 40)
			}
			wg.Done()
			p.Exit(0)
		}
	}

	root := func(p *sched.Proc) {
		k.Sys.SemInit(semEmpty, pcNBuf)
		k.Sys.SemInit(semFull, 0)
		k.Sys.SemInit(semMutex, 1)

		for i := 0; i < pcNProd; i++ {
			k.Sys.Fork(p, fmt.Sprintf("producer-%d", i), producer(i))
		}
		for i := 0; i < pcNCons; i++ {
			k.Sys.Fork(p, fmt.Sprintf("consumer-%d", i), consumer(i))
		}
		for i := 0; i < pcNProd+pcNCons; i++ {
			k.Sys.Wait(p, nil)
		}
		close(events)
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
	case <-time.After(15 * time.Second):
		return fail(name, "timed out: producers/consumers did not finish (possible deadlock)")
	}

	select {
	case <-overlap:
		return fail(name, "two critical sections overlapped despite SEM_MUTEX")
	default:
	}

	produced := make(map[int]int)
	consumed := make(map[int]int)
	for ev := range events {
		if ev.produced {
			produced[ev.value]++
		} else {
			consumed[ev.value]++
		}
	}

	var g errgroup.Group
	g.Go(func() error {
		if len(produced) != pcNProd*pcItems {
			return fmt.Errorf("expected %d distinct produced values, got %d", pcNProd*pcItems, len(produced))
		}
		for v, n := range produced {
			if n != 1 {
				return fmt.Errorf("value %d produced %d times, want 1", v, n)
			}
		}
		return nil
	})
	g.Go(func() error {
		if len(consumed) != pcNProd*pcItems {
			return fmt.Errorf("expected %d distinct consumed values, got %d", pcNProd*pcItems, len(consumed))
		}
		for v, n := range consumed {
			if n != 1 {
				return fmt.Errorf("value %d consumed %d times, want 1", v, n)
			}
		}
		return nil
	})
	g.Go(func() error {
		for v := range produced {
			if consumed[v] == 0 {
				return fmt.Errorf("value %d produced but never consumed", v)
			}
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return fail(name, "%v", err)
	}
	return ok(name, "all %d items produced and consumed exactly once, no critical-section overlap", pcNProd*pcItems)
}
