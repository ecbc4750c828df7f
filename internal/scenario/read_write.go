package scenario

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/mharlan/quanta/internal/sched"
)

const (
	rwID     = 0
	rwNRead  = 3
	rwNWrite = 2
	rwRounds = 3
)

// ReadWrite is S4: NREAD readers and NWRITE writers cycling rw_rlock/rw_wlock
// against a single writer-preferring rwlock, grounded on readwrite.c. It
// checks the two mutual-exclusion invariants the lock promises: no writer
// ever overlaps a reader or another writer.
func ReadWrite(ctx context.Context) Result {
	const name = "S4-readwrite-lock"

	k := newKernel(2, time.Millisecond)

	var activeReaders, activeWriters atomic.Int32
	violation := make(chan string, 1)
	report := func(format string, args ...any) {
		select {
		case violation <- fmt.Sprintf(format, args...):
		default:
		}
	}

	var wg sync.WaitGroup
	wg.Add(rwNRead + rwNWrite)

	reader := func(id int) func(*sched.Proc) {
		return func(p *sched.Proc) {
			for i := 0; i < rwRounds; i++ {
				k.Sys.RWRLock(p, rwID)
				activeReaders.Add(1)
				if activeWriters.Load() != 0 {
					report("reader %d overlapped a writer", id)
				}
				k.Sys.Sleep(p, 20)
				activeReaders.Add(-1)
				k.Sys.RWRUnlock(p, rwID)
				k.Sys.Sleep(p, 30)
			}
			wg.Done()
			p.Exit(0)
		}
	}

	writer := func(id int) func(*sched.Proc) {
		return func(p *sched.Proc) {
			for i := 0; i < rwRounds; i++ {
				k.Sys.RWWLock(p, rwID)
				if activeReaders.Load() != 0 || activeWriters.Load() != 0 {
					report("writer %d overlapped another holder", id)
				}
				activeWriters.Add(1)
				k.Sys.Sleep(p, 40)
				activeWriters.Add(-1)
				k.Sys.RWWUnlock(p, rwID)
				k.Sys.Sleep(p, 40)
			}
			wg.Done()
			p.Exit(0)
		}
	}

	root := func(p *sched.Proc) {
		k.Sys.RWInit(rwID)

		for i := 0; i < rwNRead; i++ {
			k.Sys.Fork(p, fmt.Sprintf("reader-%d", i), reader(i))
		}
		for i := 0; i < rwNWrite; i++ {
			k.Sys.Fork(p, fmt.Sprintf("writer-%d", i), writer(i))
		}
		for i := 0; i < rwNRead+rwNWrite; i++ {
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
	case <-time.After(15 * time.Second):
		return fail(name, "timed out: readers/writers did not finish")
	}

	select {
	case msg := <-violation:
		return fail(name, "%s", msg)
	default:
		return ok(name, "%d reader and %d writer cycles completed with no overlap", rwNRead*rwRounds, rwNWrite*rwRounds)
	}
}
