package scenario

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/mharlan/quanta/internal/sched"
)

// WaitCopyFailure is S6: a child exits before its parent's first Wait call,
// whose copyOut callback deliberately fails. The zombie must be left
// unreaped so a second, succeeding Wait can still retry and reap it —
// built directly from the Wait copy-failure contract; no original-source
// program exercises it.
func WaitCopyFailure(ctx context.Context) Result {
	const name = "S6-wait-copy-failure"

	k := newKernel(1, time.Millisecond)

	errCopy := errors.New("simulated copyout fault")

	var once sync.Once
	failNext := true

	var wg sync.WaitGroup
	wg.Add(1)

	var (
		firstPid, firstErrPid int
		firstErr              error
		secondPid             int
		secondXstate          int
	)

	child := func(p *sched.Proc) {
		p.Exit(42)
	}

	root := func(p *sched.Proc) {
		pid, err := p.Fork("child", child)
		if err != nil {
			wg.Done()
			parkInit(k, p)
		}
		firstPid = pid

		k.Sys.Sleep(p, 5)

		once.Do(func() {
			firstErrPid, firstErr = p.Wait(func(xstate int) error {
				if failNext {
					failNext = false
					return errCopy
				}
				return nil
			})
		})

		secondPid, _ = p.Wait(func(xstate int) error {
			secondXstate = xstate
			return nil
		})

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

	if firstErrPid != -1 || firstErr == nil {
		return fail(name, "first Wait with a failing copyOut returned (%d, %v), want (-1, non-nil)", firstErrPid, firstErr)
	}
	if secondPid != firstPid {
		return fail(name, "second Wait returned pid %d, want the same zombie child %d left unreaped by the first call", secondPid, firstPid)
	}
	if secondXstate != 42 {
		return fail(name, "second Wait reported exit status %d, want 42", secondXstate)
	}
	return ok(name, "zombie child %s left unreaped after a failing copyOut, reaped on retry", fmt.Sprintf("pid=%d", firstPid))
}
