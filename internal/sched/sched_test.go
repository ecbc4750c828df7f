package sched

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/mharlan/quanta/internal/klog"
)

func newTestTable(ncpu int) *Table {
	t := NewTable(klog.New("test"))
	t.Boot(ncpu)
	return t
}

func waitFor(t *testing.T, done <-chan struct{}, d time.Duration, msg string) {
	t.Helper()
	select {
	case <-done:
	case <-time.After(d):
		t.Fatal(msg)
	}
}

// parkInit keeps a test's root body, which runs as init, from returning:
// init may not exit, so it sleeps on ticks instead. These tables have no
// tick driver, so it never wakes.
func parkInit(tbl *Table, p *Proc) {
	for {
		tbl.SleepTicks(p, 1)
	}
}

func TestForkWaitExit(t *testing.T) {
	tbl := newTestTable(2)
	var wg sync.WaitGroup
	wg.Add(1)

	var childPid, waitedPid int
	var gotStatus int

	root := func(p *Proc) {
		pid, err := p.Fork("child", func(cp *Proc) {
			cp.Exit(7)
		})
		if err != nil {
			t.Errorf("fork: %v", err)
		}
		childPid = pid

		waitedPid, _ = p.Wait(func(xstate int) error {
			gotStatus = xstate
			return nil
		})
		wg.Done()
		parkInit(tbl, p)
	}
	tbl.Spawn("root", root)

	done := make(chan struct{})
	go func() { wg.Wait(); close(done) }()
	waitFor(t, done, 5*time.Second, "fork/wait/exit did not complete")

	if waitedPid != childPid {
		t.Fatalf("Wait returned pid %d, want %d", waitedPid, childPid)
	}
	if gotStatus != 7 {
		t.Fatalf("exit status = %d, want 7", gotStatus)
	}
}

func TestWaitNoChildrenReturnsMinusOne(t *testing.T) {
	tbl := newTestTable(1)
	var wg sync.WaitGroup
	wg.Add(1)
	var got int
	tbl.Spawn("root", func(p *Proc) {
		got, _ = p.Wait(nil)
		wg.Done()
		parkInit(tbl, p)
	})
	done := make(chan struct{})
	go func() { wg.Wait(); close(done) }()
	waitFor(t, done, 5*time.Second, "wait-with-no-children did not return")
	if got != -1 {
		t.Fatalf("Wait with no children = %d, want -1", got)
	}
}

func TestWaitCopyFailureLeavesZombieUnreaped(t *testing.T) {
	tbl := newTestTable(1)
	var wg sync.WaitGroup
	wg.Add(1)

	var firstPid, secondPid, secondStatus int
	var firstErr error

	tbl.Spawn("root", func(p *Proc) {
		childPid, _ := p.Fork("child", func(cp *Proc) { cp.Exit(9) })

		firstPid, firstErr = p.Wait(func(xstate int) error {
			return errTestCopy
		})
		if firstPid != -1 || firstErr == nil {
			t.Errorf("first Wait = (%d, %v), want (-1, non-nil)", firstPid, firstErr)
		}

		secondPid, _ = p.Wait(func(xstate int) error {
			secondStatus = xstate
			return nil
		})
		if secondPid != childPid {
			t.Errorf("second Wait returned %d, want the same zombie %d", secondPid, childPid)
		}
		wg.Done()
		parkInit(tbl, p)
	})

	done := make(chan struct{})
	go func() { wg.Wait(); close(done) }()
	waitFor(t, done, 5*time.Second, "copy-failure retry scenario did not complete")
	if secondStatus != 9 {
		t.Fatalf("second Wait's exit status = %d, want 9", secondStatus)
	}
}

var errTestCopy = errors.New("simulated copy failure")

func TestPriorityPreemption(t *testing.T) {
	tbl := newTestTable(1)
	var wg sync.WaitGroup
	wg.Add(1)

	highRan := make(chan struct{})
	var lowSawHighDone bool

	tbl.Spawn("root", func(p *Proc) {
		p.ForkPrio("low", PrioDefault, func(lp *Proc) {
			select {
			case <-highRan:
				lowSawHighDone = true
			default:
			}
			lp.Exit(0)
		})
		p.ForkPrio("high", 0, func(hp *Proc) {
			close(highRan)
			hp.Exit(0)
		})
		p.Wait(nil)
		p.Wait(nil)
		wg.Done()
		parkInit(tbl, p)
	})

	done := make(chan struct{})
	go func() { wg.Wait(); close(done) }()
	waitFor(t, done, 5*time.Second, "priority preemption scenario did not complete")

	if !lowSawHighDone {
		t.Fatal("low-priority slot ran before the high-priority slot it lost the runqueue race to")
	}
}

func TestKillWakesSleeper(t *testing.T) {
	tbl := newTestTable(2)
	var wg sync.WaitGroup
	wg.Add(1)

	var childPid int
	var killedSeen bool

	tbl.Spawn("root", func(p *Proc) {
		pid, _ := p.Fork("sleeper", func(cp *Proc) {
			tbl.ticksLock.Acquire()
			cp.Sleep(TickChan, tbl.ticksLock)
			tbl.ticksLock.Release()
			killedSeen = cp.Killed()
			cp.Exit(0)
		})
		childPid = pid
		time.Sleep(10 * time.Millisecond)
		if err := tbl.Kill(childPid); err != nil {
			t.Errorf("kill: %v", err)
		}
		p.Wait(nil)
		wg.Done()
		parkInit(tbl, p)
	})

	done := make(chan struct{})
	go func() { wg.Wait(); close(done) }()
	waitFor(t, done, 5*time.Second, "kill did not wake sleeping child")
	if !killedSeen {
		t.Fatal("killed child never observed Killed() == true")
	}
}

func TestAgingRaisesQueuedPriority(t *testing.T) {
	tbl := NewTable(klog.New("test"))
	s, ok := tbl.allocate()
	if !ok {
		t.Fatal("allocate failed")
	}
	s.state = Runnable
	s.prio = PrioDefault
	s.waitTicks = 0
	tbl.enqueue(nil, s)
	s.mu.Release()

	for i := 0; i < AgingTicks; i++ {
		tbl.agingTick()
	}

	s.mu.Acquire()
	got := s.prio
	s.mu.Release()
	if got != PrioDefault-1 {
		t.Fatalf("priority after %d ticks = %d, want %d", AgingTicks, got, PrioDefault-1)
	}
}

func TestAgingNeverGoesBelowPrioMin(t *testing.T) {
	tbl := NewTable(klog.New("test"))
	s, ok := tbl.allocate()
	if !ok {
		t.Fatal("allocate failed")
	}
	s.state = Runnable
	s.prio = PrioMin
	s.waitTicks = 0
	tbl.enqueue(nil, s)
	s.mu.Release()

	for i := 0; i < AgingTicks*3; i++ {
		tbl.agingTick()
	}

	s.mu.Acquire()
	got := s.prio
	s.mu.Release()
	if got != PrioMin {
		t.Fatalf("priority at floor after aging = %d, want %d", got, PrioMin)
	}
}

func TestRunqueuePicksLowestNumberedPrioFirst(t *testing.T) {
	tbl := NewTable(klog.New("test"))

	var slots []*Slot
	for _, pr := range []int{10, 3, 7} {
		s, ok := tbl.allocate()
		if !ok {
			t.Fatal("allocate failed")
		}
		s.state = Runnable
		s.prio = pr
		tbl.enqueue(nil, s)
		s.mu.Release()
		slots = append(slots, s)
	}

	first := tbl.pickNext()
	if first == nil || first.prio != 3 {
		t.Fatalf("pickNext = %+v, want prio 3 slot", first)
	}
	second := tbl.pickNext()
	if second == nil || second.prio != 7 {
		t.Fatalf("pickNext = %+v, want prio 7 slot", second)
	}
	third := tbl.pickNext()
	if third == nil || third.prio != 10 {
		t.Fatalf("pickNext = %+v, want prio 10 slot", third)
	}
	if tbl.pickNext() != nil {
		t.Fatal("pickNext on empty runqueue returned non-nil")
	}
	_ = slots
}

func TestShouldPreempt(t *testing.T) {
	tbl := NewTable(klog.New("test"))
	if tbl.shouldPreempt(PrioDefault) {
		t.Fatal("empty runqueue should never signal preemption")
	}

	s, ok := tbl.allocate()
	if !ok {
		t.Fatal("allocate failed")
	}
	s.state = Runnable
	s.prio = 5
	tbl.enqueue(nil, s)
	s.mu.Release()

	if !tbl.shouldPreempt(10) {
		t.Fatal("higher-priority runnable slot should trigger preemption for a lower-priority current slot")
	}
	if !tbl.shouldPreempt(5) {
		t.Fatal("shouldPreempt must use <=, so an equal-priority runnable slot still preempts (round robin)")
	}
	if tbl.shouldPreempt(2) {
		t.Fatal("a strictly higher-priority current slot should not be preempted")
	}
}

func TestInitExitPanics(t *testing.T) {
	tbl := newTestTable(1)
	caught := make(chan any, 1)

	init := func(p *Proc) {
		defer func() {
			caught <- recover()
			parkInit(tbl, p)
		}()
		p.Exit(0)
	}
	tbl.Spawn("init", init)

	select {
	case r := <-caught:
		if r == nil {
			t.Fatal("init exiting should have panicked")
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for init's Exit to panic")
	}
}
