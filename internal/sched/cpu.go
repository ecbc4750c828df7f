package sched

import (
	"sync/atomic"
	"time"
)

// CPU is a virtual CPU record: which slot it is currently running and its
// idle slot. Exactly one goroutine is ever "being" a given CPU at a time —
// whichever slot's body is currently Running on it — so the non-atomic
// fields need no lock.
//
// The source this models disables preemption across sched() with a
// noff/intena interrupt-nesting counter, since swtch() there keeps the
// caller's own lock held across the context switch. This implementation has
// no real interrupts to mask, and schedule() below never holds the calling
// slot's lock across the channel handoff — the slot's state is published
// and the lock released before schedule() is called — so there is no
// nesting counter to maintain. The equivalent misuse this model can still
// detect is enforced directly in schedule(): a caller whose own state is
// still Running when it calls in.
type CPU struct {
	idx            int
	idle           *Slot
	current        *Slot
	preemptPending atomic.Bool
}

// newIdleSlot builds the per-CPU idle slot: pid 0, lowest priority, never
// enqueued, reachable only through schedule()'s empty-runqueue fallback.
func (t *Table) newIdleSlot(cpuIdx int) *Slot {
	for _, s := range t.slots {
		s.mu.Acquire()
		if s.state == Unused {
			s.pid = 0
			s.name = "idle"
			s.state = Runnable
			s.basePrio = PrioMax
			s.prio = PrioMax
			s.waitTicks = 0
			s.rqNext = -1
			s.cpuIdx = cpuIdx
			s.mu.Release()
			return s
		}
		s.mu.Release()
	}
	panic("sched: no free slot for idle process")
}

// bootCPU starts the dispatch loop for one virtual CPU: it allocates that
// CPU's idle slot and runs the idle loop directly on a fresh goroutine,
// exactly as the source's scheduler() swtches straight into idle_main with
// no intervening dispatcher context.
func (t *Table) bootCPU(idx int) {
	c := &CPU{idx: idx}
	idle := t.newIdleSlot(idx)
	c.idle = idle
	c.current = idle
	t.cpus[idx] = c

	p := &Proc{slot: idle, table: t}
	go func() {
		for {
			t.schedule(p)
		}
	}()
}

// schedule is the fused pick-and-switch primitive: it is called by whichever
// slot is giving up the CPU (including idle), picks the next runnable slot
// (or idle, if none), and performs the handoff. It returns once the calling
// slot has been redispatched. The caller must hold no slot lock and must
// have already updated its own state away from Running (Runnable/Sleeping/
// Zombie) before calling; schedule panics if the state is still Running.
func (t *Table) schedule(p *Proc) {
	self := p.slot

	self.mu.Acquire()
	stillRunning := self.state == Running
	self.mu.Release()
	if stillRunning {
		panic("sched: schedule called with state still RUNNING")
	}

	c := t.cpus[self.cpuIdx]

	for {
		cand := t.pickNext()
		if cand == nil {
			cand = c.idle
		} else {
			cand.mu.Acquire()
			if cand.state != Runnable {
				cand.mu.Release()
				continue
			}
			cand.state = Running
			cand.waitTicks = 0
			cand.mu.Release()
		}

		if cand == self {
			if cand == c.idle {
				select {
				case <-t.wake:
				case <-time.After(idleBackoffN * time.Microsecond):
				}
				continue
			}
			return
		}

		cand.cpuIdx = c.idx
		c.current = cand

		cand.resume <- struct{}{}
		<-self.resume
		return
	}
}

// runBody is the goroutine entry point for every non-idle process slot. It
// parks until its first dispatch, then runs the process body to completion,
// exiting the process implicitly if the body returns without calling Exit.
func (t *Table) runBody(s *Slot) {
	<-s.resume
	p := &Proc{slot: s, table: t}
	s.body(p)
	t.exit(p, 0)
}
