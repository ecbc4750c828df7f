package sched

import (
	"fmt"

	"github.com/mharlan/quanta/internal/spinlock"
)

// Spawn installs the first process in the table (the init-equivalent
// bootstrap) and makes it runnable on the global runqueue. It must be called once, after
// Boot has brought the CPUs up, before anything else can run.
func (t *Table) Spawn(name string, body func(*Proc)) int {
	s, ok := t.allocate()
	if !ok {
		panic("sched: Spawn found no free slot")
	}
	s.name = name
	s.body = body
	s.parent = -1
	pid := s.pid
	t.initIdx = s.idx
	s.state = Runnable
	t.enqueue(nil, s)
	s.mu.Release()

	go t.runBody(s)
	return pid
}

// Fork creates a new process slot inheriting the caller's priority, starts
// its goroutine parked for first dispatch, and makes it runnable. childBody
// is the workload the child will run — the stand-in for "fork returns twice"
// in a language where a function cannot resume in two places, a process
// here is defined by the body it's given rather than by duplicating the
// caller's control-flow position. Returns the child's pid, or an error if
// the table is full.
func (p *Proc) Fork(name string, childBody func(*Proc)) (int, error) {
	return p.forkPrio(name, -1, childBody)
}

// ForkPrio is Fork with an explicit starting priority instead of inheriting
// the caller's, used by callers (scenario setup, admission control) that
// need to place a child at a specific priority rather than PRIO_DEFAULT or
// the parent's current level.
func (p *Proc) ForkPrio(name string, prio int, childBody func(*Proc)) (int, error) {
	return p.forkPrio(name, prio, childBody)
}

func (p *Proc) forkPrio(name string, prio int, childBody func(*Proc)) (int, error) {
	t := p.table
	parent := p.slot

	child, ok := t.allocate()
	if !ok {
		return -1, fmt.Errorf("sched: fork: no free process slot")
	}
	child.name = name
	child.body = childBody
	pid := child.pid
	child.mu.Release()

	t.waitLock.Acquire()
	child.parent = parent.idx
	t.waitLock.Release()

	child.mu.Acquire()
	child.state = Runnable
	if prio >= 0 {
		child.basePrio = prio
		child.prio = prio
	} else {
		child.prio = parent.prio
	}
	child.waitTicks = 0
	t.enqueue(parent, child)
	child.mu.Release()

	go t.runBody(child)
	return pid, nil
}

// reparent gives p's children to init, waking init in case it is already
// waiting. Caller holds t.waitLock.
func (t *Table) reparent(p *Proc, self *Slot) {
	if t.initIdx < 0 {
		return
	}
	initSlot := t.slots[t.initIdx]
	for _, pp := range t.slots {
		if pp.parent == self.idx {
			pp.parent = t.initIdx
		}
	}
	p.Wakeup(Chan(initSlot))
}

// exit is the shared implementation behind Proc.Exit and the implicit exit a
// process body triggers by returning.
func (t *Table) exit(p *Proc, status int) {
	self := p.slot

	if self.idx == t.initIdx {
		panic("sched: init exiting")
	}

	t.waitLock.Acquire()
	t.reparent(p, self)

	if self.parent >= 0 {
		p.Wakeup(Chan(t.slots[self.parent]))
	}

	self.mu.Acquire()
	self.xstate = status
	self.state = Zombie
	t.waitLock.Release()
	self.mu.Release()

	t.schedule(p)
	panic("sched: zombie resumed")
}

// Exit terminates the calling process with the given status. The process
// remains a Zombie until its parent calls Wait. Exit never returns.
func (p *Proc) Exit(status int) {
	p.table.exit(p, status)
}

// Wait blocks until a child exits, returning its pid. It returns -1 if the
// caller has no children, and also if the caller has been killed while
// waiting.
//
// copyOut, if non-nil, is called with the exited child's exit status while
// still holding the child's slot; if it returns an error the child is left
// as a Zombie (not reaped) and Wait returns (-1, err), matching the
// copy-failure error kind: the caller may retry the wait later. A nil
// copyOut never fails.
func (p *Proc) Wait(copyOut func(xstate int) error) (int, error) {
	t := p.table
	self := p.slot

	t.waitLock.Acquire()
	for {
		haveKids := false
		for _, pp := range t.slots {
			if pp.parent != self.idx {
				continue
			}
			pp.mu.Acquire()
			haveKids = true
			if pp.state == Zombie {
				pid := pp.pid
				xstate := pp.xstate
				if copyOut != nil {
					if err := copyOut(xstate); err != nil {
						pp.mu.Release()
						t.waitLock.Release()
						return -1, err
					}
				}
				t.free(pp)
				pp.mu.Release()
				t.waitLock.Release()
				return pid, nil
			}
			pp.mu.Release()
		}

		if !haveKids || p.Killed() {
			t.waitLock.Release()
			return -1, nil
		}

		// Sleep on our own slot as the channel: a child's exit() wakes
		// whoever is sleeping on its parent's slot. Sleep reacquires
		// waitLock before returning, so the loop invariant (waitLock
		// held at top) still holds.
		p.Sleep(Chan(self), t.waitLock)
	}
}

// Kill marks the process with the given pid for termination, waking it if
// it is sleeping. Returns an error if no such process exists.
func (t *Table) Kill(pid int) error {
	if pid == 0 {
		return fmt.Errorf("sched: kill: pid 0 is an idle slot, not killable")
	}
	for _, s := range t.slots {
		s.mu.Acquire()
		if s.pid == pid && s.state != Unused {
			s.killed = true
			if s.state == Sleeping {
				s.state = Runnable
				s.waitTicks = 0
				t.enqueue(nil, s)
			}
			s.mu.Release()
			return nil
		}
		s.mu.Release()
	}
	return fmt.Errorf("sched: kill: no such process %d", pid)
}

// Yield gives up the CPU for one scheduling round, re-entering the runqueue
// at the caller's current priority.
func (p *Proc) Yield() {
	t := p.table
	self := p.slot

	self.mu.Acquire()
	self.state = Runnable
	self.waitTicks = 0
	t.enqueue(self, self)
	self.mu.Release()

	t.schedule(p)
}

// Sleep atomically releases ext and blocks the caller until Wakeup(ch) is
// called, then reacquires ext before returning.
func (p *Proc) Sleep(ch Chan, ext *spinlock.Lock) {
	t := p.table
	self := p.slot

	self.mu.Acquire()
	ext.Release()

	self.ch = ch
	if self.state == Runnable {
		t.dequeue(self)
	}
	self.state = Sleeping
	self.mu.Release()

	t.schedule(p)

	self.mu.Acquire()
	self.ch = nil
	self.mu.Release()

	ext.Acquire()
}

// Wakeup wakes every process sleeping on ch. It must be called with no slot
// lock held.
func (p *Proc) Wakeup(ch Chan) {
	p.table.wakeupAll(p.slot, ch)
}

// WakeupAll wakes every process sleeping on ch. It has no notion of "the
// calling process" (it is meant for callers outside any process context,
// such as the tick driver broadcasting on TickChan), so it never raises a
// CPU's preempt_pending flag. It must be called with no slot lock held.
func (t *Table) WakeupAll(ch Chan) {
	t.wakeupAll(nil, ch)
}

func (t *Table) wakeupAll(caller *Slot, ch Chan) {
	for _, s := range t.slots {
		if caller != nil && s == caller {
			continue
		}
		s.mu.Acquire()
		if s.state == Sleeping && s.ch == ch {
			s.state = Runnable
			s.waitTicks = 0
			t.enqueue(caller, s)
		}
		s.mu.Release()
	}
}
