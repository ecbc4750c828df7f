// Package ksyscall exposes the kernel's primitives to process bodies as a
// flat, validated system-call surface, matching the return convention in
// spec §6: 0 on success for status-only calls, a payload otherwise, -1 for
// out-of-range ids or policy errors.
package ksyscall

import (
	"github.com/mharlan/quanta/internal/ksync"
	"github.com/mharlan/quanta/internal/sched"
)

// Surface bundles the process table and the two synchronization tables a
// process body needs to reach every syscall in spec §6.
type Surface struct {
	Table *sched.Table
	Sem   *ksync.SemTable
	RW    *ksync.RWTable
}

// Fork creates name's child process running childBody, returning its pid or
// -1 if the process table is full.
func (s *Surface) Fork(p *sched.Proc, name string, childBody func(*sched.Proc)) int {
	pid, err := p.Fork(name, childBody)
	if err != nil {
		return -1
	}
	return pid
}

// ForkPrio is Fork with an explicit starting priority for the child.
func (s *Surface) ForkPrio(p *sched.Proc, name string, prio int, childBody func(*sched.Proc)) int {
	pid, err := p.ForkPrio(name, prio, childBody)
	if err != nil {
		return -1
	}
	return pid
}

// Exit terminates the calling process with status. It never returns.
func (s *Surface) Exit(p *sched.Proc, status int) {
	p.Exit(status)
}

// Wait blocks for a child to exit, writing its exit status through copyOut
// (nil if the caller doesn't care) and returning its pid, or -1 on no
// children, kill, or copy failure.
func (s *Surface) Wait(p *sched.Proc, copyOut func(xstate int) error) int {
	pid, _ := p.Wait(copyOut)
	return pid
}

// Kill marks pid for termination. Returns 0 on success, -1 if no such
// process exists.
func (s *Surface) Kill(pid int) int {
	if err := s.Table.Kill(pid); err != nil {
		return -1
	}
	return 0
}

// Sleep blocks the caller for roughly ticks timer ticks. Returns -1 if the
// caller was killed while waiting.
func (s *Surface) Sleep(p *sched.Proc, ticks uint64) int {
	if !s.Table.SleepTicks(p, ticks) {
		return -1
	}
	return 0
}

// Uptime returns the number of ticks delivered since boot.
func (s *Surface) Uptime() uint64 {
	return s.Table.Uptime()
}

// SemInit sets semaphore id's count to value. Returns 0 or -1.
func (s *Surface) SemInit(id, value int) int {
	if err := s.Sem.Init(id, value); err != nil {
		return -1
	}
	return 0
}

// SemWait blocks until semaphore id is positive, then decrements it.
func (s *Surface) SemWait(p *sched.Proc, id int) int {
	if err := s.Sem.Wait(p, id); err != nil {
		return -1
	}
	return 0
}

// SemSignal increments semaphore id, waking any waiter.
func (s *Surface) SemSignal(p *sched.Proc, id int) int {
	if err := s.Sem.Signal(p, id); err != nil {
		return -1
	}
	return 0
}

// RWInit resets rwlock id to unlocked.
func (s *Surface) RWInit(id int) int {
	if err := s.RW.Init(id); err != nil {
		return -1
	}
	return 0
}

// RWRLock acquires rwlock id for reading.
func (s *Surface) RWRLock(p *sched.Proc, id int) int {
	if err := s.RW.RLock(p, id); err != nil {
		return -1
	}
	return 0
}

// RWRUnlock releases a read hold on rwlock id.
func (s *Surface) RWRUnlock(p *sched.Proc, id int) int {
	if err := s.RW.RUnlock(p, id); err != nil {
		return -1
	}
	return 0
}

// RWWLock acquires rwlock id for exclusive writing.
func (s *Surface) RWWLock(p *sched.Proc, id int) int {
	if err := s.RW.WLock(p, id); err != nil {
		return -1
	}
	return 0
}

// RWWUnlock releases the exclusive hold on rwlock id.
func (s *Surface) RWWUnlock(p *sched.Proc, id int) int {
	if err := s.RW.WUnlock(p, id); err != nil {
		return -1
	}
	return 0
}
