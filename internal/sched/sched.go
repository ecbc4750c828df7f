// Package sched implements the process table, the priority-aging runqueue,
// the per-CPU dispatch loop, and the sleep/wakeup condition mechanism. These
// four pieces share one fixed process table and a small set of lock-ordering
// rules, so they live in one package the way xv6's proc.c keeps them in one
// file.
package sched

import (
	"fmt"
	"sync/atomic"

	"github.com/mharlan/quanta/internal/klog"
	"github.com/mharlan/quanta/internal/spinlock"
)

const (
	NPROC        = 64
	NCPU         = 8
	NPRIO        = 32
	PrioMin      = 0
	PrioMax      = NPRIO - 1
	PrioDefault  = 20
	AgingTicks   = 20
	idleBackoffN = 500 // microseconds, how long an idle CPU waits between polls
)

// State is a process slot's lifecycle state.
type State int

const (
	Unused State = iota
	Used
	Sleeping
	Runnable
	Running
	Zombie
)

func (s State) String() string {
	switch s {
	case Unused:
		return "unused"
	case Used:
		return "used"
	case Sleeping:
		return "sleeping"
	case Runnable:
		return "runnable"
	case Running:
		return "running"
	case Zombie:
		return "zombie"
	default:
		return "?"
	}
}

// Chan is the sleep-channel key: any comparable value can serve as a wait
// address. Callers typically pass the address of a semaphore or rwlock slot,
// or one of the well-known sentinels this package exports (TickChan).
type Chan any

// TickChan is the well-known wait channel for "sleep N ticks".
var TickChan Chan = &struct{ name string }{"ticks"}

// Slot is one entry in the fixed process table.
type Slot struct {
	mu *spinlock.Lock

	idx       int
	pid       int
	state     State
	name      string
	basePrio  int
	prio      int
	waitTicks int
	rqNext    int // index into Table.slots, -1 = none
	ch        Chan
	killed    bool
	xstate    int
	cpuIdx    int // which CPU is running this slot; meaningful only while Running

	parent int // index into Table.slots, -1 = none; guarded by Table.waitLock

	resume chan struct{}
	body   func(*Proc)

	table *Table
}

// Proc is the handle a running process body uses to call back into the
// kernel. It is passed to every body function and to every syscall-layer
// helper that needs to know "who is calling this."
type Proc struct {
	slot  *Slot
	table *Table
}

// Pid returns the caller's process id.
func (p *Proc) Pid() int { return p.slot.pid }

// Prio returns the caller's current effective priority.
func (p *Proc) Prio() int {
	p.slot.mu.Acquire()
	defer p.slot.mu.Release()
	return p.slot.prio
}

// Killed reports whether the caller has been marked for termination.
func (p *Proc) Killed() bool {
	p.slot.mu.Acquire()
	defer p.slot.mu.Release()
	return p.slot.killed
}

// Table is the fixed-size process table plus the global runqueue, the pid
// allocator, and the per-CPU records. One Table backs one kernel instance.
type Table struct {
	slots [NPROC]*Slot

	pidLock *spinlock.Lock
	nextPid int

	waitLock  *spinlock.Lock
	ticksLock *spinlock.Lock

	rq rqueue

	cpus    [NCPU]*CPU
	nCPU    int
	initIdx int

	wake  chan struct{}
	ticks atomic.Uint64

	log *klog.Logger
}

type rqueue struct {
	lock            *spinlock.Lock
	buckets         [NPRIO]bucket
	highestNonempty int
}

type bucket struct {
	head, tail int // slot indices, -1 = empty
}

// NewTable allocates an empty process table. Every slot starts Unused.
func NewTable(log *klog.Logger) *Table {
	t := &Table{
		pidLock:   spinlock.New("pid_lock"),
		waitLock:  spinlock.New("wait_lock"),
		ticksLock: spinlock.New("tickslock"),
		nextPid:   1,
		initIdx:   -1,
		wake:      make(chan struct{}, 1),
		log:       log,
	}
	t.rq.lock = spinlock.New("runq")
	t.rq.highestNonempty = -1
	for i := range t.rq.buckets {
		t.rq.buckets[i] = bucket{head: -1, tail: -1}
	}
	for i := range t.slots {
		t.slots[i] = &Slot{
			mu:     spinlock.New(fmt.Sprintf("proc[%d]", i)),
			idx:    i,
			state:  Unused,
			rqNext: -1,
			parent: -1,
			cpuIdx: -1,
			resume: make(chan struct{}),
			table:  t,
		}
	}
	return t
}

func (t *Table) allocPid() int {
	t.pidLock.Acquire()
	defer t.pidLock.Release()
	pid := t.nextPid
	t.nextPid++
	return pid
}

// allocate scans the table for an Unused slot, reserves it, and returns it
// with the caller-visible fields zeroed and its lock held. It returns
// (nil, false) if the table is full — the resource-exhaustion path callers
// must handle, mirroring the original's kalloc-failure convention.
func (t *Table) allocate() (*Slot, bool) {
	for _, s := range t.slots {
		s.mu.Acquire()
		if s.state == Unused {
			s.pid = t.allocPid()
			s.state = Used
			s.basePrio = PrioDefault
			s.prio = PrioDefault
			s.waitTicks = 0
			s.rqNext = -1
			s.ch = nil
			s.killed = false
			s.xstate = 0
			s.cpuIdx = -1
			s.name = ""
			return s, true
		}
		s.mu.Release()
	}
	t.log.Debugf("allocate: table full, all %d slots in use", NPROC)
	return nil, false
}

// free resets a slot to Unused. Caller must hold s.mu and is expected to
// release it afterward.
func (t *Table) free(s *Slot) {
	s.pid = 0
	s.name = ""
	s.parent = -1
	s.ch = nil
	s.killed = false
	s.xstate = 0
	s.rqNext = -1
	s.cpuIdx = -1
	s.state = Unused
}
