// Package ksync implements the two synchronization primitive tables built
// on top of sched's sleep/wakeup mechanism: counting semaphores and
// writer-preferring read/write locks, each indexed by a small integer id.
package ksync

import (
	"fmt"

	"github.com/mharlan/quanta/internal/sched"
	"github.com/mharlan/quanta/internal/spinlock"
)

const MaxSem = 32

type semSlot struct {
	lock  *spinlock.Lock
	value int
}

// SemTable is a fixed table of MaxSem counting semaphores.
type SemTable struct {
	slots [MaxSem]*semSlot
}

// NewSemTable returns a table of unready semaphores, all at value 0.
func NewSemTable() *SemTable {
	t := &SemTable{}
	for i := range t.slots {
		t.slots[i] = &semSlot{lock: spinlock.New(fmt.Sprintf("sem[%d]", i))}
	}
	return t
}

func (t *SemTable) slot(id int) (*semSlot, error) {
	if id < 0 || id >= MaxSem {
		return nil, fmt.Errorf("ksync: semaphore id %d out of range", id)
	}
	return t.slots[id], nil
}

// Init sets semaphore id's count to value.
func (t *SemTable) Init(id, value int) error {
	s, err := t.slot(id)
	if err != nil {
		return err
	}
	s.lock.Acquire()
	s.value = value
	s.lock.Release()
	return nil
}

// Wait blocks the calling process until semaphore id is positive, then
// decrements it.
func (t *SemTable) Wait(p *sched.Proc, id int) error {
	s, err := t.slot(id)
	if err != nil {
		return err
	}
	s.lock.Acquire()
	for s.value == 0 {
		p.Sleep(sched.Chan(s), s.lock)
	}
	s.value--
	s.lock.Release()
	return nil
}

// Signal increments semaphore id and wakes any process waiting on it.
func (t *SemTable) Signal(p *sched.Proc, id int) error {
	s, err := t.slot(id)
	if err != nil {
		return err
	}
	s.lock.Acquire()
	s.value++
	p.Wakeup(sched.Chan(s))
	s.lock.Release()
	return nil
}
