package ksync

import (
	"fmt"

	"github.com/mharlan/quanta/internal/sched"
	"github.com/mharlan/quanta/internal/spinlock"
)

const MaxRW = 32

type rwSlot struct {
	lock           *spinlock.Lock
	readers        int
	writer         bool
	waitingWriters int
}

// RWTable is a fixed table of MaxRW writer-preferring read/write locks.
type RWTable struct {
	slots [MaxRW]*rwSlot
}

// NewRWTable returns a table of unlocked, uncontended rwlocks.
func NewRWTable() *RWTable {
	t := &RWTable{}
	for i := range t.slots {
		t.slots[i] = &rwSlot{lock: spinlock.New(fmt.Sprintf("rwlock[%d]", i))}
	}
	return t
}

func (t *RWTable) slot(id int) (*rwSlot, error) {
	if id < 0 || id >= MaxRW {
		return nil, fmt.Errorf("ksync: rwlock id %d out of range", id)
	}
	return t.slots[id], nil
}

// Init resets rwlock id to its unlocked, uncontended state.
func (t *RWTable) Init(id int) error {
	rw, err := t.slot(id)
	if err != nil {
		return err
	}
	rw.lock.Acquire()
	rw.readers = 0
	rw.writer = false
	rw.waitingWriters = 0
	rw.lock.Release()
	return nil
}

// RLock acquires rwlock id for reading. A writer holding or waiting for the
// lock blocks new readers, implementing writer preference.
func (t *RWTable) RLock(p *sched.Proc, id int) error {
	rw, err := t.slot(id)
	if err != nil {
		return err
	}
	rw.lock.Acquire()
	for rw.writer || rw.waitingWriters > 0 {
		p.Sleep(sched.Chan(rw), rw.lock)
	}
	rw.readers++
	rw.lock.Release()
	return nil
}

// RUnlock releases a read hold on rwlock id, waking waiters if this was the
// last reader.
func (t *RWTable) RUnlock(p *sched.Proc, id int) error {
	rw, err := t.slot(id)
	if err != nil {
		return err
	}
	rw.lock.Acquire()
	rw.readers--
	if rw.readers == 0 {
		p.Wakeup(sched.Chan(rw))
	}
	rw.lock.Release()
	return nil
}

// WLock acquires rwlock id for exclusive writing, registering as a waiting
// writer first so arriving readers block behind it.
func (t *RWTable) WLock(p *sched.Proc, id int) error {
	rw, err := t.slot(id)
	if err != nil {
		return err
	}
	rw.lock.Acquire()
	rw.waitingWriters++
	for rw.writer || rw.readers > 0 {
		p.Sleep(sched.Chan(rw), rw.lock)
	}
	rw.waitingWriters--
	rw.writer = true
	rw.lock.Release()
	return nil
}

// WUnlock releases the exclusive hold on rwlock id and wakes all waiters.
func (t *RWTable) WUnlock(p *sched.Proc, id int) error {
	rw, err := t.slot(id)
	if err != nil {
		return err
	}
	rw.lock.Acquire()
	rw.writer = false
	p.Wakeup(sched.Chan(rw))
	rw.lock.Release()
	return nil
}
