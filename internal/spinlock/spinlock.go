// Package spinlock implements the short spinlock primitive that the process
// table, runqueue, and synchronization tables are built on.
package spinlock

import (
	"fmt"
	"runtime"
	"sync/atomic"

	"golang.org/x/sys/cpu"
)

const activeSpins = 30

// Lock is a CAS-based mutual exclusion lock meant to be held only briefly —
// never across a call that can block or switch goroutines. Name is used in
// panic messages.
//
// _ cpu.CacheLinePad pads the struct so two locks never share a cache line;
// under NCPU=8 contention on the runqueue lock that sharing is the dominant
// cost once the CAS itself is uncontended.
type Lock struct {
	held atomic.Bool
	_    cpu.CacheLinePad
	Name string
}

// New returns a ready-to-use, unheld lock.
func New(name string) *Lock {
	return &Lock{Name: name}
}

// Acquire spins briefly before yielding the goroutine, avoiding a full
// scheduler park for the common case of an uncontended or short critical
// section.
func (l *Lock) Acquire() {
	for i := 0; ; i++ {
		if l.held.CompareAndSwap(false, true) {
			return
		}
		if i >= activeSpins {
			runtime.Gosched()
		}
	}
}

// Release unlocks l. Releasing an unheld lock is a policy violation.
func (l *Lock) Release() {
	if !l.held.CompareAndSwap(true, false) {
		panic(fmt.Sprintf("spinlock: release of unheld lock %q", l.Name))
	}
}

// Holding reports whether the lock is currently held by anyone. It exists
// for assertions (panics on misuse), not for synchronization.
func (l *Lock) Holding() bool {
	return l.held.Load()
}
