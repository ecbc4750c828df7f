package sched

// Boot starts ncpu dispatch loops, one per virtual CPU, each parked on its
// own idle slot until the runqueue has work. ncpu is clamped to [1, NCPU].
func (t *Table) Boot(ncpu int) {
	if ncpu < 1 {
		ncpu = 1
	}
	if ncpu > NCPU {
		ncpu = NCPU
	}
	t.nCPU = ncpu
	for i := 0; i < ncpu; i++ {
		t.bootCPU(i)
	}
}

// Tick is the trap hook: it runs the aging pass, wakes sleepers on
// TickChan, and raises preempt_pending on every CPU whose running slot
// shouldPreempt, so that slot yields at its next check. Since this implementation has no real interrupt to
// reenter user code on, preemption is delivered cooperatively — the running
// slot's body is expected to call CheckPreempt at safe points, the
// equivalent of xv6's trap-return check.
func (t *Table) Tick() {
	t.ticks.Add(1)
	t.agingTick()
	t.WakeupAll(TickChan)

	for i := 0; i < t.nCPU; i++ {
		c := t.cpus[i]
		if c == nil || c.current == nil || c.current == c.idle {
			continue
		}
		if t.shouldPreempt(c.current.prio) {
			c.preemptPending.Store(true)
		}
	}
}

// SleepTicks blocks the caller for roughly n ticks, sleeping on TickChan and
// re-checking elapsed time on every wakeup (spurious or real). It returns
// false if the caller was killed while waiting.
func (t *Table) SleepTicks(p *Proc, n uint64) bool {
	target := t.Uptime() + n
	t.ticksLock.Acquire()
	for t.Uptime() < target {
		if p.Killed() {
			t.ticksLock.Release()
			return false
		}
		p.Sleep(TickChan, t.ticksLock)
	}
	t.ticksLock.Release()
	return true
}

// CheckPreempt yields the caller if its CPU's preempt_pending flag is set,
// clearing the flag first. Process bodies call this at loop-iteration
// boundaries, standing in for the check performed on every timer
// interrupt's return to user space in the source this models.
func (p *Proc) CheckPreempt() {
	c := p.table.cpus[p.slot.cpuIdx]
	if !c.preemptPending.CompareAndSwap(true, false) {
		return
	}
	p.Yield()
}

// Uptime returns the number of ticks delivered since boot.
func (t *Table) Uptime() uint64 {
	return t.ticks.Load()
}
