package sched

// rqPushTail appends s to bucket prio's FIFO. Caller holds rq.lock.
func (t *Table) rqPushTail(prio int, s *Slot) {
	b := &t.rq.buckets[prio]
	s.rqNext = -1
	if b.tail >= 0 {
		t.slots[b.tail].rqNext = s.idx
		b.tail = s.idx
	} else {
		b.head, b.tail = s.idx, s.idx
	}
	if t.rq.highestNonempty < 0 || prio < t.rq.highestNonempty {
		t.rq.highestNonempty = prio
	}
}

// rqRemove unlinks s from bucket prio if present. Caller holds rq.lock.
func (t *Table) rqRemove(prio int, s *Slot) {
	b := &t.rq.buckets[prio]
	prev := -1
	cur := b.head
	for cur >= 0 {
		if cur == s.idx {
			if prev >= 0 {
				t.slots[prev].rqNext = t.slots[cur].rqNext
			} else {
				b.head = t.slots[cur].rqNext
			}
			if b.tail == cur {
				b.tail = prev
			}
			t.slots[cur].rqNext = -1
			break
		}
		prev = cur
		cur = t.slots[cur].rqNext
	}
	if b.head < 0 && t.rq.highestNonempty == prio {
		h := -1
		for i := range t.rq.buckets {
			if t.rq.buckets[i].head >= 0 {
				h = i
				break
			}
		}
		t.rq.highestNonempty = h
	}
}

// enqueue makes s runnable-and-queued. caller is whichever slot is currently
// executing this call (used only to raise preempt_pending on its CPU); it
// may be nil when there is no meaningful "current" process (boot time).
// The caller must already hold s.mu.
func (t *Table) enqueue(caller *Slot, s *Slot) {
	t.rq.lock.Acquire()
	s.waitTicks = 0
	t.rqPushTail(s.prio, s)
	t.rq.lock.Release()

	t.wakeIdle()

	if caller != nil && caller.state == Running && s.prio < caller.prio {
		if caller.cpuIdx >= 0 {
			t.cpus[caller.cpuIdx].preemptPending.Store(true)
		}
	}
}

// dequeue removes s from the runqueue if it is currently linked there. The
// caller must already hold s.mu.
func (t *Table) dequeue(s *Slot) {
	t.rq.lock.Acquire()
	t.rqRemove(s.prio, s)
	t.rq.lock.Release()
}

// pickNext removes and returns the head of the highest-priority non-empty
// bucket, or nil if the runqueue is empty.
func (t *Table) pickNext() *Slot {
	t.rq.lock.Acquire()
	h := t.rq.highestNonempty
	if h < 0 {
		t.rq.lock.Release()
		return nil
	}
	idx := t.rq.buckets[h].head
	var s *Slot
	if idx >= 0 {
		s = t.slots[idx]
		t.rqRemove(h, s)
	}
	t.rq.lock.Release()
	return s
}

// highestNonemptyPrio reports the priority level of the highest-priority
// non-empty bucket, or -1 if the runqueue is empty.
func (t *Table) highestNonemptyPrio() int {
	t.rq.lock.Acquire()
	defer t.rq.lock.Release()
	return t.rq.highestNonempty
}

// shouldPreempt reports whether a runnable process exists whose priority is
// at least as good as curPrio.
func (t *Table) shouldPreempt(curPrio int) bool {
	h := t.highestNonemptyPrio()
	if h < 0 {
		return false
	}
	return h <= curPrio
}

// agingTick runs the per-tick aging pass over every queued (Runnable, not
// Running) process: processes waiting AgingTicks ticks move up one priority
// level. This does not touch each slot's own lock — matching the discipline
// the runqueue's source process uses, since a queued slot's own goroutine is
// parked and cannot race this field with anything but kill()'s killed flag,
// a field aging never touches.
func (t *Table) agingTick() {
	t.rq.lock.Acquire()
	defer t.rq.lock.Release()

	for pr := 0; pr < NPRIO; pr++ {
		cur := t.rq.buckets[pr].head
		for cur >= 0 {
			s := t.slots[cur]
			next := s.rqNext
			s.waitTicks++
			if s.waitTicks >= AgingTicks && s.prio > PrioMin {
				t.rqRemove(pr, s)
				s.prio--
				s.waitTicks = 0
				t.rqPushTail(s.prio, s)
			}
			cur = next
		}
	}
}

func (t *Table) wakeIdle() {
	select {
	case t.wake <- struct{}{}:
	default:
	}
}
