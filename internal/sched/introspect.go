package sched

// ProcInfo is a read-only snapshot of one process slot, for debug surfaces.
type ProcInfo struct {
	Pid    int    `json:"pid"`
	Name   string `json:"name"`
	State  string `json:"state"`
	Prio   int    `json:"prio"`
	Parent int    `json:"parent"`
}

// Snapshot returns a point-in-time view of every non-Unused process slot.
func (t *Table) Snapshot() []ProcInfo {
	out := make([]ProcInfo, 0, NPROC)
	for _, s := range t.slots {
		s.mu.Acquire()
		if s.state != Unused {
			out = append(out, ProcInfo{
				Pid:    s.pid,
				Name:   s.name,
				State:  s.state.String(),
				Prio:   s.prio,
				Parent: s.parent,
			})
		}
		s.mu.Release()
	}
	return out
}

// RunqueueLevel is one occupied priority bucket's size, for debug surfaces.
type RunqueueLevel struct {
	Prio  int `json:"prio"`
	Count int `json:"count"`
}

// RunqueueSnapshot returns the occupied bucket sizes of the global runqueue,
// ordered from highest to lowest priority.
func (t *Table) RunqueueSnapshot() []RunqueueLevel {
	t.rq.lock.Acquire()
	defer t.rq.lock.Release()

	out := make([]RunqueueLevel, 0)
	for pr := 0; pr < NPRIO; pr++ {
		n := 0
		for cur := t.rq.buckets[pr].head; cur >= 0; cur = t.slots[cur].rqNext {
			n++
		}
		if n > 0 {
			out = append(out, RunqueueLevel{Prio: pr, Count: n})
		}
	}
	return out
}
