// Package trap drives the periodic tick that feeds sched's aging and
// preemption hook. The driver itself is platform-specific (trap_linux.go,
// trap_other.go); this file holds the shared loop shape.
package trap

import (
	"context"
	"time"

	"github.com/mharlan/quanta/internal/klog"
)

// Ticker is whatever a platform driver implements to deliver one tick per
// call to Wait, blocking until it fires or ctx is done.
type Ticker interface {
	Wait(ctx context.Context) error
	Close() error
}

// Hook is called once per tick.
type Hook func()

// Run drives hook at the rate ticker produces ticks until ctx is canceled.
// It is meant to run on its own goroutine, started from kernel.Boot.
func Run(ctx context.Context, ticker Ticker, hook Hook, log *klog.Logger) {
	defer ticker.Close()
	for {
		if err := ticker.Wait(ctx); err != nil {
			if ctx.Err() == nil {
				log.Printf("tick source error: %v", err)
				time.Sleep(time.Millisecond)
				continue
			}
			return
		}
		hook()
	}
}
