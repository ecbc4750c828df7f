// Package kernel wires the process table, the synchronization tables, and
// the tick driver into a single bootable unit — the Agent/Server-equivalent
// top-level type for this module.
package kernel

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mharlan/quanta/internal/kconfig"
	"github.com/mharlan/quanta/internal/klog"
	"github.com/mharlan/quanta/internal/ksync"
	"github.com/mharlan/quanta/internal/ksyscall"
	"github.com/mharlan/quanta/internal/sched"
	"github.com/mharlan/quanta/internal/trap"
)

// Kernel is the boot session: a process table, its synchronization tables,
// the syscall surface they're exposed through, and the tick driver.
type Kernel struct {
	Config kconfig.Config
	Table  *sched.Table
	Sys    *ksyscall.Surface

	SessionID string

	log *klog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	ticker trap.Ticker
}

// New builds a Kernel from cfg without starting it.
func New(cfg kconfig.Config) *Kernel {
	log := klog.New("kernel").SetVerbose(cfg.Verbose)
	table := sched.NewTable(klog.New("sched").SetVerbose(cfg.Verbose))

	return &Kernel{
		Config: cfg,
		Table:  table,
		Sys: &ksyscall.Surface{
			Table: table,
			Sem:   ksync.NewSemTable(),
			RW:    ksync.NewRWTable(),
		},
		SessionID: uuid.NewString(),
		log:       log,
	}
}

// Boot starts Config.NCPU dispatcher goroutines and the tick driver, and
// installs the root process. It returns once boot is complete; it does not
// block — call Wait (or watch ctx) to block until Shutdown.
func (k *Kernel) Boot(ctx context.Context, rootName string, rootBody func(*sched.Proc)) error {
	k.ctx, k.cancel = context.WithCancel(ctx)

	k.logBanner()

	k.Table.Boot(k.Config.NCPU)

	ticker, err := trap.NewTicker(k.Config.TickInterval)
	if err != nil {
		return fmt.Errorf("kernel: starting tick driver: %w", err)
	}
	k.ticker = ticker

	k.wg.Add(1)
	go func() {
		defer k.wg.Done()
		trap.Run(k.ctx, ticker, k.Table.Tick, klog.New("trap").SetVerbose(k.Config.Verbose))
	}()

	k.Table.Spawn(rootName, rootBody)
	return nil
}

// Shutdown cancels the kernel's context and waits for the tick driver to
// stop. Process-slot goroutines that are parked mid-switch are not joined.
func (k *Kernel) Shutdown() {
	if k.cancel != nil {
		k.cancel()
	}
	k.wg.Wait()
}

// Wait blocks until the kernel's context is canceled.
func (k *Kernel) Wait() {
	if k.ctx != nil {
		<-k.ctx.Done()
	}
}

func (k *Kernel) logBanner() {
	hostCPUs, clkTck := hostInfo()
	k.log.Printf("boot session=%s virtual-cpus=%d host-cpus=%d clk_tck=%d tick=%s",
		k.SessionID, k.Config.NCPU, hostCPUs, clkTck, k.Config.TickInterval)
}

// Uptime returns time elapsed since boot measured in ticks rather than wall
// clock, per the process table's tick counter.
func (k *Kernel) Uptime() uint64 {
	return k.Table.Uptime()
}

// UptimeWall is a convenience read of wall-clock tick period times tick
// count, for human-readable debug output only.
func (k *Kernel) UptimeWall() time.Duration {
	return time.Duration(k.Table.Uptime()) * k.Config.TickInterval
}
