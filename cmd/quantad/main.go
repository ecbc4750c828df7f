// Command quantad boots a kernel instance with a trivial init process and
// serves its debug HTTP surface until interrupted.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mharlan/quanta/internal/kconfig"
	"github.com/mharlan/quanta/internal/kernel"
	"github.com/mharlan/quanta/internal/sched"
)

func main() {
	cfg := kconfig.FromEnv()
	fmt.Printf("quantad starting: ncpu=%d tick=%s debug=%s\n", cfg.NCPU, cfg.TickInterval, cfg.DebugAddr)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	setupSignalHandler(cancel)

	k := kernel.New(cfg)

	// init reaps zombies as they arrive and otherwise sleeps, the same
	// forever-idle shape as xv6's init loop.
	initBody := func(p *sched.Proc) {
		for {
			if pid := k.Sys.Wait(p, nil); pid < 0 {
				k.Sys.Sleep(p, 1000)
			}
		}
	}

	if err := k.Boot(ctx, "init", initBody); err != nil {
		log.Fatalf("boot: %v", err)
	}

	go func() {
		dbg := kernel.NewDebugServer(k, cfg.DebugAddr)
		if err := dbg.Start(); err != nil {
			log.Printf("debug server exited: %v", err)
		}
	}()

	<-ctx.Done()
	fmt.Println("shutting down...")
	k.Shutdown()
	time.Sleep(200 * time.Millisecond)
}

func setupSignalHandler(cancel context.CancelFunc) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		fmt.Println("\nreceived termination signal")
		cancel()
	}()
}
