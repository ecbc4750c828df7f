package kernel

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/mharlan/quanta/internal/kconfig"
	"github.com/mharlan/quanta/internal/sched"
)

func testConfig() kconfig.Config {
	cfg := kconfig.Default()
	cfg.NCPU = 2
	cfg.TickInterval = time.Millisecond
	return cfg
}

// parkInit keeps a test's root body, which runs as init, from returning:
// init may not exit, so it sleeps on ticks until the test ends.
func parkInit(k *Kernel, p *sched.Proc) {
	for {
		k.Sys.Sleep(p, 1000)
	}
}

func TestBootRunsRootProcess(t *testing.T) {
	k := New(testConfig())

	var wg sync.WaitGroup
	wg.Add(1)
	var ranWithSessionID string

	root := func(p *sched.Proc) {
		ranWithSessionID = k.SessionID
		wg.Done()
		parkInit(k, p)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := k.Boot(ctx, "root", root); err != nil {
		t.Fatalf("Boot: %v", err)
	}
	defer k.Shutdown()

	done := make(chan struct{})
	go func() { wg.Wait(); close(done) }()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("root process never ran")
	}
	if ranWithSessionID == "" {
		t.Fatal("SessionID was empty inside the root process")
	}
}

func TestUptimeAdvancesWithTicks(t *testing.T) {
	k := New(testConfig())

	var wg sync.WaitGroup
	wg.Add(1)
	root := func(p *sched.Proc) {
		wg.Done()
		parkInit(k, p)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := k.Boot(ctx, "root", root); err != nil {
		t.Fatalf("Boot: %v", err)
	}
	defer k.Shutdown()

	done := make(chan struct{})
	go func() { wg.Wait(); close(done) }()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("root process never ran")
	}

	deadline := time.Now().Add(2 * time.Second)
	for k.Uptime() == 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	if k.Uptime() == 0 {
		t.Fatal("Uptime never advanced past zero")
	}
}

func TestShutdownStopsTickDriver(t *testing.T) {
	k := New(testConfig())

	var wg sync.WaitGroup
	wg.Add(1)
	root := func(p *sched.Proc) {
		wg.Done()
		parkInit(k, p)
	}

	ctx := context.Background()
	if err := k.Boot(ctx, "root", root); err != nil {
		t.Fatalf("Boot: %v", err)
	}

	done := make(chan struct{})
	go func() { wg.Wait(); close(done) }()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("root process never ran")
	}

	shutdownDone := make(chan struct{})
	go func() { k.Shutdown(); close(shutdownDone) }()
	select {
	case <-shutdownDone:
	case <-time.After(5 * time.Second):
		t.Fatal("Shutdown did not return — tick driver goroutine likely leaked")
	}
}
