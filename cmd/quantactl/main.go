// Command quantactl is the local operator CLI: it can boot a disposable
// kernel and drive it interactively, or run the behavioral scenario suite
// and report pass/fail.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"github.com/charmbracelet/x/term"
	"golang.org/x/exp/slices"

	"github.com/mharlan/quanta/internal/kconfig"
	"github.com/mharlan/quanta/internal/kernel"
	"github.com/mharlan/quanta/internal/scenario"
	"github.com/mharlan/quanta/internal/sched"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "scenario":
		runScenarios()
	case "monitor":
		runMonitor()
	case "repl":
		runRepl()
	default:
		usage()
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: quantactl <scenario|monitor|repl>")
}

func runScenarios() {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	results := scenario.All(ctx)
	slices.SortFunc(results, func(a, b scenario.Result) int {
		if a.Name < b.Name {
			return -1
		}
		if a.Name > b.Name {
			return 1
		}
		return 0
	})

	failed := 0
	for _, r := range results {
		status := "PASS"
		if !r.Passed {
			status = "FAIL"
			failed++
		}
		fmt.Printf("[%s] %-28s %s\n", status, r.Name, r.Detail)
	}
	if failed > 0 {
		fmt.Printf("\n%d of %d scenarios failed\n", failed, len(results))
		os.Exit(1)
	}
	fmt.Printf("\nall %d scenarios passed\n", len(results))
}

// runMonitor boots a small demo kernel and redraws its process table and
// runqueue occupancy once a second until the operator hits Ctrl-C.
func runMonitor() {
	cfg := kconfig.Default()
	cfg.NCPU = 2
	k := kernel.New(cfg)

	root := func(p *sched.Proc) {
		for i := 0; i < 3; i++ {
			p.ForkPrio(fmt.Sprintf("demo-%d", i), sched.PrioDefault-i*5, func(cp *sched.Proc) {
				for {
					k.Sys.Sleep(cp, 200)
				}
			})
		}
		for {
			k.Sys.Sleep(p, 1000)
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	setupSignalHandler(cancel)

	if err := k.Boot(ctx, "root", root); err != nil {
		fmt.Fprintf(os.Stderr, "boot: %v\n", err)
		os.Exit(1)
	}
	defer k.Shutdown()

	fmt.Println("quantactl monitor — press Ctrl-C to exit")
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			printSnapshot(k)
		}
	}
}

func printSnapshot(k *kernel.Kernel) {
	fmt.Printf("\n--- uptime=%d ticks (%s) ---\n", k.Uptime(), k.UptimeWall())

	procs := k.Table.Snapshot()
	sort.Slice(procs, func(i, j int) bool { return procs[i].Pid < procs[j].Pid })
	fmt.Printf("%-6s %-12s %-10s %-6s %-6s\n", "PID", "NAME", "STATE", "PRIO", "PARENT")
	for _, p := range procs {
		fmt.Printf("%-6d %-12s %-10s %-6d %-6d\n", p.Pid, p.Name, p.State, p.Prio, p.Parent)
	}

	fmt.Println("runqueue:")
	for _, lvl := range k.Table.RunqueueSnapshot() {
		fmt.Printf("  prio=%-3d count=%d\n", lvl.Prio, lvl.Count)
	}
}

func setupSignalHandler(cancel context.CancelFunc) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		fmt.Println("\nexiting monitor")
		cancel()
	}()
}

type replCmd byte

const (
	replFork replCmd = 'f'
	replKill replCmd = 'k'
	replPs   replCmd = 'p'
)

// runRepl boots a kernel and drives it from single, unbuffered keystrokes:
// f forks a child, k kills the most recently forked child, p prints a
// snapshot, q quits. The terminal is put into raw mode for the duration so
// keystrokes are delivered one at a time with no line buffering or local
// echo.
func runRepl() {
	fd := int(os.Stdin.Fd())
	state, err := term.MakeRaw(fd)
	if err != nil {
		fmt.Fprintf(os.Stderr, "repl requires an interactive terminal: %v\n", err)
		os.Exit(1)
	}
	defer term.Restore(fd, state)

	cfg := kconfig.Default()
	cfg.NCPU = 2
	k := kernel.New(cfg)

	cmds := make(chan replCmd)
	var lastPid int

	root := func(p *sched.Proc) {
		for cmd := range cmds {
			switch cmd {
			case replFork:
				pid, err := p.Fork("repl-child", func(cp *sched.Proc) {
					for {
						k.Sys.Sleep(cp, 500)
					}
				})
				if err != nil {
					fmt.Printf("\r\nfork failed: %v\r\n", err)
					continue
				}
				lastPid = pid
				fmt.Printf("\r\nforked pid %d\r\n", pid)
			case replKill:
				if lastPid == 0 {
					fmt.Print("\r\nno child to kill\r\n")
					continue
				}
				if err := k.Table.Kill(lastPid); err != nil {
					fmt.Printf("\r\nkill failed: %v\r\n", err)
				} else {
					fmt.Printf("\r\nkilled pid %d\r\n", lastPid)
				}
			case replPs:
				fmt.Print("\r\n")
				for _, info := range k.Table.Snapshot() {
					fmt.Printf("pid=%-4d name=%-12s state=%-9s prio=%d\r\n", info.Pid, info.Name, info.State, info.Prio)
				}
			}
		}
		// root is init and may not exit; once cmds is closed it sleeps
		// until the kernel is shut down.
		for {
			k.Sys.Sleep(p, 1000)
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	if err := k.Boot(ctx, "root", root); err != nil {
		term.Restore(fd, state)
		fmt.Fprintf(os.Stderr, "boot: %v\n", err)
		os.Exit(1)
	}

	fmt.Print("quantactl repl — f:fork  k:kill-last  p:ps  q:quit\r\n")
	buf := make([]byte, 1)
	for {
		if _, err := os.Stdin.Read(buf); err != nil {
			break
		}
		switch replCmd(buf[0]) {
		case replFork, replKill, replPs:
			cmds <- replCmd(buf[0])
		case 'q', 3: // q or Ctrl-C
			close(cmds)
			cancel()
			k.Shutdown()
			fmt.Print("\r\n")
			return
		}
	}
}
