// Package kconfig loads boot configuration for the kernel, the same
// env-with-defaults shape the teacher's cmd/agent loadConfig used for its
// Config struct.
package kconfig

import (
	"os"
	"strconv"
	"time"
)

// Config holds the runtime-tunable boot parameters. The scheduling
// parameters themselves (NPROC, NPRIO, AGING_TICKS, ...) are fixed by the
// spec and live as constants in the packages that own them; Config only
// covers what a real boot loader would plausibly let an operator tune.
type Config struct {
	NCPU         int
	TickInterval time.Duration
	DebugAddr    string
	Verbose      bool
}

// Default returns the out-of-the-box configuration: NCPU=8 per spec,
// a 10ms tick, debug surface on :7070, quiet logging.
func Default() Config {
	return Config{
		NCPU:         8,
		TickInterval: 10 * time.Millisecond,
		DebugAddr:    ":7070",
		Verbose:      false,
	}
}

// FromEnv overlays environment variables onto Default(): QUANTA_NCPU,
// QUANTA_TICK_MS, QUANTA_DEBUG_ADDR, QUANTA_VERBOSE.
func FromEnv() Config {
	cfg := Default()

	if v := os.Getenv("QUANTA_NCPU"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.NCPU = n
		}
	}
	if v := os.Getenv("QUANTA_TICK_MS"); v != "" {
		if ms, err := strconv.Atoi(v); err == nil && ms > 0 {
			cfg.TickInterval = time.Duration(ms) * time.Millisecond
		}
	}
	if v := os.Getenv("QUANTA_DEBUG_ADDR"); v != "" {
		cfg.DebugAddr = v
	}
	if v := os.Getenv("QUANTA_VERBOSE"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Verbose = b
		}
	}

	return cfg
}
