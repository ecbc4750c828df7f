//go:build !windows

package kernel

import (
	"github.com/tklauser/go-sysconf"
	"github.com/tklauser/numcpus"
)

// hostInfo reports the host's online logical CPU count and clock tick rate,
// informational only — NCPU virtual CPUs is fixed by Config regardless of
// what the host actually has.
func hostInfo() (hostCPUs int, clkTck int64) {
	n, err := numcpus.GetOnline()
	if err == nil {
		hostCPUs = n
	}
	clkTck, _ = sysconf.Sysconf(sysconf.SC_CLK_TCK)
	return hostCPUs, clkTck
}
