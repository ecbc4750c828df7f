//go:build windows

package kernel

import "github.com/tklauser/numcpus"

// hostInfo reports the host's online logical CPU count; go-sysconf's
// SC_CLK_TCK has no Windows implementation, so clkTck is always 0 here.
func hostInfo() (hostCPUs int, clkTck int64) {
	n, err := numcpus.GetOnline()
	if err == nil {
		hostCPUs = n
	}
	return hostCPUs, 0
}
