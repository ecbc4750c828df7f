//go:build linux

package trap

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sys/unix"
)

// timerfdTicker drives ticks from a Linux timerfd, polled with a small
// epoll set so Wait can be interrupted by ctx cancellation.
type timerfdTicker struct {
	fd     int
	epfd   int
	period time.Duration
}

// NewTicker returns a Ticker backed by CLOCK_MONOTONIC timerfd, firing every
// period.
func NewTicker(period time.Duration) (Ticker, error) {
	fd, err := unix.TimerfdCreate(unix.CLOCK_MONOTONIC, 0)
	if err != nil {
		return nil, fmt.Errorf("trap: timerfd_create: %w", err)
	}
	spec := &unix.ItimerSpec{
		Interval: unix.NsecToTimespec(period.Nanoseconds()),
		Value:    unix.NsecToTimespec(period.Nanoseconds()),
	}
	if err := unix.TimerfdSettime(fd, 0, spec, nil); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("trap: timerfd_settime: %w", err)
	}
	epfd, err := unix.EpollCreate1(0)
	if err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("trap: epoll_create1: %w", err)
	}
	ev := unix.EpollEvent{Events: unix.EPOLLIN, Fd: int32(fd)}
	if err := unix.EpollCtl(epfd, unix.EPOLL_CTL_ADD, fd, &ev); err != nil {
		unix.Close(fd)
		unix.Close(epfd)
		return nil, fmt.Errorf("trap: epoll_ctl: %w", err)
	}
	return &timerfdTicker{fd: fd, epfd: epfd, period: period}, nil
}

func (t *timerfdTicker) Wait(ctx context.Context) error {
	events := make([]unix.EpollEvent, 1)
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		n, err := unix.EpollWait(t.epfd, events, 100)
		if err != nil {
			if err == unix.EINTR {
				continue
			}
			return err
		}
		if n == 0 {
			continue
		}
		buf := make([]byte, 8)
		if _, err := unix.Read(t.fd, buf); err != nil && err != unix.EAGAIN {
			return err
		}
		return nil
	}
}

func (t *timerfdTicker) Close() error {
	unix.Close(t.epfd)
	return unix.Close(t.fd)
}
