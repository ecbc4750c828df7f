//go:build !linux

package trap

import (
	"context"
	"time"
)

// tickerFallback drives ticks from a time.Ticker, used on platforms with no
// timerfd equivalent, the same per-OS fallback shape the teacher uses for
// Windows collector code paths with no portable syscall.
type tickerFallback struct {
	t *time.Ticker
}

// NewTicker returns a Ticker backed by time.Ticker, firing every period.
func NewTicker(period time.Duration) (Ticker, error) {
	return &tickerFallback{t: time.NewTicker(period)}, nil
}

func (t *tickerFallback) Wait(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.t.C:
		return nil
	}
}

func (t *tickerFallback) Close() error {
	t.t.Stop()
	return nil
}
