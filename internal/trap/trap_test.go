package trap

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/mharlan/quanta/internal/klog"
)

// fakeTicker fires immediately on every Wait call until ctx is canceled, so
// tests exercise Run's loop shape without depending on a platform ticker.
type fakeTicker struct {
	closed atomic.Bool
}

func (f *fakeTicker) Wait(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return nil
	}
}

func (f *fakeTicker) Close() error {
	f.closed.Store(true)
	return nil
}

func TestRunInvokesHookUntilCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	ticker := &fakeTicker{}

	var ticks atomic.Int64
	done := make(chan struct{})
	go func() {
		Run(ctx, ticker, func() { ticks.Add(1) }, klog.New("test"))
		close(done)
	}()

	for ticks.Load() < 10 {
		time.Sleep(time.Millisecond)
	}
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after context cancellation")
	}
	if !ticker.closed.Load() {
		t.Fatal("Run did not close the ticker on exit")
	}
}

// erroringTicker returns a transient error a fixed number of times before
// succeeding, to exercise Run's retry-on-error path.
type erroringTicker struct {
	failuresLeft int
	closed       atomic.Bool
}

func (e *erroringTicker) Wait(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}
	if e.failuresLeft > 0 {
		e.failuresLeft--
		return errors.New("transient tick source error")
	}
	return nil
}

func (e *erroringTicker) Close() error {
	e.closed.Store(true)
	return nil
}

func TestRunRetriesOnTransientError(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ticker := &erroringTicker{failuresLeft: 3}

	var ticks atomic.Int64
	done := make(chan struct{})
	go func() {
		Run(ctx, ticker, func() { ticks.Add(1) }, klog.New("test"))
		close(done)
	}()

	for ticks.Load() < 1 {
		time.Sleep(time.Millisecond)
	}
	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after context cancellation")
	}
}

func TestNewTickerFiresRepeatedly(t *testing.T) {
	ticker, err := NewTicker(time.Millisecond)
	if err != nil {
		t.Fatalf("NewTicker: %v", err)
	}
	defer ticker.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	for i := 0; i < 5; i++ {
		if err := ticker.Wait(ctx); err != nil {
			t.Fatalf("Wait #%d: %v", i, err)
		}
	}
}
