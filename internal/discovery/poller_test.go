package discovery

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func TestPollerRunsOnCadenceAndStops(t *testing.T) {
	var runs atomic.Int32
	p := StartPoller(context.Background(), PollConfig{Interval: 5 * time.Millisecond}, func(ctx context.Context) error {
		runs.Add(1)
		return nil
	})

	deadline := time.Now().Add(time.Second)
	for runs.Load() < 3 && time.Now().Before(deadline) {
		time.Sleep(2 * time.Millisecond)
	}
	if runs.Load() < 3 {
		t.Fatalf("expected at least 3 runs, got %d", runs.Load())
	}

	p.Stop()
	at := runs.Load()
	time.Sleep(30 * time.Millisecond)
	if runs.Load() != at {
		t.Fatal("poller kept running after Stop")
	}
	p.Stop() // idempotent
}

func TestPollerKeepsCadenceOnErrorsWithoutBackoff(t *testing.T) {
	var runs atomic.Int32
	p := StartPoller(context.Background(), PollConfig{Interval: 5 * time.Millisecond}, func(ctx context.Context) error {
		runs.Add(1)
		return errors.New("tick failed")
	})
	defer p.Stop()

	deadline := time.Now().Add(time.Second)
	for runs.Load() < 3 && time.Now().Before(deadline) {
		time.Sleep(2 * time.Millisecond)
	}
	// failures are skipped ticks, not a reason to slow down
	if runs.Load() < 3 {
		t.Fatalf("expected fixed cadence to continue after errors, got %d runs", runs.Load())
	}
}

func TestPollerBacksOffOnRepeatedFailures(t *testing.T) {
	var runs atomic.Int32
	cfg := PollConfig{Interval: 5 * time.Millisecond, Backoff: true, MaxBackoff: 500 * time.Millisecond}
	p := StartPoller(context.Background(), cfg, func(ctx context.Context) error {
		runs.Add(1)
		return errors.New("tick failed")
	})
	defer p.Stop()

	time.Sleep(100 * time.Millisecond)
	// 5+10+20+40+80 > 100ms: with doubling we can see at most ~5 runs,
	// where the fixed cadence would have produced ~20
	if got := runs.Load(); got > 6 {
		t.Fatalf("expected backoff to slow polling, got %d runs in 100ms", got)
	}
}

func TestPollerStopsWhenParentContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var runs atomic.Int32
	p := StartPoller(ctx, PollConfig{Interval: 5 * time.Millisecond}, func(ctx context.Context) error {
		runs.Add(1)
		return nil
	})

	cancel()
	p.Stop() // must not hang: the loop exits on the parent context too
}
