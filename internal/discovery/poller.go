package discovery

import (
	"context"
	"sync"
	"time"
)

// PollConfig tunes the acceptance poll cadence. Backoff is optional: the
// default keeps the fixed cadence even after failures, matching a
// short-lived user-attended flow; enabling it protects a degraded backend
// during longer unattended runs.
type PollConfig struct {
	Interval   time.Duration
	Backoff    bool
	MaxBackoff time.Duration
}

// Poller runs fn on a cadence until stopped. The handle pattern means the
// timer cannot outlive its owner: teardown calls Stop and the schedule is
// gone, instead of every call site remembering to clear an interval.
type Poller struct {
	cancel context.CancelFunc
	done   chan struct{}
	stop   sync.Once
}

// StartPoller begins polling. fn's error feeds the backoff schedule when
// enabled; the error itself is the callee's to log.
func StartPoller(ctx context.Context, cfg PollConfig, fn func(ctx context.Context) error) *Poller {
	runCtx, cancel := context.WithCancel(ctx)
	p := &Poller{cancel: cancel, done: make(chan struct{})}
	go func() {
		defer close(p.done)
		delay := cfg.Interval
		timer := time.NewTimer(delay)
		defer timer.Stop()
		for {
			select {
			case <-runCtx.Done():
				return
			case <-timer.C:
			}
			err := fn(runCtx)
			if err != nil && cfg.Backoff {
				delay *= 2
				if delay > cfg.MaxBackoff {
					delay = cfg.MaxBackoff
				}
			} else {
				delay = cfg.Interval
			}
			timer.Reset(delay)
		}
	}()
	return p
}

// Stop cancels the schedule and waits for any in-flight run to return.
// Idempotent.
func (p *Poller) Stop() {
	p.stop.Do(func() { p.cancel() })
	<-p.done
}
