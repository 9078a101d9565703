package realtime

import (
	"context"
	"sync"
	"time"
)

// Refetcher turns channel events into invalidate-and-refetch commands with
// per-key coalescing: a burst of events for the same entity within the
// window triggers exactly one fetch. Events never carry state themselves;
// the fetch func re-reads the authoritative HTTP API.
type Refetcher struct {
	window time.Duration
	fetch  func(ctx context.Context, key string)

	mu      sync.Mutex
	pending map[string]bool
}

func NewRefetcher(window time.Duration, fetch func(ctx context.Context, key string)) *Refetcher {
	if window <= 0 {
		window = 200 * time.Millisecond
	}
	return &Refetcher{window: window, fetch: fetch, pending: make(map[string]bool)}
}

// Invalidate schedules a refetch for key unless one is already pending.
func (r *Refetcher) Invalidate(ctx context.Context, key string) {
	r.mu.Lock()
	if r.pending[key] {
		r.mu.Unlock()
		return
	}
	r.pending[key] = true
	r.mu.Unlock()

	time.AfterFunc(r.window, func() {
		r.mu.Lock()
		delete(r.pending, key)
		r.mu.Unlock()
		if ctx.Err() != nil {
			return
		}
		r.fetch(ctx, key)
	})
}
