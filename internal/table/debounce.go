package table

import (
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// Refetcher coalesces bursts of Schedule calls into one authoritative fetch
// per quiet window. Overlapping windows still run at most one fetch at a time
// through the singleflight group, trading a bounded staleness window for
// fewer RPC calls under event bursts.
type Refetcher struct {
	window time.Duration
	fetch  func()

	mu      sync.Mutex
	pending *time.Timer
	stopped bool
	group   singleflight.Group
}

func NewRefetcher(window time.Duration, fetch func()) *Refetcher {
	return &Refetcher{window: window, fetch: fetch}
}

func (r *Refetcher) Schedule() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.stopped || r.pending != nil {
		return
	}
	r.pending = time.AfterFunc(r.window, func() {
		r.mu.Lock()
		r.pending = nil
		stopped := r.stopped
		r.mu.Unlock()
		if stopped {
			return
		}
		r.group.Do("refetch", func() (any, error) {
			r.fetch()
			return nil, nil
		})
	})
}

func (r *Refetcher) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stopped = true
	if r.pending != nil {
		r.pending.Stop()
		r.pending = nil
	}
}
