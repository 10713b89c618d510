// Package health probes ledger RPC liveness independently of the poller, so
// a stalled event stream cannot mask a dead connection.
package health

import (
	"context"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/Liars-Bar/Liars-bar/internal/ledger"
)

type Status int32

const (
	Connected Status = iota
	Reconnecting
	Disconnected
)

func (s Status) String() string {
	switch s {
	case Connected:
		return "connected"
	case Reconnecting:
		return "reconnecting"
	default:
		return "disconnected"
	}
}

// Monitor classifies connectivity from a consecutive-failure streak: one
// failure means reconnecting, two or more means disconnected.
type Monitor struct {
	client   ledger.Client
	interval time.Duration
	log      *zap.Logger

	status   atomic.Int32
	failures int
	cancel   context.CancelFunc
	done     chan struct{}
}

func NewMonitor(client ledger.Client, interval time.Duration, log *zap.Logger) *Monitor {
	return &Monitor{
		client:   client,
		interval: interval,
		log:      log.Named("health"),
		done:     make(chan struct{}),
	}
}

func (m *Monitor) Status() Status { return Status(m.status.Load()) }

func (m *Monitor) Start(parent context.Context) {
	ctx, cancel := context.WithCancel(parent)
	m.cancel = cancel
	go m.run(ctx)
}

func (m *Monitor) Stop() {
	if m.cancel != nil {
		m.cancel()
		<-m.done
	}
}

func (m *Monitor) run(ctx context.Context) {
	defer close(m.done)
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Probe(ctx)
		}
	}
}

// Probe runs one liveness check and updates the classification.
func (m *Monitor) Probe(ctx context.Context) Status {
	if err := m.client.Liveness(ctx); err != nil {
		m.failures++
		if m.failures >= 2 {
			m.status.Store(int32(Disconnected))
		} else {
			m.status.Store(int32(Reconnecting))
		}
		m.log.Warn("liveness probe failed", zap.Int("streak", m.failures), zap.Error(err))
	} else {
		m.failures = 0
		m.status.Store(int32(Connected))
	}
	return m.Status()
}
