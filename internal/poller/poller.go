// Package poller implements the fallback event-delivery mechanism: log
// subscriptions are unreliable for this program, so recent transactions for
// the table address are listed on an interval and their logs decoded.
package poller

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/Liars-Bar/Liars-bar/internal/events"
	"github.com/Liars-Bar/Liars-bar/internal/ledger"
)

type Phase int32

const (
	PhaseIdle Phase = iota
	PhaseBaselining
	PhasePolling
	PhaseStopped
)

// pageLimit bounds one signature listing so a long outage cannot produce an
// unbounded batch.
const pageLimit = 25

// Poller watches one table address and emits decoded events in
// ledger-confirmed causal order (oldest first within a batch).
type Poller struct {
	client   ledger.Client
	addr     ledger.Address
	tableID  uint64
	interval time.Duration
	emit     func(events.Event)
	log      *zap.Logger

	phase    atomic.Int32
	cursorMu sync.Mutex
	cursor   ledger.Signature
	cancel   context.CancelFunc
	done     chan struct{}
}

func New(client ledger.Client, addr ledger.Address, tableID uint64, interval time.Duration, emit func(events.Event), log *zap.Logger) *Poller {
	return &Poller{
		client:   client,
		addr:     addr,
		tableID:  tableID,
		interval: interval,
		emit:     emit,
		log:      log.Named("poller"),
		done:     make(chan struct{}),
	}
}

func (p *Poller) Phase() Phase { return Phase(p.phase.Load()) }

// Cursor returns the last signature the poller has advanced past. Empty until
// the baseline completes against a table with at least one transaction.
func (p *Poller) Cursor() ledger.Signature {
	p.cursorMu.Lock()
	defer p.cursorMu.Unlock()
	return p.cursor
}

func (p *Poller) setCursor(sig ledger.Signature) {
	p.cursorMu.Lock()
	p.cursor = sig
	p.cursorMu.Unlock()
}

// Start baselines the cursor and begins polling. It returns once the
// goroutine is launched; Stop cancels the next tick and waits for in-flight
// work to finish.
func (p *Poller) Start(parent context.Context) {
	ctx, cancel := context.WithCancel(parent)
	p.cancel = cancel
	go p.run(ctx)
}

func (p *Poller) Stop() {
	if p.cancel != nil {
		p.cancel()
		<-p.done
	}
}

func (p *Poller) run(ctx context.Context) {
	defer close(p.done)
	defer p.phase.Store(int32(PhaseStopped))

	p.phase.Store(int32(PhaseBaselining))
	if p.baseline(ctx) {
		p.phase.Store(int32(PhasePolling))
	}
	if ctx.Err() != nil {
		return
	}

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if p.Phase() == PhaseBaselining {
				// nothing may be emitted until the cursor is positioned
				if p.baseline(ctx) {
					p.phase.Store(int32(PhasePolling))
				}
				continue
			}
			p.poll(ctx)
		}
	}
}

// baseline records the newest existing signature without emitting, so a fresh
// subscription never replays the table's history. A listing failure leaves the
// poller in Baselining; the caller retries on the next tick.
func (p *Poller) baseline(ctx context.Context) bool {
	infos, err := p.client.RecentSignatures(ctx, p.addr, "", 1)
	if err != nil {
		if ctx.Err() == nil {
			p.log.Warn("baseline listing failed, retrying", zap.Error(err))
		}
		return false
	}
	if len(infos) > 0 {
		p.setCursor(infos[0].Signature)
	}
	return true
}

func (p *Poller) poll(ctx context.Context) {
	infos, err := p.client.RecentSignatures(ctx, p.addr, p.Cursor(), pageLimit)
	if err != nil {
		// transient: retried on the next tick, cursor untouched
		p.log.Warn("signature listing failed", zap.Error(err))
		return
	}
	if len(infos) == 0 {
		return
	}

	// RPC returns newest first; process oldest first for causal order.
	for i := len(infos) - 1; i >= 0; i-- {
		info := infos[i]
		if info.Failed {
			continue
		}
		detail, err := p.client.Transaction(ctx, info.Signature)
		if err != nil {
			// one bad fetch must not stall the cursor or abort the batch
			p.log.Warn("transaction fetch failed",
				zap.String("signature", string(info.Signature)), zap.Error(err))
			continue
		}
		if !detail.Success {
			continue
		}
		for _, line := range detail.LogLines {
			ev, ok := events.Decode(line, p.tableID)
			if !ok {
				continue
			}
			if ctx.Err() != nil {
				// stopped mid-batch: drop instead of double-delivering
				return
			}
			p.emit(ev)
		}
	}

	// Advance even when nothing decoded, so backlog cannot grow without bound.
	p.setCursor(infos[0].Signature)
}
