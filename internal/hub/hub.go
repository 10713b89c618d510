// Package hub owns the set of active table sessions, one actor per process.
package hub

import (
	"context"

	"github.com/Liars-Bar/Liars-bar/internal/table"
)

type HubMsg interface{ isHubMsg() }

// SessionFactory builds a session for a table id; injected so the hub stays
// free of RPC wiring.
type SessionFactory func(ctx context.Context, tableID uint64) (*table.Session, error)

type EnsureSession struct {
	TableID uint64
	Reply   chan *table.Session
}

type GetSession struct {
	TableID uint64
	Reply   chan *table.Session
}

type RemoveSession struct {
	TableID uint64
}

type ShutdownHub struct{}

func (EnsureSession) isHubMsg() {}
func (GetSession) isHubMsg()    {}
func (RemoveSession) isHubMsg() {}
func (ShutdownHub) isHubMsg()   {}

type Hub struct {
	inbox    chan HubMsg
	sessions map[uint64]*table.Session
	factory  SessionFactory
	ctx      context.Context
	cancel   context.CancelFunc
}

func NewHub(parent context.Context, factory SessionFactory) *Hub {
	ctx, cancel := context.WithCancel(parent)
	h := &Hub{
		inbox:    make(chan HubMsg, 64),
		sessions: make(map[uint64]*table.Session),
		factory:  factory,
		ctx:      ctx,
		cancel:   cancel,
	}
	go h.loop()
	return h
}

func (h *Hub) Inbox() chan<- HubMsg { return h.inbox }

func (h *Hub) loop() {
	for {
		select {
		case <-h.ctx.Done():
			return

		case m := <-h.inbox:
			switch msg := m.(type) {
			case EnsureSession:
				if s := h.sessions[msg.TableID]; s != nil {
					msg.Reply <- s
					break
				}
				s, err := h.factory(h.ctx, msg.TableID)
				if err != nil {
					msg.Reply <- nil
					break
				}
				h.sessions[msg.TableID] = s
				msg.Reply <- s

			case GetSession:
				msg.Reply <- h.sessions[msg.TableID] // may be nil

			case RemoveSession:
				if s := h.sessions[msg.TableID]; s != nil {
					s.Quit()
					delete(h.sessions, msg.TableID)
				}

			case ShutdownHub:
				for id, s := range h.sessions {
					s.Quit()
					delete(h.sessions, id)
				}
				h.cancel()
			}
		}
	}
}
