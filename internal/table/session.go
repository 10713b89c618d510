// Package table hosts the per-table subscription session: one actor that
// owns the local GameState and fans decoded chain events out to the event
// log, the animation trigger, the debounced refetcher and the card pipeline.
package table

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/Liars-Bar/Liars-bar/internal/confidential"
	"github.com/Liars-Bar/Liars-bar/internal/derive"
	"github.com/Liars-Bar/Liars-bar/internal/events"
	"github.com/Liars-Bar/Liars-bar/internal/game"
	"github.com/Liars-Bar/Liars-bar/internal/health"
	"github.com/Liars-Bar/Liars-bar/internal/ledger"
	"github.com/Liars-Bar/Liars-bar/internal/poller"
)

// eventLogCap bounds the UI event log ring.
const eventLogCap = 50

type Config struct {
	TableID   uint64
	Identity  ledger.Identity
	ProgramID ledger.Address
	Ledger    ledger.Client
	Pipeline  *confidential.Pipeline

	PollInterval   time.Duration
	DebounceWindow time.Duration
	HealthInterval time.Duration

	Logger *zap.Logger
}

type Session struct {
	cfg       Config
	tableAddr ledger.Address
	log       *zap.Logger

	inbox   chan Msg
	clients map[string]chan Snapshot

	state    game.State
	version  int
	eventLog []LogEntry

	animation string
	animSeq   uint64

	cards         []confidential.Card
	handleFP      string
	isDecrypting  bool
	decryptFailed bool
	lastError     string

	poll    *poller.Poller
	monitor *health.Monitor
	refetch *Refetcher

	ctx    context.Context
	cancel context.CancelFunc
}

func NewSession(parent context.Context, cfg Config) (*Session, error) {
	tableAddr, err := derive.TableAddress(cfg.ProgramID, cfg.TableID)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(parent)
	s := &Session{
		cfg:       cfg,
		tableAddr: tableAddr,
		log:       cfg.Logger.Named("table").With(zap.Uint64("table", cfg.TableID)),
		inbox:     make(chan Msg, 64),
		clients:   make(map[string]chan Snapshot),
		state:     game.NewState(cfg.TableID),
		ctx:       ctx,
		cancel:    cancel,
	}
	s.refetch = NewRefetcher(cfg.DebounceWindow, s.refetchAuthoritative)
	s.poll = poller.New(cfg.Ledger, tableAddr, cfg.TableID, cfg.PollInterval, s.emitEvent, cfg.Logger)
	s.monitor = health.NewMonitor(cfg.Ledger, cfg.HealthInterval, cfg.Logger)

	go s.loop()
	s.poll.Start(ctx)
	s.monitor.Start(ctx)
	return s, nil
}

func (s *Session) Inbox() chan<- Msg { return s.inbox }

// Done is closed once the session begins tearing down; senders use it to
// avoid blocking on an inbox nobody will drain again.
func (s *Session) Done() <-chan struct{} { return s.ctx.Done() }

func (s *Session) TableID() uint64 { return s.cfg.TableID }

// emitEvent is the poller's delivery callback; it marshals the event onto
// the actor loop so all mutation stays single-threaded.
func (s *Session) emitEvent(ev events.Event) {
	s.send(chainEvent{ev: ev})
}

// send drops the message if the session is being torn down, so late results
// cannot resurrect state after teardown.
func (s *Session) send(m Msg) {
	select {
	case s.inbox <- m:
	case <-s.ctx.Done():
	}
}

func (s *Session) loop() {
	for {
		select {
		case <-s.ctx.Done():
			s.shutdown()
			return

		case m := <-s.inbox:
			switch msg := m.(type) {
			case Join:
				s.clients[msg.ClientID] = msg.Outbox
				msg.Outbox <- s.snapshot()

			case Leave:
				delete(s.clients, msg.ClientID)

			case GetView:
				msg.Reply <- View{Snapshot: s.snapshot(), NumClients: len(s.clients)}

			case chainEvent:
				s.handleChainEvent(msg.ev)

			case authoritative:
				s.state = game.MergeAuthoritative(s.state, msg.acc)
				s.bump()

			case handlesSeen:
				if msg.fingerprint != s.handleFP {
					s.handleFP = msg.fingerprint
					s.startReveal()
				}

			case revealRequested:
				s.startReveal()

			case cardRevealed:
				s.cards = append(s.cards, msg.card)
				s.bump()

			case revealFinished:
				s.isDecrypting = false
				s.decryptFailed = msg.failed
				if msg.errMsg != "" {
					s.lastError = msg.errMsg
				}
				s.bump()

			case animationExpired:
				if msg.seq == s.animSeq {
					s.animation = ""
					s.bump()
				}

			case userError:
				s.lastError = msg.msg
				s.bump()

			case Shutdown:
				s.shutdown()
				return
			}
		}
	}
}

func (s *Session) handleChainEvent(ev events.Event) {
	s.state = game.Apply(s.state, ev, time.Now())

	s.eventLog = append(s.eventLog, LogEntry{Name: ev.Name(), At: time.Now()})
	if len(s.eventLog) > eventLogCap {
		s.eventLog = s.eventLog[len(s.eventLog)-eventLogCap:]
	}

	if name := animationFor(ev); name != "" {
		s.animation = name
		s.animSeq++
		seq := s.animSeq
		time.AfterFunc(animationTTL, func() { s.send(animationExpired{seq: seq}) })
	}

	// events are a hint, the table account is the truth
	s.refetch.Schedule()

	if shuffled, ok := ev.(events.CardsShuffledFor); ok && shuffled.Recipient == s.cfg.Identity.PublicKey {
		s.startReveal()
	}

	s.bump()
}

// startReveal is only called from the actor loop, which serializes the
// decision: a second trigger while a reveal is in flight is dropped here, so
// it can never clear the flags the running reveal owns.
func (s *Session) startReveal() {
	if s.isDecrypting {
		return
	}
	s.isDecrypting = true
	s.decryptFailed = false
	s.cards = []confidential.Card{}
	s.bump()
	go s.runReveal()
}

// bump publishes the current state to every registered client, dropping any
// that cannot keep up.
func (s *Session) bump() {
	s.version++
	snap := s.snapshot()
	for id, ch := range s.clients {
		select {
		case ch <- snap:
		default:
			close(ch)
			delete(s.clients, id)
		}
	}
}

func (s *Session) snapshot() Snapshot {
	cards := make([]confidential.Card, len(s.cards))
	copy(cards, s.cards)
	logCopy := make([]LogEntry, len(s.eventLog))
	copy(logCopy, s.eventLog)
	return Snapshot{
		Version:       s.version,
		State:         s.state,
		Connection:    s.monitor.Status().String(),
		Animation:     s.animation,
		EventLog:      logCopy,
		MyCards:       cards,
		IsDecrypting:  s.isDecrypting,
		DecryptFailed: s.decryptFailed,
		LastError:     s.lastError,
	}
}

func (s *Session) shutdown() {
	// cancel first: in-flight sends fall through instead of waiting on an
	// inbox nobody drains, which would deadlock poll.Stop below
	s.cancel()
	s.refetch.Stop()
	s.poll.Stop()
	s.monitor.Stop()
	for id, ch := range s.clients {
		close(ch)
		delete(s.clients, id)
	}
}

// refetchAuthoritative pulls the table record and merges it, then checks the
// player record for handles the session has not seen, which is the second
// trigger for the reveal pipeline.
func (s *Session) refetchAuthoritative() {
	ctx, cancel := context.WithTimeout(s.ctx, 10*time.Second)
	defer cancel()

	raw, err := s.cfg.Ledger.Account(ctx, s.tableAddr)
	if err != nil {
		s.log.Warn("table refetch failed", zap.Error(err))
		return
	}
	if raw == nil {
		return
	}
	acc, err := game.DecodeTableAccount(raw)
	if err != nil {
		s.log.Warn("table account undecodable", zap.Error(err))
		return
	}
	s.send(authoritative{acc: acc})

	playerAddr, err := derive.PlayerAddress(s.cfg.ProgramID, s.cfg.TableID, s.cfg.Identity.PublicKey)
	if err != nil {
		return
	}
	praw, err := s.cfg.Ledger.Account(ctx, playerAddr)
	if err != nil || praw == nil {
		return
	}
	if hand, err := confidential.ExtractHand(praw); err == nil {
		s.send(handlesSeen{fingerprint: confidential.Fingerprint(hand)})
	}
}

func (s *Session) runReveal() {
	_, err := s.cfg.Pipeline.Reveal(s.ctx, s.cfg.TableID, s.cfg.Identity, func(c confidential.Card) {
		s.send(cardRevealed{card: c})
	})
	switch {
	case err == nil:
		s.send(revealFinished{})
	case errors.Is(err, confidential.ErrRevealInFlight):
		// another run owns the progress flags; leave them alone
	case errors.Is(err, ledger.ErrConfirmationTimeout):
		// unknown outcome: the grant may still land, so refetch instead of
		// declaring failure
		s.refetch.Schedule()
		s.send(revealFinished{errMsg: "still waiting for the network, try again shortly"})
	case errors.Is(err, confidential.ErrNoCardsAvailable):
		s.send(revealFinished{failed: true, errMsg: "no cards to reveal yet"})
	case errors.Is(err, context.Canceled):
		// session torn down mid-reveal
	default:
		s.log.Warn("reveal failed", zap.Error(err))
		s.send(revealFinished{failed: true, errMsg: "could not reveal your cards"})
	}
}

// --- imperative actions, called from the HTTP edge ---

func (s *Session) JoinTable(ctx context.Context) bool {
	return s.act(ctx, "join_table", nil)
}

func (s *Session) StartRound(ctx context.Context) bool {
	return s.act(ctx, "start_round", nil)
}

// ShuffleCards submits without pre-derived allowance accounts: the shuffle
// randomness differs between simulation and execution, so allowance
// derivation happens only in the pipeline's grant step.
func (s *Session) ShuffleCards(ctx context.Context) bool {
	return s.act(ctx, "shuffle_cards", nil)
}

func (s *Session) PlaceCards(ctx context.Context, count uint8) bool {
	return s.act(ctx, "place_cards", map[string]any{"count": count})
}

func (s *Session) CallLiar(ctx context.Context) bool {
	return s.act(ctx, "call_liar", nil)
}

func (s *Session) DecryptMyCards(ctx context.Context) bool {
	s.send(revealRequested{})
	return true
}

func (s *Session) FetchTable(ctx context.Context) bool {
	go s.refetchAuthoritative()
	return true
}

func (s *Session) Quit() {
	s.send(Shutdown{})
}

func (s *Session) act(ctx context.Context, action string, args map[string]any) bool {
	payload := map[string]any{"action": action}
	for k, v := range args {
		payload[k] = v
	}
	data, err := json.Marshal(payload)
	if err != nil {
		s.send(userError{msg: "internal encoding error"})
		return false
	}

	playerAddr, err := derive.PlayerAddress(s.cfg.ProgramID, s.cfg.TableID, s.cfg.Identity.PublicKey)
	if err != nil {
		s.send(userError{msg: "invalid identity"})
		return false
	}

	blockhash, err := s.cfg.Ledger.LatestBlockhash(ctx)
	if err != nil {
		s.send(userError{msg: "network unavailable"})
		return false
	}

	tx := ledger.NewTransaction(s.cfg.Identity.PublicKey, blockhash, ledger.Instruction{
		ProgramID: s.cfg.ProgramID,
		Accounts: []ledger.AccountMeta{
			{Address: s.cfg.Identity.PublicKey, Signer: true},
			{Address: s.tableAddr, Writable: true},
			{Address: playerAddr, Writable: true},
		},
		Data: data,
	})
	if err := tx.Sign(s.cfg.Identity.Sign); err != nil {
		s.send(userError{msg: "signing failed"})
		return false
	}

	sig, err := s.cfg.Ledger.Submit(ctx, tx)
	if err != nil {
		// expected races ("someone already acted") land here too; refetch so
		// the local view catches up with whoever won
		s.log.Info("action rejected", zap.String("action", action), zap.Error(err))
		s.send(userError{msg: fmt.Sprintf("%s failed", action)})
		s.refetch.Schedule()
		return false
	}

	s.log.Info("action submitted", zap.String("action", action), zap.String("signature", string(sig)))
	s.refetch.Schedule()
	return true
}
