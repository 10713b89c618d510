package game

import (
	"slices"
	"time"

	"github.com/Liars-Bar/Liars-bar/internal/events"
	"github.com/Liars-Bar/Liars-bar/internal/ledger"
)

// Move is one card placement inside the current round.
type Move struct {
	Player ledger.Address `json:"player"`
	At     time.Time      `json:"at"`
}

// State is the local view of one table. It is only ever produced by
// NewState, Apply and MergeAuthoritative; callers treat it as a value.
type State struct {
	TableID     uint64           `json:"table_id"`
	Players     []ledger.Address `json:"players"`
	Active      []ledger.Address `json:"active_players"`
	CurrentTurn ledger.Address   `json:"current_turn,omitempty"`
	Moves       []Move           `json:"moves"`
	Round       uint32           `json:"round"`
	RoundActive bool             `json:"round_active"`
	LiarCaller  ledger.Address   `json:"liar_caller,omitempty"`
	LastEvent   string           `json:"last_event,omitempty"`
}

func NewState(tableID uint64) State {
	return State{
		TableID: tableID,
		Players: []ledger.Address{},
		Active:  []ledger.Address{},
		Moves:   []Move{},
	}
}

// Apply reduces one decoded event into the next state. Joins and eliminations
// are idempotent so near-duplicate delivery across overlapping polls cannot
// corrupt the player sets; turn and round fields are last-write-wins.
func Apply(s State, ev events.Event, now time.Time) State {
	next := s
	next.Players = slices.Clone(s.Players)
	next.Active = slices.Clone(s.Active)
	next.Moves = slices.Clone(s.Moves)
	next.LastEvent = ev.Name()

	switch e := ev.(type) {
	case events.PlayerJoined:
		if !slices.Contains(next.Players, e.Player) {
			next.Players = append(next.Players, e.Player)
		}
		if !slices.Contains(next.Active, e.Player) {
			next.Active = append(next.Active, e.Player)
		}

	case events.RoundStarted:
		next.Round = e.Round
		next.RoundActive = true
		next.CurrentTurn = ""
		next.Moves = []Move{}
		next.LiarCaller = ""

	case events.CardsShuffledFor:
		next.CurrentTurn = e.Next

	case events.TurnChanged:
		// authoritative, overrides whatever the shuffle inferred
		next.CurrentTurn = e.Player

	case events.CardPlaced:
		next.Moves = append(next.Moves, Move{Player: e.Player, At: now})

	case events.LiarCalled:
		next.LiarCaller = e.Caller

	case events.PlayerEliminated:
		if i := slices.Index(next.Active, e.Player); i >= 0 {
			next.Active = slices.Delete(next.Active, i, i+1)
		}
	}
	return next
}
