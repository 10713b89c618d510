package events

import "github.com/Liars-Bar/Liars-bar/internal/ledger"

// Event is the closed set of game events the program emits. Constructed only
// by Decode; immutable value objects after that.
type Event interface {
	isGameEvent()
	TableID() uint64
	Name() string
}

type Base struct {
	Table uint64
}

func (b Base) TableID() uint64 { return b.Table }

type TableCreated struct {
	Base
	Creator ledger.Address
}

type PlayerJoined struct {
	Base
	Player ledger.Address
}

// CardsShuffledFor fires when a player's hand has been dealt; Next is the
// program's inference of who plays first.
type CardsShuffledFor struct {
	Base
	Recipient ledger.Address
	Next      ledger.Address
}

type RoundStarted struct {
	Base
	Round uint32
}

type TurnChanged struct {
	Base
	Player ledger.Address
}

type CardPlaced struct {
	Base
	Player ledger.Address
	Count  uint8
}

type LiarCalled struct {
	Base
	Caller  ledger.Address
	Accused ledger.Address
}

type EmptyBulletFired struct {
	Base
	Player ledger.Address
}

type PlayerEliminated struct {
	Base
	Player ledger.Address
}

type GameOver struct {
	Base
}

type GameWinner struct {
	Base
	Winner ledger.Address
}

func (TableCreated) isGameEvent()     {}
func (PlayerJoined) isGameEvent()     {}
func (CardsShuffledFor) isGameEvent() {}
func (RoundStarted) isGameEvent()     {}
func (TurnChanged) isGameEvent()      {}
func (CardPlaced) isGameEvent()       {}
func (LiarCalled) isGameEvent()       {}
func (EmptyBulletFired) isGameEvent() {}
func (PlayerEliminated) isGameEvent() {}
func (GameOver) isGameEvent()         {}
func (GameWinner) isGameEvent()       {}

func (TableCreated) Name() string     { return "tableCreated" }
func (PlayerJoined) Name() string     { return "playerJoined" }
func (CardsShuffledFor) Name() string { return "cardsShuffledFor" }
func (RoundStarted) Name() string     { return "roundStarted" }
func (TurnChanged) Name() string      { return "turnChanged" }
func (CardPlaced) Name() string       { return "cardPlaced" }
func (LiarCalled) Name() string       { return "liarCalled" }
func (EmptyBulletFired) Name() string { return "emptyBulletFired" }
func (PlayerEliminated) Name() string { return "playerEliminated" }
func (GameOver) Name() string         { return "gameOver" }
func (GameWinner) Name() string       { return "gameWinner" }
