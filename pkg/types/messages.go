// Package types is the wire contract between the sync service and UI
// clients connected over the WebSocket endpoint. It depends on nothing
// internal so UI code in other modules can import it.
package types

import "time"

// ClientMessage is UI -> server.
//
// Types: JoinTable, StartRound, ShuffleCards, PlaceCards (carries count),
// CallLiar, DecryptMyCards, FetchTable, QuitTable.
type ClientMessage struct {
	Type  string `json:"type"`
	Count uint8  `json:"count,omitempty"`
}

// ServerMessage is server -> UI.
//
// StateSnapshot carries the full read-only view after every change;
// ActionResult answers one ClientMessage; Error reports protocol problems.
type ServerMessage struct {
	Type     string    `json:"type"` // "StateSnapshot" | "ActionResult" | "Error"
	Snapshot *Snapshot `json:"snapshot,omitempty"`
	Action   string    `json:"action,omitempty"`
	OK       *bool     `json:"ok,omitempty"`
	Error    string    `json:"error,omitempty"`
}

// Card is one plaintext card: shape 0..3, value 0..12.
type Card struct {
	Shape uint8 `json:"shape"`
	Value uint8 `json:"value"`
}

// Move is one card placement inside the current round.
type Move struct {
	Player string    `json:"player"`
	At     time.Time `json:"at"`
}

// TableState is the synchronized view of one table.
type TableState struct {
	TableID     uint64   `json:"table_id"`
	Players     []string `json:"players"`
	Active      []string `json:"active_players"`
	CurrentTurn string   `json:"current_turn,omitempty"`
	Moves       []Move   `json:"moves"`
	Round       uint32   `json:"round"`
	RoundActive bool     `json:"round_active"`
	LiarCaller  string   `json:"liar_caller,omitempty"`
	LastEvent   string   `json:"last_event,omitempty"`
}

// LogEntry is one row of the capped event log.
type LogEntry struct {
	Name string    `json:"name"`
	At   time.Time `json:"at"`
}

// Snapshot is the full read-only view pushed to UI clients on every change.
type Snapshot struct {
	Version       int        `json:"version"`
	State         TableState `json:"state"`
	Connection    string     `json:"connection"`
	Animation     string     `json:"animation,omitempty"`
	EventLog      []LogEntry `json:"event_log"`
	MyCards       []Card     `json:"my_cards"`
	IsDecrypting  bool       `json:"is_decrypting"`
	DecryptFailed bool       `json:"decrypt_failed"`
	LastError     string     `json:"last_error,omitempty"`
}
