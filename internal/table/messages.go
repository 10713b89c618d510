package table

import (
	"time"

	"github.com/Liars-Bar/Liars-bar/internal/confidential"
	"github.com/Liars-Bar/Liars-bar/internal/events"
	"github.com/Liars-Bar/Liars-bar/internal/game"
)

type Msg interface{ isTableMsg() }

// Join registers a UI client; it receives the current snapshot immediately
// and every broadcast after that.
type Join struct {
	ClientID string
	Outbox   chan Snapshot
}

type Leave struct{ ClientID string }

type Shutdown struct{}

// GetView reflects internal state without data races; used by tests and the
// fetch endpoint.
type GetView struct {
	Reply chan View
}

// internal messages, only sent by the session's own goroutines

type chainEvent struct{ ev events.Event }

type authoritative struct{ acc game.TableAccount }

type handlesSeen struct{ fingerprint string }

type revealRequested struct{}

type cardRevealed struct{ card confidential.Card }

type revealFinished struct {
	failed bool
	errMsg string
}

type animationExpired struct{ seq uint64 }

type userError struct{ msg string }

func (Join) isTableMsg()             {}
func (Leave) isTableMsg()            {}
func (Shutdown) isTableMsg()         {}
func (GetView) isTableMsg()          {}
func (chainEvent) isTableMsg()       {}
func (authoritative) isTableMsg()    {}
func (handlesSeen) isTableMsg()      {}
func (revealRequested) isTableMsg()  {}
func (cardRevealed) isTableMsg()     {}
func (revealFinished) isTableMsg()   {}
func (animationExpired) isTableMsg() {}
func (userError) isTableMsg()        {}

// LogEntry is one row of the capped event log shown to the UI.
type LogEntry struct {
	Name string    `json:"name"`
	At   time.Time `json:"at"`
}

// Snapshot is what UI clients receive on every state change.
type Snapshot struct {
	Version       int                 `json:"version"`
	State         game.State          `json:"state"`
	Connection    string              `json:"connection"`
	Animation     string              `json:"animation,omitempty"`
	EventLog      []LogEntry          `json:"event_log"`
	MyCards       []confidential.Card `json:"my_cards"`
	IsDecrypting  bool                `json:"is_decrypting"`
	DecryptFailed bool                `json:"decrypt_failed"`
	LastError     string              `json:"last_error,omitempty"`
}

// View adds observer bookkeeping on top of a snapshot.
type View struct {
	Snapshot
	NumClients int
}
