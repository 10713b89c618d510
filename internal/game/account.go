package game

import (
	"encoding/json"
	"fmt"
	"slices"

	"github.com/Liars-Bar/Liars-bar/internal/ledger"
)

// TableAccount mirrors the on-chain table record.
type TableAccount struct {
	TableID     uint64           `json:"table_id"`
	Players     []ledger.Address `json:"players"`
	Active      []ledger.Address `json:"active_players"`
	CurrentTurn ledger.Address   `json:"current_turn"`
	RoundActive bool             `json:"round_active"`
	Round       uint32           `json:"round"`
}

func DecodeTableAccount(raw []byte) (TableAccount, error) {
	var acc TableAccount
	if err := json.Unmarshal(raw, &acc); err != nil {
		return TableAccount{}, fmt.Errorf("decode table account: %w", err)
	}
	return acc, nil
}

// MergeAuthoritative folds a freshly fetched table record into the local
// state. Membership and turn come from the chain; the local move log is kept
// only while the record confirms the same round is still running, because the
// record does not carry move history.
func MergeAuthoritative(s State, acc TableAccount) State {
	next := s
	next.Players = slices.Clone(acc.Players)
	next.Active = slices.Clone(acc.Active)
	next.CurrentTurn = acc.CurrentTurn
	if acc.Round != s.Round || (acc.RoundActive && !s.RoundActive) {
		// the chain is in a round we did not watch begin; the local log is
		// stale even if both sides report an active round
		next.Moves = []Move{}
		next.LiarCaller = ""
	}
	next.Round = acc.Round
	next.RoundActive = acc.RoundActive
	return next
}
