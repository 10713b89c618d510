package ws

import (
	"github.com/Liars-Bar/Liars-bar/internal/ledger"
	"github.com/Liars-Bar/Liars-bar/internal/table"
	"github.com/Liars-Bar/Liars-bar/pkg/types"
)

// WireSnapshot converts an internal snapshot into the dependency-free wire
// shape UI clients consume.
func WireSnapshot(s table.Snapshot) *types.Snapshot {
	out := &types.Snapshot{
		Version: s.Version,
		State: types.TableState{
			TableID:     s.State.TableID,
			Players:     addresses(s.State.Players),
			Active:      addresses(s.State.Active),
			CurrentTurn: string(s.State.CurrentTurn),
			Moves:       make([]types.Move, 0, len(s.State.Moves)),
			Round:       s.State.Round,
			RoundActive: s.State.RoundActive,
			LiarCaller:  string(s.State.LiarCaller),
			LastEvent:   s.State.LastEvent,
		},
		Connection:    s.Connection,
		Animation:     s.Animation,
		EventLog:      make([]types.LogEntry, 0, len(s.EventLog)),
		MyCards:       make([]types.Card, 0, len(s.MyCards)),
		IsDecrypting:  s.IsDecrypting,
		DecryptFailed: s.DecryptFailed,
		LastError:     s.LastError,
	}
	for _, m := range s.State.Moves {
		out.State.Moves = append(out.State.Moves, types.Move{Player: string(m.Player), At: m.At})
	}
	for _, e := range s.EventLog {
		out.EventLog = append(out.EventLog, types.LogEntry{Name: e.Name, At: e.At})
	}
	for _, c := range s.MyCards {
		out.MyCards = append(out.MyCards, types.Card{Shape: c.Shape, Value: c.Value})
	}
	return out
}

func addresses(in []ledger.Address) []string {
	out := make([]string, 0, len(in))
	for _, a := range in {
		out = append(out, string(a))
	}
	return out
}
