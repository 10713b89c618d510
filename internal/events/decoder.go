package events

import (
	"encoding/base64"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/Liars-Bar/Liars-bar/internal/ledger"
)

// eventMarker prefixes every structured emission in the program's log output.
const eventMarker = "Program data: "

// tableNum tolerates both JSON-number and JSON-string renderings of the
// table id, which differ between RPC node versions.
type tableNum uint64

func (t *tableNum) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return err
	}
	*t = tableNum(v)
	return nil
}

type payload struct {
	Table     tableNum `json:"table_id"`
	Creator   string   `json:"creator"`
	Player    string   `json:"player"`
	Recipient string   `json:"recipient"`
	Next      string   `json:"next_player"`
	Caller    string   `json:"caller"`
	Accused   string   `json:"accused"`
	Winner    string   `json:"winner"`
	Round     uint32   `json:"round"`
	Count     uint8    `json:"count"`
}

type decodeFn func(Base, payload) Event

var decoders = map[string]decodeFn{
	"tableCreated": func(b Base, p payload) Event {
		return TableCreated{Base: b, Creator: ledger.Address(p.Creator)}
	},
	"playerJoined": func(b Base, p payload) Event {
		return PlayerJoined{Base: b, Player: ledger.Address(p.Player)}
	},
	"cardsShuffledFor": func(b Base, p payload) Event {
		return CardsShuffledFor{Base: b, Recipient: ledger.Address(p.Recipient), Next: ledger.Address(p.Next)}
	},
	"roundStarted": func(b Base, p payload) Event {
		return RoundStarted{Base: b, Round: p.Round}
	},
	"turnChanged": func(b Base, p payload) Event {
		return TurnChanged{Base: b, Player: ledger.Address(p.Player)}
	},
	"cardPlaced": func(b Base, p payload) Event {
		return CardPlaced{Base: b, Player: ledger.Address(p.Player), Count: p.Count}
	},
	"liarCalled": func(b Base, p payload) Event {
		return LiarCalled{Base: b, Caller: ledger.Address(p.Caller), Accused: ledger.Address(p.Accused)}
	},
	"emptyBulletFired": func(b Base, p payload) Event {
		return EmptyBulletFired{Base: b, Player: ledger.Address(p.Player)}
	},
	"playerEliminated": func(b Base, p payload) Event {
		return PlayerEliminated{Base: b, Player: ledger.Address(p.Player)}
	},
	"gameOver": func(b Base, p payload) Event {
		return GameOver{Base: b}
	},
	"gameWinner": func(b Base, p payload) Event {
		return GameWinner{Base: b, Winner: ledger.Address(p.Winner)}
	},
}

// Decode parses one raw log line into an event for the given table. It fails
// soft: lines without the marker, structurally broken payloads, unknown event
// names and events for other tables all return (nil, false). It never errors
// to the caller.
func Decode(logLine string, tableFilter uint64) (Event, bool) {
	rest, found := strings.CutPrefix(logLine, eventMarker)
	if !found {
		return nil, false
	}
	raw, err := base64.StdEncoding.DecodeString(strings.TrimSpace(rest))
	if err != nil {
		return nil, false
	}

	var envelope struct {
		Name string          `json:"name"`
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return nil, false
	}
	fn, ok := decoders[envelope.Name]
	if !ok {
		// unknown future event names are skipped, not errors
		return nil, false
	}

	var p payload
	if err := json.Unmarshal(envelope.Data, &p); err != nil {
		return nil, false
	}
	if uint64(p.Table) != tableFilter {
		return nil, false
	}
	return fn(Base{Table: uint64(p.Table)}, p), true
}
