package events

import (
	"encoding/base64"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func logLine(t *testing.T, name string, data map[string]any) string {
	t.Helper()
	raw, err := json.Marshal(map[string]any{"name": name, "data": data})
	require.NoError(t, err)
	return "Program data: " + base64.StdEncoding.EncodeToString(raw)
}

func TestDecodeVariants(t *testing.T) {
	cases := []struct {
		name string
		data map[string]any
		want Event
	}{
		{
			name: "playerJoined",
			data: map[string]any{"table_id": 7, "player": "alice"},
			want: PlayerJoined{Base: Base{Table: 7}, Player: "alice"},
		},
		{
			name: "cardsShuffledFor",
			data: map[string]any{"table_id": 7, "recipient": "alice", "next_player": "bob"},
			want: CardsShuffledFor{Base: Base{Table: 7}, Recipient: "alice", Next: "bob"},
		},
		{
			name: "roundStarted",
			data: map[string]any{"table_id": 7, "round": 3},
			want: RoundStarted{Base: Base{Table: 7}, Round: 3},
		},
		{
			name: "turnChanged",
			data: map[string]any{"table_id": 7, "player": "bob"},
			want: TurnChanged{Base: Base{Table: 7}, Player: "bob"},
		},
		{
			name: "cardPlaced",
			data: map[string]any{"table_id": 7, "player": "bob", "count": 2},
			want: CardPlaced{Base: Base{Table: 7}, Player: "bob", Count: 2},
		},
		{
			name: "liarCalled",
			data: map[string]any{"table_id": 7, "caller": "alice", "accused": "bob"},
			want: LiarCalled{Base: Base{Table: 7}, Caller: "alice", Accused: "bob"},
		},
		{
			name: "playerEliminated",
			data: map[string]any{"table_id": 7, "player": "bob"},
			want: PlayerEliminated{Base: Base{Table: 7}, Player: "bob"},
		},
		{
			name: "gameWinner",
			data: map[string]any{"table_id": 7, "winner": "alice"},
			want: GameWinner{Base: Base{Table: 7}, Winner: "alice"},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ev, ok := Decode(logLine(t, tc.name, tc.data), 7)
			require.True(t, ok)
			require.Equal(t, tc.want, ev)
			require.Equal(t, tc.name, ev.Name())
			require.Equal(t, uint64(7), ev.TableID())
		})
	}
}

func TestDecodeTableIDAsString(t *testing.T) {
	ev, ok := Decode(logLine(t, "turnChanged", map[string]any{"table_id": "7", "player": "bob"}), 7)
	require.True(t, ok)
	require.Equal(t, uint64(7), ev.TableID())
}

func TestDecodeFailsSoft(t *testing.T) {
	cases := []struct {
		name string
		line string
	}{
		{"no marker", "Program log: Instruction: PlaceCards"},
		{"bad base64", "Program data: !!!not-base64!!!"},
		{"bad json", "Program data: " + base64.StdEncoding.EncodeToString([]byte("{nope"))},
		{"unknown event name", logLine(t, "jackpotHit", map[string]any{"table_id": 7})},
		{"other table", logLine(t, "turnChanged", map[string]any{"table_id": 8, "player": "bob"})},
		{"empty line", ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ev, ok := Decode(tc.line, 7)
			require.False(t, ok)
			require.Nil(t, ev)
		})
	}
}
