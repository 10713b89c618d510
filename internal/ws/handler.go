package ws

import (
	"context"
	"encoding/json"
	"math/rand"
	"net/http"
	"strconv"
	"time"

	"github.com/coder/websocket"

	"github.com/Liars-Bar/Liars-bar/internal/hub"
	"github.com/Liars-Bar/Liars-bar/internal/table"
	"github.com/Liars-Bar/Liars-bar/pkg/types"
)

// Handler upgrades a UI client and keeps it fed with snapshots for one table
// while accepting imperative actions back over the same connection.
func Handler(h *hub.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tableID, err := strconv.ParseUint(r.URL.Query().Get("table"), 10, 64)
		if err != nil {
			http.Error(w, "missing or bad table", http.StatusBadRequest)
			return
		}

		reply := make(chan *table.Session, 1)
		h.Inbox() <- hub.EnsureSession{TableID: tableID, Reply: reply}
		s := <-reply
		if s == nil {
			http.Error(w, "failed to open table session", http.StatusInternalServerError)
			return
		}

		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close(websocket.StatusNormalClosure, "bye")

		out := make(chan table.Snapshot, 8)
		clientID := randID(6)

		s.Inbox() <- table.Join{ClientID: clientID, Outbox: out}
		defer func() {
			// the session may already be torn down (QuitTable); never block
			// on an inbox nobody drains
			select {
			case s.Inbox() <- table.Leave{ClientID: clientID}:
			case <-s.Done():
			}
		}()

		writeCtx, writeCancel := context.WithCancel(r.Context())
		defer writeCancel()
		go func() {
			for snap := range out {
				msg := types.ServerMessage{Type: "StateSnapshot", Snapshot: WireSnapshot(snap)}
				payload, _ := json.Marshal(msg)
				ctx, cancel := context.WithTimeout(writeCtx, 3*time.Second)
				_ = conn.Write(ctx, websocket.MessageText, payload)
				cancel()
			}
		}()

		for {
			_, data, err := conn.Read(r.Context())
			if err != nil {
				switch websocket.CloseStatus(err) {
				case websocket.StatusNormalClosure, websocket.StatusGoingAway:
					return
				}
				return
			}

			var cm types.ClientMessage
			if err := json.Unmarshal(data, &cm); err != nil {
				writeError(r.Context(), conn, "bad json")
				continue
			}

			if cm.Type == "QuitTable" {
				h.Inbox() <- hub.RemoveSession{TableID: tableID}
				return
			}

			ok, known := dispatch(r.Context(), s, cm)
			if !known {
				writeError(r.Context(), conn, "unknown type")
				continue
			}
			msg := types.ServerMessage{Type: "ActionResult", Action: cm.Type, OK: &ok}
			payload, _ := json.Marshal(msg)
			_ = conn.Write(r.Context(), websocket.MessageText, payload)
		}
	}
}

func dispatch(ctx context.Context, s *table.Session, cm types.ClientMessage) (ok, known bool) {
	switch cm.Type {
	case "JoinTable":
		return s.JoinTable(ctx), true
	case "StartRound":
		return s.StartRound(ctx), true
	case "ShuffleCards":
		return s.ShuffleCards(ctx), true
	case "PlaceCards":
		if cm.Count == 0 {
			return false, true
		}
		return s.PlaceCards(ctx, cm.Count), true
	case "CallLiar":
		return s.CallLiar(ctx), true
	case "DecryptMyCards":
		return s.DecryptMyCards(ctx), true
	case "FetchTable":
		return s.FetchTable(ctx), true
	default:
		return false, false
	}
}

func writeError(ctx context.Context, conn *websocket.Conn, msg string) {
	payload, _ := json.Marshal(types.ServerMessage{Type: "Error", Error: msg})
	_ = conn.Write(ctx, websocket.MessageText, payload)
}

func randID(length int) string {
	const charset = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	b := make([]byte, length)
	for i := range b {
		b[i] = charset[rand.Intn(len(charset))]
	}
	return string(b)
}
