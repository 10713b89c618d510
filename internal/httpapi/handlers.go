package httpapi

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/Liars-Bar/Liars-bar/internal/hub"
	"github.com/Liars-Bar/Liars-bar/internal/table"
	"github.com/Liars-Bar/Liars-bar/internal/ws"
)

func parseTableID(r *http.Request) (uint64, bool) {
	id, err := strconv.ParseUint(chi.URLParam(r, "tableID"), 10, 64)
	return id, err == nil
}

func ensureSession(h *hub.Hub, tableID uint64) *table.Session {
	reply := make(chan *table.Session, 1)
	h.Inbox() <- hub.EnsureSession{TableID: tableID, Reply: reply}
	return <-reply
}

func writeResult(w http.ResponseWriter, ok bool) {
	w.Header().Set("Content-Type", "application/json")
	if !ok {
		w.WriteHeader(http.StatusConflict)
	}
	_ = json.NewEncoder(w).Encode(struct {
		OK bool `json:"ok"`
	}{OK: ok})
}

// Action dispatches one imperative action against a table session. Failures
// are a non-fatal ok=false; the user-facing message travels in the next
// snapshot.
func Action(h *hub.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tableID, ok := parseTableID(r)
		if !ok {
			http.Error(w, "bad table id", http.StatusBadRequest)
			return
		}

		action := chi.URLParam(r, "action")
		if action == "quitTable" {
			h.Inbox() <- hub.RemoveSession{TableID: tableID}
			writeResult(w, true)
			return
		}

		s := ensureSession(h, tableID)
		if s == nil {
			http.Error(w, "failed to open table session", http.StatusInternalServerError)
			return
		}

		switch action {
		case "joinTable":
			writeResult(w, s.JoinTable(r.Context()))
		case "startRound":
			writeResult(w, s.StartRound(r.Context()))
		case "shuffleCards":
			writeResult(w, s.ShuffleCards(r.Context()))
		case "placeCards":
			var body struct {
				Count uint8 `json:"count"`
			}
			if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Count == 0 {
				http.Error(w, "bad count", http.StatusBadRequest)
				return
			}
			writeResult(w, s.PlaceCards(r.Context(), body.Count))
		case "callLiar":
			writeResult(w, s.CallLiar(r.Context()))
		case "decryptMyCards":
			writeResult(w, s.DecryptMyCards(r.Context()))
		case "fetchTable":
			writeResult(w, s.FetchTable(r.Context()))
		default:
			http.Error(w, "unknown action", http.StatusNotFound)
		}
	}
}

// FetchTable returns the current view without registering an observer.
func FetchTable(h *hub.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tableID, ok := parseTableID(r)
		if !ok {
			http.Error(w, "bad table id", http.StatusBadRequest)
			return
		}
		s := ensureSession(h, tableID)
		if s == nil {
			http.Error(w, "failed to open table session", http.StatusInternalServerError)
			return
		}

		reply := make(chan table.View, 1)
		s.Inbox() <- table.GetView{Reply: reply}
		view := <-reply

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(ws.WireSnapshot(view.Snapshot))
	}
}

func Healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}
