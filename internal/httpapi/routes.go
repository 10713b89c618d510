package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Liars-Bar/Liars-bar/internal/hub"
	"github.com/Liars-Bar/Liars-bar/internal/ws"
)

func SetupRoutes(h *hub.Hub) http.Handler {
	r := chi.NewRouter()

	r.Get("/healthz", Healthz)
	r.Post("/tables/{tableID}/{action}", Action(h))
	r.Get("/tables/{tableID}", FetchTable(h))
	r.Get("/ws", ws.Handler(h))
	return r
}
