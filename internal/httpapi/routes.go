package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sofytk/lazy-daisy/internal/ws"
)

func (a *API) SetupRoutes() http.Handler {
	r := chi.NewRouter()

	r.Post("/sessions", a.CreateSession)
	r.Delete("/sessions/{code}", a.DeleteSession)
	r.Get("/presets", a.ListPresets)
	r.Get("/history/results", a.ListResults)
	r.Get("/history/purchases", a.ListPurchases)
	r.Get("/referrals", a.ListReferrals)
	r.Post("/referrals/apply", a.ApplyReferral)
	r.Get("/healthz", Healthz)
	r.Get("/ws", ws.Handler(a.hub))
	return r
}
