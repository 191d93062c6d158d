package routes

import (
	"net/http"

	"github.com/Officialbobos/hometownpas-sub000/internal/handlers"
	appmw "github.com/Officialbobos/hometownpas-sub000/internal/middleware"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"
)

func NewRoutes(h *handlers.Handler) *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.Logger)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":"ok"}`))
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Post("/auth/login", h.Login)
	r.With(appmw.Authenticated).Get("/auth/me", h.Me)

	r.With(appmw.Authenticated).Get("/accounts", h.GetAccounts)
	r.With(appmw.Authenticated).Get("/accounts/{id}/balance", h.AccountBalance)

	r.With(appmw.Authenticated).Get("/transactions", h.Transactions)
	r.With(appmw.Authenticated).Post("/transactions/transfer", h.Transfer)

	r.Route("/admin", func(r chi.Router) {
		r.Use(appmw.Authenticated, appmw.AdminOnly)
		r.Get("/transfers/pending", h.PendingTransfers)
		r.Post("/transfers/{id}/resolve", h.ResolveTransfer)
		r.Post("/users/{id}/status", h.SetUserStatus)
	})

	r.Get("/swagger/*", httpSwagger.WrapHandler)

	return r
}
