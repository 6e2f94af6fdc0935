package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewRouter constructs a chi router with all API endpoints registered.
func NewRouter(svc Ledger) http.Handler {
	h := NewHandler(svc)
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(RequestLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/wallet", func(r chi.Router) {
		r.Use(RequireAccount)

		r.Get("/balance", h.GetBalanceHandler)
		r.Get("/history", h.GetHistoryHandler)
		r.Post("/deposit", h.DepositHandler)
		r.Post("/withdraw", h.WithdrawHandler)
		r.Post("/transfer", h.TransferHandler)
	})

	r.Route("/admin", func(r chi.Router) {
		r.Get("/transactions/flagged", h.FlaggedHandler)
		r.Get("/transactions/{id}", h.GetTransactionHandler)
		r.Delete("/transactions/{id}", h.DeleteTransactionHandler)
		r.Post("/transactions/{id}/restore", h.RestoreTransactionHandler)
		r.Get("/reports/fraud", h.FraudReportHandler)
		r.Get("/statistics", h.StatisticsHandler)
	})

	return r
}
