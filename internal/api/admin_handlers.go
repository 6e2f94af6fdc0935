package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// FlaggedHandler handles GET /admin/transactions/flagged?limit&offset
func (h *HandlerProvider) FlaggedHandler(w http.ResponseWriter, r *http.Request) {
	limit, offset, err := parsePage(r)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	entries, err := h.svc.GetFlagged(r.Context(), limit, offset)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, pageResponse{Transactions: nonNil(entries), Limit: limit, Offset: offset})
}

// FraudReportHandler handles GET /admin/reports/fraud
func (h *HandlerProvider) FraudReportHandler(w http.ResponseWriter, r *http.Request) {
	digest, err := h.svc.GetDailyFraudReport(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, digest)
}

// StatisticsHandler handles GET /admin/statistics
func (h *HandlerProvider) StatisticsHandler(w http.ResponseWriter, r *http.Request) {
	st, err := h.svc.GetStatistics(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, st)
}

// GetTransactionHandler handles GET /admin/transactions/{id}
func (h *HandlerProvider) GetTransactionHandler(w http.ResponseWriter, r *http.Request) {
	t, err := h.svc.GetTransaction(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, t)
}

// DeleteTransactionHandler handles DELETE /admin/transactions/{id}
func (h *HandlerProvider) DeleteTransactionHandler(w http.ResponseWriter, r *http.Request) {
	t, err := h.svc.SoftDeleteTransaction(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, t)
}

// RestoreTransactionHandler handles POST /admin/transactions/{id}/restore
func (h *HandlerProvider) RestoreTransactionHandler(w http.ResponseWriter, r *http.Request) {
	t, err := h.svc.RestoreTransaction(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, t)
}
