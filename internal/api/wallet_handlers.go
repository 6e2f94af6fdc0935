package api

import (
	"net/http"
	"time"

	"github.com/fastprodman/walletledger/internal/models"
	"github.com/fastprodman/walletledger/internal/services/ledger"
	"github.com/shopspring/decimal"
)

type amountRequest struct {
	Amount   string `json:"amount" validate:"required,money"`
	Currency string `json:"currency" validate:"omitempty,len=3,alpha"`
}

type transferRequest struct {
	ToAccountID string `json:"toAccountId" validate:"required,max=64"`
	Amount      string `json:"amount" validate:"required,money"`
	Currency    string `json:"currency" validate:"omitempty,len=3,alpha"`
}

type balanceResponse struct {
	AccountID    string `json:"accountId"`
	Balance      string `json:"balance"`
	BonusBalance string `json:"bonusBalance"`
	Currency     string `json:"currency"`
	AsOf         string `json:"asOf"`
}

type pageResponse struct {
	Transactions []*models.HistoryEntry `json:"transactions"`
	Limit        int                    `json:"limit"`
	Offset       int                    `json:"offset"`
}

type flaggedResponse struct {
	Error       string              `json:"error"`
	Outcome     models.Status       `json:"outcome"`
	Transaction *models.Transaction `json:"transaction"`
}

// GetBalanceHandler handles GET /wallet/balance
func (h *HandlerProvider) GetBalanceHandler(w http.ResponseWriter, r *http.Request) {
	snap, err := h.svc.GetBalance(r.Context(), accountFrom(r))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, balanceResponse{
		AccountID:    snap.AccountID,
		Balance:      snap.Balance.StringFixed(2),
		BonusBalance: snap.BonusBalance.StringFixed(2),
		Currency:     snap.Currency,
		AsOf:         snap.AsOf.UTC().Format(time.RFC3339),
	})
}

// GetHistoryHandler handles GET /wallet/history?limit&offset
func (h *HandlerProvider) GetHistoryHandler(w http.ResponseWriter, r *http.Request) {
	limit, offset, err := parsePage(r)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	entries, err := h.svc.GetHistory(r.Context(), accountFrom(r), limit, offset)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, pageResponse{Transactions: nonNil(entries), Limit: limit, Offset: offset})
}

// DepositHandler handles POST /wallet/deposit
func (h *HandlerProvider) DepositHandler(w http.ResponseWriter, r *http.Request) {
	var req amountRequest

	err := h.decodeBody(w, r, &req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	res, err := h.svc.Deposit(r.Context(), accountFrom(r), decimal.RequireFromString(req.Amount), req.Currency, requestMetadata(r))
	writeResult(w, r, res, err)
}

// WithdrawHandler handles POST /wallet/withdraw
func (h *HandlerProvider) WithdrawHandler(w http.ResponseWriter, r *http.Request) {
	var req amountRequest

	err := h.decodeBody(w, r, &req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	res, err := h.svc.Withdraw(r.Context(), accountFrom(r), decimal.RequireFromString(req.Amount), req.Currency, requestMetadata(r))
	writeResult(w, r, res, err)
}

// TransferHandler handles POST /wallet/transfer
func (h *HandlerProvider) TransferHandler(w http.ResponseWriter, r *http.Request) {
	var req transferRequest

	err := h.decodeBody(w, r, &req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	res, err := h.svc.Transfer(r.Context(), accountFrom(r), req.ToAccountID,
		decimal.RequireFromString(req.Amount), req.Currency, requestMetadata(r))
	writeResult(w, r, res, err)
}

// writeResult renders a mutation outcome. FLAGGED is a client-visible
// rejection that still carries the persisted record.
func writeResult(w http.ResponseWriter, r *http.Request, res *ledger.Result, err error) {
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	if res.Outcome == models.StatusFlagged {
		writeJSON(w, http.StatusUnprocessableEntity, flaggedResponse{
			Error:       "transaction flagged for review",
			Outcome:     res.Outcome,
			Transaction: res.Transaction,
		})

		return
	}

	writeJSON(w, http.StatusOK, res)
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}

	return s
}
