package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"regexp"
	"strconv"
	"strings"

	"github.com/fastprodman/walletledger/internal/models"
	"github.com/fastprodman/walletledger/internal/services/ledger"
	"github.com/fastprodman/walletledger/internal/services/risk"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

// Ledger is the engine surface the HTTP layer translates 1:1.
type Ledger interface {
	Deposit(ctx context.Context, accountID string, amount decimal.Decimal, currency string, meta models.Metadata) (*ledger.Result, error)
	Withdraw(ctx context.Context, accountID string, amount decimal.Decimal, currency string, meta models.Metadata) (*ledger.Result, error)
	Transfer(ctx context.Context, fromID, toID string, amount decimal.Decimal, currency string, meta models.Metadata) (*ledger.Result, error)
	GetBalance(ctx context.Context, accountID string) (*models.BalanceSnapshot, error)
	GetHistory(ctx context.Context, accountID string, limit, offset int) ([]*models.HistoryEntry, error)
	GetFlagged(ctx context.Context, limit, offset int) ([]*models.HistoryEntry, error)
	GetDailyFraudReport(ctx context.Context) (*risk.Digest, error)
	GetStatistics(ctx context.Context) (*models.Stats, error)
	GetTransaction(ctx context.Context, id string) (*models.Transaction, error)
	SoftDeleteTransaction(ctx context.Context, id string) (*models.Transaction, error)
	RestoreTransaction(ctx context.Context, id string) (*models.Transaction, error)
}

var _ Ledger = (*ledger.Service)(nil)

// HandlerProvider wraps a Ledger and exposes HTTP handlers.
type HandlerProvider struct {
	svc      Ledger
	validate *validator.Validate
}

var moneyPattern = regexp.MustCompile(`^[0-9]+(\.[0-9]{1,2})?$`)

// NewHandler returns a new Handler provider.
func NewHandler(svc Ledger) *HandlerProvider {
	v := validator.New(validator.WithRequiredStructEnabled())

	// Registering a static tag on a fresh validator cannot fail.
	_ = v.RegisterValidation("money", func(fl validator.FieldLevel) bool {
		return moneyPattern.MatchString(fl.Field().String())
	})

	return &HandlerProvider{svc: svc, validate: v}
}

// --- Helpers ---

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	err := json.NewEncoder(w).Encode(v)
	if err != nil {
		slog.Error("failed to encode JSON response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// decodeBody reads a size-capped JSON body into dst and validates it.
func (h *HandlerProvider) decodeBody(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20) // 1MB cap
	defer r.Body.Close()

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	err := dec.Decode(dst)
	if err != nil {
		if errors.Is(err, io.EOF) {
			return &models.ValidationError{Field: "body", Reason: "empty"}
		}

		return &models.ValidationError{Field: "body", Reason: "invalid JSON"}
	}

	err = h.validate.Struct(dst)
	if err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return &models.ValidationError{
				Field:  lowerFirst(verrs[0].Field()),
				Reason: fmt.Sprintf("failed %q check", verrs[0].Tag()),
			}
		}

		return fmt.Errorf("validate body: %w", err)
	}

	return nil
}

// parsePage reads ?limit and ?offset. Absent values are zero, which the
// engine turns into defaults.
func parsePage(r *http.Request) (int, int, error) {
	q := r.URL.Query()

	limit, err := queryInt(q.Get("limit"), "limit")
	if err != nil {
		return 0, 0, err
	}

	offset, err := queryInt(q.Get("offset"), "offset")
	if err != nil {
		return 0, 0, err
	}

	return limit, offset, nil
}

func queryInt(raw, field string) (int, error) {
	if raw == "" {
		return 0, nil
	}

	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, &models.ValidationError{Field: field, Reason: "must be an integer"}
	}

	return n, nil
}

// requestMetadata captures the client context stored with each record.
func requestMetadata(r *http.Request) models.Metadata {
	// RealIP may leave a bare address without a port.
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		ip = r.RemoteAddr
	}

	return models.Metadata{
		IPAddress:  ip,
		DeviceInfo: r.UserAgent(),
		Location:   r.Header.Get("X-Location"),
	}
}

// writeServiceError maps engine errors to status codes.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *models.ValidationError

	switch {
	case errors.As(err, &verr):
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error":  "validation failed",
			"field":  verr.Field,
			"reason": verr.Reason,
		})
	case errors.Is(err, models.ErrValidation):
		writeError(w, http.StatusBadRequest, "validation failed")
	case errors.Is(err, ledger.ErrAccountNotFound):
		writeError(w, http.StatusNotFound, "account not found")
	case errors.Is(err, ledger.ErrTransactionNotFound):
		writeError(w, http.StatusNotFound, "transaction not found")
	case errors.Is(err, ledger.ErrInsufficientFunds):
		writeError(w, http.StatusConflict, "insufficient funds")
	case errors.Is(err, ledger.ErrTransient):
		w.Header().Set("Retry-After", "1")
		writeError(w, http.StatusServiceUnavailable, "temporarily unavailable, retry")
	default:
		loggerFrom(r).Error("request failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}

	return strings.ToLower(s[:1]) + s[1:]
}
