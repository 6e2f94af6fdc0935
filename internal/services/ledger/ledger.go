// Package ledger applies balance-affecting operations atomically and scores
// every candidate before any funds move.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/fastprodman/walletledger/internal/infra/logging"
	"github.com/fastprodman/walletledger/internal/metrics"
	"github.com/fastprodman/walletledger/internal/models"
	"github.com/fastprodman/walletledger/internal/services/notify"
	"github.com/fastprodman/walletledger/internal/services/risk"
	"github.com/fastprodman/walletledger/pkg/retry"
	"github.com/shopspring/decimal"
)

// persistTimeout bounds best-effort writes made after the caller's scope ended.
const persistTimeout = 5 * time.Second

// errAbortFlagged rolls the scope back once the candidate is FLAGGED.
var errAbortFlagged = errors.New("candidate flagged")

// Result is the terminal outcome of a mutating operation. Outcome is either
// COMPLETED or FLAGGED; a FLAGGED result is not an error.
type Result struct {
	Transaction *models.Transaction `json:"transaction"`
	Outcome     models.Status       `json:"outcome"`
}

type Service struct {
	store     Store
	scorer    *risk.Scorer
	notifier  notify.Notifier
	now       func() time.Time
	window    time.Duration
	largeTx   map[string]decimal.Decimal
	attempts  int
	baseDelay time.Duration
}

func New(store Store, scorer *risk.Scorer, notifier notify.Notifier, opts ...Option) *Service {
	if notifier == nil {
		notifier = notify.Discard{}
	}

	s := &Service{
		store:     store,
		scorer:    scorer,
		notifier:  notifier,
		now:       time.Now,
		window:    scorer.Window(),
		largeTx:   DefaultLargeTransactionThresholds(),
		attempts:  DefaultRetryAttempts,
		baseDelay: DefaultRetryBaseDelay,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

func (s *Service) Deposit(ctx context.Context, accountID string, amount decimal.Decimal, currency string, meta models.Metadata) (*Result, error) {
	return s.execute(ctx, models.KindDeposit, "", accountID, amount, currency, meta)
}

func (s *Service) Withdraw(ctx context.Context, accountID string, amount decimal.Decimal, currency string, meta models.Metadata) (*Result, error) {
	return s.execute(ctx, models.KindWithdrawal, accountID, "", amount, currency, meta)
}

func (s *Service) Transfer(ctx context.Context, fromID, toID string, amount decimal.Decimal, currency string, meta models.Metadata) (*Result, error) {
	return s.execute(ctx, models.KindTransfer, fromID, toID, amount, currency, meta)
}

// LargeTransactionThreshold returns the notification threshold for currency,
// falling back to the USD threshold.
func (s *Service) LargeTransactionThreshold(currency string) decimal.Decimal {
	th, ok := s.largeTx[models.CanonicalCurrency(currency)]
	if ok {
		return th
	}

	return s.largeTx[fallbackCurrency]
}

// execute runs one mutating operation:
//
// 1) Build the PENDING record (validation errors leave no trace).
// 2) In one scope: lock the parties, check funds, score against recent activity.
// 3) Suspicious: roll back, persist the FLAGGED record, alert the parties.
// 4) Otherwise: move funds, persist the COMPLETED record, commit.
// 5) After commit: large_transaction alert when the amount reaches the threshold.
//
// Store conflicts retry the whole scope on a fresh copy of the record.
func (s *Service) execute(ctx context.Context, kind models.Kind, from, to string, amount decimal.Decimal, currency string, meta models.Metadata) (res *Result, err error) {
	start := time.Now()
	op := strings.ToLower(string(kind))
	ctx = logging.With(ctx, "op", op)

	defer func() {
		metrics.LedgerOperationDuration.WithLabelValues(string(kind)).Observe(time.Since(start).Seconds())
		metrics.LedgerOperationsTotal.WithLabelValues(string(kind), outcomeLabel(res, err)).Inc()
	}()

	proto, err := models.NewTransaction(kind, amount, currency, from, to, meta)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	ctx = logging.With(ctx, "transactionId", proto.ID)

	var (
		rec     *models.Transaction
		parties map[string]*models.Account
	)

	err = retry.Do(ctx, s.attempts, s.baseDelay, func(attempt int) error {
		if attempt > 0 {
			metrics.LedgerConflictRetries.WithLabelValues(string(kind)).Inc()
			logging.FromContext(ctx).Debug("retrying after store conflict", "attempt", attempt)
		}

		rec = proto.Clone()

		var serr error
		parties, serr = s.apply(ctx, rec)
		if errors.Is(serr, ErrConflict) {
			return serr
		}

		return retry.Permanent(serr)
	})

	switch {
	case err == nil:
		s.alertLarge(ctx, rec, parties)

		return &Result{Transaction: rec, Outcome: models.StatusCompleted}, nil
	case errors.Is(err, errAbortFlagged):
		return s.flagged(ctx, rec, parties)
	case errors.Is(err, models.ErrValidation),
		errors.Is(err, ErrAccountNotFound),
		errors.Is(err, ErrInsufficientFunds):
		return nil, fmt.Errorf("%s: %w", op, err)
	case errors.Is(err, ErrConflict):
		s.persistFailed(ctx, proto, err)

		return nil, fmt.Errorf("%s: %w: %w", op, ErrTransient, err)
	default:
		s.persistFailed(ctx, proto, err)

		return nil, fmt.Errorf("%s: %w", op, err)
	}
}

// apply runs a single scope attempt against rec. The returned accounts are
// the locked copies, used afterwards to address notifications.
//
//nolint:cyclop
func (s *Service) apply(ctx context.Context, rec *models.Transaction) (map[string]*models.Account, error) {
	var parties map[string]*models.Account

	err := s.store.WithTx(ctx, func(ctx context.Context, tx Tx) error {
		ids := partyIDs(rec)

		locked, err := tx.LockAccounts(ctx, ids...)
		if err != nil {
			return fmt.Errorf("lock accounts: %w", err)
		}

		for _, id := range ids {
			a, ok := locked[id]
			if !ok || !a.Usable() {
				return fmt.Errorf("%w: %s", ErrAccountNotFound, id)
			}

			if a.Currency != rec.Currency {
				return &models.ValidationError{
					Field:  "currency",
					Reason: fmt.Sprintf("account %s holds %s, not %s", id, a.Currency, rec.Currency),
				}
			}
		}

		parties = locked

		if rec.FromAccount != "" && locked[rec.FromAccount].Balance.LessThan(rec.Amount) {
			return fmt.Errorf("%w: balance %s below %s", ErrInsufficientFunds,
				locked[rec.FromAccount].Balance.StringFixed(2), rec.Amount.StringFixed(2))
		}

		history, err := tx.RecentActivity(ctx, rec.Subject(), s.now().Add(-s.window))
		if err != nil {
			return fmt.Errorf("load recent activity: %w", err)
		}

		verdict := s.scorer.Evaluate(rec, history)
		rec.ApplyRisk(verdict.Score, verdict.Flags)
		metrics.RiskScore.Observe(float64(verdict.Score))

		if verdict.Suspicious() {
			err = rec.Transition(models.StatusFlagged)
			if err != nil {
				return fmt.Errorf("flag record: %w", err)
			}

			return errAbortFlagged
		}

		if rec.FromAccount != "" {
			err = tx.UpdateBalance(ctx, rec.FromAccount, locked[rec.FromAccount].Balance.Sub(rec.Amount))
			if err != nil {
				return fmt.Errorf("debit %s: %w", rec.FromAccount, err)
			}
		}

		if rec.ToAccount != "" {
			err = tx.UpdateBalance(ctx, rec.ToAccount, locked[rec.ToAccount].Balance.Add(rec.Amount))
			if err != nil {
				return fmt.Errorf("credit %s: %w", rec.ToAccount, err)
			}
		}

		err = rec.Transition(models.StatusCompleted)
		if err != nil {
			return fmt.Errorf("complete record: %w", err)
		}

		err = tx.InsertTransaction(ctx, rec)
		if err != nil {
			return fmt.Errorf("insert record: %w", err)
		}

		return nil
	})

	return parties, err
}

// flagged persists the terminal FLAGGED record outside the aborted scope and
// alerts every party.
func (s *Service) flagged(ctx context.Context, rec *models.Transaction, parties map[string]*models.Account) (*Result, error) {
	pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), persistTimeout)
	defer cancel()

	err := s.store.InsertTransaction(pctx, rec)
	if err != nil {
		return nil, fmt.Errorf("persist flagged record: %w", err)
	}

	logging.FromContext(ctx).Warn("transaction flagged",
		"fraudScore", rec.FraudScore,
		"fraudFlags", rec.FraudFlags,
	)

	s.alert(ctx, notify.KindTransactionAlert, rec, parties)

	return &Result{Transaction: rec, Outcome: models.StatusFlagged}, nil
}

// persistFailed records an operation that died after its accounts were
// loaded. Failure to write it is logged only.
func (s *Service) persistFailed(ctx context.Context, proto *models.Transaction, cause error) {
	rec := proto.Clone()

	err := rec.Transition(models.StatusFailed)
	if err != nil {
		return
	}

	pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), persistTimeout)
	defer cancel()

	logger := logging.FromContext(ctx)
	logger.Error("operation failed", "error", cause)

	err = s.store.InsertTransaction(pctx, rec)
	if err != nil {
		logger.Error("persist failed record", "error", err)
	}
}

func (s *Service) alertLarge(ctx context.Context, rec *models.Transaction, parties map[string]*models.Account) {
	if rec.Amount.LessThan(s.LargeTransactionThreshold(rec.Currency)) {
		return
	}

	s.alert(ctx, notify.KindLargeTransaction, rec, parties)
}

type alertPayload struct {
	TransactionID string          `json:"transactionId"`
	Type          models.Kind     `json:"type"`
	Amount        decimal.Decimal `json:"amount"`
	Currency      string          `json:"currency"`
	FromAccount   string          `json:"fromAccount,omitempty"`
	ToAccount     string          `json:"toAccount,omitempty"`
	Status        models.Status   `json:"status"`
	FraudScore    int             `json:"fraudScore"`
	FraudFlags    models.Flags    `json:"fraudFlags"`
	CreatedAt     time.Time       `json:"createdAt"`
}

// alert notifies each party of rec once. The notifier never blocks.
func (s *Service) alert(ctx context.Context, kind notify.Kind, rec *models.Transaction, parties map[string]*models.Account) {
	payload := alertPayload{
		TransactionID: rec.ID,
		Type:          rec.Kind,
		Amount:        rec.Amount,
		Currency:      rec.Currency,
		FromAccount:   rec.FromAccount,
		ToAccount:     rec.ToAccount,
		Status:        rec.Status,
		FraudScore:    rec.FraudScore,
		FraudFlags:    rec.FraudFlags,
		CreatedAt:     rec.CreatedAt,
	}

	for _, id := range partyIDs(rec) {
		a, ok := parties[id]
		if !ok {
			continue
		}

		s.notifier.Notify(ctx, notify.New(kind, a.Recipient(), payload))
	}
}

// partyIDs lists the accounts rec touches, source first.
func partyIDs(rec *models.Transaction) []string {
	ids := make([]string, 0, 2)
	if rec.FromAccount != "" {
		ids = append(ids, rec.FromAccount)
	}
	if rec.ToAccount != "" {
		ids = append(ids, rec.ToAccount)
	}

	return ids
}

func outcomeLabel(res *Result, err error) string {
	switch {
	case err == nil && res != nil:
		return strings.ToLower(string(res.Outcome))
	case errors.Is(err, models.ErrValidation):
		return "invalid"
	case errors.Is(err, ErrAccountNotFound):
		return "not_found"
	case errors.Is(err, ErrInsufficientFunds):
		return "insufficient_funds"
	case errors.Is(err, ErrTransient):
		return "transient"
	default:
		return "error"
	}
}
