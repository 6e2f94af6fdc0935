package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/fastprodman/walletledger/internal/models"
	"github.com/fastprodman/walletledger/internal/services/risk"
)

// GetBalance returns the current balance of an account. Soft-deleted
// accounts read as absent.
func (s *Service) GetBalance(ctx context.Context, accountID string) (*models.BalanceSnapshot, error) {
	a, err := s.account(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("get balance: %w", err)
	}

	return &models.BalanceSnapshot{
		AccountID:    a.ID,
		Balance:      a.Balance,
		BonusBalance: a.BonusBalance,
		Currency:     a.Currency,
		AsOf:         s.now().UTC(),
	}, nil
}

// GetHistory returns the account's non-deleted records, newest first, with
// both parties resolved for display.
func (s *Service) GetHistory(ctx context.Context, accountID string, limit, offset int) ([]*models.HistoryEntry, error) {
	opts, err := models.Page(limit, offset)
	if err != nil {
		return nil, fmt.Errorf("get history: %w", err)
	}

	_, err = s.account(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("get history: %w", err)
	}

	entries, err := s.store.ListHistory(ctx, accountID, opts)
	if err != nil {
		return nil, fmt.Errorf("get history: %w", err)
	}

	return entries, nil
}

// GetFlagged lists suspicious records, highest score first.
func (s *Service) GetFlagged(ctx context.Context, limit, offset int) ([]*models.HistoryEntry, error) {
	opts, err := models.Page(limit, offset)
	if err != nil {
		return nil, fmt.Errorf("get flagged: %w", err)
	}

	entries, err := s.store.ListFlagged(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("get flagged: %w", err)
	}

	return entries, nil
}

// GetDailyFraudReport aggregates the suspicious records of the trailing window.
func (s *Service) GetDailyFraudReport(ctx context.Context) (*risk.Digest, error) {
	until := s.now().UTC()

	return s.FraudReport(ctx, until.Add(-s.window), until)
}

// FraudReport aggregates suspicious records created in [from, until).
func (s *Service) FraudReport(ctx context.Context, from, until time.Time) (*risk.Digest, error) {
	recs, err := s.store.ListFlaggedSince(ctx, from, models.QueryOptions{})
	if err != nil {
		return nil, fmt.Errorf("fraud report: %w", err)
	}

	inRange := recs[:0]
	for _, r := range recs {
		if r.CreatedAt.Before(until) {
			inRange = append(inRange, r)
		}
	}

	return risk.BuildDigest(inRange, from, until), nil
}

// GetTransaction returns a record by id, including soft-deleted ones.
func (s *Service) GetTransaction(ctx context.Context, id string) (*models.Transaction, error) {
	t, err := s.store.GetTransaction(ctx, id, models.QueryOptions{IncludeDeleted: true})
	if err != nil {
		return nil, fmt.Errorf("get transaction: %w", err)
	}

	return t, nil
}

func (s *Service) SoftDeleteTransaction(ctx context.Context, id string) (*models.Transaction, error) {
	return s.setDeleted(ctx, id, true)
}

func (s *Service) RestoreTransaction(ctx context.Context, id string) (*models.Transaction, error) {
	return s.setDeleted(ctx, id, false)
}

func (s *Service) setDeleted(ctx context.Context, id string, deleted bool) (*models.Transaction, error) {
	err := s.store.SetDeleted(ctx, id, deleted, s.now())
	if err != nil {
		return nil, fmt.Errorf("set deleted=%t: %w", deleted, err)
	}

	return s.GetTransaction(ctx, id)
}

// SoftDeleteCompletedBefore marks up to limit COMPLETED records older than
// cutoff as deleted. It is safe to rerun.
func (s *Service) SoftDeleteCompletedBefore(ctx context.Context, cutoff time.Time, limit int) (int, error) {
	n, err := s.store.SoftDeleteCompletedBefore(ctx, cutoff, limit)
	if err != nil {
		return n, fmt.Errorf("soft delete completed: %w", err)
	}

	return n, nil
}

func (s *Service) GetStatistics(ctx context.Context) (*models.Stats, error) {
	st, err := s.store.Stats(ctx)
	if err != nil {
		return nil, fmt.Errorf("get statistics: %w", err)
	}

	return st, nil
}

func (s *Service) account(ctx context.Context, id string) (*models.Account, error) {
	if id == "" {
		return nil, &models.ValidationError{Field: "accountId", Reason: "required"}
	}

	a, err := s.store.GetAccount(ctx, id)
	if err != nil {
		return nil, err
	}

	if a.Deleted {
		return nil, ErrAccountNotFound
	}

	return a, nil
}
