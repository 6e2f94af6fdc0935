package pgstore

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/fastprodman/walletledger/internal/models"
	"github.com/fastprodman/walletledger/internal/repos/accounts"
	"github.com/fastprodman/walletledger/internal/repos/transactions"
	"github.com/fastprodman/walletledger/internal/services/ledger"
	"github.com/shopspring/decimal"
)

var _ ledger.Tx = (*scope)(nil)

type scope struct {
	tx   *sql.Tx
	accs accounts.Accounts
	txns transactions.Transactions
}

func (s *scope) LockAccounts(ctx context.Context, ids ...string) (map[string]*models.Account, error) {
	locked, err := s.accs.LockForUpdate(ctx, s.tx, ids...)
	if err != nil {
		return nil, fmt.Errorf("lock accounts: %w", err)
	}

	return locked, nil
}

func (s *scope) RecentActivity(ctx context.Context, accountID string, since time.Time) ([]*models.Transaction, error) {
	recs, err := s.txns.RecentForAccount(ctx, s.tx, accountID, since)
	if err != nil {
		return nil, fmt.Errorf("recent activity: %w", err)
	}

	return recs, nil
}

func (s *scope) UpdateBalance(ctx context.Context, id string, balance decimal.Decimal) error {
	err := s.accs.UpdateBalance(ctx, s.tx, id, balance)
	if err != nil {
		return fmt.Errorf("update balance: %w", err)
	}

	return nil
}

func (s *scope) InsertTransaction(ctx context.Context, t *models.Transaction) error {
	err := s.txns.Insert(ctx, s.tx, t)
	if err != nil {
		return fmt.Errorf("insert transaction: %w", err)
	}

	return nil
}
