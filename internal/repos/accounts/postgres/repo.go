package accounts

import (
	"database/sql"
	"fmt"

	"github.com/fastprodman/walletledger/internal/models"
	"github.com/fastprodman/walletledger/internal/repos/accounts"
)

var _ accounts.Accounts = (*accountsRepo)(nil)

type accountsRepo struct{ db *sql.DB }

func New(db *sql.DB) *accountsRepo {
	return &accountsRepo{db: db}
}

const accountColumns = `id, display_name, email, balance, bonus_balance, currency,
	is_active, is_deleted, deleted_at, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAccount(row rowScanner) (*models.Account, error) {
	var (
		a         models.Account
		email     sql.NullString
		deletedAt sql.NullTime
	)

	err := row.Scan(
		&a.ID, &a.DisplayName, &email, &a.Balance, &a.BonusBalance, &a.Currency,
		&a.Active, &a.Deleted, &deletedAt, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("scan account: %w", err)
	}

	a.Email = email.String
	if deletedAt.Valid {
		at := deletedAt.Time.UTC()
		a.DeletedAt = &at
	}

	return &a, nil
}
