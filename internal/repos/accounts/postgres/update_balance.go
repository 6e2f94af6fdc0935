package accounts

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/fastprodman/walletledger/internal/repos/accounts"
	"github.com/shopspring/decimal"
)

func (r *accountsRepo) UpdateBalance(ctx context.Context, tx *sql.Tx, id string, balance decimal.Decimal) error {
	res, err := tx.ExecContext(ctx, `
		UPDATE accounts
		SET balance = $2, updated_at = now()
		WHERE id = $1
	`, id, balance)
	if err != nil {
		return fmt.Errorf("update balance: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}

	if affected == 0 {
		return accounts.ErrAccountNotFound
	}

	return nil
}
