package transactions

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/fastprodman/walletledger/internal/repos/transactions"
)

func (r *transactionsRepo) SetDeleted(ctx context.Context, id string, deleted bool, at time.Time) error {
	deletedAt := sql.NullTime{Time: at.UTC(), Valid: deleted}

	res, err := r.db.ExecContext(ctx, `
		UPDATE transactions
		SET is_deleted = $2, deleted_at = $3, updated_at = $4
		WHERE id = $1
	`, id, deleted, deletedAt, at.UTC())
	if err != nil {
		return fmt.Errorf("set deleted: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}

	if affected == 0 {
		return transactions.ErrTransactionNotFound
	}

	return nil
}
