package transactions

import (
	"context"
	"fmt"
	"time"

	"github.com/fastprodman/walletledger/internal/models"
)

// SoftDeleteCompletedBefore marks at most limit COMPLETED records older than
// cutoff as deleted and returns how many rows it touched. Rows locked by a
// concurrent sweep are skipped and picked up by the next batch.
func (r *transactionsRepo) SoftDeleteCompletedBefore(ctx context.Context, cutoff time.Time, limit int) (int, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE transactions
		SET is_deleted = TRUE, deleted_at = now(), updated_at = now()
		WHERE id IN (
			SELECT id
			FROM transactions
			WHERE status = $1
			  AND created_at < $2
			  AND NOT is_deleted
			ORDER BY created_at
			LIMIT $3
			FOR UPDATE SKIP LOCKED
		)
	`, models.StatusCompleted, cutoff, limit)
	if err != nil {
		return 0, fmt.Errorf("soft delete completed: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}

	return int(affected), nil
}
