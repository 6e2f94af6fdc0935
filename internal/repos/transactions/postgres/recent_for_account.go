package transactions

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/fastprodman/walletledger/internal/models"
)

// RecentForAccount reads, inside the caller's scope, every non-deleted record
// touching accountID created at or after since.
func (r *transactionsRepo) RecentForAccount(ctx context.Context, tx *sql.Tx, accountID string, since time.Time) ([]*models.Transaction, error) {
	rows, err := tx.QueryContext(ctx, `
		SELECT `+transactionColumns+`
		FROM transactions
		WHERE (from_account = $1 OR to_account = $1)
		  AND created_at >= $2
		  AND NOT is_deleted
		ORDER BY created_at DESC
	`, accountID, since)
	if err != nil {
		return nil, fmt.Errorf("query recent activity: %w", err)
	}

	return scanTransactions(rows)
}
