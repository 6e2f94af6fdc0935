package transactions

import (
	"context"
	"fmt"

	"github.com/fastprodman/walletledger/internal/models"
)

func (r *transactionsRepo) ListForAccount(ctx context.Context, accountID string, opts models.QueryOptions) ([]*models.Transaction, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+transactionColumns+`
		FROM transactions
		WHERE (from_account = $1 OR to_account = $1)
		  AND ($2 OR NOT is_deleted)
		ORDER BY created_at DESC, id
		LIMIT $3 OFFSET $4
	`, accountID, opts.IncludeDeleted, limitArg(opts), opts.Offset)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}

	return scanTransactions(rows)
}
