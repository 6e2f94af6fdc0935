package transactions

import (
	"context"
	"fmt"
	"time"

	"github.com/fastprodman/walletledger/internal/models"
)

// suspiciousClause matches models.(*Transaction).IsSuspicious.
const suspiciousClause = `(fraud_score >= 70 OR jsonb_array_length(fraud_flags) > 0)`

func (r *transactionsRepo) ListFlagged(ctx context.Context, opts models.QueryOptions) ([]*models.Transaction, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+transactionColumns+`
		FROM transactions
		WHERE `+suspiciousClause+`
		  AND ($1 OR NOT is_deleted)
		ORDER BY fraud_score DESC, created_at DESC, id
		LIMIT $2 OFFSET $3
	`, opts.IncludeDeleted, limitArg(opts), opts.Offset)
	if err != nil {
		return nil, fmt.Errorf("query flagged: %w", err)
	}

	return scanTransactions(rows)
}

func (r *transactionsRepo) ListFlaggedSince(ctx context.Context, since time.Time, opts models.QueryOptions) ([]*models.Transaction, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+transactionColumns+`
		FROM transactions
		WHERE `+suspiciousClause+`
		  AND created_at >= $1
		  AND ($2 OR NOT is_deleted)
		ORDER BY created_at DESC, id
		LIMIT $3 OFFSET $4
	`, since, opts.IncludeDeleted, limitArg(opts), opts.Offset)
	if err != nil {
		return nil, fmt.Errorf("query flagged since: %w", err)
	}

	return scanTransactions(rows)
}
