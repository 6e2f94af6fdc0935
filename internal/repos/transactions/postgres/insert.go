package transactions

import (
	"context"
	"fmt"

	"github.com/fastprodman/walletledger/internal/infra/pgutils"
	"github.com/fastprodman/walletledger/internal/models"
	"github.com/fastprodman/walletledger/internal/repos/transactions"
)

// Insert writes t through q, which is the scope's *sql.Tx for committed
// records or the pool itself for FLAGGED and FAILED ones.
func (r *transactionsRepo) Insert(ctx context.Context, q pgutils.Querier, t *models.Transaction) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO transactions (`+transactionColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`,
		t.ID, t.Kind, t.Amount, t.Currency, nullable(t.FromAccount), nullable(t.ToAccount), t.Status,
		t.Description, t.FraudScore, t.FraudFlags, t.Metadata, t.Deleted, t.DeletedAt,
		t.CreatedAt, t.UpdatedAt,
	)
	if err != nil {
		if pgutils.IsUniqueViolation(err) {
			return transactions.ErrDuplicateTransaction
		}

		return fmt.Errorf("insert transaction: %w", err)
	}

	return nil
}
