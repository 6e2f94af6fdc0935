package transactions

import (
	"context"
	"fmt"

	"github.com/fastprodman/walletledger/internal/models"
	"github.com/shopspring/decimal"
)

func (r *transactionsRepo) Stats(ctx context.Context) (int64, map[string]decimal.Decimal, error) {
	var count int64

	err := r.db.QueryRowContext(ctx, `
		SELECT count(*)
		FROM transactions
		WHERE NOT is_deleted
	`).Scan(&count)
	if err != nil {
		return 0, nil, fmt.Errorf("count transactions: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT currency, sum(amount)
		FROM transactions
		WHERE status = $1
		  AND NOT is_deleted
		GROUP BY currency
	`, models.StatusCompleted)
	if err != nil {
		return 0, nil, fmt.Errorf("query volume: %w", err)
	}
	//nolint:errcheck
	defer rows.Close()

	volume := make(map[string]decimal.Decimal)
	for rows.Next() {
		var (
			currency string
			sum      decimal.Decimal
		)

		err = rows.Scan(&currency, &sum)
		if err != nil {
			return 0, nil, fmt.Errorf("scan volume: %w", err)
		}

		volume[currency] = sum
	}

	err = rows.Err()
	if err != nil {
		return 0, nil, fmt.Errorf("iterate volume: %w", err)
	}

	return count, volume, nil
}
