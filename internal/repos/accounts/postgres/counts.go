package accounts

import (
	"context"
	"fmt"
)

func (r *accountsRepo) Counts(ctx context.Context) (int64, int64, error) {
	var total, active int64

	err := r.db.QueryRowContext(ctx, `
		SELECT count(*),
		       count(*) FILTER (WHERE is_active AND NOT is_deleted)
		FROM accounts
	`).Scan(&total, &active)
	if err != nil {
		return 0, 0, fmt.Errorf("count accounts: %w", err)
	}

	return total, active, nil
}
