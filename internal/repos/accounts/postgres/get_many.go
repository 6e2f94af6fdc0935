package accounts

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/fastprodman/walletledger/internal/models"
)

// GetMany returns the accounts that exist among ids. Missing ids are absent
// from the map rather than an error.
func (r *accountsRepo) GetMany(ctx context.Context, ids ...string) (map[string]*models.Account, error) {
	ids = slices.Compact(slices.Sorted(slices.Values(ids)))
	out := make(map[string]*models.Account, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	placeholders := make([]string, len(ids))
	args := make([]any, len(ids))
	for i, id := range ids {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		args[i] = id
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT `+accountColumns+`
		FROM accounts
		WHERE id IN (`+strings.Join(placeholders, ", ")+`)
	`, args...)
	if err != nil {
		return nil, fmt.Errorf("query accounts: %w", err)
	}
	//nolint:errcheck
	defer rows.Close()

	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}

		out[a.ID] = a
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("iterate accounts: %w", err)
	}

	return out, nil
}
