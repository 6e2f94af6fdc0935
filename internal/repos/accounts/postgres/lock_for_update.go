package accounts

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"slices"

	"github.com/fastprodman/walletledger/internal/models"
	"github.com/fastprodman/walletledger/internal/repos/accounts"
)

// LockForUpdate row-locks every account in ids, one at a time in
// lexicographic order, so concurrent scopes touching the same pair always
// acquire locks in the same sequence.
func (r *accountsRepo) LockForUpdate(ctx context.Context, tx *sql.Tx, ids ...string) (map[string]*models.Account, error) {
	ids = slices.Compact(slices.Sorted(slices.Values(ids)))
	out := make(map[string]*models.Account, len(ids))

	for _, id := range ids {
		row := tx.QueryRowContext(ctx, `
			SELECT `+accountColumns+`
			FROM accounts
			WHERE id = $1
			FOR UPDATE
		`, id)

		a, err := scanAccount(row)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, fmt.Errorf("%w: %s", accounts.ErrAccountNotFound, id)
			}

			return nil, fmt.Errorf("lock account %s: %w", id, err)
		}

		out[id] = a
	}

	return out, nil
}
