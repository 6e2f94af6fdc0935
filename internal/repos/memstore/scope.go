package memstore

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/fastprodman/walletledger/internal/models"
	"github.com/fastprodman/walletledger/internal/repos/accounts"
	"github.com/fastprodman/walletledger/internal/repos/transactions"
	"github.com/fastprodman/walletledger/internal/services/ledger"
	"github.com/shopspring/decimal"
)

var _ ledger.Tx = (*scope)(nil)

// scope stages writes until the owning WithTx call commits them. It is only
// used while the store's write lock is held.
type scope struct {
	s        *Store
	balances map[string]decimal.Decimal
	inserts  []*models.Transaction
	inserted map[string]bool
}

func (sc *scope) LockAccounts(_ context.Context, ids ...string) (map[string]*models.Account, error) {
	out := make(map[string]*models.Account, len(ids))

	for _, id := range slices.Sorted(slices.Values(ids)) {
		a, ok := sc.s.accounts[id]
		if !ok {
			return nil, fmt.Errorf("%w: %s", accounts.ErrAccountNotFound, id)
		}

		c := copyAccount(a)
		if b, ok := sc.balances[id]; ok {
			c.Balance = b
		}
		out[id] = c
	}

	return out, nil
}

func (sc *scope) RecentActivity(_ context.Context, accountID string, since time.Time) ([]*models.Transaction, error) {
	var out []*models.Transaction

	visit := func(t *models.Transaction) {
		if !t.Deleted && t.InvolvesAccount(accountID) && !t.CreatedAt.Before(since) {
			out = append(out, t.Clone())
		}
	}

	for _, t := range sc.s.txns {
		visit(t)
	}
	for _, t := range sc.inserts {
		visit(t)
	}

	slices.SortFunc(out, newestFirst)

	return out, nil
}

func (sc *scope) UpdateBalance(_ context.Context, id string, balance decimal.Decimal) error {
	if _, ok := sc.s.accounts[id]; !ok {
		return accounts.ErrAccountNotFound
	}

	if balance.IsNegative() {
		return fmt.Errorf("update balance %s: negative balance %s", id, balance)
	}

	sc.balances[id] = balance

	return nil
}

func (sc *scope) InsertTransaction(_ context.Context, t *models.Transaction) error {
	if _, ok := sc.s.txns[t.ID]; ok || sc.inserted[t.ID] {
		return transactions.ErrDuplicateTransaction
	}

	sc.inserted[t.ID] = true
	sc.inserts = append(sc.inserts, t.Clone())

	return nil
}
