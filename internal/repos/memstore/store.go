// Package memstore is an in-memory ledger store. Scopes run one at a time
// and their writes become visible only when fn returns nil.
package memstore

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/fastprodman/walletledger/internal/models"
	"github.com/fastprodman/walletledger/internal/repos/accounts"
	"github.com/fastprodman/walletledger/internal/repos/transactions"
	"github.com/fastprodman/walletledger/internal/services/ledger"
	"github.com/shopspring/decimal"
)

var _ ledger.Store = (*Store)(nil)

type Store struct {
	mu       sync.RWMutex
	accounts map[string]*models.Account
	txns     map[string]*models.Transaction
	now      func() time.Time
}

func New() *Store {
	return &Store{
		accounts: make(map[string]*models.Account),
		txns:     make(map[string]*models.Transaction),
		now:      time.Now,
	}
}

// PutAccount inserts or replaces an account.
func (s *Store) PutAccount(a *models.Account) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c := copyAccount(a)
	c.Currency = models.CanonicalCurrency(c.Currency)
	if c.CreatedAt.IsZero() {
		c.CreatedAt = s.now().UTC()
		c.UpdatedAt = c.CreatedAt
	}

	s.accounts[c.ID] = c
}

func (s *Store) WithTx(ctx context.Context, fn func(context.Context, ledger.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := ctx.Err()
	if err != nil {
		return fmt.Errorf("begin scope: %w", err)
	}

	sc := &scope{s: s, balances: make(map[string]decimal.Decimal), inserted: make(map[string]bool)}

	err = fn(ctx, sc)
	if err != nil {
		return err
	}

	now := s.now().UTC()
	for id, b := range sc.balances {
		a := s.accounts[id]
		a.Balance = b
		a.UpdatedAt = now
	}
	for _, t := range sc.inserts {
		s.txns[t.ID] = t
	}

	return nil
}

func (s *Store) GetAccount(_ context.Context, id string) (*models.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.accounts[id]
	if !ok {
		return nil, accounts.ErrAccountNotFound
	}

	return copyAccount(a), nil
}

func (s *Store) InsertTransaction(_ context.Context, t *models.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.txns[t.ID]; ok {
		return transactions.ErrDuplicateTransaction
	}

	s.txns[t.ID] = t.Clone()

	return nil
}

func (s *Store) GetTransaction(_ context.Context, id string, opts models.QueryOptions) (*models.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.txns[id]
	if !ok || (t.Deleted && !opts.IncludeDeleted) {
		return nil, transactions.ErrTransactionNotFound
	}

	return t.Clone(), nil
}

func (s *Store) ListHistory(_ context.Context, accountID string, opts models.QueryOptions) ([]*models.HistoryEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	recs := s.filter(opts, func(t *models.Transaction) bool { return t.InvolvesAccount(accountID) })
	slices.SortFunc(recs, newestFirst)

	return s.resolve(page(recs, opts)), nil
}

func (s *Store) ListFlagged(_ context.Context, opts models.QueryOptions) ([]*models.HistoryEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	recs := s.filter(opts, (*models.Transaction).IsSuspicious)
	slices.SortFunc(recs, func(a, b *models.Transaction) int {
		return cmp.Or(cmp.Compare(b.FraudScore, a.FraudScore), newestFirst(a, b))
	})

	return s.resolve(page(recs, opts)), nil
}

func (s *Store) ListFlaggedSince(_ context.Context, since time.Time, opts models.QueryOptions) ([]*models.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	recs := s.filter(opts, func(t *models.Transaction) bool {
		return t.IsSuspicious() && !t.CreatedAt.Before(since)
	})
	slices.SortFunc(recs, newestFirst)

	return page(recs, opts), nil
}

func (s *Store) SoftDeleteCompletedBefore(ctx context.Context, cutoff time.Time, limit int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := ctx.Err()
	if err != nil {
		return 0, fmt.Errorf("soft delete completed: %w", err)
	}

	var due []*models.Transaction
	for _, t := range s.txns {
		if t.Status == models.StatusCompleted && !t.Deleted && t.CreatedAt.Before(cutoff) {
			due = append(due, t)
		}
	}
	slices.SortFunc(due, func(a, b *models.Transaction) int {
		return cmp.Or(a.CreatedAt.Compare(b.CreatedAt), cmp.Compare(a.ID, b.ID))
	})

	if limit > 0 && len(due) > limit {
		due = due[:limit]
	}

	now := s.now()
	for _, t := range due {
		t.SoftDelete(now)
	}

	return len(due), nil
}

func (s *Store) SetDeleted(_ context.Context, id string, deleted bool, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.txns[id]
	if !ok {
		return transactions.ErrTransactionNotFound
	}

	if deleted {
		t.SoftDelete(at)
	} else {
		t.Restore()
		t.UpdatedAt = at.UTC()
	}

	return nil
}

func (s *Store) Stats(_ context.Context) (*models.Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st := &models.Stats{
		TotalAccounts:   int64(len(s.accounts)),
		CompletedVolume: make(map[string]decimal.Decimal),
	}

	for _, a := range s.accounts {
		if a.Usable() {
			st.ActiveAccounts++
		}
	}

	for _, t := range s.txns {
		if t.Deleted {
			continue
		}

		st.TotalTransactions++
		if t.Status == models.StatusCompleted {
			st.CompletedVolume[t.Currency] = st.CompletedVolume[t.Currency].Add(t.Amount)
		}
	}

	return st, nil
}

// filter returns clones of the committed records accepted by keep, honoring
// opts.IncludeDeleted.
func (s *Store) filter(opts models.QueryOptions, keep func(*models.Transaction) bool) []*models.Transaction {
	var out []*models.Transaction
	for _, t := range s.txns {
		if t.Deleted && !opts.IncludeDeleted {
			continue
		}

		if keep(t) {
			out = append(out, t.Clone())
		}
	}

	return out
}

func (s *Store) resolve(recs []*models.Transaction) []*models.HistoryEntry {
	out := make([]*models.HistoryEntry, 0, len(recs))
	for _, t := range recs {
		e := &models.HistoryEntry{Transaction: t}
		if a, ok := s.accounts[t.FromAccount]; ok {
			e.From = a.Party()
		}
		if a, ok := s.accounts[t.ToAccount]; ok {
			e.To = a.Party()
		}

		out = append(out, e)
	}

	return out
}

func newestFirst(a, b *models.Transaction) int {
	return cmp.Or(b.CreatedAt.Compare(a.CreatedAt), cmp.Compare(a.ID, b.ID))
}

func page(recs []*models.Transaction, opts models.QueryOptions) []*models.Transaction {
	if opts.Offset >= len(recs) {
		return nil
	}

	recs = recs[opts.Offset:]
	if opts.Limit > 0 && len(recs) > opts.Limit {
		recs = recs[:opts.Limit]
	}

	return recs
}

func copyAccount(a *models.Account) *models.Account {
	c := *a
	if a.DeletedAt != nil {
		at := *a.DeletedAt
		c.DeletedAt = &at
	}

	return &c
}
