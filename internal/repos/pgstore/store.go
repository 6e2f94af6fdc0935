// Package pgstore implements the ledger store on top of PostgreSQL.
package pgstore

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/fastprodman/walletledger/internal/infra/pgutils"
	"github.com/fastprodman/walletledger/internal/models"
	"github.com/fastprodman/walletledger/internal/repos"
	"github.com/fastprodman/walletledger/internal/repos/accounts"
	pgaccounts "github.com/fastprodman/walletledger/internal/repos/accounts/postgres"
	"github.com/fastprodman/walletledger/internal/repos/transactions"
	pgtransactions "github.com/fastprodman/walletledger/internal/repos/transactions/postgres"
	"github.com/fastprodman/walletledger/internal/services/ledger"
)

var _ ledger.Store = (*Store)(nil)

type Store struct {
	db     *sql.DB
	accs   accounts.Accounts
	txns   transactions.Transactions
	txOpts *sql.TxOptions
}

func New(db *sql.DB) *Store {
	return &Store{
		db:     db,
		accs:   pgaccounts.New(db),
		txns:   pgtransactions.New(db),
		txOpts: &sql.TxOptions{Isolation: sql.LevelSerializable},
	}
}

// WithTx runs fn in a SERIALIZABLE transaction. Serialization failures and
// deadlocks surface as repos.ErrConflict.
func (s *Store) WithTx(ctx context.Context, fn func(context.Context, ledger.Tx) error) error {
	err := pgutils.WithTx(ctx, s.db, s.txOpts, func(tx *sql.Tx) error {
		return fn(ctx, &scope{tx: tx, accs: s.accs, txns: s.txns})
	})
	if err != nil {
		if pgutils.IsSerializationFailure(err) {
			return fmt.Errorf("%w: %w", repos.ErrConflict, err)
		}

		return err
	}

	return nil
}

func (s *Store) GetAccount(ctx context.Context, id string) (*models.Account, error) {
	a, err := s.accs.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get account: %w", err)
	}

	return a, nil
}

func (s *Store) InsertTransaction(ctx context.Context, t *models.Transaction) error {
	err := s.txns.Insert(ctx, s.db, t)
	if err != nil {
		return fmt.Errorf("insert transaction: %w", err)
	}

	return nil
}

func (s *Store) GetTransaction(ctx context.Context, id string, opts models.QueryOptions) (*models.Transaction, error) {
	t, err := s.txns.Get(ctx, id, opts)
	if err != nil {
		return nil, fmt.Errorf("get transaction: %w", err)
	}

	return t, nil
}

func (s *Store) ListHistory(ctx context.Context, accountID string, opts models.QueryOptions) ([]*models.HistoryEntry, error) {
	recs, err := s.txns.ListForAccount(ctx, accountID, opts)
	if err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}

	return s.resolve(ctx, recs)
}

func (s *Store) ListFlagged(ctx context.Context, opts models.QueryOptions) ([]*models.HistoryEntry, error) {
	recs, err := s.txns.ListFlagged(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("list flagged: %w", err)
	}

	return s.resolve(ctx, recs)
}

func (s *Store) ListFlaggedSince(ctx context.Context, since time.Time, opts models.QueryOptions) ([]*models.Transaction, error) {
	recs, err := s.txns.ListFlaggedSince(ctx, since, opts)
	if err != nil {
		return nil, fmt.Errorf("list flagged since: %w", err)
	}

	return recs, nil
}

func (s *Store) SoftDeleteCompletedBefore(ctx context.Context, cutoff time.Time, limit int) (int, error) {
	n, err := s.txns.SoftDeleteCompletedBefore(ctx, cutoff, limit)
	if err != nil {
		return 0, fmt.Errorf("soft delete completed: %w", err)
	}

	return n, nil
}

func (s *Store) SetDeleted(ctx context.Context, id string, deleted bool, at time.Time) error {
	err := s.txns.SetDeleted(ctx, id, deleted, at)
	if err != nil {
		return fmt.Errorf("set deleted: %w", err)
	}

	return nil
}

func (s *Store) Stats(ctx context.Context) (*models.Stats, error) {
	total, active, err := s.accs.Counts(ctx)
	if err != nil {
		return nil, fmt.Errorf("account stats: %w", err)
	}

	count, volume, err := s.txns.Stats(ctx)
	if err != nil {
		return nil, fmt.Errorf("transaction stats: %w", err)
	}

	return &models.Stats{
		TotalAccounts:     total,
		ActiveAccounts:    active,
		TotalTransactions: count,
		CompletedVolume:   volume,
	}, nil
}

// resolve attaches the display identity of both parties to each record.
func (s *Store) resolve(ctx context.Context, recs []*models.Transaction) ([]*models.HistoryEntry, error) {
	ids := make([]string, 0, 2*len(recs))
	for _, r := range recs {
		if r.FromAccount != "" {
			ids = append(ids, r.FromAccount)
		}
		if r.ToAccount != "" {
			ids = append(ids, r.ToAccount)
		}
	}

	parties, err := s.accs.GetMany(ctx, ids...)
	if err != nil {
		return nil, fmt.Errorf("resolve parties: %w", err)
	}

	out := make([]*models.HistoryEntry, 0, len(recs))
	for _, r := range recs {
		e := &models.HistoryEntry{Transaction: r}
		if a, ok := parties[r.FromAccount]; ok {
			e.From = a.Party()
		}
		if a, ok := parties[r.ToAccount]; ok {
			e.To = a.Party()
		}

		out = append(out, e)
	}

	return out, nil
}
