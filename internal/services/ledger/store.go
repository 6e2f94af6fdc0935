package ledger

import (
	"context"
	"errors"
	"time"

	"github.com/fastprodman/walletledger/internal/models"
	"github.com/fastprodman/walletledger/internal/repos"
	"github.com/fastprodman/walletledger/internal/repos/accounts"
	"github.com/fastprodman/walletledger/internal/repos/transactions"
	"github.com/shopspring/decimal"
)

var (
	ErrAccountNotFound     = accounts.ErrAccountNotFound
	ErrTransactionNotFound = transactions.ErrTransactionNotFound
	ErrConflict            = repos.ErrConflict

	ErrInsufficientFunds = errors.New("insufficient funds")
	// ErrTransient is returned once conflict retries are exhausted.
	ErrTransient = errors.New("transient store failure")
)

// Store is the persistence the engine runs against.
type Store interface {
	// WithTx runs fn in an all-or-nothing scope. Any error from fn rolls back
	// every write made through the Tx.
	WithTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error

	GetAccount(ctx context.Context, id string) (*models.Account, error)
	// InsertTransaction writes a record outside of any scope.
	InsertTransaction(ctx context.Context, t *models.Transaction) error
	GetTransaction(ctx context.Context, id string, opts models.QueryOptions) (*models.Transaction, error)
	ListHistory(ctx context.Context, accountID string, opts models.QueryOptions) ([]*models.HistoryEntry, error)
	ListFlagged(ctx context.Context, opts models.QueryOptions) ([]*models.HistoryEntry, error)
	ListFlaggedSince(ctx context.Context, since time.Time, opts models.QueryOptions) ([]*models.Transaction, error)
	SoftDeleteCompletedBefore(ctx context.Context, cutoff time.Time, limit int) (int, error)
	SetDeleted(ctx context.Context, id string, deleted bool, at time.Time) error
	Stats(ctx context.Context) (*models.Stats, error)
}

// Tx is the view of the store inside a WithTx scope.
type Tx interface {
	// LockAccounts locks ids in lexicographic order and returns copies keyed
	// by id. A missing id fails with ErrAccountNotFound.
	LockAccounts(ctx context.Context, ids ...string) (map[string]*models.Account, error)
	RecentActivity(ctx context.Context, accountID string, since time.Time) ([]*models.Transaction, error)
	UpdateBalance(ctx context.Context, id string, balance decimal.Decimal) error
	InsertTransaction(ctx context.Context, t *models.Transaction) error
}
