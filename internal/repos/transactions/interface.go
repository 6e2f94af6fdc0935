package transactions

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/fastprodman/walletledger/internal/infra/pgutils"
	"github.com/fastprodman/walletledger/internal/models"
	"github.com/shopspring/decimal"
)

var (
	ErrDuplicateTransaction = errors.New("duplicate transaction")
	ErrTransactionNotFound  = errors.New("transaction not found")
)

type Transactions interface {
	Insert(ctx context.Context, q pgutils.Querier, t *models.Transaction) error
	RecentForAccount(ctx context.Context, tx *sql.Tx, accountID string, since time.Time) ([]*models.Transaction, error)
	Get(ctx context.Context, id string, opts models.QueryOptions) (*models.Transaction, error)
	ListForAccount(ctx context.Context, accountID string, opts models.QueryOptions) ([]*models.Transaction, error)
	ListFlagged(ctx context.Context, opts models.QueryOptions) ([]*models.Transaction, error)
	ListFlaggedSince(ctx context.Context, since time.Time, opts models.QueryOptions) ([]*models.Transaction, error)
	SoftDeleteCompletedBefore(ctx context.Context, cutoff time.Time, limit int) (int, error)
	SetDeleted(ctx context.Context, id string, deleted bool, at time.Time) error
	Stats(ctx context.Context) (count int64, completedVolume map[string]decimal.Decimal, err error)
}
