package accounts

import (
	"context"
	"database/sql"
	"errors"

	"github.com/fastprodman/walletledger/internal/models"
	"github.com/shopspring/decimal"
)

var ErrAccountNotFound = errors.New("account not found")

type Accounts interface {
	Get(ctx context.Context, id string) (*models.Account, error)
	GetMany(ctx context.Context, ids ...string) (map[string]*models.Account, error)
	LockForUpdate(ctx context.Context, tx *sql.Tx, ids ...string) (map[string]*models.Account, error)
	UpdateBalance(ctx context.Context, tx *sql.Tx, id string, balance decimal.Decimal) error
	Counts(ctx context.Context) (total, active int64, err error)
}
