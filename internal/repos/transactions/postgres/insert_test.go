package transactions

import (
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/fastprodman/walletledger/internal/models"
	"github.com/fastprodman/walletledger/internal/repos/transactions"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
)

func TestTransactions_Insert_Table(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		dbErr   error
		wantErr error
		anyErr  bool
	}{
		{name: "ok_inserted"},
		{name: "duplicate_id", dbErr: &pgconn.PgError{Code: "23505"}, wantErr: transactions.ErrDuplicateTransaction},
		{name: "driver_error", dbErr: errors.New("broken pipe"), anyErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			db, mock := newMock(t)

			rec, err := models.NewTransaction(models.KindDeposit, decimal.RequireFromString("99.99"), "usd", "", "acc-1", models.Metadata{})
			if err != nil {
				t.Fatalf("new transaction: %v", err)
			}

			exp := mock.ExpectExec(`INSERT INTO transactions`).
				WithArgs(rec.ID, "DEPOSIT", "99.99", "USD", nil, "acc-1", "PENDING",
					"Wallet deposit", 0, sqlmock.AnyArg(), sqlmock.AnyArg(), false, nil,
					sqlmock.AnyArg(), sqlmock.AnyArg())
			if tt.dbErr != nil {
				exp.WillReturnError(tt.dbErr)
			} else {
				exp.WillReturnResult(sqlmock.NewResult(0, 1))
			}

			err = New(db).Insert(t.Context(), db, rec)

			switch {
			case tt.wantErr != nil:
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected %v, got %v", tt.wantErr, err)
				}
			case tt.anyErr:
				if err == nil || errors.Is(err, transactions.ErrDuplicateTransaction) {
					t.Fatalf("expected a plain driver error, got %v", err)
				}
			default:
				if err != nil {
					t.Fatalf("insert: %v", err)
				}
			}

			expectMet(t, mock)
		})
	}
}
