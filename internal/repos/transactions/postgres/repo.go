package transactions

import (
	"database/sql"
	"fmt"

	"github.com/fastprodman/walletledger/internal/models"
	"github.com/fastprodman/walletledger/internal/repos/transactions"
)

var _ transactions.Transactions = (*transactionsRepo)(nil)

type transactionsRepo struct{ db *sql.DB }

func New(db *sql.DB) *transactionsRepo {
	return &transactionsRepo{db: db}
}

const transactionColumns = `id, type, amount, currency, from_account, to_account, status,
	description, fraud_score, fraud_flags, metadata, is_deleted, deleted_at,
	created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTransaction(row rowScanner) (*models.Transaction, error) {
	var (
		t         models.Transaction
		from, to  sql.NullString
		deletedAt sql.NullTime
	)

	err := row.Scan(
		&t.ID, &t.Kind, &t.Amount, &t.Currency, &from, &to, &t.Status,
		&t.Description, &t.FraudScore, &t.FraudFlags, &t.Metadata, &t.Deleted, &deletedAt,
		&t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("scan transaction: %w", err)
	}

	t.FromAccount = from.String
	t.ToAccount = to.String
	if t.FraudFlags == nil {
		t.FraudFlags = models.Flags{}
	}
	if deletedAt.Valid {
		at := deletedAt.Time.UTC()
		t.DeletedAt = &at
	}

	return &t, nil
}

func scanTransactions(rows *sql.Rows) ([]*models.Transaction, error) {
	//nolint:errcheck
	defer rows.Close()

	var out []*models.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}

		out = append(out, t)
	}

	err := rows.Err()
	if err != nil {
		return nil, fmt.Errorf("iterate transactions: %w", err)
	}

	return out, nil
}

// nullable maps an empty account reference to SQL NULL.
func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// limitArg maps an unset limit to NULL, which Postgres treats as LIMIT ALL.
func limitArg(opts models.QueryOptions) any {
	if opts.Limit <= 0 {
		return nil
	}

	return opts.Limit
}
