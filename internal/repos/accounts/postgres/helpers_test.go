package accounts

import (
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
)

var accountCols = []string{
	"id", "display_name", "email", "balance", "bonus_balance", "currency",
	"is_active", "is_deleted", "deleted_at", "created_at", "updated_at",
}

var seededAt = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newMock(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	return db, mock
}

func accountRow(rows *sqlmock.Rows, id, balance string) *sqlmock.Rows {
	return rows.AddRow(id, "Name "+id, id+"@example.com", balance, "0.00", "USD",
		true, false, nil, seededAt, seededAt)
}
