package transactions

import (
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
)

var txCols = []string{
	"id", "type", "amount", "currency", "from_account", "to_account", "status",
	"description", "fraud_score", "fraud_flags", "metadata", "is_deleted", "deleted_at",
	"created_at", "updated_at",
}

var createdAt = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newMock(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	return db, mock
}

// addTx appends a TRANSFER row. A nil from or to becomes SQL NULL.
func addTx(rows *sqlmock.Rows, id string, from, to any, score int, flags string) *sqlmock.Rows {
	return rows.AddRow(id, "TRANSFER", "150.00", "USD", from, to, "COMPLETED",
		"Wallet transfer", score, []byte(flags), []byte(`{"ipAddress":"10.0.0.1"}`), false, nil,
		createdAt, createdAt)
}

func expectMet(t *testing.T, mock sqlmock.Sqlmock) {
	t.Helper()

	err := mock.ExpectationsWereMet()
	if err != nil {
		t.Fatalf("expectations: %v", err)
	}
}
