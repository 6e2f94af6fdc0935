package pgstore_test

import (
	"database/sql"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/fastprodman/walletledger/internal/infra/pgtestutil"
	"github.com/fastprodman/walletledger/internal/models"
	"github.com/fastprodman/walletledger/internal/repos/pgstore"
	"github.com/fastprodman/walletledger/internal/services/ledger"
	"github.com/fastprodman/walletledger/internal/services/risk"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedAccounts(t *testing.T, db *sql.DB) {
	t.Helper()

	mk := func(id, name, email, bal, cur string) *models.Account {
		return &models.Account{ID: id, DisplayName: name, Email: email, Balance: decimal.RequireFromString(bal), Currency: cur, Active: true}
	}

	pgtestutil.SeedAccounts(t, db,
		mk("acc-alice", "Alice", "alice@example.com", "5000.00", "USD"),
		mk("acc-bob", "Bob", "", "1200.00", "USD"),
		mk("acc-dave", "Dave", "dave@example.com", "8000.00", "EUR"),
	)
}

func newService(db *sql.DB) *ledger.Service {
	offset := (12 - time.Now().UTC().Hour()) * 3600
	scorer := risk.NewScorer(risk.WithLocation(time.FixedZone("midday", offset)))

	return ledger.New(pgstore.New(db), scorer, nil, ledger.WithRetry(10, 5*time.Millisecond))
}

func balance(t *testing.T, svc *ledger.Service, id string) decimal.Decimal {
	t.Helper()

	snap, err := svc.GetBalance(t.Context(), id)
	require.NoError(t, err)

	return snap.Balance
}

func TestPostgresStore_LedgerFlow(t *testing.T) {
	db := pgtestutil.NewTestDB(t)

	seedAccounts(t, db)
	svc := newService(db)
	ctx := t.Context()

	res, err := svc.Deposit(ctx, "acc-alice", decimal.RequireFromString("100.25"), "USD", models.Metadata{IPAddress: "10.0.0.1"})
	require.NoError(t, err)
	require.Equal(t, models.StatusCompleted, res.Outcome)

	_, err = svc.Transfer(ctx, "acc-alice", "acc-bob", decimal.RequireFromString("200"), "", models.Metadata{})
	require.NoError(t, err)

	_, err = svc.Withdraw(ctx, "acc-bob", decimal.RequireFromString("5000"), "USD", models.Metadata{})
	require.ErrorIs(t, err, ledger.ErrInsufficientFunds)

	_, err = svc.Deposit(ctx, "acc-dave", decimal.NewFromInt(1), "USD", models.Metadata{})
	require.ErrorIs(t, err, models.ErrValidation)

	assert.Equal(t, "4900.25", balance(t, svc, "acc-alice").StringFixed(2))
	assert.Equal(t, "1400.00", balance(t, svc, "acc-bob").StringFixed(2))

	hist, err := svc.GetHistory(ctx, "acc-bob", 0, 0)
	require.NoError(t, err)
	require.Len(t, hist, 1)
	assert.Equal(t, "Alice", hist[0].From.DisplayName)
	assert.Equal(t, "acc-bob", hist[0].To.AccountID)

	// Over the default LARGE_AMOUNT threshold: recorded as FLAGGED, money untouched.
	res, err = svc.Deposit(ctx, "acc-alice", decimal.NewFromInt(15000), "USD", models.Metadata{})
	require.NoError(t, err)
	require.Equal(t, models.StatusFlagged, res.Outcome)
	assert.Equal(t, "4900.25", balance(t, svc, "acc-alice").StringFixed(2))

	flagged, err := svc.GetFlagged(ctx, 0, 0)
	require.NoError(t, err)
	require.Len(t, flagged, 1)
	assert.Contains(t, flagged[0].FraudFlags, models.FlagLargeAmount)

	deleted, err := svc.SoftDeleteTransaction(ctx, res.Transaction.ID)
	require.NoError(t, err)
	assert.True(t, deleted.Deleted)

	flagged, err = svc.GetFlagged(ctx, 0, 0)
	require.NoError(t, err)
	assert.Empty(t, flagged)

	restored, err := svc.RestoreTransaction(ctx, res.Transaction.ID)
	require.NoError(t, err)
	assert.False(t, restored.Deleted)

	// Nothing is an hour old yet; a future cutoff sweeps one batch.
	n, err := svc.SoftDeleteCompletedBefore(ctx, time.Now().Add(-time.Hour), 10)
	require.NoError(t, err)
	assert.Zero(t, n)

	n, err = svc.SoftDeleteCompletedBefore(ctx, time.Now().Add(time.Hour), 1)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	st, err := svc.GetStatistics(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 3, st.TotalAccounts)
	assert.EqualValues(t, 2, st.TotalTransactions)
}

func TestPostgresStore_ConcurrentTransfersConserveMoney(t *testing.T) {
	db := pgtestutil.NewTestDB(t)

	seedAccounts(t, db)
	svc := newService(db)

	before := balance(t, svc, "acc-alice").Add(balance(t, svc, "acc-bob"))

	var wg sync.WaitGroup
	for i := range 20 {
		wg.Add(1)

		go func() {
			defer wg.Done()

			from, to := "acc-alice", "acc-bob"
			if i%2 == 1 {
				from, to = to, from
			}

			_, err := svc.Transfer(t.Context(), from, to, decimal.RequireFromString("7.31"), "USD", models.Metadata{})
			if err != nil && !errors.Is(err, ledger.ErrTransient) {
				t.Errorf("transfer %d: %v", i, err)
			}
		}()
	}
	wg.Wait()

	after := balance(t, svc, "acc-alice").Add(balance(t, svc, "acc-bob"))
	assert.True(t, before.Equal(after), "before %s after %s", before, after)
}
