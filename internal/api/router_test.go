package api_test

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/fastprodman/walletledger/internal/api"
	"github.com/fastprodman/walletledger/internal/models"
	"github.com/fastprodman/walletledger/internal/repos/memstore"
	"github.com/fastprodman/walletledger/internal/services/ledger"
	"github.com/fastprodman/walletledger/internal/services/risk"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	store := memstore.New()
	for _, a := range []*models.Account{
		{ID: "acc-alice", DisplayName: "Alice", Email: "alice@example.com", Balance: decimal.RequireFromString("500"), Currency: "USD", Active: true},
		{ID: "acc-bob", DisplayName: "Bob", Email: "bob@example.com", Balance: decimal.RequireFromString("50"), Currency: "USD", Active: true},
	} {
		store.PutAccount(a)
	}

	// Noon in the scorer's zone keeps the unusual-hour rule quiet.
	offset := (12 - time.Now().UTC().Hour()) * 3600
	scorer := risk.NewScorer(
		risk.WithLocation(time.FixedZone("midday", offset)),
		risk.WithLargeAmount(decimal.RequireFromString("1000")),
	)

	srv := httptest.NewServer(api.NewRouter(ledger.New(store, scorer, nil)))
	t.Cleanup(srv.Close)

	return srv
}

func do(t *testing.T, srv *httptest.Server, method, path, account, body string) (int, map[string]any) {
	t.Helper()

	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}

	req, err := http.NewRequestWithContext(t.Context(), method, srv.URL+path, rd)
	require.NoError(t, err)

	if account != "" {
		req.Header.Set(api.AccountHeader, account)
	}
	req.Header.Set("User-Agent", "wallet-test/1.0")
	req.Header.Set("X-Location", "Lisbon")

	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var out map[string]any

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	if len(raw) > 0 && strings.HasPrefix(resp.Header.Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(raw, &out), string(raw))
	}

	return resp.StatusCode, out
}

func TestHealthzAndMetrics(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t)

	code, body := do(t, srv, http.MethodGet, "/healthz", "", "")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ok", body["status"])

	code, _ = do(t, srv, http.MethodGet, "/metrics", "", "")
	assert.Equal(t, http.StatusOK, code)
}

func TestWallet_RequiresAccountHeader(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t)

	code, body := do(t, srv, http.MethodGet, "/wallet/balance", "", "")
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Contains(t, body["error"], api.AccountHeader)
}

func TestWallet_DepositWithdrawTransfer(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t)

	code, body := do(t, srv, http.MethodPost, "/wallet/deposit", "acc-alice", `{"amount":"100.50"}`)
	require.Equal(t, http.StatusOK, code, body)
	assert.Equal(t, "COMPLETED", body["outcome"])

	tx := body["transaction"].(map[string]any)
	assert.Equal(t, "DEPOSIT", tx["type"])
	assert.Equal(t, "acc-alice", tx["toAccount"])
	meta := tx["metadata"].(map[string]any)
	assert.Equal(t, "wallet-test/1.0", meta["deviceInfo"])
	assert.Equal(t, "Lisbon", meta["location"])
	assert.NotEmpty(t, meta["ipAddress"])

	code, body = do(t, srv, http.MethodPost, "/wallet/withdraw", "acc-alice", `{"amount":"0.50","currency":"usd"}`)
	require.Equal(t, http.StatusOK, code, body)

	code, body = do(t, srv, http.MethodPost, "/wallet/transfer", "acc-alice", `{"toAccountId":"acc-bob","amount":"100"}`)
	require.Equal(t, http.StatusOK, code, body)

	code, body = do(t, srv, http.MethodGet, "/wallet/balance", "acc-alice", "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "500.00", body["balance"])
	assert.Equal(t, "USD", body["currency"])

	code, body = do(t, srv, http.MethodGet, "/wallet/balance", "acc-bob", "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "150.00", body["balance"])

	code, body = do(t, srv, http.MethodGet, "/wallet/history?limit=2", "acc-alice", "")
	require.Equal(t, http.StatusOK, code)
	entries := body["transactions"].([]any)
	require.Len(t, entries, 2)

	newest := entries[0].(map[string]any)
	assert.Equal(t, "TRANSFER", newest["type"])
	assert.Equal(t, "Bob", newest["to"].(map[string]any)["displayName"])
}

func TestWallet_ErrorMapping(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t)

	tests := []struct {
		name    string
		path    string
		account string
		body    string
		want    int
	}{
		{"too many decimals", "/wallet/deposit", "acc-alice", `{"amount":"1.234"}`, http.StatusBadRequest},
		{"negative amount", "/wallet/deposit", "acc-alice", `{"amount":"-5"}`, http.StatusBadRequest},
		{"zero amount", "/wallet/deposit", "acc-alice", `{"amount":"0"}`, http.StatusBadRequest},
		{"missing amount", "/wallet/deposit", "acc-alice", `{}`, http.StatusBadRequest},
		{"empty body", "/wallet/deposit", "acc-alice", ``, http.StatusBadRequest},
		{"unknown field", "/wallet/deposit", "acc-alice", `{"amount":"1","memo":"x"}`, http.StatusBadRequest},
		{"short currency", "/wallet/deposit", "acc-alice", `{"amount":"1","currency":"US"}`, http.StatusBadRequest},
		{"currency mismatch", "/wallet/deposit", "acc-alice", `{"amount":"1","currency":"EUR"}`, http.StatusBadRequest},
		{"self transfer", "/wallet/transfer", "acc-alice", `{"toAccountId":"acc-alice","amount":"1"}`, http.StatusBadRequest},
		{"unknown caller", "/wallet/deposit", "acc-nobody", `{"amount":"1"}`, http.StatusNotFound},
		{"unknown recipient", "/wallet/transfer", "acc-alice", `{"toAccountId":"acc-ghost","amount":"1"}`, http.StatusNotFound},
		{"insufficient funds", "/wallet/withdraw", "acc-bob", `{"amount":"50.01"}`, http.StatusConflict},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, body := do(t, srv, http.MethodPost, tt.path, tt.account, tt.body)
			assert.Equal(t, tt.want, code, body)
			assert.NotEmpty(t, body["error"])
		})
	}

	code, body := do(t, srv, http.MethodGet, "/wallet/balance", "acc-bob", "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "50.00", body["balance"])

	code, _ = do(t, srv, http.MethodGet, "/wallet/history?limit=abc", "acc-bob", "")
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = do(t, srv, http.MethodGet, "/wallet/history?offset=-1", "acc-bob", "")
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestFlaggedTransaction_AdminLifecycle(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t)

	code, body := do(t, srv, http.MethodPost, "/wallet/deposit", "acc-alice", `{"amount":"2500"}`)
	require.Equal(t, http.StatusUnprocessableEntity, code, body)
	assert.Equal(t, "FLAGGED", body["outcome"])

	tx := body["transaction"].(map[string]any)
	id := tx["id"].(string)
	assert.Contains(t, tx["fraudFlags"], "LARGE_AMOUNT")

	// Rejected deposits never reach the balance.
	_, body = do(t, srv, http.MethodGet, "/wallet/balance", "acc-alice", "")
	assert.Equal(t, "500.00", body["balance"])

	code, body = do(t, srv, http.MethodGet, "/admin/transactions/flagged", "", "")
	require.Equal(t, http.StatusOK, code)
	require.Len(t, body["transactions"], 1)

	code, body = do(t, srv, http.MethodGet, "/admin/reports/fraud", "", "")
	require.Equal(t, http.StatusOK, code)
	assert.EqualValues(t, 1, body["totalFlagged"])

	code, body = do(t, srv, http.MethodDelete, "/admin/transactions/"+id, "", "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, true, body["isDeleted"])

	code, body = do(t, srv, http.MethodGet, "/admin/transactions/flagged", "", "")
	require.Equal(t, http.StatusOK, code)
	assert.Empty(t, body["transactions"])

	code, body = do(t, srv, http.MethodGet, "/admin/transactions/"+id, "", "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, true, body["isDeleted"])

	code, body = do(t, srv, http.MethodPost, "/admin/transactions/"+id+"/restore", "", "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, false, body["isDeleted"])

	code, _ = do(t, srv, http.MethodGet, "/admin/transactions/missing", "", "")
	assert.Equal(t, http.StatusNotFound, code)

	code, body = do(t, srv, http.MethodGet, "/admin/statistics", "", "")
	require.Equal(t, http.StatusOK, code)
	assert.EqualValues(t, 2, body["totalAccounts"])
	assert.EqualValues(t, 1, body["totalTransactions"])
}
