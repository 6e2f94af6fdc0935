package config

import (
	"errors"
	"testing"
	"time"

	"github.com/fastprodman/walletledger/pkg/envconf"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type all struct {
	Store       StoreConfig
	Ledger      LedgerConfig
	Risk        RiskConfig
	Notify      NotifyConfig
	Maintenance MaintenanceConfig
}

//nolint:paralleltest
func TestDefaults(t *testing.T) {
	t.Setenv("STORE_BACKEND", StoreMemory)
	t.Setenv("RISK_TIMEZONE", "UTC")

	var cfg all
	require.NoError(t, envconf.Load(&cfg))

	assert.Equal(t, 3, cfg.Ledger.RetryAttempts)
	assert.Equal(t, 50*time.Millisecond, cfg.Ledger.RetryBaseDelay)
	assert.True(t, cfg.Risk.LargeAmount.Equal(decimal.NewFromInt(10000)))
	assert.Equal(t, 30*24*time.Hour, cfg.Maintenance.Retention())
	assert.Equal(t, "wallet:notifications", cfg.Notify.Redis.Channel)
	assert.Equal(t, 20, cfg.Store.Postgres.Pool().MaxOpenConns)

	loc, err := cfg.Risk.Location()
	require.NoError(t, err)
	assert.Equal(t, time.UTC, loc)

	th, err := cfg.Ledger.LargeTransactionThresholds()
	require.NoError(t, err)
	assert.Equal(t, "8500", th["EUR"].String())
	assert.Len(t, th, 3)

	require.NoError(t, Validate(cfg.Store, cfg.Notify, cfg.Maintenance))
}

func TestLargeTransactionThresholds(t *testing.T) {
	t.Parallel()

	tests := []struct {
		raw     string
		want    map[string]string
		wantErr bool
	}{
		{raw: "usd:100, eur:90.5", want: map[string]string{"USD": "100", "EUR": "90.5"}},
		{raw: "", want: map[string]string{}},
		{raw: "USD", wantErr: true},
		{raw: "USD:lots", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			t.Parallel()

			got, err := LedgerConfig{LargeTransactions: tt.raw}.LargeTransactionThresholds()
			if tt.wantErr {
				require.ErrorIs(t, err, ErrInvalidConfig)
				return
			}

			require.NoError(t, err)
			require.Len(t, got, len(tt.want))
			for cur, amt := range tt.want {
				assert.Equal(t, amt, got[cur].String(), cur)
			}
		})
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()

	okNotify := NotifyConfig{Sink: SinkLog}
	okMnt := MaintenanceConfig{Enabled: true, DigestInterval: time.Hour, RetentionInterval: time.Hour, RetentionDays: 30, SweepBatch: 500}

	tests := []struct {
		name  string
		store StoreConfig
		sink  string
		mnt   MaintenanceConfig
		ok    bool
	}{
		{"memory", StoreConfig{Backend: StoreMemory}, SinkLog, okMnt, true},
		{"postgres with dsn", StoreConfig{Backend: StorePostgres, Postgres: PostgresConfig{DSN: "postgres://x"}}, SinkRedis, okMnt, true},
		{"postgres without dsn", StoreConfig{Backend: StorePostgres}, SinkLog, okMnt, false},
		{"unknown backend", StoreConfig{Backend: "sqlite"}, SinkLog, okMnt, false},
		{"unknown sink", StoreConfig{Backend: StoreMemory}, "smtp", okMnt, false},
		{"zero interval", StoreConfig{Backend: StoreMemory}, SinkLog, MaintenanceConfig{Enabled: true, RetentionDays: 1, SweepBatch: 1}, false},
		{"disabled ignores intervals", StoreConfig{Backend: StoreMemory}, SinkLog, MaintenanceConfig{RetentionDays: 1, SweepBatch: 1}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			n := okNotify
			n.Sink = tt.sink

			err := Validate(tt.store, n, tt.mnt)
			if tt.ok {
				require.NoError(t, err)
				return
			}

			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidConfig))
		})
	}
}
